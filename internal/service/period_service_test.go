package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/lifecycle"
	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/realtime"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

type mockPeriodRepo struct {
	years       map[string]*models.AcademicYear
	semesters   map[string]*models.Semester
	departments map[string]int
	createErr   error
	// deleteErr and transitionErr stand in for a repository transaction that
	// lost a race after the service's own checks passed.
	deleteErr     error
	transitionErr error
	deleted       []string
}

func newMockPeriodRepo() *mockPeriodRepo {
	return &mockPeriodRepo{
		years:       make(map[string]*models.AcademicYear),
		semesters:   make(map[string]*models.Semester),
		departments: make(map[string]int),
	}
}

func (m *mockPeriodRepo) addYear(id, name string, status models.PeriodStatus) {
	y := &models.AcademicYear{ID: id, AcadYear: name, Status: status}
	y.Locate()
	m.years[id] = y
}

func (m *mockPeriodRepo) addSemester(yearID, id, name string, status models.PeriodStatus) {
	s := &models.Semester{ID: id, AcademicYearID: yearID, SemesterName: name, Status: status}
	s.Locate()
	m.semesters[id] = s
}

func (m *mockPeriodRepo) ListAcademicYears(ctx context.Context, filter models.PeriodFilter) ([]models.AcademicYear, int, error) {
	var out []models.AcademicYear
	for _, y := range m.years {
		if filter.Status == "" || y.Status == filter.Status {
			out = append(out, *y)
		}
	}
	return out, len(out), nil
}

func (m *mockPeriodRepo) FindAcademicYear(ctx context.Context, id string) (*models.AcademicYear, error) {
	if y, ok := m.years[id]; ok {
		cp := *y
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPeriodRepo) AcademicYearNames(ctx context.Context) ([]lifecycle.Named, error) {
	var out []lifecycle.Named
	for _, y := range m.years {
		out = append(out, lifecycle.Named{ID: y.ID, Name: y.AcadYear})
	}
	return out, nil
}

func (m *mockPeriodRepo) CreateAcademicYear(ctx context.Context, year *models.AcademicYear) error {
	if m.createErr != nil {
		return m.createErr
	}
	year.ID = "generated"
	year.Locate()
	m.years[year.ID] = year
	return nil
}

func (m *mockPeriodRepo) UpdateAcademicYear(ctx context.Context, year *models.AcademicYear) error {
	m.years[year.ID] = year
	return nil
}

func (m *mockPeriodRepo) DeleteAcademicYear(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	delete(m.years, id)
	return nil
}

func (m *mockPeriodRepo) CountSemesters(ctx context.Context, yearID string) (int, error) {
	n := 0
	for _, s := range m.semesters {
		if s.AcademicYearID == yearID {
			n++
		}
	}
	return n, nil
}

func (m *mockPeriodRepo) ListSemesters(ctx context.Context, filter models.PeriodFilter) ([]models.Semester, int, error) {
	var out []models.Semester
	for _, s := range m.semesters {
		if s.AcademicYearID == filter.AcademicYearID {
			out = append(out, *s)
		}
	}
	return out, len(out), nil
}

func (m *mockPeriodRepo) FindSemester(ctx context.Context, yearID, id string) (*models.Semester, error) {
	if s, ok := m.semesters[id]; ok && s.AcademicYearID == yearID {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPeriodRepo) SemesterNames(ctx context.Context, yearID string) ([]lifecycle.Named, error) {
	var out []lifecycle.Named
	for _, s := range m.semesters {
		if s.AcademicYearID == yearID {
			out = append(out, lifecycle.Named{ID: s.ID, Name: s.SemesterName})
		}
	}
	return out, nil
}

func (m *mockPeriodRepo) CreateSemester(ctx context.Context, semester *models.Semester) error {
	if m.createErr != nil {
		return m.createErr
	}
	semester.ID = "sem-generated"
	semester.Locate()
	m.semesters[semester.ID] = semester
	return nil
}

func (m *mockPeriodRepo) UpdateSemester(ctx context.Context, semester *models.Semester) error {
	m.semesters[semester.ID] = semester
	return nil
}

func (m *mockPeriodRepo) DeleteSemester(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	delete(m.semesters, id)
	return nil
}

func (m *mockPeriodRepo) CountDepartments(ctx context.Context, semesterID string) (int, error) {
	return m.departments[semesterID], nil
}

func (m *mockPeriodRepo) yearTree() []lifecycle.Record {
	var records []lifecycle.Record
	for _, y := range m.years {
		r := lifecycle.Record{ID: y.ID, Kind: lifecycle.KindAcademicYear, Path: y.Path, Status: y.Status}
		r.Children = m.semesterTree(y.ID)
		records = append(records, r)
	}
	return records
}

func (m *mockPeriodRepo) semesterTree(yearID string) []lifecycle.Record {
	var records []lifecycle.Record
	for _, s := range m.semesters {
		if s.AcademicYearID == yearID {
			records = append(records, lifecycle.Record{ID: s.ID, Kind: lifecycle.KindSemester, Path: s.Path, Status: s.Status})
		}
	}
	return records
}

func (m *mockPeriodRepo) apply(plan lifecycle.Plan) {
	for _, c := range plan.Changes {
		if y, ok := m.years[c.ID]; ok {
			y.Status = c.To
		}
		if s, ok := m.semesters[c.ID]; ok {
			s.Status = c.To
		}
	}
}

func (m *mockPeriodRepo) ActivateAcademicYear(ctx context.Context, id string) (lifecycle.Plan, error) {
	plan, err := lifecycle.PlanActivation(id, m.yearTree())
	if err != nil {
		return lifecycle.Plan{}, sql.ErrNoRows
	}
	m.apply(plan)
	return plan, nil
}

func (m *mockPeriodRepo) ArchiveAcademicYear(ctx context.Context, id string) (lifecycle.Plan, error) {
	for _, r := range m.yearTree() {
		if r.ID == id {
			plan := lifecycle.PlanArchive(r)
			m.apply(plan)
			return plan, nil
		}
	}
	return lifecycle.Plan{}, sql.ErrNoRows
}

func (m *mockPeriodRepo) ActivateSemester(ctx context.Context, yearID, id string) (lifecycle.Plan, error) {
	if m.transitionErr != nil {
		return lifecycle.Plan{}, m.transitionErr
	}
	plan, err := lifecycle.PlanActivation(id, m.semesterTree(yearID))
	if err != nil {
		return lifecycle.Plan{}, sql.ErrNoRows
	}
	m.apply(plan)
	return plan, nil
}

func (m *mockPeriodRepo) ArchiveSemester(ctx context.Context, yearID, id string) (lifecycle.Plan, error) {
	if m.transitionErr != nil {
		return lifecycle.Plan{}, m.transitionErr
	}
	for _, r := range m.semesterTree(yearID) {
		if r.ID == id {
			plan := lifecycle.PlanArchive(r)
			m.apply(plan)
			return plan, nil
		}
	}
	return lifecycle.Plan{}, sql.ErrNoRows
}

func newPeriodServiceForTest(repo *mockPeriodRepo) (*PeriodService, *recordingPublisher, *countingInvalidator) {
	pub := &recordingPublisher{}
	inv := &countingInvalidator{}
	return NewPeriodService(repo, validator.New(), zap.NewNop(), pub, inv, NewMetricsService()), pub, inv
}

func TestPeriodServiceCreateAcademicYear(t *testing.T) {
	repo := newMockPeriodRepo()
	svc, pub, _ := newPeriodServiceForTest(repo)

	year, err := svc.CreateAcademicYear(context.Background(), AcademicYearRequest{AcadYear: "  S.Y - 2024-2025 "})
	require.NoError(t, err)
	assert.Equal(t, "S.Y - 2024-2025", year.AcadYear)
	assert.Equal(t, models.StatusUpcoming, year.Status)
	assert.Equal(t, []realtime.Op{realtime.OpCreated}, pub.ops())
}

func TestPeriodServiceCreateAcademicYearValidation(t *testing.T) {
	svc, _, _ := newPeriodServiceForTest(newMockPeriodRepo())

	for _, name := range []string{"", "2024-2025", "S.Y - 2024-2026", "S.Y - 2025-2024", "s.y - 2024-2025"} {
		_, err := svc.CreateAcademicYear(context.Background(), AcademicYearRequest{AcadYear: name})
		assert.ErrorIs(t, err, appErrors.ErrValidation, name)
	}
}

func TestPeriodServiceAcademicYearDuplicates(t *testing.T) {
	repo := newMockPeriodRepo()
	repo.addYear("y1", "S.Y - 2024-2025", models.StatusUpcoming)
	svc, _, _ := newPeriodServiceForTest(repo)

	_, err := svc.CreateAcademicYear(context.Background(), AcademicYearRequest{AcadYear: "S.Y - 2024-2025"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	renamed, err := svc.UpdateAcademicYear(context.Background(), "y1", AcademicYearRequest{AcadYear: "S.Y - 2024-2025"})
	require.NoError(t, err)
	assert.Equal(t, "S.Y - 2024-2025", renamed.AcadYear)
}

func TestPeriodServiceUniqueViolationIsConflict(t *testing.T) {
	repo := newMockPeriodRepo()
	repo.createErr = &pq.Error{Code: "23505"}
	svc, _, _ := newPeriodServiceForTest(repo)

	_, err := svc.CreateAcademicYear(context.Background(), AcademicYearRequest{AcadYear: "S.Y - 2030-2031"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestPeriodServiceActivateCascades(t *testing.T) {
	repo := newMockPeriodRepo()
	repo.addYear("A", "S.Y - 2023-2024", models.StatusActive)
	repo.addYear("B", "S.Y - 2024-2025", models.StatusUpcoming)
	repo.addSemester("A", "A1", models.FirstSemester, models.StatusActive)
	svc, pub, inv := newPeriodServiceForTest(repo)

	result, err := svc.ActivateAcademicYear(context.Background(), "B")
	require.NoError(t, err)

	assert.Equal(t, models.StatusArchived, repo.years["A"].Status)
	assert.Equal(t, models.StatusArchived, repo.semesters["A1"].Status)
	assert.Equal(t, models.StatusActive, repo.years["B"].Status)
	assert.Equal(t, models.StatusActive, result.Status)
	assert.ElementsMatch(t, []string{"academic_years/A", "academic_years/A/semesters/A1"}, result.Archived)
	assert.Equal(t, 1, inv.calls)
	assert.Len(t, pub.events, 3)
	assert.Equal(t, realtime.OpActivated, pub.events[2].Op)
}

func TestPeriodServiceActivateIdempotent(t *testing.T) {
	repo := newMockPeriodRepo()
	repo.addYear("A", "S.Y - 2023-2024", models.StatusActive)
	repo.addYear("B", "S.Y - 2024-2025", models.StatusUpcoming)
	svc, _, _ := newPeriodServiceForTest(repo)

	for i := 0; i < 2; i++ {
		_, err := svc.ActivateAcademicYear(context.Background(), "A")
		require.NoError(t, err)
	}
	assert.Equal(t, models.StatusActive, repo.years["A"].Status)
	assert.Equal(t, models.StatusUpcoming, repo.years["B"].Status)
}

func TestPeriodServiceActivateUnknown(t *testing.T) {
	svc, _, inv := newPeriodServiceForTest(newMockPeriodRepo())
	_, err := svc.ActivateAcademicYear(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Zero(t, inv.calls)
}

func TestPeriodServiceArchiveSemester(t *testing.T) {
	repo := newMockPeriodRepo()
	repo.addYear("A", "S.Y - 2023-2024", models.StatusActive)
	repo.addSemester("A", "A1", models.FirstSemester, models.StatusActive)
	svc, _, _ := newPeriodServiceForTest(repo)

	result, err := svc.ArchiveSemester(context.Background(), "A", "A1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusArchived, result.Status)
	assert.Empty(t, result.Archived)
	assert.Equal(t, models.StatusActive, repo.years["A"].Status)
}

func TestPeriodServiceDeleteGuards(t *testing.T) {
	repo := newMockPeriodRepo()
	repo.addYear("active", "S.Y - 2023-2024", models.StatusActive)
	repo.addYear("parent", "S.Y - 2024-2025", models.StatusUpcoming)
	repo.addYear("empty", "S.Y - 2025-2026", models.StatusArchived)
	repo.addSemester("parent", "p1", models.FirstSemester, models.StatusUpcoming)
	svc, _, _ := newPeriodServiceForTest(repo)
	ctx := context.Background()

	err := svc.DeleteAcademicYear(ctx, "active")
	require.ErrorIs(t, err, appErrors.ErrPreconditionFailed)
	assert.Contains(t, err.Error(), "active")

	err = svc.DeleteAcademicYear(ctx, "parent")
	require.ErrorIs(t, err, appErrors.ErrPreconditionFailed)
	assert.Contains(t, err.Error(), "remove them first")

	require.NoError(t, svc.DeleteAcademicYear(ctx, "empty"))
	assert.Equal(t, []string{"empty"}, repo.deleted)
}

func TestPeriodServiceDeleteActiveSemesterWithChildren(t *testing.T) {
	repo := newMockPeriodRepo()
	repo.addYear("A", "S.Y - 2023-2024", models.StatusActive)
	repo.addSemester("A", "A1", models.FirstSemester, models.StatusActive)
	repo.departments["A1"] = 2
	svc, _, _ := newPeriodServiceForTest(repo)

	err := svc.DeleteSemester(context.Background(), "A", "A1")
	require.ErrorIs(t, err, appErrors.ErrPreconditionFailed)
	assert.Contains(t, err.Error(), "cannot delete an active semester")
	assert.Empty(t, repo.deleted)
}

func TestPeriodServiceDeleteLosesRaceInTransaction(t *testing.T) {
	repo := newMockPeriodRepo()
	repo.addYear("y1", "S.Y - 2025-2026", models.StatusUpcoming)
	repo.addSemester("y1", "s1", models.FirstSemester, models.StatusUpcoming)
	svc, pub, _ := newPeriodServiceForTest(repo)
	ctx := context.Background()

	// activated between the service check and the repository lock
	repo.deleteErr = lifecycle.ErrActiveRecord
	err := svc.DeleteSemester(ctx, "y1", "s1")
	require.ErrorIs(t, err, appErrors.ErrPreconditionFailed)
	assert.Contains(t, err.Error(), "cannot delete an active semester")

	// a department inserted by a transaction the count could not see
	repo.deleteErr = fmt.Errorf("delete semesters: %w", &pq.Error{Code: "23503", Constraint: "departments_semester_id_fkey"})
	err = svc.DeleteSemester(ctx, "y1", "s1")
	require.ErrorIs(t, err, appErrors.ErrPreconditionFailed)
	assert.Contains(t, err.Error(), "remove them first")

	repo.deleteErr = sql.ErrNoRows
	assert.ErrorIs(t, svc.DeleteSemester(ctx, "y1", "s1"), appErrors.ErrNotFound)
	assert.Empty(t, repo.deleted)
	assert.Empty(t, pub.ops())
}

func TestPeriodServiceConcurrentSemesterActivationIsConflict(t *testing.T) {
	repo := newMockPeriodRepo()
	repo.addYear("y1", "S.Y - 2025-2026", models.StatusActive)
	repo.addSemester("y1", "s1", models.FirstSemester, models.StatusUpcoming)
	repo.transitionErr = fmt.Errorf("activate semester: %w", &pq.Error{Code: "23505", Constraint: "semesters_single_active"})
	svc, _, inv := newPeriodServiceForTest(repo)

	_, err := svc.ActivateSemester(context.Background(), "y1", "s1")
	require.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Contains(t, err.Error(), "retry")
	assert.Zero(t, inv.calls)

	_, err = svc.ArchiveSemester(context.Background(), "y1", "s1")
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestPeriodServiceCreateSemesterValidation(t *testing.T) {
	repo := newMockPeriodRepo()
	repo.addYear("A", "S.Y - 2023-2024", models.StatusUpcoming)
	repo.addSemester("A", "A1", models.FirstSemester, models.StatusUpcoming)
	svc, _, _ := newPeriodServiceForTest(repo)
	ctx := context.Background()
	start := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 5, 0)

	_, err := svc.CreateSemester(ctx, "A", SemesterRequest{SemesterName: "3rd Semester", StartDate: start, EndDate: end})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.CreateSemester(ctx, "A", SemesterRequest{SemesterName: models.SecondSemester, StartDate: end, EndDate: start})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.CreateSemester(ctx, "A", SemesterRequest{SemesterName: models.FirstSemester, StartDate: start, EndDate: end})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = svc.CreateSemester(ctx, "missing", SemesterRequest{SemesterName: models.SecondSemester, StartDate: start, EndDate: end})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	semester, err := svc.CreateSemester(ctx, "A", SemesterRequest{SemesterName: models.SecondSemester, StartDate: start, EndDate: end})
	require.NoError(t, err)
	assert.Equal(t, models.StatusUpcoming, semester.Status)
	assert.Equal(t, "academic_years/A/semesters/sem-generated", semester.Path)
}
