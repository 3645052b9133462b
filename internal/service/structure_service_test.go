package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/lifecycle"
	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

type stubSemesterLookup struct {
	status models.PeriodStatus
}

func (l stubSemesterLookup) FindSemester(ctx context.Context, yearID, id string) (*models.Semester, error) {
	if yearID == "y1" && id == "s1" {
		return &models.Semester{ID: id, AcademicYearID: yearID, Status: l.status}, nil
	}
	return nil, sql.ErrNoRows
}

type mockDepartmentRepo struct {
	items    map[string]*models.Department
	children map[string]int
	deleted  []string
}

func (m *mockDepartmentRepo) List(ctx context.Context, scope models.Scope) ([]models.Department, error) {
	var out []models.Department
	for _, d := range m.items {
		out = append(out, *d)
	}
	return out, nil
}

func (m *mockDepartmentRepo) FindByID(ctx context.Context, scope models.Scope, id string) (*models.Department, error) {
	if d, ok := m.items[id]; ok && d.SemesterID == scope.SemesterID {
		cp := *d
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDepartmentRepo) Names(ctx context.Context, scope models.Scope) ([]lifecycle.Named, error) {
	var out []lifecycle.Named
	for _, d := range m.items {
		out = append(out, lifecycle.Named{ID: d.ID, Name: d.DepartmentName})
	}
	return out, nil
}

func (m *mockDepartmentRepo) Create(ctx context.Context, d *models.Department) error {
	d.ID = "d-new"
	d.Locate()
	m.items[d.ID] = d
	return nil
}

func (m *mockDepartmentRepo) Update(ctx context.Context, d *models.Department) error {
	m.items[d.ID] = d
	return nil
}

func (m *mockDepartmentRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.items, id)
	return nil
}

func (m *mockDepartmentRepo) CountChildren(ctx context.Context, id string) (int, error) {
	return m.children[id], nil
}

type mockCourseRepo struct {
	items map[string]*models.Course
}

func (m *mockCourseRepo) List(ctx context.Context, scope models.Scope) ([]models.Course, error) {
	return nil, nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, scope models.Scope, id string) (*models.Course, error) {
	if c, ok := m.items[id]; ok && c.DepartmentID == scope.DepartmentID {
		cp := *c
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) Names(ctx context.Context, scope models.Scope) ([]lifecycle.Named, error) {
	var out []lifecycle.Named
	for _, c := range m.items {
		out = append(out, lifecycle.Named{ID: c.ID, Name: c.CourseName})
	}
	return out, nil
}

func (m *mockCourseRepo) Codes(ctx context.Context, scope models.Scope) ([]lifecycle.Named, error) {
	var out []lifecycle.Named
	for _, c := range m.items {
		out = append(out, lifecycle.Named{ID: c.ID, Name: c.CourseCode})
	}
	return out, nil
}

func (m *mockCourseRepo) Create(ctx context.Context, c *models.Course) error {
	c.ID = "c-new"
	c.Locate()
	m.items[c.ID] = c
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, c *models.Course) error { return nil }
func (m *mockCourseRepo) Delete(ctx context.Context, id string) error        { return nil }
func (m *mockCourseRepo) CountChildren(ctx context.Context, id string) (int, error) {
	return 0, nil
}

type mockYearLevelRepo struct {
	items map[string]*models.YearLevel
}

func (m *mockYearLevelRepo) List(ctx context.Context, scope models.Scope) ([]models.YearLevel, error) {
	return nil, nil
}

func (m *mockYearLevelRepo) FindByID(ctx context.Context, scope models.Scope, id string) (*models.YearLevel, error) {
	if l, ok := m.items[id]; ok && l.CourseID == scope.CourseID {
		cp := *l
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockYearLevelRepo) Names(ctx context.Context, scope models.Scope) ([]lifecycle.Named, error) {
	var out []lifecycle.Named
	for _, l := range m.items {
		out = append(out, lifecycle.Named{ID: l.ID, Name: l.YearLevelName})
	}
	return out, nil
}

func (m *mockYearLevelRepo) Create(ctx context.Context, l *models.YearLevel) error {
	l.ID = "yl-new"
	l.Locate()
	m.items[l.ID] = l
	return nil
}

func (m *mockYearLevelRepo) Update(ctx context.Context, l *models.YearLevel) error { return nil }
func (m *mockYearLevelRepo) Delete(ctx context.Context, id string) error           { return nil }
func (m *mockYearLevelRepo) CountChildren(ctx context.Context, id string) (int, error) {
	return 0, nil
}

type mockSectionRepo struct {
	items    map[string]*models.Section
	deleted   []string
	writeErr  error
	deleteErr error
}

func (m *mockSectionRepo) List(ctx context.Context, scope models.Scope) ([]models.Section, error) {
	return nil, nil
}

func (m *mockSectionRepo) FindByID(ctx context.Context, scope models.Scope, id string) (*models.Section, error) {
	if s, ok := m.items[id]; ok && s.YearLevelID == scope.YearLevelID {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSectionRepo) Names(ctx context.Context, scope models.Scope) ([]lifecycle.Named, error) {
	var out []lifecycle.Named
	for _, s := range m.items {
		out = append(out, lifecycle.Named{ID: s.ID, Name: s.SectionName})
	}
	return out, nil
}

func (m *mockSectionRepo) Create(ctx context.Context, s *models.Section) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	s.ID = "sec-new"
	s.Locate()
	m.items[s.ID] = s
	return nil
}

func (m *mockSectionRepo) Update(ctx context.Context, s *models.Section) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.items[s.ID] = s
	return nil
}

func (m *mockSectionRepo) Delete(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockSectionRepo) CountChildren(ctx context.Context, id string) (int, error) {
	return 0, nil
}

type structureFixture struct {
	svc         *StructureService
	departments *mockDepartmentRepo
	courses     *mockCourseRepo
	levels      *mockYearLevelRepo
	sections    *mockSectionRepo
	scope       models.Scope
}

func newStructureFixture() *structureFixture {
	scope := models.Scope{AcademicYearID: "y1", SemesterID: "s1", DepartmentID: "d1", CourseID: "c1", YearLevelID: "yl1"}
	f := &structureFixture{
		departments: &mockDepartmentRepo{
			items:    map[string]*models.Department{"d1": {ID: "d1", AcademicYearID: "y1", SemesterID: "s1", DepartmentName: "IT"}},
			children: map[string]int{"d1": 1},
		},
		courses: &mockCourseRepo{items: map[string]*models.Course{
			"c1": {ID: "c1", DepartmentID: "d1", CourseName: "Computer Science", CourseCode: "BSCS"},
		}},
		levels: &mockYearLevelRepo{items: map[string]*models.YearLevel{
			"yl1": {ID: "yl1", CourseID: "c1", YearLevelName: "1st Year"},
		}},
		sections: &mockSectionRepo{items: map[string]*models.Section{
			"sec1": {ID: "sec1", YearLevelID: "yl1", SectionName: "A", Status: models.StatusActive},
		}},
		scope: scope,
	}
	f.svc = NewStructureService(StructureRepositories{
		Semesters:   stubSemesterLookup{},
		Departments: f.departments,
		Courses:     f.courses,
		YearLevels:  f.levels,
		Sections:    f.sections,
	}, validator.New(), zap.NewNop(), nil)
	return f
}

func TestStructureServiceDepartmentNames(t *testing.T) {
	f := newStructureFixture()
	ctx := context.Background()

	_, err := f.svc.CreateDepartment(ctx, f.scope, DepartmentRequest{DepartmentName: " IT "})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	created, err := f.svc.CreateDepartment(ctx, f.scope, DepartmentRequest{DepartmentName: "it"})
	require.NoError(t, err)
	assert.Equal(t, "academic_years/y1/semesters/s1/departments/d-new", created.Path)

	renamed, err := f.svc.UpdateDepartment(ctx, f.scope, "d1", DepartmentRequest{DepartmentName: "IT"})
	require.NoError(t, err)
	assert.Equal(t, "IT", renamed.DepartmentName)

	_, err = f.svc.CreateDepartment(ctx, models.Scope{AcademicYearID: "y1", SemesterID: "other"}, DepartmentRequest{DepartmentName: "HR"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestStructureServiceDeleteDepartmentWithCourse(t *testing.T) {
	f := newStructureFixture()

	err := f.svc.DeleteDepartment(context.Background(), f.scope, "d1")
	require.ErrorIs(t, err, appErrors.ErrPreconditionFailed)
	assert.Empty(t, f.departments.deleted)
	assert.Len(t, f.departments.items, 1)
}

func TestStructureServiceCourseCodeUnique(t *testing.T) {
	f := newStructureFixture()
	ctx := context.Background()

	_, err := f.svc.CreateCourse(ctx, f.scope, CourseRequest{CourseName: "Information Systems", CourseCode: "BSCS"})
	require.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Contains(t, err.Error(), "code")

	course, err := f.svc.CreateCourse(ctx, f.scope, CourseRequest{CourseName: "Information Systems", CourseCode: "BSIS"})
	require.NoError(t, err)
	assert.Equal(t, "d1", course.DepartmentID)
}

func TestStructureServiceYearLevelNames(t *testing.T) {
	f := newStructureFixture()
	ctx := context.Background()

	_, err := f.svc.CreateYearLevel(ctx, f.scope, YearLevelRequest{YearLevelName: "5th Year"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.svc.CreateYearLevel(ctx, f.scope, YearLevelRequest{YearLevelName: "1st Year"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	level, err := f.svc.CreateYearLevel(ctx, f.scope, YearLevelRequest{YearLevelName: "2nd Year"})
	require.NoError(t, err)
	assert.Equal(t, "academic_years/y1/semesters/s1/departments/d1/courses/c1/year_levels/yl-new", level.Path)
}

func TestStructureServiceSections(t *testing.T) {
	f := newStructureFixture()
	ctx := context.Background()

	section, err := f.svc.CreateSection(ctx, f.scope, SectionRequest{SectionName: "B"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusUpcoming, section.Status)

	_, err = f.svc.CreateSection(ctx, f.scope, SectionRequest{SectionName: "C", Status: "active"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	err = f.svc.DeleteSection(ctx, f.scope, "sec1")
	assert.ErrorIs(t, err, appErrors.ErrPreconditionFailed)

	_, err = f.svc.UpdateSection(ctx, f.scope, "sec1", SectionRequest{SectionName: "A", Status: models.StatusArchived})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteSection(ctx, f.scope, "sec1"))
	assert.Equal(t, []string{"sec1"}, f.sections.deleted)
}

func TestStructureServiceActiveSectionNeedsActiveSemester(t *testing.T) {
	f := newStructureFixture()
	ctx := context.Background()
	f.svc.semesters = stubSemesterLookup{status: models.StatusUpcoming}

	_, err := f.svc.CreateSection(ctx, f.scope, SectionRequest{SectionName: "C", Status: models.StatusActive})
	require.ErrorIs(t, err, appErrors.ErrPreconditionFailed)
	assert.Contains(t, err.Error(), "semester is Active")

	_, err = f.svc.UpdateSection(ctx, f.scope, "sec1", SectionRequest{SectionName: "A", Status: models.StatusActive})
	assert.ErrorIs(t, err, appErrors.ErrPreconditionFailed)

	_, err = f.svc.CreateSection(ctx, f.scope, SectionRequest{SectionName: "D", Status: models.StatusUpcoming})
	require.NoError(t, err)

	f.svc.semesters = stubSemesterLookup{status: models.StatusActive}
	section, err := f.svc.CreateSection(ctx, f.scope, SectionRequest{SectionName: "E", Status: models.StatusActive})
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, section.Status)

	// semester archived after the check, caught by the repository lock
	f.sections.writeErr = fmt.Errorf("update section: %w", lifecycle.ErrParentNotActive)
	_, err = f.svc.UpdateSection(ctx, f.scope, "sec1", SectionRequest{SectionName: "A", Status: models.StatusActive})
	require.ErrorIs(t, err, appErrors.ErrPreconditionFailed)
	assert.Contains(t, err.Error(), "semester is Active")
}

func TestStructureServiceDeleteRaceReportsPrecondition(t *testing.T) {
	f := newStructureFixture()
	f.sections.items["sec2"] = &models.Section{ID: "sec2", YearLevelID: "yl1", SectionName: "B", Status: models.StatusUpcoming}
	f.sections.deleteErr = fmt.Errorf("delete sections: %w", &pq.Error{Code: "23503", Constraint: "schedules_section_id_fkey"})

	err := f.svc.DeleteSection(context.Background(), f.scope, "sec2")
	require.ErrorIs(t, err, appErrors.ErrPreconditionFailed)
	assert.Contains(t, err.Error(), "remove them first")
	assert.Empty(t, f.sections.deleted)
}
