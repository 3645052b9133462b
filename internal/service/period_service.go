package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/lifecycle"
	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/realtime"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

var acadYearPattern = regexp.MustCompile(`^S\.Y - (\d{4})-(\d{4})$`)

type periodRepository interface {
	ListAcademicYears(ctx context.Context, filter models.PeriodFilter) ([]models.AcademicYear, int, error)
	FindAcademicYear(ctx context.Context, id string) (*models.AcademicYear, error)
	AcademicYearNames(ctx context.Context) ([]lifecycle.Named, error)
	CreateAcademicYear(ctx context.Context, year *models.AcademicYear) error
	UpdateAcademicYear(ctx context.Context, year *models.AcademicYear) error
	DeleteAcademicYear(ctx context.Context, id string) error
	CountSemesters(ctx context.Context, yearID string) (int, error)
	ListSemesters(ctx context.Context, filter models.PeriodFilter) ([]models.Semester, int, error)
	FindSemester(ctx context.Context, yearID, id string) (*models.Semester, error)
	SemesterNames(ctx context.Context, yearID string) ([]lifecycle.Named, error)
	CreateSemester(ctx context.Context, semester *models.Semester) error
	UpdateSemester(ctx context.Context, semester *models.Semester) error
	DeleteSemester(ctx context.Context, id string) error
	CountDepartments(ctx context.Context, semesterID string) (int, error)
	ActivateAcademicYear(ctx context.Context, id string) (lifecycle.Plan, error)
	ArchiveAcademicYear(ctx context.Context, id string) (lifecycle.Plan, error)
	ActivateSemester(ctx context.Context, yearID, id string) (lifecycle.Plan, error)
	ArchiveSemester(ctx context.Context, yearID, id string) (lifecycle.Plan, error)
}

// AcademicYearRequest is the payload for creating or renaming an academic year.
type AcademicYearRequest struct {
	AcadYear string `json:"acadYear" validate:"required"`
}

// SemesterRequest is the payload for creating or updating a semester.
type SemesterRequest struct {
	SemesterName string    `json:"semesterName" validate:"required"`
	StartDate    time.Time `json:"startDate" validate:"required"`
	EndDate      time.Time `json:"endDate" validate:"required"`
}

// PeriodService manages academic years and semesters and their single-active lifecycle.
type PeriodService struct {
	repo      periodRepository
	validator *validator.Validate
	logger    *zap.Logger
	publisher realtime.Publisher
	session   sessionInvalidator
	metrics   *MetricsService
}

// NewPeriodService constructs the service. publisher, session and metrics are optional.
func NewPeriodService(repo periodRepository, validate *validator.Validate, logger *zap.Logger, publisher realtime.Publisher, session sessionInvalidator, metrics *MetricsService) *PeriodService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	return &PeriodService{repo: repo, validator: validate, logger: logger, publisher: publisher, session: session, metrics: metrics}
}

// ListAcademicYears returns paginated academic years.
func (s *PeriodService) ListAcademicYears(ctx context.Context, filter models.PeriodFilter) ([]models.AcademicYear, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "status must be Active, Upcoming or Archived")
	}
	years, total, err := s.repo.ListAcademicYears(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list academic years")
	}
	return years, paginationOf(filter.Page, filter.PageSize, total), nil
}

// GetAcademicYear returns one academic year.
func (s *PeriodService) GetAcademicYear(ctx context.Context, id string) (*models.AcademicYear, error) {
	year, err := s.repo.FindAcademicYear(ctx, id)
	if err != nil {
		return nil, lookupError(err, "academic year not found", "failed to load academic year")
	}
	return year, nil
}

// CreateAcademicYear adds an Upcoming academic year.
func (s *PeriodService) CreateAcademicYear(ctx context.Context, req AcademicYearRequest) (*models.AcademicYear, error) {
	name, err := s.validateAcademicYear(ctx, req, "")
	if err != nil {
		return nil, err
	}
	year := &models.AcademicYear{AcadYear: name, Status: models.StatusUpcoming}
	if err := s.repo.CreateAcademicYear(ctx, year); err != nil {
		return nil, writeError(err, "academic year already exists", "failed to create academic year")
	}
	publish(s.publisher, realtime.OpCreated, lifecycle.KindAcademicYear, year.Path)
	return year, nil
}

// UpdateAcademicYear renames an academic year. Status only changes through activation and archive.
func (s *PeriodService) UpdateAcademicYear(ctx context.Context, id string, req AcademicYearRequest) (*models.AcademicYear, error) {
	year, err := s.GetAcademicYear(ctx, id)
	if err != nil {
		return nil, err
	}
	name, err := s.validateAcademicYear(ctx, req, id)
	if err != nil {
		return nil, err
	}
	year.AcadYear = name
	if err := s.repo.UpdateAcademicYear(ctx, year); err != nil {
		return nil, writeError(err, "academic year already exists", "failed to update academic year")
	}
	if year.Status == models.StatusActive {
		s.invalidateSession(ctx)
	}
	publish(s.publisher, realtime.OpUpdated, lifecycle.KindAcademicYear, year.Path)
	return year, nil
}

func (s *PeriodService) validateAcademicYear(ctx context.Context, req AcademicYearRequest, selfID string) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", validationError(err, "invalid academic year payload")
	}
	name := lifecycle.NormalizeName(req.AcadYear)
	if err := validateAcadYearName(name); err != nil {
		return "", err
	}
	existing, err := s.repo.AcademicYearNames(ctx)
	if err != nil {
		return "", internalError(err, "failed to check academic year uniqueness")
	}
	if lifecycle.DuplicateName(name, selfID, existing) {
		return "", appErrors.Clone(appErrors.ErrConflict, "academic year already exists")
	}
	return name, nil
}

// validateAcadYearName accepts "S.Y - 2024-2025" style names spanning two consecutive years.
func validateAcadYearName(name string) error {
	m := acadYearPattern.FindStringSubmatch(name)
	if m == nil {
		return appErrors.Clone(appErrors.ErrValidation, "acadYear must look like S.Y - 2024-2025")
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	if end != start+1 {
		return appErrors.Clone(appErrors.ErrValidation, "acadYear must span two consecutive years")
	}
	return nil
}

// DeleteAcademicYear removes a non-active academic year without semesters.
func (s *PeriodService) DeleteAcademicYear(ctx context.Context, id string) error {
	year, err := s.GetAcademicYear(ctx, id)
	if err != nil {
		return err
	}
	children, err := s.repo.CountSemesters(ctx, id)
	if err != nil {
		return internalError(err, "failed to count semesters")
	}
	if err := deletionError(lifecycle.CheckDeletable(year.Status, children), "academic year"); err != nil {
		return err
	}
	if err := s.repo.DeleteAcademicYear(ctx, id); err != nil {
		return deleteError(err, "academic year", "academic year not found", "failed to delete academic year")
	}
	publish(s.publisher, realtime.OpDeleted, lifecycle.KindAcademicYear, year.Path)
	return nil
}

// ActivateAcademicYear makes the year the only Active one, archiving the previous
// Active year together with its Active semesters and sections.
func (s *PeriodService) ActivateAcademicYear(ctx context.Context, id string) (*models.Transition, error) {
	plan, err := s.repo.ActivateAcademicYear(ctx, id)
	return s.finishTransition(ctx, lifecycle.KindAcademicYear, "activate", id, plan, err, "academic year not found")
}

// ArchiveAcademicYear archives the year and its Active descendants.
func (s *PeriodService) ArchiveAcademicYear(ctx context.Context, id string) (*models.Transition, error) {
	plan, err := s.repo.ArchiveAcademicYear(ctx, id)
	return s.finishTransition(ctx, lifecycle.KindAcademicYear, "archive", id, plan, err, "academic year not found")
}

// ListSemesters returns the semesters of a year.
func (s *PeriodService) ListSemesters(ctx context.Context, yearID string, filter models.PeriodFilter) ([]models.Semester, *models.Pagination, error) {
	if _, err := s.GetAcademicYear(ctx, yearID); err != nil {
		return nil, nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "status must be Active, Upcoming or Archived")
	}
	filter.AcademicYearID = yearID
	semesters, total, err := s.repo.ListSemesters(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list semesters")
	}
	return semesters, paginationOf(filter.Page, filter.PageSize, total), nil
}

// GetSemester returns one semester of a year.
func (s *PeriodService) GetSemester(ctx context.Context, yearID, id string) (*models.Semester, error) {
	semester, err := s.repo.FindSemester(ctx, yearID, id)
	if err != nil {
		return nil, lookupError(err, "semester not found", "failed to load semester")
	}
	return semester, nil
}

// CreateSemester adds an Upcoming semester to a year.
func (s *PeriodService) CreateSemester(ctx context.Context, yearID string, req SemesterRequest) (*models.Semester, error) {
	if _, err := s.GetAcademicYear(ctx, yearID); err != nil {
		return nil, err
	}
	name, err := s.validateSemester(ctx, yearID, req, "")
	if err != nil {
		return nil, err
	}
	semester := &models.Semester{
		AcademicYearID: yearID,
		SemesterName:   name,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Status:         models.StatusUpcoming,
	}
	if err := s.repo.CreateSemester(ctx, semester); err != nil {
		return nil, writeError(err, "semester already exists in this academic year", "failed to create semester")
	}
	publish(s.publisher, realtime.OpCreated, lifecycle.KindSemester, semester.Path)
	return semester, nil
}

// UpdateSemester renames or reschedules a semester.
func (s *PeriodService) UpdateSemester(ctx context.Context, yearID, id string, req SemesterRequest) (*models.Semester, error) {
	semester, err := s.GetSemester(ctx, yearID, id)
	if err != nil {
		return nil, err
	}
	name, err := s.validateSemester(ctx, yearID, req, id)
	if err != nil {
		return nil, err
	}
	semester.SemesterName = name
	semester.StartDate = req.StartDate
	semester.EndDate = req.EndDate
	if err := s.repo.UpdateSemester(ctx, semester); err != nil {
		return nil, writeError(err, "semester already exists in this academic year", "failed to update semester")
	}
	if semester.Status == models.StatusActive {
		s.invalidateSession(ctx)
	}
	publish(s.publisher, realtime.OpUpdated, lifecycle.KindSemester, semester.Path)
	return semester, nil
}

func (s *PeriodService) validateSemester(ctx context.Context, yearID string, req SemesterRequest, selfID string) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", validationError(err, "invalid semester payload")
	}
	name := lifecycle.NormalizeName(req.SemesterName)
	if name != models.FirstSemester && name != models.SecondSemester {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("semesterName must be %q or %q", models.FirstSemester, models.SecondSemester))
	}
	if !req.StartDate.Before(req.EndDate) {
		return "", appErrors.Clone(appErrors.ErrValidation, "startDate must be before endDate")
	}
	existing, err := s.repo.SemesterNames(ctx, yearID)
	if err != nil {
		return "", internalError(err, "failed to check semester uniqueness")
	}
	if lifecycle.DuplicateName(name, selfID, existing) {
		return "", appErrors.Clone(appErrors.ErrConflict, "semester already exists in this academic year")
	}
	return name, nil
}

// DeleteSemester removes a non-active semester without departments.
func (s *PeriodService) DeleteSemester(ctx context.Context, yearID, id string) error {
	semester, err := s.GetSemester(ctx, yearID, id)
	if err != nil {
		return err
	}
	children, err := s.repo.CountDepartments(ctx, id)
	if err != nil {
		return internalError(err, "failed to count departments")
	}
	if err := deletionError(lifecycle.CheckDeletable(semester.Status, children), "semester"); err != nil {
		return err
	}
	if err := s.repo.DeleteSemester(ctx, id); err != nil {
		return deleteError(err, "semester", "semester not found", "failed to delete semester")
	}
	publish(s.publisher, realtime.OpDeleted, lifecycle.KindSemester, semester.Path)
	return nil
}

// ActivateSemester makes the semester the only Active one in its year, archiving
// the previous Active semester and its Active sections.
func (s *PeriodService) ActivateSemester(ctx context.Context, yearID, id string) (*models.Transition, error) {
	plan, err := s.repo.ActivateSemester(ctx, yearID, id)
	return s.finishTransition(ctx, lifecycle.KindSemester, "activate", id, plan, err, "semester not found")
}

// ArchiveSemester archives the semester and its Active sections.
func (s *PeriodService) ArchiveSemester(ctx context.Context, yearID, id string) (*models.Transition, error) {
	plan, err := s.repo.ArchiveSemester(ctx, yearID, id)
	return s.finishTransition(ctx, lifecycle.KindSemester, "archive", id, plan, err, "semester not found")
}

func (s *PeriodService) finishTransition(ctx context.Context, kind, op, id string, plan lifecycle.Plan, err error, notFound string) (*models.Transition, error) {
	if err != nil {
		s.metrics.RecordTransition(kind, op, 0, err)
		s.logger.Warn("period transition failed", zap.String("kind", kind), zap.String("op", op), zap.String("id", id), zap.Error(err))
		return nil, transitionError(err, notFound, fmt.Sprintf("failed to %s %s", op, kind))
	}

	archived := plan.Archived()
	target := plan.Target()
	result := &models.Transition{ID: id, Kind: kind, Path: target.Path, Status: target.To, Archived: make([]string, 0, len(archived))}
	cascaded := 0
	for _, c := range archived {
		if c.ID == id {
			continue
		}
		result.Archived = append(result.Archived, c.Path)
		cascaded++
	}

	s.metrics.RecordTransition(kind, op, cascaded, nil)
	s.logger.Info("period transition applied",
		zap.String("kind", kind),
		zap.String("op", op),
		zap.String("id", id),
		zap.Int("cascaded", cascaded),
	)
	s.invalidateSession(ctx)
	publishPlan(s.publisher, plan)
	return result, nil
}

func (s *PeriodService) invalidateSession(ctx context.Context) {
	if s.session != nil {
		s.session.Invalidate(ctx)
	}
}

func paginationOf(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
