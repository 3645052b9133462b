package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/lifecycle"
	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/realtime"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

type subjectRepository interface {
	List(ctx context.Context, scope models.Scope, filter models.SubjectFilter) ([]models.Subject, error)
	FindByID(ctx context.Context, scope models.Scope, id string) (*models.Subject, error)
	Codes(ctx context.Context, scope models.Scope) ([]lifecycle.Named, error)
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	Review(ctx context.Context, id string, status models.ReviewStatus, reviewer string) (bool, error)
	Delete(ctx context.Context, id string) error
	CountSchedules(ctx context.Context, subject *models.Subject) (int, error)
}

type yearLevelGuard interface {
	GetYearLevel(ctx context.Context, scope models.Scope, id string) (*models.YearLevel, error)
}

// SubjectRequest is the payload for proposing or editing a subject.
type SubjectRequest struct {
	SubjectCode    string `json:"subjectCode" validate:"required,max=32"`
	SubjectName    string `json:"subjectName" validate:"required"`
	Units          int    `json:"units" validate:"min=0,max=12"`
	WithLaboratory bool   `json:"withLaboratory"`
}

// ReviewSubjectRequest carries an academic head's decision on a subject.
type ReviewSubjectRequest struct {
	Status models.ReviewStatus `json:"status" validate:"required,oneof=Approved Rejected"`
}

// SubjectService manages the subject catalog of each year level.
type SubjectService struct {
	repo      subjectRepository
	levels    yearLevelGuard
	validator *validator.Validate
	logger    *zap.Logger
	publisher realtime.Publisher
}

// NewSubjectService constructs the service.
func NewSubjectService(repo subjectRepository, levels yearLevelGuard, validate *validator.Validate, logger *zap.Logger, publisher realtime.Publisher) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	return &SubjectService{repo: repo, levels: levels, validator: validate, logger: logger, publisher: publisher}
}

// List returns the subjects of a year level.
func (s *SubjectService) List(ctx context.Context, scope models.Scope, filter models.SubjectFilter) ([]models.Subject, error) {
	if _, err := s.levels.GetYearLevel(ctx, scope, scope.YearLevelID); err != nil {
		return nil, err
	}
	subjects, err := s.repo.List(ctx, scope, filter)
	if err != nil {
		return nil, internalError(err, "failed to list subjects")
	}
	return subjects, nil
}

// Get returns one subject.
func (s *SubjectService) Get(ctx context.Context, scope models.Scope, id string) (*models.Subject, error) {
	subject, err := s.repo.FindByID(ctx, scope, id)
	if err != nil {
		return nil, lookupError(err, "subject not found", "failed to load subject")
	}
	return subject, nil
}

// Create proposes a subject. It stays Pending until reviewed.
func (s *SubjectService) Create(ctx context.Context, scope models.Scope, req SubjectRequest, createdBy string) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid subject payload")
	}
	if _, err := s.levels.GetYearLevel(ctx, scope, scope.YearLevelID); err != nil {
		return nil, err
	}
	code := strings.TrimSpace(req.SubjectCode)
	if err := s.checkCode(ctx, scope, code, ""); err != nil {
		return nil, err
	}
	subject := &models.Subject{
		AcademicYearID: scope.AcademicYearID,
		SemesterID:     scope.SemesterID,
		DepartmentID:   scope.DepartmentID,
		CourseID:       scope.CourseID,
		YearLevelID:    scope.YearLevelID,
		SubjectCode:    code,
		SubjectName:    strings.TrimSpace(req.SubjectName),
		Units:          req.Units,
		WithLaboratory: req.WithLaboratory,
		Status:         models.ReviewPending,
		CreatedBy:      createdBy,
	}
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, writeError(err, "subject code already exists", "failed to create subject")
	}
	publish(s.publisher, realtime.OpCreated, kindSubject, subject.Path)
	return subject, nil
}

// Update edits a subject. Editing a rejected subject resubmits it for review.
func (s *SubjectService) Update(ctx context.Context, scope models.Scope, id string, req SubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid subject payload")
	}
	subject, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	code := strings.TrimSpace(req.SubjectCode)
	if err := s.checkCode(ctx, scope, code, id); err != nil {
		return nil, err
	}
	subject.SubjectCode = code
	subject.SubjectName = strings.TrimSpace(req.SubjectName)
	subject.Units = req.Units
	subject.WithLaboratory = req.WithLaboratory
	if subject.Status == models.ReviewRejected {
		subject.Status = models.ReviewPending
		subject.ReviewedBy = nil
		subject.ReviewedAt = nil
	}
	if err := s.repo.Update(ctx, subject); err != nil {
		return nil, writeError(err, "subject code already exists", "failed to update subject")
	}
	publish(s.publisher, realtime.OpUpdated, kindSubject, subject.Path)
	return subject, nil
}

func (s *SubjectService) checkCode(ctx context.Context, scope models.Scope, code, selfID string) error {
	codes, err := s.repo.Codes(ctx, scope)
	if err != nil {
		return internalError(err, "failed to check subject code uniqueness")
	}
	if lifecycle.DuplicateName(code, selfID, codes) {
		return appErrors.Clone(appErrors.ErrConflict, "subject code already exists")
	}
	return nil
}

// Review approves or rejects a pending subject. A subject is reviewed once.
func (s *SubjectService) Review(ctx context.Context, scope models.Scope, id string, req ReviewSubjectRequest, reviewer string) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid review payload")
	}
	if _, err := s.Get(ctx, scope, id); err != nil {
		return nil, err
	}
	ok, err := s.repo.Review(ctx, id, req.Status, reviewer)
	if err != nil {
		return nil, internalError(err, "failed to review subject")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrConflict, "subject has already been reviewed")
	}
	subject, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("subject reviewed", zap.String("subject_id", id), zap.String("status", string(req.Status)), zap.String("reviewer", reviewer))
	publish(s.publisher, realtime.OpUpdated, kindSubject, subject.Path)
	return subject, nil
}

// Delete removes a subject no schedule uses.
func (s *SubjectService) Delete(ctx context.Context, scope models.Scope, id string) error {
	subject, err := s.Get(ctx, scope, id)
	if err != nil {
		return err
	}
	used, err := s.repo.CountSchedules(ctx, subject)
	if err != nil {
		return internalError(err, "failed to count subject schedules")
	}
	if used > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "subject is used by schedules; remove them first")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "subject not found", "failed to delete subject")
	}
	publish(s.publisher, realtime.OpDeleted, kindSubject, subject.Path)
	return nil
}
