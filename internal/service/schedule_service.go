package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/realtime"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

const clockLayout = "15:04"

type scheduleRepository interface {
	ListBySection(ctx context.Context, scope models.Scope) ([]models.Schedule, error)
	ListByInstructor(ctx context.Context, semesterID, instructorID string) ([]models.Schedule, error)
	ListConflictCandidates(ctx context.Context, semesterID, roomID, instructorID, excludeID string) ([]models.Schedule, error)
	FindByID(ctx context.Context, scope models.Scope, id string) (*models.Schedule, error)
	Create(ctx context.Context, schedule *models.Schedule) error
	Update(ctx context.Context, schedule *models.Schedule) error
	Delete(ctx context.Context, id string) error
}

type sectionGuard interface {
	GetSection(ctx context.Context, scope models.Scope, id string) (*models.Section, error)
}

type roomLookup interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

type subjectLookup interface {
	FindByCode(ctx context.Context, yearLevelID, code string) (*models.Subject, error)
}

type profileLookup interface {
	FindByID(ctx context.Context, role models.UserRole, id string) (*models.UserProfile, error)
}

// ScheduleRequest is the payload for creating or updating a schedule entry.
type ScheduleRequest struct {
	RoomID       string `json:"roomId" validate:"required"`
	InstructorID string `json:"instructorId" validate:"required"`
	SubjectCode  string `json:"subjectCode" validate:"required"`
	StartTime    string `json:"startTime" validate:"required"`
	EndTime      string `json:"endTime" validate:"required"`
	models.Days
}

// ScheduleDependencies groups the lookups a schedule write needs.
type ScheduleDependencies struct {
	Sections    sectionGuard
	Rooms       roomLookup
	Subjects    subjectLookup
	Instructors profileLookup
}

// ScheduleService manages section timetables and guards against double booking.
type ScheduleService struct {
	repo      scheduleRepository
	deps      ScheduleDependencies
	validator *validator.Validate
	logger    *zap.Logger
	publisher realtime.Publisher
}

// NewScheduleService constructs the service.
func NewScheduleService(repo scheduleRepository, deps ScheduleDependencies, validate *validator.Validate, logger *zap.Logger, publisher realtime.Publisher) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	return &ScheduleService{repo: repo, deps: deps, validator: validate, logger: logger, publisher: publisher}
}

// ListBySection returns a section's timetable.
func (s *ScheduleService) ListBySection(ctx context.Context, scope models.Scope) ([]models.Schedule, error) {
	if _, err := s.deps.Sections.GetSection(ctx, scope, scope.SectionID); err != nil {
		return nil, err
	}
	schedules, err := s.repo.ListBySection(ctx, scope)
	if err != nil {
		return nil, internalError(err, "failed to list schedules")
	}
	return schedules, nil
}

// ListByInstructor returns an instructor's teaching load in a semester.
func (s *ScheduleService) ListByInstructor(ctx context.Context, semesterID, instructorID string) ([]models.Schedule, error) {
	schedules, err := s.repo.ListByInstructor(ctx, semesterID, instructorID)
	if err != nil {
		return nil, internalError(err, "failed to list instructor schedules")
	}
	return schedules, nil
}

// Get returns one schedule entry.
func (s *ScheduleService) Get(ctx context.Context, scope models.Scope, id string) (*models.Schedule, error) {
	schedule, err := s.repo.FindByID(ctx, scope, id)
	if err != nil {
		return nil, lookupError(err, "schedule not found", "failed to load schedule")
	}
	return schedule, nil
}

// Create adds an entry to a section's timetable.
func (s *ScheduleService) Create(ctx context.Context, scope models.Scope, req ScheduleRequest) (*models.Schedule, error) {
	if _, err := s.deps.Sections.GetSection(ctx, scope, scope.SectionID); err != nil {
		return nil, err
	}
	schedule := &models.Schedule{
		AcademicYearID: scope.AcademicYearID,
		SemesterID:     scope.SemesterID,
		DepartmentID:   scope.DepartmentID,
		CourseID:       scope.CourseID,
		YearLevelID:    scope.YearLevelID,
		SectionID:      scope.SectionID,
	}
	if err := s.apply(ctx, schedule, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, schedule); err != nil {
		return nil, internalError(err, "failed to create schedule")
	}
	publish(s.publisher, realtime.OpCreated, kindSchedule, schedule.Path)
	return schedule, nil
}

// Update replaces a timetable entry.
func (s *ScheduleService) Update(ctx context.Context, scope models.Scope, id string, req ScheduleRequest) (*models.Schedule, error) {
	schedule, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, schedule, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, schedule); err != nil {
		return nil, internalError(err, "failed to update schedule")
	}
	publish(s.publisher, realtime.OpUpdated, kindSchedule, schedule.Path)
	return schedule, nil
}

// Delete removes a timetable entry.
func (s *ScheduleService) Delete(ctx context.Context, scope models.Scope, id string) error {
	schedule, err := s.Get(ctx, scope, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "schedule not found", "failed to delete schedule")
	}
	publish(s.publisher, realtime.OpDeleted, kindSchedule, schedule.Path)
	return nil
}

// apply validates req against the catalog and existing bookings and copies it onto schedule.
func (s *ScheduleService) apply(ctx context.Context, schedule *models.Schedule, req ScheduleRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid schedule payload")
	}
	start, end, err := parseTimeRange(req.StartTime, req.EndTime)
	if err != nil {
		return err
	}
	if !req.Days.Any() {
		return appErrors.Clone(appErrors.ErrValidation, "at least one day must be selected")
	}

	subject, err := s.deps.Subjects.FindByCode(ctx, schedule.YearLevelID, strings.TrimSpace(req.SubjectCode))
	if err != nil {
		return lookupError(err, "subject not found in this year level", "failed to load subject")
	}
	if subject.Status != models.ReviewApproved {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "subject has not been approved")
	}
	room, err := s.deps.Rooms.FindByID(ctx, req.RoomID)
	if err != nil {
		return lookupError(err, "room not found", "failed to load room")
	}
	if _, err := s.deps.Instructors.FindByID(ctx, models.RoleTeacher, req.InstructorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return internalError(err, "failed to load instructor")
	}

	proposed := models.Schedule{
		ID:           schedule.ID,
		RoomID:       room.ID,
		InstructorID: req.InstructorID,
		StartTime:    start,
		EndTime:      end,
		Days:         req.Days,
	}
	candidates, err := s.repo.ListConflictCandidates(ctx, schedule.SemesterID, room.ID, req.InstructorID, schedule.ID)
	if err != nil {
		return internalError(err, "failed to check schedule conflicts")
	}
	if conflicts := DetectConflicts(proposed, candidates); len(conflicts) > 0 {
		return appErrors.WithDetails(appErrors.Clone(appErrors.ErrConflict, "schedule overlaps an existing booking"), conflicts)
	}

	schedule.RoomID = room.ID
	schedule.RoomName = room.DisplayName()
	schedule.InstructorID = req.InstructorID
	schedule.SubjectCode = subject.SubjectCode
	schedule.SubjectName = subject.SubjectName
	schedule.StartTime = start
	schedule.EndTime = end
	schedule.Days = req.Days
	return nil
}

// parseTimeRange normalises two HH:MM clock values and requires start < end.
func parseTimeRange(startRaw, endRaw string) (string, string, error) {
	start, err := time.Parse(clockLayout, strings.TrimSpace(startRaw))
	if err != nil {
		return "", "", appErrors.Clone(appErrors.ErrValidation, "startTime must be HH:MM")
	}
	end, err := time.Parse(clockLayout, strings.TrimSpace(endRaw))
	if err != nil {
		return "", "", appErrors.Clone(appErrors.ErrValidation, "endTime must be HH:MM")
	}
	if !start.Before(end) {
		return "", "", appErrors.Clone(appErrors.ErrValidation, "startTime must be before endTime")
	}
	return start.Format(clockLayout), end.Format(clockLayout), nil
}

// DetectConflicts lists existing schedules that share a day and an overlapping
// time range with proposed, in the same room or with the same instructor.
// Touching ranges (one ends when the other starts) do not conflict.
func DetectConflicts(proposed models.Schedule, existing []models.Schedule) []models.ScheduleConflict {
	var conflicts []models.ScheduleConflict
	for _, e := range existing {
		if e.ID == proposed.ID && proposed.ID != "" {
			continue
		}
		if !proposed.Days.Overlaps(e.Days) {
			continue
		}
		if !(proposed.StartTime < e.EndTime && e.StartTime < proposed.EndTime) {
			continue
		}
		if e.RoomID == proposed.RoomID {
			conflicts = append(conflicts, conflictOf(e, "room"))
		}
		if e.InstructorID == proposed.InstructorID {
			conflicts = append(conflicts, conflictOf(e, "instructor"))
		}
	}
	return conflicts
}

func conflictOf(s models.Schedule, dimension string) models.ScheduleConflict {
	return models.ScheduleConflict{
		ScheduleID: s.ID,
		SectionID:  s.SectionID,
		Dimension:  dimension,
		StartTime:  s.StartTime,
		EndTime:    s.EndTime,
		Path:       s.Path,
	}
}
