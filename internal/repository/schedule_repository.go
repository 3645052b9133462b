package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-admin-api/internal/models"
)

const scheduleColumns = "id, academic_year_id, semester_id, department_id, course_id, year_level_id, section_id, room_id, room_name, instructor_id, subject_code, subject_name, start_time, end_time, monday, tuesday, wednesday, thursday, friday, saturday, sunday, created_at, updated_at"

// ScheduleRepository persists section timetables.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// ListBySection returns the timetable of a section ordered by start time.
func (r *ScheduleRepository) ListBySection(ctx context.Context, scope models.Scope) ([]models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE section_id = $1 ORDER BY start_time, subject_code", scheduleColumns)
	return r.selectSchedules(ctx, "list section schedules", query, scope.SectionID)
}

// ListByInstructor returns an instructor's schedules within a semester.
func (r *ScheduleRepository) ListByInstructor(ctx context.Context, semesterID, instructorID string) ([]models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE semester_id = $1 AND instructor_id = $2 ORDER BY start_time", scheduleColumns)
	return r.selectSchedules(ctx, "list instructor schedules", query, semesterID, instructorID)
}

// ListConflictCandidates returns schedules of the semester sharing the room or the
// instructor, excluding excludeID.
func (r *ScheduleRepository) ListConflictCandidates(ctx context.Context, semesterID, roomID, instructorID, excludeID string) ([]models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE semester_id = $1 AND (room_id = $2 OR instructor_id = $3) AND id <> $4", scheduleColumns)
	return r.selectSchedules(ctx, "list conflict candidates", query, semesterID, roomID, instructorID, excludeID)
}

func (r *ScheduleRepository) selectSchedules(ctx context.Context, op, query string, args ...interface{}) ([]models.Schedule, error) {
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for i := range schedules {
		schedules[i].Locate()
	}
	return schedules, nil
}

// FindByID loads a schedule within its section.
func (r *ScheduleRepository) FindByID(ctx context.Context, scope models.Scope, id string) (*models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE section_id = $1 AND id = $2", scheduleColumns)
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, scope.SectionID, id); err != nil {
		return nil, err
	}
	schedule.Locate()
	return &schedule, nil
}

// Create inserts a schedule.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.Schedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now

	const query = `INSERT INTO schedules (id, academic_year_id, semester_id, department_id, course_id, year_level_id, section_id, room_id, room_name, instructor_id, subject_code, subject_name, start_time, end_time, monday, tuesday, wednesday, thursday, friday, saturday, sunday, created_at, updated_at)
VALUES (:id, :academic_year_id, :semester_id, :department_id, :course_id, :year_level_id, :section_id, :room_id, :room_name, :instructor_id, :subject_code, :subject_name, :start_time, :end_time, :monday, :tuesday, :wednesday, :thursday, :friday, :saturday, :sunday, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	schedule.Locate()
	return nil
}

// Update rewrites the mutable fields of a schedule.
func (r *ScheduleRepository) Update(ctx context.Context, schedule *models.Schedule) error {
	schedule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schedules SET room_id = :room_id, room_name = :room_name, instructor_id = :instructor_id, subject_code = :subject_code, subject_name = :subject_name, start_time = :start_time, end_time = :end_time,
monday = :monday, tuesday = :tuesday, wednesday = :wednesday, thursday = :thursday, friday = :friday, saturday = :saturday, sunday = :sunday, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	schedule.Locate()
	return nil
}

// Delete removes a schedule.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.db, "schedules", id)
}
