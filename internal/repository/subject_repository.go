package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-admin-api/internal/lifecycle"
	"github.com/noah-isme/school-admin-api/internal/models"
)

const subjectColumns = "id, academic_year_id, semester_id, department_id, course_id, year_level_id, subject_code, subject_name, units, with_laboratory, status, created_by, reviewed_by, reviewed_at, created_at, updated_at"

// SubjectRepository handles persistence for subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new repository instance.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// List returns subjects of a year level matching filters.
func (r *SubjectRepository) List(ctx context.Context, scope models.Scope, filter models.SubjectFilter) ([]models.Subject, error) {
	query := fmt.Sprintf("SELECT %s FROM subjects WHERE year_level_id = $1", subjectColumns)
	args := []interface{}{scope.YearLevelID}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		query += fmt.Sprintf(" AND (LOWER(subject_code) LIKE $%d OR LOWER(subject_name) LIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	query += " ORDER BY subject_code"

	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	for i := range subjects {
		subjects[i].Locate()
	}
	return subjects, nil
}

// FindByID loads a subject within its year level.
func (r *SubjectRepository) FindByID(ctx context.Context, scope models.Scope, id string) (*models.Subject, error) {
	query := fmt.Sprintf("SELECT %s FROM subjects WHERE year_level_id = $1 AND id = $2", subjectColumns)
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, scope.YearLevelID, id); err != nil {
		return nil, err
	}
	subject.Locate()
	return &subject, nil
}

// FindByCode resolves a subject of a year level by code.
func (r *SubjectRepository) FindByCode(ctx context.Context, yearLevelID, code string) (*models.Subject, error) {
	query := fmt.Sprintf("SELECT %s FROM subjects WHERE year_level_id = $1 AND subject_code = $2", subjectColumns)
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, yearLevelID, code); err != nil {
		return nil, err
	}
	subject.Locate()
	return &subject, nil
}

// Codes lists sibling subject codes.
func (r *SubjectRepository) Codes(ctx context.Context, scope models.Scope) ([]lifecycle.Named, error) {
	return listNames(ctx, r.db, "subjects", "subject_code", "year_level_id", scope.YearLevelID)
}

// Create inserts a new subject.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	subject.CreatedAt = now
	subject.UpdatedAt = now

	const query = `INSERT INTO subjects (id, academic_year_id, semester_id, department_id, course_id, year_level_id, subject_code, subject_name, units, with_laboratory, status, created_by, created_at, updated_at) VALUES (:id, :academic_year_id, :semester_id, :department_id, :course_id, :year_level_id, :subject_code, :subject_name, :units, :with_laboratory, :status, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	subject.Locate()
	return nil
}

// Update modifies descriptive fields of a subject.
func (r *SubjectRepository) Update(ctx context.Context, subject *models.Subject) error {
	subject.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subjects SET subject_code = :subject_code, subject_name = :subject_name, units = :units, with_laboratory = :with_laboratory, status = :status, reviewed_by = :reviewed_by, reviewed_at = :reviewed_at, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	subject.Locate()
	return nil
}

// Review records the decision on a pending subject. It returns false when the
// subject was no longer pending.
func (r *SubjectRepository) Review(ctx context.Context, id string, status models.ReviewStatus, reviewer string) (bool, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE subjects SET status = $1, reviewed_by = $2, reviewed_at = $3, updated_at = $3 WHERE id = $4 AND status = $5`,
		status, reviewer, now, id, models.ReviewPending)
	if err != nil {
		return false, fmt.Errorf("review subject: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("review subject rows: %w", err)
	}
	return n == 1, nil
}

// Delete removes a subject.
func (r *SubjectRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.db, "subjects", id)
}

// CountSchedules returns the schedules using a subject code in the subject's semester.
func (r *SubjectRepository) CountSchedules(ctx context.Context, subject *models.Subject) (int, error) {
	const query = `SELECT COUNT(*) FROM schedules WHERE year_level_id = $1 AND subject_code = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, subject.YearLevelID, subject.SubjectCode); err != nil {
		return 0, fmt.Errorf("count subject schedules: %w", err)
	}
	return count, nil
}
