package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-admin-api/internal/lifecycle"
	"github.com/noah-isme/school-admin-api/internal/models"
)

const courseColumns = "id, academic_year_id, semester_id, department_id, course_name, course_code, created_at, updated_at"

// CourseRepository persists courses of a department.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository instantiates a course repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns the courses of a department.
func (r *CourseRepository) List(ctx context.Context, scope models.Scope) ([]models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses WHERE department_id = $1 ORDER BY course_code", courseColumns)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, scope.DepartmentID); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	for i := range courses {
		courses[i].Locate()
	}
	return courses, nil
}

// FindByID loads a course within its department.
func (r *CourseRepository) FindByID(ctx context.Context, scope models.Scope, id string) (*models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses WHERE department_id = $1 AND id = $2", courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, scope.DepartmentID, id); err != nil {
		return nil, err
	}
	course.Locate()
	return &course, nil
}

// Names lists sibling course names.
func (r *CourseRepository) Names(ctx context.Context, scope models.Scope) ([]lifecycle.Named, error) {
	return listNames(ctx, r.db, "courses", "course_name", "department_id", scope.DepartmentID)
}

// Codes lists sibling course codes.
func (r *CourseRepository) Codes(ctx context.Context, scope models.Scope) ([]lifecycle.Named, error) {
	return listNames(ctx, r.db, "courses", "course_code", "department_id", scope.DepartmentID)
}

// Create inserts a course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now

	const query = `INSERT INTO courses (id, academic_year_id, semester_id, department_id, course_name, course_code, created_at, updated_at) VALUES (:id, :academic_year_id, :semester_id, :department_id, :course_name, :course_code, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	course.Locate()
	return nil
}

// Update changes course name and code.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET course_name = :course_name, course_code = :course_code, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	course.Locate()
	return nil
}

// Delete removes a course without year levels.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	return guardedDelete(ctx, r.db, deleteGuard{
		table:    "courses",
		children: "SELECT COUNT(*) FROM year_levels WHERE course_id = $1",
	}, id)
}

// CountChildren returns the number of year levels under a course.
func (r *CourseRepository) CountChildren(ctx context.Context, id string) (int, error) {
	return countWhere(ctx, r.db, "year_levels", "course_id", id)
}
