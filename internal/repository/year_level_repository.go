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

const yearLevelColumns = "id, academic_year_id, semester_id, department_id, course_id, year_level_name, created_at, updated_at"

// YearLevelRepository persists year levels of a course.
type YearLevelRepository struct {
	db *sqlx.DB
}

// NewYearLevelRepository instantiates a year level repository.
func NewYearLevelRepository(db *sqlx.DB) *YearLevelRepository {
	return &YearLevelRepository{db: db}
}

// List returns the year levels of a course.
func (r *YearLevelRepository) List(ctx context.Context, scope models.Scope) ([]models.YearLevel, error) {
	query := fmt.Sprintf("SELECT %s FROM year_levels WHERE course_id = $1 ORDER BY year_level_name", yearLevelColumns)
	var levels []models.YearLevel
	if err := r.db.SelectContext(ctx, &levels, query, scope.CourseID); err != nil {
		return nil, fmt.Errorf("list year levels: %w", err)
	}
	for i := range levels {
		levels[i].Locate()
	}
	return levels, nil
}

// FindByID loads a year level within its course.
func (r *YearLevelRepository) FindByID(ctx context.Context, scope models.Scope, id string) (*models.YearLevel, error) {
	query := fmt.Sprintf("SELECT %s FROM year_levels WHERE course_id = $1 AND id = $2", yearLevelColumns)
	var level models.YearLevel
	if err := r.db.GetContext(ctx, &level, query, scope.CourseID, id); err != nil {
		return nil, err
	}
	level.Locate()
	return &level, nil
}

// Names lists sibling year level names.
func (r *YearLevelRepository) Names(ctx context.Context, scope models.Scope) ([]lifecycle.Named, error) {
	return listNames(ctx, r.db, "year_levels", "year_level_name", "course_id", scope.CourseID)
}

// Create inserts a year level.
func (r *YearLevelRepository) Create(ctx context.Context, level *models.YearLevel) error {
	if level.ID == "" {
		level.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	level.CreatedAt = now
	level.UpdatedAt = now

	const query = `INSERT INTO year_levels (id, academic_year_id, semester_id, department_id, course_id, year_level_name, created_at, updated_at) VALUES (:id, :academic_year_id, :semester_id, :department_id, :course_id, :year_level_name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, level); err != nil {
		return fmt.Errorf("create year level: %w", err)
	}
	level.Locate()
	return nil
}

// Update renames a year level.
func (r *YearLevelRepository) Update(ctx context.Context, level *models.YearLevel) error {
	level.UpdatedAt = time.Now().UTC()
	const query = `UPDATE year_levels SET year_level_name = :year_level_name, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, level); err != nil {
		return fmt.Errorf("update year level: %w", err)
	}
	level.Locate()
	return nil
}

const yearLevelChildrenQuery = `SELECT (SELECT COUNT(*) FROM sections WHERE year_level_id = $1) + (SELECT COUNT(*) FROM subjects WHERE year_level_id = $1)`

// Delete removes a year level without sections or subjects.
func (r *YearLevelRepository) Delete(ctx context.Context, id string) error {
	return guardedDelete(ctx, r.db, deleteGuard{table: "year_levels", children: yearLevelChildrenQuery}, id)
}

// CountChildren returns the number of sections and subjects under a year level.
func (r *YearLevelRepository) CountChildren(ctx context.Context, id string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, yearLevelChildrenQuery, id); err != nil {
		return 0, fmt.Errorf("count year level children: %w", err)
	}
	return count, nil
}
