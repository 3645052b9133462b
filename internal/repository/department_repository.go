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

const departmentColumns = "id, academic_year_id, semester_id, department_name, created_at, updated_at"

// DepartmentRepository persists departments of a semester.
type DepartmentRepository struct {
	db *sqlx.DB
}

// NewDepartmentRepository instantiates a department repository.
func NewDepartmentRepository(db *sqlx.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// List returns the departments of a semester ordered by name.
func (r *DepartmentRepository) List(ctx context.Context, scope models.Scope) ([]models.Department, error) {
	query := fmt.Sprintf("SELECT %s FROM departments WHERE academic_year_id = $1 AND semester_id = $2 ORDER BY department_name", departmentColumns)
	var departments []models.Department
	if err := r.db.SelectContext(ctx, &departments, query, scope.AcademicYearID, scope.SemesterID); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	for i := range departments {
		departments[i].Locate()
	}
	return departments, nil
}

// FindByID loads a department within its scope.
func (r *DepartmentRepository) FindByID(ctx context.Context, scope models.Scope, id string) (*models.Department, error) {
	query := fmt.Sprintf("SELECT %s FROM departments WHERE academic_year_id = $1 AND semester_id = $2 AND id = $3", departmentColumns)
	var department models.Department
	if err := r.db.GetContext(ctx, &department, query, scope.AcademicYearID, scope.SemesterID, id); err != nil {
		return nil, err
	}
	department.Locate()
	return &department, nil
}

// FindByName resolves a department of a semester by its exact name.
func (r *DepartmentRepository) FindByName(ctx context.Context, semesterID, name string) (*models.Department, error) {
	query := fmt.Sprintf("SELECT %s FROM departments WHERE semester_id = $1 AND department_name = $2 LIMIT 1", departmentColumns)
	var department models.Department
	if err := r.db.GetContext(ctx, &department, query, semesterID, name); err != nil {
		return nil, err
	}
	department.Locate()
	return &department, nil
}

// Names lists sibling department names.
func (r *DepartmentRepository) Names(ctx context.Context, scope models.Scope) ([]lifecycle.Named, error) {
	return listNames(ctx, r.db, "departments", "department_name", "semester_id", scope.SemesterID)
}

// Create inserts a department.
func (r *DepartmentRepository) Create(ctx context.Context, department *models.Department) error {
	if department.ID == "" {
		department.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	department.CreatedAt = now
	department.UpdatedAt = now

	const query = `INSERT INTO departments (id, academic_year_id, semester_id, department_name, created_at, updated_at) VALUES (:id, :academic_year_id, :semester_id, :department_name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, department); err != nil {
		return fmt.Errorf("create department: %w", err)
	}
	department.Locate()
	return nil
}

// Update renames a department.
func (r *DepartmentRepository) Update(ctx context.Context, department *models.Department) error {
	department.UpdatedAt = time.Now().UTC()
	const query = `UPDATE departments SET department_name = :department_name, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, department); err != nil {
		return fmt.Errorf("update department: %w", err)
	}
	department.Locate()
	return nil
}

// Delete removes a department without courses.
func (r *DepartmentRepository) Delete(ctx context.Context, id string) error {
	return guardedDelete(ctx, r.db, deleteGuard{
		table:    "departments",
		children: "SELECT COUNT(*) FROM courses WHERE department_id = $1",
	}, id)
}

// CountChildren returns the number of courses under a department.
func (r *DepartmentRepository) CountChildren(ctx context.Context, id string) (int, error) {
	return countWhere(ctx, r.db, "courses", "department_id", id)
}
