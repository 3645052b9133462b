package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-admin-api/internal/lifecycle"
	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/pkg/database"
)

const sectionColumns = "id, academic_year_id, semester_id, department_id, course_id, year_level_id, section_name, status, created_at, updated_at"

// SectionRepository persists sections of a year level.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository instantiates a section repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// List returns the sections of a year level.
func (r *SectionRepository) List(ctx context.Context, scope models.Scope) ([]models.Section, error) {
	query := fmt.Sprintf("SELECT %s FROM sections WHERE year_level_id = $1 ORDER BY section_name", sectionColumns)
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, scope.YearLevelID); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	for i := range sections {
		sections[i].Locate()
	}
	return sections, nil
}

// FindByID loads a section within its year level.
func (r *SectionRepository) FindByID(ctx context.Context, scope models.Scope, id string) (*models.Section, error) {
	query := fmt.Sprintf("SELECT %s FROM sections WHERE year_level_id = $1 AND id = $2", sectionColumns)
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, scope.YearLevelID, id); err != nil {
		return nil, err
	}
	section.Locate()
	return &section, nil
}

// Names lists sibling section names.
func (r *SectionRepository) Names(ctx context.Context, scope models.Scope) ([]lifecycle.Named, error) {
	return listNames(ctx, r.db, "sections", "section_name", "year_level_id", scope.YearLevelID)
}

// Create inserts a section.
func (r *SectionRepository) Create(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	section.CreatedAt = now
	section.UpdatedAt = now

	const query = `INSERT INTO sections (id, academic_year_id, semester_id, department_id, course_id, year_level_id, section_name, status, created_at, updated_at) VALUES (:id, :academic_year_id, :semester_id, :department_id, :course_id, :year_level_id, :section_name, :status, :created_at, :updated_at)`
	if err := r.write(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	section.Locate()
	return nil
}

// Update changes the section name and status.
func (r *SectionRepository) Update(ctx context.Context, section *models.Section) error {
	section.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sections SET section_name = :section_name, status = :status, updated_at = :updated_at WHERE id = :id`
	if err := r.write(ctx, query, section); err != nil {
		return fmt.Errorf("update section: %w", err)
	}
	section.Locate()
	return nil
}

// write runs a named insert or update. An Active section is written under a
// share lock on its semester, which semester transitions must wait for.
func (r *SectionRepository) write(ctx context.Context, query string, section *models.Section) error {
	if section.Status != models.StatusActive {
		_, err := r.db.NamedExecContext(ctx, query, section)
		return err
	}
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var parent string
		if err := tx.GetContext(ctx, &parent, `SELECT status FROM semesters WHERE id = $1 FOR SHARE`, section.SemesterID); err != nil {
			return fmt.Errorf("lock semester: %w", err)
		}
		if err := lifecycle.CheckChildStatus(section.Status, models.PeriodStatus(parent)); err != nil {
			return err
		}
		_, err := tx.NamedExecContext(ctx, query, section)
		return err
	})
}

// Delete removes a non-Active section without schedules.
func (r *SectionRepository) Delete(ctx context.Context, id string) error {
	return guardedDelete(ctx, r.db, deleteGuard{
		table:     "sections",
		hasStatus: true,
		children:  "SELECT COUNT(*) FROM schedules WHERE section_id = $1",
	}, id)
}

// CountChildren returns the number of schedules under a section.
func (r *SectionRepository) CountChildren(ctx context.Context, id string) (int, error) {
	return countWhere(ctx, r.db, "schedules", "section_id", id)
}
