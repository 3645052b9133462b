package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/school-admin-api/internal/lifecycle"
	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/pkg/database"
	"github.com/noah-isme/school-admin-api/pkg/docpath"
)

const (
	academicYearColumns = "id, acad_year, status, created_at, updated_at"
	semesterColumns     = "id, academic_year_id, semester_name, start_date, end_date, status, created_at, updated_at"
)

var statusTables = map[string]string{
	lifecycle.KindAcademicYear: "academic_years",
	lifecycle.KindSemester:     "semesters",
	lifecycle.KindSection:      "sections",
}

// PeriodRepository persists academic years and semesters and applies status
// transitions transactionally.
type PeriodRepository struct {
	db *sqlx.DB
}

// NewPeriodRepository instantiates a period repository.
func NewPeriodRepository(db *sqlx.DB) *PeriodRepository {
	return &PeriodRepository{db: db}
}

// ListAcademicYears returns academic years matching the filter.
func (r *PeriodRepository) ListAcademicYears(ctx context.Context, filter models.PeriodFilter) ([]models.AcademicYear, int, error) {
	base := "FROM academic_years WHERE 1=1"
	var args []interface{}
	if filter.Status != "" {
		base += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}

	order := sortClause(filter.SortBy, filter.SortOrder, "acad_year", map[string]bool{
		"acad_year":  true,
		"status":     true,
		"created_at": true,
		"updated_at": true,
	})
	limit, offset := page(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s %s ORDER BY %s LIMIT %d OFFSET %d", academicYearColumns, base, order, limit, offset)

	var years []models.AcademicYear
	if err := r.db.SelectContext(ctx, &years, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list academic years: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count academic years: %w", err)
	}
	for i := range years {
		years[i].Locate()
	}
	return years, total, nil
}

// FindAcademicYear loads an academic year by id.
func (r *PeriodRepository) FindAcademicYear(ctx context.Context, id string) (*models.AcademicYear, error) {
	query := fmt.Sprintf("SELECT %s FROM academic_years WHERE id = $1", academicYearColumns)
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query, id); err != nil {
		return nil, err
	}
	year.Locate()
	return &year, nil
}

// FindActiveAcademicYear returns the Active year or sql.ErrNoRows.
func (r *PeriodRepository) FindActiveAcademicYear(ctx context.Context) (*models.AcademicYear, error) {
	query := fmt.Sprintf("SELECT %s FROM academic_years WHERE status = $1 ORDER BY updated_at DESC LIMIT 1", academicYearColumns)
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query, models.StatusActive); err != nil {
		return nil, err
	}
	year.Locate()
	return &year, nil
}

// AcademicYearNames lists every academic year label.
func (r *PeriodRepository) AcademicYearNames(ctx context.Context) ([]lifecycle.Named, error) {
	var names []lifecycle.Named
	if err := r.db.SelectContext(ctx, &names, "SELECT id, acad_year AS name FROM academic_years"); err != nil {
		return nil, fmt.Errorf("list academic year names: %w", err)
	}
	return names, nil
}

// CreateAcademicYear inserts a new academic year.
func (r *PeriodRepository) CreateAcademicYear(ctx context.Context, year *models.AcademicYear) error {
	if year.ID == "" {
		year.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	year.CreatedAt = now
	year.UpdatedAt = now

	const query = `INSERT INTO academic_years (id, acad_year, status, created_at, updated_at) VALUES (:id, :acad_year, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("create academic year: %w", err)
	}
	year.Locate()
	return nil
}

// UpdateAcademicYear renames an academic year. Status is only changed through transitions.
func (r *PeriodRepository) UpdateAcademicYear(ctx context.Context, year *models.AcademicYear) error {
	year.UpdatedAt = time.Now().UTC()
	const query = `UPDATE academic_years SET acad_year = :acad_year, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("update academic year: %w", err)
	}
	year.Locate()
	return nil
}

// DeleteAcademicYear removes a non-Active academic year without semesters.
func (r *PeriodRepository) DeleteAcademicYear(ctx context.Context, id string) error {
	return guardedDelete(ctx, r.db, deleteGuard{
		table:     "academic_years",
		hasStatus: true,
		children:  "SELECT COUNT(*) FROM semesters WHERE academic_year_id = $1",
	}, id)
}

// CountSemesters returns the number of semesters owned by a year.
func (r *PeriodRepository) CountSemesters(ctx context.Context, yearID string) (int, error) {
	return countWhere(ctx, r.db, "semesters", "academic_year_id", yearID)
}

// ListSemesters returns the semesters of one academic year.
func (r *PeriodRepository) ListSemesters(ctx context.Context, filter models.PeriodFilter) ([]models.Semester, int, error) {
	base := "FROM semesters WHERE academic_year_id = $1"
	args := []interface{}{filter.AcademicYearID}
	if filter.Status != "" {
		base += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}

	order := sortClause(filter.SortBy, filter.SortOrder, "start_date", map[string]bool{
		"semester_name": true,
		"start_date":    true,
		"end_date":      true,
		"status":        true,
		"created_at":    true,
	})
	limit, offset := page(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s %s ORDER BY %s LIMIT %d OFFSET %d", semesterColumns, base, order, limit, offset)

	var semesters []models.Semester
	if err := r.db.SelectContext(ctx, &semesters, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list semesters: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count semesters: %w", err)
	}
	for i := range semesters {
		semesters[i].Locate()
	}
	return semesters, total, nil
}

// FindSemester loads a semester scoped to its academic year.
func (r *PeriodRepository) FindSemester(ctx context.Context, yearID, id string) (*models.Semester, error) {
	query := fmt.Sprintf("SELECT %s FROM semesters WHERE academic_year_id = $1 AND id = $2", semesterColumns)
	var semester models.Semester
	if err := r.db.GetContext(ctx, &semester, query, yearID, id); err != nil {
		return nil, err
	}
	semester.Locate()
	return &semester, nil
}

// FindActiveSemester returns the Active semester of a year or sql.ErrNoRows.
func (r *PeriodRepository) FindActiveSemester(ctx context.Context, yearID string) (*models.Semester, error) {
	query := fmt.Sprintf("SELECT %s FROM semesters WHERE academic_year_id = $1 AND status = $2 ORDER BY updated_at DESC LIMIT 1", semesterColumns)
	var semester models.Semester
	if err := r.db.GetContext(ctx, &semester, query, yearID, models.StatusActive); err != nil {
		return nil, err
	}
	semester.Locate()
	return &semester, nil
}

// SemesterNames lists the semester names of a year.
func (r *PeriodRepository) SemesterNames(ctx context.Context, yearID string) ([]lifecycle.Named, error) {
	return listNames(ctx, r.db, "semesters", "semester_name", "academic_year_id", yearID)
}

// CreateSemester inserts a semester.
func (r *PeriodRepository) CreateSemester(ctx context.Context, semester *models.Semester) error {
	if semester.ID == "" {
		semester.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	semester.CreatedAt = now
	semester.UpdatedAt = now

	const query = `INSERT INTO semesters (id, academic_year_id, semester_name, start_date, end_date, status, created_at, updated_at) VALUES (:id, :academic_year_id, :semester_name, :start_date, :end_date, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, semester); err != nil {
		return fmt.Errorf("create semester: %w", err)
	}
	semester.Locate()
	return nil
}

// UpdateSemester changes name and dates.
func (r *PeriodRepository) UpdateSemester(ctx context.Context, semester *models.Semester) error {
	semester.UpdatedAt = time.Now().UTC()
	const query = `UPDATE semesters SET semester_name = :semester_name, start_date = :start_date, end_date = :end_date, updated_at = :updated_at WHERE id = :id AND academic_year_id = :academic_year_id`
	if _, err := r.db.NamedExecContext(ctx, query, semester); err != nil {
		return fmt.Errorf("update semester: %w", err)
	}
	semester.Locate()
	return nil
}

// DeleteSemester removes a non-Active semester without departments.
func (r *PeriodRepository) DeleteSemester(ctx context.Context, id string) error {
	return guardedDelete(ctx, r.db, deleteGuard{
		table:     "semesters",
		hasStatus: true,
		children:  "SELECT COUNT(*) FROM departments WHERE semester_id = $1",
	}, id)
}

// CountDepartments returns the number of departments owned by a semester.
func (r *PeriodRepository) CountDepartments(ctx context.Context, semesterID string) (int, error) {
	return countWhere(ctx, r.db, "departments", "semester_id", semesterID)
}

// periodRow is the minimal projection loaded to plan a transition.
type periodRow struct {
	ID             string              `db:"id"`
	AcademicYearID string              `db:"academic_year_id"`
	SemesterID     string              `db:"semester_id"`
	DepartmentID   string              `db:"department_id"`
	CourseID       string              `db:"course_id"`
	YearLevelID    string              `db:"year_level_id"`
	Status         models.PeriodStatus `db:"status"`
}

const sectionRowColumns = "id, academic_year_id, semester_id, department_id, course_id, year_level_id, status"

// ActivateAcademicYear makes id the only Active year, archiving the previous one with
// its Active semesters and sections, in one transaction.
func (r *PeriodRepository) ActivateAcademicYear(ctx context.Context, id string) (lifecycle.Plan, error) {
	var plan lifecycle.Plan
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var years, semesters, sections []periodRow
		if err := tx.SelectContext(ctx, &years, `SELECT id, status FROM academic_years ORDER BY id FOR UPDATE`); err != nil {
			return fmt.Errorf("lock academic years: %w", err)
		}
		if err := tx.SelectContext(ctx, &semesters, `SELECT id, academic_year_id, status FROM semesters WHERE status = $1 ORDER BY id FOR UPDATE`, models.StatusActive); err != nil {
			return fmt.Errorf("lock active semesters: %w", err)
		}
		if err := tx.SelectContext(ctx, &sections, `SELECT `+sectionRowColumns+` FROM sections WHERE status = $1 ORDER BY id FOR UPDATE`, models.StatusActive); err != nil {
			return fmt.Errorf("lock active sections: %w", err)
		}

		var err error
		plan, err = lifecycle.PlanActivation(id, buildYearTree(years, semesters, sections))
		if err != nil {
			return err
		}
		return applyPlan(ctx, tx, plan)
	})
	if err != nil {
		return lifecycle.Plan{}, wrapTransition("activate academic year", err)
	}
	return plan, nil
}

// ArchiveAcademicYear archives a year directly together with its Active descendants.
func (r *PeriodRepository) ArchiveAcademicYear(ctx context.Context, id string) (lifecycle.Plan, error) {
	var plan lifecycle.Plan
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var years, semesters, sections []periodRow
		if err := tx.SelectContext(ctx, &years, `SELECT id, status FROM academic_years WHERE id = $1 FOR UPDATE`, id); err != nil {
			return fmt.Errorf("lock academic year: %w", err)
		}
		if len(years) == 0 {
			return lifecycle.ErrTargetNotFound
		}
		if err := tx.SelectContext(ctx, &semesters, `SELECT id, academic_year_id, status FROM semesters WHERE academic_year_id = $1 AND status = $2 ORDER BY id FOR UPDATE`, id, models.StatusActive); err != nil {
			return fmt.Errorf("lock active semesters: %w", err)
		}
		if err := tx.SelectContext(ctx, &sections, `SELECT `+sectionRowColumns+` FROM sections WHERE academic_year_id = $1 AND status = $2 ORDER BY id FOR UPDATE`, id, models.StatusActive); err != nil {
			return fmt.Errorf("lock active sections: %w", err)
		}

		plan = lifecycle.PlanArchive(buildYearTree(years, semesters, sections)[0])
		return applyPlan(ctx, tx, plan)
	})
	if err != nil {
		return lifecycle.Plan{}, wrapTransition("archive academic year", err)
	}
	return plan, nil
}

// ActivateSemester makes id the only Active semester of its year, archiving the
// previous one and its Active sections.
func (r *PeriodRepository) ActivateSemester(ctx context.Context, yearID, id string) (lifecycle.Plan, error) {
	var plan lifecycle.Plan
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := lockAcademicYear(ctx, tx, yearID); err != nil {
			return err
		}
		var semesters, sections []periodRow
		if err := tx.SelectContext(ctx, &semesters, `SELECT id, academic_year_id, status FROM semesters WHERE academic_year_id = $1 ORDER BY id FOR UPDATE`, yearID); err != nil {
			return fmt.Errorf("lock semesters: %w", err)
		}
		if err := tx.SelectContext(ctx, &sections, `SELECT `+sectionRowColumns+` FROM sections WHERE academic_year_id = $1 AND status = $2 ORDER BY id FOR UPDATE`, yearID, models.StatusActive); err != nil {
			return fmt.Errorf("lock active sections: %w", err)
		}

		var err error
		plan, err = lifecycle.PlanActivation(id, buildSemesterTree(semesters, sections))
		if err != nil {
			return err
		}
		return applyPlan(ctx, tx, plan)
	})
	if err != nil {
		return lifecycle.Plan{}, wrapTransition("activate semester", err)
	}
	return plan, nil
}

// ArchiveSemester archives a semester and its Active sections.
func (r *PeriodRepository) ArchiveSemester(ctx context.Context, yearID, id string) (lifecycle.Plan, error) {
	var plan lifecycle.Plan
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := lockAcademicYear(ctx, tx, yearID); err != nil {
			return err
		}
		var semesters, sections []periodRow
		if err := tx.SelectContext(ctx, &semesters, `SELECT id, academic_year_id, status FROM semesters WHERE academic_year_id = $1 AND id = $2 FOR UPDATE`, yearID, id); err != nil {
			return fmt.Errorf("lock semester: %w", err)
		}
		if len(semesters) == 0 {
			return lifecycle.ErrTargetNotFound
		}
		if err := tx.SelectContext(ctx, &sections, `SELECT `+sectionRowColumns+` FROM sections WHERE semester_id = $1 AND status = $2 ORDER BY id FOR UPDATE`, id, models.StatusActive); err != nil {
			return fmt.Errorf("lock active sections: %w", err)
		}

		plan = lifecycle.PlanArchive(buildSemesterTree(semesters, sections)[0])
		return applyPlan(ctx, tx, plan)
	})
	if err != nil {
		return lifecycle.Plan{}, wrapTransition("archive semester", err)
	}
	return plan, nil
}

// lockAcademicYear takes the parent row lock semester transitions share with
// year transitions, so rows are always locked year first, then semesters,
// then sections.
func lockAcademicYear(ctx context.Context, tx *sqlx.Tx, yearID string) error {
	var id string
	if err := tx.GetContext(ctx, &id, `SELECT id FROM academic_years WHERE id = $1 FOR UPDATE`, yearID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return lifecycle.ErrTargetNotFound
		}
		return fmt.Errorf("lock academic year: %w", err)
	}
	return nil
}

// StatusTree loads every year with its semesters and sections for auditing.
func (r *PeriodRepository) StatusTree(ctx context.Context) ([]lifecycle.Record, error) {
	var years, semesters, sections []periodRow
	if err := r.db.SelectContext(ctx, &years, `SELECT id, status FROM academic_years ORDER BY id`); err != nil {
		return nil, fmt.Errorf("load academic years: %w", err)
	}
	if err := r.db.SelectContext(ctx, &semesters, `SELECT id, academic_year_id, status FROM semesters ORDER BY id`); err != nil {
		return nil, fmt.Errorf("load semesters: %w", err)
	}
	if err := r.db.SelectContext(ctx, &sections, `SELECT `+sectionRowColumns+` FROM sections ORDER BY id`); err != nil {
		return nil, fmt.Errorf("load sections: %w", err)
	}
	return buildYearTree(years, semesters, sections), nil
}

func buildSemesterTree(semesters, sections []periodRow) []lifecycle.Record {
	bySemester := make(map[string][]lifecycle.Record, len(semesters))
	for _, s := range sections {
		bySemester[s.SemesterID] = append(bySemester[s.SemesterID], lifecycle.Record{
			ID:     s.ID,
			Kind:   lifecycle.KindSection,
			Path:   docpath.Section(s.AcademicYearID, s.SemesterID, s.DepartmentID, s.CourseID, s.YearLevelID, s.ID),
			Status: s.Status,
		})
	}
	records := make([]lifecycle.Record, 0, len(semesters))
	for _, s := range semesters {
		records = append(records, lifecycle.Record{
			ID:       s.ID,
			Kind:     lifecycle.KindSemester,
			Path:     docpath.Semester(s.AcademicYearID, s.ID),
			Status:   s.Status,
			Children: bySemester[s.ID],
		})
	}
	return records
}

func buildYearTree(years, semesters, sections []periodRow) []lifecycle.Record {
	byYear := make(map[string][]lifecycle.Record, len(years))
	for i, s := range buildSemesterTree(semesters, sections) {
		yearID := semesters[i].AcademicYearID
		byYear[yearID] = append(byYear[yearID], s)
	}
	records := make([]lifecycle.Record, 0, len(years))
	for _, y := range years {
		records = append(records, lifecycle.Record{
			ID:       y.ID,
			Kind:     lifecycle.KindAcademicYear,
			Path:     docpath.AcademicYear(y.ID),
			Status:   y.Status,
			Children: byYear[y.ID],
		})
	}
	return records
}

// applyPlan writes archives bottom-up, then the activation, so the single-active
// indexes never see two Active rows.
func applyPlan(ctx context.Context, tx *sqlx.Tx, plan lifecycle.Plan) error {
	now := time.Now().UTC()
	archived := make(map[string][]string)
	for _, c := range plan.Archived() {
		archived[c.Kind] = append(archived[c.Kind], c.ID)
	}
	for _, kind := range []string{lifecycle.KindSection, lifecycle.KindSemester, lifecycle.KindAcademicYear} {
		ids := archived[kind]
		if len(ids) == 0 {
			continue
		}
		query := fmt.Sprintf("UPDATE %s SET status = $1, updated_at = $2 WHERE id = ANY($3)", statusTables[kind])
		if _, err := tx.ExecContext(ctx, query, models.StatusArchived, now, pq.Array(ids)); err != nil {
			return fmt.Errorf("archive %s records: %w", kind, err)
		}
	}

	target := plan.Target()
	if target.To != models.StatusActive {
		return nil
	}
	query := fmt.Sprintf("UPDATE %s SET status = $1, updated_at = $2 WHERE id = $3", statusTables[target.Kind])
	if _, err := tx.ExecContext(ctx, query, models.StatusActive, now, target.ID); err != nil {
		return fmt.Errorf("activate %s: %w", target.Kind, err)
	}
	return nil
}

func wrapTransition(op string, err error) error {
	if errors.Is(err, lifecycle.ErrTargetNotFound) {
		return sql.ErrNoRows
	}
	return fmt.Errorf("%s: %w", op, err)
}
