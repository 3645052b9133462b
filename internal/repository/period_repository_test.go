package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/internal/lifecycle"
	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/pkg/database"
)

func TestPeriodRepositoryListAcademicYears(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPeriodRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "acad_year", "status", "created_at", "updated_at"}).
		AddRow("y1", "S.Y - 2024-2025", "Active", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, acad_year, status, created_at, updated_at FROM academic_years WHERE 1=1 AND status = $1 ORDER BY acad_year ASC LIMIT 20 OFFSET 0")).
		WithArgs(models.StatusActive).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM academic_years WHERE 1=1 AND status = $1")).
		WithArgs(models.StatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	years, total, err := repo.ListAcademicYears(context.Background(), models.PeriodFilter{Status: models.StatusActive})
	require.NoError(t, err)
	require.Len(t, years, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "academic_years/y1", years[0].Path)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositoryCreateSemester(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPeriodRepository(db)

	mock.ExpectExec("INSERT INTO semesters").
		WithArgs(sqlmock.AnyArg(), "y1", models.FirstSemester, sqlmock.AnyArg(), sqlmock.AnyArg(), models.StatusUpcoming, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	sem := &models.Semester{AcademicYearID: "y1", SemesterName: models.FirstSemester, Status: models.StatusUpcoming}
	require.NoError(t, repo.CreateSemester(context.Background(), sem))
	assert.NotEmpty(t, sem.ID)
	assert.Equal(t, "academic_years/y1/semesters/"+sem.ID, sem.Path)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositoryActivateAcademicYearCascades(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPeriodRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, status FROM academic_years ORDER BY id FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow("A", "Active").AddRow("B", "Upcoming"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, academic_year_id, status FROM semesters WHERE status = $1 ORDER BY id FOR UPDATE")).
		WithArgs(models.StatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"id", "academic_year_id", "status"}).AddRow("A1", "A", "Active"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM sections WHERE status = $1 ORDER BY id FOR UPDATE")).
		WithArgs(models.StatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"id", "academic_year_id", "semester_id", "department_id", "course_id", "year_level_id", "status"}).
			AddRow("S1", "A", "A1", "D", "C", "YL", "Active"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sections SET status = $1, updated_at = $2 WHERE id = ANY($3)")).
		WithArgs(models.StatusArchived, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE semesters SET status = $1, updated_at = $2 WHERE id = ANY($3)")).
		WithArgs(models.StatusArchived, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_years SET status = $1, updated_at = $2 WHERE id = ANY($3)")).
		WithArgs(models.StatusArchived, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_years SET status = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(models.StatusActive, sqlmock.AnyArg(), "B").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	plan, err := repo.ActivateAcademicYear(context.Background(), "B")
	require.NoError(t, err)
	require.Len(t, plan.Changes, 4)
	assert.Equal(t, "B", plan.Target().ID)
	assert.Equal(t, "academic_years/A/semesters/A1/departments/D/courses/C/year_levels/YL/sections/S1", plan.Changes[2].Path)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositoryActivateRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPeriodRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM academic_years ORDER BY id FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow("A", "Active").AddRow("B", "Upcoming"))
	mock.ExpectQuery("FROM semesters WHERE status").
		WillReturnRows(sqlmock.NewRows([]string{"id", "academic_year_id", "status"}))
	mock.ExpectQuery("FROM sections WHERE status").
		WillReturnRows(sqlmock.NewRows([]string{"id", "academic_year_id", "semester_id", "department_id", "course_id", "year_level_id", "status"}))
	mock.ExpectExec("UPDATE academic_years SET status").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.ActivateAcademicYear(context.Background(), "B")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "activate academic year")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositoryActivateUnknownTarget(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPeriodRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM academic_years WHERE id = $1 FOR UPDATE")).
		WithArgs("y1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("y1"))
	mock.ExpectQuery("FROM semesters WHERE academic_year_id = \\$1 ORDER BY id FOR UPDATE").
		WithArgs("y1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "academic_year_id", "status"}).AddRow("s1", "y1", "Active"))
	mock.ExpectQuery("FROM sections WHERE academic_year_id").
		WithArgs("y1", models.StatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"id", "academic_year_id", "semester_id", "department_id", "course_id", "year_level_id", "status"}))
	mock.ExpectRollback()

	_, err := repo.ActivateSemester(context.Background(), "y1", "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositorySemesterTransitionLocksYearFirst(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPeriodRepository(db)

	// unknown year: nothing below it is touched
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM academic_years WHERE id = $1 FOR UPDATE")).
		WithArgs("gone").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := repo.ActivateSemester(context.Background(), "gone", "s1")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	// the unique index still rejects a second Active semester
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM academic_years WHERE id = $1 FOR UPDATE")).
		WithArgs("y1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("y1"))
	mock.ExpectQuery("FROM semesters WHERE academic_year_id = \\$1 ORDER BY id FOR UPDATE").
		WithArgs("y1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "academic_year_id", "status"}).AddRow("s1", "y1", "Upcoming"))
	mock.ExpectQuery("FROM sections WHERE academic_year_id").
		WithArgs("y1", models.StatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"id", "academic_year_id", "semester_id", "department_id", "course_id", "year_level_id", "status"}))
	mock.ExpectExec("UPDATE semesters SET status").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "semesters_single_active"})
	mock.ExpectRollback()

	_, err = repo.ActivateSemester(context.Background(), "y1", "s1")
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositoryArchiveSemester(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPeriodRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM academic_years WHERE id = $1 FOR UPDATE")).
		WithArgs("y1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("y1"))
	mock.ExpectQuery("FROM semesters WHERE academic_year_id = \\$1 AND id = \\$2 FOR UPDATE").
		WithArgs("y1", "s1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "academic_year_id", "status"}).AddRow("s1", "y1", "Upcoming"))
	mock.ExpectQuery("FROM sections WHERE semester_id").
		WithArgs("s1", models.StatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"id", "academic_year_id", "semester_id", "department_id", "course_id", "year_level_id", "status"}))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE semesters SET status = $1, updated_at = $2 WHERE id = ANY($3)")).
		WithArgs(models.StatusArchived, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	plan, err := repo.ArchiveSemester(context.Background(), "y1", "s1")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Change{ID: "s1", Kind: lifecycle.KindSemester, Path: "academic_years/y1/semesters/s1", From: models.StatusUpcoming, To: models.StatusArchived}, plan.Target())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPeriodRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM academic_years WHERE id = $1 FOR UPDATE")).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	assert.ErrorIs(t, repo.DeleteAcademicYear(context.Background(), "nope"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositoryDeleteActiveYearRefused(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPeriodRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM academic_years WHERE id = $1 FOR UPDATE")).
		WithArgs("y1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("Active"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM semesters WHERE academic_year_id = $1")).
		WithArgs("y1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	assert.ErrorIs(t, repo.DeleteAcademicYear(context.Background(), "y1"), lifecycle.ErrActiveRecord)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositoryDeleteSemesterCommits(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPeriodRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM semesters WHERE id = $1 FOR UPDATE")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("Archived"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM departments WHERE semester_id = $1")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM semesters WHERE id = $1 AND status <> $2")).
		WithArgs("s1", "Active").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteSemester(context.Background(), "s1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
