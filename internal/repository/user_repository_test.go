package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/internal/models"
)

func TestUserRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM user_accounts WHERE 1=1 AND role = $1 AND section_id = $2 ORDER BY last_name ASC LIMIT 20 OFFSET 0")).
		WithArgs(models.RoleStudent, "sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "role", "account_number", "email", "last_name"}).
			AddRow("u1", "student", "100200", "100200@school.test", "Santos"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM user_accounts WHERE 1=1 AND role = $1 AND section_id = $2")).
		WithArgs(models.RoleStudent, "sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	users, total, err := repo.List(context.Background(), models.UserFilter{Role: models.RoleStudent, SectionID: "sec-1"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "users/student/accounts/u1", users[0].Path)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryExistsByEmail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM user_accounts WHERE LOWER(email) = LOWER($1) AND id <> $2 LIMIT 1")).
		WithArgs("Ana@School.test", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	found, err := repo.ExistsByEmail(context.Background(), "Ana@School.test", "u1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryExistingAccountNumbers(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT account_number FROM user_accounts WHERE account_number IN (?, ?, ?)")).
		WithArgs("111111", "222222", "333333").
		WillReturnRows(sqlmock.NewRows([]string{"account_number"}).AddRow("222222"))

	taken, err := repo.ExistingAccountNumbers(context.Background(), []string{"111111", "222222", "333333"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"222222": true}, taken)

	empty, err := repo.ExistingAccountNumbers(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateBatchCommits(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO user_accounts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_accounts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	users := []*models.UserProfile{
		{Role: models.RoleStudent, AccountNumber: "111111", Email: "111111@school.test"},
		{Role: models.RoleStudent, AccountNumber: "222222", Email: "222222@school.test"},
	}
	require.NoError(t, repo.CreateBatch(context.Background(), users))
	for _, u := range users {
		assert.NotEmpty(t, u.ID)
		assert.False(t, u.CreatedAt.IsZero())
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateBatchRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO user_accounts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_accounts").WillReturnError(errors.New("duplicate"))
	mock.ExpectRollback()

	err := repo.CreateBatch(context.Background(), []*models.UserProfile{
		{Role: models.RoleTeacher, AccountNumber: "111111"},
		{Role: models.RoleTeacher, AccountNumber: "222222"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "222222")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_accounts WHERE role = $1 AND id = $2")).
		WithArgs(models.RoleTeacher, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), models.RoleTeacher, "missing")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
