package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

type stubActiveSession struct {
	session *models.ActiveSession
}

func (s stubActiveSession) Active(ctx context.Context) (*models.ActiveSession, error) {
	if s.session == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no active academic year")
	}
	return s.session, nil
}

type stubDepartmentDirectory struct {
	byName  map[string]string
	lookups int
}

func (d *stubDepartmentDirectory) FindByName(ctx context.Context, semesterID, name string) (*models.Department, error) {
	d.lookups++
	if id, ok := d.byName[name]; ok && semesterID == "s1" {
		return &models.Department{ID: id, DepartmentName: name}, nil
	}
	return nil, sql.ErrNoRows
}

func sequenceNumbers(values ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		v := values[i%len(values)]
		i++
		return v, nil
	}
}

func newBulkFixture(session *models.ActiveSession) (*BulkUploadService, *mockUserRepo, *stubDepartmentDirectory, *recordingPublisher) {
	repo := newMockUserRepo()
	departments := &stubDepartmentDirectory{byName: map[string]string{"College of Computing": "d1"}}
	pub := &recordingPublisher{}
	svc := NewBulkUploadService(repo, departments, stubActiveSession{session: session}, BulkUploadConfig{
		EmailDomain: "school.edu",
		HashCost:    bcrypt.MinCost,
	}, nil, pub, nil)
	return svc, repo, departments, pub
}

var activeS1 = &models.ActiveSession{
	AcademicYear: &models.AcademicYear{ID: "y1"},
	Semester:     &models.Semester{ID: "s1"},
}

const bulkCSV = `First Name,Last Name,Gender,Date of Birth,Department
Juan,Dela Cruz,Male,2005-02-11,College of Computing
,Reyes,Female,2005-03-01,College of Computing
Ana,Lim,unknown,not a date,College of Computing
Mark,Tan,male,03/15/2004,College of Computing
Liza,Go,Female,2005-07-21,College of Nursing
`

func TestBulkUploadCreatesValidRowsAndReportsErrors(t *testing.T) {
	svc, repo, departments, pub := newBulkFixture(activeS1)
	svc.newNumber = sequenceNumbers("123456", "654321")

	result, err := svc.Upload(context.Background(), models.RoleStudent, "students.csv", strings.NewReader(bulkCSV))
	require.NoError(t, err)

	assert.Equal(t, 5, result.TotalRows)
	require.Len(t, result.Created, 2)
	assert.Equal(t, 2, result.Created[0].Row)
	assert.Equal(t, "123456", result.Created[0].AccountNumber)
	assert.Equal(t, "123456@school.edu", result.Created[0].Email)
	assert.Equal(t, 5, result.Created[1].Row)
	assert.Equal(t, "654321@school.edu", result.Created[1].Email)

	require.Len(t, result.Errors, 3)
	assert.Equal(t, BulkRowError{Row: 3, Errors: []string{"First Name is required"}}, result.Errors[0])
	assert.Equal(t, 4, result.Errors[1].Row)
	assert.Len(t, result.Errors[1].Errors, 2)
	assert.Equal(t, 6, result.Errors[2].Row)
	assert.Contains(t, result.Errors[2].Errors[0], "College of Nursing")

	require.Len(t, repo.batches, 1)
	created := repo.batches[0][0]
	assert.Equal(t, models.RoleStudent, created.Role)
	require.NotNil(t, created.DepartmentID)
	assert.Equal(t, "d1", *created.DepartmentID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte(result.Created[0].InitialPassword)))
	assert.Equal(t, models.GenderMale, repo.batches[0][1].Gender)
	assert.Equal(t, 2, departments.lookups)
	assert.Len(t, pub.events, 2)
}

func TestBulkUploadRerollsTakenNumbers(t *testing.T) {
	svc, repo, _, _ := newBulkFixture(activeS1)
	repo.taken["111111"] = true
	svc.newNumber = sequenceNumbers("111111", "222222")

	result, err := svc.Upload(context.Background(), models.RoleTeacher, "t.csv", strings.NewReader(
		"First Name,Last Name,Gender,Date of Birth,Department\nJo,Cruz,Male,1990-01-01,College of Computing\n"))
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	assert.Equal(t, "222222", result.Created[0].AccountNumber)
}

func TestBulkUploadMissingColumnRejectsFile(t *testing.T) {
	svc, repo, _, _ := newBulkFixture(activeS1)

	_, err := svc.Upload(context.Background(), models.RoleStudent, "s.csv", strings.NewReader("First Name,Last Name,Gender\nJo,Cruz,Male\n"))
	require.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, []string{"Date of Birth", "Department"}, appErrors.FromError(err).Details)
	assert.Empty(t, repo.batches)

	_, err = svc.Upload(context.Background(), models.RoleStudent, "s.txt", strings.NewReader(""))
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestBulkUploadWithoutActiveSemesterSkipsDepartmentLookup(t *testing.T) {
	svc, repo, departments, _ := newBulkFixture(nil)
	svc.newNumber = sequenceNumbers("333333")

	result, err := svc.Upload(context.Background(), models.RoleStudent, "s.csv", strings.NewReader(
		"First Name,Last Name,Gender,Date of Birth,Department\nJo,Cruz,Female,2001-12-30,Anything\n"))
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	assert.Zero(t, departments.lookups)
	assert.Nil(t, repo.batches[0][0].DepartmentID)
}

func TestRandomAccountNumberIsSixDigits(t *testing.T) {
	for i := 0; i < 50; i++ {
		n, err := randomAccountNumber()
		require.NoError(t, err)
		assert.Len(t, n, 6)
		assert.NotEqual(t, byte('0'), n[0])
	}
}
