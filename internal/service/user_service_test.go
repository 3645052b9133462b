package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

type mockUserRepo struct {
	users        map[string]*models.UserProfile
	openRequests map[string]int
	taken        map[string]bool
	batches      [][]*models.UserProfile
	createErr    error
	seq          int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: map[string]*models.UserProfile{}, openRequests: map[string]int{}, taken: map[string]bool{}}
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.UserProfile, int, error) {
	var out []models.UserProfile
	for _, u := range m.users {
		if u.Role == filter.Role {
			out = append(out, *u)
		}
	}
	return out, len(out), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, role models.UserRole, id string) (*models.UserProfile, error) {
	if u, ok := m.users[id]; ok && u.Role == role {
		cp := *u
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.UserProfile) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	user.ID = "u" + string(rune('0'+m.seq))
	user.Locate()
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.UserProfile) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, role models.UserRole, id string) error {
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) CountOpenRequests(ctx context.Context, id string) (int, error) {
	return m.openRequests[id], nil
}

func (m *mockUserRepo) ExistingAccountNumbers(ctx context.Context, candidates []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, c := range candidates {
		if m.taken[c] {
			out[c] = true
		}
	}
	return out, nil
}

func (m *mockUserRepo) CreateBatch(ctx context.Context, users []*models.UserProfile) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, u := range users {
		m.seq++
		u.ID = "bulk-" + u.AccountNumber
		u.Locate()
		m.users[u.ID] = u
	}
	m.batches = append(m.batches, users)
	return nil
}

func validCreateUser(email string) CreateUserRequest {
	return CreateUserRequest{
		UserProfileRequest: UserProfileRequest{
			Email:       email,
			FirstName:   "Maria",
			LastName:    "Santos",
			Gender:      models.GenderFemale,
			DateOfBirth: "2004-05-17",
		},
		AccountNumber: "204518",
		Password:      "s3cretpass",
	}
}

func TestUserServiceCreate(t *testing.T) {
	repo := newMockUserRepo()
	pub := &recordingPublisher{}
	svc := NewUserService(repo, validator.New(), zap.NewNop(), pub)

	user, err := svc.Create(context.Background(), models.RoleStudent, validCreateUser(" Maria@School.edu "))
	require.NoError(t, err)
	assert.Equal(t, "maria@school.edu", user.Email)
	assert.Equal(t, "users/student/accounts/"+user.ID, user.Path)
	require.NotNil(t, user.DateOfBirth)
	assert.Equal(t, 2004, user.DateOfBirth.Year())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cretpass")))
	assert.Len(t, pub.events, 1)
}

func TestUserServiceCreateRejects(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["x"] = &models.UserProfile{ID: "x", Role: models.RoleTeacher, Email: "maria@school.edu"}
	svc := NewUserService(repo, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, models.RoleAdmin, validCreateUser("new@school.edu"))
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	bad := validCreateUser("new@school.edu")
	bad.Gender = "Other"
	_, err = svc.Create(ctx, models.RoleStudent, bad)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Create(ctx, models.RoleStudent, validCreateUser("MARIA@school.edu"))
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	repo.createErr = &pq.Error{Code: "23505"}
	_, err = svc.Create(ctx, models.RoleStudent, validCreateUser("other@school.edu"))
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestUserServiceUpdateKeepsOwnEmail(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["t1"] = &models.UserProfile{ID: "t1", Role: models.RoleTeacher, Email: "ana@school.edu", AccountNumber: "100200"}
	svc := NewUserService(repo, nil, nil, nil)

	updated, err := svc.Update(context.Background(), models.RoleTeacher, "t1", UserProfileRequest{
		Email: "ana@school.edu", FirstName: "Ana", LastName: "Reyes", Gender: models.GenderFemale,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana Reyes", updated.FullName())
	assert.Equal(t, "100200", updated.AccountNumber)

	_, err = svc.Update(context.Background(), models.RoleStudent, "t1", UserProfileRequest{
		Email: "ana@school.edu", FirstName: "Ana", LastName: "Reyes", Gender: models.GenderFemale,
	})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestUserServiceDeleteGuard(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["s1"] = &models.UserProfile{ID: "s1", Role: models.RoleStudent}
	repo.users["s2"] = &models.UserProfile{ID: "s2", Role: models.RoleStudent}
	repo.openRequests["s1"] = 1
	svc := NewUserService(repo, nil, nil, nil)

	assert.ErrorIs(t, svc.Delete(context.Background(), models.RoleStudent, "s1"), appErrors.ErrPreconditionFailed)
	require.NoError(t, svc.Delete(context.Background(), models.RoleStudent, "s2"))
	assert.NotContains(t, repo.users, "s2")
}

func TestUserServiceListPagination(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["s1"] = &models.UserProfile{ID: "s1", Role: models.RoleStudent}
	repo.users["t1"] = &models.UserProfile{ID: "t1", Role: models.RoleTeacher}
	svc := NewUserService(repo, nil, nil, nil)

	users, pagination, err := svc.List(context.Background(), models.UserFilter{Role: models.RoleStudent, Page: 2, PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 2, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 1, pagination.TotalCount)
}
