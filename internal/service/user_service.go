package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/realtime"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

const birthDateLayout = "2006-01-02"

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.UserProfile, int, error)
	FindByID(ctx context.Context, role models.UserRole, id string) (*models.UserProfile, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, user *models.UserProfile) error
	Update(ctx context.Context, user *models.UserProfile) error
	Delete(ctx context.Context, role models.UserRole, id string) error
	CountOpenRequests(ctx context.Context, id string) (int, error)
}

// UserProfileRequest carries the personal and assignment fields of a profile.
type UserProfileRequest struct {
	Email        string  `json:"email" validate:"required,email"`
	FirstName    string  `json:"firstName" validate:"required"`
	MiddleName   string  `json:"middleName"`
	LastName     string  `json:"lastName" validate:"required"`
	Gender       string  `json:"gender" validate:"required,oneof=Male Female"`
	DateOfBirth  string  `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	Phone        string  `json:"phone"`
	Address      string  `json:"address"`
	DepartmentID *string `json:"departmentId"`
	CourseID     *string `json:"courseId"`
	YearLevelID  *string `json:"yearLevelId"`
	SectionID    *string `json:"sectionId"`
}

// CreateUserRequest adds the account fields set only on creation.
type CreateUserRequest struct {
	UserProfileRequest
	AccountNumber string `json:"accountNumber" validate:"required,numeric"`
	Password      string `json:"password" validate:"required,min=8"`
}

// UserService manages role-partitioned user profiles.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
	publisher realtime.Publisher
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger, publisher realtime.Publisher) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	return &UserService{repo: repo, validator: validate, logger: logger, publisher: publisher}
}

func requireProfileRole(role models.UserRole) error {
	if !models.IsProfileRole(role) {
		return appErrors.Clone(appErrors.ErrValidation, "unknown role "+string(role))
	}
	return nil
}

// List returns paginated profiles of one role.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.UserProfile, *models.Pagination, error) {
	if err := requireProfileRole(filter.Role); err != nil {
		return nil, nil, err
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list users")
	}
	return users, paginationOf(filter.Page, filter.PageSize, total), nil
}

// Get returns a profile by role and ID.
func (s *UserService) Get(ctx context.Context, role models.UserRole, id string) (*models.UserProfile, error) {
	if err := requireProfileRole(role); err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, role, id)
	if err != nil {
		return nil, lookupError(err, "user not found", "failed to load user")
	}
	return user, nil
}

// Create adds a profile with a bcrypt-hashed password.
func (s *UserService) Create(ctx context.Context, role models.UserRole, req CreateUserRequest) (*models.UserProfile, error) {
	if err := requireProfileRole(role); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid create user payload")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.checkEmail(ctx, email, ""); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, internalError(err, "failed to hash password")
	}

	user := &models.UserProfile{
		Role:          role,
		AccountNumber: strings.TrimSpace(req.AccountNumber),
		PasswordHash:  string(hash),
	}
	applyProfile(user, req.UserProfileRequest, email)
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, writeError(err, "email already exists", "failed to create user")
	}
	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(role)))
	publish(s.publisher, realtime.OpCreated, kindUser, user.Path)
	return user, nil
}

// Update modifies personal and assignment fields. Role and account number are fixed.
func (s *UserService) Update(ctx context.Context, role models.UserRole, id string, req UserProfileRequest) (*models.UserProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid update payload")
	}
	user, err := s.Get(ctx, role, id)
	if err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.checkEmail(ctx, email, id); err != nil {
		return nil, err
	}
	applyProfile(user, req, email)
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, writeError(err, "email already exists", "failed to update user")
	}
	publish(s.publisher, realtime.OpUpdated, kindUser, user.Path)
	return user, nil
}

// Delete removes a profile that no request still references.
func (s *UserService) Delete(ctx context.Context, role models.UserRole, id string) error {
	user, err := s.Get(ctx, role, id)
	if err != nil {
		return err
	}
	open, err := s.repo.CountOpenRequests(ctx, id)
	if err != nil {
		return internalError(err, "failed to count user requests")
	}
	if open > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "user still has requests; resolve them first")
	}
	if err := s.repo.Delete(ctx, role, id); err != nil {
		return lookupError(err, "user not found", "failed to delete user")
	}
	s.logger.Info("user deleted", zap.String("user_id", id), zap.String("role", string(role)))
	publish(s.publisher, realtime.OpDeleted, kindUser, user.Path)
	return nil
}

func (s *UserService) checkEmail(ctx context.Context, email, selfID string) error {
	taken, err := s.repo.ExistsByEmail(ctx, email, selfID)
	if err != nil {
		return internalError(err, "failed to check email uniqueness")
	}
	if taken {
		return appErrors.Clone(appErrors.ErrConflict, "email already exists")
	}
	return nil
}

func applyProfile(user *models.UserProfile, req UserProfileRequest, email string) {
	user.Email = email
	user.FirstName = strings.TrimSpace(req.FirstName)
	user.MiddleName = strings.TrimSpace(req.MiddleName)
	user.LastName = strings.TrimSpace(req.LastName)
	user.Gender = req.Gender
	user.DateOfBirth = nil
	if req.DateOfBirth != "" {
		if dob, err := time.Parse(birthDateLayout, req.DateOfBirth); err == nil {
			user.DateOfBirth = &dob
		}
	}
	user.Phone = strings.TrimSpace(req.Phone)
	user.Address = strings.TrimSpace(req.Address)
	user.DepartmentID = req.DepartmentID
	user.CourseID = req.CourseID
	user.YearLevelID = req.YearLevelID
	user.SectionID = req.SectionID
}
