package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/realtime"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/sheet"
)

// Required columns of a bulk user upload.
const (
	ColumnFirstName   = "First Name"
	ColumnLastName    = "Last Name"
	ColumnGender      = "Gender"
	ColumnDateOfBirth = "Date of Birth"
	ColumnDepartment  = "Department"
	columnMiddleName  = "Middle Name"
)

var bulkUploadColumns = []string{ColumnFirstName, ColumnLastName, ColumnGender, ColumnDateOfBirth, ColumnDepartment}

var birthDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"1-2-06",
	"January 2, 2006",
	"Jan 2, 2006",
}

const (
	passwordAlphabet     = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789"
	accountNumberRerolls = 10
)

type bulkUserRepository interface {
	ExistingAccountNumbers(ctx context.Context, candidates []string) (map[string]bool, error)
	CreateBatch(ctx context.Context, users []*models.UserProfile) error
}

type departmentDirectory interface {
	FindByName(ctx context.Context, semesterID, name string) (*models.Department, error)
}

type activeSessionSource interface {
	Active(ctx context.Context) (*models.ActiveSession, error)
}

// BulkUploadConfig tunes spreadsheet imports.
type BulkUploadConfig struct {
	EmailDomain    string
	MaxRows        int
	PasswordLength int
	HashCost       int
}

// BulkRowError lists the problems found on one spreadsheet row.
type BulkRowError struct {
	Row    int      `json:"row"`
	Errors []string `json:"errors"`
}

// BulkCreatedUser is an account created by an upload. InitialPassword is only
// ever returned here.
type BulkCreatedUser struct {
	Row             int    `json:"row"`
	ID              string `json:"id"`
	AccountNumber   string `json:"accountNumber"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	InitialPassword string `json:"initialPassword"`
	Path            string `json:"path"`
}

// BulkUploadResult summarises an upload.
type BulkUploadResult struct {
	TotalRows int               `json:"totalRows"`
	Created   []BulkCreatedUser `json:"created"`
	Errors    []BulkRowError    `json:"errors"`
}

// BulkUploadService creates many profiles of one role from a spreadsheet.
type BulkUploadService struct {
	users       bulkUserRepository
	departments departmentDirectory
	session     activeSessionSource
	metrics     *MetricsService
	publisher   realtime.Publisher
	logger      *zap.Logger
	cfg         BulkUploadConfig

	newNumber   func() (string, error)
	newPassword func(n int) (string, error)
}

// NewBulkUploadService constructs the service.
func NewBulkUploadService(users bulkUserRepository, departments departmentDirectory, session activeSessionSource, cfg BulkUploadConfig, metrics *MetricsService, publisher realtime.Publisher, logger *zap.Logger) *BulkUploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	if cfg.EmailDomain == "" {
		cfg.EmailDomain = "school.local"
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 2000
	}
	if cfg.PasswordLength < 8 {
		cfg.PasswordLength = 10
	}
	if cfg.HashCost == 0 {
		cfg.HashCost = bcrypt.DefaultCost
	}
	return &BulkUploadService{
		users:       users,
		departments: departments,
		session:     session,
		metrics:     metrics,
		publisher:   publisher,
		logger:      logger,
		cfg:         cfg,
		newNumber:   randomAccountNumber,
		newPassword: randomPassword,
	}
}

// Upload parses the file and creates a profile for every valid row. Invalid
// rows are reported and skipped; a missing required column rejects the file.
func (s *BulkUploadService) Upload(ctx context.Context, role models.UserRole, filename string, r io.Reader) (*BulkUploadResult, error) {
	if err := requireProfileRole(role); err != nil {
		return nil, err
	}
	format, err := sheet.DetectFormat(filename)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "upload must be an .xlsx or .csv file")
	}
	table, err := sheet.Read(r, format, bulkUploadColumns)
	if err != nil {
		var missing *sheet.MissingColumnsError
		if errors.As(err, &missing) {
			return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, missing.Error()), missing.Columns)
		}
		return nil, validationError(err, "failed to read upload")
	}
	if len(table.Rows) > s.cfg.MaxRows {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("upload exceeds %d rows", s.cfg.MaxRows))
	}

	semesterID, err := s.activeSemesterID(ctx)
	if err != nil {
		return nil, err
	}

	result := &BulkUploadResult{TotalRows: len(table.Rows), Created: []BulkCreatedUser{}, Errors: []BulkRowError{}}
	resolved := make(map[string]*string)
	var (
		pending []*models.UserProfile
		rows    []int
	)
	for _, row := range table.Rows {
		user, problems, err := s.parseRow(ctx, row, semesterID, resolved)
		if err != nil {
			return nil, err
		}
		if len(problems) > 0 {
			result.Errors = append(result.Errors, BulkRowError{Row: row.Number, Errors: problems})
			continue
		}
		user.Role = role
		pending = append(pending, user)
		rows = append(rows, row.Number)
	}

	if len(pending) > 0 {
		if err := s.assignAccountNumbers(ctx, pending); err != nil {
			return nil, err
		}
		passwords := make([]string, len(pending))
		for i, user := range pending {
			password, err := s.newPassword(s.cfg.PasswordLength)
			if err != nil {
				return nil, internalError(err, "failed to generate password")
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.HashCost)
			if err != nil {
				return nil, internalError(err, "failed to hash password")
			}
			user.PasswordHash = string(hash)
			passwords[i] = password
		}
		if err := s.users.CreateBatch(ctx, pending); err != nil {
			return nil, writeError(err, "account number or email already exists", "failed to create users")
		}
		for i, user := range pending {
			result.Created = append(result.Created, BulkCreatedUser{
				Row:             rows[i],
				ID:              user.ID,
				AccountNumber:   user.AccountNumber,
				Email:           user.Email,
				Name:            user.FullName(),
				InitialPassword: passwords[i],
				Path:            user.Path,
			})
			publish(s.publisher, realtime.OpCreated, kindUser, user.Path)
		}
	}

	s.metrics.RecordBulkUploadRows(len(result.Created), len(result.Errors))
	s.logger.Info("bulk upload processed",
		zap.String("role", string(role)),
		zap.Int("rows", result.TotalRows),
		zap.Int("created", len(result.Created)),
		zap.Int("rejected", len(result.Errors)),
	)
	return result, nil
}

// activeSemesterID returns "" when no semester is active.
func (s *BulkUploadService) activeSemesterID(ctx context.Context) (string, error) {
	if s.session == nil {
		return "", nil
	}
	session, err := s.session.Active(ctx)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	if session.Semester == nil {
		return "", nil
	}
	return session.Semester.ID, nil
}

func (s *BulkUploadService) parseRow(ctx context.Context, row sheet.Row, semesterID string, resolved map[string]*string) (*models.UserProfile, []string, error) {
	var problems []string
	user := &models.UserProfile{
		FirstName:  row.Get(ColumnFirstName),
		MiddleName: row.Get(columnMiddleName),
		LastName:   row.Get(ColumnLastName),
	}
	if user.FirstName == "" {
		problems = append(problems, "First Name is required")
	}
	if user.LastName == "" {
		problems = append(problems, "Last Name is required")
	}

	switch gender := row.Get(ColumnGender); {
	case strings.EqualFold(gender, models.GenderMale):
		user.Gender = models.GenderMale
	case strings.EqualFold(gender, models.GenderFemale):
		user.Gender = models.GenderFemale
	default:
		problems = append(problems, "Gender must be Male or Female")
	}

	if dob, ok := parseBirthDate(row.Get(ColumnDateOfBirth)); ok {
		user.DateOfBirth = &dob
	} else {
		problems = append(problems, "Date of Birth is not a valid date")
	}

	department := row.Get(ColumnDepartment)
	switch {
	case department == "":
		problems = append(problems, "Department is required")
	case semesterID != "":
		id, seen := resolved[department]
		if !seen {
			found, err := s.departments.FindByName(ctx, semesterID, department)
			switch {
			case err == nil:
				id = &found.ID
			case !isNoRows(err):
				return nil, nil, internalError(err, "failed to resolve department")
			}
			resolved[department] = id
		}
		if id == nil {
			problems = append(problems, fmt.Sprintf("Department %q does not exist in the active semester", department))
		}
		user.DepartmentID = id
	}
	return user, problems, nil
}

// assignAccountNumbers gives every user a fresh 6-digit number, unique in the
// batch and in storage, and derives the email from it.
func (s *BulkUploadService) assignAccountNumbers(ctx context.Context, users []*models.UserProfile) error {
	used := make(map[string]bool, len(users))
	todo := users
	for attempt := 0; len(todo) > 0; attempt++ {
		if attempt == accountNumberRerolls {
			return appErrors.Clone(appErrors.ErrInternal, "could not allocate unique account numbers")
		}
		candidates := make([]string, 0, len(todo))
		for _, user := range todo {
			number, err := s.newNumber()
			if err != nil {
				return internalError(err, "failed to generate account number")
			}
			for used[number] {
				if number, err = s.newNumber(); err != nil {
					return internalError(err, "failed to generate account number")
				}
			}
			used[number] = true
			user.AccountNumber = number
			candidates = append(candidates, number)
		}
		taken, err := s.users.ExistingAccountNumbers(ctx, candidates)
		if err != nil {
			return internalError(err, "failed to check account numbers")
		}
		var retry []*models.UserProfile
		for _, user := range todo {
			if taken[user.AccountNumber] {
				retry = append(retry, user)
				continue
			}
			user.Email = user.AccountNumber + "@" + s.cfg.EmailDomain
		}
		todo = retry
	}
	return nil
}

func parseBirthDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range birthDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func randomAccountNumber() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func randomPassword(length int) (string, error) {
	max := big.NewInt(int64(len(passwordAlphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = passwordAlphabet[n.Int64()]
	}
	return string(buf), nil
}
