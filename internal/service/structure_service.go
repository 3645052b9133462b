package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/lifecycle"
	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/realtime"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

type semesterLookup interface {
	FindSemester(ctx context.Context, yearID, id string) (*models.Semester, error)
}

type departmentRepository interface {
	List(ctx context.Context, scope models.Scope) ([]models.Department, error)
	FindByID(ctx context.Context, scope models.Scope, id string) (*models.Department, error)
	Names(ctx context.Context, scope models.Scope) ([]lifecycle.Named, error)
	Create(ctx context.Context, department *models.Department) error
	Update(ctx context.Context, department *models.Department) error
	Delete(ctx context.Context, id string) error
	CountChildren(ctx context.Context, id string) (int, error)
}

type courseRepository interface {
	List(ctx context.Context, scope models.Scope) ([]models.Course, error)
	FindByID(ctx context.Context, scope models.Scope, id string) (*models.Course, error)
	Names(ctx context.Context, scope models.Scope) ([]lifecycle.Named, error)
	Codes(ctx context.Context, scope models.Scope) ([]lifecycle.Named, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
	CountChildren(ctx context.Context, id string) (int, error)
}

type yearLevelRepository interface {
	List(ctx context.Context, scope models.Scope) ([]models.YearLevel, error)
	FindByID(ctx context.Context, scope models.Scope, id string) (*models.YearLevel, error)
	Names(ctx context.Context, scope models.Scope) ([]lifecycle.Named, error)
	Create(ctx context.Context, level *models.YearLevel) error
	Update(ctx context.Context, level *models.YearLevel) error
	Delete(ctx context.Context, id string) error
	CountChildren(ctx context.Context, id string) (int, error)
}

type sectionRepository interface {
	List(ctx context.Context, scope models.Scope) ([]models.Section, error)
	FindByID(ctx context.Context, scope models.Scope, id string) (*models.Section, error)
	Names(ctx context.Context, scope models.Scope) ([]lifecycle.Named, error)
	Create(ctx context.Context, section *models.Section) error
	Update(ctx context.Context, section *models.Section) error
	Delete(ctx context.Context, id string) error
	CountChildren(ctx context.Context, id string) (int, error)
}

// DepartmentRequest is the payload for creating or renaming a department.
type DepartmentRequest struct {
	DepartmentName string `json:"departmentName" validate:"required"`
}

// CourseRequest is the payload for creating or updating a course.
type CourseRequest struct {
	CourseName string `json:"courseName" validate:"required"`
	CourseCode string `json:"courseCode" validate:"required,max=32"`
}

// YearLevelRequest is the payload for creating or renaming a year level.
type YearLevelRequest struct {
	YearLevelName string `json:"yearLevelName" validate:"required"`
}

// SectionRequest is the payload for creating or updating a section.
type SectionRequest struct {
	SectionName string              `json:"sectionName" validate:"required"`
	Status      models.PeriodStatus `json:"status"`
}

// StructureService manages the department > course > year level > section hierarchy.
type StructureService struct {
	semesters   semesterLookup
	departments departmentRepository
	courses     courseRepository
	yearLevels  yearLevelRepository
	sections    sectionRepository
	validator   *validator.Validate
	logger      *zap.Logger
	publisher   realtime.Publisher
}

// StructureRepositories groups the stores the structure service writes to.
type StructureRepositories struct {
	Semesters   semesterLookup
	Departments departmentRepository
	Courses     courseRepository
	YearLevels  yearLevelRepository
	Sections    sectionRepository
}

// NewStructureService constructs the service.
func NewStructureService(repos StructureRepositories, validate *validator.Validate, logger *zap.Logger, publisher realtime.Publisher) *StructureService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	return &StructureService{
		semesters:   repos.Semesters,
		departments: repos.Departments,
		courses:     repos.Courses,
		yearLevels:  repos.YearLevels,
		sections:    repos.Sections,
		validator:   validate,
		logger:      logger,
		publisher:   publisher,
	}
}

func (s *StructureService) requireSemester(ctx context.Context, scope models.Scope) error {
	if _, err := s.semesters.FindSemester(ctx, scope.AcademicYearID, scope.SemesterID); err != nil {
		return lookupError(err, "semester not found", "failed to load semester")
	}
	return nil
}

func (s *StructureService) requireDepartment(ctx context.Context, scope models.Scope) error {
	if _, err := s.departments.FindByID(ctx, scope, scope.DepartmentID); err != nil {
		return lookupError(err, "department not found", "failed to load department")
	}
	return nil
}

func (s *StructureService) requireCourse(ctx context.Context, scope models.Scope) error {
	if err := s.requireDepartment(ctx, scope); err != nil {
		return err
	}
	if _, err := s.courses.FindByID(ctx, scope, scope.CourseID); err != nil {
		return lookupError(err, "course not found", "failed to load course")
	}
	return nil
}

func (s *StructureService) requireYearLevel(ctx context.Context, scope models.Scope) error {
	if err := s.requireCourse(ctx, scope); err != nil {
		return err
	}
	if _, err := s.yearLevels.FindByID(ctx, scope, scope.YearLevelID); err != nil {
		return lookupError(err, "year level not found", "failed to load year level")
	}
	return nil
}

func (s *StructureService) checkName(ctx context.Context, names func(context.Context, models.Scope) ([]lifecycle.Named, error), scope models.Scope, name, selfID, label string) error {
	existing, err := names(ctx, scope)
	if err != nil {
		return internalError(err, "failed to check "+label+" uniqueness")
	}
	if lifecycle.DuplicateName(name, selfID, existing) {
		return appErrors.Clone(appErrors.ErrConflict, label+" already exists")
	}
	return nil
}

// ListDepartments returns the departments of a semester.
func (s *StructureService) ListDepartments(ctx context.Context, scope models.Scope) ([]models.Department, error) {
	if err := s.requireSemester(ctx, scope); err != nil {
		return nil, err
	}
	list, err := s.departments.List(ctx, scope)
	if err != nil {
		return nil, internalError(err, "failed to list departments")
	}
	return list, nil
}

// GetDepartment returns one department.
func (s *StructureService) GetDepartment(ctx context.Context, scope models.Scope, id string) (*models.Department, error) {
	department, err := s.departments.FindByID(ctx, scope, id)
	if err != nil {
		return nil, lookupError(err, "department not found", "failed to load department")
	}
	return department, nil
}

// CreateDepartment adds a department to a semester.
func (s *StructureService) CreateDepartment(ctx context.Context, scope models.Scope, req DepartmentRequest) (*models.Department, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid department payload")
	}
	if err := s.requireSemester(ctx, scope); err != nil {
		return nil, err
	}
	name := lifecycle.NormalizeName(req.DepartmentName)
	if err := s.checkName(ctx, s.departments.Names, scope, name, "", "department"); err != nil {
		return nil, err
	}
	department := &models.Department{AcademicYearID: scope.AcademicYearID, SemesterID: scope.SemesterID, DepartmentName: name}
	if err := s.departments.Create(ctx, department); err != nil {
		return nil, writeError(err, "department already exists", "failed to create department")
	}
	publish(s.publisher, realtime.OpCreated, kindDepartment, department.Path)
	return department, nil
}

// UpdateDepartment renames a department.
func (s *StructureService) UpdateDepartment(ctx context.Context, scope models.Scope, id string, req DepartmentRequest) (*models.Department, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid department payload")
	}
	department, err := s.GetDepartment(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	name := lifecycle.NormalizeName(req.DepartmentName)
	if err := s.checkName(ctx, s.departments.Names, scope, name, id, "department"); err != nil {
		return nil, err
	}
	department.DepartmentName = name
	if err := s.departments.Update(ctx, department); err != nil {
		return nil, writeError(err, "department already exists", "failed to update department")
	}
	publish(s.publisher, realtime.OpUpdated, kindDepartment, department.Path)
	return department, nil
}

// DeleteDepartment removes a department without courses.
func (s *StructureService) DeleteDepartment(ctx context.Context, scope models.Scope, id string) error {
	department, err := s.GetDepartment(ctx, scope, id)
	if err != nil {
		return err
	}
	children, err := s.departments.CountChildren(ctx, id)
	if err != nil {
		return internalError(err, "failed to count courses")
	}
	if err := deletionError(lifecycle.CheckDeletable("", children), "department"); err != nil {
		return err
	}
	if err := s.departments.Delete(ctx, id); err != nil {
		return deleteError(err, "department", "department not found", "failed to delete department")
	}
	publish(s.publisher, realtime.OpDeleted, kindDepartment, department.Path)
	return nil
}

// ListCourses returns the courses of a department.
func (s *StructureService) ListCourses(ctx context.Context, scope models.Scope) ([]models.Course, error) {
	if err := s.requireDepartment(ctx, scope); err != nil {
		return nil, err
	}
	list, err := s.courses.List(ctx, scope)
	if err != nil {
		return nil, internalError(err, "failed to list courses")
	}
	return list, nil
}

// GetCourse returns one course.
func (s *StructureService) GetCourse(ctx context.Context, scope models.Scope, id string) (*models.Course, error) {
	if err := s.requireDepartment(ctx, scope); err != nil {
		return nil, err
	}
	course, err := s.courses.FindByID(ctx, scope, id)
	if err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	return course, nil
}

// CreateCourse adds a course to a department. Name and code are unique in the department.
func (s *StructureService) CreateCourse(ctx context.Context, scope models.Scope, req CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid course payload")
	}
	if err := s.requireDepartment(ctx, scope); err != nil {
		return nil, err
	}
	name, code := lifecycle.NormalizeName(req.CourseName), strings.TrimSpace(req.CourseCode)
	if err := s.checkCourse(ctx, scope, name, code, ""); err != nil {
		return nil, err
	}
	course := &models.Course{
		AcademicYearID: scope.AcademicYearID,
		SemesterID:     scope.SemesterID,
		DepartmentID:   scope.DepartmentID,
		CourseName:     name,
		CourseCode:     code,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, writeError(err, "course already exists", "failed to create course")
	}
	publish(s.publisher, realtime.OpCreated, kindCourse, course.Path)
	return course, nil
}

// UpdateCourse renames or recodes a course.
func (s *StructureService) UpdateCourse(ctx context.Context, scope models.Scope, id string, req CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid course payload")
	}
	course, err := s.GetCourse(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	name, code := lifecycle.NormalizeName(req.CourseName), strings.TrimSpace(req.CourseCode)
	if err := s.checkCourse(ctx, scope, name, code, id); err != nil {
		return nil, err
	}
	course.CourseName = name
	course.CourseCode = code
	if err := s.courses.Update(ctx, course); err != nil {
		return nil, writeError(err, "course already exists", "failed to update course")
	}
	publish(s.publisher, realtime.OpUpdated, kindCourse, course.Path)
	return course, nil
}

func (s *StructureService) checkCourse(ctx context.Context, scope models.Scope, name, code, selfID string) error {
	if err := s.checkName(ctx, s.courses.Names, scope, name, selfID, "course"); err != nil {
		return err
	}
	codes, err := s.courses.Codes(ctx, scope)
	if err != nil {
		return internalError(err, "failed to check course code uniqueness")
	}
	if lifecycle.DuplicateName(code, selfID, codes) {
		return appErrors.Clone(appErrors.ErrConflict, "course code already exists")
	}
	return nil
}

// DeleteCourse removes a course without year levels.
func (s *StructureService) DeleteCourse(ctx context.Context, scope models.Scope, id string) error {
	course, err := s.GetCourse(ctx, scope, id)
	if err != nil {
		return err
	}
	children, err := s.courses.CountChildren(ctx, id)
	if err != nil {
		return internalError(err, "failed to count year levels")
	}
	if err := deletionError(lifecycle.CheckDeletable("", children), "course"); err != nil {
		return err
	}
	if err := s.courses.Delete(ctx, id); err != nil {
		return deleteError(err, "course", "course not found", "failed to delete course")
	}
	publish(s.publisher, realtime.OpDeleted, kindCourse, course.Path)
	return nil
}

// ListYearLevels returns the year levels of a course.
func (s *StructureService) ListYearLevels(ctx context.Context, scope models.Scope) ([]models.YearLevel, error) {
	if err := s.requireCourse(ctx, scope); err != nil {
		return nil, err
	}
	list, err := s.yearLevels.List(ctx, scope)
	if err != nil {
		return nil, internalError(err, "failed to list year levels")
	}
	return list, nil
}

// GetYearLevel returns one year level.
func (s *StructureService) GetYearLevel(ctx context.Context, scope models.Scope, id string) (*models.YearLevel, error) {
	if err := s.requireCourse(ctx, scope); err != nil {
		return nil, err
	}
	level, err := s.yearLevels.FindByID(ctx, scope, id)
	if err != nil {
		return nil, lookupError(err, "year level not found", "failed to load year level")
	}
	return level, nil
}

// CreateYearLevel adds one of the fixed year levels to a course.
func (s *StructureService) CreateYearLevel(ctx context.Context, scope models.Scope, req YearLevelRequest) (*models.YearLevel, error) {
	name, err := s.validateYearLevel(req)
	if err != nil {
		return nil, err
	}
	if err := s.requireCourse(ctx, scope); err != nil {
		return nil, err
	}
	if err := s.checkName(ctx, s.yearLevels.Names, scope, name, "", "year level"); err != nil {
		return nil, err
	}
	level := &models.YearLevel{
		AcademicYearID: scope.AcademicYearID,
		SemesterID:     scope.SemesterID,
		DepartmentID:   scope.DepartmentID,
		CourseID:       scope.CourseID,
		YearLevelName:  name,
	}
	if err := s.yearLevels.Create(ctx, level); err != nil {
		return nil, writeError(err, "year level already exists", "failed to create year level")
	}
	publish(s.publisher, realtime.OpCreated, kindYearLevel, level.Path)
	return level, nil
}

// UpdateYearLevel renames a year level.
func (s *StructureService) UpdateYearLevel(ctx context.Context, scope models.Scope, id string, req YearLevelRequest) (*models.YearLevel, error) {
	name, err := s.validateYearLevel(req)
	if err != nil {
		return nil, err
	}
	level, err := s.GetYearLevel(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkName(ctx, s.yearLevels.Names, scope, name, id, "year level"); err != nil {
		return nil, err
	}
	level.YearLevelName = name
	if err := s.yearLevels.Update(ctx, level); err != nil {
		return nil, writeError(err, "year level already exists", "failed to update year level")
	}
	publish(s.publisher, realtime.OpUpdated, kindYearLevel, level.Path)
	return level, nil
}

func (s *StructureService) validateYearLevel(req YearLevelRequest) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", validationError(err, "invalid year level payload")
	}
	name := lifecycle.NormalizeName(req.YearLevelName)
	for _, allowed := range models.YearLevelNames {
		if name == allowed {
			return name, nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrValidation, "yearLevelName must be one of "+strings.Join(models.YearLevelNames, ", "))
}

// DeleteYearLevel removes a year level without sections or subjects.
func (s *StructureService) DeleteYearLevel(ctx context.Context, scope models.Scope, id string) error {
	level, err := s.GetYearLevel(ctx, scope, id)
	if err != nil {
		return err
	}
	children, err := s.yearLevels.CountChildren(ctx, id)
	if err != nil {
		return internalError(err, "failed to count sections and subjects")
	}
	if err := deletionError(lifecycle.CheckDeletable("", children), "year level"); err != nil {
		return err
	}
	if err := s.yearLevels.Delete(ctx, id); err != nil {
		return deleteError(err, "year level", "year level not found", "failed to delete year level")
	}
	publish(s.publisher, realtime.OpDeleted, kindYearLevel, level.Path)
	return nil
}

// ListSections returns the sections of a year level.
func (s *StructureService) ListSections(ctx context.Context, scope models.Scope) ([]models.Section, error) {
	if err := s.requireYearLevel(ctx, scope); err != nil {
		return nil, err
	}
	list, err := s.sections.List(ctx, scope)
	if err != nil {
		return nil, internalError(err, "failed to list sections")
	}
	return list, nil
}

// GetSection returns one section.
func (s *StructureService) GetSection(ctx context.Context, scope models.Scope, id string) (*models.Section, error) {
	if err := s.requireYearLevel(ctx, scope); err != nil {
		return nil, err
	}
	section, err := s.sections.FindByID(ctx, scope, id)
	if err != nil {
		return nil, lookupError(err, "section not found", "failed to load section")
	}
	return section, nil
}

// CreateSection adds a section to a year level. Status defaults to Upcoming.
func (s *StructureService) CreateSection(ctx context.Context, scope models.Scope, req SectionRequest) (*models.Section, error) {
	name, status, err := s.validateSection(req, models.StatusUpcoming)
	if err != nil {
		return nil, err
	}
	if err := s.requireYearLevel(ctx, scope); err != nil {
		return nil, err
	}
	if err := s.checkSectionStatus(ctx, scope, status); err != nil {
		return nil, err
	}
	if err := s.checkName(ctx, s.sections.Names, scope, name, "", "section"); err != nil {
		return nil, err
	}
	section := &models.Section{
		AcademicYearID: scope.AcademicYearID,
		SemesterID:     scope.SemesterID,
		DepartmentID:   scope.DepartmentID,
		CourseID:       scope.CourseID,
		YearLevelID:    scope.YearLevelID,
		SectionName:    name,
		Status:         status,
	}
	if err := s.sections.Create(ctx, section); err != nil {
		return nil, sectionWriteError(err, "failed to create section")
	}
	publish(s.publisher, realtime.OpCreated, lifecycle.KindSection, section.Path)
	return section, nil
}

// UpdateSection renames a section or changes its status.
func (s *StructureService) UpdateSection(ctx context.Context, scope models.Scope, id string, req SectionRequest) (*models.Section, error) {
	section, err := s.GetSection(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	name, status, err := s.validateSection(req, section.Status)
	if err != nil {
		return nil, err
	}
	if err := s.checkSectionStatus(ctx, scope, status); err != nil {
		return nil, err
	}
	if err := s.checkName(ctx, s.sections.Names, scope, name, id, "section"); err != nil {
		return nil, err
	}
	section.SectionName = name
	section.Status = status
	if err := s.sections.Update(ctx, section); err != nil {
		return nil, sectionWriteError(err, "failed to update section")
	}
	publish(s.publisher, realtime.OpUpdated, lifecycle.KindSection, section.Path)
	return section, nil
}

const sectionNeedsActiveSemester = "a section can only be Active while its semester is Active"

// checkSectionStatus refuses an Active section under a semester that is not Active.
func (s *StructureService) checkSectionStatus(ctx context.Context, scope models.Scope, status models.PeriodStatus) error {
	if status != models.StatusActive {
		return nil
	}
	semester, err := s.semesters.FindSemester(ctx, scope.AcademicYearID, scope.SemesterID)
	if err != nil {
		return lookupError(err, "semester not found", "failed to load semester")
	}
	if lifecycle.CheckChildStatus(status, semester.Status) != nil {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, sectionNeedsActiveSemester)
	}
	return nil
}

// sectionWriteError also covers a semester leaving Active between the check
// and the write.
func sectionWriteError(err error, internal string) error {
	if errors.Is(err, lifecycle.ErrParentNotActive) {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, sectionNeedsActiveSemester)
	}
	return writeError(err, "section already exists", internal)
}

func (s *StructureService) validateSection(req SectionRequest, fallback models.PeriodStatus) (string, models.PeriodStatus, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", "", validationError(err, "invalid section payload")
	}
	status := req.Status
	if status == "" {
		status = fallback
	}
	if !status.Valid() {
		return "", "", appErrors.Clone(appErrors.ErrValidation, "status must be Active, Upcoming or Archived")
	}
	return lifecycle.NormalizeName(req.SectionName), status, nil
}

// DeleteSection removes a non-active section without schedules.
func (s *StructureService) DeleteSection(ctx context.Context, scope models.Scope, id string) error {
	section, err := s.GetSection(ctx, scope, id)
	if err != nil {
		return err
	}
	children, err := s.sections.CountChildren(ctx, id)
	if err != nil {
		return internalError(err, "failed to count schedules")
	}
	if err := deletionError(lifecycle.CheckDeletable(section.Status, children), "section"); err != nil {
		return err
	}
	if err := s.sections.Delete(ctx, id); err != nil {
		return deleteError(err, "section", "section not found", "failed to delete section")
	}
	publish(s.publisher, realtime.OpDeleted, lifecycle.KindSection, section.Path)
	return nil
}
