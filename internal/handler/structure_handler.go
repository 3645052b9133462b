package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/service"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

type structureService interface {
	ListDepartments(ctx context.Context, scope models.Scope) ([]models.Department, error)
	GetDepartment(ctx context.Context, scope models.Scope, id string) (*models.Department, error)
	CreateDepartment(ctx context.Context, scope models.Scope, req service.DepartmentRequest) (*models.Department, error)
	UpdateDepartment(ctx context.Context, scope models.Scope, id string, req service.DepartmentRequest) (*models.Department, error)
	DeleteDepartment(ctx context.Context, scope models.Scope, id string) error

	ListCourses(ctx context.Context, scope models.Scope) ([]models.Course, error)
	GetCourse(ctx context.Context, scope models.Scope, id string) (*models.Course, error)
	CreateCourse(ctx context.Context, scope models.Scope, req service.CourseRequest) (*models.Course, error)
	UpdateCourse(ctx context.Context, scope models.Scope, id string, req service.CourseRequest) (*models.Course, error)
	DeleteCourse(ctx context.Context, scope models.Scope, id string) error

	ListYearLevels(ctx context.Context, scope models.Scope) ([]models.YearLevel, error)
	GetYearLevel(ctx context.Context, scope models.Scope, id string) (*models.YearLevel, error)
	CreateYearLevel(ctx context.Context, scope models.Scope, req service.YearLevelRequest) (*models.YearLevel, error)
	UpdateYearLevel(ctx context.Context, scope models.Scope, id string, req service.YearLevelRequest) (*models.YearLevel, error)
	DeleteYearLevel(ctx context.Context, scope models.Scope, id string) error

	ListSections(ctx context.Context, scope models.Scope) ([]models.Section, error)
	GetSection(ctx context.Context, scope models.Scope, id string) (*models.Section, error)
	CreateSection(ctx context.Context, scope models.Scope, req service.SectionRequest) (*models.Section, error)
	UpdateSection(ctx context.Context, scope models.Scope, id string, req service.SectionRequest) (*models.Section, error)
	DeleteSection(ctx context.Context, scope models.Scope, id string) error
}

// StructureHandler serves departments, courses, year levels and sections.
// Every route carries its ancestors' ids, mirroring the resource path.
type StructureHandler struct {
	service structureService
}

// NewStructureHandler constructs a structure handler.
func NewStructureHandler(svc structureService) *StructureHandler {
	return &StructureHandler{service: svc}
}

func respondList(c *gin.Context, data interface{}, err error) {
	response.Respond(c, http.StatusOK, data, err)
}

func respondOne(c *gin.Context, status int, data interface{}, err error) {
	response.Respond(c, status, data, err)
}

func respondNoContent(c *gin.Context, err error) {
	response.Respond(c, http.StatusNoContent, nil, err)
}

// ListDepartments godoc
// @Summary List departments of a semester
// @Tags Structure
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Param semesterId path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Router /academic_years/{yearId}/semesters/{semesterId}/departments [get]
func (h *StructureHandler) ListDepartments(c *gin.Context) {
	list, err := h.service.ListDepartments(c.Request.Context(), scopeFromParams(c))
	respondList(c, list, err)
}

func (h *StructureHandler) GetDepartment(c *gin.Context) {
	department, err := h.service.GetDepartment(c.Request.Context(), scopeFromParams(c), c.Param(paramDepartment))
	respondOne(c, http.StatusOK, department, err)
}

// CreateDepartment godoc
// @Summary Create department
// @Tags Structure
// @Accept json
// @Produce json
// @Param payload body service.DepartmentRequest true "Department"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /academic_years/{yearId}/semesters/{semesterId}/departments [post]
func (h *StructureHandler) CreateDepartment(c *gin.Context) {
	var req service.DepartmentRequest
	if !bindJSON(c, &req) {
		return
	}
	department, err := h.service.CreateDepartment(c.Request.Context(), scopeFromParams(c), req)
	respondOne(c, http.StatusCreated, department, err)
}

func (h *StructureHandler) UpdateDepartment(c *gin.Context) {
	var req service.DepartmentRequest
	if !bindJSON(c, &req) {
		return
	}
	department, err := h.service.UpdateDepartment(c.Request.Context(), scopeFromParams(c), c.Param(paramDepartment), req)
	respondOne(c, http.StatusOK, department, err)
}

// DeleteDepartment godoc
// @Summary Delete department without courses
// @Tags Structure
// @Success 204
// @Failure 412 {object} response.Envelope
// @Router /academic_years/{yearId}/semesters/{semesterId}/departments/{departmentId} [delete]
func (h *StructureHandler) DeleteDepartment(c *gin.Context) {
	respondNoContent(c, h.service.DeleteDepartment(c.Request.Context(), scopeFromParams(c), c.Param(paramDepartment)))
}

func (h *StructureHandler) ListCourses(c *gin.Context) {
	list, err := h.service.ListCourses(c.Request.Context(), scopeFromParams(c))
	respondList(c, list, err)
}

func (h *StructureHandler) GetCourse(c *gin.Context) {
	course, err := h.service.GetCourse(c.Request.Context(), scopeFromParams(c), c.Param(paramCourse))
	respondOne(c, http.StatusOK, course, err)
}

// CreateCourse godoc
// @Summary Create course
// @Tags Structure
// @Accept json
// @Produce json
// @Param payload body service.CourseRequest true "Course"
// @Success 201 {object} response.Envelope
// @Router /academic_years/{yearId}/semesters/{semesterId}/departments/{departmentId}/courses [post]
func (h *StructureHandler) CreateCourse(c *gin.Context) {
	var req service.CourseRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.service.CreateCourse(c.Request.Context(), scopeFromParams(c), req)
	respondOne(c, http.StatusCreated, course, err)
}

func (h *StructureHandler) UpdateCourse(c *gin.Context) {
	var req service.CourseRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.service.UpdateCourse(c.Request.Context(), scopeFromParams(c), c.Param(paramCourse), req)
	respondOne(c, http.StatusOK, course, err)
}

func (h *StructureHandler) DeleteCourse(c *gin.Context) {
	respondNoContent(c, h.service.DeleteCourse(c.Request.Context(), scopeFromParams(c), c.Param(paramCourse)))
}

func (h *StructureHandler) ListYearLevels(c *gin.Context) {
	list, err := h.service.ListYearLevels(c.Request.Context(), scopeFromParams(c))
	respondList(c, list, err)
}

func (h *StructureHandler) GetYearLevel(c *gin.Context) {
	level, err := h.service.GetYearLevel(c.Request.Context(), scopeFromParams(c), c.Param(paramYearLevel))
	respondOne(c, http.StatusOK, level, err)
}

// CreateYearLevel godoc
// @Summary Create year level (1st Year to 4th Year)
// @Tags Structure
// @Accept json
// @Produce json
// @Param payload body service.YearLevelRequest true "Year level"
// @Success 201 {object} response.Envelope
// @Router /academic_years/{yearId}/semesters/{semesterId}/departments/{departmentId}/courses/{courseId}/year_levels [post]
func (h *StructureHandler) CreateYearLevel(c *gin.Context) {
	var req service.YearLevelRequest
	if !bindJSON(c, &req) {
		return
	}
	level, err := h.service.CreateYearLevel(c.Request.Context(), scopeFromParams(c), req)
	respondOne(c, http.StatusCreated, level, err)
}

func (h *StructureHandler) UpdateYearLevel(c *gin.Context) {
	var req service.YearLevelRequest
	if !bindJSON(c, &req) {
		return
	}
	level, err := h.service.UpdateYearLevel(c.Request.Context(), scopeFromParams(c), c.Param(paramYearLevel), req)
	respondOne(c, http.StatusOK, level, err)
}

func (h *StructureHandler) DeleteYearLevel(c *gin.Context) {
	respondNoContent(c, h.service.DeleteYearLevel(c.Request.Context(), scopeFromParams(c), c.Param(paramYearLevel)))
}

func (h *StructureHandler) ListSections(c *gin.Context) {
	list, err := h.service.ListSections(c.Request.Context(), scopeFromParams(c))
	respondList(c, list, err)
}

func (h *StructureHandler) GetSection(c *gin.Context) {
	section, err := h.service.GetSection(c.Request.Context(), scopeFromParams(c), c.Param(paramSection))
	respondOne(c, http.StatusOK, section, err)
}

// CreateSection godoc
// @Summary Create section; status defaults to Upcoming
// @Tags Structure
// @Accept json
// @Produce json
// @Param payload body service.SectionRequest true "Section"
// @Success 201 {object} response.Envelope
// @Router /academic_years/{yearId}/semesters/{semesterId}/departments/{departmentId}/courses/{courseId}/year_levels/{yearLevelId}/sections [post]
func (h *StructureHandler) CreateSection(c *gin.Context) {
	var req service.SectionRequest
	if !bindJSON(c, &req) {
		return
	}
	section, err := h.service.CreateSection(c.Request.Context(), scopeFromParams(c), req)
	respondOne(c, http.StatusCreated, section, err)
}

func (h *StructureHandler) UpdateSection(c *gin.Context) {
	var req service.SectionRequest
	if !bindJSON(c, &req) {
		return
	}
	section, err := h.service.UpdateSection(c.Request.Context(), scopeFromParams(c), c.Param(paramSection), req)
	respondOne(c, http.StatusOK, section, err)
}

// DeleteSection godoc
// @Summary Delete a non-active section without schedules
// @Tags Structure
// @Success 204
// @Failure 412 {object} response.Envelope
// @Router /academic_years/{yearId}/semesters/{semesterId}/departments/{departmentId}/courses/{courseId}/year_levels/{yearLevelId}/sections/{sectionId} [delete]
func (h *StructureHandler) DeleteSection(c *gin.Context) {
	respondNoContent(c, h.service.DeleteSection(c.Request.Context(), scopeFromParams(c), c.Param(paramSection)))
}
