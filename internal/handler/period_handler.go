package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/service"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

type periodService interface {
	ListAcademicYears(ctx context.Context, filter models.PeriodFilter) ([]models.AcademicYear, *models.Pagination, error)
	GetAcademicYear(ctx context.Context, id string) (*models.AcademicYear, error)
	CreateAcademicYear(ctx context.Context, req service.AcademicYearRequest) (*models.AcademicYear, error)
	UpdateAcademicYear(ctx context.Context, id string, req service.AcademicYearRequest) (*models.AcademicYear, error)
	DeleteAcademicYear(ctx context.Context, id string) error
	ActivateAcademicYear(ctx context.Context, id string) (*models.Transition, error)
	ArchiveAcademicYear(ctx context.Context, id string) (*models.Transition, error)
	ListSemesters(ctx context.Context, yearID string, filter models.PeriodFilter) ([]models.Semester, *models.Pagination, error)
	GetSemester(ctx context.Context, yearID, id string) (*models.Semester, error)
	CreateSemester(ctx context.Context, yearID string, req service.SemesterRequest) (*models.Semester, error)
	UpdateSemester(ctx context.Context, yearID, id string, req service.SemesterRequest) (*models.Semester, error)
	DeleteSemester(ctx context.Context, yearID, id string) error
	ActivateSemester(ctx context.Context, yearID, id string) (*models.Transition, error)
	ArchiveSemester(ctx context.Context, yearID, id string) (*models.Transition, error)
}

// PeriodHandler serves academic years and semesters.
type PeriodHandler struct {
	service periodService
}

// NewPeriodHandler constructs a period handler.
func NewPeriodHandler(svc periodService) *PeriodHandler {
	return &PeriodHandler{service: svc}
}

func periodFilter(c *gin.Context) models.PeriodFilter {
	return models.PeriodFilter{
		Status:    models.PeriodStatus(c.Query("status")),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "limit", 20),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
}

// ListAcademicYears godoc
// @Summary List academic years
// @Tags Periods
// @Produce json
// @Param status query string false "Active, Upcoming or Archived"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /academic_years [get]
func (h *PeriodHandler) ListAcademicYears(c *gin.Context) {
	years, pagination, err := h.service.ListAcademicYears(c.Request.Context(), periodFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, years, pagination)
}

// GetAcademicYear godoc
// @Summary Get academic year
// @Tags Periods
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Router /academic_years/{yearId} [get]
func (h *PeriodHandler) GetAcademicYear(c *gin.Context) {
	year, err := h.service.GetAcademicYear(c.Request.Context(), c.Param(paramYear))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// CreateAcademicYear godoc
// @Summary Create academic year
// @Tags Periods
// @Accept json
// @Produce json
// @Param payload body service.AcademicYearRequest true "Academic year"
// @Success 201 {object} response.Envelope
// @Router /academic_years [post]
func (h *PeriodHandler) CreateAcademicYear(c *gin.Context) {
	var req service.AcademicYearRequest
	if !bindJSON(c, &req) {
		return
	}
	year, err := h.service.CreateAcademicYear(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, year)
}

// UpdateAcademicYear godoc
// @Summary Rename academic year
// @Tags Periods
// @Accept json
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Param payload body service.AcademicYearRequest true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /academic_years/{yearId} [put]
func (h *PeriodHandler) UpdateAcademicYear(c *gin.Context) {
	var req service.AcademicYearRequest
	if !bindJSON(c, &req) {
		return
	}
	year, err := h.service.UpdateAcademicYear(c.Request.Context(), c.Param(paramYear), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// DeleteAcademicYear godoc
// @Summary Delete academic year
// @Tags Periods
// @Param yearId path string true "Academic year ID"
// @Success 204
// @Failure 412 {object} response.Envelope
// @Router /academic_years/{yearId} [delete]
func (h *PeriodHandler) DeleteAcademicYear(c *gin.Context) {
	if err := h.service.DeleteAcademicYear(c.Request.Context(), c.Param(paramYear)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ActivateAcademicYear godoc
// @Summary Activate academic year, archiving the previously active one
// @Tags Periods
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Router /academic_years/{yearId}/activate [post]
func (h *PeriodHandler) ActivateAcademicYear(c *gin.Context) {
	result, err := h.service.ActivateAcademicYear(c.Request.Context(), c.Param(paramYear))
	h.transition(c, result, err)
}

// ArchiveAcademicYear godoc
// @Summary Archive academic year and its active descendants
// @Tags Periods
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Router /academic_years/{yearId}/archive [post]
func (h *PeriodHandler) ArchiveAcademicYear(c *gin.Context) {
	result, err := h.service.ArchiveAcademicYear(c.Request.Context(), c.Param(paramYear))
	h.transition(c, result, err)
}

// ListSemesters godoc
// @Summary List semesters of an academic year
// @Tags Periods
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Router /academic_years/{yearId}/semesters [get]
func (h *PeriodHandler) ListSemesters(c *gin.Context) {
	semesters, pagination, err := h.service.ListSemesters(c.Request.Context(), c.Param(paramYear), periodFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, semesters, pagination)
}

// GetSemester godoc
// @Summary Get semester
// @Tags Periods
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Param semesterId path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Router /academic_years/{yearId}/semesters/{semesterId} [get]
func (h *PeriodHandler) GetSemester(c *gin.Context) {
	semester, err := h.service.GetSemester(c.Request.Context(), c.Param(paramYear), c.Param(paramSemester))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, semester, nil)
}

// CreateSemester godoc
// @Summary Create semester
// @Tags Periods
// @Accept json
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Param payload body service.SemesterRequest true "Semester"
// @Success 201 {object} response.Envelope
// @Router /academic_years/{yearId}/semesters [post]
func (h *PeriodHandler) CreateSemester(c *gin.Context) {
	var req service.SemesterRequest
	if !bindJSON(c, &req) {
		return
	}
	semester, err := h.service.CreateSemester(c.Request.Context(), c.Param(paramYear), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, semester)
}

// UpdateSemester godoc
// @Summary Update semester
// @Tags Periods
// @Accept json
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Param semesterId path string true "Semester ID"
// @Param payload body service.SemesterRequest true "Semester"
// @Success 200 {object} response.Envelope
// @Router /academic_years/{yearId}/semesters/{semesterId} [put]
func (h *PeriodHandler) UpdateSemester(c *gin.Context) {
	var req service.SemesterRequest
	if !bindJSON(c, &req) {
		return
	}
	semester, err := h.service.UpdateSemester(c.Request.Context(), c.Param(paramYear), c.Param(paramSemester), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, semester, nil)
}

// DeleteSemester godoc
// @Summary Delete semester
// @Tags Periods
// @Param yearId path string true "Academic year ID"
// @Param semesterId path string true "Semester ID"
// @Success 204
// @Router /academic_years/{yearId}/semesters/{semesterId} [delete]
func (h *PeriodHandler) DeleteSemester(c *gin.Context) {
	if err := h.service.DeleteSemester(c.Request.Context(), c.Param(paramYear), c.Param(paramSemester)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ActivateSemester godoc
// @Summary Activate semester, archiving its active sibling
// @Tags Periods
// @Param yearId path string true "Academic year ID"
// @Param semesterId path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Router /academic_years/{yearId}/semesters/{semesterId}/activate [post]
func (h *PeriodHandler) ActivateSemester(c *gin.Context) {
	result, err := h.service.ActivateSemester(c.Request.Context(), c.Param(paramYear), c.Param(paramSemester))
	h.transition(c, result, err)
}

// ArchiveSemester godoc
// @Summary Archive semester and its active sections
// @Tags Periods
// @Param yearId path string true "Academic year ID"
// @Param semesterId path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Router /academic_years/{yearId}/semesters/{semesterId}/archive [post]
func (h *PeriodHandler) ArchiveSemester(c *gin.Context) {
	result, err := h.service.ArchiveSemester(c.Request.Context(), c.Param(paramYear), c.Param(paramSemester))
	h.transition(c, result, err)
}

func (h *PeriodHandler) transition(c *gin.Context, result *models.Transition, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
