package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/service"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

type scheduleService interface {
	ListBySection(ctx context.Context, scope models.Scope) ([]models.Schedule, error)
	ListByInstructor(ctx context.Context, semesterID, instructorID string) ([]models.Schedule, error)
	Get(ctx context.Context, scope models.Scope, id string) (*models.Schedule, error)
	Create(ctx context.Context, scope models.Scope, req service.ScheduleRequest) (*models.Schedule, error)
	Update(ctx context.Context, scope models.Scope, id string, req service.ScheduleRequest) (*models.Schedule, error)
	Delete(ctx context.Context, scope models.Scope, id string) error
}

type timetableExporter interface {
	ExportTimetable(ctx context.Context, scope models.Scope, format service.ExportFormat) (*service.ExportResult, error)
}

// ScheduleHandler serves section timetables.
type ScheduleHandler struct {
	service  scheduleService
	exporter timetableExporter
}

// NewScheduleHandler constructs a schedule handler.
func NewScheduleHandler(svc scheduleService, exporter timetableExporter) *ScheduleHandler {
	return &ScheduleHandler{service: svc, exporter: exporter}
}

// List godoc
// @Summary List a section's schedules
// @Tags Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /academic_years/{yearId}/semesters/{semesterId}/departments/{departmentId}/courses/{courseId}/year_levels/{yearLevelId}/sections/{sectionId}/schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	schedules, err := h.service.ListBySection(c.Request.Context(), scopeFromParams(c))
	respondList(c, schedules, err)
}

// ListByInstructor godoc
// @Summary List an instructor's teaching load in a semester
// @Tags Schedules
// @Produce json
// @Param instructorId path string true "Instructor account ID"
// @Success 200 {object} response.Envelope
// @Router /academic_years/{yearId}/semesters/{semesterId}/instructors/{instructorId}/schedules [get]
func (h *ScheduleHandler) ListByInstructor(c *gin.Context) {
	schedules, err := h.service.ListByInstructor(c.Request.Context(), c.Param(paramSemester), c.Param("instructorId"))
	respondList(c, schedules, err)
}

func (h *ScheduleHandler) Get(c *gin.Context) {
	schedule, err := h.service.Get(c.Request.Context(), scopeFromParams(c), c.Param("scheduleId"))
	respondOne(c, http.StatusOK, schedule, err)
}

// Create godoc
// @Summary Add a schedule entry; refuses room and instructor double booking
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.ScheduleRequest true "Schedule"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /academic_years/{yearId}/semesters/{semesterId}/departments/{departmentId}/courses/{courseId}/year_levels/{yearLevelId}/sections/{sectionId}/schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req service.ScheduleRequest
	if !bindJSON(c, &req) {
		return
	}
	schedule, err := h.service.Create(c.Request.Context(), scopeFromParams(c), req)
	respondOne(c, http.StatusCreated, schedule, err)
}

func (h *ScheduleHandler) Update(c *gin.Context) {
	var req service.ScheduleRequest
	if !bindJSON(c, &req) {
		return
	}
	schedule, err := h.service.Update(c.Request.Context(), scopeFromParams(c), c.Param("scheduleId"), req)
	respondOne(c, http.StatusOK, schedule, err)
}

func (h *ScheduleHandler) Delete(c *gin.Context) {
	respondNoContent(c, h.service.Delete(c.Request.Context(), scopeFromParams(c), c.Param("scheduleId")))
}

// Export godoc
// @Summary Export a section timetable
// @Tags Schedules
// @Produce json
// @Param format query string false "csv (default) or pdf"
// @Success 201 {object} response.Envelope
// @Router /academic_years/{yearId}/semesters/{semesterId}/departments/{departmentId}/courses/{courseId}/year_levels/{yearLevelId}/sections/{sectionId}/timetable/export [post]
func (h *ScheduleHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnavailable, "exports are disabled"))
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportFormatCSV)))
	result, err := h.exporter.ExportTimetable(c.Request.Context(), scopeFromParams(c), format)
	respondOne(c, http.StatusCreated, result, err)
}
