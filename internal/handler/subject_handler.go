package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/service"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

type subjectService interface {
	List(ctx context.Context, scope models.Scope, filter models.SubjectFilter) ([]models.Subject, error)
	Get(ctx context.Context, scope models.Scope, id string) (*models.Subject, error)
	Create(ctx context.Context, scope models.Scope, req service.SubjectRequest, createdBy string) (*models.Subject, error)
	Update(ctx context.Context, scope models.Scope, id string, req service.SubjectRequest) (*models.Subject, error)
	Review(ctx context.Context, scope models.Scope, id string, req service.ReviewSubjectRequest, reviewer string) (*models.Subject, error)
	Delete(ctx context.Context, scope models.Scope, id string) error
}

// SubjectHandler handles the subject catalog of a year level.
type SubjectHandler struct {
	service subjectService
}

// NewSubjectHandler constructs a subject handler.
func NewSubjectHandler(svc subjectService) *SubjectHandler {
	return &SubjectHandler{service: svc}
}

// List godoc
// @Summary List subjects of a year level
// @Tags Subjects
// @Produce json
// @Param status query string false "Pending, Approved or Rejected"
// @Param search query string false "Search keyword"
// @Success 200 {object} response.Envelope
// @Router /academic_years/{yearId}/semesters/{semesterId}/departments/{departmentId}/courses/{courseId}/year_levels/{yearLevelId}/subjects [get]
func (h *SubjectHandler) List(c *gin.Context) {
	scope := scopeFromParams(c)
	filter := models.SubjectFilter{
		YearLevelID: scope.YearLevelID,
		Status:      models.ReviewStatus(c.Query("status")),
		Search:      strings.TrimSpace(c.Query("search")),
	}
	subjects, err := h.service.List(c.Request.Context(), scope, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// Get godoc
// @Summary Get subject by id
// @Tags Subjects
// @Produce json
// @Param subjectId path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /academic_years/{yearId}/semesters/{semesterId}/departments/{departmentId}/courses/{courseId}/year_levels/{yearLevelId}/subjects/{subjectId} [get]
func (h *SubjectHandler) Get(c *gin.Context) {
	subject, err := h.service.Get(c.Request.Context(), scopeFromParams(c), c.Param("subjectId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// Create godoc
// @Summary Propose subject (created Pending)
// @Tags Subjects
// @Accept json
// @Produce json
// @Param payload body service.SubjectRequest true "Subject payload"
// @Success 201 {object} response.Envelope
// @Router /academic_years/{yearId}/semesters/{semesterId}/departments/{departmentId}/courses/{courseId}/year_levels/{yearLevelId}/subjects [post]
func (h *SubjectHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req service.SubjectRequest
	if !bindJSON(c, &req) {
		return
	}
	subject, err := h.service.Create(c.Request.Context(), scopeFromParams(c), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subject)
}

// Update godoc
// @Summary Update subject; a rejected subject goes back to Pending
// @Tags Subjects
// @Accept json
// @Produce json
// @Param payload body service.SubjectRequest true "Subject payload"
// @Success 200 {object} response.Envelope
// @Router /academic_years/{yearId}/semesters/{semesterId}/departments/{departmentId}/courses/{courseId}/year_levels/{yearLevelId}/subjects/{subjectId} [put]
func (h *SubjectHandler) Update(c *gin.Context) {
	var req service.SubjectRequest
	if !bindJSON(c, &req) {
		return
	}
	subject, err := h.service.Update(c.Request.Context(), scopeFromParams(c), c.Param("subjectId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// Review godoc
// @Summary Approve or reject a pending subject
// @Tags Subjects
// @Accept json
// @Produce json
// @Param payload body service.ReviewSubjectRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /academic_years/{yearId}/semesters/{semesterId}/departments/{departmentId}/courses/{courseId}/year_levels/{yearLevelId}/subjects/{subjectId}/review [post]
func (h *SubjectHandler) Review(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req service.ReviewSubjectRequest
	if !bindJSON(c, &req) {
		return
	}
	subject, err := h.service.Review(c.Request.Context(), scopeFromParams(c), c.Param("subjectId"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// Delete godoc
// @Summary Delete subject
// @Tags Subjects
// @Success 204
// @Router /academic_years/{yearId}/semesters/{semesterId}/departments/{departmentId}/courses/{courseId}/year_levels/{yearLevelId}/subjects/{subjectId} [delete]
func (h *SubjectHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), scopeFromParams(c), c.Param("subjectId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
