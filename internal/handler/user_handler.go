package handler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/service"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

type userService interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.UserProfile, *models.Pagination, error)
	Get(ctx context.Context, role models.UserRole, id string) (*models.UserProfile, error)
	Create(ctx context.Context, role models.UserRole, req service.CreateUserRequest) (*models.UserProfile, error)
	Update(ctx context.Context, role models.UserRole, id string, req service.UserProfileRequest) (*models.UserProfile, error)
	Delete(ctx context.Context, role models.UserRole, id string) error
}

type bulkUploader interface {
	Upload(ctx context.Context, role models.UserRole, filename string, r io.Reader) (*service.BulkUploadResult, error)
}

type faceEnroller interface {
	Enroll(ctx context.Context, role models.UserRole, userID string, req service.FaceEnrollmentRequest) (*service.FaceEnrollmentResult, error)
}

// UserHandler manages role-partitioned accounts.
type UserHandler struct {
	service     userService
	bulk        bulkUploader
	faces       faceEnroller
	maxFileSize int64
}

// NewUserHandler constructs a user handler. bulk and faces may be nil.
func NewUserHandler(svc userService, bulk bulkUploader, faces faceEnroller, maxFileSize int64) *UserHandler {
	return &UserHandler{service: svc, bulk: bulk, faces: faces, maxFileSize: maxFileSize}
}

// List godoc
// @Summary List accounts of a role
// @Tags Users
// @Produce json
// @Param role path string true "student, teacher, program_head or academic_head"
// @Param departmentId query string false "Department filter"
// @Param sectionId query string false "Section filter"
// @Param search query string false "Name, email or account number"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /users/{role}/accounts [get]
func (h *UserHandler) List(c *gin.Context) {
	filter := models.UserFilter{
		Role:         profileRole(c),
		DepartmentID: c.Query("departmentId"),
		SectionID:    c.Query("sectionId"),
		Search:       strings.TrimSpace(c.Query("search")),
		Page:         queryInt(c, "page", 1),
		PageSize:     queryInt(c, "limit", 20),
		SortBy:       c.Query("sort"),
		SortOrder:    c.Query("order"),
	}
	users, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, pagination)
}

// Get godoc
// @Summary Get account
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /users/{role}/accounts/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.service.Get(c.Request.Context(), profileRole(c), c.Param("id"))
	respondOne(c, http.StatusOK, user, err)
}

// Create godoc
// @Summary Create account
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body service.CreateUserRequest true "Account"
// @Success 201 {object} response.Envelope
// @Router /users/{role}/accounts [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req service.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.service.Create(c.Request.Context(), profileRole(c), req)
	respondOne(c, http.StatusCreated, user, err)
}

// Update godoc
// @Summary Update profile fields
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body service.UserProfileRequest true "Profile"
// @Success 200 {object} response.Envelope
// @Router /users/{role}/accounts/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	var req service.UserProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.service.Update(c.Request.Context(), profileRole(c), c.Param("id"), req)
	respondOne(c, http.StatusOK, user, err)
}

func (h *UserHandler) Delete(c *gin.Context) {
	respondNoContent(c, h.service.Delete(c.Request.Context(), profileRole(c), c.Param("id")))
}

// BulkUpload godoc
// @Summary Create accounts from an .xlsx or .csv sheet
// @Description Required columns: First Name, Last Name, Gender, Date of Birth, Department.
// @Description Invalid rows are reported and skipped; initial passwords are returned once.
// @Tags Users
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Sheet"
// @Success 201 {object} response.Envelope
// @Router /users/{role}/accounts/bulk [post]
func (h *UserHandler) BulkUpload(c *gin.Context) {
	if h.bulk == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnavailable, "bulk upload is disabled"))
		return
	}
	upload, ok := openFormFile(c, "file", h.maxFileSize)
	if !ok {
		return
	}
	defer upload.Close()

	result, err := h.bulk.Upload(c.Request.Context(), profileRole(c), upload.header.Filename, upload.content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, result, nil, map[string]interface{}{
		"created":  len(result.Created),
		"rejected": len(result.Errors),
	})
}

// EnrollFace godoc
// @Summary Check face images and queue registration with the recognition service
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body service.FaceEnrollmentRequest true "Base64 images"
// @Success 202 {object} response.Envelope
// @Router /users/{role}/accounts/{id}/face [post]
func (h *UserHandler) EnrollFace(c *gin.Context) {
	if h.faces == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnavailable, "face recognition is disabled"))
		return
	}
	var req service.FaceEnrollmentRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.faces.Enroll(c.Request.Context(), profileRole(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, result)
}
