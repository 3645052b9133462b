package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/service"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

type requestService interface {
	Submit(ctx context.Context, actor *models.JWTClaims, req service.SubmitRequest) (*models.Request, error)
	Attach(ctx context.Context, actor *models.JWTClaims, id string, upload service.Attachment) (*models.Request, error)
	OpenAttachment(ctx context.Context, actor *models.JWTClaims, id string) (io.ReadCloser, string, error)
	List(ctx context.Context, actor *models.JWTClaims, filter models.RequestFilter) ([]models.Request, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Request, error)
	Review(ctx context.Context, actor *models.JWTClaims, id string, req service.ReviewRequest) (*models.Request, error)
	InboxHistory(ctx context.Context, actor *models.JWTClaims, limit int) ([]models.InboxEntry, error)
}

// RequestHandler serves requests addressed to program heads.
type RequestHandler struct {
	service     requestService
	maxFileSize int64
}

// NewRequestHandler constructs a request handler.
func NewRequestHandler(svc requestService, maxFileSize int64) *RequestHandler {
	return &RequestHandler{service: svc, maxFileSize: maxFileSize}
}

// List godoc
// @Summary List requests visible to the caller
// @Tags Requests
// @Produce json
// @Param status query string false "Pending, Approved or Rejected"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	filter := models.RequestFilter{
		Status: models.ReviewStatus(c.Query("status")),
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	}
	requests, err := h.service.List(c.Request.Context(), claims, filter)
	respondList(c, requests, err)
}

func (h *RequestHandler) Get(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	request, err := h.service.Get(c.Request.Context(), claims, c.Param("requestId"))
	respondOne(c, http.StatusOK, request, err)
}

// Submit godoc
// @Summary Submit a request to a program head
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body service.SubmitRequest true "Request"
// @Success 201 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Submit(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req service.SubmitRequest
	if !bindJSON(c, &req) {
		return
	}
	request, err := h.service.Submit(c.Request.Context(), claims, req)
	respondOne(c, http.StatusCreated, request, err)
}

// Attach godoc
// @Summary Attach a supporting document to a pending request
// @Tags Requests
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document"
// @Success 200 {object} response.Envelope
// @Router /requests/{requestId}/attachment [post]
func (h *RequestHandler) Attach(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	upload, ok := openFormFile(c, "file", h.maxFileSize)
	if !ok {
		return
	}
	defer upload.Close()

	request, err := h.service.Attach(c.Request.Context(), claims, c.Param("requestId"), service.Attachment{
		Filename: upload.header.Filename,
		Size:     upload.header.Size,
		MimeType: upload.header.Header.Get("Content-Type"),
		Content:  upload.content,
	})
	respondOne(c, http.StatusOK, request, err)
}

// Attachment godoc
// @Summary Download a request's attachment
// @Tags Requests
// @Produce octet-stream
// @Success 200 {file} binary
// @Router /requests/{requestId}/attachment [get]
func (h *RequestHandler) Attachment(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	file, name, err := h.service.OpenAttachment(c.Request.Context(), claims, c.Param("requestId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, -1, contentTypeOf(name), file, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", name),
	})
}

// Review godoc
// @Summary Approve or reject a request; only once
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body service.ReviewRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{requestId}/review [post]
func (h *RequestHandler) Review(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req service.ReviewRequest
	if !bindJSON(c, &req) {
		return
	}
	request, err := h.service.Review(c.Request.Context(), claims, c.Param("requestId"), req)
	respondOne(c, http.StatusOK, request, err)
}

// InboxHistory godoc
// @Summary Program head's reviewed-request history
// @Tags Requests
// @Produce json
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Router /inbox/history [get]
func (h *RequestHandler) InboxHistory(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	entries, err := h.service.InboxHistory(c.Request.Context(), claims, queryInt(c, "limit", 50))
	respondList(c, entries, err)
}
