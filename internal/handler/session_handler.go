package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/middleware"
	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

type sessionResolver interface {
	Resolve(ctx context.Context) (*models.ActiveSession, bool, error)
}

// SessionHandler exposes the active academic year and semester.
type SessionHandler struct {
	service sessionResolver
}

// NewSessionHandler constructs a session handler.
func NewSessionHandler(svc sessionResolver) *SessionHandler {
	return &SessionHandler{service: svc}
}

// Active godoc
// @Summary Current active academic year and semester
// @Tags Session
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /session/active [get]
func (h *SessionHandler) Active(c *gin.Context) {
	session, cached, err := h.service.Resolve(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, session, nil, middleware.ExtractMeta(c))
}
