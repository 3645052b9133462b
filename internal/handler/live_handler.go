package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/logger"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

type liveHub interface {
	ServeWS(w http.ResponseWriter, r *http.Request, prefix string) error
}

// LiveHandler upgrades subscribers to the change feed.
type LiveHandler struct {
	hub    liveHub
	logger *zap.Logger
}

// NewLiveHandler constructs a live handler. A nil hub disables the feed.
func NewLiveHandler(hub liveHub, logger *zap.Logger) *LiveHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiveHandler{hub: hub, logger: logger}
}

// Subscribe godoc
// @Summary Subscribe to change events under a resource path prefix (WebSocket)
// @Tags Live
// @Param prefix query string false "Resource path prefix, e.g. academic_years/{id}"
// @Param access_token query string false "Bearer token for browsers"
// @Success 101
// @Router /live [get]
func (h *LiveHandler) Subscribe(c *gin.Context) {
	if h.hub == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnavailable, "live updates are disabled"))
		return
	}
	if err := h.hub.ServeWS(c.Writer, c.Request, c.Query("prefix")); err != nil {
		// The upgrader has already written the failure response.
		logger.ForRequest(h.logger, c).Debug("websocket upgrade failed", zap.Error(err))
	}
}
