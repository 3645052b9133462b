package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/models"
)

type notificationService interface {
	List(ctx context.Context, recipientID string, unreadOnly bool) ([]models.Notification, error)
	MarkRead(ctx context.Context, recipientID, id string) error
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
}

// NotificationHandler serves the caller's notifications.
type NotificationHandler struct {
	service notificationService
}

// NewNotificationHandler constructs a notification handler.
func NewNotificationHandler(svc notificationService) *NotificationHandler {
	return &NotificationHandler{service: svc}
}

// List godoc
// @Summary List the caller's notifications
// @Tags Notifications
// @Produce json
// @Param unread query bool false "Only unread"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	items, err := h.service.List(c.Request.Context(), claims.UserID, c.Query("unread") == "true")
	respondList(c, items, err)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	respondNoContent(c, h.service.MarkRead(c.Request.Context(), claims.UserID, c.Param("notificationId")))
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	n, err := h.service.MarkAllRead(c.Request.Context(), claims.UserID)
	respondOne(c, http.StatusOK, gin.H{"updated": n}, err)
}
