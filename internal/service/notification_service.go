package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/realtime"
	"github.com/noah-isme/school-admin-api/pkg/docpath"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

type notificationRepository interface {
	ListForRecipient(ctx context.Context, recipientID string, unreadOnly bool) ([]models.Notification, error)
	MarkRead(ctx context.Context, recipientID, id string) (bool, error)
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
}

// NotificationService exposes a user's notifications.
type NotificationService struct {
	repo      notificationRepository
	logger    *zap.Logger
	publisher realtime.Publisher
}

// NewNotificationService constructs the service.
func NewNotificationService(repo notificationRepository, logger *zap.Logger, publisher realtime.Publisher) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	return &NotificationService{repo: repo, logger: logger, publisher: publisher}
}

// List returns the recipient's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, recipientID string, unreadOnly bool) ([]models.Notification, error) {
	list, err := s.repo.ListForRecipient(ctx, recipientID, unreadOnly)
	if err != nil {
		return nil, internalError(err, "failed to list notifications")
	}
	if list == nil {
		list = []models.Notification{}
	}
	return list, nil
}

// MarkRead flags one of the recipient's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, recipientID, id string) error {
	ok, err := s.repo.MarkRead(ctx, recipientID, id)
	if err != nil {
		return internalError(err, "failed to mark notification read")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	publish(s.publisher, realtime.OpUpdated, kindNotification, docpath.Notification(id))
	return nil
}

// MarkAllRead flags every unread notification of the recipient and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, recipientID)
	if err != nil {
		return 0, internalError(err, "failed to mark notifications read")
	}
	s.logger.Debug("notifications marked read", zap.String("recipient_id", recipientID), zap.Int64("count", n))
	return n, nil
}
