package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-admin-api/internal/models"
)

// NotificationRepository persists per-user notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository instantiates the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// ListForRecipient returns a user's notifications, newest first.
func (r *NotificationRepository) ListForRecipient(ctx context.Context, recipientID string, unreadOnly bool) ([]models.Notification, error) {
	query := `SELECT id, recipient_id, title, message, link, read, created_at FROM notifications WHERE recipient_id = $1`
	if unreadOnly {
		query += " AND read = FALSE"
	}
	query += " ORDER BY created_at DESC LIMIT 100"

	var list []models.Notification
	if err := r.db.SelectContext(ctx, &list, query, recipientID); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	for i := range list {
		list[i].Locate()
	}
	return list, nil
}

// Create stores a notification.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return insertNotification(ctx, r.db, n, time.Now().UTC())
}

// MarkRead flags a notification of recipientID as read. It returns false when no
// such notification exists.
func (r *NotificationRepository) MarkRead(ctx context.Context, recipientID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND recipient_id = $2`, id, recipientID)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark notification read rows: %w", err)
	}
	return n > 0, nil
}

// MarkAllRead flags every notification of recipientID as read.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE recipient_id = $1 AND read = FALSE`, recipientID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func insertNotification(ctx context.Context, db sqlx.ExtContext, n *models.Notification, now time.Time) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = now
	const query = `INSERT INTO notifications (id, recipient_id, title, message, link, read, created_at) VALUES (:id, :recipient_id, :title, :message, :link, :read, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, db, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	n.Locate()
	return nil
}
