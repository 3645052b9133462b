package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/pkg/database"
)

const requestColumns = "id, type, status, from_user_id, from_role, from_name, to_program_head_id, reason, attachment_url, reviewed_by, reviewed_at, note, created_at, updated_at"

// RequestRepository persists requests and the program-head inbox history.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository instantiates the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// List returns requests filtered by sender, recipient and status, newest first.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error) {
	query := fmt.Sprintf("SELECT %s FROM requests WHERE 1=1", requestColumns)
	var args []interface{}
	if filter.FromUserID != "" {
		query += fmt.Sprintf(" AND from_user_id = $%d", len(args)+1)
		args = append(args, filter.FromUserID)
	}
	if filter.ToProgramHeadID != "" {
		query += fmt.Sprintf(" AND to_program_head_id = $%d", len(args)+1)
		args = append(args, filter.ToProgramHeadID)
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}
	limit := filter.Limit
	if limit <= 0 || limit > maxPageSize {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d OFFSET %d", limit, offset)

	var requests []models.Request
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	for i := range requests {
		requests[i].Locate()
	}
	return requests, nil
}

// FindByID loads a request.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.Request, error) {
	query := fmt.Sprintf("SELECT %s FROM requests WHERE id = $1", requestColumns)
	var req models.Request
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	req.Locate()
	return &req, nil
}

// Create inserts a pending request.
func (r *RequestRepository) Create(ctx context.Context, req *models.Request) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now

	const query = `INSERT INTO requests (id, type, status, from_user_id, from_role, from_name, to_program_head_id, reason, attachment_url, created_at, updated_at) VALUES (:id, :type, :status, :from_user_id, :from_role, :from_name, :to_program_head_id, :reason, :attachment_url, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Locate()
	return nil
}

// SetAttachment stores the attachment key of a request.
func (r *RequestRepository) SetAttachment(ctx context.Context, id, key string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE requests SET attachment_url = $1, updated_at = $2 WHERE id = $3`, key, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set request attachment: %w", err)
	}
	return nil
}

// Review applies a decision to a pending request, appends the inbox entry and
// notifies the requester in one transaction. It returns false when the request
// had already been reviewed.
func (r *RequestRepository) Review(ctx context.Context, req *models.Request, entry *models.InboxEntry, notification *models.Notification) (bool, error) {
	reviewed := false
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		res, err := tx.ExecContext(ctx, `UPDATE requests SET status = $1, reviewed_by = $2, reviewed_at = $3, note = $4, updated_at = $3 WHERE id = $5 AND status = $6`,
			req.Status, req.ReviewedBy, now, req.Note, req.ID, models.ReviewPending)
		if err != nil {
			return fmt.Errorf("review request: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil || n == 0 {
			return err
		}
		req.ReviewedAt = &now
		req.UpdatedAt = now

		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		entry.CreatedAt = now
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO inbox_history (id, program_head_id, request_id, request_type, decision, from_name, note, created_at) VALUES (:id, :program_head_id, :request_id, :request_type, :decision, :from_name, :note, :created_at)`, entry); err != nil {
			return fmt.Errorf("append inbox history: %w", err)
		}
		entry.Locate()

		if err := insertNotification(ctx, tx, notification, now); err != nil {
			return err
		}
		reviewed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return reviewed, nil
}

// InboxHistory lists a program head's reviewed requests, newest first.
func (r *RequestRepository) InboxHistory(ctx context.Context, programHeadID string, limit int) ([]models.InboxEntry, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT id, program_head_id, request_id, request_type, decision, from_name, note, created_at FROM inbox_history WHERE program_head_id = $1 ORDER BY created_at DESC LIMIT %d`, limit)
	var entries []models.InboxEntry
	if err := r.db.SelectContext(ctx, &entries, query, programHeadID); err != nil {
		return nil, fmt.Errorf("list inbox history: %w", err)
	}
	for i := range entries {
		entries[i].Locate()
	}
	return entries, nil
}
