package models

import (
	"time"

	"github.com/noah-isme/school-admin-api/pkg/docpath"
)

// Request is a change or leave request routed to a program head for review.
type Request struct {
	ID              string       `db:"id" json:"id"`
	Type            string       `db:"type" json:"type"`
	Status          ReviewStatus `db:"status" json:"status"`
	FromUserID      string       `db:"from_user_id" json:"fromUserId"`
	FromRole        UserRole     `db:"from_role" json:"fromRole"`
	FromName        string       `db:"from_name" json:"fromName"`
	ToProgramHeadID string       `db:"to_program_head_id" json:"toProgramHeadId"`
	Reason          string       `db:"reason" json:"reason"`
	AttachmentURL   *string      `db:"attachment_url" json:"attachmentUrl,omitempty"`
	ReviewedBy      *string      `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time   `db:"reviewed_at" json:"reviewedAt,omitempty"`
	Note            *string      `db:"note" json:"note,omitempty"`
	CreatedAt       time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updatedAt"`
	Path            string       `db:"-" json:"path"`
}

// Locate fills the resource path.
func (r *Request) Locate() {
	r.Path = docpath.Request(r.ID)
}

// RequestFilter constrains request listings.
type RequestFilter struct {
	Status          ReviewStatus
	FromUserID      string
	ToProgramHeadID string
	Limit           int
	Offset          int
}

// InboxEntry records a reviewed request in a program head's inbox history.
type InboxEntry struct {
	ID            string       `db:"id" json:"id"`
	ProgramHeadID string       `db:"program_head_id" json:"programHeadId"`
	RequestID     string       `db:"request_id" json:"requestId"`
	RequestType   string       `db:"request_type" json:"requestType"`
	Decision      ReviewStatus `db:"decision" json:"decision"`
	FromName      string       `db:"from_name" json:"fromName"`
	Note          *string      `db:"note" json:"note,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"createdAt"`
	Path          string       `db:"-" json:"path"`
}

// Locate fills the resource path.
func (e *InboxEntry) Locate() {
	e.Path = docpath.InboxEntry(e.ProgramHeadID, e.ID)
}

// Notification is a message delivered to one user.
type Notification struct {
	ID          string    `db:"id" json:"id"`
	RecipientID string    `db:"recipient_id" json:"recipientId"`
	Title       string    `db:"title" json:"title"`
	Message     string    `db:"message" json:"message"`
	Link        *string   `db:"link" json:"link,omitempty"`
	Read        bool      `db:"read" json:"read"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	Path        string    `db:"-" json:"path"`
}

// Locate fills the resource path.
func (n *Notification) Locate() {
	n.Path = docpath.Notification(n.ID)
}
