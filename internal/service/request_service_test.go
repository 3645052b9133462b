package service

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/realtime"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/storage"
)

type mockRequestRepo struct {
	items         map[string]*models.Request
	lastFilter    models.RequestFilter
	entries       []*models.InboxEntry
	notifications []*models.Notification
	attachments   map[string]string
	raceLost      bool
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{items: map[string]*models.Request{}, attachments: map[string]string{}}
}

func (m *mockRequestRepo) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error) {
	m.lastFilter = filter
	var out []models.Request
	for _, r := range m.items {
		if (filter.FromUserID == "" || r.FromUserID == filter.FromUserID) &&
			(filter.ToProgramHeadID == "" || r.ToProgramHeadID == filter.ToProgramHeadID) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockRequestRepo) FindByID(ctx context.Context, id string) (*models.Request, error) {
	if r, ok := m.items[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRequestRepo) Create(ctx context.Context, req *models.Request) error {
	req.ID = "req-new"
	req.Locate()
	cp := *req
	m.items[req.ID] = &cp
	return nil
}

func (m *mockRequestRepo) SetAttachment(ctx context.Context, id, key string) error {
	m.attachments[id] = key
	m.items[id].AttachmentURL = &key
	return nil
}

func (m *mockRequestRepo) Review(ctx context.Context, req *models.Request, entry *models.InboxEntry, n *models.Notification) (bool, error) {
	stored := m.items[req.ID]
	if m.raceLost || stored.Status != models.ReviewPending {
		return false, nil
	}
	cp := *req
	m.items[req.ID] = &cp
	entry.ID = "entry-1"
	entry.Locate()
	n.ID = "note-1"
	n.Locate()
	m.entries = append(m.entries, entry)
	m.notifications = append(m.notifications, n)
	return true, nil
}

func (m *mockRequestRepo) InboxHistory(ctx context.Context, programHeadID string, limit int) ([]models.InboxEntry, error) {
	var out []models.InboxEntry
	for _, e := range m.entries {
		if e.ProgramHeadID == programHeadID {
			out = append(out, *e)
		}
	}
	return out, nil
}

type stubAccounts map[string]*models.UserProfile

func (s stubAccounts) FindByID(ctx context.Context, role models.UserRole, id string) (*models.UserProfile, error) {
	if u, ok := s[id]; ok && u.Role == role {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (s stubAccounts) FindAnyByID(ctx context.Context, id string) (*models.UserProfile, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

var (
	studentActor     = &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent}
	programHeadActor = &models.JWTClaims{UserID: "ph-1", Role: models.RoleProgramHead}
	otherHeadActor   = &models.JWTClaims{UserID: "ph-2", Role: models.RoleProgramHead}
)

func newRequestFixture(t *testing.T) (*RequestService, *mockRequestRepo, *recordingPublisher) {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	accounts := stubAccounts{
		"stu-1": {ID: "stu-1", Role: models.RoleStudent, FirstName: "Juan", LastName: "Cruz"},
		"ph-1":  {ID: "ph-1", Role: models.RoleProgramHead},
		"ph-2":  {ID: "ph-2", Role: models.RoleProgramHead},
	}
	repo := newMockRequestRepo()
	pub := &recordingPublisher{}
	return NewRequestService(repo, accounts, files, RequestServiceConfig{MaxFileSize: 1024}, nil, nil, pub), repo, pub
}

func TestRequestServiceSubmit(t *testing.T) {
	svc, _, pub := newRequestFixture(t)
	ctx := context.Background()

	req, err := svc.Submit(ctx, studentActor, SubmitRequest{Type: "Leave", ToProgramHeadID: "ph-1", Reason: "family matter"})
	require.NoError(t, err)
	assert.Equal(t, models.ReviewPending, req.Status)
	assert.Equal(t, "Juan Cruz", req.FromName)
	assert.Equal(t, models.RoleStudent, req.FromRole)
	assert.Equal(t, "requests/req-new", req.Path)
	assert.Equal(t, []realtime.Op{realtime.OpCreated}, pub.ops())

	_, err = svc.Submit(ctx, studentActor, SubmitRequest{Type: "Leave", ToProgramHeadID: "stu-1", Reason: "x"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Submit(ctx, studentActor, SubmitRequest{Type: "Leave", ToProgramHeadID: "ph-1"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestRequestServiceListScopesByRole(t *testing.T) {
	svc, repo, _ := newRequestFixture(t)
	repo.items["r1"] = &models.Request{ID: "r1", FromUserID: "stu-1", ToProgramHeadID: "ph-1"}
	repo.items["r2"] = &models.Request{ID: "r2", FromUserID: "stu-9", ToProgramHeadID: "ph-2"}
	ctx := context.Background()

	list, err := svc.List(ctx, studentActor, models.RequestFilter{ToProgramHeadID: "ph-2"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, "stu-1", repo.lastFilter.FromUserID)
	assert.Empty(t, repo.lastFilter.ToProgramHeadID)

	list, err = svc.List(ctx, otherHeadActor, models.RequestFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "r2", list[0].ID)

	list, err = svc.List(ctx, &models.JWTClaims{UserID: "adm", Role: models.RoleAdmin}, models.RequestFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = svc.Get(ctx, studentActor, "r2")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestRequestServiceReviewOnce(t *testing.T) {
	svc, repo, pub := newRequestFixture(t)
	repo.items["r1"] = &models.Request{ID: "r1", Type: "Leave", Status: models.ReviewPending, FromUserID: "stu-1", FromName: "Juan Cruz", ToProgramHeadID: "ph-1"}
	ctx := context.Background()

	_, err := svc.Review(ctx, otherHeadActor, "r1", ReviewRequest{Status: models.ReviewApproved})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	reviewed, err := svc.Review(ctx, programHeadActor, "r1", ReviewRequest{Status: models.ReviewApproved, Note: " ok "})
	require.NoError(t, err)
	assert.Equal(t, models.ReviewApproved, reviewed.Status)
	require.NotNil(t, reviewed.Note)
	assert.Equal(t, "ok", *reviewed.Note)

	require.Len(t, repo.entries, 1)
	assert.Equal(t, "users/program_head/accounts/ph-1/InboxHistory/entry-1", repo.entries[0].Path)
	require.Len(t, repo.notifications, 1)
	assert.Equal(t, "stu-1", repo.notifications[0].RecipientID)
	assert.Equal(t, "Your Leave request was approved.", repo.notifications[0].Message)
	assert.Len(t, pub.events, 3)

	_, err = svc.Review(ctx, programHeadActor, "r1", ReviewRequest{Status: models.ReviewRejected})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	history, err := svc.InboxHistory(ctx, programHeadActor, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	_, err = svc.InboxHistory(ctx, studentActor, 10)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestRequestServiceReviewLosesRace(t *testing.T) {
	svc, repo, _ := newRequestFixture(t)
	repo.items["r1"] = &models.Request{ID: "r1", Status: models.ReviewPending, FromUserID: "stu-1", ToProgramHeadID: "ph-1"}
	repo.raceLost = true

	_, err := svc.Review(context.Background(), programHeadActor, "r1", ReviewRequest{Status: models.ReviewRejected})
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Empty(t, repo.notifications)
}

func TestRequestServiceAttachment(t *testing.T) {
	svc, repo, _ := newRequestFixture(t)
	repo.items["r1"] = &models.Request{ID: "r1", Status: models.ReviewPending, FromUserID: "stu-1", ToProgramHeadID: "ph-1"}
	ctx := context.Background()
	pdf := []byte("%PDF-1.4 medical certificate")

	_, err := svc.Attach(ctx, programHeadActor, "r1", Attachment{Filename: "a.pdf", Size: int64(len(pdf)), Content: bytes.NewReader(pdf)})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Attach(ctx, studentActor, "r1", Attachment{Filename: "a.exe", Size: 4, Content: bytes.NewReader([]byte{0x4d, 0x5a, 0x90, 0x00})})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	updated, err := svc.Attach(ctx, studentActor, "r1", Attachment{Filename: "../med cert.pdf", Size: int64(len(pdf)), Content: bytes.NewReader(pdf)})
	require.NoError(t, err)
	require.NotNil(t, updated.AttachmentURL)
	assert.Equal(t, "requests/r1/med_cert.pdf", *updated.AttachmentURL)

	file, name, err := svc.OpenAttachment(ctx, programHeadActor, "r1")
	require.NoError(t, err)
	defer file.Close()
	raw, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, pdf, raw)
	assert.Equal(t, "med_cert.pdf", name)
}

type mockNotificationRepo struct {
	items map[string]*models.Notification
}

func (m *mockNotificationRepo) ListForRecipient(ctx context.Context, recipientID string, unreadOnly bool) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range m.items {
		if n.RecipientID == recipientID && (!unreadOnly || !n.Read) {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, recipientID, id string) (bool, error) {
	n, ok := m.items[id]
	if !ok || n.RecipientID != recipientID {
		return false, nil
	}
	n.Read = true
	return true, nil
}

func (m *mockNotificationRepo) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	for _, n := range m.items {
		if n.RecipientID == recipientID && !n.Read {
			n.Read = true
			count++
		}
	}
	return count, nil
}

func TestNotificationService(t *testing.T) {
	repo := &mockNotificationRepo{items: map[string]*models.Notification{
		"n1": {ID: "n1", RecipientID: "stu-1"},
		"n2": {ID: "n2", RecipientID: "stu-1"},
		"n3": {ID: "n3", RecipientID: "stu-2"},
	}}
	pub := &recordingPublisher{}
	svc := NewNotificationService(repo, nil, pub)
	ctx := context.Background()

	empty, err := svc.List(ctx, "nobody", false)
	require.NoError(t, err)
	assert.NotNil(t, empty)

	assert.ErrorIs(t, svc.MarkRead(ctx, "stu-1", "n3"), appErrors.ErrNotFound)
	require.NoError(t, svc.MarkRead(ctx, "stu-1", "n1"))
	require.Len(t, pub.events, 1)
	assert.Equal(t, "notifications/n1", pub.events[0].Path)

	unread, err := svc.List(ctx, "stu-1", true)
	require.NoError(t, err)
	assert.Len(t, unread, 1)

	n, err := svc.MarkAllRead(ctx, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
