package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/realtime"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/storage"
)

type requestRepository interface {
	List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error)
	FindByID(ctx context.Context, id string) (*models.Request, error)
	Create(ctx context.Context, req *models.Request) error
	SetAttachment(ctx context.Context, id, key string) error
	Review(ctx context.Context, req *models.Request, entry *models.InboxEntry, notification *models.Notification) (bool, error)
	InboxHistory(ctx context.Context, programHeadID string, limit int) ([]models.InboxEntry, error)
}

type accountDirectory interface {
	FindByID(ctx context.Context, role models.UserRole, id string) (*models.UserProfile, error)
	FindAnyByID(ctx context.Context, id string) (*models.UserProfile, error)
}

// SubmitRequest is the payload of a new request.
type SubmitRequest struct {
	Type            string `json:"type" validate:"required,max=64"`
	ToProgramHeadID string `json:"toProgramHeadId" validate:"required"`
	Reason          string `json:"reason" validate:"required"`
}

// ReviewRequest carries a program head's decision.
type ReviewRequest struct {
	Status models.ReviewStatus `json:"status" validate:"required,oneof=Approved Rejected"`
	Note   string              `json:"note"`
}

// Attachment is an uploaded file bound to a request.
type Attachment struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.ReadSeeker
}

// RequestServiceConfig bounds attachments.
type RequestServiceConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
}

// RequestService routes requests to program heads and records their decisions.
type RequestService struct {
	repo      requestRepository
	accounts  accountDirectory
	files     storage.Store
	validator *validator.Validate
	logger    *zap.Logger
	publisher realtime.Publisher
	cfg       RequestServiceConfig
	mimeSet   map[string]struct{}
}

// NewRequestService constructs the service.
func NewRequestService(repo requestRepository, accounts accountDirectory, files storage.Store, cfg RequestServiceConfig, validate *validator.Validate, logger *zap.Logger, publisher realtime.Publisher) *RequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"application/pdf", "image/jpeg", "image/png"}
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(mt)] = struct{}{}
	}
	return &RequestService{
		repo:      repo,
		accounts:  accounts,
		files:     files,
		validator: validate,
		logger:    logger,
		publisher: publisher,
		cfg:       cfg,
		mimeSet:   mimeSet,
	}
}

// Submit files a pending request addressed to a program head.
func (s *RequestService) Submit(ctx context.Context, actor *models.JWTClaims, req SubmitRequest) (*models.Request, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid request payload")
	}
	from, err := s.accounts.FindAnyByID(ctx, actor.UserID)
	if err != nil {
		return nil, lookupError(err, "requester profile not found", "failed to load requester")
	}
	if _, err := s.accounts.FindByID(ctx, models.RoleProgramHead, req.ToProgramHeadID); err != nil {
		return nil, lookupError(err, "program head not found", "failed to load program head")
	}
	request := &models.Request{
		Type:            strings.TrimSpace(req.Type),
		Status:          models.ReviewPending,
		FromUserID:      from.ID,
		FromRole:        from.Role,
		FromName:        from.FullName(),
		ToProgramHeadID: req.ToProgramHeadID,
		Reason:          strings.TrimSpace(req.Reason),
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, internalError(err, "failed to create request")
	}
	s.logger.Info("request submitted", zap.String("request_id", request.ID), zap.String("from", from.ID), zap.String("to", req.ToProgramHeadID))
	publish(s.publisher, realtime.OpCreated, kindRequest, request.Path)
	return request, nil
}

// Attach stores a file for a pending request of the actor.
func (s *RequestService) Attach(ctx context.Context, actor *models.JWTClaims, id string, upload Attachment) (*models.Request, error) {
	request, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if request.FromUserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the requester can attach files")
	}
	if request.Status != models.ReviewPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "request has already been reviewed")
	}
	if upload.Content == nil || upload.Size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	mimeType, err := detectMime(upload)
	if err != nil {
		return nil, err
	}
	if _, allowed := s.mimeSet[strings.ToLower(mimeType)]; !allowed {
		return nil, appErrors.Clone(appErrors.ErrValidation, "mime type not allowed")
	}

	key := fmt.Sprintf("requests/%s/%s", request.ID, sanitizeFilename(path.Base(upload.Filename)))
	stored, err := s.files.Put(ctx, key, upload.Content, mimeType)
	if err != nil {
		return nil, internalError(err, "failed to store attachment")
	}
	if err := s.repo.SetAttachment(ctx, request.ID, stored); err != nil {
		_ = s.files.Delete(ctx, stored)
		return nil, internalError(err, "failed to record attachment")
	}
	request.AttachmentURL = &stored
	publish(s.publisher, realtime.OpUpdated, kindRequest, request.Path)
	return request, nil
}

// OpenAttachment streams a request's attachment to someone allowed to see the request.
func (s *RequestService) OpenAttachment(ctx context.Context, actor *models.JWTClaims, id string) (io.ReadCloser, string, error) {
	request, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, "", err
	}
	if request.AttachmentURL == nil || *request.AttachmentURL == "" {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "request has no attachment")
	}
	file, err := s.files.Get(ctx, *request.AttachmentURL)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "attachment no longer available")
		}
		return nil, "", internalError(err, "failed to open attachment")
	}
	return file, path.Base(*request.AttachmentURL), nil
}

// List returns the requests visible to the actor: program heads see those
// addressed to them, admins and academic heads see all, everyone else their own.
func (s *RequestService) List(ctx context.Context, actor *models.JWTClaims, filter models.RequestFilter) ([]models.Request, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter.FromUserID, filter.ToProgramHeadID = "", ""
	switch actor.Role {
	case models.RoleAdmin, models.RoleAcademicHead:
	case models.RoleProgramHead:
		filter.ToProgramHeadID = actor.UserID
	default:
		filter.FromUserID = actor.UserID
	}
	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to list requests")
	}
	return requests, nil
}

// Get returns a request the actor may see.
func (s *RequestService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Request, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "request not found", "failed to load request")
	}
	if !canSeeRequest(actor, request) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
	}
	return request, nil
}

func canSeeRequest(actor *models.JWTClaims, request *models.Request) bool {
	switch actor.Role {
	case models.RoleAdmin, models.RoleAcademicHead:
		return true
	}
	return request.FromUserID == actor.UserID || request.ToProgramHeadID == actor.UserID
}

// Review decides a pending request. Only the addressed program head may decide,
// and only once; the inbox entry and the requester's notification are written
// with the decision.
func (s *RequestService) Review(ctx context.Context, actor *models.JWTClaims, id string, req ReviewRequest) (*models.Request, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid review payload")
	}
	request, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleProgramHead || request.ToProgramHeadID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "request is addressed to another program head")
	}
	if request.Status != models.ReviewPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "request has already been reviewed")
	}

	var note *string
	if trimmed := strings.TrimSpace(req.Note); trimmed != "" {
		note = &trimmed
	}
	reviewer := actor.UserID
	request.Status = req.Status
	request.ReviewedBy = &reviewer
	request.Note = note

	entry := &models.InboxEntry{
		ProgramHeadID: actor.UserID,
		RequestID:     request.ID,
		RequestType:   request.Type,
		Decision:      req.Status,
		FromName:      request.FromName,
		Note:          note,
	}
	link := request.Path
	notification := &models.Notification{
		RecipientID: request.FromUserID,
		Title:       "Request " + strings.ToLower(string(req.Status)),
		Message:     fmt.Sprintf("Your %s request was %s.", request.Type, strings.ToLower(string(req.Status))),
		Link:        &link,
	}
	ok, err := s.repo.Review(ctx, request, entry, notification)
	if err != nil {
		return nil, internalError(err, "failed to review request")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrConflict, "request has already been reviewed")
	}
	s.logger.Info("request reviewed", zap.String("request_id", request.ID), zap.String("status", string(req.Status)), zap.String("reviewer", reviewer))
	publish(s.publisher, realtime.OpUpdated, kindRequest, request.Path)
	publish(s.publisher, realtime.OpCreated, kindInboxEntry, entry.Path)
	publish(s.publisher, realtime.OpCreated, kindNotification, notification.Path)
	return request, nil
}

// InboxHistory lists the decisions of the acting program head.
func (s *RequestService) InboxHistory(ctx context.Context, actor *models.JWTClaims, limit int) ([]models.InboxEntry, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleProgramHead {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "inbox history belongs to program heads")
	}
	entries, err := s.repo.InboxHistory(ctx, actor.UserID, limit)
	if err != nil {
		return nil, internalError(err, "failed to list inbox history")
	}
	return entries, nil
}

func detectMime(upload Attachment) (string, error) {
	if upload.MimeType != "" && upload.MimeType != "application/octet-stream" {
		return upload.MimeType, nil
	}
	header := make([]byte, 512)
	n, err := upload.Content.Read(header)
	if err != nil && err != io.EOF {
		return "", internalError(err, "failed to inspect file")
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", internalError(err, "failed to reset upload stream")
	}
	if n == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "empty file")
	}
	return http.DetectContentType(header[:n]), nil
}
