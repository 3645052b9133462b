package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/facerec"
	"github.com/noah-isme/school-admin-api/pkg/jobs"
)

// JobTypeFaceRegistration identifies queued registration jobs.
const JobTypeFaceRegistration = "face.register"

type faceClient interface {
	Detect(ctx context.Context, image, name string) (*facerec.DetectResult, error)
	Register(ctx context.Context, reg facerec.Registration) error
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

type faceProfileStore interface {
	FindByID(ctx context.Context, role models.UserRole, id string) (*models.UserProfile, error)
	SetFaceEnrolled(ctx context.Context, id string, enrolled bool) error
}

// FaceEnrollmentRequest carries base64 encoded face images.
type FaceEnrollmentRequest struct {
	Images []string `json:"images" validate:"required,min=1,max=10,dive,required"`
}

// FaceEnrollmentResult acknowledges a queued registration.
type FaceEnrollmentResult struct {
	JobID    string `json:"jobId"`
	UserID   string `json:"userId"`
	Detected int    `json:"detected"`
}

type faceRegistrationJob struct {
	UserID       string
	Registration facerec.Registration
}

// FaceEnrollmentService checks images with the face service and registers them
// in the background. Profile writes never depend on the remote succeeding.
type FaceEnrollmentService struct {
	profiles  faceProfileStore
	client    faceClient
	queue     jobEnqueuer
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewFaceEnrollmentService constructs the service. A nil client disables enrollment.
func NewFaceEnrollmentService(profiles faceProfileStore, client faceClient, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *FaceEnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FaceEnrollmentService{profiles: profiles, client: client, validator: validate, metrics: metrics, logger: logger}
}

// UseQueue sets the queue registration jobs are pushed to. The queue's handler
// is expected to be HandleJob.
func (s *FaceEnrollmentService) UseQueue(queue jobEnqueuer) {
	s.queue = queue
}

// Enroll detects a face in every image and queues the registration.
func (s *FaceEnrollmentService) Enroll(ctx context.Context, role models.UserRole, userID string, req FaceEnrollmentRequest) (*FaceEnrollmentResult, error) {
	if s.client == nil || s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "face recognition is disabled")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid enrollment payload")
	}
	if err := requireProfileRole(role); err != nil {
		return nil, err
	}
	user, err := s.profiles.FindByID(ctx, role, userID)
	if err != nil {
		return nil, lookupError(err, "user not found", "failed to load user")
	}

	var missing []int
	for i, image := range req.Images {
		result, err := s.client.Detect(ctx, image, user.FullName())
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "face detection failed")
		}
		if !result.Detected {
			missing = append(missing, i)
		}
	}
	if len(missing) > 0 {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "no face detected in some images"), map[string]interface{}{"images": missing})
	}

	job := jobs.Job{
		ID:   uuid.NewString(),
		Type: JobTypeFaceRegistration,
		Payload: faceRegistrationJob{
			UserID: user.ID,
			Registration: facerec.Registration{
				Images:       req.Images,
				Name:         user.FullName(),
				Email:        user.Email,
				UniqueNumber: user.AccountNumber,
				Role:         string(user.Role),
			},
		},
	}
	if err := s.queue.Enqueue(job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to queue face registration")
	}
	s.logger.Info("face registration queued", zap.String("job_id", job.ID), zap.String("user_id", user.ID))
	return &FaceEnrollmentResult{JobID: job.ID, UserID: user.ID, Detected: len(req.Images)}, nil
}

// HandleJob performs a queued registration. Returning an error lets the queue retry.
func (s *FaceEnrollmentService) HandleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(faceRegistrationJob)
	if !ok {
		return fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID)
	}
	if err := s.client.Register(ctx, payload.Registration); err != nil {
		return err
	}
	if err := s.profiles.SetFaceEnrolled(ctx, payload.UserID, true); err != nil {
		return err
	}
	s.metrics.RecordFaceRegistration(nil)
	s.logger.Info("face registered", zap.String("job_id", job.ID), zap.String("user_id", payload.UserID), zap.Int("attempt", job.Attempt))
	return nil
}

// DeadLetter records a registration that exhausted its retries.
func (s *FaceEnrollmentService) DeadLetter(job jobs.Job, err error) {
	s.metrics.RecordFaceRegistration(err)
	userID := ""
	if payload, ok := job.Payload.(faceRegistrationJob); ok {
		userID = payload.UserID
	}
	s.logger.Error("face registration abandoned", zap.String("job_id", job.ID), zap.String("user_id", userID), zap.Error(err))
}
