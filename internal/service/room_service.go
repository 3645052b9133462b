package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/realtime"
	"github.com/noah-isme/school-admin-api/pkg/database"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

const roomInUse = "room is used by schedules; remove them first"

type roomRepository interface {
	List(ctx context.Context, floor string) ([]models.Room, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
	ExistsByFloorAndNumber(ctx context.Context, floor, roomNo, excludeID string) (bool, error)
	Create(ctx context.Context, room *models.Room) error
	Update(ctx context.Context, room *models.Room) error
	Delete(ctx context.Context, id string) error
	CountSchedules(ctx context.Context, id string) (int, error)
}

// RoomRequest is the payload for creating or updating a room.
type RoomRequest struct {
	Floor  string `json:"floor" validate:"required"`
	RoomNo string `json:"roomNo" validate:"required"`
}

// RoomService manages classrooms.
type RoomService struct {
	repo      roomRepository
	validator *validator.Validate
	logger    *zap.Logger
	publisher realtime.Publisher
}

// NewRoomService constructs the service.
func NewRoomService(repo roomRepository, validate *validator.Validate, logger *zap.Logger, publisher realtime.Publisher) *RoomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	return &RoomService{repo: repo, validator: validate, logger: logger, publisher: publisher}
}

// List returns rooms, optionally on one floor.
func (s *RoomService) List(ctx context.Context, floor string) ([]models.Room, error) {
	rooms, err := s.repo.List(ctx, strings.TrimSpace(floor))
	if err != nil {
		return nil, internalError(err, "failed to list rooms")
	}
	return rooms, nil
}

// Get returns a room.
func (s *RoomService) Get(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "room not found", "failed to load room")
	}
	return room, nil
}

// Create adds a room. Floor and number together are unique.
func (s *RoomService) Create(ctx context.Context, req RoomRequest) (*models.Room, error) {
	floor, number, err := s.validate(ctx, req, "")
	if err != nil {
		return nil, err
	}
	room := &models.Room{Floor: floor, RoomNo: number}
	if err := s.repo.Create(ctx, room); err != nil {
		return nil, writeError(err, "room already exists on this floor", "failed to create room")
	}
	publish(s.publisher, realtime.OpCreated, kindRoom, room.Path)
	return room, nil
}

// Update renames a room. Schedules pick up the new display name.
func (s *RoomService) Update(ctx context.Context, id string, req RoomRequest) (*models.Room, error) {
	room, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	floor, number, err := s.validate(ctx, req, id)
	if err != nil {
		return nil, err
	}
	room.Floor = floor
	room.RoomNo = number
	if err := s.repo.Update(ctx, room); err != nil {
		return nil, writeError(err, "room already exists on this floor", "failed to update room")
	}
	publish(s.publisher, realtime.OpUpdated, kindRoom, room.Path)
	return room, nil
}

func (s *RoomService) validate(ctx context.Context, req RoomRequest, selfID string) (string, string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", "", validationError(err, "invalid room payload")
	}
	floor, number := strings.TrimSpace(req.Floor), strings.TrimSpace(req.RoomNo)
	exists, err := s.repo.ExistsByFloorAndNumber(ctx, floor, number, selfID)
	if err != nil {
		return "", "", internalError(err, "failed to check room uniqueness")
	}
	if exists {
		return "", "", appErrors.Clone(appErrors.ErrConflict, "room already exists on this floor")
	}
	return floor, number, nil
}

// Delete removes a room no schedule references.
func (s *RoomService) Delete(ctx context.Context, id string) error {
	room, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	used, err := s.repo.CountSchedules(ctx, id)
	if err != nil {
		return internalError(err, "failed to count room schedules")
	}
	if used > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, roomInUse)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if deletionError(err, "room") != nil || database.IsForeignKeyViolation(err) {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, roomInUse)
		}
		return lookupError(err, "room not found", "failed to delete room")
	}
	publish(s.publisher, realtime.OpDeleted, kindRoom, room.Path)
	return nil
}
