package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-admin-api/internal/models"
)

const roomColumns = "id, floor, room_no, created_at, updated_at"

// RoomRepository persists the global room catalog.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository instantiates a room repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// List returns rooms, optionally filtered by floor.
func (r *RoomRepository) List(ctx context.Context, floor string) ([]models.Room, error) {
	query := fmt.Sprintf("SELECT %s FROM rooms", roomColumns)
	var args []interface{}
	if floor = strings.TrimSpace(floor); floor != "" {
		query += " WHERE floor = $1"
		args = append(args, floor)
	}
	query += " ORDER BY floor, room_no"

	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, args...); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	for i := range rooms {
		rooms[i].Locate()
	}
	return rooms, nil
}

// FindByID loads a room.
func (r *RoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	query := fmt.Sprintf("SELECT %s FROM rooms WHERE id = $1", roomColumns)
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		return nil, err
	}
	room.Locate()
	return &room, nil
}

// ExistsByFloorAndNumber checks whether another room already uses the floor/number pair.
func (r *RoomRepository) ExistsByFloorAndNumber(ctx context.Context, floor, roomNo, excludeID string) (bool, error) {
	query := "SELECT 1 FROM rooms WHERE floor = $1 AND room_no = $2"
	args := []interface{}{floor, roomNo}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	found, err := exists(ctx, r.db, query, args...)
	if err != nil {
		return false, fmt.Errorf("check room uniqueness: %w", err)
	}
	return found, nil
}

// Create inserts a room.
func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	room.CreatedAt = now
	room.UpdatedAt = now

	const query = `INSERT INTO rooms (id, floor, room_no, created_at, updated_at) VALUES (:id, :floor, :room_no, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	room.Locate()
	return nil
}

// Update changes floor and number and refreshes the denormalised name on schedules.
func (r *RoomRepository) Update(ctx context.Context, room *models.Room) error {
	room.UpdatedAt = time.Now().UTC()
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update room tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.NamedExecContext(ctx, `UPDATE rooms SET floor = :floor, room_no = :room_no, updated_at = :updated_at WHERE id = :id`, room); err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE schedules SET room_name = $1 WHERE room_id = $2`, room.DisplayName(), room.ID); err != nil {
		return fmt.Errorf("update schedule room names: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update room tx: %w", err)
	}
	room.Locate()
	return nil
}

// Delete removes a room no schedule uses.
func (r *RoomRepository) Delete(ctx context.Context, id string) error {
	return guardedDelete(ctx, r.db, deleteGuard{
		table:    "rooms",
		children: "SELECT COUNT(*) FROM schedules WHERE room_id = $1",
	}, id)
}

// CountSchedules returns the number of schedules referencing a room.
func (r *RoomRepository) CountSchedules(ctx context.Context, id string) (int, error) {
	return countWhere(ctx, r.db, "schedules", "room_id", id)
}
