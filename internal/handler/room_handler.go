package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/service"
)

type roomService interface {
	List(ctx context.Context, floor string) ([]models.Room, error)
	Get(ctx context.Context, id string) (*models.Room, error)
	Create(ctx context.Context, req service.RoomRequest) (*models.Room, error)
	Update(ctx context.Context, id string, req service.RoomRequest) (*models.Room, error)
	Delete(ctx context.Context, id string) error
}

// RoomHandler serves classrooms.
type RoomHandler struct {
	service roomService
}

// NewRoomHandler constructs a room handler.
func NewRoomHandler(svc roomService) *RoomHandler {
	return &RoomHandler{service: svc}
}

// List godoc
// @Summary List rooms
// @Tags Rooms
// @Produce json
// @Param floor query string false "Filter by floor"
// @Success 200 {object} response.Envelope
// @Router /rooms [get]
func (h *RoomHandler) List(c *gin.Context) {
	rooms, err := h.service.List(c.Request.Context(), c.Query("floor"))
	respondList(c, rooms, err)
}

func (h *RoomHandler) Get(c *gin.Context) {
	room, err := h.service.Get(c.Request.Context(), c.Param("roomId"))
	respondOne(c, http.StatusOK, room, err)
}

// Create godoc
// @Summary Create room; floor and number are unique together
// @Tags Rooms
// @Accept json
// @Produce json
// @Param payload body service.RoomRequest true "Room"
// @Success 201 {object} response.Envelope
// @Router /rooms [post]
func (h *RoomHandler) Create(c *gin.Context) {
	var req service.RoomRequest
	if !bindJSON(c, &req) {
		return
	}
	room, err := h.service.Create(c.Request.Context(), req)
	respondOne(c, http.StatusCreated, room, err)
}

func (h *RoomHandler) Update(c *gin.Context) {
	var req service.RoomRequest
	if !bindJSON(c, &req) {
		return
	}
	room, err := h.service.Update(c.Request.Context(), c.Param("roomId"), req)
	respondOne(c, http.StatusOK, room, err)
}

// Delete godoc
// @Summary Delete a room no schedule references
// @Tags Rooms
// @Success 204
// @Failure 412 {object} response.Envelope
// @Router /rooms/{roomId} [delete]
func (h *RoomHandler) Delete(c *gin.Context) {
	respondNoContent(c, h.service.Delete(c.Request.Context(), c.Param("roomId")))
}
