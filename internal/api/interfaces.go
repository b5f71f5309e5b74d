package api

import (
	"context"
	"time"

	"github.com/navikt/mrooms/internal/models"
)

// RoomServicer defines the room service operations the API handlers need
type RoomServicer interface {
	Rooms(ctx context.Context) ([]models.MeetingRoom, error)
	GetRoom(ctx context.Context, id string) (models.MeetingRoom, error)
	MeetingsToday(ctx context.Context, roomID string) ([]*models.Meeting, error)
	RoomStatus(ctx context.Context, roomID string) (*models.RoomOccupancyView, error)
	AvailabilityAt(ctx context.Context, roomID string, at time.Time) (models.Availability, error)
	RefreshAll()
}
