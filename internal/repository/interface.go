// Package repository defines the cache interface for room and meeting data
package repository

import (
	"context"

	"github.com/navikt/mrooms/internal/models"
)

// Repository caches the room directory and each room's meetings for the
// current fetch cycle. It is a cache, not a system of record: meeting
// lists are replaced wholesale on every fetch and may expire.
type Repository interface {
	// Room directory operations
	SaveRoom(ctx context.Context, room models.MeetingRoom) error
	GetRoom(ctx context.Context, id string) (models.MeetingRoom, error)
	ListRooms(ctx context.Context) ([]models.MeetingRoom, error)
	DeleteRoom(ctx context.Context, id string) error

	// Meeting cache operations, keyed by room
	ReplaceMeetings(ctx context.Context, roomID string, meetings []*models.Meeting) error
	GetMeetings(ctx context.Context, roomID string) ([]*models.Meeting, error)
}
