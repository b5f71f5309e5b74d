// Package memory provides an in-memory implementation of the repository interface
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/navikt/mrooms/internal/models"
)

// ErrNotFound is returned when a requested entity is not found
var ErrNotFound = errors.New("entity not found")

// Repository implements the repository interface with in-memory storage
type Repository struct {
	rooms    map[string]models.MeetingRoom
	meetings map[string][]*models.Meeting
	mu       sync.RWMutex
}

// NewRepository creates a new in-memory repository
func NewRepository() *Repository {
	return &Repository{
		rooms:    make(map[string]models.MeetingRoom),
		meetings: make(map[string][]*models.Meeting),
	}
}

// SaveRoom stores or updates a room directory entry
func (r *Repository) SaveRoom(ctx context.Context, room models.MeetingRoom) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rooms[room.ID] = room
	return nil
}

// GetRoom retrieves a room by ID
func (r *Repository) GetRoom(ctx context.Context, id string) (models.MeetingRoom, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[id]
	if !ok {
		return models.MeetingRoom{}, ErrNotFound
	}
	return room, nil
}

// ListRooms returns every cached room, sorted by name for stable output
func (r *Repository) ListRooms(ctx context.Context) ([]models.MeetingRoom, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]models.MeetingRoom, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })
	return rooms, nil
}

// DeleteRoom removes a room and its cached meetings
func (r *Repository) DeleteRoom(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[id]; !ok {
		return ErrNotFound
	}
	delete(r.rooms, id)
	delete(r.meetings, id)
	return nil
}

// ReplaceMeetings swaps a room's cached meeting list wholesale
func (r *Repository) ReplaceMeetings(ctx context.Context, roomID string, meetings []*models.Meeting) error {
	copied := make([]*models.Meeting, len(meetings))
	copy(copied, meetings)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.meetings[roomID] = copied
	return nil
}

// GetMeetings returns a room's cached meeting list. A room with no
// cached data yields ErrNotFound, distinct from an empty list.
func (r *Repository) GetMeetings(ctx context.Context, roomID string) ([]*models.Meeting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meetings, ok := r.meetings[roomID]
	if !ok {
		return nil, ErrNotFound
	}

	out := make([]*models.Meeting, len(meetings))
	copy(out, meetings)
	return out, nil
}
