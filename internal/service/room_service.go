// Package service provides business logic for deriving and serving
// room occupancy state.
package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/navikt/mrooms/internal/calendar"
	"github.com/navikt/mrooms/internal/config"
	"github.com/navikt/mrooms/internal/models"
	"github.com/navikt/mrooms/internal/occupancy"
	"github.com/navikt/mrooms/internal/repository"
	"github.com/navikt/mrooms/internal/scheduler"
	"github.com/navikt/mrooms/internal/utils"
)

// RoomDirectory is the slice of the calendar API that lists rooms.
type RoomDirectory interface {
	ListRooms(ctx context.Context) ([]models.MeetingRoom, error)
}

// ViewUpdateCallback receives every freshly derived occupancy view.
type ViewUpdateCallback func(view *models.RoomOccupancyView)

// RoomFreedCallback receives the one-shot room-freed edge events.
type RoomFreedCallback func(roomID string)

// RoomStatusData pairs a room with its current occupancy view for the UI.
type RoomStatusData struct {
	Room models.MeetingRoom
	View *models.RoomOccupancyView
}

// RoomService owns the room directory, the per-room watchers, and the
// derived occupancy state. All entry points (JSON API, dashboard,
// kiosk) go through it, so every caller sees the same fetch and
// normalization semantics.
type RoomService struct {
	directory RoomDirectory
	fetcher   *calendar.Fetcher
	evaluator *occupancy.Evaluator
	repo      repository.Repository
	filter    config.RoomFilterConfig
	schedCfg  config.SchedulerConfig

	mu              sync.RWMutex
	watchers        map[string]*scheduler.RoomWatcher
	watchCtx        context.Context
	updateCallbacks []ViewUpdateCallback
	freedCallbacks  []RoomFreedCallback
}

// NewRoomService creates a room service.
func NewRoomService(directory RoomDirectory, fetcher *calendar.Fetcher, evaluator *occupancy.Evaluator, repo repository.Repository, filter config.RoomFilterConfig, schedCfg config.SchedulerConfig) *RoomService {
	return &RoomService{
		directory: directory,
		fetcher:   fetcher,
		evaluator: evaluator,
		repo:      repo,
		filter:    filter,
		schedCfg:  schedCfg,
		watchers:  make(map[string]*scheduler.RoomWatcher),
	}
}

// RegisterUpdateCallback registers a callback for occupancy view updates.
func (s *RoomService) RegisterUpdateCallback(cb ViewUpdateCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCallbacks = append(s.updateCallbacks, cb)
}

// RegisterRoomFreedCallback registers a callback for room-freed edge events.
func (s *RoomService) RegisterRoomFreedCallback(cb RoomFreedCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.freedCallbacks = append(s.freedCallbacks, cb)
}

// ResyncRooms refreshes the cached room directory from the calendar
// API, applying the configured allow-list and dropping rooms that
// disappeared from the directory.
func (s *RoomService) ResyncRooms(ctx context.Context) error {
	rooms, err := s.directory.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("failed to list rooms from directory: %w", err)
	}

	keep := make(map[string]struct{}, len(rooms))
	for _, room := range rooms {
		if !s.filter.RoomAllowed(room.Name) {
			continue
		}
		keep[room.ID] = struct{}{}
		if err := s.repo.SaveRoom(ctx, room); err != nil {
			return fmt.Errorf("failed to cache room %s: %w", room.ID, err)
		}
	}

	cached, err := s.repo.ListRooms(ctx)
	if err != nil {
		return err
	}
	for _, room := range cached {
		if _, ok := keep[room.ID]; !ok {
			if err := s.repo.DeleteRoom(ctx, room.ID); err != nil {
				log.Printf("Failed to drop stale room %s: %v", utils.SanitizeLogString(room.ID), err)
			}
		}
	}

	log.Printf("Room directory resynced: %d rooms", len(keep))
	return nil
}

// Rooms returns the displayed room directory, resyncing it from the
// calendar API when the cache is empty.
func (s *RoomService) Rooms(ctx context.Context) ([]models.MeetingRoom, error) {
	rooms, err := s.repo.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	if len(rooms) == 0 {
		if err := s.ResyncRooms(ctx); err != nil {
			return nil, err
		}
		rooms, err = s.repo.ListRooms(ctx)
		if err != nil {
			return nil, err
		}
	}
	return rooms, nil
}

// GetRoom returns a single room by identifier.
func (s *RoomService) GetRoom(ctx context.Context, id string) (models.MeetingRoom, error) {
	rooms, err := s.Rooms(ctx)
	if err != nil {
		return models.MeetingRoom{}, err
	}
	for _, room := range rooms {
		if strings.EqualFold(room.ID, id) {
			return room, nil
		}
	}
	return models.MeetingRoom{}, calendar.ErrRoomNotFound
}

// StartWatching spins up one watcher per displayed room. Each watcher
// re-fetches on the configured cadence and re-evaluates more often to
// keep countdowns live.
func (s *RoomService) StartWatching(ctx context.Context) error {
	rooms, err := s.Rooms(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchCtx = ctx

	for _, room := range rooms {
		if _, exists := s.watchers[room.ID]; exists {
			continue
		}
		s.watchers[room.ID] = s.startWatcherLocked(ctx, room)
	}

	log.Printf("Watching %d rooms", len(s.watchers))
	return nil
}

// startWatcherLocked builds and starts one room watcher. Callers hold s.mu.
func (s *RoomService) startWatcherLocked(ctx context.Context, room models.MeetingRoom) *scheduler.RoomWatcher {
	fetch := func(ctx context.Context) ([]*models.Meeting, bool) {
		meetings, known := s.fetcher.TodaysMeetings(ctx, room)
		if known {
			if err := s.repo.ReplaceMeetings(ctx, room.ID, meetings); err != nil {
				log.Printf("Failed to cache meetings for room %s: %v", utils.SanitizeLogString(room.ID), err)
			}
		}
		return meetings, known
	}

	watcher := scheduler.NewRoomWatcher(room, fetch, s.evaluator, s.schedCfg, scheduler.Callbacks{
		OnViewUpdate: s.notifyViewUpdate,
		OnRoomFreed:  s.notifyRoomFreed,
	})
	watcher.Start(ctx)
	return watcher
}

// StopWatching tears down every watcher. Safe to call more than once.
func (s *RoomService) StopWatching() {
	s.mu.Lock()
	watchers := s.watchers
	s.watchers = make(map[string]*scheduler.RoomWatcher)
	s.mu.Unlock()

	for _, w := range watchers {
		w.Stop()
	}
}

// RefreshAll requests an immediate re-fetch for every watched room
// (the dashboard's manual retry action).
func (s *RoomService) RefreshAll() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.watchers {
		w.Refresh()
	}
}

// AllUnreachable reports whether every watched room's last fetch
// failed. The dashboard surfaces this once as a non-blocking banner.
func (s *RoomService) AllUnreachable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.watchers) == 0 {
		return false
	}
	for _, w := range s.watchers {
		if w.Known() {
			return false
		}
	}
	return true
}

// RoomStatus returns the current occupancy view of one room. Watched
// rooms answer from their live cache; anything else is fetched on
// demand.
func (s *RoomService) RoomStatus(ctx context.Context, roomID string) (*models.RoomOccupancyView, error) {
	s.mu.RLock()
	watcher, ok := s.watchers[roomID]
	s.mu.RUnlock()
	if ok {
		return watcher.View(), nil
	}

	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	meetings, known := s.fetcher.TodaysMeetings(ctx, room)
	if !known {
		return s.evaluator.Unknown(room.ID, now), nil
	}
	return s.evaluator.Evaluate(room.ID, meetings, now), nil
}

// MeetingsToday returns a room's canonical meetings for the current
// business day, from cache when fresh, fetched on demand otherwise.
func (s *RoomService) MeetingsToday(ctx context.Context, roomID string) ([]*models.Meeting, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if meetings, err := s.repo.GetMeetings(ctx, room.ID); err == nil {
		return meetings, nil
	}

	meetings, known := s.fetcher.TodaysMeetings(ctx, room)
	if !known {
		// Total fetch failure for this room; it renders with no
		// meetings rather than an error.
		return []*models.Meeting{}, nil
	}
	if err := s.repo.ReplaceMeetings(ctx, room.ID, meetings); err != nil {
		log.Printf("Failed to cache meetings for room %s: %v", utils.SanitizeLogString(room.ID), err)
	}
	return meetings, nil
}

// AvailabilityAt reports whether a room is free at the given instant.
// When no strategy could retrieve data the answer is explicitly
// unknown, never a fabricated boolean.
func (s *RoomService) AvailabilityAt(ctx context.Context, roomID string, at time.Time) (models.Availability, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return models.AvailabilityUnknown, err
	}

	meetings, known := s.fetcher.MeetingsOn(ctx, room, at)
	if !known {
		return models.AvailabilityUnknown, nil
	}
	return s.evaluator.Evaluate(room.ID, meetings, at).Availability, nil
}

// StatusData returns every displayed room with its current view,
// ordered by room name, for the dashboard and kiosk templates.
func (s *RoomService) StatusData(ctx context.Context) ([]RoomStatusData, error) {
	rooms, err := s.Rooms(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	data := make([]RoomStatusData, 0, len(rooms))
	for _, room := range rooms {
		var view *models.RoomOccupancyView
		if watcher, ok := s.watchers[room.ID]; ok {
			view = watcher.View()
		} else if meetings, err := s.repo.GetMeetings(ctx, room.ID); err == nil {
			view = s.evaluator.Evaluate(room.ID, meetings, now)
		} else {
			view = s.evaluator.Unknown(room.ID, now)
		}
		data = append(data, RoomStatusData{Room: room, View: view})
	}

	sort.Slice(data, func(i, j int) bool { return data[i].Room.Name < data[j].Room.Name })
	return data, nil
}

func (s *RoomService) notifyViewUpdate(view *models.RoomOccupancyView) {
	s.mu.RLock()
	callbacks := s.updateCallbacks
	s.mu.RUnlock()

	for _, cb := range callbacks {
		cb(view)
	}
}

func (s *RoomService) notifyRoomFreed(roomID string) {
	log.Printf("Room freed: %s", utils.SanitizeLogString(roomID))

	s.mu.RLock()
	callbacks := s.freedCallbacks
	s.mu.RUnlock()

	for _, cb := range callbacks {
		cb(roomID)
	}
}
