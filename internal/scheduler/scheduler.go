// Package scheduler drives the periodic refresh of room displays: a
// network fetch loop replacing cached meeting data wholesale, and a
// cheaper evaluation loop keeping countdowns live in between.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/navikt/mrooms/internal/config"
	"github.com/navikt/mrooms/internal/models"
	"github.com/navikt/mrooms/internal/occupancy"
	"github.com/navikt/mrooms/internal/utils"
)

// FetchFunc retrieves a room's current meeting set. The second return
// value is false when nothing could be retrieved (availability unknown).
type FetchFunc func(ctx context.Context) ([]*models.Meeting, bool)

// Callbacks are the scheduler's outputs. OnViewUpdate fires on every
// evaluation tick with the freshly derived view. OnRoomFreed is an edge
// trigger: it fires exactly once when a room transitions from having a
// current meeting to having none.
type Callbacks struct {
	OnViewUpdate func(view *models.RoomOccupancyView)
	OnRoomFreed  func(roomID string)
}

// RoomWatcher owns one room's refresh loops and cached meeting data.
// Each displayed room gets its own watcher, so a slow fetch for one
// room never delays evaluation of another.
type RoomWatcher struct {
	room      models.MeetingRoom
	fetch     FetchFunc
	evaluator *occupancy.Evaluator
	callbacks Callbacks

	fetchInterval time.Duration
	evalInterval  time.Duration

	mu       sync.RWMutex
	meetings []*models.Meeting
	known    bool

	hadCurrent bool

	refreshCh chan struct{}
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	started   bool

	// now is replaceable in tests
	now func() time.Time
}

// NewRoomWatcher creates a watcher for one room. Start must be called
// before any data flows.
func NewRoomWatcher(room models.MeetingRoom, fetch FetchFunc, evaluator *occupancy.Evaluator, cfg config.SchedulerConfig, callbacks Callbacks) *RoomWatcher {
	return &RoomWatcher{
		room:          room,
		fetch:         fetch,
		evaluator:     evaluator,
		callbacks:     callbacks,
		fetchInterval: cfg.FetchInterval,
		evalInterval:  cfg.EvalInterval,
		refreshCh:     make(chan struct{}, 1),
		now:           time.Now,
	}
}

// Start launches the fetch and evaluation loops. The initial fetch runs
// immediately so the display is populated without waiting a full cycle.
func (w *RoomWatcher) Start(ctx context.Context) {
	if w.started {
		return
	}
	w.started = true

	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(2)
	go w.fetchLoop(ctx)
	go w.evalLoop(ctx)
}

// Stop tears the watcher down. No callbacks fire and no state is
// written after Stop returns.
func (w *RoomWatcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

// Refresh requests an immediate re-fetch outside the regular cadence
// (manual retry from the UI). Coalesces when one is already pending.
func (w *RoomWatcher) Refresh() {
	select {
	case w.refreshCh <- struct{}{}:
	default:
	}
}

// Room returns the room this watcher displays.
func (w *RoomWatcher) Room() models.MeetingRoom {
	return w.room
}

// Known reports whether the last fetch produced usable data.
func (w *RoomWatcher) Known() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.known
}

// View evaluates the currently cached meeting set at this instant.
// Cheap: no network involved.
func (w *RoomWatcher) View() *models.RoomOccupancyView {
	w.mu.RLock()
	meetings, known := w.meetings, w.known
	w.mu.RUnlock()

	if !known {
		return w.evaluator.Unknown(w.room.ID, w.now())
	}
	return w.evaluator.Evaluate(w.room.ID, meetings, w.now())
}

func (w *RoomWatcher) fetchLoop(ctx context.Context) {
	defer w.wg.Done()

	w.doFetch(ctx)

	ticker := time.NewTicker(w.fetchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.doFetch(ctx)
		case <-w.refreshCh:
			w.doFetch(ctx)
		}
	}
}

func (w *RoomWatcher) doFetch(ctx context.Context) {
	meetings, known := w.fetch(ctx)

	// A fetch completing after teardown must not write state.
	select {
	case <-ctx.Done():
		return
	default:
	}

	w.mu.Lock()
	w.meetings = meetings
	w.known = known
	w.mu.Unlock()

	if !known {
		log.Printf("No meeting data retrievable for room %s", utils.SanitizeLogString(w.room.ID))
	}
}

func (w *RoomWatcher) evalLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.evalInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick derives a fresh view, publishes it, and fires the room-freed
// edge trigger on an occupied-to-free transition.
func (w *RoomWatcher) tick(ctx context.Context) {
	view := w.View()

	select {
	case <-ctx.Done():
		return
	default:
	}

	// The transition is only judged on ticks with usable data; an
	// unknown tick neither fires nor resets the edge.
	freed := false
	if view.Availability != models.AvailabilityUnknown {
		freed = w.hadCurrent && view.CurrentMeeting == nil
		w.hadCurrent = view.CurrentMeeting != nil
	}

	if w.callbacks.OnViewUpdate != nil {
		w.callbacks.OnViewUpdate(view)
	}
	if freed && w.callbacks.OnRoomFreed != nil {
		w.callbacks.OnRoomFreed(w.room.ID)
	}
}
