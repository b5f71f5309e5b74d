package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navikt/mrooms/internal/config"
	"github.com/navikt/mrooms/internal/models"
	"github.com/navikt/mrooms/internal/occupancy"
	"github.com/navikt/mrooms/internal/scheduler"
)

var testRoom = models.MeetingRoom{ID: "salle-aurora@example.com", Name: "Aurora"}

// recorder collects callbacks from a watcher under test
type recorder struct {
	mu    sync.Mutex
	views []*models.RoomOccupancyView
	freed []string
}

func (r *recorder) callbacks() scheduler.Callbacks {
	return scheduler.Callbacks{
		OnViewUpdate: func(view *models.RoomOccupancyView) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.views = append(r.views, view)
		},
		OnRoomFreed: func(roomID string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.freed = append(r.freed, roomID)
		},
	}
}

func (r *recorder) viewCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

func (r *recorder) freedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.freed)
}

func fastConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		FetchInterval: 20 * time.Millisecond,
		EvalInterval:  5 * time.Millisecond,
	}
}

// mutableFetch swaps its meeting set between fetch cycles
type mutableFetch struct {
	mu       sync.Mutex
	meetings []*models.Meeting
	known    bool
	calls    int
}

func (m *mutableFetch) set(meetings []*models.Meeting, known bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meetings = meetings
	m.known = known
}

func (m *mutableFetch) fetch(ctx context.Context) ([]*models.Meeting, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.meetings, m.known
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestRoomWatcher_PublishesViews(t *testing.T) {
	now := time.Now()
	fetch := &mutableFetch{}
	fetch.set([]*models.Meeting{{
		ID:        "m1",
		StartTime: now.Add(-10 * time.Minute),
		EndTime:   now.Add(10 * time.Minute),
	}}, true)

	rec := &recorder{}
	w := scheduler.NewRoomWatcher(testRoom, fetch.fetch, occupancy.NewEvaluator(), fastConfig(), rec.callbacks())
	w.Start(context.Background())
	defer w.Stop()

	waitFor(t, func() bool { return rec.viewCount() >= 2 })

	rec.mu.Lock()
	view := rec.views[len(rec.views)-1]
	rec.mu.Unlock()

	assert.True(t, view.IsOccupied)
	require.NotNil(t, view.CurrentMeeting)
	assert.Equal(t, "m1", view.CurrentMeeting.ID)
	assert.True(t, w.Known())
}

func TestRoomWatcher_RoomFreedFiresExactlyOnce(t *testing.T) {
	now := time.Now()
	fetch := &mutableFetch{}
	fetch.set([]*models.Meeting{{
		ID:        "m1",
		StartTime: now.Add(-10 * time.Minute),
		EndTime:   now.Add(10 * time.Minute),
	}}, true)

	rec := &recorder{}
	w := scheduler.NewRoomWatcher(testRoom, fetch.fetch, occupancy.NewEvaluator(), fastConfig(), rec.callbacks())
	w.Start(context.Background())
	defer w.Stop()

	// Let the watcher see the occupied state first
	waitFor(t, func() bool { return rec.viewCount() >= 2 })
	assert.Zero(t, rec.freedCount())

	// The meeting disappears: exactly one freed event on the transition
	fetch.set([]*models.Meeting{}, true)
	w.Refresh()

	waitFor(t, func() bool { return rec.freedCount() >= 1 })

	// More ticks in the free steady state must not re-fire the edge
	before := rec.viewCount()
	waitFor(t, func() bool { return rec.viewCount() >= before+3 })
	assert.Equal(t, 1, rec.freedCount())
	rec.mu.Lock()
	assert.Equal(t, testRoom.ID, rec.freed[0])
	rec.mu.Unlock()
}

func TestRoomWatcher_UnknownDataSuppressesFreedEdge(t *testing.T) {
	now := time.Now()
	fetch := &mutableFetch{}
	fetch.set([]*models.Meeting{{
		ID:        "m1",
		StartTime: now.Add(-10 * time.Minute),
		EndTime:   now.Add(10 * time.Minute),
	}}, true)

	rec := &recorder{}
	w := scheduler.NewRoomWatcher(testRoom, fetch.fetch, occupancy.NewEvaluator(), fastConfig(), rec.callbacks())
	w.Start(context.Background())
	defer w.Stop()

	waitFor(t, func() bool { return rec.viewCount() >= 2 })

	// Fetch failure: view goes unknown, which is not "freed"
	fetch.set(nil, false)
	w.Refresh()
	waitFor(t, func() bool { return !w.Known() })

	before := rec.viewCount()
	waitFor(t, func() bool { return rec.viewCount() >= before+3 })
	assert.Zero(t, rec.freedCount())
}

func TestRoomWatcher_StopHaltsCallbacks(t *testing.T) {
	fetch := &mutableFetch{}
	fetch.set([]*models.Meeting{}, true)

	rec := &recorder{}
	w := scheduler.NewRoomWatcher(testRoom, fetch.fetch, occupancy.NewEvaluator(), fastConfig(), rec.callbacks())
	w.Start(context.Background())

	waitFor(t, func() bool { return rec.viewCount() >= 1 })
	w.Stop()

	// No callback fires after Stop returns
	count := rec.viewCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, count, rec.viewCount())
}

func TestRoomWatcher_ViewWithoutDataIsUnknown(t *testing.T) {
	fetch := &mutableFetch{}
	fetch.set(nil, false)

	w := scheduler.NewRoomWatcher(testRoom, fetch.fetch, occupancy.NewEvaluator(), fastConfig(), scheduler.Callbacks{})
	w.Start(context.Background())
	defer w.Stop()

	waitFor(t, func() bool {
		fetch.mu.Lock()
		defer fetch.mu.Unlock()
		return fetch.calls >= 1
	})

	view := w.View()
	assert.Equal(t, models.AvailabilityUnknown, view.Availability)
	assert.False(t, view.IsOccupied)
}

func TestRoomWatcher_RefreshTriggersImmediateFetch(t *testing.T) {
	fetch := &mutableFetch{}
	fetch.set([]*models.Meeting{}, true)

	w := scheduler.NewRoomWatcher(testRoom, fetch.fetch, occupancy.NewEvaluator(), config.SchedulerConfig{
		FetchInterval: time.Hour, // regular cadence far away
		EvalInterval:  5 * time.Millisecond,
	}, scheduler.Callbacks{})
	w.Start(context.Background())
	defer w.Stop()

	waitFor(t, func() bool {
		fetch.mu.Lock()
		defer fetch.mu.Unlock()
		return fetch.calls == 1
	})

	w.Refresh()
	waitFor(t, func() bool {
		fetch.mu.Lock()
		defer fetch.mu.Unlock()
		return fetch.calls == 2
	})
}
