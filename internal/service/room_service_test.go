package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navikt/mrooms/internal/calendar"
	"github.com/navikt/mrooms/internal/config"
	"github.com/navikt/mrooms/internal/models"
	"github.com/navikt/mrooms/internal/occupancy"
	"github.com/navikt/mrooms/internal/repository/memory"
	"github.com/navikt/mrooms/internal/service"
)

// fakeDirectory serves a scripted room listing
type fakeDirectory struct {
	rooms []models.MeetingRoom
	err   error
}

func (d *fakeDirectory) ListRooms(ctx context.Context) ([]models.MeetingRoom, error) {
	return d.rooms, d.err
}

// fakeAPI serves scripted calendar views per room and counts calls
type fakeAPI struct {
	mu     sync.Mutex
	events map[string][]calendar.RawEvent
	err    error
	calls  int
}

func (f *fakeAPI) CalendarView(ctx context.Context, roomID string, start, end time.Time) ([]calendar.RawEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.events[roomID], nil
}

func (f *fakeAPI) UserEvents(ctx context.Context, userID string, start, end time.Time) ([]calendar.RawEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.events[userID], nil
}

func (f *fakeAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testRooms() []models.MeetingRoom {
	return []models.MeetingRoom{
		{ID: "salle-aurora@example.com", Name: "Aurora", Capacity: 8},
		{ID: "salle-borealis@example.com", Name: "Borealis", Capacity: 4},
	}
}

// rawEventAt builds a raw UTC event covering [start, start+1h)
func rawEventAt(id, subject string, start time.Time) calendar.RawEvent {
	return calendar.RawEvent{
		ID:      id,
		Subject: subject,
		Start:   calendar.RawDateTime{DateTime: start.UTC().Format("2006-01-02T15:04:05"), TimeZone: "UTC"},
		End:     calendar.RawDateTime{DateTime: start.UTC().Add(time.Hour).Format("2006-01-02T15:04:05"), TimeZone: "UTC"},
	}
}

func newTestService(directory *fakeDirectory, api *fakeAPI) *service.RoomService {
	filter := config.RoomFilterConfig{RoomEmailPatterns: []string{"salle-"}}
	calCfg := config.CalendarConfig{BusinessDayZone: "UTC"}
	schedCfg := config.SchedulerConfig{
		FetchInterval:      30 * time.Millisecond,
		EvalInterval:       10 * time.Millisecond,
		StartingSoonWindow: 30 * time.Minute,
	}

	fetcher := calendar.NewFetcher(api, calendar.NewNormalizer(filter), calCfg)
	return service.NewRoomService(directory, fetcher, occupancy.NewEvaluator(), memory.NewRepository(), filter, schedCfg)
}

func TestResyncRoomsAppliesAllowList(t *testing.T) {
	ctx := context.Background()
	directory := &fakeDirectory{rooms: testRooms()}

	filter := config.RoomFilterConfig{AllowedRooms: []string{"aurora"}}
	calCfg := config.CalendarConfig{BusinessDayZone: "UTC"}
	fetcher := calendar.NewFetcher(&fakeAPI{}, calendar.NewNormalizer(filter), calCfg)
	svc := service.NewRoomService(directory, fetcher, occupancy.NewEvaluator(), memory.NewRepository(), filter, config.SchedulerConfig{})

	require.NoError(t, svc.ResyncRooms(ctx))

	rooms, err := svc.Rooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "Aurora", rooms[0].Name)
}

func TestResyncRoomsDropsStaleRooms(t *testing.T) {
	ctx := context.Background()
	directory := &fakeDirectory{rooms: testRooms()}
	svc := newTestService(directory, &fakeAPI{})

	require.NoError(t, svc.ResyncRooms(ctx))
	rooms, err := svc.Rooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)

	// Borealis disappears from the directory
	directory.rooms = testRooms()[:1]
	require.NoError(t, svc.ResyncRooms(ctx))

	rooms, err = svc.Rooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "Aurora", rooms[0].Name)
}

func TestRoomsResyncsWhenCacheEmpty(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&fakeDirectory{rooms: testRooms()}, &fakeAPI{})

	rooms, err := svc.Rooms(ctx)
	require.NoError(t, err)
	assert.Len(t, rooms, 2)
}

func TestRoomsPropagatesDirectoryError(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&fakeDirectory{err: errors.New("directory down")}, &fakeAPI{})

	_, err := svc.Rooms(ctx)
	assert.Error(t, err)
}

func TestGetRoomCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&fakeDirectory{rooms: testRooms()}, &fakeAPI{})

	room, err := svc.GetRoom(ctx, "SALLE-AURORA@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, "Aurora", room.Name)
}

func TestGetRoomNotFound(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&fakeDirectory{rooms: testRooms()}, &fakeAPI{})

	_, err := svc.GetRoom(ctx, "salle-fantome@example.com")
	assert.ErrorIs(t, err, calendar.ErrRoomNotFound)
}

func TestRoomStatusOnDemand(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	api := &fakeAPI{events: map[string][]calendar.RawEvent{
		"salle-aurora@example.com": {
			rawEventAt("m1", "Revue de sprint", now.Add(-30*time.Minute)),
		},
	}}
	svc := newTestService(&fakeDirectory{rooms: testRooms()}, api)

	view, err := svc.RoomStatus(ctx, "salle-aurora@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.AvailabilityOccupied, view.Availability)
	require.NotNil(t, view.CurrentMeeting)
	assert.Equal(t, "Revue de sprint", view.CurrentMeeting.Subject)
}

func TestRoomStatusUnknownOnTotalFailure(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{err: &calendar.RemoteAPIError{Status: 502}}
	svc := newTestService(&fakeDirectory{rooms: testRooms()}, api)

	view, err := svc.RoomStatus(ctx, "salle-aurora@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.AvailabilityUnknown, view.Availability)
	assert.False(t, view.IsOccupied)
}

func TestMeetingsTodayUsesCache(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	api := &fakeAPI{events: map[string][]calendar.RawEvent{
		"salle-aurora@example.com": {
			rawEventAt("m1", "Point d'équipe", now.Add(time.Hour)),
		},
	}}
	svc := newTestService(&fakeDirectory{rooms: testRooms()}, api)

	meetings, err := svc.MeetingsToday(ctx, "salle-aurora@example.com")
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	firstCalls := api.callCount()

	// Second call answers from the repository without hitting the API
	meetings, err = svc.MeetingsToday(ctx, "salle-aurora@example.com")
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	assert.Equal(t, firstCalls, api.callCount())
}

func TestMeetingsTodayEmptyOnTotalFailure(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{err: &calendar.RemoteAPIError{Status: 502}}
	svc := newTestService(&fakeDirectory{rooms: testRooms()}, api)

	meetings, err := svc.MeetingsToday(ctx, "salle-aurora@example.com")
	require.NoError(t, err)
	assert.Empty(t, meetings)
}

func TestAvailabilityAt(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC)

	api := &fakeAPI{events: map[string][]calendar.RawEvent{
		"salle-aurora@example.com": {
			rawEventAt("m1", "Comité produit", at.Add(-15*time.Minute)),
		},
	}}
	svc := newTestService(&fakeDirectory{rooms: testRooms()}, api)

	availability, err := svc.AvailabilityAt(ctx, "salle-aurora@example.com", at)
	require.NoError(t, err)
	assert.Equal(t, models.AvailabilityOccupied, availability)

	// Borealis has no meetings that day
	availability, err = svc.AvailabilityAt(ctx, "salle-borealis@example.com", at)
	require.NoError(t, err)
	assert.Equal(t, models.AvailabilityFree, availability)
}

func TestAvailabilityAtUnknownNeverFabricated(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{err: &calendar.RemoteAPIError{Status: 502}}
	svc := newTestService(&fakeDirectory{rooms: testRooms()}, api)

	availability, err := svc.AvailabilityAt(ctx, "salle-aurora@example.com", time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.AvailabilityUnknown, availability)
}

func TestStatusDataSortedByName(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&fakeDirectory{rooms: []models.MeetingRoom{
		{ID: "salle-zenith@example.com", Name: "Zénith"},
		{ID: "salle-aurora@example.com", Name: "Aurora"},
	}}, &fakeAPI{})

	data, err := svc.StatusData(ctx)
	require.NoError(t, err)
	require.Len(t, data, 2)
	assert.Equal(t, "Aurora", data[0].Room.Name)
	assert.Equal(t, "Zénith", data[1].Room.Name)
}

func TestStatusDataUnknownWithoutCache(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&fakeDirectory{rooms: testRooms()[:1]}, &fakeAPI{})

	data, err := svc.StatusData(ctx)
	require.NoError(t, err)
	require.Len(t, data, 1)
	// No watcher and nothing cached yet, so the view is explicit unknown
	assert.Equal(t, models.AvailabilityUnknown, data[0].View.Availability)
}

func TestWatchingPublishesUpdates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	now := time.Now()
	api := &fakeAPI{events: map[string][]calendar.RawEvent{
		"salle-aurora@example.com": {
			rawEventAt("m1", "Atelier design", now.Add(-10*time.Minute)),
		},
	}}
	svc := newTestService(&fakeDirectory{rooms: testRooms()[:1]}, api)

	var mu sync.Mutex
	var views []*models.RoomOccupancyView
	svc.RegisterUpdateCallback(func(view *models.RoomOccupancyView) {
		mu.Lock()
		views = append(views, view)
		mu.Unlock()
	})

	require.NoError(t, svc.StartWatching(ctx))
	defer svc.StopWatching()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(views) > 0
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	first := views[0]
	mu.Unlock()
	assert.Equal(t, "salle-aurora@example.com", first.RoomID)
	assert.Equal(t, models.AvailabilityOccupied, first.Availability)

	assert.False(t, svc.AllUnreachable())

	view, err := svc.RoomStatus(ctx, "salle-aurora@example.com")
	require.NoError(t, err)
	assert.True(t, view.IsOccupied)
}

func TestAllUnreachable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := &fakeAPI{err: &calendar.RemoteAPIError{Status: 502}}
	svc := newTestService(&fakeDirectory{rooms: testRooms()}, api)

	// Nothing watched yet
	assert.False(t, svc.AllUnreachable())

	require.NoError(t, svc.StartWatching(ctx))
	defer svc.StopWatching()

	assert.Eventually(t, svc.AllUnreachable, 2*time.Second, 5*time.Millisecond)
}
