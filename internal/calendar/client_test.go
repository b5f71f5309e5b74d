package calendar_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navikt/mrooms/internal/calendar"
	"github.com/navikt/mrooms/internal/config"
)

func testClient(serverURL string) *calendar.Client {
	// Incomplete credentials: the client runs unauthenticated against
	// the test server.
	return calendar.NewClient(config.CalendarConfig{BaseURL: serverURL})
}

func TestClient_ListRooms(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/places/microsoft.graph.room", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"value":[
			{"id":"r1","displayName":"Aurora","emailAddress":"salle-aurora@example.com",
			 "capacity":8,"building":"Bâtiment A","floorLabel":"2e étage",
			 "tags":["Écran"],"videoDeviceName":"Cisco Room Kit"}
		]}`))
	}))
	defer server.Close()

	rooms, err := testClient(server.URL).ListRooms(context.Background())
	require.NoError(t, err)

	require.Len(t, rooms, 1)
	room := rooms[0]
	assert.Equal(t, "salle-aurora@example.com", room.ID, "mailbox address is the identifier")
	assert.Equal(t, "Aurora", room.Name)
	assert.Equal(t, "Bâtiment A, 2e étage", room.Location)
	assert.Equal(t, 8, room.Capacity)
	assert.Contains(t, room.Features, "Écran")
	assert.Contains(t, room.Features, "Visioconférence")
}

func TestClient_CalendarView(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/salle-aurora@example.com/calendarView", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("startDateTime"))
		assert.NotEmpty(t, r.URL.Query().Get("endDateTime"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"value":[
			{"id":"ev-1","subject":"Point projet",
			 "start":{"dateTime":"2025-03-10T09:00:00.0000000","timeZone":"UTC"},
			 "end":{"dateTime":"2025-03-10T10:00:00.0000000","timeZone":"UTC"}}
		]}`))
	}))
	defer server.Close()

	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	events, err := testClient(server.URL).CalendarView(context.Background(), "salle-aurora@example.com", start, start.AddDate(0, 0, 1))
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, "ev-1", events[0].ID)
	assert.Equal(t, "2025-03-10T09:00:00.0000000", events[0].Start.DateTime)
	assert.Equal(t, "UTC", events[0].Start.TimeZone)
}

func TestClient_UnauthorizedMapsToAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := testClient(server.URL).ListRooms(context.Background())

	var authErr *calendar.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)
}

func TestClient_ServerErrorMapsToRemoteAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	start := time.Now()
	_, err := testClient(server.URL).UserEvents(context.Background(), "dashboard@example.com", start, start.Add(24*time.Hour))

	var remoteErr *calendar.RemoteAPIError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusBadGateway, remoteErr.Status)
	assert.Contains(t, remoteErr.Body, "upstream exploded")
}
