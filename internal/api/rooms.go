package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/navikt/mrooms/internal/calendar"
	"github.com/navikt/mrooms/internal/models"
	"github.com/navikt/mrooms/internal/utils"
)

// RoomHandler handles HTTP requests for room status and meetings
type RoomHandler struct {
	service RoomServicer
}

// NewRoomHandler creates a new room handler with the given service
func NewRoomHandler(service RoomServicer) *RoomHandler {
	return &RoomHandler{
		service: service,
	}
}

// ServeHTTP routes room API requests.
//
// Paths served:
//
//	GET /api/rooms
//	GET /api/rooms/{roomID}/meetings
//	GET /api/rooms/{roomID}/status
//	GET /api/rooms/{roomID}/availability?date=
func (h *RoomHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Path format: /api/rooms[/{roomID}[/{action}]]
	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	var roomID, action string
	if len(pathParts) >= 3 {
		roomID = pathParts[2]
	}
	if len(pathParts) >= 4 {
		action = pathParts[3]
	}

	switch {
	case roomID == "":
		h.listRooms(w, r)
	case action == "meetings":
		h.listMeetings(w, r, roomID)
	case action == "status":
		h.roomStatus(w, r, roomID)
	case action == "availability":
		h.availability(w, r, roomID)
	case action == "":
		h.getRoom(w, r, roomID)
	default:
		http.NotFound(w, r)
	}
}

// listRooms handles GET /api/rooms
func (h *RoomHandler) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.service.Rooms(r.Context())
	if err != nil {
		log.Printf("Error listing rooms: %v", err)
		http.Error(w, "Error retrieving rooms", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(rooms)
}

// getRoom handles GET /api/rooms/{roomID}
func (h *RoomHandler) getRoom(w http.ResponseWriter, r *http.Request, roomID string) {
	room, err := h.service.GetRoom(r.Context(), roomID)
	if err != nil {
		h.roomError(w, roomID, err)
		return
	}

	json.NewEncoder(w).Encode(room)
}

// listMeetings handles GET /api/rooms/{roomID}/meetings
func (h *RoomHandler) listMeetings(w http.ResponseWriter, r *http.Request, roomID string) {
	meetings, err := h.service.MeetingsToday(r.Context(), roomID)
	if err != nil {
		h.roomError(w, roomID, err)
		return
	}

	json.NewEncoder(w).Encode(meetings)
}

// roomStatus handles GET /api/rooms/{roomID}/status
func (h *RoomHandler) roomStatus(w http.ResponseWriter, r *http.Request, roomID string) {
	view, err := h.service.RoomStatus(r.Context(), roomID)
	if err != nil {
		h.roomError(w, roomID, err)
		return
	}

	json.NewEncoder(w).Encode(view)
}

// availabilityResponse is the payload of the availability endpoint.
// Available is absent when the answer is unknown.
type availabilityResponse struct {
	RoomID       string              `json:"room_id"`
	At           time.Time           `json:"at"`
	Availability models.Availability `json:"availability"`
	Available    *bool               `json:"available,omitempty"`
}

// availability handles GET /api/rooms/{roomID}/availability?date=
// The date parameter is an RFC3339 instant and defaults to now.
func (h *RoomHandler) availability(w http.ResponseWriter, r *http.Request, roomID string) {
	at := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "Invalid date parameter, expected RFC3339", http.StatusBadRequest)
			return
		}
		at = parsed
	}

	availability, err := h.service.AvailabilityAt(r.Context(), roomID, at)
	if err != nil {
		h.roomError(w, roomID, err)
		return
	}

	resp := availabilityResponse{
		RoomID:       roomID,
		At:           at,
		Availability: availability,
	}
	if availability != models.AvailabilityUnknown {
		available := availability == models.AvailabilityFree
		resp.Available = &available
	}

	json.NewEncoder(w).Encode(resp)
}

func (h *RoomHandler) roomError(w http.ResponseWriter, roomID string, err error) {
	if errors.Is(err, calendar.ErrRoomNotFound) {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}
	log.Printf("Error handling room %s: %v", utils.SanitizeLogString(roomID), err)
	http.Error(w, "Error retrieving room data", http.StatusInternalServerError)
}

// RefreshHandler handles POST /api/refresh, the dashboard's manual
// retry action after a total fetch failure.
type RefreshHandler struct {
	service RoomServicer
}

// NewRefreshHandler creates a new refresh handler
func NewRefreshHandler(service RoomServicer) *RefreshHandler {
	return &RefreshHandler{service: service}
}

// ServeHTTP triggers an immediate re-fetch of every watched room
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.service.RefreshAll()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Refresh triggered",
	})
}
