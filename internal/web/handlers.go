// Package web serves the dashboard and kiosk UI.
package web

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/navikt/mrooms/internal/models"
	"github.com/navikt/mrooms/internal/service"
)

// Handler manages web UI requests
type Handler struct {
	roomService RoomServicer
	templates   *template.Template
	sseManager  *SSEManager
}

// NewHandler creates a new web UI handler
func NewHandler(roomService RoomServicer, templatesDir string) (*Handler, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"formatTime":    formatTime,
		"formatMinutes": formatMinutes,
	}).ParseGlob(filepath.Join(templatesDir, "*.html"))

	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Handler{
		roomService: roomService,
		templates:   tmpl,
		sseManager:  NewSSEManager(),
	}, nil
}

// formatTime is a template helper function to format time
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("15:04")
}

// formatMinutes renders a duration until/since an instant in whole minutes
func formatMinutes(t time.Time) string {
	minutes := int(time.Until(t).Minutes())
	if minutes < 0 {
		minutes = -minutes
	}
	return fmt.Sprintf("%d min", minutes)
}

// SetupRoutes registers web UI routes on the given mux
func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	// Serve static files
	fileServer := http.FileServer(http.Dir("./internal/web/static"))
	mux.Handle("/static/", http.StripPrefix("/static/", fileServer))

	// Live update stream
	mux.Handle("/events", h.sseManager)

	// Dashboard and kiosk pages
	mux.HandleFunc("/", h.handleIndex)
	mux.HandleFunc("/kiosk/", h.handleKiosk)

	// HTMX partial endpoints
	mux.HandleFunc("/partial/rooms", h.handlePartialRoomList)
}

// dashboardViewModel is what the layout template renders
type dashboardViewModel struct {
	Rooms          []service.RoomStatusData
	AllUnreachable bool
	LastUpdated    string
	CurrentYear    int
}

// handleIndex renders the main dashboard with every room's status
func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	// Only handle the root path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	rooms, err := h.roomService.StatusData(r.Context())
	if err != nil {
		log.Printf("Error getting room status data: %v", err)
		http.Error(w, "Failed to get room data", http.StatusInternalServerError)
		return
	}

	viewModel := dashboardViewModel{
		Rooms:          rooms,
		AllUnreachable: h.roomService.AllUnreachable(),
		LastUpdated:    time.Now().Format("2006-01-02 15:04:05"),
		CurrentYear:    time.Now().Year(),
	}

	if err := h.templates.ExecuteTemplate(w, "layout.html", viewModel); err != nil {
		log.Printf("Error rendering template: %v", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

// handleKiosk renders the wall-display view for a single room
func (h *Handler) handleKiosk(w http.ResponseWriter, r *http.Request) {
	roomID := strings.TrimPrefix(r.URL.Path, "/kiosk/")
	if roomID == "" {
		http.NotFound(w, r)
		return
	}

	rooms, err := h.roomService.StatusData(r.Context())
	if err != nil {
		log.Printf("Error getting room status data: %v", err)
		http.Error(w, "Failed to get room data", http.StatusInternalServerError)
		return
	}

	var room *service.RoomStatusData
	for i := range rooms {
		if strings.EqualFold(rooms[i].Room.ID, roomID) {
			room = &rooms[i]
			break
		}
	}
	if room == nil {
		http.NotFound(w, r)
		return
	}

	if err := h.templates.ExecuteTemplate(w, "kiosk.html", room); err != nil {
		log.Printf("Error rendering kiosk template: %v", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

// handlePartialRoomList renders just the room list for HTMX updates
func (h *Handler) handlePartialRoomList(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.roomService.StatusData(r.Context())
	if err != nil {
		log.Printf("Error getting room status data: %v", err)
		http.Error(w, "Failed to get room data", http.StatusInternalServerError)
		return
	}

	viewModel := dashboardViewModel{
		Rooms:          rooms,
		AllUnreachable: h.roomService.AllUnreachable(),
	}

	if err := h.templates.ExecuteTemplate(w, "room_list", viewModel); err != nil {
		log.Printf("Error rendering room list: %v", err)
		http.Error(w, "Failed to render room list", http.StatusInternalServerError)
	}
}

// NotifyViewUpdate forwards an occupancy update to all SSE clients
func (h *Handler) NotifyViewUpdate(view *models.RoomOccupancyView) {
	h.sseManager.NotifyViewUpdate(view)
}

// NotifyRoomFreed forwards a room-freed edge event to all SSE clients
func (h *Handler) NotifyRoomFreed(roomID string) {
	h.sseManager.NotifyRoomFreed(roomID)
}

// Shutdown gracefully shuts down the web handler and its SSE manager
func (h *Handler) Shutdown() {
	h.sseManager.Shutdown()
}
