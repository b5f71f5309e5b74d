package api

import (
	"net/http"
)

// SetupRoutes configures the HTTP routes for the API
func SetupRoutes(service RoomServicer) *http.ServeMux {
	mux := http.NewServeMux()

	// Health check endpoints for Kubernetes
	mux.HandleFunc("/health/live", HealthLiveHandler)
	mux.HandleFunc("/health/ready", HealthReadyHandler)

	// Room status endpoints
	roomHandler := NewRoomHandler(service)
	mux.Handle("/api/rooms", roomHandler)
	mux.Handle("/api/rooms/", roomHandler)

	// Manual refresh action
	mux.Handle("/api/refresh", NewRefreshHandler(service))

	return mux
}
