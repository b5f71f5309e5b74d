package web

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/google/uuid"

	"github.com/navikt/mrooms/internal/models"
)

// sseClient represents a connected browser receiving server-sent events
type sseClient struct {
	id             string
	responseWriter http.ResponseWriter
	flusher        http.Flusher
	disconnected   chan struct{}
	lastActive     time.Time
	mu             sync.Mutex
}

// SSEManager pushes occupancy updates and room-freed events to
// connected dashboards and kiosk displays.
type SSEManager struct {
	clients      map[string]*sseClient
	clientsMutex sync.RWMutex
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewSSEManager creates a new server-sent events manager
func NewSSEManager() *SSEManager {
	manager := &SSEManager{
		clients:  make(map[string]*sseClient),
		shutdown: make(chan struct{}),
	}

	// Regularly drop clients whose connection went away without a
	// clean disconnect.
	go manager.cleanupStaleClients()

	return manager
}

// cleanupStaleClients periodically removes clients that haven't been active
func (sm *SSEManager) cleanupStaleClients() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sm.shutdown:
			return
		case <-ticker.C:
			threshold := time.Now().Add(-2 * time.Minute)

			sm.clientsMutex.Lock()
			for id, client := range sm.clients {
				select {
				case <-client.disconnected:
					delete(sm.clients, id)
				default:
					if client.lastActive.Before(threshold) {
						close(client.disconnected)
						delete(sm.clients, id)
						log.Printf("Removed stale SSE client: %s", id)
					}
				}
			}
			sm.clientsMutex.Unlock()
		}
	}
}

// ServeHTTP implements the http.Handler interface for SSE connections
func (sm *SSEManager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx proxy buffering

	client := &sseClient{
		id:             uuid.NewString(),
		responseWriter: w,
		flusher:        flusher,
		disconnected:   make(chan struct{}),
		lastActive:     time.Now(),
	}

	sm.clientsMutex.Lock()
	sm.clients[client.id] = client
	sm.clientsMutex.Unlock()

	log.Printf("SSE client connected: %s from %s", client.id, r.RemoteAddr)

	defer func() {
		sm.clientsMutex.Lock()
		delete(sm.clients, client.id)
		sm.clientsMutex.Unlock()
		log.Printf("SSE client disconnected: %s", client.id)
	}()

	// Retry directive plus an initial event so the browser loads data
	// without waiting for the first tick.
	fmt.Fprintf(w, "retry: 5000\n")
	client.send(sse.Event{Event: "connected", Data: map[string]string{"id": client.id}})
	client.send(sse.Event{Event: "initial-load", Data: "Load initial data"})

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			close(client.disconnected)
			return
		case <-client.disconnected:
			return
		case <-sm.shutdown:
			return
		case <-heartbeat.C:
			client.mu.Lock()
			_, err := fmt.Fprintf(w, ": heartbeat %s\n\n", time.Now().Format(time.RFC3339))
			if err == nil {
				flusher.Flush()
				client.lastActive = time.Now()
			}
			client.mu.Unlock()
			if err != nil {
				close(client.disconnected)
				return
			}
		}
	}
}

// send encodes and flushes one event to the client.
func (c *sseClient) send(event sse.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := sse.Encode(c.responseWriter, event); err != nil {
		return err
	}
	c.flusher.Flush()
	c.lastActive = time.Now()
	return nil
}

// NotifyViewUpdate pushes an occupancy update to every connected client.
// The browser reacts by re-fetching the room list partial.
func (sm *SSEManager) NotifyViewUpdate(view *models.RoomOccupancyView) {
	sm.broadcast(sse.Event{
		Id:    uuid.NewString(),
		Event: "update",
		Data:  view.RoomID,
	})
}

// NotifyRoomFreed pushes the one-shot room-freed edge event, letting
// displays show a transient "room freed" notification.
func (sm *SSEManager) NotifyRoomFreed(roomID string) {
	sm.broadcast(sse.Event{
		Id:    uuid.NewString(),
		Event: "room-freed",
		Data:  roomID,
	})
}

// broadcast sends one event to every connected client, pruning clients
// whose connection fails.
func (sm *SSEManager) broadcast(event sse.Event) {
	sm.clientsMutex.RLock()
	clients := make([]*sseClient, 0, len(sm.clients))
	for _, client := range sm.clients {
		clients = append(clients, client)
	}
	sm.clientsMutex.RUnlock()

	var failed []string
	for _, client := range clients {
		select {
		case <-client.disconnected:
			continue
		default:
		}

		if err := client.send(event); err != nil {
			log.Printf("Error sending SSE event to client %s: %v", client.id, err)
			failed = append(failed, client.id)
		}
	}

	if len(failed) > 0 {
		sm.clientsMutex.Lock()
		for _, id := range failed {
			if client, exists := sm.clients[id]; exists {
				close(client.disconnected)
				delete(sm.clients, id)
			}
		}
		sm.clientsMutex.Unlock()
	}
}

// ClientCount returns the number of connected clients
func (sm *SSEManager) ClientCount() int {
	sm.clientsMutex.RLock()
	defer sm.clientsMutex.RUnlock()
	return len(sm.clients)
}

// Shutdown disconnects every client and stops the cleanup loop
func (sm *SSEManager) Shutdown() {
	sm.shutdownOnce.Do(func() {
		close(sm.shutdown)

		sm.clientsMutex.Lock()
		for id, client := range sm.clients {
			select {
			case <-client.disconnected:
			default:
				close(client.disconnected)
			}
			delete(sm.clients, id)
		}
		sm.clientsMutex.Unlock()
	})
}
