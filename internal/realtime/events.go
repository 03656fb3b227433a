// file: internal/realtime/events.go
// version: 1.2.0
// guid: 7a8b9c0d-1e2f-4a3b-8c4d-5e6f7a8b9c0d

package realtime

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// EventType defines the type of real-time event
type EventType string

const (
	EventStoreReset     EventType = "store.reset"
	EventBackupCreated  EventType = "backup.created"
	EventBackupRestored EventType = "backup.restored"
	EventBooksChanged   EventType = "books.changed"
	EventSystemStatus   EventType = "system.status"
)

// Event represents a real-time event to send to clients
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// Client represents a connected SSE client
type Client struct {
	ID      string
	Channel chan *Event
}

// NewClient creates a new SSE client
func NewClient(id string) *Client {
	return &Client{
		ID:      id,
		Channel: make(chan *Event, 100),
	}
}

// EventHub manages SSE connections and event distribution
type EventHub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewEventHub creates a new event hub
func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[string]*Client),
	}
}

// RegisterClient registers a new client
func (h *EventHub) RegisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	log.Printf("Client %s registered, total clients: %d", client.ID, len(h.clients))
}

// UnregisterClient removes a client
func (h *EventHub) UnregisterClient(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, exists := h.clients[clientID]; exists {
		close(client.Channel)
		delete(h.clients, clientID)
		log.Printf("Client %s unregistered, remaining clients: %d", clientID, len(h.clients))
	}
}

// Broadcast sends an event to all connected clients
func (h *EventHub) Broadcast(event *Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, client := range h.clients {
		select {
		case client.Channel <- event:
			count++
		default:
			log.Printf("Warning: Client %s channel full, dropping event", client.ID)
		}
	}

	if count > 0 {
		log.Printf("Broadcasted event %s to %d clients", event.Type, count)
	}
}

// SendStoreReset notifies clients that a bulk destructive operation replaced
// or cleared store contents. Clients should refetch everything they hold.
func (h *EventHub) SendStoreReset(at time.Time) {
	h.Broadcast(&Event{
		Type:      EventStoreReset,
		Timestamp: time.Now(),
		Data: map[string]any{
			"reset_at": at,
		},
	})
}

// SendBackupCreated sends a backup completion event
func (h *EventHub) SendBackupCreated(backupID int, bookCount int) {
	h.Broadcast(&Event{
		Type:      EventBackupCreated,
		Timestamp: time.Now(),
		Data: map[string]any{
			"backup_id":  backupID,
			"book_count": bookCount,
		},
	})
}

// SendBackupRestored sends a restore completion event
func (h *EventHub) SendBackupRestored(backupID int, bookCount int) {
	h.Broadcast(&Event{
		Type:      EventBackupRestored,
		Timestamp: time.Now(),
		Data: map[string]any{
			"backup_id":  backupID,
			"book_count": bookCount,
		},
	})
}

// SendBooksChanged sends a coarse change notification for book records
func (h *EventHub) SendBooksChanged(count int) {
	h.Broadcast(&Event{
		Type:      EventBooksChanged,
		Timestamp: time.Now(),
		Data: map[string]any{
			"count": count,
		},
	})
}

// GetClientCount returns the number of connected clients
func (h *EventHub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleSSE handles Server-Sent Events connection
func (h *EventHub) HandleSSE(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache, no-transform")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("X-Accel-Buffering", "no")

	clientID := fmt.Sprintf("client-%d", time.Now().UnixNano())
	client := NewClient(clientID)

	h.RegisterClient(client)
	defer h.UnregisterClient(clientID)

	initialEvent := &Event{
		Type:      "connection.established",
		Timestamp: time.Now(),
		Data: map[string]any{
			"client_id": clientID,
		},
	}
	if data, err := json.Marshal(initialEvent); err == nil {
		_, _ = c.Writer.Write([]byte(fmt.Sprintf("data: %s\n\n", data)))
		c.Writer.Flush()
	}

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			log.Printf("Client %s connection closed", clientID)
			return
		case event := <-client.Channel:
			data, err := json.Marshal(event)
			if err != nil {
				log.Printf("Error marshaling event: %v", err)
				continue
			}
			_, err = c.Writer.Write([]byte(fmt.Sprintf("data: %s\n\n", data)))
			if err != nil {
				log.Printf("Error writing to client %s: %v", clientID, err)
				return
			}
			c.Writer.Flush()
		case <-ticker.C:
			heartbeat := map[string]any{
				"type":      "heartbeat",
				"timestamp": time.Now(),
			}
			if data, err := json.Marshal(heartbeat); err == nil {
				_, _ = c.Writer.Write([]byte(fmt.Sprintf("data: %s\n\n", data)))
				c.Writer.Flush()
			}
		}
	}
}
