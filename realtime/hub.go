package realtime

import (
	"encoding/json"
	"log"
	"sync"
)

// Event types pushed to connected clients.
const (
	EventTokenUpdate = "TOKEN_UPDATE"
	EventYourTurn    = "YOUR_TURN"
)

// Event is the wire format for hub messages. UserID, when set, restricts
// delivery to that user's connections.
type Event struct {
	Type        string      `json:"type"`
	UserID      string      `json:"-"`
	BusinessID  string      `json:"businessId,omitempty"`
	TokenNumber string      `json:"tokenNumber,omitempty"`
	Message     string      `json:"message,omitempty"`
	Payload     interface{} `json:"payload,omitempty"`
}

type Client struct {
	ID     string
	UserID string
	Send   chan []byte
}

// Hub fans events out to connected websocket clients. Delivery is
// best-effort: a client whose send buffer is full misses the event.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func New() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	close(client.Send)
}

// Broadcast delivers the event to every matching client.
func (h *Hub) Broadcast(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("hub: marshal event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if event.UserID != "" && client.UserID != event.UserID {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			log.Printf("hub: drop message for client %s", client.ID)
		}
	}
}

// ClientCount is used by tests and the health endpoint.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
