// websocket/hub.go
package websocket

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

type MessageType string

const (
	MessageTypeImportProgress  MessageType = "import:progress"
	MessageTypeImportCompleted MessageType = "import:completed"
	MessageTypeImportFailed    MessageType = "import:failed"
	MessageTypeSubscribe       MessageType = "SUBSCRIBE"
	MessageTypeUnsubscribe     MessageType = "UNSUBSCRIBE"
	MessageTypeError           MessageType = "ERROR"
)

type WebSocketMessage struct {
	Type      MessageType `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
	BatchID   string      `json:"batchId,omitempty"`
}

type Client struct {
	ID      uuid.UUID
	Conn    *websocket.Conn
	Hub     *Hub
	Send    chan WebSocketMessage
	Batches map[string]bool
	mu      sync.RWMutex
}

type Hub struct {
	clients    map[*Client]bool
	broadcast  chan WebSocketMessage
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan WebSocketMessage),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.broadcastToAll(message)
		}
	}
}

// Broadcast sends a message to all connected clients
func (h *Hub) Broadcast(message WebSocketMessage) {
	h.broadcast <- message
}

// BroadcastToBatch sends a message to clients subscribed to a specific
// batch. A client whose send buffer is full is dropped; the write lock is
// held so removal cannot race the unregister path into a double close.
func (h *Hub) BroadcastToBatch(batchID string, message WebSocketMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.mu.RLock()
		_, isSubscribed := client.Batches[batchID]
		client.mu.RUnlock()

		if isSubscribed {
			select {
			case client.Send <- message:
			default:
				close(client.Send)
				delete(h.clients, client)
			}
		}
	}
}

// broadcastToAll sends a message to all connected clients, dropping any
// whose send buffer is full. Holds the write lock for the same reason as
// BroadcastToBatch.
func (h *Hub) broadcastToAll(message WebSocketMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.Send <- message:
		default:
			close(client.Send)
			delete(h.clients, client)
		}
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetBatchSubscribers returns all clients subscribed to a batch
func (h *Hub) GetBatchSubscribers(batchID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var subscribers []*Client
	for client := range h.clients {
		client.mu.RLock()
		_, isSubscribed := client.Batches[batchID]
		client.mu.RUnlock()

		if isSubscribed {
			subscribers = append(subscribers, client)
		}
	}
	return subscribers
}

// SubscribeToBatch adds a batch to client's subscription
func (c *Client) SubscribeToBatch(batchID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Batches == nil {
		c.Batches = make(map[string]bool)
	}
	c.Batches[batchID] = true
}

// UnsubscribeFromBatch removes a batch from client's subscription
func (c *Client) UnsubscribeFromBatch(batchID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.Batches, batchID)
}

// IsSubscribedToBatch checks if client is subscribed to a batch
func (c *Client) IsSubscribedToBatch(batchID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.Batches[batchID]
	return exists
}
