// websocket/handler.go
package websocket

import (
	"fmt"
	"time"

	"case-management-backend/config"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WsHandler manages WebSocket requests and connections
type WsHandler struct {
	hub *Hub
}

// NewWsHandler creates a new WebSocket handler instance
func NewWsHandler(hub *Hub) *WsHandler {
	return &WsHandler{
		hub: hub,
	}
}

// HandleWebSocket handles incoming WebSocket upgrade requests. Clients
// connect with ?batch=<id> to follow a specific import, and can subscribe
// to further batches over the socket afterwards.
func (h *WsHandler) HandleWebSocket(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	batchID := c.Query("batch")
	if batchID != "" {
		if _, err := uuid.Parse(batchID); err != nil {
			config.Logger.Warn("Invalid batch ID on WebSocket connect",
				zap.String("batchID", batchID),
			)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid batch ID format",
			})
		}
	}

	return websocket.New(func(conn *websocket.Conn) {
		client := &Client{
			ID:      uuid.New(),
			Conn:    conn,
			Hub:     h.hub,
			Send:    make(chan WebSocketMessage, 256),
			Batches: make(map[string]bool),
		}

		// Auto-subscribe the client to the batch they connected with
		if batchID != "" {
			client.Batches[batchID] = true
		}

		h.hub.register <- client

		config.Logger.Info("WebSocket client registered",
			zap.String("clientID", client.ID.String()),
			zap.String("batchID", batchID),
		)

		go client.writePump()
		client.readPump()
	})(c)
}

// readPump listens for incoming messages from the WebSocket
func (c *Client) readPump() {
	defer func() {
		config.Logger.Info("WebSocket client disconnecting",
			zap.String("clientID", c.ID.String()),
		)
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(512 * 1024)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var msg WebSocketMessage
		err := c.Conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				config.Logger.Warn("WebSocket unexpected close",
					zap.String("clientID", c.ID.String()),
					zap.Error(err),
				)
			}
			break
		}

		if msg.Timestamp.IsZero() {
			msg.Timestamp = time.Now()
		}

		switch msg.Type {
		case MessageTypeSubscribe:
			c.handleSubscription(msg, true)
		case MessageTypeUnsubscribe:
			c.handleSubscription(msg, false)
		default:
			config.Logger.Warn("Unknown WebSocket message type",
				zap.String("type", string(msg.Type)),
				zap.String("clientID", c.ID.String()),
			)
			c.sendError("Unknown message type: " + string(msg.Type))
		}
	}
}

// writePump sends queued messages and keeps the connection alive
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Hub closed the channel
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(message); err != nil {
				config.Logger.Debug("WebSocket write error",
					zap.String("clientID", c.ID.String()),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				config.Logger.Debug("WebSocket ping error",
					zap.String("clientID", c.ID.String()),
					zap.Error(err),
				)
				return
			}
		}
	}
}

// handleSubscription adds or removes a batch subscription for this client
func (c *Client) handleSubscription(msg WebSocketMessage, subscribe bool) {
	batchID := msg.BatchID
	if batchID == "" {
		if payload, ok := msg.Payload.(map[string]interface{}); ok {
			batchID, _ = payload["batchId"].(string)
		}
	}
	if batchID == "" {
		c.sendError("batchId is required")
		return
	}
	if _, err := uuid.Parse(batchID); err != nil {
		c.sendError("Invalid batch ID format")
		return
	}

	if subscribe {
		c.SubscribeToBatch(batchID)
	} else {
		c.UnsubscribeFromBatch(batchID)
	}

	config.Logger.Debug("WebSocket subscription changed",
		zap.String("clientID", c.ID.String()),
		zap.String("batchID", batchID),
		zap.Bool("subscribed", subscribe),
	)
}

// sendError sends an error message back to the client
func (c *Client) sendError(message string) {
	errorMsg := WebSocketMessage{
		Type: MessageTypeError,
		Payload: map[string]interface{}{
			"message": message,
		},
		Timestamp: time.Now(),
	}

	c.Send <- errorMsg
}

// SendMessage sends a message to this specific client
func (c *Client) SendMessage(msg WebSocketMessage) error {
	select {
	case c.Send <- msg:
		return nil
	default:
		return fmt.Errorf("client send channel is full")
	}
}
