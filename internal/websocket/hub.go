package chatws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/Nagell/chat-nest/internal/models"
	"github.com/Nagell/chat-nest/internal/sanitize"
)

// Outbound event names.
const (
	EventConnectionStatus   = "connection-status"
	EventSessionJoined      = "session-joined"
	EventUserJoined         = "user-joined"
	EventSessionLeft        = "session-left"
	EventUserDisconnected   = "user-disconnected"
	EventTypingStart        = "typing-start"
	EventTypingStop         = "typing-stop"
	EventMessageConfirmed   = "message-confirmed"
	EventNewMessage         = "new-message"
	EventSystemNotification = "system-notification"
)

type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub coordinates session rooms: it owns the connection set, routes client
// events through the Registry, and fans payloads out to room members.
// Delivery is fire-and-forget; a client that cannot keep up is dropped and
// the transport teardown self-heals the Registry.
type Hub struct {
	mu       sync.Mutex
	clients  map[string]*Client
	registry *Registry
}

type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	id       string
	userType string
	send     chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		registry: NewRegistry(),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		id:       uuid.NewString(),
		userType: models.SenderVisitor,
		send:     make(chan []byte, 32),
	}
}

// Register adds the connection and acknowledges it with a connection-status
// event.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.enqueueLocked(c, Event{EventConnectionStatus, map[string]any{
		"connected": true,
		"timestamp": timestamp(),
	}})
	h.mu.Unlock()

	log.Printf("ws: client %s connected", c.id)
}

// Unregister removes the connection and performs the implicit leave-session,
// notifying the remaining room members. Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if current, ok := h.clients[c.id]; ok && current == c {
		delete(h.clients, c.id)
		close(c.send)
	}
	h.mu.Unlock()

	sessionID, remaining, ok := h.registry.Leave(c.id)
	if !ok {
		return
	}

	h.broadcastToRoom(sessionID, c.id, Event{EventUserDisconnected, map[string]any{
		"sessionId":         sessionID,
		"userType":          c.userType,
		"activeConnections": remaining,
		"timestamp":         timestamp(),
	}})
	log.Printf("ws: client %s disconnected from session %d", c.id, sessionID)
}

// JoinSession moves the connection into the room for sessionID, leaving any
// previous room first. The joiner gets a session-joined acknowledgment and
// the rest of the room a user-joined event.
func (h *Hub) JoinSession(c *Client, sessionID int64, userType string) {
	if userType != models.SenderAdmin {
		userType = models.SenderVisitor
	}
	c.userType = userType

	active := h.registry.Join(c.id, sessionID)

	h.sendToClient(c, Event{EventSessionJoined, map[string]any{
		"sessionId":         sessionID,
		"userType":          userType,
		"activeConnections": active,
		"timestamp":         timestamp(),
	}})
	h.broadcastToRoom(sessionID, c.id, Event{EventUserJoined, map[string]any{
		"sessionId":         sessionID,
		"userType":          userType,
		"activeConnections": active,
		"timestamp":         timestamp(),
	}})

	log.Printf("ws: client %s joined session %d as %s", c.id, sessionID, userType)
}

// LeaveSession handles an explicit leave. A connection with no room is a
// no-op.
func (h *Hub) LeaveSession(c *Client) {
	sessionID, remaining, ok := h.registry.Leave(c.id)
	if !ok {
		return
	}

	h.sendToClient(c, Event{EventSessionLeft, map[string]any{
		"sessionId": sessionID,
		"timestamp": timestamp(),
	}})
	h.broadcastToRoom(sessionID, c.id, Event{EventUserDisconnected, map[string]any{
		"sessionId":         sessionID,
		"userType":          c.userType,
		"activeConnections": remaining,
		"timestamp":         timestamp(),
	}})

	log.Printf("ws: client %s left session %d", c.id, sessionID)
}

// Typing relays a typing indicator to the room, excluding the sender.
// Stateless; an unknown room simply has nobody to notify.
func (h *Hub) Typing(c *Client, sessionID int64, userType string, event string) {
	h.broadcastToRoom(sessionID, c.id, Event{event, map[string]any{
		"sessionId": sessionID,
		"userType":  userType,
		"timestamp": timestamp(),
	}})
}

// MessageDelivered relays a delivery confirmation to the room, excluding the
// sender. Purely advisory.
func (h *Hub) MessageDelivered(c *Client, messageID int64, sessionID int64) {
	h.broadcastToRoom(sessionID, c.id, Event{EventMessageConfirmed, map[string]any{
		"messageId":   messageID,
		"sessionId":   sessionID,
		"deliveredAt": timestamp(),
	}})
}

type deliveryInfo struct {
	ActiveConnections int    `json:"activeConnections"`
	DeliveredAt       string `json:"deliveredAt"`
}

type outboundMessage struct {
	models.ChatMessage
	DeliveryInfo deliveryInfo `json:"deliveryInfo"`
}

// BroadcastMessage sanitizes the message, attaches delivery metadata and
// fans it out to every connection in the session's room. Returns the number
// of clients the send was attempted for.
func (h *Hub) BroadcastMessage(sessionID int64, message models.ChatMessage) int {
	payload := outboundMessage{
		ChatMessage: sanitize.Message(message),
		DeliveryInfo: deliveryInfo{
			ActiveConnections: h.registry.ActiveCount(sessionID),
			DeliveredAt:       timestamp(),
		},
	}

	attempted := h.broadcastToRoom(sessionID, "", Event{EventNewMessage, payload})
	log.Printf("ws: message %d sent to %d clients in session %d", message.ID, attempted, sessionID)
	return attempted
}

// SendSystemNotification fans an unsanitized system payload out to the room.
// System events carry no free-text user content.
func (h *Hub) SendSystemNotification(sessionID int64, data map[string]any) int {
	payload := make(map[string]any, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	payload["timestamp"] = timestamp()

	return h.broadcastToRoom(sessionID, "", Event{EventSystemNotification, payload})
}

func (h *Hub) Stats() models.ConnectionStats {
	return h.registry.Stats()
}

func (h *Hub) IsSessionActive(sessionID int64) bool {
	return h.registry.ActiveCount(sessionID) > 0
}

// broadcastToRoom sends the encoded event to every room member except
// excludeID. A room with no members is a no-op returning 0.
func (h *Hub) broadcastToRoom(sessionID int64, excludeID string, event Event) int {
	encoded, err := json.Marshal(event)
	if err != nil {
		log.Printf("ws: encode %s event: %v", event.Event, err)
		return 0
	}

	members := h.registry.Members(sessionID)

	h.mu.Lock()
	defer h.mu.Unlock()

	attempted := 0
	for _, id := range members {
		if id == excludeID {
			continue
		}
		client, ok := h.clients[id]
		if !ok {
			continue
		}
		attempted++
		h.enqueueEncodedLocked(client, encoded)
	}
	return attempted
}

func (h *Hub) sendToClient(c *Client, event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.clients[c.id]; !ok || current != c {
		return
	}
	h.enqueueLocked(c, event)
}

func (h *Hub) enqueueLocked(c *Client, event Event) {
	encoded, err := json.Marshal(event)
	if err != nil {
		log.Printf("ws: encode %s event: %v", event.Event, err)
		return
	}
	h.enqueueEncodedLocked(c, encoded)
}

// enqueueEncodedLocked never blocks: a client whose buffer is full is
// dropped, and its transport teardown triggers the usual unregister cycle.
// Callers must hold h.mu.
func (h *Hub) enqueueEncodedLocked(c *Client, payload []byte) {
	select {
	case c.send <- payload:
	default:
		delete(h.clients, c.id)
		close(c.send)
	}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
