package chatws

import (
	"encoding/json"

	websocket "github.com/gofiber/contrib/websocket"
)

// ReadPump decodes inbound client events and dispatches them to the hub.
// Transport teardown, however it happens, ends up in Unregister and fires
// the same side effects as an explicit leave-session.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var incoming struct {
			Type      string `json:"type"`
			SessionID int64  `json:"sessionId"`
			UserType  string `json:"userType"`
			MessageID int64  `json:"messageId"`
		}
		if err := json.Unmarshal(payload, &incoming); err != nil {
			c.writeError("invalid event payload")
			continue
		}

		switch incoming.Type {
		case "join-session":
			if incoming.SessionID <= 0 {
				c.writeError("invalid session id")
				continue
			}
			c.hub.JoinSession(c, incoming.SessionID, incoming.UserType)
		case "leave-session":
			c.hub.LeaveSession(c)
		case EventTypingStart, EventTypingStop:
			if incoming.SessionID <= 0 {
				continue
			}
			c.hub.Typing(c, incoming.SessionID, incoming.UserType, incoming.Type)
		case "message-delivered":
			if incoming.SessionID <= 0 || incoming.MessageID <= 0 {
				continue
			}
			c.hub.MessageDelivered(c, incoming.MessageID, incoming.SessionID)
		default:
			c.writeError("unsupported event type")
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func (c *Client) writeError(message string) {
	c.hub.sendToClient(c, Event{"error", map[string]any{
		"message":   message,
		"timestamp": timestamp(),
	}})
}
