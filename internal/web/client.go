package web

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/codefionn/collabd/internal/coordinator"
	"github.com/codefionn/collabd/internal/logger"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 65536
)

// Client is one authenticated websocket connection. It implements
// coordinator.Conn: outbound events go through a bounded queue and are
// dropped when the peer cannot keep up, so a slow client never stalls the
// relay.
type Client struct {
	ID      string
	hub     *Hub
	conn    *websocket.Conn
	coord   *coordinator.Coordinator
	profile coordinator.Profile

	send       chan interface{}
	sendMu     sync.Mutex
	sendClosed bool

	debug bool
}

// NewClient creates a client for an upgraded, authenticated connection.
func NewClient(hub *Hub, conn *websocket.Conn, coord *coordinator.Coordinator, profile coordinator.Profile, sendBuffer int, debug bool) *Client {
	id, _ := generateClientID()

	return &Client{
		ID:      id,
		hub:     hub,
		conn:    conn,
		coord:   coord,
		profile: profile,
		send:    make(chan interface{}, sendBuffer),
		debug:   debug,
	}
}

// UserID returns the authenticated user behind this connection.
func (c *Client) UserID() string {
	return c.profile.UserID
}

// Send implements coordinator.Conn. Never blocks.
func (c *Client) Send(event string, payload interface{}) {
	c.enqueue(Event{Type: event, Payload: payload})
}

func (c *Client) reply(req *Request, success bool, errMsg string, data interface{}) {
	c.enqueue(Reply{Type: "reply", Seq: req.Seq, Success: success, Error: errMsg, Data: data})
}

func (c *Client) enqueue(msg interface{}) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.sendClosed {
		return
	}
	select {
	case c.send <- msg:
	default:
		logger.Warn("Client %s send queue full, dropping message", c.ID)
	}
}

// closeSend marks the queue closed so late broadcasts from the coordinator
// cannot hit a closed channel.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.sendClosed {
		c.sendClosed = true
		close(c.send)
	}
}

// ReadPump pumps messages from the websocket into the coordinator.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.coord.OnConnClosed(c.profile.UserID, c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket read error: %v", err)
			}
			break
		}

		var req Request
		if err := json.Unmarshal(message, &req); err != nil {
			logger.Error("Failed to unmarshal message: %v", err)
			continue
		}

		if c.debug {
			logger.Debug("WebSocket received: %s", string(message))
		}

		c.handleRequest(&req)
	}
}

// WritePump pumps queued messages to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(message)
			if err != nil {
				logger.Error("Failed to marshal message: %v", err)
				continue
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Error("Failed to write message: %v", err)
				return
			}

			if c.debug {
				logger.Debug("WebSocket sent: %s", string(data))
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleRequest validates and dispatches one inbound message. Every request
// gets a reply; failures never close the connection.
func (c *Client) handleRequest(req *Request) {
	userID := c.profile.UserID

	switch req.Type {
	case MessageTypeJoinProject:
		var p projectPayload
		if !c.decode(req, &p) || !c.requireFields(req, p.ProjectID != "", "projectId") {
			return
		}
		_, err := c.coord.JoinProject(userID, p.ProjectID)
		c.replyForError(req, err)

	case MessageTypeLeaveProject:
		var p projectPayload
		if !c.decode(req, &p) || !c.requireFields(req, p.ProjectID != "", "projectId") {
			return
		}
		c.coord.LeaveProject(userID, p.ProjectID)
		c.reply(req, true, "", nil)

	case MessageTypeOpenFile:
		var p filePayload
		if !c.decode(req, &p) || !c.requireFields(req, p.ProjectID != "" && p.FileID != "", "projectId, fileId") {
			return
		}
		_, err := c.coord.OpenFile(userID, p.ProjectID, p.FileID)
		c.replyForError(req, err)

	case MessageTypeCloseFile:
		var p filePayload
		if !c.decode(req, &p) || !c.requireFields(req, p.FileID != "", "fileId") {
			return
		}
		c.coord.CloseFile(userID, p.FileID)
		c.reply(req, true, "", nil)

	case MessageTypeEdit:
		var ev coordinator.EditEvent
		if !c.decode(req, &ev) {
			return
		}
		c.replyForError(req, c.coord.RelayEdit(userID, ev))

	case MessageTypeCursor:
		var ev coordinator.CursorEvent
		if !c.decode(req, &ev) {
			return
		}
		c.replyForError(req, c.coord.RelayCursor(userID, ev))

	case MessageTypeComment:
		var ev coordinator.CommentEvent
		if !c.decode(req, &ev) {
			return
		}
		c.replyForError(req, c.coord.RelayComment(userID, ev))

	case MessageTypeFileChange:
		var ev coordinator.FileChangeEvent
		if !c.decode(req, &ev) {
			return
		}
		c.replyForError(req, c.coord.RelayFileChange(userID, ev))

	case MessageTypeLockFile:
		var p filePayload
		if !c.decode(req, &p) || !c.requireFields(req, p.FileID != "", "fileId") {
			return
		}
		result, err := c.coord.LockFile(userID, p.FileID)
		if err != nil {
			c.replyForError(req, err)
			return
		}
		if !result.OK {
			c.reply(req, false, "file is locked by "+result.Holder.Username, map[string]interface{}{"lock": result.Holder})
			return
		}
		c.reply(req, true, "", map[string]interface{}{"lock": result.Lock})

	case MessageTypeUnlockFile:
		var p filePayload
		if !c.decode(req, &p) || !c.requireFields(req, p.FileID != "", "fileId") {
			return
		}
		if !c.coord.UnlockFile(userID, p.FileID) {
			c.reply(req, false, "you do not hold the lock on this file", nil)
			return
		}
		c.reply(req, true, "", nil)

	case MessageTypeGetFileLock:
		var p filePayload
		if !c.decode(req, &p) || !c.requireFields(req, p.FileID != "", "fileId") {
			return
		}
		c.reply(req, true, "", map[string]interface{}{"lock": c.coord.GetFileLock(p.FileID)})

	default:
		logger.Warn("Unknown message type: %s", req.Type)
		c.reply(req, false, "unknown message type", nil)
	}
}

func (c *Client) decode(req *Request, into interface{}) bool {
	if len(req.Payload) == 0 {
		c.reply(req, false, "missing payload", nil)
		return false
	}
	if err := json.Unmarshal(req.Payload, into); err != nil {
		c.reply(req, false, "malformed payload", nil)
		return false
	}
	return true
}

func (c *Client) requireFields(req *Request, ok bool, fields string) bool {
	if !ok {
		c.reply(req, false, "missing required fields: "+fields, nil)
	}
	return ok
}

// replyForError maps a coordinator result to a wire reply. Expected
// failures carry their message; anything else is logged and reported as a
// generic internal error.
func (c *Client) replyForError(req *Request, err error) {
	switch {
	case err == nil:
		c.reply(req, true, "", nil)
	case errors.Is(err, coordinator.ErrPermissionDenied):
		c.reply(req, false, "permission denied", nil)
	case errors.Is(err, coordinator.ErrLockHeld):
		c.reply(req, false, err.Error(), nil)
	case errors.Is(err, coordinator.ErrNotFound):
		c.reply(req, false, "not found", nil)
	case errors.Is(err, coordinator.ErrInvalidEvent):
		c.reply(req, false, err.Error(), nil)
	default:
		logger.Error("Request %s failed: %v", req.Type, err)
		c.reply(req, false, "internal error", nil)
	}
}

// generateClientID generates a random client ID
func generateClientID() (string, error) {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
