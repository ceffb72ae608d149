package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/floorplan-editor/backend/internal/models"
	"github.com/floorplan-editor/backend/internal/session"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// WebSocket message types for the operation stream
const (
	// Client -> Server messages
	MsgTypeOperation = "operation"
	MsgTypeUndo      = "undo"
	MsgTypeRedo      = "redo"
	MsgTypeSelect    = "select"
	MsgTypePing      = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeAck       = "ack"
	MsgTypeEvent     = "event"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

// outboxSize bounds the messages queued for one slow client.
const outboxSize = 256

// WSMessage is the envelope of every websocket frame
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WSErrorResponse is the payload of an error frame
type WSErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// WebSocketHandler streams session events and accepts operations over a
// websocket
type WebSocketHandler struct {
	sessions     SessionManager
	upgrader     websocket.Upgrader
	maxReadBytes int64
}

// NewWebSocketHandler creates a new operation stream handler.
// maxMessageKB limits inbound frames; 0 means 1 MB.
func NewWebSocketHandler(sessions SessionManager, maxMessageKB int) *WebSocketHandler {
	if maxMessageKB <= 0 {
		maxMessageKB = 1024
	}
	return &WebSocketHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		maxReadBytes: int64(maxMessageKB) * 1024,
	}
}

// conn is one client. Every write goes through the outbox so the writer
// goroutine is the only one touching the socket.
type conn struct {
	ws     *websocket.Conn
	outbox chan WSMessage
	done   chan struct{}
}

func (c *conn) send(msg WSMessage) bool {
	msg.Timestamp = time.Now().UnixMilli()
	select {
	case c.outbox <- msg:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

func (c *conn) sendError(id, message, code string) {
	c.send(WSMessage{Type: MsgTypeError, ID: id, Payload: mustJSON(WSErrorResponse{Message: message, Code: code})})
}

func (c *conn) writeLoop() {
	for {
		select {
		case msg := <-c.outbox:
			if err := c.ws.WriteJSON(msg); err != nil {
				fmt.Printf("[WebSocket] Failed to send message: %v\n", err)
				return
			}
		case <-c.done:
			return
		}
	}
}

// HandleOperationStream upgrades the connection and relays the session's
// events until the client disconnects.
func (wsh *WebSocketHandler) HandleOperationStream(c echo.Context) error {
	id := c.Param("sessionId")
	s, ok := wsh.sessions.Get(id)
	if !ok {
		return NewNotFoundError("session", id)
	}
	userID := userFrom(c).UserID
	if q := c.QueryParam("userId"); q != "" {
		userID = q
	}
	if s.User.UserID != userID {
		return NewForbiddenError("session belongs to another user")
	}

	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()
	ws.SetReadLimit(wsh.maxReadBytes)

	cl := &conn{ws: ws, outbox: make(chan WSMessage, outboxSize), done: make(chan struct{})}
	go cl.writeLoop()
	defer close(cl.done)

	unsubscribe := s.Subscribe(func(ev session.Event) {
		if !cl.send(WSMessage{Type: MsgTypeEvent, Payload: mustJSON(ev)}) {
			fmt.Printf("[WebSocket %s] Dropped %s event for slow client\n", shortID(s.ID), ev.Type)
		}
	})
	defer unsubscribe()

	fmt.Printf("[WebSocket %s] Client connected\n", shortID(s.ID))
	cl.send(WSMessage{Type: MsgTypeConnected, Payload: mustJSON(s.Info())})

	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				fmt.Printf("[WebSocket %s] Connection error: %v\n", shortID(s.ID), err)
			}
			break
		}
		wsh.handleMessage(cl, s, msg)
	}

	fmt.Printf("[WebSocket %s] Client disconnected\n", shortID(s.ID))
	return nil
}

func (wsh *WebSocketHandler) handleMessage(cl *conn, s *session.EditorSession, msg WSMessage) {
	switch msg.Type {
	case MsgTypePing:
		cl.send(WSMessage{Type: MsgTypePong, ID: msg.ID})
	case MsgTypeOperation:
		var op models.ShapeOperation
		if err := json.Unmarshal(msg.Payload, &op); err != nil {
			cl.sendError(msg.ID, "Invalid operation payload: "+err.Error(), "INVALID_PAYLOAD")
			return
		}
		applied, err := s.Dispatch(op)
		if err != nil {
			wsh.sendSessionError(cl, msg.ID, err, s.ID)
			return
		}
		cl.send(WSMessage{Type: MsgTypeAck, ID: msg.ID, Payload: mustJSON(applied)})
	case MsgTypeUndo, MsgTypeRedo:
		var (
			op  models.ShapeOperation
			ok  bool
			err error
		)
		if msg.Type == MsgTypeUndo {
			op, ok, err = s.Undo()
		} else {
			op, ok, err = s.Redo()
		}
		if err != nil {
			wsh.sendSessionError(cl, msg.ID, err, s.ID)
			return
		}
		cl.send(WSMessage{Type: MsgTypeAck, ID: msg.ID, Payload: mustJSON(historyResult(s, op, ok))})
	case MsgTypeSelect:
		var req selectRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			cl.sendError(msg.ID, "Invalid selection payload: "+err.Error(), "INVALID_PAYLOAD")
			return
		}
		selected, truncated, err := s.Select(req.IDs)
		if err != nil {
			wsh.sendSessionError(cl, msg.ID, err, s.ID)
			return
		}
		cl.send(WSMessage{Type: MsgTypeAck, ID: msg.ID, Payload: mustJSON(map[string]interface{}{
			"selectedIds": selected,
			"truncated":   truncated,
		})})
	default:
		cl.sendError(msg.ID, "Unknown message type: "+msg.Type, "INVALID_TYPE")
	}
}

func (wsh *WebSocketHandler) sendSessionError(cl *conn, id string, err error, sessionID string) {
	apiErr := fromSessionError(err, sessionID)
	cl.send(WSMessage{Type: MsgTypeError, ID: id, Payload: mustJSON(apiErr)})
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
