// Package gateway implements the Session Gateway named in spec.md §4.1:
// the websocket edge that authenticates a connection, translates wire
// frames into Room events, and fans Room broadcasts back out to
// subscribed connections. Structurally grounded on the teacher's
// gateway.go (upgrade, per-connection read/write pumps, ping/pong
// keepalive), rebuilt around JSON text frames (internal/wire) instead of
// the teacher's protobuf binary envelopes.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"holdem-lite/holdem"
	"holdem-lite/internal/auth"
	"holdem-lite/internal/registry"
	"holdem-lite/internal/room"
	"holdem-lite/internal/wire"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 65536
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Connection is one authenticated (or pending-auth) websocket client.
type Connection struct {
	ID       string
	UserID   uint64
	Username string
	Conn     *websocket.Conn
	Send     chan []byte
	gateway  *Gateway

	mu     sync.Mutex
	room   *room.Room
	roomID string
}

// Gateway owns every live connection and routes wire frames to the
// Room Registry. It implements room.Sender so Rooms can push frames back
// out without knowing anything about websockets.
type Gateway struct {
	verifier auth.Verifier
	registry *registry.Registry

	mu         sync.RWMutex
	nextConnID uint64
	conns      map[string]*Connection
	userConns  map[uint64]*Connection
}

// New constructs a Gateway with no Registry wired in yet — cmd/server
// wires one after the fact with SetRegistry, since the Registry itself
// needs a room.Sender (the Gateway) to construct Rooms.
func New(verifier auth.Verifier) *Gateway {
	return &Gateway{
		verifier:  verifier,
		conns:     make(map[string]*Connection),
		userConns: make(map[uint64]*Connection),
	}
}

func (g *Gateway) SetRegistry(reg *registry.Registry) {
	g.registry = reg
}

func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] upgrade failed: %v", err)
		return
	}

	g.mu.Lock()
	g.nextConnID++
	connID := fmt.Sprintf("conn_%d", g.nextConnID)
	c := &Connection{ID: connID, Conn: conn, Send: make(chan []byte, 256), gateway: g}
	g.conns[connID] = c
	g.mu.Unlock()

	log.Printf("[gateway] connected: %s, total=%d", connID, len(g.conns))

	go c.writePump()
	go c.readPump()
}

func (c *Connection) readPump() {
	defer func() {
		c.gateway.removeConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[gateway] read error on %s: %v", c.ID, err)
			}
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}
		c.handleFrame(data)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Connection) handleFrame(data []byte) {
	var f wire.Frame
	if err := json.Unmarshal(data, &f); err != nil {
		c.sendError("invalid frame", "bad_request")
		return
	}

	if f.Type != wire.TypeAuth && c.UserID == 0 {
		c.sendError("not authenticated", "unauthenticated")
		return
	}

	switch f.Type {
	case wire.TypeAuth:
		c.handleAuth(f.Payload)
	case wire.TypeJoinRoom:
		c.handleJoinRoom(f.Payload)
	case wire.TypeLeaveRoom:
		c.handleLeaveRoom()
	case wire.TypeSpectate:
		c.handleSpectate(f.Payload)
	case wire.TypePlayerAction:
		c.handlePlayerAction(f.Payload)
	case wire.TypeChatMessage:
		c.handleChatMessage(f.Payload)
	default:
		c.sendError(fmt.Sprintf("unknown frame type %q", f.Type), "bad_request")
	}
}

func (c *Connection) handleAuth(raw json.RawMessage) {
	var req wire.AuthPayload
	if err := json.Unmarshal(raw, &req); err != nil {
		c.sendError("invalid auth payload", "bad_request")
		return
	}
	identity, ok := c.gateway.verifier.VerifyToken(req.Token)
	if !ok {
		c.sendError("invalid or expired token", "unauthenticated")
		return
	}

	c.UserID = identity.UserID
	c.Username = identity.Username
	c.gateway.mu.Lock()
	c.gateway.userConns[c.UserID] = c
	c.gateway.mu.Unlock()

	c.sendFrame(wire.TypeAuthSuccess, wire.AuthSuccessPayload{UserID: identity.UserID, Username: identity.Username})
}

// handleJoinRoom attaches this connection to a seat the Lobby's buy-in
// HTTP endpoint already created — spec.md §4.1's join_room is a
// seat-lookup, not a second buy-in. A connection with no persisted seat
// gets "must join via Lobby first" from the Room.
func (c *Connection) handleJoinRoom(raw json.RawMessage) {
	var req wire.JoinRoomPayload
	if err := json.Unmarshal(raw, &req); err != nil {
		c.sendError("invalid join_room payload", "bad_request")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r, err := c.gateway.registry.GetOrCreate(ctx, req.RoomID)
	if err != nil {
		c.sendError(err.Error(), "room_not_found")
		return
	}

	if err := r.Submit(room.Event{Type: room.EventAttach, UserID: c.UserID, Username: c.Username}); err != nil {
		c.sendError(err.Error(), "join_failed")
		return
	}

	c.mu.Lock()
	c.room = r
	c.roomID = req.RoomID
	c.mu.Unlock()
}

func (c *Connection) handleLeaveRoom() {
	r, _ := c.currentRoom()
	if r == nil {
		return
	}
	if err := r.Submit(room.Event{Type: room.EventLeave, UserID: c.UserID}); err != nil {
		c.sendError(err.Error(), "leave_failed")
		return
	}
	c.mu.Lock()
	c.room = nil
	c.roomID = ""
	c.mu.Unlock()
}

func (c *Connection) handleSpectate(raw json.RawMessage) {
	var req wire.SpectatePayload
	if err := json.Unmarshal(raw, &req); err != nil {
		c.sendError("invalid spectate payload", "bad_request")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r, err := c.gateway.registry.GetOrCreate(ctx, req.RoomID)
	if err != nil {
		c.sendError(err.Error(), "room_not_found")
		return
	}
	if err := r.Submit(room.Event{Type: room.EventSpectate, UserID: c.UserID}); err != nil {
		c.sendError(err.Error(), "spectate_failed")
		return
	}
	c.mu.Lock()
	c.room = r
	c.roomID = req.RoomID
	c.mu.Unlock()
}

func (c *Connection) handlePlayerAction(raw json.RawMessage) {
	var req wire.PlayerActionPayload
	if err := json.Unmarshal(raw, &req); err != nil {
		c.sendError("invalid player_action payload", "bad_request")
		return
	}
	r, _ := c.currentRoom()
	if r == nil {
		c.sendError("not in a room", "bad_request")
		return
	}
	action, ok := actionFromWire(req.Action)
	if !ok {
		c.sendError(fmt.Sprintf("unknown action %q", req.Action), "bad_request")
		return
	}
	if err := r.Submit(room.Event{Type: room.EventAction, UserID: c.UserID, Action: action, Amount: req.Amount}); err != nil {
		c.sendError(err.Error(), "action_rejected")
	}
}

func (c *Connection) handleChatMessage(raw json.RawMessage) {
	var req wire.ChatMessagePayload
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	r, _ := c.currentRoom()
	if r == nil {
		return
	}
	_ = r.Submit(room.Event{Type: room.EventChat, UserID: c.UserID, Username: c.Username, Message: req.Message})
}

func actionFromWire(s string) (holdem.ActionType, bool) {
	for action, name := range holdem.PlayerActionTypeDictionary {
		if name == s {
			return action, true
		}
	}
	if s == "all-in" || s == "allin" {
		return holdem.PlayerActionTypeAllin, true
	}
	return 0, false
}

func (c *Connection) currentRoom() (*room.Room, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room, c.roomID
}

func (c *Connection) sendFrame(msgType string, payload any) {
	f, err := wire.NewFrame(msgType, payload)
	if err != nil {
		log.Printf("[gateway] marshal %s failed: %v", msgType, err)
		return
	}
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

func (c *Connection) sendError(message, code string) {
	c.sendFrame(wire.TypeError, wire.ErrorPayload{Message: message, Code: code})
}

func (g *Gateway) removeConnection(c *Connection) {
	g.mu.Lock()
	delete(g.conns, c.ID)
	if g.userConns[c.UserID] == c {
		delete(g.userConns, c.UserID)
	}
	g.mu.Unlock()

	if r, _ := c.currentRoom(); r != nil {
		_ = r.Submit(room.Event{Type: room.EventConnLost, UserID: c.UserID})
	}
	log.Printf("[gateway] disconnected: %s, total=%d", c.ID, len(g.conns))
}

// SendToUser implements room.Sender.
func (g *Gateway) SendToUser(userID uint64, frame wire.Frame) {
	g.mu.RLock()
	c := g.userConns[userID]
	g.mu.RUnlock()
	if c == nil {
		return
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}
