package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/ludoengine/pkg/engine"
	"github.com/yourusername/ludoengine/pkg/session"
)

const (
	sendBuffer = 256
	writeWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins - configure properly in production
	},
}

// WSMessage is a client request on the room feed.
type WSMessage struct {
	Type    string          `json:"type"`    // "roll", "move", "state", "hint" or "ping"
	ID      string          `json:"id"`      // Request ID for correlating responses
	Payload json.RawMessage `json:"payload"` // Type-specific payload
}

// WSResponse is a server message on the room feed. Room events use the
// event type as Type and carry the session.Event as Payload.
type WSResponse struct {
	Type    string `json:"type"`              // "welcome", "result", "error", "pong" or an event type
	ID      string `json:"id,omitempty"`      // Request ID
	Payload any    `json:"payload,omitempty"` // Response data
	Error   string `json:"error,omitempty"`   // Error message if any
	Code    string `json:"code,omitempty"`    // Error code if any
}

// WSMovePayload is the payload of a "move" message.
type WSMovePayload struct {
	Piece int `json:"piece"`
}

// WSWelcome is sent once when a client connects.
type WSWelcome struct {
	ClientID string `json:"clientId"`
	RoomID   string `json:"roomId"`
	Player   string `json:"player,omitempty"`
	Seat     int    `json:"seat"` // -1 for spectators
}

// Hub fans room events out to the WebSocket clients watching each room. It
// implements session.Notifier.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*WSClient]struct{}
	log   logrus.FieldLogger
}

var _ session.Notifier = (*Hub)(nil)

// NewHub creates an empty hub.
func NewHub(log logrus.FieldLogger) *Hub {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &Hub{
		rooms: make(map[string]map[*WSClient]struct{}),
		log:   log,
	}
}

// Publish delivers ev to every client in the room. A client whose buffer
// is full misses the event.
func (h *Hub) Publish(roomID string, ev session.Event) {
	msg := WSResponse{Type: string(ev.Type), Payload: ev}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[roomID] {
		select {
		case c.send <- msg:
		default:
			h.log.WithFields(logrus.Fields{"room": roomID, "client": c.id}).Warn("dropping event for slow client")
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.rooms {
		n += len(clients)
	}
	return n
}

// RoomClients returns the number of clients watching roomID.
func (h *Hub) RoomClients(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) subscribe(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.rooms[c.roomID]
	if !ok {
		clients = make(map[*WSClient]struct{})
		h.rooms[c.roomID] = clients
	}
	clients[c] = struct{}{}
}

// unsubscribe removes c. Once it returns no Publish call sends to c.
func (h *Hub) unsubscribe(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := h.rooms[c.roomID]
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.rooms, c.roomID)
	}
}

// WSClient is one connection on a room feed.
type WSClient struct {
	id       string
	conn     *websocket.Conn
	handlers *Handlers
	roomID   string
	player   string
	seat     int
	send     chan WSResponse
	log      logrus.FieldLogger
}

// WebSocket handles GET /api/rooms/{id}/ws?player=NAME. Without a player
// the client joins as a spectator and may only read state.
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "room feed is not available", "SERVER_BUSY")
		return
	}
	roomID := r.PathValue("id")
	if _, err := h.sessions.Room(r.Context(), roomID); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	player := r.URL.Query().Get("player")
	seat := -1
	if player != "" {
		var err error
		if seat, err = h.sessions.PlayerSeat(r.Context(), roomID, player); err != nil {
			h.writeDomainError(w, r, err)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := &WSClient{
		id:       uuid.NewString(),
		conn:     conn,
		handlers: h,
		roomID:   roomID,
		player:   player,
		seat:     seat,
		send:     make(chan WSResponse, sendBuffer),
	}
	client.log = h.log.WithFields(logrus.Fields{"room": roomID, "client": client.id})

	client.send <- WSResponse{Type: "welcome", Payload: WSWelcome{
		ClientID: client.id,
		RoomID:   roomID,
		Player:   player,
		Seat:     seat,
	}}
	h.hub.subscribe(client)
	if snap, err := h.snapshot(r.Context(), roomID); err == nil {
		client.reply(WSResponse{Type: string(session.EventGameState), Payload: snap})
	}
	client.log.Debug("client connected")

	go client.writePump()
	client.readPump(r.Context())
}

// snapshot returns the room and, once started, its game.
func (h *Handlers) snapshot(ctx context.Context, roomID string) (StateResponse, error) {
	room, err := h.sessions.Room(ctx, roomID)
	if err != nil {
		return StateResponse{}, err
	}
	resp := StateResponse{Room: room}
	gs, err := h.sessions.State(ctx, roomID)
	if errors.Is(err, session.ErrGameNotStarted) {
		return resp, nil
	}
	if err != nil {
		return StateResponse{}, err
	}
	resp.State = gs
	resp.StateID, err = engine.EncodeStateID(gs)
	return resp, err
}

func (c *WSClient) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func (c *WSClient) readPump(ctx context.Context) {
	defer func() {
		c.handlers.hub.unsubscribe(c)
		close(c.send)
		c.conn.Close()
		c.log.Debug("client disconnected")
	}()
	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		c.handleMessage(ctx, msg)
	}
}

func (c *WSClient) handleMessage(ctx context.Context, msg WSMessage) {
	switch msg.Type {
	case "roll":
		c.handleRoll(ctx, msg)
	case "move":
		c.handleMove(ctx, msg)
	case "state":
		c.handleState(ctx, msg)
	case "hint":
		c.handleHint(ctx, msg)
	case "ping":
		c.reply(WSResponse{Type: "pong", ID: msg.ID})
	default:
		c.reply(WSResponse{Type: "error", ID: msg.ID, Error: "unknown message type", Code: "INVALID_MESSAGE"})
	}
}

// reply queues resp unless the client has stopped draining its buffer.
func (c *WSClient) reply(resp WSResponse) {
	select {
	case c.send <- resp:
	default:
		c.log.WithField("type", resp.Type).Warn("dropping reply for slow client")
	}
}

func (c *WSClient) fail(msg WSMessage, err error) {
	_, code := errorStatus(err)
	c.reply(WSResponse{Type: "error", ID: msg.ID, Error: err.Error(), Code: code})
}

// acting resolves the client's seat afresh for each command, so a player
// who left the room loses control of it. Spectators get an error.
func (c *WSClient) acting(ctx context.Context, msg WSMessage) (int, bool) {
	if c.player == "" {
		c.reply(WSResponse{Type: "error", ID: msg.ID, Error: "spectators cannot act", Code: "UNKNOWN_PLAYER"})
		return -1, false
	}
	seat, err := c.handlers.sessions.PlayerSeat(ctx, c.roomID, c.player)
	if err != nil {
		c.fail(msg, err)
		return -1, false
	}
	return seat, true
}

func (c *WSClient) handleRoll(ctx context.Context, msg WSMessage) {
	seat, ok := c.acting(ctx, msg)
	if !ok {
		return
	}
	res, err := c.handlers.sessions.Roll(ctx, c.roomID, seat)
	if err != nil {
		c.fail(msg, err)
		return
	}
	c.reply(WSResponse{Type: "result", ID: msg.ID, Payload: res})
}

func (c *WSClient) handleMove(ctx context.Context, msg WSMessage) {
	seat, ok := c.acting(ctx, msg)
	if !ok {
		return
	}
	var req WSMovePayload
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		c.reply(WSResponse{Type: "error", ID: msg.ID, Error: "invalid payload", Code: "INVALID_JSON"})
		return
	}
	res, err := c.handlers.sessions.Move(ctx, c.roomID, seat, req.Piece)
	if err != nil {
		c.fail(msg, err)
		return
	}
	c.reply(WSResponse{Type: "result", ID: msg.ID, Payload: res})
}

func (c *WSClient) handleState(ctx context.Context, msg WSMessage) {
	snap, err := c.handlers.snapshot(ctx, c.roomID)
	if err != nil {
		c.fail(msg, err)
		return
	}
	c.reply(WSResponse{Type: "result", ID: msg.ID, Payload: snap})
}

func (c *WSClient) handleHint(ctx context.Context, msg WSMessage) {
	seat, ok := c.acting(ctx, msg)
	if !ok {
		return
	}
	moves, err := c.handlers.sessions.Hint(ctx, c.roomID, seat)
	if err != nil {
		c.fail(msg, err)
		return
	}
	gs, err := c.handlers.sessions.State(ctx, c.roomID)
	if err != nil {
		c.fail(msg, err)
		return
	}
	c.reply(WSResponse{Type: "result", ID: msg.ID, Payload: hintResponse(gs.DiceValue, moves)})
}
