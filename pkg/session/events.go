package session

import (
	"time"

	"github.com/yourusername/ludoengine/internal/storage"
	"github.com/yourusername/ludoengine/pkg/engine"
)

// EventType names a room notification.
type EventType string

const (
	EventRoomUpdated   EventType = "room_updated"
	EventRoomClosed    EventType = "room_closed"
	EventGameStarted   EventType = "game_started"
	EventDiceRolled    EventType = "dice_rolled"
	EventNoValidMoves  EventType = "no_valid_moves"
	EventPieceMoved    EventType = "piece_moved"
	EventPieceCaptured EventType = "piece_captured"
	EventRollAgain     EventType = "roll_again"
	EventGameFinished  EventType = "game_finished"
	EventGameState     EventType = "game_state"
)

// Event is published to every subscriber of a room. Player is -1 for
// room-level events.
type Event struct {
	Type       EventType         `json:"type"`
	RoomID     string            `json:"roomId"`
	Player     int               `json:"player"`
	Dice       int               `json:"dice,omitempty"`
	Move       *MoveInfo         `json:"move,omitempty"`
	ValidMoves []int             `json:"validMoves,omitempty"`
	Capture    *engine.Capture   `json:"capture,omitempty"`
	Winner     string            `json:"winner,omitempty"`
	Room       *storage.Room     `json:"room,omitempty"`
	State      *engine.GameState `json:"state,omitempty"`
	Time       time.Time         `json:"time"`
}

// MoveInfo describes the piece movement of a piece_moved event.
type MoveInfo struct {
	Piece    int  `json:"piece"`
	From     int  `json:"from"`
	To       int  `json:"to"`
	Finished bool `json:"finished"`
}

// Notifier receives room events. Publish must not block for long; it is
// called while the room is locked.
type Notifier interface {
	Publish(roomID string, ev Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(roomID string, ev Event)

// Publish calls f.
func (f NotifierFunc) Publish(roomID string, ev Event) { f(roomID, ev) }

type nopNotifier struct{}

func (nopNotifier) Publish(string, Event) {}
