package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yourusername/ludoengine/pkg/engine"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ErrInvalidRecord is returned for records that cannot be stored.
var ErrInvalidRecord = errors.New("invalid record")

// Mode is a room's game variant label.
type Mode string

const (
	ModeClassic Mode = "classic"
	ModeSpeed   Mode = "speed"
	ModeFamily  Mode = "family"
)

// Seat is one joined player, human or bot. Seat order is turn order.
type Seat struct {
	Name       string `json:"name"`
	Bot        bool   `json:"bot,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

// Room is the lobby record of a game session.
type Room struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Seats      []Seat        `json:"seats"`
	MaxPlayers int           `json:"maxPlayers"`
	Status     engine.Status `json:"status"`
	Mode       Mode          `json:"mode"`
	CreatedBy  string        `json:"createdBy"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// SeatIndex returns the seat of the named player, or -1.
func (r *Room) SeatIndex(name string) int {
	for i, s := range r.Seats {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// Full reports whether every seat is taken.
func (r *Room) Full() bool { return len(r.Seats) >= r.MaxPlayers }

// Names returns the seat names in turn order.
func (r *Room) Names() []string {
	names := make([]string, len(r.Seats))
	for i, s := range r.Seats {
		names[i] = s.Name
	}
	return names
}

// Clone returns a copy that shares no memory with r.
func (r Room) Clone() Room {
	r.Seats = append([]Seat(nil), r.Seats...)
	return r
}

// Validate checks the fields every backend requires.
func (r *Room) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: room id is required", ErrInvalidRecord)
	}
	return nil
}

// RoomStore persists room records.
type RoomStore interface {
	GetRoom(ctx context.Context, id string) (Room, error)
	PutRoom(ctx context.Context, room Room) error
	DeleteRoom(ctx context.Context, id string) error
	ListRooms(ctx context.Context) ([]Room, error)
}

// GameStore persists the authoritative game state of each room.
type GameStore interface {
	GetGameState(ctx context.Context, roomID string) (*engine.GameState, error)
	PutGameState(ctx context.Context, roomID string, state *engine.GameState) error
}

// Repository is everything the session layer needs from a backend.
// DeleteRoom also removes the room's game state. PutRoomAndGame stores a
// room and its game together: either both writes land or neither does.
type Repository interface {
	RoomStore
	GameStore
	PutRoomAndGame(ctx context.Context, room Room, state *engine.GameState) error
	Close() error
}

// SortRooms orders rooms oldest first, breaking ties by ID.
func SortRooms(rooms []Room) {
	sort.Slice(rooms, func(i, j int) bool {
		if !rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
		}
		return rooms[i].ID < rooms[j].ID
	})
}
