// Package memory provides an in-process Repository. Nothing survives a
// restart.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/yourusername/ludoengine/internal/storage"
	"github.com/yourusername/ludoengine/pkg/engine"
)

// Store keeps rooms and games in maps.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]storage.Room
	games map[string]*engine.GameState
}

// New returns an empty store.
func New() *Store {
	return &Store{
		rooms: make(map[string]storage.Room),
		games: make(map[string]*engine.GameState),
	}
}

// GetRoom fetches a room by ID.
func (s *Store) GetRoom(ctx context.Context, id string) (storage.Room, error) {
	if err := ctx.Err(); err != nil {
		return storage.Room{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return storage.Room{}, fmt.Errorf("room %s: %w", id, storage.ErrNotFound)
	}
	return room.Clone(), nil
}

// PutRoom creates or replaces a room.
func (s *Store) PutRoom(ctx context.Context, room storage.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := room.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.ID] = room.Clone()
	return nil
}

// DeleteRoom removes a room and its game. Missing rooms are not an error.
func (s *Store) DeleteRoom(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, id)
	delete(s.games, id)
	return nil
}

// ListRooms returns every room, oldest first.
func (s *Store) ListRooms(ctx context.Context) ([]storage.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	rooms := make([]storage.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, room.Clone())
	}
	s.mu.RUnlock()
	storage.SortRooms(rooms)
	return rooms, nil
}

// GetGameState fetches the game of a room.
func (s *Store) GetGameState(ctx context.Context, roomID string) (*engine.GameState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	gs, ok := s.games[roomID]
	if !ok {
		return nil, fmt.Errorf("game %s: %w", roomID, storage.ErrNotFound)
	}
	return gs.Clone(), nil
}

// PutGameState stores a copy of state for a room.
func (s *Store) PutGameState(ctx context.Context, roomID string, state *engine.GameState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if roomID == "" || state == nil {
		return fmt.Errorf("%w: room id and state are required", storage.ErrInvalidRecord)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[roomID] = state.Clone()
	return nil
}

// PutRoomAndGame stores room and state under one lock.
func (s *Store) PutRoomAndGame(ctx context.Context, room storage.Room, state *engine.GameState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := room.Validate(); err != nil {
		return err
	}
	if state == nil {
		return fmt.Errorf("%w: state is required", storage.ErrInvalidRecord)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.ID] = room.Clone()
	s.games[room.ID] = state.Clone()
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
