// Package redis provides a Redis-backed Repository so several server
// processes can share one lobby. Per-room command serialization stays
// process-local.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yourusername/ludoengine/internal/storage"
	"github.com/yourusername/ludoengine/pkg/engine"
)

// Options configures the connection and key layout.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key prefix, default "ludo"
	TTL      time.Duration // Expiry for room and game keys, 0 = none
}

// Store keeps rooms and games as JSON strings under prefixed keys, with a
// set indexing room IDs.
type Store struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// Open connects to Redis and verifies the connection.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Addr) == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(client, opts.Prefix, opts.TTL), nil
}

// New wraps an existing client.
func New(client *goredis.Client, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = "ludo"
	}
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

// Close closes the client.
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *Store) roomKey(id string) string { return s.prefix + ":room:" + id }
func (s *Store) gameKey(id string) string { return s.prefix + ":game:" + id }
func (s *Store) indexKey() string        { return s.prefix + ":rooms" }

// GetRoom fetches a room by ID.
func (s *Store) GetRoom(ctx context.Context, id string) (storage.Room, error) {
	var room storage.Room
	if err := s.getJSON(ctx, s.roomKey(id), &room); err != nil {
		return storage.Room{}, fmt.Errorf("room %s: %w", id, err)
	}
	return room, nil
}

// PutRoom creates or replaces a room and indexes its ID.
func (s *Store) PutRoom(ctx context.Context, room storage.Room) error {
	if err := room.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal room: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, s.roomKey(room.ID), payload, s.ttl)
		pipe.SAdd(ctx, s.indexKey(), room.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("put room %s: %w", room.ID, err)
	}
	return nil
}

// DeleteRoom removes a room, its game and its index entry.
func (s *Store) DeleteRoom(ctx context.Context, id string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, s.roomKey(id), s.gameKey(id))
		pipe.SRem(ctx, s.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete room %s: %w", id, err)
	}
	return nil
}

// ListRooms returns every indexed room, oldest first. Index entries whose
// room key expired are pruned.
func (s *Store) ListRooms(ctx context.Context) ([]storage.Room, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list room ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.roomKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}

	rooms := make([]storage.Room, 0, len(values))
	var stale []any
	for i, v := range values {
		payload, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var room storage.Room
		if err := json.Unmarshal([]byte(payload), &room); err != nil {
			return nil, fmt.Errorf("unmarshal room: %w", err)
		}
		rooms = append(rooms, room)
	}
	if len(stale) > 0 {
		_ = s.client.SRem(ctx, s.indexKey(), stale...).Err()
	}
	storage.SortRooms(rooms)
	return rooms, nil
}

// GetGameState fetches the game of a room.
func (s *Store) GetGameState(ctx context.Context, roomID string) (*engine.GameState, error) {
	var gs engine.GameState
	if err := s.getJSON(ctx, s.gameKey(roomID), &gs); err != nil {
		return nil, fmt.Errorf("game %s: %w", roomID, err)
	}
	return &gs, nil
}

// PutGameState creates or replaces the game of a room.
func (s *Store) PutGameState(ctx context.Context, roomID string, state *engine.GameState) error {
	if strings.TrimSpace(roomID) == "" || state == nil {
		return fmt.Errorf("%w: room id and state are required", storage.ErrInvalidRecord)
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal game: %w", err)
	}
	if err := s.client.Set(ctx, s.gameKey(roomID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("put game %s: %w", roomID, err)
	}
	return nil
}

// PutRoomAndGame writes room, its index entry and state in one MULTI.
func (s *Store) PutRoomAndGame(ctx context.Context, room storage.Room, state *engine.GameState) error {
	if err := room.Validate(); err != nil {
		return err
	}
	if state == nil {
		return fmt.Errorf("%w: state is required", storage.ErrInvalidRecord)
	}
	roomPayload, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal room: %w", err)
	}
	gamePayload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal game: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, s.roomKey(room.ID), roomPayload, s.ttl)
		pipe.SAdd(ctx, s.indexKey(), room.ID)
		pipe.Set(ctx, s.gameKey(room.ID), gamePayload, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("put room and game %s: %w", room.ID, err)
	}
	return nil
}

func (s *Store) getJSON(ctx context.Context, key string, v any) error {
	payload, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return storage.ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return nil
}
