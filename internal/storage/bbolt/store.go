// Package bbolt provides a BoltDB-backed Repository for single-process
// deployments that need rooms to survive a restart.
package bbolt

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/yourusername/ludoengine/internal/storage"
	"github.com/yourusername/ludoengine/pkg/engine"
)

const (
	roomBucket = "room"
	gameBucket = "game"
)

// Store provides a BoltDB-backed room and game store.
type Store struct {
	db *bbolt.DB
}

// Open opens a BoltDB-backed store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GetRoom fetches a room record by ID.
func (s *Store) GetRoom(ctx context.Context, id string) (storage.Room, error) {
	var room storage.Room
	err := s.get(ctx, roomBucket, id, &room)
	return room, err
}

// PutRoom persists a room record.
func (s *Store) PutRoom(ctx context.Context, room storage.Room) error {
	if err := room.Validate(); err != nil {
		return err
	}
	return s.put(ctx, roomBucket, room.ID, room)
}

// DeleteRoom removes a room and its game state.
func (s *Store) DeleteRoom(ctx context.Context, id string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{roomBucket, gameBucket} {
			if err := tx.Bucket([]byte(name)).Delete([]byte(id)); err != nil {
				return fmt.Errorf("delete %s %s: %w", name, id, err)
			}
		}
		return nil
	})
}

// ListRooms returns every room, oldest first.
func (s *Store) ListRooms(ctx context.Context) ([]storage.Room, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var rooms []storage.Room
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(roomBucket)).ForEach(func(_, payload []byte) error {
			var room storage.Room
			if err := json.Unmarshal(payload, &room); err != nil {
				return fmt.Errorf("unmarshal room: %w", err)
			}
			rooms = append(rooms, room)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	storage.SortRooms(rooms)
	return rooms, nil
}

// GetGameState fetches the game of a room.
func (s *Store) GetGameState(ctx context.Context, roomID string) (*engine.GameState, error) {
	var gs engine.GameState
	if err := s.get(ctx, gameBucket, roomID, &gs); err != nil {
		return nil, err
	}
	return &gs, nil
}

// PutGameState persists the game of a room.
func (s *Store) PutGameState(ctx context.Context, roomID string, state *engine.GameState) error {
	if state == nil {
		return fmt.Errorf("%w: state is required", storage.ErrInvalidRecord)
	}
	return s.put(ctx, gameBucket, roomID, state)
}

// PutRoomAndGame persists room and state in one transaction.
func (s *Store) PutRoomAndGame(ctx context.Context, room storage.Room, state *engine.GameState) error {
	if err := room.Validate(); err != nil {
		return err
	}
	if state == nil {
		return fmt.Errorf("%w: state is required", storage.ErrInvalidRecord)
	}
	if err := s.ready(ctx); err != nil {
		return err
	}
	roomPayload, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", roomBucket, err)
	}
	gamePayload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", gameBucket, err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := putIn(tx, roomBucket, room.ID, roomPayload); err != nil {
			return err
		}
		return putIn(tx, gameBucket, room.ID, gamePayload)
	})
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

func (s *Store) get(ctx context.Context, bucket, id string, v any) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%s id is required", bucket)
	}
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("%s bucket is missing", bucket)
		}
		payload := b.Get([]byte(id))
		if payload == nil {
			return fmt.Errorf("%s %s: %w", bucket, id, storage.ErrNotFound)
		}
		if err := json.Unmarshal(payload, v); err != nil {
			return fmt.Errorf("unmarshal %s: %w", bucket, err)
		}
		return nil
	})
}

func (s *Store) put(ctx context.Context, bucket, id string, v any) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: %s id is required", storage.ErrInvalidRecord, bucket)
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", bucket, err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putIn(tx, bucket, id, payload)
	})
}

func putIn(tx *bbolt.Tx, bucket, id string, payload []byte) error {
	b := tx.Bucket([]byte(bucket))
	if b == nil {
		return fmt.Errorf("%s bucket is missing", bucket)
	}
	return b.Put([]byte(id), payload)
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{roomBucket, gameBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}
