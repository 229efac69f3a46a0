// Package sqlite provides a SQLite-backed Repository using the cgo-free
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/yourusername/ludoengine/internal/storage"
	"github.com/yourusername/ludoengine/pkg/engine"
)

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id         TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	payload    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS games (
	room_id TEXT PRIMARY KEY,
	payload TEXT NOT NULL
);`

// Store persists rooms and games in SQLite, one JSON payload per row.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite store and creates its tables.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// GetRoom fetches a room by ID.
func (s *Store) GetRoom(ctx context.Context, id string) (storage.Room, error) {
	var room storage.Room
	err := s.getJSON(ctx, `SELECT payload FROM rooms WHERE id = ?`, id, &room)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Room{}, fmt.Errorf("room %s: %w", id, err)
	}
	return room, err
}

// PutRoom creates or replaces a room.
func (s *Store) PutRoom(ctx context.Context, room storage.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := room.Validate(); err != nil {
		return err
	}
	return putRoom(ctx, s.sqlDB, room)
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func putRoom(ctx context.Context, db execer, room storage.Room) error {
	payload, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal room: %w", err)
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO rooms (id, created_at, payload) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET payload = excluded.payload`,
		room.ID, room.CreatedAt.UTC().UnixMilli(), string(payload))
	if err != nil {
		return fmt.Errorf("put room %s: %w", room.ID, err)
	}
	return nil
}

// DeleteRoom removes a room and its game in one transaction.
func (s *Store) DeleteRoom(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM games WHERE room_id = ?`, id); err != nil {
		return fmt.Errorf("delete game %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete room %s: %w", id, err)
	}
	return tx.Commit()
}

// ListRooms returns every room, oldest first.
func (s *Store) ListRooms(ctx context.Context) ([]storage.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT payload FROM rooms ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []storage.Room
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		var room storage.Room
		if err := json.Unmarshal([]byte(payload), &room); err != nil {
			return nil, fmt.Errorf("unmarshal room: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	storage.SortRooms(rooms)
	return rooms, nil
}

// GetGameState fetches the game of a room.
func (s *Store) GetGameState(ctx context.Context, roomID string) (*engine.GameState, error) {
	var gs engine.GameState
	if err := s.getJSON(ctx, `SELECT payload FROM games WHERE room_id = ?`, roomID, &gs); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("game %s: %w", roomID, err)
		}
		return nil, err
	}
	return &gs, nil
}

// PutGameState creates or replaces the game of a room.
func (s *Store) PutGameState(ctx context.Context, roomID string, state *engine.GameState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(roomID) == "" || state == nil {
		return fmt.Errorf("%w: room id and state are required", storage.ErrInvalidRecord)
	}
	return putGame(ctx, s.sqlDB, roomID, state)
}

func putGame(ctx context.Context, db execer, roomID string, state *engine.GameState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal game: %w", err)
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO games (room_id, payload) VALUES (?, ?)
		 ON CONFLICT(room_id) DO UPDATE SET payload = excluded.payload`,
		roomID, string(payload))
	if err != nil {
		return fmt.Errorf("put game %s: %w", roomID, err)
	}
	return nil
}

// PutRoomAndGame writes room and state in one transaction.
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
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := putRoom(ctx, tx, room); err != nil {
		return err
	}
	if err := putGame(ctx, tx, room.ID, state); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) getJSON(ctx context.Context, query, id string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	var payload string
	err := s.sqlDB.QueryRowContext(ctx, query, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return nil
}
