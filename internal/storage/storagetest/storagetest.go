// Package storagetest holds the behavior every storage.Repository backend
// must share.
package storagetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/ludoengine/internal/storage"
	"github.com/yourusername/ludoengine/pkg/engine"
)

// Factory returns a fresh, empty repository. The suite closes it.
type Factory func(t *testing.T) storage.Repository

// Run exercises a backend against the Repository contract.
func Run(t *testing.T, open Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, repo storage.Repository)
	}{
		{"RoomRoundTrip", testRoomRoundTrip},
		{"RoomNotFound", testRoomNotFound},
		{"RoomReplace", testRoomReplace},
		{"ListRoomsOrdered", testListRoomsOrdered},
		{"GameStateRoundTrip", testGameStateRoundTrip},
		{"GameStateNotFound", testGameStateNotFound},
		{"DeleteRoomRemovesGame", testDeleteRoomRemovesGame},
		{"RejectsInvalidRecords", testRejectsInvalidRecords},
		{"PutRoomAndGame", testPutRoomAndGame},
		{"PutRoomAndGameWritesNothingOnError", testPutRoomAndGameRejected},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := open(t)
			t.Cleanup(func() { _ = repo.Close() })
			tc.fn(t, repo)
		})
	}
}

var base = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func sampleRoom(id string, offset time.Duration) storage.Room {
	return storage.Room{
		ID:   id,
		Name: "Room " + id,
		Seats: []storage.Seat{
			{Name: "alice"},
			{Name: "Bot 1", Bot: true, Difficulty: "hard"},
		},
		MaxPlayers: 4,
		Status:     engine.StatusWaiting,
		Mode:       storage.ModeClassic,
		CreatedBy:  "alice",
		CreatedAt:  base.Add(offset),
		UpdatedAt:  base.Add(offset),
	}
}

func testRoomRoundTrip(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	room := sampleRoom("ROOMAAAAAA", 0)
	require.NoError(t, repo.PutRoom(ctx, room))

	got, err := repo.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, room.ID, got.ID)
	assert.Equal(t, room.Seats, got.Seats)
	assert.Equal(t, room.Mode, got.Mode)
	assert.True(t, room.CreatedAt.Equal(got.CreatedAt))
}

func testRoomNotFound(t *testing.T, repo storage.Repository) {
	_, err := repo.GetRoom(context.Background(), "ROOMNOPE00")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testRoomReplace(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	room := sampleRoom("ROOMBBBBBB", 0)
	require.NoError(t, repo.PutRoom(ctx, room))

	room.Seats = append(room.Seats, storage.Seat{Name: "carol"})
	room.Status = engine.StatusPlaying
	require.NoError(t, repo.PutRoom(ctx, room))

	got, err := repo.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, got.Seats, 3)
	assert.Equal(t, engine.StatusPlaying, got.Status)
}

func testListRoomsOrdered(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	for i, id := range []string{"ROOMCCCCC3", "ROOMCCCCC1", "ROOMCCCCC2"} {
		// Created out of order on purpose
		offset := []time.Duration{3, 1, 2}[i] * time.Minute
		require.NoError(t, repo.PutRoom(ctx, sampleRoom(id, offset)))
	}

	rooms, err := repo.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 3)
	for i, room := range rooms {
		assert.Equal(t, fmt.Sprintf("ROOMCCCCC%d", i+1), room.ID)
	}
}

func testGameStateRoundTrip(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	gs, err := engine.NewGame([]string{"alice", "bob", "carol"})
	require.NoError(t, err)
	gs.Players[1].Pieces = [4]int{13, 52, 57, -1}
	gs.Players[2].Active = false
	gs, err = engine.ApplyRoll(gs, 0, 6)
	require.NoError(t, err)

	require.NoError(t, repo.PutGameState(ctx, "ROOMDDDDDD", gs))
	got, err := repo.GetGameState(ctx, "ROOMDDDDDD")
	require.NoError(t, err)
	assert.Equal(t, gs, got)

	// Stored copies are independent of the caller's value
	gs.Players[0].Pieces[0] = 0
	again, err := repo.GetGameState(ctx, "ROOMDDDDDD")
	require.NoError(t, err)
	assert.Equal(t, engine.HomePosition, again.Players[0].Pieces[0])
}

func testGameStateNotFound(t *testing.T, repo storage.Repository) {
	_, err := repo.GetGameState(context.Background(), "ROOMNOPE00")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testDeleteRoomRemovesGame(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	room := sampleRoom("ROOMEEEEEE", 0)
	require.NoError(t, repo.PutRoom(ctx, room))
	gs, err := engine.NewGame(room.Names())
	require.NoError(t, err)
	require.NoError(t, repo.PutGameState(ctx, room.ID, gs))

	require.NoError(t, repo.DeleteRoom(ctx, room.ID))

	_, err = repo.GetRoom(ctx, room.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = repo.GetGameState(ctx, room.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	rooms, err := repo.ListRooms(ctx)
	require.NoError(t, err)
	assert.Empty(t, rooms)

	assert.NoError(t, repo.DeleteRoom(ctx, room.ID), "deleting twice")
}

func testRejectsInvalidRecords(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	assert.ErrorIs(t, repo.PutRoom(ctx, storage.Room{}), storage.ErrInvalidRecord)
	assert.ErrorIs(t, repo.PutGameState(ctx, "", &engine.GameState{}), storage.ErrInvalidRecord)
	assert.ErrorIs(t, repo.PutGameState(ctx, "ROOMFFFFFF", nil), storage.ErrInvalidRecord)
}

func testPutRoomAndGame(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	room := sampleRoom("ROOMGGGGGG", 0)
	room.Status = engine.StatusPlaying
	gs, err := engine.NewGame(room.Names())
	require.NoError(t, err)
	gs, err = engine.ApplyRoll(gs, 0, 4)
	require.NoError(t, err)

	require.NoError(t, repo.PutRoomAndGame(ctx, room, gs))

	gotRoom, err := repo.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusPlaying, gotRoom.Status)
	gotGame, err := repo.GetGameState(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, gs, gotGame)

	rooms, err := repo.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, room.ID, rooms[0].ID)
}

func testPutRoomAndGameRejected(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	room := sampleRoom("ROOMHHHHHH", 0)
	assert.ErrorIs(t, repo.PutRoomAndGame(ctx, room, nil), storage.ErrInvalidRecord)

	_, err := repo.GetRoom(ctx, room.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = repo.GetGameState(ctx, room.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
