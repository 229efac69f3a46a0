package session

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/ludoengine/internal/storage"
	"github.com/yourusername/ludoengine/internal/storage/memory"
	"github.com/yourusername/ludoengine/pkg/agent"
	"github.com/yourusername/ludoengine/pkg/engine"
)

// mockNotifier captures published events for assertions.
type mockNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *mockNotifier) Publish(_ string, ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *mockNotifier) types() []EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]EventType, len(n.events))
	for i, ev := range n.events {
		out[i] = ev.Type
	}
	return out
}

func (n *mockNotifier) count(t EventType) int {
	c := 0
	for _, typ := range n.types() {
		if typ == t {
			c++
		}
	}
	return c
}

func (n *mockNotifier) last(t EventType) (Event, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.events) - 1; i >= 0; i-- {
		if n.events[i].Type == t {
			return n.events[i], true
		}
	}
	return Event{}, false
}

func (n *mockNotifier) clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = nil
}

type fixture struct {
	m      *Manager
	notify *mockNotifier
	repo   *memory.Store
}

func newFixture(t *testing.T, dice engine.Dice, opts Options) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	f := &fixture{notify: &mockNotifier{}, repo: memory.New()}
	f.m = NewManager(f.repo, dice, f.notify, logger, opts)
	t.Cleanup(f.m.Close)
	return f
}

func manualOptions() Options {
	return Options{MaxPlayers: engine.MaxPlayers}
}

// startedRoom creates a room hosted by names[0], seats the rest and starts.
func (f *fixture) startedRoom(t *testing.T, names ...string) string {
	t.Helper()
	ctx := context.Background()
	room, err := f.m.CreateRoom(ctx, "", names[0], "")
	require.NoError(t, err)
	for _, name := range names[1:] {
		_, _, err := f.m.JoinRoom(ctx, room.ID, name)
		require.NoError(t, err)
	}
	_, err = f.m.StartGame(ctx, room.ID, names[0])
	require.NoError(t, err)
	f.notify.clear()
	return room.ID
}

// setPieces overwrites the stored game's piece layout.
func (f *fixture) setPieces(t *testing.T, roomID string, layouts ...[4]int) {
	t.Helper()
	gs, err := f.m.State(context.Background(), roomID)
	require.NoError(t, err)
	for i, pieces := range layouts {
		gs.Players[i].Pieces = pieces
	}
	require.NoError(t, f.repo.PutGameState(context.Background(), roomID, gs))
}

func TestCreateRoom(t *testing.T) {
	f := newFixture(t, nil, manualOptions())
	ctx := context.Background()

	room, err := f.m.CreateRoom(ctx, "Friday", "alice", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(room.ID, "ROOM"))
	assert.Len(t, room.ID, 10)
	assert.Equal(t, strings.ToUpper(room.ID), room.ID)
	assert.Equal(t, []storage.Seat{{Name: "alice"}}, room.Seats)
	assert.Equal(t, engine.StatusWaiting, room.Status)
	assert.Equal(t, storage.ModeClassic, room.Mode)
	assert.Equal(t, "alice", room.CreatedBy)
	assert.Equal(t, []EventType{EventRoomUpdated}, f.notify.types())

	_, err = f.m.CreateRoom(ctx, "x", "  ", "")
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = f.m.CreateRoom(ctx, "x", "bob", "blitz")
	assert.ErrorIs(t, err, ErrInvalidMode)

	rooms, err := f.m.ListRooms(ctx)
	require.NoError(t, err)
	assert.Len(t, rooms, 1)
}

func TestJoinRoom(t *testing.T) {
	f := newFixture(t, nil, manualOptions())
	ctx := context.Background()
	room, err := f.m.CreateRoom(ctx, "", "alice", storage.ModeSpeed)
	require.NoError(t, err)

	_, seat, err := f.m.JoinRoom(ctx, room.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, seat)

	// Rejoining keeps the seat
	got, seat, err := f.m.JoinRoom(ctx, room.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, seat)
	assert.Len(t, got.Seats, 2)

	for _, name := range []string{"carol", "dave"} {
		_, _, err := f.m.JoinRoom(ctx, room.ID, name)
		require.NoError(t, err)
	}
	_, _, err = f.m.JoinRoom(ctx, room.ID, "erin")
	assert.ErrorIs(t, err, ErrRoomFull)

	_, _, err = f.m.JoinRoom(ctx, "ROOMZZZZZZ", "erin")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	_, _, err = f.m.JoinRoom(ctx, room.ID, "")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestAddBotAndStart(t *testing.T) {
	f := newFixture(t, nil, manualOptions())
	ctx := context.Background()
	room, err := f.m.CreateRoom(ctx, "", "alice", "")
	require.NoError(t, err)

	_, err = f.m.StartGame(ctx, room.ID, "alice")
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)

	_, err = f.m.AddBot(ctx, room.ID, "mallory", agent.Hard)
	assert.ErrorIs(t, err, ErrNotHost)
	_, err = f.m.AddBot(ctx, room.ID, "alice", "genius")
	assert.ErrorIs(t, err, agent.ErrUnknownDifficulty)

	room, err = f.m.AddBot(ctx, room.ID, "alice", agent.Hard)
	require.NoError(t, err)
	assert.Equal(t, storage.Seat{Name: "Bot 1", Bot: true, Difficulty: "hard"}, room.Seats[1])
	room, err = f.m.AddBot(ctx, room.ID, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, "Bot 2", room.Seats[2].Name)
	assert.Equal(t, "medium", room.Seats[2].Difficulty)

	_, _, err = f.m.JoinRoom(ctx, room.ID, "Bot 1")
	assert.ErrorIs(t, err, ErrNameTaken)

	_, err = f.m.StartGame(ctx, room.ID, "Bot 1")
	assert.ErrorIs(t, err, ErrNotHost)

	f.notify.clear()
	gs, err := f.m.StartGame(ctx, room.ID, "alice")
	require.NoError(t, err)
	assert.Len(t, gs.Players, 3)
	assert.Equal(t, "Bot 2", gs.Players[2].Name)
	assert.Equal(t, engine.Green, gs.Players[2].Color)
	assert.Equal(t, []EventType{EventGameStarted, EventGameState}, f.notify.types())

	room, err = f.m.Room(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusPlaying, room.Status)

	_, _, err = f.m.JoinRoom(ctx, room.ID, "zed")
	assert.ErrorIs(t, err, ErrGameStarted)
	_, err = f.m.StartGame(ctx, room.ID, "alice")
	assert.ErrorIs(t, err, ErrGameStarted)
}

func TestStateBeforeStart(t *testing.T) {
	f := newFixture(t, nil, manualOptions())
	room, err := f.m.CreateRoom(context.Background(), "", "alice", "")
	require.NoError(t, err)

	_, err = f.m.State(context.Background(), room.ID)
	assert.ErrorIs(t, err, ErrGameNotStarted)
	_, err = f.m.Roll(context.Background(), room.ID, 0)
	assert.ErrorIs(t, err, ErrGameNotStarted)
}

func TestRollSixAndEnter(t *testing.T) {
	f := newFixture(t, engine.NewSequenceDice(6, 3), manualOptions())
	ctx := context.Background()
	roomID := f.startedRoom(t, "alice", "bob")

	res, err := f.m.Roll(ctx, roomID, 0)
	require.NoError(t, err)
	assert.Equal(t, 6, res.Dice)
	assert.Equal(t, []int{0, 1, 2, 3}, res.ValidMoves)
	assert.False(t, res.NoLegalMoves)
	assert.Equal(t, 6, res.State.DiceValue)
	assert.False(t, res.State.MoveCompleted)

	mv, err := f.m.Move(ctx, roomID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, mv.To)
	assert.True(t, mv.ExtraRoll)
	assert.Equal(t, 0, mv.State.CurrentPlayer)
	assert.True(t, mv.State.CanRollAgain)

	moved, ok := f.notify.last(EventPieceMoved)
	require.True(t, ok)
	assert.Equal(t, &MoveInfo{Piece: 0, From: -1, To: 0}, moved.Move)
	assert.Equal(t, 1, f.notify.count(EventRollAgain))

	// Second roll is a 3; only the entered piece can use it
	res, err = f.m.Roll(ctx, roomID, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, res.ValidMoves)
	mv, err = f.m.Move(ctx, roomID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, mv.To)
	assert.Equal(t, 1, mv.State.CurrentPlayer)
	assert.False(t, mv.State.CanRollAgain)
}

func TestRollWithoutLegalMoves(t *testing.T) {
	f := newFixture(t, engine.NewSequenceDice(3), manualOptions())
	ctx := context.Background()
	roomID := f.startedRoom(t, "alice", "bob")

	res, err := f.m.Roll(ctx, roomID, 0)
	require.NoError(t, err)
	assert.True(t, res.NoLegalMoves)
	assert.False(t, res.RollAgain)
	assert.Empty(t, res.ValidMoves)
	assert.Equal(t, 1, res.State.CurrentPlayer)
	assert.Zero(t, res.State.DiceValue)
	assert.True(t, res.State.MoveCompleted)
	assert.Equal(t, []EventType{EventDiceRolled, EventNoValidMoves, EventGameState}, f.notify.types())

	stored, err := f.m.State(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, res.State, stored)
}

func TestRollSixWithoutLegalMovesKeepsTurn(t *testing.T) {
	f := newFixture(t, engine.NewSequenceDice(6), manualOptions())
	ctx := context.Background()
	roomID := f.startedRoom(t, "alice", "bob")
	f.setPieces(t, roomID, [4]int{57, 57, 57, 53})

	res, err := f.m.Roll(ctx, roomID, 0)
	require.NoError(t, err)
	assert.True(t, res.NoLegalMoves)
	assert.True(t, res.RollAgain)
	assert.Equal(t, 0, res.State.CurrentPlayer)
	assert.True(t, res.State.CanRollAgain)
	assert.Equal(t, []EventType{EventDiceRolled, EventNoValidMoves, EventRollAgain, EventGameState}, f.notify.types())
}

func TestRejectedCommandsLeaveStateUnchanged(t *testing.T) {
	f := newFixture(t, engine.NewSequenceDice(4), manualOptions())
	ctx := context.Background()
	roomID := f.startedRoom(t, "alice", "bob")
	f.setPieces(t, roomID, [4]int{20, -1, -1, -1})
	before, err := f.m.State(ctx, roomID)
	require.NoError(t, err)

	_, err = f.m.Roll(ctx, roomID, 1)
	assert.ErrorIs(t, err, engine.ErrNotYourTurn)
	_, err = f.m.Move(ctx, roomID, 0, 0)
	assert.ErrorIs(t, err, engine.ErrInvalidMove)

	after, err := f.m.State(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Empty(t, f.notify.types())

	_, err = f.m.Roll(ctx, roomID, 0)
	require.NoError(t, err)
	_, err = f.m.Roll(ctx, roomID, 0)
	assert.ErrorIs(t, err, engine.ErrRollNotAllowed)
	_, err = f.m.Move(ctx, roomID, 0, 1)
	assert.ErrorIs(t, err, engine.ErrInvalidMove)
	_, err = f.m.Move(ctx, roomID, 1, 0)
	assert.ErrorIs(t, err, engine.ErrNotYourTurn)
}

func TestCaptureEvent(t *testing.T) {
	f := newFixture(t, engine.NewSequenceDice(3), manualOptions())
	ctx := context.Background()
	roomID := f.startedRoom(t, "alice", "bob")
	f.setPieces(t, roomID, [4]int{7, -1, -1, -1}, [4]int{10, -1, -1, -1})

	_, err := f.m.Roll(ctx, roomID, 0)
	require.NoError(t, err)
	mv, err := f.m.Move(ctx, roomID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, engine.HomePosition, mv.State.Players[1].Pieces[0])

	ev, ok := f.notify.last(EventPieceCaptured)
	require.True(t, ok)
	assert.Equal(t, &engine.Capture{Player: 1, Piece: 0, Cell: 10}, ev.Capture)
}

func TestWinFinishesRoom(t *testing.T) {
	f := newFixture(t, engine.NewSequenceDice(1), manualOptions())
	ctx := context.Background()
	roomID := f.startedRoom(t, "alice", "bob")
	f.setPieces(t, roomID, [4]int{57, 57, 57, 56})

	res, err := f.m.Roll(ctx, roomID, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, res.ValidMoves)

	mv, err := f.m.Move(ctx, roomID, 0, 3)
	require.NoError(t, err)
	assert.True(t, mv.Won)
	assert.Equal(t, "alice", mv.State.Winner)

	ev, ok := f.notify.last(EventGameFinished)
	require.True(t, ok)
	assert.Equal(t, "alice", ev.Winner)

	room, err := f.m.Room(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusFinished, room.Status)

	_, err = f.m.Roll(ctx, roomID, 0)
	assert.ErrorIs(t, err, engine.ErrRollNotAllowed)
}

func TestHint(t *testing.T) {
	f := newFixture(t, engine.NewSequenceDice(6), manualOptions())
	ctx := context.Background()
	roomID := f.startedRoom(t, "alice", "bob")

	hints, err := f.m.Hint(ctx, roomID, 0)
	require.NoError(t, err)
	assert.Empty(t, hints)

	_, err = f.m.Roll(ctx, roomID, 0)
	require.NoError(t, err)
	hints, err = f.m.Hint(ctx, roomID, 0)
	require.NoError(t, err)
	assert.Len(t, hints, 4)

	_, err = f.m.Hint(ctx, roomID, 1)
	assert.ErrorIs(t, err, engine.ErrNotYourTurn)
}

func TestPlayBotTurn(t *testing.T) {
	f := newFixture(t, engine.NewSequenceDice(3), manualOptions())
	ctx := context.Background()
	room, err := f.m.CreateRoom(ctx, "", "alice", "")
	require.NoError(t, err)
	_, err = f.m.AddBot(ctx, room.ID, "alice", agent.Easy)
	require.NoError(t, err)
	_, err = f.m.StartGame(ctx, room.ID, "alice")
	require.NoError(t, err)

	acted, err := f.m.PlayBotTurn(ctx, room.ID)
	require.NoError(t, err)
	assert.False(t, acted, "human to act")

	_, err = f.m.Roll(ctx, room.ID, 0)
	require.NoError(t, err)

	acted, err = f.m.PlayBotTurn(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, acted)

	gs, err := f.m.State(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, gs.CurrentPlayer)
}

func TestBotMovesItsPiece(t *testing.T) {
	f := newFixture(t, engine.NewSequenceDice(3), manualOptions())
	ctx := context.Background()
	room, err := f.m.CreateRoom(ctx, "", "alice", "")
	require.NoError(t, err)
	_, err = f.m.AddBot(ctx, room.ID, "alice", agent.Hard)
	require.NoError(t, err)
	_, err = f.m.StartGame(ctx, room.ID, "alice")
	require.NoError(t, err)
	f.setPieces(t, room.ID, [4]int{-1, -1, -1, -1}, [4]int{13, -1, -1, -1})

	_, err = f.m.Roll(ctx, room.ID, 0)
	require.NoError(t, err)

	// Roll, then move
	for i := 0; i < 2; i++ {
		acted, err := f.m.PlayBotTurn(ctx, room.ID)
		require.NoError(t, err)
		require.True(t, acted)
	}
	gs, err := f.m.State(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 16, gs.Players[1].Pieces[0])
	assert.Equal(t, 0, gs.CurrentPlayer)
}

func TestAutoBots(t *testing.T) {
	f := newFixture(t, engine.NewSequenceDice(3), Options{AutoBots: true, MaxPlayers: 4})
	ctx := context.Background()
	room, err := f.m.CreateRoom(ctx, "", "alice", "")
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err = f.m.AddBot(ctx, room.ID, "alice", agent.Medium)
		require.NoError(t, err)
	}
	_, err = f.m.StartGame(ctx, room.ID, "alice")
	require.NoError(t, err)

	_, err = f.m.Roll(ctx, room.ID, 0)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return f.notify.count(EventDiceRolled) == 3
	}, 2*time.Second, 5*time.Millisecond)

	gs, err := f.m.State(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, gs.CurrentPlayer)
	assert.False(t, gs.RollPending())
}

func TestLeaveRunningGame(t *testing.T) {
	f := newFixture(t, engine.NewSequenceDice(3), manualOptions())
	ctx := context.Background()
	roomID := f.startedRoom(t, "alice", "bob", "carol")

	require.NoError(t, f.m.LeaveRoom(ctx, roomID, "bob"))
	gs, err := f.m.State(ctx, roomID)
	require.NoError(t, err)
	assert.False(t, gs.Players[1].Active)
	assert.Len(t, gs.Players, 3, "turn order is kept")

	_, err = f.m.PlayerSeat(ctx, roomID, "bob")
	assert.ErrorIs(t, err, ErrUnknownPlayer)
	seat, err := f.m.PlayerSeat(ctx, roomID, "carol")
	require.NoError(t, err)
	assert.Equal(t, 2, seat)

	// bob's turn is now played by an agent
	_, err = f.m.Roll(ctx, roomID, 0)
	require.NoError(t, err)
	acted, err := f.m.PlayBotTurn(ctx, roomID)
	require.NoError(t, err)
	assert.True(t, acted)
	acted, err = f.m.PlayBotTurn(ctx, roomID)
	require.NoError(t, err)
	assert.False(t, acted, "carol is present")

	// Host leaves, carol takes over; then the room empties
	require.NoError(t, f.m.LeaveRoom(ctx, roomID, "alice"))
	room, err := f.m.Room(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, "carol", room.CreatedBy)

	require.NoError(t, f.m.LeaveRoom(ctx, roomID, "carol"))
	_, err = f.m.Room(ctx, roomID)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.Equal(t, 1, f.notify.count(EventRoomClosed))
}

func TestRejoinRunningGame(t *testing.T) {
	f := newFixture(t, engine.NewSequenceDice(3), manualOptions())
	ctx := context.Background()
	roomID := f.startedRoom(t, "alice", "bob")

	require.NoError(t, f.m.LeaveRoom(ctx, roomID, "bob"))
	_, err := f.m.Roll(ctx, roomID, 0)
	require.NoError(t, err)
	f.notify.clear()

	_, seat, err := f.m.JoinRoom(ctx, roomID, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, seat)
	assert.Equal(t, []EventType{EventRoomUpdated, EventGameState}, f.notify.types())

	gs, err := f.m.State(ctx, roomID)
	require.NoError(t, err)
	assert.True(t, gs.Players[1].Active)

	seat, err = f.m.PlayerSeat(ctx, roomID, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, seat)

	acted, err := f.m.PlayBotTurn(ctx, roomID)
	require.NoError(t, err)
	assert.False(t, acted, "the seat is human again")

	res, err := f.m.Roll(ctx, roomID, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Dice)
	assert.Equal(t, 0, res.State.CurrentPlayer)

	// Joining again while active changes nothing
	f.notify.clear()
	_, seat, err = f.m.JoinRoom(ctx, roomID, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, seat)
	assert.Empty(t, f.notify.types())
}

var errDiskFull = errors.New("disk full")

// flakyRepo fails combined room and game writes while broken is set.
type flakyRepo struct {
	*memory.Store
	broken bool
}

func (r *flakyRepo) PutRoomAndGame(ctx context.Context, room storage.Room, gs *engine.GameState) error {
	if r.broken {
		return errDiskFull
	}
	return r.Store.PutRoomAndGame(ctx, room, gs)
}

func TestFailedSaveCommitsNothing(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	repo := &flakyRepo{Store: memory.New()}
	notify := &mockNotifier{}
	m := NewManager(repo, engine.NewSequenceDice(6), notify, logger, manualOptions())
	t.Cleanup(m.Close)
	f := &fixture{m: m, notify: notify, repo: repo.Store}
	ctx := context.Background()
	roomID := f.startedRoom(t, "alice", "bob")

	_, err := m.Roll(ctx, roomID, 0)
	require.NoError(t, err)
	roomBefore, err := m.Room(ctx, roomID)
	require.NoError(t, err)
	gsBefore, err := m.State(ctx, roomID)
	require.NoError(t, err)
	notify.clear()

	repo.broken = true
	_, err = m.Move(ctx, roomID, 0, 0)
	assert.ErrorIs(t, err, errDiskFull)

	roomAfter, err := m.Room(ctx, roomID)
	require.NoError(t, err)
	gsAfter, err := m.State(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, roomBefore, roomAfter)
	assert.Equal(t, gsBefore, gsAfter)
	assert.Empty(t, notify.types())

	repo.broken = false
	mv, err := m.Move(ctx, roomID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, mv.To)
}

func TestLeaveWaitingRoom(t *testing.T) {
	f := newFixture(t, nil, manualOptions())
	ctx := context.Background()
	room, err := f.m.CreateRoom(ctx, "", "alice", "")
	require.NoError(t, err)
	_, _, err = f.m.JoinRoom(ctx, room.ID, "bob")
	require.NoError(t, err)

	assert.ErrorIs(t, f.m.LeaveRoom(ctx, room.ID, "nobody"), ErrUnknownPlayer)
	require.NoError(t, f.m.LeaveRoom(ctx, room.ID, "alice"))

	room, err = f.m.Room(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, []storage.Seat{{Name: "bob"}}, room.Seats)
	assert.Equal(t, "bob", room.CreatedBy)

	require.NoError(t, f.m.LeaveRoom(ctx, room.ID, "bob"))
	_, err = f.m.Room(ctx, room.ID)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestCleanupStale(t *testing.T) {
	f := newFixture(t, nil, manualOptions())
	ctx := context.Background()
	clock := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	f.m.now = func() time.Time { return clock }

	old, err := f.m.CreateRoom(ctx, "", "alice", "")
	require.NoError(t, err)
	clock = clock.Add(31 * time.Minute)
	fresh, err := f.m.CreateRoom(ctx, "", "bob", "")
	require.NoError(t, err)

	removed, err := f.m.CleanupStale(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = f.m.Room(ctx, old.ID)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	_, err = f.m.Room(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestConcurrentRollsAreSerialized(t *testing.T) {
	f := newFixture(t, engine.NewSequenceDice(2), manualOptions())
	ctx := context.Background()
	roomID := f.startedRoom(t, "alice", "bob")

	const n = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		rejected int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.m.Roll(ctx, roomID, 0)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, engine.ErrNotYourTurn):
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, n-1, rejected)
	assert.Zero(t, f.m.locks.size())
}

func TestKeyMutex(t *testing.T) {
	k := newKeyMutex()
	unlockA := k.Lock("a")
	unlockB := k.Lock("b")
	assert.Equal(t, 2, k.size())

	done := make(chan struct{})
	go func() {
		unlock := k.Lock("a")
		unlock()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("second Lock on the same key did not block")
	case <-time.After(20 * time.Millisecond):
	}
	unlockA()
	<-done
	unlockB()
	assert.Zero(t, k.size())
}
