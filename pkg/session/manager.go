// Package session owns the authoritative game of every room. It serializes
// commands per room, persists every transition through a
// storage.Repository, drives bot seats and publishes events.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/ludoengine/internal/storage"
	"github.com/yourusername/ludoengine/pkg/agent"
	"github.com/yourusername/ludoengine/pkg/engine"
)

// Options tunes a Manager.
type Options struct {
	AutoBots      bool          // Drive bot seats in the background
	BotDelayScale float64       // Multiplier on agent thinking time, 0 = no pause
	StaleAfter    time.Duration // Idle time before CleanupStale removes a room
	MaxPlayers    int           // Seats per room
}

// DefaultOptions returns the settings used by the server.
func DefaultOptions() Options {
	return Options{
		AutoBots:      true,
		BotDelayScale: 1,
		StaleAfter:    30 * time.Minute,
		MaxPlayers:    engine.MaxPlayers,
	}
}

// Manager runs rooms on top of a repository.
type Manager struct {
	repo   storage.Repository
	dice   engine.Dice
	notify Notifier
	log    logrus.FieldLogger
	opts   Options
	now    func() time.Time

	locks  *keyMutex
	agents map[agent.Difficulty]*agent.Agent

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	botMu   sync.Mutex
	driving map[string]bool // room -> another pass requested
}

// NewManager returns a manager. dice, notify and log may be nil.
func NewManager(repo storage.Repository, dice engine.Dice, notify Notifier, log logrus.FieldLogger, opts Options) *Manager {
	if dice == nil {
		dice = engine.NewRandomDice()
	}
	if notify == nil {
		notify = nopNotifier{}
	}
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		log = l
	}
	if opts.MaxPlayers < engine.MinPlayers || opts.MaxPlayers > engine.MaxPlayers {
		opts.MaxPlayers = engine.MaxPlayers
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 30 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		repo:   repo,
		dice:   dice,
		notify: notify,
		log:    log,
		opts:   opts,
		now:    time.Now,
		locks:  newKeyMutex(),
		agents: map[agent.Difficulty]*agent.Agent{
			agent.Easy:   agent.New(agent.Easy, nil),
			agent.Medium: agent.New(agent.Medium, nil),
			agent.Hard:   agent.New(agent.Hard, nil),
		},
		ctx:     ctx,
		cancel:  cancel,
		driving: make(map[string]bool),
	}
}

// Close stops background bot play and waits for it to finish.
func (m *Manager) Close() {
	m.botMu.Lock()
	m.cancel()
	m.botMu.Unlock()
	m.wg.Wait()
}

func (m *Manager) loadRoom(ctx context.Context, roomID string) (storage.Room, error) {
	room, err := m.repo.GetRoom(ctx, roomID)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Room{}, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	if err != nil {
		return storage.Room{}, fmt.Errorf("load room %s: %w", roomID, err)
	}
	return room, nil
}

// loadGame returns a started room and its validated game state.
func (m *Manager) loadGame(ctx context.Context, roomID string) (storage.Room, *engine.GameState, error) {
	room, err := m.loadRoom(ctx, roomID)
	if err != nil {
		return storage.Room{}, nil, err
	}
	if room.Status == engine.StatusWaiting {
		return storage.Room{}, nil, fmt.Errorf("%w: %s", ErrGameNotStarted, roomID)
	}
	gs, err := m.repo.GetGameState(ctx, roomID)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Room{}, nil, fmt.Errorf("%w: %s has no game", ErrGameNotStarted, roomID)
	}
	if err != nil {
		return storage.Room{}, nil, fmt.Errorf("load game %s: %w", roomID, err)
	}
	if err := gs.Validate(); err != nil {
		return storage.Room{}, nil, fmt.Errorf("load game %s: %w", roomID, err)
	}
	return room, gs, nil
}

// saveGame persists gs together with the touched room, marking it finished
// when the game is over. room is only updated once the write succeeded.
func (m *Manager) saveGame(ctx context.Context, room *storage.Room, gs *engine.GameState) error {
	next := room.Clone()
	next.UpdatedAt = m.now()
	if gs.IsTerminal() {
		next.Status = engine.StatusFinished
	}
	if err := m.repo.PutRoomAndGame(ctx, next, gs); err != nil {
		return fmt.Errorf("save game %s: %w", room.ID, err)
	}
	*room = next
	return nil
}

func (m *Manager) saveRoom(ctx context.Context, room *storage.Room) error {
	room.UpdatedAt = m.now()
	if err := m.repo.PutRoom(ctx, *room); err != nil {
		return fmt.Errorf("save room %s: %w", room.ID, err)
	}
	return nil
}

func (m *Manager) publish(roomID string, ev Event) {
	ev.RoomID = roomID
	ev.Time = m.now()
	m.notify.Publish(roomID, ev)
}

func (m *Manager) publishRoom(room storage.Room) {
	r := room.Clone()
	m.publish(room.ID, Event{Type: EventRoomUpdated, Player: -1, Room: &r})
}

func (m *Manager) publishState(roomID string, gs *engine.GameState) {
	m.publish(roomID, Event{Type: EventGameState, Player: gs.CurrentPlayer, State: gs.Clone()})
}

func (m *Manager) roomLog(roomID string) logrus.FieldLogger {
	return m.log.WithField("room", roomID)
}
