package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/ludoengine/internal/storage"
	"github.com/yourusername/ludoengine/pkg/agent"
	"github.com/yourusername/ludoengine/pkg/engine"
)

const roomIDAttempts = 5

// CreateRoom opens a waiting room with host in the first seat.
func (m *Manager) CreateRoom(ctx context.Context, name, host string, mode storage.Mode) (storage.Room, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return storage.Room{}, fmt.Errorf("%w: host name is required", ErrInvalidName)
	}
	switch mode {
	case "":
		mode = storage.ModeClassic
	case storage.ModeClassic, storage.ModeSpeed, storage.ModeFamily:
	default:
		return storage.Room{}, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	if name = strings.TrimSpace(name); name == "" {
		name = host + "'s room"
	}

	id, err := m.newRoomID(ctx)
	if err != nil {
		return storage.Room{}, err
	}
	now := m.now()
	room := storage.Room{
		ID:         id,
		Name:       name,
		Seats:      []storage.Seat{{Name: host}},
		MaxPlayers: m.opts.MaxPlayers,
		Status:     engine.StatusWaiting,
		Mode:       mode,
		CreatedBy:  host,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := m.repo.PutRoom(ctx, room); err != nil {
		return storage.Room{}, fmt.Errorf("create room: %w", err)
	}

	m.roomLog(id).WithFields(logrus.Fields{"host": host, "mode": mode}).Info("room created")
	m.publishRoom(room)
	return room, nil
}

// newRoomID returns an unused ID of the form ROOM + 6 uppercase hex chars.
func (m *Manager) newRoomID(ctx context.Context) (string, error) {
	for i := 0; i < roomIDAttempts; i++ {
		raw := strings.ReplaceAll(uuid.NewString(), "-", "")
		id := "ROOM" + strings.ToUpper(raw[:6])
		_, err := m.repo.GetRoom(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return id, nil
		}
		if err != nil {
			return "", fmt.Errorf("check room id: %w", err)
		}
	}
	return "", fmt.Errorf("no free room id after %d attempts", roomIDAttempts)
}

// Room returns a room record.
func (m *Manager) Room(ctx context.Context, roomID string) (storage.Room, error) {
	return m.loadRoom(ctx, roomID)
}

// ListRooms returns every room, oldest first.
func (m *Manager) ListRooms(ctx context.Context) ([]storage.Room, error) {
	rooms, err := m.repo.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// JoinRoom seats name in a waiting room and returns the seat index.
// Joining again under a seated human name returns the existing seat; in a
// running game it also takes the seat back from the bots.
func (m *Manager) JoinRoom(ctx context.Context, roomID, name string) (storage.Room, int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return storage.Room{}, -1, fmt.Errorf("%w: player name is required", ErrInvalidName)
	}

	unlock := m.locks.Lock(roomID)
	defer unlock()

	room, err := m.loadRoom(ctx, roomID)
	if err != nil {
		return storage.Room{}, -1, err
	}
	if i := room.SeatIndex(name); i >= 0 {
		if room.Seats[i].Bot {
			return storage.Room{}, -1, fmt.Errorf("%w: %q", ErrNameTaken, name)
		}
		if room.Status != engine.StatusPlaying {
			return room, i, nil
		}
		return m.rejoin(ctx, room, i)
	}
	if room.Status != engine.StatusWaiting {
		return storage.Room{}, -1, ErrGameStarted
	}
	if room.Full() {
		return storage.Room{}, -1, fmt.Errorf("%w: %d of %d seats taken", ErrRoomFull, len(room.Seats), room.MaxPlayers)
	}

	room.Seats = append(room.Seats, storage.Seat{Name: name})
	if err := m.saveRoom(ctx, &room); err != nil {
		return storage.Room{}, -1, err
	}
	m.roomLog(roomID).WithField("player", name).Info("player joined")
	m.publishRoom(room)
	return room, len(room.Seats) - 1, nil
}

// rejoin reactivates a seat whose player left a running game.
func (m *Manager) rejoin(ctx context.Context, room storage.Room, seat int) (storage.Room, int, error) {
	_, gs, err := m.loadGame(ctx, room.ID)
	if err != nil {
		return storage.Room{}, -1, err
	}
	if seat >= len(gs.Players) || gs.Players[seat].Active {
		return room, seat, nil
	}

	next := gs.Clone()
	next.Players[seat].Active = true
	if err := m.saveGame(ctx, &room, next); err != nil {
		return storage.Room{}, -1, err
	}
	m.roomLog(room.ID).WithField("player", room.Seats[seat].Name).Info("player rejoined")
	m.publishRoom(room)
	m.publishState(room.ID, next)
	return room, seat, nil
}

// AddBot seats a computer player. Only the host may add bots.
func (m *Manager) AddBot(ctx context.Context, roomID, requester string, difficulty agent.Difficulty) (storage.Room, error) {
	d, err := agent.ParseDifficulty(string(difficulty))
	if err != nil {
		return storage.Room{}, err
	}

	unlock := m.locks.Lock(roomID)
	defer unlock()

	room, err := m.loadRoom(ctx, roomID)
	if err != nil {
		return storage.Room{}, err
	}
	if room.CreatedBy != requester {
		return storage.Room{}, ErrNotHost
	}
	if room.Status != engine.StatusWaiting {
		return storage.Room{}, ErrGameStarted
	}
	if room.Full() {
		return storage.Room{}, ErrRoomFull
	}

	name := ""
	for n := 1; name == ""; n++ {
		if candidate := fmt.Sprintf("Bot %d", n); room.SeatIndex(candidate) < 0 {
			name = candidate
		}
	}
	room.Seats = append(room.Seats, storage.Seat{Name: name, Bot: true, Difficulty: string(d)})
	if err := m.saveRoom(ctx, &room); err != nil {
		return storage.Room{}, err
	}
	m.roomLog(roomID).WithFields(logrus.Fields{"bot": name, "difficulty": d}).Info("bot added")
	m.publishRoom(room)
	return room, nil
}

// LeaveRoom removes name from a waiting room, or marks the seat inactive in
// a running game so bots play it out. The room is deleted once no human is
// left; the host role passes to the next human otherwise.
func (m *Manager) LeaveRoom(ctx context.Context, roomID, name string) error {
	unlock := m.locks.Lock(roomID)
	defer unlock()

	room, err := m.loadRoom(ctx, roomID)
	if err != nil {
		return err
	}
	seat := room.SeatIndex(name)
	if seat < 0 || room.Seats[seat].Bot {
		return fmt.Errorf("%w: %q", ErrUnknownPlayer, name)
	}

	var gs *engine.GameState
	present := func(i int) bool { return !room.Seats[i].Bot }
	if room.Status == engine.StatusWaiting {
		room.Seats = append(room.Seats[:seat], room.Seats[seat+1:]...)
	} else {
		if _, gs, err = m.loadGame(ctx, roomID); err != nil {
			return err
		}
		gs.Players[seat].Active = false
		present = func(i int) bool { return !room.Seats[i].Bot && gs.Players[i].Active }
	}

	log := m.roomLog(roomID).WithField("player", name)
	host := ""
	for i := range room.Seats {
		if present(i) {
			host = room.Seats[i].Name
			break
		}
	}
	if host == "" {
		if err := m.repo.DeleteRoom(ctx, roomID); err != nil {
			return fmt.Errorf("delete room %s: %w", roomID, err)
		}
		log.Info("last player left, room closed")
		m.publish(roomID, Event{Type: EventRoomClosed, Player: -1})
		return nil
	}
	if room.CreatedBy == name {
		room.CreatedBy = host
	}

	if gs != nil {
		if err := m.saveGame(ctx, &room, gs); err != nil {
			return err
		}
	} else if err := m.saveRoom(ctx, &room); err != nil {
		return err
	}
	log.Info("player left")
	m.publishRoom(room)
	if gs != nil {
		m.publishState(roomID, gs)
		m.kickBots(roomID)
	}
	return nil
}

// StartGame deals a new game for the seated players. Only the host may
// start, and at least two seats must be taken.
func (m *Manager) StartGame(ctx context.Context, roomID, requester string) (*engine.GameState, error) {
	unlock := m.locks.Lock(roomID)
	defer unlock()

	room, err := m.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.CreatedBy != requester {
		return nil, ErrNotHost
	}
	if room.Status != engine.StatusWaiting {
		return nil, ErrGameStarted
	}
	if len(room.Seats) < engine.MinPlayers {
		return nil, fmt.Errorf("%w: %d seated, need %d", ErrNotEnoughPlayers, len(room.Seats), engine.MinPlayers)
	}

	gs, err := engine.NewGame(room.Names())
	if err != nil {
		return nil, err
	}
	room.Status = engine.StatusPlaying
	if err := m.saveGame(ctx, &room, gs); err != nil {
		return nil, err
	}

	m.roomLog(roomID).WithField("players", len(room.Seats)).Info("game started")
	r := room.Clone()
	m.publish(roomID, Event{Type: EventGameStarted, Player: gs.CurrentPlayer, Room: &r, State: gs.Clone()})
	m.publishState(roomID, gs)
	m.kickBots(roomID)
	return gs, nil
}

// CleanupStale deletes rooms idle for longer than ttl (the configured
// StaleAfter when ttl is 0) and returns how many were removed.
func (m *Manager) CleanupStale(ctx context.Context, ttl time.Duration) (int, error) {
	if ttl <= 0 {
		ttl = m.opts.StaleAfter
	}
	rooms, err := m.ListRooms(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := m.now().Add(-ttl)
	removed := 0
	for _, r := range rooms {
		if !r.UpdatedAt.Before(cutoff) {
			continue
		}
		ok, err := m.deleteIfStale(ctx, r.ID, cutoff)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	if removed > 0 {
		m.log.WithField("rooms", removed).Info("stale rooms removed")
	}
	return removed, nil
}

func (m *Manager) deleteIfStale(ctx context.Context, roomID string, cutoff time.Time) (bool, error) {
	unlock := m.locks.Lock(roomID)
	defer unlock()

	room, err := m.loadRoom(ctx, roomID)
	if errors.Is(err, ErrRoomNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	// Someone may have touched it since the listing
	if !room.UpdatedAt.Before(cutoff) {
		return false, nil
	}
	if err := m.repo.DeleteRoom(ctx, roomID); err != nil {
		return false, fmt.Errorf("delete room %s: %w", roomID, err)
	}
	m.publish(roomID, Event{Type: EventRoomClosed, Player: -1})
	return true, nil
}
