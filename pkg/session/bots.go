package session

import (
	"context"
	"errors"
	"time"

	"github.com/yourusername/ludoengine/internal/storage"
	"github.com/yourusername/ludoengine/pkg/agent"
	"github.com/yourusername/ludoengine/pkg/engine"
)

// botFor returns the agent that plays the current seat, if it is not a
// present human. Seats whose player left are played at medium strength.
func (m *Manager) botFor(room storage.Room, gs *engine.GameState) (*agent.Agent, bool) {
	if gs.IsTerminal() || gs.CurrentPlayer >= len(room.Seats) {
		return nil, false
	}
	seat := room.Seats[gs.CurrentPlayer]
	switch {
	case seat.Bot:
		d, err := agent.ParseDifficulty(seat.Difficulty)
		if err != nil {
			d = agent.Medium
		}
		return m.agents[d], true
	case !gs.Players[gs.CurrentPlayer].Active:
		return m.agents[agent.Medium], true
	}
	return nil, false
}

// PlayBotTurn performs one step for a bot-controlled current seat: a roll,
// or a move for its live roll. It reports false when a human is to act.
func (m *Manager) PlayBotTurn(ctx context.Context, roomID string) (bool, error) {
	unlock := m.locks.Lock(roomID)
	defer unlock()

	room, gs, err := m.loadGame(ctx, roomID)
	if err != nil {
		return false, err
	}
	bot, ok := m.botFor(room, gs)
	if !ok {
		return false, nil
	}

	player := gs.CurrentPlayer
	if !gs.RollPending() {
		_, err := m.roll(ctx, &room, gs, player)
		return true, err
	}

	piece, ok := bot.Decide(gs, player)
	if !ok {
		// Rolls are resolved when made, so this only happens to states
		// written by an older process.
		next, err := engine.ResolveNoMoves(gs, player)
		if err != nil {
			return true, err
		}
		if err := m.saveGame(ctx, &room, next); err != nil {
			return true, err
		}
		m.publishState(roomID, next)
		return true, nil
	}
	_, err = m.move(ctx, &room, gs, player, piece)
	return true, err
}

// nextBotDelay reports whether a bot is to act in roomID and how long it
// should appear to think first.
func (m *Manager) nextBotDelay(ctx context.Context, roomID string) (time.Duration, bool) {
	room, gs, err := m.loadGame(ctx, roomID)
	if err != nil {
		return 0, false
	}
	bot, ok := m.botFor(room, gs)
	if !ok {
		return 0, false
	}
	if m.opts.BotDelayScale <= 0 {
		return 0, true
	}
	return time.Duration(float64(bot.ThinkingTime()) * m.opts.BotDelayScale), true
}

// kickBots starts the bot driver for roomID, or asks a running one for
// another pass.
func (m *Manager) kickBots(roomID string) {
	if !m.opts.AutoBots {
		return
	}
	m.botMu.Lock()
	defer m.botMu.Unlock()
	if m.ctx.Err() != nil {
		return
	}
	if _, running := m.driving[roomID]; running {
		m.driving[roomID] = true
		return
	}
	m.driving[roomID] = false
	m.wg.Add(1)
	go m.driveBots(roomID)
}

func (m *Manager) driveBots(roomID string) {
	defer m.wg.Done()
	for {
		m.runBots(roomID)

		m.botMu.Lock()
		if !m.driving[roomID] || m.ctx.Err() != nil {
			delete(m.driving, roomID)
			m.botMu.Unlock()
			return
		}
		m.driving[roomID] = false
		m.botMu.Unlock()
	}
}

// runBots plays bot steps with thinking pauses until a human is to act.
// The room lock is only held inside PlayBotTurn, never while sleeping.
func (m *Manager) runBots(roomID string) {
	log := m.roomLog(roomID)
	for {
		delay, ok := m.nextBotDelay(m.ctx, roomID)
		if !ok {
			return
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-m.ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}

		acted, err := m.PlayBotTurn(m.ctx, roomID)
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, ErrRoomNotFound) {
				log.WithError(err).Warn("bot turn failed")
			}
			return
		}
		if !acted {
			return
		}
	}
}
