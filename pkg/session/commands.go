package session

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/ludoengine/internal/storage"
	"github.com/yourusername/ludoengine/pkg/agent"
	"github.com/yourusername/ludoengine/pkg/engine"
)

// RollResult is the outcome of a roll command. When the roll has no legal
// move it is resolved on the spot and State already reflects that.
type RollResult struct {
	Dice         int               `json:"dice"`
	ValidMoves   []int             `json:"validMoves"`
	NoLegalMoves bool              `json:"noLegalMoves"`
	RollAgain    bool              `json:"rollAgain"`
	State        *engine.GameState `json:"state"`
}

// PlayerSeat resolves a human player's name to a seat index. Bots and
// players who left the game are not addressable.
func (m *Manager) PlayerSeat(ctx context.Context, roomID, name string) (int, error) {
	room, err := m.loadRoom(ctx, roomID)
	if err != nil {
		return -1, err
	}
	seat := room.SeatIndex(name)
	if seat < 0 || room.Seats[seat].Bot {
		return -1, fmt.Errorf("%w: %q", ErrUnknownPlayer, name)
	}
	if room.Status != engine.StatusWaiting {
		gs, err := m.repo.GetGameState(ctx, roomID)
		if err == nil && seat < len(gs.Players) && !gs.Players[seat].Active {
			return -1, fmt.Errorf("%w: %q left the game", ErrUnknownPlayer, name)
		}
	}
	return seat, nil
}

// State returns the current game of a room. It never changes anything.
func (m *Manager) State(ctx context.Context, roomID string) (*engine.GameState, error) {
	_, gs, err := m.loadGame(ctx, roomID)
	return gs, err
}

// Hint ranks player's moves for the live roll. It is empty when no roll is
// live.
func (m *Manager) Hint(ctx context.Context, roomID string, player int) ([]agent.ScoredMove, error) {
	gs, err := m.State(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if player != gs.CurrentPlayer {
		return nil, fmt.Errorf("%w: player %d, current %d", engine.ErrNotYourTurn, player, gs.CurrentPlayer)
	}
	return agent.Analyze(gs, player), nil
}

// Roll rolls the dice for player. A roll without legal moves is resolved
// in the same step.
func (m *Manager) Roll(ctx context.Context, roomID string, player int) (RollResult, error) {
	unlock := m.locks.Lock(roomID)
	res, err := m.lockedRoll(ctx, roomID, player)
	unlock()
	if err == nil {
		m.kickBots(roomID)
	}
	return res, err
}

func (m *Manager) lockedRoll(ctx context.Context, roomID string, player int) (RollResult, error) {
	room, gs, err := m.loadGame(ctx, roomID)
	if err != nil {
		return RollResult{}, err
	}
	return m.roll(ctx, &room, gs, player)
}

func (m *Manager) roll(ctx context.Context, room *storage.Room, gs *engine.GameState, player int) (RollResult, error) {
	// Rejected rolls must not consume a face.
	if player != gs.CurrentPlayer {
		return RollResult{}, fmt.Errorf("%w: player %d, current %d", engine.ErrNotYourTurn, player, gs.CurrentPlayer)
	}
	if !engine.CanPlayerRoll(gs, player) {
		return RollResult{}, fmt.Errorf("%w: dice=%d moveCompleted=%t", engine.ErrRollNotAllowed, gs.DiceValue, gs.MoveCompleted)
	}
	next, err := engine.ApplyRoll(gs, player, engine.RollDice(m.dice))
	if err != nil {
		return RollResult{}, err
	}

	res := RollResult{Dice: next.DiceValue, ValidMoves: engine.ValidMoves(next, player)}
	if len(res.ValidMoves) == 0 {
		if next, err = engine.ResolveNoMoves(next, player); err != nil {
			return RollResult{}, err
		}
		res.NoLegalMoves = true
		res.RollAgain = next.CanRollAgain
	}
	res.State = next

	if err := m.saveGame(ctx, room, next); err != nil {
		return RollResult{}, err
	}

	m.roomLog(room.ID).WithFields(logrus.Fields{
		"player": player,
		"dice":   res.Dice,
		"moves":  len(res.ValidMoves),
	}).Debug("dice rolled")
	m.publish(room.ID, Event{Type: EventDiceRolled, Player: player, Dice: res.Dice, ValidMoves: res.ValidMoves})
	if res.NoLegalMoves {
		m.publish(room.ID, Event{Type: EventNoValidMoves, Player: player, Dice: res.Dice})
	}
	if res.RollAgain {
		m.publish(room.ID, Event{Type: EventRollAgain, Player: player})
	}
	m.publishState(room.ID, next)
	return res, nil
}

// Move moves piece of player using the live roll.
func (m *Manager) Move(ctx context.Context, roomID string, player, piece int) (engine.MoveResult, error) {
	unlock := m.locks.Lock(roomID)
	res, err := m.lockedMove(ctx, roomID, player, piece)
	unlock()
	if err == nil {
		m.kickBots(roomID)
	}
	return res, err
}

func (m *Manager) lockedMove(ctx context.Context, roomID string, player, piece int) (engine.MoveResult, error) {
	room, gs, err := m.loadGame(ctx, roomID)
	if err != nil {
		return engine.MoveResult{}, err
	}
	return m.move(ctx, &room, gs, player, piece)
}

func (m *Manager) move(ctx context.Context, room *storage.Room, gs *engine.GameState, player, piece int) (engine.MoveResult, error) {
	res, err := engine.Move(gs, player, piece)
	if err != nil {
		return engine.MoveResult{}, err
	}
	if err := m.saveGame(ctx, room, res.State); err != nil {
		return engine.MoveResult{}, err
	}

	log := m.roomLog(room.ID).WithFields(logrus.Fields{"player": player, "piece": piece})
	log.WithFields(logrus.Fields{"from": res.From, "to": res.To}).Debug("piece moved")
	m.publish(room.ID, Event{
		Type:   EventPieceMoved,
		Player: player,
		Dice:   res.Dice,
		Move:   &MoveInfo{Piece: piece, From: res.From, To: res.To, Finished: res.Finished},
	})
	for i := range res.Captures {
		c := res.Captures[i]
		m.publish(room.ID, Event{Type: EventPieceCaptured, Player: player, Capture: &c})
	}
	if res.ExtraRoll {
		m.publish(room.ID, Event{Type: EventRollAgain, Player: player})
	}
	if res.Won {
		log.WithField("winner", res.State.Winner).Info("game finished")
		m.publish(room.ID, Event{Type: EventGameFinished, Player: player, Winner: res.State.Winner})
	}
	m.publishState(room.ID, res.State)
	return res, nil
}
