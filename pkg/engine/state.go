package engine

import "fmt"

// Status is the lifecycle phase of a game.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Player is one seat in the turn order.
type Player struct {
	ID     string               `json:"id"`
	Name   string               `json:"name"`
	Color  Color                `json:"color"`
	Pieces [PiecesPerPlayer]int `json:"pieces"` // -1 home, 0-51 track, 52-56 home stretch, 57 finished
	Active bool                 `json:"isActive"`
}

// Finished reports whether all of the player's pieces reached the center.
func (p *Player) Finished() bool {
	for _, pos := range p.Pieces {
		if pos != FinishPosition {
			return false
		}
	}
	return true
}

// PiecesAt counts the player's pieces at the given position code.
func (p *Player) PiecesAt(pos int) int {
	n := 0
	for _, piece := range p.Pieces {
		if piece == pos {
			n++
		}
	}
	return n
}

// GameState is the complete state of one game.
//
// DiceValue is 0 when no roll is live. MoveCompleted is true when no
// piece move is pending. CanRollAgain is true when the previous roll was a
// six and it has been resolved.
type GameState struct {
	Players       []Player `json:"players"`
	CurrentPlayer int      `json:"currentPlayer"`
	DiceValue     int      `json:"diceValue"`
	GameStatus    Status   `json:"gameStatus"`
	Winner        string   `json:"winner,omitempty"`
	LastRoll      int      `json:"lastRoll,omitempty"`
	MoveCompleted bool     `json:"moveCompleted"`
	CanRollAgain  bool     `json:"canRollAgain"`
}

// Clone returns a deep copy that shares no memory with s.
func (s *GameState) Clone() *GameState {
	c := *s
	c.Players = make([]Player, len(s.Players))
	copy(c.Players, s.Players) // Pieces is an array, so this copies it too
	return &c
}

// Current returns the player whose turn it is.
func (s *GameState) Current() *Player {
	return &s.Players[s.CurrentPlayer]
}

// NextPlayer returns the seat after current in turn order.
func (s *GameState) NextPlayer(current int) int {
	return (current + 1) % len(s.Players)
}

// Opponents returns every seat index except player.
func (s *GameState) Opponents(player int) []int {
	opps := make([]int, 0, len(s.Players)-1)
	for i := range s.Players {
		if i != player {
			opps = append(opps, i)
		}
	}
	return opps
}

// PlayerByName returns the seat index of the named player, or -1.
func (s *GameState) PlayerByName(name string) int {
	for i := range s.Players {
		if s.Players[i].Name == name {
			return i
		}
	}
	return -1
}

// IsTerminal reports whether the game is over.
func (s *GameState) IsTerminal() bool { return s.GameStatus == StatusFinished }

// RollPending reports whether a dice value is live.
func (s *GameState) RollPending() bool { return s.DiceValue != 0 }

// Validate checks the structural invariants of a state that arrived from
// outside the engine (storage, a decoded state ID, a client).
func (s *GameState) Validate() error {
	if len(s.Players) < MinPlayers || len(s.Players) > MaxPlayers {
		return fmt.Errorf("%w: %d players", ErrInvalidState, len(s.Players))
	}
	if s.CurrentPlayer < 0 || s.CurrentPlayer >= len(s.Players) {
		return fmt.Errorf("%w: current player %d out of range", ErrInvalidState, s.CurrentPlayer)
	}
	if s.DiceValue < 0 || s.DiceValue > 6 {
		return fmt.Errorf("%w: dice value %d", ErrInvalidState, s.DiceValue)
	}
	if s.DiceValue != 0 && s.MoveCompleted {
		return fmt.Errorf("%w: live roll with completed move", ErrInvalidState)
	}
	if s.DiceValue == 0 && !s.MoveCompleted && s.GameStatus == StatusPlaying {
		return fmt.Errorf("%w: pending move without a live roll", ErrInvalidState)
	}
	if s.DiceValue != 0 && s.CanRollAgain {
		return fmt.Errorf("%w: roll-again granted while a roll is live", ErrInvalidState)
	}
	switch s.GameStatus {
	case StatusWaiting, StatusPlaying:
		if s.Winner != "" {
			return fmt.Errorf("%w: winner set while %s", ErrInvalidState, s.GameStatus)
		}
	case StatusFinished:
		if s.Winner != "" && s.PlayerByName(s.Winner) < 0 {
			return fmt.Errorf("%w: unknown winner %q", ErrInvalidState, s.Winner)
		}
	default:
		return fmt.Errorf("%w: status %q", ErrInvalidState, s.GameStatus)
	}
	for i := range s.Players {
		p := &s.Players[i]
		if !p.Color.Valid() {
			return fmt.Errorf("%w: player %d has color %d", ErrInvalidState, i, p.Color)
		}
		for j, pos := range p.Pieces {
			if !ValidPosition(pos) {
				return fmt.Errorf("%w: player %d piece %d at %d", ErrInvalidState, i, j, pos)
			}
		}
	}
	return nil
}
