package engine

import (
	"fmt"

	"github.com/yourusername/ludoengine/internal/stateid"
)

var statusCodes = map[Status]int{
	StatusWaiting:  stateid.StatusWaiting,
	StatusPlaying:  stateid.StatusPlaying,
	StatusFinished: stateid.StatusFinished,
}

// EncodeStateID returns the compact ID of s. Player names are not part of
// the ID.
func EncodeStateID(s *GameState) (string, error) {
	snap := stateid.Snapshot{
		Current:       s.CurrentPlayer,
		Dice:          s.DiceValue,
		MoveCompleted: s.MoveCompleted,
		CanRollAgain:  s.CanRollAgain,
		Status:        statusCodes[s.GameStatus],
		Winner:        s.PlayerByName(s.Winner),
		Pieces:        make([][PiecesPerPlayer]int, len(s.Players)),
	}
	if s.Winner == "" {
		snap.Winner = -1
	}
	for i := range s.Players {
		snap.Pieces[i] = s.Players[i].Pieces
	}
	return stateid.Encode(snap)
}

// DecodeStateID rebuilds a state from its ID. names supplies the display
// names in seat order; missing names default to "Player N".
func DecodeStateID(id string, names []string) (*GameState, error) {
	snap, err := stateid.Decode(id)
	if err != nil {
		return nil, err
	}

	s := &GameState{
		Players:       make([]Player, len(snap.Pieces)),
		CurrentPlayer: snap.Current,
		DiceValue:     snap.Dice,
		MoveCompleted: snap.MoveCompleted,
		CanRollAgain:  snap.CanRollAgain,
	}
	for status, code := range statusCodes {
		if code == snap.Status {
			s.GameStatus = status
		}
	}
	for i, pieces := range snap.Pieces {
		name := fmt.Sprintf("Player %d", i+1)
		if i < len(names) && names[i] != "" {
			name = names[i]
		}
		s.Players[i] = Player{
			ID:     fmt.Sprintf("player_%d", i),
			Name:   name,
			Color:  Color(i),
			Pieces: pieces,
			Active: true,
		}
	}
	if snap.Winner >= 0 {
		s.Winner = s.Players[snap.Winner].Name
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
