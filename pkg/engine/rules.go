package engine

import "fmt"

// Capture records an opponent piece sent home by a move.
type Capture struct {
	Player int `json:"player"`
	Piece  int `json:"piece"`
	Cell   int `json:"cell"`
}

// MoveResult describes a successful MovePiece transition.
type MoveResult struct {
	State     *GameState `json:"state"`
	Player    int        `json:"player"`
	Piece     int        `json:"piece"`
	Dice      int        `json:"dice"`
	From      int        `json:"from"`
	To        int        `json:"to"`
	Captures  []Capture  `json:"captures,omitempty"`
	Finished  bool       `json:"finished"`  // The moved piece reached the center
	Won       bool       `json:"won"`       // The move ended the game
	ExtraRoll bool       `json:"extraRoll"` // The mover rolls again
}

// NewGame creates the initial state for 2-4 players. Colors are assigned
// in seat order and every piece starts at home.
func NewGame(names []string) (*GameState, error) {
	if len(names) < MinPlayers || len(names) > MaxPlayers {
		return nil, fmt.Errorf("%w: got %d, want %d-%d", ErrInvalidPlayerCount, len(names), MinPlayers, MaxPlayers)
	}

	s := &GameState{
		Players:       make([]Player, len(names)),
		CurrentPlayer: 0,
		DiceValue:     0,
		GameStatus:    StatusPlaying,
		MoveCompleted: true,
		CanRollAgain:  false,
	}
	for i, name := range names {
		s.Players[i] = Player{
			ID:     fmt.Sprintf("player_%d", i),
			Name:   name,
			Color:  Color(i),
			Pieces: [PiecesPerPlayer]int{HomePosition, HomePosition, HomePosition, HomePosition},
			Active: true,
		}
	}
	return s, nil
}

// CanPlayerRoll is the sole gate for accepting a roll.
func CanPlayerRoll(s *GameState, player int) bool {
	return player == s.CurrentPlayer &&
		s.DiceValue == 0 &&
		s.MoveCompleted &&
		s.GameStatus == StatusPlaying
}

// ApplyRoll records a rolled value for player and returns the new state.
func ApplyRoll(s *GameState, player, value int) (*GameState, error) {
	if player != s.CurrentPlayer {
		return nil, fmt.Errorf("%w: player %d, current %d", ErrNotYourTurn, player, s.CurrentPlayer)
	}
	if !CanPlayerRoll(s, player) {
		return nil, fmt.Errorf("%w: dice=%d moveCompleted=%t status=%s", ErrRollNotAllowed, s.DiceValue, s.MoveCompleted, s.GameStatus)
	}
	if value < 1 || value > 6 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDice, value)
	}

	next := s.Clone()
	next.DiceValue = value
	next.LastRoll = value
	next.MoveCompleted = false
	next.CanRollAgain = false
	return next, nil
}

// CanMovePiece reports whether piece of player may move dice steps.
func CanMovePiece(s *GameState, player, piece, dice int) bool {
	if player < 0 || player >= len(s.Players) || piece < 0 || piece >= PiecesPerPlayer {
		return false
	}
	p := &s.Players[player]
	_, ok := Destination(p.Color, p.Pieces[piece], dice)
	return ok
}

// ValidMoves returns the indices of player's pieces that can use the live
// dice value, in piece order. It is empty when no roll is live.
func ValidMoves(s *GameState, player int) []int {
	moves := make([]int, 0, PiecesPerPlayer)
	if s.DiceValue == 0 {
		return moves
	}
	for piece := 0; piece < PiecesPerPlayer; piece++ {
		if CanMovePiece(s, player, piece, s.DiceValue) {
			moves = append(moves, piece)
		}
	}
	return moves
}

// HasValidMoves reports whether the live roll can be used by player.
func HasValidMoves(s *GameState, player int) bool {
	return len(ValidMoves(s, player)) > 0
}

// MovePiece applies the live dice value to piece and returns the new state.
func MovePiece(s *GameState, player, piece int) (*GameState, error) {
	res, err := Move(s, player, piece)
	if err != nil {
		return nil, err
	}
	return res.State, nil
}

// Move applies the live dice value to piece. It validates before touching
// anything, so a rejected move leaves s unchanged. A roll that no piece can
// use fails with ErrNoLegalMoves rather than ErrInvalidMove.
func Move(s *GameState, player, piece int) (MoveResult, error) {
	if err := checkMove(s, player, piece); err != nil {
		return MoveResult{}, err
	}

	next := s.Clone()
	dice := next.DiceValue
	mover := &next.Players[player]
	from := mover.Pieces[piece]
	to, _ := Destination(mover.Color, from, dice)
	mover.Pieces[piece] = to

	res := MoveResult{
		State:    next,
		Player:   player,
		Piece:    piece,
		Dice:     dice,
		From:     from,
		To:       to,
		Finished: to == FinishPosition,
	}

	if OnTrack(to) {
		res.Captures = captureAt(next, player, to)
	}

	if mover.Finished() {
		next.GameStatus = StatusFinished
		next.Winner = mover.Name
		next.DiceValue = 0
		next.MoveCompleted = true
		next.CanRollAgain = false
		res.Won = true
		return res, nil
	}

	endTurn(next, dice)
	res.ExtraRoll = next.CanRollAgain
	return res, nil
}

func checkMove(s *GameState, player, piece int) error {
	if s.GameStatus != StatusPlaying {
		return fmt.Errorf("%w: game is %s", ErrInvalidMove, s.GameStatus)
	}
	if player != s.CurrentPlayer {
		return fmt.Errorf("%w: player %d, current %d", ErrNotYourTurn, player, s.CurrentPlayer)
	}
	if s.DiceValue == 0 || s.MoveCompleted {
		return fmt.Errorf("%w: no live roll", ErrInvalidMove)
	}
	if !HasValidMoves(s, player) {
		return fmt.Errorf("%w: roll %d, run ResolveNoMoves", ErrNoLegalMoves, s.DiceValue)
	}
	if piece < 0 || piece >= PiecesPerPlayer {
		return fmt.Errorf("%w: piece %d out of range", ErrInvalidMove, piece)
	}
	if !CanMovePiece(s, player, piece, s.DiceValue) {
		return fmt.Errorf("%w: piece %d at %d cannot move %d", ErrInvalidMove, piece, s.Players[player].Pieces[piece], s.DiceValue)
	}
	return nil
}

// captureAt sends every opponent piece on cell home unless the cell is safe.
func captureAt(s *GameState, mover, cell int) []Capture {
	if IsSafeCell(cell) {
		return nil
	}
	var captures []Capture
	for i := range s.Players {
		if i == mover {
			continue
		}
		opp := &s.Players[i]
		for j, pos := range opp.Pieces {
			if pos == cell {
				opp.Pieces[j] = HomePosition
				captures = append(captures, Capture{Player: i, Piece: j, Cell: cell})
			}
		}
	}
	return captures
}

// ResolveNoMoves closes out a live roll that player cannot use. A six keeps
// the turn; anything else passes it on.
func ResolveNoMoves(s *GameState, player int) (*GameState, error) {
	if s.GameStatus != StatusPlaying {
		return nil, fmt.Errorf("%w: game is %s", ErrInvalidMove, s.GameStatus)
	}
	if player != s.CurrentPlayer {
		return nil, fmt.Errorf("%w: player %d, current %d", ErrNotYourTurn, player, s.CurrentPlayer)
	}
	if s.DiceValue == 0 {
		return nil, fmt.Errorf("%w: no live roll", ErrInvalidMove)
	}
	if HasValidMoves(s, player) {
		return nil, fmt.Errorf("%w: roll %d has legal moves", ErrInvalidMove, s.DiceValue)
	}

	next := s.Clone()
	endTurn(next, next.DiceValue)
	return next, nil
}

// endTurn is the single turn-advance rule shared by moves and skipped rolls.
func endTurn(s *GameState, dice int) {
	if dice == EntryRoll {
		s.CanRollAgain = true
	} else {
		s.CurrentPlayer = s.NextPlayer(s.CurrentPlayer)
		s.CanRollAgain = false
	}
	s.MoveCompleted = true
	s.DiceValue = 0
}
