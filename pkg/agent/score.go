package agent

import (
	"sort"

	"github.com/yourusername/ludoengine/pkg/engine"
)

// Heuristic weights. Only their relative order matters.
const (
	weightLeaveHome     = 100
	weightFinish        = 90
	weightCapture       = 80
	weightHomeStretch   = 70
	weightEnterStretch  = 60
	weightSafeCell      = 30
	weightSpread        = 10
	weightBlockPerPiece = 5

	escapePerPip = 5
	escapeCap    = 50
	exposePerPip = 3
	exposeCap    = 30
	blockCap     = 20
)

// ScoredMove is one legal move with its heuristic priority.
type ScoredMove struct {
	Piece    int      `json:"piece"`
	From     int      `json:"from"`
	To       int      `json:"to"`
	Priority int      `json:"priority"`
	Reasons  []string `json:"reasons"`
}

// Analyze scores every legal move of player for the live dice value. The
// result is sorted by descending priority; equal priorities keep piece
// order.
func Analyze(s *engine.GameState, player int) []ScoredMove {
	moves := engine.ValidMoves(s, player)
	scored := make([]ScoredMove, 0, len(moves))
	for _, piece := range moves {
		scored = append(scored, scoreMove(s, player, piece))
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Priority > scored[j].Priority
	})
	return scored
}

func scoreMove(s *engine.GameState, player, piece int) ScoredMove {
	me := &s.Players[player]
	dice := s.DiceValue
	from := me.Pieces[piece]
	to, _ := engine.Destination(me.Color, from, dice)

	m := ScoredMove{Piece: piece, From: from, To: to}
	add := func(points int, reason string) {
		if points == 0 {
			return
		}
		m.Priority += points
		m.Reasons = append(m.Reasons, reason)
	}

	switch {
	case from == engine.HomePosition:
		add(weightLeaveHome, "leave home")
		if me.PiecesAt(engine.HomePosition) >= 2 {
			add(weightSpread, "spread pieces")
		}
	case to == engine.FinishPosition:
		add(weightFinish, "finish piece")
	case engine.OnHomeStretch(from):
		add(weightHomeStretch, "advance on home stretch")
	case engine.OnHomeStretch(to):
		add(weightEnterStretch, "enter home stretch")
	}

	if engine.OnTrack(from) && !engine.IsSafeCell(from) {
		add(min(threat(s, player, from, escapePerPip), escapeCap), "escape danger")
	}

	if !engine.OnTrack(to) {
		return m
	}

	if engine.IsSafeCell(to) {
		add(weightSafeCell, "safe cell")
	} else {
		for _, opp := range s.Opponents(player) {
			o := &s.Players[opp]
			for _, pos := range o.Pieces {
				if pos == to {
					add(weightCapture+engine.Progress(o.Color, pos)/8, "capture "+o.Color.String())
				}
			}
		}
		add(-min(threat(s, player, to, exposePerPip), exposeCap), "exposed to capture")
	}

	add(min(weightBlockPerPiece*reachers(s, player, to), blockCap), "block opponent")
	return m
}

// threat sums perPip*(7-d) over every opponent piece that reaches cell
// with a roll of d.
func threat(s *engine.GameState, player, cell, perPip int) int {
	total := 0
	forEachReach(s, player, cell, func(d int) {
		total += perPip * (7 - d)
	})
	return total
}

// reachers counts opponent pieces that reach cell with a single roll.
func reachers(s *engine.GameState, player, cell int) int {
	n := 0
	forEachReach(s, player, cell, func(int) { n++ })
	return n
}

// forEachReach calls fn with the roll each opponent track piece needs to
// land on cell. Pieces still at home do not count.
func forEachReach(s *engine.GameState, player, cell int, fn func(d int)) {
	for _, opp := range s.Opponents(player) {
		o := &s.Players[opp]
		for _, pos := range o.Pieces {
			if !engine.OnTrack(pos) {
				continue
			}
			for d := 1; d <= 6; d++ {
				if dest, ok := engine.Destination(o.Color, pos, d); ok && dest == cell {
					fn(d)
				}
			}
		}
	}
}
