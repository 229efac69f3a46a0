// Package agent implements the computer opponent: it scores every legal
// move of a position with a fixed heuristic and picks one according to a
// difficulty profile.
//
// The agent is synchronous and never blocks. Callers that want a visible
// "thinking" pause should sleep for ThinkingTime themselves.
package agent

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/ludoengine/pkg/engine"
)

// Difficulty selects how often the agent deviates from its best move.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// ErrUnknownDifficulty is returned by ParseDifficulty.
var ErrUnknownDifficulty = errors.New("unknown difficulty")

// ParseDifficulty parses a difficulty name. The empty string means Medium.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return Medium, nil
	case Easy, Medium, Hard:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDifficulty, s)
	}
}

// Agent chooses moves for one seat. It is safe for concurrent use.
type Agent struct {
	difficulty Difficulty

	mu  sync.Mutex
	rng *rand.Rand
}

// New returns an agent playing at difficulty d. A nil src uses a randomly
// seeded PCG; pass a fixed source for reproducible play.
func New(d Difficulty, src rand.Source) *Agent {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	if d == "" {
		d = Medium
	}
	return &Agent{difficulty: d, rng: rand.New(src)}
}

// Difficulty returns the agent's profile.
func (a *Agent) Difficulty() Difficulty { return a.difficulty }

// Decide returns the piece to move for player using the live dice value.
// ok is false when the roll has no legal move; the caller must then run
// engine.ResolveNoMoves.
func (a *Agent) Decide(s *engine.GameState, player int) (piece int, ok bool) {
	moves := engine.ValidMoves(s, player)
	switch len(moves) {
	case 0:
		return -1, false
	case 1:
		return moves[0], true
	}

	ranked := Analyze(s, player)
	return a.choose(ranked).Piece, true
}

// choose applies the difficulty profile to a priority-sorted list.
func (a *Agent) choose(ranked []ScoredMove) ScoredMove {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.difficulty {
	case Easy:
		if a.rng.Float64() < 0.3 {
			return ranked[0]
		}
		return ranked[a.rng.IntN(len(ranked))]

	case Hard:
		top := ranked[0].Priority
		n := 1
		for n < len(ranked) && ranked[n].Priority >= top-hardWindow {
			n++
		}
		return ranked[a.rng.IntN(n)]

	default:
		if a.rng.Float64() < 0.8 {
			return ranked[0]
		}
		return ranked[a.rng.IntN(min(3, len(ranked)))]
	}
}

// hardWindow is how far below the top priority a hard agent may stray.
const hardWindow = 5

// ThinkingTime returns a jittered pause length for the agent's profile.
func (a *Agent) ThinkingTime() time.Duration {
	base, spread := 1500*time.Millisecond, 1500*time.Millisecond
	switch a.difficulty {
	case Easy:
		base, spread = time.Second, time.Second
	case Hard:
		base, spread = 2*time.Second, 2*time.Second
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return base + time.Duration(a.rng.Int64N(int64(spread)))
}
