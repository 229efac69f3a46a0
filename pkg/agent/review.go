package agent

import (
	"fmt"

	"github.com/yourusername/ludoengine/pkg/engine"
)

// Skill rates a played move against the best available one.
type Skill int

const (
	SkillBest     Skill = iota // Matches the top priority
	SkillGood                  // Loses <= 5 priority
	SkillDoubtful              // Loses <= 20 priority
	SkillBad                   // Loses <= 50 priority
	SkillBlunder               // Loses more than 50 priority
)

// String returns the display name of the skill.
func (s Skill) String() string {
	return [...]string{"best", "good", "doubtful", "bad", "blunder"}[s]
}

// MarshalText encodes the skill by name.
func (s Skill) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// SkillThresholds are the priority losses at which a move drops to the next
// rating.
var SkillThresholds = [4]int{
	0,  // best
	5,  // good
	20, // doubtful
	50, // bad
}

// ClassifySkill returns the rating for a priority loss.
func ClassifySkill(loss int) Skill {
	for i, limit := range SkillThresholds {
		if loss <= limit {
			return Skill(i)
		}
	}
	return SkillBlunder
}

// MoveReview compares a played move with the alternatives.
type MoveReview struct {
	Played ScoredMove   `json:"played"`
	Best   ScoredMove   `json:"best"`
	Rank   int          `json:"rank"` // 1-based among legal moves
	Loss   int          `json:"loss"`
	Skill  Skill        `json:"skill"`
	Moves  []ScoredMove `json:"moves"`
}

// Review rates moving piece with the live dice value. It fails with
// engine.ErrInvalidMove when that move is not legal.
func Review(s *engine.GameState, player, piece int) (MoveReview, error) {
	ranked := Analyze(s, player)
	for i, m := range ranked {
		if m.Piece != piece {
			continue
		}
		loss := ranked[0].Priority - m.Priority
		return MoveReview{
			Played: m,
			Best:   ranked[0],
			Rank:   i + 1,
			Loss:   loss,
			Skill:  ClassifySkill(loss),
			Moves:  ranked,
		}, nil
	}
	return MoveReview{}, fmt.Errorf("%w: piece %d cannot use roll %d", engine.ErrInvalidMove, piece, s.DiceValue)
}

// Hint returns the top-ranked move for player, or false when the live roll
// has no legal move.
func Hint(s *engine.GameState, player int) (ScoredMove, bool) {
	ranked := Analyze(s, player)
	if len(ranked) == 0 {
		return ScoredMove{}, false
	}
	return ranked[0], true
}
