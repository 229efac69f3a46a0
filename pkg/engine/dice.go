package engine

import (
	"math/rand/v2"
	"sync"
)

// Dice produces die faces in [1, 6].
type Dice interface {
	Roll() int
}

// RandomDice is a uniformly random die safe for concurrent use.
type RandomDice struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomDice returns a die seeded from the runtime's random source.
func NewRandomDice() *RandomDice {
	return &RandomDice{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeededDice returns a reproducible die.
func NewSeededDice(seed uint64) *RandomDice {
	return &RandomDice{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Roll returns a face in [1, 6].
func (d *RandomDice) Roll() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.IntN(6) + 1
}

// SequenceDice replays a fixed sequence of faces, cycling when exhausted.
// It is meant for tests and scripted scenarios.
type SequenceDice struct {
	mu    sync.Mutex
	faces []int
	next  int
}

// NewSequenceDice returns a die that yields faces in order.
func NewSequenceDice(faces ...int) *SequenceDice {
	if len(faces) == 0 {
		faces = []int{1}
	}
	return &SequenceDice{faces: append([]int(nil), faces...)}
}

// Roll returns the next face in the sequence.
func (d *SequenceDice) Roll() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	face := d.faces[d.next%len(d.faces)]
	d.next++
	return face
}

var defaultDice Dice = NewRandomDice()

// RollDice rolls d, or a shared random die when d is nil. It does not
// touch any game state; use ApplyRoll to record the result.
func RollDice(d Dice) int {
	if d == nil {
		d = defaultDice
	}
	return d.Roll()
}
