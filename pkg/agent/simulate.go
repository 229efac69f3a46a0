package agent

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/ludoengine/pkg/engine"
)

// ErrInvalidOptions is returned by Simulate for unusable options.
var ErrInvalidOptions = errors.New("invalid simulation options")

// SimulationOptions controls a self-play run.
type SimulationOptions struct {
	Seats    []Difficulty // One profile per seat, 2-4 seats
	Trials   int          // Number of games (default 100)
	Workers  int          // Parallel workers (0 = GOMAXPROCS)
	Seed     uint64       // RNG seed (0 = random)
	MaxTurns int          // Rolls per game before it is abandoned (default 2000)
}

// SimulationProgress is reported after each batch of games.
type SimulationProgress struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
}

// ProgressFunc receives progress updates. Calls are serialized.
type ProgressFunc func(SimulationProgress)

// SimulationResult summarizes a self-play run.
type SimulationResult struct {
	Trials         int          `json:"trials"`
	Seats          []Difficulty `json:"seats"`
	Wins           []int        `json:"wins"`
	WinRates       []float64    `json:"winRates"`
	Unfinished     int          `json:"unfinished"`
	MeanTurns      float64      `json:"meanTurns"`
	StdDevTurns    float64      `json:"stdDevTurns"`
	MeanCaptures   float64      `json:"meanCaptures"`
	StdDevCaptures float64      `json:"stdDevCaptures"`
}

// gameRecord is the outcome of one simulated game.
type gameRecord struct {
	winner   int // -1 when abandoned
	turns    int
	captures int
}

// DefaultSimulationOptions returns a four-seat medium-vs-medium setup.
func DefaultSimulationOptions() SimulationOptions {
	return SimulationOptions{
		Seats:    []Difficulty{Medium, Medium, Medium, Medium},
		Trials:   100,
		MaxTurns: 2000,
	}
}

// Simulate plays opts.Trials complete games between agents and aggregates
// the results. Game i is seeded from opts.Seed and i alone, so a fixed seed
// gives the same result for any worker count.
func Simulate(ctx context.Context, opts SimulationOptions, progress ProgressFunc) (*SimulationResult, error) {
	if len(opts.Seats) < engine.MinPlayers || len(opts.Seats) > engine.MaxPlayers {
		return nil, fmt.Errorf("%w: %d seats", ErrInvalidOptions, len(opts.Seats))
	}
	for _, d := range opts.Seats {
		if _, err := ParseDifficulty(string(d)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
		}
	}
	if opts.Trials <= 0 {
		opts.Trials = 100
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Seed == 0 {
		opts.Seed = rand.Uint64()
	}
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = 2000
	}

	// Report progress roughly 20 times per run
	batch := max(opts.Trials/20, 1)

	records := make([]gameRecord, opts.Trials)
	var (
		mu        sync.Mutex
		completed int
	)
	report := func(n int) {
		mu.Lock()
		defer mu.Unlock()
		completed += n
		if progress != nil {
			progress(SimulationProgress{
				Completed: completed,
				Total:     opts.Trials,
				Percent:   100 * float64(completed) / float64(opts.Trials),
			})
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for start := 0; start < opts.Trials; start += batch {
		end := min(start+batch, opts.Trials)
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				records[i] = playGame(opts.Seats, opts.Seed+uint64(i), opts.MaxTurns)
			}
			report(end - start)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return aggregate(opts, records), nil
}

func aggregate(opts SimulationOptions, records []gameRecord) *SimulationResult {
	res := &SimulationResult{
		Trials:   len(records),
		Seats:    append([]Difficulty(nil), opts.Seats...),
		Wins:     make([]int, len(opts.Seats)),
		WinRates: make([]float64, len(opts.Seats)),
	}

	turns := make([]float64, 0, len(records))
	captures := make([]float64, 0, len(records))
	for _, r := range records {
		if r.winner < 0 {
			res.Unfinished++
			continue
		}
		res.Wins[r.winner]++
		turns = append(turns, float64(r.turns))
		captures = append(captures, float64(r.captures))
	}
	for i, w := range res.Wins {
		res.WinRates[i] = float64(w) / float64(res.Trials)
	}

	if len(turns) > 0 {
		res.MeanTurns, res.StdDevTurns = stat.MeanStdDev(turns, nil)
		res.MeanCaptures, res.StdDevCaptures = stat.MeanStdDev(captures, nil)
	}
	// A single sample has undefined deviation
	if math.IsNaN(res.StdDevTurns) {
		res.StdDevTurns = 0
	}
	if math.IsNaN(res.StdDevCaptures) {
		res.StdDevCaptures = 0
	}
	return res
}

// playGame runs one game to completion or until maxTurns rolls.
func playGame(seats []Difficulty, seed uint64, maxTurns int) gameRecord {
	names := make([]string, len(seats))
	agents := make([]*Agent, len(seats))
	for i, d := range seats {
		names[i] = fmt.Sprintf("seat%d", i)
		agents[i] = New(d, rand.NewPCG(seed, uint64(i)+1))
	}
	dice := engine.NewSeededDice(seed)

	s, _ := engine.NewGame(names)
	rec := gameRecord{winner: -1}
	for rec.turns < maxTurns {
		player := s.CurrentPlayer
		next, err := engine.ApplyRoll(s, player, dice.Roll())
		if err != nil {
			return rec
		}
		s = next
		rec.turns++

		piece, ok := agents[player].Decide(s, player)
		if !ok {
			s, _ = engine.ResolveNoMoves(s, player)
			continue
		}
		res, err := engine.Move(s, player, piece)
		if err != nil {
			return rec
		}
		s = res.State
		rec.captures += len(res.Captures)
		if res.Won {
			rec.winner = player
			return rec
		}
	}
	return rec
}
