// ludo - offline Ludo position tool
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/yourusername/ludoengine/pkg/agent"
	"github.com/yourusername/ludoengine/pkg/engine"
)

// errUsage marks errors that should be followed by usage help.
var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	command := args[0]
	args = args[1:]

	var err error
	switch command {
	case "new":
		err = cmdNew(args, stdout)
	case "show":
		err = cmdShow(args, stdout)
	case "moves":
		err = cmdMoves(args, stdout)
	case "move":
		err = cmdMove(args, stdout)
	case "decide":
		err = cmdDecide(args, stdout)
	case "review":
		err = cmdReview(args, stdout)
	case "simulate":
		err = cmdSimulate(args, stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage(stderr)
		return 1
	}

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "Use \"ludo %s -h\" for help.\n", command)
		}
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `ludo - Ludo rules and opponent tool

Usage: ludo <command> [options]

Commands:
  new       Create a starting position
  show      Print a position
  moves     Rank the legal moves for a roll
  move      Apply a move and print the new position
  decide    Let a computer player pick a move
  review    Grade a move against the alternatives
  simulate  Play computer players against each other

Use "ludo <command> -h" for command-specific help.

State ID Format:
  Positions are exchanged as compact state IDs, as printed by "ludo new"
  and returned by the server's /api/rooms/{id}/state?format=id.`)
}

// stateFlags are shared by commands that take a position.
type stateFlags struct {
	state *string
	dice  *int
	names *string
}

func addStateFlags(fs *flag.FlagSet) stateFlags {
	return stateFlags{
		state: fs.String("state", "", "State ID"),
		dice:  fs.Int("dice", 0, "Roll to apply when the position has no live roll"),
		names: fs.String("names", "", "Comma-separated player names"),
	}
}

// load decodes the position and applies -dice when no roll is live.
func (f stateFlags) load() (*engine.GameState, error) {
	if *f.state == "" {
		return nil, fmt.Errorf("%w: -state is required", errUsage)
	}
	s, err := engine.DecodeStateID(*f.state, splitList(*f.names))
	if err != nil {
		return nil, err
	}
	if *f.dice != 0 && !s.RollPending() {
		if s, err = engine.ApplyRoll(s, s.CurrentPlayer, *f.dice); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func cmdNew(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("new", flag.ContinueOnError)
	players := fs.String("players", "Player 1,Player 2,Player 3,Player 4", "Comma-separated player names (2-4)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := engine.NewGame(splitList(*players))
	if err != nil {
		return err
	}
	id, err := engine.EncodeStateID(s)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, id)
	return nil
}

func cmdShow(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	sf := addStateFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := sf.load()
	if err != nil {
		return err
	}
	printState(stdout, s)
	return nil
}

func printState(w io.Writer, s *engine.GameState) {
	fmt.Fprintf(w, "Status: %s", s.GameStatus)
	if s.Winner != "" {
		fmt.Fprintf(w, " (winner: %s)", s.Winner)
	}
	fmt.Fprintln(w)
	for i := range s.Players {
		p := &s.Players[i]
		marker := " "
		if i == s.CurrentPlayer && !s.IsTerminal() {
			marker = ">"
		}
		positions := make([]string, len(p.Pieces))
		for j, pos := range p.Pieces {
			positions[j] = formatPosition(pos)
		}
		fmt.Fprintf(w, "%s %-7s %-12s %s\n", marker, p.Color, p.Name, strings.Join(positions, ", "))
	}
	switch {
	case s.RollPending():
		fmt.Fprintf(w, "Roll: %d\n", s.DiceValue)
	case s.CanRollAgain:
		fmt.Fprintln(w, "Roll: extra roll due")
	}
}

func formatPosition(pos int) string {
	switch {
	case pos == engine.HomePosition:
		return "home"
	case pos == engine.FinishPosition:
		return "finished"
	case engine.OnHomeStretch(pos):
		return fmt.Sprintf("stretch %d", pos-engine.HomeStretchStart+1)
	case engine.IsSafeCell(pos):
		return fmt.Sprintf("cell %d*", pos)
	default:
		return fmt.Sprintf("cell %d", pos)
	}
}

func cmdMoves(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("moves", flag.ContinueOnError)
	sf := addStateFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := sf.load()
	if err != nil {
		return err
	}
	if !s.RollPending() {
		return fmt.Errorf("%w: position has no live roll, pass -dice", errUsage)
	}

	ranked := agent.Analyze(s, s.CurrentPlayer)
	if len(ranked) == 0 {
		fmt.Fprintf(stdout, "No legal moves for %s with %d\n", s.Current().Color, s.DiceValue)
		return nil
	}

	fmt.Fprintf(stdout, "Moves for %s with %d:\n", s.Current().Color, s.DiceValue)
	for i, m := range ranked {
		fmt.Fprintf(stdout, "  %d. piece %d  %-10s -> %-10s  %4d  %s\n",
			i+1, m.Piece, formatPosition(m.From), formatPosition(m.To), m.Priority, strings.Join(m.Reasons, ", "))
	}
	return nil
}

func cmdMove(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("move", flag.ContinueOnError)
	sf := addStateFlags(fs)
	piece := fs.Int("piece", -1, "Piece to move (0-3)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *piece < 0 {
		return fmt.Errorf("%w: -piece is required", errUsage)
	}

	s, err := sf.load()
	if err != nil {
		return err
	}
	res, err := engine.Move(s, s.CurrentPlayer, *piece)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%s piece %d: %s -> %s\n",
		s.Current().Color, res.Piece, formatPosition(res.From), formatPosition(res.To))
	for _, c := range res.Captures {
		fmt.Fprintf(stdout, "  captured %s piece %d\n", res.State.Players[c.Player].Color, c.Piece)
	}
	switch {
	case res.Won:
		fmt.Fprintf(stdout, "  %s wins\n", res.State.Winner)
	case res.ExtraRoll:
		fmt.Fprintln(stdout, "  roll again")
	}

	id, err := engine.EncodeStateID(res.State)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, id)
	return nil
}

func cmdDecide(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("decide", flag.ContinueOnError)
	sf := addStateFlags(fs)
	difficulty := fs.String("difficulty", "medium", "easy, medium or hard")
	seed := fs.Uint64("seed", 0, "Random seed (0 = random)")
	think := fs.Bool("think", false, "Pause for the player's thinking time")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d, err := agent.ParseDifficulty(*difficulty)
	if err != nil {
		return err
	}
	s, err := sf.load()
	if err != nil {
		return err
	}
	if !s.RollPending() {
		return fmt.Errorf("%w: position has no live roll, pass -dice", errUsage)
	}

	if *seed == 0 {
		*seed = rand.Uint64()
	}
	a := agent.New(d, rand.NewPCG(*seed, *seed))
	if *think {
		time.Sleep(a.ThinkingTime())
	}

	piece, ok := a.Decide(s, s.CurrentPlayer)
	if !ok {
		fmt.Fprintln(stdout, "No legal moves")
		return nil
	}
	fmt.Fprintf(stdout, "%s (%s) moves piece %d\n", s.Current().Color, d, piece)
	return nil
}

func cmdReview(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("review", flag.ContinueOnError)
	sf := addStateFlags(fs)
	piece := fs.Int("piece", -1, "Piece that was moved (0-3)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *piece < 0 {
		return fmt.Errorf("%w: -piece is required", errUsage)
	}

	s, err := sf.load()
	if err != nil {
		return err
	}
	r, err := agent.Review(s, s.CurrentPlayer, *piece)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Played: piece %d (rank %d of %d, priority %d)\n", r.Played.Piece, r.Rank, len(r.Moves), r.Played.Priority)
	fmt.Fprintf(stdout, "Best:   piece %d (priority %d: %s)\n", r.Best.Piece, r.Best.Priority, strings.Join(r.Best.Reasons, ", "))
	fmt.Fprintf(stdout, "Rating: %s (loss %d)\n", r.Skill, r.Loss)
	return nil
}

func cmdSimulate(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	seats := fs.String("seats", "medium,medium,medium,medium", "Comma-separated difficulty per seat")
	trials := fs.Int("trials", 100, "Number of games to play")
	workers := fs.Int("workers", 0, "Number of worker goroutines (0 = auto)")
	seed := fs.Uint64("seed", 0, "Random seed (0 = random)")
	maxTurns := fs.Int("max-turns", 2000, "Rolls before a game is abandoned")
	progress := fs.Bool("progress", false, "Report progress on stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := agent.SimulationOptions{
		Trials:   *trials,
		Workers:  *workers,
		Seed:     *seed,
		MaxTurns: *maxTurns,
	}
	for _, name := range splitList(*seats) {
		d, err := agent.ParseDifficulty(name)
		if err != nil {
			return err
		}
		opts.Seats = append(opts.Seats, d)
	}

	var onProgress agent.ProgressFunc
	if *progress {
		onProgress = func(p agent.SimulationProgress) {
			fmt.Fprintf(stderr, "\r%d/%d games (%.0f%%)", p.Completed, p.Total, p.Percent)
		}
	}

	start := time.Now()
	res, err := agent.Simulate(context.Background(), opts, onProgress)
	elapsed := time.Since(start)
	if *progress {
		fmt.Fprintln(stderr)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Simulation (%d games, %.1fs):\n", res.Trials, elapsed.Seconds())
	for i, d := range res.Seats {
		fmt.Fprintf(stdout, "  %-7s %-6s  %5d wins  %5.1f%%\n", engine.Color(i), d, res.Wins[i], res.WinRates[i]*100)
	}
	fmt.Fprintf(stdout, "  Turns:    %.1f ± %.1f\n", res.MeanTurns, res.StdDevTurns)
	fmt.Fprintf(stdout, "  Captures: %.1f ± %.1f\n", res.MeanCaptures, res.StdDevCaptures)
	if res.Unfinished > 0 {
		fmt.Fprintf(stdout, "  Unfinished: %d\n", res.Unfinished)
	}
	return nil
}
