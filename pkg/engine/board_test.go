package engine

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestSafeCells(t *testing.T) {
	want := []int{8, 13, 21, 26, 34, 39, 47}
	if got := SafeCells(); !reflect.DeepEqual(got, want) {
		t.Errorf("SafeCells() = %v, want %v", got, want)
	}
	if IsSafeCell(10) || IsSafeCell(-1) || IsSafeCell(54) {
		t.Error("IsSafeCell reported an unsafe or off-track cell as safe")
	}
}

func TestGeometryTables(t *testing.T) {
	tests := []struct {
		color Color
		start int
		entry int
	}{
		{Red, 0, 50},
		{Blue, 13, 11},
		{Green, 26, 24},
		{Yellow, 39, 37},
	}
	for _, tc := range tests {
		if got := StartCell(tc.color); got != tc.start {
			t.Errorf("StartCell(%v) = %d, want %d", tc.color, got, tc.start)
		}
		if got := HomeEntry(tc.color); got != tc.entry {
			t.Errorf("HomeEntry(%v) = %d, want %d", tc.color, got, tc.entry)
		}
	}
}

// TestProgressIsMonotonic walks every color along its full path with single
// steps and checks that progress never decreases.
func TestProgressIsMonotonic(t *testing.T) {
	for c := Red; c <= Yellow; c++ {
		pos, _ := Destination(c, HomePosition, 6)
		last := Progress(c, pos)
		if last != 1 {
			t.Errorf("%v: progress on start cell = %d, want 1", c, last)
		}
		steps := 0
		for pos != FinishPosition {
			next, ok := Destination(c, pos, 1)
			if !ok {
				t.Fatalf("%v: cannot step from %d", c, pos)
			}
			p := Progress(c, next)
			if p <= last {
				t.Fatalf("%v: progress %d -> %d moving %d -> %d", c, last, p, pos, next)
			}
			last, pos = p, next
			steps++
		}
		if last != FinishPosition {
			t.Errorf("%v: final progress = %d, want %d", c, last, FinishPosition)
		}
		if steps != 55 {
			t.Errorf("%v: %d single steps from start to finish, want 55", c, steps)
		}
	}
}

func TestColorJSON(t *testing.T) {
	data, err := json.Marshal(Player{Name: "A", Color: Green})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if !strings.Contains(string(data), `"color":"green"`) {
		t.Errorf("JSON = %s, want color as string", data)
	}

	var p Player
	if err := json.Unmarshal([]byte(`{"color":"yellow"}`), &p); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if p.Color != Yellow {
		t.Errorf("Color = %v, want yellow", p.Color)
	}
	if err := json.Unmarshal([]byte(`{"color":"purple"}`), &p); err == nil {
		t.Error("expected error for unknown color")
	}
}

func TestGameStateJSONKeepsTurnFlags(t *testing.T) {
	gs, _ := NewGame([]string{"A", "B"})
	data, err := json.Marshal(gs)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	for _, key := range []string{`"diceValue":0`, `"moveCompleted":true`, `"canRollAgain":false`, `"gameStatus":"playing"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("JSON %s missing %s", data, key)
		}
	}

	var back GameState
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if !reflect.DeepEqual(&back, gs) {
		t.Errorf("round trip = %+v, want %+v", back, *gs)
	}
}

func TestValidate(t *testing.T) {
	gs, _ := NewGame([]string{"A", "B"})
	if err := gs.Validate(); err != nil {
		t.Fatalf("Validate(new game) error: %v", err)
	}

	broken := []func(s *GameState){
		func(s *GameState) { s.CurrentPlayer = 2 },
		func(s *GameState) { s.DiceValue = 9 },
		func(s *GameState) { s.Players[1].Pieces[0] = 58 },
		func(s *GameState) { s.Winner = "A" },
		func(s *GameState) { s.GameStatus = "paused" },
		func(s *GameState) { s.Players = s.Players[:1] },
		func(s *GameState) { s.DiceValue = 3 }, // live roll while MoveCompleted
		func(s *GameState) { s.MoveCompleted = false },
		func(s *GameState) { s.DiceValue, s.MoveCompleted, s.CanRollAgain = 6, false, true },
	}
	for i, mutate := range broken {
		s := gs.Clone()
		mutate(s)
		if err := s.Validate(); !errors.Is(err, ErrInvalidState) {
			t.Errorf("case %d: Validate error = %v, want ErrInvalidState", i, err)
		}
	}

	rolled, err := ApplyRoll(gs, 0, 6)
	if err != nil {
		t.Fatalf("ApplyRoll error: %v", err)
	}
	if err := rolled.Validate(); err != nil {
		t.Errorf("Validate(live roll) error: %v", err)
	}
}

// TestValidateRejectsStuckState checks that a state no command can advance
// never passes the boundary check.
func TestValidateRejectsStuckState(t *testing.T) {
	gs, _ := NewGame([]string{"A", "B"})
	gs.MoveCompleted = false

	if CanPlayerRoll(gs, 0) {
		t.Fatal("roll accepted with a pending move")
	}
	if _, err := MovePiece(gs, 0, 0); err == nil {
		t.Fatal("move accepted without a live roll")
	}
	if err := gs.Validate(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Validate error = %v, want ErrInvalidState", err)
	}

	id, err := EncodeStateID(gs)
	if err != nil {
		t.Fatalf("EncodeStateID error: %v", err)
	}
	if _, err := DecodeStateID(id, nil); !errors.Is(err, ErrInvalidState) {
		t.Errorf("DecodeStateID error = %v, want ErrInvalidState", err)
	}
}
