// Package engine provides the rule engine for four-player Ludo.
//
// All functions in this package are pure transitions over an explicit
// GameState value: they never perform I/O, never block, and never mutate
// the state they are given. Callers own the authoritative state and must
// serialize transitions for a given game.
package engine

// Board geometry
const (
	TrackLength      = 52 // Cells on the shared circular main track (0-51)
	HomePosition     = -1 // Piece has not entered the board
	HomeStretchStart = 52 // First cell of a color's private home stretch
	HomeStretchEnd   = 56 // Last cell of the home stretch
	FinishPosition   = 57 // Piece has reached the center
	PiecesPerPlayer  = 4
	MinPlayers       = 2
	MaxPlayers       = 4
	EntryRoll        = 6 // Dice value required to leave home and to earn an extra roll
)

// Color identifies a player's pieces and their path around the board.
type Color int

const (
	Red Color = iota
	Blue
	Green
	Yellow
)

var colorNames = [...]string{"red", "blue", "green", "yellow"}

// String returns the lowercase color name.
func (c Color) String() string {
	if c < Red || c > Yellow {
		return "unknown"
	}
	return colorNames[c]
}

// Valid reports whether c is one of the four board colors.
func (c Color) Valid() bool { return c >= Red && c <= Yellow }

// MarshalText encodes the color as its name.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a color name.
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseColor converts a color name to a Color.
func ParseColor(s string) (Color, error) {
	for i, name := range colorNames {
		if name == s {
			return Color(i), nil
		}
	}
	return Red, errUnknownColor(s)
}

// startCells is where a piece lands when it leaves home.
var startCells = [4]int{0, 13, 26, 39}

// homeEntries is the last track cell before a color turns into its home stretch.
var homeEntries = [4]int{50, 11, 24, 37}

// safeCells cannot be captured on.
var safeCells = [TrackLength]bool{
	8: true, 13: true, 21: true, 26: true, 34: true, 39: true, 47: true,
}

// SafeCells returns the safe main-track cells in ascending order.
func SafeCells() []int {
	cells := make([]int, 0, 7)
	for i, safe := range safeCells {
		if safe {
			cells = append(cells, i)
		}
	}
	return cells
}

// StartCell returns the main-track cell a piece of color c enters on.
func StartCell(c Color) int { return startCells[c] }

// HomeEntry returns the home-entry threshold for color c.
func HomeEntry(c Color) int { return homeEntries[c] }

// IsSafeCell reports whether a main-track cell is safe from capture.
func IsSafeCell(cell int) bool {
	return OnTrack(cell) && safeCells[cell]
}

// OnTrack reports whether pos is a main-track cell.
func OnTrack(pos int) bool { return pos >= 0 && pos < TrackLength }

// OnHomeStretch reports whether pos is on a private home stretch.
func OnHomeStretch(pos int) bool { return pos >= HomeStretchStart && pos <= HomeStretchEnd }

// ValidPosition reports whether pos is a legal position code.
func ValidPosition(pos int) bool { return pos >= HomePosition && pos <= FinishPosition }

// trackDistance returns how many cells a piece of color c has travelled
// along the main track from its start cell.
func trackDistance(c Color, cell int) int {
	return (cell - startCells[c] + TrackLength) % TrackLength
}

// entryDistance is the track distance of the home-entry threshold. It is
// the same for every color but derived from the tables so that the two
// stay consistent.
func entryDistance(c Color) int {
	return trackDistance(c, homeEntries[c])
}

// Progress returns how far along its path a piece is: 0 at home, 1 on its
// start cell, FinishPosition when finished. Progress increases with every
// legal move and is comparable between colors.
func Progress(c Color, pos int) int {
	switch {
	case pos == HomePosition:
		return 0
	case OnTrack(pos):
		return trackDistance(c, pos) + 1
	case pos >= HomeStretchStart:
		return entryDistance(c) + 1 + pos - HomeStretchStart + 1
	}
	return 0
}

// Destination computes where a piece of color c at pos ends up after
// moving dice steps. The second result is false when the move is not
// possible: a piece at home without a six, a finished piece, or a move
// that would overshoot the finish.
func Destination(c Color, pos, dice int) (int, bool) {
	if dice < 1 || dice > 6 {
		return pos, false
	}
	switch {
	case pos == HomePosition:
		if dice != EntryRoll {
			return pos, false
		}
		return startCells[c], true
	case pos == FinishPosition:
		return pos, false
	case OnHomeStretch(pos):
		next := pos + dice
		if next > FinishPosition {
			return pos, false
		}
		return next, true
	case OnTrack(pos):
		travelled := trackDistance(c, pos) + dice
		entry := entryDistance(c)
		if travelled >= entry {
			next := HomeStretchStart + travelled - entry
			if next > FinishPosition {
				return pos, false
			}
			return next, true
		}
		return (pos + dice) % TrackLength, true
	}
	return pos, false
}
