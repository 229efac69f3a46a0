// Package stateid implements compact, URL-safe identifiers for Ludo board
// snapshots.
//
// An ID encodes everything needed to resume play except player names:
// seat count, turn, live dice, the two turn flags, status, winner seat and
// every piece position. IDs are base64 (URL alphabet, unpadded) strings of
// a small binary record:
//
//	byte 0      format version
//	byte 1      number of seats (2-4)
//	byte 2      current seat
//	byte 3      dice value (0 = no live roll)
//	byte 4      flags: bit0 moveCompleted, bit1 canRollAgain, bits2-3 status
//	byte 5      winner seat + 1 (0 = none)
//	byte 6..    four bytes per seat, piece position + 1
package stateid

import (
	"encoding/base64"
	"errors"
	"fmt"
)

const (
	// Version is the current record format.
	Version = 1

	headerLen   = 6
	piecesPer   = 4
	minSeats    = 2
	maxSeats    = 4
	maxPosition = 57
)

// Status codes stored in the flags byte.
const (
	StatusWaiting  = 0
	StatusPlaying  = 1
	StatusFinished = 2
)

const (
	flagMoveCompleted = 1 << 0
	flagCanRollAgain  = 1 << 1
	statusShift       = 2
	statusMask        = 0x3 << statusShift
)

// ErrMalformed is returned for IDs that do not decode to a valid snapshot.
var ErrMalformed = errors.New("malformed state id")

var encoding = base64.RawURLEncoding

// Snapshot is the board content carried by an ID.
type Snapshot struct {
	Current       int
	Dice          int
	MoveCompleted bool
	CanRollAgain  bool
	Status        int
	Winner        int // seat index, -1 for none
	Pieces        [][piecesPer]int
}

// Encode returns the ID for snap.
func Encode(snap Snapshot) (string, error) {
	n := len(snap.Pieces)
	if n < minSeats || n > maxSeats {
		return "", fmt.Errorf("%w: %d seats", ErrMalformed, n)
	}
	if snap.Winner < -1 || snap.Winner >= n {
		return "", fmt.Errorf("%w: winner seat %d", ErrMalformed, snap.Winner)
	}

	buf := make([]byte, headerLen+n*piecesPer)
	buf[0] = Version
	buf[1] = byte(n)
	buf[2] = byte(snap.Current)
	buf[3] = byte(snap.Dice)

	var flags byte
	if snap.MoveCompleted {
		flags |= flagMoveCompleted
	}
	if snap.CanRollAgain {
		flags |= flagCanRollAgain
	}
	flags |= byte(snap.Status<<statusShift) & statusMask
	buf[4] = flags
	buf[5] = byte(snap.Winner + 1)

	for seat, pieces := range snap.Pieces {
		for i, pos := range pieces {
			if pos < -1 || pos > maxPosition {
				return "", fmt.Errorf("%w: seat %d piece %d at %d", ErrMalformed, seat, i, pos)
			}
			buf[headerLen+seat*piecesPer+i] = byte(pos + 1)
		}
	}
	return encoding.EncodeToString(buf), nil
}

// Decode parses an ID produced by Encode.
func Decode(id string) (Snapshot, error) {
	buf, err := encoding.DecodeString(id)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(buf) < headerLen {
		return Snapshot{}, fmt.Errorf("%w: %d bytes", ErrMalformed, len(buf))
	}
	if buf[0] != Version {
		return Snapshot{}, fmt.Errorf("%w: version %d", ErrMalformed, buf[0])
	}

	n := int(buf[1])
	if n < minSeats || n > maxSeats || len(buf) != headerLen+n*piecesPer {
		return Snapshot{}, fmt.Errorf("%w: %d seats in %d bytes", ErrMalformed, n, len(buf))
	}

	snap := Snapshot{
		Current:       int(buf[2]),
		Dice:          int(buf[3]),
		MoveCompleted: buf[4]&flagMoveCompleted != 0,
		CanRollAgain:  buf[4]&flagCanRollAgain != 0,
		Status:        int(buf[4]&statusMask) >> statusShift,
		Winner:        int(buf[5]) - 1,
		Pieces:        make([][piecesPer]int, n),
	}
	if snap.Winner >= n {
		return Snapshot{}, fmt.Errorf("%w: winner seat %d", ErrMalformed, snap.Winner)
	}
	for seat := 0; seat < n; seat++ {
		for i := 0; i < piecesPer; i++ {
			pos := int(buf[headerLen+seat*piecesPer+i]) - 1
			if pos > maxPosition {
				return Snapshot{}, fmt.Errorf("%w: seat %d piece %d at %d", ErrMalformed, seat, i, pos)
			}
			snap.Pieces[seat][i] = pos
		}
	}
	return snap, nil
}
