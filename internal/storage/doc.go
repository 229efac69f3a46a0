// Package storage defines the persistence interfaces for rooms and games.
//
// The session layer depends only on Repository; backends live in
// subpackages (memory, bbolt, sqlite, redis). Game states are stored as the
// JSON form of engine.GameState so every field, including the turn flags,
// survives a round trip.
//
// # Error Types
//
//   - ErrNotFound: a requested room or game state is missing.
package storage
