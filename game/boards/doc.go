// Package boards keeps every Kalah board of the process, keyed by id.
//
// Manager hands out service.Game values, each carrying its own lock, and
// lists boards per player in creation order. With a Persistence attached,
// boards are written after every change and restored on startup.
//
// FilePersistence stores one JSON snapshot per board:
//
//	boards/
//	  0b0c9f0e-....json
//
// A snapshot holds the player names, the pit counts and the turn state; the
// players themselves are resolved again through the security registry when
// the board is loaded.
package boards
