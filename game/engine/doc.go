// Package engine provides the core rules of Kalah, a two-player Mancala game.
//
// The engine package implements:
//   - Regular pits and store pits connected by a per-player successor relation
//   - Construction of the circular pit graph for both players
//   - The turn state machine: sowing, extra turns, captures and the end-of-game sweep
//   - Read-only views of the board for move choosers and serving layers
//
// Core Types:
//
// Board owns two players and the pit graph. Every pit answers NextPit(player)
// so the same physical pit leads to a different successor depending on who is
// sowing; this is how a player's lap skips the opponent's store. RegularPit
// adds pickup and the mirrored opposite pit, StorePit adds bulk accumulation.
//
// Usage:
//
//	board, err := engine.NewBoard(alice, bob, alice)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := board.InitDefault(); err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := board.Turn(2)
//	if errors.Is(err, engine.ErrIllegalMove) {
//		// pick another pit
//	}
//
// Game Rules:
//
// A player picks one of their non-empty regular pits and sows its stones one
// by one counter-clockwise, through their own store and the opponent's pits
// but never the opponent's store. Landing in the own store grants another
// turn. Landing in an own empty pit captures that stone together with the
// stones of the opposite pit. When either side runs out of stones the other
// side's stones go to its owner's store and the larger store wins.
//
// The engine performs no I/O and no locking. Callers must serialize Turn
// calls on a single board.
package engine
