// Package player provides the participants of a Kalah game.
//
// HumanPlayer is a network player identified by name and a bcrypt password
// hash; it moves only when a client asks it to. RandomPlayer is a
// ComputerPlayer that picks uniformly among the non-empty pits of the active
// side. Both satisfy engine.Player and are compared by identity.
package player
