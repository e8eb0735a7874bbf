// Package archive ships game events to external stores.
//
// Moves are buffered by a Pusher and flushed periodically to a Redis list
// per board. Game starts, moves and results can also be written to MongoDB
// collections. Both recorders implement service.Recorder and can be
// combined with Multi.
package archive
