// Package order provides the order aggregate: its status catalog, event
// payloads, pure fold, and command decider.
//
// The aggregate is reconstructed exclusively by folding its event stream in
// sequence order. State is a derived view; the journal is the source of
// truth.
//
// The package splits behavior by role:
//
// # Status (status.go)
//
// The fixed lifecycle catalog and the adjacency table that is the single
// authority on which transitions are legal. Anything not listed is denied.
//
// # Fold (fold.go)
//
// The pure event application function. No clocks, no I/O. Two replays of the
// same stream always produce the same State.
//
// # Decide (decider.go)
//
// The pure command handler. It evaluates a command against current state and
// returns either the events to append or coded rejections. It never touches
// storage.
package order
