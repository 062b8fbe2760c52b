// Package event defines the canonical event envelope and event-type registry
// used by the order write path.
//
// Events are immutable business facts emitted by accepted decisions. The
// registry enforces the closed type catalog and payload validity before
// persistence assigns identity and sequence.
//
// A stable event contract is the foundation for replay, projection
// correctness, and cross-service consumers that depend on the same semantic
// names.
package event
