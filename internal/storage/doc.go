// Package storage defines persistence interfaces for the order journal.
//
// It covers event journaling and replay snapshots. Implementations (e.g.,
// SQLite) live in subpackages.
//
// Common error types:
//   - ErrNotFound: requested record is missing
//   - ErrConcurrencyConflict: append lost the optimistic concurrency race
//   - ErrUnavailable: infrastructure-level storage failure
package storage
