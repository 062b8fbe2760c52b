// Package sqlite provides the SQLite-backed implementation of the order
// journal and snapshot stores.
//
// The journal table keys events by (order_id, seq); the primary key doubles
// as the optimistic-concurrency backstop for concurrent appends. Timestamps
// are stored as UTC milliseconds.
package sqlite
