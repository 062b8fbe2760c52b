// Package migrations embeds SQL migration scripts used by SQLite backends.
//
// Why this package exists:
// - It centralizes schema history for the event journal and snapshot stores.
// - It allows upgrade and replay-safe evolution without manual operator SQL.
// - It supports both development bootstrap and production migration workflows.
package migrations
