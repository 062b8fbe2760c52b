package storage

import (
	"context"
	"time"

	"github.com/louisbranch/ordercore/internal/domain/event"
	apperrors "github.com/louisbranch/ordercore/internal/platform/errors"
)

// ErrNotFound indicates a requested persistence record is missing.
// Callers use this to differentiate between legitimate "no such order" states
// and transport or data corruption failures.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ErrConcurrencyConflict indicates an append lost the race for its expected
// sequence number. The journal was advanced by another writer; callers must
// re-read and re-decide, never blindly retry the same batch.
var ErrConcurrencyConflict = apperrors.New(apperrors.CodeConcurrencyConflict,
	"event stream advanced past the expected sequence")

// ErrUnavailable indicates an infrastructure-level storage failure. Nothing
// was committed; callers must not assume any state change occurred.
var ErrUnavailable = apperrors.New(apperrors.CodeStoreUnavailable, "event store unavailable")

// ReadStreamOptions filters and bounds a stream read. The zero value reads
// the whole stream ascending.
type ReadStreamOptions struct {
	// AfterSeq skips events at or below this sequence.
	AfterSeq uint64
	// UntilSeq stops after this sequence when non-zero.
	UntilSeq uint64
	// Limit caps the number of events returned when positive.
	Limit int
	// Reverse returns events in descending sequence order.
	Reverse bool
}

// EventStore owns the append-only order journal; this is the source of truth
// for state reconstruction.
type EventStore interface {
	// AppendEvents atomically appends a batch of events to one order's
	// stream. expectedNextSeq is the sequence the first event must receive;
	// when the stream has advanced past it the whole batch is refused with
	// ErrConcurrencyConflict and nothing is written. Returned events carry
	// their assigned ids and sequences.
	AppendEvents(ctx context.Context, orderID string, expectedNextSeq uint64, events []event.Event) ([]event.Event, error)
	// ReadStream returns one order's events ordered by sequence.
	ReadStream(ctx context.Context, orderID string, opts ReadStreamOptions) ([]event.Event, error)
	// ReadByType returns events of one type across orders within a time
	// range, ordered by timestamp ascending.
	ReadByType(ctx context.Context, eventType event.Type, from, to time.Time, limit int) ([]event.Event, error)
	// LatestSeq returns the latest sequence number for an order.
	// Returns 0 if no events exist.
	LatestSeq(ctx context.Context, orderID string) (uint64, error)
	// VerifyStream walks an order's journal asserting contiguous sequences
	// and non-decreasing timestamps.
	VerifyStream(ctx context.Context, orderID string) error
}

// Snapshot is a materialized order state checkpoint derived from the event
// journal. Snapshots are accelerators for replay, not the source of
// authority.
type Snapshot struct {
	OrderID   string
	EventSeq  uint64
	StateJSON []byte
	CreatedAt time.Time
}

// SnapshotStore persists replay checkpoints used to jump event replay work.
type SnapshotStore interface {
	// PutSnapshot stores a snapshot, replacing any older one for the order.
	PutSnapshot(ctx context.Context, snap Snapshot) error
	// GetLatestSnapshot retrieves the most recent snapshot for an order.
	GetLatestSnapshot(ctx context.Context, orderID string) (Snapshot, error)
}

// Store is a composite interface for all persistence concerns used across
// event sourcing, projection, and queries.
type Store interface {
	EventStore
	SnapshotStore
	Close() error
}
