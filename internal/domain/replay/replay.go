// Package replay rebuilds order state by walking the event journal in
// sequence order.
package replay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/ordercore/internal/domain/event"
	"github.com/louisbranch/ordercore/internal/storage"
)

const defaultPageSize = 200

var (
	// ErrEventStoreRequired indicates a missing event store.
	ErrEventStoreRequired = errors.New("event store is required")
	// ErrApplierRequired indicates a missing applier.
	ErrApplierRequired = errors.New("applier is required")
	// ErrOrderIDRequired indicates a missing order id.
	ErrOrderIDRequired = errors.New("order id is required")
)

// EventStore reads events for replay.
type EventStore interface {
	ReadStream(ctx context.Context, orderID string, opts storage.ReadStreamOptions) ([]event.Event, error)
}

// Applier applies a domain event to projection state.
type Applier interface {
	Apply(state any, evt event.Event) (any, error)
}

// ApplierFunc adapts a function to the Applier interface.
type ApplierFunc func(state any, evt event.Event) (any, error)

// Apply implements Applier.
func (f ApplierFunc) Apply(state any, evt event.Event) (any, error) {
	return f(state, evt)
}

// Options configures replay behavior.
type Options struct {
	// AfterSeq resumes replay after this sequence; the caller supplies the
	// state that already covers it (e.g., from a snapshot).
	AfterSeq uint64
	// UntilSeq stops replay after this sequence when non-zero.
	UntilSeq uint64
	// PageSize bounds each stream read.
	PageSize int
}

// Result captures replay outcomes.
type Result struct {
	State   any
	LastSeq uint64
	Applied int
}

// Replay replays one order's events in strict sequence order. A gap between
// consecutive events fails the replay rather than producing silently wrong
// state.
func Replay(ctx context.Context, store EventStore, applier Applier, orderID string, state any, options Options) (Result, error) {
	if store == nil {
		return Result{}, ErrEventStoreRequired
	}
	if applier == nil {
		return Result{}, ErrApplierRequired
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Result{}, ErrOrderIDRequired
	}

	pageSize := options.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	result := Result{State: state, LastSeq: options.AfterSeq}
	for {
		events, err := store.ReadStream(ctx, orderID, storage.ReadStreamOptions{
			AfterSeq: result.LastSeq,
			UntilSeq: options.UntilSeq,
			Limit:    pageSize,
		})
		if err != nil {
			return result, err
		}
		if len(events) == 0 {
			return result, nil
		}
		for _, evt := range events {
			expectedSeq := result.LastSeq + 1
			if evt.Seq != expectedSeq {
				return result, fmt.Errorf("event sequence gap: expected %d got %d", expectedSeq, evt.Seq)
			}
			nextState, err := applier.Apply(result.State, evt)
			if err != nil {
				return result, err
			}
			result.State = nextState
			result.LastSeq = evt.Seq
			result.Applied++
		}
		if len(events) < pageSize {
			return result, nil
		}
	}
}
