// Package engine executes commands against the order journal.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/ordercore/internal/domain/command"
	"github.com/louisbranch/ordercore/internal/domain/event"
	"github.com/louisbranch/ordercore/internal/domain/order"
	"github.com/louisbranch/ordercore/internal/storage"
)

// defaultMaxAttempts bounds the optimistic-concurrency retry loop. Each
// retry re-reads state and re-decides; a loss after the last attempt
// surfaces the conflict to the caller.
const defaultMaxAttempts = 3

var (
	// ErrCommandRegistryRequired indicates a missing command registry.
	ErrCommandRegistryRequired = errors.New("command registry is required")
	// ErrJournalRequired indicates a missing event journal.
	ErrJournalRequired = errors.New("event journal is required")
	// ErrStateLoaderRequired indicates a missing state loader.
	ErrStateLoaderRequired = errors.New("state loader is required")
	// ErrDeciderRequired indicates a missing decider.
	ErrDeciderRequired = errors.New("decider is required")
)

// StateLoader loads current order state for deciders.
type StateLoader interface {
	Load(ctx context.Context, orderID string) (order.State, error)
}

// EventJournal appends event batches under the optimistic-concurrency guard.
type EventJournal interface {
	AppendEvents(ctx context.Context, orderID string, expectedNextSeq uint64, events []event.Event) ([]event.Event, error)
}

// Decider returns a decision for a command.
type Decider interface {
	Decide(state order.State, cmd command.Command, now func() time.Time) command.Decision
}

// DeciderFunc adapts a function to the Decider interface.
type DeciderFunc func(state order.State, cmd command.Command, now func() time.Time) command.Decision

// Decide implements Decider.
func (f DeciderFunc) Decide(state order.State, cmd command.Command, now func() time.Time) command.Decision {
	return f(state, cmd, now)
}

// Handler validates and decides commands, then appends accepted events.
type Handler struct {
	Commands *command.Registry
	Journal  EventJournal
	Loader   StateLoader
	Decider  Decider
	Now      func() time.Time
	// MaxAttempts overrides the retry bound when positive.
	MaxAttempts int
}

// Result captures execution outcomes.
type Result struct {
	// Decision carries the committed events (with assigned sequences) or
	// the decider's rejections.
	Decision command.Decision
	// State is the order state after folding the committed events.
	State order.State
}

// Execute validates a command, loads current state, decides, and appends the
// resulting events. When the append loses the sequence race the state is
// reloaded and the command re-decided, up to the attempt bound; a command
// that is illegal against the winner's state rejects instead of retrying.
func (h Handler) Execute(ctx context.Context, cmd command.Command) (Result, error) {
	if h.Commands == nil {
		return Result{}, ErrCommandRegistryRequired
	}
	if h.Journal == nil {
		return Result{}, ErrJournalRequired
	}
	if h.Loader == nil {
		return Result{}, ErrStateLoaderRequired
	}
	if h.Decider == nil {
		return Result{}, ErrDeciderRequired
	}

	validated, err := h.Commands.ValidateForDecision(cmd)
	if err != nil {
		return Result{}, err
	}
	cmd = validated

	now := h.Now
	if now == nil {
		now = time.Now
	}
	maxAttempts := h.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		state, err := h.Loader.Load(ctx, cmd.OrderID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return Result{}, err
		}

		decision := h.Decider.Decide(state, cmd, now)
		if err := decision.Validate(); err != nil {
			return Result{}, err
		}
		if len(decision.Rejections) > 0 {
			return Result{Decision: decision, State: state}, nil
		}

		stored, err := h.Journal.AppendEvents(ctx, cmd.OrderID, state.LastSeq+1, decision.Events)
		if err != nil {
			if errors.Is(err, storage.ErrConcurrencyConflict) {
				lastErr = err
				continue
			}
			return Result{}, err
		}

		decision.Events = stored
		return Result{Decision: decision, State: order.FoldAll(state, stored)}, nil
	}

	return Result{}, lastErr
}
