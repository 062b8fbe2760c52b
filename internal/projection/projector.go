package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/louisbranch/ordercore/internal/domain/event"
	"github.com/louisbranch/ordercore/internal/domain/order"
	"github.com/louisbranch/ordercore/internal/domain/replay"
	"github.com/louisbranch/ordercore/internal/storage"
)

// defaultSnapshotEvery bounds how much replay work a hot order can
// accumulate before a fresh checkpoint is written.
const defaultSnapshotEvery = 50

var (
	// ErrEventStoreRequired indicates a missing event store.
	ErrEventStoreRequired = errors.New("event store is required")
	// ErrOrderIDRequired indicates a missing order id.
	ErrOrderIDRequired = errors.New("order id is required")
)

// Projector rebuilds order state on demand: cached view first, then the
// latest snapshot plus the journal tail, then a full replay.
type Projector struct {
	// Events reads the order journal.
	Events replay.EventStore
	// Snapshots persists replay checkpoints. Optional.
	Snapshots storage.SnapshotStore
	// Cache serves rebuilt views. Optional.
	Cache *ViewCache
	// Registry identifies event types this reader understands. Optional;
	// defaults to the package catalog.
	Registry *event.Registry
	// Log receives snapshot and decode warnings. Defaults to the standard
	// logger.
	Log log.FieldLogger
	// SnapshotEvery writes a new snapshot once this many events have been
	// replayed past the previous checkpoint. Defaults to 50.
	SnapshotEvery int
	// Now stamps snapshots. Defaults to time.Now.
	Now func() time.Time
}

// Project returns the current state of one order. Returns
// storage.ErrNotFound when the order has no events at all.
func (p Projector) Project(ctx context.Context, orderID string) (order.State, error) {
	if p.Events == nil {
		return order.State{}, ErrEventStoreRequired
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return order.State{}, ErrOrderIDRequired
	}
	if err := ctx.Err(); err != nil {
		return order.State{}, err
	}

	if state, ok := p.Cache.Get(ctx, orderID); ok {
		return state, nil
	}

	base, afterSeq := p.loadCheckpoint(ctx, orderID)
	result, err := replay.Replay(ctx, p.Events, replay.ApplierFunc(p.apply), orderID, base, replay.Options{
		AfterSeq: afterSeq,
	})
	if err != nil {
		return order.State{}, fmt.Errorf("project order %s: %w", orderID, err)
	}
	if result.LastSeq == 0 {
		return order.State{}, storage.ErrNotFound
	}

	state, ok := result.State.(order.State)
	if !ok {
		return order.State{}, fmt.Errorf("project order %s: unexpected state type %T", orderID, result.State)
	}

	p.maybeSnapshot(ctx, state, result.Applied)
	p.Cache.Put(ctx, state)
	return state, nil
}

// Invalidate drops the cached view for an order. Writers call this after
// every committed append.
func (p Projector) Invalidate(ctx context.Context, orderID string) {
	p.Cache.Evict(ctx, orderID)
}

func (p Projector) apply(state any, evt event.Event) (any, error) {
	current, ok := state.(order.State)
	if !ok {
		return state, fmt.Errorf("unexpected state type %T", state)
	}
	if !p.knownEventType(evt.Type) {
		// The fold advances past unknown types; surface them so schema
		// drift between writers and readers is visible.
		p.logger().WithFields(log.Fields{
			"order_id":   evt.OrderID,
			"seq":        evt.Seq,
			"event_type": evt.Type,
		}).Warn("skipping unknown event type during replay")
	}
	return order.Fold(current, evt), nil
}

// loadCheckpoint returns the replay starting point. Snapshot problems
// degrade to a full replay, never to an error.
func (p Projector) loadCheckpoint(ctx context.Context, orderID string) (order.State, uint64) {
	if p.Snapshots == nil {
		return order.State{}, 0
	}
	snap, err := p.Snapshots.GetLatestSnapshot(ctx, orderID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			p.logger().WithField("order_id", orderID).WithError(err).
				Warn("snapshot read failed, replaying from scratch")
		}
		return order.State{}, 0
	}
	var state order.State
	if err := json.Unmarshal(snap.StateJSON, &state); err != nil {
		p.logger().WithFields(log.Fields{
			"order_id": orderID,
			"seq":      snap.EventSeq,
		}).WithError(err).Warn("snapshot decode failed, replaying from scratch")
		return order.State{}, 0
	}
	return state, snap.EventSeq
}

// maybeSnapshot persists a fresh checkpoint after enough replay work.
// Failures are logged and swallowed; the read already succeeded.
func (p Projector) maybeSnapshot(ctx context.Context, state order.State, applied int) {
	if p.Snapshots == nil {
		return
	}
	every := p.SnapshotEvery
	if every <= 0 {
		every = defaultSnapshotEvery
	}
	if applied < every {
		return
	}
	data, err := json.Marshal(state)
	if err != nil {
		p.logger().WithField("order_id", state.OrderID).WithError(err).
			Warn("snapshot encode failed")
		return
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	snap := storage.Snapshot{
		OrderID:   state.OrderID,
		EventSeq:  state.LastSeq,
		StateJSON: data,
		CreatedAt: now().UTC(),
	}
	if err := p.Snapshots.PutSnapshot(ctx, snap); err != nil {
		p.logger().WithFields(log.Fields{
			"order_id": state.OrderID,
			"seq":      state.LastSeq,
		}).WithError(err).Warn("snapshot write failed")
	}
}

func (p Projector) logger() log.FieldLogger {
	if p.Log != nil {
		return p.Log
	}
	return log.StandardLogger()
}

func (p Projector) knownEventType(t event.Type) bool {
	if p.Registry != nil {
		return p.Registry.Known(t)
	}
	for _, known := range event.Types() {
		if t == known {
			return true
		}
	}
	return false
}
