package replay

import (
	"context"
	"strings"
	"testing"

	"github.com/louisbranch/ordercore/internal/domain/event"
	"github.com/louisbranch/ordercore/internal/storage"
)

type fakeEventStore struct {
	events []event.Event
}

func (f *fakeEventStore) ReadStream(_ context.Context, orderID string, opts storage.ReadStreamOptions) ([]event.Event, error) {
	var out []event.Event
	for _, evt := range f.events {
		if evt.OrderID != orderID {
			continue
		}
		if opts.AfterSeq > 0 && evt.Seq <= opts.AfterSeq {
			continue
		}
		if opts.UntilSeq > 0 && evt.Seq > opts.UntilSeq {
			continue
		}
		out = append(out, evt)
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

func countingApplier() (Applier, *int) {
	applied := 0
	return ApplierFunc(func(state any, evt event.Event) (any, error) {
		applied++
		return state, nil
	}), &applied
}

func streamOf(orderID string, seqs ...uint64) []event.Event {
	events := make([]event.Event, 0, len(seqs))
	for _, seq := range seqs {
		events = append(events, event.Event{OrderID: orderID, Seq: seq, Type: event.TypeStatusChanged})
	}
	return events
}

func TestReplayAppliesAllEvents(t *testing.T) {
	store := &fakeEventStore{events: streamOf("ord-1", 1, 2, 3)}
	applier, applied := countingApplier()

	result, err := Replay(context.Background(), store, applier, "ord-1", nil, Options{})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if result.LastSeq != 3 {
		t.Fatalf("last seq = %d, want 3", result.LastSeq)
	}
	if *applied != 3 {
		t.Fatalf("applied = %d, want 3", *applied)
	}
}

func TestReplayPagesThroughStream(t *testing.T) {
	store := &fakeEventStore{events: streamOf("ord-1", 1, 2, 3, 4, 5)}
	applier, applied := countingApplier()

	result, err := Replay(context.Background(), store, applier, "ord-1", nil, Options{PageSize: 2})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if result.LastSeq != 5 || *applied != 5 {
		t.Fatalf("last seq = %d applied = %d, want 5 and 5", result.LastSeq, *applied)
	}
}

func TestReplayResumesAfterSeq(t *testing.T) {
	store := &fakeEventStore{events: streamOf("ord-1", 1, 2, 3, 4)}
	applier, applied := countingApplier()

	result, err := Replay(context.Background(), store, applier, "ord-1", nil, Options{AfterSeq: 2})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if result.LastSeq != 4 || *applied != 2 {
		t.Fatalf("last seq = %d applied = %d, want 4 and 2", result.LastSeq, *applied)
	}
}

func TestReplayStopsAtUntilSeq(t *testing.T) {
	store := &fakeEventStore{events: streamOf("ord-1", 1, 2, 3, 4)}
	applier, applied := countingApplier()

	result, err := Replay(context.Background(), store, applier, "ord-1", nil, Options{UntilSeq: 2})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if result.LastSeq != 2 || *applied != 2 {
		t.Fatalf("last seq = %d applied = %d, want 2 and 2", result.LastSeq, *applied)
	}
}

func TestReplayFailsOnSequenceGap(t *testing.T) {
	store := &fakeEventStore{events: streamOf("ord-1", 1, 3)}
	applier, _ := countingApplier()

	_, err := Replay(context.Background(), store, applier, "ord-1", nil, Options{})
	if err == nil {
		t.Fatal("expected sequence gap error")
	}
	if !strings.Contains(err.Error(), "expected 2 got 3") {
		t.Fatalf("error = %v, want gap detail", err)
	}
}

func TestReplayEmptyStream(t *testing.T) {
	store := &fakeEventStore{}
	applier, applied := countingApplier()

	result, err := Replay(context.Background(), store, applier, "ord-1", nil, Options{})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if result.LastSeq != 0 || *applied != 0 {
		t.Fatalf("last seq = %d applied = %d, want zeros", result.LastSeq, *applied)
	}
}

func TestReplayValidatesInputs(t *testing.T) {
	applier, _ := countingApplier()
	if _, err := Replay(context.Background(), nil, applier, "ord-1", nil, Options{}); err != ErrEventStoreRequired {
		t.Fatalf("expected ErrEventStoreRequired, got %v", err)
	}
	if _, err := Replay(context.Background(), &fakeEventStore{}, nil, "ord-1", nil, Options{}); err != ErrApplierRequired {
		t.Fatalf("expected ErrApplierRequired, got %v", err)
	}
	if _, err := Replay(context.Background(), &fakeEventStore{}, applier, " ", nil, Options{}); err != ErrOrderIDRequired {
		t.Fatalf("expected ErrOrderIDRequired, got %v", err)
	}
}
