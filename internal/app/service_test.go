package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/louisbranch/ordercore/internal/domain/command"
	"github.com/louisbranch/ordercore/internal/domain/engine"
	"github.com/louisbranch/ordercore/internal/domain/event"
	"github.com/louisbranch/ordercore/internal/domain/order"
	"github.com/louisbranch/ordercore/internal/messaging"
	apperrors "github.com/louisbranch/ordercore/internal/platform/errors"
	"github.com/louisbranch/ordercore/internal/platform/requestctx"
	"github.com/louisbranch/ordercore/internal/projection"
	"github.com/louisbranch/ordercore/internal/storage"
)

// memJournal is an in-memory journal shared by the engine and the
// projector so service tests exercise the real command and replay paths.
type memJournal struct {
	events []event.Event
}

func (j *memJournal) AppendEvents(_ context.Context, orderID string, expectedNextSeq uint64, events []event.Event) ([]event.Event, error) {
	var last uint64
	for _, evt := range j.events {
		if evt.OrderID == orderID {
			last = evt.Seq
		}
	}
	if expectedNextSeq != last+1 {
		return nil, storage.ErrConcurrencyConflict
	}
	stored := make([]event.Event, len(events))
	for i, evt := range events {
		evt.ID = fmt.Sprintf("evt-%d", len(j.events)+i+1)
		evt.Seq = expectedNextSeq + uint64(i)
		stored[i] = evt
	}
	j.events = append(j.events, stored...)
	return stored, nil
}

func (j *memJournal) ReadStream(_ context.Context, orderID string, opts storage.ReadStreamOptions) ([]event.Event, error) {
	var out []event.Event
	for _, evt := range j.events {
		if evt.OrderID != orderID || evt.Seq <= opts.AfterSeq {
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

type journalLoader struct{ journal *memJournal }

func (l journalLoader) Load(ctx context.Context, orderID string) (order.State, error) {
	events, err := l.journal.ReadStream(ctx, orderID, storage.ReadStreamOptions{})
	if err != nil {
		return order.State{}, err
	}
	if len(events) == 0 {
		return order.State{}, storage.ErrNotFound
	}
	return order.FoldAll(order.State{}, events), nil
}

type capturePublisher struct {
	envelopes []messaging.Envelope
	fail      bool
}

func (p *capturePublisher) Publish(_ context.Context, envelopes ...messaging.Envelope) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.envelopes = append(p.envelopes, envelopes...)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func testService(t *testing.T, journal *memJournal, publisher messaging.Publisher, cache *projection.ViewCache) Service {
	t.Helper()
	registry := command.NewRegistry()
	if err := order.RegisterCommands(registry); err != nil {
		t.Fatalf("register commands: %v", err)
	}
	projector := projection.Projector{Events: journal, Cache: cache}
	return Service{
		Handler: engine.Handler{
			Commands: registry,
			Journal:  journal,
			Loader:   journalLoader{journal: journal},
			Decider:  engine.DeciderFunc(order.Decide),
			Now:      func() time.Time { return time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC) },
		},
		Projector: projector,
		Publisher: publisher,
	}
}

func submit(t *testing.T, svc Service, orderID string, cmdType command.Type, payload string) []event.Event {
	t.Helper()
	events, err := svc.SubmitCommand(context.Background(), command.Command{
		OrderID:     orderID,
		Type:        cmdType,
		PayloadJSON: []byte(payload),
	})
	if err != nil {
		t.Fatalf("submit %s: %v", cmdType, err)
	}
	return events
}

func TestServiceOrderLifecycle(t *testing.T) {
	journal := &memJournal{}
	svc := testService(t, journal, nil, nil)
	ctx := context.Background()

	submit(t, svc, "ord-1", order.CommandTypeCreate,
		`{"customer_id":"cus-1","currency":"usd","items":[{"sku":"SKU-1","name":"Widget","quantity":2,"unit_price_cents":500}]}`)
	submit(t, svc, "ord-1", order.CommandTypeRecordPayment,
		`{"payment_id":"pay-1","amount_cents":1000}`)
	submit(t, svc, "ord-1", order.CommandTypeChangeStatus, `{"to":"AWAITING_FULFILLMENT"}`)
	submit(t, svc, "ord-1", order.CommandTypeChangeStatus, `{"to":"PROCESSING"}`)
	submit(t, svc, "ord-1", order.CommandTypeRecordShipment,
		`{"shipment_id":"shp-1","carrier":"UPS","items":[{"sku":"SKU-1","quantity":2}]}`)
	submit(t, svc, "ord-1", order.CommandTypeChangeStatus, `{"to":"OUT_FOR_DELIVERY"}`)
	submit(t, svc, "ord-1", order.CommandTypeChangeStatus, `{"to":"DELIVERED"}`)

	view, err := svc.GetOrderView(ctx, "ord-1")
	if err != nil {
		t.Fatalf("get order view: %v", err)
	}
	if view.Status != order.StatusDelivered {
		t.Fatalf("status = %s, want DELIVERED", view.Status)
	}
	if view.Currency != "USD" {
		t.Fatalf("currency = %s, want USD", view.Currency)
	}
	if !view.FullyShipped() {
		t.Fatal("expected order fully shipped")
	}
	if view.PaidCents() != 1000 {
		t.Fatalf("paid = %d, want 1000", view.PaidCents())
	}

	history, err := svc.GetStatusHistory(ctx, "ord-1")
	if err != nil {
		t.Fatalf("get status history: %v", err)
	}
	want := []order.Status{
		order.StatusPendingPayment,
		order.StatusPaymentProcessing,
		order.StatusPaymentCompleted,
		order.StatusAwaitingFulfillment,
		order.StatusProcessing,
		order.StatusShipped,
		order.StatusOutForDelivery,
		order.StatusDelivered,
	}
	if len(history) != len(want) {
		t.Fatalf("history length = %d, want %d: %+v", len(history), len(want), history)
	}
	for i, status := range want {
		if history[i].Status != status {
			t.Fatalf("history[%d] = %s, want %s", i, history[i].Status, status)
		}
	}
}

func TestServiceRefundFlow(t *testing.T) {
	journal := &memJournal{}
	svc := testService(t, journal, nil, nil)
	ctx := context.Background()

	submit(t, svc, "ord-2", order.CommandTypeCreate,
		`{"customer_id":"cus-2","currency":"USD","items":[{"sku":"SKU-1","quantity":1,"unit_price_cents":2000}]}`)
	submit(t, svc, "ord-2", order.CommandTypeRecordPayment,
		`{"payment_id":"pay-1","amount_cents":2000}`)
	submit(t, svc, "ord-2", order.CommandTypeChangeStatus, `{"to":"AWAITING_FULFILLMENT"}`)
	submit(t, svc, "ord-2", order.CommandTypeChangeStatus, `{"to":"PROCESSING"}`)
	submit(t, svc, "ord-2", order.CommandTypeRecordShipment,
		`{"shipment_id":"shp-1","items":[{"sku":"SKU-1","quantity":1}]}`)
	submit(t, svc, "ord-2", order.CommandTypeRequestRefund, `{"reason":"damaged in transit"}`)
	submit(t, svc, "ord-2", order.CommandTypeRecordRefund,
		`{"refund_id":"ref-1","amount_cents":2000}`)

	view, err := svc.GetOrderView(ctx, "ord-2")
	if err != nil {
		t.Fatalf("get order view: %v", err)
	}
	if view.Status != order.StatusRefunded {
		t.Fatalf("status = %s, want REFUNDED", view.Status)
	}
	if view.RefundedCents() != 2000 {
		t.Fatalf("refunded = %d, want 2000", view.RefundedCents())
	}
}

func TestServiceRejectionSurfacesCodedError(t *testing.T) {
	journal := &memJournal{}
	publisher := &capturePublisher{}
	svc := testService(t, journal, publisher, nil)
	ctx := context.Background()

	submit(t, svc, "ord-3", order.CommandTypeCreate,
		`{"customer_id":"cus-3","currency":"USD","items":[{"sku":"SKU-1","quantity":1,"unit_price_cents":100}]}`)
	publishedBefore := len(publisher.envelopes)
	journalBefore := len(journal.events)

	_, err := svc.SubmitCommand(ctx, command.Command{
		OrderID:     "ord-3",
		Type:        order.CommandTypeCancel,
		PayloadJSON: []byte(`{}`),
	})
	if !apperrors.IsCode(err, apperrors.CodeCancelReasonRequired) {
		t.Fatalf("expected ORDER_CANCEL_REASON_REQUIRED, got %v", err)
	}
	if len(journal.events) != journalBefore {
		t.Fatal("rejected command reached the journal")
	}
	if len(publisher.envelopes) != publishedBefore {
		t.Fatal("rejected command was published")
	}
}

func TestServicePublishesCommittedEvents(t *testing.T) {
	journal := &memJournal{}
	publisher := &capturePublisher{}
	svc := testService(t, journal, publisher, nil)

	submit(t, svc, "ord-4", order.CommandTypeCreate,
		`{"customer_id":"cus-4","currency":"USD","items":[{"sku":"SKU-1","quantity":1,"unit_price_cents":100}]}`)
	if len(publisher.envelopes) != 1 {
		t.Fatalf("published %d envelopes, want 1", len(publisher.envelopes))
	}
	if publisher.envelopes[0].EventType != string(event.TypeOrderCreated) {
		t.Fatalf("envelope type = %s", publisher.envelopes[0].EventType)
	}

	// A full payment commits three events in one batch; all of them must
	// reach the broker in sequence order.
	submit(t, svc, "ord-4", order.CommandTypeRecordPayment,
		`{"payment_id":"pay-1","amount_cents":100}`)
	if len(publisher.envelopes) != 4 {
		t.Fatalf("published %d envelopes, want 4", len(publisher.envelopes))
	}
	for i, env := range publisher.envelopes {
		if env.Seq != uint64(i+1) {
			t.Fatalf("envelope %d seq = %d", i, env.Seq)
		}
	}
}

func TestServicePublishFailureDoesNotFailCommand(t *testing.T) {
	journal := &memJournal{}
	svc := testService(t, journal, &capturePublisher{fail: true}, nil)

	events := submit(t, svc, "ord-5", order.CommandTypeCreate,
		`{"customer_id":"cus-5","currency":"USD","items":[{"sku":"SKU-1","quantity":1,"unit_price_cents":100}]}`)
	if len(events) != 1 {
		t.Fatalf("committed %d events, want 1", len(events))
	}
	if len(journal.events) != 1 {
		t.Fatal("append did not survive the publish failure")
	}
}

func TestServiceViewReflectsAppendThroughCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	journal := &memJournal{}
	svc := testService(t, journal, nil, projection.NewViewCache(client, time.Minute))
	ctx := context.Background()

	submit(t, svc, "ord-6", order.CommandTypeCreate,
		`{"customer_id":"cus-6","currency":"USD","items":[{"sku":"SKU-1","quantity":1,"unit_price_cents":100}]}`)

	// Warm the cache.
	view, err := svc.GetOrderView(ctx, "ord-6")
	if err != nil {
		t.Fatalf("get order view: %v", err)
	}
	if len(view.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(view.Items))
	}

	submit(t, svc, "ord-6", order.CommandTypeAddItems,
		`{"items":[{"sku":"SKU-2","quantity":3,"unit_price_cents":250}]}`)

	after, err := svc.GetOrderView(ctx, "ord-6")
	if err != nil {
		t.Fatalf("get order view after append: %v", err)
	}
	if len(after.Items) != 2 {
		t.Fatalf("items after append = %d, want 2", len(after.Items))
	}
	if after.LastSeq <= view.LastSeq {
		t.Fatalf("view did not advance: %d -> %d", view.LastSeq, after.LastSeq)
	}
}

func TestServiceStampsIdentityFromContext(t *testing.T) {
	journal := &memJournal{}
	svc := testService(t, journal, nil, nil)

	ctx := requestctx.WithActorID(context.Background(), "cus-7")
	ctx = requestctx.WithCorrelationID(ctx, "req-123")
	events, err := svc.SubmitCommand(ctx, command.Command{
		OrderID:     "ord-7",
		Type:        order.CommandTypeCreate,
		PayloadJSON: []byte(`{"customer_id":"cus-7","currency":"USD","items":[{"sku":"SKU-1","quantity":1,"unit_price_cents":100}]}`),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if events[0].ActorID != "cus-7" {
		t.Fatalf("actor id = %q, want cus-7", events[0].ActorID)
	}
	if events[0].CorrelationID != "req-123" {
		t.Fatalf("correlation id = %q, want req-123", events[0].CorrelationID)
	}
}

type stubVerifier struct{ err error }

func (v stubVerifier) VerifyStream(context.Context, string) error { return v.err }

func TestServiceVerifyOrder(t *testing.T) {
	svc := Service{Verifier: stubVerifier{}}
	if err := svc.VerifyOrder(context.Background(), "ord-1"); err != nil {
		t.Fatalf("verify: %v", err)
	}

	gap := apperrors.New(apperrors.CodeEventSequenceGap, "gap at seq 3")
	svc = Service{Verifier: stubVerifier{err: gap}}
	if err := svc.VerifyOrder(context.Background(), "ord-1"); !apperrors.IsCode(err, apperrors.CodeEventSequenceGap) {
		t.Fatalf("expected sequence gap error, got %v", err)
	}

	if err := (Service{}).VerifyOrder(context.Background(), "ord-1"); err != ErrVerifierRequired {
		t.Fatalf("expected ErrVerifierRequired, got %v", err)
	}
}
