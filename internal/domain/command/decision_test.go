package command

import (
	"testing"
	"time"

	"github.com/louisbranch/ordercore/internal/domain/event"
)

func TestAcceptDecision_ReturnsEventsOnly(t *testing.T) {
	evt := event.Event{OrderID: "ord-1"}
	decision := Accept(evt)

	if len(decision.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(decision.Events))
	}
	if decision.Events[0].OrderID != "ord-1" {
		t.Fatalf("event order id = %s, want %s", decision.Events[0].OrderID, "ord-1")
	}
	if len(decision.Rejections) != 0 {
		t.Fatalf("expected no rejections, got %d", len(decision.Rejections))
	}
}

func TestRejectDecision_ReturnsRejectionsOnly(t *testing.T) {
	decision := Reject(Rejection{Code: "INVALID"})

	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != "INVALID" {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, "INVALID")
	}
	if len(decision.Events) != 0 {
		t.Fatalf("expected no events, got %d", len(decision.Events))
	}
}

func TestDecisionValidate_ReturnsErrorForEmptyDecision(t *testing.T) {
	d := Decision{}
	if err := d.Validate(); err == nil {
		t.Fatal("expected error for empty decision")
	}
}

func TestDecisionValidate_AcceptsEventsOnly(t *testing.T) {
	d := Accept(event.Event{OrderID: "ord-1"})
	if err := d.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewEvent_ForwardsEnvelope(t *testing.T) {
	cmd := Command{
		OrderID:       "ord-1",
		Type:          Type("order.create"),
		ActorType:     ActorTypeCustomer,
		ActorID:       "cus-9",
		CorrelationID: "corr-1",
		CausationID:   "cmd-1",
	}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	evt := NewEvent(cmd, event.TypeOrderCreated, []byte(`{"a":1}`), now)
	if evt.OrderID != "ord-1" {
		t.Fatalf("order id = %s", evt.OrderID)
	}
	if evt.ActorType != event.ActorTypeCustomer {
		t.Fatalf("actor type = %s", evt.ActorType)
	}
	if evt.ActorID != "cus-9" {
		t.Fatalf("actor id = %s", evt.ActorID)
	}
	if evt.CorrelationID != "corr-1" || evt.CausationID != "cmd-1" {
		t.Fatalf("correlation = %s causation = %s", evt.CorrelationID, evt.CausationID)
	}
	if string(evt.PayloadJSON) != `{"a":1}` {
		t.Fatalf("payload = %s", evt.PayloadJSON)
	}
}
