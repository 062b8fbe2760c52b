package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/louisbranch/ordercore/internal/messaging"
)

func TestNewPublisherValidatesConfig(t *testing.T) {
	if _, err := NewPublisher(nil, "orders"); err != ErrBrokersRequired {
		t.Fatalf("expected ErrBrokersRequired, got %v", err)
	}
	if _, err := NewPublisher([]string{"localhost:9092"}, ""); err != ErrTopicRequired {
		t.Fatalf("expected ErrTopicRequired, got %v", err)
	}
	pub, err := NewPublisher([]string{"localhost:9092"}, "orders")
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	t.Cleanup(func() { _ = pub.Close() })
}

func TestBuildMessageKeysByOrder(t *testing.T) {
	env := messaging.Envelope{
		EventID:    "evt-1",
		EventType:  "order.created",
		OrderID:    "ord-7",
		Seq:        1,
		OccurredAt: time.Date(2026, 4, 2, 8, 30, 0, 0, time.UTC),
		Payload:    json.RawMessage(`{"customer_id":"cus-1"}`),
	}

	msg, err := buildMessage(env)
	if err != nil {
		t.Fatalf("build message: %v", err)
	}
	if string(msg.Key) != "ord-7" {
		t.Fatalf("key = %s, want ord-7", msg.Key)
	}

	var decoded messaging.Envelope
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	if decoded.EventID != env.EventID || decoded.Seq != env.Seq {
		t.Fatalf("round trip lost fields: %+v", decoded)
	}

	var eventType, eventID string
	for _, h := range msg.Headers {
		switch h.Key {
		case "event_type":
			eventType = string(h.Value)
		case "event_id":
			eventID = string(h.Value)
		}
	}
	if eventType != "order.created" || eventID != "evt-1" {
		t.Fatalf("headers = %+v", msg.Headers)
	}
}
