// Package messaging publishes committed order events to downstream
// consumers. Publishing is strictly after-commit: the journal is the source
// of truth and a failed publish never rolls back an append.
package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/louisbranch/ordercore/internal/domain/event"
)

// Envelope is the wire format for a published order event.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	OrderID       string          `json:"order_id"`
	Seq           uint64          `json:"seq"`
	ActorType     string          `json:"actor_type,omitempty"`
	ActorID       string          `json:"actor_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	CausationID   string          `json:"causation_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// FromEvent maps a journal event onto the publish envelope.
func FromEvent(evt event.Event) Envelope {
	return Envelope{
		EventID:       evt.ID,
		EventType:     string(evt.Type),
		OrderID:       evt.OrderID,
		Seq:           evt.Seq,
		ActorType:     string(evt.ActorType),
		ActorID:       evt.ActorID,
		CorrelationID: evt.CorrelationID,
		CausationID:   evt.CausationID,
		OccurredAt:    evt.Timestamp,
		Payload:       json.RawMessage(evt.PayloadJSON),
	}
}

// Publisher delivers committed events to a message broker.
type Publisher interface {
	Publish(ctx context.Context, envelopes ...Envelope) error
	Close() error
}
