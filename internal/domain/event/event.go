package event

import (
	"strings"
	"time"
)

// Type identifies the type of an order event.
type Type string

// Order lifecycle events.
const (
	// TypeOrderCreated records the creation of an order.
	TypeOrderCreated Type = "order.created"
	// TypeItemsAdded records line items added to an order.
	TypeItemsAdded Type = "order.items_added"
	// TypeItemsRemoved records line items removed from an order.
	TypeItemsRemoved Type = "order.items_removed"
	// TypeStatusChanged records a validated order status transition.
	TypeStatusChanged Type = "order.status_changed"
	// TypePaymentRecorded records a payment fact reported by the payment service.
	TypePaymentRecorded Type = "order.payment_recorded"
	// TypeShipmentRecorded records a shipment fact reported by the shipping service.
	TypeShipmentRecorded Type = "order.shipment_recorded"
	// TypeOrderCancelled records the cancellation of an order.
	TypeOrderCancelled Type = "order.cancelled"
	// TypeRefundRecorded records a refund issued against an order.
	TypeRefundRecorded Type = "order.refund_recorded"
)

// ActorType identifies who or what triggered an event.
type ActorType string

const (
	// ActorTypeSystem indicates the event was triggered by the system.
	ActorTypeSystem ActorType = "system"
	// ActorTypeCustomer indicates the event was triggered by the customer.
	ActorTypeCustomer ActorType = "customer"
	// ActorTypeService indicates the event was triggered by a collaborating
	// service (payment, inventory, shipping).
	ActorTypeService ActorType = "service"
)

// Event represents an immutable record in the order event journal.
type Event struct {
	// ID is the globally unique event identifier. Assigned on append.
	ID string
	// OrderID is the order this event belongs to.
	OrderID string
	// Seq is the event sequence number within the order's stream (starts
	// at 1). Assigned by storage on append.
	Seq uint64
	// Timestamp is when the event occurred. Non-decreasing per order.
	Timestamp time.Time
	// Type identifies the kind of event.
	Type Type
	// ActorType identifies who triggered the event.
	ActorType ActorType
	// ActorID is the customer or service identifier when known.
	ActorID string
	// CorrelationID links every event back to the originating request.
	CorrelationID string
	// CausationID references the event or command that produced this event.
	CausationID string
	// PayloadJSON holds event-type-specific data as JSON.
	PayloadJSON []byte
}

// IsValid reports whether the event type is usable.
func (t Type) IsValid() bool {
	return strings.TrimSpace(string(t)) != ""
}

// Domain returns the domain prefix of the event type (e.g., "order").
func (t Type) Domain() string {
	for i, c := range t {
		if c == '.' {
			return string(t[:i])
		}
	}
	return string(t)
}

// Types returns the closed catalog of known event types in declaration order.
func Types() []Type {
	return []Type{
		TypeOrderCreated,
		TypeItemsAdded,
		TypeItemsRemoved,
		TypeStatusChanged,
		TypePaymentRecorded,
		TypeShipmentRecorded,
		TypeOrderCancelled,
		TypeRefundRecorded,
	}
}
