package order

import (
	"time"
)

// Payment is a payment fact accumulated by the fold.
type Payment struct {
	PaymentID   string `json:"payment_id"`
	AmountCents int64  `json:"amount_cents"`
	Method      string `json:"method,omitempty"`
}

// Shipment is a shipment fact accumulated by the fold.
type Shipment struct {
	ShipmentID string         `json:"shipment_id"`
	Carrier    string         `json:"carrier,omitempty"`
	Tracking   string         `json:"tracking,omitempty"`
	Items      []ItemQuantity `json:"items"`
}

// StatusChange is one entry in the order's status history.
type StatusChange struct {
	Status    Status    `json:"status"`
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason,omitempty"`
}

// Refund is a refund fact accumulated by the fold.
type Refund struct {
	RefundID    string `json:"refund_id"`
	AmountCents int64  `json:"amount_cents"`
	Reason      string `json:"reason,omitempty"`
}

// State is the current projection of one order, derived purely from its
// event stream. A zero State means the order does not exist yet.
type State struct {
	OrderID         string         `json:"order_id"`
	CustomerID      string         `json:"customer_id"`
	Currency        string         `json:"currency"`
	Status          Status         `json:"status"`
	Items           []LineItem     `json:"items"`
	ShippingAddress *Address       `json:"shipping_address,omitempty"`
	BillingAddress  *Address       `json:"billing_address,omitempty"`
	Payments        []Payment      `json:"payments"`
	Shipments       []Shipment     `json:"shipments"`
	Refunds         []Refund       `json:"refunds"`
	StatusHistory   []StatusChange `json:"status_history"`
	CancelReason    string         `json:"cancel_reason,omitempty"`
	// LastSeq is the sequence number of the last event folded into this
	// state. Zero means no events.
	LastSeq uint64 `json:"last_seq"`
	// CreatedAt and UpdatedAt mirror the first and last folded event
	// timestamps.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Exists reports whether the order has been created.
func (s State) Exists() bool {
	return s.LastSeq > 0
}

// TotalCents is the sum of quantity times unit price over current line items.
func (s State) TotalCents() int64 {
	var total int64
	for _, item := range s.Items {
		total += item.Quantity * item.UnitPriceCents
	}
	return total
}

// PaidCents is the total amount recorded as paid.
func (s State) PaidCents() int64 {
	var total int64
	for _, p := range s.Payments {
		total += p.AmountCents
	}
	return total
}

// RefundedCents is the total amount recorded as refunded.
func (s State) RefundedCents() int64 {
	var total int64
	for _, r := range s.Refunds {
		total += r.AmountCents
	}
	return total
}

// ShippedQuantities aggregates the shipped quantity per sku.
func (s State) ShippedQuantities() map[string]int64 {
	shipped := make(map[string]int64)
	for _, shipment := range s.Shipments {
		for _, item := range shipment.Items {
			shipped[item.SKU] += item.Quantity
		}
	}
	return shipped
}

// OrderedQuantities aggregates the current line item quantity per sku.
func (s State) OrderedQuantities() map[string]int64 {
	ordered := make(map[string]int64)
	for _, item := range s.Items {
		ordered[item.SKU] += item.Quantity
	}
	return ordered
}

// FullyShipped reports whether every ordered quantity has been shipped.
func (s State) FullyShipped() bool {
	if len(s.Items) == 0 {
		return false
	}
	shipped := s.ShippedQuantities()
	for sku, qty := range s.OrderedQuantities() {
		if shipped[sku] < qty {
			return false
		}
	}
	return true
}

// itemsLocked reports whether the line item set may still change. Items are
// frozen once payment has started so the charged amount matches the order.
func (s State) itemsLocked() bool {
	return s.Status != StatusPendingPayment
}
