package order

import (
	"encoding/json"

	"github.com/louisbranch/ordercore/internal/domain/event"
)

// Fold applies one event to the state and returns the next state. It is
// pure: no clocks, no randomness, no I/O. Events with types the fold does
// not recognize, or with payloads that fail to decode, advance the sequence
// cursor and nothing else, so replaying a stream containing foreign events
// stays deterministic.
func Fold(state State, evt event.Event) State {
	next := state
	next.LastSeq = evt.Seq
	next.UpdatedAt = evt.Timestamp
	if next.CreatedAt.IsZero() {
		next.CreatedAt = evt.Timestamp
	}

	switch evt.Type {
	case event.TypeOrderCreated:
		var p CreatedPayload
		if json.Unmarshal(evt.PayloadJSON, &p) != nil {
			return next
		}
		next.OrderID = evt.OrderID
		next.CustomerID = p.CustomerID
		next.Currency = p.Currency
		next.Items = cloneItems(p.Items)
		next.ShippingAddress = cloneAddress(p.ShippingAddress)
		next.BillingAddress = cloneAddress(p.BillingAddress)
		next.Status = StatusPendingPayment
		next.StatusHistory = appendStatusChange(state.StatusHistory, StatusChange{
			Status:    StatusPendingPayment,
			Seq:       evt.Seq,
			Timestamp: evt.Timestamp,
		})

	case event.TypeItemsAdded:
		var p ItemsAddedPayload
		if json.Unmarshal(evt.PayloadJSON, &p) != nil {
			return next
		}
		next.Items = mergeItems(state.Items, p.Items)

	case event.TypeItemsRemoved:
		var p ItemsRemovedPayload
		if json.Unmarshal(evt.PayloadJSON, &p) != nil {
			return next
		}
		next.Items = removeItems(state.Items, p.Items)

	case event.TypeStatusChanged:
		var p StatusChangedPayload
		if json.Unmarshal(evt.PayloadJSON, &p) != nil {
			return next
		}
		next.Status = p.To
		next.StatusHistory = appendStatusChange(state.StatusHistory, StatusChange{
			Status:    p.To,
			Seq:       evt.Seq,
			Timestamp: evt.Timestamp,
			Reason:    p.Reason,
		})

	case event.TypePaymentRecorded:
		var p PaymentRecordedPayload
		if json.Unmarshal(evt.PayloadJSON, &p) != nil {
			return next
		}
		next.Payments = append(clonePayments(state.Payments), Payment{
			PaymentID:   p.PaymentID,
			AmountCents: p.AmountCents,
			Method:      p.Method,
		})

	case event.TypeShipmentRecorded:
		var p ShipmentRecordedPayload
		if json.Unmarshal(evt.PayloadJSON, &p) != nil {
			return next
		}
		next.Shipments = append(cloneShipments(state.Shipments), Shipment{
			ShipmentID: p.ShipmentID,
			Carrier:    p.Carrier,
			Tracking:   p.Tracking,
			Items:      cloneQuantities(p.Items),
		})

	case event.TypeOrderCancelled:
		var p CancelledPayload
		if json.Unmarshal(evt.PayloadJSON, &p) != nil {
			return next
		}
		next.Status = StatusCancelled
		next.CancelReason = p.Reason
		next.StatusHistory = appendStatusChange(state.StatusHistory, StatusChange{
			Status:    StatusCancelled,
			Seq:       evt.Seq,
			Timestamp: evt.Timestamp,
			Reason:    p.Reason,
		})

	case event.TypeRefundRecorded:
		var p RefundRecordedPayload
		if json.Unmarshal(evt.PayloadJSON, &p) != nil {
			return next
		}
		next.Refunds = append(cloneRefunds(state.Refunds), Refund{
			RefundID:    p.RefundID,
			AmountCents: p.AmountCents,
			Reason:      p.Reason,
		})
	}

	return next
}

// FoldAll folds a slice of events in order.
func FoldAll(state State, events []event.Event) State {
	for _, evt := range events {
		state = Fold(state, evt)
	}
	return state
}

func appendStatusChange(history []StatusChange, change StatusChange) []StatusChange {
	out := make([]StatusChange, 0, len(history)+1)
	out = append(out, history...)
	return append(out, change)
}

// mergeItems adds quantities onto existing skus with the same unit price and
// appends new entries otherwise, keeping the result order-stable.
func mergeItems(existing, added []LineItem) []LineItem {
	out := cloneItems(existing)
	for _, item := range added {
		merged := false
		for i := range out {
			if out[i].SKU == item.SKU && out[i].UnitPriceCents == item.UnitPriceCents {
				out[i].Quantity += item.Quantity
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, item)
		}
	}
	return out
}

// removeItems subtracts quantities per sku and drops entries that reach zero.
func removeItems(existing []LineItem, removed []ItemQuantity) []LineItem {
	remaining := make(map[string]int64, len(removed))
	for _, item := range removed {
		remaining[item.SKU] += item.Quantity
	}
	out := make([]LineItem, 0, len(existing))
	for _, item := range existing {
		take := remaining[item.SKU]
		if take > 0 {
			if take >= item.Quantity {
				remaining[item.SKU] -= item.Quantity
				continue
			}
			item.Quantity -= take
			remaining[item.SKU] = 0
		}
		out = append(out, item)
	}
	return out
}

func cloneItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}

func cloneQuantities(items []ItemQuantity) []ItemQuantity {
	if items == nil {
		return nil
	}
	out := make([]ItemQuantity, len(items))
	copy(out, items)
	return out
}

func clonePayments(payments []Payment) []Payment {
	out := make([]Payment, 0, len(payments)+1)
	return append(out, payments...)
}

func cloneShipments(shipments []Shipment) []Shipment {
	out := make([]Shipment, 0, len(shipments)+1)
	return append(out, shipments...)
}

func cloneRefunds(refunds []Refund) []Refund {
	out := make([]Refund, 0, len(refunds)+1)
	return append(out, refunds...)
}

func cloneAddress(addr *Address) *Address {
	if addr == nil {
		return nil
	}
	out := *addr
	return &out
}
