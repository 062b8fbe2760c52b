package order

import (
	"strings"

	apperrors "github.com/louisbranch/ordercore/internal/platform/errors"
)

// Status describes the order lifecycle label used by domain decisions.
type Status string

const (
	StatusUnspecified         Status = ""
	StatusPendingPayment      Status = "PENDING_PAYMENT"
	StatusPaymentProcessing   Status = "PAYMENT_PROCESSING"
	StatusPaymentCompleted    Status = "PAYMENT_COMPLETED"
	StatusPaymentFailed       Status = "PAYMENT_FAILED"
	StatusAwaitingFulfillment Status = "AWAITING_FULFILLMENT"
	StatusProcessing          Status = "PROCESSING"
	StatusPartiallyShipped    Status = "PARTIALLY_SHIPPED"
	StatusShipped             Status = "SHIPPED"
	StatusOutForDelivery      Status = "OUT_FOR_DELIVERY"
	StatusDelivered           Status = "DELIVERED"
	StatusCancelled           Status = "CANCELLED"
	StatusRefundRequested     Status = "REFUND_REQUESTED"
	StatusPartiallyRefunded   Status = "PARTIALLY_REFUNDED"
	StatusRefunded            Status = "REFUNDED"
)

// Statuses returns the fixed status catalog in lifecycle order.
func Statuses() []Status {
	return []Status{
		StatusPendingPayment,
		StatusPaymentProcessing,
		StatusPaymentCompleted,
		StatusPaymentFailed,
		StatusAwaitingFulfillment,
		StatusProcessing,
		StatusPartiallyShipped,
		StatusShipped,
		StatusOutForDelivery,
		StatusDelivered,
		StatusCancelled,
		StatusRefundRequested,
		StatusPartiallyRefunded,
		StatusRefunded,
	}
}

// transitions is the complete adjacency table for order status changes.
// Any pair not listed here is illegal. DELIVERED ends the happy path but
// still opens the refund flow; CANCELLED, REFUNDED and PAYMENT_FAILED have
// no outgoing edges.
var transitions = map[Status][]Status{
	StatusPendingPayment:      {StatusPaymentProcessing, StatusCancelled},
	StatusPaymentProcessing:   {StatusPaymentCompleted, StatusPaymentFailed},
	StatusPaymentCompleted:    {StatusAwaitingFulfillment, StatusCancelled},
	StatusAwaitingFulfillment: {StatusProcessing, StatusCancelled},
	StatusProcessing:          {StatusPartiallyShipped, StatusShipped, StatusCancelled},
	StatusPartiallyShipped:    {StatusShipped, StatusOutForDelivery, StatusRefundRequested},
	StatusShipped:             {StatusOutForDelivery, StatusRefundRequested},
	StatusOutForDelivery:      {StatusDelivered, StatusRefundRequested},
	StatusDelivered:           {StatusRefundRequested},
	StatusRefundRequested:     {StatusPartiallyRefunded, StatusRefunded, StatusCancelled},
	StatusPartiallyRefunded:   {StatusRefundRequested, StatusRefunded},
	StatusCancelled:           nil,
	StatusRefunded:            nil,
	StatusPaymentFailed:       nil,
}

// IsKnown reports whether the status is part of the catalog.
func (s Status) IsKnown() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// normalizeStatusLabel canonicalizes status labels supplied by callers.
func normalizeStatusLabel(value string) (Status, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return StatusUnspecified, false
	}
	candidate := Status(strings.ToUpper(trimmed))
	if !candidate.IsKnown() {
		return StatusUnspecified, false
	}
	return candidate, true
}

// isStatusTransitionAllowed consults the adjacency table.
func isStatusTransitionAllowed(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition reports whether moving from one status to another is
// permitted. It is pure and stateless: the same pair always yields the same
// verdict.
func ValidateTransition(from, to Status) error {
	if !to.IsKnown() {
		return apperrors.WithMetadata(apperrors.CodeStatusUnknown,
			"order status is not in the catalog", map[string]string{"status": string(to)})
	}
	if isStatusTransitionAllowed(from, to) {
		return nil
	}
	return apperrors.WithMetadata(apperrors.CodeIllegalTransition,
		"order status transition is not allowed", map[string]string{
			"from": string(from),
			"to":   string(to),
		})
}
