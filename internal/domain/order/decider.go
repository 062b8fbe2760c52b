package order

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/ordercore/internal/domain/command"
	"github.com/louisbranch/ordercore/internal/domain/event"
	apperrors "github.com/louisbranch/ordercore/internal/platform/errors"
)

const (
	// CommandTypeCreate creates a new order.
	CommandTypeCreate command.Type = "order.create"
	// CommandTypeAddItems adds line items before payment starts.
	CommandTypeAddItems command.Type = "order.add_items"
	// CommandTypeRemoveItems removes line items before payment starts.
	CommandTypeRemoveItems command.Type = "order.remove_items"
	// CommandTypeChangeStatus moves the order through its lifecycle.
	CommandTypeChangeStatus command.Type = "order.change_status"
	// CommandTypeRecordPayment records a payment fact from the payment service.
	CommandTypeRecordPayment command.Type = "order.record_payment"
	// CommandTypeRecordShipment records a shipment fact from the shipping service.
	CommandTypeRecordShipment command.Type = "order.record_shipment"
	// CommandTypeCancel cancels the order.
	CommandTypeCancel command.Type = "order.cancel"
	// CommandTypeRequestRefund opens the refund flow.
	CommandTypeRequestRefund command.Type = "order.request_refund"
	// CommandTypeRecordRefund records a refund fact from the payment service.
	CommandTypeRecordRefund command.Type = "order.record_refund"
)

// Rejection codes surfaced by the order decider.
const (
	rejectionCodeOrderAlreadyExists    = "ORDER_ALREADY_EXISTS"
	rejectionCodeOrderNotCreated       = "ORDER_NOT_CREATED"
	rejectionCodeItemsEmpty            = "ORDER_ITEMS_EMPTY"
	rejectionCodeItemsLocked           = "ORDER_ITEMS_LOCKED"
	rejectionCodeItemsNotInOrder       = "ORDER_ITEMS_NOT_IN_ORDER"
	rejectionCodeStatusUnknown         = "ORDER_STATUS_UNKNOWN"
	rejectionCodeStatusTerminal        = "ORDER_STATUS_TERMINAL"
	rejectionCodeStatusTransition      = "ORDER_ILLEGAL_STATUS_TRANSITION"
	rejectionCodePaymentNotExpected    = "ORDER_PAYMENT_NOT_EXPECTED"
	rejectionCodePaymentAmountInvalid  = "ORDER_PAYMENT_AMOUNT_INVALID"
	rejectionCodeShipmentNotExpected   = "ORDER_SHIPMENT_NOT_EXPECTED"
	rejectionCodeShipmentExceedsOrder  = "ORDER_SHIPMENT_EXCEEDS_ORDER"
	rejectionCodeRefundNotExpected     = "ORDER_REFUND_NOT_EXPECTED"
	rejectionCodeRefundAmountInvalid   = "ORDER_REFUND_AMOUNT_INVALID"
	rejectionCodeRefundExceedsPayments = "ORDER_REFUND_EXCEEDS_PAYMENTS"
	rejectionCodeCancelReasonRequired  = "ORDER_CANCEL_REASON_REQUIRED"
	rejectionCodePayloadInvalid        = "ORDER_PAYLOAD_INVALID"
)

// ChangeStatusPayload is the payload for order.change_status.
type ChangeStatusPayload struct {
	To     string `json:"to"`
	Reason string `json:"reason,omitempty"`
}

// Validate checks the change status payload shape. The transition itself is
// checked by the decider against current state.
func (p ChangeStatusPayload) Validate() error {
	if _, ok := normalizeStatusLabel(p.To); !ok {
		return apperrors.WithMetadata(apperrors.CodeStatusUnknown,
			"order status is not in the catalog", map[string]string{"status": p.To})
	}
	return nil
}

// RequestRefundPayload is the payload for order.request_refund.
type RequestRefundPayload struct {
	Reason string `json:"reason,omitempty"`
}

// Validate always accepts; the reason is optional.
func (p RequestRefundPayload) Validate() error { return nil }

// Decide returns the decision for an order command against current state.
// It is pure: the only clock is the injected now function, and the only
// inputs are the state and the command.
func Decide(state State, cmd command.Command, now func() time.Time) command.Decision {
	if now == nil {
		now = time.Now
	}

	switch cmd.Type {
	case CommandTypeCreate:
		return decideCreate(state, cmd, now)
	case CommandTypeAddItems:
		return decideAddItems(state, cmd, now)
	case CommandTypeRemoveItems:
		return decideRemoveItems(state, cmd, now)
	case CommandTypeChangeStatus:
		return decideChangeStatus(state, cmd, now)
	case CommandTypeRecordPayment:
		return decideRecordPayment(state, cmd, now)
	case CommandTypeRecordShipment:
		return decideRecordShipment(state, cmd, now)
	case CommandTypeCancel:
		return decideCancel(state, cmd, now)
	case CommandTypeRequestRefund:
		return decideRequestRefund(state, cmd, now)
	case CommandTypeRecordRefund:
		return decideRecordRefund(state, cmd, now)
	}

	return command.Reject(command.Rejection{
		Code:    command.RejectionCodeCommandTypeUnsupported,
		Message: fmt.Sprintf("command type %s is not handled by the order decider", cmd.Type),
	})
}

func decideCreate(state State, cmd command.Command, now func() time.Time) command.Decision {
	if state.Exists() {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeOrderAlreadyExists,
			Message: "order already exists",
		})
	}
	var payload CreatedPayload
	if err := json.Unmarshal(cmd.PayloadJSON, &payload); err != nil {
		return rejectDecode(err)
	}
	if err := payload.Validate(); err != nil {
		return command.Reject(command.Rejection{
			Code:    rejectionCodePayloadInvalid,
			Message: err.Error(),
		})
	}

	payload.CustomerID = strings.TrimSpace(payload.CustomerID)
	payload.Currency = strings.ToUpper(strings.TrimSpace(payload.Currency))
	payloadJSON, _ := json.Marshal(payload)

	return command.Accept(command.NewEvent(cmd, event.TypeOrderCreated, payloadJSON, now().UTC()))
}

func decideAddItems(state State, cmd command.Command, now func() time.Time) command.Decision {
	if rejection, ok := requireItemChange(state); !ok {
		return rejection
	}
	var payload ItemsAddedPayload
	if err := json.Unmarshal(cmd.PayloadJSON, &payload); err != nil {
		return rejectDecode(err)
	}
	if err := payload.Validate(); err != nil {
		return command.Reject(command.Rejection{
			Code:    rejectionCodePayloadInvalid,
			Message: err.Error(),
		})
	}
	payloadJSON, _ := json.Marshal(payload)
	return command.Accept(command.NewEvent(cmd, event.TypeItemsAdded, payloadJSON, now().UTC()))
}

func decideRemoveItems(state State, cmd command.Command, now func() time.Time) command.Decision {
	if rejection, ok := requireItemChange(state); !ok {
		return rejection
	}
	var payload ItemsRemovedPayload
	if err := json.Unmarshal(cmd.PayloadJSON, &payload); err != nil {
		return rejectDecode(err)
	}
	if err := payload.Validate(); err != nil {
		return command.Reject(command.Rejection{
			Code:    rejectionCodePayloadInvalid,
			Message: err.Error(),
		})
	}

	ordered := state.OrderedQuantities()
	var removedTotal int64
	for _, item := range payload.Items {
		if ordered[item.SKU] < item.Quantity {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeItemsNotInOrder,
				Message: fmt.Sprintf("order does not hold %d of sku %s", item.Quantity, item.SKU),
			})
		}
		removedTotal += item.Quantity
	}
	var orderedTotal int64
	for _, qty := range ordered {
		orderedTotal += qty
	}
	if removedTotal >= orderedTotal {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeItemsEmpty,
			Message: "removing these items would leave the order empty",
		})
	}

	payloadJSON, _ := json.Marshal(payload)
	return command.Accept(command.NewEvent(cmd, event.TypeItemsRemoved, payloadJSON, now().UTC()))
}

func decideChangeStatus(state State, cmd command.Command, now func() time.Time) command.Decision {
	if !state.Exists() {
		return rejectNotCreated()
	}
	var payload ChangeStatusPayload
	if err := json.Unmarshal(cmd.PayloadJSON, &payload); err != nil {
		return rejectDecode(err)
	}
	to, ok := normalizeStatusLabel(payload.To)
	if !ok {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeStatusUnknown,
			Message: fmt.Sprintf("status %q is not in the catalog", payload.To),
		})
	}
	// Cancellation policy holds regardless of which command requests it.
	payload.Reason = strings.TrimSpace(payload.Reason)
	if to == StatusCancelled && payload.Reason == "" {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeCancelReasonRequired,
			Message: "cancellation reason is required",
		})
	}
	if rejection, ok := requireTransition(state.Status, to); !ok {
		return rejection
	}

	return command.Accept(statusChangeEvent(cmd, state.Status, to, payload.Reason, now().UTC()))
}

func decideRecordPayment(state State, cmd command.Command, now func() time.Time) command.Decision {
	if !state.Exists() {
		return rejectNotCreated()
	}
	var payload PaymentRecordedPayload
	if err := json.Unmarshal(cmd.PayloadJSON, &payload); err != nil {
		return rejectDecode(err)
	}
	if payload.AmountCents <= 0 {
		return command.Reject(command.Rejection{
			Code:    rejectionCodePaymentAmountInvalid,
			Message: "payment amount must be positive",
		})
	}
	current := state.Status
	if current != StatusPendingPayment && current != StatusPaymentProcessing {
		return command.Reject(command.Rejection{
			Code:    rejectionCodePaymentNotExpected,
			Message: fmt.Sprintf("order in status %s does not accept payments", current),
		})
	}

	timestamp := now().UTC()
	var events []event.Event
	if current == StatusPendingPayment {
		events = append(events, statusChangeEvent(cmd, current, StatusPaymentProcessing, "", timestamp))
		current = StatusPaymentProcessing
	}

	payloadJSON, _ := json.Marshal(payload)
	events = append(events, command.NewEvent(cmd, event.TypePaymentRecorded, payloadJSON, timestamp))

	if state.PaidCents()+payload.AmountCents >= state.TotalCents() {
		events = append(events, statusChangeEvent(cmd, current, StatusPaymentCompleted, "", timestamp))
	}
	return command.Accept(events...)
}

func decideRecordShipment(state State, cmd command.Command, now func() time.Time) command.Decision {
	if !state.Exists() {
		return rejectNotCreated()
	}
	var payload ShipmentRecordedPayload
	if err := json.Unmarshal(cmd.PayloadJSON, &payload); err != nil {
		return rejectDecode(err)
	}
	if err := payload.Validate(); err != nil {
		return command.Reject(command.Rejection{
			Code:    rejectionCodePayloadInvalid,
			Message: err.Error(),
		})
	}
	current := state.Status
	if current != StatusProcessing && current != StatusPartiallyShipped {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeShipmentNotExpected,
			Message: fmt.Sprintf("order in status %s does not accept shipments", current),
		})
	}

	ordered := state.OrderedQuantities()
	shipped := state.ShippedQuantities()
	for _, item := range payload.Items {
		if shipped[item.SKU]+item.Quantity > ordered[item.SKU] {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeShipmentExceedsOrder,
				Message: fmt.Sprintf("shipment of sku %s exceeds the ordered quantity", item.SKU),
			})
		}
		shipped[item.SKU] += item.Quantity
	}

	fullyShipped := true
	for sku, qty := range ordered {
		if shipped[sku] < qty {
			fullyShipped = false
			break
		}
	}

	timestamp := now().UTC()
	payloadJSON, _ := json.Marshal(payload)
	events := []event.Event{command.NewEvent(cmd, event.TypeShipmentRecorded, payloadJSON, timestamp)}

	next := StatusPartiallyShipped
	if fullyShipped {
		next = StatusShipped
	}
	if next != current {
		events = append(events, statusChangeEvent(cmd, current, next, "", timestamp))
	}
	return command.Accept(events...)
}

func decideCancel(state State, cmd command.Command, now func() time.Time) command.Decision {
	if !state.Exists() {
		return rejectNotCreated()
	}
	var payload CancelledPayload
	if err := json.Unmarshal(cmd.PayloadJSON, &payload); err != nil {
		return rejectDecode(err)
	}
	payload.Reason = strings.TrimSpace(payload.Reason)
	if payload.Reason == "" {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeCancelReasonRequired,
			Message: "cancellation reason is required",
		})
	}
	if rejection, ok := requireTransition(state.Status, StatusCancelled); !ok {
		return rejection
	}

	payloadJSON, _ := json.Marshal(payload)
	return command.Accept(command.NewEvent(cmd, event.TypeOrderCancelled, payloadJSON, now().UTC()))
}

func decideRequestRefund(state State, cmd command.Command, now func() time.Time) command.Decision {
	if !state.Exists() {
		return rejectNotCreated()
	}
	var payload RequestRefundPayload
	if err := json.Unmarshal(cmd.PayloadJSON, &payload); err != nil {
		return rejectDecode(err)
	}
	if rejection, ok := requireTransition(state.Status, StatusRefundRequested); !ok {
		return rejection
	}
	return command.Accept(statusChangeEvent(cmd, state.Status, StatusRefundRequested, payload.Reason, now().UTC()))
}

func decideRecordRefund(state State, cmd command.Command, now func() time.Time) command.Decision {
	if !state.Exists() {
		return rejectNotCreated()
	}
	var payload RefundRecordedPayload
	if err := json.Unmarshal(cmd.PayloadJSON, &payload); err != nil {
		return rejectDecode(err)
	}
	if payload.AmountCents <= 0 {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeRefundAmountInvalid,
			Message: "refund amount must be positive",
		})
	}
	if state.Status != StatusRefundRequested {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeRefundNotExpected,
			Message: fmt.Sprintf("order in status %s does not accept refunds", state.Status),
		})
	}
	refunded := state.RefundedCents() + payload.AmountCents
	if refunded > state.PaidCents() {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeRefundExceedsPayments,
			Message: "cumulative refunds must not exceed captured payments",
		})
	}

	timestamp := now().UTC()
	payloadJSON, _ := json.Marshal(payload)
	events := []event.Event{command.NewEvent(cmd, event.TypeRefundRecorded, payloadJSON, timestamp)}

	next := StatusPartiallyRefunded
	if refunded == state.PaidCents() {
		next = StatusRefunded
	}
	events = append(events, statusChangeEvent(cmd, state.Status, next, "", timestamp))
	return command.Accept(events...)
}

func statusChangeEvent(cmd command.Command, from, to Status, reason string, timestamp time.Time) event.Event {
	payloadJSON, _ := json.Marshal(StatusChangedPayload{From: from, To: to, Reason: strings.TrimSpace(reason)})
	return command.NewEvent(cmd, event.TypeStatusChanged, payloadJSON, timestamp)
}

func requireItemChange(state State) (command.Decision, bool) {
	if !state.Exists() {
		return rejectNotCreated(), false
	}
	if state.itemsLocked() {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeItemsLocked,
			Message: fmt.Sprintf("line items cannot change in status %s", state.Status),
		}), false
	}
	return command.Decision{}, true
}

func requireTransition(from, to Status) (command.Decision, bool) {
	if from.Terminal() {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeStatusTerminal,
			Message: fmt.Sprintf("order in status %s permits no further transitions", from),
		}), false
	}
	if !isStatusTransitionAllowed(from, to) {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeStatusTransition,
			Message: fmt.Sprintf("transition %s to %s is not allowed", from, to),
		}), false
	}
	return command.Decision{}, true
}

func rejectNotCreated() command.Decision {
	return command.Reject(command.Rejection{
		Code:    rejectionCodeOrderNotCreated,
		Message: "order does not exist",
	})
}

func rejectDecode(err error) command.Decision {
	return command.Reject(command.Rejection{
		Code:    command.RejectionCodePayloadDecodeFailed,
		Message: fmt.Sprintf("decode payload: %v", err),
	})
}

// RegisterCommands registers the order command catalog, with payload
// validators, on the given registry.
func RegisterCommands(r *command.Registry) error {
	defs := []command.Definition{
		{Type: CommandTypeCreate, ValidatePayload: commandPayloadValidator[CreatedPayload]()},
		{Type: CommandTypeAddItems, ValidatePayload: commandPayloadValidator[ItemsAddedPayload]()},
		{Type: CommandTypeRemoveItems, ValidatePayload: commandPayloadValidator[ItemsRemovedPayload]()},
		{Type: CommandTypeChangeStatus, ValidatePayload: commandPayloadValidator[ChangeStatusPayload]()},
		{Type: CommandTypeRecordPayment, ValidatePayload: commandPayloadValidator[PaymentRecordedPayload]()},
		{Type: CommandTypeRecordShipment, ValidatePayload: commandPayloadValidator[ShipmentRecordedPayload]()},
		{Type: CommandTypeCancel, ValidatePayload: commandPayloadValidator[CancelledPayload]()},
		{Type: CommandTypeRequestRefund, ValidatePayload: commandPayloadValidator[RequestRefundPayload]()},
		{Type: CommandTypeRecordRefund, ValidatePayload: commandPayloadValidator[RefundRecordedPayload]()},
	}
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			return fmt.Errorf("register %s: %w", def.Type, err)
		}
	}
	return nil
}

func commandPayloadValidator[T validatable]() command.PayloadValidator {
	return func(raw json.RawMessage) error {
		var payload T
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return payload.Validate()
	}
}
