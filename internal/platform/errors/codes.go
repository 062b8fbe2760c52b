// Package errors provides structured, coded error handling for the order core.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Command validation errors
	CodeOrderIDRequired        Code = "ORDER_ID_REQUIRED"
	CodeCommandTypeRequired    Code = "COMMAND_TYPE_REQUIRED"
	CodeCommandTypeUnknown     Code = "COMMAND_TYPE_UNKNOWN"
	CodeCommandPayloadInvalid  Code = "COMMAND_PAYLOAD_INVALID"
	CodeItemSkuRequired        Code = "ITEM_SKU_REQUIRED"
	CodeItemQuantityInvalid    Code = "ITEM_QUANTITY_INVALID"
	CodeItemUnitPriceInvalid   Code = "ITEM_UNIT_PRICE_INVALID"
	CodeCustomerIDRequired     Code = "CUSTOMER_ID_REQUIRED"
	CodeCurrencyRequired       Code = "CURRENCY_REQUIRED"
	CodePaymentAmountInvalid   Code = "PAYMENT_AMOUNT_INVALID"
	CodeShipmentItemsInvalid   Code = "SHIPMENT_ITEMS_INVALID"
	CodeRefundAmountInvalid    Code = "REFUND_AMOUNT_INVALID"
	CodeStatusUnknown          Code = "ORDER_STATUS_UNKNOWN"
	CodeCancelReasonRequired   Code = "ORDER_CANCEL_REASON_REQUIRED"
	CodePayloadDecodeFailed    Code = "PAYLOAD_DECODE_FAILED"
	CodeCommandTypeUnsupported Code = "COMMAND_TYPE_UNSUPPORTED"

	// Domain precondition errors
	CodeOrderAlreadyExists    Code = "ORDER_ALREADY_EXISTS"
	CodeOrderNotCreated       Code = "ORDER_NOT_CREATED"
	CodeIllegalTransition     Code = "ORDER_ILLEGAL_STATUS_TRANSITION"
	CodeOrderStatusTerminal   Code = "ORDER_STATUS_TERMINAL"
	CodeItemsNotInOrder       Code = "ORDER_ITEMS_NOT_IN_ORDER"
	CodeItemsLocked           Code = "ORDER_ITEMS_LOCKED"
	CodeItemsEmpty            Code = "ORDER_ITEMS_EMPTY"
	CodePaymentNotExpected    Code = "ORDER_PAYMENT_NOT_EXPECTED"
	CodeShipmentNotExpected   Code = "ORDER_SHIPMENT_NOT_EXPECTED"
	CodeRefundNotExpected     Code = "ORDER_REFUND_NOT_EXPECTED"
	CodeShipmentExceedsOrder  Code = "ORDER_SHIPMENT_EXCEEDS_ORDER"
	CodeRefundExceedsPayments Code = "ORDER_REFUND_EXCEEDS_PAYMENTS"

	// Command rejection codes raised by the order decider
	CodeOrderPaymentAmountInvalid Code = "ORDER_PAYMENT_AMOUNT_INVALID"
	CodeOrderRefundAmountInvalid  Code = "ORDER_REFUND_AMOUNT_INVALID"
	CodeOrderPayloadInvalid       Code = "ORDER_PAYLOAD_INVALID"

	// Concurrency errors
	CodeConcurrencyConflict Code = "ORDER_CONCURRENCY_CONFLICT"

	// Event errors
	CodeEventTypeUnknown     Code = "EVENT_TYPE_UNKNOWN"
	CodeEventPayloadInvalid  Code = "EVENT_PAYLOAD_INVALID"
	CodeEventSequenceGap     Code = "EVENT_SEQUENCE_GAP"
	CodeEventTimestampSkewed Code = "EVENT_TIMESTAMP_SKEWED"

	// Storage errors
	CodeNotFound         Code = "NOT_FOUND"
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeOrderIDRequired,
		CodeCommandTypeRequired,
		CodeCommandTypeUnknown,
		CodeCommandPayloadInvalid,
		CodeItemSkuRequired,
		CodeItemQuantityInvalid,
		CodeItemUnitPriceInvalid,
		CodeCustomerIDRequired,
		CodeCurrencyRequired,
		CodePaymentAmountInvalid,
		CodeShipmentItemsInvalid,
		CodeRefundAmountInvalid,
		CodeStatusUnknown,
		CodeCancelReasonRequired,
		CodePayloadDecodeFailed,
		CodeCommandTypeUnsupported,
		CodeOrderPaymentAmountInvalid,
		CodeOrderRefundAmountInvalid,
		CodeOrderPayloadInvalid,
		CodeEventTypeUnknown,
		CodeEventPayloadInvalid:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeOrderNotCreated,
		CodeIllegalTransition,
		CodeOrderStatusTerminal,
		CodeItemsNotInOrder,
		CodeItemsLocked,
		CodeItemsEmpty,
		CodePaymentNotExpected,
		CodeShipmentNotExpected,
		CodeRefundNotExpected,
		CodeShipmentExceedsOrder,
		CodeRefundExceedsPayments:
		return codes.FailedPrecondition

	// Aborted - lost an optimistic concurrency race, safe to retry
	case CodeConcurrencyConflict:
		return codes.Aborted

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return codes.NotFound

	// AlreadyExists - unique resource constraint
	case CodeOrderAlreadyExists:
		return codes.AlreadyExists

	// Unavailable - infrastructure failure, nothing was committed
	case CodeStoreUnavailable:
		return codes.Unavailable

	// DataLoss - the journal itself is inconsistent
	case CodeEventSequenceGap,
		CodeEventTimestampSkewed:
		return codes.DataLoss

	default:
		return codes.Internal
	}
}
