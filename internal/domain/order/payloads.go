package order

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/louisbranch/ordercore/internal/domain/event"
	apperrors "github.com/louisbranch/ordercore/internal/platform/errors"
)

// LineItem is one orderable entry. Money is integer minor units (cents) to
// keep folds exact.
type LineItem struct {
	SKU            string `json:"sku"`
	Name           string `json:"name,omitempty"`
	Quantity       int64  `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// Validate checks the line item fields shared by add and create payloads.
func (li LineItem) Validate() error {
	if strings.TrimSpace(li.SKU) == "" {
		return apperrors.New(apperrors.CodeItemSkuRequired, "line item sku is required")
	}
	if li.Quantity <= 0 {
		return apperrors.WithMetadata(apperrors.CodeItemQuantityInvalid,
			"line item quantity must be positive", map[string]string{"sku": li.SKU})
	}
	if li.UnitPriceCents < 0 {
		return apperrors.WithMetadata(apperrors.CodeItemUnitPriceInvalid,
			"line item unit price must not be negative", map[string]string{"sku": li.SKU})
	}
	return nil
}

// Address is a point-in-time postal snapshot carried inside events.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// CreatedPayload is the payload for order.created.
type CreatedPayload struct {
	CustomerID      string     `json:"customer_id"`
	Currency        string     `json:"currency"`
	Items           []LineItem `json:"items"`
	ShippingAddress *Address   `json:"shipping_address,omitempty"`
	BillingAddress  *Address   `json:"billing_address,omitempty"`
}

// Validate checks the created payload.
func (p CreatedPayload) Validate() error {
	if strings.TrimSpace(p.CustomerID) == "" {
		return apperrors.New(apperrors.CodeCustomerIDRequired, "customer id is required")
	}
	if strings.TrimSpace(p.Currency) == "" {
		return apperrors.New(apperrors.CodeCurrencyRequired, "currency is required")
	}
	if len(p.Items) == 0 {
		return apperrors.New(apperrors.CodeItemQuantityInvalid, "an order needs at least one line item")
	}
	for _, item := range p.Items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ItemsAddedPayload is the payload for order.items_added.
type ItemsAddedPayload struct {
	Items []LineItem `json:"items"`
}

// Validate checks the items added payload.
func (p ItemsAddedPayload) Validate() error {
	if len(p.Items) == 0 {
		return apperrors.New(apperrors.CodeItemQuantityInvalid, "at least one line item is required")
	}
	for _, item := range p.Items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ItemsRemovedPayload is the payload for order.items_removed. Quantities are
// the amounts removed per sku.
type ItemsRemovedPayload struct {
	Items []ItemQuantity `json:"items"`
}

// ItemQuantity references an existing line item by sku.
type ItemQuantity struct {
	SKU      string `json:"sku"`
	Quantity int64  `json:"quantity"`
}

// Validate checks the items removed payload.
func (p ItemsRemovedPayload) Validate() error {
	if len(p.Items) == 0 {
		return apperrors.New(apperrors.CodeItemQuantityInvalid, "at least one line item is required")
	}
	for _, item := range p.Items {
		if strings.TrimSpace(item.SKU) == "" {
			return apperrors.New(apperrors.CodeItemSkuRequired, "line item sku is required")
		}
		if item.Quantity <= 0 {
			return apperrors.WithMetadata(apperrors.CodeItemQuantityInvalid,
				"line item quantity must be positive", map[string]string{"sku": item.SKU})
		}
	}
	return nil
}

// StatusChangedPayload is the payload for order.status_changed.
type StatusChangedPayload struct {
	From   Status `json:"from"`
	To     Status `json:"to"`
	Reason string `json:"reason,omitempty"`
}

// Validate checks the status changed payload against the transition table.
func (p StatusChangedPayload) Validate() error {
	if !p.From.IsKnown() {
		return apperrors.WithMetadata(apperrors.CodeStatusUnknown,
			"order status is not in the catalog", map[string]string{"status": string(p.From)})
	}
	return ValidateTransition(p.From, p.To)
}

// PaymentRecordedPayload is the payload for order.payment_recorded.
type PaymentRecordedPayload struct {
	PaymentID   string `json:"payment_id"`
	AmountCents int64  `json:"amount_cents"`
	Method      string `json:"method,omitempty"`
}

// Validate checks the payment recorded payload.
func (p PaymentRecordedPayload) Validate() error {
	if p.AmountCents <= 0 {
		return apperrors.New(apperrors.CodePaymentAmountInvalid, "payment amount must be positive")
	}
	return nil
}

// ShipmentRecordedPayload is the payload for order.shipment_recorded.
type ShipmentRecordedPayload struct {
	ShipmentID string         `json:"shipment_id"`
	Carrier    string         `json:"carrier,omitempty"`
	Tracking   string         `json:"tracking,omitempty"`
	Items      []ItemQuantity `json:"items"`
}

// Validate checks the shipment recorded payload.
func (p ShipmentRecordedPayload) Validate() error {
	if len(p.Items) == 0 {
		return apperrors.New(apperrors.CodeShipmentItemsInvalid, "a shipment needs at least one item")
	}
	for _, item := range p.Items {
		if strings.TrimSpace(item.SKU) == "" || item.Quantity <= 0 {
			return apperrors.WithMetadata(apperrors.CodeShipmentItemsInvalid,
				"shipment items need a sku and a positive quantity", map[string]string{"sku": item.SKU})
		}
	}
	return nil
}

// CancelledPayload is the payload for order.cancelled.
type CancelledPayload struct {
	Reason string `json:"reason"`
}

// Validate checks the cancelled payload.
func (p CancelledPayload) Validate() error {
	if strings.TrimSpace(p.Reason) == "" {
		return apperrors.New(apperrors.CodeCancelReasonRequired, "cancellation reason is required")
	}
	return nil
}

// RefundRecordedPayload is the payload for order.refund_recorded.
type RefundRecordedPayload struct {
	RefundID    string `json:"refund_id"`
	AmountCents int64  `json:"amount_cents"`
	Reason      string `json:"reason,omitempty"`
}

// Validate checks the refund recorded payload.
func (p RefundRecordedPayload) Validate() error {
	if p.AmountCents <= 0 {
		return apperrors.New(apperrors.CodeRefundAmountInvalid, "refund amount must be positive")
	}
	return nil
}

// RegisterEvents registers the order event catalog, with payload validators,
// on the given registry.
func RegisterEvents(r *event.Registry) error {
	defs := []event.Definition{
		{Type: event.TypeOrderCreated, ValidatePayload: payloadValidator[CreatedPayload]()},
		{Type: event.TypeItemsAdded, ValidatePayload: payloadValidator[ItemsAddedPayload]()},
		{Type: event.TypeItemsRemoved, ValidatePayload: payloadValidator[ItemsRemovedPayload]()},
		{Type: event.TypeStatusChanged, ValidatePayload: payloadValidator[StatusChangedPayload]()},
		{Type: event.TypePaymentRecorded, ValidatePayload: payloadValidator[PaymentRecordedPayload]()},
		{Type: event.TypeShipmentRecorded, ValidatePayload: payloadValidator[ShipmentRecordedPayload]()},
		{Type: event.TypeOrderCancelled, ValidatePayload: payloadValidator[CancelledPayload]()},
		{Type: event.TypeRefundRecorded, ValidatePayload: payloadValidator[RefundRecordedPayload]()},
	}
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			return fmt.Errorf("register %s: %w", def.Type, err)
		}
	}
	return nil
}

type validatable interface {
	Validate() error
}

func payloadValidator[T validatable]() event.PayloadValidator {
	return func(raw json.RawMessage) error {
		var payload T
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return payload.Validate()
	}
}
