package event

import (
	"encoding/json"
	"strings"
	"time"

	apperrors "github.com/louisbranch/ordercore/internal/platform/errors"
)

// PayloadValidator validates a payload JSON document for one event type.
type PayloadValidator func(json.RawMessage) error

// Definition registers metadata for an event type.
type Definition struct {
	Type            Type
	ValidatePayload PayloadValidator
}

// Registry stores event definitions and validates events before append.
// Persistence rejects any event whose type is not registered, keeping the
// journal a closed enumeration.
type Registry struct {
	definitions map[Type]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{definitions: make(map[Type]Definition)}
}

// Register adds a new event type definition to the registry.
func (r *Registry) Register(def Definition) error {
	if r == nil {
		return apperrors.New(apperrors.CodeUnknown, "registry is required")
	}
	def.Type = Type(strings.TrimSpace(string(def.Type)))
	if def.Type == "" {
		return apperrors.New(apperrors.CodeEventTypeUnknown, "event type is required")
	}
	if r.definitions == nil {
		r.definitions = make(map[Type]Definition)
	}
	if _, exists := r.definitions[def.Type]; exists {
		return apperrors.WithMetadata(apperrors.CodeEventTypeUnknown,
			"event type already registered", map[string]string{"type": string(def.Type)})
	}
	r.definitions[def.Type] = def
	return nil
}

// Known reports whether the event type is registered.
func (r *Registry) Known(t Type) bool {
	if r == nil {
		return false
	}
	_, ok := r.definitions[Type(strings.TrimSpace(string(t)))]
	return ok
}

// ValidateForAppend validates and normalizes an event before persistence.
func (r *Registry) ValidateForAppend(evt Event) (Event, error) {
	evt.OrderID = strings.TrimSpace(evt.OrderID)
	if evt.OrderID == "" {
		return Event{}, apperrors.New(apperrors.CodeOrderIDRequired, "order id is required")
	}
	evt.Type = Type(strings.TrimSpace(string(evt.Type)))
	def, ok := r.definitions[evt.Type]
	if !ok {
		return Event{}, apperrors.WithMetadata(apperrors.CodeEventTypeUnknown,
			"event type is not registered", map[string]string{"type": string(evt.Type)})
	}

	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	evt.Timestamp = evt.Timestamp.UTC().Truncate(time.Millisecond)

	if evt.ActorType == "" {
		evt.ActorType = ActorTypeSystem
	}

	if len(evt.PayloadJSON) == 0 {
		evt.PayloadJSON = []byte("{}")
	}
	if !json.Valid(evt.PayloadJSON) {
		return Event{}, apperrors.New(apperrors.CodeEventPayloadInvalid, "payload json must be valid")
	}
	if def.ValidatePayload != nil {
		if err := def.ValidatePayload(json.RawMessage(evt.PayloadJSON)); err != nil {
			return Event{}, apperrors.Wrap(apperrors.CodeEventPayloadInvalid, "payload invalid", err)
		}
	}
	return evt, nil
}
