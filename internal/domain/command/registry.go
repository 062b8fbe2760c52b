package command

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/louisbranch/ordercore/internal/platform/encoding"
	apperrors "github.com/louisbranch/ordercore/internal/platform/errors"
)

// Type identifies the command type string.
type Type string

// ActorType identifies the actor who initiated the command.
type ActorType string

const (
	// ActorTypeSystem indicates a system-originated command.
	ActorTypeSystem ActorType = "system"
	// ActorTypeCustomer indicates a customer-originated command.
	ActorTypeCustomer ActorType = "customer"
	// ActorTypeService indicates a command reported by a collaborating
	// service (payment, inventory, shipping).
	ActorTypeService ActorType = "service"
)

// Command captures the canonical command envelope.
type Command struct {
	OrderID       string
	Type          Type
	ActorType     ActorType
	ActorID       string
	RequestID     string
	CorrelationID string
	CausationID   string
	PayloadJSON   []byte
}

// PayloadValidator validates a payload JSON document.
type PayloadValidator func(json.RawMessage) error

// Definition registers metadata for a command type.
type Definition struct {
	Type            Type
	ValidatePayload PayloadValidator
}

// Registry stores command definitions and validates commands.
type Registry struct {
	definitions map[Type]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{definitions: make(map[Type]Definition)}
}

// Register adds a new command type definition to the registry.
func (r *Registry) Register(def Definition) error {
	if r == nil {
		return apperrors.New(apperrors.CodeUnknown, "registry is required")
	}
	def.Type = Type(strings.TrimSpace(string(def.Type)))
	if def.Type == "" {
		return apperrors.New(apperrors.CodeCommandTypeUnknown, "command type is required")
	}
	if r.definitions == nil {
		r.definitions = make(map[Type]Definition)
	}
	if _, exists := r.definitions[def.Type]; exists {
		return apperrors.WithMetadata(apperrors.CodeCommandTypeUnknown,
			"command type already registered", map[string]string{"type": string(def.Type)})
	}
	r.definitions[def.Type] = def
	return nil
}

// ValidateForDecision validates and normalizes a command before decision
// handling. The payload is canonicalized so that retries of the same intent
// carry byte-identical payloads.
func (r *Registry) ValidateForDecision(cmd Command) (Command, error) {
	cmd.OrderID = strings.TrimSpace(cmd.OrderID)
	if cmd.OrderID == "" {
		return Command{}, apperrors.New(apperrors.CodeOrderIDRequired, "order id is required")
	}
	cmd.Type = Type(strings.TrimSpace(string(cmd.Type)))
	if cmd.Type == "" {
		return Command{}, apperrors.New(apperrors.CodeCommandTypeUnknown, "command type is required")
	}
	def, ok := r.definitions[cmd.Type]
	if !ok {
		return Command{}, apperrors.WithMetadata(apperrors.CodeCommandTypeUnknown,
			"command type is not registered", map[string]string{"type": string(cmd.Type)})
	}

	cmd.ActorType = ActorType(strings.TrimSpace(string(cmd.ActorType)))
	if cmd.ActorType == "" {
		cmd.ActorType = ActorTypeSystem
	}
	switch cmd.ActorType {
	case ActorTypeSystem, ActorTypeCustomer, ActorTypeService:
		// allowed
	default:
		return Command{}, apperrors.WithMetadata(apperrors.CodeCommandPayloadInvalid,
			"actor type is invalid", map[string]string{"actor_type": string(cmd.ActorType)})
	}
	cmd.ActorID = strings.TrimSpace(cmd.ActorID)
	if cmd.ActorType == ActorTypeCustomer && cmd.ActorID == "" {
		return Command{}, apperrors.New(apperrors.CodeCommandPayloadInvalid,
			"actor id is required for customer commands")
	}

	if len(cmd.PayloadJSON) == 0 {
		cmd.PayloadJSON = []byte("{}")
	}
	if !json.Valid(cmd.PayloadJSON) {
		return Command{}, apperrors.New(apperrors.CodeCommandPayloadInvalid, "payload json must be valid")
	}

	canonical, err := encoding.CanonicalJSON(json.RawMessage(cmd.PayloadJSON))
	if err != nil {
		return Command{}, fmt.Errorf("canonical payload json: %w", err)
	}
	cmd.PayloadJSON = canonical
	if def.ValidatePayload != nil {
		if err := def.ValidatePayload(json.RawMessage(cmd.PayloadJSON)); err != nil {
			return Command{}, apperrors.Wrap(apperrors.CodeCommandPayloadInvalid, "payload invalid", err)
		}
	}
	return cmd, nil
}

// Definition returns the command definition for a given type.
func (r *Registry) Definition(cmdType Type) (Definition, bool) {
	if r == nil {
		return Definition{}, false
	}
	cmdType = Type(strings.TrimSpace(string(cmdType)))
	if cmdType == "" {
		return Definition{}, false
	}
	def, ok := r.definitions[cmdType]
	return def, ok
}

// ListDefinitions returns a stable, sorted snapshot of registered definitions.
func (r *Registry) ListDefinitions() []Definition {
	if r == nil || len(r.definitions) == 0 {
		return nil
	}
	definitions := make([]Definition, 0, len(r.definitions))
	for _, definition := range r.definitions {
		definitions = append(definitions, definition)
	}
	sort.Slice(definitions, func(i, j int) bool {
		return string(definitions[i].Type) < string(definitions[j].Type)
	})
	return definitions
}
