package command

import (
	"encoding/json"
	"errors"
	"testing"

	apperrors "github.com/louisbranch/ordercore/internal/platform/errors"
)

func TestRegistryValidateForDecision_MissingOrderID(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(Definition{Type: Type("order.create")}); err != nil {
		t.Fatalf("register type: %v", err)
	}

	cmd := Command{
		Type:        Type("order.create"),
		ActorType:   ActorTypeSystem,
		PayloadJSON: []byte("{}"),
	}

	_, err := registry.ValidateForDecision(cmd)
	if err == nil {
		t.Fatal("expected error")
	}
	if !apperrors.IsCode(err, apperrors.CodeOrderIDRequired) {
		t.Fatalf("expected CodeOrderIDRequired, got %v", err)
	}
}

func TestRegistryValidateForDecision_UnknownType(t *testing.T) {
	registry := NewRegistry()

	cmd := Command{
		OrderID:     "ord-1",
		Type:        Type("unknown.command"),
		ActorType:   ActorTypeSystem,
		PayloadJSON: []byte("{}"),
	}

	_, err := registry.ValidateForDecision(cmd)
	if err == nil {
		t.Fatal("expected error")
	}
	if !apperrors.IsCode(err, apperrors.CodeCommandTypeUnknown) {
		t.Fatalf("expected CodeCommandTypeUnknown, got %v", err)
	}
}

func TestRegistryValidateForDecision_CustomerRequiresActorID(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(Definition{Type: Type("order.cancel")}); err != nil {
		t.Fatalf("register type: %v", err)
	}

	cmd := Command{
		OrderID:     "ord-1",
		Type:        Type("order.cancel"),
		ActorType:   ActorTypeCustomer,
		PayloadJSON: []byte("{}"),
	}

	_, err := registry.ValidateForDecision(cmd)
	if err == nil {
		t.Fatal("expected error")
	}
	if !apperrors.IsCode(err, apperrors.CodeCommandPayloadInvalid) {
		t.Fatalf("expected CodeCommandPayloadInvalid, got %v", err)
	}
}

func TestRegistryValidateForDecision_DefaultsAndCanonicalPayload(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(Definition{Type: Type("order.create")}); err != nil {
		t.Fatalf("register type: %v", err)
	}

	cmd := Command{
		OrderID:     "  ord-1  ",
		Type:        Type(" order.create "),
		PayloadJSON: []byte(`{"z": 1, "a": 2}`),
	}

	normalized, err := registry.ValidateForDecision(cmd)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if normalized.OrderID != "ord-1" {
		t.Fatalf("order id = %q, want ord-1", normalized.OrderID)
	}
	if normalized.ActorType != ActorTypeSystem {
		t.Fatalf("actor type = %q, want system", normalized.ActorType)
	}
	if got := string(normalized.PayloadJSON); got != `{"a":2,"z":1}` {
		t.Fatalf("payload = %s, want canonical form", got)
	}
}

func TestRegistryValidateForDecision_EmptyPayloadBecomesObject(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(Definition{Type: Type("order.create")}); err != nil {
		t.Fatalf("register type: %v", err)
	}

	normalized, err := registry.ValidateForDecision(Command{
		OrderID: "ord-1",
		Type:    Type("order.create"),
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if string(normalized.PayloadJSON) != "{}" {
		t.Fatalf("payload = %s, want {}", normalized.PayloadJSON)
	}
}

func TestRegistryValidateForDecision_MalformedPayload(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(Definition{Type: Type("order.create")}); err != nil {
		t.Fatalf("register type: %v", err)
	}

	_, err := registry.ValidateForDecision(Command{
		OrderID:     "ord-1",
		Type:        Type("order.create"),
		PayloadJSON: []byte("{not json"),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !apperrors.IsCode(err, apperrors.CodeCommandPayloadInvalid) {
		t.Fatalf("expected CodeCommandPayloadInvalid, got %v", err)
	}
}

func TestRegistryValidateForDecision_PayloadValidatorRuns(t *testing.T) {
	wantErr := errors.New("amount required")
	registry := NewRegistry()
	if err := registry.Register(Definition{
		Type: Type("order.record_payment"),
		ValidatePayload: func(raw json.RawMessage) error {
			return wantErr
		},
	}); err != nil {
		t.Fatalf("register type: %v", err)
	}

	_, err := registry.ValidateForDecision(Command{
		OrderID:     "ord-1",
		Type:        Type("order.record_payment"),
		PayloadJSON: []byte("{}"),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped validator error, got %v", err)
	}
}

func TestRegistryRegister_Duplicate(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(Definition{Type: Type("order.create")}); err != nil {
		t.Fatalf("register type: %v", err)
	}
	if err := registry.Register(Definition{Type: Type("order.create")}); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestRegistryListDefinitions_Sorted(t *testing.T) {
	registry := NewRegistry()
	for _, name := range []string{"order.cancel", "order.create", "order.add_items"} {
		if err := registry.Register(Definition{Type: Type(name)}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	defs := registry.ListDefinitions()
	if len(defs) != 3 {
		t.Fatalf("got %d definitions, want 3", len(defs))
	}
	want := []Type{"order.add_items", "order.cancel", "order.create"}
	for i, def := range defs {
		if def.Type != want[i] {
			t.Fatalf("definition %d = %s, want %s", i, def.Type, want[i])
		}
	}
}
