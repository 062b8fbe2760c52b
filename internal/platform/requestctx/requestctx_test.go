package requestctx

import (
	"context"
	"testing"
)

func TestActorIDRoundTrip(t *testing.T) {
	ctx := WithActorID(context.Background(), "cus-42")
	if got := ActorIDFromContext(ctx); got != "cus-42" {
		t.Fatalf("ActorIDFromContext = %q, want %q", got, "cus-42")
	}
}

func TestActorIDEmpty(t *testing.T) {
	if got := ActorIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestCorrelationIDRoundTrip(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "req-7")
	if got := CorrelationIDFromContext(ctx); got != "req-7" {
		t.Fatalf("CorrelationIDFromContext = %q, want %q", got, "req-7")
	}
}

func TestNilContext(t *testing.T) {
	if got := ActorIDFromContext(nil); got != "" {
		t.Fatalf("expected empty actor for nil context, got %q", got)
	}
	if got := CorrelationIDFromContext(nil); got != "" {
		t.Fatalf("expected empty correlation for nil context, got %q", got)
	}
	if ctx := WithActorID(nil, "cus-1"); ctx == nil {
		t.Fatal("expected non-nil context")
	}
	if ctx := WithCorrelationID(nil, "req-1"); ctx == nil {
		t.Fatal("expected non-nil context")
	}
}
