package encoding

import (
	"testing"
)

func TestCanonicalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{
			name:  "simple object sorted keys",
			input: map[string]any{"z": 1, "a": 2, "m": 3},
			want:  `{"a":2,"m":3,"z":1}`,
		},
		{
			name:  "nested object sorted keys",
			input: map[string]any{"b": map[string]any{"d": 1, "c": 2}, "a": 3},
			want:  `{"a":3,"b":{"c":2,"d":1}}`,
		},
		{
			name:  "array preserved order",
			input: []any{3, 1, 2},
			want:  `[3,1,2]`,
		},
		{
			name: "order payload structure",
			input: map[string]any{
				"order_id":    "ord_123",
				"event_type":  "order.created",
				"customer_id": "cus_9",
				"payload": map[string]any{
					"currency": "USD",
					"items":    []any{map[string]any{"sku": "SKU-1", "quantity": 2}},
				},
			},
			want: `{"customer_id":"cus_9","event_type":"order.created","order_id":"ord_123","payload":{"currency":"USD","items":[{"quantity":2,"sku":"SKU-1"}]}}`,
		},
		{
			name:  "no html escaping",
			input: map[string]any{"url": "https://example.com?a=1&b=2"},
			want:  `{"url":"https://example.com?a=1&b=2"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalJSON(tt.input)
			if err != nil {
				t.Fatalf("CanonicalJSON() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("CanonicalJSON() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestContentHashStable(t *testing.T) {
	a := map[string]any{"sku": "SKU-1", "quantity": 2}
	b := map[string]any{"quantity": 2, "sku": "SKU-1"}

	hashA, err := ContentHash(a)
	if err != nil {
		t.Fatalf("ContentHash() error = %v", err)
	}
	hashB, err := ContentHash(b)
	if err != nil {
		t.Fatalf("ContentHash() error = %v", err)
	}
	if hashA != hashB {
		t.Errorf("hashes differ for equal documents: %s vs %s", hashA, hashB)
	}
	if len(hashA) != 32 {
		t.Errorf("hash length = %d, want 32", len(hashA))
	}
}

func TestContentHashDiffers(t *testing.T) {
	hashA, err := ContentHash(map[string]any{"sku": "SKU-1"})
	if err != nil {
		t.Fatalf("ContentHash() error = %v", err)
	}
	hashB, err := ContentHash(map[string]any{"sku": "SKU-2"})
	if err != nil {
		t.Fatalf("ContentHash() error = %v", err)
	}
	if hashA == hashB {
		t.Error("expected different hashes for different documents")
	}
}
