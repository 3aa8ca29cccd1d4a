package memory

import (
	"context"
	"testing"

	"github.com/sheriffdata/gazette-etl/internal/auction"
)

// TestSinkRoundTrip covers upsert, lookup, and replacement.
func TestSinkRoundTrip(t *testing.T) {
	t.Parallel()

	sink := New()
	ctx := context.Background()

	if err := sink.Upsert(ctx, "1/2024", auction.Fields{"province": "Gauteng"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := sink.Upsert(ctx, "1/2024", auction.Fields{"province": "Limpopo"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if sink.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", sink.Len())
	}
	fields, ok := sink.Get("1/2024")
	if !ok || fields["province"] != "Limpopo" {
		t.Fatalf("Get() = %v, %v", fields, ok)
	}

	existing, err := sink.ExistingKeys(ctx, []string{"1/2024", "2/2024"})
	if err != nil {
		t.Fatalf("ExistingKeys() error = %v", err)
	}
	if len(existing) != 1 {
		t.Fatalf("existing = %v, want 1 key", existing)
	}
}
