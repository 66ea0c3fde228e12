package whitelist

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type fakeStore struct {
	active map[string]bool
	err    error
	calls  []string
}

func (f *fakeStore) IsActive(_ context.Context, email string) (bool, error) {
	f.calls = append(f.calls, email)
	if f.err != nil {
		return false, f.err
	}
	return f.active[email], nil
}

func TestIsWhitelisted(t *testing.T) {
	t.Parallel()
	store := &fakeStore{active: map[string]bool{"alice@example.com": true, "bob@example.com": false}}
	c := NewChecker(store, nil, 0, zap.NewNop())
	ctx := context.Background()

	tests := []struct {
		email string
		want  bool
	}{
		{" Alice@Example.com ", true},
		{"bob@example.com", false},
		{"carol@example.com", false},
		{"   ", false},
	}
	for _, tt := range tests {
		if got := c.IsWhitelisted(ctx, tt.email); got != tt.want {
			t.Fatalf("IsWhitelisted(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}
	if store.calls[0] != "alice@example.com" {
		t.Fatalf("store saw %q, want normalized email", store.calls[0])
	}
	if len(store.calls) != 3 {
		t.Fatalf("store calls = %d, want 3 (blank email skips the store)", len(store.calls))
	}
}

func TestIsWhitelistedFailsClosed(t *testing.T) {
	t.Parallel()
	store := &fakeStore{active: map[string]bool{"alice@example.com": true}, err: errors.New("db down")}
	c := NewChecker(store, nil, 0, zap.NewNop())
	if c.IsWhitelisted(context.Background(), "alice@example.com") {
		t.Fatal("IsWhitelisted = true on store error, want false")
	}
	c.Invalidate(context.Background(), "alice@example.com")
}
