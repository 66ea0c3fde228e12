package identity

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestVerifyAcceptsValidToken(t *testing.T) {
	t.Parallel()
	v := NewVerifier(testSecret)
	raw := sign(t, testSecret, jwt.MapClaims{
		"sub":   "u1",
		"email": "  Alice@Example.COM ",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	claims, err := v.Verify(raw)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Email != "alice@example.com" {
		t.Fatalf("email = %q, want %q", claims.Email, "alice@example.com")
	}
	if claims.Subject != "u1" {
		t.Fatalf("subject = %q, want %q", claims.Subject, "u1")
	}
}

func TestVerifyRejects(t *testing.T) {
	t.Parallel()
	future := time.Now().Add(time.Hour).Unix()
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"wrong secret", sign(t, "other", jwt.MapClaims{"email": "a@b.c", "exp": future}), ErrInvalidToken},
		{"expired", sign(t, testSecret, jwt.MapClaims{"email": "a@b.c", "exp": time.Now().Add(-time.Hour).Unix()}), ErrInvalidToken},
		{"no expiry", sign(t, testSecret, jwt.MapClaims{"email": "a@b.c"}), ErrInvalidToken},
		{"garbage", "not-a-token", ErrInvalidToken},
		{"no email", sign(t, testSecret, jwt.MapClaims{"sub": "u1", "exp": future}), ErrMissingEmail},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewVerifier(testSecret).Verify(tt.raw)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOnStateChangeUnsubscribe(t *testing.T) {
	t.Parallel()
	v := NewVerifier(testSecret)
	var got []Event
	unsubscribe := v.OnStateChange(func(ev Event) { got = append(got, ev) })

	raw := sign(t, testSecret, jwt.MapClaims{"email": "a@b.c", "exp": time.Now().Add(time.Hour).Unix()})
	if _, err := v.Verify(raw); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	_, _ = v.Verify("bad")
	if len(got) != 2 {
		t.Fatalf("events = %d, want 2", len(got))
	}
	if got[0].Kind != EventVerified || got[0].Email != "a@b.c" {
		t.Fatalf("first event = %+v, want verified a@b.c", got[0])
	}
	if got[1].Kind != EventRejected {
		t.Fatalf("second event kind = %v, want rejected", got[1].Kind)
	}

	unsubscribe()
	unsubscribe()
	_, _ = v.Verify(raw)
	if len(got) != 2 {
		t.Fatalf("events after unsubscribe = %d, want 2", len(got))
	}
}
