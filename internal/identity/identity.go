// Package identity verifies bearer tokens issued by the external identity
// provider and exposes the verified email to the rest of the service.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned for malformed, expired or badly signed tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingEmail is returned when a valid token carries no email claim.
	ErrMissingEmail = errors.New("token has no email claim")
)

// Claims is the subset of provider claims the service relies on.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// EventKind classifies an authentication state change.
type EventKind int

const (
	// EventVerified is emitted when a token is accepted.
	EventVerified EventKind = iota
	// EventRejected is emitted when a token fails verification.
	EventRejected
)

func (k EventKind) String() string {
	if k == EventVerified {
		return "verified"
	}
	return "rejected"
}

// Event describes one authentication state change.  Email is empty for
// rejected tokens whose claims could not be read.
type Event struct {
	Kind  EventKind
	Email string
	Err   error
	At    time.Time
}

// Verifier checks HS256 tokens against the shared provider secret.
type Verifier struct {
	secret []byte
	now    func() time.Time

	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
}

// NewVerifier returns a Verifier for secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		now:    time.Now,
		subs:   make(map[int]func(Event)),
	}
}

// Verify parses raw, validates signature and expiry, and returns the
// claims with a normalized email.  Every call emits one Event.
func (v *Verifier) Verify(raw string) (Claims, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(strings.TrimSpace(raw), &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil || !tok.Valid {
		err = fmt.Errorf("%w: %v", ErrInvalidToken, err)
		v.emit(Event{Kind: EventRejected, Err: err, At: v.now()})
		return Claims{}, err
	}
	claims.Email = strings.ToLower(strings.TrimSpace(claims.Email))
	if claims.Email == "" {
		v.emit(Event{Kind: EventRejected, Err: ErrMissingEmail, At: v.now()})
		return Claims{}, ErrMissingEmail
	}
	v.emit(Event{Kind: EventVerified, Email: claims.Email, At: v.now()})
	return claims, nil
}

// OnStateChange registers fn for every subsequent Event and returns a
// function that removes it.  Calling the returned function more than once
// is harmless.
func (v *Verifier) OnStateChange(fn func(Event)) (unsubscribe func()) {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.subs[id] = fn
	v.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.subs, id)
			v.mu.Unlock()
		})
	}
}

func (v *Verifier) emit(ev Event) {
	v.mu.Lock()
	fns := make([]func(Event), 0, len(v.subs))
	for _, fn := range v.subs {
		fns = append(fns, fn)
	}
	v.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
