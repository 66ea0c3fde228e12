// Package whitelist answers whether an email may reserve a slot.  Answers
// are cached in Redis when a client is available; any failure denies.
package whitelist

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Store is the authoritative whitelist.
type Store interface {
	IsActive(ctx context.Context, email string) (bool, error)
}

const keyPrefix = "wl:"

// Checker is a fail-closed whitelist predicate.
type Checker struct {
	store Store
	rdb   *redis.Client
	ttl   time.Duration
	log   *zap.Logger
}

// NewChecker returns a Checker over store.  rdb may be nil, in which case
// every check reads the store.
func NewChecker(store Store, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *Checker {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Checker{store: store, rdb: rdb, ttl: ttl, log: log.Named("whitelist")}
}

func normalize(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// IsWhitelisted reports whether email is an active whitelist entry.  Store
// errors are logged and reported as false.
func (c *Checker) IsWhitelisted(ctx context.Context, email string) bool {
	email = normalize(email)
	if email == "" {
		return false
	}
	key := keyPrefix + email
	if c.rdb != nil {
		if v, err := c.rdb.Get(ctx, key).Result(); err == nil {
			return v == "1"
		}
	}
	ok, err := c.store.IsActive(ctx, email)
	if err != nil {
		c.log.Warn("whitelist lookup failed", zap.String("email", email), zap.Error(err))
		return false
	}
	if c.rdb != nil {
		val := "0"
		if ok {
			val = "1"
		}
		_ = c.rdb.Set(ctx, key, val, c.ttl).Err()
	}
	return ok
}

// Invalidate drops the cached answer for email after an admin change.
func (c *Checker) Invalidate(ctx context.Context, email string) {
	if c.rdb == nil {
		return
	}
	_ = c.rdb.Del(ctx, keyPrefix+normalize(email)).Err()
}
