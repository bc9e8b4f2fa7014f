// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the transport half of attack idempotency. It checks
// the Idempotency-Key header's byte length, stashes
// the key for the handler, and asks a lookup whether the ledger already holds
// a completed answer for (account, key). Replays are flagged so the edge rate
// limiter lets them through: answering a retry never costs a token.
//
// Serving the stored bytes is the attack service's job; this middleware only
// annotates the request.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header carrying the client's opaque
// idempotency key.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotencyReplayed is set on responses served from the ledger.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

// Context keys used internally to stash idempotency state.
const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
)

// codeInvalidIdemKey matches the attack service's code for oversized keys.
const codeInvalidIdemKey = "INVALID_IDEMPOTENCY_KEY"

// GetIdempotencyKey returns the key stored by IdempotencyKey.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the ledger already answered this (account, key).
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// IdempotencyOptions configures IdempotencyKey.
type IdempotencyOptions struct {
	// MaxLen caps the key in bytes. Values <= 0 default to 64.
	MaxLen int
}

// ReplayLookup reports whether a completed response is stored for
// (accountID, key). Errors never block the request.
type ReplayLookup func(ctx context.Context, accountID, key string) (bool, error)

// IdempotencyKey validates and stashes the Idempotency-Key header.
//
// Behavior:
//   - Missing header: no-op. The attack service reports it after identity
//     checks.
//   - Longer than MaxLen bytes: 400 INVALID_IDEMPOTENCY_KEY.
//   - Known completed key: marks the request as a replay and exempts it from
//     rate limiting.
func IdempotencyKey(opts IdempotencyOptions, lookup ReplayLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 64
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if strings.TrimSpace(key) == "" {
			c.Next()
			return
		}
		if len(key) > maxLen {
			abortWithCode(c, http.StatusBadRequest, codeInvalidIdemKey, "invalid Idempotency-Key")
			return
		}

		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			if acct := AccountIDFrom(c); acct != "" {
				if done, _ := lookup(c.Request.Context(), acct, key); done {
					c.Set(ctxKeyIdemReplay, true)
					c.Set(ctxKeyRateBypass, true)
				}
			}
		}

		c.Next()
	}
}
