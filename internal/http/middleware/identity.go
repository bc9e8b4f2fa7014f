// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the caller's account identity. Authentication lives in
// front of this service; the gateway forwards the authenticated account in
// the X-User-ID header, which is copied into the Gin context so handlers,
// loggers, and rate limiters agree on one value.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderAccountID carries the authenticated account id.
	HeaderAccountID = "X-User-ID"
	// AccountIDKey is the Gin context key holding the account id.
	AccountIDKey = "accountID"
)

// Identity copies X-User-ID into the Gin context. An identity already set by
// upstream middleware wins.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if AccountIDFrom(c) == "" {
			if id := strings.TrimSpace(c.GetHeader(HeaderAccountID)); id != "" {
				c.Set(AccountIDKey, id)
			}
		}
		c.Next()
	}
}

// AccountIDFrom returns the caller's account id, or "" when anonymous.
func AccountIDFrom(c *gin.Context) string {
	if v, ok := c.Get(AccountIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// abortWithCode writes the standard error envelope and stops the chain.
func abortWithCode(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
	})
}
