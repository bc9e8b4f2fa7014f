// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file guards the X-Test-* override headers. They let automated tests
// force a combat result, a prestige delta, or skip cooldowns, so outside an
// explicit test environment any request carrying one is rejected outright
// rather than silently ignored.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Test override headers.
const (
	HeaderTestForceResult     = "X-Test-Force-Result"
	HeaderTestForceDelta      = "X-Test-Force-Delta"
	HeaderTestIgnoreCooldowns = "X-Test-Ignore-Cooldowns"
)

const codeTestHeadersForbidden = "TEST_HEADERS_FORBIDDEN"

// testHeaderPrefix matches every override header, including ones added later.
const testHeaderPrefix = "X-Test-"

// TestHeaderGuard rejects requests carrying X-Test-* headers unless enabled.
func TestHeaderGuard(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled && HasTestHeaders(c.Request) {
			abortWithCode(c, http.StatusBadRequest, codeTestHeadersForbidden,
				"test headers are not allowed outside test mode")
			return
		}
		c.Next()
	}
}

// HasTestHeaders reports whether r carries any X-Test-* header.
func HasTestHeaders(r *http.Request) bool {
	for k := range r.Header {
		if len(k) >= len(testHeaderPrefix) && strings.EqualFold(k[:len(testHeaderPrefix)], testHeaderPrefix) {
			return true
		}
	}
	return false
}
