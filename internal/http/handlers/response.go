// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response utilities used across all endpoints:
// the error envelope, the mapping from coded service errors to HTTP status,
// and small helpers for success responses.
//
// Conventions:
//   - All error responses return an ErrorResponse with a stable `code`.
//   - `fail()` centralizes error logging and formatting; 5xx responses are
//     logged with request context.
//   - `failErr()` translates service errors (services.Error) by kind and sets
//     Retry-After on rate-limit and conflict rejections.
//
// Example error response:
//
//	HTTP/1.1 429 Too Many Requests
//	Retry-After: 27
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "GLOBAL_COOLDOWN",
//	  "message": "global attack cooldown",
//	  "available_at": "2025-06-10T10:00:30Z"
//	}
package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-pvp-backend/internal/http/middleware"
	"github.com/tbourn/go-pvp-backend/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code
	Code string `json:"code" example:"TARGET_COOLDOWN"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"target on cooldown"`
	// When a rate-limited action becomes available again
	AvailableAt *time.Time `json:"available_at,omitempty" example:"2025-06-10T10:30:00Z"`
}

// fail aborts the request with a structured error. Server errors (>=500) are
// logged using the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	failWith(c, status, ErrorResponse{Code: code, Message: msg})
}

func failWith(c *gin.Context, status int, resp ErrorResponse) {
	resp.RequestID = c.Writer.Header().Get("X-Request-ID")

	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", resp.Code).
			Str("message", resp.Message).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail() for router-level handlers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// statusFor maps an error kind to its HTTP status.
func statusFor(k services.Kind) int {
	switch k {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindUnauthenticated:
		return http.StatusUnauthorized
	case services.KindInsufficientResources:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	case services.KindRateLimited:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// failErr writes err as an ErrorResponse. Uncoded errors become 500
// INTERNAL_ERROR, and internal details never reach the client.
func failErr(c *gin.Context, err error) {
	var se *services.Error
	if !errors.As(err, &se) {
		middleware.LoggerFrom(c).Error().Err(err).Msg("uncoded service error")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
		return
	}

	status := statusFor(se.Code.Kind())
	resp := ErrorResponse{Code: string(se.Code), Message: se.Message, AvailableAt: se.AvailableAt}
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().Err(se.Cause).Str("code", string(se.Code)).Msg("service failure")
		resp.Message = "internal server error"
	}
	if se.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(se.RetryAfter)))
	}
	failWith(c, status, resp)
}

// retryAfterSeconds rounds d up to whole seconds, minimum 1.
func retryAfterSeconds(d time.Duration) int {
	return max(1, int(math.Ceil(d.Seconds())))
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
