// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Transport-level failures (malformed JSON, unknown routes, wrong methods) use
// the generic codes below. Domain rejections reuse the service codes verbatim
// (services.Code), so clients see one stable vocabulary regardless of which
// layer refused the request.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "TARGET_COOLDOWN",
//	  "message": "target on cooldown"
//	}
package handlers

const (
	ErrCodeBadRequest       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeInternal         = "INTERNAL_ERROR"
)
