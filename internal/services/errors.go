// Package services defines the business logic of the PvP engine: the attack
// transaction, daily limits, the battle log reader, and the nightly decay
// job. This file centralizes the coded error type returned by service
// methods.
//
// Every rejection carries a stable machine-readable Code so clients can show
// the right cooldown timer, cap notice, or training prompt. Translation into
// HTTP status codes happens in the handler layer via Code.Kind.
package services

import (
	"fmt"
	"time"
)

// Code is a stable, machine-readable rejection code.
type Code string

const (
	CodeValidation            Code = "VALIDATION_ERROR"
	CodeUnauthenticated       Code = "UNAUTHENTICATED"
	CodeSelfAttack            Code = "SELF_ATTACK"
	CodeMissingIdempotencyKey Code = "MISSING_IDEMPOTENCY_KEY"
	CodeInvalidIdempotencyKey Code = "INVALID_IDEMPOTENCY_KEY"
	CodeInvalidCursor         Code = "INVALID_CURSOR"
	CodeInvalidLimit          Code = "INVALID_LIMIT"
	CodeTestHeadersForbidden  Code = "TEST_HEADERS_FORBIDDEN"
	CodeDefenderNotFound      Code = "DEFENDER_NOT_FOUND"
	CodeAttackerNotFound      Code = "ATTACKER_NOT_FOUND"
	CodeInsufficientArmy      Code = "INSUFFICIENT_ARMY"
	CodeGlobalCooldown        Code = "GLOBAL_COOLDOWN"
	CodeTargetCooldown        Code = "TARGET_COOLDOWN"
	CodeDailyAttackLimit      Code = "DAILY_ATTACK_LIMIT"
	CodeIdempotencyConflict   Code = "IDEMPOTENCY_CONFLICT"
	CodeInternal              Code = "INTERNAL_ERROR"
)

// Kind groups codes by how a client should react.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindNotFound
	KindRateLimited
	KindInsufficientResources
	KindConflict
)

// Kind classifies the code.
func (c Code) Kind() Kind {
	switch c {
	case CodeValidation, CodeSelfAttack, CodeMissingIdempotencyKey, CodeInvalidIdempotencyKey,
		CodeInvalidCursor, CodeInvalidLimit, CodeTestHeadersForbidden:
		return KindValidation
	case CodeUnauthenticated:
		return KindUnauthenticated
	case CodeDefenderNotFound, CodeAttackerNotFound:
		return KindNotFound
	case CodeGlobalCooldown, CodeTargetCooldown, CodeDailyAttackLimit:
		return KindRateLimited
	case CodeInsufficientArmy:
		return KindInsufficientResources
	case CodeIdempotencyConflict:
		return KindConflict
	}
	return KindInternal
}

// Error is a coded service error.
type Error struct {
	Code    Code
	Message string
	// RetryAfter is set on rate-limit rejections and conflicts.
	RetryAfter time.Duration
	// AvailableAt is when a rate-limited action becomes possible again.
	AvailableAt *time.Time
	Cause       error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return string(e.Code) + ": " + e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// newError builds a coded error.
func newError(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// wrapInternal hides a storage or programming failure behind INTERNAL_ERROR.
func wrapInternal(msg string, cause error) *Error {
	return &Error{Code: CodeInternal, Message: msg, Cause: cause}
}

// rateLimited builds a cooldown or cap rejection that expires at until.
func rateLimited(code Code, msg string, now, until time.Time) *Error {
	wait := until.Sub(now)
	if wait < time.Second {
		wait = time.Second
	}
	u := until
	return &Error{Code: code, Message: msg, RetryAfter: wait, AvailableAt: &u}
}

// Sentinels for errors.Is checks. Returned errors may carry more detail.
var (
	ErrValidation          = newError(CodeValidation, "invalid request")
	ErrUnauthenticated     = newError(CodeUnauthenticated, "missing account identity")
	ErrSelfAttack          = newError(CodeSelfAttack, "cannot attack yourself")
	ErrMissingIdemKey      = newError(CodeMissingIdempotencyKey, "Idempotency-Key header is required")
	ErrInvalidIdemKey      = newError(CodeInvalidIdempotencyKey, "invalid Idempotency-Key")
	ErrInvalidCursor       = newError(CodeInvalidCursor, "invalid cursor")
	ErrInvalidLimit        = newError(CodeInvalidLimit, "limit must be between 1 and 50")
	ErrTestHeaders         = newError(CodeTestHeadersForbidden, "test headers are not allowed outside test mode")
	ErrDefenderNotFound    = newError(CodeDefenderNotFound, "defender not found")
	ErrAttackerNotFound    = newError(CodeAttackerNotFound, "attacker not found")
	ErrInsufficientArmy    = newError(CodeInsufficientArmy, "train more units in barracks to attack")
	ErrGlobalCooldown      = newError(CodeGlobalCooldown, "global attack cooldown")
	ErrTargetCooldown      = newError(CodeTargetCooldown, "target on cooldown")
	ErrDailyAttackLimit    = newError(CodeDailyAttackLimit, "daily attack limit reached")
	ErrIdempotencyConflict = newError(CodeIdempotencyConflict, "request with this Idempotency-Key is in progress")
)
