// PvP HTTP handlers.
//
// This file exposes REST endpoints for player-versus-player combat:
//   - POST /pvp/attack  (resolve one attack, idempotent per Idempotency-Key)
//   - GET  /pvp/limits  (daily counters and cooldowns, read-only)
//   - GET  /pvp/log     (battle history, cursor-paginated, ETag support)
//
// Handlers are transport-thin: they read headers and payloads, call the
// application services, and translate results into HTTP responses.
package handlers

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-pvp-backend/internal/http/middleware"
	"github.com/tbourn/go-pvp-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// Attacker resolves attacks. Implementations must be safe for concurrent use
// and return the same body bytes for every replay of a key.
type Attacker interface {
	Attack(ctx context.Context, req services.AttackRequest) (*services.AttackOutcome, error)
}

// LimitsReader reports an account's daily PvP headroom without mutating it.
type LimitsReader interface {
	Limits(ctx context.Context, accountID string) (*services.LimitsView, error)
}

// BattleLogReader pages through an account's battles.
type BattleLogReader interface {
	List(ctx context.Context, accountID string, limit int, cursor string) (*services.LogPage, error)
	// Version returns a battle count and newest timestamp for weak ETags.
	Version(ctx context.Context, accountID string) (int64, *time.Time, error)
}

//
// Handler wiring
//

// Handlers groups the PvP endpoints.
type Handlers struct {
	attackSvc Attacker
	limitsSvc LimitsReader
	logSvc    BattleLogReader
}

// New constructs and returns a Handlers instance bound to the given services.
func New(attackSvc Attacker, limitsSvc LimitsReader, logSvc BattleLogReader) *Handlers {
	return &Handlers{attackSvc: attackSvc, limitsSvc: limitsSvc, logSvc: logSvc}
}

// accountID returns the caller's account, set by middleware.Identity. The
// header is read directly when the middleware is not installed (tests).
func accountID(c *gin.Context) string {
	if id := middleware.AccountIDFrom(c); id != "" {
		return id
	}
	if c.Request != nil {
		return c.GetHeader(middleware.HeaderAccountID)
	}
	return ""
}

//
// DTOs
//

// AttackRequest is the JSON payload for POST /pvp/attack.
type AttackRequest struct {
	// DefenderID is the account to attack.
	DefenderID string `json:"defender_id" example:"p2"`
}

//
// Handlers
//

// Attack godoc
// @ID          pvpAttack
// @Summary     Attack another player
// @Description Resolves one attack against defender_id. Repeating the same Idempotency-Key returns the original response byte-for-byte with Idempotency-Replayed: true.
// @Tags        PvP
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID                header  string  true   "Attacker account ID"                     example(p1)
// @Param       Idempotency-Key          header  string  true   "Client retry token (max 64 bytes)"       example(9f1c2d1e-attack-1)
// @Param       X-Test-Force-Result      header  string  false  "win|loss (test mode only)"
// @Param       X-Test-Force-Delta       header  int     false  "Prestige delta override (test mode only)"
// @Param       X-Test-Ignore-Cooldowns  header  bool    false  "Skip cooldowns (test mode only)"
// @Param       body                     body    handlers.AttackRequest  true  "Attack payload"
//
// @Success     200  {object}  services.AttackResponse
// @Header      200  {string}  Idempotency-Replayed  "true when served from the ledger"
// @Failure     400  {object}  handlers.ErrorResponse  "Validation error"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing identity"
// @Failure     403  {object}  handlers.ErrorResponse  "Insufficient army"
// @Failure     404  {object}  handlers.ErrorResponse  "Defender not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Same key in flight"
// @Failure     429  {object}  handlers.ErrorResponse  "Cooldown or daily cap"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /pvp/attack [post]
func (h *Handlers) Attack(c *gin.Context) {
	var body AttackRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	key, found := middleware.GetIdempotencyKey(c)
	if !found {
		key = c.GetHeader(middleware.HeaderIdempotencyKey)
	}

	out, err := h.attackSvc.Attack(c.Request.Context(), services.AttackRequest{
		AttackerID: accountID(c),
		DefenderID: body.DefenderID,
		Key:        key,
		Test: services.TestOverrides{
			ForceResult:     c.GetHeader(middleware.HeaderTestForceResult),
			ForceDelta:      c.GetHeader(middleware.HeaderTestForceDelta),
			IgnoreCooldowns: c.GetHeader(middleware.HeaderTestIgnoreCooldowns),
		},
	})
	if err != nil {
		failErr(c, err)
		return
	}

	if out.Replayed {
		c.Header(middleware.HeaderIdempotencyReplayed, "true")
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", out.Body)
}

// Limits godoc
// @ID          pvpLimits
// @Summary     Current PvP limits
// @Description Returns today's attack and prestige counters, remaining global cooldown, and today's nightly decay if applied. Never mutates state.
// @Tags        PvP
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Account ID"  example(p1)
//
// @Success     200  {object}  services.LimitsView
// @Failure     401  {object}  handlers.ErrorResponse  "Missing identity"
// @Failure     404  {object}  handlers.ErrorResponse  "Account not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /pvp/limits [get]
func (h *Handlers) Limits(c *gin.Context) {
	view, err := h.limitsSvc.Limits(c.Request.Context(), accountID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, view)
}

// Log godoc
// @ID          pvpLog
// @Summary     Battle log
// @Description Returns battles the caller took part in, newest first. Pass next_cursor back as cursor for the next page. Supports weak ETag via If-None-Match and may return 304.
// @Tags        PvP
// @Produce     json
//
// @Param       X-User-ID      header  string  true   "Account ID"                  example(p1)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       limit          query   int     false  "Page size"                   minimum(1) maximum(50) default(20)
// @Param       cursor         query   string  false  "Opaque cursor from next_cursor"
//
// @Success     200  {object}  services.LogPage
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid limit or cursor"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing identity"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /pvp/log [get]
func (h *Handlers) Log(c *gin.Context) {
	ctx := c.Request.Context()
	acct := accountID(c)

	limit := services.DefaultLogLimit
	if raw, set := c.GetQuery("limit"); set {
		n, err := strconv.Atoi(raw)
		if err != nil {
			failErr(c, services.ErrInvalidLimit)
			return
		}
		limit = n
	}
	cursor := c.Query("cursor")

	// ETag pre-check (best effort). The key covers the page requested, so
	// different pages never share a tag.
	if acct != "" && limit >= 1 && limit <= services.MaxLogLimit {
		if count, maxTS, err := h.logSvc.Version(ctx, acct); err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixMicro()
			}
			etag := fmt.Sprintf(`W/"pvp-log:%s:%d:%d:%d:%s"`, tagHash(acct), count, ts, limit, tagHash(cursor))
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	page, err := h.logSvc.List(ctx, acct, limit, cursor)
	if err != nil {
		c.Writer.Header().Del("ETag")
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, page)
}

// tagHash folds client-supplied text into 16 hex digits so it can sit inside
// a quoted ETag whatever bytes it carries.
func tagHash(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%016x", h.Sum64())
}
