// Package services – AttackService
//
// This file implements the attack orchestrator behind POST /pvp/attack. One
// attack is one database transaction: lock the attacker row, claim the
// idempotency key, run the gate, resolve combat, apply every mutation, log the
// battle, and store the exact response bytes on the claimed record. Any
// rejection or failure rolls the whole transaction back, claim included, so
// a rejected key can be retried.
//
// Concurrent requests with the same (attacker, key) serialize on the account
// lock; the loser hits the claim's primary key and is answered from the
// ledger: a replay of the stored bytes, or IDEMPOTENCY_CONFLICT while the
// first execution is still in flight.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-pvp-backend/internal/combat"
	"github.com/tbourn/go-pvp-backend/internal/domain"
	"github.com/tbourn/go-pvp-backend/internal/repo"
	"github.com/tbourn/go-pvp-backend/internal/sysutil"
)

// TestOverrides carries the raw values of the X-Test-* headers. Empty means
// the header was absent.
type TestOverrides struct {
	ForceResult     string
	ForceDelta      string
	IgnoreCooldowns string
}

// Any reports whether at least one test header was supplied.
func (t TestOverrides) Any() bool {
	return t.ForceResult != "" || t.ForceDelta != "" || t.IgnoreCooldowns != ""
}

// AttackRequest is one POST /pvp/attack call.
type AttackRequest struct {
	AttackerID string
	DefenderID string
	Key        string
	Test       TestOverrides
}

// AttackOutcome is what the handler writes back. Body is the exact JSON
// stored in the ledger.
type AttackOutcome struct {
	Body     []byte
	Replayed bool
}

// PrestigeBlock is the attacker's prestige change.
type PrestigeBlock struct {
	Delta          int `json:"delta"`
	AttackerBefore int `json:"attacker_before"`
	AttackerAfter  int `json:"attacker_after"`
}

// LossesBlock reports units lost per side, zero-filled per unit type.
type LossesBlock struct {
	Attacker combat.Army `json:"attacker"`
	Defender combat.Army `json:"defender"`
}

// CooldownsBlock reports when the attacker may attack again.
type CooldownsBlock struct {
	GlobalAvailableAt     time.Time `json:"global_available_at"`
	SameTargetAvailableAt time.Time `json:"same_target_available_at"`
}

// AttackResponse is the body of a successful attack.
type AttackResponse struct {
	BattleID    string         `json:"battle_id"`
	AttackerID  string         `json:"attacker_id"`
	DefenderID  string         `json:"defender_id"`
	Result      string         `json:"result"`
	ExpectedWin float64        `json:"expected_win"`
	Prestige    PrestigeBlock  `json:"prestige"`
	Losses      LossesBlock    `json:"losses"`
	Limits      LimitsBlock    `json:"limits"`
	Cooldowns   CooldownsBlock `json:"cooldowns"`
	Messages    []string       `json:"messages"`
	Notices     []Notice       `json:"notices"`
}

// AttackService resolves attacks.
type AttackService struct {
	DB *gorm.DB
	// Loc anchors daily counters and reset_at. Defaults to UTC.
	Loc *time.Location
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
	// Roller feeds the combat roll. Defaults to combat.SystemRoller.
	Roller combat.Roller
	// TestMode enables the X-Test-* override headers.
	TestMode bool
	// StaleAfter is the age at which a pending claim may be taken over.
	StaleAfter time.Duration
	Metrics    Recorder
}

// NewAttackService constructs an AttackService with production defaults.
func NewAttackService(db *gorm.DB, loc *time.Location, testMode bool) *AttackService {
	return &AttackService{
		DB:         db,
		Loc:        loc,
		Now:        time.Now,
		Roller:     combat.SystemRoller{},
		TestMode:   testMode,
		StaleAfter: DefaultIdempotencyStaleAfter,
	}
}

// errClaimTaken signals inside the transaction that the key already has a
// ledger record; the caller decides between replay and conflict.
var errClaimTaken = errors.New("idempotency key already claimed")

// gateOptions are the parsed and authorized test overrides.
type gateOptions struct {
	override        combat.Override
	ignoreCooldowns bool
}

// Attack runs one attack or replays the stored answer for its key.
func (s *AttackService) Attack(ctx context.Context, req AttackRequest) (*AttackOutcome, error) {
	tr := otel.Tracer("services/AttackService")
	ctx, span := tr.Start(ctx, "Attack",
		trace.WithAttributes(
			attribute.String("attacker.id", req.AttackerID),
			attribute.String("defender.id", req.DefenderID),
		),
	)
	defer span.End()

	out, err := s.attack(ctx, req)
	if err != nil {
		var se *Error
		if errors.As(err, &se) && se.Code != CodeInternal {
			s.metrics().AttackRejected(string(se.Code))
			span.SetAttributes(attribute.String("rejection.code", string(se.Code)))
		} else {
			s.metrics().AttackRejected(string(CodeInternal))
			span.RecordError(err)
			span.SetStatus(codes.Error, "attack failed")
		}
		return nil, err
	}
	span.SetAttributes(attribute.Bool("idempotency.replayed", out.Replayed))
	return out, nil
}

func (s *AttackService) attack(ctx context.Context, req AttackRequest) (*AttackOutcome, error) {
	req.AttackerID = strings.TrimSpace(req.AttackerID)
	req.DefenderID = strings.TrimSpace(req.DefenderID)

	if req.AttackerID == "" {
		return nil, ErrUnauthenticated
	}
	if req.DefenderID == "" {
		return nil, &Error{Code: CodeValidation, Message: "defender_id is required"}
	}
	if req.AttackerID == req.DefenderID {
		return nil, ErrSelfAttack
	}
	if err := ValidateIdempotencyKey(req.Key); err != nil {
		return nil, err
	}
	opts, err := s.parseOverrides(req.Test)
	if err != nil {
		return nil, err
	}

	// Fast path for retries of finished requests.
	reclaim := false
	out, err := s.fromLedger(ctx, req)
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, errStaleClaim):
		reclaim = true
	case !errors.Is(err, repo.ErrNotFound):
		return nil, err
	}

	ok, err := repo.AccountExists(ctx, s.DB, req.DefenderID)
	if err != nil {
		return nil, wrapInternal("load defender", err)
	}
	if !ok {
		return nil, ErrDefenderNotFound
	}

	out, err = s.execute(ctx, req, opts, reclaim)
	if !errors.Is(err, errClaimTaken) {
		return out, err
	}

	// Another request owns the key: answer from its record, or take the
	// claim over once if it was abandoned.
	out, err = s.fromLedger(ctx, req)
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, errStaleClaim) && !reclaim:
		out, err = s.execute(ctx, req, opts, true)
		if !errors.Is(err, errClaimTaken) {
			return out, err
		}
	case !errors.Is(err, repo.ErrNotFound):
		return nil, err
	}
	conflict := *ErrIdempotencyConflict
	conflict.RetryAfter = time.Second
	return nil, &conflict
}

// errStaleClaim reports a pending record old enough to be taken over.
var errStaleClaim = errors.New("stale idempotency claim")

// fromLedger answers from an existing ledger record: a replay when completed,
// a conflict while a fresh claim is pending, errStaleClaim when the pending
// claim was abandoned, or repo.ErrNotFound when there is no record.
func (s *AttackService) fromLedger(ctx context.Context, req AttackRequest) (*AttackOutcome, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, req.AttackerID, req.Key)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
		return nil, wrapInternal("load idempotency record", err)
	}
	if rec.Completed() {
		s.metrics().AttackReplayed()
		zerolog.Ctx(ctx).Info().
			Str("attacker_id", req.AttackerID).
			Msg("attack replayed from idempotency ledger")
		return &AttackOutcome{Body: []byte(rec.Response), Replayed: true}, nil
	}
	now := clock(s.Now)
	if now.Sub(rec.ClaimedAt) >= s.staleAfter() {
		return nil, errStaleClaim
	}
	conflict := *ErrIdempotencyConflict
	conflict.RetryAfter = max(time.Second, rec.ClaimedAt.Add(s.staleAfter()).Sub(now))
	return nil, &conflict
}

// execute runs the attack transaction. reclaim takes over a stale pending
// claim instead of inserting a new one.
func (s *AttackService) execute(ctx context.Context, req AttackRequest, opts gateOptions, reclaim bool) (*AttackOutcome, error) {
	var body []byte
	var resp AttackResponse

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attacker, err := repo.LockAccount(ctx, tx, req.AttackerID, clock(s.Now))
		if errors.Is(err, repo.ErrNotFound) {
			return ErrAttackerNotFound
		}
		if err != nil {
			return wrapInternal("lock attacker", err)
		}
		now := clock(s.Now)

		if err := s.claim(ctx, tx, req, now, reclaim); err != nil {
			return err
		}

		army, err := repo.LoadArmy(ctx, tx, attacker.ID)
		if err != nil {
			return wrapInternal("load attacker army", err)
		}
		counter, err := s.gate(ctx, tx, attacker, req.DefenderID, army, now, opts)
		if err != nil {
			return err
		}

		resp, err = s.resolveAndApply(ctx, tx, attacker, req.DefenderID, army, counter, now, opts)
		if err != nil {
			return err
		}
		body, err = json.Marshal(resp)
		if err != nil {
			return wrapInternal("encode response", err)
		}
		if err := repo.CompleteIdempotency(ctx, tx, attacker.ID, req.Key, body, now); err != nil {
			return wrapInternal("finalize idempotency record", err)
		}
		return nil
	})
	if err != nil {
		var se *Error
		if errors.Is(err, errClaimTaken) || errors.As(err, &se) {
			return nil, err
		}
		return nil, wrapInternal("attack transaction", err)
	}

	s.metrics().AttackResolved(resp.Result, resp.Prestige.Delta)
	zerolog.Ctx(ctx).Info().
		Str("battle_id", resp.BattleID).
		Str("attacker_id", resp.AttackerID).
		Str("defender_id", resp.DefenderID).
		Str("result", resp.Result).
		Int("prestige_delta", resp.Prestige.Delta).
		Msg("attack resolved")
	return &AttackOutcome{Body: body}, nil
}

func (s *AttackService) claim(ctx context.Context, tx *gorm.DB, req AttackRequest, now time.Time, reclaim bool) error {
	if reclaim {
		ok, err := repo.ReclaimIdempotency(ctx, tx, req.AttackerID, req.Key, now.Add(-s.staleAfter()), now)
		if err != nil {
			return wrapInternal("reclaim idempotency key", err)
		}
		if !ok {
			return errClaimTaken
		}
		return nil
	}
	err := repo.ClaimIdempotency(ctx, tx, req.AttackerID, req.Key, now)
	if errors.Is(err, repo.ErrDuplicate) {
		return errClaimTaken
	}
	if err != nil {
		return wrapInternal("claim idempotency key", err)
	}
	return nil
}

// gate runs the army, cooldown, and daily cap checks in order and returns
// today's counter locked for update.
func (s *AttackService) gate(ctx context.Context, tx *gorm.DB, attacker *domain.Account, defenderID string,
	army combat.Army, now time.Time, opts gateOptions) (*domain.DailyCounter, error) {
	if army.Total() < MinArmy {
		return nil, ErrInsufficientArmy
	}

	if !opts.ignoreCooldowns && attacker.LastAttackAt != nil {
		until := attacker.LastAttackAt.Add(GlobalCooldown)
		if now.Before(until) {
			return nil, rateLimited(CodeGlobalCooldown, "global attack cooldown", now, until)
		}
	}

	loc := locOrUTC(s.Loc)
	counter, err := repo.LockDailyCounter(ctx, tx, attacker.ID, dayKey(now, loc), now)
	if err != nil {
		return nil, wrapInternal("lock daily counter", err)
	}
	if counter.AttacksUsed >= AttackCap {
		return nil, rateLimited(CodeDailyAttackLimit, "daily attack limit reached", now, nextMidnight(now, loc))
	}

	if !opts.ignoreCooldowns {
		last, err := repo.GetCooldown(ctx, tx, attacker.ID, defenderID)
		if err != nil {
			return nil, wrapInternal("load target cooldown", err)
		}
		if last != nil {
			until := last.Add(PairwiseCooldown)
			if now.Before(until) {
				return nil, rateLimited(CodeTargetCooldown, "target on cooldown", now, until)
			}
		}
	}
	return counter, nil
}

// resolveAndApply runs the combat model and writes every consequence of the
// attack inside tx.
func (s *AttackService) resolveAndApply(ctx context.Context, tx *gorm.DB, attacker *domain.Account, defenderID string,
	army combat.Army, counter *domain.DailyCounter, now time.Time, opts gateOptions) (AttackResponse, error) {
	defender, err := repo.GetAccount(ctx, tx, defenderID)
	if errors.Is(err, repo.ErrNotFound) {
		return AttackResponse{}, ErrDefenderNotFound
	}
	if err != nil {
		return AttackResponse{}, wrapInternal("load defender", err)
	}
	defArmy, err := repo.LoadArmy(ctx, tx, defender.ID)
	if err != nil {
		return AttackResponse{}, wrapInternal("load defender army", err)
	}
	attBuildings, err := repo.LoadBuildings(ctx, tx, attacker.ID)
	if err != nil {
		return AttackResponse{}, wrapInternal("load attacker city", err)
	}
	defBuildings, err := repo.LoadBuildings(ctx, tx, defender.ID)
	if err != nil {
		return AttackResponse{}, wrapInternal("load defender city", err)
	}

	battle := combat.Resolve(
		combat.Side{Prestige: attacker.Prestige, Buildings: attBuildings, Army: army},
		combat.Side{Prestige: defender.Prestige, Buildings: defBuildings, Army: defArmy},
		s.roller(), opts.override,
	)
	applied := combat.CapDelta(battle.RawDelta, GainCap-counter.PrestigeGained, LossCap-counter.PrestigeLost)
	after := attacker.Prestige + applied

	if err := repo.SaveAttackerState(ctx, tx, attacker.ID, after, now); err != nil {
		return AttackResponse{}, wrapInternal("save attacker", err)
	}
	if err := repo.DeductUnits(ctx, tx, attacker.ID, battle.AttackerLoss); err != nil {
		return AttackResponse{}, wrapInternal("deduct attacker units", err)
	}
	if err := repo.DeductUnits(ctx, tx, defender.ID, battle.DefenderLoss); err != nil {
		return AttackResponse{}, wrapInternal("deduct defender units", err)
	}

	counter.AttacksUsed++
	if applied > 0 {
		counter.PrestigeGained += applied
	} else {
		counter.PrestigeLost += -applied
	}
	counter.UpdatedAt = now
	if err := repo.SaveDailyCounter(ctx, tx, counter); err != nil {
		return AttackResponse{}, wrapInternal("save daily counter", err)
	}
	if err := repo.TouchCooldown(ctx, tx, attacker.ID, defender.ID, now); err != nil {
		return AttackResponse{}, wrapInternal("save target cooldown", err)
	}

	entry := &domain.BattleLogEntry{
		ID:                     uuid.NewString(),
		AttackerID:             attacker.ID,
		DefenderID:             defender.ID,
		Result:                 string(battle.Result),
		PrestigeDeltaAttacker:  applied,
		PrestigeDeltaDefender:  0,
		AttackerPrestigeBefore: attacker.Prestige,
		DefenderPrestigeBefore: defender.Prestige,
		ExpectedWin:            battle.ExpectedWin,
		AttackPower:            battle.AttackPower,
		DefensePower:           battle.DefensePower,
		DefenseFactor:          battle.DefenseFactor,
		AttackerLosses:         datatypes.NewJSONType(battle.AttackerLoss),
		DefenderLosses:         datatypes.NewJSONType(battle.DefenderLoss),
		CreatedAt:              now,
	}
	if err := repo.CreateBattle(ctx, tx, entry); err != nil {
		return AttackResponse{}, wrapInternal("log battle", err)
	}

	loc := locOrUTC(s.Loc)
	limits := newLimitsBlock(counter.AttacksUsed, counter.PrestigeGained, counter.PrestigeLost, nextMidnight(now, loc))
	msgs := advisoryMessages(limits)
	return AttackResponse{
		BattleID:    entry.ID,
		AttackerID:  attacker.ID,
		DefenderID:  defender.ID,
		Result:      entry.Result,
		ExpectedWin: battle.ExpectedWin,
		Prestige: PrestigeBlock{
			Delta:          applied,
			AttackerBefore: attacker.Prestige,
			AttackerAfter:  after,
		},
		Losses: LossesBlock{Attacker: battle.AttackerLoss, Defender: battle.DefenderLoss},
		Limits: limits,
		Cooldowns: CooldownsBlock{
			GlobalAvailableAt:     now.Add(GlobalCooldown),
			SameTargetAvailableAt: now.Add(PairwiseCooldown),
		},
		Messages: msgs,
		Notices:  notices(msgs),
	}, nil
}

// parseOverrides validates the X-Test-* headers. Outside test mode any of
// them rejects the request.
func (s *AttackService) parseOverrides(t TestOverrides) (gateOptions, error) {
	var opts gateOptions
	if !t.Any() {
		return opts, nil
	}
	if !s.TestMode {
		return opts, ErrTestHeaders
	}
	if t.ForceResult != "" {
		res, ok := combat.ParseResult(t.ForceResult)
		if !ok {
			return opts, &Error{Code: CodeValidation, Message: "X-Test-Force-Result must be win or loss"}
		}
		opts.override.Result = &res
	}
	if t.ForceDelta != "" {
		d, err := strconv.Atoi(strings.TrimSpace(t.ForceDelta))
		if err != nil {
			return opts, &Error{Code: CodeValidation, Message: "X-Test-Force-Delta must be an integer", Cause: err}
		}
		opts.override.Delta = &d
	}
	opts.ignoreCooldowns = sysutil.IsTruthy(t.IgnoreCooldowns)
	return opts, nil
}

// ValidateIdempotencyKey checks presence and the byte-length bound.
func ValidateIdempotencyKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrMissingIdemKey
	}
	if len(key) > domain.MaxIdempotencyKeyLen {
		return &Error{Code: CodeInvalidIdempotencyKey, Message: "Idempotency-Key must be at most 64 bytes"}
	}
	return nil
}

func (s *AttackService) roller() combat.Roller {
	if s.Roller == nil {
		return combat.SystemRoller{}
	}
	return s.Roller
}

func (s *AttackService) staleAfter() time.Duration {
	if s.StaleAfter <= 0 {
		return DefaultIdempotencyStaleAfter
	}
	return s.StaleAfter
}

func (s *AttackService) metrics() Recorder { return recorderOrNop(s.Metrics) }
