// Package services – LimitsService
//
// This file implements the read-only view behind GET /pvp/limits: today's
// counters against the daily caps, the remaining global cooldown, and the
// nightly decay applied to the account today, if any.
package services

import (
	"context"
	"errors"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-pvp-backend/internal/repo"
)

// LimitsCooldowns reports the attacker-wide cooldown.
type LimitsCooldowns struct {
	GlobalRemainingSec int `json:"global_remaining_sec"`
}

// LimitsView is the body of GET /pvp/limits.
type LimitsView struct {
	Limits                LimitsBlock     `json:"limits"`
	NightlyDecay          *int            `json:"nightly_decay,omitempty"`
	NightlyDecayAppliedAt *time.Time      `json:"nightly_decay_applied_at,omitempty"`
	Cooldowns             LimitsCooldowns `json:"cooldowns"`
	Messages              []string        `json:"messages"`
}

// LimitsService reports an account's daily PvP headroom.
type LimitsService struct {
	DB  *gorm.DB
	Loc *time.Location
	Now func() time.Time
}

// NewLimitsService constructs a LimitsService.
func NewLimitsService(db *gorm.DB, loc *time.Location) *LimitsService {
	return &LimitsService{DB: db, Loc: loc, Now: time.Now}
}

// Limits returns the current limits of accountID. It never writes.
func (s *LimitsService) Limits(ctx context.Context, accountID string) (*LimitsView, error) {
	tr := otel.Tracer("services/LimitsService")
	ctx, span := tr.Start(ctx, "Limits",
		trace.WithAttributes(attribute.String("account.id", accountID)),
	)
	defer span.End()

	if accountID == "" {
		return nil, ErrUnauthenticated
	}
	acct, err := repo.GetAccount(ctx, s.DB, accountID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrAttackerNotFound
	}
	if err != nil {
		return nil, wrapInternal("load account", err)
	}

	now := clock(s.Now)
	loc := locOrUTC(s.Loc)
	day := dayKey(now, loc)

	counter, err := repo.GetDailyCounter(ctx, s.DB, accountID, day)
	if err != nil {
		return nil, wrapInternal("load daily counter", err)
	}

	view := &LimitsView{
		Limits: newLimitsBlock(counter.AttacksUsed, counter.PrestigeGained, counter.PrestigeLost, nextMidnight(now, loc)),
	}
	view.Messages = advisoryMessages(view.Limits)

	if acct.LastAttackAt != nil {
		if left := acct.LastAttackAt.Add(GlobalCooldown).Sub(now); left > 0 {
			view.Cooldowns.GlobalRemainingSec = int(math.Ceil(left.Seconds()))
			view.Messages = append(view.Messages, MsgGlobalCooldown)
		}
	}

	decay, err := repo.GetDecayForDay(ctx, s.DB, accountID, day)
	switch {
	case err == nil:
		amount := decay.DecayAmount
		at := decay.CreatedAt.UTC()
		view.NightlyDecay = &amount
		view.NightlyDecayAppliedAt = &at
	case !errors.Is(err, repo.ErrNotFound):
		return nil, wrapInternal("load nightly decay", err)
	}
	return view, nil
}
