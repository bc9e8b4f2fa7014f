// Package services – DecayService
//
// This file implements the nightly prestige decay job. A run first records a
// (job, day) tick; if the tick already exists the job already ran today and
// exits without work. Otherwise accounts above the decay threshold are
// scanned in id-ordered batches and each one is decayed in its own short
// transaction under the account row lock, so a concurrent attack cannot lose
// the update.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-pvp-backend/internal/combat"
	"github.com/tbourn/go-pvp-backend/internal/domain"
	"github.com/tbourn/go-pvp-backend/internal/repo"
)

// DecayJobName keys the once-per-day tick.
const DecayJobName = "nightly_decay"

// DefaultDecayBatchSize bounds how many account ids are held per scan.
const DefaultDecayBatchSize = 1000

// DecayService applies nightly prestige decay.
type DecayService struct {
	DB        *gorm.DB
	Loc       *time.Location
	Now       func() time.Time
	BatchSize int
	Metrics   Recorder
}

// NewDecayService constructs a DecayService.
func NewDecayService(db *gorm.DB, loc *time.Location, batchSize int) *DecayService {
	return &DecayService{DB: db, Loc: loc, Now: time.Now, BatchSize: batchSize}
}

// Run decays every eligible account once for today's server-local day and
// returns how many accounts were decayed. A second run on the same day
// returns 0.
func (s *DecayService) Run(ctx context.Context) (int, error) {
	tr := otel.Tracer("services/DecayService")
	ctx, span := tr.Start(ctx, "Run")
	defer span.End()

	now := clock(s.Now)
	loc := locOrUTC(s.Loc)
	day := dayKey(now, loc)
	span.SetAttributes(attribute.String("decay.day", day))
	logger := zerolog.Ctx(ctx).With().Str("job", DecayJobName).Str("day", day).Logger()

	if err := repo.CreateDayTick(ctx, s.DB, DecayJobName, day, now); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			logger.Info().Msg("decay already ran today")
			return 0, nil
		}
		return 0, err
	}

	batch := s.BatchSize
	if batch <= 0 {
		batch = DefaultDecayBatchSize
	}

	decayed := 0
	after := ""
	for {
		ids, err := repo.ListDecayCandidates(ctx, s.DB, combat.DecayThreshold, after, batch)
		if err != nil {
			return decayed, err
		}
		for _, id := range ids {
			ok, err := s.decayAccount(ctx, id, day, now, loc)
			if err != nil {
				logger.Error().Err(err).Str("account_id", id).Msg("decay failed")
				return decayed, err
			}
			if ok {
				decayed++
			}
		}
		if len(ids) < batch {
			break
		}
		after = ids[len(ids)-1]
	}

	recorderOrNop(s.Metrics).DecayApplied(decayed)
	span.SetAttributes(attribute.Int("decay.accounts", decayed))
	logger.Info().Int("accounts", decayed).Msg("decay applied")
	return decayed, nil
}

// decayAccount recomputes and applies decay from the locked, current
// prestige. It reports whether anything was applied.
func (s *DecayService) decayAccount(ctx context.Context, id, day string, now time.Time, loc *time.Location) (bool, error) {
	ctx, span := otel.Tracer("services/DecayService").Start(ctx, "decayAccount",
		trace.WithAttributes(attribute.String("account.id", id)),
	)
	defer span.End()

	applied := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acct, err := repo.LockAccount(ctx, tx, id, now)
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		inactive := combat.InactiveDays(now, acct.LastAttackAt, loc)
		amount, rate := combat.Decay(acct.Prestige, inactive)
		if amount <= 0 {
			return nil
		}
		after := acct.Prestige - amount
		if err := repo.SetPrestige(ctx, tx, id, after, now); err != nil {
			return err
		}
		applied = true
		return repo.CreateDecayLog(ctx, tx, &domain.DecayLogEntry{
			AccountID:      id,
			Day:            day,
			PrestigeBefore: acct.Prestige,
			PrestigeAfter:  after,
			DecayAmount:    amount,
			InactiveDays:   inactive,
			RateUsed:       rate,
			CreatedAt:      now,
		})
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}
