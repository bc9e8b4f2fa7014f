// Package repo implements the data persistence layer for the PvP engine,
// backed by GORM. This file supports the nightly prestige decay job: the
// once-per-day tick marker, candidate scanning, and the audit log.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-pvp-backend/internal/domain"
)

// CreateDayTick records that job name ran on day. It returns ErrDuplicate
// when the marker already exists.
func CreateDayTick(ctx context.Context, db *gorm.DB, name, day string, now time.Time) error {
	tick := &domain.DayTick{Name: name, Day: day, ExecutedAt: now}
	if err := db.WithContext(ctx).Create(tick).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// ListDecayCandidates returns up to limit account ids with prestige above
// threshold and id greater than afterID, ordered by id.
func ListDecayCandidates(ctx context.Context, db *gorm.DB, threshold int, afterID string, limit int) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("prestige > ? AND id > ?", threshold, afterID).
		Order("id").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

// SetPrestige overwrites an account's prestige.
func SetPrestige(ctx context.Context, tx *gorm.DB, id string, prestige int, now time.Time) error {
	return tx.WithContext(ctx).Model(&domain.Account{}).Where("id = ?", id).
		Updates(map[string]any{"prestige": prestige, "updated_at": now}).Error
}

// CreateDecayLog appends one decay audit row.
func CreateDecayLog(ctx context.Context, tx *gorm.DB, e *domain.DecayLogEntry) error {
	return tx.WithContext(ctx).Create(e).Error
}

// GetDecayForDay returns the decay applied to accountID on day, or
// ErrNotFound.
func GetDecayForDay(ctx context.Context, db *gorm.DB, accountID, day string) (*domain.DecayLogEntry, error) {
	var e domain.DecayLogEntry
	err := db.WithContext(ctx).
		Where("account_id = ? AND day = ?", accountID, day).
		Order("id DESC").
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}
