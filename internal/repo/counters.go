// Package repo implements the data persistence layer for the PvP engine,
// backed by GORM. This file holds the per-day attack counters and the
// pairwise cooldown rows consulted by the attack gate.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-pvp-backend/internal/domain"
)

// GetDailyCounter returns the counter for (accountID, day) or a zero counter
// when none exists yet. It never creates rows.
func GetDailyCounter(ctx context.Context, db *gorm.DB, accountID, day string) (*domain.DailyCounter, error) {
	var c domain.DailyCounter
	err := db.WithContext(ctx).Where("account_id = ? AND day = ?", accountID, day).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.DailyCounter{AccountID: accountID, Day: day}, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// LockDailyCounter creates the counter for (accountID, day) if missing and
// returns it locked for the remainder of tx.
func LockDailyCounter(ctx context.Context, tx *gorm.DB, accountID, day string, now time.Time) (*domain.DailyCounter, error) {
	seed := domain.DailyCounter{AccountID: accountID, Day: day, UpdatedAt: now}
	if err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&seed).Error; err != nil {
		return nil, err
	}
	var c domain.DailyCounter
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("account_id = ? AND day = ?", accountID, day).
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// SaveDailyCounter persists the counter's totals.
func SaveDailyCounter(ctx context.Context, tx *gorm.DB, c *domain.DailyCounter) error {
	return tx.WithContext(ctx).Model(&domain.DailyCounter{}).
		Where("account_id = ? AND day = ?", c.AccountID, c.Day).
		Updates(map[string]any{
			"attacks_used":    c.AttacksUsed,
			"prestige_gained": c.PrestigeGained,
			"prestige_lost":   c.PrestigeLost,
			"updated_at":      c.UpdatedAt,
		}).Error
}

// GetCooldown returns the last attack time of the ordered pair, or nil when
// the attacker never hit this defender.
func GetCooldown(ctx context.Context, db *gorm.DB, attackerID, defenderID string) (*time.Time, error) {
	var cd domain.Cooldown
	err := db.WithContext(ctx).
		Where("attacker_id = ? AND defender_id = ?", attackerID, defenderID).
		First(&cd).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t := cd.LastAttackAt
	return &t, nil
}

// TouchCooldown records an attack on the ordered pair, inserting the row on
// first contact and updating it in place afterwards.
func TouchCooldown(ctx context.Context, tx *gorm.DB, attackerID, defenderID string, at time.Time) error {
	row := domain.Cooldown{AttackerID: attackerID, DefenderID: defenderID, LastAttackAt: at}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "attacker_id"}, {Name: "defender_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_attack_at"}),
	}).Create(&row).Error
}
