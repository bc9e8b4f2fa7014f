// Package repo implements the data persistence layer for the PvP engine,
// backed by GORM. This file provides the idempotency ledger used by
// POST /pvp/attack: claim, finalize, lookup, and stale-claim takeover.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-pvp-backend/internal/domain"
)

// GetIdempotency returns the ledger record for (attackerID, key) or ErrNotFound.
func GetIdempotency(ctx context.Context, db *gorm.DB, attackerID, key string) (*domain.IdempotencyRecord, error) {
	var rec domain.IdempotencyRecord
	err := db.WithContext(ctx).
		Where("attacker_id = ? AND key = ?", attackerID, key).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ClaimIdempotency inserts a pending record. It returns ErrDuplicate when the
// pair already exists; the caller then inspects the existing record.
func ClaimIdempotency(ctx context.Context, tx *gorm.DB, attackerID, key string, now time.Time) error {
	rec := &domain.IdempotencyRecord{
		AttackerID: attackerID,
		Key:        key,
		Status:     domain.IdemPending,
		ClaimedAt:  now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := tx.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// ReclaimIdempotency takes over a pending record whose claim is older than
// staleBefore. It reports false when the record is completed, fresh, or gone.
func ReclaimIdempotency(ctx context.Context, tx *gorm.DB, attackerID, key string, staleBefore, now time.Time) (bool, error) {
	res := tx.WithContext(ctx).
		Model(&domain.IdempotencyRecord{}).
		Where("attacker_id = ? AND key = ? AND status = ? AND claimed_at < ?",
			attackerID, key, domain.IdemPending, staleBefore).
		Updates(map[string]any{"claimed_at": now, "updated_at": now})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CompleteIdempotency stores the exact response bytes and marks the record
// completed. It must run inside the transaction that applied the attack.
func CompleteIdempotency(ctx context.Context, tx *gorm.DB, attackerID, key string, response []byte, now time.Time) error {
	res := tx.WithContext(ctx).
		Model(&domain.IdempotencyRecord{}).
		Where("attacker_id = ? AND key = ? AND status = ?", attackerID, key, domain.IdemPending).
		Updates(map[string]any{
			"status":     domain.IdemCompleted,
			"response":   datatypes.JSON(response),
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrNotFound
	}
	return nil
}
