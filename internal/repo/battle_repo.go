// Package repo implements the data persistence layer for the PvP engine,
// backed by GORM. This file stores battle log entries and serves the
// keyset-paginated battle history.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-pvp-backend/internal/domain"
)

// BattleKey is the (created_at, id) position of a battle in the log's total
// order.
type BattleKey struct {
	CreatedAt time.Time
	ID        string
}

// CreateBattle appends one battle log entry.
func CreateBattle(ctx context.Context, tx *gorm.DB, e *domain.BattleLogEntry) error {
	return tx.WithContext(ctx).Create(e).Error
}

// ListBattlesPage returns up to limit battles where accountID took part,
// newest first by (created_at, id). When after is set, only rows strictly
// older than that key are returned.
func ListBattlesPage(ctx context.Context, db *gorm.DB, accountID string, after *BattleKey, limit int) ([]domain.BattleLogEntry, error) {
	q := db.WithContext(ctx).
		Model(&domain.BattleLogEntry{}).
		Where("(attacker_id = ? OR defender_id = ?)", accountID, accountID)
	if after != nil {
		t := after.CreatedAt.UTC()
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", t, t, after.ID)
	}
	var rows []domain.BattleLogEntry
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// BattleStats returns how many battles involve accountID and the newest
// created_at among them (nil when there are none).
func BattleStats(ctx context.Context, db *gorm.DB, accountID string) (count int64, latest *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.BattleLogEntry{}).
		Where("(attacker_id = ? OR defender_id = ?)", accountID, accountID).
		Session(&gorm.Session{})

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Avoid MAX() which comes back as TEXT on SQLite.
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
