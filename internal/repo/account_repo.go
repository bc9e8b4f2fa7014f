// Package repo implements the data persistence layer for the PvP engine,
// backed by GORM. This file covers accounts, their unit inventories, and
// their city buildings as read by the combat model.
package repo

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-pvp-backend/internal/combat"
	"github.com/tbourn/go-pvp-backend/internal/domain"
)

// GetAccount fetches an account by id or returns ErrNotFound.
func GetAccount(ctx context.Context, db *gorm.DB, id string) (*domain.Account, error) {
	var a domain.Account
	if err := db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// AccountExists reports whether an account with id exists.
func AccountExists(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	var n int64
	if err := db.WithContext(ctx).Model(&domain.Account{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetAccountsByID loads several accounts keyed by id.
func GetAccountsByID(ctx context.Context, db *gorm.DB, ids []string) (map[string]domain.Account, error) {
	out := make(map[string]domain.Account, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []domain.Account
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, a := range rows {
		out[a.ID] = a
	}
	return out, nil
}

// LockAccount takes exclusive ownership of an account row for the rest of tx
// and returns its current state.
//
// The row is touched with an UPDATE first. On PostgreSQL that takes the row
// lock; on SQLite it makes the transaction a writer up front so concurrent
// attack transactions queue on busy_timeout instead of failing on upgrade.
// The follow-up SELECT ... FOR UPDATE is a no-op on SQLite.
func LockAccount(ctx context.Context, tx *gorm.DB, id string, now time.Time) (*domain.Account, error) {
	res := tx.WithContext(ctx).Model(&domain.Account{}).Where("id = ?", id).Update("updated_at", now)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	var a domain.Account
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// SaveAttackerState writes the attacker's new prestige and last attack time.
func SaveAttackerState(ctx context.Context, tx *gorm.DB, id string, prestige int, lastAttackAt time.Time) error {
	return tx.WithContext(ctx).Model(&domain.Account{}).Where("id = ?", id).
		Updates(map[string]any{
			"prestige":       prestige,
			"last_attack_at": lastAttackAt,
			"updated_at":     lastAttackAt,
		}).Error
}

// LoadArmy returns the account's unit counts, zero-filled for every known
// unit type. Stock rows of unknown types are an error.
func LoadArmy(ctx context.Context, db *gorm.DB, accountID string) (combat.Army, error) {
	var rows []domain.UnitStock
	if err := db.WithContext(ctx).Where("account_id = ?", accountID).Find(&rows).Error; err != nil {
		return nil, err
	}
	army := combat.NewArmy()
	for _, r := range rows {
		u, err := combat.ParseUnitType(r.UnitType)
		if err != nil {
			return nil, err
		}
		army[u] += r.Qty
	}
	return army, nil
}

// SetUnits upserts one unit stock row.
func SetUnits(ctx context.Context, db *gorm.DB, accountID string, u combat.UnitType, qty int) error {
	row := domain.UnitStock{AccountID: accountID, UnitType: string(u), Qty: qty}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "unit_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"qty"}),
	}).Create(&row).Error
}

// DeductUnits subtracts losses from an inventory without going below zero.
func DeductUnits(ctx context.Context, tx *gorm.DB, accountID string, losses combat.Army) error {
	for _, u := range combat.UnitTypes {
		n := losses[u]
		if n <= 0 {
			continue
		}
		err := tx.WithContext(ctx).Model(&domain.UnitStock{}).
			Where("account_id = ? AND unit_type = ?", accountID, string(u)).
			Update("qty", gorm.Expr("CASE WHEN qty >= ? THEN qty - ? ELSE 0 END", n, n)).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// LoadBuildings returns the city of an account as combat buildings. Unknown
// kinds fail the load.
func LoadBuildings(ctx context.Context, db *gorm.DB, accountID string) ([]combat.Building, error) {
	var rows []domain.Building
	if err := db.WithContext(ctx).Where("account_id = ?", accountID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]combat.Building, 0, len(rows))
	for _, r := range rows {
		k, err := combat.ParseBuildingKind(r.Kind)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", accountID, err)
		}
		out = append(out, combat.Building{Kind: k, Level: r.Level})
	}
	return out, nil
}
