// Package domain defines the persistence models for PvP combat and the
// prestige economy. These types are mapped with GORM and shared across the
// repository and service layers. Cross-entity references are plain ids; no
// model holds a pointer to another.
package domain

import (
	"time"

	"gorm.io/datatypes"

	"github.com/tbourn/go-pvp-backend/internal/combat"
)

// DefaultPrestige is the starting prestige of every account.
const DefaultPrestige = 1000

// Account is a player identity with its ranking score.
//
// Fields:
//   - Prestige: mutated only by attack resolution and the nightly decay job.
//   - LastAttackAt: time of the account's last resolved attack (UTC), nil if
//     it never attacked.
type Account struct {
	ID           string     `json:"id"             gorm:"type:varchar(64);primaryKey"`
	Name         string     `json:"name"           gorm:"type:varchar(255);not null;default:''"`
	Prestige     int        `json:"prestige"       gorm:"not null;default:1000;index"`
	LastAttackAt *time.Time `json:"last_attack_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Account.
func (Account) TableName() string { return "accounts" }

// UnitStock is an account's inventory of one unit type.
type UnitStock struct {
	AccountID string `gorm:"type:varchar(64);primaryKey"`
	UnitType  string `gorm:"type:varchar(32);primaryKey"`
	Qty       int    `gorm:"not null;default:0"`
}

// TableName returns the database table name for UnitStock.
func (UnitStock) TableName() string { return "unit_stocks" }

// Building is one structure in an account's city. Kind is validated against
// combat.BuildingKind when loaded.
type Building struct {
	ID        uint   `gorm:"primaryKey"`
	AccountID string `gorm:"type:varchar(64);not null;index"`
	Kind      string `gorm:"type:varchar(32);not null"`
	Level     int    `gorm:"not null;default:1"`
}

// TableName returns the database table name for Building.
func (Building) TableName() string { return "buildings" }

// DailyCounter tracks one account's PvP usage on one server-local calendar
// day ("2006-01-02"). Caps are enforced by the attack service, not storage.
type DailyCounter struct {
	AccountID      string    `gorm:"type:varchar(64);primaryKey"`
	Day            string    `gorm:"type:varchar(10);primaryKey"`
	AttacksUsed    int       `gorm:"not null;default:0"`
	PrestigeGained int       `gorm:"not null;default:0"`
	PrestigeLost   int       `gorm:"not null;default:0"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime:false"`
}

// TableName returns the database table name for DailyCounter.
func (DailyCounter) TableName() string { return "pvp_daily_counters" }

// Cooldown holds the last attack time of an ordered (attacker, defender) pair.
type Cooldown struct {
	AttackerID   string    `gorm:"type:varchar(64);primaryKey"`
	DefenderID   string    `gorm:"type:varchar(64);primaryKey"`
	LastAttackAt time.Time `gorm:"not null"`
}

// TableName returns the database table name for Cooldown.
func (Cooldown) TableName() string { return "pvp_cooldowns" }

// BattleLogEntry is the append-only record of one resolved attack, always
// stored from the attacker's perspective.
type BattleLogEntry struct {
	ID                     string    `gorm:"type:char(36);primaryKey;index:idx_battles_created_id,priority:2"`
	AttackerID             string    `gorm:"type:varchar(64);not null;index"`
	DefenderID             string    `gorm:"type:varchar(64);not null;index"`
	Result                 string    `gorm:"type:varchar(8);not null"`
	PrestigeDeltaAttacker  int       `gorm:"not null"`
	PrestigeDeltaDefender  int       `gorm:"not null"`
	AttackerPrestigeBefore int       `gorm:"not null"`
	DefenderPrestigeBefore int       `gorm:"not null"`
	ExpectedWin            float64   `gorm:"not null"`
	AttackPower            int       `gorm:"not null"`
	DefensePower           int       `gorm:"not null"`
	DefenseFactor          float64   `gorm:"not null;default:1"`
	AttackerLosses         datatypes.JSONType[combat.Army]
	DefenderLosses         datatypes.JSONType[combat.Army]
	CreatedAt              time.Time `gorm:"not null;index:idx_battles_created_id,priority:1"`
}

// TableName returns the database table name for BattleLogEntry.
func (BattleLogEntry) TableName() string { return "pvp_battles" }

// DecayLogEntry audits one account's nightly decay.
type DecayLogEntry struct {
	ID             uint      `gorm:"primaryKey"`
	AccountID      string    `gorm:"type:varchar(64);not null;index:idx_decay_account_day,priority:1"`
	Day            string    `gorm:"type:varchar(10);not null;index:idx_decay_account_day,priority:2"`
	PrestigeBefore int       `gorm:"not null"`
	PrestigeAfter  int       `gorm:"not null"`
	DecayAmount    int       `gorm:"not null"`
	InactiveDays   int       `gorm:"not null"`
	RateUsed       float64   `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null"`
}

// TableName returns the database table name for DecayLogEntry.
func (DecayLogEntry) TableName() string { return "prestige_decay_logs" }

// DayTick marks that a named job already ran on a calendar day.
type DayTick struct {
	Name       string    `gorm:"column:tick_name;type:varchar(64);primaryKey"`
	Day        string    `gorm:"column:tick_day;type:varchar(10);primaryKey"`
	ExecutedAt time.Time `gorm:"not null"`
}

// TableName returns the database table name for DayTick.
func (DayTick) TableName() string { return "system_ticks" }
