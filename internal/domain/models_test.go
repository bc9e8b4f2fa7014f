package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-pvp-backend/internal/combat"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Account{}, &UnitStock{}, &Building{}, &DailyCounter{}, &Cooldown{},
		&IdempotencyRecord{}, &BattleLogEntry{}, &DecayLogEntry{}, &DayTick{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		(Account{}).TableName():           "accounts",
		(UnitStock{}).TableName():         "unit_stocks",
		(Building{}).TableName():          "buildings",
		(DailyCounter{}).TableName():      "pvp_daily_counters",
		(Cooldown{}).TableName():          "pvp_cooldowns",
		(IdempotencyRecord{}).TableName(): "pvp_idempotency",
		(BattleLogEntry{}).TableName():    "pvp_battles",
		(DecayLogEntry{}).TableName():     "prestige_decay_logs",
		(DayTick{}).TableName():           "system_ticks",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestMigrations_Indexes(t *testing.T) {
	db := newDomainDB(t)
	m := db.Migrator()
	if !m.HasIndex(&BattleLogEntry{}, "idx_battles_created_id") {
		t.Fatalf("expected idx_battles_created_id on pvp_battles")
	}
	if !m.HasIndex(&DecayLogEntry{}, "idx_decay_account_day") {
		t.Fatalf("expected idx_decay_account_day on prestige_decay_logs")
	}
	if !m.HasColumn(&DayTick{}, "tick_name") || !m.HasColumn(&DayTick{}, "tick_day") {
		t.Fatalf("expected tick_name/tick_day columns")
	}
}

func TestAccount_DefaultPrestige(t *testing.T) {
	db := newDomainDB(t)
	if err := db.Create(&Account{ID: "a1", Name: "alice"}).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	var got Account
	if err := db.First(&got, "id = ?", "a1").Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Prestige != DefaultPrestige {
		t.Fatalf("prestige: got %d want %d", got.Prestige, DefaultPrestige)
	}
	if got.LastAttackAt != nil {
		t.Fatalf("last_attack_at should start nil")
	}
}

func TestIdempotencyRecord_PrimaryKeyRejectsSecondClaim(t *testing.T) {
	db := newDomainDB(t)
	now := time.Now().UTC()
	rec := IdempotencyRecord{AttackerID: "a1", Key: "k1", Status: IdemPending, ClaimedAt: now}
	if err := db.Create(&rec).Error; err != nil {
		t.Fatalf("first insert: %v", err)
	}
	dup := IdempotencyRecord{AttackerID: "a1", Key: "k1", Status: IdemPending, ClaimedAt: now}
	if err := db.Create(&dup).Error; err == nil {
		t.Fatalf("expected unique violation on (attacker_id, key)")
	}
	other := IdempotencyRecord{AttackerID: "a2", Key: "k1", Status: IdemPending, ClaimedAt: now}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("same key for another attacker must be allowed: %v", err)
	}
	bad := IdempotencyRecord{AttackerID: "a3", Key: "k1", Status: "failed", ClaimedAt: now}
	if err := db.Create(&bad).Error; err == nil {
		t.Fatalf("expected check constraint on status")
	}
}

func TestIdempotencyRecord_Completed(t *testing.T) {
	if (IdempotencyRecord{Status: IdemPending, Response: datatypes.JSON(`{}`)}).Completed() {
		t.Fatalf("pending must not be completed")
	}
	if (IdempotencyRecord{Status: IdemCompleted}).Completed() {
		t.Fatalf("completed without body must not be replayable")
	}
	if !(IdempotencyRecord{Status: IdemCompleted, Response: datatypes.JSON(`{"a":1}`)}).Completed() {
		t.Fatalf("expected completed")
	}
}

func TestBattleLogEntry_LossesRoundTrip(t *testing.T) {
	db := newDomainDB(t)
	entry := BattleLogEntry{
		ID:             "00000000-0000-4000-8000-000000000001",
		AttackerID:     "a1",
		DefenderID:     "d1",
		Result:         string(combat.Win),
		ExpectedWin:    0.35,
		DefenseFactor:  1,
		AttackerLosses: datatypes.NewJSONType(combat.Army{combat.Raider: 7, combat.Guardian: 0}),
		DefenderLosses: datatypes.NewJSONType(combat.Army{combat.Raider: 10, combat.Guardian: 3}),
		CreatedAt:      time.Now().UTC(),
	}
	if err := db.Create(&entry).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	var got BattleLogEntry
	if err := db.First(&got, "id = ?", entry.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.DefenderLosses.Data()[combat.Guardian] != 3 || got.AttackerLosses.Data()[combat.Raider] != 7 {
		t.Fatalf("losses not preserved: %v / %v", got.AttackerLosses.Data(), got.DefenderLosses.Data())
	}
}
