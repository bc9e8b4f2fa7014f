package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"gorm.io/gorm"

	"github.com/tbourn/go-pvp-backend/internal/combat"
	"github.com/tbourn/go-pvp-backend/internal/domain"
	"github.com/tbourn/go-pvp-backend/internal/repo"
)

// ---------- test helpers ----------

// newPvPDB opens a temp-file SQLite database with the production pragmas so
// concurrent transactions behave like they do in the server.
func newPvPDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.Open(repo.Options{
		Driver: repo.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "pvp.db"),
		Silent: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func warsaw(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Warsaw")
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	return loc
}

// testClock is a goroutine-safe settable clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(t time.Time) *testClock { return &testClock{now: t} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// noon on a summer weekday, 12:00 in Warsaw.
var baseTime = time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)

func seedPlayer(t *testing.T, db *gorm.DB, id string, prestige, raiders, guardians int, buildings ...domain.Building) {
	t.Helper()
	if err := db.Create(&domain.Account{ID: id, Name: "Player " + id, Prestige: prestige}).Error; err != nil {
		t.Fatalf("seed account %s: %v", id, err)
	}
	for u, n := range map[combat.UnitType]int{combat.Raider: raiders, combat.Guardian: guardians} {
		if err := repo.SetUnits(context.Background(), db, id, u, n); err != nil {
			t.Fatalf("seed units %s: %v", id, err)
		}
	}
	for _, b := range buildings {
		b.AccountID = id
		if err := db.Create(&b).Error; err != nil {
			t.Fatalf("seed building %s: %v", id, err)
		}
	}
}

func armyOf(t *testing.T, db *gorm.DB, id string) combat.Army {
	t.Helper()
	a, err := repo.LoadArmy(context.Background(), db, id)
	if err != nil {
		t.Fatalf("load army %s: %v", id, err)
	}
	return a
}

func prestigeOf(t *testing.T, db *gorm.DB, id string) int {
	t.Helper()
	a, err := repo.GetAccount(context.Background(), db, id)
	if err != nil {
		t.Fatalf("get account %s: %v", id, err)
	}
	return a.Prestige
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

// fakeRecorder counts domain events.
type fakeRecorder struct {
	mu        sync.Mutex
	resolved  map[string]int
	rejected  map[string]int
	replays   int
	decayed   int
	lastDelta int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{resolved: map[string]int{}, rejected: map[string]int{}}
}

func (f *fakeRecorder) AttackResolved(result string, delta int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved[result]++
	f.lastDelta = delta
}

func (f *fakeRecorder) AttackRejected(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejected[code]++
}

func (f *fakeRecorder) AttackReplayed() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replays++
}

func (f *fakeRecorder) DecayApplied(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decayed += n
}
