package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-pvp-backend/internal/domain"
)

func TestCreateDayTick_OncePerDay(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := CreateDayTick(ctx, db, "nightly_decay", "2024-05-01", now); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	if err := CreateDayTick(ctx, db, "nightly_decay", "2024-05-01", now); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if err := CreateDayTick(ctx, db, "nightly_decay", "2024-05-02", now); err != nil {
		t.Fatalf("next day: %v", err)
	}
	if err := CreateDayTick(ctx, db, "other_job", "2024-05-01", now); err != nil {
		t.Fatalf("other job: %v", err)
	}
}

func TestListDecayCandidates_Keyset(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	seedAccount(t, db, "a", 1500)
	seedAccount(t, db, "b", 1200)
	seedAccount(t, db, "c", 1201)
	seedAccount(t, db, "d", 900)
	seedAccount(t, db, "e", 3000)

	first, err := ListDecayCandidates(ctx, db, 1200, "", 2)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if len(first) != 2 || first[0] != "a" || first[1] != "c" {
		t.Fatalf("page 1: %v", first)
	}
	second, err := ListDecayCandidates(ctx, db, 1200, first[1], 2)
	if err != nil || len(second) != 1 || second[0] != "e" {
		t.Fatalf("page 2: %v err=%v", second, err)
	}
}

func TestDecayLog_RoundTrip(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	seedAccount(t, db, "a", 1400)

	if _, err := GetDecayForDay(ctx, db, "a", "2024-05-01"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := SetPrestige(ctx, db, "a", 1388, now); err != nil {
		t.Fatalf("set prestige: %v", err)
	}
	entry := &domain.DecayLogEntry{
		AccountID: "a", Day: "2024-05-01", PrestigeBefore: 1400, PrestigeAfter: 1388,
		DecayAmount: 12, InactiveDays: 0, RateUsed: 0.06, CreatedAt: now,
	}
	if err := CreateDecayLog(ctx, db, entry); err != nil {
		t.Fatalf("create log: %v", err)
	}
	got, err := GetDecayForDay(ctx, db, "a", "2024-05-01")
	if err != nil || got.DecayAmount != 12 {
		t.Fatalf("unexpected log %+v err=%v", got, err)
	}
	a, _ := GetAccount(ctx, db, "a")
	if a.Prestige != 1388 {
		t.Fatalf("prestige: got %d", a.Prestige)
	}
}
