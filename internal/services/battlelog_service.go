// Package services – BattleLogService
//
// This file implements the battle history reader behind GET /pvp/log. Pages
// are keyset-paginated over (created_at, id) descending with an opaque
// cursor, and each row is rendered from the requester's perspective: storage
// is always attacker-perspective, so a defender sees the result flipped and
// the prestige delta negated.
package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-pvp-backend/internal/combat"
	"github.com/tbourn/go-pvp-backend/internal/domain"
	"github.com/tbourn/go-pvp-backend/internal/repo"
	"github.com/tbourn/go-pvp-backend/internal/utils"
)

// Page size bounds for the battle log.
const (
	DefaultLogLimit = 20
	MaxLogLimit     = 50
)

// LogItem is one battle as seen by the requester.
type LogItem struct {
	BattleID      string      `json:"battle_id"`
	AttackerID    string      `json:"attacker_id"`
	AttackerName  string      `json:"attacker_name"`
	DefenderID    string      `json:"defender_id"`
	DefenderName  string      `json:"defender_name"`
	Role          string      `json:"role"`
	Result        string      `json:"result"`
	PrestigeDelta int         `json:"prestige_delta"`
	Losses        LossesBlock `json:"losses"`
	CreatedAt     time.Time   `json:"created_at"`
}

// LogPage is the body of GET /pvp/log.
type LogPage struct {
	Items      []LogItem `json:"items"`
	NextCursor *string   `json:"next_cursor"`
}

// BattleLogService serves the battle history.
type BattleLogService struct {
	DB *gorm.DB
}

// NewBattleLogService constructs a BattleLogService.
func NewBattleLogService(db *gorm.DB) *BattleLogService {
	return &BattleLogService{DB: db}
}

// List returns up to limit battles involving accountID, strictly older than
// cursor when one is given.
func (s *BattleLogService) List(ctx context.Context, accountID string, limit int, cursor string) (*LogPage, error) {
	tr := otel.Tracer("services/BattleLogService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("account.id", accountID),
			attribute.Int("limit", limit),
			attribute.Bool("cursor", cursor != ""),
		),
	)
	defer span.End()

	if accountID == "" {
		return nil, ErrUnauthenticated
	}
	if limit < 1 || limit > MaxLogLimit {
		return nil, ErrInvalidLimit
	}
	var after *repo.BattleKey
	if cursor != "" {
		c, err := utils.DecodeCursor(cursor)
		if err != nil {
			return nil, &Error{Code: CodeInvalidCursor, Message: "invalid cursor", Cause: err}
		}
		after = &repo.BattleKey{CreatedAt: c.CreatedAt, ID: c.BattleID}
	}

	rows, err := repo.ListBattlesPage(ctx, s.DB, accountID, after, limit+1)
	if err != nil {
		return nil, wrapInternal("list battles", err)
	}
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}

	ids := make([]string, 0, len(rows)*2)
	for _, r := range rows {
		ids = append(ids, r.AttackerID, r.DefenderID)
	}
	accounts, err := repo.GetAccountsByID(ctx, s.DB, ids)
	if err != nil {
		return nil, wrapInternal("load participants", err)
	}

	page := &LogPage{Items: make([]LogItem, 0, len(rows))}
	for _, r := range rows {
		page.Items = append(page.Items, logItem(r, accountID, accounts))
	}
	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		next := utils.EncodeCursor(utils.Cursor{CreatedAt: last.CreatedAt, BattleID: last.ID})
		page.NextCursor = &next
	}
	return page, nil
}

// Version returns the number of battles involving accountID and the newest
// created_at, for conditional GETs.
func (s *BattleLogService) Version(ctx context.Context, accountID string) (int64, *time.Time, error) {
	tr := otel.Tracer("services/BattleLogService")
	ctx, span := tr.Start(ctx, "Version",
		trace.WithAttributes(attribute.String("account.id", accountID)),
	)
	defer span.End()

	return repo.BattleStats(ctx, s.DB, accountID)
}

func logItem(r domain.BattleLogEntry, viewer string, accounts map[string]domain.Account) LogItem {
	item := LogItem{
		BattleID:      r.ID,
		AttackerID:    r.AttackerID,
		AttackerName:  accounts[r.AttackerID].Name,
		DefenderID:    r.DefenderID,
		DefenderName:  accounts[r.DefenderID].Name,
		Role:          "attacker",
		Result:        r.Result,
		PrestigeDelta: r.PrestigeDeltaAttacker,
		Losses: LossesBlock{
			Attacker: zeroFilled(r.AttackerLosses.Data()),
			Defender: zeroFilled(r.DefenderLosses.Data()),
		},
		CreatedAt: r.CreatedAt.UTC(),
	}
	if r.DefenderID == viewer && r.AttackerID != viewer {
		item.Role = "defender"
		if res, ok := combat.ParseResult(r.Result); ok {
			item.Result = string(res.Flip())
		}
		item.PrestigeDelta = -r.PrestigeDeltaAttacker
	}
	return item
}

// zeroFilled reports every known unit type even for rows stored without one.
func zeroFilled(a combat.Army) combat.Army {
	out := combat.NewArmy()
	for u, n := range a {
		out[u] = n
	}
	return out
}
