package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Cursor is a position in a (created_at, id) descending keyset.
type Cursor struct {
	CreatedAt time.Time
	BattleID  string
}

type cursorWire struct {
	CreatedAt string `json:"created_at"`
	BattleID  string `json:"battle_id"`
}

// ErrInvalidCursor is returned for any cursor that does not decode.
var ErrInvalidCursor = errors.New("invalid cursor")

// EncodeCursor renders c as unpadded base64url JSON. Timestamps are UTC with
// full precision so a decoded cursor compares equal to the stored row.
func EncodeCursor(c Cursor) string {
	raw, _ := json.Marshal(cursorWire{
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339Nano),
		BattleID:  c.BattleID,
	})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a cursor produced by EncodeCursor. Trailing padding is
// tolerated.
func DecodeCursor(s string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	var w cursorWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	if w.BattleID == "" || w.CreatedAt == "" {
		return Cursor{}, ErrInvalidCursor
	}
	t, err := time.Parse(time.RFC3339Nano, w.CreatedAt)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	return Cursor{CreatedAt: t.UTC(), BattleID: w.BattleID}, nil
}
