package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Idempotency record states.
const (
	IdemPending   = "pending"
	IdemCompleted = "completed"
)

// MaxIdempotencyKeyLen bounds client-supplied keys in bytes.
const MaxIdempotencyKeyLen = 64

// IdempotencyRecord remembers the outcome of one POST /pvp/attack keyed by
// (attacker_id, key). The composite primary key is the concurrency primitive:
// a second insert for the same pair fails instead of executing twice.
//
// Response holds the exact response bytes once the record is completed, so a
// replay is byte-identical to the original answer.
type IdempotencyRecord struct {
	AttackerID string         `gorm:"type:varchar(64);primaryKey"`
	Key        string         `gorm:"type:varchar(64);primaryKey"`
	Status     string         `gorm:"type:varchar(16);not null;check:status IN ('pending','completed')"`
	Response   datatypes.JSON `gorm:"type:text"`
	ClaimedAt  time.Time      `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName implements the GORM tabler interface.
func (IdempotencyRecord) TableName() string { return "pvp_idempotency" }

// Completed reports whether the record carries a replayable response.
func (r IdempotencyRecord) Completed() bool {
	return r.Status == IdemCompleted && len(r.Response) > 0
}
