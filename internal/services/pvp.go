// Package services – PvP rules and shared views
//
// This file holds the daily caps and cooldowns enforced by the attack gate,
// the response blocks shared by POST /pvp/attack and GET /pvp/limits, and the
// calendar helpers that anchor "today" to the server time zone.
package services

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Daily caps and cooldowns.
const (
	AttackCap        = 20
	GainCap          = 300
	LossCap          = 250
	GlobalCooldown   = 30 * time.Second
	PairwiseCooldown = 30 * time.Minute
	MinArmy          = 10

	// DefaultIdempotencyStaleAfter is how long a pending claim blocks retries
	// before another request may take it over.
	DefaultIdempotencyStaleAfter = time.Minute

	approachingAttacks = 2
	approachingGain    = 50
)

// Advisory message codes.
const (
	MsgApproachingAttackCap = "APPROACHING_ATTACK_CAP"
	MsgApproachingGainCap   = "APPROACHING_GAIN_CAP"
	MsgAttackCapReached     = "ATTACK_CAP_REACHED"
	MsgGainCapReached       = "GAIN_CAP_REACHED"
	MsgLossCapReached       = "LOSS_CAP_REACHED"
	MsgGlobalCooldown       = string(CodeGlobalCooldown)
)

// Recorder receives domain events for metrics. Nil-safe via recorderOrNop.
type Recorder interface {
	AttackResolved(result string, appliedDelta int)
	AttackRejected(code string)
	AttackReplayed()
	DecayApplied(accounts int)
}

type nopRecorder struct{}

func (nopRecorder) AttackResolved(string, int) {}
func (nopRecorder) AttackRejected(string)      {}
func (nopRecorder) AttackReplayed()            {}
func (nopRecorder) DecayApplied(int)           {}

func recorderOrNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}

// LimitsBlock reports an account's usage of today's caps.
type LimitsBlock struct {
	AttacksUsed       int       `json:"attacks_used"`
	AttacksLeft       int       `json:"attacks_left"`
	PrestigeGainToday int       `json:"prestige_gain_today"`
	PrestigeGainLeft  int       `json:"prestige_gain_left"`
	PrestigeLossToday int       `json:"prestige_loss_today"`
	PrestigeLossLeft  int       `json:"prestige_loss_left"`
	ResetAt           time.Time `json:"reset_at"`
}

// Notice is a human-readable rendering of an advisory message code.
type Notice struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

func newLimitsBlock(attacksUsed, gained, lost int, resetAt time.Time) LimitsBlock {
	return LimitsBlock{
		AttacksUsed:       attacksUsed,
		AttacksLeft:       max(0, AttackCap-attacksUsed),
		PrestigeGainToday: gained,
		PrestigeGainLeft:  max(0, GainCap-gained),
		PrestigeLossToday: lost,
		PrestigeLossLeft:  max(0, LossCap-lost),
		ResetAt:           resetAt,
	}
}

// advisoryMessages derives the headroom notices for a limits snapshot. Each
// threshold is checked on its own, so a reached cap also reports its
// approaching code. The result is never nil so it encodes as [].
func advisoryMessages(l LimitsBlock) []string {
	msgs := []string{}
	if l.AttacksLeft <= approachingAttacks {
		msgs = append(msgs, MsgApproachingAttackCap)
	}
	if l.PrestigeGainLeft <= approachingGain {
		msgs = append(msgs, MsgApproachingGainCap)
	}
	if l.AttacksLeft == 0 {
		msgs = append(msgs, MsgAttackCapReached)
	}
	if l.PrestigeGainLeft == 0 {
		msgs = append(msgs, MsgGainCapReached)
	}
	if l.PrestigeLossLeft == 0 {
		msgs = append(msgs, MsgLossCapReached)
	}
	return msgs
}

// notices renders message codes as title-cased text, e.g.
// "APPROACHING_GAIN_CAP" becomes "Approaching Gain Cap".
func notices(codes []string) []Notice {
	caser := cases.Title(language.English)
	out := make([]Notice, 0, len(codes))
	for _, c := range codes {
		words := strings.ToLower(strings.ReplaceAll(c, "_", " "))
		out = append(out, Notice{Code: c, Text: caser.String(words)})
	}
	return out
}

// dayKey is the server-local calendar day of t.
func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// nextMidnight is the start of the server-local day after t.
func nextMidnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}

// clock returns now in UTC at the precision the database keeps.
func clock(now func() time.Time) time.Time {
	if now == nil {
		now = time.Now
	}
	return now().UTC().Truncate(time.Microsecond)
}

func locOrUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
