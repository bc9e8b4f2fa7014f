package combat

import (
	"math"
	"time"
)

// Nightly decay constants.
const (
	DecayThreshold       = 1200
	DecayRate            = 0.06
	DecayMax             = 60.0
	InactivityGraceDays  = 2
	InactivityMultiplier = 1.5

	// NeverAttackedDays stands in for the inactivity of accounts that never
	// attacked.
	NeverAttackedDays = 999
)

// Decay computes the nightly prestige reduction for an account. A zero amount
// means the account is left alone.
func Decay(prestige, inactiveDays int) (amount int, rate float64) {
	excess := prestige - DecayThreshold
	if excess <= 0 {
		return 0, 0
	}
	rate = DecayRate
	if inactiveDays >= InactivityGraceDays {
		rate *= InactivityMultiplier
	}
	amount = int(math.RoundToEven(math.Min(DecayMax, float64(excess)*rate)))
	if amount <= 0 {
		return 0, rate
	}
	return amount, rate
}

// InactiveDays counts calendar days in loc between the last attack and now.
func InactiveDays(now time.Time, lastAttack *time.Time, loc *time.Location) int {
	if lastAttack == nil {
		return NeverAttackedDays
	}
	return CivilDays(lastAttack.In(loc), now.In(loc))
}

// CivilDays returns the number of calendar-date boundaries between from and to,
// using each value's own location.
func CivilDays(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
