package combat

import (
	"math"
	"math/rand/v2"
)

// Balance constants.
const (
	BaseGain = 30
	BaseLoss = 25

	ExpectedWinBase    = 0.35
	ExpectedWinDivisor = 2000.0
	ExpectedWinMin     = 0.15
	ExpectedWinMax     = 0.85

	DefenseFactorPerWallLevel  = 0.05
	DefenseFactorPerTowerLevel = 0.05
	DefenseFactorMin           = 1.0
	DefenseFactorMax           = 1.2

	rollMin  = 0.9
	rollSpan = 0.2
)

// Roller is the single randomness injection point. Float64 returns a value
// in [0, 1).
type Roller interface {
	Float64() float64
}

// SystemRoller draws from the runtime-seeded math/rand/v2 source. It is safe
// for concurrent use.
type SystemRoller struct{}

func (SystemRoller) Float64() float64 { return rand.Float64() }

// FixedRoller replays a fixed sequence of values, cycling when exhausted.
// An empty sequence always yields 0.5 (a neutral 1.0 multiplier).
type FixedRoller struct {
	Values []float64
	next   int
}

func (f *FixedRoller) Float64() float64 {
	if len(f.Values) == 0 {
		return 0.5
	}
	v := f.Values[f.next%len(f.Values)]
	f.next++
	return v
}

// RollOutcome scales each side's power by an independent factor in
// [0.9, 1.1) and compares. Ties go to the attacker.
func RollOutcome(attackPower, defensePower int, r Roller) Result {
	att := float64(attackPower) * (rollMin + float64(rollSpan*r.Float64()))
	def := float64(defensePower) * (rollMin + float64(rollSpan*r.Float64()))
	if att >= def {
		return Win
	}
	return Loss
}

// ExpectedWin is the attacker's modeled win probability from the prestige gap.
func ExpectedWin(attackerPrestige, defenderPrestige int) float64 {
	delta := float64(defenderPrestige - attackerPrestige)
	return clamp(ExpectedWinBase+delta/ExpectedWinDivisor, ExpectedWinMin, ExpectedWinMax)
}

// PrestigeDelta is the uncapped attacker delta for a result. Halves round to
// even.
func PrestigeDelta(expectedWin float64, res Result) int {
	if res == Win {
		return int(math.RoundToEven(BaseGain * (1 + (1 - expectedWin))))
	}
	return -int(math.RoundToEven(BaseLoss * (1 + expectedWin)))
}

// DefenseFactor converts defensive building levels into a multiplier in
// [1.0, 1.2].
func DefenseFactor(wallLevel, towerLevel int) float64 {
	f := DefenseFactorMin
	f += float64(DefenseFactorPerWallLevel * float64(wallLevel-1))
	f += float64(DefenseFactorPerTowerLevel * float64(towerLevel-1))
	return clamp(f, DefenseFactorMin, DefenseFactorMax)
}

// clamp keeps v inside [lo, hi]. NaN collapses to lo.
func clamp(v, lo, hi float64) float64 {
	if !(v >= lo) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
