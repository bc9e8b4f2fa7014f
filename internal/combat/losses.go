package combat

import "math"

// Loss rate bands.
const (
	attackerWinRateMin  = 0.03
	attackerWinRateMax  = 0.10
	attackerLossRateMin = 0.08
	attackerLossRateMax = 0.25

	defenderLossRateMin = 0.06 // defender's rate when the attacker wins
	defenderLossRateMax = 0.18
	defenderWinRateMin  = 0.02 // defender's rate when the attacker loses
	defenderWinRateMax  = 0.08

	MinimumLossThreshold = 10
	minimumLossUnits     = 1
)

// LossRates returns the fraction of each side's army lost in a battle. The
// defense factor raises attacker losses and shields the defender.
func LossRates(expectedWin float64, res Result, defenseFactor float64) (attacker, defender float64) {
	p := clamp(expectedWin, 0, 1)
	difficulty := 1 - p
	df := clamp(defenseFactor, DefenseFactorMin, DefenseFactorMax)

	if res == Win {
		attacker = clamp(0.03+float64(0.07*difficulty), attackerWinRateMin, attackerWinRateMax)
		defender = clamp(0.06+float64(0.12*(1-difficulty)), defenderLossRateMin, defenderLossRateMax)
	} else {
		attacker = clamp(0.08+float64(0.17*difficulty), attackerLossRateMin, attackerLossRateMax)
		defender = clamp(0.02+float64(0.06*(1-difficulty)), defenderWinRateMin, defenderWinRateMax)
	}

	attacker = clamp(attacker*df, 0, max(attackerWinRateMax, attackerLossRateMax))
	defender = clamp(defender/df, 0, max(defenderLossRateMax, defenderWinRateMax))
	return attacker, defender
}

// ApplyLosses converts a loss rate into whole units lost per type. Each loss
// is floor(count*rate) and never exceeds the count. An army of at least
// MinimumLossThreshold units that would lose nothing loses exactly one unit
// of its largest type, ties resolved in UnitTypes order.
func ApplyLosses(counts Army, rate float64) Army {
	rate = clamp(rate, 0, 1)

	have := NewArmy()
	total := 0
	for _, u := range UnitTypes {
		have[u] = max(0, counts[u])
		total += have[u]
	}

	lost := NewArmy()
	lostTotal := 0
	for _, u := range UnitTypes {
		n := min(int(math.Floor(float64(have[u])*rate)), have[u])
		lost[u] = n
		lostTotal += n
	}

	if total >= MinimumLossThreshold && lostTotal == 0 {
		dominant := UnitTypes[0]
		for _, u := range UnitTypes[1:] {
			if have[u] > have[dominant] {
				dominant = u
			}
		}
		lost[dominant] = min(minimumLossUnits, have[dominant])
	}
	return lost
}

// Subtract returns a minus losses, never going below zero.
func (a Army) Subtract(losses Army) Army {
	out := NewArmy()
	for _, u := range UnitTypes {
		out[u] = max(0, a[u]-losses[u])
	}
	return out
}
