package combat

// Side is one participant's state going into a battle.
type Side struct {
	Prestige  int
	Buildings []Building
	Army      Army
}

// Override forces parts of a resolution. Only test-mode callers set it.
type Override struct {
	Result *Result
	Delta  *int
}

// Battle is the full, uncapped outcome of one attack.
type Battle struct {
	Result        Result
	ExpectedWin   float64
	RawDelta      int
	AttackPower   int
	DefensePower  int
	DefenseFactor float64
	AttackerRate  float64
	DefenderRate  float64
	AttackerLoss  Army
	DefenderLoss  Army
}

// Resolve runs the whole combat model for one attack. The roll is always
// consumed so a forced result does not shift later draws from r.
func Resolve(attacker, defender Side, r Roller, ov Override) Battle {
	attackPower, _ := Power(attacker.Buildings)
	_, defensePower := Power(defender.Buildings)

	b := Battle{
		Result:       RollOutcome(attackPower, defensePower, r),
		ExpectedWin:  ExpectedWin(attacker.Prestige, defender.Prestige),
		AttackPower:  attackPower,
		DefensePower: defensePower,
	}
	if ov.Result != nil {
		b.Result = *ov.Result
	}
	b.RawDelta = PrestigeDelta(b.ExpectedWin, b.Result)
	if ov.Delta != nil {
		b.RawDelta = *ov.Delta
	}

	b.DefenseFactor = DefenseFactor(DefenseLevels(defender.Buildings))
	b.AttackerRate, b.DefenderRate = LossRates(b.ExpectedWin, b.Result, b.DefenseFactor)
	b.AttackerLoss = ApplyLosses(attacker.Army, b.AttackerRate)
	b.DefenderLoss = ApplyLosses(defender.Army, b.DefenderRate)
	return b
}

// CapDelta clamps a raw attacker delta to the remaining daily headroom.
func CapDelta(raw, gainLeft, lossLeft int) int {
	switch {
	case raw > 0:
		return min(raw, max(0, gainLeft))
	case raw < 0:
		return -min(-raw, max(0, lossLeft))
	}
	return 0
}
