package combat

import (
	"math"
	"testing"
	"time"
)

func TestParseBuildingKind(t *testing.T) {
	cases := map[string]BuildingKind{
		"barracks":    Barracks,
		" Wall ":      Wall,
		"scout_tower": Tower,
		"power_plant": PowerPlant,
	}
	for in, want := range cases {
		got, err := ParseBuildingKind(in)
		if err != nil || got != want {
			t.Fatalf("ParseBuildingKind(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseBuildingKind("moat"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestPower_BonusTables(t *testing.T) {
	city := []Building{
		{Kind: Barracks, Level: 2}, // +7 attack
		{Kind: Barracks, Level: 3}, // +12 attack
		{Kind: Wall, Level: 1},     // +4 defense
		{Kind: Tower, Level: 3},    // +9 defense
		{Kind: TownHall, Level: 3},
		{Kind: Barracks, Level: 9}, // out of table
	}
	att, def := Power(city)
	if att != 19 {
		t.Fatalf("attack: got %d want 19", att)
	}
	if def != 19+4+9 {
		t.Fatalf("defense: got %d want %d", def, 19+4+9)
	}

	att, def = Power(nil)
	if att != 0 || def != 0 {
		t.Fatalf("empty city: got (%d,%d)", att, def)
	}
}

func TestDefenseLevels_DefaultsAndClamp(t *testing.T) {
	w, tw := DefenseLevels(nil)
	if w != 1 || tw != 1 {
		t.Fatalf("absent: got (%d,%d) want (1,1)", w, tw)
	}
	w, tw = DefenseLevels([]Building{{Wall, 5}, {Wall, 2}, {Tower, 0}})
	if w != 3 || tw != 1 {
		t.Fatalf("clamped: got (%d,%d) want (3,1)", w, tw)
	}
}

func TestRollOutcome_TiesGoToAttacker(t *testing.T) {
	r := &FixedRoller{Values: []float64{0.5, 0.5}}
	if got := RollOutcome(10, 10, r); got != Win {
		t.Fatalf("tie: got %s want win", got)
	}
	// attacker 0.9x, defender ~1.1x
	r = &FixedRoller{Values: []float64{0, 0.999}}
	if got := RollOutcome(10, 10, r); got != Loss {
		t.Fatalf("got %s want loss", got)
	}
	if got := RollOutcome(0, 0, &FixedRoller{}); got != Win {
		t.Fatalf("zero powers: got %s want win", got)
	}
}

func TestExpectedWin(t *testing.T) {
	cases := []struct {
		att, def int
		want     float64
	}{
		{1000, 1000, 0.35},
		{1000, 1300, 0.5},
		{1000, 3000, 0.85},
		{3000, 1000, 0.15},
	}
	for _, c := range cases {
		if got := ExpectedWin(c.att, c.def); math.Abs(got-c.want) > 1e-12 {
			t.Fatalf("ExpectedWin(%d,%d) = %v want %v", c.att, c.def, got, c.want)
		}
	}
}

func TestPrestigeDelta_RoundsHalfToEven(t *testing.T) {
	cases := []struct {
		name   string
		gap    int // defender - attacker
		result Result
		want   int
	}{
		{"equal prestige win 49.5", 0, Win, 50},
		{"win 46.5 rounds down", 200, Win, 46},
		{"win 52.5 rounds down", -200, Win, 52},
		{"win 55.5 rounds up", -400, Win, 56},
		{"win 34.5 at max expected", 1000, Win, 34},
		{"win exact 51", -100, Win, 51},
		{"loss 32.5 rounds down", -100, Loss, -32},
		{"loss 37.5 rounds up", 300, Loss, -38},
		{"loss 33.75", 0, Loss, -34},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ew := ExpectedWin(1000, 1000+c.gap)
			if got := PrestigeDelta(ew, c.result); got != c.want {
				t.Fatalf("PrestigeDelta(%v, %s) = %d want %d", ew, c.result, got, c.want)
			}
		})
	}
}

func TestDefenseFactor(t *testing.T) {
	cases := []struct {
		wall, tower int
		want        float64
	}{
		{1, 1, 1.0},
		{2, 1, 1.05},
		{3, 3, 1.2},
		{9, 9, 1.2},
		{0, 0, 1.0},
	}
	for _, c := range cases {
		if got := DefenseFactor(c.wall, c.tower); math.Abs(got-c.want) > 1e-12 {
			t.Fatalf("DefenseFactor(%d,%d) = %v want %v", c.wall, c.tower, got, c.want)
		}
	}
}

func TestLossRates_AndApplyLosses(t *testing.T) {
	army := Army{Raider: 100, Guardian: 100}
	cases := []struct {
		name     string
		ew       float64
		res      Result
		df       float64
		att, def int // per unit type
	}{
		{"even loss", 0.35, Loss, 1.0, 19, 4},
		{"even win", 0.35, Win, 1.0, 7, 10},
		{"fortified loss", 0.35, Loss, 1.2, 22, 3},
		{"favoured win", 0.85, Win, 1.0, 4, 16},
		{"hopeless loss", 0.15, Loss, 1.2, 25, 2},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ar, dr := LossRates(c.ew, c.res, c.df)
			al := ApplyLosses(army, ar)
			dl := ApplyLosses(army, dr)
			for _, u := range UnitTypes {
				if al[u] != c.att {
					t.Fatalf("attacker %s: got %d want %d (rate %v)", u, al[u], c.att, ar)
				}
				if dl[u] != c.def {
					t.Fatalf("defender %s: got %d want %d (rate %v)", u, dl[u], c.def, dr)
				}
			}
		})
	}
}

func TestLossRates_CappedByBand(t *testing.T) {
	ar, dr := LossRates(0, Loss, 1.2)
	if ar != 0.25 {
		t.Fatalf("attacker rate: got %v want 0.25", ar)
	}
	if dr <= 0 || dr > 0.08 {
		t.Fatalf("defender rate out of band: %v", dr)
	}
}

func TestApplyLosses_MinimumLoss(t *testing.T) {
	cases := []struct {
		name string
		in   Army
		rate float64
		want Army
	}{
		{"tie resolves to first type", Army{Raider: 5, Guardian: 5}, 0.05, Army{Raider: 1, Guardian: 0}},
		{"largest type loses", Army{Raider: 3, Guardian: 7}, 0.01, Army{Raider: 0, Guardian: 1}},
		{"below threshold keeps zero", Army{Raider: 9}, 0.05, Army{Raider: 0, Guardian: 0}},
		{"zero rate still floors to one", Army{Raider: 40, Guardian: 2}, 0, Army{Raider: 1, Guardian: 0}},
		{"negative counts ignored", Army{Raider: -4, Guardian: 12}, 0.5, Army{Raider: 0, Guardian: 6}},
		{"rate above one clamps", Army{Raider: 3, Guardian: 1}, 7, Army{Raider: 3, Guardian: 1}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ApplyLosses(c.in, c.rate)
			if len(got) != len(UnitTypes) {
				t.Fatalf("expected zero-filled army, got %v", got)
			}
			for _, u := range UnitTypes {
				if got[u] != c.want[u] {
					t.Fatalf("%s: got %d want %d (%v)", u, got[u], c.want[u], got)
				}
			}
		})
	}
}

func TestApplyLosses_DirectSubtraction(t *testing.T) {
	before := Army{Raider: 100, Guardian: 100}
	ar, _ := LossRates(0.35, Loss, 1.0)
	lost := ApplyLosses(before, ar)
	after := before.Subtract(lost)
	for _, u := range UnitTypes {
		want := before[u] - int(math.Floor(float64(before[u])*ar))
		if after[u] != want {
			t.Fatalf("%s: got %d want %d", u, after[u], want)
		}
	}
}

func TestDecay(t *testing.T) {
	cases := []struct {
		name     string
		prestige int
		inactive int
		want     int
		wantRate float64
	}{
		{"active", 1400, 0, 12, 0.06},
		{"inactive three days", 1400, 3, 18, 0.09},
		{"grace boundary", 1400, 2, 18, 0.09},
		{"one day is still active", 1400, 1, 12, 0.06},
		{"capped at 60", 3000, 0, 60, 0.06},
		{"half rounds to even 4.5", 1275, 0, 4, 0.06},
		{"half rounds to even 7.5", 1325, 0, 8, 0.06},
		{"never attacked", 1650, NeverAttackedDays, 40, 0.09},
		{"at threshold", 1200, 5, 0, 0},
		{"rounds to zero", 1208, 0, 0, 0.06},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, rate := Decay(c.prestige, c.inactive)
			if got != c.want {
				t.Fatalf("Decay(%d,%d) = %d want %d", c.prestige, c.inactive, got, c.want)
			}
			if math.Abs(rate-c.wantRate) > 1e-12 {
				t.Fatalf("rate: got %v want %v", rate, c.wantRate)
			}
		})
	}
}

func TestInactiveDays(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Warsaw")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	now := time.Date(2024, 3, 10, 1, 0, 0, 0, loc)
	if got := InactiveDays(now, nil, loc); got != NeverAttackedDays {
		t.Fatalf("nil: got %d", got)
	}
	// 23:30 UTC on the 8th is already the 9th in Warsaw.
	last := time.Date(2024, 3, 8, 23, 30, 0, 0, time.UTC)
	if got := InactiveDays(now, &last, loc); got != 1 {
		t.Fatalf("got %d want 1", got)
	}
	same := now.Add(-30 * time.Minute)
	if got := InactiveDays(now, &same, loc); got != 0 {
		t.Fatalf("got %d want 0", got)
	}
}

func TestResolve_Overrides(t *testing.T) {
	atk := Side{Prestige: 1000, Army: Army{Raider: 100, Guardian: 100}}
	def := Side{Prestige: 1000, Army: Army{Raider: 100, Guardian: 100}}

	forced := Win
	b := Resolve(atk, def, &FixedRoller{Values: []float64{0, 0.999}}, Override{Result: &forced})
	if b.Result != Win || b.RawDelta != 50 {
		t.Fatalf("forced win: got %s/%d", b.Result, b.RawDelta)
	}
	if b.AttackerLoss[Raider] != 7 || b.DefenderLoss[Raider] != 10 {
		t.Fatalf("losses should follow the forced result, got %v / %v", b.AttackerLoss, b.DefenderLoss)
	}

	delta := 30
	b = Resolve(atk, def, &FixedRoller{}, Override{Delta: &delta})
	if b.RawDelta != 30 {
		t.Fatalf("forced delta: got %d", b.RawDelta)
	}
}

func TestCapDelta(t *testing.T) {
	cases := []struct{ raw, gainLeft, lossLeft, want int }{
		{30, 5, 250, 5},
		{30, 0, 250, 0},
		{-34, 300, 10, -10},
		{-34, 300, 250, -34},
		{0, 300, 250, 0},
		{10, -3, 0, 0},
	}
	for _, c := range cases {
		if got := CapDelta(c.raw, c.gainLeft, c.lossLeft); got != c.want {
			t.Fatalf("CapDelta(%d,%d,%d) = %d want %d", c.raw, c.gainLeft, c.lossLeft, got, c.want)
		}
	}
}
