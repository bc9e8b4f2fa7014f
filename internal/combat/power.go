package combat

const (
	minBuildingLevel = 1
	maxBuildingLevel = 3
)

// bonus returns the (attack, defense) contribution of one building. Every kind
// is listed; levels outside 1..3 contribute nothing.
func bonus(b Building) (attack, defense int) {
	switch b.Kind {
	case Barracks:
		return levelBonus(b.Level, 3, 7, 12), 0
	case Wall:
		return 0, levelBonus(b.Level, 4, 9, 15)
	case Tower:
		return 0, levelBonus(b.Level, 2, 5, 9)
	case TownHall, GoldMine, House, PowerPlant, Storage:
		return 0, 0
	default:
		panic("combat: unhandled building kind " + string(b.Kind))
	}
}

func levelBonus(level, l1, l2, l3 int) int {
	switch level {
	case 1:
		return l1
	case 2:
		return l2
	case 3:
		return l3
	}
	return 0
}

// Power sums building bonuses for a city. Defense includes the city's own
// offensive contribution as a baseline plus wall and tower bonuses.
func Power(buildings []Building) (attack, defense int) {
	bonusDef := 0
	for _, b := range buildings {
		a, d := bonus(b)
		attack += a
		bonusDef += d
	}
	return attack, attack + bonusDef
}

// DefenseLevels returns the highest wall and tower levels of a city, each
// defaulting to 1 when absent and clamped to 1..3.
func DefenseLevels(buildings []Building) (wall, tower int) {
	wall, tower = 0, 0
	for _, b := range buildings {
		switch b.Kind {
		case Wall:
			wall = max(wall, b.Level)
		case Tower:
			tower = max(tower, b.Level)
		}
	}
	return clampLevel(wall), clampLevel(tower)
}

func clampLevel(l int) int {
	if l < minBuildingLevel {
		return minBuildingLevel
	}
	if l > maxBuildingLevel {
		return maxBuildingLevel
	}
	return l
}
