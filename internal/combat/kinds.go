// Package combat holds the pure game-balance model for PvP battles: building
// derived power, outcome rolls, expected-win probability, prestige deltas,
// unit losses, and nightly prestige decay.
//
// Nothing in this package performs I/O or keeps shared state. Randomness is
// injected through the Roller interface so callers (and tests) decide where
// the entropy comes from.
package combat

import (
	"fmt"
	"strings"
)

// BuildingKind is the closed set of city structures known to the game.
type BuildingKind string

const (
	TownHall   BuildingKind = "town_hall"
	GoldMine   BuildingKind = "gold_mine"
	House      BuildingKind = "house"
	PowerPlant BuildingKind = "power_plant"
	Barracks   BuildingKind = "barracks"
	Wall       BuildingKind = "wall"
	Tower      BuildingKind = "tower"
	Storage    BuildingKind = "storage"
)

// BuildingKinds lists every valid kind in a stable order.
var BuildingKinds = []BuildingKind{TownHall, GoldMine, House, PowerPlant, Barracks, Wall, Tower, Storage}

// ParseBuildingKind maps a stored kind string onto the enumeration.
// "scout_tower" is accepted as a legacy alias of Tower. Unknown kinds are an
// error so a typo in persisted data cannot silently contribute zero power.
func ParseBuildingKind(s string) (BuildingKind, error) {
	k := BuildingKind(strings.ToLower(strings.TrimSpace(s)))
	if k == "scout_tower" {
		return Tower, nil
	}
	for _, known := range BuildingKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("combat: unknown building kind %q", s)
}

// Building is one structure of a city as seen by the combat model.
type Building struct {
	Kind  BuildingKind
	Level int
}

// UnitType is the closed set of army units.
type UnitType string

const (
	Raider   UnitType = "raider"
	Guardian UnitType = "guardian"
)

// UnitTypes is the canonical unit order. Tie-breaks in ApplyLosses follow it.
var UnitTypes = []UnitType{Raider, Guardian}

// ParseUnitType maps a stored unit type onto the enumeration.
func ParseUnitType(s string) (UnitType, error) {
	u := UnitType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range UnitTypes {
		if u == known {
			return u, nil
		}
	}
	return "", fmt.Errorf("combat: unknown unit type %q", s)
}

// Army maps unit types to counts. Values produced by this package always carry
// every UnitType, zero-filled.
type Army map[UnitType]int

// NewArmy returns a zero-filled army.
func NewArmy() Army {
	a := make(Army, len(UnitTypes))
	for _, u := range UnitTypes {
		a[u] = 0
	}
	return a
}

// Total sums all known unit types, ignoring negative counts.
func (a Army) Total() int {
	n := 0
	for _, u := range UnitTypes {
		if c := a[u]; c > 0 {
			n += c
		}
	}
	return n
}

// Result is a battle outcome from the attacker's perspective.
type Result string

const (
	Win  Result = "win"
	Loss Result = "loss"
)

// ParseResult accepts "win", "loss" and the legacy spelling "lose".
func ParseResult(s string) (Result, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "win":
		return Win, true
	case "loss", "lose":
		return Loss, true
	}
	return "", false
}

// Flip returns the outcome as seen by the other side.
func (r Result) Flip() Result {
	if r == Win {
		return Loss
	}
	return Win
}
