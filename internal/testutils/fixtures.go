package testutils

import (
	"github.com/KirkDiggler/rpg-arena/internal/entities/arena"
	"github.com/KirkDiggler/rpg-arena/internal/entities/combat"
)

// Player ids used across arena tests
const (
	TestAttackerID = "player-attacker"
	TestDefenderID = "player-defender"
	TestSeasonID   = "season-test"
)

// WarriorLoadout is a melee build with a wolf pal. Every call returns a
// fresh copy.
func WarriorLoadout() arena.Loadout {
	return arena.Loadout{
		Base: combat.Attributes{
			combat.AttrHP:      400,
			combat.AttrAttack:  30,
			combat.AttrDefense: 10,
			combat.AttrSpeed:   5,
		},
		EquipmentIDs: []string{"iron_sword", "leather_armor"},
		SkillIDs:     []string{"cleave", "war_cry"},
		PalID:        "wolf",
	}
}

// MageLoadout is a ranged build with a healing sprite
func MageLoadout() arena.Loadout {
	return arena.Loadout{
		Base: combat.Attributes{
			combat.AttrHP:      320,
			combat.AttrAttack:  36,
			combat.AttrDefense: 6,
			combat.AttrSpeed:   6,
		},
		EquipmentIDs: []string{"ember_staff", "lucky_charm"},
		SkillIDs:     []string{"fireball", "mend"},
		PalID:        "sprite",
	}
}
