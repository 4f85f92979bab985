package stats

import (
	"math"

	"github.com/KirkDiggler/rpg-arena/internal/entities/combat"
)

const (
	minHP             = 1
	baseCritDamage    = 1.5
	baseAccuracy      = 0.95
	maxEvasion        = 0.75
	maxCritRate       = 1.0
	maxCooldownRate   = 0.5
	speedCeiling      = 1e4
	statCeiling       = 1e9
	critDamageCeiling = 10
)

func derive(raw combat.Attributes) Totals {
	return Totals{
		MaxHP:        int(math.Max(minHP, math.Round(clamp(raw[combat.AttrHP], 0, statCeiling)))),
		Attack:       clamp(raw[combat.AttrAttack], 0, statCeiling),
		Defense:      clamp(raw[combat.AttrDefense], 0, statCeiling),
		Speed:        clamp(raw[combat.AttrSpeed], 0, speedCeiling),
		CritRate:     clamp(raw[combat.AttrCritRate], 0, maxCritRate),
		CritDamage:   clamp(baseCritDamage+raw[combat.AttrCritDamage], 1, critDamageCeiling),
		Accuracy:     clamp(baseAccuracy+raw[combat.AttrAccuracy], 0, 1),
		Evasion:      clamp(raw[combat.AttrEvasion], 0, maxEvasion),
		CooldownRate: clamp(raw[combat.AttrCooldownRate], 0, maxCooldownRate),
		raw:          raw,
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Movement is shared by live rooms and arena battles
const (
	BaseMoveSpeed     = 4.0
	MoveSpeedPerSpeed = 0.1
)

// MoveSpeed is the distance covered per second, in world units
func (t Totals) MoveSpeed() float64 {
	return BaseMoveSpeed + t.Speed*MoveSpeedPerSpeed
}
