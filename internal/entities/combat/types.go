// Package combat holds the data shared by the stat and combat resolvers:
// attributes, equipment, buffs and skills.
package combat

import (
	"math"
	"sort"
)

// Attribute names a stat that sources can contribute to
type Attribute string

// Known attributes. Unknown attributes are carried through resolution and
// contribute zero to derived values.
const (
	AttrHP           Attribute = "hp"
	AttrAttack       Attribute = "attack"
	AttrDefense      Attribute = "defense"
	AttrSpeed        Attribute = "speed"
	AttrCritRate     Attribute = "crit_rate"
	AttrCritDamage   Attribute = "crit_damage"
	AttrAccuracy     Attribute = "accuracy"
	AttrEvasion      Attribute = "evasion"
	AttrCooldownRate Attribute = "cooldown_rate"
)

// Attributes is a bag of attribute contributions
type Attributes map[Attribute]float64

// Keys returns the attribute names in sorted order so sums are taken in a
// fixed order.
func (a Attributes) Keys() []Attribute {
	keys := make([]Attribute, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Clone returns a copy of a
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Finite reports whether every value is a real number
func (a Attributes) Finite() bool {
	for _, v := range a {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Slot is an equipment slot. One item per slot.
type Slot string

// Equipment slots
const (
	SlotWeapon    Slot = "weapon"
	SlotArmor     Slot = "armor"
	SlotHelm      Slot = "helm"
	SlotAccessory Slot = "accessory"
)

// Equipment is a catalog item contributing flat bonuses
type Equipment struct {
	ID      string     `yaml:"id" json:"id"`
	Name    string     `yaml:"name" json:"name"`
	Slot    Slot       `yaml:"slot" json:"slot"`
	Bonuses Attributes `yaml:"bonuses" json:"bonuses"`
}

// Buff is a timed attribute modifier. ExpiresAtTick zero means permanent.
type Buff struct {
	ID            string     `json:"id"`
	Source        string     `json:"source"`
	Deltas        Attributes `json:"deltas"`
	ExpiresAtTick uint64     `json:"expires_at_tick,omitempty"`
}

// Expired reports whether the buff no longer applies at tick
func (b Buff) Expired(tick uint64) bool {
	return b.ExpiresAtTick != 0 && tick >= b.ExpiresAtTick
}

// SkillKind selects how a skill resolves
type SkillKind string

// Skill kinds
const (
	SkillDamage SkillKind = "damage"
	SkillHeal   SkillKind = "heal"
	SkillBuff   SkillKind = "buff"
)

// Skill is a catalog ability. Timings are in seconds so the same skill works
// at the live and the arena tick rate.
type Skill struct {
	ID                 string     `yaml:"id" json:"id"`
	Name               string     `yaml:"name" json:"name"`
	Kind               SkillKind  `yaml:"kind" json:"kind"`
	Power              float64    `yaml:"power" json:"power"`
	Range              float64    `yaml:"range" json:"range"`
	CooldownSeconds    float64    `yaml:"cooldown_seconds" json:"cooldown_seconds"`
	ProjectileSpeed    float64    `yaml:"projectile_speed,omitempty" json:"projectile_speed,omitempty"`
	ProjectileLifetime float64    `yaml:"projectile_lifetime,omitempty" json:"projectile_lifetime,omitempty"`
	BuffDeltas         Attributes `yaml:"buff_deltas,omitempty" json:"buff_deltas,omitempty"`
	BuffSeconds        float64    `yaml:"buff_seconds,omitempty" json:"buff_seconds,omitempty"`
}

// Projectile reports whether the skill spawns a travelling projectile in
// live rooms. Arena battles resolve projectile skills instantly.
func (s Skill) Projectile() bool {
	return s.ProjectileSpeed > 0 && s.ProjectileLifetime > 0
}

// CooldownTicks converts the cooldown to ticks, reduced by cooldownRate
// (a fraction in [0, 1)).
func (s Skill) CooldownTicks(tickRate int, cooldownRate float64) uint64 {
	return SecondsToTicks(s.CooldownSeconds*(1-cooldownRate), tickRate)
}

// SecondsToTicks rounds a duration in seconds up to whole ticks
func SecondsToTicks(seconds float64, tickRate int) uint64 {
	if seconds <= 0 || tickRate <= 0 {
		return 0
	}
	return uint64(math.Ceil(seconds*float64(tickRate) - 1e-9))
}

// BasicAttack is the skill every combatant has. Power 1 at melee range.
var BasicAttack = Skill{
	ID:              "basic_attack",
	Name:            "Attack",
	Kind:            SkillDamage,
	Power:           1,
	Range:           1.5,
	CooldownSeconds: 1,
}
