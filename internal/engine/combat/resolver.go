// Package combat resolves a single action between two combatants. Live
// rooms and arena battles both go through Resolver so there is one source
// of combat truth.
package combat

import (
	"math"

	"github.com/KirkDiggler/rpg-toolkit/core"
	"github.com/KirkDiggler/rpg-toolkit/dice"

	"github.com/KirkDiggler/rpg-arena/internal/engine/stats"
	"github.com/KirkDiggler/rpg-arena/internal/entities/combat"
	"github.com/KirkDiggler/rpg-arena/internal/errors"
)

// Combatant is anything with a profile and hit points
type Combatant interface {
	core.Entity
	Profile() *stats.Profile
	HP() int
	SetHP(hp int)
}

const (
	defaultDefenseScale = 100.0
	defaultMinHitChance = 0.05
	varianceRange       = 10
)

// Config configures a Resolver
type Config struct {
	// Roller drives hit, crit and variance rolls. Seed it for replays.
	Roller dice.Roller
	// TickRate converts buff durations into ticks
	TickRate int
	// DefenseScale is the defense at which damage is halved
	DefenseScale float64
	// MinHitChance keeps a sliver of hope against high evasion
	MinHitChance float64
}

// Validate validates the config
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()
	if c.Roller == nil {
		vb.RequiredField("Roller")
	}
	errors.ValidatePositive("TickRate", c.TickRate, vb)
	if c.DefenseScale < 0 {
		vb.Field("DefenseScale", "must not be negative")
	}
	if c.MinHitChance < 0 || c.MinHitChance > 1 {
		vb.Field("MinHitChance", "must be between 0 and 1")
	}
	return vb.Build()
}

// Resolver applies actions. It is not safe for concurrent use because the
// roller is a stream.
type Resolver struct {
	roller       dice.Roller
	tickRate     int
	defenseScale float64
	minHitChance float64
}

// NewResolver creates a resolver
func NewResolver(cfg *Config) (*Resolver, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	r := &Resolver{
		roller:       cfg.Roller,
		tickRate:     cfg.TickRate,
		defenseScale: cfg.DefenseScale,
		minHitChance: cfg.MinHitChance,
	}
	if r.defenseScale == 0 {
		r.defenseScale = defaultDefenseScale
	}
	if r.minHitChance == 0 {
		r.minHitChance = defaultMinHitChance
	}
	return r, nil
}

// Outcome reports what one action did
type Outcome struct {
	AttackerID string
	TargetID   string
	SkillID    string
	Kind       combat.SkillKind
	Hit        bool
	Crit       bool
	Amount     int
	TargetHP   int
	Killed     bool
}

// Resolve applies skill from attacker to target at tick. Rolls happen before
// any mutation, so a roller failure leaves both sides untouched.
func (r *Resolver) Resolve(tick uint64, attacker, target Combatant, skill combat.Skill) (Outcome, error) {
	out := Outcome{
		AttackerID: attacker.GetID(),
		TargetID:   target.GetID(),
		SkillID:    skill.ID,
		Kind:       skill.Kind,
		TargetHP:   target.HP(),
	}
	if attacker.HP() <= 0 {
		return out, errors.StateConflictf("attacker %s is dead", attacker.GetID())
	}
	if target.HP() <= 0 {
		return out, errors.StateConflictf("target %s is dead", target.GetID())
	}

	att := attacker.Profile().Totals(tick)
	def := target.Profile().Totals(tick)

	switch skill.Kind {
	case combat.SkillHeal:
		amount := int(math.Round(att.Attack * skill.Power))
		hp := min(target.HP()+amount, def.MaxHP)
		out.Hit = true
		out.Amount = hp - target.HP()
		out.TargetHP = hp
		target.SetHP(hp)
		return out, nil

	case combat.SkillBuff:
		target.Profile().AddBuff(combat.Buff{
			ID:            skill.ID + ":" + attacker.GetID(),
			Source:        attacker.GetID(),
			Deltas:        skill.BuffDeltas,
			ExpiresAtTick: tick + max(1, combat.SecondsToTicks(skill.BuffSeconds, r.tickRate)),
		})
		out.Hit = true
		return out, nil

	case combat.SkillDamage:
		return r.damage(att, def, target, skill, out)

	default:
		return out, errors.InvalidArgumentf("unknown skill kind %q", skill.Kind)
	}
}

func (r *Resolver) damage(att, def stats.Totals, target Combatant, skill combat.Skill, out Outcome) (Outcome, error) {
	rolls, err := r.roller.RollN(3, 100)
	if err != nil {
		return out, errors.Wrap(err, "failed to roll for damage")
	}
	hitRoll, critRoll, varianceRoll := rolls[0], rolls[1], rolls[2]

	chance := math.Min(1, math.Max(r.minHitChance, att.Accuracy-def.Evasion))
	if float64(hitRoll) > math.Round(chance*100) {
		return out, nil
	}

	// maps 1..100 onto -10..+10 percent
	variance := 1 + float64((varianceRoll-1)*(2*varianceRange+1)/100-varianceRange)/100
	raw := att.Attack * skill.Power * variance
	mitigated := raw * r.defenseScale / (r.defenseScale + def.Defense)

	out.Hit = true
	if float64(critRoll) <= math.Round(att.CritRate*100) {
		out.Crit = true
		mitigated *= att.CritDamage
	}

	amount := max(1, int(math.Round(mitigated)))
	hp := max(0, target.HP()-amount)

	out.Amount = target.HP() - hp
	out.TargetHP = hp
	out.Killed = hp == 0
	target.SetHP(hp)
	return out, nil
}
