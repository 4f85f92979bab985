package battle

import (
	"context"
	"math"

	"github.com/KirkDiggler/rpg-arena/internal/engine/catalog"
	"github.com/KirkDiggler/rpg-arena/internal/engine/combat"
	"github.com/KirkDiggler/rpg-arena/internal/engine/stats"
	"github.com/KirkDiggler/rpg-arena/internal/entities/arena"
	combatent "github.com/KirkDiggler/rpg-arena/internal/entities/combat"
	"github.com/KirkDiggler/rpg-arena/internal/errors"
)

type side int

const (
	sideDefender side = iota
	sideAttacker
)

// healThreshold is the HP fraction below which a healer spends its heal
const healThreshold = 0.5

type slot struct {
	skill     combatent.Skill
	readyTick uint64
}

// unit is one fighter on the line. Positions are one dimensional: the two
// sides start facing each other along x.
type unit struct {
	id      string
	side    side
	x       float64
	hp      int
	profile *stats.Profile
	skills  []*slot
	basic   *slot
}

func newUnit(id string, s side, x float64, f *catalog.Fighter) *unit {
	u := &unit{
		id:      id,
		side:    s,
		x:       x,
		profile: f.Profile,
		hp:      f.Profile.Totals(0).MaxHP,
		basic:   &slot{skill: combatent.BasicAttack},
	}
	for _, sk := range f.Skills {
		u.skills = append(u.skills, &slot{skill: sk})
	}
	return u
}

func (u *unit) GetID() string           { return u.id }
func (u *unit) GetType() string         { return "arena_unit" }
func (u *unit) Profile() *stats.Profile { return u.profile }
func (u *unit) HP() int                 { return u.hp }
func (u *unit) SetHP(hp int)            { u.hp = hp }

func (u *unit) alive() bool { return u.hp > 0 }

type battle struct {
	resolver *combat.Resolver
	tickRate int
	units    []*unit
	events   []arena.Event
	tick     uint64
}

func (b *battle) add(u *unit) {
	b.units = append(b.units, u)
	b.log(arena.Event{Kind: arena.EventSpawn, Actor: u.id, Amount: int32(u.hp)})
}

func (b *battle) log(e arena.Event) {
	e.Tick = uint32(b.tick)
	b.events = append(b.events, e)
}

// run steps until one side is down or maxTicks is reached
func (b *battle) run(ctx context.Context, maxTicks int) (arena.Outcome, int, error) {
	for b.tick = 1; b.tick <= uint64(maxTicks); b.tick++ {
		if b.tick%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return "", int(b.tick), errors.WrapWithCode(err, errors.CodeCanceled, "battle simulation canceled")
			}
		}

		if err := b.step(); err != nil {
			return "", int(b.tick), err
		}

		defenders, attackers := b.standing(sideDefender), b.standing(sideAttacker)
		switch {
		case attackers && defenders:
			continue
		case attackers:
			return b.end(arena.OutcomeAttackerWin), int(b.tick), nil
		default:
			// both sides down in one tick goes to the defender
			return b.end(arena.OutcomeDefenderWin), int(b.tick), nil
		}
	}

	b.tick = uint64(maxTicks)
	return b.end(arena.OutcomeDraw), maxTicks, nil
}

func (b *battle) end(outcome arena.Outcome) arena.Outcome {
	winner := ""
	switch outcome {
	case arena.OutcomeAttackerWin:
		winner = b.leader(sideAttacker)
	case arena.OutcomeDefenderWin:
		winner = b.leader(sideDefender)
	}
	b.log(arena.Event{Kind: arena.EventEnd, Actor: winner, SkillID: string(outcome)})
	return outcome
}

// leader is the hero of a side, which is always added first
func (b *battle) leader(s side) string {
	for _, u := range b.units {
		if u.side == s {
			return u.id
		}
	}
	return ""
}

func (b *battle) standing(s side) bool {
	for _, u := range b.units {
		if u.side == s && u.alive() {
			return true
		}
	}
	return false
}

func (b *battle) step() error {
	for _, u := range b.units {
		u.profile.ExpireBuffs(b.tick)
	}

	for _, u := range b.units {
		if !u.alive() {
			continue
		}
		target := b.nearestEnemy(u)
		if target == nil {
			return nil
		}
		if err := b.act(u, target); err != nil {
			return err
		}
	}
	return nil
}

// act runs the fixed policy: heal when hurt, buff when ready, the first
// ready damage skill in range, a basic attack in range, else close in.
func (b *battle) act(u, target *unit) error {
	dist := math.Abs(u.x - target.x)

	for _, sl := range u.skills {
		if b.tick < sl.readyTick {
			continue
		}
		switch sl.skill.Kind {
		case combatent.SkillHeal:
			if ally := b.woundedAlly(u); ally != nil {
				return b.use(u, ally, sl)
			}
		case combatent.SkillBuff:
			return b.use(u, u, sl)
		case combatent.SkillDamage:
			if dist <= sl.skill.Range {
				return b.use(u, target, sl)
			}
		}
	}

	if dist <= u.basic.skill.Range {
		if b.tick >= u.basic.readyTick {
			return b.use(u, target, u.basic)
		}
		return nil
	}

	b.approach(u, target, dist)
	return nil
}

func (b *battle) approach(u, target *unit, dist float64) {
	step := u.profile.Totals(b.tick).MoveSpeed() / float64(b.tickRate)
	// stop just inside melee reach
	step = math.Min(step, dist-u.basic.skill.Range*0.9)
	if step <= 0 {
		return
	}
	if target.x < u.x {
		step = -step
	}
	u.x += step
	b.log(arena.Event{Kind: arena.EventMove, Actor: u.id, Amount: int32(math.Round(u.x * 100))})
}

func (b *battle) use(u, target *unit, sl *slot) error {
	out, err := b.resolver.Resolve(b.tick, u, target, sl.skill)
	if err != nil {
		return errors.InternalFault(err, "combat resolution failed")
	}
	cdRate := u.profile.Totals(b.tick).CooldownRate
	sl.readyTick = b.tick + max(1, sl.skill.CooldownTicks(b.tickRate, cdRate))

	e := arena.Event{Actor: u.id, Target: target.id, SkillID: sl.skill.ID, Amount: int32(out.Amount), Crit: out.Crit}
	switch {
	case out.Kind == combatent.SkillHeal:
		e.Kind = arena.EventHeal
	case out.Kind == combatent.SkillBuff:
		e.Kind = arena.EventBuff
	case out.Hit:
		e.Kind = arena.EventDamage
	default:
		e.Kind = arena.EventMiss
	}
	b.log(e)

	if out.Killed {
		b.log(arena.Event{Kind: arena.EventDeath, Actor: target.id, Target: u.id})
	}
	return nil
}

// nearestEnemy breaks distance ties by unit order, which is fixed at setup
func (b *battle) nearestEnemy(u *unit) *unit {
	var best *unit
	bestDist := 0.0
	for _, o := range b.units {
		if o.side == u.side || !o.alive() {
			continue
		}
		if d := math.Abs(o.x - u.x); best == nil || d < bestDist {
			best, bestDist = o, d
		}
	}
	return best
}

// woundedAlly picks the living ally, self included, with the lowest HP
// fraction under healThreshold
func (b *battle) woundedAlly(u *unit) *unit {
	var best *unit
	bestFrac := healThreshold
	for _, o := range b.units {
		if o.side != u.side || !o.alive() {
			continue
		}
		frac := float64(o.hp) / float64(o.profile.Totals(b.tick).MaxHP)
		if frac < bestFrac {
			best, bestFrac = o, frac
		}
	}
	return best
}
