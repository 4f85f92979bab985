package room

import (
	"github.com/KirkDiggler/rpg-toolkit/core"

	"github.com/KirkDiggler/rpg-arena/internal/engine/stats"
	"github.com/KirkDiggler/rpg-arena/internal/entities/combat"
)

// Kind is the entity variant
type Kind string

// Entity kinds
const (
	KindPlayer     Kind = "player"
	KindNPC        Kind = "npc"
	KindProjectile Kind = "projectile"
	KindItem       Kind = "item"
)

// Entity is the capability every room entity has. Further capabilities
// (Mover, combat.Combatant) are discovered by interface assertion.
type Entity interface {
	core.Entity
	Position() Vec
	IsAlive() bool
	// OnTick runs the entity's own lifecycle for the tick, such as buff
	// or lifetime expiry.
	OnTick(tick uint64) []Event
	Snapshot() EntitySnapshot
}

// Mover integrates its velocity. It returns true when the position changed.
type Mover interface {
	Entity
	Integrate(dt float64, bounds Rect, walls []Rect) bool
}

const (
	actorRadius     = 0.5
	projectileRange = 0.6
	pickupRange     = 1.5
)

type skillSlot struct {
	skill     combat.Skill
	readyTick uint64
}

// Actor is a player or NPC body
type Actor struct {
	id      string
	kind    Kind
	team    string
	pos     Vec
	vel     Vec
	profile *stats.Profile
	hp      int
	skills  map[string]*skillSlot
	brain   Brain
	score   int
	tick    uint64
}

func newActor(id string, kind Kind, team string, pos Vec, profile *stats.Profile, skills []combat.Skill) *Actor {
	a := &Actor{
		id:      id,
		kind:    kind,
		team:    team,
		pos:     pos,
		profile: profile,
		hp:      profile.Totals(0).MaxHP,
		skills:  map[string]*skillSlot{combat.BasicAttack.ID: {skill: combat.BasicAttack}},
	}
	for _, sk := range skills {
		a.skills[sk.ID] = &skillSlot{skill: sk}
	}
	return a
}

func (a *Actor) GetID() string           { return a.id }
func (a *Actor) GetType() string         { return string(a.kind) }
func (a *Actor) Position() Vec           { return a.pos }
func (a *Actor) IsAlive() bool           { return a.hp > 0 }
func (a *Actor) Profile() *stats.Profile { return a.profile }
func (a *Actor) HP() int                 { return a.hp }
func (a *Actor) SetHP(hp int)            { a.hp = hp }

// Team returns the actor's side. Players are each their own team.
func (a *Actor) Team() string { return a.team }

// Score returns the actor's kill count
func (a *Actor) Score() int { return a.score }

// MoveSpeed is world units per second
func (a *Actor) MoveSpeed(tick uint64) float64 {
	return a.profile.Totals(tick).MoveSpeed()
}

// Integrate moves the actor. A step that would leave the bounds is clamped
// and a step into a wall is refused.
func (a *Actor) Integrate(dt float64, bounds Rect, walls []Rect) bool {
	next := a.next(dt, bounds, walls)
	if next == a.pos {
		return false
	}
	a.pos = next
	return true
}

// next is where the current velocity takes the actor after one step
func (a *Actor) next(dt float64, bounds Rect, walls []Rect) Vec {
	if !a.IsAlive() || (a.vel == Vec{}) {
		return a.pos
	}
	next := bounds.Clamp(a.pos.Add(a.vel.Scale(dt)))
	if blocked(next, walls) {
		return a.pos
	}
	return next
}

// OnTick drops expired buffs
func (a *Actor) OnTick(tick uint64) []Event {
	a.tick = tick
	var events []Event
	for _, b := range a.profile.ExpireBuffs(tick) {
		events = append(events, Event{Kind: EventExpired, Actor: a.id, Detail: b.ID})
	}
	return events
}

func (a *Actor) Snapshot() EntitySnapshot {
	return EntitySnapshot{
		ID:       a.id,
		Kind:     a.kind,
		Position: a.pos,
		HP:       a.hp,
		MaxHP:    a.profile.Totals(a.tick).MaxHP,
		Alive:    a.IsAlive(),
	}
}

// Projectile travels in a straight line until it hits, leaves the arena or
// its lifetime ends
type Projectile struct {
	id        string
	ownerID   string
	team      string
	skill     combat.Skill
	pos       Vec
	vel       Vec
	expiresAt uint64
	spent     bool
}

func (p *Projectile) GetID() string   { return p.id }
func (p *Projectile) GetType() string { return string(KindProjectile) }
func (p *Projectile) Position() Vec   { return p.pos }
func (p *Projectile) IsAlive() bool   { return !p.spent }

// ExpiresAt is the tick at which the projectile is removed
func (p *Projectile) ExpiresAt() uint64 { return p.expiresAt }

func (p *Projectile) Integrate(dt float64, bounds Rect, walls []Rect) bool {
	if p.spent {
		return false
	}
	p.pos = p.pos.Add(p.vel.Scale(dt))
	if !bounds.Contains(p.pos) || blocked(p.pos, walls) {
		p.spent = true
	}
	return true
}

func (p *Projectile) OnTick(tick uint64) []Event {
	if !p.spent && tick >= p.expiresAt {
		p.spent = true
		return []Event{{Kind: EventExpired, Actor: p.id, SkillID: p.skill.ID}}
	}
	return nil
}

func (p *Projectile) Snapshot() EntitySnapshot {
	return EntitySnapshot{ID: p.id, Kind: KindProjectile, OwnerID: p.ownerID, Position: p.pos, Alive: !p.spent}
}

// Item is a ground pickup that heals whoever uses it
type Item struct {
	id    string
	pos   Vec
	heal  int
	taken bool
}

func (i *Item) GetID() string         { return i.id }
func (i *Item) GetType() string       { return string(KindItem) }
func (i *Item) Position() Vec         { return i.pos }
func (i *Item) IsAlive() bool         { return !i.taken }
func (i *Item) OnTick(uint64) []Event { return nil }

func (i *Item) Snapshot() EntitySnapshot {
	return EntitySnapshot{ID: i.id, Kind: KindItem, Position: i.pos, Alive: !i.taken}
}
