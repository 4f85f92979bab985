package stats

import (
	"github.com/KirkDiggler/rpg-arena/internal/entities/combat"
)

// Profile is an entity's combat profile. Totals are cached and recomputed
// at most once per tick, and only after an input changed.
type Profile struct {
	entityID  string
	base      combat.Attributes
	equipment map[combat.Slot]combat.Equipment
	buffs     map[string]combat.Buff

	totals          Totals
	dirty           bool
	resolved        bool
	lastResolveTick uint64
	resolutions     int
}

// NewProfile returns a profile with the given base attributes
func NewProfile(entityID string, base combat.Attributes) *Profile {
	return &Profile{
		entityID:  entityID,
		base:      base.Clone(),
		equipment: make(map[combat.Slot]combat.Equipment),
		buffs:     make(map[string]combat.Buff),
		dirty:     true,
	}
}

// EntityID returns the owning entity id
func (p *Profile) EntityID() string {
	return p.entityID
}

// SetBase replaces the base attributes
func (p *Profile) SetBase(base combat.Attributes) {
	p.base = base.Clone()
	p.dirty = true
}

// Equip puts item in its slot, returning what was there before
func (p *Profile) Equip(item combat.Equipment) (combat.Equipment, bool) {
	prev, had := p.equipment[item.Slot]
	item.Bonuses = item.Bonuses.Clone()
	p.equipment[item.Slot] = item
	p.dirty = true
	return prev, had
}

// Unequip clears a slot
func (p *Profile) Unequip(slot combat.Slot) (combat.Equipment, bool) {
	prev, had := p.equipment[slot]
	if had {
		delete(p.equipment, slot)
		p.dirty = true
	}
	return prev, had
}

// AddBuff adds or replaces a buff by id
func (p *Profile) AddBuff(b combat.Buff) {
	b.Deltas = b.Deltas.Clone()
	p.buffs[b.ID] = b
	p.dirty = true
}

// RemoveBuff drops a buff by id
func (p *Profile) RemoveBuff(id string) bool {
	if _, ok := p.buffs[id]; !ok {
		return false
	}
	delete(p.buffs, id)
	p.dirty = true
	return true
}

// ExpireBuffs removes buffs that have run out by tick and returns them in
// id order.
func (p *Profile) ExpireBuffs(tick uint64) []combat.Buff {
	var expired []combat.Buff
	for _, id := range p.buffOrder() {
		if b := p.buffs[id]; b.Expired(tick) {
			expired = append(expired, b)
			delete(p.buffs, id)
		}
	}
	if len(expired) > 0 {
		p.dirty = true
	}
	return expired
}

// Buffs returns the active buffs in id order
func (p *Profile) Buffs() []combat.Buff {
	out := make([]combat.Buff, 0, len(p.buffs))
	for _, id := range p.buffOrder() {
		out = append(out, p.buffs[id])
	}
	return out
}

// Totals returns the cached totals for tick, resolving if an input changed
// or a buff crossed its expiry since the last resolution.
func (p *Profile) Totals(tick uint64) Totals {
	if p.resolved && !p.dirty && p.lastResolveTick == tick {
		return p.totals
	}
	if p.resolved && !p.dirty && !p.buffBoundaryCrossed(p.lastResolveTick, tick) {
		p.lastResolveTick = tick
		return p.totals
	}

	p.totals = Resolve(p, tick)
	p.dirty = false
	p.resolved = true
	p.lastResolveTick = tick
	p.resolutions++
	return p.totals
}

// Resolutions counts how many times the profile was actually resolved
func (p *Profile) Resolutions() int {
	return p.resolutions
}

func (p *Profile) buffBoundaryCrossed(from, to uint64) bool {
	for _, b := range p.buffs {
		if b.ExpiresAtTick == 0 {
			continue
		}
		if b.Expired(from) != b.Expired(to) {
			return true
		}
	}
	return false
}

// Clone returns an independent copy. Arena battles clone so a fight never
// touches the source profile.
func (p *Profile) Clone() *Profile {
	out := NewProfile(p.entityID, p.base)
	for slot, item := range p.equipment {
		item.Bonuses = item.Bonuses.Clone()
		out.equipment[slot] = item
	}
	for id, b := range p.buffs {
		b.Deltas = b.Deltas.Clone()
		out.buffs[id] = b
	}
	return out
}
