// Package stats resolves combat profiles into total stats. Resolution is a
// pure fold over base attributes, equipment and active buffs, taken in a
// fixed order so that identical inputs give bit-identical totals.
package stats

import (
	"sort"

	"github.com/KirkDiggler/rpg-arena/internal/entities/combat"
)

// Totals is the resolved view of a profile
type Totals struct {
	MaxHP        int
	Attack       float64
	Defense      float64
	Speed        float64
	CritRate     float64
	CritDamage   float64
	Accuracy     float64
	Evasion      float64
	CooldownRate float64

	raw combat.Attributes
}

// Get returns the raw summed value for attr, zero when no source sets it
func (t Totals) Get(attr combat.Attribute) float64 {
	return t.raw[attr]
}

// Resolve folds base, equipment and buffs active at tick into Totals. It
// never fails: unknown attributes are summed but feed no derived value.
func Resolve(p *Profile, tick uint64) Totals {
	raw := make(combat.Attributes)
	add := func(attrs combat.Attributes) {
		for _, k := range attrs.Keys() {
			raw[k] += attrs[k]
		}
	}

	add(p.base)
	for _, slot := range p.slotOrder() {
		add(p.equipment[slot].Bonuses)
	}
	for _, id := range p.buffOrder() {
		if b := p.buffs[id]; !b.Expired(tick) {
			add(b.Deltas)
		}
	}

	return derive(raw)
}

func (p *Profile) slotOrder() []combat.Slot {
	slots := make([]combat.Slot, 0, len(p.equipment))
	for s := range p.equipment {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	return slots
}

func (p *Profile) buffOrder() []string {
	ids := make([]string, 0, len(p.buffs))
	for id := range p.buffs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
