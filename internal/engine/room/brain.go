package room

import "github.com/KirkDiggler/rpg-arena/internal/entities/combat"

// Brain drives an NPC. Think runs during input drain, after player inputs,
// and returns inputs to apply for the NPC this tick.
type Brain interface {
	Think(tick uint64, self *Actor, world World) []Input
}

// World is the read-only view a Brain gets
type World interface {
	// NearestHostile returns the closest living actor on another team
	NearestHostile(from *Actor) (*Actor, bool)
}

// ChaseBrain walks toward the nearest hostile and swings when in reach
type ChaseBrain struct{}

// Think implements Brain
func (ChaseBrain) Think(_ uint64, self *Actor, world World) []Input {
	target, ok := world.NearestHostile(self)
	if !ok {
		return []Input{{Kind: InputMove}}
	}
	if self.pos.Dist(target.pos) <= combat.BasicAttack.Range {
		return []Input{{Kind: InputMove}, {Kind: InputAttack, TargetID: target.id}}
	}
	return []Input{{Kind: InputMove, Direction: target.pos.Sub(self.pos).Unit()}}
}
