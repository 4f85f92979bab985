// Package arena holds the persisted arena records: profiles, defense builds
// and battle results.
package arena

import (
	"slices"
	"time"

	"github.com/KirkDiggler/rpg-arena/internal/entities/combat"
)

// Loadout is the set of catalog ids a player fights with
type Loadout struct {
	Base         combat.Attributes `json:"base" yaml:"base"`
	EquipmentIDs []string          `json:"equipment_ids" yaml:"equipment"`
	SkillIDs     []string          `json:"skill_ids" yaml:"skills"`
	PalID        string            `json:"pal_id,omitempty" yaml:"pal"`
}

// Clone returns a deep copy of l
func (l Loadout) Clone() Loadout {
	return Loadout{
		Base:         l.Base.Clone(),
		EquipmentIDs: slices.Clone(l.EquipmentIDs),
		SkillIDs:     slices.Clone(l.SkillIDs),
		PalID:        l.PalID,
	}
}

// DefenseBuild is a frozen snapshot of a player's loadout that other players
// fight against. A new SetDefense writes a new version; existing versions
// are never edited.
type DefenseBuild struct {
	PlayerID   string    `json:"player_id"`
	Version    int64     `json:"version"`
	Loadout    Loadout   `json:"loadout"`
	CapturedAt time.Time `json:"captured_at"`
}

// Clone returns a deep copy of b
func (b *DefenseBuild) Clone() *DefenseBuild {
	if b == nil {
		return nil
	}
	out := *b
	out.Loadout = b.Loadout.Clone()
	return &out
}

// Profile is a player's arena standing
type Profile struct {
	PlayerID          string    `json:"player_id"`
	SeasonID          string    `json:"season_id"`
	Rating            int       `json:"rating"`
	Rank              int64     `json:"rank,omitempty"`
	AttemptsRemaining int       `json:"attempts_remaining"`
	NextRefillAt      time.Time `json:"next_refill_at,omitempty"`
	Wins              int       `json:"wins"`
	Losses            int       `json:"losses"`
	Draws             int       `json:"draws"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// AttemptPolicy controls attempt refills
type AttemptPolicy struct {
	Max            int
	RefillInterval time.Duration
}

// Refill credits every attempt whose timer has elapsed by now. Each attempt
// has its own timer: when one is credited the next starts from the previous
// due time, not from now. Returns the number credited.
func (p *Profile) Refill(now time.Time, policy AttemptPolicy) int {
	if p.AttemptsRemaining >= policy.Max {
		p.NextRefillAt = time.Time{}
		return 0
	}
	if policy.RefillInterval <= 0 {
		credited := policy.Max - p.AttemptsRemaining
		p.AttemptsRemaining = policy.Max
		p.NextRefillAt = time.Time{}
		return credited
	}
	if p.NextRefillAt.IsZero() {
		p.NextRefillAt = now.Add(policy.RefillInterval)
		return 0
	}
	if now.Before(p.NextRefillAt) {
		return 0
	}

	due := 1 + int(now.Sub(p.NextRefillAt)/policy.RefillInterval)
	credited := min(due, policy.Max-p.AttemptsRemaining)
	p.AttemptsRemaining += credited
	if p.AttemptsRemaining >= policy.Max {
		p.NextRefillAt = time.Time{}
	} else {
		p.NextRefillAt = p.NextRefillAt.Add(time.Duration(credited) * policy.RefillInterval)
	}
	return credited
}

// Consume spends one attempt, starting the refill timer if the profile was
// full. Returns false when none remain.
func (p *Profile) Consume(now time.Time, policy AttemptPolicy) bool {
	p.Refill(now, policy)
	if p.AttemptsRemaining <= 0 {
		return false
	}
	p.AttemptsRemaining--
	if p.NextRefillAt.IsZero() {
		p.NextRefillAt = now.Add(policy.RefillInterval)
	}
	return true
}

// Refund gives back an attempt consumed for a battle that never resolved
func (p *Profile) Refund(policy AttemptPolicy) {
	if p.AttemptsRemaining < policy.Max {
		p.AttemptsRemaining++
	}
	if p.AttemptsRemaining >= policy.Max {
		p.NextRefillAt = time.Time{}
	}
}

// Record applies a rating delta and bumps the matching counter
func (p *Profile) Record(delta int, score float64) {
	p.Rating += delta
	switch score {
	case ScoreWin:
		p.Wins++
	case ScoreLoss:
		p.Losses++
	default:
		p.Draws++
	}
}

// Outcome of an arena battle, from the attacker's side
type Outcome string

// Battle outcomes
const (
	OutcomeAttackerWin Outcome = "attacker_win"
	OutcomeDefenderWin Outcome = "defender_win"
	OutcomeDraw        Outcome = "draw"
)

// Actual scores used by the rating formula
const (
	ScoreWin  = 1.0
	ScoreDraw = 0.5
	ScoreLoss = 0.0
)

// AttackerScore returns the attacker's actual score for o
func (o Outcome) AttackerScore() float64 {
	switch o {
	case OutcomeAttackerWin:
		return ScoreWin
	case OutcomeDefenderWin:
		return ScoreLoss
	default:
		return ScoreDraw
	}
}

// Valid reports whether o is a known outcome
func (o Outcome) Valid() bool {
	return o == OutcomeAttackerWin || o == OutcomeDefenderWin || o == OutcomeDraw
}

// BattleResult is the immutable record of one arena challenge
type BattleResult struct {
	BattleID             string    `json:"battle_id"`
	SeasonID             string    `json:"season_id"`
	AttackerID           string    `json:"attacker_id"`
	DefenderID           string    `json:"defender_id"`
	DefenderBuildVersion int64     `json:"defender_build_version"`
	Outcome              Outcome   `json:"outcome"`
	AttackerRating       int       `json:"attacker_rating"`
	DefenderRating       int       `json:"defender_rating"`
	AttackerDelta        int       `json:"attacker_delta"`
	DefenderDelta        int       `json:"defender_delta"`
	Seed                 uint64    `json:"seed"`
	Ticks                int       `json:"ticks"`
	Digest               uint64    `json:"digest"`
	Events               []Event   `json:"-"`
	CreatedAt            time.Time `json:"created_at"`
}
