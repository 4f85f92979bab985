package v1alpha1

import (
	"time"

	"github.com/KirkDiggler/rpg-arena/internal/entities/arena"
	"github.com/KirkDiggler/rpg-arena/internal/entities/combat"
)

// Loadout is the wire form of a fighter's equipment, skills and pal
type Loadout struct {
	Base         map[string]float64 `json:"base,omitempty"`
	EquipmentIDs []string           `json:"equipment_ids,omitempty"`
	SkillIDs     []string           `json:"skill_ids,omitempty"`
	PalID        string             `json:"pal_id,omitempty"`
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
}

// Opponent is one candidate defender
type Opponent struct {
	PlayerID     string `json:"player_id"`
	Rating       int    `json:"rating"`
	BuildVersion int64  `json:"build_version"`
}

// DefenseBuild is a captured defense
type DefenseBuild struct {
	PlayerID   string    `json:"player_id"`
	Version    int64     `json:"version"`
	Loadout    Loadout   `json:"loadout"`
	CapturedAt time.Time `json:"captured_at"`
}

// ReplayEvent is one step of a battle replay
type ReplayEvent struct {
	Tick    uint32 `json:"tick"`
	Kind    string `json:"kind"`
	Actor   string `json:"actor,omitempty"`
	Target  string `json:"target,omitempty"`
	SkillID string `json:"skill_id,omitempty"`
	Amount  int32  `json:"amount,omitempty"`
	Crit    bool   `json:"crit,omitempty"`
}

// Battle is a stored battle result
type Battle struct {
	BattleID             string        `json:"battle_id"`
	SeasonID             string        `json:"season_id"`
	AttackerID           string        `json:"attacker_id"`
	DefenderID           string        `json:"defender_id"`
	DefenderBuildVersion int64         `json:"defender_build_version"`
	Outcome              string        `json:"outcome"`
	AttackerRating       int           `json:"attacker_rating"`
	DefenderRating       int           `json:"defender_rating"`
	AttackerDelta        int           `json:"attacker_delta"`
	DefenderDelta        int           `json:"defender_delta"`
	Seed                 uint64        `json:"seed,string"`
	Ticks                int           `json:"ticks"`
	Digest               string        `json:"digest"`
	CreatedAt            time.Time     `json:"created_at"`
	Replay               []ReplayEvent `json:"replay,omitempty"`
}

// GetOpponentsRequest asks for an opponent pool
type GetOpponentsRequest struct {
	PlayerID string `json:"player_id"`
}

// GetOpponentsResponse lists candidates, closest rating first
type GetOpponentsResponse struct {
	Opponents []Opponent `json:"opponents"`
	Band      int        `json:"band"`
}

// ChallengeRequest starts a battle. Without a loadout the player's own
// defense build fights.
type ChallengeRequest struct {
	PlayerID   string   `json:"player_id"`
	OpponentID string   `json:"opponent_id"`
	Loadout    *Loadout `json:"loadout,omitempty"`
}

// ChallengeResponse carries the stored battle and both updated profiles
type ChallengeResponse struct {
	Battle   Battle  `json:"battle"`
	Attacker Profile `json:"attacker"`
	Defender Profile `json:"defender"`
}

// SetDefenseRequest captures a defense build
type SetDefenseRequest struct {
	PlayerID string  `json:"player_id"`
	Loadout  Loadout `json:"loadout"`
}

// SetDefenseResponse returns the new build version
type SetDefenseResponse struct {
	Build   DefenseBuild `json:"build"`
	Profile Profile      `json:"profile"`
}

// GetProfileRequest asks for a profile
type GetProfileRequest struct {
	PlayerID string `json:"player_id"`
}

// GetProfileResponse returns a profile
type GetProfileResponse struct {
	Profile Profile `json:"profile"`
}

// GetBattleRequest asks for one battle
type GetBattleRequest struct {
	BattleID   string `json:"battle_id"`
	WithReplay bool   `json:"with_replay,omitempty"`
}

// GetBattleResponse returns one battle
type GetBattleResponse struct {
	Battle Battle `json:"battle"`
}

// ListHistoryRequest asks for a player's recent battles
type ListHistoryRequest struct {
	PlayerID string `json:"player_id"`
	Limit    int    `json:"limit,omitempty"`
}

// ListHistoryResponse lists battles newest first
type ListHistoryResponse struct {
	Battles []Battle `json:"battles"`
}

func toLoadout(l Loadout) arena.Loadout {
	base := make(combat.Attributes, len(l.Base))
	for k, v := range l.Base {
		base[combat.Attribute(k)] = v
	}
	return arena.Loadout{
		Base:         base,
		EquipmentIDs: l.EquipmentIDs,
		SkillIDs:     l.SkillIDs,
		PalID:        l.PalID,
	}
}

// LoadoutFrom converts a loadout to its wire form
func LoadoutFrom(l arena.Loadout) Loadout {
	base := make(map[string]float64, len(l.Base))
	for k, v := range l.Base {
		base[string(k)] = v
	}
	return Loadout{
		Base:         base,
		EquipmentIDs: l.EquipmentIDs,
		SkillIDs:     l.SkillIDs,
		PalID:        l.PalID,
	}
}

func fromProfile(p *arena.Profile) Profile {
	if p == nil {
		return Profile{}
	}
	return Profile{
		PlayerID:          p.PlayerID,
		SeasonID:          p.SeasonID,
		Rating:            p.Rating,
		Rank:              p.Rank,
		AttemptsRemaining: p.AttemptsRemaining,
		NextRefillAt:      p.NextRefillAt,
		Wins:              p.Wins,
		Losses:            p.Losses,
		Draws:             p.Draws,
	}
}

func fromBuild(b *arena.DefenseBuild) DefenseBuild {
	if b == nil {
		return DefenseBuild{}
	}
	return DefenseBuild{
		PlayerID:   b.PlayerID,
		Version:    b.Version,
		Loadout:    LoadoutFrom(b.Loadout),
		CapturedAt: b.CapturedAt,
	}
}

func fromResult(r *arena.BattleResult) Battle {
	if r == nil {
		return Battle{}
	}
	out := Battle{
		BattleID:             r.BattleID,
		SeasonID:             r.SeasonID,
		AttackerID:           r.AttackerID,
		DefenderID:           r.DefenderID,
		DefenderBuildVersion: r.DefenderBuildVersion,
		Outcome:              string(r.Outcome),
		AttackerRating:       r.AttackerRating,
		DefenderRating:       r.DefenderRating,
		AttackerDelta:        r.AttackerDelta,
		DefenderDelta:        r.DefenderDelta,
		Seed:                 r.Seed,
		Ticks:                r.Ticks,
		Digest:               formatDigest(r.Digest),
		CreatedAt:            r.CreatedAt,
	}
	if len(r.Events) > 0 {
		out.Replay = make([]ReplayEvent, len(r.Events))
		for i, ev := range r.Events {
			out.Replay[i] = ReplayEvent{
				Tick:    ev.Tick,
				Kind:    ev.Kind.String(),
				Actor:   ev.Actor,
				Target:  ev.Target,
				SkillID: ev.SkillID,
				Amount:  ev.Amount,
				Crit:    ev.Crit,
			}
		}
	}
	return out
}
