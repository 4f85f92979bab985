package arena

import (
	entities "github.com/KirkDiggler/rpg-arena/internal/entities/arena"
)

// Candidate is one opponent offered by GetOpponents
type Candidate struct {
	PlayerID     string
	Rating       int
	BuildVersion int64
}

// GetOpponentsInput defines the request for an opponent pool
type GetOpponentsInput struct {
	PlayerID string
}

// GetOpponentsOutput lists candidates closest in rating first
type GetOpponentsOutput struct {
	Candidates []Candidate
	// Band is the half-width of the rating band that produced the pool, or
	// zero when the whole ladder was searched
	Band int
}

// ChallengeInput defines a challenge. Loadout is the attacker's live state;
// when nil the attacker fights with their own stored defense build.
type ChallengeInput struct {
	PlayerID   string
	OpponentID string
	Loadout    *entities.Loadout
}

// ChallengeOutput holds the stored result and both profiles after rating
type ChallengeOutput struct {
	Result   *entities.BattleResult
	Attacker *entities.Profile
	Defender *entities.Profile
}

// SetDefenseInput captures a new defense build
type SetDefenseInput struct {
	PlayerID string
	Loadout  entities.Loadout
}

// SetDefenseOutput holds the captured build
type SetDefenseOutput struct {
	Build   *entities.DefenseBuild
	Profile *entities.Profile
}

// GetProfileInput defines the request for a profile
type GetProfileInput struct {
	PlayerID string
}

// GetProfileOutput holds the profile with refills applied
type GetProfileOutput struct {
	Profile *entities.Profile
}

// GetBattleInput defines the request for one battle
type GetBattleInput struct {
	BattleID   string
	WithReplay bool
}

// GetBattleOutput holds the battle
type GetBattleOutput struct {
	Result *entities.BattleResult
}

// ListHistoryInput defines the request for a player's recent battles
type ListHistoryInput struct {
	PlayerID string
	Limit    int
}

// ListHistoryOutput lists battles newest first
type ListHistoryOutput struct {
	Results []*entities.BattleResult
}

// ReconcileRatingsInput bounds one reconciliation pass
type ReconcileRatingsInput struct {
	// Limit is the number of unconfirmed battles to look at. Zero uses the
	// repository default.
	Limit int
}

// ReconcileRatingsOutput reports what a pass did
type ReconcileRatingsOutput struct {
	Checked int
	// Applied lists battles whose rating change landed in this pass
	Applied []string
	// Confirmed lists battles that were already applied and only needed
	// confirming
	Confirmed []string
	Failed    []string
}
