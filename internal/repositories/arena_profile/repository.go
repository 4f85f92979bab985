// Package arenaprofile persists arena standings and the season ladder
package arenaprofile

//go:generate mockgen -destination=mock/mock_repository.go -package=arenaprofilemock github.com/KirkDiggler/rpg-arena/internal/repositories/arena_profile Repository

import (
	"context"

	"github.com/KirkDiggler/rpg-arena/internal/entities/arena"
)

// Repository defines arena profile persistence. Every write to one player's
// profile is a compare-and-retry transaction, so concurrent writers for the
// same player are serialized while different players proceed independently.
type Repository interface {
	// Get returns a player's profile with pending refills credited and the
	// ladder rank filled in
	// Returns errors.InvalidArgument for empty player IDs
	// Returns errors.NotFound if the player has no profile
	Get(ctx context.Context, input GetInput) (*GetOutput, error)

	// GetOrCreate returns the profile, creating a fresh one at the starting
	// rating with full attempts when missing
	GetOrCreate(ctx context.Context, input GetOrCreateInput) (*GetOrCreateOutput, error)

	// ConsumeAttempt atomically checks and spends one attempt
	// Returns errors.OutOfAttempts when none remain
	// Returns errors.Aborted when contention outlasts the retry budget
	ConsumeAttempt(ctx context.Context, input ConsumeAttemptInput) (*ConsumeAttemptOutput, error)

	// RefundAttempt returns an attempt spent on a battle that never resolved
	RefundAttempt(ctx context.Context, input RefundAttemptInput) (*RefundAttemptOutput, error)

	// Enroll puts the player on the ladder so others can find them
	Enroll(ctx context.Context, input EnrollInput) (*EnrollOutput, error)

	// ApplyBattle applies both rating deltas and the battle marker in one
	// transaction. A battle already applied is a no-op with Applied false.
	ApplyBattle(ctx context.Context, input ApplyBattleInput) (*ApplyBattleOutput, error)

	// ListByRating returns ladder entries with rating in [Min, Max]
	ListByRating(ctx context.Context, input ListByRatingInput) (*ListByRatingOutput, error)

	// Count returns the number of players on the ladder
	Count(ctx context.Context) (int64, error)

	// Repair checks stored profiles against the ladder. It reports
	// unreadable profiles, ladder members without a profile and ladder
	// scores that drifted from the profile rating. With Fix set the first
	// two are removed and drifted scores are reset.
	Repair(ctx context.Context, input RepairInput) (*RepairOutput, error)
}

// GetInput defines the input for getting a profile
type GetInput struct {
	PlayerID string
}

// GetOutput defines the output for getting a profile
type GetOutput struct {
	Profile *arena.Profile
}

// GetOrCreateInput defines the input for GetOrCreate
type GetOrCreateInput struct {
	PlayerID string
}

// GetOrCreateOutput defines the output for GetOrCreate
type GetOrCreateOutput struct {
	Profile *arena.Profile
	Created bool
}

// ConsumeAttemptInput defines the input for spending an attempt
type ConsumeAttemptInput struct {
	PlayerID string
}

// ConsumeAttemptOutput holds the profile as written, after the spend
type ConsumeAttemptOutput struct {
	Profile *arena.Profile
}

// RefundAttemptInput defines the input for refunding an attempt
type RefundAttemptInput struct {
	PlayerID string
}

// RefundAttemptOutput holds the profile after the refund
type RefundAttemptOutput struct {
	Profile *arena.Profile
}

// EnrollInput defines the input for joining the ladder
type EnrollInput struct {
	PlayerID string
}

// EnrollOutput defines the output for joining the ladder
type EnrollOutput struct {
	Profile *arena.Profile
}

// Side is one participant's share of a battle update
type Side struct {
	PlayerID string
	Delta    int
	Score    float64
}

// ApplyBattleInput defines a rating update for one battle
type ApplyBattleInput struct {
	BattleID string
	Attacker Side
	Defender Side
}

// ApplyBattleOutput holds both profiles after the update
type ApplyBattleOutput struct {
	Attacker *arena.Profile
	Defender *arena.Profile
	// Applied is false when the battle had already been applied
	Applied bool
}

// ListByRatingInput selects a rating band
type ListByRatingInput struct {
	Min int
	Max int
}

// LadderEntry is one ladder member
type LadderEntry struct {
	PlayerID string
	Rating   int
}

// ListByRatingOutput lists entries in ascending rating order
type ListByRatingOutput struct {
	Entries []LadderEntry
}

// RepairInput controls a repair pass
type RepairInput struct {
	// Fix applies repairs instead of only reporting them
	Fix bool
}

// RepairOutput reports what a repair pass found, each list sorted by
// player ID
type RepairOutput struct {
	Checked   int
	Corrupted []string
	Orphaned  []string
	Drifted   []string
}
