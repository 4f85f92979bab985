// Package battleresult stores finished arena battles and their replays.
// Results are written once and never edited.
package battleresult

//go:generate mockgen -destination=mock/mock_repository.go -package=battleresultmock github.com/KirkDiggler/rpg-arena/internal/repositories/battle_result Repository

import (
	"context"

	"github.com/KirkDiggler/rpg-arena/internal/entities/arena"
)

// Repository defines battle result persistence
type Repository interface {
	// Create stores a result, its replay and both players' history entries
	// in one transaction
	// Returns errors.AlreadyExists if the battle ID was already stored
	Create(ctx context.Context, input CreateInput) (*CreateOutput, error)

	// Get returns a result, with the decoded replay when WithReplay is set
	// Returns errors.NotFound if the battle does not exist
	Get(ctx context.Context, input GetInput) (*GetOutput, error)

	// ListByPlayer returns the player's most recent battles, newest first,
	// without replays
	ListByPlayer(ctx context.Context, input ListByPlayerInput) (*ListByPlayerOutput, error)

	// ListUnrated returns stored battles whose rating change has not been
	// confirmed, oldest first, without replays
	ListUnrated(ctx context.Context, input ListUnratedInput) (*ListUnratedOutput, error)

	// MarkRated confirms a battle's rating change was applied. Marking an
	// unknown or already confirmed battle is a no-op.
	MarkRated(ctx context.Context, input MarkRatedInput) (*MarkRatedOutput, error)
}

// CreateInput defines the input for storing a result
type CreateInput struct {
	Result *arena.BattleResult
}

// CreateOutput defines the output for storing a result
type CreateOutput struct{}

// GetInput defines the input for getting a result
type GetInput struct {
	BattleID   string
	WithReplay bool
}

// GetOutput defines the output for getting a result
type GetOutput struct {
	Result *arena.BattleResult
}

// ListByPlayerInput defines the input for listing history
type ListByPlayerInput struct {
	PlayerID string
	Limit    int
}

// ListByPlayerOutput defines the output for listing history
type ListByPlayerOutput struct {
	Results []*arena.BattleResult
}

// ListUnratedInput defines the input for listing unconfirmed battles
type ListUnratedInput struct {
	Limit int
}

// ListUnratedOutput defines the output for listing unconfirmed battles
type ListUnratedOutput struct {
	Results []*arena.BattleResult
	// Missing holds indexed ids whose result is gone
	Missing []string
}

// MarkRatedInput defines the input for confirming a rating change
type MarkRatedInput struct {
	BattleID string
}

// MarkRatedOutput defines the output for confirming a rating change
type MarkRatedOutput struct{}
