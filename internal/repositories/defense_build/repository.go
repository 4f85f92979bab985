// Package defensebuild persists the frozen loadouts players defend with
package defensebuild

//go:generate mockgen -destination=mock/mock_repository.go -package=defensebuildmock github.com/KirkDiggler/rpg-arena/internal/repositories/defense_build Repository

import (
	"context"

	"github.com/KirkDiggler/rpg-arena/internal/entities/arena"
)

// Repository defines defense build persistence. A build is one JSON value,
// so a Get always observes a complete version.
type Repository interface {
	// Get returns the player's current build
	// Returns errors.InvalidArgument for empty player IDs
	// Returns errors.NotFound if the player never set a defense
	Get(ctx context.Context, input GetInput) (*GetOutput, error)

	// Put captures a new version of the player's build
	// Returns errors.Aborted when contention outlasts the retry budget
	Put(ctx context.Context, input PutInput) (*PutOutput, error)
}

// GetInput defines the input for getting a build
type GetInput struct {
	PlayerID string
}

// GetOutput defines the output for getting a build
type GetOutput struct {
	Build *arena.DefenseBuild
}

// PutInput defines the input for capturing a build
type PutInput struct {
	PlayerID string
	Loadout  arena.Loadout
}

// PutOutput holds the captured build with its new version
type PutOutput struct {
	Build *arena.DefenseBuild
}
