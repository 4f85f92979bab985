// Package builders provides test data builders for creating test fixtures
package builders

import (
	"time"

	"github.com/KirkDiggler/rpg-arena/internal/entities/arena"
)

// BattleResultBuilder provides a fluent interface for building test
// BattleResult instances
type BattleResultBuilder struct {
	result *arena.BattleResult
}

// NewBattleResultBuilder creates a builder for an attacker win between two
// 1200 rated players
func NewBattleResultBuilder() *BattleResultBuilder {
	return &BattleResultBuilder{
		result: &arena.BattleResult{
			BattleID:             "battle-test-123",
			SeasonID:             "season-test",
			AttackerID:           "player-attacker",
			DefenderID:           "player-defender",
			DefenderBuildVersion: 1,
			Outcome:              arena.OutcomeAttackerWin,
			AttackerRating:       1200,
			DefenderRating:       1200,
			Seed:                 42,
			Ticks:                600,
			CreatedAt:            time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

// WithBattleID sets the battle ID
func (b *BattleResultBuilder) WithBattleID(id string) *BattleResultBuilder {
	b.result.BattleID = id
	return b
}

// WithPlayers sets the attacker and defender IDs
func (b *BattleResultBuilder) WithPlayers(attackerID, defenderID string) *BattleResultBuilder {
	b.result.AttackerID = attackerID
	b.result.DefenderID = defenderID
	return b
}

// WithOutcome sets the outcome
func (b *BattleResultBuilder) WithOutcome(o arena.Outcome) *BattleResultBuilder {
	b.result.Outcome = o
	return b
}

// WithRatings sets the ratings as read when the battle started
func (b *BattleResultBuilder) WithRatings(attacker, defender int) *BattleResultBuilder {
	b.result.AttackerRating = attacker
	b.result.DefenderRating = defender
	return b
}

// WithDeltas sets the rating deltas
func (b *BattleResultBuilder) WithDeltas(attacker, defender int) *BattleResultBuilder {
	b.result.AttackerDelta = attacker
	b.result.DefenderDelta = defender
	return b
}

// WithEvents sets the replay log and its digest
func (b *BattleResultBuilder) WithEvents(events ...arena.Event) *BattleResultBuilder {
	b.result.Events = events
	b.result.Digest = arena.Digest(events)
	return b
}

// WithCreatedAt sets the creation time
func (b *BattleResultBuilder) WithCreatedAt(t time.Time) *BattleResultBuilder {
	b.result.CreatedAt = t
	return b
}

// Build returns the built BattleResult
func (b *BattleResultBuilder) Build() *arena.BattleResult {
	out := *b.result
	out.Events = append([]arena.Event(nil), b.result.Events...)
	return &out
}
