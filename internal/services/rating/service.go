// Package rating applies Elo rating changes for finished arena battles
package rating

//go:generate mockgen -destination=mock/mock_service.go -package=ratingmock github.com/KirkDiggler/rpg-arena/internal/services/rating Service

import (
	"context"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/KirkDiggler/rpg-arena/internal/entities/arena"
	"github.com/KirkDiggler/rpg-arena/internal/errors"
	arenaprofile "github.com/KirkDiggler/rpg-arena/internal/repositories/arena_profile"
)

// DefaultK is the Elo K-factor
const DefaultK = 32

// Service defines rating updates
type Service interface {
	// ApplyResult applies the result's deltas to both profiles. A battle is
	// applied at most once; repeated calls return the current profiles with
	// Applied false.
	ApplyResult(ctx context.Context, input *ApplyResultInput) (*ApplyResultOutput, error)
}

// ApplyResultInput carries the finished battle
type ApplyResultInput struct {
	Result *arena.BattleResult
}

// ApplyResultOutput holds both profiles after the update
type ApplyResultOutput struct {
	Attacker *arena.Profile
	Defender *arena.Profile
	Applied  bool
}

// Config holds the dependencies for the rating service
type Config struct {
	ProfileRepo arenaprofile.Repository
	// K defaults to DefaultK when zero
	K int
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.ProfileRepo == nil {
		vb.RequiredField("ProfileRepo")
	}
	if c.K < 0 {
		vb.Fieldf("K", "must not be negative, got %d", c.K)
	}

	return vb.Build()
}

type service struct {
	profileRepo arenaprofile.Repository
	k           int
	tracer      trace.Tracer
}

// NewService creates a rating service
func NewService(cfg *Config) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	k := cfg.K
	if k == 0 {
		k = DefaultK
	}
	return &service{
		profileRepo: cfg.ProfileRepo,
		k:           k,
		tracer:      otel.Tracer("github.com/KirkDiggler/rpg-arena/internal/services/rating"),
	}, nil
}

// Expected is the probability that a player rated self beats one rated opp
func Expected(self, opp int) float64 {
	return 1 / (1 + math.Pow(10, float64(opp-self)/400))
}

// Deltas returns the attacker and defender rating changes for outcome. The
// attacker's change is rounded and the defender's is its negation, so the
// pair always sums to zero.
func Deltas(k, attacker, defender int, outcome arena.Outcome) (int, int) {
	d := int(math.Round(float64(k) * (outcome.AttackerScore() - Expected(attacker, defender))))
	return d, -d
}

func (s *service) ApplyResult(ctx context.Context, input *ApplyResultInput) (*ApplyResultOutput, error) {
	if input == nil || input.Result == nil {
		return nil, errors.InvalidArgument("result is required")
	}
	res := input.Result

	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("battle_id", res.BattleID, vb)
	errors.ValidateRequired("attacker_id", res.AttackerID, vb)
	errors.ValidateRequired("defender_id", res.DefenderID, vb)
	if !res.Outcome.Valid() {
		vb.InvalidField("outcome", string(res.Outcome))
	}
	if err := vb.Build(); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "rating.ApplyResult", trace.WithAttributes(
		attribute.String("battle_id", res.BattleID),
		attribute.String("outcome", string(res.Outcome)),
	))
	defer span.End()

	attDelta, defDelta := Deltas(s.k, res.AttackerRating, res.DefenderRating, res.Outcome)
	recorded := res.AttackerDelta != 0 || res.DefenderDelta != 0
	if recorded && (res.AttackerDelta != attDelta || res.DefenderDelta != defDelta) {
		return nil, errors.InvalidArgumentf("battle %s recorded deltas (%d, %d) do not match ratings %d vs %d",
			res.BattleID, res.AttackerDelta, res.DefenderDelta, res.AttackerRating, res.DefenderRating)
	}

	score := res.Outcome.AttackerScore()
	out, err := s.profileRepo.ApplyBattle(ctx, arenaprofile.ApplyBattleInput{
		BattleID: res.BattleID,
		Attacker: arenaprofile.Side{PlayerID: res.AttackerID, Delta: attDelta, Score: score},
		Defender: arenaprofile.Side{PlayerID: res.DefenderID, Delta: defDelta, Score: arena.ScoreWin - score},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "apply battle failed")
		slog.ErrorContext(ctx, "Failed to apply rating",
			"battle_id", res.BattleID,
			"error", err)
		return nil, errors.Wrapf(err, "failed to apply rating for battle %s", res.BattleID)
	}

	span.SetAttributes(attribute.Bool("applied", out.Applied), attribute.Int("attacker_delta", attDelta))
	if out.Applied {
		slog.InfoContext(ctx, "Applied rating",
			"battle_id", res.BattleID,
			"attacker_id", res.AttackerID,
			"defender_id", res.DefenderID,
			"attacker_delta", attDelta,
			"defender_delta", defDelta)
	} else {
		slog.DebugContext(ctx, "Rating already applied", "battle_id", res.BattleID)
	}

	return &ApplyResultOutput{
		Attacker: out.Attacker,
		Defender: out.Defender,
		Applied:  out.Applied,
	}, nil
}
