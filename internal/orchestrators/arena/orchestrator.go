// Package arena implements the asynchronous PvP arena: opponent pools,
// attempt-gated challenges and defense builds.
package arena

//go:generate mockgen -destination=mock/mock_service.go -package=arenamock github.com/KirkDiggler/rpg-arena/internal/orchestrators/arena Service

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/KirkDiggler/rpg-arena/internal/engine/battle"
	"github.com/KirkDiggler/rpg-arena/internal/engine/catalog"
	entities "github.com/KirkDiggler/rpg-arena/internal/entities/arena"
	"github.com/KirkDiggler/rpg-arena/internal/errors"
	"github.com/KirkDiggler/rpg-arena/internal/pkg/clock"
	"github.com/KirkDiggler/rpg-arena/internal/pkg/idgen"
	arenaprofile "github.com/KirkDiggler/rpg-arena/internal/repositories/arena_profile"
	battleresult "github.com/KirkDiggler/rpg-arena/internal/repositories/battle_result"
	defensebuild "github.com/KirkDiggler/rpg-arena/internal/repositories/defense_build"
	"github.com/KirkDiggler/rpg-arena/internal/services/rating"
)

// Matchmaking and pool defaults
const (
	DefaultOpponentCount    = 3
	DefaultBand             = 100
	DefaultBandStep         = 100
	DefaultMaxBand          = 800
	DefaultChallengeTimeout = 5 * time.Second
)

// Service defines the arena operations
type Service interface {
	// GetOpponents returns the candidates closest in rating to the player,
	// widening the rating band until enough are found
	GetOpponents(ctx context.Context, input *GetOpponentsInput) (*GetOpponentsOutput, error)

	// Challenge spends an attempt, simulates the battle against the
	// opponent's current defense build, stores the result and applies
	// ratings
	Challenge(ctx context.Context, input *ChallengeInput) (*ChallengeOutput, error)

	// SetDefense captures a new defense build version and puts the player
	// on the ladder
	SetDefense(ctx context.Context, input *SetDefenseInput) (*SetDefenseOutput, error)

	GetProfile(ctx context.Context, input *GetProfileInput) (*GetProfileOutput, error)
	GetBattle(ctx context.Context, input *GetBattleInput) (*GetBattleOutput, error)
	ListHistory(ctx context.Context, input *ListHistoryInput) (*ListHistoryOutput, error)

	// ReconcileRatings applies the rating change of every stored battle
	// that was never confirmed, such as one whose Challenge failed after
	// the result was written
	ReconcileRatings(ctx context.Context, input *ReconcileRatingsInput) (*ReconcileRatingsOutput, error)
}

// Config holds the dependencies for the arena orchestrator
type Config struct {
	ProfileRepo arenaprofile.Repository
	DefenseRepo defensebuild.Repository
	ResultRepo  battleresult.Repository
	Rating      rating.Service
	Engine      battle.Engine
	Catalog     *catalog.Catalog
	IDGenerator idgen.Generator
	Clock       clock.Clock

	// Workers bounds concurrent simulations. Defaults to GOMAXPROCS.
	Workers int
	// RatingK must match the rating service's K-factor
	RatingK int

	OpponentCount    int
	Band             int
	BandStep         int
	MaxBand          int
	ChallengeTimeout time.Duration
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.ProfileRepo == nil {
		vb.RequiredField("ProfileRepo")
	}
	if c.DefenseRepo == nil {
		vb.RequiredField("DefenseRepo")
	}
	if c.ResultRepo == nil {
		vb.RequiredField("ResultRepo")
	}
	if c.Rating == nil {
		vb.RequiredField("Rating")
	}
	if c.Engine == nil {
		vb.RequiredField("Engine")
	}
	if c.Catalog == nil {
		vb.RequiredField("Catalog")
	}
	if c.IDGenerator == nil {
		vb.RequiredField("IDGenerator")
	}
	if c.Workers < 0 {
		vb.Fieldf("Workers", "must not be negative, got %d", c.Workers)
	}
	if c.OpponentCount < 0 {
		vb.Fieldf("OpponentCount", "must not be negative, got %d", c.OpponentCount)
	}
	if c.Band < 0 || c.BandStep < 0 || c.MaxBand < 0 {
		vb.Field("Band", "band settings must not be negative")
	}
	if c.MaxBand > 0 && c.Band > c.MaxBand {
		vb.Fieldf("Band", "must not exceed MaxBand %d", c.MaxBand)
	}

	return vb.Build()
}

type orchestrator struct {
	profileRepo arenaprofile.Repository
	defenseRepo defensebuild.Repository
	resultRepo  battleresult.Repository
	rating      rating.Service
	engine      battle.Engine
	catalog     *catalog.Catalog
	idGen       idgen.Generator
	clock       clock.Clock
	pool        *semaphore.Weighted
	tracer      trace.Tracer

	ratingK          int
	opponentCount    int
	band             int
	bandStep         int
	maxBand          int
	challengeTimeout time.Duration
}

// NewOrchestrator creates a new arena orchestrator with the provided dependencies
func NewOrchestrator(cfg *Config) (Service, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	o := &orchestrator{
		profileRepo:      cfg.ProfileRepo,
		defenseRepo:      cfg.DefenseRepo,
		resultRepo:       cfg.ResultRepo,
		rating:           cfg.Rating,
		engine:           cfg.Engine,
		catalog:          cfg.Catalog,
		idGen:            cfg.IDGenerator,
		clock:            cfg.Clock,
		tracer:           otel.Tracer("github.com/KirkDiggler/rpg-arena/internal/orchestrators/arena"),
		ratingK:          orDefault(cfg.RatingK, rating.DefaultK),
		opponentCount:    orDefault(cfg.OpponentCount, DefaultOpponentCount),
		band:             orDefault(cfg.Band, DefaultBand),
		bandStep:         orDefault(cfg.BandStep, DefaultBandStep),
		maxBand:          orDefault(cfg.MaxBand, DefaultMaxBand),
		challengeTimeout: cfg.ChallengeTimeout,
	}
	if o.clock == nil {
		o.clock = clock.New()
	}
	if o.challengeTimeout <= 0 {
		o.challengeTimeout = DefaultChallengeTimeout
	}
	if o.band > o.maxBand {
		o.maxBand = o.band
	}
	o.pool = semaphore.NewWeighted(int64(orDefault(cfg.Workers, runtime.GOMAXPROCS(0))))

	return o, nil
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// Seed derives a battle's RNG seed from its id, so a stored result can be
// re-simulated from the id alone
func Seed(battleID string) uint64 {
	return xxhash.Sum64String(battleID)
}

func (o *orchestrator) Challenge(ctx context.Context, input *ChallengeInput) (*ChallengeOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("player_id", input.PlayerID, vb)
	errors.ValidateRequired("opponent_id", input.OpponentID, vb)
	if input.PlayerID != "" && input.PlayerID == input.OpponentID {
		vb.InvalidField("opponent_id", "cannot challenge yourself")
	}
	if err := vb.Build(); err != nil {
		return nil, err
	}
	if input.Loadout != nil {
		if err := o.catalog.ValidateLoadout(*input.Loadout); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, o.challengeTimeout)
	defer cancel()

	ctx, span := o.tracer.Start(ctx, "arena.Challenge", trace.WithAttributes(
		attribute.String("player_id", input.PlayerID),
		attribute.String("opponent_id", input.OpponentID),
	))
	defer span.End()

	out, err := o.challenge(ctx, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errors.GetMessage(err))
		return nil, err
	}

	span.SetAttributes(
		attribute.String("battle_id", out.Result.BattleID),
		attribute.String("outcome", string(out.Result.Outcome)),
	)
	return out, nil
}

func (o *orchestrator) challenge(ctx context.Context, input *ChallengeInput) (*ChallengeOutput, error) {
	if !o.pool.TryAcquire(1) {
		return nil, errors.ResourceExhausted(errors.ReasonPoolSaturated, "battle pool saturated")
	}
	defer o.pool.Release(1)

	defense, err := o.defenseRepo.Get(ctx, defensebuild.GetInput{PlayerID: input.OpponentID})
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.StateConflictf("opponent %s has no defense build", input.OpponentID).
				WithReason(errors.ReasonNoDefense)
		}
		return nil, errors.Wrap(err, "failed to get defense build")
	}

	loadout, err := o.attackerLoadout(ctx, input)
	if err != nil {
		return nil, err
	}

	defender, err := o.profileRepo.Get(ctx, arenaprofile.GetInput{PlayerID: input.OpponentID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get opponent profile")
	}

	consumed, err := o.profileRepo.ConsumeAttempt(ctx, arenaprofile.ConsumeAttemptInput{PlayerID: input.PlayerID})
	if err != nil {
		return nil, err
	}
	attacker := consumed.Profile

	battleID := o.idGen.Generate()
	result, err := o.simulate(ctx, &battle.Input{
		BattleID:   battleID,
		AttackerID: input.PlayerID,
		Attacker:   loadout,
		Defender:   defense.Build,
		Seed:       Seed(battleID),
	})
	if err == nil {
		result.SeasonID = attacker.SeasonID
		result.AttackerRating = attacker.Rating
		result.DefenderRating = defender.Profile.Rating
		result.AttackerDelta, result.DefenderDelta = rating.Deltas(o.ratingK, attacker.Rating, defender.Profile.Rating, result.Outcome)
		result.CreatedAt = o.clock.Now()

		_, err = o.resultRepo.Create(ctx, battleresult.CreateInput{Result: result})
		if err != nil {
			err = errors.Wrap(err, "failed to store battle result")
		}
	}
	if err != nil {
		o.refund(ctx, input.PlayerID, battleID, err)
		return nil, err
	}

	slog.InfoContext(ctx, "Battle resolved",
		"battle_id", battleID,
		"attacker_id", input.PlayerID,
		"defender_id", input.OpponentID,
		"defender_build_version", result.DefenderBuildVersion,
		"outcome", result.Outcome,
		"ticks", result.Ticks)

	applied, err := o.rating.ApplyResult(ctx, &rating.ApplyResultInput{Result: result})
	if err != nil {
		// the battle stays unconfirmed and ReconcileRatings applies it
		slog.ErrorContext(ctx, "Failed to apply rating for stored battle",
			"battle_id", battleID,
			"error", err)
		return nil, errors.Wrapf(err, "battle %s stored but rating not applied", battleID)
	}
	o.markRated(ctx, battleID)

	return &ChallengeOutput{
		Result:   result,
		Attacker: applied.Attacker,
		Defender: applied.Defender,
	}, nil
}

func (o *orchestrator) markRated(ctx context.Context, battleID string) {
	if _, err := o.resultRepo.MarkRated(context.WithoutCancel(ctx), battleresult.MarkRatedInput{BattleID: battleID}); err != nil {
		slog.WarnContext(ctx, "Failed to confirm rating, reconciliation will retry",
			"battle_id", battleID,
			"error", err)
	}
}

func (o *orchestrator) ReconcileRatings(ctx context.Context, input *ReconcileRatingsInput) (*ReconcileRatingsOutput, error) {
	if input == nil {
		input = &ReconcileRatingsInput{}
	}
	if input.Limit < 0 {
		return nil, errors.InvalidArgumentf("limit must not be negative, got %d", input.Limit)
	}

	ctx, span := o.tracer.Start(ctx, "arena.ReconcileRatings")
	defer span.End()

	pending, err := o.resultRepo.ListUnrated(ctx, battleresult.ListUnratedInput{Limit: input.Limit})
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to list unrated battles")
	}

	out := &ReconcileRatingsOutput{Checked: len(pending.Results) + len(pending.Missing)}
	for _, id := range pending.Missing {
		slog.WarnContext(ctx, "Dropping unrated index entry without a result", "battle_id", id)
		o.markRated(ctx, id)
	}

	for _, res := range pending.Results {
		if err := ctx.Err(); err != nil {
			return out, errors.Wrap(err, "reconciliation interrupted")
		}

		applied, err := o.rating.ApplyResult(ctx, &rating.ApplyResultInput{Result: res})
		if err != nil {
			slog.ErrorContext(ctx, "Failed to reconcile rating",
				"battle_id", res.BattleID,
				"error", err)
			out.Failed = append(out.Failed, res.BattleID)
			continue
		}
		if applied.Applied {
			out.Applied = append(out.Applied, res.BattleID)
		} else {
			out.Confirmed = append(out.Confirmed, res.BattleID)
		}
		o.markRated(ctx, res.BattleID)
	}

	span.SetAttributes(
		attribute.Int("checked", out.Checked),
		attribute.Int("applied", len(out.Applied)),
		attribute.Int("failed", len(out.Failed)),
	)
	if len(out.Applied) > 0 || len(out.Failed) > 0 {
		slog.InfoContext(ctx, "Reconciled ratings",
			"checked", out.Checked,
			"applied", len(out.Applied),
			"confirmed", len(out.Confirmed),
			"failed", len(out.Failed))
	}
	return out, nil
}

func (o *orchestrator) attackerLoadout(ctx context.Context, input *ChallengeInput) (entities.Loadout, error) {
	if input.Loadout != nil {
		return input.Loadout.Clone(), nil
	}

	own, err := o.defenseRepo.Get(ctx, defensebuild.GetInput{PlayerID: input.PlayerID})
	if err != nil {
		if errors.IsNotFound(err) {
			return entities.Loadout{}, errors.StateConflictf("player %s has no loadout and no defense build", input.PlayerID).
				WithReason(errors.ReasonNoDefense)
		}
		return entities.Loadout{}, errors.Wrap(err, "failed to get attacker build")
	}
	return own.Build.Loadout, nil
}

// simulate retries once on an internal fault
func (o *orchestrator) simulate(ctx context.Context, in *battle.Input) (*entities.BattleResult, error) {
	result, err := o.engine.Simulate(ctx, in)
	if errors.IsInternalFault(err) {
		slog.WarnContext(ctx, "Battle simulation faulted, retrying",
			"battle_id", in.BattleID,
			"error", err)
		result, err = o.engine.Simulate(ctx, in)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (o *orchestrator) refund(ctx context.Context, playerID, battleID string, cause error) {
	ctx = context.WithoutCancel(ctx)
	if _, err := o.profileRepo.RefundAttempt(ctx, arenaprofile.RefundAttemptInput{PlayerID: playerID}); err != nil {
		slog.ErrorContext(ctx, "Failed to refund attempt",
			"player_id", playerID,
			"battle_id", battleID,
			"cause", cause,
			"error", err)
		return
	}
	slog.WarnContext(ctx, "Refunded attempt for unresolved battle",
		"player_id", playerID,
		"battle_id", battleID,
		"cause", cause)
}

func (o *orchestrator) SetDefense(ctx context.Context, input *SetDefenseInput) (*SetDefenseOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	if input.PlayerID == "" {
		return nil, errors.InvalidArgument("player ID is required")
	}
	if err := o.catalog.ValidateLoadout(input.Loadout); err != nil {
		return nil, err
	}

	put, err := o.defenseRepo.Put(ctx, defensebuild.PutInput{
		PlayerID: input.PlayerID,
		Loadout:  input.Loadout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to capture defense build")
	}

	enrolled, err := o.profileRepo.Enroll(ctx, arenaprofile.EnrollInput{PlayerID: input.PlayerID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to enroll player")
	}

	slog.InfoContext(ctx, "Defense build captured",
		"player_id", input.PlayerID,
		"version", put.Build.Version)

	return &SetDefenseOutput{Build: put.Build, Profile: enrolled.Profile}, nil
}

func (o *orchestrator) GetProfile(ctx context.Context, input *GetProfileInput) (*GetProfileOutput, error) {
	if input == nil || input.PlayerID == "" {
		return nil, errors.InvalidArgument("player ID is required")
	}

	out, err := o.profileRepo.GetOrCreate(ctx, arenaprofile.GetOrCreateInput{PlayerID: input.PlayerID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get profile")
	}
	if out.Created {
		return &GetProfileOutput{Profile: out.Profile}, nil
	}

	// Get credits pending refills and fills in the rank
	got, err := o.profileRepo.Get(ctx, arenaprofile.GetInput{PlayerID: input.PlayerID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get profile")
	}
	return &GetProfileOutput{Profile: got.Profile}, nil
}

func (o *orchestrator) GetBattle(ctx context.Context, input *GetBattleInput) (*GetBattleOutput, error) {
	if input == nil || input.BattleID == "" {
		return nil, errors.InvalidArgument("battle ID is required")
	}

	out, err := o.resultRepo.Get(ctx, battleresult.GetInput{
		BattleID:   input.BattleID,
		WithReplay: input.WithReplay,
	})
	if err != nil {
		return nil, err
	}
	return &GetBattleOutput{Result: out.Result}, nil
}

func (o *orchestrator) ListHistory(ctx context.Context, input *ListHistoryInput) (*ListHistoryOutput, error) {
	if input == nil || input.PlayerID == "" {
		return nil, errors.InvalidArgument("player ID is required")
	}

	out, err := o.resultRepo.ListByPlayer(ctx, battleresult.ListByPlayerInput{
		PlayerID: input.PlayerID,
		Limit:    input.Limit,
	})
	if err != nil {
		return nil, err
	}
	return &ListHistoryOutput{Results: out.Results}, nil
}
