// Package battle runs headless arena battles. A battle is a pure function of
// the attacker's loadout, the defender's frozen build and a seed.
package battle

//go:generate mockgen -destination=mock/mock_engine.go -package=battlemock github.com/KirkDiggler/rpg-arena/internal/engine/battle Engine

import (
	"context"
	"fmt"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/KirkDiggler/rpg-arena/internal/engine/catalog"
	"github.com/KirkDiggler/rpg-arena/internal/engine/combat"
	"github.com/KirkDiggler/rpg-arena/internal/entities/arena"
	"github.com/KirkDiggler/rpg-arena/internal/errors"
	"github.com/KirkDiggler/rpg-arena/internal/pkg/rng"
)

// Defaults for arena simulations
const (
	DefaultTickRate   = 60
	DefaultMaxTicks   = DefaultTickRate * 90
	DefaultSeparation = 10.0
)

// how often a running simulation checks for cancellation
const cancelCheckInterval = 64

// Config configures a Simulator
type Config struct {
	Catalog *catalog.Catalog
	// TickRate is the simulated ticks per second
	TickRate int
	// MaxTicks ends the battle as a draw
	MaxTicks int
	// Separation is the starting distance between the two sides
	Separation float64
}

// Validate validates the config
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()
	if c.Catalog == nil {
		vb.RequiredField("Catalog")
	}
	errors.ValidatePositive("TickRate", c.TickRate, vb)
	errors.ValidatePositive("MaxTicks", c.MaxTicks, vb)
	if c.Separation <= 0 || math.IsNaN(c.Separation) || math.IsInf(c.Separation, 0) {
		vb.Field("Separation", "must be a positive finite number")
	}
	return vb.Build()
}

// Engine runs one battle to completion
type Engine interface {
	Simulate(ctx context.Context, in *Input) (*arena.BattleResult, error)
}

// Simulator runs arena battles
type Simulator struct {
	catalog    *catalog.Catalog
	tickRate   int
	maxTicks   int
	separation float64
	tracer     trace.Tracer
}

// NewSimulator creates a Simulator
func NewSimulator(cfg *Config) (*Simulator, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &Simulator{
		catalog:    cfg.Catalog,
		tickRate:   cfg.TickRate,
		maxTicks:   cfg.MaxTicks,
		separation: cfg.Separation,
		tracer:     otel.Tracer("github.com/KirkDiggler/rpg-arena/internal/engine/battle"),
	}, nil
}

// Input is one battle to simulate
type Input struct {
	BattleID   string
	AttackerID string
	Attacker   arena.Loadout
	Defender   *arena.DefenseBuild
	Seed       uint64
}

// Validate validates the input
func (in *Input) Validate() error {
	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("battle_id", in.BattleID, vb)
	errors.ValidateRequired("attacker_id", in.AttackerID, vb)
	if in.Defender == nil {
		vb.RequiredField("defender")
	} else if in.Defender.PlayerID == in.AttackerID {
		vb.InvalidField("defender", "cannot battle yourself")
	}
	return vb.Build()
}

// Simulate runs the battle to completion. The result carries the outcome,
// tick count, replay log and digest; ratings are left for the caller. A
// panic inside the simulation is returned as an InternalFault.
func (s *Simulator) Simulate(ctx context.Context, in *Input) (result *arena.BattleResult, err error) {
	if in == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "battle.Simulate", trace.WithAttributes(
		attribute.String("battle.id", in.BattleID),
		attribute.String("battle.attacker_id", in.AttackerID),
		attribute.String("battle.defender_id", in.Defender.PlayerID),
		attribute.Int64("battle.defender_build_version", in.Defender.Version),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = errors.FromPanic(r, "battle simulation panicked").WithMeta("battle_id", in.BattleID)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	b, err := s.setup(in)
	if err != nil {
		return nil, err
	}

	outcome, ticks, err := b.run(ctx, s.maxTicks)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.String("battle.outcome", string(outcome)),
		attribute.Int("battle.ticks", ticks),
	)

	return &arena.BattleResult{
		BattleID:             in.BattleID,
		AttackerID:           in.AttackerID,
		DefenderID:           in.Defender.PlayerID,
		DefenderBuildVersion: in.Defender.Version,
		Outcome:              outcome,
		Seed:                 in.Seed,
		Ticks:                ticks,
		Digest:               arena.Digest(b.events),
		Events:               b.events,
	}, nil
}

func (s *Simulator) setup(in *Input) (*battle, error) {
	resolver, err := combat.NewResolver(&combat.Config{
		Roller:   rng.NewSeeded(in.Seed),
		TickRate: s.tickRate,
	})
	if err != nil {
		return nil, err
	}

	b := &battle{resolver: resolver, tickRate: s.tickRate}

	// the defender's side is listed first and so acts first each tick
	defender := in.Defender.Clone()
	if err := b.addSide(s.catalog, sideDefender, defender.PlayerID, defender.Loadout, s.separation); err != nil {
		return nil, errors.Wrapf(err, "invalid defense build for %s", defender.PlayerID)
	}
	if err := b.addSide(s.catalog, sideAttacker, in.AttackerID, in.Attacker.Clone(), 0); err != nil {
		return nil, errors.Wrapf(err, "invalid loadout for %s", in.AttackerID)
	}
	return b, nil
}

func (b *battle) addSide(cat *catalog.Catalog, side side, playerID string, loadout arena.Loadout, x float64) error {
	hero, err := cat.Fighter(playerID, loadout)
	if err != nil {
		return err
	}
	b.add(newUnit(playerID, side, x, hero))

	if loadout.PalID == "" {
		return nil
	}
	palID := fmt.Sprintf("%s:%s", playerID, loadout.PalID)
	pal, err := cat.PalFighter(palID, loadout.PalID)
	if err != nil {
		return err
	}
	offset := 1.0
	if side == sideDefender {
		offset = -1.0
	}
	b.add(newUnit(palID, side, x-offset, pal))
	return nil
}
