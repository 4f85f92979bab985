// Package v1alpha1 exposes the arena orchestrator as the
// arena.v1alpha1.ArenaService gRPC service
package v1alpha1

import (
	"context"
	"fmt"

	"github.com/KirkDiggler/rpg-arena/internal/errors"
	"github.com/KirkDiggler/rpg-arena/internal/orchestrators/arena"
)

// HandlerConfig holds dependencies for the arena handler
type HandlerConfig struct {
	ArenaService arena.Service
}

// Validate ensures all required dependencies are present
func (c *HandlerConfig) Validate() error {
	if c.ArenaService == nil {
		return errors.InvalidArgument("arena service is required")
	}
	return nil
}

// Handler implements ArenaServiceServer
type Handler struct {
	arena arena.Service
}

var _ ArenaServiceServer = (*Handler)(nil)

// NewHandler creates a new arena handler with the given configuration
func NewHandler(cfg *HandlerConfig) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Handler{arena: cfg.ArenaService}, nil
}

// GetOpponents returns the opponent pool for a player
func (h *Handler) GetOpponents(ctx context.Context, req *GetOpponentsRequest) (*GetOpponentsResponse, error) {
	if req.PlayerID == "" {
		return nil, errors.ToGRPCError(errors.InvalidArgument("player_id is required"))
	}

	out, err := h.arena.GetOpponents(ctx, &arena.GetOpponentsInput{PlayerID: req.PlayerID})
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	opponents := make([]Opponent, len(out.Candidates))
	for i, c := range out.Candidates {
		opponents[i] = Opponent{PlayerID: c.PlayerID, Rating: c.Rating, BuildVersion: c.BuildVersion}
	}
	return &GetOpponentsResponse{Opponents: opponents, Band: out.Band}, nil
}

// Challenge runs a battle against an opponent
func (h *Handler) Challenge(ctx context.Context, req *ChallengeRequest) (*ChallengeResponse, error) {
	if req.PlayerID == "" {
		return nil, errors.ToGRPCError(errors.InvalidArgument("player_id is required"))
	}
	if req.OpponentID == "" {
		return nil, errors.ToGRPCError(errors.InvalidArgument("opponent_id is required"))
	}

	input := &arena.ChallengeInput{PlayerID: req.PlayerID, OpponentID: req.OpponentID}
	if req.Loadout != nil {
		l := toLoadout(*req.Loadout)
		input.Loadout = &l
	}

	out, err := h.arena.Challenge(ctx, input)
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	return &ChallengeResponse{
		Battle:   fromResult(out.Result),
		Attacker: fromProfile(out.Attacker),
		Defender: fromProfile(out.Defender),
	}, nil
}

// SetDefense captures a defense build
func (h *Handler) SetDefense(ctx context.Context, req *SetDefenseRequest) (*SetDefenseResponse, error) {
	if req.PlayerID == "" {
		return nil, errors.ToGRPCError(errors.InvalidArgument("player_id is required"))
	}

	out, err := h.arena.SetDefense(ctx, &arena.SetDefenseInput{
		PlayerID: req.PlayerID,
		Loadout:  toLoadout(req.Loadout),
	})
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	return &SetDefenseResponse{Build: fromBuild(out.Build), Profile: fromProfile(out.Profile)}, nil
}

// GetProfile returns a player's arena profile
func (h *Handler) GetProfile(ctx context.Context, req *GetProfileRequest) (*GetProfileResponse, error) {
	if req.PlayerID == "" {
		return nil, errors.ToGRPCError(errors.InvalidArgument("player_id is required"))
	}

	out, err := h.arena.GetProfile(ctx, &arena.GetProfileInput{PlayerID: req.PlayerID})
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}
	return &GetProfileResponse{Profile: fromProfile(out.Profile)}, nil
}

// GetBattle returns a stored battle, optionally with its replay
func (h *Handler) GetBattle(ctx context.Context, req *GetBattleRequest) (*GetBattleResponse, error) {
	if req.BattleID == "" {
		return nil, errors.ToGRPCError(errors.InvalidArgument("battle_id is required"))
	}

	out, err := h.arena.GetBattle(ctx, &arena.GetBattleInput{BattleID: req.BattleID, WithReplay: req.WithReplay})
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}
	return &GetBattleResponse{Battle: fromResult(out.Result)}, nil
}

// ListHistory returns a player's recent battles
func (h *Handler) ListHistory(ctx context.Context, req *ListHistoryRequest) (*ListHistoryResponse, error) {
	if req.PlayerID == "" {
		return nil, errors.ToGRPCError(errors.InvalidArgument("player_id is required"))
	}

	out, err := h.arena.ListHistory(ctx, &arena.ListHistoryInput{PlayerID: req.PlayerID, Limit: req.Limit})
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	battles := make([]Battle, len(out.Results))
	for i, r := range out.Results {
		battles[i] = fromResult(r)
	}
	return &ListHistoryResponse{Battles: battles}, nil
}

func formatDigest(d uint64) string {
	return fmt.Sprintf("%016x", d)
}
