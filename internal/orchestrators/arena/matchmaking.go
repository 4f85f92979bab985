package arena

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/KirkDiggler/rpg-arena/internal/errors"
	arenaprofile "github.com/KirkDiggler/rpg-arena/internal/repositories/arena_profile"
	defensebuild "github.com/KirkDiggler/rpg-arena/internal/repositories/defense_build"
)

func (o *orchestrator) GetOpponents(ctx context.Context, input *GetOpponentsInput) (*GetOpponentsOutput, error) {
	if input == nil || input.PlayerID == "" {
		return nil, errors.InvalidArgument("player ID is required")
	}

	self, err := o.profileRepo.GetOrCreate(ctx, arenaprofile.GetOrCreateInput{PlayerID: input.PlayerID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get profile")
	}
	rating := self.Profile.Rating

	for band := o.band; ; band = min(band+o.bandStep, o.maxBand) {
		entries, err := o.listBand(ctx, input.PlayerID, rating-band, rating+band)
		if err != nil {
			return nil, err
		}
		if len(entries) >= o.opponentCount {
			return o.pick(ctx, input.PlayerID, rating, entries, band)
		}
		if band >= o.maxBand || o.bandStep == 0 {
			break
		}
	}

	// the widest band is still short, fall back to the whole ladder
	entries, err := o.listBand(ctx, input.PlayerID, math.MinInt32, math.MaxInt32)
	if err != nil {
		return nil, err
	}
	if len(entries) < o.opponentCount {
		return nil, errors.StateConflictf("only %d ranked opponents available, need %d", len(entries), o.opponentCount).
			WithMeta("player_id", input.PlayerID)
	}
	return o.pick(ctx, input.PlayerID, rating, entries, 0)
}

func (o *orchestrator) listBand(ctx context.Context, playerID string, lo, hi int) ([]arenaprofile.LadderEntry, error) {
	out, err := o.profileRepo.ListByRating(ctx, arenaprofile.ListByRatingInput{Min: lo, Max: hi})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list ladder")
	}

	others := make([]arenaprofile.LadderEntry, 0, len(out.Entries))
	for _, e := range out.Entries {
		if e.PlayerID != playerID {
			others = append(others, e)
		}
	}
	return others, nil
}

// pick takes the entries closest to rating, ties broken by player id, and
// attaches each one's current build version
func (o *orchestrator) pick(ctx context.Context, playerID string, rating int, entries []arenaprofile.LadderEntry, band int) (*GetOpponentsOutput, error) {
	sort.Slice(entries, func(i, j int) bool {
		di, dj := abs(entries[i].Rating-rating), abs(entries[j].Rating-rating)
		if di != dj {
			return di < dj
		}
		return entries[i].PlayerID < entries[j].PlayerID
	})

	candidates := make([]Candidate, 0, o.opponentCount)
	for _, e := range entries {
		if len(candidates) == o.opponentCount {
			break
		}
		build, err := o.defenseRepo.Get(ctx, defensebuild.GetInput{PlayerID: e.PlayerID})
		if err != nil {
			if errors.IsNotFound(err) {
				slog.WarnContext(ctx, "Ladder entry without defense build", "player_id", e.PlayerID)
				continue
			}
			return nil, errors.Wrap(err, "failed to get candidate build")
		}
		candidates = append(candidates, Candidate{
			PlayerID:     e.PlayerID,
			Rating:       e.Rating,
			BuildVersion: build.Build.Version,
		})
	}
	if len(candidates) < o.opponentCount {
		return nil, errors.StateConflictf("only %d opponents with defense builds, need %d", len(candidates), o.opponentCount).
			WithMeta("player_id", playerID)
	}

	slog.DebugContext(ctx, "Opponent pool built",
		"player_id", playerID,
		"rating", rating,
		"band", band,
		"candidates", len(candidates))

	return &GetOpponentsOutput{Candidates: candidates, Band: band}, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
