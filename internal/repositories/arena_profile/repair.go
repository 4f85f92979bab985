package arenaprofile

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"

	redis "github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/rpg-arena/internal/entities/arena"
	"github.com/KirkDiggler/rpg-arena/internal/errors"
)

func (r *redisRepository) Repair(ctx context.Context, input RepairInput) (*RepairOutput, error) {
	out := &RepairOutput{}

	iter := r.client.Scan(ctx, 0, profileKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		playerID := strings.TrimPrefix(key, profileKeyPrefix)
		out.Checked++

		data, err := r.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", key)
		}

		var p arena.Profile
		if err := json.Unmarshal(data, &p); err != nil || p.PlayerID != playerID {
			out.Corrupted = append(out.Corrupted, playerID)
			if input.Fix {
				if err := r.client.Del(ctx, key).Err(); err != nil {
					return nil, errors.Wrapf(err, "failed to delete %s", key)
				}
				if err := r.client.ZRem(ctx, r.ladderKey(), playerID).Err(); err != nil {
					return nil, errors.Wrapf(err, "failed to remove %s from ladder", playerID)
				}
			}
			continue
		}

		score, err := r.client.ZScore(ctx, r.ladderKey(), playerID).Result()
		if err == redis.Nil {
			// not enrolled
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read ladder score for %s", playerID)
		}
		if int(score) == p.Rating {
			continue
		}

		out.Drifted = append(out.Drifted, playerID)
		if input.Fix {
			if err := r.resetScore(ctx, playerID); err != nil {
				return nil, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to scan arena profiles")
	}

	members, err := r.client.ZRange(ctx, r.ladderKey(), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read ladder")
	}
	for _, playerID := range members {
		n, err := r.client.Exists(ctx, profileKey(playerID)).Result()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to check profile %s", playerID)
		}
		if n > 0 {
			continue
		}
		out.Orphaned = append(out.Orphaned, playerID)
		if input.Fix {
			if err := r.client.ZRem(ctx, r.ladderKey(), playerID).Err(); err != nil {
				return nil, errors.Wrapf(err, "failed to remove %s from ladder", playerID)
			}
		}
	}

	sort.Strings(out.Corrupted)
	sort.Strings(out.Orphaned)
	sort.Strings(out.Drifted)

	slog.InfoContext(ctx, "Arena ladder repair finished",
		"season_id", r.seasonID,
		"checked", out.Checked,
		"corrupted", len(out.Corrupted),
		"orphaned", len(out.Orphaned),
		"drifted", len(out.Drifted),
		"fix", input.Fix,
	)
	return out, nil
}

// resetScore sets the ladder score from the profile under WATCH so a
// concurrent ApplyBattle is not overwritten
func (r *redisRepository) resetScore(ctx context.Context, playerID string) error {
	return r.update(ctx, []string{profileKey(playerID)}, func(tx *redis.Tx) (writeFunc, error) {
		p, err := r.load(ctx, tx, playerID)
		if err != nil {
			return nil, err
		}
		return func(pipe redis.Pipeliner) error {
			pipe.ZAddXX(ctx, r.ladderKey(), redis.Z{Score: float64(p.Rating), Member: playerID})
			return nil
		}, nil
	})
}
