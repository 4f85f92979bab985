package arenaprofile

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	redis "github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/rpg-arena/internal/entities/arena"
	"github.com/KirkDiggler/rpg-arena/internal/errors"
	"github.com/KirkDiggler/rpg-arena/internal/pkg/clock"
	redisclient "github.com/KirkDiggler/rpg-arena/internal/redis"
)

const (
	profileKeyPrefix = "arena:profile:"
	ladderKeyPrefix  = "arena:ladder:"
	battleKeyPrefix  = "arena:battle:"
	ratedKeySuffix   = ":rated"

	defaultMaxRetries = 16

	// Error messages
	errPlayerIDEmpty = "player ID cannot be empty"
	errBattleIDEmpty = "battle ID cannot be empty"
)

// RedisConfig contains configuration for the Redis arena profile repository
type RedisConfig struct {
	Client         redisclient.Client
	Clock          clock.Clock
	SeasonID       string
	StartingRating int
	Attempts       arena.AttemptPolicy
	// MaxRetries bounds WATCH retries under contention
	MaxRetries int
}

// Validate validates the RedisConfig
func (cfg *RedisConfig) Validate() error {
	if cfg == nil {
		return errors.InvalidArgument("config cannot be nil")
	}

	vb := errors.NewValidationBuilder()
	if cfg.Client == nil {
		vb.RequiredField("Client")
	}
	errors.ValidateRequired("SeasonID", cfg.SeasonID, vb)
	errors.ValidatePositive("StartingRating", cfg.StartingRating, vb)
	errors.ValidatePositive("Attempts.Max", cfg.Attempts.Max, vb)
	if cfg.Attempts.RefillInterval < 0 {
		vb.Field("Attempts.RefillInterval", "cannot be negative")
	}
	if cfg.MaxRetries < 0 {
		vb.Field("MaxRetries", "cannot be negative")
	}
	return vb.Build()
}

type redisRepository struct {
	client         redisclient.Client
	clock          clock.Clock
	seasonID       string
	startingRating int
	policy         arena.AttemptPolicy
	maxRetries     int
}

// NewRedis creates a Redis-backed arena profile repository
func NewRedis(cfg *RedisConfig) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	c := cfg.Clock
	if c == nil {
		c = clock.New()
	}
	retries := cfg.MaxRetries
	if retries == 0 {
		retries = defaultMaxRetries
	}

	return &redisRepository{
		client:         cfg.Client,
		clock:          c,
		seasonID:       cfg.SeasonID,
		startingRating: cfg.StartingRating,
		policy:         cfg.Attempts,
		maxRetries:     retries,
	}, nil
}

var _ Repository = (*redisRepository)(nil)

func profileKey(playerID string) string { return profileKeyPrefix + playerID }

func ratedKey(battleID string) string { return battleKeyPrefix + battleID + ratedKeySuffix }

func (r *redisRepository) ladderKey() string { return ladderKeyPrefix + r.seasonID }

func (r *redisRepository) Get(ctx context.Context, input GetInput) (*GetOutput, error) {
	if input.PlayerID == "" {
		return nil, errors.InvalidArgument(errPlayerIDEmpty)
	}

	p, err := r.load(ctx, r.client, input.PlayerID)
	if err != nil {
		return nil, err
	}
	p.Refill(r.clock.Now(), r.policy)

	rank, err := r.client.ZRevRank(ctx, r.ladderKey(), input.PlayerID).Result()
	switch {
	case err == nil:
		p.Rank = rank + 1
	case err != redis.Nil:
		return nil, errors.Wrapf(err, "failed to get rank for %s", input.PlayerID)
	}

	return &GetOutput{Profile: p}, nil
}

func (r *redisRepository) GetOrCreate(ctx context.Context, input GetOrCreateInput) (*GetOrCreateOutput, error) {
	if input.PlayerID == "" {
		return nil, errors.InvalidArgument(errPlayerIDEmpty)
	}

	p, err := r.load(ctx, r.client, input.PlayerID)
	if err == nil {
		return &GetOrCreateOutput{Profile: p}, nil
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}

	p = r.newProfile(input.PlayerID)
	data, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal profile")
	}

	created, err := r.client.SetNX(ctx, profileKey(input.PlayerID), data, 0).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create profile")
	}
	if !created {
		// lost the race to another creator
		p, err = r.load(ctx, r.client, input.PlayerID)
		if err != nil {
			return nil, err
		}
		return &GetOrCreateOutput{Profile: p}, nil
	}

	slog.InfoContext(ctx, "arena profile created",
		"player_id", input.PlayerID,
		"season_id", r.seasonID,
		"rating", p.Rating,
	)
	return &GetOrCreateOutput{Profile: p, Created: true}, nil
}

func (r *redisRepository) ConsumeAttempt(ctx context.Context, input ConsumeAttemptInput) (*ConsumeAttemptOutput, error) {
	if input.PlayerID == "" {
		return nil, errors.InvalidArgument(errPlayerIDEmpty)
	}

	var out *arena.Profile
	err := r.update(ctx, []string{profileKey(input.PlayerID)}, func(tx *redis.Tx) (writeFunc, error) {
		p, err := r.loadOrNew(ctx, tx, input.PlayerID)
		if err != nil {
			return nil, err
		}

		now := r.clock.Now()
		if !p.Consume(now, r.policy) {
			return nil, errors.OutOfAttempts(input.PlayerID, p.NextRefillAt)
		}
		p.UpdatedAt = now
		out = p

		return func(pipe redis.Pipeliner) error {
			return r.save(ctx, pipe, p)
		}, nil
	})
	if err != nil {
		return nil, err
	}

	return &ConsumeAttemptOutput{Profile: out}, nil
}

func (r *redisRepository) RefundAttempt(ctx context.Context, input RefundAttemptInput) (*RefundAttemptOutput, error) {
	if input.PlayerID == "" {
		return nil, errors.InvalidArgument(errPlayerIDEmpty)
	}

	var out *arena.Profile
	err := r.update(ctx, []string{profileKey(input.PlayerID)}, func(tx *redis.Tx) (writeFunc, error) {
		p, err := r.load(ctx, tx, input.PlayerID)
		if err != nil {
			return nil, err
		}
		p.Refund(r.policy)
		p.UpdatedAt = r.clock.Now()
		out = p

		return func(pipe redis.Pipeliner) error {
			return r.save(ctx, pipe, p)
		}, nil
	})
	if err != nil {
		return nil, err
	}

	return &RefundAttemptOutput{Profile: out}, nil
}

func (r *redisRepository) Enroll(ctx context.Context, input EnrollInput) (*EnrollOutput, error) {
	if input.PlayerID == "" {
		return nil, errors.InvalidArgument(errPlayerIDEmpty)
	}

	var out *arena.Profile
	err := r.update(ctx, []string{profileKey(input.PlayerID)}, func(tx *redis.Tx) (writeFunc, error) {
		p, err := r.loadOrNew(ctx, tx, input.PlayerID)
		if err != nil {
			return nil, err
		}
		out = p

		return func(pipe redis.Pipeliner) error {
			if err := r.save(ctx, pipe, p); err != nil {
				return err
			}
			pipe.ZAddNX(ctx, r.ladderKey(), redis.Z{Score: float64(p.Rating), Member: p.PlayerID})
			return nil
		}, nil
	})
	if err != nil {
		return nil, err
	}

	return &EnrollOutput{Profile: out}, nil
}

func (r *redisRepository) ApplyBattle(ctx context.Context, input ApplyBattleInput) (*ApplyBattleOutput, error) {
	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("battle_id", input.BattleID, vb)
	errors.ValidateRequired("attacker.player_id", input.Attacker.PlayerID, vb)
	errors.ValidateRequired("defender.player_id", input.Defender.PlayerID, vb)
	if input.Attacker.PlayerID == input.Defender.PlayerID {
		vb.InvalidField("defender.player_id", "must differ from attacker")
	}
	if err := vb.Build(); err != nil {
		return nil, err
	}

	marker := ratedKey(input.BattleID)
	keys := []string{profileKey(input.Attacker.PlayerID), profileKey(input.Defender.PlayerID), marker}

	out := &ApplyBattleOutput{}
	err := r.update(ctx, keys, func(tx *redis.Tx) (writeFunc, error) {
		attacker, err := r.load(ctx, tx, input.Attacker.PlayerID)
		if err != nil {
			return nil, err
		}
		defender, err := r.load(ctx, tx, input.Defender.PlayerID)
		if err != nil {
			return nil, err
		}
		out.Attacker, out.Defender, out.Applied = attacker, defender, false

		applied, err := tx.Exists(ctx, marker).Result()
		if err != nil {
			return nil, errors.Wrap(err, "failed to check battle marker")
		}
		if applied > 0 {
			return nil, nil
		}

		now := r.clock.Now()
		attacker.Record(input.Attacker.Delta, input.Attacker.Score)
		defender.Record(input.Defender.Delta, input.Defender.Score)
		attacker.UpdatedAt, defender.UpdatedAt = now, now
		out.Applied = true

		return func(pipe redis.Pipeliner) error {
			for _, p := range []*arena.Profile{attacker, defender} {
				if err := r.save(ctx, pipe, p); err != nil {
					return err
				}
				pipe.ZAddXX(ctx, r.ladderKey(), redis.Z{Score: float64(p.Rating), Member: p.PlayerID})
			}
			pipe.Set(ctx, marker, now.Unix(), 0)
			return nil
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if !out.Applied {
		slog.WarnContext(ctx, "battle already applied",
			"battle_id", input.BattleID,
			"attacker_id", input.Attacker.PlayerID,
			"defender_id", input.Defender.PlayerID,
		)
	}
	return out, nil
}

func (r *redisRepository) ListByRating(ctx context.Context, input ListByRatingInput) (*ListByRatingOutput, error) {
	if input.Max < input.Min {
		return nil, errors.InvalidArgumentf("max rating %d is below min %d", input.Max, input.Min)
	}

	zs, err := r.client.ZRangeByScoreWithScores(ctx, r.ladderKey(), &redis.ZRangeBy{
		Min: strconv.Itoa(input.Min),
		Max: strconv.Itoa(input.Max),
	}).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read ladder")
	}

	entries := make([]LadderEntry, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, LadderEntry{PlayerID: member, Rating: int(z.Score)})
	}

	return &ListByRatingOutput{Entries: entries}, nil
}

func (r *redisRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.client.ZCard(ctx, r.ladderKey()).Result()
	if err != nil {
		return 0, errors.Wrap(err, "failed to count ladder")
	}
	return n, nil
}

// writeFunc queues the writes of one transaction attempt
type writeFunc func(pipe redis.Pipeliner) error

// update runs read under WATCH and commits its writes with MULTI/EXEC,
// retrying from the read when a watched key changed underneath.
func (r *redisRepository) update(ctx context.Context, keys []string, read func(tx *redis.Tx) (writeFunc, error)) error {
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			write, err := read(tx)
			if err != nil || write == nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, write)
			return err
		}, keys...)

		if errors.Is(err, redis.TxFailedErr) {
			slog.DebugContext(ctx, "arena profile transaction retry",
				"keys", keys,
				"attempt", attempt+1,
			)
			continue
		}
		if err != nil {
			var custom *errors.Error
			if errors.As(err, &custom) {
				return custom
			}
			return errors.Wrap(err, "arena profile transaction failed")
		}
		return nil
	}

	return errors.Abortedf("arena profile transaction gave up after %d retries", r.maxRetries)
}

func (r *redisRepository) newProfile(playerID string) *arena.Profile {
	return &arena.Profile{
		PlayerID:          playerID,
		SeasonID:          r.seasonID,
		Rating:            r.startingRating,
		AttemptsRemaining: r.policy.Max,
		UpdatedAt:         r.clock.Now(),
	}
}

func (r *redisRepository) load(ctx context.Context, c redis.Cmdable, playerID string) (*arena.Profile, error) {
	data, err := c.Get(ctx, profileKey(playerID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NotFoundf("arena profile %s not found", playerID)
		}
		return nil, errors.Wrapf(err, "failed to get arena profile %s", playerID)
	}

	var p arena.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal arena profile %s", playerID)
	}
	return &p, nil
}

func (r *redisRepository) loadOrNew(ctx context.Context, c redis.Cmdable, playerID string) (*arena.Profile, error) {
	p, err := r.load(ctx, c, playerID)
	if errors.IsNotFound(err) {
		return r.newProfile(playerID), nil
	}
	return p, err
}

func (r *redisRepository) save(ctx context.Context, pipe redis.Pipeliner, p *arena.Profile) error {
	stored := *p
	stored.Rank = 0
	data, err := json.Marshal(&stored)
	if err != nil {
		return errors.Wrap(err, "failed to marshal arena profile")
	}
	pipe.Set(ctx, profileKey(p.PlayerID), data, 0)
	return nil
}
