package defensebuild

import (
	"context"
	"encoding/json"
	"log/slog"

	redis "github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/rpg-arena/internal/entities/arena"
	"github.com/KirkDiggler/rpg-arena/internal/errors"
	"github.com/KirkDiggler/rpg-arena/internal/pkg/clock"
	redisclient "github.com/KirkDiggler/rpg-arena/internal/redis"
)

const (
	defenseKeyPrefix  = "arena:defense:"
	defaultMaxRetries = 8

	// Error messages
	errPlayerIDEmpty = "player ID cannot be empty"
)

// RedisConfig contains configuration for the Redis defense build repository
type RedisConfig struct {
	Client     redisclient.Client
	Clock      clock.Clock
	MaxRetries int
}

// Validate validates the RedisConfig
func (cfg *RedisConfig) Validate() error {
	if cfg == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	if cfg.Client == nil {
		return errors.InvalidArgument("client cannot be nil")
	}
	return nil
}

type redisRepository struct {
	client     redisclient.Client
	clock      clock.Clock
	maxRetries int
}

// NewRedis creates a Redis-backed defense build repository
func NewRedis(cfg *RedisConfig) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := cfg.Clock
	if c == nil {
		c = clock.New()
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}

	return &redisRepository{client: cfg.Client, clock: c, maxRetries: retries}, nil
}

func defenseKey(playerID string) string { return defenseKeyPrefix + playerID }

func (r *redisRepository) Get(ctx context.Context, input GetInput) (*GetOutput, error) {
	if input.PlayerID == "" {
		return nil, errors.InvalidArgument(errPlayerIDEmpty)
	}

	build, err := r.load(ctx, r.client, input.PlayerID)
	if err != nil {
		return nil, err
	}
	return &GetOutput{Build: build}, nil
}

func (r *redisRepository) Put(ctx context.Context, input PutInput) (*PutOutput, error) {
	if input.PlayerID == "" {
		return nil, errors.InvalidArgument(errPlayerIDEmpty)
	}

	key := defenseKey(input.PlayerID)
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		var build *arena.DefenseBuild
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			var version int64
			current, err := r.load(ctx, tx, input.PlayerID)
			switch {
			case err == nil:
				version = current.Version
			case !errors.IsNotFound(err):
				return err
			}

			build = &arena.DefenseBuild{
				PlayerID:   input.PlayerID,
				Version:    version + 1,
				Loadout:    input.Loadout.Clone(),
				CapturedAt: r.clock.Now(),
			}
			data, err := json.Marshal(build)
			if err != nil {
				return errors.Wrap(err, "failed to marshal defense build")
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, 0)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			var custom *errors.Error
			if errors.As(err, &custom) {
				return nil, custom
			}
			return nil, errors.Wrap(err, "failed to put defense build")
		}

		slog.InfoContext(ctx, "defense build captured",
			"player_id", input.PlayerID,
			"version", build.Version,
		)
		return &PutOutput{Build: build}, nil
	}

	return nil, errors.Abortedf("defense build for %s changed too often, gave up after %d retries", input.PlayerID, r.maxRetries)
}

func (r *redisRepository) load(ctx context.Context, c redis.Cmdable, playerID string) (*arena.DefenseBuild, error) {
	data, err := c.Get(ctx, defenseKey(playerID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NotFoundf("defense build for %s not found", playerID)
		}
		return nil, errors.Wrapf(err, "failed to get defense build for %s", playerID)
	}

	var build arena.DefenseBuild
	if err := json.Unmarshal(data, &build); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal defense build for %s", playerID)
	}
	return &build, nil
}
