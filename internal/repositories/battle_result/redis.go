package battleresult

import (
	"context"
	"encoding/json"

	redis "github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/rpg-arena/internal/entities/arena"
	"github.com/KirkDiggler/rpg-arena/internal/errors"
	redisclient "github.com/KirkDiggler/rpg-arena/internal/redis"
)

const (
	battleKeyPrefix  = "arena:battle:"
	replayKeySuffix  = ":replay"
	historyKeyPrefix = "arena:history:"
	unratedKey       = "arena:battles:unrated"

	// DefaultHistoryLimit caps each player's history list
	DefaultHistoryLimit = 50
	// DefaultUnratedLimit caps one ListUnrated call
	DefaultUnratedLimit = 100

	// Error messages
	errResultNil     = "battle result cannot be nil"
	errBattleIDEmpty = "battle ID cannot be empty"
	errPlayerIDEmpty = "player ID cannot be empty"
)

// RedisConfig contains configuration for the Redis battle result repository
type RedisConfig struct {
	Client redisclient.Client
	// HistoryLimit is the number of battle ids kept per player
	HistoryLimit int
}

// Validate validates the RedisConfig
func (cfg *RedisConfig) Validate() error {
	if cfg == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	if cfg.Client == nil {
		return errors.InvalidArgument("client cannot be nil")
	}
	if cfg.HistoryLimit < 0 {
		return errors.InvalidArgument("history limit cannot be negative")
	}
	return nil
}

type redisRepository struct {
	client       redisclient.Client
	historyLimit int
}

// NewRedis creates a Redis-backed battle result repository
func NewRedis(cfg *RedisConfig) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	limit := cfg.HistoryLimit
	if limit == 0 {
		limit = DefaultHistoryLimit
	}
	return &redisRepository{client: cfg.Client, historyLimit: limit}, nil
}

func battleKey(id string) string  { return battleKeyPrefix + id }
func replayKey(id string) string  { return battleKeyPrefix + id + replayKeySuffix }
func historyKey(id string) string { return historyKeyPrefix + id }

func (r *redisRepository) Create(ctx context.Context, input CreateInput) (*CreateOutput, error) {
	res := input.Result
	if res == nil {
		return nil, errors.InvalidArgument(errResultNil)
	}

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

	data, err := json.Marshal(res)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal battle result")
	}
	replay := arena.MarshalReplay(res.Events)

	key := battleKey(res.BattleID)
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return errors.Wrap(err, "failed to check battle result")
		}
		if exists > 0 {
			return errors.AlreadyExistsf("battle %s already stored", res.BattleID)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.Set(ctx, replayKey(res.BattleID), replay, 0)
			for _, pid := range []string{res.AttackerID, res.DefenderID} {
				pipe.LPush(ctx, historyKey(pid), res.BattleID)
				pipe.LTrim(ctx, historyKey(pid), 0, int64(r.historyLimit-1))
			}
			pipe.ZAdd(ctx, unratedKey, redis.Z{Score: float64(res.CreatedAt.Unix()), Member: res.BattleID})
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return &CreateOutput{}, nil
	case errors.Is(err, redis.TxFailedErr):
		// someone else wrote the same id between the check and the commit
		return nil, errors.AlreadyExistsf("battle %s already stored", res.BattleID)
	default:
		var custom *errors.Error
		if errors.As(err, &custom) {
			return nil, custom
		}
		return nil, errors.Wrap(err, "failed to store battle result")
	}
}

func (r *redisRepository) Get(ctx context.Context, input GetInput) (*GetOutput, error) {
	if input.BattleID == "" {
		return nil, errors.InvalidArgument(errBattleIDEmpty)
	}

	data, err := r.client.Get(ctx, battleKey(input.BattleID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NotFoundf("battle %s not found", input.BattleID)
		}
		return nil, errors.Wrapf(err, "failed to get battle %s", input.BattleID)
	}

	var res arena.BattleResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal battle %s", input.BattleID)
	}

	if input.WithReplay {
		raw, err := r.client.Get(ctx, replayKey(input.BattleID)).Bytes()
		if err != nil && err != redis.Nil {
			return nil, errors.Wrapf(err, "failed to get replay for %s", input.BattleID)
		}
		events, err := arena.UnmarshalReplay(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode replay for %s", input.BattleID)
		}
		if arena.Digest(events) != res.Digest {
			return nil, errors.Internalf("replay for %s does not match its digest", input.BattleID)
		}
		res.Events = events
	}

	return &GetOutput{Result: &res}, nil
}

func (r *redisRepository) ListByPlayer(ctx context.Context, input ListByPlayerInput) (*ListByPlayerOutput, error) {
	if input.PlayerID == "" {
		return nil, errors.InvalidArgument(errPlayerIDEmpty)
	}
	limit := input.Limit
	if limit <= 0 || limit > r.historyLimit {
		limit = r.historyLimit
	}

	ids, err := r.client.LRange(ctx, historyKey(input.PlayerID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read history for %s", input.PlayerID)
	}

	// history can outlive an expired result
	results, _, err := r.loadResults(ctx, ids)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load history for %s", input.PlayerID)
	}
	return &ListByPlayerOutput{Results: results}, nil
}

func (r *redisRepository) ListUnrated(ctx context.Context, input ListUnratedInput) (*ListUnratedOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultUnratedLimit
	}

	ids, err := r.client.ZRange(ctx, unratedKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read unrated battles")
	}

	results, missing, err := r.loadResults(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load unrated battles")
	}
	return &ListUnratedOutput{Results: results, Missing: missing}, nil
}

func (r *redisRepository) MarkRated(ctx context.Context, input MarkRatedInput) (*MarkRatedOutput, error) {
	if input.BattleID == "" {
		return nil, errors.InvalidArgument(errBattleIDEmpty)
	}
	if err := r.client.ZRem(ctx, unratedKey, input.BattleID).Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to mark battle %s rated", input.BattleID)
	}
	return &MarkRatedOutput{}, nil
}

// loadResults reads results in id order. Ids without a stored result are
// returned separately.
func (r *redisRepository) loadResults(ctx context.Context, ids []string) ([]*arena.BattleResult, []string, error) {
	if len(ids) == 0 {
		return nil, nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = battleKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, err
	}

	results := make([]*arena.BattleResult, 0, len(values))
	var missing []string
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			missing = append(missing, ids[i])
			continue
		}
		var res arena.BattleResult
		if err := json.Unmarshal([]byte(s), &res); err != nil {
			return nil, nil, errors.Wrapf(err, "failed to unmarshal battle %s", ids[i])
		}
		results = append(results, &res)
	}
	return results, missing, nil
}
