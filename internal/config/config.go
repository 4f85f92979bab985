// Package config loads the server configuration. A YAML file overlays the
// defaults and command line flags overlay the file.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/KirkDiggler/rpg-arena/internal/errors"
)

// Config is the full server configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Redis   RedisConfig   `yaml:"redis"`
	Room    RoomConfig    `yaml:"room"`
	Arena   ArenaConfig   `yaml:"arena"`
	Rating  RatingConfig  `yaml:"rating"`
	Tracing TracingConfig `yaml:"tracing"`
	// CatalogPath points at a content catalog. Empty uses the embedded one.
	CatalogPath string `yaml:"catalog"`
}

// ServerConfig holds listener settings
type ServerConfig struct {
	GRPCPort        int           `yaml:"grpc_port"`
	WSPort          int           `yaml:"ws_port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// AllowedOrigins are websocket origin patterns
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RedisConfig selects a single instance or a Sentinel group
type RedisConfig struct {
	Addr string `yaml:"addr"`
	// MasterName and SentinelAddrs switch to a failover client
	MasterName    string        `yaml:"master_name"`
	SentinelAddrs []string      `yaml:"sentinel_addrs"`
	PoolSize      int           `yaml:"pool_size"`
	MaxRetries    int           `yaml:"max_retries"`
	MaxIdleTime   time.Duration `yaml:"max_idle_time"`
	UseTLS        bool          `yaml:"tls"`
}

// Sentinel reports whether the failover client should be used
func (c RedisConfig) Sentinel() bool { return c.MasterName != "" }

// RoomConfig holds scheduler limits and the settings used for new rooms
type RoomConfig struct {
	MaxRooms    int           `yaml:"max_rooms"`
	Shards      int           `yaml:"shards"`
	TickRate    int           `yaml:"tick_rate"`
	MinPlayers  int           `yaml:"min_players"`
	MaxPlayers  int           `yaml:"max_players"`
	FillTimeout time.Duration `yaml:"fill_timeout"`
	Countdown   time.Duration `yaml:"countdown"`
	TimeLimit   time.Duration `yaml:"time_limit"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	ScoreLimit  int           `yaml:"score_limit"`
}

// ArenaConfig holds the ladder and battle pool settings
type ArenaConfig struct {
	SeasonID         string        `yaml:"season"`
	StartingRating   int           `yaml:"starting_rating"`
	MaxAttempts      int           `yaml:"max_attempts"`
	RefillInterval   time.Duration `yaml:"refill_interval"`
	Workers          int           `yaml:"workers"`
	OpponentCount    int           `yaml:"opponent_count"`
	Band             int           `yaml:"band"`
	BandStep         int           `yaml:"band_step"`
	MaxBand          int           `yaml:"max_band"`
	ChallengeTimeout time.Duration `yaml:"challenge_timeout"`
	HistoryLimit     int           `yaml:"history_limit"`
	TickRate         int           `yaml:"tick_rate"`
	MaxTicks         int           `yaml:"max_ticks"`
	// ReconcileInterval is how often stored battles with an unconfirmed
	// rating change are applied again
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
}

// RatingConfig holds the Elo settings
type RatingConfig struct {
	K int `yaml:"k"`
}

// TracingConfig enables the OTLP exporter when Endpoint is set
type TracingConfig struct {
	Endpoint    string  `yaml:"otlp_endpoint"`
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			GRPCPort:        50051,
			WSPort:          8080,
			ShutdownTimeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			Addr:        "localhost:6379",
			PoolSize:    20,
			MaxRetries:  3,
			MaxIdleTime: 5 * time.Minute,
		},
		Room: RoomConfig{
			MaxRooms:    256,
			Shards:      4,
			TickRate:    20,
			MinPlayers:  2,
			MaxPlayers:  8,
			FillTimeout: 30 * time.Second,
			Countdown:   3 * time.Second,
			TimeLimit:   5 * time.Minute,
			IdleTimeout: time.Minute,
			ScoreLimit:  10,
		},
		Arena: ArenaConfig{
			SeasonID:         "season-1",
			StartingRating:   1200,
			MaxAttempts:      5,
			RefillInterval:   time.Hour,
			OpponentCount:    3,
			Band:             100,
			BandStep:         100,
			MaxBand:          800,
			ChallengeTimeout: 5 * time.Second,
			HistoryLimit:     50,
			TickRate:         60,
			MaxTicks:         60 * 90,

			ReconcileInterval: time.Minute,
		},
		Rating: RatingConfig{K: 32},
		Tracing: TracingConfig{
			ServiceName: "rpg-arena",
			SampleRatio: 1,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeInvalidArgument, "failed to parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the config
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	errors.ValidateRange("server.grpc_port", c.Server.GRPCPort, 1, 65535, vb)
	errors.ValidateRange("server.ws_port", c.Server.WSPort, 1, 65535, vb)
	if c.Server.GRPCPort == c.Server.WSPort {
		vb.Field("server.ws_port", "must differ from server.grpc_port")
	}

	if c.Redis.Sentinel() {
		if len(c.Redis.SentinelAddrs) == 0 {
			vb.RequiredField("redis.sentinel_addrs")
		}
	} else {
		errors.ValidateRequired("redis.addr", c.Redis.Addr, vb)
	}

	errors.ValidatePositive("room.max_rooms", c.Room.MaxRooms, vb)
	errors.ValidatePositive("room.shards", c.Room.Shards, vb)
	errors.ValidatePositive("room.tick_rate", c.Room.TickRate, vb)
	errors.ValidatePositive("room.min_players", c.Room.MinPlayers, vb)
	if c.Room.MaxPlayers < c.Room.MinPlayers {
		vb.Field("room.max_players", "must be at least room.min_players")
	}

	errors.ValidateRequired("arena.season", c.Arena.SeasonID, vb)
	errors.ValidatePositive("arena.starting_rating", c.Arena.StartingRating, vb)
	errors.ValidatePositive("arena.max_attempts", c.Arena.MaxAttempts, vb)
	errors.ValidatePositive("arena.opponent_count", c.Arena.OpponentCount, vb)
	errors.ValidatePositive("arena.tick_rate", c.Arena.TickRate, vb)
	errors.ValidatePositive("arena.max_ticks", c.Arena.MaxTicks, vb)
	if c.Arena.ReconcileInterval <= 0 {
		vb.Field("arena.reconcile_interval", "must be positive")
	}
	if c.Arena.Band > c.Arena.MaxBand {
		vb.Field("arena.band", "cannot exceed arena.max_band")
	}
	if c.Arena.Workers < 0 {
		vb.Field("arena.workers", "cannot be negative")
	}

	errors.ValidateRange("rating.k", c.Rating.K, 1, 100, vb)

	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		vb.Field("tracing.sample_ratio", "must be between 0 and 1")
	}

	return vb.Build()
}
