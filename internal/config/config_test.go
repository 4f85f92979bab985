package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/rpg-arena/internal/config"
	"github.com/KirkDiggler/rpg-arena/internal/errors"
)

type ConfigTestSuite struct {
	suite.Suite
	dir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (s *ConfigTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
}

func (s *ConfigTestSuite) write(body string) string {
	path := filepath.Join(s.dir, "config.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(body), 0o600))
	return path
}

func (s *ConfigTestSuite) TestDefaultIsValid() {
	cfg := config.Default()
	s.NoError(cfg.Validate())
	s.Equal(32, cfg.Rating.K)
	s.Equal(60, cfg.Arena.TickRate)
}

func (s *ConfigTestSuite) TestLoadEmptyPath() {
	cfg, err := config.Load("")
	s.Require().NoError(err)
	s.Equal(config.Default(), cfg)
}

func (s *ConfigTestSuite) TestLoadOverlaysDefaults() {
	path := s.write(`
server:
  grpc_port: 6000
redis:
  master_name: arena
  sentinel_addrs: ["sentinel-1:26379", "sentinel-2:26379"]
arena:
  season: season-7
  refill_interval: 30m
rating:
  k: 24
`)
	cfg, err := config.Load(path)
	s.Require().NoError(err)

	s.Equal(6000, cfg.Server.GRPCPort)
	s.Equal(8080, cfg.Server.WSPort)
	s.True(cfg.Redis.Sentinel())
	s.Len(cfg.Redis.SentinelAddrs, 2)
	s.Equal("season-7", cfg.Arena.SeasonID)
	s.Equal(30*time.Minute, cfg.Arena.RefillInterval)
	s.Equal(1200, cfg.Arena.StartingRating)
	s.Equal(24, cfg.Rating.K)
}

func (s *ConfigTestSuite) TestLoadRejectsInvalid() {
	path := s.write(`
server:
  ws_port: 50051
room:
  min_players: 4
  max_players: 2
rating:
  k: 0
`)
	_, err := config.Load(path)
	s.Require().Error(err)
	s.True(errors.IsInvalidArgument(err))

	fields := errors.GetMeta(err)[errors.MetaValidationErrors].(map[string][]string)
	s.Contains(fields, "server.ws_port")
	s.Contains(fields, "room.max_players")
	s.Contains(fields, "rating.k")
}

func (s *ConfigTestSuite) TestLoadBadYAML() {
	_, err := config.Load(s.write("server: ["))
	s.True(errors.IsInvalidArgument(err))
}

func (s *ConfigTestSuite) TestLoadMissingFile() {
	_, err := config.Load(filepath.Join(s.dir, "missing.yaml"))
	s.Error(err)
}

func (s *ConfigTestSuite) TestSentinelNeedsAddrs() {
	cfg := config.Default()
	cfg.Redis.MasterName = "arena"
	err := cfg.Validate()
	s.Require().Error(err)
	fields := errors.GetMeta(err)[errors.MetaValidationErrors].(map[string][]string)
	s.Contains(fields, "redis.sentinel_addrs")
}

func (s *ConfigTestSuite) TestReconcileIntervalMustBePositive() {
	cfg := config.Default()
	s.Equal(time.Minute, cfg.Arena.ReconcileInterval)

	cfg.Arena.ReconcileInterval = 0
	err := cfg.Validate()
	s.Require().Error(err)
	fields := errors.GetMeta(err)[errors.MetaValidationErrors].(map[string][]string)
	s.Contains(fields, "arena.reconcile_interval")
}
