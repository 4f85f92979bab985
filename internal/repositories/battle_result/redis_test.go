package battleresult_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/rpg-arena/internal/entities/arena"
	"github.com/KirkDiggler/rpg-arena/internal/errors"
	battleresult "github.com/KirkDiggler/rpg-arena/internal/repositories/battle_result"
	"github.com/KirkDiggler/rpg-arena/internal/testutils"
	"github.com/KirkDiggler/rpg-arena/internal/testutils/builders"
)

type RedisRepositoryTestSuite struct {
	suite.Suite
	mr      *miniredis.Miniredis
	cleanup func()
	repo    battleresult.Repository
	ctx     context.Context
}

func TestRedisRepositorySuite(t *testing.T) {
	suite.Run(t, new(RedisRepositoryTestSuite))
}

func (s *RedisRepositoryTestSuite) SetupTest() {
	client, mr, cleanup := testutils.CreateTestRedis(s.T())
	s.mr, s.cleanup = mr, cleanup
	s.ctx = context.Background()

	repo, err := battleresult.NewRedis(&battleresult.RedisConfig{Client: client, HistoryLimit: 3})
	s.Require().NoError(err)
	s.repo = repo
}

func (s *RedisRepositoryTestSuite) TearDownTest() {
	s.cleanup()
}

func replay() []arena.Event {
	return []arena.Event{
		{Tick: 0, Kind: arena.EventSpawn, Actor: "player-defender", Amount: 320},
		{Tick: 0, Kind: arena.EventSpawn, Actor: "player-attacker", Amount: 400},
		{Tick: 90, Kind: arena.EventDamage, Actor: "player-attacker", Target: "player-defender", SkillID: "cleave", Amount: 57, Crit: true},
		{Tick: 600, Kind: arena.EventEnd, Actor: "player-attacker", SkillID: "attacker_win"},
	}
}

func (s *RedisRepositoryTestSuite) TestCreateAndGet() {
	result := builders.NewBattleResultBuilder().WithEvents(replay()...).WithDeltas(16, -16).Build()

	_, err := s.repo.Create(s.ctx, battleresult.CreateInput{Result: result})
	s.Require().NoError(err)

	s.Run("without replay", func() {
		got, err := s.repo.Get(s.ctx, battleresult.GetInput{BattleID: result.BattleID})
		s.Require().NoError(err)
		s.Empty(got.Result.Events)
		s.Equal(16, got.Result.AttackerDelta)
		s.Equal(result.Digest, got.Result.Digest)
	})

	s.Run("with replay", func() {
		got, err := s.repo.Get(s.ctx, battleresult.GetInput{BattleID: result.BattleID, WithReplay: true})
		s.Require().NoError(err)
		s.Equal(replay(), got.Result.Events)
	})
}

func (s *RedisRepositoryTestSuite) TestCreateIsWriteOnce() {
	result := builders.NewBattleResultBuilder().Build()
	_, err := s.repo.Create(s.ctx, battleresult.CreateInput{Result: result})
	s.Require().NoError(err)

	_, err = s.repo.Create(s.ctx, battleresult.CreateInput{Result: result})
	s.True(errors.IsAlreadyExists(err))

	history, err := s.mr.List("arena:history:player-attacker")
	s.Require().NoError(err)
	s.Len(history, 1)
}

func (s *RedisRepositoryTestSuite) TestCreateValidates() {
	_, err := s.repo.Create(s.ctx, battleresult.CreateInput{})
	s.True(errors.IsInvalidArgument(err))

	bad := builders.NewBattleResultBuilder().WithOutcome("forfeit").Build()
	_, err = s.repo.Create(s.ctx, battleresult.CreateInput{Result: bad})
	s.True(errors.IsInvalidArgument(err))
}

func (s *RedisRepositoryTestSuite) TestGetDetectsCorruptReplay() {
	result := builders.NewBattleResultBuilder().WithEvents(replay()...).Build()
	_, err := s.repo.Create(s.ctx, battleresult.CreateInput{Result: result})
	s.Require().NoError(err)

	s.Require().NoError(s.mr.Set("arena:battle:battle-test-123:replay", string(arena.MarshalReplay(replay()[:2]))))

	_, err = s.repo.Get(s.ctx, battleresult.GetInput{BattleID: result.BattleID, WithReplay: true})
	s.True(errors.IsInternal(err))
}

func (s *RedisRepositoryTestSuite) TestGetMissing() {
	_, err := s.repo.Get(s.ctx, battleresult.GetInput{BattleID: "nope"})
	s.True(errors.IsNotFound(err))
}

func (s *RedisRepositoryTestSuite) TestListByPlayerIsNewestFirstAndCapped() {
	for i := 1; i <= 5; i++ {
		result := builders.NewBattleResultBuilder().
			WithBattleID(fmt.Sprintf("b%d", i)).
			WithPlayers("hero", fmt.Sprintf("rival%d", i)).
			Build()
		_, err := s.repo.Create(s.ctx, battleresult.CreateInput{Result: result})
		s.Require().NoError(err)
	}

	out, err := s.repo.ListByPlayer(s.ctx, battleresult.ListByPlayerInput{PlayerID: "hero"})
	s.Require().NoError(err)
	s.Require().Len(out.Results, 3)
	s.Equal("b5", out.Results[0].BattleID)
	s.Equal("b3", out.Results[2].BattleID)

	rival, err := s.repo.ListByPlayer(s.ctx, battleresult.ListByPlayerInput{PlayerID: "rival2", Limit: 10})
	s.Require().NoError(err)
	s.Require().Len(rival.Results, 1)
	s.Equal("b2", rival.Results[0].BattleID)

	none, err := s.repo.ListByPlayer(s.ctx, battleresult.ListByPlayerInput{PlayerID: "nobody"})
	s.Require().NoError(err)
	s.Empty(none.Results)
}

func (s *RedisRepositoryTestSuite) TestUnratedIndex() {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= 3; i++ {
		result := builders.NewBattleResultBuilder().
			WithBattleID(fmt.Sprintf("b%d", i)).
			WithCreatedAt(base.Add(time.Duration(4-i) * time.Minute)).
			Build()
		_, err := s.repo.Create(s.ctx, battleresult.CreateInput{Result: result})
		s.Require().NoError(err)
	}

	out, err := s.repo.ListUnrated(s.ctx, battleresult.ListUnratedInput{})
	s.Require().NoError(err)
	s.Require().Len(out.Results, 3)
	s.Equal("b3", out.Results[0].BattleID, "oldest first")
	s.Equal("b1", out.Results[2].BattleID)
	s.Empty(out.Results[0].Events)

	_, err = s.repo.MarkRated(s.ctx, battleresult.MarkRatedInput{BattleID: "b3"})
	s.Require().NoError(err)
	_, err = s.repo.MarkRated(s.ctx, battleresult.MarkRatedInput{BattleID: "b3"})
	s.Require().NoError(err, "marking twice is a no-op")

	out, err = s.repo.ListUnrated(s.ctx, battleresult.ListUnratedInput{Limit: 1})
	s.Require().NoError(err)
	s.Require().Len(out.Results, 1)
	s.Equal("b2", out.Results[0].BattleID)

	s.Run("missing results are reported", func() {
		s.mr.Del("arena:battle:b2")
		out, err := s.repo.ListUnrated(s.ctx, battleresult.ListUnratedInput{})
		s.Require().NoError(err)
		s.Equal([]string{"b2"}, out.Missing)
		s.Require().Len(out.Results, 1)
		s.Equal("b1", out.Results[0].BattleID)
	})

	_, err = s.repo.MarkRated(s.ctx, battleresult.MarkRatedInput{})
	s.True(errors.IsInvalidArgument(err))
}
