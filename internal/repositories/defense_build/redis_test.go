package defensebuild_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/rpg-arena/internal/errors"
	"github.com/KirkDiggler/rpg-arena/internal/pkg/clock"
	defensebuild "github.com/KirkDiggler/rpg-arena/internal/repositories/defense_build"
	"github.com/KirkDiggler/rpg-arena/internal/testutils"
)

type RedisRepositoryTestSuite struct {
	suite.Suite
	cleanup func()
	repo    defensebuild.Repository
	ctx     context.Context
}

func TestRedisRepositorySuite(t *testing.T) {
	suite.Run(t, new(RedisRepositoryTestSuite))
}

func (s *RedisRepositoryTestSuite) SetupTest() {
	client, cleanup := testutils.CreateTestRedisClient(s.T())
	s.cleanup = cleanup
	s.ctx = context.Background()

	repo, err := defensebuild.NewRedis(&defensebuild.RedisConfig{
		Client: client,
		Clock:  clock.NewManual(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)),
	})
	s.Require().NoError(err)
	s.repo = repo
}

func (s *RedisRepositoryTestSuite) TearDownTest() {
	s.cleanup()
}

func (s *RedisRepositoryTestSuite) TestGetMissing() {
	_, err := s.repo.Get(s.ctx, defensebuild.GetInput{PlayerID: "p1"})
	s.True(errors.IsNotFound(err))
}

func (s *RedisRepositoryTestSuite) TestPutBumpsVersion() {
	first, err := s.repo.Put(s.ctx, defensebuild.PutInput{PlayerID: "p1", Loadout: testutils.WarriorLoadout()})
	s.Require().NoError(err)
	s.Equal(int64(1), first.Build.Version)

	second, err := s.repo.Put(s.ctx, defensebuild.PutInput{PlayerID: "p1", Loadout: testutils.MageLoadout()})
	s.Require().NoError(err)
	s.Equal(int64(2), second.Build.Version)

	got, err := s.repo.Get(s.ctx, defensebuild.GetInput{PlayerID: "p1"})
	s.Require().NoError(err)
	s.Equal(second.Build, got.Build)
}

func (s *RedisRepositoryTestSuite) TestPutCopiesLoadout() {
	loadout := testutils.WarriorLoadout()
	out, err := s.repo.Put(s.ctx, defensebuild.PutInput{PlayerID: "p1", Loadout: loadout})
	s.Require().NoError(err)

	loadout.SkillIDs[0] = "changed"
	s.NotEqual("changed", out.Build.Loadout.SkillIDs[0])
}

func (s *RedisRepositoryTestSuite) TestConcurrentPutsGetDistinctVersions() {
	const writers = 5
	versions := make(chan int64, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := s.repo.Put(s.ctx, defensebuild.PutInput{PlayerID: "p1", Loadout: testutils.WarriorLoadout()})
			if s.NoError(err) {
				versions <- out.Build.Version
			}
		}()
	}
	wg.Wait()
	close(versions)

	seen := map[int64]bool{}
	for v := range versions {
		s.False(seen[v], "version %d handed out twice", v)
		seen[v] = true
	}
	s.Len(seen, writers)

	got, err := s.repo.Get(s.ctx, defensebuild.GetInput{PlayerID: "p1"})
	s.Require().NoError(err)
	s.Equal(int64(writers), got.Build.Version)
}

func (s *RedisRepositoryTestSuite) TestGetReturnsCompleteSnapshot() {
	_, err := s.repo.Put(s.ctx, defensebuild.PutInput{PlayerID: "p1", Loadout: testutils.MageLoadout()})
	s.Require().NoError(err)

	got, err := s.repo.Get(s.ctx, defensebuild.GetInput{PlayerID: "p1"})
	s.Require().NoError(err)
	s.Equal(testutils.MageLoadout(), got.Build.Loadout)
}
