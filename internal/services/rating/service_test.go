package rating_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"pgregory.net/rapid"

	"github.com/KirkDiggler/rpg-arena/internal/entities/arena"
	"github.com/KirkDiggler/rpg-arena/internal/errors"
	"github.com/KirkDiggler/rpg-arena/internal/pkg/clock"
	arenaprofile "github.com/KirkDiggler/rpg-arena/internal/repositories/arena_profile"
	arenaprofilemock "github.com/KirkDiggler/rpg-arena/internal/repositories/arena_profile/mock"
	"github.com/KirkDiggler/rpg-arena/internal/services/rating"
	"github.com/KirkDiggler/rpg-arena/internal/testutils"
	"github.com/KirkDiggler/rpg-arena/internal/testutils/builders"
)

type ServiceTestSuite struct {
	suite.Suite
	cleanup  func()
	profiles arenaprofile.Repository
	svc      rating.Service
	ctx      context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) SetupTest() {
	client, cleanup := testutils.CreateTestRedisClient(s.T())
	s.cleanup = cleanup
	s.ctx = context.Background()

	profiles, err := arenaprofile.NewRedis(&arenaprofile.RedisConfig{
		Client:         client,
		Clock:          clock.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		SeasonID:       testutils.TestSeasonID,
		StartingRating: 1200,
		Attempts:       arena.AttemptPolicy{Max: 5, RefillInterval: time.Hour},
	})
	s.Require().NoError(err)
	s.profiles = profiles

	for _, id := range []string{testutils.TestAttackerID, testutils.TestDefenderID} {
		_, err := s.profiles.Enroll(s.ctx, arenaprofile.EnrollInput{PlayerID: id})
		s.Require().NoError(err)
	}

	svc, err := rating.NewService(&rating.Config{ProfileRepo: profiles})
	s.Require().NoError(err)
	s.svc = svc
}

func (s *ServiceTestSuite) TearDownTest() {
	s.cleanup()
}

func (s *ServiceTestSuite) TestNewServiceValidatesConfig() {
	_, err := rating.NewService(&rating.Config{})
	s.True(errors.IsInvalidArgument(err))

	_, err = rating.NewService(&rating.Config{ProfileRepo: s.profiles, K: -1})
	s.True(errors.IsInvalidArgument(err))
}

func (s *ServiceTestSuite) TestDeltas() {
	testCases := []struct {
		name     string
		attacker int
		defender int
		outcome  arena.Outcome
		want     int
	}{
		{name: "equal ratings win", attacker: 1200, defender: 1200, outcome: arena.OutcomeAttackerWin, want: 16},
		{name: "equal ratings loss", attacker: 1200, defender: 1200, outcome: arena.OutcomeDefenderWin, want: -16},
		{name: "equal ratings draw", attacker: 1200, defender: 1200, outcome: arena.OutcomeDraw, want: 0},
		{name: "favourite wins", attacker: 1400, defender: 1200, outcome: arena.OutcomeAttackerWin, want: 8},
		{name: "favourite loses", attacker: 1400, defender: 1200, outcome: arena.OutcomeDefenderWin, want: -24},
		{name: "favourite draws", attacker: 1400, defender: 1200, outcome: arena.OutcomeDraw, want: -8},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			att, def := rating.Deltas(rating.DefaultK, tc.attacker, tc.defender, tc.outcome)
			s.Equal(tc.want, att)
			s.Equal(-tc.want, def)
		})
	}
}

func (s *ServiceTestSuite) TestApplyResultEqualRatings() {
	result := builders.NewBattleResultBuilder().WithRatings(1200, 1200).Build()

	out, err := s.svc.ApplyResult(s.ctx, &rating.ApplyResultInput{Result: result})
	s.Require().NoError(err)
	s.True(out.Applied)
	s.Equal(1216, out.Attacker.Rating)
	s.Equal(1184, out.Defender.Rating)
	s.Equal(1, out.Attacker.Wins)
	s.Equal(1, out.Defender.Losses)
}

func (s *ServiceTestSuite) TestApplyResultIsExactlyOnce() {
	result := builders.NewBattleResultBuilder().WithOutcome(arena.OutcomeDefenderWin).Build()

	for i := 0; i < 3; i++ {
		out, err := s.svc.ApplyResult(s.ctx, &rating.ApplyResultInput{Result: result})
		s.Require().NoError(err)
		s.Equal(i == 0, out.Applied)
		s.Equal(1184, out.Attacker.Rating)
		s.Equal(1216, out.Defender.Rating)
	}
}

func (s *ServiceTestSuite) TestApplyResultUsesRatingsFromTheResult() {
	// ratings on the result are the ones read when the battle started,
	// regardless of what the profiles hold now
	result := builders.NewBattleResultBuilder().WithRatings(1400, 1200).Build()

	out, err := s.svc.ApplyResult(s.ctx, &rating.ApplyResultInput{Result: result})
	s.Require().NoError(err)
	s.Equal(1208, out.Attacker.Rating)
	s.Equal(1192, out.Defender.Rating)
}

func (s *ServiceTestSuite) TestApplyResultRejectsMismatchedDeltas() {
	result := builders.NewBattleResultBuilder().WithDeltas(20, -20).Build()

	_, err := s.svc.ApplyResult(s.ctx, &rating.ApplyResultInput{Result: result})
	s.True(errors.IsInvalidArgument(err))

	matching := builders.NewBattleResultBuilder().WithDeltas(16, -16).Build()
	_, err = s.svc.ApplyResult(s.ctx, &rating.ApplyResultInput{Result: matching})
	s.NoError(err)
}

func (s *ServiceTestSuite) TestApplyResultValidates() {
	_, err := s.svc.ApplyResult(s.ctx, nil)
	s.True(errors.IsInvalidArgument(err))

	_, err = s.svc.ApplyResult(s.ctx, &rating.ApplyResultInput{
		Result: builders.NewBattleResultBuilder().WithBattleID("").Build(),
	})
	s.True(errors.IsInvalidArgument(err))
}

func (s *ServiceTestSuite) TestApplyResultRepositoryError() {
	ctrl := gomock.NewController(s.T())
	repo := arenaprofilemock.NewMockRepository(ctrl)

	svc, err := rating.NewService(&rating.Config{ProfileRepo: repo})
	s.Require().NoError(err)

	repo.EXPECT().
		ApplyBattle(gomock.Any(), arenaprofile.ApplyBattleInput{
			BattleID: "battle-test-123",
			Attacker: arenaprofile.Side{PlayerID: testutils.TestAttackerID, Delta: 0, Score: arena.ScoreDraw},
			Defender: arenaprofile.Side{PlayerID: testutils.TestDefenderID, Delta: 0, Score: arena.ScoreDraw},
		}).
		Return(nil, errors.Abortedf("contention"))

	result := builders.NewBattleResultBuilder().WithOutcome(arena.OutcomeDraw).Build()
	_, err = svc.ApplyResult(s.ctx, &rating.ApplyResultInput{Result: result})
	s.True(errors.IsAborted(err))
}

func TestDeltasAreZeroSum(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		att := rapid.IntRange(0, 4000).Draw(t, "attacker")
		def := rapid.IntRange(0, 4000).Draw(t, "defender")
		outcome := rapid.SampledFrom([]arena.Outcome{
			arena.OutcomeAttackerWin, arena.OutcomeDefenderWin, arena.OutcomeDraw,
		}).Draw(t, "outcome")

		a, d := rating.Deltas(rating.DefaultK, att, def, outcome)
		if a+d != 0 {
			t.Fatalf("deltas %d and %d do not cancel", a, d)
		}
		if a > rating.DefaultK || a < -rating.DefaultK {
			t.Fatalf("delta %d exceeds K", a)
		}
		if outcome == arena.OutcomeAttackerWin && a < 0 {
			t.Fatalf("winner lost %d rating", -a)
		}
	})
}
