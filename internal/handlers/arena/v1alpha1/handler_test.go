package v1alpha1_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	entities "github.com/KirkDiggler/rpg-arena/internal/entities/arena"
	"github.com/KirkDiggler/rpg-arena/internal/errors"
	"github.com/KirkDiggler/rpg-arena/internal/handlers/arena/v1alpha1"
	"github.com/KirkDiggler/rpg-arena/internal/orchestrators/arena"
	arenamock "github.com/KirkDiggler/rpg-arena/internal/orchestrators/arena/mock"
	"github.com/KirkDiggler/rpg-arena/internal/testutils"
	"github.com/KirkDiggler/rpg-arena/internal/testutils/builders"
)

type HandlerTestSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	mockArena *arenamock.MockService
	server    *grpc.Server
	conn      *grpc.ClientConn
	client    *v1alpha1.Client
	ctx       context.Context
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockArena = arenamock.NewMockService(s.ctrl)
	s.ctx = context.Background()

	handler, err := v1alpha1.NewHandler(&v1alpha1.HandlerConfig{ArenaService: s.mockArena})
	s.Require().NoError(err)

	lis := bufconn.Listen(1 << 20)
	s.server = grpc.NewServer()
	v1alpha1.RegisterArenaServiceServer(s.server, handler)
	go func() { _ = s.server.Serve(lis) }()

	s.conn, err = grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	s.Require().NoError(err)
	s.client = v1alpha1.NewClient(s.conn)
}

func (s *HandlerTestSuite) TearDownTest() {
	_ = s.conn.Close()
	s.server.Stop()
}

func (s *HandlerTestSuite) TestNewHandlerRequiresService() {
	_, err := v1alpha1.NewHandler(&v1alpha1.HandlerConfig{})
	s.True(errors.IsInvalidArgument(err))
}

func (s *HandlerTestSuite) TestGetOpponents() {
	s.mockArena.EXPECT().
		GetOpponents(gomock.Any(), &arena.GetOpponentsInput{PlayerID: "p1"}).
		Return(&arena.GetOpponentsOutput{
			Band: 200,
			Candidates: []arena.Candidate{
				{PlayerID: "a", Rating: 1250, BuildVersion: 3},
				{PlayerID: "b", Rating: 1150, BuildVersion: 1},
			},
		}, nil)

	resp, err := s.client.GetOpponents(s.ctx, &v1alpha1.GetOpponentsRequest{PlayerID: "p1"})
	s.Require().NoError(err)
	s.Equal(200, resp.Band)
	s.Equal([]v1alpha1.Opponent{
		{PlayerID: "a", Rating: 1250, BuildVersion: 3},
		{PlayerID: "b", Rating: 1150, BuildVersion: 1},
	}, resp.Opponents)
}

func (s *HandlerTestSuite) TestGetOpponentsRequiresPlayer() {
	_, err := s.client.GetOpponents(s.ctx, &v1alpha1.GetOpponentsRequest{})
	s.Equal(codes.InvalidArgument, status.Code(err))
}

func (s *HandlerTestSuite) TestChallenge() {
	result := builders.NewBattleResultBuilder().
		WithDeltas(16, -16).
		WithEvents(entities.Event{Tick: 3, Kind: entities.EventDamage, Actor: "a", Target: "b", Amount: 40}).
		Build()
	live := testutils.WarriorLoadout()

	s.mockArena.EXPECT().
		Challenge(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, in *arena.ChallengeInput) (*arena.ChallengeOutput, error) {
			s.Equal(testutils.TestAttackerID, in.PlayerID)
			s.Equal(testutils.TestDefenderID, in.OpponentID)
			s.Require().NotNil(in.Loadout)
			s.Equal(live, *in.Loadout)
			return &arena.ChallengeOutput{
				Result:   result,
				Attacker: &entities.Profile{PlayerID: in.PlayerID, Rating: 1216, Wins: 1},
				Defender: &entities.Profile{PlayerID: in.OpponentID, Rating: 1184, Losses: 1},
			}, nil
		})

	wire := v1alpha1.Loadout{
		Base:         map[string]float64{"hp": 400, "attack": 30, "defense": 10, "speed": 5},
		EquipmentIDs: live.EquipmentIDs,
		SkillIDs:     live.SkillIDs,
		PalID:        live.PalID,
	}
	resp, err := s.client.Challenge(s.ctx, &v1alpha1.ChallengeRequest{
		PlayerID:   testutils.TestAttackerID,
		OpponentID: testutils.TestDefenderID,
		Loadout:    &wire,
	})
	s.Require().NoError(err)
	s.Equal(result.BattleID, resp.Battle.BattleID)
	s.Equal("attacker_win", resp.Battle.Outcome)
	s.Equal(16, resp.Battle.AttackerDelta)
	s.Equal(result.Seed, resp.Battle.Seed)
	s.Len(resp.Battle.Digest, 16)
	s.Require().Len(resp.Battle.Replay, 1)
	s.Equal("damage", resp.Battle.Replay[0].Kind)
	s.Equal(1216, resp.Attacker.Rating)
	s.Equal(1, resp.Defender.Losses)
}

func (s *HandlerTestSuite) TestChallengeOutOfAttempts() {
	refill := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	s.mockArena.EXPECT().
		Challenge(gomock.Any(), gomock.Any()).
		Return(nil, errors.OutOfAttempts("p1", refill))

	_, err := s.client.Challenge(s.ctx, &v1alpha1.ChallengeRequest{PlayerID: "p1", OpponentID: "p2"})
	st, ok := status.FromError(err)
	s.Require().True(ok)
	s.Equal(codes.FailedPrecondition, st.Code())

	s.Require().Len(st.Details(), 1)
	info, ok := st.Details()[0].(*errdetails.ErrorInfo)
	s.Require().True(ok)
	s.Equal(string(errors.ReasonOutOfAttempts), info.GetReason())

	back := errors.FromGRPCError(err)
	s.True(errors.IsOutOfAttempts(back))
}

func (s *HandlerTestSuite) TestChallengePoolSaturated() {
	s.mockArena.EXPECT().
		Challenge(gomock.Any(), gomock.Any()).
		Return(nil, errors.ResourceExhausted(errors.ReasonPoolSaturated, "battle pool saturated"))

	_, err := s.client.Challenge(s.ctx, &v1alpha1.ChallengeRequest{PlayerID: "p1", OpponentID: "p2"})
	s.Equal(codes.ResourceExhausted, status.Code(err))
}

func (s *HandlerTestSuite) TestSetDefense() {
	captured := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.mockArena.EXPECT().
		SetDefense(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, in *arena.SetDefenseInput) (*arena.SetDefenseOutput, error) {
			return &arena.SetDefenseOutput{
				Build:   &entities.DefenseBuild{PlayerID: in.PlayerID, Version: 4, Loadout: in.Loadout, CapturedAt: captured},
				Profile: &entities.Profile{PlayerID: in.PlayerID, Rating: 1200},
			}, nil
		})

	resp, err := s.client.SetDefense(s.ctx, &v1alpha1.SetDefenseRequest{
		PlayerID: "p1",
		Loadout:  v1alpha1.Loadout{Base: map[string]float64{"hp": 300}, SkillIDs: []string{"cleave"}},
	})
	s.Require().NoError(err)
	s.Equal(int64(4), resp.Build.Version)
	s.Equal([]string{"cleave"}, resp.Build.Loadout.SkillIDs)
	s.Equal(300.0, resp.Build.Loadout.Base["hp"])
	s.True(captured.Equal(resp.Build.CapturedAt))
}

func (s *HandlerTestSuite) TestGetProfile() {
	s.mockArena.EXPECT().
		GetProfile(gomock.Any(), &arena.GetProfileInput{PlayerID: "p1"}).
		Return(&arena.GetProfileOutput{Profile: &entities.Profile{PlayerID: "p1", Rating: 1300, Rank: 2, AttemptsRemaining: 4}}, nil)

	resp, err := s.client.GetProfile(s.ctx, &v1alpha1.GetProfileRequest{PlayerID: "p1"})
	s.Require().NoError(err)
	s.Equal(int64(2), resp.Profile.Rank)
	s.Equal(4, resp.Profile.AttemptsRemaining)
}

func (s *HandlerTestSuite) TestGetBattleNotFound() {
	s.mockArena.EXPECT().
		GetBattle(gomock.Any(), &arena.GetBattleInput{BattleID: "missing", WithReplay: true}).
		Return(nil, errors.NotFoundf("battle %s not found", "missing"))

	_, err := s.client.GetBattle(s.ctx, &v1alpha1.GetBattleRequest{BattleID: "missing", WithReplay: true})
	s.Equal(codes.NotFound, status.Code(err))
}

func (s *HandlerTestSuite) TestListHistory() {
	s.mockArena.EXPECT().
		ListHistory(gomock.Any(), &arena.ListHistoryInput{PlayerID: "p1", Limit: 5}).
		Return(&arena.ListHistoryOutput{Results: []*entities.BattleResult{
			builders.NewBattleResultBuilder().WithBattleID("b2").Build(),
			builders.NewBattleResultBuilder().WithBattleID("b1").Build(),
		}}, nil)

	resp, err := s.client.ListHistory(s.ctx, &v1alpha1.ListHistoryRequest{PlayerID: "p1", Limit: 5})
	s.Require().NoError(err)
	s.Require().Len(resp.Battles, 2)
	s.Equal("b2", resp.Battles[0].BattleID)
	s.Empty(resp.Battles[0].Replay)
}
