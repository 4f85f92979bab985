package room_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"pgregory.net/rapid"

	"github.com/KirkDiggler/rpg-arena/internal/engine/catalog"
	"github.com/KirkDiggler/rpg-arena/internal/engine/room"
	"github.com/KirkDiggler/rpg-arena/internal/entities/arena"
	"github.com/KirkDiggler/rpg-arena/internal/entities/combat"
	"github.com/KirkDiggler/rpg-arena/internal/errors"
)

type RoomTestSuite struct {
	suite.Suite
	settings room.Settings
}

func TestRoomSuite(t *testing.T) {
	suite.Run(t, new(RoomTestSuite))
}

func (s *RoomTestSuite) SetupTest() {
	s.settings = room.DefaultSettings()
	s.settings.ID = "room_1"
	s.settings.Seed = 42
	s.settings.Countdown = 100 * time.Millisecond
}

func (s *RoomTestSuite) newRoom() *room.Room {
	r, err := room.New(s.settings, catalog.Default())
	s.Require().NoError(err)
	return r
}

func slowLoadout(skills ...string) *arena.Loadout {
	return &arena.Loadout{
		Base:     combat.Attributes{combat.AttrHP: 400, combat.AttrAttack: 30},
		SkillIDs: skills,
	}
}

func (s *RoomTestSuite) join(r *room.Room, playerID string, loadout *arena.Loadout) chan room.Delta {
	out := make(chan room.Delta, 1024)
	s.Require().NoError(r.Enqueue(room.Input{
		PlayerID: playerID,
		Kind:     room.InputJoin,
		Outbound: out,
		Loadout:  loadout,
	}))
	return out
}

func (s *RoomTestSuite) send(r *room.Room, in room.Input) chan error {
	reply := make(chan error, 1)
	in.Reply = reply
	s.Require().NoError(r.Enqueue(in))
	return reply
}

// startMatch joins a and b, readies both and steps until Running
func (s *RoomTestSuite) startMatch(r *room.Room, loadout *arena.Loadout) (chan room.Delta, chan room.Delta) {
	a := s.join(r, "a", loadout)
	b := s.join(r, "b", loadout)
	s.send(r, room.Input{PlayerID: "a", Kind: room.InputReady})
	s.send(r, room.Input{PlayerID: "b", Kind: room.InputReady})

	for i := 0; i < 10 && r.State() != room.StateRunning; i++ {
		r.Step()
	}
	s.Require().Equal(room.StateRunning, r.State())
	return a, b
}

func drain(ch chan room.Delta) []room.Delta {
	var out []room.Delta
	for {
		select {
		case d, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, d)
		default:
			return out
		}
	}
}

func eventsOf(deltas []room.Delta, kind room.EventKind) []room.Event {
	var out []room.Event
	for _, d := range deltas {
		for _, e := range d.Events {
			if e.Kind == kind {
				out = append(out, e)
			}
		}
	}
	return out
}

func (s *RoomTestSuite) TestNewRejectsInvalidSettings() {
	s.settings.TickRate = 0
	_, err := room.New(s.settings, catalog.Default())
	s.True(errors.IsInvalidArgument(err))
}

func (s *RoomTestSuite) TestFillTimeoutWithoutQuorumDisposes() {
	s.settings.FillTimeout = time.Second
	r := s.newRoom()
	out := s.join(r, "a", nil)

	for i := 0; i < 100 && r.State() != room.StateDisposed; i++ {
		r.Step()
	}

	s.Equal(room.StateDisposed, r.State())
	s.Equal(uint64(21), r.Tick())
	s.Equal([]room.Transition{
		{From: room.StateEmpty, To: room.StateWaiting, Tick: 1},
		{From: room.StateWaiting, To: room.StateDisposed, Tick: 21},
	}, r.Transitions())

	deltas := drain(out)
	s.Require().NotEmpty(deltas)
	s.Equal(room.StateDisposed, deltas[len(deltas)-1].State)
	_, open := <-out
	s.False(open, "outbound closes on dispose")
}

func (s *RoomTestSuite) TestFillTimeoutWithQuorumStartsCountdown() {
	s.settings.FillTimeout = time.Second
	r := s.newRoom()
	s.join(r, "a", nil)
	s.join(r, "b", nil)

	for i := 0; i < 21; i++ {
		r.Step()
	}
	s.Equal(room.StateCountdown, r.State())
}

func (s *RoomTestSuite) TestEmptyRoomIdlesOut() {
	s.settings.IdleTimeout = 500 * time.Millisecond
	r := s.newRoom()
	for i := 0; i < 10; i++ {
		r.Step()
	}
	s.Equal(room.StateDisposed, r.State())
	s.Require().Len(r.Transitions(), 1)
	s.Equal(room.StateEmpty, r.Transitions()[0].From)
}

func (s *RoomTestSuite) TestAllReadyStartsMatch() {
	r := s.newRoom()
	a, _ := s.startMatch(r, nil)

	s.ElementsMatch([]string{"a", "b"}, r.EntityIDs())
	var states []room.State
	for _, t := range r.Transitions() {
		states = append(states, t.To)
	}
	s.Equal([]room.State{room.StateWaiting, room.StateCountdown, room.StateRunning}, states)
	s.Len(eventsOf(drain(a), room.EventSpawned), 2)
}

func (s *RoomTestSuite) TestJoinRejectedWhenFull() {
	s.settings.MaxPlayers = 2
	r := s.newRoom()
	s.join(r, "a", nil)
	s.join(r, "b", nil)
	reply := s.send(r, room.Input{PlayerID: "c", Kind: room.InputJoin, Outbound: make(chan room.Delta, 1)})
	r.Step()

	err := <-reply
	s.True(errors.IsResourceExhausted(err))
	s.Equal(errors.ReasonRoomFull, errors.GetReason(err))
	s.Equal(2, r.MemberCount())
}

func (s *RoomTestSuite) TestJoinRejectsUnknownLoadout() {
	r := s.newRoom()
	reply := s.send(r, room.Input{
		PlayerID: "a",
		Kind:     room.InputJoin,
		Outbound: make(chan room.Delta, 1),
		Loadout:  &arena.Loadout{SkillIDs: []string{"nope"}},
	})
	r.Step()
	s.True(errors.IsInvalidArgument(<-reply))
	s.Equal(room.StateEmpty, r.State())
}

func (s *RoomTestSuite) TestGameplayInputOutsideRunningIsStateConflict() {
	r := s.newRoom()
	s.join(r, "a", nil)
	reply := s.send(r, room.Input{PlayerID: "a", Kind: room.InputAttack})
	r.Step()
	s.True(errors.IsStateConflict(<-reply))
}

func (s *RoomTestSuite) TestMalformedInputIsRejectedAtEnqueue() {
	r := s.newRoom()
	err := r.Enqueue(room.Input{PlayerID: "a", Kind: "dance"})
	s.True(errors.IsInvalidArgument(err))
	s.Zero(r.QueueLen())
}

func (s *RoomTestSuite) TestFullQueueDropsOldest() {
	s.settings.InputQueueSize = 2
	r := s.newRoom()

	first := s.send(r, room.Input{PlayerID: "a", Kind: room.InputReady, Seq: 1})
	s.send(r, room.Input{PlayerID: "a", Kind: room.InputReady, Seq: 2})
	s.send(r, room.Input{PlayerID: "a", Kind: room.InputReady, Seq: 3})

	err := <-first
	s.True(errors.IsResourceExhausted(err))
	s.Equal(errors.ReasonInputDropped, errors.GetReason(err))
	s.Equal(2, r.QueueLen())
}

func (s *RoomTestSuite) TestMoveThenAttackSameTickResolvesInOrder() {
	s.settings.SpawnPoints = []room.Vec{{X: 10, Y: 10}, {X: 11.65, Y: 10}}
	r := s.newRoom()
	a, _ := s.startMatch(r, slowLoadout())
	drain(a)

	s.send(r, room.Input{PlayerID: "a", Kind: room.InputMove, Direction: room.Vec{X: 1}})
	attack := s.send(r, room.Input{PlayerID: "a", Kind: room.InputAttack, TargetID: "b"})
	r.Step()

	s.NoError(<-attack)
	e, ok := r.Entity("a")
	s.Require().True(ok)
	s.InDelta(10.2, e.Position().X, 1e-9)

	deltas := drain(a)
	s.Empty(eventsOf(deltas, room.EventRejected))
	resolved := append(eventsOf(deltas, room.EventDamage), eventsOf(deltas, room.EventMiss)...)
	s.Require().Len(resolved, 1)
	s.Equal("a", resolved[0].Actor)
	s.Equal("b", resolved[0].Target)
}

func (s *RoomTestSuite) TestAttackThenMoveSameTickResolvesInOrder() {
	s.settings.SpawnPoints = []room.Vec{{X: 10, Y: 10}, {X: 11.65, Y: 10}}
	r := s.newRoom()
	a, _ := s.startMatch(r, slowLoadout())
	drain(a)

	attack := s.send(r, room.Input{PlayerID: "a", Kind: room.InputAttack, TargetID: "b"})
	move := s.send(r, room.Input{PlayerID: "a", Kind: room.InputMove, Direction: room.Vec{X: 1}})
	r.Step()

	err := <-attack
	s.True(errors.IsStateConflict(err))
	s.Contains(errors.GetMessage(err), "out of range")
	s.NoError(<-move)

	e, ok := r.Entity("a")
	s.Require().True(ok)
	s.InDelta(10.2, e.Position().X, 1e-9, "the later move still applies")

	deltas := drain(a)
	rejected := eventsOf(deltas, room.EventRejected)
	s.Require().Len(rejected, 1)
	s.Equal("a", rejected[0].Actor)
	s.Empty(eventsOf(deltas, room.EventDamage))
	s.Empty(eventsOf(deltas, room.EventMiss))
}

func (s *RoomTestSuite) TestAttackKeepsItsPlaceWhenALaterMoveLeavesRange() {
	s.settings.SpawnPoints = []room.Vec{{X: 10, Y: 10}, {X: 11.4, Y: 10}}
	r := s.newRoom()
	a, _ := s.startMatch(r, slowLoadout())
	drain(a)

	attack := s.send(r, room.Input{PlayerID: "a", Kind: room.InputAttack, TargetID: "b"})
	s.send(r, room.Input{PlayerID: "a", Kind: room.InputMove, Direction: room.Vec{X: -1}})
	r.Step()

	s.NoError(<-attack)
	e, ok := r.Entity("a")
	s.Require().True(ok)
	s.InDelta(9.8, e.Position().X, 1e-9)

	deltas := drain(a)
	s.Empty(eventsOf(deltas, room.EventRejected))
	resolved := append(eventsOf(deltas, room.EventDamage), eventsOf(deltas, room.EventMiss)...)
	s.Len(resolved, 1)
}

func (s *RoomTestSuite) TestSecondAttackInOneTickWaitsForCooldown() {
	s.settings.SpawnPoints = []room.Vec{{X: 10, Y: 10}, {X: 11, Y: 10}}
	r := s.newRoom()
	a, _ := s.startMatch(r, slowLoadout())
	drain(a)

	first := s.send(r, room.Input{PlayerID: "a", Kind: room.InputAttack, TargetID: "b"})
	second := s.send(r, room.Input{PlayerID: "a", Kind: room.InputAttack, TargetID: "b"})
	r.Step()

	s.NoError(<-first)
	s.True(errors.IsStateConflict(<-second))

	deltas := drain(a)
	resolved := append(eventsOf(deltas, room.EventDamage), eventsOf(deltas, room.EventMiss)...)
	s.Len(resolved, 1)
	rejected := eventsOf(deltas, room.EventRejected)
	s.Require().Len(rejected, 1)
	s.Contains(rejected[0].Detail, "cooldown")
}

func (s *RoomTestSuite) TestAttackOutOfRangeIsRejected() {
	s.settings.SpawnPoints = []room.Vec{{X: 10, Y: 10}, {X: 11.65, Y: 10}}
	r := s.newRoom()
	a, _ := s.startMatch(r, slowLoadout())
	drain(a)

	s.send(r, room.Input{PlayerID: "a", Kind: room.InputAttack, TargetID: "b"})
	r.Step()

	rejected := eventsOf(drain(a), room.EventRejected)
	s.Require().Len(rejected, 1)
	s.Contains(rejected[0].Detail, "out of range")
}

func (s *RoomTestSuite) TestProjectileExpiresAfterLifetime() {
	r := s.newRoom()
	a, _ := s.startMatch(r, slowLoadout("fireball"))
	drain(a)

	s.send(r, room.Input{PlayerID: "a", Kind: room.InputSkill, SkillID: "fireball", Direction: room.Vec{X: 1}})
	r.Step()
	spawnTick := r.Tick()

	var projectileID string
	for _, d := range drain(a) {
		for _, c := range d.Changed {
			if c.Kind == room.KindProjectile {
				projectileID = c.ID
			}
		}
	}
	s.Require().NotEmpty(projectileID)

	for r.Tick() < spawnTick+39 {
		r.Step()
	}
	_, alive := r.Entity(projectileID)
	s.True(alive, "still in flight at tick %d", r.Tick())

	r.Step()
	_, alive = r.Entity(projectileID)
	s.False(alive)
	deltas := drain(a)
	last := deltas[len(deltas)-1]
	s.Contains(last.Removed, projectileID)
	s.Len(eventsOf([]room.Delta{last}, room.EventExpired), 1)
}

func (s *RoomTestSuite) TestSkillCooldown() {
	r := s.newRoom()
	a, _ := s.startMatch(r, slowLoadout("mend"))
	drain(a)

	s.send(r, room.Input{PlayerID: "a", Kind: room.InputSkill, SkillID: "mend"})
	r.Step()
	again := s.send(r, room.Input{PlayerID: "a", Kind: room.InputSkill, SkillID: "mend"})
	r.Step()

	err := <-again
	s.True(errors.IsStateConflict(err))
	deltas := drain(a)
	s.Len(eventsOf(deltas, room.EventHeal), 1)
	rejected := eventsOf(deltas, room.EventRejected)
	s.Require().Len(rejected, 1)
	s.Contains(rejected[0].Detail, "cooldown")
}

func (s *RoomTestSuite) TestLeaveDuringMatchEliminates() {
	r := s.newRoom()
	a, b := s.startMatch(r, nil)

	s.send(r, room.Input{PlayerID: "b", Kind: room.InputLeave})
	r.Step()

	s.Equal(room.StateFinished, r.State())
	s.Require().NotNil(r.Result())
	s.Equal("a", r.Result().WinnerID)
	s.Equal(room.ReasonElimination, r.Result().Reason)

	deltas := drain(a)
	s.Require().NotNil(deltas[len(deltas)-1].Result)
	drain(b)
	_, open := <-b
	s.False(open)
}

func (s *RoomTestSuite) TestTimeLimitTieHasNoWinner() {
	s.settings.TimeLimit = time.Second
	r := s.newRoom()
	s.startMatch(r, nil)

	for i := 0; i < 25 && r.State() == room.StateRunning; i++ {
		r.Step()
	}
	s.Equal(room.StateFinished, r.State())
	s.Equal(room.ReasonTimeLimit, r.Result().Reason)
	s.Empty(r.Result().WinnerID)
	s.Equal(map[string]int{"a": 0, "b": 0}, r.Result().Scores)
}

func (s *RoomTestSuite) TestFinishedRoomDisposesAfterResultsWindow() {
	s.settings.ResultsWindow = time.Second
	r := s.newRoom()
	s.startMatch(r, nil)
	s.send(r, room.Input{PlayerID: "b", Kind: room.InputLeave})
	r.Step()
	finishedAt := r.Tick()

	for r.State() != room.StateDisposed {
		r.Step()
	}
	s.Equal(finishedAt+20, r.Tick())
}

func (s *RoomTestSuite) TestNPCChasesAndFights() {
	s.settings.MinPlayers = 1
	s.settings.SpawnPoints = []room.Vec{{X: 10, Y: 10}}
	s.settings.NPCs = []room.NPCSpawn{{
		ID:       "wolf_1",
		Loadout:  *slowLoadout(),
		Position: room.Vec{X: 14, Y: 10},
		Brain:    room.ChaseBrain{},
	}}
	r := s.newRoom()
	out := s.join(r, "a", slowLoadout())
	s.send(r, room.Input{PlayerID: "a", Kind: room.InputReady})
	for i := 0; i < 5; i++ {
		r.Step()
	}
	s.Require().Equal(room.StateRunning, r.State())

	for i := 0; i < 40; i++ {
		r.Step()
	}
	npc, ok := r.Entity("wolf_1")
	s.Require().True(ok)
	s.Less(npc.Position().X, 14.0)

	deltas := drain(out)
	fought := append(eventsOf(deltas, room.EventDamage), eventsOf(deltas, room.EventMiss)...)
	s.NotEmpty(fought)
	s.Equal("wolf_1", fought[0].Actor)
}

func (s *RoomTestSuite) TestShutdownWhileRunningFlushesFinished() {
	r := s.newRoom()
	a, _ := s.startMatch(r, nil)
	drain(a)

	r.Shutdown(room.ReasonShutdown)

	deltas := drain(a)
	s.Require().Len(deltas, 2)
	s.Equal(room.StateFinished, deltas[0].State)
	s.Equal(room.ReasonShutdown, deltas[0].Result.Reason)
	s.Equal(room.StateDisposed, deltas[1].State)
	_, open := <-a
	s.False(open)

	s.True(errors.IsStateConflict(r.Enqueue(room.Input{PlayerID: "a", Kind: room.InputReady})))
}

func (s *RoomTestSuite) TestFailReportsFault() {
	r := s.newRoom()
	a := s.join(r, "a", nil)
	r.Step()
	drain(a)

	r.Fail(errors.Internal("boom"))

	deltas := drain(a)
	s.Require().Len(deltas, 1)
	s.Equal(room.StateDisposed, deltas[0].State)
	s.Equal(room.ReasonFault, deltas[0].Result.Reason)
	s.Equal("boom", deltas[0].Result.Error)
}

func TestTicksAndTransitionsStayLegal(t *testing.T) {
	kinds := []room.InputKind{room.InputJoin, room.InputLeave, room.InputReady, room.InputMove, room.InputAttack}
	players := []string{"p1", "p2", "p3"}

	rapid.Check(t, func(t *rapid.T) {
		settings := room.DefaultSettings()
		settings.ID = "prop"
		settings.MaxPlayers = 2
		settings.Countdown = 100 * time.Millisecond
		settings.FillTimeout = time.Second
		settings.TimeLimit = 2 * time.Second
		settings.ResultsWindow = 500 * time.Millisecond
		settings.Seed = rapid.Uint64().Draw(t, "seed")

		r, err := room.New(settings, catalog.Default())
		if err != nil {
			t.Fatal(err)
		}

		steps := rapid.IntRange(1, 200).Draw(t, "steps")
		for i := 0; i < steps && r.State() != room.StateDisposed; i++ {
			n := rapid.IntRange(0, 3).Draw(t, "inputs")
			for j := 0; j < n; j++ {
				in := room.Input{
					PlayerID:  rapid.SampledFrom(players).Draw(t, "player"),
					Kind:      rapid.SampledFrom(kinds).Draw(t, "kind"),
					Direction: room.Vec{X: rapid.Float64Range(-1, 1).Draw(t, "dx"), Y: rapid.Float64Range(-1, 1).Draw(t, "dy")},
					Outbound:  make(chan room.Delta, 512),
				}
				_ = r.Enqueue(in)
			}

			before := r.Tick()
			r.Step()
			if r.Tick() != before+1 {
				t.Fatalf("tick went from %d to %d", before, r.Tick())
			}
		}

		var last uint64
		for _, tr := range r.Transitions() {
			if !room.CanTransition(tr.From, tr.To) {
				t.Fatalf("illegal transition %s -> %s", tr.From, tr.To)
			}
			if tr.Tick < last {
				t.Fatalf("transition ticks went backwards")
			}
			last = tr.Tick
		}
	})
}
