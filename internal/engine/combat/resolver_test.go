package combat_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/rpg-arena/internal/engine/combat"
	"github.com/KirkDiggler/rpg-arena/internal/engine/stats"
	entcombat "github.com/KirkDiggler/rpg-arena/internal/entities/combat"
	"github.com/KirkDiggler/rpg-arena/internal/errors"
	"github.com/KirkDiggler/rpg-arena/internal/pkg/rng"
)

// scriptedRoller returns queued values in order
type scriptedRoller struct {
	values []int
	err    error
}

func (r *scriptedRoller) Roll(size int) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if len(r.values) == 0 {
		return 0, fmt.Errorf("scripted roller exhausted")
	}
	v := r.values[0]
	r.values = r.values[1:]
	return v, nil
}

func (r *scriptedRoller) RollN(count, size int) ([]int, error) {
	out := make([]int, count)
	for i := range out {
		v, err := r.Roll(size)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type fighter struct {
	id      string
	hp      int
	profile *stats.Profile
}

func (f *fighter) GetID() string           { return f.id }
func (f *fighter) GetType() string         { return "fighter" }
func (f *fighter) Profile() *stats.Profile { return f.profile }
func (f *fighter) HP() int                 { return f.hp }
func (f *fighter) SetHP(hp int)            { f.hp = hp }

func newFighter(id string, attrs entcombat.Attributes) *fighter {
	p := stats.NewProfile(id, attrs)
	return &fighter{id: id, hp: p.Totals(0).MaxHP, profile: p}
}

type ResolverTestSuite struct {
	suite.Suite
	roller   *scriptedRoller
	resolver *combat.Resolver
	attacker *fighter
	target   *fighter
	strike   entcombat.Skill
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverTestSuite))
}

func (s *ResolverTestSuite) SetupTest() {
	s.roller = &scriptedRoller{}
	var err error
	s.resolver, err = combat.NewResolver(&combat.Config{Roller: s.roller, TickRate: 20})
	s.Require().NoError(err)

	s.attacker = newFighter("attacker", entcombat.Attributes{
		entcombat.AttrHP:       300,
		entcombat.AttrAttack:   50,
		entcombat.AttrCritRate: 0.2,
	})
	s.target = newFighter("target", entcombat.Attributes{
		entcombat.AttrHP:      300,
		entcombat.AttrDefense: 100,
		entcombat.AttrEvasion: 0.15,
	})
	s.strike = entcombat.Skill{ID: "strike", Kind: entcombat.SkillDamage, Power: 2}
}

func (s *ResolverTestSuite) TestNewResolverValidates() {
	_, err := combat.NewResolver(&combat.Config{TickRate: 0})
	s.Require().Error(err)
	s.True(errors.IsInvalidArgument(err))

	_, err = combat.NewResolver(nil)
	s.Error(err)
}

func (s *ResolverTestSuite) TestHit() {
	// hit chance is 0.95 - 0.15 = 80, crit chance 20; roll 51 is zero variance
	s.roller.values = []int{80, 21, 51}

	out, err := s.resolver.Resolve(1, s.attacker, s.target, s.strike)
	s.Require().NoError(err)

	// 50 * 2 * 100/(100+100) = 50
	s.True(out.Hit)
	s.False(out.Crit)
	s.Equal(50, out.Amount)
	s.Equal(250, out.TargetHP)
	s.Equal(250, s.target.HP())
}

func (s *ResolverTestSuite) TestMissLeavesTargetUntouched() {
	s.roller.values = []int{81, 1, 51}

	out, err := s.resolver.Resolve(1, s.attacker, s.target, s.strike)
	s.Require().NoError(err)
	s.False(out.Hit)
	s.Equal(300, s.target.HP())
}

func (s *ResolverTestSuite) TestCrit() {
	s.roller.values = []int{1, 20, 51}

	out, err := s.resolver.Resolve(1, s.attacker, s.target, s.strike)
	s.Require().NoError(err)
	s.True(out.Crit)
	s.Equal(75, out.Amount)
}

func (s *ResolverTestSuite) TestVarianceBounds() {
	s.roller.values = []int{1, 100, 1}
	low, err := s.resolver.Resolve(1, s.attacker, s.target, s.strike)
	s.Require().NoError(err)
	s.Equal(45, low.Amount)

	s.roller.values = []int{1, 100, 100}
	high, err := s.resolver.Resolve(1, s.attacker, s.target, s.strike)
	s.Require().NoError(err)
	s.Equal(55, high.Amount)
}

func (s *ResolverTestSuite) TestKill() {
	s.target.SetHP(10)
	s.roller.values = []int{1, 100, 51}

	out, err := s.resolver.Resolve(1, s.attacker, s.target, s.strike)
	s.Require().NoError(err)
	s.True(out.Killed)
	s.Equal(10, out.Amount)
	s.Equal(0, s.target.HP())

	s.Run("dead targets are a state conflict", func() {
		_, err := s.resolver.Resolve(2, s.attacker, s.target, s.strike)
		s.True(errors.IsStateConflict(err))
	})
}

func (s *ResolverTestSuite) TestRollerFailureIsAtomic() {
	s.roller.err = fmt.Errorf("entropy ran out")

	_, err := s.resolver.Resolve(1, s.attacker, s.target, s.strike)
	s.Require().Error(err)
	s.Equal(300, s.target.HP())
}

func (s *ResolverTestSuite) TestHealCapsAtMax() {
	s.attacker.SetHP(200)
	heal := entcombat.Skill{ID: "mend", Kind: entcombat.SkillHeal, Power: 4}

	out, err := s.resolver.Resolve(1, s.attacker, s.attacker, heal)
	s.Require().NoError(err)
	s.Equal(100, out.Amount)
	s.Equal(300, s.attacker.HP())
}

func (s *ResolverTestSuite) TestBuffExpiresAfterDuration() {
	cry := entcombat.Skill{
		ID:          "war_cry",
		Kind:        entcombat.SkillBuff,
		BuffDeltas:  entcombat.Attributes{entcombat.AttrAttack: 10},
		BuffSeconds: 1,
	}

	_, err := s.resolver.Resolve(5, s.attacker, s.attacker, cry)
	s.Require().NoError(err)

	s.Equal(60.0, s.attacker.Profile().Totals(24).Attack)
	s.Equal(50.0, s.attacker.Profile().Totals(25).Attack)
}

func (s *ResolverTestSuite) TestSeededRollerIsReproducible() {
	run := func() []int {
		r, err := combat.NewResolver(&combat.Config{Roller: rng.NewSeeded(99), TickRate: 60})
		s.Require().NoError(err)
		a := newFighter("a", entcombat.Attributes{entcombat.AttrHP: 100, entcombat.AttrAttack: 20})
		b := newFighter("b", entcombat.Attributes{entcombat.AttrHP: 5000, entcombat.AttrDefense: 5})

		var amounts []int
		for tick := uint64(1); tick <= 30; tick++ {
			out, err := r.Resolve(tick, a, b, s.strike)
			s.Require().NoError(err)
			amounts = append(amounts, out.Amount)
		}
		return amounts
	}

	s.Equal(run(), run())
}
