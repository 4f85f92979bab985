package stats_test

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"pgregory.net/rapid"

	"github.com/KirkDiggler/rpg-arena/internal/engine/stats"
	"github.com/KirkDiggler/rpg-arena/internal/entities/combat"
)

type ResolverTestSuite struct {
	suite.Suite
	profile *stats.Profile
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverTestSuite))
}

func (s *ResolverTestSuite) SetupTest() {
	s.profile = stats.NewProfile("hero_1", combat.Attributes{
		combat.AttrHP:      500,
		combat.AttrAttack:  40,
		combat.AttrDefense: 20,
		combat.AttrSpeed:   10,
	})
}

func (s *ResolverTestSuite) TestTotalIsBasePlusEquipmentPlusBuffs() {
	s.profile.Equip(combat.Equipment{
		ID:      "iron_sword",
		Slot:    combat.SlotWeapon,
		Bonuses: combat.Attributes{combat.AttrAttack: 12},
	})
	s.profile.AddBuff(combat.Buff{
		ID:            "war_cry",
		Deltas:        combat.Attributes{combat.AttrAttack: 8, combat.AttrDefense: -5},
		ExpiresAtTick: 100,
	})

	totals := s.profile.Totals(1)
	s.Equal(500, totals.MaxHP)
	s.Equal(60.0, totals.Attack)
	s.Equal(15.0, totals.Defense)
}

func (s *ResolverTestSuite) TestUnknownAttributesContributeZero() {
	s.profile.AddBuff(combat.Buff{
		ID:     "mystery",
		Deltas: combat.Attributes{"luck": 7},
	})

	totals := s.profile.Totals(1)
	s.Equal(7.0, totals.Get("luck"))
	s.Equal(40.0, totals.Attack)
	s.Equal(0.0, totals.Get("charisma"))
}

func (s *ResolverTestSuite) TestDerivedValuesAreClamped() {
	p := stats.NewProfile("glass_cannon", combat.Attributes{
		combat.AttrHP:           -50,
		combat.AttrCritRate:     3,
		combat.AttrEvasion:      2,
		combat.AttrCooldownRate: 0.9,
		combat.AttrDefense:      -10,
	})

	totals := p.Totals(0)
	s.Equal(1, totals.MaxHP)
	s.Equal(1.0, totals.CritRate)
	s.Equal(0.75, totals.Evasion)
	s.Equal(0.5, totals.CooldownRate)
	s.Equal(0.0, totals.Defense)
	s.Equal(1.5, totals.CritDamage)
	s.Equal(0.95, totals.Accuracy)
}

func (s *ResolverTestSuite) TestResolvesOncePerTick() {
	s.profile.Totals(5)
	s.profile.Totals(5)
	s.profile.Totals(5)
	s.Equal(1, s.profile.Resolutions())

	s.Run("unchanged inputs reuse the cache on later ticks", func() {
		s.profile.Totals(6)
		s.Equal(1, s.profile.Resolutions())
	})

	s.Run("a change invalidates", func() {
		s.profile.Equip(combat.Equipment{ID: "cap", Slot: combat.SlotHelm, Bonuses: combat.Attributes{combat.AttrDefense: 3}})
		s.Equal(23.0, s.profile.Totals(6).Defense)
		s.Equal(2, s.profile.Resolutions())
	})
}

func (s *ResolverTestSuite) TestBuffExpiry() {
	s.profile.AddBuff(combat.Buff{
		ID:            "haste",
		Deltas:        combat.Attributes{combat.AttrSpeed: 5},
		ExpiresAtTick: 10,
	})

	s.Equal(15.0, s.profile.Totals(9).Speed)
	s.Equal(10.0, s.profile.Totals(10).Speed, "cache must notice the expiry boundary")

	expired := s.profile.ExpireBuffs(10)
	s.Require().Len(expired, 1)
	s.Equal("haste", expired[0].ID)
	s.Empty(s.profile.Buffs())
}

func (s *ResolverTestSuite) TestCloneIsIndependent() {
	clone := s.profile.Clone()
	clone.AddBuff(combat.Buff{ID: "rage", Deltas: combat.Attributes{combat.AttrAttack: 100}})
	clone.SetBase(combat.Attributes{combat.AttrHP: 1, combat.AttrAttack: 40})

	s.Equal(40.0, s.profile.Totals(1).Attack)
	s.Equal(500, s.profile.Totals(1).MaxHP)
	s.Equal(140.0, clone.Totals(1).Attack)
}

func (s *ResolverTestSuite) TestEquipReplacesSlot() {
	s.profile.Equip(combat.Equipment{ID: "stick", Slot: combat.SlotWeapon, Bonuses: combat.Attributes{combat.AttrAttack: 1}})
	prev, had := s.profile.Equip(combat.Equipment{ID: "axe", Slot: combat.SlotWeapon, Bonuses: combat.Attributes{combat.AttrAttack: 9}})

	s.True(had)
	s.Equal("stick", prev.ID)
	s.Equal(49.0, s.profile.Totals(1).Attack)

	_, had = s.profile.Unequip(combat.SlotWeapon)
	s.True(had)
	s.Equal(40.0, s.profile.Totals(1).Attack)
}

func TestResolveIsIdempotentAndOrderIndependent(t *testing.T) {
	attrs := []combat.Attribute{combat.AttrHP, combat.AttrAttack, combat.AttrDefense, combat.AttrSpeed, "luck"}

	rapid.Check(t, func(t *rapid.T) {
		base := combat.Attributes{}
		for _, a := range attrs {
			base[a] = rapid.Float64Range(-1000, 1000).Draw(t, "base_"+string(a))
		}
		n := rapid.IntRange(0, 6).Draw(t, "buffs")
		buffs := make([]combat.Buff, n)
		for i := range buffs {
			buffs[i] = combat.Buff{
				ID:     rapid.StringMatching(`[a-z]{1,6}`).Draw(t, "buff_id"),
				Deltas: combat.Attributes{attrs[i%len(attrs)]: rapid.Float64Range(-100, 100).Draw(t, "delta")},
			}
		}

		forward := stats.NewProfile("a", base)
		backward := stats.NewProfile("a", base)
		for i := range buffs {
			forward.AddBuff(buffs[i])
			backward.AddBuff(buffs[len(buffs)-1-i])
		}

		// duplicate ids keep the last write, so only compare when ids are unique
		seen := map[string]bool{}
		for _, b := range buffs {
			if seen[b.ID] {
				return
			}
			seen[b.ID] = true
		}

		first := stats.Resolve(forward, 3)
		second := stats.Resolve(forward, 3)
		other := stats.Resolve(backward, 3)
		if first.Attack != second.Attack || first.MaxHP != second.MaxHP {
			t.Fatalf("resolve is not idempotent")
		}
		if first.Attack != other.Attack || first.Get("luck") != other.Get("luck") {
			t.Fatalf("insertion order changed totals: %v vs %v", first.Attack, other.Attack)
		}
	})
}
