package rng_test

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"pgregory.net/rapid"

	"github.com/KirkDiggler/rpg-arena/internal/pkg/rng"
)

type SeededTestSuite struct {
	suite.Suite
}

func TestSeededSuite(t *testing.T) {
	suite.Run(t, new(SeededTestSuite))
}

func (s *SeededTestSuite) TestSameSeedSameSequence() {
	a := rng.NewSeeded(42)
	b := rng.NewSeeded(42)

	rollsA, err := a.RollN(50, 100)
	s.Require().NoError(err)
	rollsB, err := b.RollN(50, 100)
	s.Require().NoError(err)

	s.Equal(rollsA, rollsB)
	s.Equal(uint64(42), a.Seed())
}

func (s *SeededTestSuite) TestInvalidDice() {
	r := rng.NewSeeded(1)

	_, err := r.Roll(0)
	s.Error(err)

	_, err = r.RollN(-1, 6)
	s.Error(err)
}

func (s *SeededTestSuite) TestDeriveSeed() {
	s.Equal(rng.DeriveSeed(7, "npc_1"), rng.DeriveSeed(7, "npc_1"))
	s.NotEqual(rng.DeriveSeed(7, "npc_1"), rng.DeriveSeed(7, "npc_2"))
	s.NotEqual(rng.DeriveSeed(7, "npc_1"), rng.DeriveSeed(8, "npc_1"))
}

func TestRollStaysInRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Uint64().Draw(t, "seed")
		size := rapid.IntRange(1, 1000).Draw(t, "size")

		v, err := rng.NewSeeded(seed).Roll(size)
		if err != nil {
			t.Fatalf("roll: %v", err)
		}
		if v < 1 || v > size {
			t.Fatalf("roll %d outside [1, %d]", v, size)
		}
	})
}
