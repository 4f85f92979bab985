// Package rng provides seeded dice rollers so arena battles and rooms can be
// replayed bit for bit.
package rng

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/rand/v2"

	"github.com/KirkDiggler/rpg-toolkit/dice"
)

var _ dice.Roller = (*Seeded)(nil)

// Seeded is a dice.Roller driven by a PCG stream. Two rollers built from the
// same seed produce the same sequence. Not safe for concurrent use; each
// room and each battle owns its own roller.
type Seeded struct {
	seed uint64
	r    *rand.Rand
}

// NewSeeded returns a roller for seed
func NewSeeded(seed uint64) *Seeded {
	return &Seeded{
		seed: seed,
		r:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Seed returns the seed the roller was built from
func (s *Seeded) Seed() uint64 {
	return s.seed
}

// Roll returns a value in [1, size]
func (s *Seeded) Roll(size int) (int, error) {
	if size <= 0 {
		return 0, fmt.Errorf("rng: die size must be positive, got %d", size)
	}
	return s.r.IntN(size) + 1, nil
}

// RollN rolls count dice of the given size
func (s *Seeded) RollN(count, size int) ([]int, error) {
	if count < 0 {
		return nil, fmt.Errorf("rng: dice count must not be negative, got %d", count)
	}
	out := make([]int, count)
	for i := range out {
		v, err := s.Roll(size)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// DeriveSeed hashes a root seed and a label into a child seed. A room and
// each of its NPC brains get distinct but reproducible streams this way.
func DeriveSeed(root uint64, label string) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], root)
	_, _ = h.Write(buf[:])
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(label))
	sum := h.Sum64()
	if sum == 0 {
		sum = 1
	}
	return sum
}

// NewSeed returns a fresh non-deterministic seed for a new battle or room
func NewSeed() uint64 {
	return rand.Uint64()
}
