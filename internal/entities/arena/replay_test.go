package arena_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KirkDiggler/rpg-arena/internal/entities/arena"
)

func sampleLog() []arena.Event {
	return []arena.Event{
		{Tick: 0, Kind: arena.EventSpawn, Actor: "attacker"},
		{Tick: 12, Kind: arena.EventDamage, Actor: "attacker", Target: "defender", SkillID: "fireball", Amount: 87, Crit: true},
		{Tick: 13, Kind: arena.EventHeal, Actor: "defender", Target: "defender", Amount: 40},
		{Tick: 14, Kind: arena.EventMiss, Actor: "defender", Target: "attacker", SkillID: "basic_attack"},
		{Tick: 90, Kind: arena.EventEnd, Amount: -1},
	}
}

func TestReplayDecodesWhatWasEncoded(t *testing.T) {
	events := sampleLog()

	decoded, err := arena.UnmarshalReplay(arena.MarshalReplay(events))
	require.NoError(t, err)
	assert.Equal(t, events, decoded)
}

func TestReplayRejectsTruncatedInput(t *testing.T) {
	data := arena.MarshalReplay(sampleLog())

	_, err := arena.UnmarshalReplay(data[:len(data)-3])
	assert.Error(t, err)
}

func TestDigestTracksEveryField(t *testing.T) {
	base := arena.Digest(sampleLog())
	assert.Equal(t, base, arena.Digest(sampleLog()))

	changed := sampleLog()
	changed[1].Crit = false
	assert.NotEqual(t, base, arena.Digest(changed))

	reordered := sampleLog()
	reordered[2], reordered[3] = reordered[3], reordered[2]
	assert.NotEqual(t, base, arena.Digest(reordered))
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "damage", arena.EventDamage.String())
	assert.Equal(t, "event(99)", arena.EventKind(99).String())
}
