package room

import (
	"time"

	"github.com/KirkDiggler/rpg-arena/internal/entities/arena"
	"github.com/KirkDiggler/rpg-arena/internal/entities/combat"
	"github.com/KirkDiggler/rpg-arena/internal/errors"
)

// Settings configures one room. Durations are converted to whole ticks.
type Settings struct {
	ID             string
	TickRate       int
	MinPlayers     int
	MaxPlayers     int
	FillTimeout    time.Duration
	Countdown      time.Duration
	ResultsWindow  time.Duration
	TimeLimit      time.Duration
	IdleTimeout    time.Duration
	ScoreLimit     int
	InputQueueSize int
	Bounds         Rect
	Walls          []Rect
	SpawnPoints    []Vec
	NPCs           []NPCSpawn
	Items          []ItemSpawn
	DefaultLoadout arena.Loadout
	Seed           uint64
}

// NPCSpawn places a computer controlled actor when the match starts
type NPCSpawn struct {
	ID       string
	Loadout  arena.Loadout
	Position Vec
	Brain    Brain
}

// ItemSpawn places a pickup when the match starts
type ItemSpawn struct {
	ID       string
	Position Vec
	Heal     int
}

// DefaultSettings returns a 20 Hz two player room
func DefaultSettings() Settings {
	return Settings{
		TickRate:       20,
		MinPlayers:     2,
		MaxPlayers:     8,
		FillTimeout:    30 * time.Second,
		Countdown:      3 * time.Second,
		ResultsWindow:  10 * time.Second,
		TimeLimit:      5 * time.Minute,
		IdleTimeout:    time.Minute,
		ScoreLimit:     10,
		InputQueueSize: 256,
		Bounds:         Rect{Max: Vec{X: 40, Y: 40}},
		SpawnPoints: []Vec{
			{X: 5, Y: 5}, {X: 35, Y: 35}, {X: 35, Y: 5}, {X: 5, Y: 35},
			{X: 20, Y: 5}, {X: 20, Y: 35}, {X: 5, Y: 20}, {X: 35, Y: 20},
		},
		DefaultLoadout: arena.Loadout{
			Base: combat.Attributes{
				combat.AttrHP:      400,
				combat.AttrAttack:  30,
				combat.AttrDefense: 10,
				combat.AttrSpeed:   5,
			},
			SkillIDs: []string{"cleave"},
		},
	}
}

// Validate validates the settings
func (s *Settings) Validate() error {
	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("ID", s.ID, vb)
	errors.ValidatePositive("TickRate", s.TickRate, vb)
	errors.ValidatePositive("MinPlayers", s.MinPlayers, vb)
	errors.ValidatePositive("InputQueueSize", s.InputQueueSize, vb)
	if s.MaxPlayers < s.MinPlayers {
		vb.Fieldf("MaxPlayers", "must be at least MinPlayers (%d)", s.MinPlayers)
	}
	if s.FillTimeout <= 0 {
		vb.Field("FillTimeout", "must be positive")
	}
	if s.Bounds.Max.X <= s.Bounds.Min.X || s.Bounds.Max.Y <= s.Bounds.Min.Y {
		vb.InvalidField("Bounds", "empty area")
	}
	if len(s.SpawnPoints) == 0 {
		vb.RequiredField("SpawnPoints")
	}
	for i, n := range s.NPCs {
		if n.ID == "" || n.Brain == nil {
			vb.Fieldf("NPCs", "npc %d needs an ID and a Brain", i)
		}
	}
	return vb.Build()
}

func (s *Settings) ticks(d time.Duration) uint64 {
	return combat.SecondsToTicks(d.Seconds(), s.TickRate)
}
