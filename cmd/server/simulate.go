package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/KirkDiggler/rpg-arena/internal/engine/battle"
	"github.com/KirkDiggler/rpg-arena/internal/entities/arena"
)

var (
	attackerPath string
	defenderPath string
	simSeed      uint64
	simCatalog   string
	simMaxTicks  int
	showReplay   bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a headless arena battle",
	Long: `Simulate a battle between two loadout files without touching storage.
The same loadouts and seed always produce the same digest.`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVar(&attackerPath, "attacker", "", "Attacker loadout YAML or JSON (required)")
	simulateCmd.Flags().StringVar(&defenderPath, "defender", "", "Defender loadout YAML or JSON (required)")
	simulateCmd.Flags().Uint64Var(&simSeed, "seed", 1, "Battle seed")
	simulateCmd.Flags().StringVar(&simCatalog, "catalog", "", "Content catalog YAML")
	simulateCmd.Flags().IntVar(&simMaxTicks, "max-ticks", battle.DefaultMaxTicks, "Ticks before the battle is a draw")
	simulateCmd.Flags().BoolVar(&showReplay, "replay", false, "Print every replay event")
	_ = simulateCmd.MarkFlagRequired("attacker") // nolint:errcheck // safe to ignore in init
	_ = simulateCmd.MarkFlagRequired("defender") // nolint:errcheck // safe to ignore in init
}

func readLoadoutFile(path string) (arena.Loadout, error) {
	var loadout arena.Loadout
	data, err := os.ReadFile(path)
	if err != nil {
		return loadout, fmt.Errorf("failed to read loadout: %w", err)
	}
	// YAML is a superset of JSON
	if err := yaml.Unmarshal(data, &loadout); err != nil {
		return loadout, fmt.Errorf("failed to parse loadout %s: %w", path, err)
	}
	return loadout, nil
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	cat, err := loadCatalog(simCatalog)
	if err != nil {
		return err
	}

	attacker, err := readLoadoutFile(attackerPath)
	if err != nil {
		return err
	}
	defender, err := readLoadoutFile(defenderPath)
	if err != nil {
		return err
	}

	sim, err := battle.NewSimulator(&battle.Config{
		Catalog:    cat,
		TickRate:   battle.DefaultTickRate,
		MaxTicks:   simMaxTicks,
		Separation: battle.DefaultSeparation,
	})
	if err != nil {
		return err
	}

	result, err := sim.Simulate(cmd.Context(), &battle.Input{
		BattleID:   "local",
		AttackerID: "attacker",
		Attacker:   attacker,
		Defender: &arena.DefenseBuild{
			PlayerID: "defender",
			Version:  1,
			Loadout:  defender,
		},
		Seed: simSeed,
	})
	if err != nil {
		return err
	}

	fmt.Printf("outcome=%s ticks=%d seed=%d digest=%016x events=%d\n",
		result.Outcome, result.Ticks, result.Seed, result.Digest, len(result.Events))

	if showReplay {
		enc := json.NewEncoder(os.Stdout)
		for _, ev := range result.Events {
			line := struct {
				arena.Event
				Kind string `json:"kind"`
			}{Event: ev, Kind: ev.Kind.String()}
			if err := enc.Encode(line); err != nil {
				return err
			}
		}
	}
	return nil
}
