package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/rpg-arena/internal/config"
	"github.com/KirkDiggler/rpg-arena/internal/entities/arena"
	arenaorch "github.com/KirkDiggler/rpg-arena/internal/orchestrators/arena"
	"github.com/KirkDiggler/rpg-arena/internal/pkg/clock"
	redisclient "github.com/KirkDiggler/rpg-arena/internal/redis"
	arenaprofile "github.com/KirkDiggler/rpg-arena/internal/repositories/arena_profile"
	battleresult "github.com/KirkDiggler/rpg-arena/internal/repositories/battle_result"
)

var applyRepair bool

var repairCmd = &cobra.Command{
	Use:   "repair-ladder",
	Short: "Check arena profiles, the season ladder and unrated battles",
	Long: `Scan stored arena profiles and the season ladder for unreadable
profiles, ladder members without a profile and drifted ladder scores, and
list stored battles whose rating change was never confirmed.
Nothing is changed unless --fix is given. With --fix the unrated battles
have their rating applied.`,
	RunE: runRepair,
}

func init() {
	repairCmd.Flags().StringVar(&configPath, "config", "", "YAML config file")
	repairCmd.Flags().StringVar(&redisAddr, "redis-addr", "", "Redis address")
	repairCmd.Flags().BoolVar(&applyRepair, "fix", false, "Apply the repairs")
	rootCmd.AddCommand(repairCmd)
}

func runRepair(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	client, err := newRedisClient(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer func() { _ = client.Close() }()

	repo, err := arenaprofile.NewRedis(&arenaprofile.RedisConfig{
		Client:         client,
		Clock:          clock.New(),
		SeasonID:       cfg.Arena.SeasonID,
		StartingRating: cfg.Arena.StartingRating,
		Attempts: arena.AttemptPolicy{
			Max:            cfg.Arena.MaxAttempts,
			RefillInterval: cfg.Arena.RefillInterval,
		},
	})
	if err != nil {
		return err
	}

	report, err := repo.Repair(cmd.Context(), arenaprofile.RepairInput{Fix: applyRepair})
	if err != nil {
		return err
	}

	fmt.Printf("Checked %d profiles in season %s\n", report.Checked, cfg.Arena.SeasonID)
	printIDs("Corrupted profiles", report.Corrupted)
	printIDs("Ladder members without a profile", report.Orphaned)
	printIDs("Drifted ladder scores", report.Drifted)
	pending := len(report.Corrupted) + len(report.Orphaned) + len(report.Drifted)

	unrated, err := repairRatings(cmd, cfg, client)
	if err != nil {
		return err
	}
	pending += unrated

	if !applyRepair && pending > 0 {
		fmt.Println("Run with --fix to apply.")
	}
	return nil
}

// repairRatings lists unrated battles, or applies them with --fix. It
// returns how many are still waiting.
func repairRatings(cmd *cobra.Command, cfg *config.Config, client redisclient.Client) (int, error) {
	if !applyRepair {
		results, err := battleresult.NewRedis(&battleresult.RedisConfig{Client: client, HistoryLimit: cfg.Arena.HistoryLimit})
		if err != nil {
			return 0, err
		}
		out, err := results.ListUnrated(cmd.Context(), battleresult.ListUnratedInput{})
		if err != nil {
			return 0, err
		}
		ids := make([]string, 0, len(out.Results))
		for _, res := range out.Results {
			ids = append(ids, res.BattleID)
		}
		printIDs("Battles with an unconfirmed rating", ids)
		printIDs("Unrated entries without a result", out.Missing)
		return len(ids) + len(out.Missing), nil
	}

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return 0, err
	}
	svc, err := buildArena(cfg, client, cat)
	if err != nil {
		return 0, err
	}
	out, err := svc.ReconcileRatings(cmd.Context(), &arenaorch.ReconcileRatingsInput{})
	if err != nil {
		return 0, err
	}
	printIDs("Battles rated", out.Applied)
	printIDs("Battles confirmed", out.Confirmed)
	printIDs("Battles that failed to rate", out.Failed)
	return len(out.Failed), nil
}

func printIDs(label string, ids []string) {
	if len(ids) == 0 {
		return
	}
	fmt.Printf("%s (%d): %s\n", label, len(ids), strings.Join(ids, ", "))
}
