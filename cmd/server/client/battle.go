package client

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/rpg-arena/internal/handlers/arena/v1alpha1"
)

var (
	battleID     string
	withReplay   bool
	historyOf    string
	historyLimit int
)

var battleCmd = &cobra.Command{
	Use:   "battle",
	Short: "Show a stored battle",
	RunE: func(_ *cobra.Command, _ []string) error {
		return call(func(ctx context.Context, client *v1alpha1.Client) error {
			resp, err := client.GetBattle(ctx, &v1alpha1.GetBattleRequest{
				BattleID:   battleID,
				WithReplay: withReplay,
			})
			if err != nil {
				return err
			}
			return printJSON(resp.Battle)
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List a player's recent battles",
	RunE: func(_ *cobra.Command, _ []string) error {
		return call(func(ctx context.Context, client *v1alpha1.Client) error {
			resp, err := client.ListHistory(ctx, &v1alpha1.ListHistoryRequest{
				PlayerID: historyOf,
				Limit:    historyLimit,
			})
			if err != nil {
				return err
			}

			for _, b := range resp.Battles {
				fmt.Printf("%s  %s  %s vs %s  %s (%+d/%+d)\n",
					b.CreatedAt.Format("2006-01-02 15:04"), b.BattleID,
					b.AttackerID, b.DefenderID, b.Outcome,
					b.AttackerDelta, b.DefenderDelta)
			}
			return nil
		})
	},
}

func init() {
	battleCmd.Flags().StringVar(&battleID, "battle-id", "", "Battle ID (required)")
	battleCmd.Flags().BoolVar(&withReplay, "replay", false, "Include the replay events")
	_ = battleCmd.MarkFlagRequired("battle-id") // nolint:errcheck // safe to ignore in init

	historyCmd.Flags().StringVar(&historyOf, "player-id", "", "Player ID (required)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of battles")
	_ = historyCmd.MarkFlagRequired("player-id") // nolint:errcheck // safe to ignore in init
}
