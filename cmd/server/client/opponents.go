package client

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/rpg-arena/internal/handlers/arena/v1alpha1"
)

var playerID string

var opponentsCmd = &cobra.Command{
	Use:   "opponents",
	Short: "List challengeable opponents",
	Long:  `Fetch the opponents closest in rating to a player.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		return call(func(ctx context.Context, client *v1alpha1.Client) error {
			resp, err := client.GetOpponents(ctx, &v1alpha1.GetOpponentsRequest{PlayerID: playerID})
			if err != nil {
				return err
			}

			if resp.Band == 0 {
				fmt.Println("Opponents (whole ladder)")
			} else {
				fmt.Printf("Opponents (within %d)\n", resp.Band)
			}
			for i, o := range resp.Opponents {
				fmt.Printf("  %d. %s rating=%d build=v%d\n", i+1, o.PlayerID, o.Rating, o.BuildVersion)
			}
			return nil
		})
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show a player's arena profile",
	RunE: func(_ *cobra.Command, _ []string) error {
		return call(func(ctx context.Context, client *v1alpha1.Client) error {
			resp, err := client.GetProfile(ctx, &v1alpha1.GetProfileRequest{PlayerID: playerID})
			if err != nil {
				return err
			}
			return printJSON(resp.Profile)
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{opponentsCmd, profileCmd} {
		cmd.Flags().StringVar(&playerID, "player-id", "", "Player ID (required)")
		_ = cmd.MarkFlagRequired("player-id") // nolint:errcheck // safe to ignore in init
	}
}
