package client

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/rpg-arena/internal/handlers/arena/v1alpha1"
)

var (
	defenderID     string
	defenseLoadout string
)

var setDefenseCmd = &cobra.Command{
	Use:   "set-defense",
	Short: "Capture a new defense build",
	RunE: func(_ *cobra.Command, _ []string) error {
		loadout, err := readLoadout(defenseLoadout)
		if err != nil {
			return err
		}

		return call(func(ctx context.Context, client *v1alpha1.Client) error {
			resp, err := client.SetDefense(ctx, &v1alpha1.SetDefenseRequest{
				PlayerID: defenderID,
				Loadout:  *loadout,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Defense build v%d captured for %s (rating %d)\n",
				resp.Build.Version, resp.Build.PlayerID, resp.Profile.Rating)
			return nil
		})
	},
}

func init() {
	setDefenseCmd.Flags().StringVar(&defenderID, "player-id", "", "Player ID (required)")
	setDefenseCmd.Flags().StringVar(&defenseLoadout, "loadout", "", "YAML or JSON loadout file (required)")
	_ = setDefenseCmd.MarkFlagRequired("player-id") // nolint:errcheck // safe to ignore in init
	_ = setDefenseCmd.MarkFlagRequired("loadout")   // nolint:errcheck // safe to ignore in init
}
