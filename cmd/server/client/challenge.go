package client

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/rpg-arena/internal/handlers/arena/v1alpha1"
)

var (
	challengerID string
	opponentID   string
	loadoutPath  string
)

var challengeCmd = &cobra.Command{
	Use:   "challenge",
	Short: "Challenge an opponent's defense build",
	Long: `Spend an attempt and fight the opponent's current defense build.
Without --loadout the challenger fights with their own defense build.`,
	RunE: runChallenge,
}

func init() {
	challengeCmd.Flags().StringVar(&challengerID, "player-id", "", "Challenging player ID (required)")
	challengeCmd.Flags().StringVar(&opponentID, "opponent-id", "", "Defending player ID (required)")
	challengeCmd.Flags().StringVar(&loadoutPath, "loadout", "", "YAML or JSON loadout file")
	_ = challengeCmd.MarkFlagRequired("player-id")   // nolint:errcheck // safe to ignore in init
	_ = challengeCmd.MarkFlagRequired("opponent-id") // nolint:errcheck // safe to ignore in init
}

func runChallenge(_ *cobra.Command, _ []string) error {
	req := &v1alpha1.ChallengeRequest{
		PlayerID:   challengerID,
		OpponentID: opponentID,
	}
	if loadoutPath != "" {
		loadout, err := readLoadout(loadoutPath)
		if err != nil {
			return err
		}
		req.Loadout = loadout
	}

	return call(func(ctx context.Context, client *v1alpha1.Client) error {
		resp, err := client.Challenge(ctx, req)
		if err != nil {
			return err
		}

		b := resp.Battle
		fmt.Printf("Battle %s: %s after %d ticks\n", b.BattleID, b.Outcome, b.Ticks)
		fmt.Printf("  %s %d -> %d (%+d)\n", b.AttackerID, b.AttackerRating, resp.Attacker.Rating, b.AttackerDelta)
		fmt.Printf("  %s %d -> %d (%+d)\n", b.DefenderID, b.DefenderRating, resp.Defender.Rating, b.DefenderDelta)
		fmt.Printf("  seed=%d digest=%s\n", b.Seed, b.Digest)
		fmt.Printf("  attempts left: %d\n", resp.Attacker.AttemptsRemaining)
		return nil
	})
}
