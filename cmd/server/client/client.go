// Package client provides commands that call the arena gRPC service
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"gopkg.in/yaml.v3"

	"github.com/KirkDiggler/rpg-arena/internal/entities/arena"
	"github.com/KirkDiggler/rpg-arena/internal/errors"
	"github.com/KirkDiggler/rpg-arena/internal/handlers/arena/v1alpha1"
)

var (
	// Connection flags
	serverAddr string
	timeout    time.Duration
)

// ClientCmd is the root command for all client commands
var ClientCmd = &cobra.Command{
	Use:   "client",
	Short: "Call the arena service",
	Long:  `Client commands make real gRPC requests against a running arena server.`,
}

func init() {
	ClientCmd.PersistentFlags().StringVar(&serverAddr, "server", "localhost:50051", "gRPC server address")
	ClientCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	ClientCmd.AddCommand(opponentsCmd)
	ClientCmd.AddCommand(challengeCmd)
	ClientCmd.AddCommand(setDefenseCmd)
	ClientCmd.AddCommand(profileCmd)
	ClientCmd.AddCommand(battleCmd)
	ClientCmd.AddCommand(historyCmd)
}

// createArenaClient dials the server and returns a client with its cleanup
func createArenaClient() (*v1alpha1.Client, func(), error) {
	conn, err := grpc.NewClient(serverAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to server: %w", err)
	}

	cleanup := func() {
		_ = conn.Close() // nolint:errcheck // safe to ignore in cleanup
	}
	return v1alpha1.NewClient(conn), cleanup, nil
}

// call runs fn with a connected client and the request timeout
func call(fn func(ctx context.Context, client *v1alpha1.Client) error) error {
	client, cleanup, err := createArenaClient()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := fn(ctx, client); err != nil {
		return describe(err)
	}
	return nil
}

// describe turns a status error back into a readable arena error
func describe(err error) error {
	back := errors.FromGRPCError(err)
	if reason := errors.GetReason(back); reason != "" {
		return fmt.Errorf("%s (%s): %s", errors.GetCode(back), reason, errors.GetMessage(back))
	}
	return back
}

// readLoadout loads a loadout from a YAML or JSON file
func readLoadout(path string) (*v1alpha1.Loadout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read loadout: %w", err)
	}

	var loadout arena.Loadout
	if err := yaml.Unmarshal(data, &loadout); err != nil {
		return nil, fmt.Errorf("failed to parse loadout %s: %w", path, err)
	}
	wire := v1alpha1.LoadoutFrom(loadout)
	return &wire, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
