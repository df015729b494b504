package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/prith27/lra/internal/client"
	"github.com/prith27/lra/internal/config"
)

var serverURL string

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://127.0.0.1:8080", "sandbox API server URL")
}

// apiClient builds a client for the configured server, picking up the
// API key from config or environment.
func apiClient() (*client.Client, error) {
	cfg, err := config.New(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	var opts []client.Option
	if cfg.Server.APIKey != "" {
		opts = append(opts, client.WithAPIKey(cfg.Server.APIKey))
	}
	return client.New(serverURL, opts...), nil
}

func cmdContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Minute)
}

var sandboxesCmd = &cobra.Command{
	Use:   "sandboxes",
	Short: "Manage sandboxes on a running server",
}

var sandboxesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new sandbox",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient()
		if err != nil {
			return err
		}
		ctx, cancel := cmdContext()
		defer cancel()

		info, err := c.CreateSandbox(ctx, "python")
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s  port %d\n", info.ID, info.Status, info.Port)
		return nil
	},
}

var sandboxesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active sandboxes",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient()
		if err != nil {
			return err
		}
		ctx, cancel := cmdContext()
		defer cancel()

		infos, err := c.ListSandboxes(ctx)
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Println("No active sandboxes.")
			return nil
		}
		for _, info := range infos {
			fmt.Printf("%s  %s  port %d\n", info.ID, info.Status, info.Port)
		}
		return nil
	},
}

var sandboxesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a sandbox",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient()
		if err != nil {
			return err
		}
		ctx, cancel := cmdContext()
		defer cancel()

		if err := c.DeleteSandbox(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println("deleted", args[0])
		return nil
	},
}

func init() {
	sandboxesCmd.AddCommand(sandboxesCreateCmd)
	sandboxesCmd.AddCommand(sandboxesListCmd)
	sandboxesCmd.AddCommand(sandboxesDeleteCmd)
}
