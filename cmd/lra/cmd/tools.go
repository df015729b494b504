package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prith27/lra/internal/config"
	"github.com/prith27/lra/internal/tools"
)

var (
	toolParams    string
	toolDocstring string
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Manage the dynamic tool registry",
}

func toolRegistry() (*tools.Registry, error) {
	cfg, err := config.New(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return tools.NewRegistry(cfg.Tools.Dir), nil
}

var toolsRegisterCmd = &cobra.Command{
	Use:   "register <name> <body>",
	Short: "Register a new tool",
	Long:  "Register a Python function as a tool. The body is the function body; it is screened like any other code before being accepted.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := toolRegistry()
		if err != nil {
			return err
		}
		entry, err := r.Register(args[0], toolParams, args[1], toolDocstring)
		if err != nil {
			return err
		}
		fmt.Printf("registered %s(%s)\n", entry.Name, entry.Params)
		return nil
	},
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := toolRegistry()
		if err != nil {
			return err
		}
		entries, err := r.List()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No tools registered.")
			return nil
		}
		for _, e := range entries {
			if e.Docstring != "" {
				fmt.Printf("%s(%s)  %s\n", e.Name, e.Params, e.Docstring)
			} else {
				fmt.Printf("%s(%s)\n", e.Name, e.Params)
			}
		}
		return nil
	},
}

var toolsRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a registered tool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := toolRegistry()
		if err != nil {
			return err
		}
		if err := r.Remove(args[0]); err != nil {
			return err
		}
		fmt.Println("removed", args[0])
		return nil
	},
}

func init() {
	toolsRegisterCmd.Flags().StringVar(&toolParams, "params", "", "comma-separated parameter list")
	toolsRegisterCmd.Flags().StringVar(&toolDocstring, "doc", "", "one-line docstring")

	toolsCmd.AddCommand(toolsRegisterCmd)
	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsRemoveCmd)
}
