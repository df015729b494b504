package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var execSandboxID string

var execCmd = &cobra.Command{
	Use:   "exec [code]",
	Short: "Execute code in a sandbox",
	Long:  "Execute Python code in a sandbox on a running server. Code is taken from the argument, or from stdin when no argument is given. Without --sandbox a fresh sandbox is created and deleted afterwards.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExec,
}

func init() {
	execCmd.Flags().StringVar(&execSandboxID, "sandbox", "", "existing sandbox id (default: create and delete a temporary one)")
}

func runExec(cmd *cobra.Command, args []string) error {
	var code string
	if len(args) == 1 {
		code = args[0]
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read code from stdin: %w", err)
		}
		code = string(data)
	}
	if code == "" {
		return fmt.Errorf("no code given")
	}

	c, err := apiClient()
	if err != nil {
		return err
	}
	ctx, cancel := cmdContext()
	defer cancel()

	id := execSandboxID
	if id == "" {
		info, err := c.CreateSandbox(ctx, "python")
		if err != nil {
			return err
		}
		id = info.ID
		defer func() {
			if err := c.DeleteSandbox(ctx, id); err != nil {
				fmt.Fprintln(os.Stderr, "warning: failed to delete sandbox:", err)
			}
		}()
	}

	result, err := c.Execute(ctx, id, code)
	if err != nil {
		return err
	}

	fmt.Print(result.Stdout)
	if result.Stderr != "" {
		fmt.Fprint(os.Stderr, result.Stderr)
	}
	if !result.Success {
		cmd.SilenceUsage = true
		return fmt.Errorf("execution failed")
	}
	return nil
}
