package cmd

import (
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "lra",
	Short: "lra - sandboxed code execution service",
	Long:  `lra runs untrusted Python in per-session Docker containers behind a screened HTTP API.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./lra.yaml, then ~/.lra/lra.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(kernelCmd)
	rootCmd.AddCommand(sandboxesCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(versionCmd)
}
