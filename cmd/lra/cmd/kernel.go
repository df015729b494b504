package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/prith27/lra/internal/config"
	"github.com/prith27/lra/internal/kernel"
	"github.com/prith27/lra/internal/logger"
)

var kernelCmd = &cobra.Command{
	Use:   "kernel",
	Short: "Run the in-container execution kernel",
	Long:  "Run the execution kernel HTTP server. This is the container entrypoint; it is not meant to be run on the host.",
	RunE:  runKernel,
}

func runKernel(cmd *cobra.Command, args []string) error {
	cfg, err := config.New(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	runner := kernel.NewPythonRunner(cfg.Kernel.Python, cfg.KernelTimeout(), log)
	srv := kernel.NewServer(runner, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(cfg.Kernel.Addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
