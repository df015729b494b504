package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prith27/lra/internal/config"
	"github.com/prith27/lra/internal/logger"
	"github.com/prith27/lra/internal/manager"
	"github.com/prith27/lra/internal/sandbox"
	"github.com/prith27/lra/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the sandbox API server",
	Long:  "Start the HTTP server that provisions sandboxes and routes screened code into them.",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.New(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	mgr, err := manager.New(manager.Config{
		Sandbox: sandbox.Config{
			Image:      cfg.Sandbox.Image,
			MemoryMB:   int64(cfg.Sandbox.MemoryMB),
			CPUPercent: cfg.Sandbox.CPUPercent,
			PidsLimit:  int64(cfg.Sandbox.PidsLimit),
			KernelPort: cfg.Sandbox.KernelPort,
			StopGrace:  cfg.StopGrace(),
		},
		ExecTimeout:  cfg.ExecTimeout(),
		IdleTTL:      cfg.IdleTTL(),
		ReapInterval: cfg.ReapInterval(),
	}, log)
	if err != nil {
		return fmt.Errorf("failed to create sandbox manager: %w", err)
	}
	mgr.StartReaper()

	srv := server.New(server.Config{
		Addr:            cfg.Server.Addr,
		APIKey:          cfg.Server.APIKey,
		RateLimitMax:    cfg.Server.RateLimitMax,
		RateLimitWindow: cfg.RateLimitWindow(),
	}, mgr, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		mgr.Shutdown(context.Background())
		return err
	case sig := <-sigCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	mgr.Shutdown(ctx)
	return nil
}
