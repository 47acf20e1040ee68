package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"CashNudge/internal/api"
	"CashNudge/internal/logger"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the nightly scheduler",
	RunE:  runServe,
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx = logger.WithContext(ctx, a.log)

	a.scheduler.Start()
	defer a.scheduler.Stop()

	if os.Getenv("RUN_ON_START") == "true" {
		a.log.Info().Msg("RUN_ON_START enabled, executing nightly task now")
		a.scheduler.RunAsync(ctx)
	}

	h := api.NewHandler(a.store, a.positions, a.quickAdd, a.dispatcher, a.log)
	srv := api.NewApp(h)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(a.cfg.Server.Addr)
	}()
	a.log.Info().Str("addr", a.cfg.Server.Addr).Msg("cashnudge is running")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutdown signal received, stopping")
	return srv.ShutdownWithTimeout(10 * time.Second)
}
