package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/balance-validator/internal/server"
	"github.com/jonathan/balance-validator/internal/server/ratelimit"
	"github.com/jonathan/balance-validator/internal/workflow"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(g *globalOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web interface and JSON API",
		Long:  `Start an HTTP server with the upload, processing, results and history screens and the /api endpoints behind them.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), g, port)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (overrides config, default 8080)")
	return cmd
}

func runServe(ctx context.Context, g *globalOptions, port int) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, g)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	client, err := a.analyzer(ctx)
	if err != nil {
		return err
	}
	defer client.Close() //nolint:errcheck

	if port != 0 {
		a.cfg.Server.Port = port
	}
	ctrl := workflow.New(client, a.history, a.logger)
	srv, err := server.New(server.Config{
		Port:           a.cfg.Server.Port,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		RateLimit:      ratelimit.ConfigFromEnv(os.Getenv),
	}, ctrl, a.history, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(srv.ListenAndServe)
	eg.Go(func() error {
		<-egCtx.Done()
		a.logger.Info("stopping", zap.Error(context.Cause(egCtx)))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}
