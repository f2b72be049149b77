package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/balance-validator/internal/analysis"
	"github.com/jonathan/balance-validator/internal/config"
	"github.com/jonathan/balance-validator/internal/history"
	"github.com/jonathan/balance-validator/internal/logging"
	"github.com/jonathan/balance-validator/internal/storage"
)

// globalOptions holds the persistent flags.
type globalOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "balance_validator",
		Short: "Financial statement validator",
		Long: "balance_validator checks financial-statement PDFs against the audit checklist, " +
			"shows the verdict, exports it to Excel and keeps a local history of past runs.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to a JSON or YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newServeCmd(opts), newAnalyzeCmd(opts), newHistoryCmd(opts))
	return cmd
}

// app holds what every command needs: configuration, logger and history.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	storage storage.Storage
	history *history.Store
}

func openApp(ctx context.Context, opts *globalOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath, os.Getenv)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.verbose {
		cfg.Verbose = true
	}

	logger, err := logging.New(cfg.Verbose)
	if err != nil {
		return nil, err
	}

	st, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open history storage: %w", err)
	}
	logger.Debug("history storage opened", zap.String("backend", cfg.History.Backend))

	return &app{
		cfg:     cfg,
		logger:  logger,
		storage: st,
		history: history.NewStore(st, logger),
	}, nil
}

// analyzer builds the configured analysis backend. The caller closes it.
func (a *app) analyzer(ctx context.Context) (analysis.Client, error) {
	opts, err := a.cfg.AnalysisOptions()
	if err != nil {
		return nil, err
	}
	client, err := analysis.New(ctx, opts, a.logger)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("analysis backend ready", zap.String("backend", analysis.ResolveBackend(opts)))
	return client, nil
}

func (a *app) Close() error {
	err := a.storage.Close()
	_ = a.logger.Sync()
	return err
}
