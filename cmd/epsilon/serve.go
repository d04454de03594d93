package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/epsilon/pkg/accountant"
	"mercator-hq/epsilon/pkg/cli"
	"mercator-hq/epsilon/pkg/config"
	"mercator-hq/epsilon/pkg/ledger/recorder"
	"mercator-hq/epsilon/pkg/ledger/retention"
	"mercator-hq/epsilon/pkg/mechanism"
	"mercator-hq/epsilon/pkg/server"
	"mercator-hq/epsilon/pkg/telemetry"
	"mercator-hq/epsilon/pkg/telemetry/health"
)

var serveFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	noWatch       bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the accountant over HTTP",
	Long: `Build an accountant from the configured dataset and serve it over HTTP.

Every release is charged against the configured budget and journaled to the
ledger. Changes to the config file adjust the log level without a restart.

Examples:
  # Start with default config
  epsilon serve

  # Start with custom config
  epsilon serve --config /etc/epsilon/config.yaml

  # Override listen address
  epsilon serve --listen 0.0.0.0:8080

  # Validate config without starting server
  epsilon serve --dry-run`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config without starting server")
	serveCmd.Flags().BoolVar(&serveFlags.noWatch, "no-watch", false, "do not reload the config file on change")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}
	if serveFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = serveFlags.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("", err.Error())
	}

	out := cmd.OutOrStdout()
	if serveFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	ctx, cancel := cli.SetupSignalHandler(cmd.Context())
	defer cancel()

	return serve(ctx, out, cfg)
}

// serve runs the server until ctx is cancelled.
func serve(ctx context.Context, out io.Writer, cfg *config.Config) error {
	printBanner(out, cfg)

	tel, err := telemetry.New(&cfg.Telemetry, telemetry.Options{
		Secrets: []string{cfg.Accountant.DebugPassword},
	})
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	logger := tel.Logger().Slog()
	slog.SetDefault(logger)
	collector := tel.Metrics()

	store, err := openLedger(&cfg.Ledger, logger)
	if err != nil {
		return cli.NewCommandError("serve", fmt.Errorf("failed to open ledger: %w", err))
	}
	defer store.Close()
	fmt.Fprintf(out, "✓ Ledger opened (%s)\n", cfg.Ledger.Backend)

	rec := recorder.NewRecorder(store, &recorder.Config{
		AsyncBuffer:    cfg.Ledger.Recorder.AsyncBuffer,
		EnqueueTimeout: cfg.Ledger.Recorder.EnqueueTimeout,
		WriteTimeout:   cfg.Ledger.Recorder.WriteTimeout,
		Logger:         logger,
		OnWrite:        collector.RecordLedgerWrite,
	})
	defer rec.Close()

	pruner := retention.NewPruner(store, &retention.Config{
		RetentionDays: cfg.Ledger.Retention.Days,
		PruneSchedule: cfg.Ledger.Retention.Schedule,
		MaxEntries:    cfg.Ledger.Retention.MaxEntries,
		Logger:        logger,
		OnPrune:       collector.RecordLedgerPruned,
	})
	if err := pruner.Start(ctx); err != nil {
		return cli.NewCommandError("serve", fmt.Errorf("failed to start retention: %w", err))
	}
	defer pruner.Stop()
	if next := pruner.NextPruning(); next != nil {
		fmt.Fprintf(out, "✓ Retention scheduled (next run %s)\n", next.Format(time.RFC3339))
	}

	engine, err := mechanism.NewNoiseEngine(mechanism.NoiseConfig{
		Kind:  mechanism.NoiseKind(cfg.Mechanism.Kind),
		Delta: cfg.Mechanism.Delta,
	})
	if err != nil {
		return cli.NewCommandError("serve", err)
	}

	acct, err := accountant.New(ctx, engine, cfg.Dataset.Data(),
		accountant.WithTotalBudget(cfg.Accountant.TotalBudget),
		accountant.WithAdmin(accountant.AdminConfig{
			DebugPassword: cfg.Accountant.DebugPassword,
			DebugMode:     cfg.Accountant.DebugMode,
		}),
		accountant.WithStrictAccounting(cfg.Accountant.StrictAccounting),
		accountant.WithReportingSlack(cfg.Accountant.ReportingSlack),
		accountant.WithLogger(logger),
		accountant.WithMetrics(collector),
		accountant.WithTracer(tel.Tracer().Tracer()),
		accountant.WithJournal(rec),
	)
	if err != nil {
		return cli.NewCommandError("serve", fmt.Errorf("failed to create accountant: %w", err))
	}
	defer acct.Close()
	fmt.Fprintf(out, "✓ Accountant ready (budget %v, %s noise)\n", acct.Total(), engine.Kind())

	checker := tel.Health()
	checker.RegisterCheck("accountant", health.PingCheck("accountant", acct))
	checker.RegisterCheck("ledger", health.PingCheck("ledger", store))

	if !serveFlags.noWatch {
		watchConfig(ctx, tel, logger)
	}

	srv, err := server.New(&cfg.Server, server.Options{
		Accountant:   acct,
		Ledger:       store,
		Query:        cfg.Ledger.Query,
		Metrics:      collector,
		Tracer:       tel.Tracer(),
		Health:       checker,
		HealthConfig: cfg.Telemetry.Health,
		Version:      versionInfo(),
		Logger:       logger,
	})
	if err != nil {
		return cli.NewCommandError("serve", err)
	}

	fmt.Fprintf(out, "✓ Listening on %s\n", cfg.Server.ListenAddress)
	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}

	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}

// watchConfig applies log level changes from the config file until ctx is
// cancelled. A watcher that cannot start is logged and skipped.
func watchConfig(ctx context.Context, tel *telemetry.Telemetry, logger *slog.Logger) {
	w, err := config.NewWatcher(cfgFile, 0, logger)
	if err != nil {
		logger.Warn("config watcher disabled", "error", err)
		return
	}

	go func() {
		err := w.Watch(ctx, func(c *config.Config) {
			if err := tel.Logger().SetLevel(c.Telemetry.Logging.Level); err != nil {
				logger.Warn("ignoring log level change", "level", c.Telemetry.Logging.Level, "error", err)
				return
			}
			logger.Info("log level updated", "level", c.Telemetry.Logging.Level)
		})
		if err != nil && ctx.Err() == nil {
			logger.Error("config watcher stopped", "error", err)
		}
	}()
}

func printBanner(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Epsilon - privacy budget accountant")
	fmt.Fprintf(w, "Version: %s\n", Version)
	fmt.Fprintf(w, "Config:  %s\n", cfgFile)
	fmt.Fprintf(w, "Budget:  %v\n", cfg.Accountant.TotalBudget)
	fmt.Fprintln(w)
}
