package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/epsilon/pkg/cli"
	"mercator-hq/epsilon/pkg/config"
	"mercator-hq/epsilon/pkg/ledger"
	"mercator-hq/epsilon/pkg/ledger/retention"
)

var ledgerListFlags struct {
	limit     int
	offset    int
	operation string
	outcome   string
	since     time.Duration
	ascending bool
}

var ledgerPruneFlags struct {
	days       int
	maxEntries int64
	dryRun     bool
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect and maintain the audit ledger",
	Long: `Inspect and maintain the audit ledger.

The ledger holds one entry per charged release, exhausted request and reset
attempt. Only the sqlite backend persists between runs.`,
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ledger entries",
	Long: `List ledger entries, newest first.

Examples:
  # Last 20 entries
  epsilon ledger list --limit 20

  # Refused resets in the last day, as JSON
  epsilon ledger list --operation reset --outcome refused --since 24h -o json`,
	Args: cobra.NoArgs,
	RunE: runLedgerList,
}

var ledgerPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy once",
	Long: `Delete ledger entries older than the retention period and, if a cap is
set, all but the newest entries.

Examples:
  # Use the configured retention
  epsilon ledger prune

  # Keep 30 days and at most 5000 entries
  epsilon ledger prune --days 30 --max-entries 5000`,
	Args: cobra.NoArgs,
	RunE: runLedgerPrune,
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerListCmd, ledgerPruneCmd)

	ledgerListCmd.Flags().IntVar(&ledgerListFlags.limit, "limit", config.DefaultLedgerQueryDefaultLimit, "maximum entries to show")
	ledgerListCmd.Flags().IntVar(&ledgerListFlags.offset, "offset", 0, "entries to skip")
	ledgerListCmd.Flags().StringVar(&ledgerListFlags.operation, "operation", "", "filter by operation (mean, count, reset, ...)")
	ledgerListCmd.Flags().StringVar(&ledgerListFlags.outcome, "outcome", "", "filter by outcome (charged, exhausted, reset, refused)")
	ledgerListCmd.Flags().DurationVar(&ledgerListFlags.since, "since", 0, "only entries newer than this duration")
	ledgerListCmd.Flags().BoolVar(&ledgerListFlags.ascending, "asc", false, "oldest first")

	ledgerPruneCmd.Flags().IntVar(&ledgerPruneFlags.days, "days", -1, "retention in days (default from config)")
	ledgerPruneCmd.Flags().Int64Var(&ledgerPruneFlags.maxEntries, "max-entries", -1, "entry cap (default from config)")
	ledgerPruneCmd.Flags().BoolVar(&ledgerPruneFlags.dryRun, "dry-run", false, "report the entry count without deleting")
}

// entryTable renders ledger entries for the text and csv formats.
type entryTable []*ledger.Entry

func (t entryTable) Header() []string {
	return []string{"TIMESTAMP", "OPERATION", "OUTCOME", "REQUESTED", "RECORDED", "USED", "TOTAL", "CLAMPED", "REQUEST ID"}
}

func (t entryTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, e := range t {
		rows = append(rows, []string{
			e.Timestamp.UTC().Format(time.RFC3339),
			e.Operation,
			string(e.Outcome),
			formatFloat(e.Requested),
			formatFloat(e.Recorded),
			formatFloat(e.UsedAfter),
			formatFloat(e.Total),
			strconv.FormatBool(e.Clamped),
			e.RequestID,
		})
	}
	return rows
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func loadLedgerConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	if cfg.Ledger.Backend == "memory" {
		return nil, cli.NewConfigError("ledger.backend", "the memory ledger does not outlive the server; configure the sqlite backend")
	}
	return cfg, nil
}

func runLedgerList(cmd *cobra.Command, args []string) error {
	f, err := formatter()
	if err != nil {
		return err
	}
	cfg, err := loadLedgerConfig()
	if err != nil {
		return err
	}

	store, err := openLedger(&cfg.Ledger, slog.Default())
	if err != nil {
		return cli.NewCommandError("ledger list", err)
	}
	defer store.Close()

	q := &ledger.Query{
		Operation: ledgerListFlags.operation,
		Outcome:   ledger.Outcome(ledgerListFlags.outcome),
		Limit:     ledgerListFlags.limit,
		Offset:    ledgerListFlags.offset,
	}
	if ledgerListFlags.since > 0 {
		start := time.Now().Add(-ledgerListFlags.since)
		q.StartTime = &start
	}
	if ledgerListFlags.ascending {
		q.SortOrder = "asc"
	}

	return listLedger(cmd.Context(), cmd.OutOrStdout(), f, store, q)
}

func listLedger(ctx context.Context, w io.Writer, f cli.Formatter, store ledger.Storage, q *ledger.Query) error {
	if ctx == nil {
		ctx = context.Background()
	}
	entries, err := store.Query(ctx, q)
	if err != nil {
		return cli.NewCommandError("ledger list", err)
	}
	return f.FormatTo(w, entryTable(entries))
}

func runLedgerPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadLedgerConfig()
	if err != nil {
		return err
	}

	store, err := openLedger(&cfg.Ledger, slog.Default())
	if err != nil {
		return cli.NewCommandError("ledger prune", err)
	}
	defer store.Close()

	rc := &retention.Config{
		RetentionDays: cfg.Ledger.Retention.Days,
		MaxEntries:    cfg.Ledger.Retention.MaxEntries,
	}
	if ledgerPruneFlags.days >= 0 {
		rc.RetentionDays = ledgerPruneFlags.days
	}
	if ledgerPruneFlags.maxEntries >= 0 {
		rc.MaxEntries = ledgerPruneFlags.maxEntries
	}

	return pruneLedger(cmd.Context(), cmd.OutOrStdout(), store, rc, ledgerPruneFlags.dryRun)
}

func pruneLedger(ctx context.Context, w io.Writer, store ledger.Storage, rc *retention.Config, dryRun bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if dryRun {
		n, err := store.Count(ctx, &ledger.Query{})
		if err != nil {
			return cli.NewCommandError("ledger prune", err)
		}
		fmt.Fprintf(w, "Dry run: %d entries, retention %d days, cap %d\n", n, rc.RetentionDays, rc.MaxEntries)
		return nil
	}

	deleted, err := retention.NewPruner(store, rc).Prune(ctx)
	if err != nil {
		return cli.NewCommandError("ledger prune", err)
	}
	fmt.Fprintf(w, "✓ Pruned %d entries\n", deleted)
	return nil
}
