package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/epsilon/pkg/ledger"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to keep entries.
	// 0 keeps entries forever.
	RetentionDays int

	// PruneSchedule is a cron expression. Empty disables scheduling.
	PruneSchedule string

	// MaxEntries caps the number of entries kept. 0 means unlimited.
	MaxEntries int64

	// Logger receives pruning diagnostics. Default: slog.Default().
	Logger *slog.Logger

	// OnPrune, if set, is called with the number of entries each Prune
	// removed.
	OnPrune func(deleted int64)
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 90,
		PruneSchedule: "0 3 * * *",
	}
}

// Pruner enforces retention on a ledger storage backend.
type Pruner struct {
	storage   ledger.Storage
	config    *Config
	logger    *slog.Logger
	scheduler *Scheduler
	now       func() time.Time
}

// NewPruner creates a new retention pruner.
func NewPruner(storage ledger.Storage, config *Config) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pruner{
		storage: storage,
		config:  config,
		logger:  logger.With("component", "ledger.retention"),
		now:     time.Now,
	}
	p.scheduler = NewScheduler(p)

	return p
}

// Prune deletes entries older than the retention period, then the oldest
// entries beyond MaxEntries. It returns the total number deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.RetentionDays > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return total, fmt.Errorf("prune by age failed: %w", err)
		}
		total += deleted
	}

	if p.config.MaxEntries > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return total, fmt.Errorf("prune by count failed: %w", err)
		}
		total += deleted
	}

	if p.config.OnPrune != nil {
		p.config.OnPrune(total)
	}

	if total > 0 {
		p.logger.Info("ledger pruning completed",
			"total_deleted", total,
			"retention_days", p.config.RetentionDays,
			"max_entries", p.config.MaxEntries,
		)
	} else {
		p.logger.Debug("no ledger entries pruned")
	}

	return total, nil
}

// PruneOlderThan deletes entries older than cutoff regardless of the
// configured retention.
func (p *Pruner) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	deleted, err := p.storage.Delete(ctx, &ledger.Query{EndTime: &cutoff})
	if err != nil {
		return 0, ledger.NewRetentionError(p.config.RetentionDays, err)
	}
	return deleted, nil
}

func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := p.now().AddDate(0, 0, -p.config.RetentionDays)

	p.logger.Debug("pruning by age",
		"cutoff_time", cutoff,
		"retention_days", p.config.RetentionDays,
	)

	return p.PruneOlderThan(ctx, cutoff)
}

func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	if count <= p.config.MaxEntries {
		return 0, nil
	}

	// Newest first; the entry at index MaxEntries is the newest one to drop.
	excess, err := p.storage.Query(ctx, &ledger.Query{
		Offset: int(p.config.MaxEntries),
		Limit:  1,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to query entries: %w", err)
	}
	if len(excess) == 0 {
		return 0, nil
	}

	cutoff := excess[0].Timestamp
	deleted, err := p.storage.Delete(ctx, &ledger.Query{EndTime: &cutoff})
	if err != nil {
		return 0, fmt.Errorf("delete failed: %w", err)
	}
	return deleted, nil
}

// Start starts the pruning scheduler.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the pruning scheduler.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled pruning, or nil.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
