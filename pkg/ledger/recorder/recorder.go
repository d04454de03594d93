package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/epsilon/pkg/ledger"
)

// Config contains configuration for the ledger recorder.
type Config struct {
	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// EnqueueTimeout bounds how long Record waits for buffer space.
	// Default: 1 second
	EnqueueTimeout time.Duration

	// WriteTimeout is the timeout for a single storage write.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// Logger receives recorder diagnostics. Default: slog.Default().
	Logger *slog.Logger

	// OnWrite, if set, is called after each storage write.
	OnWrite func(err error, d time.Duration)
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		AsyncBuffer:    1000,
		EnqueueTimeout: time.Second,
		WriteTimeout:   5 * time.Second,
	}
}

// Recorder accepts ledger entries and writes them to storage from a single
// background worker.
type Recorder struct {
	storage ledger.Storage
	config  *Config
	entries chan *ledger.Entry
	done    chan struct{}
	wg      sync.WaitGroup
	logger  *slog.Logger

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewRecorder creates a recorder and starts its worker.
func NewRecorder(storage ledger.Storage, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.AsyncBuffer <= 0 {
		config.AsyncBuffer = 1000
	}
	if config.EnqueueTimeout <= 0 {
		config.EnqueueTimeout = time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		storage: storage,
		config:  config,
		entries: make(chan *ledger.Entry, config.AsyncBuffer),
		done:    make(chan struct{}),
		logger:  logger.With("component", "ledger.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Debug("ledger recorder initialized",
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
	)

	return r
}

// Record enqueues an entry. Missing IDs and timestamps are filled in. Record
// returns a *ledger.RecorderError if the entry could not be enqueued; the
// entry is dropped in that case.
func (r *Recorder) Record(ctx context.Context, entry *ledger.Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.logger.Warn("recorder closed, dropping entry", "entry_id", entry.ID)
		return ledger.NewRecorderError(entry.ID, context.Canceled)
	}

	timer := time.NewTimer(r.config.EnqueueTimeout)
	defer timer.Stop()

	select {
	case r.entries <- entry:
		return nil
	case <-ctx.Done():
		return ledger.NewRecorderError(entry.ID, ctx.Err())
	case <-timer.C:
		r.logger.Error("ledger channel full, dropping entry",
			"entry_id", entry.ID,
			"channel_capacity", r.config.AsyncBuffer,
		)
		return ledger.NewRecorderError(entry.ID, context.DeadlineExceeded)
	}
}

// Close stops accepting entries, drains the buffer and waits for pending
// writes. Close is idempotent and does not close the storage.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		// Record holds the read lock while sending, so once the write lock is
		// held no sender can be mid-send.
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()

		close(r.done)
		r.wg.Wait()
		r.logger.Debug("ledger recorder shut down")
	})
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case e := <-r.entries:
			r.write(e)
		case <-r.done:
			for {
				select {
				case e := <-r.entries:
					r.write(e)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(e *ledger.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	err := r.storage.Append(ctx, e)
	d := time.Since(start)

	if r.config.OnWrite != nil {
		r.config.OnWrite(err, d)
	}

	if err != nil {
		r.logger.Error("failed to store ledger entry",
			"entry_id", e.ID,
			"operation", e.Operation,
			"error", err,
		)
		return
	}

	r.logger.Debug("ledger entry recorded",
		"entry_id", e.ID,
		"operation", e.Operation,
		"outcome", e.Outcome,
		"duration_ms", d.Milliseconds(),
	)
}
