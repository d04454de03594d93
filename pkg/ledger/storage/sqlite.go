package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
	_ "modernc.org/sqlite"          // registers "sqlite"

	"mercator-hq/epsilon/pkg/ledger"
)

// SQLite driver names.
const (
	DriverModernc = "sqlite"
	DriverMattn   = "sqlite3"
)

// SQLiteConfig contains configuration for the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// Driver is DriverModernc or DriverMattn.
	// Default: DriverModernc
	Driver string

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// CheckpointInterval is how often the WAL is checkpointed.
	// Default: 5 minutes
	CheckpointInterval time.Duration

	// Logger receives backend diagnostics. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:               "data/ledger.db",
		Driver:             DriverModernc,
		BusyTimeout:        5 * time.Second,
		CheckpointInterval: 5 * time.Minute,
	}
}

// SQLiteStorage implements ledger.Storage on SQLite.
type SQLiteStorage struct {
	db        *sql.DB
	config    *SQLiteConfig
	logger    *slog.Logger
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex

	appendStmt *sql.Stmt
}

// NewSQLiteStorage opens (and if needed creates) a ledger database.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Path == "" {
		return nil, ledger.NewStorageError("sqlite", "open", errors.New("path cannot be empty"))
	}
	if config.Driver == "" {
		config.Driver = DriverModernc
	}
	if config.Driver != DriverModernc && config.Driver != DriverMattn {
		return nil, ledger.NewStorageError("sqlite", "open", fmt.Errorf("unknown driver %q", config.Driver))
	}
	if config.BusyTimeout == 0 {
		config.BusyTimeout = 5 * time.Second
	}
	if config.CheckpointInterval == 0 {
		config.CheckpointInterval = 5 * time.Minute
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "ledger.storage.sqlite")

	if dir := filepath.Dir(config.Path); dir != "." && !strings.HasPrefix(config.Path, ":memory:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, ledger.NewStorageError("sqlite", "open", err)
		}
	}

	db, err := sql.Open(config.Driver, config.Path)
	if err != nil {
		return nil, ledger.NewStorageError("sqlite", "open", err)
	}

	// SQLite only supports a single writer; one long-lived connection also
	// keeps the per-connection pragmas in effect.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
		done:   make(chan struct{}),
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	go s.checkpointLoop()

	logger.Info("SQLite ledger initialized",
		"path", config.Path,
		"driver", config.Driver,
	)

	return s, nil
}

// initialize applies pragmas, creates the schema and prepares statements.
func (s *SQLiteStorage) initialize() error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return ledger.NewStorageError("sqlite", "enable_wal", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return ledger.NewStorageError("sqlite", "set_busy_timeout", err)
	}
	if _, err := s.db.Exec("PRAGMA synchronous=NORMAL;"); err != nil {
		return ledger.NewStorageError("sqlite", "set_synchronous", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return ledger.NewStorageError("sqlite", "create_schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion, time.Now().UnixNano()); err != nil {
		return ledger.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil {
		return ledger.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return ledger.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	stmt, err := s.db.Prepare(insertEntry)
	if err != nil {
		return ledger.NewStorageError("sqlite", "prepare", err)
	}
	s.appendStmt = stmt

	return nil
}

// Append persists an entry.
func (s *SQLiteStorage) Append(ctx context.Context, entry *ledger.Entry) error {
	if entry == nil {
		return ledger.NewStorageError("sqlite", "append", errNilEntry)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var requestID any
	if entry.RequestID != "" {
		requestID = entry.RequestID
	}

	_, err := s.appendStmt.ExecContext(ctx,
		entry.ID, requestID, entry.Operation, string(entry.Outcome),
		entry.Requested, entry.Effective, entry.Actual, entry.Recorded, boolToInt(entry.Clamped),
		entry.UsedAfter, entry.Total, entry.Timestamp.UnixNano(),
	)
	if err != nil {
		return ledger.NewStorageError("sqlite", "append", err)
	}
	return nil
}

// Query returns entries matching the query.
func (s *SQLiteStorage) Query(ctx context.Context, query *ledger.Query) ([]*ledger.Entry, error) {
	where, args := buildWhereClause(query)

	sqlQuery := selectColumns
	if where != "" {
		sqlQuery += " WHERE " + where
	}
	if query.Ascending() {
		sqlQuery += " ORDER BY ts ASC"
	} else {
		sqlQuery += " ORDER BY ts DESC"
	}

	limit := -1
	offset := 0
	if query != nil {
		if query.Limit > 0 {
			limit = query.Limit
		}
		offset = query.Offset
	}
	sqlQuery += " LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, ledger.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	entries := []*ledger.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, ledger.NewStorageError("sqlite", "scan", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, ledger.NewStorageError("sqlite", "query", err)
	}

	return entries, nil
}

// Count returns the number of matching entries.
func (s *SQLiteStorage) Count(ctx context.Context, query *ledger.Query) (int64, error) {
	where, args := buildWhereClause(query)

	sqlQuery := "SELECT COUNT(*) FROM ledger"
	if where != "" {
		sqlQuery += " WHERE " + where
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, ledger.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete removes matching entries.
func (s *SQLiteStorage) Delete(ctx context.Context, query *ledger.Query) (int64, error) {
	where, args := buildWhereClause(query)

	sqlQuery := "DELETE FROM ledger"
	if where != "" {
		sqlQuery += " WHERE " + where
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, ledger.NewStorageError("sqlite", "delete", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, ledger.NewStorageError("sqlite", "delete", err)
	}
	return n, nil
}

// Ping checks the database connection.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return ledger.NewStorageError("sqlite", "ping", err)
	}
	return nil
}

// Close stops the checkpoint loop, runs a final checkpoint and closes the
// database. Close is idempotent.
func (s *SQLiteStorage) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		close(s.done)

		s.mu.Lock()
		defer s.mu.Unlock()

		if s.appendStmt != nil {
			s.appendStmt.Close()
		}
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		if err := s.db.Close(); err != nil {
			closeErr = ledger.NewStorageError("sqlite", "close", err)
			return
		}
		s.logger.Info("SQLite ledger closed")
	})

	return closeErr
}

// checkpointLoop runs periodic WAL checkpoints.
func (s *SQLiteStorage) checkpointLoop() {
	ticker := time.NewTicker(s.config.CheckpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			_, err := s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
			s.mu.Unlock()
			if err != nil {
				s.logger.Warn("WAL checkpoint failed", "error", err)
			}
		case <-s.done:
			return
		}
	}
}

// buildWhereClause builds a WHERE clause (without the keyword) from query
// filters.
func buildWhereClause(query *ledger.Query) (string, []any) {
	if query == nil {
		return "", nil
	}

	var conditions []string
	var args []any

	if query.StartTime != nil {
		conditions = append(conditions, "ts >= ?")
		args = append(args, query.StartTime.UnixNano())
	}
	if query.EndTime != nil {
		conditions = append(conditions, "ts <= ?")
		args = append(args, query.EndTime.UnixNano())
	}
	if query.Operation != "" {
		conditions = append(conditions, "operation = ?")
		args = append(args, query.Operation)
	}
	if query.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, string(query.Outcome))
	}

	return strings.Join(conditions, " AND "), args
}

func scanEntry(rows *sql.Rows) (*ledger.Entry, error) {
	var (
		e         ledger.Entry
		requestID sql.NullString
		outcome   string
		clamped   int64
		ts        int64
	)

	err := rows.Scan(
		&e.ID, &requestID, &e.Operation, &outcome,
		&e.Requested, &e.Effective, &e.Actual, &e.Recorded, &clamped,
		&e.UsedAfter, &e.Total, &ts,
	)
	if err != nil {
		return nil, err
	}

	if requestID.Valid {
		e.RequestID = requestID.String
	}
	e.Outcome = ledger.Outcome(outcome)
	e.Clamped = clamped != 0
	e.Timestamp = time.Unix(0, ts)

	return &e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
