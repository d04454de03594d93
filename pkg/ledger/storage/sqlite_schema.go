package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the ledger tables.
const Schema = `
CREATE TABLE IF NOT EXISTS ledger (
    id TEXT PRIMARY KEY,
    request_id TEXT,

    operation TEXT NOT NULL,
    outcome TEXT NOT NULL,

    requested REAL NOT NULL,
    effective REAL NOT NULL,
    actual REAL NOT NULL,
    recorded REAL NOT NULL,
    clamped INTEGER NOT NULL,

    used_after REAL NOT NULL,
    total REAL NOT NULL,

    -- Unix nanoseconds
    ts INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ledger_ts ON ledger(ts);
CREATE INDEX IF NOT EXISTS idx_ledger_operation ON ledger(operation);
CREATE INDEX IF NOT EXISTS idx_ledger_outcome ON ledger(outcome);
`

// InsertSchemaVersion records the schema version.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, ?)
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const insertEntry = `
INSERT INTO ledger (
    id, request_id, operation, outcome,
    requested, effective, actual, recorded, clamped,
    used_after, total, ts
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectColumns = `
SELECT id, request_id, operation, outcome,
       requested, effective, actual, recorded, clamped,
       used_after, total, ts
FROM ledger`
