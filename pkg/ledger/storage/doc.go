// Package storage provides storage backends for ledger entries.
//
//   - Memory: bounded in-process storage that evicts the oldest entries
//   - SQLite: durable storage in WAL mode with prepared statements and a
//     periodic checkpoint loop
//
// The SQLite backend can run on either of two drivers:
//
//   - "sqlite": modernc.org/sqlite, pure Go (default)
//   - "sqlite3": github.com/mattn/go-sqlite3, cgo
//
// Timestamps are stored as Unix nanoseconds so both drivers round-trip them
// identically.
package storage
