// Package ledger records an audit journal of privacy-budget activity.
//
// Every charged statistic, every refused request and every reset attempt made
// against an accountant produces one Entry. Entries are immutable once
// written and are never used to rebuild accounting state: an accountant always
// starts from zero usage.
//
// # Architecture
//
//  1. Recorder - accepts entries from the accountant and writes them
//     asynchronously (package recorder)
//  2. Storage - persists entries (package storage: memory, SQLite)
//  3. Retention - prunes old entries on a cron schedule (package retention)
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//	    Path:   "data/ledger.db",
//	    Driver: storage.DriverModernc,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	rec := recorder.NewRecorder(store, nil)
//	defer rec.Close()
//
//	acct, err := accountant.New(ctx, engine, data, accountant.WithJournal(rec))
package ledger
