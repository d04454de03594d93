// Package recorder writes ledger entries to storage in the background so that
// audit persistence never blocks or fails a privacy-consuming call.
package recorder
