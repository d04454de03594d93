package accountant

import (
	"context"
	"crypto/subtle"

	"mercator-hq/epsilon/pkg/ledger"
	"mercator-hq/epsilon/pkg/telemetry/logging"
)

const (
	resetRefusedMessage = "Debug mode and admin access required."
	resetOKMessage      = "successful reset"
)

// ResetResult reports the outcome of a Reset.
type ResetResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Reset sets the used budget back to zero. It succeeds only when debug mode
// is enabled and credential matches the configured debug password.
func (a *Accountant) Reset(credential string) ResetResult {
	return a.ResetContext(context.Background(), credential)
}

// ResetContext is Reset with a context for logging and journaling.
func (a *Accountant) ResetContext(ctx context.Context, credential string) ResetResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	before := a.used.Load()
	entry := &ledger.Entry{
		RequestID: logging.GetRequestID(ctx),
		Operation: "reset",
		UsedAfter: before,
		Total:     a.total,
		Timestamp: a.now(),
	}

	if a.closed || !a.authorized(credential) {
		a.metrics.RecordReset(false)
		a.logger.WarnContext(ctx, "budget reset refused", "debug_mode", a.admin.DebugMode)
		entry.Outcome = ledger.OutcomeRefused
		a.journalEntry(ctx, entry)
		return ResetResult{OK: false, Message: resetRefusedMessage}
	}

	if err := a.used.Reset(a.key); err != nil {
		a.metrics.RecordReset(false)
		a.logger.ErrorContext(ctx, "budget reset failed", "error", err)
		entry.Outcome = ledger.OutcomeRefused
		a.journalEntry(ctx, entry)
		return ResetResult{OK: false, Message: resetRefusedMessage}
	}

	a.metrics.RecordReset(true)
	a.metrics.UpdateBudget(0, a.total)
	a.logger.InfoContext(ctx, "budget reset", "used_before", before)
	entry.Outcome = ledger.OutcomeReset
	entry.UsedAfter = 0
	a.journalEntry(ctx, entry)

	return ResetResult{OK: true, Message: resetOKMessage}
}

func (a *Accountant) authorized(credential string) bool {
	if !a.admin.DebugMode || a.admin.DebugPassword == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(credential), []byte(a.admin.DebugPassword)) == 1
}

func (a *Accountant) journalEntry(ctx context.Context, entry *ledger.Entry) {
	if err := a.journal.Record(ctx, entry); err != nil {
		a.logger.WarnContext(ctx, "failed to journal ledger entry",
			"operation", entry.Operation,
			"outcome", entry.Outcome,
			"error", err,
		)
	}
}
