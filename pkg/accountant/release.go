package accountant

import (
	"context"
	"errors"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/epsilon/pkg/ledger"
	"mercator-hq/epsilon/pkg/mechanism"
	"mercator-hq/epsilon/pkg/telemetry/logging"
	"mercator-hq/epsilon/pkg/telemetry/tracing"
)

// Mean releases a differentially private mean of the target column. Only that
// column is cast to float, inside the session, before the mean is taken.
func (a *Accountant) Mean(ctx context.Context, requestedCost float64, target Target, params MeanParams) (float64, error) {
	rel, err := a.execute(ctx, mechanism.OpMean, requestedCost, target, mechanism.Params{
		Lower: params.Lower,
		Upper: params.Upper,
		N:     params.N,
		Extra: params.Extra,
	}, true)
	if err != nil {
		return 0, err
	}
	return rel.Float64()
}

// InternalMean is Mean over the first column of the original dataset.
func (a *Accountant) InternalMean(ctx context.Context, requestedCost float64, params MeanParams) (float64, error) {
	return a.Mean(ctx, requestedCost, Target{Source: SourceDataset}, params)
}

// Count releases a differentially private row count of the target.
func (a *Accountant) Count(ctx context.Context, target Target, requestedCost float64, params CountParams) (int64, error) {
	rel, err := a.execute(ctx, mechanism.OpCount, requestedCost, target, mechanism.Params{
		Extra: params.Extra,
	}, false)
	if err != nil {
		return 0, err
	}
	return rel.Int64()
}

// Release runs any privacy-consuming operation the engine supports through
// the same clamp, delegate and record path as Mean and Count. The returned
// release is already committed.
func (a *Accountant) Release(ctx context.Context, op mechanism.Operation, requestedCost float64, target Target, params mechanism.Params) (*mechanism.Release, error) {
	return a.execute(ctx, op, requestedCost, target, params, false)
}

// charge describes one privacy-consuming call as it moves through execute.
type charge struct {
	op        mechanism.Operation
	requested float64
	effective float64
	actual    float64
	recorded  float64
	usedAfter float64
	clamped   bool
}

func (a *Accountant) execute(ctx context.Context, op mechanism.Operation, requested float64, target Target, params mechanism.Params, cast bool) (*mechanism.Release, error) {
	if math.IsNaN(requested) || math.IsInf(requested, 0) || requested <= 0 {
		return nil, &InvalidCostError{Op: string(op), Cost: requested}
	}

	ctx, span := a.tracer.Start(ctx, "accountant."+string(op),
		trace.WithAttributes(
			attribute.String(tracing.AttrOperation, string(op)),
			attribute.String(tracing.AttrSource, string(target.Source)),
			attribute.Float64(tracing.AttrCostRequested, requested),
		),
	)
	defer span.End()

	start := time.Now()

	a.mu.Lock()
	defer a.mu.Unlock()

	rel, c, err := a.chargeLocked(ctx, op, requested, target, params, cast)

	outcome := "charged"
	switch {
	case errors.Is(err, ErrBudgetExhausted):
		outcome = "exhausted"
	case err != nil:
		outcome = "error"
	}
	a.metrics.RecordRelease(string(op), outcome, c.recorded, time.Since(start))

	span.SetAttributes(
		attribute.Float64(tracing.AttrCostEffective, c.effective),
		attribute.Float64(tracing.AttrCostRecorded, c.recorded),
		attribute.Bool(tracing.AttrClamped, c.clamped),
	)
	tracing.SetError(span, err)
	tracing.SetStatus(span, err)

	switch outcome {
	case "charged":
		a.journalLocked(ctx, c, ledger.OutcomeCharged)
	case "exhausted":
		a.journalLocked(ctx, c, ledger.OutcomeExhausted)
	}

	return rel, err
}

// chargeLocked clamps, delegates and records. Caller must hold a.mu. Usage
// changes only after the session committed and its report parsed.
func (a *Accountant) chargeLocked(ctx context.Context, op mechanism.Operation, requested float64, target Target, params mechanism.Params, cast bool) (*mechanism.Release, charge, error) {
	c := charge{op: op, requested: requested}

	if a.closed {
		return nil, c, ErrClosed
	}

	used := a.used.Load()
	c.usedAfter = used
	if a.remaining(used) <= 0 {
		return nil, c, ErrBudgetExhausted
	}
	c.effective = Permissible(used, a.total, requested)
	if c.effective <= 0 {
		return nil, c, ErrBudgetExhausted
	}
	c.clamped = c.effective < requested
	if c.clamped {
		a.metrics.RecordClamp(string(op))
		a.logger.InfoContext(ctx, "privacy cost clamped to remaining budget",
			"operation", op,
			"requested", requested,
			"effective", c.effective,
		)
	}

	h, err := a.handle(target)
	if err != nil {
		return nil, c, err
	}

	rel, err := a.delegate(ctx, mechanism.Request{
		Op:     op,
		Data:   h,
		Column: target.Column,
		Usage:  mechanism.Usage{Epsilon: c.effective},
		Params: params,
	}, cast)
	if err != nil {
		return nil, c, err
	}

	desc, err := rel.ActualUsage()
	if err != nil {
		return nil, c, err
	}
	usage, err := mechanism.ParseUsage(desc)
	if err != nil {
		return nil, c, err
	}
	c.actual = usage.Epsilon
	c.recorded = usage.Epsilon

	if a.strict && c.recorded > c.effective {
		c.recorded = c.effective
	}
	if excess := c.actual - c.effective; excess > a.slack {
		a.metrics.RecordOverReport(string(op), excess)
		if a.strict {
			a.logger.InfoContext(ctx, "engine over-reported privacy usage, recorded cost capped",
				"operation", op,
				"effective", c.effective,
				"actual", c.actual,
				"recorded", c.recorded,
			)
		} else {
			a.logger.WarnContext(ctx, "engine reported more privacy usage than granted",
				"operation", op,
				"effective", c.effective,
				"actual", c.actual,
				"recorded", c.recorded,
			)
		}
	}

	c.usedAfter, err = a.used.Add(a.key, c.recorded)
	if err != nil {
		return nil, c, err
	}
	a.metrics.UpdateBudget(c.usedAfter, a.total)

	a.logger.DebugContext(ctx, "privacy budget charged",
		"operation", op,
		"recorded", c.recorded,
		"used", c.usedAfter,
		"total", a.total,
	)

	return rel, c, nil
}

// delegate runs one request in its own session. The session is aborted on
// any failure before commit.
func (a *Accountant) delegate(ctx context.Context, req mechanism.Request, cast bool) (*mechanism.Release, error) {
	sess, err := a.engine.Begin(ctx)
	if err != nil {
		return nil, err
	}

	if cast {
		if req.Data, err = sess.ToFloat(req.Data, req.Column); err != nil {
			sess.Abort()
			return nil, err
		}
	}

	rel, err := sess.Submit(req)
	if err != nil {
		sess.Abort()
		return nil, err
	}
	if err := sess.End(); err != nil {
		sess.Abort()
		return nil, err
	}
	if err := sess.Commit(ctx); err != nil {
		return nil, err
	}

	return rel, nil
}

// journalLocked appends a ledger entry for a charge. Failures are logged,
// never returned.
func (a *Accountant) journalLocked(ctx context.Context, c charge, outcome ledger.Outcome) {
	a.journalEntry(ctx, &ledger.Entry{
		RequestID: logging.GetRequestID(ctx),
		Operation: string(c.op),
		Outcome:   outcome,
		Requested: c.requested,
		Effective: c.effective,
		Actual:    c.actual,
		Recorded:  c.recorded,
		Clamped:   c.clamped,
		UsedAfter: c.usedAfter,
		Total:     a.total,
		Timestamp: a.now(),
	})
}
