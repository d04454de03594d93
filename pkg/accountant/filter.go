package accountant

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/epsilon/pkg/telemetry/tracing"
)

// Filter replaces the filtered view with the rows of the original dataset
// where mask is true. Filtering consumes no budget. On failure the previous
// view is kept.
func (a *Accountant) Filter(ctx context.Context, mask []bool, opts FilterOptions) error {
	ctx, span := a.tracer.Start(ctx, "accountant.filter",
		trace.WithAttributes(
			attribute.Int(tracing.AttrMaskLength, len(mask)),
			attribute.StringSlice(tracing.AttrColumns, opts.Columns),
		),
	)
	defer span.End()

	start := time.Now()

	a.mu.Lock()
	defer a.mu.Unlock()

	err := a.filterLocked(ctx, mask, opts)
	tracing.SetError(span, err)
	tracing.SetStatus(span, err)

	if err != nil {
		a.logger.DebugContext(ctx, "filter failed, keeping previous view", "error", err)
		return err
	}
	a.logger.DebugContext(ctx, "filtered view replaced",
		"mask_length", len(mask),
		"columns", opts.Columns,
		"duration", time.Since(start),
	)
	return nil
}

func (a *Accountant) filterLocked(ctx context.Context, mask []bool, opts FilterOptions) error {
	if a.closed {
		return ErrClosed
	}

	h, err := a.dataset.Open(a.key)
	if err != nil {
		return err
	}
	prev, err := a.view.Open(a.key)
	if err != nil {
		return err
	}

	sess, err := a.engine.Begin(ctx)
	if err != nil {
		return err
	}
	fh, err := sess.Filter(h, mask, opts)
	if err != nil {
		sess.Abort()
		return err
	}
	// the replaced view is released only if the session commits
	if err := sess.Drop(prev); err != nil {
		sess.Abort()
		return err
	}
	if err := sess.End(); err != nil {
		sess.Abort()
		return err
	}
	if err := sess.Commit(ctx); err != nil {
		return err
	}

	return a.view.Replace(a.key, fh)
}
