package accountant

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"mercator-hq/epsilon/pkg/config"
	"mercator-hq/epsilon/pkg/mechanism"
	"mercator-hq/epsilon/pkg/telemetry/tracing"
)

func TestMean_ClampsToRemaining(t *testing.T) {
	engine := newFakeEngine()
	metrics := newFakeMetrics()
	a := newTestAccountant(t, engine, WithMetrics(metrics))
	ctx := context.Background()

	v, err := a.InternalMean(ctx, 0.65, demoBounds)
	if err != nil {
		t.Fatalf("first mean failed: %v", err)
	}
	if v != 25 {
		t.Errorf("Expected mean 25, got %v", v)
	}
	if a.Used() != 0.65 {
		t.Errorf("Expected used 0.65, got %v", a.Used())
	}

	if _, err := a.InternalMean(ctx, 40, demoBounds); err != nil {
		t.Fatalf("second mean failed: %v", err)
	}
	if a.Used() != 10 {
		t.Errorf("Expected used 10, got %v", a.Used())
	}
	if got := engine.submitted[1].Usage.Epsilon; math.Abs(got-9.35) > 1e-12 {
		t.Errorf("Expected engine to be granted 9.35, got %v", got)
	}

	if _, err := a.InternalMean(ctx, 0.1, demoBounds); !errors.Is(err, ErrBudgetExhausted) {
		t.Errorf("Expected ErrBudgetExhausted, got %v", err)
	}
	if engine.submissions() != 2 {
		t.Errorf("Expected exhausted call not to reach the engine, got %d submissions", engine.submissions())
	}
	if a.Used() != 10 {
		t.Errorf("Expected used to stay 10, got %v", a.Used())
	}

	if metrics.clamps != 1 {
		t.Errorf("Expected 1 clamp, got %d", metrics.clamps)
	}
	if metrics.releases["mean/charged"] != 2 || metrics.releases["mean/exhausted"] != 1 {
		t.Errorf("Unexpected release metrics: %v", metrics.releases)
	}
	if metrics.used != 10 || metrics.total != 10 {
		t.Errorf("Expected budget gauges 10/10, got %v/%v", metrics.used, metrics.total)
	}
}

func TestMean_NoiseEngine(t *testing.T) {
	engine, err := mechanism.NewNoiseEngine(mechanism.NoiseConfig{Kind: mechanism.Laplace})
	if err != nil {
		t.Fatal(err)
	}
	a := newTestAccountant(t, engine)
	ctx := context.Background()

	for _, cost := range []float64{0.65, 40} {
		v, err := a.InternalMean(ctx, cost, demoBounds)
		if err != nil {
			t.Fatalf("InternalMean(%v) failed: %v", cost, err)
		}
		if v < demoBounds.Lower || v > demoBounds.Upper {
			t.Errorf("Expected mean within bounds, got %v", v)
		}
	}
	if a.Used() != 10 {
		t.Errorf("Expected used 10, got %v", a.Used())
	}

	if _, err := a.Count(ctx, Target{}, 1, CountParams{}); !errors.Is(err, ErrBudgetExhausted) {
		t.Errorf("Expected ErrBudgetExhausted, got %v", err)
	}
}

func TestMean_MixedColumns(t *testing.T) {
	noiseEngine, err := mechanism.NewNoiseEngine(mechanism.NoiseConfig{Kind: mechanism.Laplace})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		engine mechanism.Engine
		tol    float64
	}{
		{"fake engine", newFakeEngine(), 0},
		{"noise engine", noiseEngine, 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(context.Background(), tt.engine, map[string][]any{
				"age":  {10, 20, 30, 40},
				"name": {"a", "b", "c", "d"},
			}, WithTotalBudget(1e7))
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			defer a.Close()

			v, err := a.Mean(context.Background(), 1e6, Target{Column: "age"}, demoBounds)
			if err != nil {
				t.Fatalf("Mean over numeric column failed: %v", err)
			}
			if math.Abs(v-25) > tt.tol {
				t.Errorf("Expected mean near 25, got %v", v)
			}

			if _, err := a.Mean(context.Background(), 1, Target{Column: "name"}, demoBounds); err == nil {
				t.Error("Expected error casting the text column")
			}
		})
	}
}

func TestMean_FloatingPointLeftover(t *testing.T) {
	noiseEngine, err := mechanism.NewNoiseEngine(mechanism.NoiseConfig{Kind: mechanism.Laplace})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		engine mechanism.Engine
	}{
		{"fake engine", newFakeEngine()},
		{"noise engine", noiseEngine},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAccountant(t, tt.engine, WithTotalBudget(1))
			ctx := context.Background()

			for i := 0; i < 10; i++ {
				if _, err := a.InternalMean(ctx, 0.1, demoBounds); err != nil {
					t.Fatalf("mean %d failed: %v", i+1, err)
				}
			}
			if a.Remaining() != 0 {
				t.Errorf("Expected remaining 0, got %v", a.Remaining())
			}
			if !a.Snapshot().Exhausted {
				t.Error("Expected snapshot to report exhaustion")
			}

			for i := 0; i < 2; i++ {
				if _, err := a.InternalMean(ctx, 0.1, demoBounds); !errors.Is(err, ErrBudgetExhausted) {
					t.Errorf("Expected ErrBudgetExhausted, got %v", err)
				}
			}
		})
	}
}

func TestMean_ZeroBudget(t *testing.T) {
	engine := newFakeEngine()
	a := newTestAccountant(t, engine, WithTotalBudget(0))

	if _, err := a.InternalMean(context.Background(), 1, demoBounds); !errors.Is(err, ErrBudgetExhausted) {
		t.Errorf("Expected ErrBudgetExhausted, got %v", err)
	}
	if engine.submissions() != 0 {
		t.Errorf("Expected no submissions, got %d", engine.submissions())
	}
}

func TestRelease_InvalidCost(t *testing.T) {
	engine := newFakeEngine()
	a := newTestAccountant(t, engine)

	for _, cost := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := a.InternalMean(context.Background(), cost, demoBounds)
		var costErr *InvalidCostError
		if !errors.As(err, &costErr) {
			t.Errorf("cost %v: expected *InvalidCostError, got %v", cost, err)
			continue
		}
		if costErr.Op != "mean" {
			t.Errorf("Expected op mean, got %q", costErr.Op)
		}
	}
	if a.Used() != 0 || engine.submissions() != 0 {
		t.Errorf("Expected no state change, used %v submissions %d", a.Used(), engine.submissions())
	}
}

func TestRelease_FailedDelegationConsumesNothing(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(*fakeEngine)
		wantAbort bool
	}{
		{"begin fails", func(e *fakeEngine) { e.beginErr = errEngine }, false},
		{"submit fails", func(e *fakeEngine) { e.submitErr = errEngine }, true},
		{"commit fails", func(e *fakeEngine) { e.commitErr = errEngine }, false},
		{"malformed usage report", func(e *fakeEngine) {
			e.report = func(mechanism.Request) string { return "epsilon: [" }
		}, false},
		{"usage report without epsilon", func(e *fakeEngine) {
			e.report = func(mechanism.Request) string { return "{delta: 0}" }
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newFakeEngine()
			journal := &memJournal{}
			metrics := newFakeMetrics()
			a := newTestAccountant(t, engine, WithJournal(journal), WithMetrics(metrics))
			tt.setup(engine)

			if _, err := a.InternalMean(context.Background(), 1, demoBounds); err == nil {
				t.Fatal("Expected error")
			}
			if a.Used() != 0 {
				t.Errorf("Expected used 0, got %v", a.Used())
			}
			if tt.wantAbort && engine.aborted == 0 {
				t.Error("Expected session to be aborted")
			}
			if len(journal.entries) != 0 {
				t.Errorf("Expected no journal entries, got %d", len(journal.entries))
			}
			if metrics.releases["mean/error"] != 1 {
				t.Errorf("Expected one error release, got %v", metrics.releases)
			}
		})
	}
}

func TestRelease_ActualUsage(t *testing.T) {
	tests := []struct {
		name         string
		strict       bool
		report       string
		wantUsed     float64
		wantOverRept int
	}{
		{"under report trusted", false, "epsilon: 0.5", 0.5, 0},
		{"under report strict", true, "epsilon: 0.5", 0.5, 0},
		{"over report trusted", false, "{epsilon: 1.5}", 1.5, 1},
		{"over report strict", true, "{epsilon: 1.5}", 1, 1},
		{"within slack", false, "epsilon: 1.0000000000001", 1.0000000000001, 0},
		{"within slack strict", true, "epsilon: 1.0000000000001", 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newFakeEngine()
			engine.report = func(mechanism.Request) string { return tt.report }
			metrics := newFakeMetrics()
			a := newTestAccountant(t, engine,
				WithStrictAccounting(tt.strict),
				WithReportingSlack(1e-9),
				WithMetrics(metrics),
			)

			if _, err := a.InternalMean(context.Background(), 1, demoBounds); err != nil {
				t.Fatalf("InternalMean failed: %v", err)
			}
			if a.Used() != tt.wantUsed {
				t.Errorf("Expected used %v, got %v", tt.wantUsed, a.Used())
			}
			if len(metrics.overReports) != tt.wantOverRept {
				t.Errorf("Expected %d over-reports, got %v", tt.wantOverRept, metrics.overReports)
			}
		})
	}
}

func TestRelease_OverReportLog(t *testing.T) {
	tests := []struct {
		name      string
		strict    bool
		wantLevel string
		wantMsg   string
		wantRec   string
	}{
		{"trusted", false, `"level":"WARN"`, `"msg":"engine reported more privacy usage than granted"`, `"recorded":1.5`},
		{"strict", true, `"level":"INFO"`, `"msg":"engine over-reported privacy usage, recorded cost capped"`, `"recorded":1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			engine := newFakeEngine()
			engine.report = func(mechanism.Request) string { return "epsilon: 1.5" }
			a := newTestAccountant(t, engine, WithStrictAccounting(tt.strict), WithLogger(logger))

			if _, err := a.InternalMean(context.Background(), 1, demoBounds); err != nil {
				t.Fatalf("InternalMean failed: %v", err)
			}

			var line string
			for _, l := range strings.Split(buf.String(), "\n") {
				if strings.Contains(l, "over-report") || strings.Contains(l, "more privacy usage") {
					line = l
				}
			}
			for _, want := range []string{tt.wantLevel, tt.wantMsg, tt.wantRec} {
				if !strings.Contains(line, want) {
					t.Errorf("Expected over-report log to contain %s, got %q", want, line)
				}
			}
		})
	}
}

func TestRelease_GenericOperation(t *testing.T) {
	a := newTestAccountant(t, newFakeEngine())

	rel, err := a.Release(context.Background(), mechanism.OpSum, 2, Target{}, mechanism.Params{Lower: 0, Upper: 40})
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	v, err := rel.Float64()
	if err != nil {
		t.Fatal(err)
	}
	if v != 100 {
		t.Errorf("Expected sum 100, got %v", v)
	}
	if a.Used() != 2 {
		t.Errorf("Expected used 2, got %v", a.Used())
	}

	if _, err := a.Release(context.Background(), "median", 1, Target{}, mechanism.Params{}); !errors.Is(err, mechanism.ErrUnsupportedOperation) {
		t.Errorf("Expected ErrUnsupportedOperation, got %v", err)
	}
	if a.Used() != 2 {
		t.Errorf("Expected unsupported op to consume nothing, used %v", a.Used())
	}
}

func TestRelease_UnknownSource(t *testing.T) {
	engine := newFakeEngine()
	a := newTestAccountant(t, engine)

	if _, err := a.Count(context.Background(), Target{Source: "raw"}, 1, CountParams{}); err == nil {
		t.Error("Expected error for unknown source")
	}
	if a.Used() != 0 || engine.submissions() != 0 {
		t.Errorf("Expected no charge, used %v", a.Used())
	}
}

func TestRelease_Span(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tr, err := tracing.NewWithExporter(&config.TracingConfig{Sampler: "always"}, exporter, true)
	if err != nil {
		t.Fatal(err)
	}
	a := newTestAccountant(t, newFakeEngine(), WithTotalBudget(1), WithTracer(tr.Tracer()))

	if _, err := a.InternalMean(context.Background(), 2, demoBounds); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Count(context.Background(), Target{}, 1, CountParams{}); err == nil {
		t.Fatal("Expected exhausted error")
	}

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("Expected 2 spans, got %d", len(spans))
	}

	mean := spans[0]
	if mean.Name != "accountant.mean" {
		t.Errorf("Expected span accountant.mean, got %s", mean.Name)
	}
	wantAttrs := []attribute.KeyValue{
		attribute.String(tracing.AttrOperation, "mean"),
		attribute.Float64(tracing.AttrCostRequested, 2),
		attribute.Float64(tracing.AttrCostEffective, 1),
		attribute.Float64(tracing.AttrCostRecorded, 1),
		attribute.Bool(tracing.AttrClamped, true),
	}
	for _, want := range wantAttrs {
		found := false
		for _, got := range mean.Attributes {
			if got.Key == want.Key && got.Value == want.Value {
				found = true
			}
		}
		if !found {
			t.Errorf("Expected attribute %s=%v", want.Key, want.Value.Emit())
		}
	}
	if mean.Status.Code != codes.Ok {
		t.Errorf("Expected Ok status, got %v", mean.Status.Code)
	}

	count := spans[1]
	if count.Name != "accountant.count" || count.Status.Code != codes.Error {
		t.Errorf("Expected failed accountant.count span, got %s %v", count.Name, count.Status.Code)
	}
}
