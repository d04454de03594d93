package accountant

import (
	"context"
	"errors"
	"testing"
)

func TestFilter(t *testing.T) {
	engine := newFakeEngine()
	a := newTestAccountant(t, engine)
	ctx := context.Background()
	filtered := Target{Source: SourceFiltered}

	n, err := a.Count(ctx, filtered, 1, CountParams{})
	if err != nil {
		t.Fatalf("Count on empty view failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected empty view before Filter, got %d rows", n)
	}

	if err := a.Filter(ctx, []bool{true, false, true, false}, FilterOptions{}); err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if a.Used() != 1 {
		t.Errorf("Expected Filter to consume nothing, used %v", a.Used())
	}

	n, err = a.Count(ctx, filtered, 1, CountParams{})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 rows, got %d", n)
	}

	mean, err := a.Mean(ctx, 1, filtered, demoBounds)
	if err != nil {
		t.Fatalf("Mean failed: %v", err)
	}
	if mean != 20 {
		t.Errorf("Expected mean 20 over rows 10 and 30, got %v", mean)
	}

	n, err = a.Count(ctx, Target{}, 1, CountParams{})
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("Expected original dataset untouched, got %d rows", n)
	}
}

func TestFilter_FailureKeepsView(t *testing.T) {
	tests := []struct {
		name  string
		mask  []bool
		setup func(*fakeEngine)
		check func(error) bool
	}{
		{
			name:  "mask too short",
			mask:  []bool{true},
			check: func(err error) bool { return err != nil },
		},
		{
			name:  "engine refuses",
			mask:  []bool{true, true, true, true},
			setup: func(e *fakeEngine) { e.filterErr = errEngine },
			check: func(err error) bool { return errors.Is(err, errEngine) },
		},
		{
			name:  "begin fails",
			mask:  []bool{true, true, true, true},
			setup: func(e *fakeEngine) { e.beginErr = errEngine },
			check: func(err error) bool { return errors.Is(err, errEngine) },
		},
		{
			name:  "commit fails",
			mask:  []bool{true, true, true, true},
			setup: func(e *fakeEngine) { e.commitErr = errEngine },
			check: func(err error) bool { return errors.Is(err, errEngine) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newFakeEngine()
			a := newTestAccountant(t, engine)
			ctx := context.Background()

			if err := a.Filter(ctx, []bool{false, true, false, false}, FilterOptions{}); err != nil {
				t.Fatalf("first Filter failed: %v", err)
			}
			if tt.setup != nil {
				tt.setup(engine)
			}

			err := a.Filter(ctx, tt.mask, FilterOptions{})
			if !tt.check(err) {
				t.Fatalf("Unexpected error: %v", err)
			}

			engine.beginErr = nil
			engine.filterErr = nil
			engine.commitErr = nil
			n, err := a.Count(ctx, Target{Source: SourceFiltered}, 1, CountParams{})
			if err != nil {
				t.Fatal(err)
			}
			if n != 1 {
				t.Errorf("Expected previous view with 1 row, got %d", n)
			}
		})
	}
}

func TestFilter_Columns(t *testing.T) {
	engine := newFakeEngine()
	a, err := New(context.Background(), engine, map[string][]float64{
		"age":    {30, 40, 50},
		"income": {100, 200, 300},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	ctx := context.Background()

	if err := a.Filter(ctx, []bool{false, true, true}, FilterOptions{Columns: []string{"income"}}); err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	mean, err := a.Mean(ctx, 1, Target{Source: SourceFiltered}, MeanParams{Lower: 0, Upper: 300})
	if err != nil {
		t.Fatal(err)
	}
	if mean != 250 {
		t.Errorf("Expected mean 250, got %v", mean)
	}
}

func TestFilter_ReleasesReplacedView(t *testing.T) {
	engine := newFakeEngine()
	a := newTestAccountant(t, engine, WithTotalBudget(100))
	ctx := context.Background()

	// the dataset and the initial empty view
	if got := engine.size(); got != 2 {
		t.Fatalf("Expected 2 datasets after New, got %d", got)
	}

	masks := [][]bool{
		{true, false, false, false},
		{true, true, false, false},
		{false, true, true, true},
	}
	for i := 0; i < 10; i++ {
		if err := a.Filter(ctx, masks[i%len(masks)], FilterOptions{}); err != nil {
			t.Fatalf("Filter %d failed: %v", i, err)
		}
		if _, err := a.Mean(ctx, 1, Target{Source: SourceFiltered}, demoBounds); err != nil {
			t.Fatalf("Mean %d failed: %v", i, err)
		}
		if _, err := a.InternalMean(ctx, 1, demoBounds); err != nil {
			t.Fatalf("InternalMean %d failed: %v", i, err)
		}
		if got := engine.size(); got != 2 {
			t.Errorf("Expected 2 datasets after round %d, got %d", i, got)
		}
	}
}

func TestFilter_Closed(t *testing.T) {
	a := newTestAccountant(t, newFakeEngine())
	_ = a.Close()

	if err := a.Filter(context.Background(), []bool{true, true, true, true}, FilterOptions{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}
