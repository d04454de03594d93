package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"mercator-hq/epsilon/pkg/ledger"
	"mercator-hq/epsilon/pkg/ledger/storage"
)

func seedDays(t *testing.T, s ledger.Storage, now time.Time, ages ...int) {
	t.Helper()
	for i, days := range ages {
		e := &ledger.Entry{
			ID:        string(rune('a' + i)),
			Operation: "mean",
			Outcome:   ledger.OutcomeCharged,
			Timestamp: now.AddDate(0, 0, -days),
		}
		if err := s.Append(context.Background(), e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
}

func TestPruner_Prune(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		config      *Config
		ages        []int
		wantDeleted int64
		wantLeft    int64
	}{
		{
			name:        "age based",
			config:      &Config{RetentionDays: 30},
			ages:        []int{1, 10, 31, 90},
			wantDeleted: 2,
			wantLeft:    2,
		},
		{
			name:        "count based",
			config:      &Config{MaxEntries: 2},
			ages:        []int{1, 2, 3, 4, 5},
			wantDeleted: 3,
			wantLeft:    2,
		},
		{
			name:        "age then count",
			config:      &Config{RetentionDays: 4, MaxEntries: 1},
			ages:        []int{1, 2, 3, 5, 6},
			wantDeleted: 4,
			wantLeft:    1,
		},
		{
			name:        "keep forever",
			config:      &Config{},
			ages:        []int{1, 1000},
			wantDeleted: 0,
			wantLeft:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStorage(0)
			seedDays(t, store, now, tt.ages...)

			p := NewPruner(store, tt.config)
			p.now = func() time.Time { return now }

			deleted, err := p.Prune(context.Background())
			if err != nil {
				t.Fatalf("Prune failed: %v", err)
			}
			if deleted != tt.wantDeleted {
				t.Errorf("Expected %d deleted, got %d", tt.wantDeleted, deleted)
			}
			left, _ := store.Count(context.Background(), nil)
			if left != tt.wantLeft {
				t.Errorf("Expected %d left, got %d", tt.wantLeft, left)
			}
		})
	}
}

func TestPruner_OnPrune(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store := storage.NewMemoryStorage(0)
	seedDays(t, store, now, 1, 40, 50)

	var reported []int64
	p := NewPruner(store, &Config{
		RetentionDays: 30,
		OnPrune:       func(n int64) { reported = append(reported, n) },
	})
	p.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if _, err := p.Prune(context.Background()); err != nil {
			t.Fatalf("Prune failed: %v", err)
		}
	}

	if len(reported) != 2 || reported[0] != 2 || reported[1] != 0 {
		t.Errorf("Expected OnPrune calls [2 0], got %v", reported)
	}
}

func TestPruner_PruneOlderThan(t *testing.T) {
	now := time.Now()
	store := storage.NewMemoryStorage(0)
	seedDays(t, store, now, 0, 2, 5)

	p := NewPruner(store, &Config{})
	deleted, err := p.PruneOlderThan(context.Background(), now.AddDate(0, 0, -1))
	if err != nil {
		t.Fatalf("PruneOlderThan failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("Expected 2 deleted, got %d", deleted)
	}
}

func TestPruner_StorageError(t *testing.T) {
	store := storage.NewMemoryStorage(0)
	store.Close()

	p := NewPruner(store, &Config{RetentionDays: 1})
	_, err := p.Prune(context.Background())

	var rerr *ledger.RetentionError
	if !errors.As(err, &rerr) {
		t.Fatalf("Expected *ledger.RetentionError, got %v", err)
	}
	if rerr.RetentionDays != 1 {
		t.Errorf("Expected retention days 1, got %d", rerr.RetentionDays)
	}
}

func TestScheduler_Start(t *testing.T) {
	tests := []struct {
		name        string
		schedule    string
		wantRunning bool
		wantError   bool
	}{
		{"valid daily schedule", "0 3 * * *", true, false},
		{"descriptor", "@hourly", true, false},
		{"empty schedule", "", false, false},
		{"invalid schedule", "invalid cron", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPruner(storage.NewMemoryStorage(0), &Config{
				PruneSchedule: tt.schedule,
				RetentionDays: 90,
			})

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := p.Start(ctx)
			if (err != nil) != tt.wantError {
				t.Errorf("Start() error = %v, wantError %v", err, tt.wantError)
			}
			if p.scheduler.IsRunning() != tt.wantRunning {
				t.Errorf("IsRunning() = %v, want %v", p.scheduler.IsRunning(), tt.wantRunning)
			}
			if tt.wantRunning && p.NextPruning() == nil {
				t.Error("NextPruning() returned nil for running scheduler")
			}

			p.Stop()
			if p.scheduler.IsRunning() {
				t.Error("Expected scheduler to stop")
			}
		})
	}
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	p := NewPruner(storage.NewMemoryStorage(0), &Config{PruneSchedule: "@every 1h"})

	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	cancel()

	deadline := time.Now().Add(time.Second)
	for p.scheduler.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if p.scheduler.IsRunning() {
		t.Error("Expected scheduler to stop after context cancellation")
	}
}
