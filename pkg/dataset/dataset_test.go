package dataset

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNew_FlatSequence(t *testing.T) {
	ds, err := New([]int{10, 20, 30, 40})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if got := ds.Columns(); !cmp.Equal(got, []string{DefaultColumn}) {
		t.Errorf("Expected single default column, got %v", got)
	}
	if ds.Rows() != 4 {
		t.Errorf("Expected 4 rows, got %d", ds.Rows())
	}

	fs, err := ds.Floats("")
	if err != nil {
		t.Fatalf("Floats failed: %v", err)
	}
	if diff := cmp.Diff([]float64{10, 20, 30, 40}, fs); diff != "" {
		t.Errorf("Floats mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_ColumnMapping(t *testing.T) {
	ds, err := New(map[string][]any{
		"income": {100.5, 200, "300"},
		"city":   {"a", "b", "c"},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if diff := cmp.Diff([]string{"city", "income"}, ds.Columns()); diff != "" {
		t.Errorf("Columns mismatch (-want +got):\n%s", diff)
	}

	fs, err := ds.Floats("income")
	if err != nil {
		t.Fatalf("Floats failed: %v", err)
	}
	if diff := cmp.Diff([]float64{100.5, 200, 300}, fs); diff != "" {
		t.Errorf("Floats mismatch (-want +got):\n%s", diff)
	}

	if _, err := ds.Floats("city"); err == nil {
		t.Error("Expected error casting text column")
	}
}

func TestNew_UnsupportedShapes(t *testing.T) {
	tests := []struct {
		name string
		data any
	}{
		{"scalar", 42},
		{"string", "10,20,30"},
		{"nil", nil},
		{"struct", struct{ X int }{1}},
		{"int keys", map[int][]float64{1: {1}}},
		{"non-sequence column", map[string]any{"a": 1}},
		{"ragged columns", map[string][]int{"a": {1, 2}, "b": {1}}},
		{"nested cells", []any{[]int{1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := New(tt.data)
			if err == nil {
				t.Fatal("Expected UnsupportedShapeError, got nil")
			}
			var use *UnsupportedShapeError
			if !errors.As(err, &use) {
				t.Fatalf("Expected *UnsupportedShapeError, got %T: %v", err, err)
			}
			if ds != nil {
				t.Error("Expected no dataset on failure")
			}
		})
	}
}

func TestDataset_Where(t *testing.T) {
	ds, _ := New(map[string][]float64{
		"x": {1, 2, 3, 4},
		"y": {5, 6, 7, 8},
	})

	view, err := ds.Where([]bool{true, false, true, false})
	if err != nil {
		t.Fatalf("Where failed: %v", err)
	}
	if view.Rows() != 2 {
		t.Errorf("Expected 2 rows, got %d", view.Rows())
	}
	ys, _ := view.Floats("y")
	if diff := cmp.Diff([]float64{5, 7}, ys); diff != "" {
		t.Errorf("Filtered column mismatch (-want +got):\n%s", diff)
	}

	// original untouched
	if ds.Rows() != 4 {
		t.Errorf("Where must not mutate the source, rows=%d", ds.Rows())
	}

	if _, err := ds.Where([]bool{true}); err == nil {
		t.Error("Expected mask length mismatch error")
	}
}

func TestDataset_ColumnCopies(t *testing.T) {
	ds, _ := New([]float64{1, 2})
	col, _ := ds.Column("")
	col[0] = Number(100)

	fs, _ := ds.Floats("")
	if fs[0] != 1 {
		t.Errorf("Column must return a copy, dataset now holds %v", fs)
	}
}

func TestDataset_SelectAndMapFloat(t *testing.T) {
	ds, _ := New(map[string][]string{"n": {"1.5", "2"}, "s": {"x", "y"}})

	sel, err := ds.Select("n")
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	f, err := sel.MapFloat()
	if err != nil {
		t.Fatalf("MapFloat failed: %v", err)
	}
	col, _ := f.Column("n")
	if !col[0].IsNumeric() || col[0].String() != "1.5" {
		t.Errorf("Expected numeric 1.5, got %v", col[0])
	}

	if _, err := ds.MapFloat(); err == nil {
		t.Error("Expected MapFloat to fail on text column")
	}
	if _, err := ds.Select("missing"); err == nil {
		t.Error("Expected Select of unknown column to fail")
	}
}
