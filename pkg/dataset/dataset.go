package dataset

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
)

// DefaultColumn is the name given to the single column of a flat sequence.
const DefaultColumn = "0"

// Dataset is an immutable set of equal-length columns.
type Dataset struct {
	names   []string
	columns map[string][]Value
	rows    int
}

// Value is a single cell. Numeric cells are float64, everything else keeps
// its original string form.
type Value struct {
	num   float64
	str   string
	isNum bool
}

// Float returns the numeric value of v, parsing string cells if needed.
func (v Value) Float() (float64, bool) {
	if v.isNum {
		return v.num, true
	}
	f, err := strconv.ParseFloat(v.str, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// String returns the cell as text.
func (v Value) String() string {
	if v.isNum {
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	}
	return v.str
}

// IsNumeric reports whether the cell was numeric when loaded.
func (v Value) IsNumeric() bool {
	return v.isNum
}

// Number builds a numeric cell.
func Number(f float64) Value {
	return Value{num: f, isNum: true}
}

// Text builds a text cell.
func Text(s string) Value {
	return Value{str: s}
}

// New builds a Dataset from a column mapping (map with string keys and slice
// values) or from a flat slice (one unnamed column). Any other shape returns
// an *UnsupportedShapeError.
func New(data any) (*Dataset, error) {
	switch d := data.(type) {
	case *Dataset:
		if d == nil {
			return nil, &UnsupportedShapeError{Type: "nil"}
		}
		return d, nil
	case nil:
		return nil, &UnsupportedShapeError{Type: "nil"}
	}

	rv := reflect.ValueOf(data)
	switch rv.Kind() {
	case reflect.Map:
		return fromMapping(rv)
	case reflect.Slice, reflect.Array:
		col, err := toColumn(rv)
		if err != nil {
			return nil, err
		}
		return &Dataset{
			names:   []string{DefaultColumn},
			columns: map[string][]Value{DefaultColumn: col},
			rows:    len(col),
		}, nil
	default:
		return nil, &UnsupportedShapeError{Type: rv.Type().String()}
	}
}

// Empty returns a single-column dataset with no rows.
func Empty() *Dataset {
	return &Dataset{
		names:   []string{DefaultColumn},
		columns: map[string][]Value{DefaultColumn: {}},
	}
}

func fromMapping(rv reflect.Value) (*Dataset, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, &UnsupportedShapeError{
			Type:   rv.Type().String(),
			Reason: "column names must be strings",
		}
	}

	ds := &Dataset{columns: make(map[string][]Value, rv.Len())}
	for _, k := range rv.MapKeys() {
		ds.names = append(ds.names, k.String())
	}
	// map iteration is random; keep column order stable
	sort.Strings(ds.names)

	for i, name := range ds.names {
		inner := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		for inner.Kind() == reflect.Interface && !inner.IsNil() {
			inner = inner.Elem()
		}
		if inner.Kind() != reflect.Slice && inner.Kind() != reflect.Array {
			return nil, &UnsupportedShapeError{
				Type:   rv.Type().String(),
				Reason: fmt.Sprintf("column %q is not a sequence", name),
			}
		}
		col, err := toColumn(inner)
		if err != nil {
			return nil, err
		}
		if i > 0 && len(col) != ds.rows {
			return nil, &UnsupportedShapeError{
				Type:   rv.Type().String(),
				Reason: fmt.Sprintf("column %q has %d rows, expected %d", name, len(col), ds.rows),
			}
		}
		ds.rows = len(col)
		ds.columns[name] = col
	}

	return ds, nil
}

func toColumn(rv reflect.Value) ([]Value, error) {
	col := make([]Value, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		v, err := toValue(rv.Index(i))
		if err != nil {
			return nil, err
		}
		col[i] = v
	}
	return col, nil
}

func toValue(rv reflect.Value) (Value, error) {
	for rv.Kind() == reflect.Interface || rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return Value{}, &UnsupportedShapeError{Type: "nil", Reason: "cells cannot be nil"}
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return Number(rv.Float()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Number(float64(rv.Uint())), nil
	case reflect.Bool:
		if rv.Bool() {
			return Number(1), nil
		}
		return Number(0), nil
	case reflect.String:
		return Text(rv.String()), nil
	default:
		return Value{}, &UnsupportedShapeError{
			Type:   rv.Type().String(),
			Reason: "cells must be scalars",
		}
	}
}

// Columns returns the column names in stable order.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

// Rows returns the number of rows.
func (d *Dataset) Rows() int {
	return d.rows
}

// Has reports whether the named column exists.
func (d *Dataset) Has(name string) bool {
	_, ok := d.columns[name]
	return ok
}

// Column returns a copy of the named column. An empty name selects the first
// column.
func (d *Dataset) Column(name string) ([]Value, error) {
	if name == "" {
		if len(d.names) == 0 {
			return nil, fmt.Errorf("dataset has no columns")
		}
		name = d.names[0]
	}
	col, ok := d.columns[name]
	if !ok {
		return nil, fmt.Errorf("unknown column %q", name)
	}
	out := make([]Value, len(col))
	copy(out, col)
	return out, nil
}

// Floats returns the named column as float64 values. Non-numeric cells fail.
func (d *Dataset) Floats(name string) ([]float64, error) {
	col, err := d.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(col))
	for i, v := range col {
		f, ok := v.Float()
		if !ok {
			return nil, fmt.Errorf("row %d: %q is not numeric", i, v.String())
		}
		out[i] = f
	}
	return out, nil
}

// Select returns a new single-column dataset holding only the named column.
func (d *Dataset) Select(name string) (*Dataset, error) {
	col, err := d.Column(name)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = d.names[0]
	}
	return &Dataset{
		names:   []string{name},
		columns: map[string][]Value{name: col},
		rows:    len(col),
	}, nil
}

// Where returns the rows for which mask is true. The mask must have one entry
// per row.
func (d *Dataset) Where(mask []bool) (*Dataset, error) {
	if len(mask) != d.rows {
		return nil, fmt.Errorf("mask has %d entries, dataset has %d rows", len(mask), d.rows)
	}

	out := &Dataset{
		names:   d.Columns(),
		columns: make(map[string][]Value, len(d.names)),
	}
	for _, name := range d.names {
		src := d.columns[name]
		dst := make([]Value, 0, len(src))
		for i, keep := range mask {
			if keep {
				dst = append(dst, src[i])
			}
		}
		out.columns[name] = dst
		out.rows = len(dst)
	}
	return out, nil
}

// MapFloat returns a copy where every cell of every column is numeric. Cells
// that cannot be parsed fail the whole conversion.
func (d *Dataset) MapFloat() (*Dataset, error) {
	out := &Dataset{
		names:   d.Columns(),
		columns: make(map[string][]Value, len(d.names)),
		rows:    d.rows,
	}
	for _, name := range d.names {
		fs, err := d.Floats(name)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		col := make([]Value, len(fs))
		for i, f := range fs {
			col[i] = Number(f)
		}
		out.columns[name] = col
	}
	return out, nil
}
