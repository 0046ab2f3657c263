// Package table holds the in-memory tabular form that observation, product,
// and outcome data travel in between simulation, enrichment, and storage.
package table

import (
	"maps"
	"slices"
	"strconv"
)

// Row maps a column name to its value. Values are string, int64, float64,
// or bool.
type Row map[string]any

// Table is an ordered set of columns plus rows keyed by column name.
type Table struct {
	Columns []string
	Rows    []Row
}

// New creates an empty table with the given column order.
func New(columns ...string) *Table {
	return &Table{Columns: slices.Clone(columns)}
}

// Len returns the row count. A nil table has zero rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether name is one of the table's columns.
func (t *Table) HasColumn(name string) bool {
	return t != nil && slices.Contains(t.Columns, name)
}

// AppendColumn adds name to the column order if it is not already present.
func (t *Table) AppendColumn(name string) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
}

// Append adds a row and registers any columns it introduces, in sorted order
// so the result does not depend on map iteration.
func (t *Table) Append(r Row) {
	var extra []string
	for k := range r {
		if !t.HasColumn(k) {
			extra = append(extra, k)
		}
	}
	slices.Sort(extra)
	t.Columns = append(t.Columns, extra...)
	t.Rows = append(t.Rows, r)
}

// Clone returns a deep copy; rows can be mutated without touching t.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{
		Columns: slices.Clone(t.Columns),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = maps.Clone(r)
	}
	return out
}

// Column returns the values of one column in row order.
func (t *Table) Column(name string) []any {
	out := make([]any, 0, t.Len())
	for _, r := range t.Rows {
		out = append(out, r[name])
	}
	return out
}

// String returns v formatted the way it is written to CSV.
func String(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case []string:
		return joinList(x)
	default:
		return ""
	}
}

// Int returns v as an int64 when it holds an integral number.
func Int(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		if x == float64(int64(x)) {
			return int64(x), true
		}
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		return n, err == nil
	}
	return 0, false
}

// Float returns v as a float64 when it holds a number.
func Float(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	return 0, false
}
