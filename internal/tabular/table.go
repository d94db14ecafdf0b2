// Package tabular is the record store: one CSV-backed table per resource,
// with a deterministic round-trippable encoding and atomic replacement on
// persist.
//
// A table is a plain value. Callers own their copy; nothing in this package
// shares state between loads. Concurrent writers are coordinated one level
// up, by the lock coordinator.
package tabular

import (
	"maps"
	"slices"
)

// Row maps column name to value. Within a table every row carries exactly
// the schema's keys; absent values are the empty string, never a missing key.
type Row map[string]string

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	return maps.Clone(r)
}

// Table holds one resource's schema and rows in memory.
type Table struct {
	Columns []string
	Rows    []Row
}

// NewTable creates an empty table with the given schema.
func NewTable(columns []string) *Table {
	return &Table{Columns: slices.Clone(columns)}
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	c := &Table{Columns: slices.Clone(t.Columns), Rows: make([]Row, len(t.Rows))}
	for i, r := range t.Rows {
		c.Rows[i] = r.Clone()
	}
	return c
}

// normalize rewrites row to carry exactly the schema's keys.
// Unknown keys are dropped, missing ones default to "".
func (t *Table) normalize(row Row) Row {
	n := make(Row, len(t.Columns))
	for _, col := range t.Columns {
		n[col] = row[col]
	}
	return n
}

// AppendRow adds a row, normalized against the schema.
func (t *Table) AppendRow(row Row) {
	t.Rows = append(t.Rows, t.normalize(row))
}

// ReplaceRow overwrites the row at index i, normalized against the schema.
func (t *Table) ReplaceRow(i int, row Row) {
	t.Rows[i] = t.normalize(row)
}

// DeleteRow removes the row at index i.
func (t *Table) DeleteRow(i int) {
	t.Rows = slices.Delete(t.Rows, i, i+1)
}

// FindRow locates the first row whose values match every key/value pair in
// match. The match is an exact comparison over a subset of columns; rows
// identity is the composite of the matched values, not a surrogate ID.
// Returns the index and true, or -1 and false when nothing matches.
func (t *Table) FindRow(match Row) (int, bool) {
	for i, row := range t.Rows {
		ok := true
		for k, v := range match {
			if row[k] != v {
				ok = false
				break
			}
		}
		if ok {
			return i, true
		}
	}
	return -1, false
}
