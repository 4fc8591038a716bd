package store

import "sort"

// Table is an in-memory copy of one CSV file: a header plus rows of cells.
// Every row has exactly len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

func NewTable(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

func (t *Table) Len() int { return len(t.Rows) }

// Empty reports whether the table has no rows. A table with a header but
// no rows is empty too.
func (t *Table) Empty() bool { return len(t.Rows) == 0 }

// Index returns the position of column or -1.
func (t *Table) Index(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

func (t *Table) addColumn(column string) int {
	t.Columns = append(t.Columns, column)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], "")
	}
	return len(t.Columns) - 1
}

// Append adds one row. Keys that are not yet columns become new columns,
// with "" filled into the existing rows.
func (t *Table) Append(record map[string]string) {
	for _, k := range sortedKeys(record) {
		if t.Index(k) < 0 {
			t.addColumn(k)
		}
	}
	row := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		row[i] = record[c]
	}
	t.Rows = append(t.Rows, row)
}

// Value returns the cell at row/column, or "" if the column does not exist.
func (t *Table) Value(row int, column string) string {
	idx := t.Index(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) {
		return ""
	}
	return t.Rows[row][idx]
}

// Set writes a cell, adding the column if needed.
func (t *Table) Set(row int, column, value string) {
	idx := t.Index(column)
	if idx < 0 {
		idx = t.addColumn(column)
	}
	t.Rows[row][idx] = value
}

// Record returns row as a column->value map.
func (t *Table) Record(row int) map[string]string {
	rec := make(map[string]string, len(t.Columns))
	for i, c := range t.Columns {
		rec[c] = t.Rows[row][i]
	}
	return rec
}

func (t *Table) Records() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))
	for i := range t.Rows {
		out = append(out, t.Record(i))
	}
	return out
}

// Find returns the indexes of every row whose column equals value.
func (t *Table) Find(column, value string) []int {
	idx := t.Index(column)
	if idx < 0 {
		return nil
	}
	var out []int
	for i, row := range t.Rows {
		if row[idx] == value {
			out = append(out, i)
		}
	}
	return out
}

// EnsureColumns adds any of columns missing from the header, in order. It
// gives a freshly created table its canonical layout before the first Append.
func (t *Table) EnsureColumns(columns ...string) {
	for _, c := range columns {
		if t.Index(c) < 0 {
			t.addColumn(c)
		}
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
