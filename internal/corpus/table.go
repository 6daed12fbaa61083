// Package corpus reads the job-description corpus in bounded chunks and keeps
// the rows usable for training.
package corpus

import (
	"errors"
	"fmt"
)

const (
	// ColumnPosition holds the role label of a corpus row.
	ColumnPosition = "job_position"
	// ColumnSkills holds the free-text skills description of a corpus row.
	ColumnSkills = "relevant_skills"
)

// ErrEmptyCorpus is returned when no row survives cleaning and filtering.
var ErrEmptyCorpus = errors.New("no valid rows left in corpus after cleaning and language filtering")

// Row is one corpus record; cells are aligned with the table columns.
type Row []string

// Table is an in-memory slice of the corpus sharing one header.
type Table struct {
	Columns []string
	Rows    []Row

	index map[string]int
}

// NewTable creates an empty table with the given header.
func NewTable(columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column or -1.
func (t *Table) ColumnIndex(name string) int {
	if t.index == nil {
		t.index = make(map[string]int, len(t.Columns))
		for i, c := range t.Columns {
			if _, ok := t.index[c]; !ok {
				t.index[c] = i
			}
		}
	}
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// HasColumns reports whether every named column is present.
func (t *Table) HasColumns(names ...string) bool {
	for _, n := range names {
		if t.ColumnIndex(n) < 0 {
			return false
		}
	}
	return true
}

// Column returns the values of the named column in row order.
func (t *Table) Column(name string) ([]string, error) {
	i := t.ColumnIndex(name)
	if i < 0 {
		return nil, fmt.Errorf("column %q not found", name)
	}
	out := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out, nil
}

// Append adds the rows of other to t. Both tables must share the same header.
func (t *Table) Append(other *Table) error {
	if other == nil {
		return nil
	}
	if len(other.Columns) != len(t.Columns) {
		return fmt.Errorf("cannot append table with %d columns to table with %d columns", len(other.Columns), len(t.Columns))
	}
	for i := range t.Columns {
		if t.Columns[i] != other.Columns[i] {
			return fmt.Errorf("column %d mismatch: %q != %q", i, t.Columns[i], other.Columns[i])
		}
	}
	t.Rows = append(t.Rows, other.Rows...)
	return nil
}

// Keep retains the rows whose flag is set and returns the number of dropped rows.
func (t *Table) Keep(keep []bool) int {
	kept := t.Rows[:0]
	for i, row := range t.Rows {
		if keep[i] {
			kept = append(kept, row)
		}
	}
	dropped := len(t.Rows) - len(kept)
	t.Rows = kept
	return dropped
}
