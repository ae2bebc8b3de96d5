package feature

import (
	"fmt"
	"math"
	"sort"

	"github.com/carbocation/segmm"
)

// Row holds one sample's values, aligned with the owning Table's Columns. A
// NaN value is a missing cell.
type Row struct {
	SampleID string
	Values   []float64
}

// Table is a sample-keyed set of feature columns. Once built it is treated as
// frozen: consumers copy rather than mutate.
type Table struct {
	Columns []Name
	Rows    []Row

	// Source names where the table came from (a file path or a tool) for
	// error messages.
	Source string
}

// NewTable returns an empty table with the given columns.
func NewTable(source string, columns ...Name) *Table {
	return &Table{
		Columns: append([]Name(nil), columns...),
		Rows:    make([]Row, 0),
		Source:  source,
	}
}

// Append adds a row. values must align with t.Columns.
func (t *Table) Append(sampleID string, values ...float64) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("%s: sample %s has %d values but the table has %d columns", t.Source, sampleID, len(values), len(t.Columns))
	}

	t.Rows = append(t.Rows, Row{SampleID: sampleID, Values: append([]float64(nil), values...)})

	return nil
}

// Index is the position of name among the columns, or -1.
func (t *Table) Index(name Name) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}

	return -1
}

// Has reports whether the table carries the column.
func (t *Table) Has(name Name) bool {
	return t.Index(name) >= 0
}

// Value returns the named value of a row and whether it is present.
func (t *Table) Value(row Row, name Name) (float64, bool) {
	i := t.Index(name)
	if i < 0 || i >= len(row.Values) || math.IsNaN(row.Values[i]) {
		return 0, false
	}

	return row.Values[i], true
}

// Lookup finds a row by sample ID with a binary search; the table must be
// sorted.
func (t *Table) Lookup(sampleID string) (Row, bool) {
	i := sort.Search(len(t.Rows), func(i int) bool {
		return t.Rows[i].SampleID >= sampleID
	})
	if i < len(t.Rows) && t.Rows[i].SampleID == sampleID {
		return t.Rows[i], true
	}

	return Row{}, false
}

// SampleIDs lists the sample keys in row order.
func (t *Table) SampleIDs() []string {
	out := make([]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		out = append(out, r.SampleID)
	}

	return out
}

// SortRows orders rows ascending by sample ID.
func (t *Table) SortRows() {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		return t.Rows[i].SampleID < t.Rows[j].SampleID
	})
}

// CheckSorted verifies that rows are strictly ascending by sample ID, which
// also guarantees uniqueness.
func (t *Table) CheckSorted() error {
	for i := 1; i < len(t.Rows); i++ {
		prev, cur := t.Rows[i-1].SampleID, t.Rows[i].SampleID
		if prev == cur {
			return fmt.Errorf("%w: %s: sample %s appears more than once", segmm.ErrExternalTool, t.Source, cur)
		}
		if prev > cur {
			return fmt.Errorf("%w: %s: sample %s follows %s; table is not sorted by sample ID", segmm.ErrExternalTool, t.Source, cur, prev)
		}
	}

	return nil
}

// Canonicalize returns a copy whose columns follow the canonical order.
func (t *Table) Canonicalize() *Table {
	cols := SortCanonical(t.Columns)
	positions := make([]int, len(cols))
	for i, c := range cols {
		positions[i] = t.Index(c)
	}

	out := NewTable(t.Source, cols...)
	out.Rows = make([]Row, 0, len(t.Rows))
	for _, r := range t.Rows {
		vals := make([]float64, len(cols))
		for i, p := range positions {
			vals[i] = r.Values[p]
		}
		out.Rows = append(out.Rows, Row{SampleID: r.SampleID, Values: vals})
	}

	return out
}
