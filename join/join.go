// Package join merges per-feature tables that are sorted by sample ID into one
// wide table, keeping only samples present in every input.
package join

import (
	"fmt"
	"math"
	"sort"

	"github.com/carbocation/segmm"
	"github.com/carbocation/segmm/feature"
)

type Options struct {
	// DeriveXYratio computes XYratio = Xmap / Ymap for each emitted row.
	DeriveXYratio bool

	// Columns restricts the output to these features. When nil, every input
	// column (plus a derived XYratio) is kept.
	Columns []feature.Name
}

type Result struct {
	Table *feature.Table

	// Dropped lists samples missing from at least one input. Dropping them is
	// the intended completeness filter, not a failure.
	Dropped []string
}

// columnSource locates a column within the inputs.
type columnSource struct {
	table  int
	column int
}

// Join performs an N-way sorted merge-join. Every input must be sorted
// ascending by sample ID with unique keys. The output carries its columns in
// canonical order whatever the order of the inputs.
func Join(tables []*feature.Table, opts Options) (*Result, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: no feature tables to join", segmm.ErrConfiguration)
	}

	sources := make(map[feature.Name]columnSource)
	for i, t := range tables {
		if err := t.CheckSorted(); err != nil {
			return nil, err
		}

		for j, c := range t.Columns {
			if prior, exists := sources[c]; exists {
				return nil, fmt.Errorf("%w: feature %s is supplied by both %s and %s", segmm.ErrConfiguration, c, tables[prior.table].Source, t.Source)
			}
			sources[c] = columnSource{table: i, column: j}
		}
	}

	available := make([]feature.Name, 0, len(sources)+1)
	for c := range sources {
		available = append(available, c)
	}

	if opts.DeriveXYratio {
		if _, exists := sources[feature.XYratio]; exists {
			return nil, fmt.Errorf("%w: XYratio cannot be both supplied and derived", segmm.ErrConfiguration)
		}
		for _, needed := range []feature.Name{feature.Xmap, feature.Ymap} {
			if _, exists := sources[needed]; !exists {
				return nil, fmt.Errorf("%w: deriving XYratio requires %s, which no input supplies", segmm.ErrConfiguration, needed)
			}
		}
		available = append(available, feature.XYratio)
	}

	columns := feature.SortCanonical(available)
	if opts.Columns != nil {
		for _, c := range opts.Columns {
			if !feature.Contains(available, c) {
				return nil, fmt.Errorf("%w: requested feature %s is not available from the inputs", segmm.ErrConfiguration, c)
			}
		}
		columns = feature.SortCanonical(opts.Columns)
	}

	out := feature.NewTable("join", columns...)
	dropped := make(map[string]struct{})
	cursors := make([]int, len(tables))

	for !exhausted(tables, cursors) {
		// The largest current key is the only one all cursors can still agree
		// on.
		maxKey := tables[0].Rows[cursors[0]].SampleID
		for i := 1; i < len(tables); i++ {
			if k := tables[i].Rows[cursors[i]].SampleID; k > maxKey {
				maxKey = k
			}
		}

		agreed := true
		for i := range tables {
			if tables[i].Rows[cursors[i]].SampleID != maxKey {
				agreed = false
				dropped[tables[i].Rows[cursors[i]].SampleID] = struct{}{}
				cursors[i]++
			}
		}
		if !agreed {
			continue
		}

		values, err := project(tables, cursors, sources, columns, maxKey)
		if err != nil {
			return nil, err
		}
		out.Rows = append(out.Rows, feature.Row{SampleID: maxKey, Values: values})

		for i := range cursors {
			cursors[i]++
		}
	}

	// Whatever remains past the first exhausted input cannot be matched
	for i, t := range tables {
		for _, r := range t.Rows[cursors[i]:] {
			dropped[r.SampleID] = struct{}{}
		}
	}

	res := &Result{Table: out, Dropped: make([]string, 0, len(dropped))}
	for k := range dropped {
		res.Dropped = append(res.Dropped, k)
	}
	sort.Strings(res.Dropped)

	return res, nil
}

func exhausted(tables []*feature.Table, cursors []int) bool {
	for i, t := range tables {
		if cursors[i] >= len(t.Rows) {
			return true
		}
	}

	return false
}

// project assembles one output row from the aligned cursors.
func project(tables []*feature.Table, cursors []int, sources map[feature.Name]columnSource, columns []feature.Name, sampleID string) ([]float64, error) {
	get := func(c feature.Name) float64 {
		src := sources[c]
		return tables[src.table].Rows[cursors[src.table]].Values[src.column]
	}

	values := make([]float64, len(columns))
	for i, c := range columns {
		if _, supplied := sources[c]; supplied {
			values[i] = get(c)
			continue
		}

		// The only column that is not supplied is a derived XYratio
		ratio, err := XYratio(sampleID, get(feature.Xmap), get(feature.Ymap))
		if err != nil {
			return nil, err
		}
		values[i] = ratio
	}

	return values, nil
}

// XYratio divides the X mapping rate by the Y mapping rate, refusing to
// produce an infinite or undefined value.
func XYratio(sampleID string, xmap, ymap float64) (float64, error) {
	if math.IsNaN(xmap) || math.IsNaN(ymap) {
		return 0, fmt.Errorf("%w: sample %s is missing Xmap or Ymap, cannot derive XYratio", segmm.ErrComputation, sampleID)
	}
	if ymap == 0 {
		return 0, fmt.Errorf("%w: sample %s has Ymap of 0, cannot derive XYratio", segmm.ErrComputation, sampleID)
	}

	return xmap / ymap, nil
}
