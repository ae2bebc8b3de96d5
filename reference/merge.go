package reference

import (
	"fmt"
	"math"

	"github.com/carbocation/segmm"
	"github.com/carbocation/segmm/feature"
	"github.com/carbocation/segmm/join"
)

type Merger struct {
	// RescaleReference also rewrites SRY as SRY / XYratio for rows that came
	// from the reference table. By default only new rows are rescaled, since
	// reference rows were rescaled when they were first produced.
	RescaleReference bool
}

type Result struct {
	Table *feature.Table

	// Added lists the samples appended to the reference.
	Added []string

	// Existing lists backfilled samples that were already in the reference
	// and were discarded in favor of the reference values.
	Existing []string

	// Dropped lists backfilled samples missing from at least one feature.
	Dropped []string
}

// Merge joins the backfilled per-feature tables by sample ID, keeps the
// samples that the reference does not already carry, rescales SRY, and
// returns the union sorted by sample ID with canonical columns.
func (m Merger) Merge(ref *feature.Table, backfill []*feature.Table) (*Result, error) {
	base := ref.Canonicalize()
	base.SortRows()
	if err := base.CheckSorted(); err != nil {
		return nil, fmt.Errorf("%w: %v", segmm.ErrConfiguration, err)
	}

	res := &Result{
		Added:    make([]string, 0),
		Existing: make([]string, 0),
		Dropped:  make([]string, 0),
	}

	if m.RescaleReference {
		for i := range base.Rows {
			if err := rescale(base, &base.Rows[i]); err != nil {
				return nil, err
			}
		}
	}

	out := feature.NewTable(ref.Source, base.Columns...)
	out.Rows = append(out.Rows, base.Rows...)

	if len(backfill) > 0 {
		joined, err := join.Join(backfill, join.Options{
			DeriveXYratio: base.Has(feature.XYratio),
			Columns:       base.Columns,
		})
		if err != nil {
			return nil, err
		}
		res.Dropped = joined.Dropped

		for _, row := range joined.Table.Rows {
			if _, exists := base.Lookup(row.SampleID); exists {
				res.Existing = append(res.Existing, row.SampleID)
				continue
			}

			if err := rescale(joined.Table, &row); err != nil {
				return nil, err
			}
			out.Rows = append(out.Rows, row)
			res.Added = append(res.Added, row.SampleID)
		}
	}

	out.SortRows()
	res.Table = out

	return res, nil
}

// rescale overwrites SRY with SRY / XYratio in place. Tables without both
// columns, and rows with a missing XYratio, are left alone.
func rescale(t *feature.Table, row *feature.Row) error {
	sry, xy := t.Index(feature.SRY), t.Index(feature.XYratio)
	if sry < 0 || xy < 0 {
		return nil
	}

	ratio := row.Values[xy]
	if math.IsNaN(ratio) {
		return nil
	}
	if ratio == 0 {
		return fmt.Errorf("%w: sample %s has XYratio of 0, cannot rescale SRY", segmm.ErrComputation, row.SampleID)
	}

	row.Values[sry] = row.Values[sry] / ratio

	return nil
}
