package feature

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// ColumnSummary describes the spread of one feature across samples.
type ColumnSummary struct {
	Name   Name
	N      int
	Mean   float64
	Median float64
	Min    float64
	Max    float64

	// SD is the sample standard deviation, NaN with fewer than two values.
	SD float64
}

func (c ColumnSummary) String() string {
	return fmt.Sprintf("%s: n=%d mean=%.4g sd=%.4g median=%.4g min=%.4g max=%.4g", c.Name, c.N, c.Mean, c.SD, c.Median, c.Min, c.Max)
}

// Summarize computes per-column statistics, ignoring missing cells.
func Summarize(t *Table) ([]ColumnSummary, error) {
	out := make([]ColumnSummary, 0, len(t.Columns))

	for i, name := range t.Columns {
		data := make(stats.Float64Data, 0, len(t.Rows))
		for _, r := range t.Rows {
			if !math.IsNaN(r.Values[i]) {
				data = append(data, r.Values[i])
			}
		}

		s := ColumnSummary{Name: name, N: len(data), SD: math.NaN()}
		if len(data) == 0 {
			out = append(out, s)
			continue
		}

		var err error
		if s.Mean, err = stats.Mean(data); err != nil {
			return nil, err
		}
		if s.Median, err = stats.Median(data); err != nil {
			return nil, err
		}
		if s.Min, err = stats.Min(data); err != nil {
			return nil, err
		}
		if s.Max, err = stats.Max(data); err != nil {
			return nil, err
		}
		if len(data) > 1 {
			s.SD = stat.StdDev(data, nil)
		}
		out = append(out, s)
	}

	return out, nil
}
