package genotype

import (
	"context"
	"io"

	"github.com/carbocation/segmm/feature"
	"golang.org/x/sync/errgroup"
)

// Table computes the heterozygosity of every record from r, one row per
// sample, sorted by sample ID. When keep is non-nil only those samples are
// computed. Samples are independent, so up to workers of them run at once.
func Table(ctx context.Context, r Reader, keep map[string]bool, workers int) (*feature.Table, error) {
	recs := make([]*Record, 0)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		if keep != nil && !keep[rec.SampleID] {
			continue
		}
		recs = append(recs, rec)
	}

	if workers < 1 {
		workers = 1
	}

	ratios := make([]float64, len(recs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range recs {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			ratio, err := Heterozygosity(*recs[i])
			if err != nil {
				return err
			}
			ratios[i] = ratio

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := feature.NewTable("heterozygosity", feature.XH)
	for i, rec := range recs {
		if err := out.Append(rec.SampleID, ratios[i]); err != nil {
			return nil, err
		}
	}

	// Records arrive in file order
	out.SortRows()
	if err := out.CheckSorted(); err != nil {
		return nil, err
	}

	return out, nil
}
