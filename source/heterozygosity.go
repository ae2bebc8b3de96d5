package source

import (
	"context"

	"github.com/carbocation/segmm/feature"
	"github.com/carbocation/segmm/genotype"
)

// Heterozygosity computes XH from genotypes. Open is called once per Produce.
type Heterozygosity struct {
	Open    func(ctx context.Context) (genotype.Reader, error)
	Workers int
}

func (h *Heterozygosity) Feature() feature.Name { return feature.XH }

// Produce computes every sample in the genotype file when samples is nil, and
// only the listed samples otherwise.
func (h *Heterozygosity) Produce(ctx context.Context, samples []Sample) (*feature.Table, error) {
	r, err := h.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var keep map[string]bool
	if samples != nil {
		keep = make(map[string]bool, len(samples))
		for _, s := range samples {
			keep[s.ID] = true
		}
	}

	return genotype.Table(ctx, r, keep, h.Workers)
}
