package source

import (
	"context"
	"fmt"

	"github.com/carbocation/segmm"
	"github.com/carbocation/segmm/feature"
)

// MappingRate is the fraction of a sample's counted reads that fall in
// Regions.
type MappingRate struct {
	Name    feature.Name
	Regions []string
	Counter *ReadCounter
}

// XMappingRate covers both the bare and the chr-prefixed contig names.
func XMappingRate(c *ReadCounter) *MappingRate {
	return &MappingRate{Name: feature.Xmap, Regions: []string{"X", "chrX"}, Counter: c}
}

func YMappingRate(c *ReadCounter) *MappingRate {
	return &MappingRate{Name: feature.Ymap, Regions: []string{"Y", "chrY"}, Counter: c}
}

func (m *MappingRate) Feature() feature.Name { return m.Name }

func (m *MappingRate) Produce(ctx context.Context, samples []Sample) (*feature.Table, error) {
	regional, err := m.Counter.Counts(ctx, samples, string(m.Name), m.Regions)
	if err != nil {
		return nil, err
	}

	total, err := m.Counter.Total(ctx, samples)
	if err != nil {
		return nil, err
	}

	out := feature.NewTable(string(m.Name), m.Name)
	for _, row := range regional.Rows {
		t, ok := total.Lookup(row.SampleID)
		if !ok {
			return nil, fmt.Errorf("%w: sample %s has a %s count but no total read count", segmm.ErrExternalTool, row.SampleID, m.Name)
		}
		if t.Values[0] == 0 {
			return nil, fmt.Errorf("%w: sample %s has no counted reads, cannot compute %s", segmm.ErrComputation, row.SampleID, m.Name)
		}

		if err := out.Append(row.SampleID, row.Values[0]/t.Values[0]); err != nil {
			return nil, err
		}
	}

	return out, nil
}
