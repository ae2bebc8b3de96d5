// Package plan decides which features a run needs from the sequencing
// modality and the user's chromosome and SRY choices.
package plan

import (
	"fmt"
	"strings"

	"github.com/carbocation/segmm"
	"github.com/carbocation/segmm/feature"
)

type Modality string

const (
	WGS Modality = "WGS"
	WES Modality = "WES"
	TGS Modality = "TGS"
)

// Chromosome is the TGS sex-chromosome selection. The zero value means no
// selection was made.
type Chromosome string

const (
	NoChromosome Chromosome = ""
	ChromosomeX  Chromosome = "x"
	ChromosomeY  Chromosome = "y"
	ChromosomeXY Chromosome = "xy"
)

// MinFeatures is the fewest features the downstream classifier accepts.
const MinFeatures = 2

// Plan is an ordered feature list. When DeriveXYratio is set, XYratio is
// computed from Xmap and Ymap during the join and never fetched.
type Plan struct {
	Features      []feature.Name
	DeriveXYratio bool
}

// Has reports whether the plan includes n.
func (p Plan) Has(n feature.Name) bool {
	return feature.Contains(p.Features, n)
}

// Fetched lists the features that must be materialized by a source, in
// canonical order. A derived XYratio is replaced by its Xmap and Ymap inputs.
func (p Plan) Fetched() []feature.Name {
	out := make([]feature.Name, 0, len(p.Features))
	for _, n := range p.Features {
		if n == feature.XYratio && p.DeriveXYratio {
			continue
		}
		out = append(out, n)
	}

	if p.Has(feature.XYratio) && p.DeriveXYratio {
		for _, n := range []feature.Name{feature.Xmap, feature.Ymap} {
			if !feature.Contains(out, n) {
				out = append(out, n)
			}
		}
	}

	return feature.SortCanonical(out)
}

func ParseModality(s string) (Modality, error) {
	switch m := Modality(strings.ToUpper(strings.TrimSpace(s))); m {
	case WGS, WES, TGS:
		return m, nil
	}

	return "", fmt.Errorf("%w: sequencing type %q must be one of WGS, WES or TGS", segmm.ErrConfiguration, s)
}

func ParseChromosome(s string) (Chromosome, error) {
	switch c := Chromosome(strings.ToLower(strings.TrimSpace(s))); c {
	case NoChromosome, ChromosomeX, ChromosomeY, ChromosomeXY:
		return c, nil
	}

	return "", fmt.Errorf("%w: chromosome %q must be one of x, y or xy", segmm.ErrConfiguration, s)
}

// New builds the feature plan. WGS and WES always use all five features and
// ignore the chromosome and SRY choices. TGS builds the list from them, and
// rejects combinations that leave the classifier with too little to work
// with.
func New(modality Modality, chromosome Chromosome, sry bool) (Plan, error) {
	switch modality {
	case WGS, WES:
		return Plan{
			Features:      append([]feature.Name(nil), feature.Canonical...),
			DeriveXYratio: true,
		}, nil
	case TGS:
	default:
		return Plan{}, fmt.Errorf("%w: please select the sequencing method (WGS, WES or TGS) for your data", segmm.ErrConfiguration)
	}

	switch chromosome {
	case NoChromosome:
		return Plan{}, fmt.Errorf("%w: TGS data requires a sex chromosome selection (x, y or xy)", segmm.ErrConfiguration)
	case ChromosomeX, ChromosomeY, ChromosomeXY:
	default:
		return Plan{}, fmt.Errorf("%w: unknown chromosome selection %q", segmm.ErrConfiguration, chromosome)
	}

	if chromosome == ChromosomeX && sry {
		return Plan{}, fmt.Errorf("%w: SRY cannot be combined with an X-only chromosome selection", segmm.ErrConfiguration)
	}

	p := Plan{Features: make([]feature.Name, 0, len(feature.Canonical))}
	if chromosome == ChromosomeX || chromosome == ChromosomeXY {
		p.Features = append(p.Features, feature.XH, feature.Xmap)
	}
	if chromosome == ChromosomeY || chromosome == ChromosomeXY {
		p.Features = append(p.Features, feature.Ymap)
	}
	if chromosome == ChromosomeXY {
		p.Features = append(p.Features, feature.XYratio)
		p.DeriveXYratio = true
	}
	if sry {
		p.Features = append(p.Features, feature.SRY)
	}

	if len(p.Features) < MinFeatures {
		return Plan{}, fmt.Errorf("%w: at least %d features are required by the classifier, but chromosome %q with SRY=%t yields %v", segmm.ErrConfiguration, MinFeatures, chromosome, sry, p.Features)
	}

	return p, nil
}
