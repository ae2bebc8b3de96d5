// Package reference reads a user-supplied feature table and folds newly
// computed samples into it.
package reference

import (
	"fmt"
	"strings"

	"github.com/carbocation/segmm"
	"github.com/carbocation/segmm/feature"
	"github.com/carbocation/segmm/plan"
)

// ParseHeader validates the header of a reference table. The first column
// must be the sample ID; every other column must be a distinct feature, and
// there must be enough of them for the classifier.
func ParseHeader(fields []string) ([]feature.Name, error) {
	if len(fields) == 0 || strings.TrimSpace(fields[0]) != feature.SampleIDColumn {
		first := ""
		if len(fields) > 0 {
			first = fields[0]
		}
		return nil, fmt.Errorf("%w: reference header must begin with %q, found %q", segmm.ErrConfiguration, feature.SampleIDColumn, first)
	}

	out := make([]feature.Name, 0, len(fields)-1)
	for _, field := range fields[1:] {
		name, err := feature.ParseName(strings.TrimSpace(field))
		if err != nil {
			return nil, fmt.Errorf("reference header column: %w", err)
		}
		if feature.Contains(out, name) {
			return nil, fmt.Errorf("%w: reference header repeats column %s", segmm.ErrConfiguration, name)
		}
		out = append(out, name)
	}

	if len(out) < plan.MinFeatures {
		return nil, fmt.Errorf("%w: reference header has %d feature columns %v; at least %d are required", segmm.ErrConfiguration, len(out), out, plan.MinFeatures)
	}

	return out, nil
}

// Required lists the features a source must produce so that new samples can
// be given every column of header. A header XYratio is derived, so it is
// replaced by Xmap and Ymap.
func Required(header []feature.Name) []feature.Name {
	p := plan.Plan{
		Features:      header,
		DeriveXYratio: feature.Contains(header, feature.XYratio),
	}

	return p.Fetched()
}
