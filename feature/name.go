package feature

import (
	"fmt"
	"sort"

	"github.com/carbocation/segmm"
)

// Name identifies one of the sex-inference features.
type Name string

const (
	XH      Name = "XH"      // X chromosome heterozygosity
	Xmap    Name = "Xmap"    // X chromosome mapping rate
	Ymap    Name = "Ymap"    // Y chromosome mapping rate
	XYratio Name = "XYratio" // Xmap / Ymap
	SRY     Name = "SRY"     // mean depth over the SRY gene
)

// SampleIDColumn is the header of the key column in every wide table.
const SampleIDColumn = "sampleid"

// Canonical is the column order of every table this tool writes.
var Canonical = []Name{XH, Xmap, Ymap, XYratio, SRY}

// ParseName accepts only members of the closed feature set.
func ParseName(s string) (Name, error) {
	for _, n := range Canonical {
		if string(n) == s {
			return n, nil
		}
	}

	return "", fmt.Errorf("%w: %q is not a recognized feature (expected one of %v)", segmm.ErrConfiguration, s, Canonical)
}

// Rank is the position of n in the canonical order, or -1.
func (n Name) Rank() int {
	for i, c := range Canonical {
		if c == n {
			return i
		}
	}

	return -1
}

// SortCanonical returns a copy of names ordered canonically.
func SortCanonical(names []Name) []Name {
	out := append([]Name(nil), names...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Rank() < out[j].Rank()
	})

	return out
}

// Contains reports whether n is present in names.
func Contains(names []Name, n Name) bool {
	for _, v := range names {
		if v == n {
			return true
		}
	}

	return false
}
