package genotype

import (
	"fmt"

	"github.com/carbocation/segmm"
)

// Allele is one allele code as written by the genotype source (e.g. A/C/G/T
// in a PED file, or a 1-based allele index from a VCF).
type Allele string

// MissingAllele marks a no-call.
const MissingAllele Allele = "0"

// Record is one sample's calls over the marker set. Alleles is flat: pair i
// is Alleles[2i], Alleles[2i+1].
type Record struct {
	SampleID string
	Alleles  []Allele
}

// Counts tallies the pairs of one record.
type Counts struct {
	Heterozygous int
	Homozygous   int
	Missing      int
}

// Called is the number of pairs that are not missing.
func (c Counts) Called() int {
	return c.Heterozygous + c.Homozygous
}

// Ratio is Heterozygous / Called, and exactly 0 when nothing was called.
func (c Counts) Ratio() float64 {
	if c.Called() == 0 {
		return 0.0
	}

	return float64(c.Heterozygous) / float64(c.Called())
}

// Count classifies every allele pair of rec.
func Count(rec Record) (Counts, error) {
	var c Counts

	if len(rec.Alleles)%2 != 0 {
		return c, fmt.Errorf("%w: sample %s has an odd number of alleles (%d)", segmm.ErrComputation, rec.SampleID, len(rec.Alleles))
	}

	for i := 0; i < len(rec.Alleles); i += 2 {
		a, b := rec.Alleles[i], rec.Alleles[i+1]
		switch {
		case a == MissingAllele || b == MissingAllele:
			c.Missing++
		case a != b:
			c.Heterozygous++
		default:
			c.Homozygous++
		}
	}

	return c, nil
}

// Heterozygosity is the fraction of called pairs that are heterozygous.
func Heterozygosity(rec Record) (float64, error) {
	c, err := Count(rec)
	if err != nil {
		return 0, err
	}

	return c.Ratio(), nil
}
