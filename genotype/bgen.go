package genotype

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"

	"github.com/carbocation/bgen"
	"github.com/carbocation/pfx"
	"github.com/carbocation/segmm"
)

// DefaultHardCallThreshold is the minimum genotype probability accepted as a
// call.
const DefaultHardCallThreshold = 0.9

// OpenBGEN collects the X chromosome hard calls from a BGEN file. Sample IDs
// come from the accompanying Oxford .sample file, since BGEN sample
// identifiers are optional.
func OpenBGEN(bgenPath, samplePath string, threshold float64) (Reader, error) {
	ids, err := ReadOxfordSamples(samplePath)
	if err != nil {
		return nil, err
	}

	b, err := bgen.Open(bgenPath)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer b.Close()

	p := newPivot(ids)
	rdr := b.NewVariantReader()

	nX := 0
	for {
		variant := rdr.Read()
		if err := rdr.Error(); err != nil {
			return nil, fmt.Errorf("%s: %w", bgenPath, err)
		} else if variant == nil {
			break
		}

		used, err := p.addBGENVariant(variant, threshold)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", bgenPath, err)
		}
		if !used {
			continue
		}
		nX++
	}
	log.Printf("Used %d X chromosome sites from %s\n", nX, bgenPath)

	return FromRecords(p.records()...), nil
}

// addBGENVariant appends the hard calls of one site, reporting whether the
// site was used. Only biallelic X chromosome sites count.
func (p *pivot) addBGENVariant(v *bgen.Variant, threshold float64) (bool, error) {
	if !isXChromosome(v.Chromosome) || v.NAlleles != 2 {
		return false, nil
	}

	if len(v.SampleProbabilities) != len(p.ids) {
		return false, fmt.Errorf("%w: %s has %d samples but the sample file lists %d", segmm.ErrComputation, v.RSID, len(v.SampleProbabilities), len(p.ids))
	}

	for i := range v.SampleProbabilities {
		a, b := HardCall(&v.SampleProbabilities[i], v.Phased, threshold)
		p.add(i, a, b)
	}

	return true, nil
}

// HardCall converts one biallelic sample probability into an allele pair.
// Alleles are coded 1 and 2; a call whose best probability falls below
// threshold is missing.
func HardCall(sp *bgen.SampleProbability, phased bool, threshold float64) (Allele, Allele) {
	if sp == nil || sp.Missing {
		return MissingAllele, MissingAllele
	}
	probs := sp.Probabilities

	switch {
	case phased && len(probs) == 4:
		// Two haplotypes, each with a probability per allele
		return haplotypeCall(probs[0:2], threshold), haplotypeCall(probs[2:4], threshold)
	case phased && len(probs) == 2:
		a := haplotypeCall(probs, threshold)
		return a, a
	case len(probs) == 2:
		// Unphased haploid
		a := haplotypeCall(probs, threshold)
		return a, a
	case len(probs) == 3:
		// Unphased diploid: AA, AB, BB
		switch best, p := argmax(probs); {
		case p < threshold:
			return MissingAllele, MissingAllele
		case best == 0:
			return "1", "1"
		case best == 1:
			return "1", "2"
		default:
			return "2", "2"
		}
	}

	return MissingAllele, MissingAllele
}

func haplotypeCall(probs []float64, threshold float64) Allele {
	best, p := argmax(probs)
	if p < threshold {
		return MissingAllele
	}

	return Allele(fmt.Sprint(best + 1))
}

func argmax(probs []float64) (int, float64) {
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}

	return best, probs[best]
}

// ReadOxfordSamples returns the ID_1 column of an Oxford .sample file, whose
// first two lines are the header and the column type line.
func ReadOxfordSamples(samplePath string) ([]string, error) {
	f, err := os.Open(samplePath)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ' '
	r.FieldsPerRecord = -1

	recs, err := r.ReadAll()
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", samplePath, err))
	}

	ids := make([]string, 0, len(recs))
	for i, line := range recs {
		if i <= 1 || len(line) == 0 {
			continue
		}
		ids = append(ids, line[0])
	}

	return ids, nil
}
