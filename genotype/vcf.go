package genotype

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"

	"cloud.google.com/go/storage"
	"github.com/brentp/irelate/interfaces"
	"github.com/carbocation/bix"
	"github.com/carbocation/segmm"
	"github.com/carbocation/vcfgo"
)

var BufferSize = 4096 * 8

// XChromosomes are the contig names treated as the X chromosome.
var XChromosomes = []string{"X", "chrX", "23"}

// tabixEnd is the largest coordinate a tabix index can address.
const tabixEnd = 1 << 29

func isXChromosome(chrom string) bool {
	for _, x := range XChromosomes {
		if chrom == x {
			return true
		}
	}

	return false
}

type TabixLocus struct {
	chrom string
	start int
	end   int
}

func (tl TabixLocus) Chrom() string {
	return tl.chrom
}

func (tl TabixLocus) Start() uint32 {
	return uint32(tl.start)
}

func (tl TabixLocus) End() uint32 {
	return uint32(tl.end)
}

// OpenVCF collects the X chromosome genotypes of every sample in a VCF. When a
// tabix index sits next to the file only the X chromosome is fetched;
// otherwise the whole file is scanned.
func OpenVCF(ctx context.Context, path string, client *storage.Client) (Reader, error) {
	indexed, err := segmm.Exists(ctx, path+".tbi", client)
	if err != nil {
		return nil, err
	}

	var p *pivot
	if indexed {
		p, err = readTabixVCF(path, client)
	} else {
		p, err = readAllVCF(ctx, path, client)
	}
	if err != nil {
		return nil, err
	}

	return FromRecords(p.records()...), nil
}

func readAllVCF(ctx context.Context, path string, client *storage.Client) (*pivot, error) {
	rc, err := segmm.Open(ctx, path, client)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	// Lazy genotype parsing, so only X chromosome sites pay for it
	rdr, err := vcfgo.NewReader(bufio.NewReaderSize(rc, BufferSize), true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	p := newPivot(rdr.Header.SampleNames)
	log.Println(len(p.ids), "samples found in", path)

	nX := 0
	for {
		variant := rdr.Read()
		if variant == nil {
			break
		}
		if !isXChromosome(variant.Chromosome) {
			continue
		}

		if err := variant.Header.ParseSamples(variant); err != nil {
			return nil, fmt.Errorf("%s at %s:%d: %w", path, variant.Chromosome, variant.Pos, err)
		}
		if err := p.addVariant(variant); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		nX++
	}
	if err := rdr.Error(); err != nil {
		log.Println("Invalid VCF features in", path, "(continuing):", err)
		rdr.Clear()
	}
	log.Printf("Used %d X chromosome sites from %s\n", nX, path)

	return p, nil
}

func readTabixVCF(path string, client *storage.Client) (*pivot, error) {
	tbx, err := bix.NewGCP(path, client)
	if err != nil {
		return nil, err
	}
	defer tbx.Close()

	p := newPivot(tbx.VReader.Header.SampleNames)
	log.Println(len(p.ids), "samples found in", path)

	nX := 0
	var queryErr error
	for _, chrom := range XChromosomes {
		vals, err := tbx.Query(TabixLocus{chrom: chrom, start: 0, end: tabixEnd})
		if err != nil {
			// Only one of the spellings is expected to be present
			queryErr = err
			continue
		}

		for {
			v, err := vals.Next()
			if err == io.EOF {
				break
			} else if err != nil {
				return nil, err
			}

			// Unwrap multiple layers to get to vcfgo.Variant{}
			v2, ok := v.(interfaces.VarWrap)
			if !ok {
				return nil, fmt.Errorf("%s:%d in %s is not a valid VarWrap", v.Chrom(), v.End(), path)
			}
			snp, ok := v2.IVariant.(*vcfgo.Variant)
			if !ok {
				return nil, fmt.Errorf("%s:%d in %s is not a valid IVariant", v.Chrom(), v.End(), path)
			}

			if err := tbx.VReader.Header.ParseSamples(snp); err != nil {
				return nil, err
			}
			if err := p.addVariant(snp); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			nX++
		}
		vals.Close()
	}
	if nX == 0 && queryErr != nil {
		return nil, fmt.Errorf("%s: no X chromosome could be queried: %w", path, queryErr)
	}
	log.Printf("Used %d X chromosome sites from %s\n", nX, path)

	return p, nil
}

// addVariant appends one site's calls. VCF allele index i becomes code i+1 so
// that the reference allele is never confused with the missing sentinel.
// Haploid calls count as homozygous.
func (p *pivot) addVariant(v *vcfgo.Variant) error {
	if len(v.Samples) != len(p.ids) {
		return fmt.Errorf("%w: site %s:%d has %d samples but the header lists %d", segmm.ErrComputation, v.Chromosome, v.Pos, len(v.Samples), len(p.ids))
	}

	for i, sample := range v.Samples {
		if sample == nil || len(sample.GT) == 0 {
			p.add(i, MissingAllele, MissingAllele)
			continue
		}

		a := vcfAllele(sample.GT[0])
		b := a
		if len(sample.GT) > 1 {
			b = vcfAllele(sample.GT[1])
		}
		p.add(i, a, b)
	}

	return nil
}

func vcfAllele(gt int) Allele {
	if gt < 0 {
		return MissingAllele
	}

	return Allele(strconv.Itoa(gt + 1))
}
