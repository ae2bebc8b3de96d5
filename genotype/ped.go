package genotype

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/segmm"
)

// Map the leading columns of a PED file to their positions
const (
	FamilyID int = iota
	IndividualID
	PaternalID
	MaternalID
	Sex
	Phenotype
	FirstAllele
)

// PED reads a PLINK .ped file (as written by `plink --recode`), one sample per
// line.
type PED struct {
	path    string
	rc      io.ReadCloser
	scanner *bufio.Scanner
	line    int
}

// OpenPED opens a possibly compressed PED file, locally or from Google
// Storage.
func OpenPED(ctx context.Context, path string, client *storage.Client) (*PED, error) {
	rc, err := segmm.Open(ctx, path, client)
	if err != nil {
		return nil, err
	}

	ped := &PED{
		path:    path,
		rc:      rc,
		scanner: bufio.NewScanner(rc),
	}
	// Each line holds two alleles per marker, so lines can be long
	ped.scanner.Buffer(make([]byte, 64*1024), 256*1024*1024)

	return ped, nil
}

func (p *PED) Close() error {
	return p.rc.Close()
}

// Read returns the next sample. The sample ID is the family ID, which PLINK
// sets equal to the individual ID when importing a VCF.
func (p *PED) Read() (*Record, error) {
	for p.scanner.Scan() {
		p.line++

		cols := strings.Fields(p.scanner.Text())
		if len(cols) == 0 {
			continue
		}
		if len(cols) < FirstAllele {
			return nil, fmt.Errorf("%w: %s line %d: expected at least %d columns, found %d", segmm.ErrComputation, p.path, p.line, FirstAllele, len(cols))
		}

		rec := &Record{
			SampleID: cols[FamilyID],
			Alleles:  make([]Allele, 0, len(cols)-FirstAllele),
		}
		for _, a := range cols[FirstAllele:] {
			rec.Alleles = append(rec.Alleles, Allele(a))
		}

		return rec, nil
	}

	if err := p.scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", p.path, err)
	}

	return nil, io.EOF
}
