package genotype

import "io"

// Reader yields one Record per sample and io.EOF when exhausted.
type Reader interface {
	Read() (*Record, error)
	Close() error
}

// FromRecords serves records from memory.
func FromRecords(recs ...Record) Reader {
	return &sliceReader{recs: recs}
}

type sliceReader struct {
	recs []Record
	pos  int
}

func (s *sliceReader) Read() (*Record, error) {
	if s.pos >= len(s.recs) {
		return nil, io.EOF
	}
	rec := s.recs[s.pos]
	s.pos++

	return &rec, nil
}

func (s *sliceReader) Close() error {
	return nil
}

// pivot accumulates site-major genotype calls into sample-major records,
// which is the shape VCF and BGEN data arrive in.
type pivot struct {
	ids     []string
	alleles [][]Allele
}

func newPivot(ids []string) *pivot {
	return &pivot{
		ids:     ids,
		alleles: make([][]Allele, len(ids)),
	}
}

func (p *pivot) add(sample int, a, b Allele) {
	p.alleles[sample] = append(p.alleles[sample], a, b)
}

func (p *pivot) records() []Record {
	out := make([]Record, len(p.ids))
	for i, id := range p.ids {
		out[i] = Record{SampleID: id, Alleles: p.alleles[i]}
	}

	return out
}
