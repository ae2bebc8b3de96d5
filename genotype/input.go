package genotype

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/carbocation/segmm"
)

// Input names a genotype file. At most one of VCF, BGEN and PED may be set;
// BGEN also needs its Oxford sample file.
type Input struct {
	VCF    string
	BGEN   string
	Sample string
	PED    string

	HardCallThreshold float64
}

// Empty reports whether no genotype file was given.
func (in Input) Empty() bool {
	return in.VCF == "" && in.BGEN == "" && in.PED == ""
}

func (in Input) Validate() error {
	n := 0
	for _, p := range []string{in.VCF, in.BGEN, in.PED} {
		if p != "" {
			n++
		}
	}
	if n > 1 {
		return fmt.Errorf("%w: give only one of a VCF, a BGEN or a PED file", segmm.ErrConfiguration)
	}
	if in.BGEN != "" && in.Sample == "" {
		return fmt.Errorf("%w: a BGEN file needs its .sample file", segmm.ErrConfiguration)
	}

	return nil
}

// Open returns a reader over whichever file was given.
func (in Input) Open(ctx context.Context, client *storage.Client) (Reader, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	switch {
	case in.VCF != "":
		return OpenVCF(ctx, in.VCF, client)
	case in.BGEN != "":
		threshold := in.HardCallThreshold
		if threshold == 0 {
			threshold = DefaultHardCallThreshold
		}
		return OpenBGEN(segmm.ExpandHome(in.BGEN), segmm.ExpandHome(in.Sample), threshold)
	case in.PED != "":
		return OpenPED(ctx, in.PED, client)
	}

	return nil, fmt.Errorf("%w: no genotype file given", segmm.ErrConfiguration)
}
