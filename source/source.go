// Package source turns the output of external alignment tools into
// per-sample feature tables.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/carbocation/segmm"
	"github.com/carbocation/segmm/feature"
)

// Source produces one feature for a set of samples. The returned table is
// sorted by sample ID.
type Source interface {
	Feature() feature.Name
	Produce(ctx context.Context, samples []Sample) (*feature.Table, error)
}

// Sample is one line of the alignment manifest.
type Sample struct {
	ID   string `csv:"sampleid"`
	Path string `csv:"path"`
}

type Format string

const (
	BAM  Format = "BAM"
	CRAM Format = "CRAM"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToUpper(strings.TrimSpace(s))); f {
	case BAM, CRAM:
		return f, nil
	}

	return "", fmt.Errorf("%w: alignment format %q is not one of %s or %s", segmm.ErrConfiguration, s, BAM, CRAM)
}

// Alignment describes how alignment files are read by the external tools.
type Alignment struct {
	Format  Format
	FASTA   string
	Quality int
}

// Validate rejects CRAM input without a reference FASTA.
func (a Alignment) Validate() error {
	if a.Format != CRAM {
		return nil
	}

	if a.FASTA == "" {
		return fmt.Errorf("%w: CRAM input requires a reference FASTA", segmm.ErrConfiguration)
	}
	if _, err := os.Stat(segmm.ExpandHome(a.FASTA)); err != nil {
		return fmt.Errorf("%w: reference FASTA %s cannot be read: %v", segmm.ErrConfiguration, a.FASTA, err)
	}

	return nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, pfx.Err(err)
	}

	return true, nil
}

func mkdir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return pfx.Err(fmt.Errorf("%s: %w", filepath.Clean(dir), err))
	}

	return nil
}
