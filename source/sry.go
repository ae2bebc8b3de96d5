package source

import (
	"bufio"
	"context"
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/carbocation/segmm"
	"github.com/carbocation/segmm/feature"
	"golang.org/x/sync/errgroup"
)

//go:embed lookups/*
var embeddedBEDs embed.FS

// Genomes lists the assemblies with a bundled SRY region.
var Genomes = []string{"hg19", "hg38"}

// DefaultMosdepthThreads is the decompression thread count given to mosdepth.
const DefaultMosdepthThreads = 4

// SRYBed returns the BED describing the SRY gene for genome.
func SRYBed(genome string) ([]byte, error) {
	b, err := embeddedBEDs.ReadFile("lookups/SRY_" + genome + ".bed")
	if err != nil {
		return nil, fmt.Errorf("%w: no SRY region for genome %q (expected one of %v)", segmm.ErrConfiguration, genome, Genomes)
	}

	return b, nil
}

// SRYDepth measures mean depth over the SRY gene with mosdepth.
type SRYDepth struct {
	Outdir    string
	Mosdepth  string
	Genome    string
	Alignment Alignment

	// MosdepthThreads is passed to mosdepth -t.
	MosdepthThreads int

	// Workers bounds how many samples run at once.
	Workers int

	Runner Runner
}

func (s *SRYDepth) Feature() feature.Name { return feature.SRY }

func (s *SRYDepth) dir() string {
	return filepath.Join(s.Outdir, "SRY")
}

func (s *SRYDepth) Produce(ctx context.Context, samples []Sample) (*feature.Table, error) {
	if err := s.Alignment.Validate(); err != nil {
		return nil, err
	}

	bed, err := SRYBed(s.Genome)
	if err != nil {
		return nil, err
	}
	if err := mkdir(s.dir()); err != nil {
		return nil, err
	}
	bedPath := filepath.Join(s.dir(), "SRY_"+s.Genome+".bed")
	if err := os.WriteFile(bedPath, bed, 0o644); err != nil {
		return nil, pfx.Err(err)
	}

	workers := s.Workers
	if workers < 1 {
		workers = 1
	}

	depths := make([]float64, len(samples))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range samples {
		i := i
		g.Go(func() error {
			d, err := s.depth(ctx, samples[i], bedPath)
			if err != nil {
				return err
			}
			depths[i] = d

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := feature.NewTable("mosdepth", feature.SRY)
	for i, sample := range samples {
		if err := out.Append(sample.ID, depths[i]); err != nil {
			return nil, err
		}
	}
	out.SortRows()

	return out, out.CheckSorted()
}

func (s *SRYDepth) depth(ctx context.Context, sample Sample, bedPath string) (float64, error) {
	prefix := filepath.Join(s.dir(), sample.ID)
	summaryPath := prefix + ".mosdepth.summary.txt"

	exists, err := fileExists(summaryPath)
	if err != nil {
		return 0, err
	}

	if !exists {
		threads := s.MosdepthThreads
		if threads < 1 {
			threads = DefaultMosdepthThreads
		}

		args := []string{"-t", strconv.Itoa(threads), "-Q", strconv.Itoa(s.Alignment.Quality), "-b", bedPath}
		if s.Alignment.Format == CRAM {
			args = append(args, "-f", s.Alignment.FASTA)
		}
		args = append(args, "-n", prefix, sample.Path)

		if err := s.Runner.Pipe(ctx, io.Discard, Command{Name: s.Mosdepth, Args: args}); err != nil {
			return 0, fmt.Errorf("sample %s (%s): %w", sample.ID, sample.Path, err)
		}
	}

	f, err := os.Open(summaryPath)
	if err != nil {
		return 0, fmt.Errorf("%w: sample %s: mosdepth left no summary: %v", segmm.ErrExternalTool, sample.ID, err)
	}
	defer f.Close()

	d, err := ParseMosdepthSummary(f)
	if err != nil {
		return 0, fmt.Errorf("sample %s: %s: %w", sample.ID, summaryPath, err)
	}

	return d, nil
}

// Column positions in a mosdepth summary.
const (
	summaryChrom = iota
	summaryLength
	summaryBases
	summaryMean
)

// ParseMosdepthSummary returns the mean depth of the first region row with
// non-zero depth, falling back to the first chromosome row and then to 0.
func ParseMosdepthSummary(r io.Reader) (float64, error) {
	var first *float64

	scanner := bufio.NewScanner(r)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		cols := strings.Fields(scanner.Text())
		if len(cols) == 0 || cols[summaryChrom] == "chrom" {
			continue
		}
		if len(cols) <= summaryMean {
			return 0, fmt.Errorf("%w: summary line %d has %d columns", segmm.ErrExternalTool, lineNo, len(cols))
		}

		mean, err := strconv.ParseFloat(cols[summaryMean], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: summary line %d has a non-numeric mean %q", segmm.ErrExternalTool, lineNo, cols[summaryMean])
		}

		if strings.HasSuffix(cols[summaryChrom], "_region") {
			if mean != 0 {
				return mean, nil
			}
			continue
		}
		if first == nil {
			first = &mean
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, pfx.Err(err)
	}

	if first != nil {
		return *first, nil
	}

	return 0, nil
}
