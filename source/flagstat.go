package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/carbocation/pfx"
	"github.com/carbocation/segmm"
	"github.com/carbocation/segmm/feature"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultFlagstatLine labels the samtools flagstat line that is counted.
const DefaultFlagstatLine = "properly paired"

// TotalBasename names the whole-genome read counts.
const TotalBasename = "total"

// ReadCounter counts reads with samtools, optionally restricted to regions,
// and keeps the flagstat reports under <Outdir>/Read_stat so later runs can
// reuse them.
type ReadCounter struct {
	Outdir    string
	Samtools  string
	Alignment Alignment

	// FlagstatLine selects the counted flagstat line by its label.
	FlagstatLine string

	// Threads bounds how many samples are counted at once.
	Threads int

	Runner Runner

	group singleflight.Group
	mu    sync.Mutex
	total *feature.Table
}

func (rc *ReadCounter) dir() string {
	return filepath.Join(rc.Outdir, "Read_stat")
}

// Total returns the whole-genome count per sample. Concurrent callers share a
// single computation, and the result is kept for the life of the counter.
func (rc *ReadCounter) Total(ctx context.Context, samples []Sample) (*feature.Table, error) {
	rc.mu.Lock()
	if rc.total != nil {
		t := rc.total
		rc.mu.Unlock()
		return t, nil
	}
	rc.mu.Unlock()

	v, err, _ := rc.group.Do(TotalBasename, func() (interface{}, error) {
		t, err := rc.Counts(ctx, samples, TotalBasename, nil)
		if err != nil {
			return nil, err
		}

		rc.mu.Lock()
		rc.total = t
		rc.mu.Unlock()

		return t, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*feature.Table), nil
}

// Counts runs samtools view | samtools flagstat for each sample and returns
// the selected count. The per-sample report is written to
// Read_stat/<id>.<basename>.stat and reused if it already exists; the
// assembled table goes to Read_stat/<basename>.txt.
func (rc *ReadCounter) Counts(ctx context.Context, samples []Sample, basename string, regions []string) (*feature.Table, error) {
	if err := rc.Alignment.Validate(); err != nil {
		return nil, err
	}
	if err := mkdir(rc.dir()); err != nil {
		return nil, err
	}

	label := rc.FlagstatLine
	if label == "" {
		label = DefaultFlagstatLine
	}

	threads := rc.Threads
	if threads < 1 {
		threads = 1
	}

	counts := make([]float64, len(samples))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)
	for i := range samples {
		i := i
		g.Go(func() error {
			statPath := filepath.Join(rc.dir(), fmt.Sprintf("%s.%s.stat", samples[i].ID, basename))
			if err := rc.flagstat(ctx, samples[i], statPath, regions); err != nil {
				return err
			}

			n, err := readFlagstatFile(statPath, label)
			if err != nil {
				return fmt.Errorf("sample %s: %w", samples[i].ID, err)
			}
			counts[i] = n

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tablePath := filepath.Join(rc.dir(), basename+".txt")
	out := feature.NewTable(tablePath, feature.Name(basename))
	for i, s := range samples {
		if err := out.Append(s.ID, counts[i]); err != nil {
			return nil, err
		}
	}
	out.SortRows()
	if err := out.CheckSorted(); err != nil {
		return nil, err
	}

	if err := feature.WriteFileAtomic(tablePath, func(w io.Writer) error {
		return feature.WritePairs(w, out)
	}); err != nil {
		return nil, err
	}

	return out, nil
}

func (rc *ReadCounter) flagstat(ctx context.Context, s Sample, statPath string, regions []string) error {
	exists, err := fileExists(statPath)
	if err != nil || exists {
		return err
	}

	view := []string{"view", "-b", "-h", "-q", strconv.Itoa(rc.Alignment.Quality)}
	if rc.Alignment.Format == CRAM {
		view = append(view, "-T", rc.Alignment.FASTA)
	}
	view = append(view, s.Path)
	view = append(view, regions...)

	return feature.WriteFileAtomic(statPath, func(w io.Writer) error {
		err := rc.Runner.Pipe(ctx, w,
			Command{Name: rc.Samtools, Args: view},
			Command{Name: rc.Samtools, Args: []string{"flagstat", "-"}},
		)
		if err != nil {
			return fmt.Errorf("sample %s (%s): %w", s.ID, s.Path, err)
		}

		return nil
	})
}

func readFlagstatFile(path, label string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, pfx.Err(err)
	}
	defer f.Close()

	n, err := ParseFlagstat(f, label)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}

	return n, nil
}

// ParseFlagstat returns the QC-passed count from the first flagstat line
// whose label contains label, e.g. "1234 + 0 properly paired (99.1% : N/A)".
func ParseFlagstat(r io.Reader, label string) (float64, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, label) {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			break
		}
		n, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: flagstat line %q does not begin with a count", segmm.ErrExternalTool, line)
		}

		return n, nil
	}
	if err := scanner.Err(); err != nil {
		return 0, pfx.Err(err)
	}

	return 0, fmt.Errorf("%w: no flagstat line labeled %q", segmm.ErrExternalTool, label)
}
