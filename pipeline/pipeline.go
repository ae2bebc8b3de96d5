// Package pipeline sequences feature materialization, the join and the
// reference merge into the final feature table.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/carbocation/segmm"
	"github.com/carbocation/segmm/feature"
	"github.com/carbocation/segmm/join"
	"github.com/carbocation/segmm/plan"
	"github.com/carbocation/segmm/reference"
	"github.com/carbocation/segmm/source"
	"golang.org/x/sync/errgroup"
)

type Mode int

const (
	// Fresh computes every planned feature for every sample.
	Fresh Mode = iota

	// Reference appends newly computed samples to an existing feature table.
	Reference
)

func (m Mode) String() string {
	if m == Reference {
		return "reference"
	}

	return "fresh"
}

// Request selects the mode of a run. Build it with NewRequest.
type Request struct {
	Mode      Mode
	Plan      plan.Plan
	Reference string
}

// NewRequest chooses the mode once, at entry. A reference table fixes the
// feature set by its header, so a chromosome selection alongside it is
// rejected.
func NewRequest(p *plan.Plan, chromosome plan.Chromosome, referencePath string) (Request, error) {
	if referencePath != "" {
		if chromosome != plan.NoChromosome {
			return Request{}, fmt.Errorf("%w: a chromosome selection (%s) cannot be combined with a reference feature table", segmm.ErrConfiguration, chromosome)
		}

		return Request{Mode: Reference, Reference: referencePath}, nil
	}

	if p == nil {
		return Request{}, fmt.Errorf("%w: either a feature plan or a reference feature table is required", segmm.ErrConfiguration)
	}

	return Request{Mode: Fresh, Plan: *p}, nil
}

type Pipeline struct {
	Outdir  string
	Sources map[feature.Name]source.Source

	// Samples come from the alignment manifest. Nil means there is no
	// manifest, and genotype-only features cover every sample they find.
	Samples []source.Sample

	Merger reference.Merger

	// StorageClient, when set, lets the reference table live in Google
	// Storage.
	StorageClient *storage.Client
}

// Outcome describes a completed run.
type Outcome struct {
	Path    string
	Table   *feature.Table
	Dropped []string

	// Added lists samples appended to a reference table.
	Added []string
}

// Run produces <Outdir>/feature.txt. Configuration problems are reported
// before any external tool runs, and the final table exists only if the run
// succeeds.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Outcome, error) {
	if err := os.MkdirAll(p.Outdir, 0o755); err != nil {
		return nil, pfx.Err(err)
	}

	finalPath := filepath.Join(p.Outdir, feature.FinalTableName)
	if err := os.Remove(finalPath); err != nil && !os.IsNotExist(err) {
		return nil, pfx.Err(err)
	}

	var (
		out *Outcome
		err error
	)
	switch req.Mode {
	case Fresh:
		out, err = p.fresh(ctx, req.Plan)
	case Reference:
		out, err = p.withReference(ctx, req.Reference)
	default:
		err = fmt.Errorf("%w: unknown mode %d", segmm.ErrConfiguration, req.Mode)
	}
	if err != nil {
		return nil, err
	}

	if len(out.Dropped) > 0 {
		log.Printf("Dropped %d sample(s) missing at least one feature: %s\n", len(out.Dropped), strings.Join(out.Dropped, ", "))
	}

	summaries, err := feature.Summarize(out.Table)
	if err != nil {
		return nil, err
	}
	for _, s := range summaries {
		log.Println(s)
	}

	if err := feature.WriteFileAtomic(finalPath, func(w io.Writer) error {
		return feature.WriteWide(w, out.Table)
	}); err != nil {
		return nil, err
	}
	out.Path = finalPath

	log.Printf("Wrote %d samples with features %v to %s\n", len(out.Table.Rows), out.Table.Columns, finalPath)

	return out, nil
}

func (p *Pipeline) fresh(ctx context.Context, pl plan.Plan) (*Outcome, error) {
	needed := pl.Fetched()
	if err := p.checkSources(needed); err != nil {
		return nil, err
	}

	tables, err := p.materialize(ctx, needed, p.Samples)
	if err != nil {
		return nil, err
	}

	res, err := join.Join(tables, join.Options{
		DeriveXYratio: pl.DeriveXYratio && pl.Has(feature.XYratio),
		Columns:       pl.Features,
	})
	if err != nil {
		return nil, err
	}

	return &Outcome{Table: res.Table, Dropped: res.Dropped}, nil
}

func (p *Pipeline) withReference(ctx context.Context, path string) (*Outcome, error) {
	ref, err := reference.ReadFile(ctx, path, p.StorageClient)
	if err != nil {
		return nil, err
	}
	log.Printf("Reference table %s has %d samples with features %v\n", path, len(ref.Rows), ref.Columns)

	needed := reference.Required(ref.Columns)
	if err := p.checkSources(needed); err != nil {
		return nil, err
	}

	// Only samples the reference lacks are computed
	var pending []source.Sample
	if p.Samples != nil {
		pending = make([]source.Sample, 0, len(p.Samples))
		for _, s := range p.Samples {
			if _, exists := ref.Lookup(s.ID); exists {
				log.Printf("Sample %s is already in the reference table; keeping its reference values\n", s.ID)
				continue
			}
			pending = append(pending, s)
		}
	}

	var backfill []*feature.Table
	if pending == nil || len(pending) > 0 {
		backfill, err = p.materialize(ctx, needed, pending)
		if err != nil {
			return nil, err
		}
	}

	res, err := p.Merger.Merge(ref, backfill)
	if err != nil {
		return nil, err
	}
	if len(res.Existing) > 0 {
		log.Printf("Ignored computed values for %d sample(s) already in the reference: %s\n", len(res.Existing), strings.Join(res.Existing, ", "))
	}
	log.Printf("Added %d sample(s) to the reference table\n", len(res.Added))

	return &Outcome{Table: res.Table, Dropped: res.Dropped, Added: res.Added}, nil
}

func (p *Pipeline) checkSources(needed []feature.Name) error {
	for _, name := range needed {
		if _, exists := p.Sources[name]; !exists {
			return fmt.Errorf("%w: feature %s is needed but no input can produce it", segmm.ErrConfiguration, name)
		}
	}

	return nil
}

// materialize returns one table per needed feature, in the order given. A
// feature whose <Outdir>/<F>.txt already exists is loaded rather than
// recomputed. Features are produced concurrently and the first failure
// cancels the rest.
func (p *Pipeline) materialize(ctx context.Context, needed []feature.Name, samples []source.Sample) ([]*feature.Table, error) {
	tables := make([]*feature.Table, len(needed))

	g, ctx := errgroup.WithContext(ctx)
	for i, name := range needed {
		i, name := i, name
		g.Go(func() error {
			t, err := p.materializeOne(ctx, name, samples)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			tables[i] = t

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return tables, nil
}

func (p *Pipeline) materializeOne(ctx context.Context, name feature.Name, samples []source.Sample) (*feature.Table, error) {
	path := feature.Path(p.Outdir, name)

	if _, err := os.Stat(path); err == nil {
		log.Printf("Reusing %s\n", path)
		t, err := feature.ReadPairsFile(path, name)
		if err != nil {
			return nil, err
		}
		t.SortRows()
		return t, t.CheckSorted()
	} else if !os.IsNotExist(err) {
		return nil, pfx.Err(err)
	}

	log.Printf("Collecting %s\n", name)
	t, err := p.Sources[name].Produce(ctx, samples)
	if err != nil {
		return nil, err
	}
	t.Source = path
	if err := t.CheckSorted(); err != nil {
		return nil, err
	}

	if err := feature.WriteFileAtomic(path, func(w io.Writer) error {
		return feature.WritePairs(w, t)
	}); err != nil {
		return nil, err
	}
	log.Printf("Finished %s: %d samples\n", name, len(t.Rows))

	return t, nil
}
