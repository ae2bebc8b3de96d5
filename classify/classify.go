// Package classify hands the final feature table to the external
// Gaussian-mixture classifier.
package classify

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/carbocation/segmm"
	"github.com/carbocation/segmm/source"
)

// DefaultThreshold marks a sample as uncertain when its posterior is within
// this distance of the decision boundary.
const DefaultThreshold = 0.1

type Handoff struct {
	FeaturePath string
	Threshold   float64
}

func (h Handoff) Validate() error {
	if h.Threshold < 0 || h.Threshold > 1 {
		return fmt.Errorf("%w: uncertain threshold %v is outside [0,1]", segmm.ErrConfiguration, h.Threshold)
	}
	if h.FeaturePath == "" {
		return fmt.Errorf("%w: no feature table to classify", segmm.ErrConfiguration)
	}

	return nil
}

// Command is the classifier invocation for h.
func (h Handoff) Command(rscript, script, outdir string) source.Command {
	return source.Command{
		Name: rscript,
		Args: []string{script, h.FeaturePath, strconv.FormatFloat(h.Threshold, 'g', -1, 64), outdir},
	}
}

// Run invokes the classifier script, which writes its results into outdir.
func Run(ctx context.Context, runner source.Runner, rscript, script string, h Handoff, outdir string) error {
	if err := h.Validate(); err != nil {
		return err
	}

	cmd := h.Command(rscript, script, outdir)
	log.Printf("Classifying with %s\n", cmd)

	if err := runner.Pipe(ctx, os.Stderr, cmd); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}

	return nil
}
