package classify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/carbocation/segmm"
	"github.com/carbocation/segmm/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	cmds []source.Command
	err  error
}

func (r *recordingRunner) Pipe(ctx context.Context, stdout io.Writer, cmds ...source.Command) error {
	r.cmds = append(r.cmds, cmds...)
	return r.err
}

func TestRun(t *testing.T) {
	r := &recordingRunner{}
	h := Handoff{FeaturePath: "/out/feature.txt", Threshold: 0.1}

	require.NoError(t, Run(context.Background(), r, "Rscript", "seGMM.r", h, "/out"))
	require.Len(t, r.cmds, 1)
	assert.Equal(t, "Rscript seGMM.r /out/feature.txt 0.1 /out", r.cmds[0].String())
}

func TestRunRejectsThreshold(t *testing.T) {
	for _, th := range []float64{-0.01, 1.01} {
		r := &recordingRunner{}
		err := Run(context.Background(), r, "Rscript", "seGMM.r", Handoff{FeaturePath: "f", Threshold: th}, "/out")
		assert.True(t, errors.Is(err, segmm.ErrConfiguration), "%v", th)
		assert.Empty(t, r.cmds)
	}
}

func TestRunToolFailure(t *testing.T) {
	r := &recordingRunner{err: fmt.Errorf("%w: exit status 1", segmm.ErrExternalTool)}
	err := Run(context.Background(), r, "Rscript", "seGMM.r", Handoff{FeaturePath: "f", Threshold: 0}, "/out")
	assert.True(t, errors.Is(err, segmm.ErrExternalTool))
}
