package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/carbocation/segmm"
)

// Command is one external program invocation.
type Command struct {
	Name string
	Args []string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Runner executes a pipeline of commands, each one's stdout feeding the next
// one's stdin, with the last writing to stdout.
type Runner interface {
	Pipe(ctx context.Context, stdout io.Writer, cmds ...Command) error
}

// ExecRunner runs commands as child processes with a C locale so numeric
// output is not localized.
type ExecRunner struct {
	Env []string
}

func (e ExecRunner) Pipe(ctx context.Context, stdout io.Writer, cmds ...Command) error {
	if len(cmds) == 0 {
		return nil
	}

	env := append(os.Environ(), "LC_ALL=C")
	env = append(env, e.Env...)

	procs := make([]*exec.Cmd, len(cmds))
	stderrs := make([]*bytes.Buffer, len(cmds))
	for i, c := range cmds {
		procs[i] = exec.CommandContext(ctx, c.Name, c.Args...)
		procs[i].Env = env
		stderrs[i] = &bytes.Buffer{}
		procs[i].Stderr = stderrs[i]
	}

	// Each pipe is created here so that, once the children hold their copies,
	// the parent can close both ends. A reader that exits early then delivers
	// EPIPE to its writer instead of leaving it blocked.
	parentEnds := make([]*os.File, 0, 2*(len(procs)-1))
	closeParentEnds := func() {
		for _, f := range parentEnds {
			f.Close()
		}
	}
	for i := 0; i < len(procs)-1; i++ {
		r, w, err := os.Pipe()
		if err != nil {
			closeParentEnds()
			return fmt.Errorf("%w: %s: %v", segmm.ErrExternalTool, cmds[i], err)
		}
		procs[i].Stdout = w
		procs[i+1].Stdin = r
		parentEnds = append(parentEnds, r, w)
	}
	procs[len(procs)-1].Stdout = stdout

	var startErr error
	started := make([]bool, len(procs))
	for i := len(procs) - 1; i >= 0; i-- {
		if err := procs[i].Start(); err != nil {
			startErr = fmt.Errorf("%w: %s: %v", segmm.ErrExternalTool, cmds[i], err)
			break
		}
		started[i] = true
	}
	closeParentEnds()

	if startErr != nil {
		for i, p := range procs {
			if started[i] {
				p.Process.Kill()
				p.Wait()
			}
		}
		return startErr
	}

	errs := make([]error, len(procs))
	for i, p := range procs {
		errs[i] = p.Wait()
	}

	// An upstream failure is often only the broken pipe left by a failed
	// downstream tool, so the most downstream failure is reported.
	for i := len(procs) - 1; i >= 0; i-- {
		if errs[i] != nil {
			return fmt.Errorf("%w: %s: %v: %s", segmm.ErrExternalTool, cmds[i], errs[i], strings.TrimSpace(stderrs[i].String()))
		}
	}

	return nil
}
