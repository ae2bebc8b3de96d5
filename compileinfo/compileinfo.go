// Package compileinfo reports how a segmm binary was built, from the module
// and VCS metadata the Go toolchain embeds.
package compileinfo

import (
	"fmt"
	"os"
	"path"
	"runtime/debug"
)

type CompileInfo struct {
	Binary     string
	Module     string
	Version    string
	GoVersion  string
	Commit     string
	CommitTime string
	Modified   bool
}

func (c CompileInfo) String() string {
	commit := c.Commit
	if commit == "" {
		commit = "unknown"
	}
	if c.Modified {
		commit += " (modified)"
	}

	return fmt.Sprintf("%s (%s %s) built with %s at commit %s %s", c.Binary, c.Module, c.Version, c.GoVersion, commit, c.CommitTime)
}

// Get reads the build information of the running binary. Fields are left
// empty when the binary was built without it.
func Get() CompileInfo {
	out := CompileInfo{Binary: path.Base(os.Args[0])}

	z, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}

	out.GoVersion = z.GoVersion
	out.Module = z.Main.Path
	out.Version = z.Main.Version
	if z.Path != "" {
		out.Binary = path.Base(z.Path)
	}
	for _, s := range z.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
		case "vcs.time":
			out.CommitTime = s.Value
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}

	return out
}

func PrintToStdErr() {
	fmt.Fprintln(os.Stderr, Get())
}
