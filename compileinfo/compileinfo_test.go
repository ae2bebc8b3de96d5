package compileinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	c := CompileInfo{
		Binary:     "segmm",
		Module:     "github.com/carbocation/segmm",
		Version:    "(devel)",
		GoVersion:  "go1.18",
		Commit:     "abc123",
		CommitTime: "2022-01-01T00:00:00Z",
		Modified:   true,
	}

	assert.Equal(t, "segmm (github.com/carbocation/segmm (devel)) built with go1.18 at commit abc123 (modified) 2022-01-01T00:00:00Z", c.String())
	assert.Contains(t, CompileInfo{}.String(), "commit unknown")
}

func TestGet(t *testing.T) {
	// Test binaries carry build info with at least the Go version
	assert.NotEmpty(t, Get().GoVersion)
}
