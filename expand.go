package segmm

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome resolves a leading ~ in a local path to the home directory.
// Remote gs:// paths and paths with no home prefix are returned as given, as
// is everything when no home directory is known.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}

	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}
