//go:build !unix

package fileio

import (
	"fmt"
	"io/fs"
	"path/filepath"
)

// nodeID identifies a physical directory. Without device/inode numbers the
// fallback is the fully resolved path, which collapses symlink aliases.
type nodeID struct {
	resolved string
}

func nodeIDFor(path string, _ fs.FileInfo) (nodeID, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nodeID{}, fmt.Errorf("resolve %q: %w", path, err)
	}
	return nodeID{resolved: resolved}, nil
}
