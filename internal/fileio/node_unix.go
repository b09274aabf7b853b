//go:build unix

package fileio

import (
	"fmt"
	"io/fs"
	"syscall"
)

// nodeID identifies a physical directory by device and inode so that the
// walk visits it once no matter how many symlinks lead back to it.
type nodeID struct {
	dev uint64
	ino uint64
}

func nodeIDFor(path string, info fs.FileInfo) (nodeID, error) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return nodeID{}, fmt.Errorf("no stat information for %q", path)
	}
	return nodeID{dev: uint64(stat.Dev), ino: uint64(stat.Ino)}, nil
}
