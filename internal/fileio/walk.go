package fileio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ListFiles returns the absolute path of every regular file recursively
// beneath root, following symbolic links. Each physical directory is visited
// at most once, so trees containing symlink cycles (common in editable
// installs) terminate. The result is unordered.
func ListFiles(root string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", root, err)
	}
	rootInfo, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat %q: %w", absRoot, err)
	}
	if !rootInfo.IsDir() {
		return nil, fmt.Errorf("%q is not a directory", absRoot)
	}

	seen := make(map[nodeID]struct{})
	rootNode, err := nodeIDFor(absRoot, rootInfo)
	if err != nil {
		return nil, err
	}
	seen[rootNode] = struct{}{}

	var files []string
	var walk func(dir string) error
	walk = func(dir string) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("read directory %q: %w", dir, err)
		}
		for _, entry := range entries {
			full := filepath.Join(dir, entry.Name())
			info, err := os.Stat(full)
			if err != nil {
				// Dangling symlinks are skipped; anything else propagates.
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				return fmt.Errorf("stat %q: %w", full, err)
			}
			switch {
			case info.IsDir():
				node, err := nodeIDFor(full, info)
				if err != nil {
					return err
				}
				if _, ok := seen[node]; ok {
					continue
				}
				seen[node] = struct{}{}
				if err := walk(full); err != nil {
					return err
				}
			case info.Mode().IsRegular():
				files = append(files, full)
			}
		}
		return nil
	}
	if err := walk(absRoot); err != nil {
		return nil, err
	}
	return files, nil
}
