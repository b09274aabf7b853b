package fileio

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrMultipleRoots reports an attempt to map files that are not all beneath
// one common source root.
var ErrMultipleRoots = errors.New("source files are not subpaths of one common root")

// MapArchive classifies files into archive mappings and unmapped leftovers.
//
// Every file must live beneath sourceRoot or the call fails with
// ErrMultipleRoots. A file is excluded when any exclude pattern matches its
// slash-separated path relative to sourceRoot. With a non-empty include list
// a file must additionally match at least one include pattern; an empty
// include list admits everything not excluded. Mapped files take the archive
// path archiveRoot/relative; an empty (or "/") archiveRoot maps them at the
// archive top level. The partition is a pure membership test: input order
// does not affect which side a file lands on.
func MapArchive(files []string, sourceRoot, archiveRoot string, includes, excludes []*regexp.Regexp) (ArchiveMapResult, error) {
	var result ArchiveMapResult
	for _, file := range files {
		relative, err := filepath.Rel(sourceRoot, file)
		if err != nil || relative == ".." || strings.HasPrefix(relative, ".."+string(filepath.Separator)) {
			return ArchiveMapResult{}, fmt.Errorf("%w: %q is outside %q", ErrMultipleRoots, file, sourceRoot)
		}
		relative = filepath.ToSlash(relative)

		included := !anyMatch(excludes, relative)
		if included && len(includes) > 0 {
			included = anyMatch(includes, relative)
		}
		if included {
			result.Mappings = append(result.Mappings, ArchiveFileMapping{
				SourcePath:  file,
				ArchivePath: joinArchivePath(archiveRoot, relative),
			})
		} else {
			result.UnmappedFiles = append(result.UnmappedFiles, file)
		}
	}
	return result, nil
}

func anyMatch(patterns []*regexp.Regexp, name string) bool {
	for _, pattern := range patterns {
		if pattern.MatchString(name) {
			return true
		}
	}
	return false
}

func joinArchivePath(archiveRoot, relative string) string {
	root := strings.Trim(archiveRoot, "/")
	if root == "" {
		return relative
	}
	return path.Join(root, relative)
}
