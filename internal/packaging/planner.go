package packaging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"corral/internal/fileio"
	"corral/internal/settings"
)

// FunctionArchiveMetadata pairs a function definition with its planned
// archive.
type FunctionArchiveMetadata struct {
	Function settings.PackageFunction
	Archive  fileio.ArchiveDescriptor
}

// LayerArchiveMetadata pairs a layer definition with its planned archive.
type LayerArchiveMetadata struct {
	Layer   settings.PackageLayer
	Archive fileio.ArchiveDescriptor
}

// PackageArchiveMetadata is the local-truth snapshot of one packaging run:
// file mappings and digests for the function and every concrete layer. It is
// recomputed fresh per invocation and not mutated afterwards.
type PackageArchiveMetadata struct {
	Function *FunctionArchiveMetadata
	Layers   []LayerArchiveMetadata
}

// FunctionDigest returns the function archive digest, or "" when the package
// has no function.
func (m *PackageArchiveMetadata) FunctionDigest() string {
	if m.Function == nil {
		return ""
	}
	return m.Function.Archive.Digest
}

// UnmappedFilesError is returned when a package with the error behavior
// leaves installed files unclaimed.
type UnmappedFilesError struct {
	Files []string
}

func (e *UnmappedFilesError) Error() string {
	return fmt.Sprintf("package has %d unmapped files: %s", len(e.Files), strings.Join(e.Files, ", "))
}

// Planner computes archive metadata for a package against an install tree.
type Planner struct {
	Log zerolog.Logger
}

// Plan enumerates the install tree, partitions it into the function archive
// and layer archives per the package's rules, and digests each archive's
// source set.
//
// Layers are evaluated in declaration order as successive filters over a
// shrinking seed set: files a layer claims are removed before the next layer
// runs, so an earlier layer always wins a contested file.
func (p Planner) Plan(pkg settings.Package, installPath string) (*PackageArchiveMetadata, error) {
	// The enumerator returns absolute paths, so the mapping root must be
	// absolute too or relative install paths ("." from the CLI) never match.
	root, err := filepath.Abs(installPath)
	if err != nil {
		return nil, fmt.Errorf("resolve install path %q: %w", installPath, err)
	}

	// Resolve every layer's library root up front: runtime disagreements are
	// configuration errors and should fail before any filesystem work.
	layerRoots := make(map[string]string)
	for _, entry := range pkg.Layers {
		if entry.Layer == nil {
			continue
		}
		root, err := CommonRuntimeLibraryPath(entry.Layer.CompatibleRuntimes)
		if err != nil {
			return nil, fmt.Errorf("layer %q: %w", entry.Layer.Name, err)
		}
		layerRoots[entry.Layer.Name] = root
	}

	metadata := &PackageArchiveMetadata{}
	var seed []string

	if pkg.Function != nil {
		installed, err := fileio.ListFiles(root)
		if err != nil {
			return nil, err
		}

		includes := settings.Regexps(pkg.Function.Includes)
		excludes := settings.Regexps(pkg.Function.Excludes)
		if pkg.UnmappedFileBehavior == settings.UnmappedMapToFunction {
			includes, excludes = nil, nil
		}
		content, err := fileio.MapArchive(installed, root, "", includes, excludes)
		if err != nil {
			return nil, err
		}

		mappings := content.Mappings
		for _, extraPath := range pkg.Function.ExtraPaths {
			extra, err := p.mapExtra(extraPath)
			if err != nil {
				return nil, err
			}
			mappings = append(mappings, extra...)
		}

		digest, err := fileio.Digest(sourcePaths(mappings))
		if err != nil {
			return nil, err
		}
		metadata.Function = &FunctionArchiveMetadata{
			Function: *pkg.Function,
			Archive:  fileio.ArchiveDescriptor{FileMappings: mappings, Digest: digest},
		}

		switch {
		case len(content.UnmappedFiles) == 0:
		case pkg.UnmappedFileBehavior == settings.UnmappedMapToLayer:
			seed = content.UnmappedFiles
		case pkg.UnmappedFileBehavior == settings.UnmappedError:
			files := append([]string(nil), content.UnmappedFiles...)
			sort.Strings(files)
			return nil, &UnmappedFilesError{Files: files}
		default:
			p.Log.Debug().Strs("files", content.UnmappedFiles).Msg("ignoring unmapped files")
		}
	} else {
		installed, err := fileio.ListFiles(root)
		if err != nil {
			return nil, err
		}
		seed = installed
	}

	for _, entry := range pkg.Layers {
		if entry.Layer == nil {
			continue
		}
		layer := entry.Layer
		content, err := fileio.MapArchive(seed, root, layerRoots[layer.Name], settings.Regexps(layer.Includes), settings.Regexps(layer.Excludes))
		if err != nil {
			return nil, fmt.Errorf("layer %q: %w", layer.Name, err)
		}
		// Claimed files leave the seed set; later layers see only the rest.
		seed = content.UnmappedFiles

		digest, err := fileio.Digest(content.SourcePaths())
		if err != nil {
			return nil, fmt.Errorf("layer %q: %w", layer.Name, err)
		}
		metadata.Layers = append(metadata.Layers, LayerArchiveMetadata{
			Layer:   *layer,
			Archive: fileio.ArchiveDescriptor{FileMappings: content.Mappings, Digest: digest},
		})
	}

	p.logMetadata(metadata)
	return metadata, nil
}

// mapExtra maps one standalone extra path: every file under a directory, or
// the file itself, unconditionally. Missing extras are skipped with a
// warning.
func (p Planner) mapExtra(extraPath string) ([]fileio.ArchiveFileMapping, error) {
	resolved, err := filepath.Abs(extraPath)
	if err != nil {
		return nil, fmt.Errorf("resolve extra path %q: %w", extraPath, err)
	}
	info, err := os.Stat(resolved)
	if errors.Is(err, fs.ErrNotExist) {
		p.Log.Warn().Str("path", extraPath).Msg("extra path does not exist; skipping")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat extra path %q: %w", extraPath, err)
	}
	switch {
	case info.IsDir():
		files, err := fileio.ListFiles(resolved)
		if err != nil {
			return nil, err
		}
		content, err := fileio.MapArchive(files, resolved, "", nil, nil)
		if err != nil {
			return nil, err
		}
		return content.Mappings, nil
	case info.Mode().IsRegular():
		return []fileio.ArchiveFileMapping{{SourcePath: resolved, ArchivePath: filepath.Base(resolved)}}, nil
	}
	return nil, nil
}

func (p Planner) logMetadata(metadata *PackageArchiveMetadata) {
	if metadata.Function != nil {
		p.logMappings("function file mappings", metadata.Function.Archive.FileMappings)
		p.Log.Info().
			Str("function", metadata.Function.Function.Name).
			Str("digest", metadata.Function.Archive.Digest).
			Msg("function digest")
	}
	for _, layer := range metadata.Layers {
		p.logMappings("layer file mappings", layer.Archive.FileMappings)
		p.Log.Info().
			Str("layer", layer.Layer.Name).
			Str("digest", layer.Archive.Digest).
			Msg("layer digest")
	}
}

func (p Planner) logMappings(message string, mappings []fileio.ArchiveFileMapping) {
	if len(mappings) == 0 {
		return
	}
	event := p.Log.Debug()
	if !event.Enabled() {
		return
	}
	ordered := make([]fileio.ArchiveFileMapping, len(mappings))
	copy(ordered, mappings)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ArchivePath < ordered[j].ArchivePath })
	lines := make([]string, 0, len(ordered))
	for _, mapping := range ordered {
		lines = append(lines, mapping.ArchivePath+": "+mapping.SourcePath)
	}
	event.Strs("mappings", lines).Msg(message)
}

func sourcePaths(mappings []fileio.ArchiveFileMapping) []string {
	paths := make([]string, 0, len(mappings))
	for _, mapping := range mappings {
		paths = append(paths, mapping.SourcePath)
	}
	return paths
}
