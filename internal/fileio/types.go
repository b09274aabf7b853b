package fileio

// ArchiveFileMapping pairs a source filesystem path with the path the file
// takes inside an archive. Archive paths are slash-separated and always
// relative to the archive root.
type ArchiveFileMapping struct {
	SourcePath  string
	ArchivePath string
}

// ArchiveMapResult partitions a set of input files: every input path lands
// either in Mappings or in UnmappedFiles, never both, never neither.
type ArchiveMapResult struct {
	Mappings      []ArchiveFileMapping
	UnmappedFiles []string
}

// SourcePaths returns the source side of every mapping in the result.
func (r ArchiveMapResult) SourcePaths() []string {
	paths := make([]string, 0, len(r.Mappings))
	for _, mapping := range r.Mappings {
		paths = append(paths, mapping.SourcePath)
	}
	return paths
}

// ArchiveDescriptor describes one archive: its file mappings and the content
// digest over their sources. Digest is empty exactly when FileMappings is
// empty.
type ArchiveDescriptor struct {
	FileMappings []ArchiveFileMapping
	Digest       string
}
