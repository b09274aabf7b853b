package fileio

import (
	"archive/zip"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/klauspost/compress/flate"
)

// WriteArchive writes a deflate-compressed zip archive composed of the given
// file mappings, at maximum compression. Entries are written in archive-path
// order so identical mappings produce identical archives.
func WriteArchive(archivePath string, mappings []ArchiveFileMapping) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("create archive %q: %w", archivePath, err)
	}
	defer out.Close()

	writer := zip.NewWriter(out)
	writer.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	ordered := make([]ArchiveFileMapping, len(mappings))
	copy(ordered, mappings)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ArchivePath < ordered[j].ArchivePath })

	for _, mapping := range ordered {
		if err := writeArchiveEntry(writer, mapping); err != nil {
			return err
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize archive %q: %w", archivePath, err)
	}
	return nil
}

func writeArchiveEntry(writer *zip.Writer, mapping ArchiveFileMapping) error {
	source, err := os.Open(mapping.SourcePath)
	if err != nil {
		return fmt.Errorf("open %q: %w", mapping.SourcePath, err)
	}
	defer source.Close()

	info, err := source.Stat()
	if err != nil {
		return fmt.Errorf("stat %q: %w", mapping.SourcePath, err)
	}

	header := &zip.FileHeader{
		Name:     mapping.ArchivePath,
		Method:   zip.Deflate,
		Modified: info.ModTime(),
	}
	header.SetMode(info.Mode())

	entry, err := writer.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("add archive entry %q: %w", mapping.ArchivePath, err)
	}
	if _, err := io.Copy(entry, source); err != nil {
		return fmt.Errorf("write archive entry %q: %w", mapping.ArchivePath, err)
	}
	return nil
}

// FormatFileSize renders a byte count as its largest binary (2^10) unit,
// e.g. 16252928 becomes "15.50 MiB".
func FormatFileSize(sizeInBytes float64) string {
	for _, unit := range []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB", "EiB", "ZiB"} {
		if math.Abs(sizeInBytes) < 1024.0 {
			return fmt.Sprintf("%.2f %s", sizeInBytes, unit)
		}
		sizeInBytes /= 1024.0
	}
	return fmt.Sprintf("%.2f YiB", sizeInBytes)
}
