package fileio

import (
	"bufio"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"net/textproto"
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

const digestBlockSize = 8192

// Package-metadata file patterns. RECORD is the per-distribution install
// manifest (PEP 376); PKG-INFO carries RFC-822 style metadata headers whose
// emission order is not stable across builds.
var (
	recordFilePattern     = regexp.MustCompile(`\.dist-info/RECORD$`)
	descriptorFilePattern = regexp.MustCompile(`\.egg-info/PKG-INFO$`)
)

// Digest returns a SHA-256 hex digest composed from the content of all
// source files, or an empty string for an empty input set.
//
// Files accounted for by a RECORD manifest contribute the manifest's own
// declared path and hash instead of their on-disk bytes, which keeps the
// digest stable across installs that only differ in timestamps or
// permissions. PKG-INFO descriptor files contribute their headers in sorted
// order for the same reason. Everything else contributes raw content. The
// digest is independent of the input ordering.
func Digest(files []string) (string, error) {
	full := make(map[string]struct{}, len(files))
	for _, file := range files {
		full[filepath.Clean(file)] = struct{}{}
	}
	if len(full) == 0 {
		return "", nil
	}

	sorted := make([]string, 0, len(full))
	for file := range full {
		sorted = append(sorted, file)
	}
	sort.Strings(sorted)

	digest := sha256.New()
	done := make(map[string]struct{})
	for _, file := range sorted {
		if !recordFilePattern.MatchString(filepath.ToSlash(file)) {
			continue
		}
		if err := foldRecordManifest(digest, file, full, done); err != nil {
			return "", err
		}
	}

	for _, file := range sorted {
		if _, accounted := done[file]; accounted {
			continue
		}
		var err error
		if descriptorFilePattern.MatchString(filepath.ToSlash(file)) {
			err = foldDescriptorFile(digest, file)
		} else {
			err = foldFileContent(digest, file)
		}
		if err != nil {
			return "", err
		}
	}

	return hex.EncodeToString(digest.Sum(nil)), nil
}

// foldRecordManifest folds the (path, hash) rows of one RECORD manifest into
// the digest, sorted by row path, and marks the referenced files as
// accounted for. Rows with no hash or rows referencing files outside the
// input set are skipped; the manifest may legitimately list files that were
// removed after install.
func foldRecordManifest(digest hash.Hash, recordPath string, full, done map[string]struct{}) error {
	record, err := os.Open(recordPath)
	if err != nil {
		return fmt.Errorf("open record manifest %q: %w", recordPath, err)
	}
	defer record.Close()

	reader := csv.NewReader(bufio.NewReaderSize(record, digestBlockSize))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("parse record manifest %q: %w", recordPath, err)
	}

	// Row paths are relative to the distribution root: the parent of the
	// .dist-info directory holding the manifest.
	distributionRoot := filepath.Dir(filepath.Dir(recordPath))

	type recordItem struct {
		name     string
		hash     string
		resolved string
	}
	items := make([]recordItem, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 || row[1] == "" {
			continue
		}
		resolved := filepath.Clean(filepath.Join(distributionRoot, filepath.FromSlash(row[0])))
		if _, present := full[resolved]; !present {
			continue
		}
		items = append(items, recordItem{name: row[0], hash: row[1], resolved: resolved})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].name < items[j].name })

	for _, item := range items {
		digest.Write([]byte(item.name + item.hash))
		done[item.resolved] = struct{}{}
	}
	return nil
}

// foldDescriptorFile folds a PKG-INFO style header block into the digest in
// sorted header order. Malformed header lines are tolerated: the headers
// parsed up to that point still contribute, since vendored PKG-INFO files
// are not always well-formed.
func foldDescriptorFile(digest hash.Hash, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open package descriptor %q: %w", path, err)
	}
	defer file.Close()

	reader := textproto.NewReader(bufio.NewReaderSize(file, digestBlockSize))
	header, err := reader.ReadMIMEHeader()
	if err != nil && !errors.Is(err, io.EOF) {
		var malformed textproto.ProtocolError
		if !errors.As(err, &malformed) {
			return fmt.Errorf("parse package descriptor %q: %w", path, err)
		}
	}

	type headerPair struct{ key, value string }
	var pairs []headerPair
	for key, values := range header {
		for _, value := range values {
			pairs = append(pairs, headerPair{key: key, value: value})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].key != pairs[j].key {
			return pairs[i].key < pairs[j].key
		}
		return pairs[i].value < pairs[j].value
	})

	for _, pair := range pairs {
		digest.Write([]byte(pair.key))
		digest.Write([]byte(pair.value))
	}
	return nil
}

func foldFileContent(digest hash.Hash, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %q: %w", path, err)
	}
	defer file.Close()

	if _, err := io.CopyBuffer(digest, file, make([]byte, digestBlockSize)); err != nil {
		return fmt.Errorf("read %q: %w", path, err)
	}
	return nil
}
