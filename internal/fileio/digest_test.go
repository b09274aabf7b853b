package fileio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDigestEmptyInput(t *testing.T) {
	digest, err := Digest(nil)
	require.NoError(t, err)
	require.Empty(t, digest)
}

func TestDigestDeterministicAndOrderIndependent(t *testing.T) {
	root := t.TempDir()
	a := writeFile(t, root, "a.txt", "alpha")
	b := writeFile(t, root, "b.txt", "beta")

	first, err := Digest([]string{a, b})
	require.NoError(t, err)
	second, err := Digest([]string{b, a})
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Len(t, first, 64)
}

func TestDigestContentSensitive(t *testing.T) {
	root := t.TempDir()
	a := writeFile(t, root, "a.txt", "alpha")

	before, err := Digest([]string{a})
	require.NoError(t, err)
	writeFile(t, root, "a.txt", "alphb")
	after, err := Digest([]string{a})
	require.NoError(t, err)
	require.NotEqual(t, before, after)
}

func TestDigestUsesRecordManifestHashes(t *testing.T) {
	root := t.TempDir()
	record := writeFile(t, root, "dep-1.0.dist-info/RECORD",
		"dep/mod.py,sha256=deadbeef,42\ndep-1.0.dist-info/RECORD,,\n")
	mod := writeFile(t, root, "dep/mod.py", "original")

	before, err := Digest([]string{record, mod})
	require.NoError(t, err)

	// The manifest accounts for mod.py, so its on-disk bytes are never
	// read: rewriting it does not move the digest.
	writeFile(t, root, "dep/mod.py", "rewritten after install")
	after, err := Digest([]string{record, mod})
	require.NoError(t, err)
	require.Equal(t, before, after)

	// Changing the declared hash does.
	writeFile(t, root, "dep-1.0.dist-info/RECORD",
		"dep/mod.py,sha256=cafef00d,42\ndep-1.0.dist-info/RECORD,,\n")
	changed, err := Digest([]string{record, mod})
	require.NoError(t, err)
	require.NotEqual(t, before, changed)
}

func TestDigestIgnoresRecordRowsForAbsentFiles(t *testing.T) {
	root := t.TempDir()
	record := writeFile(t, root, "dep-1.0.dist-info/RECORD",
		"dep/mod.py,sha256=deadbeef,42\ndep/ghost.py,sha256=feedface,7\n")
	mod := writeFile(t, root, "dep/mod.py", "mod")
	ghost := writeFile(t, root, "dep/ghost.py", "ghost")

	// ghost.py exists on disk but is not part of the input set; its row
	// must not contribute.
	withGhostOnDisk, err := Digest([]string{record, mod})
	require.NoError(t, err)
	require.NoError(t, os.Remove(ghost))
	withoutGhost, err := Digest([]string{record, mod})
	require.NoError(t, err)
	require.Equal(t, withGhostOnDisk, withoutGhost)
}

func TestDigestSortsDescriptorHeaders(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	// Byte-identical metadata emitted in a different header order must
	// digest identically.
	a := writeFile(t, rootA, "dep.egg-info/PKG-INFO", "Name: dep\nVersion: 1.0\n\nbody\n")
	b := writeFile(t, rootB, "dep.egg-info/PKG-INFO", "Version: 1.0\nName: dep\n\nbody\n")

	digestA, err := Digest([]string{a})
	require.NoError(t, err)
	digestB, err := Digest([]string{b})
	require.NoError(t, err)
	require.Equal(t, digestA, digestB)
}

func TestDigestToleratesMalformedDescriptorLines(t *testing.T) {
	root := t.TempDir()
	descriptor := writeFile(t, root, "dep.egg-info/PKG-INFO",
		"Name: dep\nthis line has no colon\nVersion: 1.0\n")

	first, err := Digest([]string{descriptor})
	require.NoError(t, err)
	require.Len(t, first, 64)

	second, err := Digest([]string{descriptor})
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestDigestMissingFile(t *testing.T) {
	_, err := Digest([]string{filepath.Join(t.TempDir(), "vanished.py")})
	require.Error(t, err)
}
