package fileio

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, name, content string) string {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	return full
}

func TestListFiles(t *testing.T) {
	root := t.TempDir()
	want := []string{
		writeFile(t, root, "a.txt", "a"),
		writeFile(t, root, "sub/b.txt", "b"),
		writeFile(t, root, "sub/deep/c.txt", "c"),
	}
	sort.Strings(want)

	got, err := ListFiles(root)
	require.NoError(t, err)
	sort.Strings(got)
	require.Equal(t, want, got)
}

func TestListFilesSymlinkCycle(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/mod.py", "mod")
	// Symlink back to an ancestor: a naive walk would recurse forever.
	require.NoError(t, os.Symlink(root, filepath.Join(root, "pkg", "loop")))

	got, err := ListFiles(root)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, filepath.Join(root, "pkg", "mod.py"), got[0])
}

func TestListFilesFollowsSymlinkedDirectoryOnce(t *testing.T) {
	root := t.TempDir()
	shared := t.TempDir()
	writeFile(t, shared, "lib.py", "lib")
	require.NoError(t, os.Symlink(shared, filepath.Join(root, "first")))
	require.NoError(t, os.Symlink(shared, filepath.Join(root, "second")))

	got, err := ListFiles(root)
	require.NoError(t, err)
	// The shared physical directory is visited exactly once.
	require.Len(t, got, 1)
}

func TestListFilesMissingRoot(t *testing.T) {
	_, err := ListFiles(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestListFilesSkipsDanglingSymlink(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "a")
	require.NoError(t, os.Symlink(filepath.Join(root, "gone"), filepath.Join(root, "dangling")))

	got, err := ListFiles(root)
	require.NoError(t, err)
	require.Len(t, got, 1)
}
