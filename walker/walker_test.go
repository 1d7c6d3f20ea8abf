package walker

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates files under root from a relative-path → content map.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	}
}

func collect(t *testing.T, w *Walker, root string) []Entry {
	t.Helper()
	var entries []Entry
	err := w.Walk(context.Background(), root, func(e Entry) error {
		entries = append(entries, e)
		return nil
	})
	require.NoError(t, err)
	return entries
}

func paths(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

func TestWalker_DeterministicOrder(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"zebra.txt":   "z",
		"apple.txt":   "a",
		"mid/one.txt": "1",
		"mid/two.txt": "2",
	})

	w := New()
	first := paths(collect(t, w, root))
	assert.Equal(t, []string{"apple.txt", "mid", "mid/one.txt", "mid/two.txt", "zebra.txt"}, first)

	for i := 0; i < 3; i++ {
		assert.Equal(t, first, paths(collect(t, w, root)))
	}
}

func TestWalker_EntryFields(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"dir/file.txt": "content"})

	entries := collect(t, New(), root)
	require.Len(t, entries, 2)

	dir := entries[0]
	assert.Equal(t, KindDirectory, dir.Kind)
	assert.Equal(t, "dir", dir.Path)

	file := entries[1]
	assert.Equal(t, KindFile, file.Kind)
	assert.Equal(t, "dir/file.txt", file.Path)
	assert.Equal(t, int64(7), file.Size)
	assert.False(t, file.ModTime.IsZero())
}

func TestWalker_SkipHidden(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"visible.txt":      "v",
		".hidden.txt":      "h",
		".hiddendir/a.txt": "a",
	})

	got := paths(collect(t, New(WithSkipHidden(true)), root))
	assert.Equal(t, []string{"visible.txt"}, got)

	all := paths(collect(t, New(), root))
	assert.Contains(t, all, ".hidden.txt")
	assert.Contains(t, all, ".hiddendir/a.txt")
}

func TestWalker_IgnorePatterns(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"keep.txt":       "k",
		"drop.log":       "d",
		"build/out.bin":  "o",
		"src/drop.log":   "d",
		"src/program.go": "p",
	})

	ignore := NewIgnoreSet("*.log", "build/")
	got := paths(collect(t, New(WithIgnore(ignore)), root))
	assert.Equal(t, []string{"keep.txt", "src", "src/program.go"}, got)
}

func TestWalker_SymlinkPreserved(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}
	root := t.TempDir()
	writeTree(t, root, map[string]string{"real.txt": "data"})
	require.NoError(t, os.Symlink("real.txt", filepath.Join(root, "link.txt")))

	entries := collect(t, New(), root)
	require.Len(t, entries, 2)

	link := entries[0]
	assert.Equal(t, KindSymlink, link.Kind)
	assert.Equal(t, "link.txt", link.Path)
	assert.Equal(t, "real.txt", link.Target)
}

func TestWalker_SymlinkFollowed(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}
	root := t.TempDir()
	writeTree(t, root, map[string]string{"real.txt": "data"})
	require.NoError(t, os.Symlink("real.txt", filepath.Join(root, "link.txt")))

	entries := collect(t, New(WithFollowSymlinks(true)), root)
	require.Len(t, entries, 2)

	link := entries[0]
	assert.Equal(t, KindFile, link.Kind, "followed link becomes a file entry")
	assert.Equal(t, "link.txt", link.Path, "entry keeps the link's own path")
	assert.Empty(t, link.Target)
	assert.Equal(t, int64(4), link.Size)
}

func TestWalker_SymlinkCycleTerminates(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "b"), 0o755))
	require.NoError(t, os.Symlink(filepath.Join(root, "b"), filepath.Join(root, "a", "to-b")))
	require.NoError(t, os.Symlink(filepath.Join(root, "a"), filepath.Join(root, "b", "to-a")))
	writeTree(t, root, map[string]string{"a/file.txt": "x"})

	// Must terminate; each directory visited at most once.
	entries := collect(t, New(WithFollowSymlinks(true), WithFollowExternal(true)), root)
	seen := map[string]int{}
	for _, e := range entries {
		seen[e.Path]++
		assert.Equal(t, 1, seen[e.Path], "path %s emitted more than once", e.Path)
	}
	assert.Contains(t, paths(entries), "a/file.txt")
}

func TestWalker_FollowedLinkToVisitedDirSkipped(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}
	root := t.TempDir()
	writeTree(t, root, map[string]string{"d/f.txt": "x"})
	require.NoError(t, os.Symlink(filepath.Join(root, "d"), filepath.Join(root, "z-link")))

	// The link sorts after the real directory, so its target has already
	// been traversed; following it would emit the subtree twice.
	got := paths(collect(t, New(WithFollowSymlinks(true)), root))
	assert.Equal(t, []string{"d", "d/f.txt"}, got)
}

func TestWalker_BrokenSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}
	root := t.TempDir()
	writeTree(t, root, map[string]string{"ok.txt": "x"})
	require.NoError(t, os.Symlink("gone.txt", filepath.Join(root, "dangling")))

	// Default: skipped with a warning.
	got := paths(collect(t, New(), root))
	assert.Equal(t, []string{"ok.txt"}, got)

	// Strict: walk fails.
	err := New(WithErrorOnBrokenSymlinks(true)).Walk(context.Background(), root, func(Entry) error {
		return nil
	})
	assert.ErrorIs(t, err, ErrBrokenSymlink)
}

func TestWalker_ExternalSymlinkSkipped(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}
	outside := t.TempDir()
	writeTree(t, outside, map[string]string{"secret.txt": "s"})
	root := t.TempDir()
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))

	got := paths(collect(t, New(WithFollowSymlinks(true)), root))
	assert.Empty(t, got)

	got = paths(collect(t, New(WithFollowSymlinks(true), WithFollowExternal(true)), root))
	assert.Equal(t, []string{"escape", "escape/secret.txt"}, got)
}

func TestWalker_CountFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.txt":     "a",
		"b.txt":     "b",
		"sub/c.txt": "c",
	})

	n, err := New().CountFiles(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestWalker_ContextCancellation(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "a", "b.txt": "b"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New().Walk(ctx, root, func(Entry) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
