package walker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIgnoreSet_Match(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		rel      string
		isDir    bool
		want     bool
	}{
		{"segment match at root", []string{"*.log"}, "debug.log", false, true},
		{"segment match nested", []string{"*.log"}, "src/deep/debug.log", false, true},
		{"segment match on dir name", []string{"node_modules"}, "a/node_modules", true, true},
		{"no match", []string{"*.log"}, "main.go", false, false},
		{"slash pattern full path", []string{"build/out.bin"}, "build/out.bin", false, true},
		{"slash pattern wrong depth", []string{"build/out.bin"}, "x/build/out.bin", false, false},
		{"slash glob", []string{"src/*.tmp"}, "src/a.tmp", false, true},
		{"dir-only matches dir", []string{"build/"}, "build", true, true},
		{"dir-only skips file", []string{"build/"}, "build", false, false},
		{"empty set", nil, "anything", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewIgnoreSet(tt.patterns...)
			assert.Equal(t, tt.want, s.Match(tt.rel, tt.isDir))
		})
	}
}

func TestIgnoreSet_NilIsSafe(t *testing.T) {
	var s *IgnoreSet
	assert.False(t, s.Match("anything", false))
	assert.Equal(t, 0, s.Len())
}

func TestParseIgnoreFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".snugignore")
	content := "# build artifacts\n*.log\n\nbuild/\n   \n#comment\nnode_modules\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := ParseIgnoreFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Match("a/b.log", false))
	assert.True(t, s.Match("build", true))
	assert.True(t, s.Match("x/node_modules", true))
	assert.False(t, s.Match("main.go", false))
}

func TestParseIgnoreFile_Missing(t *testing.T) {
	_, err := ParseIgnoreFile(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}
