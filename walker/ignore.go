package walker

import (
	"bufio"
	"os"
	"path"
	"strings"
)

// IgnoreSet matches normalized relative paths against ignore patterns.
//
// Patterns follow a gitignore subset: a pattern containing a slash is
// matched against the whole relative path, a pattern without a slash is
// matched against every path segment, and a trailing slash restricts
// the pattern to directories (and, because a matched directory is never
// entered, everything below them).
type IgnoreSet struct {
	patterns []string
}

// NewIgnoreSet builds an IgnoreSet from pattern strings. Empty patterns
// are dropped.
func NewIgnoreSet(patterns ...string) *IgnoreSet {
	s := &IgnoreSet{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		s.patterns = append(s.patterns, p)
	}
	return s
}

// ParseIgnoreFile loads patterns from a file, one per line. Blank lines
// and lines starting with '#' are skipped.
func ParseIgnoreFile(file string) (*IgnoreSet, error) {
	f, err := os.Open(file) //nolint:gosec // user-provided ignore file path is intentional
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewIgnoreSet(patterns...), nil
}

// Match reports whether the relative path matches any pattern.
// The path must be slash-separated with no leading slash.
func (s *IgnoreSet) Match(rel string, isDir bool) bool {
	if s == nil {
		return false
	}
	for _, p := range s.patterns {
		dirOnly := strings.HasSuffix(p, "/")
		if dirOnly {
			p = strings.TrimSuffix(p, "/")
			if !isDir {
				continue
			}
		}
		if strings.Contains(p, "/") {
			if ok, _ := path.Match(p, rel); ok {
				return true
			}
			continue
		}
		for _, seg := range strings.Split(rel, "/") {
			if ok, _ := path.Match(p, seg); ok {
				return true
			}
		}
	}
	return false
}

// Len returns the number of patterns.
func (s *IgnoreSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.patterns)
}
