// Package scan enumerates the document keys that belong to a project.
package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ditaref/ditaref/internal/fileutil"
	"github.com/ditaref/ditaref/internal/ignore"
	"github.com/ditaref/ditaref/internal/refpath"
)

// DefaultInclude matches DITA topics, maps and plain XML.
var DefaultInclude = []string{"**/*.{xml,dita,ditamap}"}

// Scanner selects project documents by include globs and ignore rules.
type Scanner struct {
	include []string
	matcher *ignore.Matcher
}

// New builds a scanner. An empty include list falls back to DefaultInclude.
func New(include []string, matcher *ignore.Matcher) (*Scanner, error) {
	if len(include) == 0 {
		include = DefaultInclude
	}
	patterns := make([]string, 0, len(include))
	for _, pattern := range include {
		pattern = refpath.Normalize(pattern)
		if pattern == "" {
			continue
		}
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid include pattern %q", pattern)
		}
		patterns = append(patterns, pattern)
	}
	if len(patterns) == 0 {
		return nil, errors.New("no usable include patterns")
	}
	return &Scanner{include: patterns, matcher: matcher}, nil
}

// Walk lists every matching file of fsys as sorted document keys.
func (s *Scanner) Walk(fsys fs.FS) ([]string, error) {
	var keys []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == "." {
			return nil
		}
		if d.IsDir() {
			if s.matcher.ShouldIgnore(p, true) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if s.Match(p) {
			keys = append(keys, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Filter applies the scanner to an existing key listing, such as one returned
// by an object store. Keys are normalized, deduplicated and sorted.
func (s *Scanner) Filter(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		key = refpath.Normalize(key)
		if key == "" || !s.Match(key) {
			continue
		}
		out = append(out, key)
	}
	out = fileutil.DedupeStrings(out)
	sort.Strings(out)
	return out
}

// Match reports whether key is a project document.
func (s *Scanner) Match(key string) bool {
	if s.matcher.ShouldIgnore(key, false) {
		return false
	}
	for _, pattern := range s.include {
		if ok, _ := doublestar.Match(pattern, key); ok {
			return true
		}
	}
	return false
}
