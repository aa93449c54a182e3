// Package ignore decides which project paths the scanner skips.
package ignore

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultRules are applied before user rules, so a user "!" rule can bring a
// path back.
var DefaultRules = []string{
	".git/",
	".svn/",
	"node_modules/",
	"out/",
	"temp/",
	"*.bak",
	"*~",
}

type rule struct {
	pattern  string
	negated  bool
	dirOnly  bool
	anchored bool
}

// Matcher applies gitignore-like rules; the last matching rule wins.
type Matcher struct {
	rules []rule
}

// NewMatcher builds a matcher from .ditarefignore lines and configured ignore
// patterns.
func NewMatcher(userRules []string) *Matcher {
	all := make([]string, 0, len(DefaultRules)+len(userRules))
	all = append(all, DefaultRules...)
	all = append(all, userRules...)

	m := &Matcher{rules: make([]rule, 0, len(all))}
	for _, line := range all {
		if parsed, ok := parseRule(line); ok {
			m.rules = append(m.rules, parsed)
		}
	}
	return m
}

// ShouldIgnore reports whether relPath is excluded.
func (m *Matcher) ShouldIgnore(relPath string, isDir bool) bool {
	if m == nil {
		return false
	}
	relPath = normalizePath(relPath)
	ignored := false
	for _, r := range m.rules {
		if r.matches(relPath, isDir) {
			ignored = !r.negated
		}
	}
	return ignored
}

func parseRule(line string) (rule, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return rule{}, false
	}

	var parsed rule
	if rest, ok := strings.CutPrefix(line, "!"); ok {
		parsed.negated = true
		line = rest
	}
	if rest, ok := strings.CutPrefix(line, "/"); ok {
		parsed.anchored = true
		line = rest
	}
	if rest, ok := strings.CutSuffix(line, "/"); ok {
		parsed.dirOnly = true
		line = rest
	}

	line = normalizePath(line)
	if line == "" || !doublestar.ValidatePattern(line) {
		return rule{}, false
	}
	parsed.pattern = line
	return parsed, true
}

func (r rule) matches(relPath string, isDir bool) bool {
	if r.dirOnly {
		// A directory rule matches the directory itself and everything below it.
		parts := strings.Split(relPath, "/")
		limit := len(parts) - 1
		if isDir {
			limit = len(parts)
		}
		for i := 1; i <= limit; i++ {
			if r.matchesPrefix(parts[:i]) {
				return true
			}
		}
		return false
	}

	if r.anchored || strings.Contains(r.pattern, "/") {
		if glob(r.pattern, relPath) {
			return true
		}
		if r.anchored {
			return false
		}
		parts := strings.Split(relPath, "/")
		for i := 1; i < len(parts); i++ {
			if glob(r.pattern, strings.Join(parts[i:], "/")) {
				return true
			}
		}
		return false
	}

	for _, segment := range strings.Split(relPath, "/") {
		if glob(r.pattern, segment) {
			return true
		}
	}
	return false
}

func (r rule) matchesPrefix(parts []string) bool {
	dir := strings.Join(parts, "/")
	if r.anchored || strings.Contains(r.pattern, "/") {
		return glob(r.pattern, dir)
	}
	return glob(r.pattern, path.Base(dir))
}

func glob(pattern, value string) bool {
	ok, err := doublestar.Match(pattern, value)
	return err == nil && ok
}

func normalizePath(p string) string {
	p = filepath.ToSlash(p)
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimPrefix(p, "/")
	return p
}
