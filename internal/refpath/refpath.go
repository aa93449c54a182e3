// Package refpath resolves and encodes references between project documents.
//
// A reference is always relative to the document that contains it, so the same
// href can point at different documents depending on where the referrer lives.
// All keys are slash separated and relative to the project root.
package refpath

import (
	"path"
	"path/filepath"
	"strings"
)

// IsExternal reports whether target points outside the project (an absolute URL
// or a protocol-relative one). External targets are never resolved or rewritten.
func IsExternal(target string) bool {
	return strings.HasPrefix(target, "http://") ||
		strings.HasPrefix(target, "https://") ||
		strings.HasPrefix(target, "//")
}

// Normalize turns a user or filesystem supplied path into a document key.
func Normalize(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = path.Clean(filepath.ToSlash(p))
	if p == "." {
		return ""
	}
	return p
}

// Split separates a reference into its document part and its fragment
// identifier (without the '#').
func Split(ref string) (doc, fragment string) {
	if idx := strings.Index(ref, "#"); idx != -1 {
		return ref[:idx], ref[idx+1:]
	}
	return ref, ""
}

// Join is the inverse of Split.
func Join(doc, fragment string) string {
	if fragment == "" {
		return doc
	}
	return doc + "#" + fragment
}

// ElementID returns the element identifier addressed by a fragment. DITA
// fragments look like "topicid/elementid"; the last segment names the element.
func ElementID(fragment string) string {
	if fragment == "" {
		return ""
	}
	parts := strings.Split(fragment, "/")
	return parts[len(parts)-1]
}

// Resolve returns the key target points at when it appears in referrer. The
// fragment, if any, is preserved.
func Resolve(referrer, target string) string {
	if IsExternal(target) {
		return target
	}
	if strings.HasPrefix(target, "#") {
		return referrer + target
	}
	if target == "." {
		return referrer
	}

	doc, fragment := Split(target)
	if doc == "" {
		return Join(referrer, fragment)
	}
	return Join(path.Join(path.Dir(referrer), doc), fragment)
}

// ResolveDocument is Resolve with the fragment dropped.
func ResolveDocument(referrer, target string) string {
	doc, _ := Split(Resolve(referrer, target))
	return doc
}

// Relative encodes target (a key, optionally with fragment) as a reference that
// resolves to it from referrer.
func Relative(referrer, target string) string {
	if IsExternal(target) {
		return target
	}
	doc, fragment := Split(target)
	return Join(relative(path.Dir(referrer), doc), fragment)
}

func relative(fromDir, target string) string {
	if path.IsAbs(target) || path.IsAbs(fromDir) {
		return target
	}
	fromDir = path.Clean(fromDir)
	target = path.Clean(target)

	var from []string
	if fromDir != "." {
		from = strings.Split(fromDir, "/")
	}
	to := strings.Split(target, "/")

	common := 0
	for common < len(from) && common < len(to) && from[common] == to[common] {
		common++
	}

	parts := make([]string, 0, len(from)-common+len(to)-common)
	for i := common; i < len(from); i++ {
		parts = append(parts, "..")
	}
	parts = append(parts, to[common:]...)
	if len(parts) == 0 {
		return "."
	}
	return strings.Join(parts, "/")
}
