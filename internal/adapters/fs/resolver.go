package fs

import (
	"path"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/pake/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.InputResolver = (*Resolver)(nil)

// Resolver expands dependency patterns with filepath.Glob, and with a directory
// walk for patterns containing a "**" segment.
type Resolver struct {
	walker *Walker
}

// NewResolver creates a new Resolver.
func NewResolver(walker *Walker) *Resolver {
	return &Resolver{walker: walker}
}

// HasMeta reports whether s contains glob metacharacters.
func HasMeta(s string) bool {
	return strings.ContainsAny(s, `*?[`)
}

// ResolveInputs expands each pattern relative to root. Literal names are kept as
// written, even when the file does not exist. Matches are slash separated and
// relative to root, sorted per pattern and deduplicated across patterns.
func (r *Resolver) ResolveInputs(inputs []string, root string) ([]string, error) {
	seen := make(map[string]bool)
	var result []string

	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			result = append(result, p)
		}
	}

	for _, input := range inputs {
		if !HasMeta(input) {
			add(input)
			continue
		}

		var matches []string
		var err error
		if slices.Contains(strings.Split(input, "/"), "**") {
			matches, err = r.walkGlob(input, root)
		} else {
			matches, err = r.glob(input, root)
		}
		if err != nil {
			return nil, err
		}
		slices.Sort(matches)
		for _, m := range matches {
			add(m)
		}
	}
	return result, nil
}

func (r *Resolver) glob(pattern, root string) ([]string, error) {
	abs := filepath.Join(root, filepath.FromSlash(pattern))
	found, err := filepath.Glob(abs)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to glob path"), "pattern", pattern)
	}
	matches := make([]string, 0, len(found))
	for _, f := range found {
		rel, err := filepath.Rel(root, f)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to relativize match"), "path", f)
		}
		matches = append(matches, filepath.ToSlash(rel))
	}
	return matches, nil
}

// walkGlob walks the longest literal prefix of pattern and matches every file below it.
func (r *Resolver) walkGlob(pattern, root string) ([]string, error) {
	segs := strings.Split(pattern, "/")
	for _, s := range segs {
		if _, err := path.Match(s, ""); err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to glob path"), "pattern", pattern)
		}
	}

	base := 0
	for base < len(segs) && !HasMeta(segs[base]) {
		base++
	}
	prefix := path.Join(segs[:base]...)

	var matches []string
	for file := range r.walker.WalkFiles(filepath.Join(root, filepath.FromSlash(prefix)), nil) {
		rel, err := filepath.Rel(root, file)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to relativize match"), "path", file)
		}
		rel = filepath.ToSlash(rel)
		if matchSegments(segs, strings.Split(rel, "/")) {
			matches = append(matches, rel)
		}
	}
	return matches, nil
}

// matchSegments matches path segments against pattern segments, where "**"
// matches zero or more whole segments.
func matchSegments(pattern, name []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			rest := pattern[1:]
			for i := 0; i <= len(name); i++ {
				if matchSegments(rest, name[i:]) {
					return true
				}
			}
			return false
		}
		if len(name) == 0 {
			return false
		}
		if ok, _ := path.Match(pattern[0], name[0]); !ok {
			return false
		}
		pattern, name = pattern[1:], name[1:]
	}
	return len(name) == 0
}
