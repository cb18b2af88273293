// Package paths defines the node types that appear in a dependency graph:
// real files, virtual targets and dependencies, and % patterns used by
// pattern rules. It also implements the freshness check that drives
// incremental rebuilds.
package paths

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/remake-build/remake/pkg/errors"
)

// Node is a vertex of the dependency graph: either a file on disk or a
// virtual name that never corresponds to a file.
type Node interface {
	String() string
	Virtual() bool
}

// File is an absolute path on disk.
type File string

func (f File) String() string { return string(f) }

// Virtual reports false: a File always refers to the filesystem.
func (f File) Virtual() bool { return false }

// Exists reports whether the file or directory is present on disk.
func (f File) Exists() bool {
	_, err := os.Stat(string(f))
	return err == nil
}

// Virtual is a target or dependency that is not a file. Virtual targets are
// always considered out of date.
type Virtual string

func (v Virtual) String() string { return string(v) }

// Virtual reports true.
func (v Virtual) Virtual() bool { return true }

// Abs turns a path into a File node, resolving relative paths against dir.
func Abs(dir, path string) File {
	if filepath.IsAbs(path) {
		return File(filepath.Clean(path))
	}
	return File(filepath.Join(dir, path))
}

// ShouldRebuild reports whether target must be rebuilt: it is virtual, it
// does not exist, or any file dependency has a modification time newer than
// the target's.
func ShouldRebuild(target Node, deps []Node) bool {
	if target.Virtual() {
		return true
	}

	info, err := os.Stat(target.String())
	if err != nil {
		return true
	}
	targetTime := info.ModTime()

	for _, dep := range deps {
		if dep.Virtual() {
			continue
		}
		depInfo, err := os.Stat(dep.String())
		if err != nil {
			// Missing dep: let the rule run and fail loudly there.
			return true
		}
		if depInfo.ModTime().After(targetTime) {
			return true
		}
	}

	return false
}

// Pattern is a path pattern containing exactly one % wildcard, such as
// "%.o" or "build/%.min.js". Matching is done on whole path strings, so
// "%.o" matches "src/foo.o" with stem "src/foo".
type Pattern struct {
	prefix string
	suffix string
}

// NewPattern parses a pattern string. The string must contain exactly one
// % wildcard.
func NewPattern(s string) (Pattern, error) {
	if strings.Count(s, "%") != 1 {
		return Pattern{}, errors.Newf(errors.ErrPatternInvalid,
			"pattern %q must contain exactly one %% wildcard", s)
	}
	i := strings.Index(s, "%")
	return Pattern{prefix: s[:i], suffix: s[i+1:]}, nil
}

// MustPattern is like NewPattern but panics on an invalid pattern. Intended
// for built-in declarations.
func MustPattern(s string) Pattern {
	p, err := NewPattern(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Pattern) String() string { return p.prefix + "%" + p.suffix }

// Match reports whether path matches the pattern, returning the stem that
// the % wildcard matched.
func (p Pattern) Match(path string) (string, bool) {
	// The prefix and suffix must not overlap, and the stem must be non-empty.
	if len(path) <= len(p.prefix)+len(p.suffix) {
		return "", false
	}
	if !strings.HasPrefix(path, p.prefix) || !strings.HasSuffix(path, p.suffix) {
		return "", false
	}
	return path[len(p.prefix) : len(path)-len(p.suffix)], true
}

// Instantiate substitutes stem for the % wildcard.
func (p Pattern) Instantiate(stem string) string {
	return p.prefix + stem + p.suffix
}

// Glob walks the tree rooted at root and returns every regular file whose
// path matches the pattern. Matching is done on the full walk path, so a
// relative pattern like "%.c" matches any .c file under root.
func (p Pattern) Glob(root string) ([]File, error) {
	var matches []File
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := p.Match(path); ok {
			matches = append(matches, File(path))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}
