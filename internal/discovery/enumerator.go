// Package discovery turns a root directory and a file name filter into the
// ordered list of files a search scans.
package discovery

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/fgrep/internal/debug"
	fgerrors "github.com/standardbeagle/fgrep/internal/errors"
	"github.com/standardbeagle/fgrep/internal/types"
)

// Options controls what the enumerator leaves out beyond the mandatory
// symlink, directory, device and system filters.
type Options struct {
	// Exclude holds doublestar globs matched against root-relative slash paths.
	Exclude []string
	// RespectGitignore applies the root's .gitignore.
	RespectGitignore bool
}

// Enumerator produces search candidates.
type Enumerator struct {
	lister DirLister
	opts   Options
}

// New creates an enumerator over the local filesystem.
func New(opts Options) *Enumerator {
	return NewWithLister(OSLister{}, opts)
}

// NewWithLister creates an enumerator over an arbitrary directory lister.
func NewWithLister(lister DirLister, opts Options) *Enumerator {
	return &Enumerator{lister: lister, opts: opts}
}

// IsMatchEverything reports whether filter selects every file name.
func IsMatchEverything(filter string) bool {
	filter = strings.TrimSpace(filter)
	return filter == "" || filter == types.MatchEverything || filter == "*"
}

// ValidateFilter returns a *errors.GlobError for a malformed name filter.
func ValidateFilter(filter string) error {
	if IsMatchEverything(filter) {
		return nil
	}
	if !doublestar.ValidatePattern(filter) {
		return fgerrors.NewGlobError(filter, doublestar.ErrBadPattern)
	}
	return nil
}

// MatchName reports whether a file name passes filter. A malformed
// filter matches nothing.
func MatchName(filter, name string) bool {
	return IsMatchEverything(filter) || matchGlob(filter, name)
}

// Excluded reports whether the root-relative slash path rel matches one of
// the exclude globs. A directory also matches a "dir/**" pattern by its own
// path.
func Excluded(patterns []string, rel string, isDir bool) bool {
	for _, pattern := range patterns {
		if matchGlob(pattern, rel) {
			return true
		}
		if isDir && strings.HasSuffix(pattern, "/**") && matchGlob(strings.TrimSuffix(pattern, "/**"), rel) {
			return true
		}
	}
	return false
}

// Enumerate lists root and returns every regular file whose name matches
// filter, in listing order. An empty result is not an error.
func (e *Enumerator) Enumerate(root string, recursive bool, filter string) ([]types.Candidate, error) {
	if err := ValidateFilter(filter); err != nil {
		return nil, err
	}
	matchAll := IsMatchEverything(filter)

	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	var gitignore *Gitignore
	if e.opts.RespectGitignore {
		gi, err := LoadGitignore(root)
		if err != nil {
			return nil, fgerrors.NewIoError("read .gitignore", root, err)
		}
		gitignore = gi
	}

	excluded := func(rel string, isDir bool) bool {
		return Excluded(e.opts.Exclude, rel, isDir) || gitignore.Ignored(rel, isDir)
	}

	var entries []Entry
	var err error
	if pl, ok := e.lister.(PruningLister); ok && (len(e.opts.Exclude) > 0 || gitignore != nil) {
		entries, err = pl.ListPruned(root, recursive, func(rel string) bool {
			return excluded(rel, true)
		})
	} else {
		entries, err = e.lister.List(root, recursive)
	}
	if err != nil {
		return nil, err
	}

	candidates := make([]types.Candidate, 0, len(entries))
	for _, entry := range entries {
		if entry.IsSymlink || entry.IsDir || entry.IsDevice || entry.IsSystem {
			continue
		}
		if !matchAll && !MatchName(filter, entry.Name) {
			continue
		}
		if len(e.opts.Exclude) > 0 || gitignore != nil {
			if rel, err := filepath.Rel(root, entry.FullPath); err == nil && excluded(filepath.ToSlash(rel), false) {
				continue
			}
		}
		candidates = append(candidates, types.Candidate{FullPath: entry.FullPath, Name: entry.Name})
	}

	debug.LogSearch("enumerated %d candidates of %d entries under %s\n", len(candidates), len(entries), root)
	return candidates, nil
}
