package discovery

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	fgerrors "github.com/standardbeagle/fgrep/internal/errors"
)

var errNotDirectory = errors.New("not a directory")

// Entry is one directory listing result with the attributes the
// enumerator filters on.
type Entry struct {
	FullPath  string
	Name      string
	IsSymlink bool
	IsDir     bool
	IsDevice  bool
	IsSystem  bool
}

// DirLister lists the entries below root, descending into subdirectories
// when recursive is set. Listing order is the order candidates are scanned in.
type DirLister interface {
	List(root string, recursive bool) ([]Entry, error)
}

// PruningLister is implemented by listers that can skip whole directories.
// skipDir receives the slash-separated path relative to root.
type PruningLister interface {
	DirLister
	ListPruned(root string, recursive bool, skipDir func(rel string) bool) ([]Entry, error)
}

// OSLister lists the local filesystem in lexical order. Symlinked
// directories are reported as symlinks and never followed.
type OSLister struct{}

// List implements DirLister.
func (OSLister) List(root string, recursive bool) ([]Entry, error) {
	return OSLister{}.ListPruned(root, recursive, nil)
}

// ListPruned implements PruningLister. The root must be a readable directory;
// unreadable subdirectories are logged and skipped.
func (OSLister) ListPruned(root string, recursive bool, skipDir func(rel string) bool) ([]Entry, error) {
	walkRoot, err := checkRoot(root)
	if err != nil {
		return nil, err
	}

	if !recursive {
		dirEntries, err := os.ReadDir(walkRoot)
		if err != nil {
			return nil, fgerrors.NewIoError("list", root, err)
		}
		entries := make([]Entry, 0, len(dirEntries))
		for _, d := range dirEntries {
			entries = append(entries, entryFor(filepath.Join(root, d.Name()), d))
		}
		return entries, nil
	}

	var entries []Entry
	err = filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == walkRoot {
				return fgerrors.NewIoError("list", root, walkErr)
			}
			log.Printf("Warning: skipping unreadable directory %s: %v", path, walkErr)
			return nil
		}
		if path == walkRoot {
			return nil
		}

		full := filepath.Join(root, mustRel(walkRoot, path))
		if d.IsDir() && skipDir != nil {
			if skipDir(filepath.ToSlash(mustRel(walkRoot, path))) {
				return filepath.SkipDir
			}
		}
		entries = append(entries, entryFor(full, d))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// checkRoot validates root and returns the path to hand to the walker.
// A symlinked root is followed by walking it with a trailing separator.
func checkRoot(root string) (string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return "", fgerrors.NewIoError("list", root, err)
	}
	if !info.IsDir() {
		return "", fgerrors.NewIoError("list", root, errNotDirectory)
	}

	linfo, err := os.Lstat(root)
	if err == nil && linfo.Mode()&fs.ModeSymlink != 0 {
		return root + string(filepath.Separator), nil
	}
	return root, nil
}

func mustRel(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return filepath.Base(target)
	}
	return rel
}

func entryFor(full string, d fs.DirEntry) Entry {
	mode := d.Type()
	return Entry{
		FullPath:  full,
		Name:      d.Name(),
		IsSymlink: mode&fs.ModeSymlink != 0,
		IsDir:     d.IsDir(),
		IsDevice:  mode&(fs.ModeDevice|fs.ModeCharDevice|fs.ModeNamedPipe|fs.ModeSocket|fs.ModeIrregular) != 0,
		IsSystem:  hasSystemAttribute(d),
	}
}
