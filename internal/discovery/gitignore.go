package discovery

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// GitignoreRule is one parsed .gitignore line.
type GitignoreRule struct {
	Pattern   string // doublestar pattern relative to the root
	Negate    bool
	Directory bool
}

// Gitignore holds the rules of a root-level .gitignore file.
// Rules are evaluated in order and the last matching rule wins.
type Gitignore struct {
	rules []GitignoreRule
}

// LoadGitignore reads root/.gitignore. A missing file yields an empty rule set.
func LoadGitignore(root string) (*Gitignore, error) {
	f, err := os.Open(filepath.Join(root, ".gitignore"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Gitignore{}, nil
		}
		return nil, err
	}
	defer f.Close()
	return ParseGitignore(f)
}

// ParseGitignore parses gitignore syntax from r. Lines that do not form a
// valid glob are dropped.
func ParseGitignore(r io.Reader) (*Gitignore, error) {
	gi := &Gitignore{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		gi.Add(scanner.Text())
	}
	return gi, scanner.Err()
}

// Add parses and appends one line.
func (gi *Gitignore) Add(line string) {
	line = strings.TrimRight(line, " \t\r")
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}

	rule := GitignoreRule{}
	if strings.HasPrefix(line, "!") {
		rule.Negate = true
		line = line[1:]
	} else if strings.HasPrefix(line, `\`) {
		line = line[1:]
	}

	if strings.HasSuffix(line, "/") {
		rule.Directory = true
		line = strings.TrimSuffix(line, "/")
	}

	// A slash anywhere but the end anchors the pattern to the root
	anchored := strings.Contains(line, "/")
	line = strings.TrimPrefix(line, "/")
	if line == "" {
		return
	}
	if !anchored && !strings.HasPrefix(line, "**/") {
		line = "**/" + line
	}

	if !doublestar.ValidatePattern(line) {
		return
	}
	rule.Pattern = line
	gi.rules = append(gi.rules, rule)
}

// Len returns the number of rules.
func (gi *Gitignore) Len() int {
	return len(gi.rules)
}

// Ignored reports whether the slash-separated root-relative path is ignored.
// Files below an ignored directory are ignored as well.
func (gi *Gitignore) Ignored(rel string, isDir bool) bool {
	if gi == nil || len(gi.rules) == 0 {
		return false
	}
	rel = filepath.ToSlash(rel)

	ignored := false
	for _, rule := range gi.rules {
		if rule.matches(rel, isDir) {
			ignored = !rule.Negate
		}
	}
	return ignored
}

func (r GitignoreRule) matches(rel string, isDir bool) bool {
	if (isDir || !r.Directory) && matchGlob(r.Pattern, rel) {
		return true
	}
	// Check every ancestor directory of rel
	for dir := path.Dir(rel); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if matchGlob(r.Pattern, dir) {
			return true
		}
	}
	return false
}

func matchGlob(pattern, name string) bool {
	ok, err := doublestar.Match(pattern, name)
	return err == nil && ok
}
