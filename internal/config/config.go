// Package config loads fgrep settings from KDL files. A global ~/.fgrep.kdl
// provides the base and a .fgrep.kdl in the search root overrides it.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/standardbeagle/fgrep/internal/core"
	"github.com/standardbeagle/fgrep/internal/discovery"
	"github.com/standardbeagle/fgrep/internal/search"
	"github.com/standardbeagle/fgrep/internal/types"
)

// FileName is the config file looked up in the home directory and the search root.
const FileName = ".fgrep.kdl"

// DefaultMatcherCacheSize bounds the compiled matcher cache of long-lived hosts.
const DefaultMatcherCacheSize = 64

type Config struct {
	Search                Search
	Scan                  Scan
	Server                Server
	Exclude               []string
	RespectGitignore      bool
	ExcludeBuildArtifacts bool

	// Sources lists the files that were merged into this config, base first.
	Sources []string
	// Warnings collects non-fatal problems such as unknown keys.
	Warnings []string
}

// Search holds request defaults; CLI flags and tool arguments override them.
type Search struct {
	FileType      string
	Recursive     bool
	CaseSensitive bool
	MatchByWord   bool
	Regexp        bool
}

type Scan struct {
	Mmap             string
	SkipBinary       bool
	MaxFileSize      int64 // bytes, 0 = unlimited
	MatcherCacheSize int
}

type Server struct {
	Socket string // empty derives a per-root socket path
}

// Default returns the built-in configuration.
func Default() *Config {
	def := types.DefaultSearchRequest()
	return &Config{
		Search: Search{
			FileType:      def.NameFilter,
			Recursive:     def.Recursive,
			CaseSensitive: def.CaseSensitive,
			MatchByWord:   def.WholeWord,
			Regexp:        def.IsRegex,
		},
		Scan: Scan{
			Mmap:             string(core.MmapAuto),
			MatcherCacheSize: DefaultMatcherCacheSize,
		},
		Exclude: []string{},
	}
}

// Load builds the configuration for a search rooted at rootDir.
func Load(rootDir string) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return LoadFrom(home, rootDir)
}

// LoadFrom merges homeDir/.fgrep.kdl and rootDir/.fgrep.kdl over the
// defaults. Either directory may be empty or lack a config file. When both
// name the same directory the file is read once.
func LoadFrom(homeDir, rootDir string) (*Config, error) {
	cfg := Default()

	dirs := []string{homeDir}
	if rootDir != "" && !sameDir(homeDir, rootDir) {
		dirs = append(dirs, rootDir)
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := cfg.mergeFile(filepath.Join(dir, FileName)); err != nil {
			return nil, err
		}
	}

	if cfg.ExcludeBuildArtifacts && rootDir != "" {
		cfg.EnrichExclusionsWithBuildArtifacts(rootDir)
	}
	for _, w := range cfg.Warnings {
		log.Printf("WARNING: %s", w)
	}
	return cfg, nil
}

func sameDir(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

// mergeFile applies a config file on top of c. A missing file is not an error.
func (c *Config) mergeFile(path string) error {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := c.applyKDL(string(content), path); err != nil {
		return err
	}
	c.Sources = append(c.Sources, path)
	return nil
}

// Request returns a search request carrying the configured defaults.
func (c *Config) Request(pattern, root string) types.SearchRequest {
	return types.SearchRequest{
		Pattern:       pattern,
		RootDirectory: root,
		NameFilter:    c.Search.FileType,
		WholeWord:     c.Search.MatchByWord,
		CaseSensitive: c.Search.CaseSensitive,
		IsRegex:       c.Search.Regexp,
		Recursive:     c.Search.Recursive,
	}
}

// EngineConfig converts the scan and discovery settings for search.NewEngine.
func (c *Config) EngineConfig() (search.Config, error) {
	mode, err := core.ParseMmapMode(c.Scan.Mmap)
	if err != nil {
		return search.Config{}, err
	}
	scan := core.DefaultScanOptions()
	scan.Mmap = mode
	scan.SkipBinary = c.Scan.SkipBinary
	scan.MaxFileSize = c.Scan.MaxFileSize

	return search.Config{
		Discovery: discovery.Options{
			Exclude:          c.Exclude,
			RespectGitignore: c.RespectGitignore,
		},
		Scan:             scan,
		MatcherCacheSize: c.Scan.MatcherCacheSize,
	}, nil
}

// EnrichExclusionsWithBuildArtifacts detects build output directories from
// language configs under root and adds them to the exclusion list.
func (c *Config) EnrichExclusionsWithBuildArtifacts(root string) {
	detected := NewBuildArtifactDetector(root).DetectOutputDirectories()
	if len(detected) > 0 {
		c.Exclude = DeduplicatePatterns(append(c.Exclude, detected...))
	}
}

// String renders the config as KDL that parses back to the same values.
func (c *Config) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "search {\n")
	fmt.Fprintf(&sb, "    file_type %q\n", c.Search.FileType)
	fmt.Fprintf(&sb, "    recursive %t\n", c.Search.Recursive)
	fmt.Fprintf(&sb, "    case_sensitive %t\n", c.Search.CaseSensitive)
	fmt.Fprintf(&sb, "    match_by_word %t\n", c.Search.MatchByWord)
	fmt.Fprintf(&sb, "    regexp %t\n", c.Search.Regexp)
	fmt.Fprintf(&sb, "}\n\n")

	fmt.Fprintf(&sb, "scan {\n")
	fmt.Fprintf(&sb, "    mmap %q\n", c.Scan.Mmap)
	fmt.Fprintf(&sb, "    skip_binary %t\n", c.Scan.SkipBinary)
	fmt.Fprintf(&sb, "    max_file_size %d\n", c.Scan.MaxFileSize)
	fmt.Fprintf(&sb, "    matcher_cache_size %d\n", c.Scan.MatcherCacheSize)
	fmt.Fprintf(&sb, "}\n\n")

	if len(c.Exclude) > 0 {
		fmt.Fprintf(&sb, "exclude {\n")
		for _, p := range c.Exclude {
			fmt.Fprintf(&sb, "    %q\n", p)
		}
		fmt.Fprintf(&sb, "}\n\n")
	}

	fmt.Fprintf(&sb, "respect_gitignore %t\n", c.RespectGitignore)
	fmt.Fprintf(&sb, "exclude_build_artifacts %t\n", c.ExcludeBuildArtifacts)
	if c.Server.Socket != "" {
		fmt.Fprintf(&sb, "\nserver {\n    socket %q\n}\n", c.Server.Socket)
	}
	return sb.String()
}

// Template is written by `fgrep config init`.
const Template = `// fgrep configuration. Place in a search root or in your home directory.

search {
    file_type "*.*"
    recursive true
    case_sensitive false
    match_by_word false
    regexp false
}

scan {
    // auto maps large files into memory, always/never force a strategy
    mmap "auto"
    skip_binary true
    max_file_size "50MB"
}

exclude {
    "**/.git/**"
    "**/node_modules/**"
}

respect_gitignore true
exclude_build_artifacts false
`
