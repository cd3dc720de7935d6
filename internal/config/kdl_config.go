package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hbollon/go-edlib"
	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// known lists the accepted keys per section; "" is the top level.
var known = map[string][]string{
	"":       {"search", "scan", "exclude", "respect_gitignore", "exclude_build_artifacts", "server"},
	"search": {"file_type", "recursive", "case_sensitive", "match_by_word", "regexp"},
	"scan":   {"mmap", "skip_binary", "max_file_size", "matcher_cache_size"},
	"server": {"socket"},
}

// Parse reads KDL content over the defaults.
func Parse(content string) (*Config, error) {
	cfg := Default()
	if err := cfg.applyKDL(content, "config"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyKDL overwrites only the keys present in content. Exclude patterns
// accumulate across files.
func (c *Config) applyKDL(content, source string) error {
	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return fmt.Errorf("failed to parse KDL config %s: %w", source, err)
	}

	for _, n := range doc.Nodes {
		name := nodeName(n)
		switch name {
		case "search":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "file_type":
					c.setString(source, cn, &c.Search.FileType)
				case "recursive":
					c.setBool(source, cn, &c.Search.Recursive)
				case "case_sensitive":
					c.setBool(source, cn, &c.Search.CaseSensitive)
				case "match_by_word":
					c.setBool(source, cn, &c.Search.MatchByWord)
				case "regexp":
					c.setBool(source, cn, &c.Search.Regexp)
				default:
					c.unknown(source, "search", nodeName(cn))
				}
			}
		case "scan":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "mmap":
					c.setString(source, cn, &c.Scan.Mmap)
				case "skip_binary":
					c.setBool(source, cn, &c.Scan.SkipBinary)
				case "max_file_size":
					if v, ok := firstIntArg(cn); ok {
						c.Scan.MaxFileSize = int64(v)
					} else if s, ok := firstStringArg(cn); ok {
						sz, err := parseSize(s)
						if err != nil {
							c.warnf("%s: invalid max_file_size %q", source, s)
							continue
						}
						c.Scan.MaxFileSize = sz
					} else {
						c.warnf("%s: max_file_size expects a number or size string", source)
					}
				case "matcher_cache_size":
					if v, ok := firstIntArg(cn); ok {
						c.Scan.MatcherCacheSize = v
					} else {
						c.warnf("%s: matcher_cache_size expects a number", source)
					}
				default:
					c.unknown(source, "scan", nodeName(cn))
				}
			}
		case "server":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "socket":
					c.setString(source, cn, &c.Server.Socket)
				default:
					c.unknown(source, "server", nodeName(cn))
				}
			}
		case "exclude":
			c.Exclude = DeduplicatePatterns(append(c.Exclude, collectStringArgs(n)...))
		case "respect_gitignore":
			c.setBool(source, n, &c.RespectGitignore)
		case "exclude_build_artifacts":
			c.setBool(source, n, &c.ExcludeBuildArtifacts)
		default:
			c.unknown(source, "", name)
		}
	}
	return nil
}

func (c *Config) warnf(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

func (c *Config) setBool(source string, n *document.Node, dst *bool) {
	if b, ok := firstBoolArg(n); ok {
		*dst = b
		return
	}
	c.warnf("%s: %s expects true or false", source, nodeName(n))
}

func (c *Config) setString(source string, n *document.Node, dst *string) {
	if s, ok := firstStringArg(n); ok {
		*dst = s
		return
	}
	c.warnf("%s: %s expects a string", source, nodeName(n))
}

func (c *Config) unknown(source, section, key string) {
	where := key
	if section != "" {
		where = section + "." + key
	}
	if s := suggest(key, known[section]); s != "" {
		c.warnf("%s: unknown key %q, did you mean %q?", source, where, s)
		return
	}
	c.warnf("%s: unknown key %q", source, where)
}

// suggest returns the closest known key by Jaro-Winkler similarity, or ""
// when nothing is close enough.
func suggest(key string, candidates []string) string {
	const minSimilarity = 0.8
	best, bestScore := "", float32(0)
	for _, cand := range candidates {
		score, err := edlib.StringsSimilarity(key, cand, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if score > bestScore {
			best, bestScore = cand, score
		}
	}
	if bestScore < minSimilarity {
		return ""
	}
	return best
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	s, ok := n.Arguments[0].Value.(string)
	return s, ok
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	b, ok := n.Arguments[0].Value.(bool)
	return b, ok
}

// collectStringArgs accepts both `exclude "a" "b"` and the block form
// `exclude { "a"; "b" }`, where each pattern is a child node name.
func collectStringArgs(n *document.Node) []string {
	out := make([]string, 0, len(n.Arguments)+len(n.Children))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	for _, child := range n.Children {
		if s, ok := firstStringArg(child); ok {
			out = append(out, s)
		} else if child.Name != nil {
			if s, ok := child.Name.Value.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// parseSize handles size strings like "10MB", "500KB", "1GB".
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	var multiplier int64 = 1
	numStr := s
	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		numStr = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		numStr = strings.TrimSuffix(s, "B")
	}

	num, err := strconv.ParseInt(strings.TrimSpace(numStr), 10, 64)
	if err != nil {
		return 0, err
	}
	return num * multiplier, nil
}
