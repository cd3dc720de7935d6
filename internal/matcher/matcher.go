// Package matcher compiles a search pattern plus its flags into a line matcher.
package matcher

import (
	"bytes"
	"iter"
	"regexp"
	"unicode"
	"unicode/utf8"

	fgerrors "github.com/standardbeagle/fgrep/internal/errors"
	"github.com/standardbeagle/fgrep/internal/types"
)

// Options selects how the pattern is interpreted.
type Options struct {
	CaseSensitive bool
	WholeWord     bool
	Regex         bool
}

// OptionsFor extracts matcher options from a request.
func OptionsFor(req types.SearchRequest) Options {
	return Options{
		CaseSensitive: req.CaseSensitive,
		WholeWord:     req.WholeWord,
		Regex:         req.IsRegex,
	}
}

// Matcher finds occurrences of one compiled pattern within a single line.
// It is safe for concurrent use.
type Matcher struct {
	pattern string
	opts    Options
	re      *regexp.Regexp

	// literal is set for case-sensitive, non-word literal patterns,
	// which are matched with bytes.Index instead of the regexp engine.
	literal []byte
}

// Compile builds a Matcher. Literal patterns are escaped so that no character
// is special. A compile failure is returned as a *errors.PatternError.
//
// Whole-word mode is not expressed in the expression: RE2's \b only knows
// ASCII. Instead each match must be flanked by runes that are not letters,
// digits or underscore, so "Stra" misses inside "Straße" and "-x" hits in "a -x b".
func Compile(pattern string, opts Options) (*Matcher, error) {
	if pattern == "" {
		return nil, fgerrors.NewPatternError(pattern, "empty pattern", nil)
	}

	expr := pattern
	if !opts.Regex {
		expr = regexp.QuoteMeta(pattern)
	}
	if !opts.CaseSensitive {
		expr = `(?i)` + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fgerrors.NewPatternError(pattern, err.Error(), err)
	}

	m := &Matcher{pattern: pattern, opts: opts, re: re}
	if !opts.Regex && opts.CaseSensitive && !opts.WholeWord {
		m.literal = []byte(pattern)
	}
	return m, nil
}

// MustCompile is like Compile but panics on error. Intended for tests and constants.
func MustCompile(pattern string, opts Options) *Matcher {
	m, err := Compile(pattern, opts)
	if err != nil {
		panic(err)
	}
	return m
}

// Pattern returns the pattern as supplied by the caller.
func (m *Matcher) Pattern() string {
	return m.pattern
}

// Options returns the options the matcher was compiled with.
func (m *Matcher) Options() Options {
	return m.opts
}

// String returns the effective regular expression.
func (m *Matcher) String() string {
	return m.re.String()
}

// Match reports whether the line contains at least one occurrence.
func (m *Matcher) Match(line []byte) bool {
	if m.literal != nil {
		return bytes.Contains(line, m.literal)
	}
	if m.opts.WholeWord {
		for range m.FindAll(line) {
			return true
		}
		return false
	}
	return m.re.Match(line)
}

// FindAll yields every non-overlapping occurrence in line, left to right.
// All occurrences are located against the whole line so that word
// boundaries see their real neighbours.
func (m *Matcher) FindAll(line []byte) iter.Seq[types.MatchRange] {
	return func(yield func(types.MatchRange) bool) {
		if m.literal != nil {
			findLiteral(line, m.literal, yield)
			return
		}
		if m.opts.WholeWord {
			m.findWords(line, yield)
			return
		}
		for _, loc := range m.re.FindAllIndex(line, -1) {
			if !yield(types.MatchRange{Start: loc[0], End: loc[1]}) {
				return
			}
		}
	}
}

// Ranges collects FindAll into a slice. It returns nil when nothing matched.
func (m *Matcher) Ranges(line []byte) []types.MatchRange {
	var out []types.MatchRange
	for r := range m.FindAll(line) {
		out = append(out, r)
	}
	return out
}

func findLiteral(line, lit []byte, yield func(types.MatchRange) bool) {
	offset := 0
	for offset <= len(line)-len(lit) {
		idx := bytes.Index(line[offset:], lit)
		if idx < 0 {
			return
		}
		start := offset + idx
		if !yield(types.MatchRange{Start: start, End: start + len(lit)}) {
			return
		}
		offset = start + len(lit)
	}
}

// findWords yields the word-bounded matches of line. Literal patterns are
// retried one rune past a rejected match, so "ab" still hits the second
// occurrence in "aab ab". Regex matches are located against the whole line
// to keep anchors meaningful and are filtered afterwards.
func (m *Matcher) findWords(line []byte, yield func(types.MatchRange) bool) {
	if m.opts.Regex {
		for _, loc := range m.re.FindAllIndex(line, -1) {
			if wordBounded(line, loc[0], loc[1]) && !yield(types.MatchRange{Start: loc[0], End: loc[1]}) {
				return
			}
		}
		return
	}

	pos := 0
	for pos < len(line) {
		loc := m.re.FindIndex(line[pos:])
		if loc == nil {
			return
		}
		start, end := pos+loc[0], pos+loc[1]
		if wordBounded(line, start, end) {
			if !yield(types.MatchRange{Start: start, End: end}) {
				return
			}
			pos = end
			continue
		}
		_, size := utf8.DecodeRune(line[start:])
		pos = start + size
	}
}

// wordBounded reports whether line[start:end] has no word rune on either side.
func wordBounded(line []byte, start, end int) bool {
	if start > 0 {
		if r, _ := utf8.DecodeLastRune(line[:start]); isWordRune(r) {
			return false
		}
	}
	if end < len(line) {
		if r, _ := utf8.DecodeRune(line[end:]); isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}
