// Package display renders search outcomes for terminals and machines.
package display

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/standardbeagle/fgrep/internal/search"
	"github.com/standardbeagle/fgrep/internal/types"
	"github.com/standardbeagle/fgrep/pkg/pathutil"
)

type Format string

const (
	FormatText   Format = "text"
	FormatJSON   Format = "json"
	FormatNDJSON Format = "ndjson"
)

// ParseFormat parses an output format name; "" means text.
func ParseFormat(v string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(v))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatNDJSON:
		return FormatNDJSON, nil
	default:
		return FormatText, fmt.Errorf("unknown output format: %s", v)
	}
}

// Options controls result rendering
type Options struct {
	Format Format
	Color  bool   // highlight paths, line numbers and match ranges (text only)
	Root   string // when set, paths are printed relative to it
	Sort   bool   // order by path and line instead of discovery order
}

// Formatter writes outcomes in one format.
type Formatter struct {
	opts Options
}

// NewFormatter creates a formatter; a zero Options prints plain text.
func NewFormatter(opts Options) *Formatter {
	if opts.Format == "" {
		opts.Format = FormatText
	}
	return &Formatter{opts: opts}
}

// Records returns the outcome's records as they will be printed.
func (f *Formatter) Records(out *search.Outcome) []types.ResultRecord {
	records := slices.Clone(out.Records)
	if f.opts.Sort {
		search.SortRecords(records)
	}
	if f.opts.Root != "" {
		records = pathutil.ToRelativeRecords(records, f.opts.Root)
	}
	return records
}

// Write renders the whole outcome to w.
func (f *Formatter) Write(w io.Writer, out *search.Outcome) error {
	records := f.Records(out)
	switch f.opts.Format {
	case FormatJSON:
		if records == nil {
			records = []types.ResultRecord{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Records []types.ResultRecord `json:"records"`
			Summary types.Summary        `json:"summary"`
		}{records, SummaryOf(out)})

	case FormatNDJSON:
		enc := json.NewEncoder(w)
		for i := range records {
			if err := enc.Encode(types.StreamMessage{Type: types.MessageMatch, Record: &records[i]}); err != nil {
				return err
			}
		}
		summary := SummaryOf(out)
		return enc.Encode(types.StreamMessage{Type: types.MessageEnd, Summary: &summary})

	default:
		for _, r := range records {
			if _, err := io.WriteString(w, f.FormatRecord(r)+"\n"); err != nil {
				return err
			}
		}
		return nil
	}
}

// FormatRecord renders a record as path:line:column:text, where column is
// the 1-based byte offset of the first match.
func (f *Formatter) FormatRecord(r types.ResultRecord) string {
	color := f.opts.Color
	col := 1
	if len(r.Ranges) > 0 {
		col = r.Ranges[0].Start + 1
	}
	sep := styleSep.apply(":", color)

	var sb strings.Builder
	sb.WriteString(stylePath.apply(r.FullPath, color))
	sb.WriteString(sep)
	sb.WriteString(styleLine.apply(strconv.FormatUint(r.LineNumber, 10), color))
	sb.WriteString(sep)
	sb.WriteString(strconv.Itoa(col))
	sb.WriteString(sep)
	if color {
		sb.WriteString(Highlight(r.Line, r.Ranges))
	} else {
		sb.WriteString(r.Line)
	}
	return sb.String()
}

// Highlight wraps each range of line in the match style. Empty,
// out-of-bounds and overlapping ranges are left unstyled.
func Highlight(line string, ranges []types.MatchRange) string {
	sorted := slices.Clone(ranges)
	slices.SortFunc(sorted, func(a, b types.MatchRange) int { return cmp.Compare(a.Start, b.Start) })

	var sb strings.Builder
	pos := 0
	for _, r := range sorted {
		if r.Start < pos || r.End > len(line) || r.Len() <= 0 {
			continue
		}
		sb.WriteString(line[pos:r.Start])
		sb.WriteString(styleMatch.apply(line[r.Start:r.End], true))
		pos = r.End
	}
	sb.WriteString(line[pos:])
	return sb.String()
}

// SummaryOf condenses an outcome for stream trailers and JSON output.
func SummaryOf(out *search.Outcome) types.Summary {
	return types.Summary{
		State:     out.State.String(),
		Total:     out.Total,
		Processed: out.Processed,
		Records:   len(out.Records),
		Matches:   out.Matches,
		ElapsedMS: out.Elapsed.Milliseconds(),
	}
}

// SummaryLine is the human readable trailer printed after text output.
func SummaryLine(out *search.Outcome) string {
	files := map[string]struct{}{}
	for _, r := range out.Records {
		files[r.FullPath] = struct{}{}
	}
	line := fmt.Sprintf("%d %s on %d %s in %d %s (%d/%d files searched, %v)",
		out.Matches, plural(out.Matches, "match", "matches"),
		len(out.Records), plural(len(out.Records), "line", "lines"),
		len(files), plural(len(files), "file", "files"),
		out.Processed, out.Total, out.Elapsed.Round(time.Millisecond))
	if out.Cancelled() {
		line += "; search cancelled, results are partial"
	}
	return line
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
