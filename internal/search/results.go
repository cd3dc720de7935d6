package search

import (
	"cmp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/standardbeagle/fgrep/internal/types"
)

// resultKey identifies a record. Using a struct rather than a concatenated
// string keeps paths ending in digits from colliding with line numbers.
type resultKey struct {
	path string
	line uint64
}

// ResultSet aggregates matches into one record per (path, line).
// It is not safe for concurrent use.
type ResultSet struct {
	index   map[resultKey]int
	records []types.ResultRecord
}

// NewResultSet creates an empty set.
func NewResultSet() *ResultSet {
	return &ResultSet{index: make(map[resultKey]int)}
}

// Add records ranges for a line. If the line already has a record its
// ranges are extended; the stored line text is never replaced. line is
// copied, so callers may pass scanner-owned memory. The stored text is
// valid UTF-8 and ranges index it, see decodeLine.
func (rs *ResultSet) Add(path string, lineNumber uint64, line []byte, ranges []types.MatchRange) {
	text, mapped := decodeLine(line, ranges)
	key := resultKey{path: path, line: lineNumber}
	if i, ok := rs.index[key]; ok {
		rs.records[i].Ranges = append(rs.records[i].Ranges, mapped...)
		return
	}
	rs.index[key] = len(rs.records)
	rs.records = append(rs.records, types.ResultRecord{
		FullPath:   path,
		LineNumber: lineNumber,
		Line:       text,
		Ranges:     mapped,
	})
}

// decodeLine replaces each invalid UTF-8 byte of line with U+FFFD, the way
// encoding/json would, and moves the byte offsets of ranges to match.
// Ranges past the end of line are clamped.
func decodeLine(line []byte, ranges []types.MatchRange) (string, []types.MatchRange) {
	mapped := slices.Clone(ranges)
	if utf8.Valid(line) {
		return string(line), mapped
	}

	offsets := make([]int, len(line)+1)
	var sb strings.Builder
	sb.Grow(len(line) + 2*utf8.UTFMax)
	for i := 0; i < len(line); {
		r, size := utf8.DecodeRune(line[i:])
		n := sb.Len()
		if r == utf8.RuneError && size == 1 {
			sb.WriteRune(utf8.RuneError)
		} else {
			sb.Write(line[i : i+size])
		}
		for k := 0; k < size; k++ {
			offsets[i+k] = n + k
		}
		i += size
	}
	offsets[len(line)] = sb.Len()

	at := func(off int) int {
		return offsets[min(max(off, 0), len(line))]
	}
	for i := range mapped {
		mapped[i].Start, mapped[i].End = at(mapped[i].Start), at(mapped[i].End)
	}
	return sb.String(), mapped
}

// Len returns the number of records.
func (rs *ResultSet) Len() int {
	return len(rs.records)
}

// MatchCount returns the total number of ranges across all records.
func (rs *ResultSet) MatchCount() int {
	n := 0
	for _, r := range rs.records {
		n += len(r.Ranges)
	}
	return n
}

// Records returns the records in first-insertion order, which follows
// candidate order and then line order.
func (rs *ResultSet) Records() []types.ResultRecord {
	return slices.Clone(rs.records)
}

// Sorted returns the records ordered by path and then line number.
func (rs *ResultSet) Sorted() []types.ResultRecord {
	out := rs.Records()
	SortRecords(out)
	return out
}

// SortRecords orders records by path and then line number in place.
func SortRecords(records []types.ResultRecord) {
	slices.SortStableFunc(records, func(a, b types.ResultRecord) int {
		if c := cmp.Compare(a.FullPath, b.FullPath); c != 0 {
			return c
		}
		return cmp.Compare(a.LineNumber, b.LineNumber)
	})
}
