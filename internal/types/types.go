package types

import (
	"encoding/json"
	"fmt"
)

// Common system-wide constants
const (
	// MatchEverything is the name filter that bypasses glob evaluation.
	MatchEverything = "*.*"

	// BinaryPreCheckBytes is how much of a file is sniffed for binary content.
	BinaryPreCheckBytes = 512

	// DefaultReadBufferSize is the buffered-read chunk size used when a file is not mapped.
	DefaultReadBufferSize = 64 * 1024
)

// SearchRequest describes one search invocation. It is not modified while a search runs.
// JSON names follow the wire format hosts have always used.
type SearchRequest struct {
	Pattern       string `json:"condition"`
	RootDirectory string `json:"start_directory"`
	NameFilter    string `json:"file_type"`
	WholeWord     bool   `json:"match_by_word"`
	CaseSensitive bool   `json:"case_sensitive"`
	IsRegex       bool   `json:"regexp"`
	Recursive     bool   `json:"recursive"`
}

// DefaultSearchRequest returns the request defaults: every file, recursive,
// case-insensitive literal match.
func DefaultSearchRequest() SearchRequest {
	return SearchRequest{
		NameFilter: MatchEverything,
		Recursive:  true,
	}
}

// MatchesEverything reports whether the name filter selects all files.
func (r SearchRequest) MatchesEverything() bool {
	return r.NameFilter == "" || r.NameFilter == MatchEverything
}

// Candidate is a regular file selected for scanning.
type Candidate struct {
	FullPath string `json:"full_path"`
	Name     string `json:"name"`
}

// MatchRange is a half-open byte interval [Start, End) within one line.
type MatchRange struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the range.
func (r MatchRange) Len() int {
	return r.End - r.Start
}

func (r MatchRange) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// MarshalJSON encodes the range as a two element array.
func (r MatchRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{r.Start, r.End})
}

// UnmarshalJSON decodes a two element array.
func (r *MatchRange) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("match range: %w", err)
	}
	r.Start, r.End = pair[0], pair[1]
	return nil
}

// ResultRecord is one matching line. Line is valid UTF-8, invalid input
// bytes having been replaced with U+FFFD, and Ranges index into it.
type ResultRecord struct {
	FullPath   string       `json:"full_path"`
	LineNumber uint64       `json:"line_number"`
	Line       string       `json:"line"`
	Ranges     []MatchRange `json:"ranges"`
}

// LineMatch is what the scanner yields for a single matching line.
// Line aliases scanner memory and is only valid until the next iteration.
type LineMatch struct {
	LineNumber uint64
	Line       []byte
	Ranges     []MatchRange
}

// ProgressEvent is emitted before each candidate file is scanned.
type ProgressEvent struct {
	Processing string `json:"processing"`
	Current    int    `json:"current"`
	Total      int    `json:"total"`
}
