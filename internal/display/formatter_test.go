package display

import (
	"bufio"
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/fgrep/internal/search"
	"github.com/standardbeagle/fgrep/internal/types"
)

func sampleOutcome(root string) *search.Outcome {
	return &search.Outcome{
		Records: []types.ResultRecord{
			{FullPath: filepath.Join(root, "b.go"), LineNumber: 7, Line: "x foo foo", Ranges: []types.MatchRange{{Start: 2, End: 5}, {Start: 6, End: 9}}},
			{FullPath: filepath.Join(root, "a.go"), LineNumber: 3, Line: "foo", Ranges: []types.MatchRange{{Start: 0, End: 3}}},
		},
		State:     search.StateCompleted,
		Total:     4,
		Processed: 4,
		Matches:   3,
		Elapsed:   1500 * time.Millisecond,
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "TEXT": FormatText, "json": FormatJSON, "ndjson": FormatNDJSON} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestWrite_Text(t *testing.T) {
	root := t.TempDir()
	var buf bytes.Buffer
	f := NewFormatter(Options{Root: root, Sort: true})
	require.NoError(t, f.Write(&buf, sampleOutcome(root)))

	assert.Equal(t, "a.go:3:1:foo\nb.go:7:3:x foo foo\n", buf.String())
}

func TestWrite_TextDiscoveryOrderAbsolute(t *testing.T) {
	root := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(Options{}).Write(&buf, sampleOutcome(root)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], filepath.Join(root, "b.go")+":7:"))
}

func TestWrite_JSON(t *testing.T) {
	root := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(Options{Format: FormatJSON, Root: root}).Write(&buf, sampleOutcome(root)))

	var doc struct {
		Records []types.ResultRecord `json:"records"`
		Summary types.Summary        `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Records, 2)
	assert.Equal(t, "b.go", doc.Records[0].FullPath)
	assert.Equal(t, []types.MatchRange{{Start: 2, End: 5}, {Start: 6, End: 9}}, doc.Records[0].Ranges)
	assert.Equal(t, types.Summary{State: "completed", Total: 4, Processed: 4, Records: 2, Matches: 3, ElapsedMS: 1500}, doc.Summary)
	assert.Contains(t, buf.String(), `"ranges": [`)
}

func TestWrite_JSONEmptyRecords(t *testing.T) {
	var buf bytes.Buffer
	out := &search.Outcome{State: search.StateCancelled}
	require.NoError(t, NewFormatter(Options{Format: FormatJSON}).Write(&buf, out))
	assert.Contains(t, buf.String(), `"records": []`)
	assert.Contains(t, buf.String(), `"state": "cancelled"`)
}

func TestWrite_NDJSON(t *testing.T) {
	root := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(Options{Format: FormatNDJSON, Sort: true}).Write(&buf, sampleOutcome(root)))

	var msgs []types.StreamMessage
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var m types.StreamMessage
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		msgs = append(msgs, m)
	}
	require.Len(t, msgs, 3)
	assert.Equal(t, types.MessageMatch, msgs[0].Type)
	assert.Equal(t, filepath.Join(root, "a.go"), msgs[0].Record.FullPath)
	assert.Equal(t, types.MessageEnd, msgs[2].Type)
	assert.Equal(t, 3, msgs[2].Summary.Matches)
}

func TestFormatRecord_Color(t *testing.T) {
	f := NewFormatter(Options{Color: true})
	got := f.FormatRecord(types.ResultRecord{FullPath: "p", LineNumber: 2, Line: "a foo", Ranges: []types.MatchRange{{Start: 2, End: 5}}})
	assert.Contains(t, got, "\x1b[1;31mfoo\x1b[0m")
	assert.Contains(t, got, "\x1b[35mp\x1b[0m")
}

func TestHighlight(t *testing.T) {
	bold := func(s string) string { return "\x1b[1;31m" + s + "\x1b[0m" }

	assert.Equal(t, "a "+bold("bc")+" "+bold("d"), Highlight("a bc d", []types.MatchRange{{Start: 5, End: 6}, {Start: 2, End: 4}}))
	assert.Equal(t, "abc", Highlight("abc", []types.MatchRange{{Start: 1, End: 1}}), "empty range")
	assert.Equal(t, "abc", Highlight("abc", []types.MatchRange{{Start: 1, End: 9}}), "out of bounds")
	assert.Equal(t, bold("ab")+"c", Highlight("abc", []types.MatchRange{{Start: 0, End: 2}, {Start: 1, End: 3}}), "overlap")
}

func TestSummaryLine(t *testing.T) {
	out := sampleOutcome(t.TempDir())
	assert.Equal(t, "3 matches on 2 lines in 2 files (4/4 files searched, 1.5s)", SummaryLine(out))

	out.State = search.StateCancelled
	assert.True(t, strings.HasSuffix(SummaryLine(out), "results are partial"))
}
