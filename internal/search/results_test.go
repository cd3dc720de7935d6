package search

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/fgrep/internal/types"
)

func TestResultSet_AggregatesPerLine(t *testing.T) {
	rs := NewResultSet()
	line := []byte("a b a")
	rs.Add("/x/f.txt", 3, line, []types.MatchRange{{Start: 0, End: 1}})
	rs.Add("/x/f.txt", 3, []byte("ignored"), []types.MatchRange{{Start: 4, End: 5}})
	rs.Add("/x/f.txt", 4, []byte("a"), []types.MatchRange{{Start: 0, End: 1}})

	line[0] = 'Z'

	records := rs.Records()
	assert.Equal(t, 2, rs.Len())
	assert.Equal(t, 3, rs.MatchCount())
	assert.Equal(t, "a b a", records[0].Line, "stored line is a copy and is never replaced")
	assert.Equal(t, []types.MatchRange{{Start: 0, End: 1}, {Start: 4, End: 5}}, records[0].Ranges)
}

func TestResultSet_KeyDoesNotCollide(t *testing.T) {
	rs := NewResultSet()
	rs.Add("/x/file1", 23, []byte("p"), []types.MatchRange{{Start: 0, End: 1}})
	rs.Add("/x/file12", 3, []byte("q"), []types.MatchRange{{Start: 0, End: 1}})
	assert.Equal(t, 2, rs.Len())
}

func TestResultSet_Sorted(t *testing.T) {
	rs := NewResultSet()
	rs.Add("/b", 2, []byte("x"), nil)
	rs.Add("/a", 10, []byte("x"), nil)
	rs.Add("/a", 9, []byte("x"), nil)

	sorted := rs.Sorted()
	assert.Equal(t, "/a", sorted[0].FullPath)
	assert.Equal(t, uint64(9), sorted[0].LineNumber)
	assert.Equal(t, uint64(10), sorted[1].LineNumber)
	assert.Equal(t, "/b", sorted[2].FullPath)

	// insertion order is untouched
	assert.Equal(t, "/b", rs.Records()[0].FullPath)
}

func TestResultSet_InvalidUTF8RangesFollowDecodedLine(t *testing.T) {
	rs := NewResultSet()
	rs.Add("/x/f.txt", 1, []byte("\xffabc foo"), []types.MatchRange{{Start: 5, End: 8}})
	rs.Add("/x/f.txt", 1, []byte("\xffabc foo"), []types.MatchRange{{Start: 1, End: 4}})

	rec := rs.Records()[0]
	assert.Equal(t, "\uFFFDabc foo", rec.Line)
	assert.Equal(t, []types.MatchRange{{Start: 7, End: 10}, {Start: 3, End: 6}}, rec.Ranges)

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	var back types.ResultRecord
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "foo", back.Line[back.Ranges[0].Start:back.Ranges[0].End])
	assert.Equal(t, "abc", back.Line[back.Ranges[1].Start:back.Ranges[1].End])
}

func TestDecodeLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		ranges   []types.MatchRange
		wantLine string
		want     []types.MatchRange
	}{
		{"valid is untouched", "héllo x", []types.MatchRange{{Start: 7, End: 8}}, "héllo x", []types.MatchRange{{Start: 7, End: 8}}},
		{"each bad byte is replaced", "a\xfe\xffb", []types.MatchRange{{Start: 3, End: 4}}, "a\uFFFD\uFFFDb", []types.MatchRange{{Start: 7, End: 8}}},
		{"range covering bad byte", "x\xe9y", []types.MatchRange{{Start: 0, End: 3}}, "x\uFFFDy", []types.MatchRange{{Start: 0, End: 5}}},
		{"encoded replacement char kept", "\uFFFD\xff!", []types.MatchRange{{Start: 4, End: 5}}, "\uFFFD\uFFFD!", []types.MatchRange{{Start: 6, End: 7}}},
		{"out of range clamped", "\xff", []types.MatchRange{{Start: 0, End: 9}}, "\uFFFD", []types.MatchRange{{Start: 0, End: 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, ranges := decodeLine([]byte(tt.line), tt.ranges)
			assert.Equal(t, tt.wantLine, line)
			assert.Equal(t, tt.want, ranges)
		})
	}
}
