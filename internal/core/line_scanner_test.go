package core

import (
	"bufio"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lineSplitCases = []struct {
	name     string
	input    string
	expected []string
}{
	{"empty", "", nil},
	{"single line no newline", "hello", []string{"hello"}},
	{"single line with newline", "hello\n", []string{"hello"}},
	{"multiple lines", "line1\nline2\nline3", []string{"line1", "line2", "line3"}},
	{"CRLF endings", "line1\r\nline2\r\nline3\r\n", []string{"line1", "line2", "line3"}},
	{"CR on last line", "line1\nline2\r", []string{"line1", "line2"}},
	{"lone CR kept mid line", "a\rb\n", []string{"a\rb"}},
	{"empty lines", "line1\n\nline3\n", []string{"line1", "", "line3"}},
	{"only newlines", "\n\n\n", []string{"", "", ""}},
}

func collect(src lineSource) []string {
	var lines []string
	for src.Scan() {
		lines = append(lines, string(src.Bytes()))
	}
	return lines
}

func TestLineScanner_Basic(t *testing.T) {
	for _, tt := range lineSplitCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, collect(NewLineScanner([]byte(tt.input))))
		})
	}
}

func TestReaderScanner_MatchesLineScanner(t *testing.T) {
	for _, tt := range lineSplitCases {
		t.Run(tt.name, func(t *testing.T) {
			rs := NewReaderScanner(bufio.NewReaderSize(strings.NewReader(tt.input), 16))
			assert.Equal(t, tt.expected, collect(rs))
			assert.NoError(t, rs.Err())
		})
	}
}

func TestReaderScanner_LongLines(t *testing.T) {
	long := strings.Repeat("x", 100)
	input := long + "\r\nshort\n" + long + "y"

	rs := NewReaderScanner(bufio.NewReaderSize(strings.NewReader(input), 16))
	lines := collect(rs)

	require.Len(t, lines, 3)
	assert.Equal(t, long, lines[0])
	assert.Equal(t, "short", lines[1])
	assert.Equal(t, long+"y", lines[2])
	assert.Equal(t, 3, rs.LineNumber())
}

type failingReader struct {
	data string
	read bool
}

func (f *failingReader) Read(p []byte) (int, error) {
	if !f.read {
		f.read = true
		return copy(p, f.data), nil
	}
	return 0, errors.New("device unplugged")
}

func TestReaderScanner_ReadError(t *testing.T) {
	rs := NewReaderScanner(bufio.NewReader(&failingReader{data: "first\nsecond"}))

	require.True(t, rs.Scan())
	assert.Equal(t, "first", string(rs.Bytes()))
	assert.False(t, rs.Scan())
	assert.EqualError(t, rs.Err(), "device unplugged")
}

func TestLineScanner_LineNumberAndOffset(t *testing.T) {
	scanner := NewLineScanner([]byte("abc\ndefgh\ni"))

	expected := []struct {
		lineNum int
		offset  int
		text    string
	}{
		{1, 0, "abc"},
		{2, 4, "defgh"},
		{3, 10, "i"},
	}

	i := 0
	for scanner.Scan() {
		require.Less(t, i, len(expected), "too many lines")
		assert.Equal(t, expected[i].lineNum, scanner.LineNumber())
		assert.Equal(t, expected[i].offset, scanner.Offset())
		assert.Equal(t, expected[i].text, string(scanner.Bytes()))
		i++
	}
	assert.Equal(t, len(expected), i)
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 0, CountLines(nil))
	assert.Equal(t, 1, CountLines([]byte("a")))
	assert.Equal(t, 1, CountLines([]byte("a\n")))
	assert.Equal(t, 3, CountLines([]byte("a\n\nb")))
}
