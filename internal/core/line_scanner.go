package core

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// lineSource is the common shape of the mapped and buffered line readers.
type lineSource interface {
	Scan() bool
	Bytes() []byte
	LineNumber() int
	Err() error
}

// LineScanner provides zero-allocation line iteration over in-memory content,
// such as a memory-mapped file. Lines are split on \n and a trailing \r is
// stripped, so Bytes never includes the terminator.
//
//	scanner := NewLineScanner(content)
//	for scanner.Scan() {
//	    line := scanner.Bytes()
//	    lineNum := scanner.LineNumber() // 1-based
//	}
type LineScanner struct {
	data    []byte
	start   int // Start of current line
	end     int // End of current line (exclusive, before newline)
	pos     int // Current position in data
	lineNum int // Current line number (1-based)
	done    bool
}

// NewLineScanner creates a new line scanner for the given content.
func NewLineScanner(data []byte) *LineScanner {
	return &LineScanner{data: data}
}

// Scan advances to the next line. Returns false when done.
func (ls *LineScanner) Scan() bool {
	if ls.done {
		return false
	}

	if ls.pos >= len(ls.data) {
		ls.done = true
		return false
	}

	ls.start = ls.pos
	ls.lineNum++

	idx := bytes.IndexByte(ls.data[ls.pos:], '\n')
	if idx < 0 {
		// Last line without trailing newline
		ls.end = len(ls.data)
		ls.pos = len(ls.data)
	} else {
		ls.end = ls.pos + idx
		ls.pos = ls.pos + idx + 1
	}

	if ls.end > ls.start && ls.data[ls.end-1] == '\r' {
		ls.end--
	}

	return true
}

// Bytes returns the current line as a byte slice (zero-copy).
func (ls *LineScanner) Bytes() []byte {
	if ls.start > len(ls.data) || ls.end > len(ls.data) {
		return nil
	}
	return ls.data[ls.start:ls.end]
}

// LineNumber returns the current line number (1-based).
func (ls *LineScanner) LineNumber() int {
	return ls.lineNum
}

// Offset returns the byte offset of the current line start.
func (ls *LineScanner) Offset() int {
	return ls.start
}

// Err always returns nil; in-memory content cannot fail mid-scan.
func (ls *LineScanner) Err() error {
	return nil
}

// ReaderScanner is the streaming counterpart of LineScanner. Unlike
// bufio.Scanner it has no maximum line length: lines longer than the reader
// buffer are accumulated.
type ReaderScanner struct {
	r       *bufio.Reader
	line    []byte
	long    []byte
	lineNum int
	err     error
	done    bool
}

// NewReaderScanner wraps a buffered reader.
func NewReaderScanner(r *bufio.Reader) *ReaderScanner {
	return &ReaderScanner{r: r}
}

// Scan advances to the next line. Returns false at EOF or on a read error.
func (rs *ReaderScanner) Scan() bool {
	if rs.done {
		return false
	}

	rs.long = rs.long[:0]
	for {
		chunk, err := rs.r.ReadSlice('\n')
		switch {
		case err == nil:
			if len(rs.long) > 0 {
				rs.long = append(rs.long, chunk...)
				chunk = rs.long
			}
			rs.setLine(chunk[:len(chunk)-1])
			return true
		case errors.Is(err, bufio.ErrBufferFull):
			rs.long = append(rs.long, chunk...)
		case errors.Is(err, io.EOF):
			rs.done = true
			rs.long = append(rs.long, chunk...)
			if len(rs.long) == 0 {
				return false
			}
			rs.setLine(rs.long)
			return true
		default:
			rs.done = true
			rs.err = err
			return false
		}
	}
}

func (rs *ReaderScanner) setLine(line []byte) {
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	rs.line = line
	rs.lineNum++
}

// Bytes returns the current line. It is valid until the next Scan call.
func (rs *ReaderScanner) Bytes() []byte {
	return rs.line
}

// LineNumber returns the current line number (1-based).
func (rs *ReaderScanner) LineNumber() int {
	return rs.lineNum
}

// Err returns the first non-EOF read error.
func (rs *ReaderScanner) Err() error {
	return rs.err
}

// CountLines counts the number of lines in content without allocation.
func CountLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}

	newlines := bytes.Count(data, []byte{'\n'})
	if data[len(data)-1] != '\n' {
		return newlines + 1
	}
	return newlines
}
