package core

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	rtdebug "runtime/debug"
	"strings"

	"github.com/standardbeagle/fgrep/internal/debug"
	fgerrors "github.com/standardbeagle/fgrep/internal/errors"
	"github.com/standardbeagle/fgrep/internal/matcher"
	"github.com/standardbeagle/fgrep/internal/types"
)

// MmapMode selects how file content is obtained.
type MmapMode string

const (
	// MmapAuto maps files at least MmapThreshold bytes long, reads smaller ones.
	// A mapped file that shrinks mid-scan ends that file with an IoError.
	MmapAuto MmapMode = "auto"
	// MmapAlways maps every non-empty file where the platform allows it.
	// Truncation under the mapping is reported like MmapAuto.
	MmapAlways MmapMode = "always"
	// MmapNever always uses buffered reads.
	MmapNever MmapMode = "never"
)

// DefaultMmapThreshold is the size from which MmapAuto maps a file.
const DefaultMmapThreshold = types.DefaultReadBufferSize

// ParseMmapMode parses a config or flag value.
func ParseMmapMode(v string) (MmapMode, error) {
	switch MmapMode(strings.ToLower(strings.TrimSpace(v))) {
	case "", MmapAuto:
		return MmapAuto, nil
	case MmapAlways:
		return MmapAlways, nil
	case MmapNever:
		return MmapNever, nil
	default:
		return MmapAuto, fmt.Errorf("unknown mmap mode: %s", v)
	}
}

// ScanOptions configures how candidate files are read.
type ScanOptions struct {
	Mmap          MmapMode
	MmapThreshold int64
	// SkipBinary drops files the BinaryDetector flags.
	SkipBinary bool
	// MaxFileSize skips larger files; 0 means no limit.
	MaxFileSize int64
}

// DefaultScanOptions returns options that scan every file.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		Mmap:          MmapAuto,
		MmapThreshold: DefaultMmapThreshold,
	}
}

// FileScanner reads candidate files and reports their matching lines.
// A FileScanner holds no per-file state and may be shared.
type FileScanner struct {
	opts     ScanOptions
	detector *BinaryDetector
}

// NewFileScanner creates a scanner with the given options.
func NewFileScanner(opts ScanOptions) *FileScanner {
	if opts.Mmap == "" {
		opts.Mmap = MmapAuto
	}
	if opts.MmapThreshold <= 0 {
		opts.MmapThreshold = DefaultMmapThreshold
	}
	return &FileScanner{opts: opts, detector: NewBinaryDetector()}
}

// Options returns the effective options.
func (s *FileScanner) Options() ScanOptions {
	return s.opts
}

// Scan yields every line of path containing at least one match, in file
// order, with all of that line's ranges. An open or read failure is yielded
// once as an *errors.IoError and ends the sequence.
func (s *FileScanner) Scan(path string, m *matcher.Matcher) iter.Seq2[types.LineMatch, error] {
	return func(yield func(types.LineMatch, error) bool) {
		src, release, err := s.open(path)
		if err != nil {
			yield(types.LineMatch{}, err)
			return
		}
		if src == nil {
			return
		}
		defer func() {
			if cerr := release(); cerr != nil {
				debug.LogScan("release %s: %v\n", path, cerr)
			}
		}()

		_, mapped := src.(*LineScanner)
		for {
			lm, ok, err := nextMatch(src, m, mapped)
			if err != nil {
				yield(types.LineMatch{}, fgerrors.NewIoError("read", path, err))
				return
			}
			if !ok {
				break
			}
			if !yield(lm, nil) {
				return
			}
		}
		if err := src.Err(); err != nil {
			yield(types.LineMatch{}, fgerrors.NewIoError("read", path, err))
		}
	}
}

// errMappingFault reports a fault while reading a mapped file, which
// happens when the file is truncated during the scan.
var errMappingFault = errors.New("mapped file changed during scan")

// nextMatch advances src to its next matching line. For a mapped source the
// line is copied, so the caller never touches the mapping, and a memory fault
// is returned as errMappingFault instead of killing the process.
func nextMatch(src lineSource, m *matcher.Matcher, mapped bool) (lm types.LineMatch, ok bool, err error) {
	if mapped {
		defer rtdebug.SetPanicOnFault(rtdebug.SetPanicOnFault(true))
		defer func() {
			if r := recover(); r != nil {
				if _, fault := r.(interface{ Addr() uintptr }); !fault {
					panic(r)
				}
				err = errMappingFault
			}
		}()
	}

	for src.Scan() {
		line := src.Bytes()
		ranges := m.Ranges(line)
		if len(ranges) == 0 {
			continue
		}
		if mapped {
			line = bytes.Clone(line)
		}
		return types.LineMatch{
			LineNumber: uint64(src.LineNumber()),
			Line:       line,
			Ranges:     ranges,
		}, true, nil
	}
	return types.LineMatch{}, false, nil
}

// open prepares a line source for path. A nil source with a nil error means
// the file was skipped by policy.
func (s *FileScanner) open(path string) (lineSource, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fgerrors.NewIoError("open", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fgerrors.NewIoError("stat", path, err)
	}
	size := info.Size()

	if s.opts.MaxFileSize > 0 && size > s.opts.MaxFileSize {
		debug.LogScan("skipping %s: %d bytes exceeds limit %d\n", path, size, s.opts.MaxFileSize)
		f.Close()
		return nil, nil, nil
	}
	if s.opts.SkipBinary && s.detector.IsBinaryByExtension(path) {
		debug.LogScan("skipping %s: binary extension\n", path)
		f.Close()
		return nil, nil, nil
	}

	if s.shouldMap(size) {
		data, unmap, err := mapFile(f, size)
		if err == nil {
			if s.opts.SkipBinary && s.detector.IsBinaryByContent(data) {
				debug.LogScan("skipping %s: binary content\n", path)
				unmap()
				f.Close()
				return nil, nil, nil
			}
			release := func() error {
				return errors.Join(unmap(), f.Close())
			}
			return NewLineScanner(data), release, nil
		}
		debug.LogScan("mmap %s failed, falling back to buffered read: %v\n", path, err)
	}

	br := bufio.NewReaderSize(f, types.DefaultReadBufferSize)
	if s.opts.SkipBinary {
		sample, err := br.Peek(types.BinaryPreCheckBytes)
		if err != nil && !errors.Is(err, io.EOF) {
			f.Close()
			return nil, nil, fgerrors.NewIoError("read", path, err)
		}
		if s.detector.IsBinaryByContent(sample) {
			debug.LogScan("skipping %s: binary content\n", path)
			f.Close()
			return nil, nil, nil
		}
	}
	return NewReaderScanner(br), f.Close, nil
}

func (s *FileScanner) shouldMap(size int64) bool {
	if !mmapSupported || size <= 0 || int64(int(size)) != size {
		return false
	}
	switch s.opts.Mmap {
	case MmapAlways:
		return true
	case MmapNever:
		return false
	default:
		return size >= s.opts.MmapThreshold
	}
}
