package core

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/standardbeagle/fgrep/internal/types"
)

// BinaryDetector decides whether a file should be skipped when binary
// skipping is enabled. It looks at the extension first, then sniffs content.
type BinaryDetector struct {
	binaryExtensions map[string]bool
}

// NewBinaryDetector creates a detector with the default extension set.
func NewBinaryDetector() *BinaryDetector {
	extensions := map[string]bool{
		// Fonts
		".woff": true, ".woff2": true, ".ttf": true, ".otf": true, ".eot": true,
		// Images (SVG is XML and stays searchable)
		".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
		".ico": true, ".webp": true, ".tiff": true, ".tif": true,
		// Archives
		".zip": true, ".tar": true, ".gz": true, ".bz2": true, ".xz": true,
		".7z": true, ".rar": true, ".jar": true,
		// Executables and objects
		".exe": true, ".dll": true, ".so": true, ".dylib": true,
		".a": true, ".o": true, ".obj": true, ".bin": true,
		// Media
		".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".wav": true,
		".flac": true, ".ogg": true,
		// Office formats
		".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
		".ppt": true, ".pptx": true,
		// Databases and bytecode
		".db": true, ".sqlite": true, ".sqlite3": true,
		".pyc": true, ".class": true, ".pkl": true,
	}

	return &BinaryDetector{binaryExtensions: extensions}
}

// IsBinaryByExtension checks if a file is binary based on its extension
func (bd *BinaryDetector) IsBinaryByExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	return bd.binaryExtensions[ext]
}

var magicNumbers = [][]byte{
	{0x1F, 0x8B},             // gzip
	{0x50, 0x4B, 0x03, 0x04}, // zip
	{0x50, 0x4B, 0x05, 0x06}, // empty zip
	{0x89, 0x50, 0x4E, 0x47}, // png
	{0xFF, 0xD8, 0xFF},       // jpeg
	{0x47, 0x49, 0x46, 0x38}, // gif
	{0x25, 0x50, 0x44, 0x46}, // pdf
	{0x7F, 0x45, 0x4C, 0x46}, // elf
	{0x4D, 0x5A},             // dos/windows executable
	{0xCA, 0xFE, 0xBA, 0xBE}, // mach-o fat binary
	{0x77, 0x4F, 0x46, 0x46}, // woff
	{0x77, 0x4F, 0x46, 0x32}, // woff2
}

// IsBinaryByContent sniffs the first BinaryPreCheckBytes of content.
func (bd *BinaryDetector) IsBinaryByContent(content []byte) bool {
	if len(content) == 0 {
		return false
	}

	sample := content
	if len(sample) > types.BinaryPreCheckBytes {
		sample = sample[:types.BinaryPreCheckBytes]
	}

	for _, magic := range magicNumbers {
		if bytes.HasPrefix(sample, magic) {
			return true
		}
	}

	nullBytes := 0
	nonPrintable := 0
	for _, b := range sample {
		if b == 0 {
			nullBytes++
		}
		// bytes >= 0x80 are left alone so UTF-8 text is not flagged
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' {
			nonPrintable++
		}
	}

	if nullBytes > len(sample)/100 {
		return true
	}
	return nonPrintable > len(sample)*30/100
}

// IsBinary combines extension and content checks.
func (bd *BinaryDetector) IsBinary(path string, sample []byte) bool {
	if bd.IsBinaryByExtension(path) {
		return true
	}
	return bd.IsBinaryByContent(sample)
}
