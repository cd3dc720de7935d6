// Package pathutil converts result paths between the absolute form the
// search engine produces and the root-relative form shown to users.
package pathutil

import (
	"path/filepath"
	"strings"

	"github.com/standardbeagle/fgrep/internal/types"
)

// ToRelative converts an absolute path to relative based on a root directory.
// Falls back to the original path if conversion fails or path is already relative.
//
// Examples:
//   - ToRelative("/home/user/project/src/main.go", "/home/user/project") → "src/main.go"
//   - ToRelative("/other/location/file.go", "/home/user/project") → "/other/location/file.go" (outside root)
//   - ToRelative("src/main.go", "/home/user/project") → "src/main.go" (already relative)
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}
	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	if abs, err := filepath.Abs(rootDir); err == nil {
		rootDir = abs
	}

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		return absPath
	}
	// outside the root the absolute path is clearer
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return absPath
	}
	return relPath
}

// ToRelativeRecords returns a copy of records with root-relative paths.
// The input slice is not modified.
func ToRelativeRecords(records []types.ResultRecord, rootDir string) []types.ResultRecord {
	if len(records) == 0 {
		return records
	}
	converted := make([]types.ResultRecord, len(records))
	copy(converted, records)
	for i := range converted {
		converted[i].FullPath = ToRelative(converted[i].FullPath, rootDir)
	}
	return converted
}

// ToRelativeEvent rewrites the path a progress event reports.
func ToRelativeEvent(ev types.ProgressEvent, rootDir string) types.ProgressEvent {
	ev.Processing = ToRelative(ev.Processing, rootDir)
	return ev
}
