//go:build windows

package discovery

import (
	"io/fs"
	"syscall"

	"golang.org/x/sys/windows"
)

// hasSystemAttribute reports FILE_ATTRIBUTE_SYSTEM.
func hasSystemAttribute(d fs.DirEntry) bool {
	info, err := d.Info()
	if err != nil {
		return false
	}
	data, ok := info.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return false
	}
	return data.FileAttributes&windows.FILE_ATTRIBUTE_SYSTEM != 0
}
