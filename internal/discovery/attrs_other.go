//go:build !windows

package discovery

import "io/fs"

// hasSystemAttribute is always false outside Windows.
func hasSystemAttribute(fs.DirEntry) bool {
	return false
}
