//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package core

import (
	"os"

	"golang.org/x/sys/unix"
)

const mmapSupported = true

// mapFile maps size bytes of f read-only. The returned release func unmaps.
func mapFile(f *os.File, size int64) ([]byte, func() error, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}
	// Lines are read front to back exactly once
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
	return data, func() error { return unix.Munmap(data) }, nil
}
