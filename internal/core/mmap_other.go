//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package core

import (
	"errors"
	"os"
)

const mmapSupported = false

var errMmapUnsupported = errors.New("memory mapping not supported on this platform")

func mapFile(_ *os.File, _ int64) ([]byte, func() error, error) {
	return nil, nil, errMmapUnsupported
}
