//go:build unix && !linux

package mmap

const remapSupported = false

func osRemap([]byte, int) ([]byte, error) {
	return nil, ErrRemapUnsupported
}
