//go:build linux

package mmap

import "golang.org/x/sys/unix"

const remapSupported = true

// osRemap lets the kernel move the mapping if it cannot be extended in place.
func osRemap(data []byte, newSize int) ([]byte, error) {
	return unix.Mremap(data, newSize, unix.MREMAP_MAYMOVE)
}
