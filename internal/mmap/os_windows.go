//go:build windows

package mmap

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

const remapSupported = false

func osMap(fd uintptr, size int) ([]byte, func([]byte) error, error) {
	h, err := windows.CreateFileMapping(windows.Handle(fd), nil, windows.PAGE_READONLY, 0, 0, nil)
	if err != nil {
		return nil, nil, err
	}
	// The view holds its own reference to the mapping object.
	defer windows.CloseHandle(h)

	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_READ, 0, 0, uintptr(size))
	if err != nil {
		return nil, nil, err
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	return data, func([]byte) error {
		return windows.UnmapViewOfFile(addr)
	}, nil
}

// Windows refuses to change a file's length while a view is open, which
// breaks the extend-then-remap contract of Region.
func osMapShared(uintptr, int) ([]byte, error) {
	return nil, ErrUnsupported
}

func osUnmap([]byte) error {
	return ErrUnsupported
}

func osSync([]byte) error {
	return ErrUnsupported
}

func osRemap([]byte, int) ([]byte, error) {
	return nil, ErrRemapUnsupported
}

func osAdvise(data []byte, pattern AccessPattern) error {
	// No madvise equivalent worth the setup cost.
	_ = data
	_ = pattern
	return nil
}
