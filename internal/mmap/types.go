package mmap

import (
	"errors"
	"os"
)

// AccessPattern provides hints to the kernel about how the data will be accessed.
type AccessPattern int

const (
	// AccessDefault is the default access pattern (no specific advice).
	AccessDefault AccessPattern = iota
	// AccessSequential expects data to be accessed sequentially.
	AccessSequential
	// AccessRandom expects data to be accessed randomly.
	AccessRandom
	// AccessWillNeed expects data to be accessed in the near future.
	AccessWillNeed
	// AccessDontNeed expects data to not be accessed in the near future.
	AccessDontNeed
)

// Strategy selects how a Region is grown.
type Strategy int

const (
	// StrategyAuto uses StrategyRemap where the platform supports it and
	// StrategyPortable otherwise.
	StrategyAuto Strategy = iota
	// StrategyRemap grows the mapping atomically with mremap(2).
	StrategyRemap
	// StrategyPortable unmaps the region and maps the file again at the new size.
	StrategyPortable
)

func (s Strategy) String() string {
	switch s {
	case StrategyAuto:
		return "auto"
	case StrategyRemap:
		return "remap"
	case StrategyPortable:
		return "portable"
	default:
		return "unknown"
	}
}

// pageSize is resolved once at process start and never changes.
var pageSize = os.Getpagesize()

// PageSize returns the host page size in bytes.
func PageSize() int {
	return pageSize
}

var (
	// ErrClosed is returned when attempting to access a closed mapping.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned when a size is negative, not page aligned or shrinks a region.
	ErrInvalidSize = errors.New("mmap: invalid size")
	// ErrInvalidOffset is returned when the offset is invalid (e.g. negative).
	ErrInvalidOffset = errors.New("mmap: invalid offset")
	// ErrUnsupported is returned when writable mappings are not available on this platform.
	ErrUnsupported = errors.New("mmap: writable mappings not supported on this platform")
	// ErrRemapUnsupported is returned when StrategyRemap is requested on a platform without mremap(2).
	ErrRemapUnsupported = errors.New("mmap: in-place remap not supported on this platform")
	// ErrMappingLost is returned when a portable grow unmapped the region but could not map it again.
	// The region is unusable afterwards.
	ErrMappingLost = errors.New("mmap: mapping lost during remap")
)
