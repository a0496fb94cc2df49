package mmap

import "fmt"

// Region is a shared, read-write mapping over bytes [0, Len()) of an open file.
//
// The file descriptor is borrowed: Region never closes it. The caller must
// extend the file before growing the region, otherwise touching the new pages
// raises SIGBUS.
type Region struct {
	fd       uintptr
	data     []byte
	strategy Strategy
	closed   bool
	lost     bool
}

// Map establishes a shared read-write mapping of size bytes over fd.
// size must be a positive multiple of PageSize().
func Map(fd uintptr, size int, strategy Strategy) (*Region, error) {
	if size <= 0 || size%pageSize != 0 {
		return nil, ErrInvalidSize
	}

	resolved, err := resolveStrategy(strategy)
	if err != nil {
		return nil, err
	}

	data, err := osMapShared(fd, size)
	if err != nil {
		return nil, err
	}

	return &Region{
		fd:       fd,
		data:     data,
		strategy: resolved,
	}, nil
}

func resolveStrategy(s Strategy) (Strategy, error) {
	switch s {
	case StrategyAuto:
		if remapSupported {
			return StrategyRemap, nil
		}
		return StrategyPortable, nil
	case StrategyRemap:
		if !remapSupported {
			return 0, ErrRemapUnsupported
		}
		return StrategyRemap, nil
	case StrategyPortable:
		return StrategyPortable, nil
	default:
		return 0, fmt.Errorf("mmap: unknown strategy %d", int(s))
	}
}

// Bytes returns the mapped memory.
// The slice is invalidated by Grow and Close; never retain it across those calls.
func (r *Region) Bytes() []byte {
	if r.closed {
		return nil
	}
	return r.data
}

// Len returns the current mapping length in bytes.
func (r *Region) Len() int {
	return len(r.data)
}

// Strategy returns the resolved growth strategy.
func (r *Region) Strategy() Strategy {
	return r.strategy
}

// Sync flushes the whole region to the backing file and waits for completion.
func (r *Region) Sync() error {
	if err := r.check(); err != nil {
		return err
	}
	return osSync(r.data)
}

// Grow remaps the region to newSize bytes.
//
// With StrategyRemap a failure leaves the region untouched. With
// StrategyPortable a failure after the unmap leaves no mapping at all; the
// returned error wraps ErrMappingLost and every later call fails with it.
func (r *Region) Grow(newSize int) error {
	if err := r.check(); err != nil {
		return err
	}
	if newSize < len(r.data) || newSize%pageSize != 0 {
		return ErrInvalidSize
	}
	if newSize == len(r.data) {
		return nil
	}

	if r.strategy == StrategyRemap {
		data, err := osRemap(r.data, newSize)
		if err != nil {
			return err
		}
		r.data = data
		return nil
	}

	if err := osUnmap(r.data); err != nil {
		return err
	}
	data, err := osMapShared(r.fd, newSize)
	if err != nil {
		r.data = nil
		r.lost = true
		return fmt.Errorf("%w: %w", ErrMappingLost, err)
	}
	r.data = data
	return nil
}

// Close unmaps the region. A second call returns ErrClosed.
func (r *Region) Close() error {
	if r.closed {
		return ErrClosed
	}
	r.closed = true
	if r.data == nil {
		return nil
	}
	err := osUnmap(r.data)
	r.data = nil
	return err
}

func (r *Region) check() error {
	if r.closed {
		return ErrClosed
	}
	if r.lost {
		return ErrMappingLost
	}
	return nil
}
