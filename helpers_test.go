//go:build unix

package mmaplog

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"syscall"
	"testing"

	"github.com/hupe1980/mmaplog/internal/mmap"
	"github.com/stretchr/testify/require"
)

// faultyRegion wraps a real mapping and fails Sync or Grow on demand.
type faultyRegion struct {
	mappedRegion
	syncErr    error
	growErr    error
	loseOnGrow bool
}

func (r *faultyRegion) Sync() error {
	if r.syncErr != nil {
		return r.syncErr
	}
	return r.mappedRegion.Sync()
}

func (r *faultyRegion) Grow(newSize int) error {
	if r.loseOnGrow {
		return fmt.Errorf("%w: %w", mmap.ErrMappingLost, syscall.ENOMEM)
	}
	if r.growErr != nil {
		return r.growErr
	}
	return r.mappedRegion.Grow(newSize)
}

// withFaultyRegion maps the file normally and hands the wrapper to the test.
func withFaultyRegion(out **faultyRegion) Option {
	return withMapper(func(fd uintptr, size int, strategy mmap.Strategy) (mappedRegion, error) {
		r, err := mapRegion(fd, size, strategy)
		if err != nil {
			return nil, err
		}
		fr := &faultyRegion{mappedRegion: r}
		*out = fr
		return fr, nil
	})
}

func tempPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "store.log")
}

func mustOpen(t *testing.T, path string, opts ...Option) *Store {
	t.Helper()
	s, err := Open(path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func fileHeader(t *testing.T, path string) uint64 {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(data), HeaderSize)
	return binary.LittleEndian.Uint64(data[:HeaderSize])
}

func fileSize(t *testing.T, path string) int64 {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	return info.Size()
}

func writeFile(t *testing.T, path string, header uint64, size int) {
	t.Helper()
	data := make([]byte, size)
	binary.LittleEndian.PutUint64(data, header)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func remapStrategies() []RemapStrategy {
	if runtime.GOOS == "linux" {
		return []RemapStrategy{RemapPortable, RemapInPlace}
	}
	return []RemapStrategy{RemapPortable}
}
