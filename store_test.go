//go:build unix

package mmaplog

import (
	"bytes"
	"math/rand/v2"
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_FreshBootstrap(t *testing.T) {
	path := tempPath(t)

	s := mustOpen(t, path, WithFileMode(0o600))

	assert.Equal(t, path, s.Path())
	assert.Equal(t, int64(PageSize()), s.Size())
	assert.Equal(t, int64(HeaderSize), s.WritePointer())
	assert.Equal(t, int64(HeaderSize), s.DurablePointer())
	assert.Equal(t, int64(PageSize()-HeaderSize), s.Available())

	assert.Equal(t, int64(PageSize()), fileSize(t, path))
	assert.Equal(t, uint64(0), fileHeader(t, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, s.Commit())
	assert.Equal(t, uint64(HeaderSize), fileHeader(t, path))
}

func TestStore_HelloScenario(t *testing.T) {
	for _, strategy := range remapStrategies() {
		t.Run(strategy.String(), func(t *testing.T) {
			path := tempPath(t)

			s, err := Open(path, WithRemapStrategy(strategy))
			require.NoError(t, err)
			assert.Equal(t, strategy, s.RemapStrategy())

			require.NoError(t, s.Write([]byte("hello")))
			assert.Equal(t, int64(HeaderSize+5), s.WritePointer())
			require.NoError(t, s.Close())

			s, err = Open(path, WithRemapStrategy(strategy))
			require.NoError(t, err)
			defer s.Close()
			assert.Equal(t, int64(HeaderSize+5), s.WritePointer())

			big := bytes.Repeat([]byte{0xAB}, 2<<20)
			require.NoError(t, s.Write(big))

			want := alignUp(HeaderSize + 5 + 2<<20)
			assert.Equal(t, want, s.Size())
			if PageSize() == 4096 {
				assert.Equal(t, int64(2101248), s.Size())
			}
			assert.Equal(t, int64(HeaderSize+5+2<<20), s.WritePointer())

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, want, int64(len(data)))
			assert.Equal(t, "hello", string(data[HeaderSize:HeaderSize+5]))
			assert.True(t, bytes.Equal(big, data[HeaderSize+5:s.WritePointer()]))
		})
	}
}

func TestStore_RoundTripRecovery(t *testing.T) {
	path := tempPath(t)
	rng := rand.New(rand.NewPCG(1, 2))

	s, err := Open(path)
	require.NoError(t, err)

	var want bytes.Buffer
	for range 50 {
		rec := make([]byte, rng.IntN(3*PageSize()))
		for i := range rec {
			rec[i] = byte(rng.Uint32())
		}
		require.NoError(t, s.Write(rec))
		want.Write(rec)

		// Page alignment invariant.
		assert.Zero(t, s.Size()%int64(PageSize()))
		assert.GreaterOrEqual(t, s.Size(), s.WritePointer())
	}
	require.NoError(t, s.Close())

	s = mustOpen(t, path)
	assert.Equal(t, int64(HeaderSize+want.Len()), s.WritePointer())
	assert.Equal(t, s.WritePointer(), s.DurablePointer())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(want.Bytes(), data[HeaderSize:s.WritePointer()]))
}

func TestEnsureCapacity_MinimalGrowth(t *testing.T) {
	ps := int64(PageSize())

	tests := []struct {
		name  string
		n     int64
		pages int64
	}{
		{"zero", 0, 0},
		{"negative", -10, 0},
		{"fits", ps - HeaderSize, 0},
		{"one byte over", ps - HeaderSize + 1, 1},
		{"exactly one more page", 2*ps - HeaderSize, 1},
		{"one byte past a page", 2*ps - HeaderSize + 1, 2},
		{"many pages", 10*ps + 3, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mustOpen(t, tempPath(t))
			before := s.Size()

			require.NoError(t, s.EnsureCapacity(tt.n))

			assert.Equal(t, before+tt.pages*ps, s.Size())
			assert.Equal(t, s.Size(), fileSize(t, s.Path()))
			assert.Equal(t, int64(HeaderSize), s.WritePointer())
			assert.GreaterOrEqual(t, s.Available(), tt.n)
		})
	}
}

func TestEnsureCapacity_Idempotent(t *testing.T) {
	s := mustOpen(t, tempPath(t))

	require.NoError(t, s.EnsureCapacity(5*int64(PageSize())))
	size := s.Size()
	require.NoError(t, s.EnsureCapacity(5*int64(PageSize())))
	assert.Equal(t, size, s.Size())
}

func TestWrite_ZeroLength(t *testing.T) {
	mc := &BasicMetricsCollector{}
	path := tempPath(t)
	s := mustOpen(t, path, WithMetricsCollector(mc))

	require.NoError(t, s.Write([]byte("abc")))
	commits := mc.GetStats().CommitCount

	require.NoError(t, s.Write(nil))
	require.NoError(t, s.Write([]byte{}))

	assert.Equal(t, int64(HeaderSize+3), s.WritePointer())
	assert.Equal(t, commits+2, mc.GetStats().CommitCount)
	assert.Equal(t, uint64(HeaderSize+3), fileHeader(t, path))
	assert.Equal(t, int64(PageSize()), s.Size())
}

func TestStore_FillsPageExactly(t *testing.T) {
	s := mustOpen(t, tempPath(t))

	require.NoError(t, s.Write(make([]byte, PageSize()-HeaderSize)))
	assert.Equal(t, int64(PageSize()), s.Size())
	assert.Zero(t, s.Available())

	require.NoError(t, s.Write([]byte{1}))
	assert.Equal(t, int64(2*PageSize()), s.Size())
}

func TestStore_Close(t *testing.T) {
	path := tempPath(t)
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Close(), ErrClosed)

	assert.ErrorIs(t, s.Write([]byte("x")), ErrClosed)
	assert.ErrorIs(t, s.EnsureCapacity(1), ErrClosed)
	assert.ErrorIs(t, s.Commit(), ErrClosed)

	// Close commits, so even an untouched fresh store has a valid header.
	assert.Equal(t, uint64(HeaderSize), fileHeader(t, path))
}

func TestOpen_Recovery(t *testing.T) {
	ps := PageSize()

	t.Run("header zero means nothing committed", func(t *testing.T) {
		path := tempPath(t)
		writeFile(t, path, 0, ps)

		s := mustOpen(t, path)
		assert.Equal(t, int64(HeaderSize), s.WritePointer())
		assert.Equal(t, int64(ps), s.Size())
	})

	t.Run("unaligned file is padded", func(t *testing.T) {
		path := tempPath(t)
		writeFile(t, path, 50, 100)

		s := mustOpen(t, path)
		assert.Equal(t, int64(50), s.WritePointer())
		assert.Equal(t, int64(ps), s.Size())
		assert.Equal(t, int64(ps), fileSize(t, path))
	})

	t.Run("pointer at end of file", func(t *testing.T) {
		path := tempPath(t)
		writeFile(t, path, uint64(2*ps), 2*ps)

		s := mustOpen(t, path)
		assert.Equal(t, int64(2*ps), s.WritePointer())
		assert.Zero(t, s.Available())
	})

	for name, header := range map[string]uint64{
		"pointer inside header": 5,
		"pointer past end":      uint64(ps) + 1,
	} {
		t.Run(name, func(t *testing.T) {
			path := tempPath(t)
			writeFile(t, path, header, ps)

			_, err := Open(path)
			require.ErrorIs(t, err, ErrCorruptHeader)

			var serr *Error
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, "recover", serr.Op)
			assert.Equal(t, path, serr.Path)
		})
	}
}

func TestOpen_OpenFailed(t *testing.T) {
	_, err := Open(tempPath(t) + "/missing-dir/store.log")
	require.ErrorIs(t, err, ErrOpenFailed)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpen_AccessDeniedOnDisk(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}
	path := tempPath(t)
	require.NoError(t, os.WriteFile(path, nil, 0o400))

	_, err := Open(path)
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestRemapStrategy(t *testing.T) {
	assert.Equal(t, "auto", RemapAuto.String())
	assert.Equal(t, "in-place", RemapInPlace.String())
	assert.Equal(t, "portable", RemapPortable.String())
	assert.Equal(t, "RemapStrategy(9)", RemapStrategy(9).String())

	s := mustOpen(t, tempPath(t))
	if runtime.GOOS == "linux" {
		assert.Equal(t, RemapInPlace, s.RemapStrategy())
	} else {
		assert.Equal(t, RemapPortable, s.RemapStrategy())
		_, err := Open(tempPath(t), WithRemapStrategy(RemapInPlace))
		assert.ErrorIs(t, err, ErrMapFailed)
	}

	_, err := Open(tempPath(t), WithRemapStrategy(RemapStrategy(9)))
	assert.ErrorIs(t, err, ErrMapFailed)
}

func TestStore_DroppedWithoutClose(t *testing.T) {
	path := tempPath(t)
	func() {
		s, err := Open(path)
		require.NoError(t, err)
		require.NoError(t, s.Write([]byte("orphan")))
	}()
	runtime.GC()

	s := mustOpen(t, path)
	assert.Equal(t, int64(HeaderSize+6), s.WritePointer())
}
