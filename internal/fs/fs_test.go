package fs

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	dir := filepath.Join(tmp, "subdir")
	assert.NoError(t, lfs.MkdirAll(dir, 0o755))

	fpath := filepath.Join(dir, "test.txt")
	f, err := lfs.OpenFile(fpath, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)

	_, err = f.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.NoError(t, f.Sync())
	assert.NotZero(t, f.Fd())

	require.NoError(t, f.Truncate(4096))
	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(4096), info.Size())

	assert.NoError(t, f.Close())
	assert.NoError(t, SyncDir(lfs, dir))

	entries, err := lfs.ReadDir(dir)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)

	newPath := filepath.Join(dir, "renamed.txt")
	assert.NoError(t, lfs.Rename(fpath, newPath))

	assert.NoError(t, lfs.Remove(newPath))
	_, err = lfs.Stat(newPath)
	assert.True(t, os.IsNotExist(err))
}

func TestLocalFS_OpenMissingReturnsNilFile(t *testing.T) {
	f, err := LocalFS{}.OpenFile(filepath.Join(t.TempDir(), "missing", "x"), os.O_RDONLY, 0)
	require.Error(t, err)
	assert.Nil(t, f)
}

func TestFaultyFS_WriteLimit(t *testing.T) {
	ffs := NewFaultyFS(LocalFS{})
	ffs.AddRule("faulty", Fault{FailAfterBytes: 5})

	f, err := ffs.OpenFile(filepath.Join(t.TempDir(), "faulty.txt"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer f.Close()

	n, err := f.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = f.Write([]byte("!"))
	assert.ErrorIs(t, err, ErrInjected)
	assert.Equal(t, 0, n)
}

func TestFaultyFS_Faults(t *testing.T) {
	tmp := t.TempDir()
	ffs := NewFaultyFS(nil)
	ffs.AddRule("store", Fault{
		FailOnSync:     true,
		FailOnStat:     true,
		FailOnTruncate: true,
		FailOnClose:    true,
		Err:            syscall.ENOSPC,
	})

	f, err := ffs.OpenFile(filepath.Join(tmp, "store.bin"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)

	assert.ErrorIs(t, f.Sync(), syscall.ENOSPC)
	assert.ErrorIs(t, f.Truncate(4096), syscall.ENOSPC)
	_, err = f.Stat()
	assert.ErrorIs(t, err, syscall.ENOSPC)
	assert.ErrorIs(t, f.Close(), syscall.ENOSPC)

	// Other files are unaffected.
	g, err := ffs.OpenFile(filepath.Join(tmp, "other.bin"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	assert.NoError(t, g.Truncate(4096))
	assert.NoError(t, g.Sync())
	assert.NoError(t, g.Close())
}

func TestFaultyFS_FailOnOpen(t *testing.T) {
	ffs := NewFaultyFS(nil)
	ffs.AddRule("locked", Fault{FailOnOpen: true, Err: syscall.EACCES})

	_, err := ffs.OpenFile(filepath.Join(t.TempDir(), "locked.bin"), os.O_CREATE|os.O_RDWR, 0o644)
	assert.ErrorIs(t, err, os.ErrPermission)

	ffs.ClearRules()
	f, err := ffs.OpenFile(filepath.Join(t.TempDir(), "locked.bin"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	assert.NoError(t, f.Close())
}

func TestFaultyFS_Delegation(t *testing.T) {
	tmp := t.TempDir()
	ffs := NewFaultyFS(LocalFS{})

	dir := filepath.Join(tmp, "subdir")
	assert.NoError(t, ffs.MkdirAll(dir, 0o755))

	fpath := filepath.Join(dir, "test.txt")
	require.NoError(t, os.WriteFile(fpath, []byte("x"), 0o644))

	_, err := ffs.Stat(fpath)
	assert.NoError(t, err)
	assert.NoError(t, ffs.Rename(fpath, fpath+".renamed"))
	assert.NoError(t, ffs.Remove(fpath+".renamed"))

	entries, err := ffs.ReadDir(dir)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}
