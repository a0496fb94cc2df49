package mmaplog

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"runtime"
	"time"

	"github.com/hupe1980/mmaplog/internal/conv"
	"github.com/hupe1980/mmaplog/internal/fs"
	"github.com/hupe1980/mmaplog/internal/mmap"
)

// HeaderSize is the size of the persisted write pointer at the start of the file.
const HeaderSize = 8

// PageSize returns the host page size. The file and the mapping always span a
// multiple of it.
func PageSize() int {
	return mmap.PageSize()
}

// mappedRegion is the mapping owned by a Store. *mmap.Region implements it.
type mappedRegion interface {
	Bytes() []byte
	Len() int
	Sync() error
	Grow(newSize int) error
	Close() error
}

type mapFunc func(fd uintptr, size int, strategy mmap.Strategy) (mappedRegion, error)

func mapRegion(fd uintptr, size int, strategy mmap.Strategy) (mappedRegion, error) {
	r, err := mmap.Map(fd, size, strategy)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Store is an append-only log over a memory-mapped file.
//
// A Store is owned by a single caller and must be released with Close.
type Store struct {
	path     string
	file     fs.File
	region   mappedRegion
	strategy mmap.Strategy

	size     int64 // file and mapping length
	writePtr int64
	durable  int64 // write pointer of the last successful commit

	broken bool
	closed bool

	logger  *Logger
	metrics MetricsCollector
	cleanup runtime.Cleanup
}

// handles is what the runtime cleanup releases if a Store is dropped unclosed.
type handles struct {
	region mappedRegion
	file   fs.File
}

// Open opens the log at path, creating it if it does not exist.
//
// A new file is extended to one page and starts with an empty payload. An
// existing file is mapped whole and its write pointer is recovered from the
// header.
func Open(path string, optFns ...Option) (*Store, error) {
	o := applyOptions(optFns)
	s, err := openStore(path, o)
	if err != nil {
		o.logger.WithPath(path).LogOpen(context.Background(), 0, 0, false, err)
		return nil, err
	}
	return s, nil
}

func openStore(path string, o options) (*Store, error) {
	f, err := o.fs.OpenFile(path, os.O_RDWR|os.O_CREATE, o.fileMode)
	if err != nil {
		return nil, newError("open", path, openKind(err, ErrOpenFailed), err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, newError("stat", path, openKind(err, ErrMetadata), err)
	}

	fileSize := info.Size()
	created := fileSize == 0
	size := alignUp(fileSize)
	if created {
		size = int64(PageSize())
	}
	mapLen, err := conv.Int64ToInt(size)
	if err != nil {
		_ = f.Close()
		return nil, newError("map", path, ErrMapFailed, err)
	}

	// Fresh files get their first page here. Unaligned files left behind by
	// other tools are padded with zeros up to the next page boundary.
	if size != fileSize {
		if err := f.Truncate(size); err != nil {
			_ = f.Close()
			return nil, newError("truncate", path, ErrAllocationFailed, err)
		}
	}

	region, err := o.mapper(f.Fd(), mapLen, o.remap.mmapStrategy())
	if err != nil {
		_ = f.Close()
		return nil, newError("map", path, ErrMapFailed, err)
	}

	s := &Store{
		path:     path,
		file:     f,
		region:   region,
		strategy: o.remap.mmapStrategy(),
		size:     size,
		writePtr: HeaderSize,
		durable:  HeaderSize,
		metrics:  o.metricsCollector,
	}
	if r, ok := region.(*mmap.Region); ok {
		s.strategy = r.Strategy()
	}

	header := region.Bytes()[:HeaderSize]
	if created {
		binary.LittleEndian.PutUint64(header, 0)
	} else {
		ptr := binary.LittleEndian.Uint64(header)
		switch {
		case ptr == 0:
			// Nothing committed yet.
		case ptr < HeaderSize || ptr > uint64(size):
			_ = region.Close()
			_ = f.Close()
			return nil, newError("recover", path, ErrCorruptHeader, fmt.Errorf("write pointer %d outside [%d, %d]", ptr, HeaderSize, size))
		default:
			s.writePtr = int64(ptr)
			s.durable = int64(ptr)
		}
	}

	s.cleanup = runtime.AddCleanup(s, releaseHandles, handles{region: region, file: f})
	s.logger = o.logger.WithPath(path)
	s.logger.LogOpen(context.Background(), s.size, s.writePtr, created, nil)
	return s, nil
}

func releaseHandles(h handles) {
	_ = h.region.Close()
	_ = h.file.Close()
}

func alignUp(n int64) int64 {
	ps := int64(PageSize())
	return (n + ps - 1) / ps * ps
}

// Path returns the path of the backing file.
func (s *Store) Path() string {
	return s.path
}

// Size returns the current length of the file and the mapping in bytes.
func (s *Store) Size() int64 {
	return s.size
}

// WritePointer returns the offset where the next record will be written.
func (s *Store) WritePointer() int64 {
	return s.writePtr
}

// DurablePointer returns the write pointer of the last successful commit.
// It trails WritePointer only after a failed commit.
func (s *Store) DurablePointer() int64 {
	return s.durable
}

// Available returns the number of bytes that can be written without growing.
func (s *Store) Available() int64 {
	return s.size - s.writePtr
}

// RemapStrategy returns the growth strategy in effect.
func (s *Store) RemapStrategy() RemapStrategy {
	switch s.strategy {
	case mmap.StrategyRemap:
		return RemapInPlace
	case mmap.StrategyPortable:
		return RemapPortable
	default:
		return RemapAuto
	}
}

// Write appends p and commits it.
//
// A zero-length write is legal: it leaves the payload untouched and still
// commits. When the commit fails the record stays appended and Write returns
// ErrSyncFailed; see Commit.
func (s *Store) Write(p []byte) error {
	if err := s.check("write"); err != nil {
		return err
	}

	start := time.Now()
	err := s.append(p)
	if err == nil {
		err = s.commit()
	}
	s.metrics.RecordWrite(len(p), time.Since(start), err)
	return err
}

// append copies p to the write pointer without committing.
func (s *Store) append(p []byte) error {
	if err := s.ensureCapacity(int64(len(p))); err != nil {
		return err
	}
	copy(s.region.Bytes()[s.writePtr:], p)
	s.writePtr += int64(len(p))
	return nil
}

// EnsureCapacity makes room for n more bytes after the write pointer.
//
// If the store already has room nothing is touched. Otherwise the file and
// the mapping grow by the missing bytes rounded up to whole pages. On failure
// the size and the write pointer are unchanged, except after a portable remap
// lost the mapping (ErrMapFailed), which leaves the store unusable.
func (s *Store) EnsureCapacity(n int64) error {
	if err := s.check("grow"); err != nil {
		return err
	}
	return s.ensureCapacity(n)
}

func (s *Store) ensureCapacity(n int64) error {
	deficit := n - (s.size - s.writePtr)
	if deficit <= 0 {
		return nil
	}

	ps := int64(PageSize())
	pages := (deficit + ps - 1) / ps
	if pages > math.MaxInt64/ps {
		return newError("grow", s.path, ErrAllocationFailed, conv.ErrOverflow)
	}
	newSize, err := conv.AddInt64(s.size, pages*ps)
	if err != nil {
		return newError("grow", s.path, ErrAllocationFailed, err)
	}

	start := time.Now()
	oldSize := s.size
	err = s.grow(newSize)
	s.metrics.RecordGrow(oldSize, newSize, time.Since(start), err)
	s.logger.LogGrow(context.Background(), oldSize, newSize, err)
	return err
}

func (s *Store) grow(newSize int64) error {
	oldSize := s.size
	mapLen, err := conv.Int64ToInt(newSize)
	if err != nil {
		return newError("grow", s.path, ErrAllocationFailed, err)
	}

	if err := s.file.Truncate(newSize); err != nil {
		return newError("truncate", s.path, ErrAllocationFailed, err)
	}

	if err := s.region.Grow(mapLen); err != nil {
		if errors.Is(err, mmap.ErrMappingLost) {
			s.broken = true
			s.logger.Error("mapping lost during remap",
				"old_size", oldSize,
				"new_size", newSize,
				"error", err,
			)
			return newError("remap", s.path, ErrMapFailed, err)
		}
		if terr := s.file.Truncate(oldSize); terr != nil {
			s.logger.Warn("shrinking file after failed remap",
				"size", oldSize,
				"error", terr,
			)
		}
		return newError("remap", s.path, ErrAllocationFailed, err)
	}

	s.size = newSize
	return nil
}

// Commit writes the write pointer into the header and flushes the whole
// mapping to disk.
//
// Commit is idempotent: it always publishes the current write pointer, so it
// can be retried after ErrSyncFailed.
func (s *Store) Commit() error {
	if err := s.check("commit"); err != nil {
		return err
	}
	return s.commit()
}

func (s *Store) commit() error {
	start := time.Now()

	binary.LittleEndian.PutUint64(s.region.Bytes()[:HeaderSize], uint64(s.writePtr))
	var err error
	if serr := s.region.Sync(); serr != nil {
		err = newError("sync", s.path, ErrSyncFailed, serr)
	} else {
		s.durable = s.writePtr
	}

	s.metrics.RecordCommit(time.Since(start), err)
	s.logger.LogCommit(context.Background(), s.writePtr, err)
	return err
}

// Close commits a final time, unmaps the file and closes it.
//
// A failing final commit does not stop the release; its error is logged and
// joined into the result. A second Close returns ErrClosed.
func (s *Store) Close() error {
	if s.closed {
		return newError("close", s.path, ErrClosed, nil)
	}
	s.closed = true
	s.cleanup.Stop()

	var errs []error
	if !s.broken {
		if err := s.commit(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.region.Close(); err != nil {
		errs = append(errs, newError("unmap", s.path, ErrMapFailed, err))
	}
	if err := s.file.Close(); err != nil {
		errs = append(errs, newError("close", s.path, ErrCloseFailed, err))
	}

	err := errors.Join(errs...)
	s.logger.LogClose(context.Background(), s.durable, err)
	return err
}

// discard releases the store without a final commit. The file is about to
// be removed.
func (s *Store) discard() {
	if s.closed {
		return
	}
	s.closed = true
	s.cleanup.Stop()
	_ = s.region.Close()
	_ = s.file.Close()
}

func (s *Store) check(op string) error {
	if s.closed {
		return newError(op, s.path, ErrClosed, nil)
	}
	if s.broken {
		return newError(op, s.path, ErrMapFailed, mmap.ErrMappingLost)
	}
	return nil
}
