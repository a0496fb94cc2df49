// Package mmap provides the memory-mapping primitives behind the append store.
//
// # Overview
//
// Two kinds of mappings are offered:
//
//   - [Region]: a shared, writable mapping over the prefix of an open file.
//     It can be flushed synchronously ([Region.Sync]) and grown in whole pages
//     ([Region.Grow]). This is what backs an mmaplog.Store.
//   - [Mapping]: a read-only, zero-copy view of a whole file. Local blob stores
//     use it to serve archives.
//
// # Usage
//
//	r, err := mmap.Map(f.Fd(), mmap.PageSize(), mmap.StrategyAuto)
//	if err != nil { ... }
//	defer r.Close()
//
//	copy(r.Bytes()[off:], payload)
//	if err := r.Sync(); err != nil { ... }
//
//	// The caller extends the file first, then grows the mapping.
//	_ = f.Truncate(int64(newSize))
//	_ = r.Grow(newSize)
//
// # Growth strategies
//
// A Region grows with one of two strategies:
//
//   - [StrategyRemap]: mremap(2) with MREMAP_MAYMOVE. Atomic: on failure the
//     old mapping is untouched. Linux only.
//   - [StrategyPortable]: munmap(2) followed by a fresh mmap(2). If the second
//     call fails the region has no mapping at all and reports [ErrMappingLost]
//     from then on.
//
// [StrategyAuto] resolves to StrategyRemap where available.
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2), msync(2), madvise(2); mremap(2) on Linux.
//   - Windows: read-only [Mapping] via CreateFileMapping/MapViewOfFile. Writable
//     regions return [ErrUnsupported].
//
// # Thread Safety
//
// Mapping is safe for concurrent reads and its Close is idempotent.
// Region is not safe for concurrent use; its owner serializes access.
package mmap
