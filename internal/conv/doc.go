// Package conv holds checked integer conversions for sizes and offsets.
//
// A store's size lives on disk as int64 but a mapping is indexed by int, and
// archive headers carry uint32 block sizes and uint64 lengths read from
// untrusted blobs. Every crossing between those widths goes through this
// package and fails with ErrOverflow instead of wrapping.
package conv
