// Package compress frames and compresses archive blocks.
//
// Every block is written as
//
//	[uncompressed uint32][compressed uint32][data]
//
// where compressed == 0 means data is stored as-is (compression did not pay
// off or the codec is None). Integers are little-endian.
//
// LZ4 favors speed, ZSTD favors ratio. Encoders and decoders for ZSTD are
// pooled because their setup cost dominates small blocks.
package compress
