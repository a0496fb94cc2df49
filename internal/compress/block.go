package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec identifies a block compression algorithm.
type Codec uint8

const (
	// None stores blocks uncompressed.
	None Codec = 0
	// LZ4 uses LZ4 block compression (fast).
	LZ4 Codec = 1
	// ZSTD uses Zstandard block compression (better ratio).
	ZSTD Codec = 2
)

func (c Codec) String() string {
	switch c {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

// Valid reports whether c is a known codec.
func (c Codec) Valid() bool {
	return c <= ZSTD
}

const (
	// HeaderSize is the size of a block frame header.
	HeaderSize = 8
	// MaxBlockSize bounds the uncompressed size of a single block.
	MaxBlockSize = 64 << 20
)

var (
	// ErrCorruptBlock is returned when a block frame is truncated or inconsistent.
	ErrCorruptBlock = errors.New("compress: corrupt block")
	// ErrUnknownCodec is returned for codecs outside None, LZ4 and ZSTD.
	ErrUnknownCodec = errors.New("compress: unknown codec")
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxBlockSize))
}

// EncodeBlock compresses data with codec and returns the framed block.
// Blocks that do not shrink below 90% of their size are stored uncompressed.
func EncodeBlock(data []byte, codec Codec) ([]byte, error) {
	if !codec.Valid() {
		return nil, ErrUnknownCodec
	}
	if uint64(len(data)) > uint64(^uint32(0)) {
		return nil, fmt.Errorf("compress: block of %d bytes too large", len(data))
	}

	var compressed []byte
	switch codec {
	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		compressed = buf[:n] // n == 0 means incompressible
	case ZSTD:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, err
		}
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		out := make([]byte, HeaderSize+len(data))
		binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
		copy(out[HeaderSize:], data)
		return out, nil
	}

	out := make([]byte, HeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(compressed)))
	copy(out[HeaderSize:], compressed)
	return out, nil
}

// ReadBlock reads one framed block from r and returns its uncompressed bytes.
// It returns io.EOF only when r is exhausted before the first header byte.
// Frames claiming more than maxSize or MaxBlockSize uncompressed bytes are
// rejected before any payload is decompressed.
func ReadBlock(r io.Reader, codec Codec, maxSize int) ([]byte, error) {
	if !codec.Valid() {
		return nil, ErrUnknownCodec
	}

	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: truncated header", ErrCorruptBlock)
		}
		return nil, err
	}

	size := binary.LittleEndian.Uint32(hdr[0:])
	stored := binary.LittleEndian.Uint32(hdr[4:])
	if uint64(size) > uint64(min(maxSize, MaxBlockSize)) {
		return nil, fmt.Errorf("%w: block of %d bytes exceeds %d", ErrCorruptBlock, size, maxSize)
	}

	if stored == 0 {
		out := make([]byte, size)
		if _, err := io.ReadFull(r, out); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptBlock, err)
		}
		return out, nil
	}

	// The encoder only keeps output that shrank the block.
	if codec == None || stored >= size {
		return nil, fmt.Errorf("%w: unexpected compressed length %d", ErrCorruptBlock, stored)
	}
	payload := make([]byte, stored)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptBlock, err)
	}
	return decode(payload, int(size), codec)
}

func decode(payload []byte, size int, codec Codec) ([]byte, error) {
	out := make([]byte, size)
	switch codec {
	case LZ4:
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptBlock, err)
		}
		if n != size {
			return nil, fmt.Errorf("%w: decompressed %d bytes, want %d", ErrCorruptBlock, n, size)
		}
		return out, nil
	case ZSTD:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)

		// Refuse frames that would expand past the framed size before decoding.
		var fh zstd.Header
		if err := fh.Decode(payload); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptBlock, err)
		}
		if !fh.HasFCS || fh.FrameContentSize != uint64(size) {
			return nil, fmt.Errorf("%w: zstd frame content size does not match %d", ErrCorruptBlock, size)
		}

		decoded, err := dec.DecodeAll(payload, out[:0])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptBlock, err)
		}
		if len(decoded) != size {
			return nil, fmt.Errorf("%w: decompressed %d bytes, want %d", ErrCorruptBlock, len(decoded), size)
		}
		return decoded, nil
	default:
		return nil, ErrUnknownCodec
	}
}
