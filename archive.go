package mmaplog

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/hupe1980/mmaplog/blobstore"
	"github.com/hupe1980/mmaplog/internal/compress"
	"github.com/hupe1980/mmaplog/internal/conv"
	"github.com/hupe1980/mmaplog/internal/hash"
	"github.com/hupe1980/mmaplog/internal/resource"
	"golang.org/x/sync/errgroup"
)

// Codec selects the block compression of an archive.
type Codec = compress.Codec

const (
	// CodecNone stores blocks uncompressed.
	CodecNone = compress.None
	// CodecLZ4 compresses blocks with LZ4 (fast).
	CodecLZ4 = compress.LZ4
	// CodecZSTD compresses blocks with Zstandard (better ratio).
	CodecZSTD = compress.ZSTD
)

const (
	archiveMagic      = "MMLOGARC"
	archiveVersion    = 1
	archiveHeaderSize = 28

	// DefaultArchiveBlockSize is the uncompressed size of an archive block.
	DefaultArchiveBlockSize = 1 << 20
	// MaxArchiveBlockSize bounds the block size accepted by Archive and Restore.
	MaxArchiveBlockSize = compress.MaxBlockSize
)

// ArchiveInfo describes an uploaded archive.
type ArchiveInfo struct {
	Name         string
	Codec        Codec
	BlockSize    int
	Blocks       int
	PayloadBytes int64
	StoredBytes  int64
	Checksum     uint32 // CRC32-C of the payload
}

type archiveOptions struct {
	codec       Codec
	blockSize   int
	concurrency int
	ioLimit     int64
}

// ArchiveOption configures Archive.
type ArchiveOption func(*archiveOptions)

// WithCodec sets the block compression. Default: CodecLZ4.
func WithCodec(c Codec) ArchiveOption {
	return func(o *archiveOptions) {
		o.codec = c
	}
}

// WithBlockSize sets the uncompressed block size. Default: 1 MiB.
func WithBlockSize(n int) ArchiveOption {
	return func(o *archiveOptions) {
		o.blockSize = n
	}
}

// WithConcurrency sets how many blocks are compressed in parallel.
// Default: GOMAXPROCS.
func WithConcurrency(n int) ArchiveOption {
	return func(o *archiveOptions) {
		o.concurrency = n
	}
}

// WithIOLimit caps the upload throughput in bytes per second. Zero means unlimited.
func WithIOLimit(bytesPerSec int64) ArchiveOption {
	return func(o *archiveOptions) {
		o.ioLimit = bytesPerSec
	}
}

func (o archiveOptions) validate() error {
	if !o.codec.Valid() {
		return fmt.Errorf("%w: %s", compress.ErrUnknownCodec, o.codec)
	}
	if o.blockSize <= 0 || o.blockSize > MaxArchiveBlockSize {
		return fmt.Errorf("block size %d outside (0, %d]", o.blockSize, MaxArchiveBlockSize)
	}
	return nil
}

type archiveHeader struct {
	codec     Codec
	blockSize uint32
	length    uint64
	checksum  uint32
}

func (h archiveHeader) marshal() []byte {
	buf := make([]byte, archiveHeaderSize)
	copy(buf, archiveMagic)
	binary.LittleEndian.PutUint16(buf[8:], archiveVersion)
	buf[10] = byte(h.codec)
	binary.LittleEndian.PutUint32(buf[12:], h.blockSize)
	binary.LittleEndian.PutUint64(buf[16:], h.length)
	binary.LittleEndian.PutUint32(buf[24:], h.checksum)
	return buf
}

func parseArchiveHeader(buf []byte) (archiveHeader, error) {
	if string(buf[:8]) != archiveMagic {
		return archiveHeader{}, errors.New("bad magic")
	}
	if v := binary.LittleEndian.Uint16(buf[8:]); v != archiveVersion {
		return archiveHeader{}, fmt.Errorf("unsupported version %d", v)
	}
	h := archiveHeader{
		codec:     Codec(buf[10]),
		blockSize: binary.LittleEndian.Uint32(buf[12:]),
		length:    binary.LittleEndian.Uint64(buf[16:]),
		checksum:  binary.LittleEndian.Uint32(buf[24:]),
	}
	if !h.codec.Valid() {
		return archiveHeader{}, fmt.Errorf("%w: %s", compress.ErrUnknownCodec, h.codec)
	}
	if h.blockSize == 0 || h.blockSize > MaxArchiveBlockSize {
		return archiveHeader{}, fmt.Errorf("block size %d out of range", h.blockSize)
	}
	return h, nil
}

// Archive uploads the committed payload to bs under name.
//
// Only bytes up to DurablePointer are archived. Blocks are compressed in
// parallel and written in order. The store must not be written while
// Archive runs. A failed upload is aborted and leaves no blob behind.
func (s *Store) Archive(ctx context.Context, bs blobstore.BlobStore, name string, optFns ...ArchiveOption) (ArchiveInfo, error) {
	if err := s.check("archive"); err != nil {
		return ArchiveInfo{}, err
	}

	o := archiveOptions{
		codec:       CodecLZ4,
		blockSize:   DefaultArchiveBlockSize,
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, fn := range optFns {
		fn(&o)
	}

	info := ArchiveInfo{Name: name, Codec: o.codec, BlockSize: o.blockSize}
	if err := o.validate(); err != nil {
		return info, fmt.Errorf("mmaplog: archive %s: %w", name, err)
	}

	payload := s.region.Bytes()[HeaderSize:s.durable]
	info.PayloadBytes = int64(len(payload))
	info.Checksum = hash.CRC32C(payload)

	stored, blocks, err := s.upload(ctx, bs, name, payload, info, o)
	info.StoredBytes = stored
	info.Blocks = blocks
	if err != nil {
		err = fmt.Errorf("mmaplog: archive %s: %w", name, err)
	}
	s.logger.LogArchive(ctx, info, err)
	return info, err
}

func (s *Store) upload(ctx context.Context, bs blobstore.BlobStore, name string, payload []byte, info ArchiveInfo, o archiveOptions) (int64, int, error) {
	w, err := bs.Create(ctx, name)
	if err != nil {
		return 0, 0, err
	}

	rc := resource.NewController(resource.Config{
		MaxWorkers:         int64(o.concurrency),
		IOLimitBytesPerSec: o.ioLimit,
	})
	cw := &countingWriter{w: resource.NewRateLimitedWriter(ctx, w, rc)}

	blocks, err := writeArchive(ctx, cw, rc, payload, info)
	if err == nil {
		return cw.n, blocks, w.Close()
	}

	if aerr := w.Abort(context.WithoutCancel(ctx)); aerr != nil {
		s.logger.Warn("aborting archive upload", "blob", name, "error", aerr)
	}
	return cw.n, blocks, err
}

// writeArchive compresses payload in windows of MaxWorkers blocks and writes
// the frames to w in order.
func writeArchive(ctx context.Context, w io.Writer, rc *resource.Controller, payload []byte, info ArchiveInfo) (int, error) {
	blockSize, err := conv.IntToUint32(info.BlockSize)
	if err != nil {
		return 0, err
	}
	hdr := archiveHeader{
		codec:     info.Codec,
		blockSize: blockSize,
		length:    uint64(len(payload)),
		checksum:  info.Checksum,
	}
	if _, err := w.Write(hdr.marshal()); err != nil {
		return 0, err
	}

	window := int(rc.MaxWorkers())
	frames := make([][]byte, window)
	written := 0

	for off := 0; off < len(payload); {
		g, gctx := errgroup.WithContext(ctx)
		n := 0
		for ; n < window && off < len(payload); n++ {
			end := min(off+info.BlockSize, len(payload))
			block := payload[off:end]
			slot := n
			off = end

			if err := rc.AcquireWorker(gctx); err != nil {
				// A failed block cancels gctx; report its error, not the cancellation.
				if werr := g.Wait(); werr != nil {
					return written, werr
				}
				return written, err
			}
			g.Go(func() error {
				defer rc.ReleaseWorker()
				frame, err := compress.EncodeBlock(block, info.Codec)
				frames[slot] = frame
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return written, err
		}

		for i := range n {
			if _, err := w.Write(frames[i]); err != nil {
				return written, err
			}
			frames[i] = nil
			written++
		}
	}
	return written, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Restore rebuilds a store at path from the archive blob name.
//
// path must be absent or empty; anything else fails with ErrRestoreTarget.
// The archive is verified against its length and checksum before the final
// commit. On failure the partially restored file is removed.
func Restore(ctx context.Context, bs blobstore.BlobStore, name, path string, optFns ...Option) (*Store, error) {
	o := applyOptions(optFns)
	logger := o.logger.WithPath(path)

	s, payload, err := restore(ctx, bs, name, path, o)
	logger.LogRestore(ctx, name, payload, err)
	return s, err
}

func restore(ctx context.Context, bs blobstore.BlobStore, name, path string, o options) (*Store, int64, error) {
	if info, err := o.fs.Stat(path); err == nil && info.Size() > 0 {
		return nil, 0, newError("restore", path, ErrRestoreTarget, nil)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, 0, newError("restore", path, openKind(err, ErrMetadata), err)
	}

	blob, err := bs.Open(ctx, name)
	if err != nil {
		return nil, 0, fmt.Errorf("mmaplog: restore %s: %w", name, err)
	}
	defer blob.Close()

	invalid := func(err error) error {
		return newError("restore", name, ErrInvalidArchive, err)
	}

	if blob.Size() < archiveHeaderSize {
		return nil, 0, invalid(fmt.Errorf("blob of %d bytes is shorter than the header", blob.Size()))
	}
	rc, err := blob.ReadRange(ctx, 0, blob.Size())
	if err != nil {
		return nil, 0, fmt.Errorf("mmaplog: restore %s: %w", name, err)
	}
	defer rc.Close()
	r := bufio.NewReader(rc)

	buf := make([]byte, archiveHeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, 0, invalid(err)
	}
	hdr, err := parseArchiveHeader(buf)
	if err != nil {
		return nil, 0, invalid(err)
	}
	if _, err := conv.Uint64ToInt(hdr.length); err != nil {
		return nil, 0, invalid(err)
	}
	// Every block needs at least a frame header, so the blob size bounds the
	// payload it can carry.
	frames := uint64(blob.Size()-archiveHeaderSize) / compress.HeaderSize
	if blocks := (hdr.length + uint64(hdr.blockSize) - 1) / uint64(hdr.blockSize); blocks > frames {
		return nil, 0, invalid(fmt.Errorf("declared length %d needs %d blocks, blob holds at most %d", hdr.length, blocks, frames))
	}

	s, err := openStore(path, o)
	if err != nil {
		return nil, 0, err
	}
	fail := func(err error) (*Store, int64, error) {
		s.discard()
		if rerr := o.fs.Remove(path); rerr != nil {
			o.logger.Warn("removing partially restored store", "path", path, "error", rerr)
		}
		return nil, 0, err
	}

	if s.WritePointer() != HeaderSize {
		// Someone else filled the file since the check above. Keep their data.
		_ = s.Close()
		return nil, 0, newError("restore", path, ErrRestoreTarget, nil)
	}

	crc := hash.NewCRC32C()
	var total uint64
	for {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		block, err := compress.ReadBlock(r, hdr.codec, int(hdr.blockSize))
		if err == io.EOF {
			break
		}
		if err != nil {
			return fail(invalid(err))
		}
		total += uint64(len(block))
		if total > hdr.length {
			return fail(invalid(fmt.Errorf("payload exceeds declared length %d", hdr.length)))
		}
		_, _ = crc.Write(block)
		if err := s.append(block); err != nil {
			return fail(err)
		}
	}

	if total != hdr.length {
		return fail(invalid(fmt.Errorf("payload of %d bytes, want %d", total, hdr.length)))
	}
	if err := hash.Verify(crc, hdr.checksum); err != nil {
		return fail(invalid(err))
	}
	if err := s.commit(); err != nil {
		return fail(err)
	}
	return s, int64(total), nil
}
