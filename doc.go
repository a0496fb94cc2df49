// Package mmaplog provides a persistent append-only log backed by a
// memory-mapped file.
//
// Records are copied into a shared mapping of the backing file. The first
// HeaderSize bytes of the file hold the write pointer, a little-endian uint64
// that marks the end of committed payload. Every Write extends the file and
// the mapping when needed, copies the record, and commits it with msync(2).
//
// # Quick Start
//
//	log, err := mmaplog.Open("./orders.log")
//	if err != nil {
//	    return err
//	}
//	defer log.Close()
//
//	if err := log.Write([]byte("hello")); err != nil {
//	    return err
//	}
//
// Reopening the file recovers the write pointer from the header:
//
//	log, _ = mmaplog.Open("./orders.log")
//	fmt.Println(log.WritePointer()) // 13 (HeaderSize + 5)
//
// # Growth
//
// The file and the mapping grow together, by exactly the missing bytes rounded
// up to whole pages. On Linux the mapping is extended with mremap(2); other
// unix platforms unmap and map again. See RemapStrategy.
//
// # Durability Model
//
// A Write returns after its commit. If the commit fails with ErrSyncFailed the
// record stays in the mapping and the in-memory write pointer stays advanced,
// but DurablePointer keeps the last committed value. Commit can be retried
// and always publishes the current write pointer.
//
// # Archives
//
// Archive uploads the committed payload to a blobstore.BlobStore as a
// sequence of compressed blocks. Restore rebuilds a fresh store from such a
// blob:
//
//	store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("archives/"))
//	info, err := log.Archive(ctx, store, "orders-0001.arc", mmaplog.WithCodec(mmaplog.CodecZSTD))
//	restored, err := mmaplog.Restore(ctx, store, "orders-0001.arc", "./orders-restored.log")
//
// # Concurrency
//
// A Store is not safe for concurrent use. Callers serialize access.
package mmaplog
