// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("archives/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	info, err := log.Archive(ctx, store, "orders-0001.arc")
//
// # Features
//
//   - Range reads for efficient partial fetches
//   - Multipart uploads for large archives
//   - CRC32C checksums on single-request uploads
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
