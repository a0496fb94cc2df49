// Package minio provides a BlobStore implementation using the MinIO client.
//
// MinIO is a high-performance, S3-compatible object storage system. This package
// uses the official MinIO Go client library and works with other S3-compatible
// systems like Ceph, SeaweedFS, and Garage.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "my-bucket", "archives/")
//	info, err := log.Archive(ctx, store, "orders-0001.arc")
//
// # Features
//
//   - Streaming uploads for large archives
//   - Aborted uploads clean up their incomplete multipart parts
//   - Air-gap friendly (no AWS dependencies required)
package minio
