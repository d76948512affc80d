// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("kb/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	err = w.FinalizeTo(ctx, store, "docs.ragfile")
//	r, err := ragfile.OpenBlob(ctx, store, "docs.ragfile")
//
// # Features
//
//   - Range reads, so a reader fetches the header, index and one section
//   - CRC32C checksums on every upload
//   - Multipart uploads for large containers
//   - Configurable prefix for multi-tenant isolation
//   - Custom endpoints with path-style addressing for S3-compatible services
package s3
