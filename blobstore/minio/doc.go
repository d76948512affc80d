// Package minio stores ragfile containers in MinIO or another
// S3-compatible server (Ceph, Garage, SeaweedFS) through the MinIO Go
// client. It needs no AWS SDK.
//
// Dial builds the client from an endpoint and static credentials:
//
//	store, err := minio.Dial("localhost:9000", "minioadmin", "minioadmin", false, "kb", "prod/")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := store.EnsureBucket(ctx); err != nil {
//		log.Fatal(err)
//	}
//
//	err = w.FinalizeTo(ctx, store, "docs.ragfile")
//	r, err := ragfile.OpenBlob(ctx, store, "docs.ragfile")
//
// Use NewStore to wrap a client configured elsewhere.
//
// Every Put records the CRC32C of the container under the
// ChecksumMetadataKey user metadata key. Readers fetch byte ranges on
// demand, so opening a large container does not download it.
package minio
