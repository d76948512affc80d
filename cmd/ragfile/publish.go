package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hupe1980/ragfile"
	"github.com/hupe1980/ragfile/blobstore"
	"github.com/hupe1980/ragfile/blobstore/minio"
	"github.com/hupe1980/ragfile/blobstore/s3"
	"github.com/hupe1980/ragfile/internal/cache"
	"github.com/hupe1980/ragfile/internal/config"
)

func runPublish(ctx context.Context, e *env, args []string) error {
	sc := e.cfg.Storage
	fs := e.newFlagSet("publish", "-file <path> [-backend local|s3|minio] [-name <blob>]")
	file := fs.String("file", "", "container path")
	fs.StringVar(&sc.Backend, "backend", sc.Backend, "blob store backend: local, s3 or minio")
	fs.StringVar(&sc.Dir, "dir", sc.Dir, "root directory for the local backend")
	fs.StringVar(&sc.Bucket, "bucket", sc.Bucket, "bucket for s3 and minio")
	fs.StringVar(&sc.Prefix, "prefix", sc.Prefix, "key prefix inside the bucket")
	name := fs.String("name", "", "blob name (default: base name of -file)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		fs.Usage()
		return errors.New("publish needs -file")
	}
	if *name == "" {
		*name = filepath.Base(*file)
	}
	e.cfg.Storage = sc
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	// Refuse to publish something that does not parse.
	src, err := ragfile.Open(*file, e.opts...)
	if err != nil {
		return err
	}
	_ = src.Close()

	store, err := openStore(ctx, sc)
	if err != nil {
		return err
	}
	if err := store.Put(ctx, *name, data); err != nil {
		return fmt.Errorf("publish %s: %w", *name, err)
	}

	// Read back through the store to confirm the published copy.
	r, err := ragfile.OpenBlob(ctx, store, *name, e.opts...)
	if err != nil {
		return err
	}
	defer r.Close()
	sections, err := r.Sections(ctx)
	if err != nil {
		return err
	}

	e.logger.Info("published container", "backend", sc.Backend, "name", *name, "bytes", len(data))
	fmt.Fprintf(e.stdout, "Published %s to %s as %q (%d bytes, %d sections)\n", *file, sc.Backend, *name, len(data), len(sections))
	return nil
}

// openStore builds the configured blob store, wrapped in a block cache when
// cache_bytes is set.
func openStore(ctx context.Context, sc config.StorageConfig) (blobstore.BlobStore, error) {
	var (
		store blobstore.BlobStore
		err   error
	)
	switch sc.Backend {
	case "local":
		store = blobstore.NewLocalStore(sc.Dir)
	case "s3":
		opts := []s3.Option{s3.WithPrefix(sc.Prefix)}
		if sc.Region != "" {
			opts = append(opts, s3.WithRegion(sc.Region))
		}
		if sc.Endpoint != "" {
			opts = append(opts, s3.WithEndpoint(sc.Endpoint))
		}
		store, err = s3.New(ctx, sc.Bucket, opts...)
	case "minio":
		var ms *minio.Store
		ms, err = minio.Dial(sc.Endpoint, sc.AccessKey, sc.SecretKey, sc.Secure, sc.Bucket, sc.Prefix)
		if err == nil {
			err = ms.EnsureBucket(ctx)
		}
		store = ms
	default:
		return nil, fmt.Errorf("unknown backend %q", sc.Backend)
	}
	if err != nil {
		return nil, err
	}

	if sc.CacheBytes > 0 {
		store = blobstore.NewCachingStore(store, cache.NewLRUBlockCache(sc.CacheBytes), 0)
	}
	return store, nil
}
