package ragfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/ragfile/blobstore"
	"github.com/hupe1980/ragfile/internal/mmap"
)

// source gives a reader scoped access to container bytes. The slice handed
// to fn is only valid for the duration of the call.
type source interface {
	view(ctx context.Context, off, n int64, fn func([]byte) error) error
	size() int64
	close() error
	String() string
}

// fileSource maps the file for each lookup and unmaps it afterwards, so no
// descriptor or mapping is held between calls.
type fileSource struct {
	path string
	n    int64
}

func newFileSource(path string) (*fileSource, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, wrapIO("stat "+path, err)
	}
	if fi.IsDir() {
		return nil, wrapIO("open "+path, errors.New("is a directory"))
	}
	return &fileSource{path: path, n: fi.Size()}, nil
}

func (s *fileSource) view(ctx context.Context, off, n int64, fn func([]byte) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := mmap.Open(s.path)
	if err != nil {
		return wrapIO("map "+s.path, err)
	}
	defer m.Close()

	if off < 0 || n < 0 || off > int64(m.Size()) || n > int64(m.Size())-off {
		return formatErrorf(off, "range of %d bytes exceeds file size %d", n, m.Size())
	}
	r, err := m.Region(int(off), int(n))
	if err != nil {
		return wrapIO("map "+s.path, err)
	}
	_ = r.Advise(mmap.AccessSequential)
	return fn(r.Bytes())
}

func (s *fileSource) size() int64    { return s.n }
func (s *fileSource) close() error   { return nil }
func (s *fileSource) String() string { return s.path }

// blobSource reads from a blobstore.Blob, zero-copy when the blob is Mappable.
type blobSource struct {
	name string
	blob blobstore.Blob
}

func (s *blobSource) view(ctx context.Context, off, n int64, fn func([]byte) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if off < 0 || n < 0 || off > s.blob.Size() || n > s.blob.Size()-off {
		return formatErrorf(off, "range of %d bytes exceeds blob size %d", n, s.blob.Size())
	}
	if n == 0 {
		return fn(nil)
	}

	if m, ok := s.blob.(blobstore.Mappable); ok {
		data, err := m.Bytes()
		if err != nil {
			return wrapIO("map "+s.name, err)
		}
		return fn(data[off : off+n])
	}

	buf := make([]byte, n)
	read, err := s.blob.ReadAt(ctx, buf, off)
	if err != nil && !(errors.Is(err, io.EOF) && int64(read) == n) {
		return wrapIO(fmt.Sprintf("read %s at %d", s.name, off), err)
	}
	return fn(buf)
}

func (s *blobSource) size() int64    { return s.blob.Size() }
func (s *blobSource) close() error   { return s.blob.Close() }
func (s *blobSource) String() string { return s.name }
