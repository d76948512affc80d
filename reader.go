package ragfile

import (
	"context"
	"encoding/hex"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/ragfile/blobstore"
	"github.com/hupe1980/ragfile/distance"
)

// SectionInfo describes a section as recorded in its metadata block.
type SectionInfo struct {
	Name      string
	Start     uint64
	End       uint64
	Alignment int
	// Precision is the vector precision in bits; zero for keyword sections.
	Precision int
}

// VectorHit is one result of SearchVector.
type VectorHit struct {
	Content  string
	Vector   []float32
	Distance float32
}

// Reader looks up records in a finalized container.
//
// The header and index are parsed on open and cached. Each lookup maps the
// file on its own, so a Reader is safe for concurrent use and holds no file
// descriptor between calls.
type Reader struct {
	src    source
	opts   options
	logger *Logger

	mu      sync.RWMutex
	header  Header
	entries []IndexEntry
}

// Open opens the container at path and parses its index.
func Open(path string, optFns ...Option) (*Reader, error) {
	o := applyOptions(optFns)
	logger := o.logger.WithPath(path)

	src, err := newFileSource(path)
	if err != nil {
		logger.LogOpen(path, 0, err)
		return nil, err
	}
	return newReader(context.Background(), src, o, logger)
}

// OpenBlob opens the container stored as name in store. The blob stays open
// until Close.
func OpenBlob(ctx context.Context, store blobstore.BlobStore, name string, optFns ...Option) (*Reader, error) {
	o := applyOptions(optFns)
	logger := o.logger.WithPath(name)

	blob, err := store.Open(ctx, name)
	if err != nil {
		err = wrapIO("open "+name, err)
		logger.LogOpen(name, 0, err)
		return nil, err
	}
	r, err := newReader(ctx, &blobSource{name: name, blob: blob}, o, logger)
	if err != nil {
		_ = blob.Close()
		return nil, err
	}
	return r, nil
}

func newReader(ctx context.Context, src source, o options, logger *Logger) (*Reader, error) {
	r := &Reader{src: src, opts: o, logger: logger}
	err := r.parseIndex(ctx)
	logger.LogOpen(src.String(), len(r.entries), err)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Close releases the underlying storage.
func (r *Reader) Close() error {
	return r.src.close()
}

// Size returns the container size in bytes.
func (r *Reader) Size() int64 {
	return r.src.size()
}

// Header returns the decoded header.
func (r *Reader) Header() Header {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.header
}

// ParseIndex re-reads the header and index table and replaces the cached
// index. Parsing the same file twice yields the same index.
func (r *Reader) ParseIndex(ctx context.Context) error {
	return r.parseIndex(ctx)
}

func (r *Reader) parseIndex(ctx context.Context) error {
	size := r.src.size()
	if size < IndexTableOffset {
		if size >= HeaderSize {
			// Report a bad magic before the short table.
			if err := r.src.view(ctx, 0, HeaderSize, func(b []byte) error {
				_, err := DecodeHeader(b)
				return err
			}); err != nil {
				return err
			}
		}
		return formatErrorf(0, "file is %d bytes, shorter than header and index length", size)
	}

	var (
		header   Header
		tableLen int64
	)
	err := r.src.view(ctx, 0, IndexTableOffset, func(b []byte) error {
		h, err := DecodeHeader(b)
		if err != nil {
			return err
		}
		header = h
		tableLen = int64(h.ByteOrder().Uint32(b[HeaderSize:]))
		return nil
	})
	if err != nil {
		return err
	}
	if tableLen > size-IndexTableOffset {
		return formatErrorf(HeaderSize, "index table length %d exceeds file size %d", tableLen, size)
	}

	var entries []IndexEntry
	err = r.src.view(ctx, HeaderSize, indexLenSize+tableLen, func(b []byte) error {
		var err error
		entries, _, err = DecodeIndexTable(b, header.ByteOrder())
		return err
	})
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.End > uint64(size) {
			return formatErrorf(-1, "section %q extent (%d,%d) exceeds file size %d", e.Name, e.Start, e.End, size)
		}
		if _, dup := seen[e.Name]; dup {
			return formatErrorf(-1, "duplicate section %q in index", e.Name)
		}
		seen[e.Name] = struct{}{}
	}

	r.mu.Lock()
	r.header = header
	r.entries = entries
	r.mu.Unlock()
	return nil
}

// Index returns the cached index entries in file order.
func (r *Reader) Index() []IndexEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.entries)
}

// Lookup returns the index entry for a section name.
func (r *Reader) Lookup(name string) (IndexEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.Name == name {
			return e, true
		}
	}
	return IndexEntry{}, false
}

// Sections decodes the metadata block of every indexed section. Sections
// with names this package does not know are reported without metadata.
func (r *Reader) Sections(ctx context.Context) ([]SectionInfo, error) {
	entries := r.Index()
	infos := make([]SectionInfo, 0, len(entries))
	for _, e := range entries {
		info, err := r.sectionInfo(ctx, e)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// sectionInfo reads the metadata block that precedes the data region of e
// and checks it against the index.
func (r *Reader) sectionInfo(ctx context.Context, e IndexEntry) (SectionInfo, error) {
	info := SectionInfo{Name: e.Name, Start: e.Start, End: e.End}

	var metaSize int64
	switch e.Name {
	case SectionKeyword:
		metaSize = keywordMetaSize
	case SectionVector:
		metaSize = embeddingMetaSize
	default:
		return info, nil
	}
	if e.Start < uint64(IndexTableOffset+metaSize) {
		return info, formatErrorf(int64(e.Start), "no room for %s section metadata", e.Name)
	}

	order := r.Header().ByteOrder()
	metaOff := int64(e.Start) - metaSize
	err := r.src.view(ctx, metaOff, metaSize, func(b []byte) error {
		if e.Name == SectionVector {
			info.Precision = int(b[0])
			b = b[1:]
		}
		start := order.Uint64(b)
		end := order.Uint64(b[8:])
		info.Alignment = int(b[16])
		if start != e.Start || end != e.End {
			return formatErrorf(metaOff, "%s metadata extent (%d,%d) disagrees with index (%d,%d)",
				e.Name, start, end, e.Start, e.End)
		}
		return nil
	})
	if err != nil {
		return info, err
	}
	if validateAlignment(info.Alignment) != nil {
		return info, formatErrorf(metaOff, "%s section alignment %d", e.Name, info.Alignment)
	}
	if e.Name == SectionVector && validatePrecision(info.Precision) != nil {
		return info, formatErrorf(metaOff, "vector section precision %d", info.Precision)
	}
	return info, nil
}

// section resolves name and its metadata. ok is false when the file has no
// such section.
func (r *Reader) section(ctx context.Context, name string) (info SectionInfo, ok bool, err error) {
	e, found := r.Lookup(name)
	if !found {
		return SectionInfo{}, false, nil
	}
	info, err = r.sectionInfo(ctx, e)
	if err != nil {
		return SectionInfo{}, false, err
	}
	return info, true, nil
}

// SearchKeyword returns every record whose keyword equals query byte for
// byte, in write order. A file without a keyword section yields no results.
func (r *Reader) SearchKeyword(ctx context.Context, query string) ([]KeywordRecord, error) {
	return r.keywords(ctx, func(keyword []byte) bool { return string(keyword) == query })
}

// Keywords decodes the whole keyword section.
func (r *Reader) Keywords(ctx context.Context) ([]KeywordRecord, error) {
	return r.keywords(ctx, func([]byte) bool { return true })
}

func (r *Reader) keywords(ctx context.Context, match func([]byte) bool) ([]KeywordRecord, error) {
	start := time.Now()
	var (
		results []KeywordRecord
		scanned uint64
	)
	info, ok, err := r.section(ctx, SectionKeyword)
	if err == nil && ok {
		scanned = info.End - info.Start
		err = r.src.view(ctx, int64(info.Start), int64(scanned), func(data []byte) error {
			return scanKeywordRecords(data, int64(info.Start), info.Alignment, func(keyword, content []byte) {
				if match(keyword) {
					results = append(results, KeywordRecord{Keyword: string(keyword), Content: string(content)})
				}
			})
		})
	}
	r.recordSearch(SectionKeyword, len(results), scanned, start, err)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Embeddings decodes the whole embedding section for vectors of dimension
// dim. The format does not store the dimension, so the caller supplies it.
func (r *Reader) Embeddings(ctx context.Context, dim int) ([]EmbeddingRecord, error) {
	if dim <= 0 {
		return nil, invalidArg("dim", dim, "must be positive")
	}
	var results []EmbeddingRecord
	err := r.scanEmbeddings(ctx, dim, func(h Header, precision int, vec, content []byte) {
		v := make([]float32, dim)
		decodeVector(v, vec, precision, h.ByteOrder())
		results = append(results, EmbeddingRecord{Vector: v, Content: string(content)})
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// SearchVector returns the k records closest to query under metric, closest
// first. Ties keep write order. The dimension is taken from len(query).
func (r *Reader) SearchVector(ctx context.Context, query []float32, k int, metric distance.Metric) ([]VectorHit, error) {
	if len(query) == 0 {
		return nil, invalidArg("query", len(query), "empty query vector")
	}
	if k <= 0 {
		return nil, invalidArg("k", k, "must be positive")
	}
	dist, err := distance.Provider(metric)
	if err != nil {
		return nil, invalidArg("metric", metric, err.Error())
	}

	hits := make([]VectorHit, 0, k+1)
	v := make([]float32, len(query))
	err = r.scanEmbeddings(ctx, len(query), func(h Header, precision int, vec, content []byte) {
		decodeVector(v, vec, precision, h.ByteOrder())
		d := dist(query, v)
		if len(hits) == k && d >= hits[k-1].Distance {
			return
		}
		hit := VectorHit{Content: string(content), Vector: slices.Clone(v), Distance: d}
		i, _ := slices.BinarySearchFunc(hits, d, func(h VectorHit, d float32) int {
			if h.Distance <= d {
				return -1
			}
			return 1
		})
		hits = slices.Insert(hits, i, hit)
		if len(hits) > k {
			hits = hits[:k]
		}
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}

func (r *Reader) scanEmbeddings(ctx context.Context, dim int, fn func(h Header, precision int, vec, content []byte)) error {
	start := time.Now()
	var (
		count   int
		scanned uint64
	)
	info, ok, err := r.section(ctx, SectionVector)
	if err == nil && ok {
		h := r.Header()
		scanned = info.End - info.Start
		err = r.src.view(ctx, int64(info.Start), int64(scanned), func(data []byte) error {
			return scanEmbeddingRecords(data, int64(info.Start), info.Alignment, info.Precision, dim, func(vec, content []byte) {
				count++
				fn(h, info.Precision, vec, content)
			})
		})
	}
	r.recordSearch(SectionVector, count, scanned, start, err)
	return err
}

func (r *Reader) recordSearch(section string, results int, scanned uint64, start time.Time, err error) {
	r.logger.LogSearch(section, results, scanned, err)
	r.opts.metricsCollector.RecordSearch(section, results, scanned, time.Since(start), err)
}

// Hexdump returns a hex dump of the first n bytes of the file. n <= 0 dumps
// the whole file.
func (r *Reader) Hexdump(ctx context.Context, n int) (string, error) {
	size := r.src.size()
	if n > 0 && int64(n) < size {
		size = int64(n)
	}
	var out string
	err := r.src.view(ctx, 0, size, func(b []byte) error {
		out = hex.Dump(b)
		return nil
	})
	return out, err
}

