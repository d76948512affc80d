package ragfile

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hupe1980/ragfile/blobstore"
)

type writerState int

const (
	stateEmpty writerState = iota
	stateHeaderWritten
	stateSectionsWritten
	stateFinalized
)

func (s writerState) String() string {
	switch s {
	case stateEmpty:
		return "empty"
	case stateHeaderWritten:
		return "header written"
	case stateSectionsWritten:
		return "sections written"
	case stateFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Writer builds a container in memory and writes it out in one piece.
//
// Section bytes are accumulated in a body whose offsets are relative to the
// start of the body. Finalization sizes the index table, moves the body
// behind it and rebases every recorded offset, so no byte that was already
// emitted is ever overwritten by the table.
//
// A Writer is not safe for concurrent use.
type Writer struct {
	path    string
	opts    options
	logger  *Logger
	state   writerState
	header  Header
	body    []byte
	fixups  []int
	entries []IndexEntry
	image   []byte
}

// NewWriter returns a Writer that finalizes to path. path may be empty when
// the container is only published with FinalizeTo or read back with Build.
func NewWriter(path string, optFns ...Option) *Writer {
	o := applyOptions(optFns)
	logger := o.logger
	if path != "" {
		logger = logger.WithPath(path)
	}
	return &Writer{
		path:   path,
		opts:   o,
		logger: logger,
	}
}

// WriteHeader stamps the file prologue. It must be the first call.
func (w *Writer) WriteHeader(major, minor, patch uint8) error {
	if w.state != stateEmpty {
		return w.stateError("write header")
	}
	w.header = Header{
		Version:    Version{Major: major, Minor: minor, Patch: patch},
		Endianness: endiannessFlag(w.opts.byteOrder),
	}
	w.state = stateHeaderWritten
	return nil
}

// WriteKeywordSection appends the keyword section and registers it in the
// index under SectionKeyword. Records are stored in the given order.
func (w *Writer) WriteKeywordSection(records []KeywordRecord, alignment int) error {
	before := len(w.body)
	err := w.writeKeywordSection(records, alignment)
	w.logger.LogSection(SectionKeyword, len(records), len(w.body)-before, err)
	w.opts.metricsCollector.RecordSection(SectionKeyword, len(records), len(w.body)-before, err)
	return err
}

func (w *Writer) writeKeywordSection(records []KeywordRecord, alignment int) error {
	if err := w.checkSection(SectionKeyword); err != nil {
		return err
	}
	if err := validateAlignment(alignment); err != nil {
		return err
	}
	if err := validateKeywordRecords(records); err != nil {
		return err
	}

	meta := w.appendOffsetFields()
	w.body = append(w.body, uint8(alignment))

	start := len(w.body)
	for _, rec := range records {
		w.body = appendKeywordRecord(w.body, rec, alignment)
	}
	w.closeSection(SectionKeyword, meta, start)
	return nil
}

// WriteEmbeddingSection appends the embedding section and registers it in the
// index under SectionVector. All vectors must share one dimension.
func (w *Writer) WriteEmbeddingSection(records []EmbeddingRecord, alignment, precision int) error {
	before := len(w.body)
	err := w.writeEmbeddingSection(records, alignment, precision)
	w.logger.LogSection(SectionVector, len(records), len(w.body)-before, err)
	w.opts.metricsCollector.RecordSection(SectionVector, len(records), len(w.body)-before, err)
	return err
}

func (w *Writer) writeEmbeddingSection(records []EmbeddingRecord, alignment, precision int) error {
	if err := w.checkSection(SectionVector); err != nil {
		return err
	}
	if err := validatePrecision(precision); err != nil {
		return err
	}
	if err := validateAlignment(alignment); err != nil {
		return err
	}
	if err := validateEmbeddingRecords(records); err != nil {
		return err
	}

	w.body = append(w.body, uint8(precision))
	meta := w.appendOffsetFields()
	w.body = append(w.body, uint8(alignment))

	start := len(w.body)
	for _, rec := range records {
		w.body = appendEmbeddingRecord(w.body, rec, alignment, precision, w.opts.byteOrder)
	}
	w.closeSection(SectionVector, meta, start)
	return nil
}

func (w *Writer) checkSection(name string) error {
	if w.state != stateHeaderWritten && w.state != stateSectionsWritten {
		return w.stateError("write " + name + " section")
	}
	for _, e := range w.entries {
		if e.Name == name {
			return invalidArg("section", name, "already written")
		}
	}
	return nil
}

// appendOffsetFields reserves the start and end fields of a metadata block
// and returns the body position of the first one.
func (w *Writer) appendOffsetFields() int {
	pos := len(w.body)
	w.body = appendZeros(w.body, 16)
	w.fixups = append(w.fixups, pos, pos+8)
	return pos
}

// closeSection fills in the body-relative extent and registers the section.
func (w *Writer) closeSection(name string, meta, start int) {
	end := len(w.body)
	w.opts.byteOrder.PutUint64(w.body[meta:], uint64(start))
	w.opts.byteOrder.PutUint64(w.body[meta+8:], uint64(end))
	w.entries = append(w.entries, IndexEntry{Name: name, Start: uint64(start), End: uint64(end)})
	w.state = stateSectionsWritten
}

// Build places the index and returns the finished container image. After
// Build no further sections can be written.
func (w *Writer) Build() ([]byte, error) {
	image, err := w.build()
	if err != nil {
		return nil, err
	}
	w.seal(image)
	return image, nil
}

func (w *Writer) seal(image []byte) {
	w.image = image
	w.state = stateFinalized
}

func (w *Writer) build() ([]byte, error) {
	if w.state != stateHeaderWritten && w.state != stateSectionsWritten {
		return nil, w.stateError("build")
	}

	// The table holds absolute offsets, so its own length shifts the values
	// it encodes. Digit counts only grow with the shift, so this converges.
	tableLen := indexEntriesLen(w.entries, 0)
	for {
		n := indexEntriesLen(w.entries, uint64(IndexTableOffset+tableLen))
		if n == tableLen {
			break
		}
		tableLen = n
	}
	base := uint64(IndexTableOffset + tableLen)

	entries := make([]IndexEntry, len(w.entries))
	for i, e := range w.entries {
		entries[i] = IndexEntry{Name: e.Name, Start: e.Start + base, End: e.End + base}
	}

	order := w.header.ByteOrder()
	image := make([]byte, 0, int(base)+len(w.body))
	image = appendHeader(image, w.header)
	image = append(image, EncodeIndexTable(entries, order)...)
	if len(image) != int(base) {
		return nil, fmt.Errorf("ragfile: index table is %d bytes, want %d", len(image)-IndexTableOffset, tableLen)
	}
	image = append(image, w.body...)
	for _, pos := range w.fixups {
		field := image[int(base)+pos:]
		order.PutUint64(field, order.Uint64(field)+base)
	}

	return image, nil
}

// Finalize builds the container and writes it to the writer's path through a
// temporary file, an fsync and an atomic rename. A failed write leaves the
// writer open, so Finalize or FinalizeTo can be retried.
func (w *Writer) Finalize() error {
	if w.path == "" {
		return invalidArg("path", w.path, "writer has no destination path")
	}
	return w.finalize(context.Background(), w.path, func(image []byte) error {
		return wrapIO("write "+w.path, blobstore.WriteFileAtomic(w.path, image))
	})
}

// FinalizeTo builds the container and stores it as name in store.
func (w *Writer) FinalizeTo(ctx context.Context, store blobstore.BlobStore, name string) error {
	return w.finalize(ctx, name, func(image []byte) error {
		return wrapIO("put "+name, store.Put(ctx, name, image))
	})
}

func (w *Writer) finalize(ctx context.Context, dest string, write func([]byte) error) error {
	start := time.Now()
	image, err := w.build()
	if err == nil {
		err = write(image)
	}
	if err == nil {
		w.seal(image)
	}
	elapsed := time.Since(start)
	w.logger.LogFinalize(ctx, dest, len(image), elapsed, err)
	w.opts.metricsCollector.RecordFinalize(len(image), elapsed, err)
	return err
}

// Bytes returns the finalized image, or nil before Build or Finalize.
// The returned slice must not be modified.
func (w *Writer) Bytes() []byte {
	return w.image
}

// Hexdump returns a hex dump of the first n bytes of the finalized image, or
// of the header and section bytes written so far. n <= 0 dumps everything.
func (w *Writer) Hexdump(n int) string {
	data := w.image
	if data == nil {
		if w.state == stateEmpty {
			return ""
		}
		data = appendHeader(nil, w.header)
		data = append(data, w.body...)
	}
	if n > 0 && n < len(data) {
		data = data[:n]
	}
	return hex.Dump(data)
}

func (w *Writer) stateError(op string) error {
	return fmt.Errorf("%w: cannot %s in state %q", ErrInvalidState, op, w.state)
}

