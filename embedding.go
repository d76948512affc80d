package ragfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/hupe1980/ragfile/internal/f16"
)

// embeddingMetaSize is precision:u8 + start:u64 + end:u64 + alignment:u8.
const embeddingMetaSize = 1 + 8 + 8 + 1

// Supported vector precisions in bits.
const (
	Precision16 = 16
	Precision32 = 32
)

// EmbeddingRecord is one vector-content pair.
type EmbeddingRecord struct {
	Vector  []float32 `json:"vector"`
	Content string    `json:"content"`
}

func validatePrecision(precision int) error {
	if precision != Precision16 && precision != Precision32 {
		return invalidArg("precision", precision, "must be 16 or 32")
	}
	return nil
}

// vectorWidth returns the encoded size of a dim-element vector.
func vectorWidth(dim, precision int) int {
	return dim * precision / 8
}

func validateEmbeddingRecords(records []EmbeddingRecord) error {
	dim := -1
	for i, rec := range records {
		if len(rec.Vector) == 0 {
			return invalidArg("vector", i, "empty vector")
		}
		if dim >= 0 && len(rec.Vector) != dim {
			return invalidArg("vector", len(rec.Vector), fmt.Sprintf("record %d: dimension differs from %d", i, dim))
		}
		dim = len(rec.Vector)
		if strings.IndexByte(rec.Content, 0) >= 0 {
			return invalidArg("content", rec.Content, fmt.Sprintf("record %d: content contains NUL", i))
		}
		if !utf8.ValidString(rec.Content) {
			return invalidArg("content", i, "not valid UTF-8")
		}
	}
	return nil
}

// appendVector encodes v at the requested precision.
func appendVector(dst []byte, v []float32, precision int, order binary.ByteOrder) []byte {
	if precision == Precision16 {
		return f16.AppendVector(dst, v, order)
	}
	var b [4]byte
	for _, x := range v {
		order.PutUint32(b[:], math.Float32bits(x))
		dst = append(dst, b[:]...)
	}
	return dst
}

func decodeVector(dst []float32, src []byte, precision int, order binary.ByteOrder) {
	if precision == Precision16 {
		f16.DecodeVector(dst, src, order)
		return
	}
	for i := range dst {
		dst[i] = math.Float32frombits(order.Uint32(src[i*4:]))
	}
}

// appendEmbeddingRecord appends vector_bytes + '-' + content and its padding.
func appendEmbeddingRecord(dst []byte, rec EmbeddingRecord, alignment, precision int, order binary.ByteOrder) []byte {
	n := vectorWidth(len(rec.Vector), precision) + 1 + len(rec.Content)
	dst = appendVector(dst, rec.Vector, precision, order)
	dst = append(dst, recordDelimiter)
	dst = append(dst, rec.Content...)
	return appendZeros(dst, padLen(n, alignment))
}

// scanEmbeddingRecords walks an embedding data region whose vectors have dim
// elements. The vector is located by width, never by searching for the
// delimiter, since raw float bytes may contain '-' or NUL.
func scanEmbeddingRecords(data []byte, base int64, alignment, precision, dim int, fn func(vec, content []byte)) error {
	width := vectorWidth(dim, precision)
	for pos := 0; pos < len(data); {
		if len(data)-pos < width+1 {
			return formatErrorf(base+int64(pos), "embedding record truncated")
		}
		if data[pos+width] != recordDelimiter {
			return formatErrorf(base+int64(pos+width), "expected '-' after %d vector bytes", width)
		}

		rest := data[pos+width+1:]
		n := bytes.IndexByte(rest, 0)
		next := 0
		if n < 0 {
			n = len(rest)
			next = len(data)
		} else {
			next = pos + PaddedLen(width+1+n, alignment)
		}
		fn(data[pos:pos+width], rest[:n])

		if next > len(data) {
			next = len(data)
		}
		pos = next
	}
	return nil
}
