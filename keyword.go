package ragfile

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// keywordMetaSize is start:u64 + end:u64 + alignment:u8.
	keywordMetaSize = 8 + 8 + 1

	recordDelimiter = '-'
)

// KeywordRecord is one keyword-content pair.
type KeywordRecord struct {
	Keyword string `json:"keyword"`
	Content string `json:"content"`
}

func validateAlignment(alignment int) error {
	switch alignment {
	case 4, 8, 16:
		return nil
	default:
		return invalidArg("alignment", alignment, "must be 4, 8 or 16")
	}
}

// padLen returns the number of zero bytes appended to a record body of n bytes.
// The result is in [1, alignment], so every record keeps a 0x00 terminator.
func padLen(n, alignment int) int {
	return alignment - n%alignment
}

// PaddedLen returns the on-disk size of a record body of n bytes. A body that
// is already a multiple of alignment gets a full block of zeros.
func PaddedLen(n, alignment int) int {
	return n + padLen(n, alignment)
}

func validateKeywordRecords(records []KeywordRecord) error {
	for i, rec := range records {
		switch {
		case strings.IndexByte(rec.Keyword, recordDelimiter) >= 0:
			return invalidArg("keyword", rec.Keyword, fmt.Sprintf("record %d: keyword contains '-'", i))
		case strings.IndexByte(rec.Keyword, 0) >= 0:
			return invalidArg("keyword", rec.Keyword, fmt.Sprintf("record %d: keyword contains NUL", i))
		case strings.IndexByte(rec.Content, 0) >= 0:
			return invalidArg("content", rec.Content, fmt.Sprintf("record %d: content contains NUL", i))
		case !utf8.ValidString(rec.Keyword) || !utf8.ValidString(rec.Content):
			return invalidArg("record", i, "not valid UTF-8")
		}
	}
	return nil
}

// appendKeywordRecord appends keyword + '-' + content and its zero padding.
func appendKeywordRecord(dst []byte, rec KeywordRecord, alignment int) []byte {
	n := len(rec.Keyword) + 1 + len(rec.Content)
	dst = append(dst, rec.Keyword...)
	dst = append(dst, recordDelimiter)
	dst = append(dst, rec.Content...)
	return appendZeros(dst, padLen(n, alignment))
}

func appendZeros(dst []byte, n int) []byte {
	for range n {
		dst = append(dst, 0)
	}
	return dst
}

// scanKeywordRecords walks the records of a keyword data region. base is the
// absolute offset of data[0] and is only used for error reporting. fn gets
// slices into data; they must be copied to be retained.
func scanKeywordRecords(data []byte, base int64, alignment int, fn func(keyword, content []byte)) error {
	for pos := 0; pos < len(data); {
		if data[pos] == 0 {
			return formatErrorf(base+int64(pos), "record starts with NUL")
		}
		n := bytes.IndexByte(data[pos:], 0)
		next := 0
		if n < 0 {
			// Unterminated tail: the record runs to the end of the region.
			n = len(data) - pos
			next = len(data)
		} else {
			next = pos + PaddedLen(n, alignment)
		}

		body := data[pos : pos+n]
		sep := bytes.IndexByte(body, recordDelimiter)
		if sep < 0 {
			return formatErrorf(base+int64(pos), "record has no '-' delimiter")
		}
		fn(body[:sep], body[sep+1:])

		if next > len(data) {
			next = len(data)
		}
		pos = next
	}
	return nil
}
