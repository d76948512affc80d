package ragfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
)

// Section names registered in the index table.
const (
	SectionKeyword = "keyword"
	SectionVector  = "vector"
)

const (
	// indexLenSize is the width of the table length field that follows the header.
	indexLenSize = 4

	// IndexTableOffset is where the first index entry starts.
	IndexTableOffset = HeaderSize + indexLenSize
)

// IndexEntry maps a section name to its absolute data extent [Start, End).
type IndexEntry struct {
	Name  string
	Start uint64
	End   uint64
}

// Len returns the size of the extent in bytes.
func (e IndexEntry) Len() uint64 { return e.End - e.Start }

// appendIndexEntry appends "name-(start,end)\x00".
func appendIndexEntry(dst []byte, e IndexEntry) []byte {
	dst = append(dst, e.Name...)
	dst = append(dst, '-', '(')
	dst = strconv.AppendUint(dst, e.Start, 10)
	dst = append(dst, ',')
	dst = strconv.AppendUint(dst, e.End, 10)
	return append(dst, ')', 0)
}

func indexEntriesLen(entries []IndexEntry, shift uint64) int {
	var scratch [64]byte
	n := 0
	for _, e := range entries {
		e.Start += shift
		e.End += shift
		n += len(appendIndexEntry(scratch[:0], e))
	}
	return n
}

// EncodeIndexTable returns the length-prefixed table for entries.
func EncodeIndexTable(entries []IndexEntry, order binary.ByteOrder) []byte {
	var table []byte
	for _, e := range entries {
		table = appendIndexEntry(table, e)
	}
	out := make([]byte, indexLenSize, indexLenSize+len(table))
	order.PutUint32(out, uint32(len(table)))
	return append(out, table...)
}

// DecodeIndexTable parses the table that starts at src[0], the byte right after
// the header. It returns the entries and the number of bytes consumed.
func DecodeIndexTable(src []byte, order binary.ByteOrder) ([]IndexEntry, int, error) {
	if len(src) < indexLenSize {
		return nil, 0, formatErrorf(HeaderSize, "index table length truncated")
	}
	tableLen := int(order.Uint32(src))
	if tableLen > len(src)-indexLenSize {
		return nil, 0, formatErrorf(HeaderSize, "index table length %d exceeds file", tableLen)
	}

	table := src[indexLenSize : indexLenSize+tableLen]
	var entries []IndexEntry
	for pos := 0; pos < len(table); {
		z := bytes.IndexByte(table[pos:], 0)
		if z < 0 {
			return nil, 0, formatErrorf(int64(IndexTableOffset+pos), "unterminated index entry")
		}
		e, err := parseIndexEntry(table[pos : pos+z])
		if err != nil {
			return nil, 0, formatErrorf(int64(IndexTableOffset+pos), "%v", err)
		}
		entries = append(entries, e)
		pos += z + 1
	}
	return entries, indexLenSize + tableLen, nil
}

func parseIndexEntry(raw []byte) (IndexEntry, error) {
	sep := bytes.Index(raw, []byte("-("))
	if sep <= 0 || raw[len(raw)-1] != ')' {
		return IndexEntry{}, fmt.Errorf("malformed index entry %q", raw)
	}
	inner := raw[sep+2 : len(raw)-1]
	comma := bytes.IndexByte(inner, ',')
	if comma < 0 {
		return IndexEntry{}, fmt.Errorf("index entry %q has no ','", raw)
	}
	start, err := strconv.ParseUint(string(inner[:comma]), 10, 64)
	if err != nil {
		return IndexEntry{}, fmt.Errorf("bad start offset in %q", raw)
	}
	end, err := strconv.ParseUint(string(inner[comma+1:]), 10, 64)
	if err != nil {
		return IndexEntry{}, fmt.Errorf("bad end offset in %q", raw)
	}
	if start > end {
		return IndexEntry{}, fmt.Errorf("start after end in %q", raw)
	}
	return IndexEntry{Name: string(raw[:sep]), Start: start, End: end}, nil
}
