package ragfile

import (
	"encoding/binary"
	"fmt"
)

const (
	// Magic identifies a RAGFile container.
	Magic = "RAGFILE"

	// HeaderSize is the fixed size of the file prologue:
	// magic (7) + version (3) + endianness flag (1).
	HeaderSize = 7 + 3 + 1

	// DefaultVersionMajor, DefaultVersionMinor and DefaultVersionPatch stamp
	// files written by this package. The stamp is never interpreted.
	DefaultVersionMajor = 0
	DefaultVersionMinor = 1
	DefaultVersionPatch = 0
)

// Endianness flag values stored in the header.
const (
	LittleEndian uint8 = 0
	BigEndian    uint8 = 1
)

// Version is the major/minor/patch stamp of a file.
type Version struct {
	Major uint8
	Minor uint8
	Patch uint8
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Header is the decoded file prologue.
type Header struct {
	Version    Version
	Endianness uint8
}

// ByteOrder returns the byte order every multi-byte integer of the file uses.
func (h Header) ByteOrder() binary.ByteOrder {
	if h.Endianness == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// EncodeHeader returns the 11-byte prologue for the given version and byte order.
func EncodeHeader(major, minor, patch uint8, order binary.ByteOrder) []byte {
	return appendHeader(make([]byte, 0, HeaderSize), Header{
		Version:    Version{Major: major, Minor: minor, Patch: patch},
		Endianness: endiannessFlag(order),
	})
}

func appendHeader(dst []byte, h Header) []byte {
	dst = append(dst, Magic...)
	dst = append(dst, h.Version.Major, h.Version.Minor, h.Version.Patch)
	return append(dst, h.Endianness)
}

// DecodeHeader parses the prologue at the start of src.
func DecodeHeader(src []byte) (Header, error) {
	if len(src) < HeaderSize {
		return Header{}, formatErrorf(0, "header truncated: %d of %d bytes", len(src), HeaderSize)
	}
	if string(src[:len(Magic)]) != Magic {
		return Header{}, formatErrorf(0, "bad magic %q", src[:len(Magic)])
	}

	h := Header{
		Version: Version{
			Major: src[len(Magic)],
			Minor: src[len(Magic)+1],
			Patch: src[len(Magic)+2],
		},
		Endianness: src[len(Magic)+3],
	}
	if h.Endianness != LittleEndian && h.Endianness != BigEndian {
		return Header{}, formatErrorf(int64(len(Magic)+3), "unknown endianness flag %d", h.Endianness)
	}
	return h, nil
}

// endiannessFlag probes order instead of comparing it, so binary.NativeEndian
// maps to the host's flag.
func endiannessFlag(order binary.ByteOrder) uint8 {
	var probe [2]byte
	order.PutUint16(probe[:], 1)
	if probe[1] == 1 {
		return BigEndian
	}
	return LittleEndian
}
