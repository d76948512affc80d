// Package hash provides the CRC32-Castagnoli checksums used to tag finalized
// containers in blob storage.
//
// One-shot:
//
//	sum := hash.CRC32C(image)
//
// Streaming:
//
//	h := hash.NewCRC32C()
//	h.Write(chunk1)
//	h.Write(chunk2)
//	sum := h.Sum32()
//
// Go's hash/crc32 uses the SSE4.2 and ARMv8 CRC instructions when present.
package hash
