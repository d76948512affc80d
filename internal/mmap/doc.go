// Package mmap provides read-only memory-mapped file access.
//
// Readers map a container per lookup and scan the section bytes in place,
// so a search never copies the file into the Go heap.
//
//	m, err := mmap.Open("kb.ragfile")
//	if err != nil { ... }
//	defer m.Close()
//
//	region, _ := m.Region(offset, size)
//	_ = region.Advise(mmap.AccessSequential)
//	data := region.Bytes()
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with madvise(2) for access hints
//   - Windows: CreateFileMapping/MapViewOfFile (Advise is a no-op)
//
// Mapping and Region are safe for concurrent reads. Close is idempotent;
// callers must not touch slices returned by Bytes after Close returns.
package mmap
