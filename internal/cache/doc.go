// Package cache provides a byte-bounded LRU for immutable blob blocks.
//
// Remote containers are read in many small ranged requests (header, index,
// section metadata, section body). LRUBlockCache keeps recently fetched
// fixed-size blocks in memory so that repeated searches against the same
// container do not go back to object storage.
package cache
