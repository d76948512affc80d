// Package ragfile reads and writes RAGFile containers: single-file,
// memory-mappable stores for retrieval-augmented generation data.
//
// A container holds a keyword section (exact-match keyword to content records)
// and an embedding section (vector to content records), located through an
// index table at the front of the file.
//
// # Quick Start
//
// Writing:
//
//	w := ragfile.NewWriter("kb.ragfile")
//	_ = w.WriteHeader(0, 1, 0)
//	_ = w.WriteKeywordSection([]ragfile.KeywordRecord{
//	    {Keyword: "AI", Content: "Artificial intelligence is ..."},
//	}, 8)
//	_ = w.WriteEmbeddingSection([]ragfile.EmbeddingRecord{
//	    {Vector: []float32{0.1, 0.2, 0.3}, Content: "Artificial intelligence is ..."},
//	}, 8, ragfile.Precision32)
//	err := w.Finalize()
//
// Reading:
//
//	r, _ := ragfile.Open("kb.ragfile")
//	defer r.Close()
//	records, _ := r.SearchKeyword(ctx, "AI")
//	hits, _ := r.SearchVector(ctx, query, 5, distance.MetricCosine)
//
// Cloud mode:
//
//	store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("kb/"))
//	_ = w.FinalizeTo(ctx, store, "kb.ragfile")
//	r, _ := ragfile.OpenBlob(ctx, store, "kb.ragfile")
//
// # File Layout
//
//	offset 0   "RAGFILE"                          7 bytes
//	offset 7   version major, minor, patch        3 x u8
//	offset 10  endianness flag (0 little, 1 big)  u8
//	offset 11  index table length                 u32
//	offset 15  index table                        "name-(start,end)\x00" per section
//	           keyword metadata                   start u64, end u64, alignment u8
//	           keyword records                    "keyword-content", zero padded
//	           embedding metadata                 precision u8, start u64, end u64, alignment u8
//	           embedding records                  vector bytes, '-', content, zero padded
//
// Multi-byte integers and vector components use the byte order declared in
// the header. Index and metadata offsets are absolute and point at the first
// record of a section.
//
// # Padding
//
// Each record is followed by 1 to alignment zero bytes so that its total
// length is a multiple of the section alignment (4, 8 or 16). A record body
// that is already aligned gets a full block of padding, which guarantees a
// terminator after every record.
//
// # Concurrency
//
// A Writer is single-threaded. A Reader caches the index behind a RWMutex
// and maps the file per lookup, so concurrent searches are safe.
//
// # Errors
//
// Errors wrap one of ErrFormat, ErrInvalidArgument, ErrInvalidState or ErrIO
// and can be tested with errors.Is. Structural problems carry a *FormatError
// with the offending offset.
package ragfile
