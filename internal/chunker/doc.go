// Package chunker splits element content into size-bounded embedding
// chunks.
//
// Chunks are contiguous and non-overlapping; split points prefer line
// breaks. A single-chunk element keeps its element id as the chunk id,
// a multi-chunk element gets "id#0", "id#1", ... so the vector index
// can map every record back to its element.
package chunker
