// Package vectorstore provides the content-addressed vector index.
//
// Each record holds a chunk id, the owning element id, metadata and the
// embedding vector. Two backends implement the Index interface:
//
//   - LocalIndex keeps vectors in a dedicated SQLite file under the
//     vectors directory and computes cosine similarity in Go. Default.
//   - QdrantIndex talks to a Qdrant instance over gRPC.
//
// Identity rule: a single-chunk element stores under its element id;
// a multi-chunk element stores under "id#0", "id#1", ... so every
// record maps back to exactly one structured element.
//
// Rebuilding an index clears the collection in place rather than
// dropping and recreating it.
package vectorstore
