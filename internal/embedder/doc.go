// Package embedder provides the pluggable embedding collaborator.
//
// The Embedder contract: EmbedBatch is order-preserving, idempotent,
// fails the whole batch atomically and returns unit-norm vectors of a
// fixed dimension.
//
// Two providers are included:
//
//   - OpenAIProvider calls the OpenAI embeddings API.
//   - LocalProvider derives deterministic vectors from content hashes,
//     needing no network; the default when no API key is configured.
//
// Embeddings are cached by content hash in an LRU cache, so re-indexing
// unchanged elements avoids repeated provider calls. A failed batch is
// retried once (EmbedBatchWithRetry) and then dropped by the indexing
// coordinator.
package embedder
