// Package indexer provides the coordinator driving the end-to-end
// indexing pipeline: walk -> filter -> parse -> chunk -> embed ->
// dual-write.
//
// The coordinator is the sole writer into both stores for a project.
// A full pass clears both collections in place and re-indexes every
// discovered file on a bounded worker pool; incremental updates from
// the watcher flow through the same per-file atomic replacement.
//
// Failure semantics: an unreadable or unparseable file is recorded in
// the pass report and skipped; an embedder failure drops the affected
// batch only while the structured write for the same elements still
// commits; a store failure aborts only the current file. Cancellation
// is checked between files and between batches, preserving partial
// progress.
package indexer
