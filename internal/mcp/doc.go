// Package mcp exposes the indexing and query engine over the Model
// Context Protocol.
//
// Tools:
//
//   - index_project: full pass over a root; returns the pass report and
//     optionally starts the file watcher for incremental updates.
//   - search_semantic: vector search with similarity threshold.
//   - search_structural: relational search over element metadata.
//   - get_context_for_file: elements plus importers/importees.
//   - get_project_structure: tree with per-file element counts.
//   - get_dependencies: import/export edges and manifest files.
//   - get_status: index statistics and the project manifest.
//   - clean: remove persisted state, with dry-run support.
//
// stdout is reserved for the protocol; all logging goes to stderr.
package mcp
