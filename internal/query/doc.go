// Package query is the read side of ContextBrain: it combines the
// vector index and the structured index into the client-facing query
// surface.
//
// Semantic queries embed the query text, rank nearest neighbours in
// cosine space, apply the similarity threshold, deduplicate chunks per
// element and hydrate hits from the structured index. Structural
// queries go straight to the relational store. The two stores may
// diverge briefly during indexing; the engine tolerates this by
// falling back to vector metadata when a structured row is missing.
//
// Queries never raise on empty results; they return empty lists.
package query
