package types

import "errors"

// Error kinds shared across the indexing and query layers.
var (
	// ErrIO is a file read or store I/O failure.
	ErrIO = errors.New("io error")
	// ErrParse is a fatal parser error on a file.
	ErrParse = errors.New("parse error")
	// ErrEmbedding is an embedder batch failure.
	ErrEmbedding = errors.New("embedding error")
	// ErrStore is a structured or vector store write refusal.
	ErrStore = errors.New("store error")
	// ErrInvalidInput is a client request that violated preconditions.
	ErrInvalidInput = errors.New("invalid input")
	// ErrCancelled indicates the cancellation token tripped.
	ErrCancelled = errors.New("cancelled")
)
