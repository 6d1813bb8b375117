package storage

import (
	"context"

	"github.com/RealFaceCode/ContextBrain/pkg/types"
)

// Filters narrows structural queries.
type Filters struct {
	Type     string // element type
	Language string
	File     string // file path or path prefix
}

// Statistics summarises the structured index contents.
type Statistics struct {
	TotalElements int
	TotalFiles    int
	ByType        map[string]int
	ByLanguage    map[string]int
}

// Store is the relational structured index keyed by element id.
//
// Writes are atomic per file: ReplaceFile removes all rows with the
// file's path and inserts the fresh element set in one transaction, so
// concurrent readers never observe a half-replaced file. Missing rows
// yield empty results, never an error.
type Store interface {
	// ReplaceFile atomically replaces all elements of one file.
	ReplaceFile(ctx context.Context, filePath string, elements []*types.Element) error

	// DeleteByFile removes all elements of the file.
	DeleteByFile(ctx context.Context, filePath string) error

	// GetByID fetches a single element.
	GetByID(ctx context.Context, id string) (*types.Element, error)

	// GetByFile returns the file's elements ordered by start line.
	GetByFile(ctx context.Context, filePath string) ([]*types.Element, error)

	// GetChildren returns the direct children of an element, ordered.
	GetChildren(ctx context.Context, id string) ([]*types.Element, error)

	// SearchStructural matches pattern against element names: glob when
	// the pattern carries meta-characters, substring otherwise. Results
	// are ordered by (file_path, start_line).
	SearchStructural(ctx context.Context, pattern string, filters Filters, limit int) ([]*types.Element, error)

	// ListByType returns all elements of one type ordered by
	// (file_path, start_line).
	ListByType(ctx context.Context, elemType types.ElementType) ([]*types.Element, error)

	// ListFiles returns the distinct indexed file paths in order.
	ListFiles(ctx context.Context) ([]string, error)

	// ElementCountsByFile returns per-file element counts keyed by type.
	ElementCountsByFile(ctx context.Context) (map[string]map[string]int, error)

	// Statistics reports element count and type/language histograms.
	Statistics(ctx context.Context) (*Statistics, error)

	// Manifest operations.
	GetManifest(ctx context.Context, rootPath string) (*types.ProjectManifest, error)
	UpsertManifest(ctx context.Context, manifest *types.ProjectManifest) error

	// Clear removes all elements and manifests.
	Clear(ctx context.Context) error

	Close() error
}
