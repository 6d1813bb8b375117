package indexer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/RealFaceCode/ContextBrain/internal/chunker"
	"github.com/RealFaceCode/ContextBrain/internal/config"
	"github.com/RealFaceCode/ContextBrain/internal/embedder"
	"github.com/RealFaceCode/ContextBrain/internal/exclusion"
	"github.com/RealFaceCode/ContextBrain/internal/parser"
	"github.com/RealFaceCode/ContextBrain/internal/storage"
	"github.com/RealFaceCode/ContextBrain/internal/vectorstore"
	"github.com/RealFaceCode/ContextBrain/internal/walker"
	"github.com/RealFaceCode/ContextBrain/pkg/types"
)

// ErrIndexingInProgress is returned when a pass is already running for
// this coordinator.
var ErrIndexingInProgress = errors.New("indexing already in progress")

// Indexer coordinates the pipeline: walk -> filter -> parse -> chunk ->
// embed -> dual-write. It is the sole writer into both stores for a
// project.
type Indexer struct {
	cfg      *config.Config
	registry *parser.Registry
	chunker  *chunker.Chunker
	embedder embedder.Embedder
	store    storage.Store
	vectors  vectorstore.Index

	lock IndexLock
}

// New creates an Indexer wired to both stores and the embedder.
func New(cfg *config.Config, store storage.Store, vectors vectorstore.Index, emb embedder.Embedder) *Indexer {
	return &Indexer{
		cfg:      cfg,
		registry: parser.NewRegistry(),
		chunker:  chunker.New(cfg.ChunkSizeChars),
		embedder: emb,
		store:    store,
		vectors:  vectors,
	}
}

// IndexProject runs a full pass over root. Existing state for the
// project is cleared in place first, then every discovered file is
// processed through the per-file atomic replacement path.
func (idx *Indexer) IndexProject(ctx context.Context, root string, userPatterns []string) (*types.PassReport, error) {
	if !idx.lock.TryAcquire() {
		return nil, ErrIndexingInProgress
	}
	defer idx.lock.Release()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrCancelled, err)
	}

	start := time.Now()
	report := &types.PassReport{}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidInput, err)
	}
	if info, err := os.Stat(absRoot); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", types.ErrInvalidInput, root)
	}

	filter := exclusion.New(idx.cfg.DefaultExclusions, userPatterns)
	w := walker.New(idx.cfg.SupportedExtensions, filter, idx.cfg.MaxFileSizeBytes)

	var skipMu sync.Mutex
	files, err := w.Walk(absRoot, func(relPath, reason string) {
		skipMu.Lock()
		report.AddSkip(relPath, reason)
		skipMu.Unlock()
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walk failed: %v", types.ErrIO, err)
	}

	// Rebuild clears collections in place so external handles survive.
	if err := idx.store.Clear(ctx); err != nil {
		return nil, err
	}
	if err := idx.vectors.Clear(ctx); err != nil {
		return nil, err
	}

	if err := idx.indexFiles(ctx, absRoot, files, report); err != nil {
		report.Duration = time.Since(start)
		return report, err
	}

	if err := idx.updateManifest(ctx, absRoot); err != nil {
		return nil, err
	}

	report.Duration = time.Since(start)
	log.Printf("indexed %s: %d files, %d elements, %d chunks in %s",
		absRoot, report.FilesIndexed, report.Elements, report.ChunksEmbedded, report.Duration)
	return report, nil
}

// indexFiles processes files on a bounded worker pool. Per-file errors
// are recorded and do not abort the pass; cancellation does.
func (idx *Indexer) indexFiles(ctx context.Context, root string, files []walker.File, report *types.PassReport) error {
	var (
		indexed  atomic.Int32
		elements atomic.Int32
		chunks   atomic.Int32
		batches  atomic.Int32
		mu       sync.Mutex // guards report lists
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.cfg.Workers)

	for _, f := range files {
		f := f
		g.Go(func() error {
			// Cancellation is checked between files.
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("%w: %v", types.ErrCancelled, err)
			}

			stats, err := idx.indexOne(gctx, f)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, types.ErrCancelled) {
					return err
				}
				mu.Lock()
				report.AddError(fmt.Sprintf("%s: %v", f.RelPath, err))
				mu.Unlock()
				return nil
			}
			indexed.Add(1)
			elements.Add(int32(stats.elements))
			chunks.Add(int32(stats.chunks))
			batches.Add(int32(stats.failedBatches))
			return nil
		})
	}

	err := g.Wait()

	report.FilesIndexed = int(indexed.Load())
	report.Elements = int(elements.Load())
	report.ChunksEmbedded = int(chunks.Load())
	report.BatchesFailed = int(batches.Load())
	return err
}

// fileStats carries per-file counters back to the pass report.
type fileStats struct {
	elements      int
	chunks        int
	failedBatches int
}

// indexOne runs a single file through parse and the dual-store write.
func (idx *Indexer) indexOne(ctx context.Context, f walker.File) (fileStats, error) {
	var stats fileStats

	content, err := os.ReadFile(f.AbsPath)
	if err != nil {
		return stats, fmt.Errorf("%w: %v", types.ErrIO, err)
	}

	elements, parseErr := idx.registry.Parse(content, f.RelPath, f.Language)
	if parseErr != nil {
		// Degraded to a generic document element; record but continue.
		log.Printf("parse degraded for %s: %v", f.RelPath, parseErr)
	}
	stats.elements = len(elements)

	// Structured write first. A later embedder failure must not undo it.
	if err := idx.store.ReplaceFile(ctx, f.RelPath, elements); err != nil {
		return stats, err
	}

	records, failed, err := idx.embedElements(ctx, elements)
	if err != nil {
		return stats, err
	}
	stats.failedBatches = failed
	stats.chunks = len(records)

	if err := idx.vectors.ReplaceFile(ctx, f.RelPath, records); err != nil {
		return stats, err
	}
	return stats, nil
}

// embedElements chunks element content, embeds in batches and returns
// the vector records. A batch that fails after one retry is dropped,
// not split; the count of dropped batches is returned.
func (idx *Indexer) embedElements(ctx context.Context, elements []*types.Element) ([]vectorstore.Record, int, error) {
	var pending []chunker.Chunk
	byChunkID := make(map[string]*types.Element)

	for _, elem := range elements {
		text := EmbeddingText(elem)
		if text == "" {
			continue
		}
		for _, c := range idx.chunker.ChunkElement(elem, text) {
			pending = append(pending, c)
			byChunkID[c.ID] = elem
		}
	}
	if len(pending) == 0 {
		return nil, 0, nil
	}

	retry := embedder.DefaultRetryConfig()
	records := make([]vectorstore.Record, 0, len(pending))
	failedBatches := 0

	for start := 0; start < len(pending); start += idx.cfg.BatchSize {
		// Cancellation is checked between batches.
		if err := ctx.Err(); err != nil {
			return nil, failedBatches, fmt.Errorf("%w: %v", types.ErrCancelled, err)
		}

		end := start + idx.cfg.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := embedder.EmbedBatchWithRetry(ctx, idx.embedder, texts, retry)
		if err != nil {
			if ctx.Err() != nil {
				return nil, failedBatches, fmt.Errorf("%w: %v", types.ErrCancelled, ctx.Err())
			}
			failedBatches++
			log.Printf("embedding batch dropped after retry: %v", err)
			continue
		}

		for i, c := range batch {
			elem := byChunkID[c.ID]
			records = append(records, vectorstore.Record{
				ID:         c.ID,
				ElementID:  c.ElementID,
				FilePath:   elem.FilePath,
				Type:       string(elem.Type),
				Language:   elem.Language,
				Name:       elem.Name,
				StartLine:  elem.StartLine,
				ChunkIndex: c.Index,
				ChunkText:  c.Text,
				Vector:     vectors[i],
			})
		}
	}
	return records, failedBatches, nil
}

// IndexFile processes one file incrementally through the same per-file
// atomic replacement as a full pass.
func (idx *Indexer) IndexFile(ctx context.Context, root, absPath string) error {
	relPath, err := filepath.Rel(root, absPath)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidInput, err)
	}
	relPath = types.NormalizePath(relPath)

	filter := exclusion.New(idx.cfg.DefaultExclusions, idx.cfg.ExcludePatterns)
	if filter.ShouldExclude(relPath) {
		return nil
	}

	w := walker.New(idx.cfg.SupportedExtensions, filter, idx.cfg.MaxFileSizeBytes)
	language := w.DetectLanguage(absPath)
	if language == "" {
		return nil
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrIO, err)
	}
	if idx.cfg.MaxFileSizeBytes > 0 && info.Size() > idx.cfg.MaxFileSizeBytes {
		return nil
	}

	_, err = idx.indexOne(ctx, walker.File{
		RelPath:  relPath,
		AbsPath:  absPath,
		Language: language,
		Size:     info.Size(),
	})
	if err != nil {
		return err
	}
	return idx.updateManifest(ctx, root)
}

// DeleteFile removes a file's elements from both stores.
func (idx *Indexer) DeleteFile(ctx context.Context, root, absPath string) error {
	relPath, err := filepath.Rel(root, absPath)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidInput, err)
	}
	relPath = types.NormalizePath(relPath)

	if err := idx.store.DeleteByFile(ctx, relPath); err != nil {
		return err
	}
	if err := idx.vectors.DeleteByFile(ctx, relPath); err != nil {
		return err
	}
	return idx.updateManifest(ctx, root)
}

// Clean removes persisted state for a project. With dryRun it only
// reports what would be removed.
func (idx *Indexer) Clean(ctx context.Context, dryRun bool) (*storage.Statistics, error) {
	stats, err := idx.store.Statistics(ctx)
	if err != nil {
		return nil, err
	}
	if dryRun {
		return stats, nil
	}
	if err := idx.store.Clear(ctx); err != nil {
		return nil, err
	}
	if err := idx.vectors.Clear(ctx); err != nil {
		return nil, err
	}
	return stats, nil
}

// updateManifest refreshes the project manifest from store statistics.
func (idx *Indexer) updateManifest(ctx context.Context, root string) error {
	stats, err := idx.store.Statistics(ctx)
	if err != nil {
		return err
	}

	manifest, err := idx.store.GetManifest(ctx, root)
	if errors.Is(err, storage.ErrNotFound) {
		manifest = &types.ProjectManifest{RootPath: root}
	} else if err != nil {
		return err
	}

	manifest.TotalElements = stats.TotalElements
	manifest.TotalFiles = stats.TotalFiles
	manifest.Languages = stats.ByLanguage
	return idx.store.UpsertManifest(ctx, manifest)
}

// Manifest returns the current project manifest.
func (idx *Indexer) Manifest(ctx context.Context, root string) (*types.ProjectManifest, error) {
	return idx.store.GetManifest(ctx, root)
}
