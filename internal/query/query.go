package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/RealFaceCode/ContextBrain/internal/embedder"
	"github.com/RealFaceCode/ContextBrain/internal/exclusion"
	"github.com/RealFaceCode/ContextBrain/internal/storage"
	"github.com/RealFaceCode/ContextBrain/internal/vectorstore"
	"github.com/RealFaceCode/ContextBrain/pkg/types"
)

// Engine is the query layer combining the structured and vector
// stores. It tolerates brief divergence between the two: a vector hit
// whose structured row is missing is surfaced from vector metadata
// alone, and structured rows without vectors remain searchable
// structurally.
type Engine struct {
	store    storage.Store
	vectors  vectorstore.Index
	embedder embedder.Embedder

	// dependencyScan enables manifest discovery inside excluded
	// directories for GetDependencies.
	dependencyScan bool
}

// New creates a query engine over both stores.
func New(store storage.Store, vectors vectorstore.Index, emb embedder.Embedder, dependencyScan bool) *Engine {
	return &Engine{
		store:          store,
		vectors:        vectors,
		embedder:       emb,
		dependencyScan: dependencyScan,
	}
}

// Filters narrows semantic queries.
type Filters struct {
	Type       string
	Language   string
	FilePrefix string
}

// SearchSemantic embeds the query, ranks nearest neighbours, applies
// the similarity threshold, deduplicates chunks per element and
// hydrates the top hits from the structured index.
func (e *Engine) SearchSemantic(ctx context.Context, queryText string, threshold float64, limit int, filters Filters) ([]types.SearchResult, error) {
	if strings.TrimSpace(queryText) == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", types.ErrInvalidInput)
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: threshold must be in [0,1], got %f", types.ErrInvalidInput, threshold)
	}
	if limit <= 0 {
		limit = 10
	}

	vectors, err := e.embedder.EmbedBatch(ctx, []string{queryText})
	if err != nil {
		return nil, fmt.Errorf("%w: query embedding failed: %v", types.ErrEmbedding, err)
	}

	topK := limit * 3
	if topK < 10 {
		topK = 10
	}

	hits, err := e.vectors.Search(ctx, vectors[0], topK, vectorstore.QueryFilters{
		Type:       filters.Type,
		Language:   filters.Language,
		FilePrefix: filters.FilePrefix,
	})
	if err != nil {
		return nil, err
	}

	// Threshold, then keep the best-scoring chunk per element.
	best := make(map[string]vectorstore.Hit)
	order := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.Similarity < threshold {
			continue
		}
		elemID := h.Record.ElementID
		if elemID == "" {
			elemID = h.Record.ID
		}
		if prev, seen := best[elemID]; seen {
			if betterHit(h, prev) {
				best[elemID] = h
			}
			continue
		}
		best[elemID] = h
		order = append(order, elemID)
	}

	deduped := make([]vectorstore.Hit, 0, len(best))
	for _, id := range order {
		deduped = append(deduped, best[id])
	}
	sort.SliceStable(deduped, func(i, j int) bool { return betterHit(deduped[i], deduped[j]) })
	if len(deduped) > limit {
		deduped = deduped[:limit]
	}

	results := make([]types.SearchResult, 0, len(deduped))
	for _, h := range deduped {
		elemID := h.Record.ElementID
		if elemID == "" {
			elemID = h.Record.ID
		}
		elem, err := e.store.GetByID(ctx, elemID)
		if err != nil {
			// Stores may diverge briefly; fall back to vector metadata.
			elem = elementFromRecord(h.Record)
		}
		results = append(results, types.SearchResult{
			Element:    elem,
			Similarity: h.Similarity,
			Snippet:    h.Record.ChunkText,
		})
	}
	return results, nil
}

func betterHit(a, b vectorstore.Hit) bool {
	if a.Similarity != b.Similarity {
		return a.Similarity > b.Similarity
	}
	if a.Record.FilePath != b.Record.FilePath {
		return a.Record.FilePath < b.Record.FilePath
	}
	return a.Record.StartLine < b.Record.StartLine
}

func elementFromRecord(r vectorstore.Record) *types.Element {
	return &types.Element{
		ID:        r.ElementID,
		Type:      types.ElementType(r.Type),
		Name:      r.Name,
		FilePath:  r.FilePath,
		StartLine: r.StartLine,
		EndLine:   r.StartLine,
		Content:   r.ChunkText,
		Language:  r.Language,
		Metadata:  map[string]string{},
	}
}

// SearchStructural queries element metadata directly.
func (e *Engine) SearchStructural(ctx context.Context, pattern string, filters Filters, limit int) ([]types.SearchResult, error) {
	elements, err := e.store.SearchStructural(ctx, pattern, storage.Filters{
		Type:     filters.Type,
		Language: filters.Language,
		File:     filters.FilePrefix,
	}, limit)
	if err != nil {
		return nil, err
	}

	results := make([]types.SearchResult, 0, len(elements))
	for _, elem := range elements {
		results = append(results, types.SearchResult{Element: elem})
	}
	return results, nil
}

// GetContextForFile returns the file's elements plus direct importers
// (files whose imports reference this file's module name or a symbol it
// exports) and
// importees (modules this file imports). Depth is capped by radius;
// radius zero returns elements only.
func (e *Engine) GetContextForFile(ctx context.Context, filePath string, radius int) (*types.FileContext, error) {
	filePath = types.NormalizePath(filePath)
	elements, err := e.store.GetByFile(ctx, filePath)
	if err != nil {
		return nil, err
	}

	fc := &types.FileContext{
		FilePath: filePath,
		Elements: elements,
	}
	if radius <= 0 {
		return fc, nil
	}

	imports, err := e.store.ListByType(ctx, types.TypeImport)
	if err != nil {
		return nil, err
	}

	// Importees: modules this file imports, then files those map to,
	// expanding one level per radius step.
	importees := make(map[string]bool)
	frontier := map[string]bool{filePath: true}
	for depth := 0; depth < radius; depth++ {
		next := make(map[string]bool)
		for _, imp := range imports {
			if !frontier[imp.FilePath] {
				continue
			}
			for _, dep := range imp.Dependencies {
				if !importees[dep] {
					importees[dep] = true
					next[moduleToFilePath(dep)] = true
				}
			}
		}
		frontier = next
		if len(frontier) == 0 {
			break
		}
	}

	// Importers: files whose imports reference this file's module name
	// or any symbol it exports, again expanding per radius step.
	exported := exportedSymbols(elements)
	importers := make(map[string]bool)
	targets := map[string]bool{filePathToModule(filePath): true}
	for s := range exported {
		targets[s] = true
	}
	for depth := 0; depth < radius; depth++ {
		next := make(map[string]bool)
		for _, imp := range imports {
			if imp.FilePath == filePath || importers[imp.FilePath] {
				continue
			}
			for _, dep := range imp.Dependencies {
				if matchesTarget(dep, targets) {
					importers[imp.FilePath] = true
					next[filePathToModule(imp.FilePath)] = true
					break
				}
			}
		}
		targets = next
		if len(targets) == 0 {
			break
		}
	}

	fc.Importees = sortedKeys(importees)
	fc.Importers = sortedKeys(importers)
	return fc, nil
}

// GetProjectStructure returns the directory/file tree with per-file
// element counts by type.
func (e *Engine) GetProjectStructure(ctx context.Context) (*types.StructureNode, error) {
	files, err := e.store.ListFiles(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := e.store.ElementCountsByFile(ctx)
	if err != nil {
		return nil, err
	}

	root := &types.StructureNode{Name: ".", Path: ".", IsDir: true}
	for _, file := range files {
		insertPath(root, file, counts[file])
	}
	sortTree(root)
	return root, nil
}

// GetDependencies returns the union of all import/export edges plus,
// when dependency scanning is enabled, discovered package-manifest
// files under root.
func (e *Engine) GetDependencies(ctx context.Context, root string) (*types.DependencyReport, error) {
	report := &types.DependencyReport{}

	for _, t := range []types.ElementType{types.TypeImport, types.TypeExport} {
		elements, err := e.store.ListByType(ctx, t)
		if err != nil {
			return nil, err
		}
		for _, elem := range elements {
			symbol := elem.Metadata["symbol"]
			for _, dep := range elem.Dependencies {
				report.Edges = append(report.Edges, types.DependencyEdge{
					FromFile: elem.FilePath,
					Module:   dep,
					Symbol:   symbol,
					External: isExternalModule(dep),
				})
			}
		}
	}

	if e.dependencyScan && root != "" {
		filter := exclusion.New(true, nil)
		manifests, err := filter.ScanDependencyFiles(root)
		if err == nil {
			report.ManifestFiles = manifests
		}
	}
	return report, nil
}

// Statistics exposes structured index statistics to the surface layer.
func (e *Engine) Statistics(ctx context.Context) (*storage.Statistics, error) {
	return e.store.Statistics(ctx)
}

// exportedSymbols collects names this file makes visible: export
// element dependencies plus top-level named definitions.
func exportedSymbols(elements []*types.Element) map[string]bool {
	symbols := make(map[string]bool)
	for _, elem := range elements {
		switch elem.Type {
		case types.TypeExport:
			for _, dep := range elem.Dependencies {
				symbols[dep] = true
			}
		case types.TypeFunction, types.TypeClass, types.TypeVariable:
			symbols[elem.Name] = true
		}
	}
	return symbols
}

func matchesTarget(dep string, targets map[string]bool) bool {
	if targets[dep] {
		return true
	}
	for t := range targets {
		if t == "" {
			continue
		}
		if strings.HasSuffix(dep, "."+t) || strings.HasPrefix(dep, t+".") || strings.Contains(dep, t) {
			return true
		}
	}
	return false
}

// filePathToModule converts "pkg/util.py" to "pkg.util".
func filePathToModule(filePath string) string {
	p := types.NormalizePath(filePath)
	if idx := strings.LastIndexByte(p, '.'); idx > 0 {
		p = p[:idx]
	}
	return strings.ReplaceAll(p, "/", ".")
}

// moduleToFilePath converts "pkg.util" to "pkg/util".
func moduleToFilePath(module string) string {
	return strings.ReplaceAll(module, ".", "/")
}

// isExternalModule reports whether a module looks like a third-party
// import rather than a project-relative one.
func isExternalModule(module string) bool {
	if strings.HasPrefix(module, ".") || strings.HasPrefix(module, "/") {
		return false
	}
	return !strings.ContainsAny(module, "/")
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func insertPath(root *types.StructureNode, file string, counts map[string]int) {
	parts := strings.Split(file, "/")
	node := root
	for i, part := range parts {
		isFile := i == len(parts)-1
		var child *types.StructureNode
		for _, c := range node.Children {
			if c.Name == part {
				child = c
				break
			}
		}
		if child == nil {
			child = &types.StructureNode{
				Name:  part,
				Path:  strings.Join(parts[:i+1], "/"),
				IsDir: !isFile,
			}
			node.Children = append(node.Children, child)
		}
		if isFile {
			child.ElementCounts = counts
		}
		node = child
	}
}

func sortTree(node *types.StructureNode) {
	sort.Slice(node.Children, func(i, j int) bool {
		a, b := node.Children[i], node.Children[j]
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		return a.Name < b.Name
	})
	for _, c := range node.Children {
		sortTree(c)
	}
}
