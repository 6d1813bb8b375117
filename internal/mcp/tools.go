package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/RealFaceCode/ContextBrain/internal/query"
	"github.com/RealFaceCode/ContextBrain/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
)

// handleIndexProject handles the index_project tool invocation
func (s *Server) handleIndexProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	root, ok := args["root"].(string)
	if !ok || root == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "root parameter is required", map[string]interface{}{
			"param":  "root",
			"reason": "missing or empty",
		})
	}
	if err := validateRoot(root); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid root", map[string]interface{}{
			"param":  "root",
			"reason": err.Error(),
		})
	}

	patterns := getStringSlice(args, "exclude_patterns")
	watch := getBoolDefault(args, "watch", true)

	report, err := s.indexer.IndexProject(ctx, root, patterns)
	if err != nil {
		if errors.Is(err, types.ErrCancelled) {
			return nil, newMCPError(ErrorCodeInternalError, "indexing cancelled", nil)
		}
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if watch {
		abs, absErr := filepath.Abs(root)
		if absErr == nil {
			s.startWatcher(abs)
		}
	}

	response := map[string]interface{}{
		"indexed":         true,
		"files_indexed":   report.FilesIndexed,
		"files_skipped":   len(report.FilesSkipped),
		"files_failed":    report.FilesFailed,
		"elements":        report.Elements,
		"chunks_embedded": report.ChunksEmbedded,
		"batches_failed":  report.BatchesFailed,
		"duration_ms":     report.Duration.Milliseconds(),
	}
	if len(report.FilesSkipped) > 0 {
		skipped := make([]map[string]string, 0, len(report.FilesSkipped))
		for _, sf := range report.FilesSkipped {
			skipped = append(skipped, map[string]string{"path": sf.Path, "reason": sf.Reason})
		}
		response["skipped"] = skipped
	}
	if len(report.Errors) > 0 {
		errorCount := len(report.Errors)
		if errorCount > 5 {
			response["errors"] = report.Errors[:5]
			response["error_count"] = errorCount
		} else {
			response["errors"] = report.Errors
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchSemantic handles the search_semantic tool invocation
func (s *Server) handleSearchSemantic(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	queryText, ok := args["query"].(string)
	if !ok || queryText == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", nil)
	}

	threshold := getFloatDefault(args, "threshold", s.cfg.SimilarityThreshold)
	if threshold < 0 || threshold > 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "threshold must be between 0 and 1", map[string]interface{}{
			"param": "threshold",
			"value": threshold,
		})
	}
	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	results, err := s.query.SearchSemantic(ctx, queryText, threshold, limit, parseFilters(args))
	if err != nil {
		if errors.Is(err, types.ErrInvalidInput) {
			return nil, newMCPError(ErrorCodeInvalidParams, err.Error(), nil)
		}
		return nil, newMCPError(ErrorCodeInternalError, "semantic search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"results": renderResults(results, true),
		"count":   len(results),
	})), nil
}

// handleSearchStructural handles the search_structural tool invocation
func (s *Server) handleSearchStructural(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	pattern, ok := args["pattern"].(string)
	if !ok || pattern == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "pattern parameter is required", nil)
	}
	limit := getIntDefault(args, "limit", 50)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", nil)
	}

	results, err := s.query.SearchStructural(ctx, pattern, parseFilters(args), limit)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "structural search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"results": renderResults(results, false),
		"count":   len(results),
	})), nil
}

// handleGetContextForFile handles the get_context_for_file tool invocation
func (s *Server) handleGetContextForFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	filePath, ok := args["file_path"].(string)
	if !ok || filePath == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "file_path parameter is required", nil)
	}
	radius := getIntDefault(args, "radius", 1)
	if radius < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "radius must be non-negative", nil)
	}

	fc, err := s.query.GetContextForFile(ctx, filePath, radius)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "context lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	elements := make([]map[string]interface{}, 0, len(fc.Elements))
	for _, elem := range fc.Elements {
		elements = append(elements, renderElement(elem))
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"file_path": fc.FilePath,
		"elements":  elements,
		"importers": fc.Importers,
		"importees": fc.Importees,
	})), nil
}

// handleGetProjectStructure handles the get_project_structure tool invocation
func (s *Server) handleGetProjectStructure(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, err := s.query.GetProjectStructure(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "structure lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"structure": renderNode(root),
	})), nil
}

// handleGetDependencies handles the get_dependencies tool invocation
func (s *Server) handleGetDependencies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.query.GetDependencies(ctx, s.watchedRoot)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "dependency lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	edges := make([]map[string]interface{}, 0, len(report.Edges))
	for _, e := range report.Edges {
		edges = append(edges, map[string]interface{}{
			"from_file": e.FromFile,
			"module":    e.Module,
			"symbol":    e.Symbol,
			"external":  e.External,
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"edges":          edges,
		"manifest_files": report.ManifestFiles,
	})), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.query.Statistics(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get statistics", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"total_elements": stats.TotalElements,
		"total_files":    stats.TotalFiles,
		"by_type":        stats.ByType,
		"by_language":    stats.ByLanguage,
	}

	if s.watchedRoot != "" {
		response["watched_root"] = s.watchedRoot
		if manifest, err := s.indexer.Manifest(ctx, s.watchedRoot); err == nil {
			response["manifest"] = map[string]interface{}{
				"root_path":      manifest.RootPath,
				"total_elements": manifest.TotalElements,
				"total_files":    manifest.TotalFiles,
				"languages":      manifest.Languages,
				"created_at":     manifest.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
				"last_updated":   manifest.LastUpdated.Format("2006-01-02T15:04:05Z07:00"),
			}
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleClean handles the clean tool invocation
func (s *Server) handleClean(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	dryRun := getBoolDefault(args, "dry_run", false)

	stats, err := s.indexer.Clean(ctx, dryRun)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "clean failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if !dryRun {
		s.stopWatcher()
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"dry_run":          dryRun,
		"elements_removed": stats.TotalElements,
		"files_removed":    stats.TotalFiles,
	})), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validateRoot checks that a path exists and is a readable directory.
func validateRoot(path string) error {
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}
	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()
	return nil
}

// parseFilters extracts query filters from tool arguments.
func parseFilters(args map[string]interface{}) query.Filters {
	var f query.Filters
	filters, ok := args["filters"].(map[string]interface{})
	if !ok {
		return f
	}
	f.Type, _ = filters["type"].(string)
	f.Language, _ = filters["language"].(string)
	f.FilePrefix, _ = filters["file_path"].(string)
	return f
}

func renderResults(results []types.SearchResult, semantic bool) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		m := renderElement(r.Element)
		if semantic {
			m["similarity"] = r.Similarity
			m["snippet"] = r.Snippet
		}
		out = append(out, m)
	}
	return out
}

func renderElement(elem *types.Element) map[string]interface{} {
	m := map[string]interface{}{
		"id":         elem.ID,
		"type":       string(elem.Type),
		"name":       elem.Name,
		"file_path":  elem.FilePath,
		"start_line": elem.StartLine,
		"end_line":   elem.EndLine,
		"language":   elem.Language,
	}
	if elem.Signature != "" {
		m["signature"] = elem.Signature
	}
	if elem.Docstring != "" {
		m["docstring"] = elem.Docstring
	}
	if elem.ParentID != "" {
		m["parent_id"] = elem.ParentID
	}
	if len(elem.Dependencies) > 0 {
		m["dependencies"] = elem.Dependencies
	}
	if len(elem.Metadata) > 0 {
		m["metadata"] = elem.Metadata
	}
	return m
}

func renderNode(node *types.StructureNode) map[string]interface{} {
	m := map[string]interface{}{
		"name":   node.Name,
		"path":   node.Path,
		"is_dir": node.IsDir,
	}
	if len(node.ElementCounts) > 0 {
		m["element_counts"] = node.ElementCounts
	}
	if len(node.Children) > 0 {
		children := make([]map[string]interface{}, 0, len(node.Children))
		for _, c := range node.Children {
			children = append(children, renderNode(c))
		}
		m["children"] = children
	}
	return m
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a float parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter
func getStringSlice(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Validation helpers

var (
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
