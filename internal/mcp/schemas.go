package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// filterProperties is the shared schema for query filters.
func filterProperties() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": "Optional filters to narrow results",
		"properties": map[string]interface{}{
			"type": map[string]interface{}{
				"type":        "string",
				"description": "Element type",
				"enum": []string{"function", "method", "class", "module", "variable",
					"import", "export", "heading", "section", "block", "document"},
			},
			"language": map[string]interface{}{
				"type":        "string",
				"description": "Language tag (python, javascript, markdown, ...)",
			},
			"file_path": map[string]interface{}{
				"type":        "string",
				"description": "File path prefix",
			},
		},
	}
}

// indexProjectTool returns the tool definition for index_project
func indexProjectTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_project",
		Description: "Run a full indexing pass over a project root and return pass statistics",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"root": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the project root",
				},
				"exclude_patterns": map[string]interface{}{
					"type":        "array",
					"description": "Additional glob exclusion patterns",
					"items":       map[string]interface{}{"type": "string"},
				},
				"watch": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, watch the root for changes and re-index incrementally",
					"default":     true,
				},
			},
			Required: []string{"root"},
		},
	}
}

// searchSemanticTool returns the tool definition for search_semantic
func searchSemanticTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_semantic",
		Description: "Semantic search over natural-language embeddings of indexed elements",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language query",
				},
				"threshold": map[string]interface{}{
					"type":        "number",
					"description": "Similarity floor in [0,1]",
					"minimum":     0.0,
					"maximum":     1.0,
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"filters": filterProperties(),
			},
			Required: []string{"query"},
		},
	}
}

// searchStructuralTool returns the tool definition for search_structural
func searchStructuralTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_structural",
		Description: "Structural search over element metadata; the pattern matches names with glob or substring semantics",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"pattern": map[string]interface{}{
					"type":        "string",
					"description": "Name pattern; glob when it contains * or ?, substring otherwise",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results (1-100)",
					"default":     50,
					"minimum":     1,
					"maximum":     100,
				},
				"filters": filterProperties(),
			},
			Required: []string{"pattern"},
		},
	}
}

// getContextForFileTool returns the tool definition for get_context_for_file
func getContextForFileTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_context_for_file",
		Description: "All elements of a file plus its direct importers and importees",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"file_path": map[string]interface{}{
					"type":        "string",
					"description": "Repository-relative file path",
				},
				"radius": map[string]interface{}{
					"type":        "integer",
					"description": "Dependency traversal depth",
					"default":     1,
					"minimum":     0,
				},
			},
			Required: []string{"file_path"},
		},
	}
}

// getProjectStructureTool returns the tool definition for get_project_structure
func getProjectStructureTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_project_structure",
		Description: "Directory/file tree of the indexed project with per-file element counts by type",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// getDependenciesTool returns the tool definition for get_dependencies
func getDependenciesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_dependencies",
		Description: "Union of all import/require and export edges plus the paths of dependency-manifest files under the watched project root; manifest contents are not parsed, and no manifest files are listed when no root is being watched",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Index statistics: element counts, type and language histograms, manifest",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// cleanTool returns the tool definition for clean
func cleanTool() mcp.Tool {
	return mcp.Tool{
		Name:        "clean",
		Description: "Remove persisted index state for the project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"dry_run": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, only report what would be removed",
					"default":     false,
				},
			},
		},
	}
}
