package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/RealFaceCode/ContextBrain/pkg/types"
)

func TestArgumentHelpers(t *testing.T) {
	args := map[string]interface{}{
		"limit":     float64(25),
		"watch":     false,
		"threshold": 0.7,
		"patterns":  []interface{}{"a", "b", 3},
	}

	assert.Equal(t, 25, getIntDefault(args, "limit", 10))
	assert.Equal(t, 10, getIntDefault(args, "missing", 10))
	assert.False(t, getBoolDefault(args, "watch", true))
	assert.True(t, getBoolDefault(args, "missing", true))
	assert.Equal(t, 0.7, getFloatDefault(args, "threshold", 0.2))
	assert.Equal(t, 0.2, getFloatDefault(args, "missing", 0.2))
	assert.Equal(t, []string{"a", "b"}, getStringSlice(args, "patterns"))
	assert.Nil(t, getStringSlice(args, "missing"))
}

func TestParseFilters(t *testing.T) {
	f := parseFilters(map[string]interface{}{
		"filters": map[string]interface{}{
			"type":      "function",
			"language":  "python",
			"file_path": "src/",
		},
	})
	assert.Equal(t, "function", f.Type)
	assert.Equal(t, "python", f.Language)
	assert.Equal(t, "src/", f.FilePrefix)

	empty := parseFilters(map[string]interface{}{})
	assert.Empty(t, empty.Type)
}

func TestValidateRoot(t *testing.T) {
	assert.ErrorIs(t, validateRoot("relative/path"), ErrPathNotAbsolute)
	assert.ErrorIs(t, validateRoot("/definitely/not/here/xyz"), ErrPathNotFound)
	assert.NoError(t, validateRoot(t.TempDir()))
}

func TestRenderElement(t *testing.T) {
	elem := &types.Element{
		ID: "id1", Type: types.TypeFunction, Name: "f", FilePath: "a.py",
		StartLine: 1, EndLine: 3, Language: "python",
		Signature:    "(x)",
		Dependencies: []string{"os"},
		Metadata:     map[string]string{"k": "v"},
	}
	m := renderElement(elem)
	assert.Equal(t, "f", m["name"])
	assert.Equal(t, "(x)", m["signature"])
	assert.Equal(t, []string{"os"}, m["dependencies"])

	bare := renderElement(&types.Element{ID: "x", Type: types.TypeModule, Name: "m", FilePath: "m.py", StartLine: 1, EndLine: 1})
	_, hasSig := bare["signature"]
	assert.False(t, hasSig)
}

func TestToolDefinitions(t *testing.T) {
	tools := []string{
		indexProjectTool().Name,
		searchSemanticTool().Name,
		searchStructuralTool().Name,
		getContextForFileTool().Name,
		getProjectStructureTool().Name,
		getDependenciesTool().Name,
		getStatusTool().Name,
		cleanTool().Name,
	}
	assert.Equal(t, []string{
		"index_project", "search_semantic", "search_structural",
		"get_context_for_file", "get_project_structure",
		"get_dependencies", "get_status", "clean",
	}, tools)
}
