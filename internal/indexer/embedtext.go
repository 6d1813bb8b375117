package indexer

import (
	"strings"

	"github.com/RealFaceCode/ContextBrain/pkg/types"
)

// EmbeddingText shapes the text submitted to the embedder for an
// element. Type, name and docstring front-load the semantic signal
// ahead of raw source.
func EmbeddingText(elem *types.Element) string {
	var parts []string

	switch elem.Type {
	case types.TypeImport, types.TypeExport:
		return string(elem.Type) + " statement: " + elem.Name
	case types.TypeHeading:
		parts = append(parts, "heading "+elem.Name)
	default:
		parts = append(parts, string(elem.Type)+" "+elem.Name)
	}

	if file := fileStem(elem.FilePath); file != "" {
		parts = append(parts, "in "+file)
	}
	if elem.Docstring != "" {
		parts = append(parts, "description: "+elem.Docstring)
	}
	if elem.Signature != "" {
		parts = append(parts, "signature: "+elem.Signature)
	}
	if content := strings.TrimSpace(elem.Content); content != "" {
		parts = append(parts, content)
	}

	return strings.Join(parts, " ")
}

func fileStem(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		path = path[idx+1:]
	}
	if idx := strings.LastIndexByte(path, '.'); idx > 0 {
		path = path[:idx]
	}
	return path
}
