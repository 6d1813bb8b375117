package parser

import (
	"path/filepath"
	"strings"

	"github.com/RealFaceCode/ContextBrain/pkg/types"
)

// MaxContentBytes bounds the raw source slice stored per element.
const MaxContentBytes = 8192

// Parser extracts elements from file content. Parsers are pure: no I/O,
// bounded output per input.
type Parser interface {
	// Parse returns elements in lexical order. A non-nil error means the
	// parser failed fatally; the registry then returns a single document
	// element carrying the file content instead.
	Parse(content []byte, filePath string) ([]*types.Element, error)
}

// Registry dispatches a file to a parser by its detected language.
type Registry struct {
	python   *PythonParser
	pattern  *PatternParser
	markdown *MarkdownParser
	generic  *GenericParser
}

// patternLanguages are the curly-brace family languages handled by the
// pattern parser.
var patternLanguages = map[string]bool{
	"javascript": true,
	"typescript": true,
	"java":       true,
	"c":          true,
	"cpp":        true,
	"csharp":     true,
	"go":         true,
	"rust":       true,
	"php":        true,
	"swift":      true,
	"kotlin":     true,
	"scala":      true,
}

// NewRegistry creates a registry with all four parsers.
func NewRegistry() *Registry {
	return &Registry{
		python:   NewPythonParser(),
		pattern:  NewPatternParser(),
		markdown: NewMarkdownParser(),
		generic:  NewGenericParser(),
	}
}

// ParserFor returns the parser responsible for a language tag.
func (r *Registry) ParserFor(language string) Parser {
	switch {
	case language == "python":
		return r.python
	case language == "markdown":
		return r.markdown
	case patternLanguages[language]:
		return r.pattern
	default:
		return r.generic
	}
}

// Parse dispatches content to the language parser. A fatal parser error
// degrades to a single document element carrying the full content; the
// error is returned alongside so callers can record it.
func (r *Registry) Parse(content []byte, filePath, language string) ([]*types.Element, error) {
	filePath = types.NormalizePath(filePath)

	p := r.ParserFor(language)
	elements, err := p.Parse(content, filePath)
	if err != nil {
		fallback := fallbackDocument(content, filePath, language)
		return []*types.Element{fallback}, err
	}
	for _, e := range elements {
		if e.Language == "" {
			e.Language = language
		}
	}
	return elements, nil
}

// fallbackDocument wraps unparseable content in one document element.
func fallbackDocument(content []byte, filePath, language string) *types.Element {
	text := string(content)
	lines := strings.Count(text, "\n") + 1
	name := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	e := &types.Element{
		Type:      types.TypeDocument,
		Name:      name,
		FilePath:  filePath,
		StartLine: 1,
		EndLine:   lines,
		Content:   truncate(text, MaxContentBytes),
		Language:  language,
		Metadata:  map[string]string{},
	}
	e.ID = types.ElementID(filePath, e.Type, e.Name, e.StartLine, 0)
	return e
}

// idAllocator hands out deterministic element ids, appending a
// within-file ordinal when the identity tuple collides (e.g. nested
// lambdas with identical names on one line).
type idAllocator struct {
	seen map[string]int
}

func newIDAllocator() *idAllocator {
	return &idAllocator{seen: make(map[string]int)}
}

func (a *idAllocator) id(filePath string, t types.ElementType, name string, startLine int) string {
	id := types.ElementID(filePath, t, name, startLine, 0)
	if n, dup := a.seen[id]; dup {
		a.seen[id] = n + 1
		return types.ElementID(filePath, t, name, startLine, n+1)
	}
	a.seen[id] = 0
	return id
}

// link records a parent/child relationship on both elements.
func link(parent, child *types.Element) {
	child.ParentID = parent.ID
	parent.ChildrenIDs = append(parent.ChildrenIDs, child.ID)
}

// truncate bounds s to max bytes without splitting mid-line when
// possible.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	if idx := strings.LastIndexByte(cut, '\n'); idx > 0 {
		return cut[:idx]
	}
	return cut
}

// stemOf returns the file name without extension, the conventional name
// for module and document elements.
func stemOf(filePath string) string {
	return strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
}

// sliceLines joins lines[start:end] (0-based, end exclusive) back into
// source text.
func sliceLines(lines []string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start >= end {
		return ""
	}
	return strings.Join(lines[start:end], "\n")
}
