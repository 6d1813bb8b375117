package parser

import (
	"regexp"
	"strings"

	"github.com/RealFaceCode/ContextBrain/pkg/types"
)

// PatternParser extracts elements from curly-brace languages with
// regex-driven matching. Bodies are delimited by matching braces where
// recoverable; elements inside unbalanced braces are skipped rather
// than mis-bracketed.
type PatternParser struct{}

// NewPatternParser creates a pattern parser for the curly-brace family.
func NewPatternParser() *PatternParser {
	return &PatternParser{}
}

var (
	reFunction  = regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s+(\w+)\s*\(`)
	reArrowFunc = regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s+)?\([^)]*\)\s*=>`)
	reMethod    = regexp.MustCompile(`^(\w+)\s*\([^)]*\)\s*\{`)
	reClass     = regexp.MustCompile(`^\s*(?:export\s+)?(?:abstract\s+)?class\s+(\w+)(?:\s+extends\s+([\w.]+))?`)
	reImport    = regexp.MustCompile(`^\s*import\s+(?:(.+?)\s+from\s+)?['"]([^'"]+)['"]`)
	reRequire   = regexp.MustCompile(`^\s*(?:const|let|var)\s+(\S+)\s*=\s*require\(\s*['"]([^'"]+)['"]\s*\)`)
	reExportSet = regexp.MustCompile(`^\s*export\s*\{([^}]*)\}`)
	reExportDef = regexp.MustCompile(`^\s*export\s+default\s+(.+?)\s*;?\s*$`)
	reVariable  = regexp.MustCompile(`^(const|let|var)\s+(\w+)\s*=`)

	// Control keywords that look like bare method declarations.
	controlKeywords = map[string]bool{
		"if": true, "for": true, "while": true, "switch": true,
		"catch": true, "return": true, "function": true, "do": true,
	}
)

// Parse extracts elements from curly-brace source.
func (p *PatternParser) Parse(content []byte, filePath string) ([]*types.Element, error) {
	filePath = types.NormalizePath(filePath)
	text := string(content)
	lines := strings.Split(text, "\n")
	alloc := newIDAllocator()

	module := &types.Element{
		Type:      types.TypeModule,
		Name:      stemOf(filePath),
		FilePath:  filePath,
		StartLine: 1,
		EndLine:   maxInt(1, lastContentLine(lines)),
		Content:   truncate(text, MaxContentBytes),
		Metadata:  map[string]string{},
	}
	module.ID = alloc.id(filePath, module.Type, module.Name, module.StartLine)
	elements := []*types.Element{module}

	if len(strings.TrimSpace(text)) == 0 {
		return elements, nil
	}

	add := func(e *types.Element) {
		e.ID = alloc.id(filePath, e.Type, e.Name, e.StartLine)
		link(module, e)
		elements = append(elements, e)
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if m := reImport.FindStringSubmatch(line); m != nil {
			add(importElement(filePath, lines, i, m[1], m[2]))
			continue
		}
		if m := reRequire.FindStringSubmatch(line); m != nil {
			add(importElement(filePath, lines, i, m[1], m[2]))
			continue
		}
		if m := reExportSet.FindStringSubmatch(line); m != nil {
			names := splitExportNames(m[1])
			add(&types.Element{
				Type:         types.TypeExport,
				Name:         "export {" + strings.TrimSpace(m[1]) + "}",
				FilePath:     filePath,
				StartLine:    i + 1,
				EndLine:      i + 1,
				Content:      strings.TrimSpace(line),
				Dependencies: names,
				Metadata:     map[string]string{},
			})
			continue
		}
		if m := reExportDef.FindStringSubmatch(line); m != nil && !strings.Contains(line, "function") && !strings.Contains(line, "class") {
			add(&types.Element{
				Type:         types.TypeExport,
				Name:         "export default " + m[1],
				FilePath:     filePath,
				StartLine:    i + 1,
				EndLine:      i + 1,
				Content:      strings.TrimSpace(line),
				Dependencies: []string{strings.TrimSpace(m[1])},
				Metadata:     map[string]string{},
			})
			continue
		}
		if m := reClass.FindStringSubmatch(line); m != nil {
			end, ok := findBlockEnd(lines, i)
			if !ok {
				continue // unbalanced braces
			}
			e := &types.Element{
				Type:      types.TypeClass,
				Name:      m[1],
				FilePath:  filePath,
				StartLine: i + 1,
				EndLine:   end + 1,
				Content:   truncate(sliceLines(lines, i, end+1), MaxContentBytes),
				Metadata:  map[string]string{},
			}
			if m[2] != "" {
				e.Metadata["extends"] = m[2]
			}
			add(e)
			i = end
			continue
		}
		if m := reFunction.FindStringSubmatch(line); m != nil {
			e, end, ok := functionElement(filePath, lines, i, m[1], strings.Contains(line, "async"))
			if !ok {
				continue
			}
			add(e)
			i = end
			continue
		}
		if m := reArrowFunc.FindStringSubmatch(line); m != nil {
			e, end := arrowElement(filePath, lines, i, m[1])
			add(e)
			i = end
			continue
		}
		// Bare method-style declarations count only at top level.
		if m := reMethod.FindStringSubmatch(line); m != nil && !controlKeywords[m[1]] {
			e, end, ok := functionElement(filePath, lines, i, m[1], false)
			if !ok {
				continue
			}
			add(e)
			i = end
			continue
		}
		if m := reVariable.FindStringSubmatch(line); m != nil {
			add(&types.Element{
				Type:      types.TypeVariable,
				Name:      m[2],
				FilePath:  filePath,
				StartLine: i + 1,
				EndLine:   i + 1,
				Content:   strings.TrimSpace(line),
				Metadata:  map[string]string{"kind": m[1]},
			})
			continue
		}
	}

	return elements, nil
}

func importElement(filePath string, lines []string, idx int, imported, module string) *types.Element {
	name := "import '" + module + "'"
	if imported != "" {
		name = "import " + strings.TrimSpace(imported) + " from '" + module + "'"
	}
	return &types.Element{
		Type:         types.TypeImport,
		Name:         name,
		FilePath:     filePath,
		StartLine:    idx + 1,
		EndLine:      idx + 1,
		Content:      strings.TrimSpace(lines[idx]),
		Dependencies: []string{module},
		Metadata:     map[string]string{"module": module, "symbol": strings.TrimSpace(imported)},
	}
}

func functionElement(filePath string, lines []string, idx int, name string, isAsync bool) (*types.Element, int, bool) {
	end, ok := findBlockEnd(lines, idx)
	if !ok {
		return nil, 0, false
	}
	e := &types.Element{
		Type:      types.TypeFunction,
		Name:      name,
		FilePath:  filePath,
		StartLine: idx + 1,
		EndLine:   end + 1,
		Content:   truncate(sliceLines(lines, idx, end+1), MaxContentBytes),
		Signature: extractParamList(lines[idx]),
		Metadata:  map[string]string{},
	}
	if isAsync {
		e.Metadata["async"] = "true"
	}
	return e, end, true
}

func arrowElement(filePath string, lines []string, idx int, name string) (*types.Element, int) {
	end := idx
	if strings.Contains(lines[idx], "{") {
		if balanced, ok := findBlockEnd(lines, idx); ok {
			end = balanced
		}
	}
	return &types.Element{
		Type:      types.TypeFunction,
		Name:      name,
		FilePath:  filePath,
		StartLine: idx + 1,
		EndLine:   end + 1,
		Content:   truncate(sliceLines(lines, idx, end+1), MaxContentBytes),
		Signature: extractParamList(lines[idx]),
		Metadata:  map[string]string{"arrow": "true"},
	}, end
}

// findBlockEnd locates the line of the brace closing the block opened
// at startLine. Returns false when the braces never balance.
func findBlockEnd(lines []string, startLine int) (int, bool) {
	depth := 0
	opened := false
	for i := startLine; i < len(lines); i++ {
		for _, ch := range lines[i] {
			switch ch {
			case '{':
				depth++
				opened = true
			case '}':
				depth--
				if opened && depth == 0 {
					return i, true
				}
			}
		}
	}
	return 0, false
}

// extractParamList pulls the first parenthesised parameter list from a
// declaration line.
func extractParamList(line string) string {
	open := strings.IndexByte(line, '(')
	if open < 0 {
		return ""
	}
	end := strings.IndexByte(line[open:], ')')
	if end < 0 {
		return ""
	}
	return line[open : open+end+1]
}

func splitExportNames(s string) []string {
	var names []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		// "foo as bar" exports bar
		if idx := strings.Index(part, " as "); idx >= 0 {
			part = strings.TrimSpace(part[idx+4:])
		}
		names = append(names, part)
	}
	return names
}
