package parser

import (
	"strings"

	"github.com/RealFaceCode/ContextBrain/pkg/types"
)

// GenericParser is the text fallback: one document element spanning the
// whole file plus block elements for heuristically detected comment and
// doc blocks.
type GenericParser struct{}

// NewGenericParser creates the fallback parser.
func NewGenericParser() *GenericParser {
	return &GenericParser{}
}

// commentPrefixes mark lines belonging to a comment block.
var commentPrefixes = []string{"#", "//", "--", ";", "*", "/*"}

// Parse emits a document element and comment blocks.
func (p *GenericParser) Parse(content []byte, filePath string) ([]*types.Element, error) {
	filePath = types.NormalizePath(filePath)
	text := string(content)
	lines := strings.Split(text, "\n")
	alloc := newIDAllocator()

	doc := &types.Element{
		Type:      types.TypeDocument,
		Name:      stemOf(filePath),
		FilePath:  filePath,
		StartLine: 1,
		EndLine:   maxInt(1, lastContentLine(lines)),
		Content:   truncate(text, MaxContentBytes),
		Metadata:  map[string]string{},
	}
	doc.ID = alloc.id(filePath, doc.Type, doc.Name, doc.StartLine)
	elements := []*types.Element{doc}

	if strings.TrimSpace(text) == "" {
		return elements, nil
	}

	// Group consecutive comment lines into block elements. Blocks of a
	// single line are ignored as noise.
	blockStart := -1
	flush := func(endIdx int) {
		if blockStart < 0 {
			return
		}
		start, end := blockStart, endIdx
		blockStart = -1
		if end-start < 2 {
			return
		}
		body := sliceLines(lines, start, end)
		name := blockName(lines[start])
		block := &types.Element{
			Type:      types.TypeBlock,
			Name:      name,
			FilePath:  filePath,
			StartLine: start + 1,
			EndLine:   end,
			Content:   truncate(body, MaxContentBytes),
			Metadata:  map[string]string{},
		}
		block.ID = alloc.id(filePath, block.Type, block.Name, block.StartLine)
		link(doc, block)
		elements = append(elements, block)
	}

	for i, line := range lines {
		if isCommentLine(line) {
			if blockStart < 0 {
				blockStart = i
			}
		} else {
			flush(i)
		}
	}
	flush(len(lines))

	return elements, nil
}

func isCommentLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	for _, prefix := range commentPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

// blockName derives a short name from the first line of a block.
func blockName(first string) string {
	trimmed := strings.TrimSpace(first)
	trimmed = strings.TrimLeft(trimmed, "#/-;* \t")
	if trimmed == "" {
		return "comment"
	}
	if len(trimmed) > 60 {
		trimmed = trimmed[:60]
	}
	return trimmed
}
