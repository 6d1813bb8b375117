package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/RealFaceCode/ContextBrain/pkg/types"
)

// MarkdownParser recognises ATX and Setext headings, builds the heading
// tree and emits companion section elements for heading content.
type MarkdownParser struct{}

// NewMarkdownParser creates a Markdown parser.
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{}
}

var (
	reATXHeading = regexp.MustCompile(`^(#{1,6})\s+(.+?)(?:\s*#+\s*)?$`)
	reSetextH1   = regexp.MustCompile(`^=+\s*$`)
	reSetextH2   = regexp.MustCompile(`^-{2,}\s*$`)
	reFence      = regexp.MustCompile("^(```|~~~)")

	// Inline markup stripped from heading names: bold, italic, code
	// spans and links.
	reInline = regexp.MustCompile("\\*\\*([^*]+)\\*\\*|\\*([^*]+)\\*|`([^`]+)`|\\[([^\\]]+)\\]\\([^)]*\\)")
)

type mdHeading struct {
	level int
	text  string // raw heading text
	name  string // cleaned of inline markup
	line  int    // 1-based
}

// Parse extracts document structure from Markdown source.
func (p *MarkdownParser) Parse(content []byte, filePath string) ([]*types.Element, error) {
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
		Language:  "markdown",
		Metadata:  map[string]string{},
	}
	doc.ID = alloc.id(filePath, doc.Type, doc.Name, doc.StartLine)
	elements := []*types.Element{doc}

	headings := extractHeadings(lines)
	if len(headings) == 0 {
		return elements, nil
	}

	lastLine := lastContentLine(lines)

	// Stack of heading elements for parent resolution.
	type stacked struct {
		level int
		elem  *types.Element
	}
	var stack []stacked

	for i, h := range headings {
		name := h.name
		if name == "" {
			name = h.text
		}
		heading := &types.Element{
			Type:      types.TypeHeading,
			Name:      name,
			FilePath:  filePath,
			StartLine: h.line,
			EndLine:   h.line,
			Content:   h.text,
			Language:  "markdown",
			Metadata: map[string]string{
				"level":       strconv.Itoa(h.level),
				"raw_heading": h.text,
			},
		}
		heading.ID = alloc.id(filePath, heading.Type, heading.Name, heading.StartLine)

		for len(stack) > 0 && stack[len(stack)-1].level >= h.level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 {
			link(stack[len(stack)-1].elem, heading)
		} else {
			link(doc, heading)
		}
		stack = append(stack, stacked{level: h.level, elem: heading})
		elements = append(elements, heading)

		// Section: content after the heading up to (not including) the
		// next heading of level <= current, or end of file.
		sectionEnd := lastLine
		for j := i + 1; j < len(headings); j++ {
			if headings[j].level <= h.level {
				sectionEnd = headings[j].line - 1
				break
			}
		}
		if sectionEnd <= h.line {
			continue
		}
		body := sliceLines(lines, h.line, sectionEnd)
		if strings.TrimSpace(body) == "" {
			continue
		}
		section := &types.Element{
			Type:      types.TypeSection,
			Name:      name,
			FilePath:  filePath,
			StartLine: h.line + 1,
			EndLine:   sectionEnd,
			Content:   truncate(body, MaxContentBytes),
			Language:  "markdown",
			Signature: "h" + strconv.Itoa(h.level),
			Metadata:  map[string]string{"level": strconv.Itoa(h.level)},
		}
		section.ID = alloc.id(filePath, section.Type, section.Name, section.StartLine)
		link(heading, section)
		elements = append(elements, section)
	}

	return elements, nil
}

// extractHeadings scans lines for ATX and Setext headings, skipping
// fenced code blocks.
func extractHeadings(lines []string) []mdHeading {
	var headings []mdHeading
	inFence := false

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if reFence.MatchString(strings.TrimSpace(line)) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		if m := reATXHeading.FindStringSubmatch(line); m != nil {
			text := strings.TrimSpace(m[2])
			headings = append(headings, mdHeading{
				level: len(m[1]),
				text:  text,
				name:  stripInline(text),
				line:  i + 1,
			})
			continue
		}

		// Setext headings: a text line underlined with === or ---.
		if i+1 < len(lines) && strings.TrimSpace(line) != "" && !strings.HasPrefix(strings.TrimSpace(line), "#") {
			next := lines[i+1]
			level := 0
			if reSetextH1.MatchString(next) {
				level = 1
			} else if reSetextH2.MatchString(next) {
				level = 2
			}
			if level > 0 {
				text := strings.TrimSpace(line)
				headings = append(headings, mdHeading{
					level: level,
					text:  text,
					name:  stripInline(text),
					line:  i + 1,
				})
				i++ // skip the underline
			}
		}
	}
	return headings
}

// stripInline removes bold, italic, code-span and link markup from
// heading text, keeping the visible words.
func stripInline(text string) string {
	cleaned := reInline.ReplaceAllStringFunc(text, func(m string) string {
		groups := reInline.FindStringSubmatch(m)
		for _, g := range groups[1:] {
			if g != "" {
				return g
			}
		}
		return m
	})
	return strings.TrimSpace(cleaned)
}
