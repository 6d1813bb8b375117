package parser

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/RealFaceCode/ContextBrain/pkg/types"
)

// PythonParser walks a full syntactic tree and emits module, class,
// function, method, variable and import elements with lexical
// parent/child links.
type PythonParser struct{}

// NewPythonParser creates a Python parser.
func NewPythonParser() *PythonParser {
	return &PythonParser{}
}

// Parse extracts elements from Python source.
func (p *PythonParser) Parse(content []byte, filePath string) ([]*types.Element, error) {
	filePath = types.NormalizePath(filePath)
	lines := strings.Split(string(content), "\n")
	alloc := newIDAllocator()

	module := &types.Element{
		Type:      types.TypeModule,
		Name:      stemOf(filePath),
		FilePath:  filePath,
		StartLine: 1,
		EndLine:   maxInt(1, lastContentLine(lines)),
		Content:   truncate(string(content), MaxContentBytes),
		Language:  "python",
		Metadata:  map[string]string{},
	}
	module.ID = alloc.id(filePath, module.Type, module.Name, module.StartLine)

	if len(strings.TrimSpace(string(content))) == 0 {
		return []*types.Element{module}, nil
	}

	sp := sitter.NewParser()
	sp.SetLanguage(python.GetLanguage())
	tree, err := sp.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrParse, err)
	}
	defer tree.Close()

	ex := &pyExtractor{
		source:   content,
		lines:    lines,
		filePath: filePath,
		alloc:    alloc,
		elements: []*types.Element{module},
	}
	ex.walkBody(tree.RootNode(), module, false)

	return ex.elements, nil
}

type pyExtractor struct {
	source   []byte
	lines    []string
	filePath string
	alloc    *idAllocator
	elements []*types.Element
}

// walkBody visits the direct statements of a module or class body.
// insideClass switches callables from function to method.
func (e *pyExtractor) walkBody(body *sitter.Node, parent *types.Element, insideClass bool) {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		node := body.NamedChild(i)
		e.visitStatement(node, parent, insideClass, nil)
	}
}

func (e *pyExtractor) visitStatement(node *sitter.Node, parent *types.Element, insideClass bool, decorators []string) {
	switch node.Type() {
	case "decorated_definition":
		var decs []string
		var def *sitter.Node
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child.Type() == "decorator" {
				decs = append(decs, strings.TrimSpace(child.Content(e.source)))
			} else {
				def = child
			}
		}
		if def != nil {
			e.visitStatement(def, parent, insideClass, decs)
		}
	case "class_definition":
		e.extractClass(node, parent, decorators)
	case "function_definition":
		e.extractFunction(node, parent, insideClass, decorators)
	case "expression_statement":
		if !insideClass {
			e.extractAssignment(node, parent)
		}
	case "import_statement", "import_from_statement":
		if !insideClass {
			e.extractImports(node, parent)
		}
	}
}

func (e *pyExtractor) extractClass(node *sitter.Node, parent *types.Element, decorators []string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	start := int(node.StartPoint().Row) + 1
	end := int(node.EndPoint().Row) + 1

	elem := &types.Element{
		Type:      types.TypeClass,
		Name:      nameNode.Content(e.source),
		FilePath:  e.filePath,
		StartLine: start,
		EndLine:   end,
		Content:   truncate(sliceLines(e.lines, start-1, end), MaxContentBytes),
		Language:  "python",
		Docstring: e.bodyDocstring(node),
		Metadata:  map[string]string{},
	}
	if bases := node.ChildByFieldName("superclasses"); bases != nil {
		elem.Metadata["bases"] = strings.Trim(bases.Content(e.source), "()")
	}
	if len(decorators) > 0 {
		elem.Metadata["decorators"] = strings.Join(decorators, ",")
	}
	elem.ID = e.alloc.id(e.filePath, elem.Type, elem.Name, elem.StartLine)
	link(parent, elem)
	e.elements = append(e.elements, elem)

	if body := node.ChildByFieldName("body"); body != nil {
		e.walkBody(body, elem, true)
	}
}

func (e *pyExtractor) extractFunction(node *sitter.Node, parent *types.Element, insideClass bool, decorators []string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	start := int(node.StartPoint().Row) + 1
	end := int(node.EndPoint().Row) + 1

	elemType := types.TypeFunction
	if insideClass {
		elemType = types.TypeMethod
	}

	elem := &types.Element{
		Type:      elemType,
		Name:      nameNode.Content(e.source),
		FilePath:  e.filePath,
		StartLine: start,
		EndLine:   end,
		Content:   truncate(sliceLines(e.lines, start-1, end), MaxContentBytes),
		Language:  "python",
		Signature: e.functionSignature(node),
		Docstring: e.bodyDocstring(node),
		Metadata:  map[string]string{},
	}
	if len(decorators) > 0 {
		elem.Metadata["decorators"] = strings.Join(decorators, ",")
	}
	elem.ID = e.alloc.id(e.filePath, elem.Type, elem.Name, elem.StartLine)
	link(parent, elem)
	e.elements = append(e.elements, elem)

	// Nested defs keep their lexical parent; they stay functions rather
	// than methods.
	if body := node.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			child := body.NamedChild(i)
			if child.Type() == "function_definition" || child.Type() == "class_definition" || child.Type() == "decorated_definition" {
				e.visitStatement(child, elem, false, nil)
			}
		}
	}
}

// extractAssignment emits variable elements for top-level assignments.
func (e *pyExtractor) extractAssignment(node *sitter.Node, parent *types.Element) {
	if node.NamedChildCount() == 0 {
		return
	}
	assign := node.NamedChild(0)
	if assign.Type() != "assignment" {
		return
	}
	left := assign.ChildByFieldName("left")
	if left == nil || left.Type() != "identifier" {
		return
	}
	start := int(node.StartPoint().Row) + 1
	end := int(node.EndPoint().Row) + 1

	elem := &types.Element{
		Type:      types.TypeVariable,
		Name:      left.Content(e.source),
		FilePath:  e.filePath,
		StartLine: start,
		EndLine:   end,
		Content:   truncate(sliceLines(e.lines, start-1, end), MaxContentBytes),
		Language:  "python",
		Metadata:  map[string]string{},
	}
	if typeNode := assign.ChildByFieldName("type"); typeNode != nil {
		elem.Metadata["annotation"] = typeNode.Content(e.source)
	}
	elem.ID = e.alloc.id(e.filePath, elem.Type, elem.Name, elem.StartLine)
	link(parent, elem)
	e.elements = append(e.elements, elem)
}

// extractImports emits one import element per imported symbol, capturing
// the module and symbol names.
func (e *pyExtractor) extractImports(node *sitter.Node, parent *types.Element) {
	start := int(node.StartPoint().Row) + 1
	end := int(node.EndPoint().Row) + 1
	line := sliceLines(e.lines, start-1, end)

	emit := func(module, symbol string) {
		name := module
		if symbol != "" {
			name = module + "." + symbol
		}
		elem := &types.Element{
			Type:         types.TypeImport,
			Name:         name,
			FilePath:     e.filePath,
			StartLine:    start,
			EndLine:      end,
			Content:      strings.TrimSpace(line),
			Language:     "python",
			Dependencies: []string{module},
			Metadata:     map[string]string{"module": module},
		}
		if symbol != "" {
			elem.Metadata["symbol"] = symbol
		}
		elem.ID = e.alloc.id(e.filePath, elem.Type, elem.Name, elem.StartLine)
		link(parent, elem)
		e.elements = append(e.elements, elem)
	}

	if node.Type() == "import_statement" {
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			switch child.Type() {
			case "dotted_name":
				emit(child.Content(e.source), "")
			case "aliased_import":
				if name := child.ChildByFieldName("name"); name != nil {
					emit(name.Content(e.source), "")
				}
			}
		}
		return
	}

	// from module import a, b
	moduleNode := node.ChildByFieldName("module_name")
	if moduleNode == nil {
		return
	}
	module := moduleNode.Content(e.source)
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.StartByte() == moduleNode.StartByte() && child.EndByte() == moduleNode.EndByte() {
			continue
		}
		switch child.Type() {
		case "dotted_name":
			emit(module, child.Content(e.source))
		case "aliased_import":
			if name := child.ChildByFieldName("name"); name != nil {
				emit(module, name.Content(e.source))
			}
		case "wildcard_import":
			emit(module, "*")
		}
	}
}

// bodyDocstring returns the leading string literal of a def/class body.
func (e *pyExtractor) bodyDocstring(node *sitter.Node) string {
	body := node.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str.Type() != "string" {
		return ""
	}
	return cleanPyString(str.Content(e.source))
}

// functionSignature renders "(params) -> ret" from the def node.
func (e *pyExtractor) functionSignature(node *sitter.Node) string {
	var sig strings.Builder
	if params := node.ChildByFieldName("parameters"); params != nil {
		sig.WriteString(params.Content(e.source))
	} else {
		sig.WriteString("()")
	}
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		sig.WriteString(" -> ")
		sig.WriteString(ret.Content(e.source))
	}
	return sig.String()
}

// cleanPyString strips quotes and prefixes from a Python string literal.
func cleanPyString(s string) string {
	s = strings.TrimLeft(s, "rRbBuUfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			return strings.TrimSpace(s[len(q) : len(s)-len(q)])
		}
	}
	return strings.TrimSpace(s)
}

// lastContentLine returns the 1-based number of the last line, ignoring
// a trailing newline's empty remainder.
func lastContentLine(lines []string) int {
	n := len(lines)
	if n > 1 && lines[n-1] == "" {
		return n - 1
	}
	return n
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
