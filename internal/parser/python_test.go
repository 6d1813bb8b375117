package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RealFaceCode/ContextBrain/pkg/types"
)

func findByName(elements []*types.Element, t types.ElementType, name string) *types.Element {
	for _, e := range elements {
		if e.Type == t && e.Name == name {
			return e
		}
	}
	return nil
}

func TestPythonParser_FunctionExtraction(t *testing.T) {
	content := `def greet(name: str) -> str:
    """Return a greeting."""
    return f"Hello, {name}"
`
	p := NewPythonParser()
	elements, err := p.Parse([]byte(content), "lib/a.py")
	require.NoError(t, err)
	require.Len(t, elements, 2)

	module := findByName(elements, types.TypeModule, "a")
	require.NotNil(t, module)
	assert.Equal(t, 1, module.StartLine)
	assert.Equal(t, 3, module.EndLine)

	fn := findByName(elements, types.TypeFunction, "greet")
	require.NotNil(t, fn)
	assert.Equal(t, "(name: str) -> str", fn.Signature)
	assert.Equal(t, "Return a greeting.", fn.Docstring)
	assert.Equal(t, 1, fn.StartLine)
	assert.Equal(t, 3, fn.EndLine)
	assert.Equal(t, module.ID, fn.ParentID)
	assert.Contains(t, module.ChildrenIDs, fn.ID)
}

func TestPythonParser_ClassWithMethods(t *testing.T) {
	content := `class Greeter(Base):
    """Says hello."""

    def __init__(self, name):
        self.name = name

    def greet(self):
        return "hi " + self.name
`
	p := NewPythonParser()
	elements, err := p.Parse([]byte(content), "lib/greeter.py")
	require.NoError(t, err)

	cls := findByName(elements, types.TypeClass, "Greeter")
	require.NotNil(t, cls)
	assert.Equal(t, "Says hello.", cls.Docstring)
	assert.Equal(t, "Base", cls.Metadata["bases"])

	init := findByName(elements, types.TypeMethod, "__init__")
	require.NotNil(t, init)
	assert.Equal(t, cls.ID, init.ParentID)

	greet := findByName(elements, types.TypeMethod, "greet")
	require.NotNil(t, greet)
	assert.Equal(t, cls.ID, greet.ParentID)
	assert.Equal(t, []string{init.ID, greet.ID}, cls.ChildrenIDs)
}

func TestPythonParser_Imports(t *testing.T) {
	content := `import os
import sys as system
from pathlib import Path
from typing import List, Optional
`
	p := NewPythonParser()
	elements, err := p.Parse([]byte(content), "lib/imports.py")
	require.NoError(t, err)

	var imports []*types.Element
	for _, e := range elements {
		if e.Type == types.TypeImport {
			imports = append(imports, e)
		}
	}
	require.Len(t, imports, 5)

	osImp := findByName(elements, types.TypeImport, "os")
	require.NotNil(t, osImp)
	assert.Equal(t, []string{"os"}, osImp.Dependencies)
	assert.Equal(t, "os", osImp.Metadata["module"])

	pathImp := findByName(elements, types.TypeImport, "pathlib.Path")
	require.NotNil(t, pathImp)
	assert.Equal(t, "pathlib", pathImp.Metadata["module"])
	assert.Equal(t, "Path", pathImp.Metadata["symbol"])

	listImp := findByName(elements, types.TypeImport, "typing.List")
	require.NotNil(t, listImp)
	optImp := findByName(elements, types.TypeImport, "typing.Optional")
	require.NotNil(t, optImp)
}

func TestPythonParser_Decorators(t *testing.T) {
	content := `@cached
@retry(times=3)
def fetch(url):
    return url
`
	p := NewPythonParser()
	elements, err := p.Parse([]byte(content), "lib/dec.py")
	require.NoError(t, err)

	fn := findByName(elements, types.TypeFunction, "fetch")
	require.NotNil(t, fn)
	assert.Contains(t, fn.Metadata["decorators"], "@cached")
	assert.Contains(t, fn.Metadata["decorators"], "@retry(times=3)")
}

func TestPythonParser_TopLevelVariables(t *testing.T) {
	content := `VERSION = "1.0"
count: int = 0

def f():
    inner = 1
`
	p := NewPythonParser()
	elements, err := p.Parse([]byte(content), "lib/vars.py")
	require.NoError(t, err)

	version := findByName(elements, types.TypeVariable, "VERSION")
	require.NotNil(t, version)

	count := findByName(elements, types.TypeVariable, "count")
	require.NotNil(t, count)

	// Function-local assignments stay out of the element set.
	assert.Nil(t, findByName(elements, types.TypeVariable, "inner"))
}

func TestPythonParser_EmptyFile(t *testing.T) {
	p := NewPythonParser()
	elements, err := p.Parse([]byte(""), "lib/empty.py")
	require.NoError(t, err)
	require.Len(t, elements, 1)
	assert.Equal(t, types.TypeModule, elements[0].Type)
	assert.Equal(t, "", elements[0].Content)
	assert.Equal(t, 1, elements[0].StartLine)
	assert.Equal(t, 1, elements[0].EndLine)
}

func TestPythonParser_DeterministicIDs(t *testing.T) {
	content := `def greet(name):
    return name
`
	p := NewPythonParser()
	first, err := p.Parse([]byte(content), "lib/a.py")
	require.NoError(t, err)
	second, err := p.Parse([]byte(content), "lib/a.py")
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestPythonParser_SpanInvariants(t *testing.T) {
	content := `import os

class A:
    def m(self):
        pass

def f():
    pass
`
	p := NewPythonParser()
	elements, err := p.Parse([]byte(content), "lib/span.py")
	require.NoError(t, err)

	byID := make(map[string]*types.Element)
	for _, e := range elements {
		byID[e.ID] = e
	}
	for _, e := range elements {
		assert.LessOrEqual(t, e.StartLine, e.EndLine, "element %s", e.Name)
		if e.ParentID != "" {
			parent, ok := byID[e.ParentID]
			require.True(t, ok, "parent of %s must exist", e.Name)
			assert.Equal(t, e.FilePath, parent.FilePath)
		}
	}
}
