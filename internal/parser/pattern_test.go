package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RealFaceCode/ContextBrain/pkg/types"
)

func TestPatternParser_Functions(t *testing.T) {
	content := `function add(a, b) {
  return a + b;
}

async function fetchData(url) {
  return fetch(url);
}

const double = (x) => x * 2;
`
	p := NewPatternParser()
	elements, err := p.Parse([]byte(content), "src/util.js")
	require.NoError(t, err)

	add := findByName(elements, types.TypeFunction, "add")
	require.NotNil(t, add)
	assert.Equal(t, 1, add.StartLine)
	assert.Equal(t, 3, add.EndLine)
	assert.Equal(t, "(a, b)", add.Signature)

	fetchData := findByName(elements, types.TypeFunction, "fetchData")
	require.NotNil(t, fetchData)
	assert.Equal(t, "true", fetchData.Metadata["async"])

	double := findByName(elements, types.TypeFunction, "double")
	require.NotNil(t, double)
	assert.Equal(t, "true", double.Metadata["arrow"])
	assert.Equal(t, 9, double.StartLine)
	assert.Equal(t, 9, double.EndLine)
}

func TestPatternParser_Class(t *testing.T) {
	content := `class Greeter extends Base {
  greet() {
    return "hi";
  }
}
`
	p := NewPatternParser()
	elements, err := p.Parse([]byte(content), "src/greeter.js")
	require.NoError(t, err)

	cls := findByName(elements, types.TypeClass, "Greeter")
	require.NotNil(t, cls)
	assert.Equal(t, "Base", cls.Metadata["extends"])
	assert.Equal(t, 1, cls.StartLine)
	assert.Equal(t, 5, cls.EndLine)
}

func TestPatternParser_ImportsAndExports(t *testing.T) {
	content := `import fs from "fs";
import { join } from "path";
const express = require("express");
export { handler, router };
export default app;
`
	p := NewPatternParser()
	elements, err := p.Parse([]byte(content), "src/app.js")
	require.NoError(t, err)

	var imports, exports []*types.Element
	for _, e := range elements {
		switch e.Type {
		case types.TypeImport:
			imports = append(imports, e)
		case types.TypeExport:
			exports = append(exports, e)
		}
	}
	require.Len(t, imports, 3)
	require.Len(t, exports, 2)

	assert.Equal(t, []string{"fs"}, imports[0].Dependencies)
	assert.Equal(t, []string{"path"}, imports[1].Dependencies)
	assert.Equal(t, []string{"express"}, imports[2].Dependencies)

	assert.ElementsMatch(t, []string{"handler", "router"}, exports[0].Dependencies)
	assert.Equal(t, []string{"app"}, exports[1].Dependencies)
}

func TestPatternParser_TopLevelVariables(t *testing.T) {
	content := `const MAX = 10;
let counter = 0;
var legacy = true;
`
	p := NewPatternParser()
	elements, err := p.Parse([]byte(content), "src/vars.js")
	require.NoError(t, err)

	maxVar := findByName(elements, types.TypeVariable, "MAX")
	require.NotNil(t, maxVar)
	assert.Equal(t, "const", maxVar.Metadata["kind"])

	require.NotNil(t, findByName(elements, types.TypeVariable, "counter"))
	require.NotNil(t, findByName(elements, types.TypeVariable, "legacy"))
}

func TestPatternParser_UnbalancedBracesSkipped(t *testing.T) {
	content := `function broken(a) {
  if (a) {
    return a;
`
	p := NewPatternParser()
	elements, err := p.Parse([]byte(content), "src/broken.js")
	require.NoError(t, err)

	// The unbalanced function is skipped, not mis-bracketed.
	assert.Nil(t, findByName(elements, types.TypeFunction, "broken"))
}

func TestPatternParser_EmptyFile(t *testing.T) {
	p := NewPatternParser()
	elements, err := p.Parse([]byte(""), "src/empty.js")
	require.NoError(t, err)
	require.Len(t, elements, 1)
	assert.Equal(t, types.TypeModule, elements[0].Type)
}
