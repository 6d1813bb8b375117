// Package types provides shared type definitions for ContextBrain.
//
// The central type is Element, the uniform record every parser produces:
//
//	elem := &types.Element{
//	    Type:      types.TypeFunction,
//	    Name:      "greet",
//	    FilePath:  "lib/a.py",
//	    StartLine: 1,
//	    EndLine:   3,
//	    Signature: "(name: str) -> str",
//	}
//	elem.ID = types.ElementID(elem.FilePath, elem.Type, elem.Name, elem.StartLine, 0)
//
// Element ids are a pure function of (file_path, type, name, start_line),
// so re-parsing an unchanged file yields identical ids. Parsers append a
// within-file ordinal to disambiguate the rare case of two same-named
// elements starting on the same line.
//
// The package also defines the query result shapes (SearchResult,
// FileContext, StructureNode, DependencyReport), the project manifest and
// pass report, and the sentinel errors shared by all layers.
package types
