// Package parser provides the language-aware element extractors and the
// registry that dispatches files to them.
//
// Four parsers cover the supported languages:
//
//   - PythonParser walks a full syntactic tree (tree-sitter) and emits
//     module, class, function, method, variable and import elements with
//     lexical parent/child links, signatures and docstrings.
//   - PatternParser handles the curly-brace family (JavaScript,
//     TypeScript, Java, C, C++, Go, Rust, ...) with regex-driven
//     extraction and brace matching for bodies.
//   - MarkdownParser extracts ATX and Setext headings, the heading tree
//     and companion section elements.
//   - GenericParser is the text fallback: one document element plus
//     comment blocks.
//
// Parsers are pure (no I/O) and finite. All elements carry
// deterministic ids; re-parsing an unchanged file yields identical ids.
//
//	reg := parser.NewRegistry()
//	elements, err := reg.Parse(content, "lib/a.py", "python")
package parser
