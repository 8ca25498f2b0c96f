package scanner

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
)

// parseJavaScriptFile extracts structure from a JavaScript or JSX source
// file. The JavaScript grammar accepts JSX natively, so both extensions
// share it, and extraction reuses the TypeScript-family walker.
func parseJavaScriptFile(relPath string, source []byte) (*FileGraph, error) {
	return parseESFile(relPath, source, sitter.NewLanguage(javascript.Language()), "javascript")
}
