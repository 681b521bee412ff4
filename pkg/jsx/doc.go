// Package jsx parses JavaScript and TypeScript documents with tree-sitter and
// exposes the JSX facts the annotator needs: opening tags in document order
// with their ancestor chain, resolved tag names, static attribute values, and
// the nearest enclosing list-rendering .map call.
package jsx
