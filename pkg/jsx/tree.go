package jsx

import (
	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// Range is a half-open byte range in the source.
type Range struct {
	Start int
	End   int
}

// Tree is a parsed document. Close releases the underlying tree-sitter tree.
type Tree struct {
	tree    *sitter.Tree
	root    sitter.Node
	src     []byte
	grammar Grammar
}

// Close releases the tree. It is safe to call more than once.
func (t *Tree) Close() {
	if t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}

// Root returns the root node.
func (t *Tree) Root() sitter.Node {
	return t.root
}

// Source returns the parsed bytes.
func (t *Tree) Source() []byte {
	return t.src
}

// Grammar returns the grammar the tree was parsed with.
func (t *Tree) Grammar() Grammar {
	return t.grammar
}

// Text returns the source text of n.
func (t *Tree) Text(n sitter.Node) string {
	return nodeText(t.src, n)
}

func nodeText(src []byte, n sitter.Node) string {
	if n.IsNull() {
		return ""
	}

	r := rangeOf(n)
	if r.Start < 0 || r.End > len(src) || r.Start > r.End {
		return ""
	}

	return string(src[r.Start:r.End])
}

func rangeOf(n sitter.Node) Range {
	if n.IsNull() {
		return Range{}
	}

	return Range{Start: int(n.StartByte()), End: int(n.EndByte())}
}

// namedChildren returns the named children of n, skipping comments.
func namedChildren(n sitter.Node) []sitter.Node {
	var out []sitter.Node

	for i := range n.NamedChildCount() {
		child := n.NamedChild(i)
		if child.Type() == nodeComment {
			continue
		}

		out = append(out, child)
	}

	return out
}

// field returns the child for a field name, falling back to the first named
// child of one of the given kinds for grammars without that field.
func field(n sitter.Node, name string, kinds ...string) sitter.Node {
	child := n.ChildByFieldName(name)
	if !child.IsNull() || len(kinds) == 0 {
		return child
	}

	for i := range n.NamedChildCount() {
		c := n.NamedChild(i)
		for _, kind := range kinds {
			if c.Type() == kind {
				return c
			}
		}
	}

	return sitter.Node{}
}
