package jsx

import (
	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// Node kinds produced by the JavaScript family of grammars.
const (
	nodeElement          = "jsx_element"
	nodeOpeningElement   = "jsx_opening_element"
	nodeSelfClosing      = "jsx_self_closing_element"
	nodeAttribute        = "jsx_attribute"
	nodeExpression       = "jsx_expression"
	nodeNamespaceName    = "jsx_namespace_name"
	nodeIdentifier       = "identifier"
	nodeJSXIdentifier    = "jsx_identifier"
	nodePropertyIdent    = "property_identifier"
	nodeThis             = "this"
	nodeMemberExpression = "member_expression"
	nodeNestedIdentifier = "nested_identifier"
	nodeCallExpression   = "call_expression"
	nodeString           = "string"
	nodeParenthesized    = "parenthesized_expression"
	nodeTypeArguments    = "type_arguments"
	nodeComment          = "comment"
)

// Tag is one JSX opening tag found by Walk.
type Tag struct {
	// Node is the jsx_opening_element or jsx_self_closing_element.
	Node sitter.Node
	// Element is the full element: the parent jsx_element for an opening
	// tag, or Node itself for a self-closing one.
	Element sitter.Node
	// Name is the tag name node.
	Name sitter.Node
	// Ancestors holds the structural ancestors of Node, innermost last.
	// The slice is reused by Walk and is only valid during the callback.
	Ancestors []sitter.Node
}

// SelfClosing reports whether the tag has no separate closing tag.
func (t Tag) SelfClosing() bool {
	return t.Node.Type() == nodeSelfClosing
}

// ElementRange is the byte range of the whole element.
func (t Tag) ElementRange() Range {
	return rangeOf(t.Element)
}

// OpeningRange is the byte range of the opening tag alone.
func (t Tag) OpeningRange() Range {
	return rangeOf(t.Node)
}

// InsertOffset is where new attributes go so they precede every existing
// one: right after the tag name, or after its type arguments when present.
func (t Tag) InsertOffset() int {
	end := int(t.Name.EndByte())

	args := field(t.Node, "type_arguments", nodeTypeArguments)
	if !args.IsNull() && int(args.StartByte()) >= end {
		end = int(args.EndByte())
	}

	return end
}

// Attributes returns the jsx_attribute children of the tag in source order.
func (t Tag) Attributes() []sitter.Node {
	var attrs []sitter.Node

	for i := range t.Node.NamedChildCount() {
		child := t.Node.NamedChild(i)
		if child.Type() == nodeAttribute {
			attrs = append(attrs, child)
		}
	}

	return attrs
}

type frame struct {
	children []sitter.Node
	next     int
}

// Walk calls fn for every named JSX opening tag in document pre-order.
// Fragments have no name and are not reported.
func Walk(t *Tree, fn func(Tag)) {
	root := t.Root()
	if root.IsNull() {
		return
	}

	visit(root, nil, fn)

	stack := []frame{{children: allNamed(root)}}
	ancestors := []sitter.Node{root}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next >= len(top.children) {
			stack = stack[:len(stack)-1]
			ancestors = ancestors[:len(ancestors)-1]

			continue
		}

		child := top.children[top.next]
		top.next++

		visit(child, ancestors, fn)

		stack = append(stack, frame{children: allNamed(child)})
		ancestors = append(ancestors, child)
	}
}

func allNamed(n sitter.Node) []sitter.Node {
	count := n.NamedChildCount()
	if count == 0 {
		return nil
	}

	out := make([]sitter.Node, 0, count)
	for i := range count {
		out = append(out, n.NamedChild(i))
	}

	return out
}

func visit(n sitter.Node, ancestors []sitter.Node, fn func(Tag)) {
	kind := n.Type()
	if kind != nodeOpeningElement && kind != nodeSelfClosing {
		return
	}

	name := n.ChildByFieldName("name")
	if name.IsNull() {
		return
	}

	element := n
	if kind == nodeOpeningElement && len(ancestors) > 0 {
		if parent := ancestors[len(ancestors)-1]; parent.Type() == nodeElement {
			element = parent
		}
	}

	fn(Tag{Node: n, Element: element, Name: name, Ancestors: ancestors})
}
