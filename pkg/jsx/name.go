package jsx

import (
	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// TagName is the shape of a JSX tag name. It is one of SimpleName,
// DottedName or OtherName.
type TagName interface {
	tagName()
}

// SimpleName is a plain identifier such as Foo or div.
type SimpleName struct {
	Ident string
}

// DottedName is a member access such as Foo.Bar.
type DottedName struct {
	Object   TagName
	Property string
}

// OtherName covers namespaced names (svg:rect) and unrecognized shapes.
type OtherName struct{}

func (SimpleName) tagName() {}
func (DottedName) tagName() {}
func (OtherName) tagName()  {}

// Resolve renders a tag name. Simple names give their identifier, dotted
// names join their parts with dots, anything else gives "".
func Resolve(name TagName) string {
	switch n := name.(type) {
	case SimpleName:
		return n.Ident
	case DottedName:
		return Resolve(n.Object) + "." + n.Property
	default:
		return ""
	}
}

// NameOf maps a tag name node to its TagName shape.
func NameOf(src []byte, n sitter.Node) TagName {
	if n.IsNull() {
		return OtherName{}
	}

	switch n.Type() {
	case nodeIdentifier, nodeJSXIdentifier, nodeThis:
		return SimpleName{Ident: nodeText(src, n)}
	case nodeMemberExpression, nodeNestedIdentifier:
		object := n.ChildByFieldName("object")
		property := n.ChildByFieldName("property")

		if object.IsNull() || property.IsNull() {
			parts := namedChildren(n)
			if len(parts) < 2 { //nolint:mnd // object and property
				return OtherName{}
			}

			object, property = parts[0], parts[len(parts)-1]
		}

		return DottedName{Object: NameOf(src, object), Property: nodeText(src, property)}
	default:
		return OtherName{}
	}
}

// ResolveName resolves the name of a tag in one step.
func ResolveName(t *Tree, tag Tag) string {
	return Resolve(NameOf(t.Source(), tag.Name))
}
