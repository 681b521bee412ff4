package jsx

import (
	"html"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// Attribute names with special meaning to the annotator.
const (
	AttrKey   = "key"
	AttrSrc   = "src"
	AttrClass = "className"
)

// Attributes is what the annotator needs from a tag's attribute list.
// Src and Class are nil unless the value is a static string.
type Attributes struct {
	HasKey bool
	Src    *string
	Class  *string
}

// ExtractAttributes scans the attributes of tag in source order. When a name
// repeats, the last static value wins.
func ExtractAttributes(t *Tree, tag Tag) Attributes {
	var attrs Attributes

	src := t.Source()

	for _, attr := range tag.Attributes() {
		parts := namedChildren(attr)
		if len(parts) == 0 {
			continue
		}

		switch parts[0].Type() {
		case nodePropertyIdent, nodeIdentifier, nodeJSXIdentifier:
		default:
			continue
		}

		var value sitter.Node
		if len(parts) > 1 {
			value = parts[1]
		}

		switch nodeText(src, parts[0]) {
		case AttrKey:
			attrs.HasKey = true
		case AttrSrc:
			if s, ok := staticString(src, value); ok {
				attrs.Src = &s
			}
		case AttrClass:
			if s, ok := staticString(src, value); ok {
				attrs.Class = &s
			}
		}
	}

	return attrs
}

// staticString returns the value of a JSX string attribute or of an
// expression container holding nothing but a string literal.
func staticString(src []byte, value sitter.Node) (string, bool) {
	if value.IsNull() {
		return "", false
	}

	switch value.Type() {
	case nodeString:
		return html.UnescapeString(unquote(nodeText(src, value))), true
	case nodeExpression:
		inner := namedChildren(value)
		if len(inner) != 1 {
			return "", false
		}

		expr := inner[0]
		for expr.Type() == nodeParenthesized {
			nested := namedChildren(expr)
			if len(nested) != 1 {
				return "", false
			}

			expr = nested[0]
		}

		if expr.Type() != nodeString {
			return "", false
		}

		return unescapeJS(unquote(nodeText(src, expr))), true
	default:
		return "", false
	}
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] { //nolint:mnd // two quotes
		return s[1 : len(s)-1]
	}

	return s
}
