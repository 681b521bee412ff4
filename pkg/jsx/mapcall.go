package jsx

import (
	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// MapMethod is the array method whose callbacks render lists.
const MapMethod = "map"

// FindEnclosingMapCall walks ancestors from the innermost outward and
// returns the byte range of the nearest call of the form x.map(...).
func FindEnclosingMapCall(src []byte, ancestors []sitter.Node) (Range, bool) {
	for i := len(ancestors) - 1; i >= 0; i-- {
		if isMapCall(src, ancestors[i]) {
			return rangeOf(ancestors[i]), true
		}
	}

	return Range{}, false
}

func isMapCall(src []byte, n sitter.Node) bool {
	if n.Type() != nodeCallExpression {
		return false
	}

	callee := n.ChildByFieldName("function")
	if callee.IsNull() || callee.Type() != nodeMemberExpression {
		return false
	}

	property := callee.ChildByFieldName("property")

	return !property.IsNull() && nodeText(src, property) == MapMethod
}
