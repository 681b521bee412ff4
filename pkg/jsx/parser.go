package jsx

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// Sentinel errors for parsing.
var (
	ErrSyntax     = errors.New("syntax error")
	ErrPoolType   = errors.New("unexpected type in parser pool")
	errNoRootNode = errors.New("parser produced no root node")
)

// SyntaxError reports malformed source. Offset is the byte offset of the
// first error or missing node in document order.
type SyntaxError struct {
	Grammar Grammar
	Offset  int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s source at byte %d", ErrSyntax, e.Grammar, e.Offset)
}

// Unwrap returns ErrSyntax.
func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}

// Parser parses JSX documents. Tree-sitter parsers are pooled per grammar,
// so a single Parser may be shared by concurrent callers.
type Parser struct {
	mu    sync.Mutex
	pools map[Grammar]*sync.Pool
}

// NewParser returns a parser for every supported grammar.
func NewParser() *Parser {
	return &Parser{pools: make(map[Grammar]*sync.Pool, len(languageFuncs))}
}

func (p *Parser) pool(g Grammar) (*sync.Pool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pool, ok := p.pools[g]; ok {
		return pool, nil
	}

	lang := Language(g)
	if lang == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGrammar, g)
	}

	pool := &sync.Pool{
		New: func() any {
			tsParser := sitter.NewParser()
			tsParser.SetLanguage(lang)

			return tsParser
		},
	}
	p.pools[g] = pool

	return pool, nil
}

// Parse parses src with the given grammar. The returned tree must be closed.
// Source that does not parse cleanly yields a *SyntaxError and no tree.
func (p *Parser) Parse(ctx context.Context, g Grammar, src []byte) (*Tree, error) {
	err := ctx.Err()
	if err != nil {
		return nil, err
	}

	pool, err := p.pool(g)
	if err != nil {
		return nil, err
	}

	tsParser, ok := pool.Get().(*sitter.Parser)
	if !ok {
		return nil, ErrPoolType
	}

	defer pool.Put(tsParser)

	tree, err := tsParser.ParseString(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("jsx parser: failed to parse: %w", err)
	}

	root := tree.RootNode()
	if root.IsNull() {
		tree.Close()

		return nil, errNoRootNode
	}

	if root.HasError() {
		offset := firstErrorOffset(root)
		tree.Close()

		return nil, &SyntaxError{Grammar: g, Offset: offset}
	}

	if offset, ok := firstMismatchedClose(root, src); ok {
		tree.Close()

		return nil, &SyntaxError{Grammar: g, Offset: offset}
	}

	return &Tree{tree: tree, root: root, src: src, grammar: g}, nil
}

// firstMismatchedClose finds a closing tag whose name differs from its
// opening tag. The grammars accept these but JSX does not.
func firstMismatchedClose(root sitter.Node, src []byte) (int, bool) {
	stack := []sitter.Node{root}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.Type() == nodeElement {
			open := field(n, "open_tag", nodeOpeningElement)
			closing := field(n, "close_tag", "jsx_closing_element")

			if !open.IsNull() && !closing.IsNull() &&
				compactName(src, open.ChildByFieldName("name")) != compactName(src, closing.ChildByFieldName("name")) {
				return int(closing.StartByte()), true
			}
		}

		mark := len(stack)

		for i := range n.NamedChildCount() {
			stack = append(stack, n.NamedChild(i))
		}

		slices.Reverse(stack[mark:])
	}

	return 0, false
}

func compactName(src []byte, n sitter.Node) string {
	return strings.Join(strings.Fields(nodeText(src, n)), "")
}

// firstErrorOffset finds the first ERROR or MISSING node in document order.
func firstErrorOffset(root sitter.Node) int {
	stack := []sitter.Node{root}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.IsMissing() || n.Type() == "ERROR" {
			return int(n.StartByte())
		}

		if !n.HasError() {
			continue
		}

		mark := len(stack)

		for i := range n.ChildCount() {
			stack = append(stack, n.Child(i))
		}

		slices.Reverse(stack[mark:])
	}

	return int(root.StartByte())
}
