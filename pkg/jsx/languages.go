package jsx

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"unsafe"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/alexaandru/go-sitter-forest/javascript"
	"github.com/alexaandru/go-sitter-forest/tsx"
	"github.com/alexaandru/go-sitter-forest/typescript"
)

// Grammar names a tree-sitter grammar able to read JSX documents.
type Grammar string

// Supported grammars.
const (
	GrammarTSX        Grammar = "tsx"
	GrammarJavaScript Grammar = "javascript"
	GrammarTypeScript Grammar = "typescript"
)

// ErrUnknownGrammar is returned for grammar names this package does not ship.
var ErrUnknownGrammar = errors.New("unknown grammar")

// languageFuncs maps grammar names to their tree-sitter GetLanguage functions.
var languageFuncs = map[Grammar]func() unsafe.Pointer{
	GrammarTSX:        tsx.GetLanguage,
	GrammarJavaScript: javascript.GetLanguage,
	GrammarTypeScript: typescript.GetLanguage,
}

// extensionGrammars selects the grammar for a file extension. JSX files use
// the tsx grammar so TypeScript syntax inside them parses as well.
var extensionGrammars = map[string]Grammar{
	".tsx": GrammarTSX,
	".jsx": GrammarTSX,
	".js":  GrammarTSX,
	".mjs": GrammarTSX,
	".cjs": GrammarTSX,
	".ts":  GrammarTypeScript,
	".mts": GrammarTypeScript,
	".cts": GrammarTypeScript,
}

var languageCache sync.Map

// Language returns the tree-sitter language for the grammar, or nil if unsupported.
func Language(g Grammar) *sitter.Language {
	if cached, ok := languageCache.Load(g); ok {
		lang, castOK := cached.(*sitter.Language)
		if castOK {
			return lang
		}
	}

	fn, ok := languageFuncs[g]
	if !ok {
		return nil
	}

	lang := sitter.NewLanguage(fn())
	languageCache.Store(g, lang)

	return lang
}

// ParseGrammar validates a grammar name. The empty string selects no
// override and is returned unchanged.
func ParseGrammar(name string) (Grammar, error) {
	g := Grammar(strings.ToLower(strings.TrimSpace(name)))
	if g == "" {
		return "", nil
	}

	if _, ok := languageFuncs[g]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownGrammar, name)
	}

	return g, nil
}

// GrammarForPath picks a grammar from the file extension, defaulting to tsx.
func GrammarForPath(path string) Grammar {
	if g, ok := extensionGrammars[strings.ToLower(filepath.Ext(path))]; ok {
		return g
	}

	return GrammarTSX
}

// Grammars lists the supported grammar names in a stable order.
func Grammars() []Grammar {
	return []Grammar{GrammarTSX, GrammarJavaScript, GrammarTypeScript}
}
