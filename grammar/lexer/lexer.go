// Package lexer implements grammars backed by chroma lexers.
//
// Lexers produce a flat token stream, so these grammars never report injections.
package lexer

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"gitlab.com/tozd/go/errors"

	"go.gopad.dev/go-highlight/types"
)

// ErrUnknownLexer is returned by [New] for names chroma has no lexer for.
var ErrUnknownLexer = errors.Base("unknown lexer")

var _ types.Grammar = (*Grammar)(nil)

// Grammar highlights text with a chroma lexer. It is safe for concurrent use.
type Grammar struct {
	name  string
	lexer chroma.Lexer
}

// New returns a grammar for the chroma lexer with the given name, alias or file extension.
func New(name string) (*Grammar, error) {
	l := lexers.Get(name)
	if l == nil {
		return nil, errors.WithDetails(ErrUnknownLexer, "name", name)
	}

	return &Grammar{
		name:  l.Config().Name,
		lexer: chroma.Coalesce(l),
	}, nil
}

// Name returns the chroma name of the lexer.
func (g *Grammar) Name() string {
	return g.name
}

// Parse tokenises text and reports a span for every token with a highlighted category.
// Tokenising stops at the first token that does not line up with text.
func (g *Grammar) Parse(text []byte) (types.ParseResult, error) {
	it, err := g.lexer.Tokenise(&chroma.TokeniseOptions{State: "root"}, string(text))
	if err != nil {
		return types.ParseResult{}, errors.Errorf("error tokenising %s: %w", g.name, err)
	}

	var (
		result types.ParseResult
		offset int
	)
	for token := it(); token != chroma.EOF && offset < len(text); token = it() {
		value := token.Value
		// lexers configured with EnsureNL append a newline to the text
		if rest := len(text) - offset; len(value) > rest {
			value = value[:rest]
		}
		if !bytes.HasPrefix(text[offset:], []byte(value)) {
			break
		}

		if capture, ok := captureFor(token.Type); ok && value != "" {
			result.Spans = append(result.Spans, types.Span{
				Start:   uint(offset),
				End:     uint(offset + len(value)),
				Capture: capture,
			})
		}
		offset += len(value)
	}

	return result, nil
}

func captureFor(t chroma.TokenType) (string, bool) {
	switch {
	case t == chroma.KeywordType:
		return "type.builtin", true
	case t == chroma.KeywordConstant:
		return "constant.builtin", true
	case t.InCategory(chroma.Keyword):
		return "keyword", true

	case t == chroma.NameFunction, t == chroma.NameFunctionMagic:
		return "function", true
	case t == chroma.NameBuiltin, t == chroma.NameBuiltinPseudo:
		return "function.builtin", true
	case t == chroma.NameClass, t == chroma.NameException:
		return "type", true
	case t == chroma.NameConstant:
		return "constant", true
	case t == chroma.NameNamespace:
		return "module", true
	case t == chroma.NameTag:
		return "tag", true
	case t == chroma.NameAttribute, t == chroma.NameDecorator:
		return "attribute", true
	case t == chroma.NameLabel:
		return "label", true
	case t == chroma.NameProperty:
		return "property", true
	case t == chroma.NameVariable, t == chroma.NameVariableClass, t == chroma.NameVariableGlobal,
		t == chroma.NameVariableInstance, t == chroma.NameVariableMagic, t == chroma.NameVariableAnonymous:
		return "variable", true
	case t.InCategory(chroma.Name):
		return "", false

	case t == chroma.LiteralStringEscape:
		return "string.escape", true
	case t.InSubCategory(chroma.LiteralString):
		return "string", true
	case t.InSubCategory(chroma.LiteralNumber):
		return "number", true

	case t.InCategory(chroma.Operator):
		return "operator", true
	case t.InCategory(chroma.Punctuation):
		return "punctuation", true

	case t == chroma.CommentPreproc, t == chroma.CommentPreprocFile:
		return "keyword.directive", true
	case t.InCategory(chroma.Comment):
		return "comment", true

	case t == chroma.Error:
		return "error", true
	}

	return "", false
}

// Provider returns a provider resolving every language chroma has a lexer for.
// Lookups are always resolved immediately.
func Provider() types.Provider {
	return types.ProviderFunc(func(_ context.Context, language string) *types.Lookup {
		g, err := New(language)
		if err != nil {
			return types.NotFound()
		}
		return types.Found(g)
	})
}

// Detect guesses the language of a file from its name and, failing that, from its content.
// It returns the lowercased chroma name, or an empty string when nothing matches.
func Detect(filename string, source []byte) string {
	var l chroma.Lexer
	if filename != "" {
		l = lexers.Match(filepath.Base(filename))
	}
	if l == nil && len(source) > 0 {
		l = lexers.Analyse(string(source))
	}
	if l == nil {
		return ""
	}
	return strings.ToLower(l.Config().Name)
}
