// Package golang provides the Go language for the tree-sitter grammar.
package golang

import (
	_ "embed"

	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"

	"go.gopad.dev/go-highlight/grammar/treesitter"
	"go.gopad.dev/go-highlight/language"
)

var (
	//go:embed queries/highlights.scm
	highlightsQuery []byte

	//go:embed queries/injections.scm
	injectionsQuery []byte
)

// Language returns the Go language with its highlights and injections queries.
// Comments are injected as "comment" and regexp patterns as "regex".
func Language() language.Language {
	return language.NewLanguage("go", tree_sitter_go.Language(), highlightsQuery, injectionsQuery, nil, "golang")
}

// Grammar compiles a new Go grammar.
func Grammar() (*treesitter.Grammar, error) {
	return treesitter.New(Language())
}
