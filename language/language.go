// Package language describes tree-sitter languages together with their highlight queries.
package language

import (
	"unsafe"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Language is a tree-sitter language with the queries used to highlight it.
// InjectionQuery and LocalsQuery may be empty.
type Language struct {
	Name string
	// Aliases are alternative names the language is known by, like "golang" for "go".
	Aliases         []string
	HighlightsQuery []byte
	InjectionQuery  []byte
	LocalsQuery     []byte
	Lang            *tree_sitter.Language
}

func NewLanguage(name string, ptr unsafe.Pointer, highlightsQuery, injectionQuery, localsQuery []byte, aliases ...string) Language {
	return Language{
		Name:            name,
		Aliases:         aliases,
		HighlightsQuery: highlightsQuery,
		InjectionQuery:  injectionQuery,
		LocalsQuery:     localsQuery,
		Lang:            tree_sitter.NewLanguage(ptr),
	}
}

// Names returns the name of the language followed by its aliases.
func (l Language) Names() []string {
	return append([]string{l.Name}, l.Aliases...)
}
