package highlight

import (
	"unsafe"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"go.gopad.dev/go-highlight/types"
)

type (
	Span         = types.Span
	Injection    = types.Injection
	ParseResult  = types.ParseResult
	Grammar      = types.Grammar
	Provider     = types.Provider
	ProviderFunc = types.ProviderFunc
	Lookup       = types.Lookup
)

func NewLanguage(ptr unsafe.Pointer) *tree_sitter.Language {
	return tree_sitter.NewLanguage(ptr)
}
