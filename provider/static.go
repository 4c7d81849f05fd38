// Package provider contains providers that resolve grammars by language name.
package provider

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"go.gopad.dev/go-highlight/grammar/rules"
	"go.gopad.dev/go-highlight/grammar/treesitter"
	"go.gopad.dev/go-highlight/internal/cache"
	"go.gopad.dev/go-highlight/language"
	"go.gopad.dev/go-highlight/types"
)

// Factory creates a grammar. A Static provider calls each factory at most once.
type Factory func() (types.Grammar, error)

// Ready returns a factory for an already created grammar.
func Ready(g types.Grammar) Factory {
	return func() (types.Grammar, error) {
		return g, nil
	}
}

// TreeSitter returns a factory compiling lang into a tree-sitter grammar.
func TreeSitter(lang language.Language) Factory {
	return func() (types.Grammar, error) {
		g, err := treesitter.New(lang)
		if err != nil {
			return nil, err
		}
		return g, nil
	}
}

// Normalize returns the canonical form of a language name.
func Normalize(language string) string {
	return strings.ToLower(strings.TrimSpace(language))
}

type entry struct {
	grammar types.Grammar
	err     error
}

// Static resolves grammars from a fixed set of factories.
// Grammars are created on first use and kept, so every lookup is resolved immediately.
type Static struct {
	mu        sync.RWMutex
	factories map[string]Factory
	aliases   map[string]string

	grammars *cache.Cache[entry]
	group    singleflight.Group
}

// Option configures a [Static] provider.
type Option func(*Static)

// WithAlias makes alias resolve to the grammar registered as name.
func WithAlias(alias string, name string) Option {
	return func(s *Static) {
		s.aliases[Normalize(alias)] = Normalize(name)
	}
}

// WithLanguages registers a tree-sitter factory and the aliases of every language.
func WithLanguages(langs ...language.Language) Option {
	return func(s *Static) {
		for _, lang := range langs {
			s.register(lang.Name, TreeSitter(lang), lang.Aliases...)
		}
	}
}

// WithRules registers compiled rules grammars under their names and aliases.
func WithRules(grammars ...*rules.Grammar) Option {
	return func(s *Static) {
		for _, g := range grammars {
			s.register(g.Name(), Ready(g), g.Aliases()...)
		}
	}
}

// NewStatic creates a provider for the given factories keyed by language name.
func NewStatic(factories map[string]Factory, opts ...Option) *Static {
	s := &Static{
		factories: make(map[string]Factory, len(factories)),
		aliases:   make(map[string]string),
		grammars:  cache.New[entry]("static-grammars", cache.NoExpiration, cache.DefaultCleanupInterval),
	}
	for name, factory := range factories {
		s.factories[Normalize(name)] = factory
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Static) register(name string, factory Factory, aliases ...string) {
	name = Normalize(name)
	s.factories[name] = factory
	for _, alias := range aliases {
		s.aliases[Normalize(alias)] = name
	}
}

// Register adds a factory at runtime. A grammar already created for name is replaced on next use.
func (s *Static) Register(name string, factory Factory, aliases ...string) {
	s.mu.Lock()
	s.register(name, factory, aliases...)
	s.mu.Unlock()

	s.grammars.Delete(context.Background(), Normalize(name))
}

// Languages returns the registered language names, without aliases.
func (s *Static) Languages() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.factories))
	for name := range s.factories {
		names = append(names, name)
	}
	return names
}

func (s *Static) resolve(language string) (string, Factory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	name := Normalize(language)
	if alias, ok := s.aliases[name]; ok {
		name = alias
	}
	factory, ok := s.factories[name]
	return name, factory, ok
}

// Get returns the grammar for language, creating it on first use.
// A factory error is reported as a failed lookup, and so is every later lookup of that language.
func (s *Static) Get(ctx context.Context, language string) *types.Lookup {
	name, factory, ok := s.resolve(language)
	if !ok {
		return types.NotFound()
	}

	if e, ok := s.grammars.Get(ctx, name); ok {
		return e.lookup()
	}

	v, _, _ := s.group.Do(name, func() (any, error) {
		if e, ok := s.grammars.Get(ctx, name); ok {
			return e, nil
		}

		g, err := factory()
		e := entry{grammar: g, err: err}
		s.grammars.Set(ctx, name, e, cache.NoExpiration)
		return e, nil
	})

	return v.(entry).lookup()
}

func (e entry) lookup() *types.Lookup {
	if e.err != nil {
		return types.Failed(e.err)
	}
	if e.grammar == nil {
		return types.NotFound()
	}
	return types.Found(e.grammar)
}
