// Package treesitter implements grammars backed by tree-sitter parsers and queries.
package treesitter

import (
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	"gitlab.com/tozd/go/errors"

	"go.gopad.dev/go-highlight/language"
	"go.gopad.dev/go-highlight/types"
)

var _ types.Grammar = (*Grammar)(nil)

// Grammar parses text with a tree-sitter language and reports the captures of its highlights
// query as spans and the matches of its injections query as injections.
//
// Parsers and query cursors are pooled, so a Grammar is safe for concurrent use.
type Grammar struct {
	cfg *Configuration

	mu      sync.Mutex
	parsers []*tree_sitter.Parser
	cursors []*tree_sitter.QueryCursor
	closed  bool
}

// New compiles the queries of lang into a new [Grammar].
func New(lang language.Language) (*Grammar, error) {
	cfg, err := NewConfiguration(lang.Lang, lang.Name, lang.HighlightsQuery, lang.InjectionQuery, lang.LocalsQuery)
	if err != nil {
		return nil, err
	}
	return NewFromConfiguration(cfg)
}

// NewFromConfiguration creates a [Grammar] from an existing configuration.
// The grammar takes ownership of cfg and closes it in [Grammar.Close].
func NewFromConfiguration(cfg *Configuration) (*Grammar, error) {
	g := &Grammar{cfg: cfg}

	parser, err := g.newParser()
	if err != nil {
		cfg.Close()
		return nil, err
	}
	g.pushParser(parser)

	return g, nil
}

// Configuration returns the compiled queries of the grammar.
func (g *Grammar) Configuration() *Configuration {
	return g.cfg
}

func (g *Grammar) newParser() (*tree_sitter.Parser, error) {
	parser := tree_sitter.NewParser()
	if err := parser.SetLanguage(g.cfg.language); err != nil {
		parser.Close()
		return nil, errors.Errorf("error setting %s parser language: %w", g.cfg.languageName, err)
	}
	return parser, nil
}

func (g *Grammar) popParser() (*tree_sitter.Parser, error) {
	g.mu.Lock()
	if len(g.parsers) > 0 {
		parser := g.parsers[len(g.parsers)-1]
		g.parsers = g.parsers[:len(g.parsers)-1]
		g.mu.Unlock()
		return parser, nil
	}
	g.mu.Unlock()

	return g.newParser()
}

func (g *Grammar) pushParser(parser *tree_sitter.Parser) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		parser.Close()
		return
	}
	g.parsers = append(g.parsers, parser)
}

func (g *Grammar) popCursor() *tree_sitter.QueryCursor {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.cursors) == 0 {
		return tree_sitter.NewQueryCursor()
	}

	cursor := g.cursors[len(g.cursors)-1]
	g.cursors = g.cursors[:len(g.cursors)-1]
	return cursor
}

func (g *Grammar) pushCursor(cursor *tree_sitter.QueryCursor) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		cursor.Close()
		return
	}
	g.cursors = append(g.cursors, cursor)
}

// Parse parses text and runs the injections and highlights queries over the syntax tree.
//
// When several highlight patterns capture the same node, the capture of the last pattern is
// reported. Captures named injection.*, local.* or starting with an underscore produce no spans.
func (g *Grammar) Parse(text []byte) (types.ParseResult, error) {
	parser, err := g.popParser()
	if err != nil {
		return types.ParseResult{}, err
	}
	defer g.pushParser(parser)

	tree := parser.Parse(text, nil)
	if tree == nil {
		return types.ParseResult{}, errors.Errorf("%s parser returned no tree", g.cfg.languageName)
	}
	defer tree.Close()

	cursor := g.popCursor()
	defer g.pushCursor(cursor)

	var result types.ParseResult
	captures := newCapturesIter(cursor.Captures(g.cfg.query, tree.RootNode(), text))
	for {
		c, ok := captures.Next()
		if !ok {
			break
		}

		// injections
		if c.match.PatternIndex < g.cfg.localsPatternIndex {
			// Captures of a match arrive before the match is complete, so the content capture
			// may still be missing. The match is only removed once it produced an injection.
			injection, ok := g.cfg.injectionForMatch(c.match, text)
			if ok {
				c.match.Remove()
				result.Injections = append(result.Injections, injection)
			}
			continue
		}

		// locals
		if c.match.PatternIndex < g.cfg.highlightsPatternIndex {
			continue
		}

		// Keep iterating over later highlight patterns for the same node, the last one wins.
		node := c.node()
		for {
			next, ok := captures.Peek()
			if !ok {
				break
			}
			if nextNode := next.node(); !nextNode.Equals(node) || !g.cfg.highlightCaptures[next.captureIndex()] {
				break
			}
			c, _ = captures.Next()
		}

		index := c.captureIndex()
		if !g.cfg.highlightCaptures[index] {
			continue
		}

		result.Spans = append(result.Spans, types.Span{
			Start:   node.StartByte(),
			End:     node.EndByte(),
			Capture: g.cfg.captureNames[index],
		})
	}

	return result, nil
}

// Close releases the pooled parsers and cursors and the compiled queries.
// The grammar must not be used afterwards.
func (g *Grammar) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return
	}
	g.closed = true

	for _, parser := range g.parsers {
		parser.Close()
	}
	for _, cursor := range g.cursors {
		cursor.Close()
	}
	g.parsers = nil
	g.cursors = nil
	g.cfg.Close()
}
