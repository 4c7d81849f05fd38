package treesitter

import (
	"slices"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

type capture struct {
	match tree_sitter.QueryMatch
	index uint
}

// capturesIter iterates over the captures of a query and allows looking one capture ahead.
// Matches are copied since the underlying cursor reuses their capture slices.
type capturesIter struct {
	captures tree_sitter.QueryCaptures
	peeked   *capture
	done     bool
}

func newCapturesIter(captures tree_sitter.QueryCaptures) *capturesIter {
	return &capturesIter{captures: captures}
}

func (c *capturesIter) next() (capture, bool) {
	if c.done {
		return capture{}, false
	}

	match, index := c.captures.Next()
	if match == nil {
		c.done = true
		return capture{}, false
	}

	m := *match
	m.Captures = slices.Clone(match.Captures)
	return capture{match: m, index: index}, true
}

func (c *capturesIter) Next() (capture, bool) {
	if c.peeked != nil {
		peeked := *c.peeked
		c.peeked = nil
		return peeked, true
	}
	return c.next()
}

func (c *capturesIter) Peek() (capture, bool) {
	if c.peeked == nil {
		next, ok := c.next()
		if !ok {
			return capture{}, false
		}
		c.peeked = &next
	}
	return *c.peeked, true
}

func (c capture) node() tree_sitter.Node {
	return c.match.Captures[c.index].Node
}

func (c capture) captureIndex() uint {
	return uint(c.match.Captures[c.index].Index)
}
