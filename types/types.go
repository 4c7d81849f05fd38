package types

import "context"

// Span is a highlighted region of source text.
// Start is inclusive, End is exclusive, both are byte offsets.
type Span struct {
	Start   uint
	End     uint
	Capture string
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() uint {
	return s.End - s.Start
}

// Injection asks for a sub range of the parsed text to be highlighted with another language.
// Offsets are relative to the text the grammar was given.
type Injection struct {
	Start    uint
	End      uint
	Language string
	// IncludeChildren reports whether the descendants of the injection site are part of the range.
	// The range itself is always treated as opaque.
	IncludeChildren bool
}

// ParseResult is the output of a single [Grammar.Parse] call.
// Neither slice is ordered.
type ParseResult struct {
	Spans      []Span
	Injections []Injection
}

// Grammar parses text into spans and injections.
//
// Parse never blocks on anything but CPU work and must be safe for concurrent use.
// An error means the grammar failed outright, an empty result is a valid success.
type Grammar interface {
	Parse(text []byte) (ParseResult, error)
}

// Provider obtains grammars by language name.
//
// Get may hand back a [Lookup] that completes later, for example while a grammar definition
// is fetched over the network. Unknown languages resolve to "not found" rather than an error.
type Provider interface {
	Get(ctx context.Context, language string) *Lookup
}

// ProviderFunc adapts a function to the [Provider] interface.
type ProviderFunc func(ctx context.Context, language string) *Lookup

func (f ProviderFunc) Get(ctx context.Context, language string) *Lookup {
	return f(ctx, language)
}
