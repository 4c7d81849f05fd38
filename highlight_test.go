package highlight

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	"gitlab.com/tozd/go/errors"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"pgregory.net/rapid"

	"go.gopad.dev/go-highlight/types"
)

type grammarFunc func(text []byte) (ParseResult, error)

func (f grammarFunc) Parse(text []byte) (ParseResult, error) {
	return f(text)
}

func fixed(spans []Span, injections ...Injection) Grammar {
	return grammarFunc(func([]byte) (ParseResult, error) {
		return ParseResult{Spans: spans, Injections: injections}, nil
	})
}

func failing(err error) Grammar {
	return grammarFunc(func([]byte) (ParseResult, error) {
		return ParseResult{}, err
	})
}

type mockProvider struct {
	grammars map[string]Grammar
	lookups  map[string]*Lookup

	mu    sync.Mutex
	calls []string
}

func (p *mockProvider) Get(_ context.Context, language string) *Lookup {
	p.mu.Lock()
	p.calls = append(p.calls, language)
	p.mu.Unlock()

	if l, ok := p.lookups[language]; ok {
		return l
	}
	if g, ok := p.grammars[language]; ok {
		return types.Found(g)
	}
	return types.NotFound()
}

func (p *mockProvider) called(language string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	var n int
	for _, call := range p.calls {
		if call == language {
			n++
		}
	}
	return n
}

func TestHighlighter_Highlight(t *testing.T) {
	tests := []struct {
		name     string
		provider *mockProvider
		language string
		source   string
		expected string
	}{
		{
			name: "single span",
			provider: &mockProvider{grammars: map[string]Grammar{
				"test": fixed([]Span{{Start: 0, End: 2, Capture: "keyword"}}),
			}},
			language: "test",
			source:   "fn",
			expected: "<a-k>fn</a-k>",
		},
		{
			name: "injection covering the whole source",
			provider: &mockProvider{grammars: map[string]Grammar{
				"outer": fixed(nil, Injection{Start: 0, End: 5, Language: "inner"}),
				"inner": fixed([]Span{{Start: 0, End: 5, Capture: "string"}}),
			}},
			language: "outer",
			source:   "hello",
			expected: "<a-s>hello</a-s>",
		},
		{
			name: "injection is rebased to the root source",
			provider: &mockProvider{grammars: map[string]Grammar{
				"outer": fixed([]Span{{Start: 0, End: 1, Capture: "punctuation"}}, Injection{Start: 1, End: 4, Language: "inner"}),
				"inner": fixed([]Span{{Start: 0, End: 3, Capture: "number"}}),
			}},
			language: "outer",
			source:   "(123)",
			expected: "<a-p>(</a-p><a-n>123</a-n>)",
		},
		{
			name: "unavailable injection language is skipped",
			provider: &mockProvider{grammars: map[string]Grammar{
				"outer": fixed([]Span{{Start: 0, End: 1, Capture: "keyword"}}, Injection{Start: 2, End: 5, Language: "missing"}),
			}},
			language: "outer",
			source:   "a <b>",
			expected: "<a-k>a</a-k> &lt;b&gt;",
		},
		{
			name: "failed injection lookup is skipped",
			provider: &mockProvider{
				grammars: map[string]Grammar{
					"outer": fixed([]Span{{Start: 0, End: 1, Capture: "keyword"}}, Injection{Start: 1, End: 2, Language: "broken"}),
				},
				lookups: map[string]*Lookup{
					"broken": types.Failed(errors.New("boom")),
				},
			},
			language: "outer",
			source:   "ab",
			expected: "<a-k>a</a-k>b",
		},
		{
			name: "failing injection grammar is skipped",
			provider: &mockProvider{grammars: map[string]Grammar{
				"outer": fixed([]Span{{Start: 0, End: 1, Capture: "keyword"}}, Injection{Start: 1, End: 2, Language: "broken"}),
				"broken": failing(errors.New("boom")),
			}},
			language: "outer",
			source:   "ab",
			expected: "<a-k>a</a-k>b",
		},
		{
			name: "injection out of range is skipped",
			provider: &mockProvider{grammars: map[string]Grammar{
				"outer": fixed(nil, Injection{Start: 1, End: 10, Language: "inner"}),
				"inner": fixed([]Span{{Start: 0, End: 1, Capture: "string"}}),
			}},
			language: "outer",
			source:   "ab",
			expected: "ab",
		},
		{
			name: "empty injection is skipped",
			provider: &mockProvider{grammars: map[string]Grammar{
				"outer": fixed(nil, Injection{Start: 1, End: 1, Language: "inner"}),
				"inner": fixed([]Span{{Start: 0, End: 1, Capture: "string"}}),
			}},
			language: "outer",
			source:   "ab",
			expected: "ab",
		},
		{
			name: "injection splitting a rune is skipped",
			provider: &mockProvider{grammars: map[string]Grammar{
				"outer": fixed(nil, Injection{Start: 2, End: 3, Language: "inner"}),
				"inner": fixed([]Span{{Start: 0, End: 1, Capture: "string"}}),
			}},
			language: "outer",
			source:   "aé",
			expected: "aé",
		},
		{
			name: "injected spans win over root spans with the same range",
			provider: &mockProvider{grammars: map[string]Grammar{
				"outer": fixed([]Span{{Start: 0, End: 3, Capture: "string"}}, Injection{Start: 0, End: 3, Language: "inner"}),
				"inner": fixed([]Span{{Start: 0, End: 3, Capture: "keyword"}}),
			}},
			language: "outer",
			source:   "for",
			expected: "<a-k>for</a-k>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(tt.provider, DefaultConfig())

			actual, err := h.Highlight(context.Background(), tt.language, []byte(tt.source))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, actual)

			actual, err = h.HighlightSync(tt.language, []byte(tt.source))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, actual)
		})
	}
}

func TestHighlighter_Highlight_UnsupportedLanguage(t *testing.T) {
	h := New(&mockProvider{}, DefaultConfig())

	out, err := h.Highlight(context.Background(), "cobol", []byte("MOVE A TO B"))
	assert.Empty(t, out)
	require.ErrorIs(t, err, ErrUnsupportedLanguage)

	var unsupported *UnsupportedLanguageError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "cobol", unsupported.Language)
}

func TestHighlighter_Highlight_FailedRootLookup(t *testing.T) {
	cause := errors.New("fetch failed")
	h := New(&mockProvider{lookups: map[string]*Lookup{"go": types.Failed(cause)}}, DefaultConfig())

	_, err := h.HighlightSync("go", []byte("package main"))
	require.ErrorIs(t, err, ErrUnsupportedLanguage)
	assert.ErrorIs(t, err, cause)
}

func TestHighlighter_Highlight_RootParseFailure(t *testing.T) {
	cause := errors.New("grammar exploded")
	h := New(&mockProvider{grammars: map[string]Grammar{"test": failing(cause)}}, DefaultConfig())

	out, err := h.Highlight(context.Background(), "test", []byte("x"))
	assert.Empty(t, out)
	require.ErrorIs(t, err, ErrParseFailure)
	assert.ErrorIs(t, err, cause)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "test", parseErr.Language)
}

func TestHighlighter_Spans_DepthZeroNeverAsksProvider(t *testing.T) {
	rootSpans := []Span{{Start: 0, End: 3, Capture: "keyword"}}
	provider := &mockProvider{grammars: map[string]Grammar{
		"outer": fixed(rootSpans, Injection{Start: 0, End: 3, Language: "inner"}, Injection{Start: 3, End: 6, Language: "inner"}),
		"inner": fixed([]Span{{Start: 0, End: 3, Capture: "string"}}),
	}}

	cfg := DefaultConfig()
	cfg.MaxInjectionDepth = 0
	h := New(provider, cfg)

	spans, err := h.SpansSync("outer", []byte("abcdef"))
	require.NoError(t, err)
	assert.Equal(t, rootSpans, spans)
	assert.Zero(t, provider.called("inner"))
}

func TestHighlighter_Spans_DepthLimit(t *testing.T) {
	// every level injects itself into everything after its first byte
	self := grammarFunc(func(text []byte) (ParseResult, error) {
		return ParseResult{
			Spans:      []Span{{Start: 0, End: 1, Capture: "keyword"}},
			Injections: []Injection{{Start: 1, End: uint(len(text)), Language: "self"}},
		}, nil
	})
	provider := &mockProvider{grammars: map[string]Grammar{"self": self}}

	cfg := DefaultConfig()
	cfg.MaxInjectionDepth = 2
	h := New(provider, cfg)

	spans, err := h.SpansSync("self", []byte("abcdef"))
	require.NoError(t, err)
	assert.Equal(t, []Span{
		{Start: 0, End: 1, Capture: "keyword"},
		{Start: 1, End: 2, Capture: "keyword"},
		{Start: 2, End: 3, Capture: "keyword"},
	}, spans)
}

func TestHighlighter_Spans_MergeOrder(t *testing.T) {
	provider := &mockProvider{grammars: map[string]Grammar{
		"outer": fixed(
			[]Span{{Start: 0, End: 8, Capture: "string"}},
			Injection{Start: 4, End: 8, Language: "b"},
			Injection{Start: 0, End: 4, Language: "a"},
		),
		"a": fixed([]Span{{Start: 0, End: 2, Capture: "a1"}}, Injection{Start: 2, End: 4, Language: "c"}),
		"b": fixed([]Span{{Start: 0, End: 4, Capture: "b1"}}),
		"c": fixed([]Span{{Start: 0, End: 2, Capture: "c1"}}),
	}}

	h := New(provider, DefaultConfig())

	spans, err := h.Spans(context.Background(), "outer", []byte("abcdefgh"))
	require.NoError(t, err)
	assert.Equal(t, []Span{
		{Start: 0, End: 8, Capture: "string"},
		{Start: 4, End: 8, Capture: "b1"},
		{Start: 0, End: 2, Capture: "a1"},
		{Start: 2, End: 4, Capture: "c1"},
	}, spans)
}

func TestHighlighter_HighlightSync_PanicsOnPendingLookup(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	provider := &mockProvider{
		grammars: map[string]Grammar{
			"outer": fixed(nil, Injection{Start: 0, End: 1, Language: "slow"}),
		},
		lookups: map[string]*Lookup{
			"slow": types.Go(func() (types.Grammar, error) {
				<-release
				return fixed(nil), nil
			}),
		},
	}
	h := New(provider, DefaultConfig())

	assert.PanicsWithError(t, (&SuspendError{Language: "slow"}).Error(), func() {
		_, _ = h.HighlightSync("outer", []byte("x"))
	})
}

func TestHighlighter_Highlight_WaitsForPendingLookup(t *testing.T) {
	release := make(chan struct{})
	provider := &mockProvider{
		grammars: map[string]Grammar{
			"outer": fixed(nil, Injection{Start: 0, End: 2, Language: "slow"}),
		},
		lookups: map[string]*Lookup{
			"slow": types.Go(func() (types.Grammar, error) {
				<-release
				return fixed([]Span{{Start: 0, End: 2, Capture: "function"}}), nil
			}),
		},
	}
	h := New(provider, DefaultConfig())

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()

	out, err := h.Highlight(context.Background(), "outer", []byte("fn"))
	require.NoError(t, err)
	assert.Equal(t, "<a-f>fn</a-f>", out)
}

func TestHighlighter_Highlight_ContextCanceled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	provider := &mockProvider{
		grammars: map[string]Grammar{
			"outer": fixed([]Span{{Start: 0, End: 1, Capture: "keyword"}}, Injection{Start: 0, End: 1, Language: "never"}),
		},
		lookups: map[string]*Lookup{
			"never": types.Go(func() (types.Grammar, error) {
				<-release
				return nil, nil
			}),
		},
	}
	h := New(provider, DefaultConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	out, err := h.Highlight(ctx, "outer", []byte("x"))
	assert.Empty(t, out)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrParseFailure)
}

func TestHighlighter_Highlight_LogsSkippedInjections(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	provider := &mockProvider{grammars: map[string]Grammar{
		"outer": fixed(nil, Injection{Start: 0, End: 1, Language: "missing"}),
	}}
	h := New(provider, DefaultConfig())

	_, err := h.Highlight(logger.WithContext(context.Background()), "outer", []byte("x"))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "skipping injection without grammar")
	assert.Contains(t, buf.String(), `"language":"missing"`)
}

func TestHighlighter_Highlight_Tracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	provider := &mockProvider{grammars: map[string]Grammar{
		"outer": fixed(nil, Injection{Start: 0, End: 5, Language: "inner"}),
		"inner": fixed([]Span{{Start: 0, End: 5, Capture: "string"}}),
	}}

	cfg := DefaultConfig()
	cfg.Tracer = tp.Tracer("test")
	h := New(provider, cfg)

	_, err := h.Highlight(context.Background(), "outer", []byte("hello"))
	require.NoError(t, err)

	ended := recorder.Ended()
	require.Len(t, ended, 3)

	names := make([]string, 0, len(ended))
	for _, s := range ended {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"parse", "parse", "highlight"}, names)

	root := ended[2]
	for _, s := range ended[:2] {
		assert.Equal(t, root.SpanContext().SpanID(), s.Parent().SpanID())
	}
}

// selfSpans labels the first half of its text with the text itself and injects itself into the
// last two thirds, so every span can be checked against the root source.
var selfSpans = grammarFunc(func(text []byte) (ParseResult, error) {
	n := uint(len(text))
	if n == 0 {
		return ParseResult{}, nil
	}
	return ParseResult{
		Spans:      []Span{{Start: 0, End: (n + 1) / 2, Capture: string(text[:(n+1)/2])}},
		Injections: []Injection{{Start: n / 3, End: n, Language: "self"}},
	}, nil
})

func TestHighlighter_Spans_OffsetIntegrity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		source := rapid.StringMatching(`[a-z<>&" \n]{0,64}`).Draw(t, "source")
		depth := rapid.UintRange(0, 6).Draw(t, "depth")

		cfg := DefaultConfig()
		cfg.MaxInjectionDepth = depth
		h := New(&mockProvider{grammars: map[string]Grammar{"self": selfSpans}}, cfg)

		spans, err := h.SpansSync("self", []byte(source))
		require.NoError(t, err)

		for _, span := range spans {
			require.LessOrEqual(t, span.End, uint(len(source)))
			assert.Equal(t, source[span.Start:span.End], span.Capture)
		}
	})
}

func TestNewLanguage(t *testing.T) {
	lang := NewLanguage(tree_sitter_go.Language())
	require.NotNil(t, lang)

	parser := tree_sitter.NewParser()
	defer parser.Close()
	require.NoError(t, parser.SetLanguage(lang))

	tree := parser.Parse([]byte("package main\n"), nil)
	require.NotNil(t, tree)
	defer tree.Close()
	assert.Equal(t, "source_file", tree.RootNode().Kind())
}
