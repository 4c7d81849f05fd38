package highlight

import (
	"context"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "go.gopad.dev/go-highlight"

// Highlighter resolves grammars through a [Provider] and turns source text into highlighted output.
// It holds no per-call state and is safe for concurrent use.
type Highlighter struct {
	provider Provider
	cfg      Config
	tracer   trace.Tracer
}

// New creates a new [Highlighter].
func New(provider Provider, cfg Config) *Highlighter {
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	return &Highlighter{
		provider: provider,
		cfg:      cfg,
		tracer:   tracer,
	}
}

// awaitFunc turns a lookup into its result.
// It is the only step in which the suspending and non-suspending entry points differ.
type awaitFunc func(ctx context.Context, language string, lookup *Lookup) (Grammar, error)

// awaitNow never waits. A lookup that has not completed is a programming error for the caller.
func awaitNow(_ context.Context, language string, lookup *Lookup) (Grammar, error) {
	if lookup == nil {
		return nil, nil
	}
	if !lookup.Ready() {
		panic(&SuspendError{Language: language})
	}
	return lookup.Result()
}

// awaitContext waits for the lookup or the context, whichever is first.
func awaitContext(ctx context.Context, _ string, lookup *Lookup) (Grammar, error) {
	if lookup == nil {
		return nil, nil
	}
	if lookup.Ready() {
		return lookup.Result()
	}

	select {
	case <-lookup.Done():
		return lookup.Result()
	case <-ctx.Done():
		return nil, errors.WithStack(ctx.Err())
	}
}

// Highlight highlights source as language and renders it in the configured format.
// Grammar lookups that have not completed are waited for until ctx is done.
func (h *Highlighter) Highlight(ctx context.Context, language string, source []byte) (string, error) {
	spans, err := h.Spans(ctx, language, source)
	if err != nil {
		return "", err
	}
	return RenderString(source, spans, h.cfg.RenderOptions()), nil
}

// HighlightSync is like [Highlighter.Highlight] but never waits.
// It panics with a [*SuspendError] if the provider returns a lookup that has not completed,
// so it must only be used with providers that resolve lookups immediately.
func (h *Highlighter) HighlightSync(language string, source []byte) (string, error) {
	spans, err := h.SpansSync(language, source)
	if err != nil {
		return "", err
	}
	return RenderString(source, spans, h.cfg.RenderOptions()), nil
}

// Spans returns the raw spans of source and of every followed injection, in absolute byte offsets.
//
// The root spans come first, followed by the spans of each injection in the order the grammar
// reported them, every injection with its whole nested subtree.
func (h *Highlighter) Spans(ctx context.Context, language string, source []byte) ([]Span, error) {
	return h.spans(ctx, awaitContext, language, source)
}

// SpansSync is like [Highlighter.Spans] but never waits, see [Highlighter.HighlightSync].
func (h *Highlighter) SpansSync(language string, source []byte) ([]Span, error) {
	ctx := context.Background()
	if h.cfg.Logger != nil {
		ctx = h.cfg.Logger.WithContext(ctx)
	}
	return h.spans(ctx, awaitNow, language, source)
}

func (h *Highlighter) spans(ctx context.Context, await awaitFunc, language string, source []byte) ([]Span, error) {
	ctx, span := h.tracer.Start(ctx, "highlight", trace.WithAttributes(
		attribute.String("language", language),
		attribute.Int("source.bytes", len(source)),
		attribute.Int("injection.max_depth", int(h.cfg.MaxInjectionDepth)),
	))
	defer span.End()

	spans, err := h.run(ctx, await, language, source)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("spans", len(spans)))
	return spans, nil
}

func (h *Highlighter) run(ctx context.Context, await awaitFunc, language string, source []byte) ([]Span, error) {
	grammar, err := await(ctx, language, h.provider.Get(ctx, language))
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, errors.WithStack(ctxErr)
	}
	if err != nil || grammar == nil {
		return nil, errors.WithStack(&UnsupportedLanguageError{Language: language, Err: err})
	}

	spans, err := h.collect(ctx, await, grammar, language, source, 0, h.cfg.MaxInjectionDepth)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.WithStack(ctxErr)
		}
		return nil, errors.WithStack(&ParseError{Language: language, Err: err})
	}

	return spans, nil
}

// collect parses text and recursively follows its injections while remaining is above zero.
// base is the absolute offset of text within the root source.
//
// An injection that is out of range, has no grammar, or fails to parse is dropped without
// affecting the rest of the result. Only errors of the root parse and cancellation of ctx
// are returned.
func (h *Highlighter) collect(ctx context.Context, await awaitFunc, grammar Grammar, language string, text []byte, base uint, remaining uint) ([]Span, error) {
	result, err := h.parse(ctx, grammar, language, text, base)
	if err != nil {
		return nil, err
	}

	spans := make([]Span, 0, len(result.Spans))
	for _, s := range result.Spans {
		spans = append(spans, Span{Start: s.Start + base, End: s.End + base, Capture: s.Capture})
	}

	if remaining == 0 {
		return spans, nil
	}

	logger := zerolog.Ctx(ctx)
	for _, injection := range result.Injections {
		if !validInjection(text, injection) {
			logger.Debug().
				Str("language", injection.Language).
				Uint("start", injection.Start+base).
				Uint("end", injection.End+base).
				Msg("skipping injection with invalid range")
			continue
		}

		injected, err := await(ctx, injection.Language, h.provider.Get(ctx, injection.Language))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.WithStack(ctxErr)
		}
		if err != nil || injected == nil {
			logger.Debug().
				Err(err).
				Str("language", injection.Language).
				Msg("skipping injection without grammar")
			continue
		}

		subSpans, err := h.collect(ctx, await, injected, injection.Language, text[injection.Start:injection.End], base+injection.Start, remaining-1)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			logger.Debug().
				Err(err).
				Str("language", injection.Language).
				Msg("skipping injection that failed to parse")
			continue
		}

		spans = append(spans, subSpans...)
	}

	return spans, nil
}

func (h *Highlighter) parse(ctx context.Context, grammar Grammar, language string, text []byte, base uint) (ParseResult, error) {
	_, span := h.tracer.Start(ctx, "parse", trace.WithAttributes(
		attribute.String("language", language),
		attribute.Int("offset", int(base)),
		attribute.Int("bytes", len(text)),
	))
	defer span.End()

	result, err := grammar.Parse(text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ParseResult{}, err
	}

	span.SetAttributes(
		attribute.Int("spans", len(result.Spans)),
		attribute.Int("injections", len(result.Injections)),
	)
	return result, nil
}

func validInjection(text []byte, injection Injection) bool {
	if injection.Start >= injection.End || injection.End > uint(len(text)) {
		return false
	}
	return onRuneBoundary(text, injection.Start) && onRuneBoundary(text, injection.End)
}

func onRuneBoundary(text []byte, offset uint) bool {
	return offset == uint(len(text)) || utf8.RuneStart(text[offset])
}
