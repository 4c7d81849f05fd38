package highlight

import (
	"io"
	"slices"
	"strings"

	"github.com/muesli/termenv"
	"gitlab.com/tozd/go/errors"

	"go.gopad.dev/go-highlight/internal/events"
	"go.gopad.dev/go-highlight/internal/tags"
)

var (
	escapeAmpersand   = []byte("&amp;")
	escapeLessThan    = []byte("&lt;")
	escapeGreaterThan = []byte("&gt;")
	escapeDouble      = []byte("&quot;")
)

// RenderOptions configures [Render].
type RenderOptions struct {
	Format Format
	// ClassPrefix is prepended to the tag in the class attribute of [FormatClassNames] output.
	ClassPrefix string
	Theme       Theme
	Profile     termenv.Profile
}

// normalize turns raw spans into non-empty tagged spans ready for [events.Build].
//
// Spans with the same range are deduplicated with the last one winning, in the position of the first.
// Capture names are mapped to tags and suppressed captures are dropped.
// The result is stably sorted by start and exactly adjacent spans with the same tag are joined.
func normalize(spans []Span) []events.Span {
	type key struct{ start, end uint }

	deduped := make([]Span, 0, len(spans))
	seen := make(map[key]int, len(spans))
	for _, span := range spans {
		k := key{span.Start, span.End}
		if i, ok := seen[k]; ok {
			deduped[i].Capture = span.Capture
			continue
		}
		seen[k] = len(deduped)
		deduped = append(deduped, span)
	}

	tagged := make([]events.Span, 0, len(deduped))
	for _, span := range deduped {
		tag, ok := tags.ForCapture(span.Capture)
		if !ok {
			continue
		}
		tagged = append(tagged, events.Span{Start: span.Start, End: span.End, Tag: tag})
	}

	slices.SortStableFunc(tagged, func(a, b events.Span) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		}
		return 0
	})

	merged := make([]events.Span, 0, len(tagged))
	for _, span := range tagged {
		if n := len(merged); n > 0 && merged[n-1].End == span.Start && merged[n-1].Tag == span.Tag {
			merged[n-1].End = span.End
			continue
		}
		merged = append(merged, span)
	}

	return merged
}

func addText(w io.Writer, text []byte) error {
	for len(text) > 0 {
		i := slices.IndexFunc(text, func(c byte) bool {
			return c == '&' || c == '<' || c == '>' || c == '"'
		})
		if i == -1 {
			_, err := w.Write(text)
			return err
		}

		if i > 0 {
			if _, err := w.Write(text[:i]); err != nil {
				return err
			}
		}

		var b []byte
		switch text[i] {
		case '&':
			b = escapeAmpersand
		case '<':
			b = escapeLessThan
		case '>':
			b = escapeGreaterThan
		case '"':
			b = escapeDouble
		}
		if _, err := w.Write(b); err != nil {
			return err
		}

		text = text[i+1:]
	}

	return nil
}

func startHighlight(w io.Writer, tag string, opts RenderOptions) error {
	var err error
	if opts.Format == FormatClassNames {
		_, err = io.WriteString(w, `<span class="`+opts.ClassPrefix+tag+`">`)
	} else {
		_, err = io.WriteString(w, "<a-"+tag+">")
	}
	return err
}

func endHighlight(w io.Writer, tag string, opts RenderOptions) error {
	var err error
	if opts.Format == FormatClassNames {
		_, err = io.WriteString(w, "</span>")
	} else {
		_, err = io.WriteString(w, "</a-"+tag+">")
	}
	return err
}

// Render writes source to w with every highlighted fragment wrapped according to opts.
//
// Spans may overlap and arrive in any order. Overlapping spans are flattened so that every
// byte is attributed to the innermost span covering it and the markup never nests.
func Render(w io.Writer, source []byte, spans []Span, opts RenderOptions) error {
	if opts.Format == FormatANSI {
		return renderANSI(w, source, spans, opts)
	}

	for event := range events.Build(normalize(spans), uint(len(source))) {
		switch e := event.(type) {
		case events.EventCaptureStart:
			if err := startHighlight(w, e.Tag, opts); err != nil {
				return errors.Errorf("error while starting highlight: %w", err)
			}
		case events.EventCaptureEnd:
			if err := endHighlight(w, e.Tag, opts); err != nil {
				return errors.Errorf("error while ending highlight: %w", err)
			}
		case events.EventSource:
			if err := addText(w, source[e.StartByte:e.EndByte]); err != nil {
				return errors.Errorf("error while writing source: %w", err)
			}
		}
	}

	return nil
}

// RenderString is like [Render] but returns the output as a string.
func RenderString(source []byte, spans []Span, opts RenderOptions) string {
	var sb strings.Builder
	sb.Grow(len(source) * 2)
	// strings.Builder never fails to write.
	_ = Render(&sb, source, spans, opts)
	return sb.String()
}

// RenderHTML renders spans over source using custom elements, like <a-k>func</a-k>.
func RenderHTML(source []byte, spans []Span) string {
	return RenderString(source, spans, RenderOptions{Format: FormatCustomElements})
}
