package highlight

import (
	"io"

	"github.com/muesli/termenv"
	"gitlab.com/tozd/go/errors"

	"go.gopad.dev/go-highlight/internal/events"
	"go.gopad.dev/go-highlight/internal/tags"
)

// Style is the terminal style of a tag.
type Style struct {
	// Color is a hex color like "#c678dd" or an ANSI color number like "5".
	Color  string
	Bold   bool
	Italic bool
}

// Theme maps output tags to terminal styles. Tags without an entry are written unstyled.
type Theme map[string]Style

// DefaultTheme returns a dark theme covering every tag except the fallback tag.
func DefaultTheme() Theme {
	return Theme{
		tags.Keyword:     {Color: "#c678dd", Bold: true},
		tags.Function:    {Color: "#61afef"},
		tags.String:      {Color: "#98c379"},
		tags.Comment:     {Color: "#5c6370", Italic: true},
		tags.Type:        {Color: "#e5c07b"},
		tags.Variable:    {Color: "#e06c75"},
		tags.Number:      {Color: "#d19a66"},
		tags.Operator:    {Color: "#56b6c2"},
		tags.Punctuation: {Color: "#abb2bf"},
		tags.Attribute:   {Color: "#d19a66"},
		tags.Constant:    {Color: "#d19a66"},
		tags.Boolean:     {Color: "#d19a66"},
		tags.Constructor: {Color: "#e5c07b"},
		tags.Property:    {Color: "#e06c75"},
		tags.Tag:         {Color: "#e06c75"},
		tags.Label:       {Color: "#c678dd"},
		tags.Macro:       {Color: "#56b6c2"},
		tags.Namespace:   {Color: "#e5c07b"},
		tags.Embedded:    {Color: "#abb2bf"},
		tags.Error:       {Color: "#f44747", Bold: true},
	}
}

func (s Style) apply(p termenv.Profile, text string) string {
	style := p.String(text)
	if s.Color != "" {
		style = style.Foreground(p.Color(s.Color))
	}
	if s.Bold {
		style = style.Bold()
	}
	if s.Italic {
		style = style.Italic()
	}
	return style.String()
}

func renderANSI(w io.Writer, source []byte, spans []Span, opts RenderOptions) error {
	theme := opts.Theme
	if theme == nil {
		theme = DefaultTheme()
	}

	var tag string
	for event := range events.Build(normalize(spans), uint(len(source))) {
		switch e := event.(type) {
		case events.EventCaptureStart:
			tag = e.Tag
		case events.EventCaptureEnd:
			tag = ""
		case events.EventSource:
			text := string(source[e.StartByte:e.EndByte])
			if style, ok := theme[tag]; ok && tag != "" {
				text = style.apply(opts.Profile, text)
			}
			if _, err := io.WriteString(w, text); err != nil {
				return errors.Errorf("error while writing source: %w", err)
			}
		}
	}

	return nil
}

// RenderANSI renders spans over source with terminal colors from theme.
func RenderANSI(source []byte, spans []Span, theme Theme, profile termenv.Profile) string {
	return RenderString(source, spans, RenderOptions{Format: FormatANSI, Theme: theme, Profile: profile})
}
