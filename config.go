package highlight

import (
	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxInjectionDepth is the number of nested injection levels followed by default.
const DefaultMaxInjectionDepth uint = 3

// Format selects the markup produced by [Render].
type Format int

const (
	// FormatCustomElements wraps fragments in custom elements named after their tag, like <a-k>.
	FormatCustomElements Format = iota
	// FormatClassNames wraps fragments in span elements with a class attribute.
	FormatClassNames
	// FormatANSI colors fragments with terminal escape sequences instead of markup.
	FormatANSI
)

func (f Format) String() string {
	switch f {
	case FormatCustomElements:
		return "html"
	case FormatClassNames:
		return "class"
	case FormatANSI:
		return "ansi"
	}
	return "unknown"
}

// ParseFormat parses the name of a format as returned by [Format.String].
func ParseFormat(s string) (Format, error) {
	switch s {
	case "html", "":
		return FormatCustomElements, nil
	case "class":
		return FormatClassNames, nil
	case "ansi":
		return FormatANSI, nil
	}
	return 0, errors.Errorf("unknown format %q", s)
}

// Config configures a [Highlighter].
type Config struct {
	// MaxInjectionDepth is the number of nested injection levels to follow.
	// Zero disables injections entirely.
	MaxInjectionDepth uint
	// Format is the output format of [Highlighter.Highlight].
	Format Format
	// ClassPrefix is prepended to tags when Format is [FormatClassNames].
	ClassPrefix string
	// Theme and Profile are used when Format is [FormatANSI].
	Theme   Theme
	Profile termenv.Profile
	// Tracer records a span per highlight call and per parse. The global tracer is used when nil.
	Tracer trace.Tracer
	// Logger is used by the non-suspending entry points, which take no context.
	Logger *zerolog.Logger
}

// DefaultConfig returns the configuration used by [New] when no options are changed.
func DefaultConfig() Config {
	return Config{
		MaxInjectionDepth: DefaultMaxInjectionDepth,
		Format:            FormatCustomElements,
		Theme:             DefaultTheme(),
		Profile:           termenv.ANSI256,
	}
}

// RenderOptions returns the options used to render the output of [Highlighter.Highlight].
func (c Config) RenderOptions() RenderOptions {
	return RenderOptions{
		Format:      c.Format,
		ClassPrefix: c.ClassPrefix,
		Theme:       c.Theme,
		Profile:     c.Profile,
	}
}
