package highlight

import (
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	for _, format := range []Format{FormatCustomElements, FormatClassNames, FormatANSI} {
		t.Run(format.String(), func(t *testing.T) {
			parsed, err := ParseFormat(format.String())
			require.NoError(t, err)
			assert.Equal(t, format, parsed)
		})
	}

	parsed, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCustomElements, parsed)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
	assert.Equal(t, "unknown", Format(42).String())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, uint(3), cfg.MaxInjectionDepth)
	assert.Equal(t, FormatCustomElements, cfg.Format)

	cfg.Format = FormatClassNames
	cfg.ClassPrefix = "hl-"
	cfg.Profile = termenv.TrueColor

	opts := cfg.RenderOptions()
	assert.Equal(t, FormatClassNames, opts.Format)
	assert.Equal(t, "hl-", opts.ClassPrefix)
	assert.Equal(t, termenv.TrueColor, opts.Profile)
	assert.Equal(t, DefaultTheme(), opts.Theme)
}
