package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopGrammar struct{}

func (nopGrammar) Parse([]byte) (ParseResult, error) {
	return ParseResult{}, nil
}

func TestLookup_Resolved(t *testing.T) {
	tests := []struct {
		name        string
		lookup      *Lookup
		wantGrammar bool
		wantErr     bool
	}{
		{name: "found", lookup: Found(nopGrammar{}), wantGrammar: true},
		{name: "not found", lookup: NotFound()},
		{name: "failed", lookup: Failed(errors.New("boom")), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.True(t, tt.lookup.Ready())

			g, err := tt.lookup.Result()
			assert.Equal(t, tt.wantGrammar, g != nil)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestLookup_Go(t *testing.T) {
	release := make(chan struct{})
	l := Go(func() (Grammar, error) {
		<-release
		return nopGrammar{}, nil
	})

	assert.False(t, l.Ready())
	close(release)
	<-l.Done()

	assert.True(t, l.Ready())
	g, err := l.Result()
	require.NoError(t, err)
	assert.NotNil(t, g)
}

func TestSpan_Len(t *testing.T) {
	assert.Equal(t, uint(4), Span{Start: 3, End: 7}.Len())
}
