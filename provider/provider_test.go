package provider

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"go.gopad.dev/go-highlight/grammar/rules"
	"go.gopad.dev/go-highlight/language/golang"
	"go.gopad.dev/go-highlight/types"
)

type stubGrammar struct {
	name string
}

func (stubGrammar) Parse([]byte) (types.ParseResult, error) {
	return types.ParseResult{}, nil
}

func result(t *testing.T, lookup *types.Lookup) (types.Grammar, error) {
	t.Helper()

	select {
	case <-lookup.Done():
	case <-time.After(time.Second):
		t.Fatal("lookup did not complete")
	}
	return lookup.Result()
}

func TestStatic_Get(t *testing.T) {
	g := stubGrammar{name: "go"}
	p := NewStatic(map[string]Factory{"Go": Ready(g)}, WithAlias("golang", "go"))

	for _, name := range []string{"go", "GO", " go ", "golang"} {
		lookup := p.Get(context.Background(), name)
		require.True(t, lookup.Ready(), name)

		actual, err := lookup.Result()
		require.NoError(t, err)
		assert.Equal(t, g, actual, name)
	}

	lookup := p.Get(context.Background(), "python")
	require.True(t, lookup.Ready())
	actual, err := lookup.Result()
	assert.NoError(t, err)
	assert.Nil(t, actual)
}

func TestStatic_FactoryCalledOnce(t *testing.T) {
	var calls atomic.Int32
	p := NewStatic(map[string]Factory{
		"go": func() (types.Grammar, error) {
			calls.Add(1)
			time.Sleep(5 * time.Millisecond)
			return stubGrammar{}, nil
		},
	})

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g, err := p.Get(context.Background(), "go").Result()
			assert.NoError(t, err)
			assert.NotNil(t, g)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestStatic_FactoryError(t *testing.T) {
	cause := errors.New("bad query")
	p := NewStatic(map[string]Factory{
		"go": func() (types.Grammar, error) {
			return nil, cause
		},
	})

	for range 2 {
		lookup := p.Get(context.Background(), "go")
		require.True(t, lookup.Ready())
		g, err := lookup.Result()
		assert.Nil(t, g)
		assert.ErrorIs(t, err, cause)
	}
}

func TestStatic_Register(t *testing.T) {
	p := NewStatic(map[string]Factory{"go": Ready(stubGrammar{name: "old"})})
	_, _ = p.Get(context.Background(), "go").Result()

	p.Register("go", Ready(stubGrammar{name: "new"}), "golang")

	g, err := p.Get(context.Background(), "golang").Result()
	require.NoError(t, err)
	assert.Equal(t, stubGrammar{name: "new"}, g)
	assert.ElementsMatch(t, []string{"go"}, p.Languages())
}

func TestStatic_WithLanguagesAndRules(t *testing.T) {
	builtin, err := rules.Builtin()
	require.NoError(t, err)

	p := NewStatic(nil, WithLanguages(golang.Language()), WithRules(builtin...))
	assert.ElementsMatch(t, []string{"go", "comment", "regex"}, p.Languages())

	g, err := p.Get(context.Background(), "golang").Result()
	require.NoError(t, err)
	require.NotNil(t, g)

	result, err := g.Parse([]byte("package main\n"))
	require.NoError(t, err)
	assert.NotEmpty(t, result.Spans)

	g, err = p.Get(context.Background(), "regexp").Result()
	require.NoError(t, err)
	assert.NotNil(t, g)
}

func TestChain(t *testing.T) {
	first := NewStatic(map[string]Factory{"go": Ready(stubGrammar{name: "first"})})
	second := NewStatic(map[string]Factory{
		"go":   Ready(stubGrammar{name: "second"}),
		"rust": Ready(stubGrammar{name: "rust"}),
	})
	p := Chain(first, second)

	lookup := p.Get(context.Background(), "go")
	require.True(t, lookup.Ready())
	g, err := lookup.Result()
	require.NoError(t, err)
	assert.Equal(t, stubGrammar{name: "first"}, g)

	g, err = p.Get(context.Background(), "rust").Result()
	require.NoError(t, err)
	assert.Equal(t, stubGrammar{name: "rust"}, g)

	lookup = p.Get(context.Background(), "zig")
	require.True(t, lookup.Ready())
	g, err = lookup.Result()
	assert.NoError(t, err)
	assert.Nil(t, g)
}

func TestChain_ReportsFailuresWhenNothingFound(t *testing.T) {
	cause := errors.New("offline")
	failing := types.ProviderFunc(func(context.Context, string) *types.Lookup {
		return types.Failed(cause)
	})

	g, err := Chain(failing, NewStatic(nil)).Get(context.Background(), "go").Result()
	assert.Nil(t, g)
	assert.ErrorIs(t, err, cause)

	g, err = Chain(failing, NewStatic(map[string]Factory{"go": Ready(stubGrammar{})})).Get(context.Background(), "go").Result()
	assert.NoError(t, err)
	assert.NotNil(t, g)
}

func TestChain_Pending(t *testing.T) {
	release := make(chan struct{})
	slow := types.ProviderFunc(func(context.Context, string) *types.Lookup {
		return types.Go(func() (types.Grammar, error) {
			<-release
			return nil, nil
		})
	})
	fallback := NewStatic(map[string]Factory{"go": Ready(stubGrammar{name: "fallback"})})

	lookup := Chain(slow, fallback).Get(context.Background(), "go")
	assert.False(t, lookup.Ready())

	close(release)
	g, err := result(t, lookup)
	require.NoError(t, err)
	assert.Equal(t, stubGrammar{name: "fallback"}, g)
}

func TestChain_PendingCanceled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	slow := types.ProviderFunc(func(context.Context, string) *types.Lookup {
		return types.Go(func() (types.Grammar, error) {
			<-release
			return nil, nil
		})
	})

	ctx, cancel := context.WithCancel(context.Background())
	lookup := Chain(slow).Get(ctx, "go")
	cancel()

	_, err := result(t, lookup)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChain_NilLookup(t *testing.T) {
	missing := types.ProviderFunc(func(context.Context, string) *types.Lookup {
		return nil
	})

	lookup := Chain(missing).Get(context.Background(), "go")
	require.True(t, lookup.Ready())
	g, err := lookup.Result()
	assert.NoError(t, err)
	assert.Nil(t, g)

	g, err = Chain(missing, NewStatic(map[string]Factory{"go": Ready(stubGrammar{name: "go"})})).Get(context.Background(), "go").Result()
	require.NoError(t, err)
	assert.Equal(t, stubGrammar{name: "go"}, g)

	release := make(chan struct{})
	slow := types.ProviderFunc(func(context.Context, string) *types.Lookup {
		return types.Go(func() (types.Grammar, error) {
			<-release
			return nil, nil
		})
	})
	lookup = Chain(slow, missing).Get(context.Background(), "go")
	close(release)
	g, err = result(t, lookup)
	assert.NoError(t, err)
	assert.Nil(t, g)
}
