package provider

import (
	"context"

	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"

	"go.gopad.dev/go-highlight/types"
)

type chain []types.Provider

// Chain asks providers in order and returns the first grammar found.
// A provider returning a nil lookup is treated as not finding the language.
//
// The returned lookup is resolved immediately as long as every provider consulted so far resolved
// immediately. Failures of earlier providers are only reported when no provider finds the language.
func Chain(providers ...types.Provider) types.Provider {
	return chain(providers)
}

func (c chain) Get(ctx context.Context, language string) *types.Lookup {
	var errs error
	for i, p := range c {
		lookup := get(ctx, p, language)
		if !lookup.Ready() {
			rest := c[i+1:]
			return types.Go(func() (types.Grammar, error) {
				return c.wait(ctx, language, lookup, rest, errs)
			})
		}

		g, err := lookup.Result()
		if g != nil {
			return lookup
		}
		errs = multierr.Append(errs, err)
	}

	if errs != nil {
		return types.Failed(errs)
	}
	return types.NotFound()
}

func (c chain) wait(ctx context.Context, language string, lookup *types.Lookup, rest chain, errs error) (types.Grammar, error) {
	for {
		select {
		case <-lookup.Done():
		case <-ctx.Done():
			return nil, errors.WithStack(ctx.Err())
		}

		g, err := lookup.Result()
		if g != nil {
			return g, nil
		}
		errs = multierr.Append(errs, err)

		if len(rest) == 0 {
			return nil, errs
		}
		lookup = get(ctx, rest[0], language)
		rest = rest[1:]
	}
}

func get(ctx context.Context, p types.Provider, language string) *types.Lookup {
	if lookup := p.Get(ctx, language); lookup != nil {
		return lookup
	}
	return types.NotFound()
}
