// Package remote provides grammars loaded from rules definitions stored outside the binary,
// in directories or behind a URL.
package remote

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/singleflight"

	"go.gopad.dev/go-highlight/grammar/rules"
	"go.gopad.dev/go-highlight/internal/cache"
	"go.gopad.dev/go-highlight/provider"
	"go.gopad.dev/go-highlight/types"
)

const (
	DefaultTTL         = 10 * time.Minute
	DefaultLoadTimeout = 10 * time.Second
)

// Provider loads rules grammars on demand.
//
// Lookups of grammars that are not cached complete later, so highlighting with this provider
// requires the context based entry points. Concurrent lookups of the same language share one load.
// Loaded grammars are cached for the TTL, failed loads are not cached.
type Provider struct {
	loader      Loader
	ttl         time.Duration
	loadTimeout time.Duration

	grammars *cache.Cache[*rules.Grammar]
	group    singleflight.Group
}

// Option configures a [Provider].
type Option func(*Provider)

// WithTTL sets how long loaded grammars are kept.
func WithTTL(ttl time.Duration) Option {
	return func(p *Provider) {
		p.ttl = ttl
	}
}

// WithLoadTimeout bounds the time a single load may take.
func WithLoadTimeout(timeout time.Duration) Option {
	return func(p *Provider) {
		p.loadTimeout = timeout
	}
}

// New creates a provider loading definitions with loader.
func New(loader Loader, opts ...Option) *Provider {
	p := &Provider{
		loader:      loader,
		ttl:         DefaultTTL,
		loadTimeout: DefaultLoadTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.grammars = cache.New[*rules.Grammar]("remote-grammars", p.ttl, cache.DefaultCleanupInterval)
	return p
}

// Get returns a resolved lookup for cached grammars and a pending one otherwise.
// The load itself is not canceled with ctx, so other callers waiting for it are not affected.
func (p *Provider) Get(ctx context.Context, language string) *types.Lookup {
	name := provider.Normalize(language)
	if g, ok := p.grammars.Get(ctx, name); ok {
		return types.Found(g)
	}

	ch := p.group.DoChan(name, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.loadTimeout)
		defer cancel()
		return p.load(loadCtx, name)
	})

	return types.Go(func() (types.Grammar, error) {
		select {
		case res := <-ch:
			if res.Err != nil {
				return nil, res.Err
			}
			g := res.Val.(*rules.Grammar)
			if g == nil {
				return nil, nil
			}
			return g, nil
		case <-ctx.Done():
			return nil, errors.WithStack(ctx.Err())
		}
	})
}

func (p *Provider) load(ctx context.Context, name string) (*rules.Grammar, error) {
	logger := zerolog.Ctx(ctx).With().Str("language", name).Logger()

	if g, ok := p.grammars.Get(ctx, name); ok {
		return g, nil
	}

	file, data, err := p.loader.Load(ctx, name)
	if errors.Is(err, ErrNotFound) {
		logger.Debug().Msg("no grammar definition found")
		return nil, nil
	}
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load grammar definition")
		return nil, err
	}

	def, err := rules.Decode(file, data)
	if err != nil {
		return nil, err
	}
	g, err := rules.Compile(def)
	if err != nil {
		return nil, err
	}

	p.grammars.Set(ctx, name, g, cache.DefaultExpiration)
	logger.Debug().Str("file", file).Msg("loaded grammar definition")
	return g, nil
}

// Invalidate drops every cached grammar, the next lookups load them again.
func (p *Provider) Invalidate(ctx context.Context) {
	p.grammars.Flush(ctx)
}

// Watch invalidates the cache whenever a definition in one of dirs changes.
// It blocks until ctx is done.
func (p *Provider) Watch(ctx context.Context, dirs ...string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.WithStack(err)
	}
	defer watcher.Close()

	for _, dir := range dirs {
		if err = watcher.Add(dir); err != nil {
			return errors.Errorf("error watching %s: %w", dir, err)
		}
	}

	logger := zerolog.Ctx(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !slices.Contains(Extensions, strings.ToLower(filepath.Ext(event.Name))) {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("grammar definition changed")
			p.Invalidate(ctx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("grammar definition watcher error")
		}
	}
}
