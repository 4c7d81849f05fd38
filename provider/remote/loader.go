package remote

import (
	"context"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"go.gopad.dev/go-highlight/grammar/rules"
	"go.gopad.dev/go-highlight/provider"
)

// ErrNotFound is returned by loaders that have no definition for a language.
var ErrNotFound = errors.Base("definition not found")

// MaxDefinitionSize is the largest definition [HTTPLoader] accepts, in bytes.
const MaxDefinitionSize = 1 << 20

// Extensions are the file extensions of definitions, in lookup order.
var Extensions = []string{".yaml", ".yml", ".toml"}

// Loader fetches the raw definition of a language.
// name is the file name of the definition and selects its format.
type Loader interface {
	Load(ctx context.Context, language string) (name string, data []byte, err error)
}

// FSLoader loads definitions from directories of a filesystem.
//
// A definition for "go" is any go.yaml, go.yml or go.toml below one of the directories.
// When there is none, the definitions are searched for one listing the language as an alias.
type FSLoader struct {
	fs   afero.Fs
	dirs []string
}

// NewFSLoader creates a loader for dirs of fsys. Earlier directories take precedence.
func NewFSLoader(fsys afero.Fs, dirs ...string) *FSLoader {
	return &FSLoader{fs: fsys, dirs: dirs}
}

// Dirs returns the directories searched by the loader.
func (l *FSLoader) Dirs() []string {
	return l.dirs
}

func (l *FSLoader) Load(ctx context.Context, language string) (string, []byte, error) {
	language = provider.Normalize(language)
	if language == "" || strings.ContainsAny(language, `*?[]{}\/`) {
		return "", nil, errors.WithDetails(ErrNotFound, "language", language)
	}

	for _, dir := range l.dirs {
		fsys := afero.NewIOFS(afero.NewBasePathFs(l.fs, dir))
		names, err := doublestar.Glob(fsys, "**/"+language+".{yaml,yml,toml}", doublestar.WithFilesOnly())
		if err != nil {
			return "", nil, errors.WithStack(err)
		}
		if len(names) > 0 {
			data, err := fs.ReadFile(fsys, names[0])
			if err != nil {
				return "", nil, errors.WithStack(err)
			}
			return names[0], data, nil
		}
	}

	for _, dir := range l.dirs {
		if err := ctx.Err(); err != nil {
			return "", nil, errors.WithStack(err)
		}

		name, data, ok, err := l.findAlias(dir, language)
		if err != nil {
			return "", nil, err
		}
		if ok {
			return name, data, nil
		}
	}

	return "", nil, errors.WithDetails(ErrNotFound, "language", language)
}

func (l *FSLoader) findAlias(dir string, language string) (string, []byte, bool, error) {
	fsys := afero.NewIOFS(afero.NewBasePathFs(l.fs, dir))
	names, err := doublestar.Glob(fsys, "**/*.{yaml,yml,toml}", doublestar.WithFilesOnly())
	if err != nil {
		return "", nil, false, errors.WithStack(err)
	}

	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return "", nil, false, errors.WithStack(err)
		}
		def, err := rules.Decode(name, data)
		if err != nil {
			// broken definitions only fail the language they define
			continue
		}
		for _, alias := range def.Aliases {
			if provider.Normalize(alias) == language {
				return name, data, true, nil
			}
		}
	}

	return "", nil, false, nil
}

// HTTPLoader loads definitions from a base URL, trying each of [Extensions] in turn.
// A definition for "go" is fetched from <base>/go.yaml, then <base>/go.yml and <base>/go.toml.
type HTTPLoader struct {
	base   *url.URL
	client *http.Client
}

// NewHTTPLoader creates a loader for base. A nil client uses [http.DefaultClient].
func NewHTTPLoader(base string, client *http.Client) (*HTTPLoader, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPLoader{base: u, client: client}, nil
}

func (l *HTTPLoader) Load(ctx context.Context, language string) (string, []byte, error) {
	language = provider.Normalize(language)

	for _, ext := range Extensions {
		name := language + ext
		u := l.base.JoinPath(url.PathEscape(name))

		data, found, err := l.fetch(ctx, u.String())
		if err != nil {
			return "", nil, err
		}
		if found {
			return path.Base(u.Path), data, nil
		}
	}

	return "", nil, errors.WithDetails(ErrNotFound, "language", language, "base", l.base.String())
}

func (l *HTTPLoader) fetch(ctx context.Context, u string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, errors.WithStack(err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, false, errors.WithStack(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, false, errors.WithDetails(errors.Errorf("unexpected status %s", resp.Status), "url", u)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDefinitionSize+1))
	if err != nil {
		return nil, false, errors.WithStack(err)
	}
	if len(data) > MaxDefinitionSize {
		return nil, false, errors.WithDetails(errors.Errorf("definition exceeds %d bytes", MaxDefinitionSize), "url", u)
	}
	return data, true, nil
}
