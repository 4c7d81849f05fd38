package rules

import (
	"embed"
	"io/fs"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

//go:embed builtin
var builtinFS embed.FS

// Load decodes and compiles every definition in fsys matching pattern.
func Load(fsys fs.FS, pattern string) ([]*Grammar, error) {
	names, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.WithStack(err)
	}

	grammars := make([]*Grammar, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, errors.WithStack(err)
		}

		def, err := Decode(name, data)
		if err != nil {
			return nil, err
		}

		g, err := Compile(def)
		if err != nil {
			return nil, err
		}
		grammars = append(grammars, g)
	}

	return grammars, nil
}

// Builtin returns the grammars shipped with the package: "comment", which highlights
// TODO style markers and URLs and injects Go into backtick quoted code, and "regex".
func Builtin() ([]*Grammar, error) {
	return Load(builtinFS, "builtin/*.{yaml,yml,toml}")
}
