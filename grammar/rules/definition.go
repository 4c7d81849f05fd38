package rules

import (
	"bytes"
	"path"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned by [Decode] for files that are neither YAML nor TOML.
var ErrUnknownFormat = errors.Base("unknown definition format")

// Definition is the serialized form of a rules grammar.
type Definition struct {
	Name       string                `yaml:"name" toml:"name"`
	Aliases    []string              `yaml:"aliases,omitempty" toml:"aliases,omitempty"`
	Rules      []RuleDefinition      `yaml:"rules,omitempty" toml:"rules,omitempty"`
	Injections []InjectionDefinition `yaml:"injections,omitempty" toml:"injections,omitempty"`
}

// RuleDefinition highlights every match of a pattern with a capture name.
type RuleDefinition struct {
	Match   string `yaml:"match" toml:"match"`
	Capture string `yaml:"capture" toml:"capture"`
	// Group selects the submatch that is highlighted, 0 is the whole match.
	Group int `yaml:"group,omitempty" toml:"group,omitempty"`
}

// InjectionDefinition hands every match of a pattern to another language.
// The language is either fixed or read from a submatch.
type InjectionDefinition struct {
	Match           string `yaml:"match" toml:"match"`
	Language        string `yaml:"language,omitempty" toml:"language,omitempty"`
	LanguageGroup   int    `yaml:"language_group,omitempty" toml:"language_group,omitempty"`
	ContentGroup    int    `yaml:"content_group,omitempty" toml:"content_group,omitempty"`
	IncludeChildren bool   `yaml:"include_children,omitempty" toml:"include_children,omitempty"`
}

// Names returns the name of the definition followed by its aliases.
func (d *Definition) Names() []string {
	return append([]string{d.Name}, d.Aliases...)
}

// Decode decodes a definition. The format is chosen by the extension of name.
func Decode(name string, data []byte) (*Definition, error) {
	var def Definition

	switch ext := strings.ToLower(path.Ext(name)); ext {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&def); err != nil {
			return nil, errors.Errorf("error decoding %s: %w", name, err)
		}
	case ".toml":
		decoder := toml.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&def); err != nil {
			return nil, errors.Errorf("error decoding %s: %w", name, err)
		}
	default:
		return nil, errors.WithDetails(ErrUnknownFormat, "name", name, "ext", ext)
	}

	if def.Name == "" {
		def.Name = strings.TrimSuffix(path.Base(name), path.Ext(name))
	}

	return &def, nil
}
