// Package rules implements grammars made of regular expression rules.
//
// Each rule finds its matches independently over the whole text. The matches of all rules are
// then merged from left to right: the earliest match wins, ties go to the rule listed first, and
// matches overlapping an already taken match are dropped. Injections are merged the same way,
// separately from the highlight rules.
package rules

import (
	"regexp"

	"gitlab.com/tozd/go/errors"

	"go.gopad.dev/go-highlight/types"
)

var _ types.Grammar = (*Grammar)(nil)

type rule struct {
	re      *regexp.Regexp
	capture string
	group   int
}

type injectionRule struct {
	re              *regexp.Regexp
	language        string
	languageGroup   int
	contentGroup    int
	includeChildren bool
}

// Grammar is a compiled rules grammar. It is immutable and safe for concurrent use.
type Grammar struct {
	name       string
	aliases    []string
	rules      []rule
	injections []injectionRule
}

func compile(pattern string, groups ...int) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	for _, group := range groups {
		if group < 0 || group > re.NumSubexp() {
			return nil, errors.Errorf("group %d out of range for %q with %d groups", group, pattern, re.NumSubexp())
		}
	}
	return re, nil
}

// Compile compiles a definition into a [Grammar].
func Compile(def *Definition) (*Grammar, error) {
	g := &Grammar{
		name:    def.Name,
		aliases: def.Aliases,
	}

	for i, r := range def.Rules {
		if r.Capture == "" {
			return nil, errors.Errorf("%s: rule %d has no capture", def.Name, i)
		}
		re, err := compile(r.Match, r.Group)
		if err != nil {
			return nil, errors.Errorf("%s: rule %d: %w", def.Name, i, err)
		}
		g.rules = append(g.rules, rule{re: re, capture: r.Capture, group: r.Group})
	}

	for i, inj := range def.Injections {
		if inj.Language == "" && inj.LanguageGroup == 0 {
			return nil, errors.Errorf("%s: injection %d has neither language nor language_group", def.Name, i)
		}
		re, err := compile(inj.Match, inj.LanguageGroup, inj.ContentGroup)
		if err != nil {
			return nil, errors.Errorf("%s: injection %d: %w", def.Name, i, err)
		}
		g.injections = append(g.injections, injectionRule{
			re:              re,
			language:        inj.Language,
			languageGroup:   inj.LanguageGroup,
			contentGroup:    inj.ContentGroup,
			includeChildren: inj.IncludeChildren,
		})
	}

	return g, nil
}

// Name returns the language name of the grammar.
func (g *Grammar) Name() string {
	return g.name
}

// Aliases returns the alternative names of the grammar.
func (g *Grammar) Aliases() []string {
	return g.aliases
}

// Parse reports the matches of the highlight rules as spans and the matches of the injection
// rules as injections.
func (g *Grammar) Parse(text []byte) (types.ParseResult, error) {
	var result types.ParseResult

	patterns := make([]*regexp.Regexp, len(g.rules))
	for i, r := range g.rules {
		patterns[i] = r.re
	}
	for m := range merge(text, patterns) {
		r := g.rules[m.rule]
		start, end := m.loc[2*r.group], m.loc[2*r.group+1]
		if start < 0 || start >= end {
			continue
		}
		result.Spans = append(result.Spans, types.Span{
			Start:   uint(start),
			End:     uint(end),
			Capture: r.capture,
		})
	}

	patterns = make([]*regexp.Regexp, len(g.injections))
	for i, inj := range g.injections {
		patterns[i] = inj.re
	}
	for m := range merge(text, patterns) {
		inj := g.injections[m.rule]
		start, end := m.loc[2*inj.contentGroup], m.loc[2*inj.contentGroup+1]
		if start < 0 || start >= end {
			continue
		}

		language := inj.language
		if inj.languageGroup > 0 {
			if ls, le := m.loc[2*inj.languageGroup], m.loc[2*inj.languageGroup+1]; ls >= 0 && ls < le {
				language = string(text[ls:le])
			}
		}
		if language == "" {
			continue
		}

		result.Injections = append(result.Injections, types.Injection{
			Start:           uint(start),
			End:             uint(end),
			Language:        language,
			IncludeChildren: inj.includeChildren,
		})
	}

	return result, nil
}
