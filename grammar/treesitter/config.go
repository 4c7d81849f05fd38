package treesitter

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	"gitlab.com/tozd/go/errors"

	"go.gopad.dev/go-highlight/types"
)

const (
	captureInjectionContent         = "injection.content"
	captureInjectionLanguage        = "injection.language"
	captureInjectionSelf            = "injection.self"
	captureInjectionIncludeChildren = "injection.include-children"
	captureLocal                    = "local"
)

// Configuration holds the compiled queries of a tree-sitter language.
//
// The injections, locals and highlights queries are compiled into one query in that order,
// so the pattern index of a match tells which of the three it came from.
type Configuration struct {
	language               *tree_sitter.Language
	languageName           string
	query                  *tree_sitter.Query
	localsPatternIndex     uint
	highlightsPatternIndex uint
	captureNames           []string
	// highlightCaptures reports per capture index whether the capture produces a span.
	highlightCaptures             []bool
	injectionContentCaptureIndex  *uint
	injectionLanguageCaptureIndex *uint
}

// NewConfiguration creates a new highlight configuration from a [tree_sitter.Language] and a set of queries.
func NewConfiguration(language *tree_sitter.Language, languageName string, highlightsQuery []byte, injectionQuery []byte, localsQuery []byte) (*Configuration, error) {
	querySource := make([]byte, 0, len(injectionQuery)+len(localsQuery)+len(highlightsQuery))
	querySource = append(querySource, injectionQuery...)
	localsQueryOffset := uint(len(querySource))
	querySource = append(querySource, localsQuery...)
	highlightsQueryOffset := uint(len(querySource))
	querySource = append(querySource, highlightsQuery...)

	query, qErr := tree_sitter.NewQuery(language, string(querySource))
	if qErr != nil {
		return nil, errors.Errorf("error creating %s query: %w", languageName, qErr)
	}

	var localsPatternIndex, highlightsPatternIndex uint
	for i := range query.PatternCount() {
		patternOffset := query.StartByteForPattern(i)
		if patternOffset < highlightsQueryOffset {
			highlightsPatternIndex++
		}
		if patternOffset < localsQueryOffset {
			localsPatternIndex++
		}
	}

	var (
		injectionContentCaptureIndex  *uint
		injectionLanguageCaptureIndex *uint
	)

	captureNames := query.CaptureNames()
	highlightCaptures := make([]bool, len(captureNames))
	for i, captureName := range captureNames {
		ui := uint(i)
		switch captureName {
		case captureInjectionContent:
			injectionContentCaptureIndex = &ui
		case captureInjectionLanguage:
			injectionLanguageCaptureIndex = &ui
		}
		highlightCaptures[i] = isHighlightCapture(captureName)
	}

	return &Configuration{
		language:                      language,
		languageName:                  languageName,
		query:                         query,
		localsPatternIndex:            localsPatternIndex,
		highlightsPatternIndex:        highlightsPatternIndex,
		captureNames:                  captureNames,
		highlightCaptures:             highlightCaptures,
		injectionContentCaptureIndex:  injectionContentCaptureIndex,
		injectionLanguageCaptureIndex: injectionLanguageCaptureIndex,
	}, nil
}

func isHighlightCapture(name string) bool {
	switch {
	case name == "", strings.HasPrefix(name, "_"):
		return false
	case name == captureLocal, strings.HasPrefix(name, captureLocal+"."):
		return false
	case strings.HasPrefix(name, "injection."):
		return false
	}
	return true
}

// LanguageName returns the name the configuration was created with.
func (c *Configuration) LanguageName() string {
	return c.languageName
}

// CaptureNames returns the capture names of all queries.
func (c *Configuration) CaptureNames() []string {
	return c.captureNames
}

// Close releases the compiled query.
func (c *Configuration) Close() {
	c.query.Close()
}

// injectionForMatch returns the injection described by a match of an injections pattern.
// Injections into the parent language are dropped since a grammar does not know its parent.
func (c *Configuration) injectionForMatch(match tree_sitter.QueryMatch, source []byte) (types.Injection, bool) {
	if c.injectionContentCaptureIndex == nil {
		return types.Injection{}, false
	}

	var (
		languageName    string
		contentNode     *tree_sitter.Node
		includeChildren bool
	)

	for _, capture := range match.Captures {
		index := uint(capture.Index)
		switch {
		case c.injectionLanguageCaptureIndex != nil && index == *c.injectionLanguageCaptureIndex:
			languageName = strings.TrimSpace(capture.Node.Utf8Text(source))
		case index == *c.injectionContentCaptureIndex:
			contentNode = &capture.Node
		}
	}

	for _, property := range c.query.PropertySettings(match.PatternIndex) {
		switch property.Key {
		case captureInjectionLanguage:
			if languageName == "" && property.Value != nil {
				languageName = *property.Value
			}
		case captureInjectionSelf:
			if languageName == "" {
				languageName = c.languageName
			}
		case captureInjectionIncludeChildren:
			includeChildren = true
		}
	}

	if languageName == "" || contentNode == nil {
		return types.Injection{}, false
	}

	return types.Injection{
		Start:           contentNode.StartByte(),
		End:             contentNode.EndByte(),
		Language:        languageName,
		IncludeChildren: includeChildren,
	}, true
}
