package highlight

import (
	"fmt"

	"gitlab.com/tozd/go/errors"
)

var (
	// ErrUnsupportedLanguage matches errors returned when the root language has no grammar.
	ErrUnsupportedLanguage = errors.Base("unsupported language")
	// ErrParseFailure matches errors returned when the root grammar fails to parse the source.
	ErrParseFailure = errors.Base("parse failure")
)

// UnsupportedLanguageError is returned when the provider has no grammar for the requested
// language, or failed to acquire it. Err holds the provider failure, if any.
type UnsupportedLanguageError struct {
	Language string
	Err      error
}

func (e *UnsupportedLanguageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unsupported language %q: %s", e.Language, e.Err)
	}
	return fmt.Sprintf("unsupported language %q", e.Language)
}

func (e *UnsupportedLanguageError) Is(target error) bool {
	return target == ErrUnsupportedLanguage
}

func (e *UnsupportedLanguageError) Unwrap() error {
	return e.Err
}

// ParseError is returned when the grammar of the root language fails.
type ParseError struct {
	Language string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %q source: %s", e.Language, e.Err)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParseFailure
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SuspendError is the panic value of the non-suspending entry points when the provider
// returns a lookup that has not completed yet.
type SuspendError struct {
	Language string
}

func (e *SuspendError) Error() string {
	return fmt.Sprintf("grammar lookup for %q has not completed, use a context based call", e.Language)
}
