// Package tags maps raw capture names to the short output tags used in rendered markup.
package tags

import "strings"

// Fallback is the tag used for captures that are not part of the table.
const Fallback = "x"

// Output tags.
const (
	Keyword     = "k"
	Function    = "f"
	String      = "s"
	Comment     = "c"
	Type        = "t"
	Variable    = "v"
	Number      = "n"
	Operator    = "o"
	Punctuation = "p"
	Attribute   = "at"
	Constant    = "co"
	Boolean     = "cb"
	Constructor = "cr"
	Property    = "pr"
	Tag         = "tg"
	Label       = "l"
	Macro       = "m"
	Namespace   = "ns"
	Embedded    = "eb"
	Error       = "er"
)

// table is keyed by capture name or capture family. An empty tag suppresses the capture.
var table = map[string]string{
	"keyword":      Keyword,
	"include":      Keyword,
	"conditional":  Keyword,
	"repeat":       Keyword,
	"exception":    Keyword,
	"storageclass": Keyword,

	"function": Function,
	"method":   Function,

	"string":    String,
	"character": String,
	"escape":    String,

	"comment": Comment,

	"type": Type,

	"variable":  Variable,
	"parameter": Variable,

	"number": Number,
	"float":  Number,

	"operator": Operator,

	"punctuation": Punctuation,

	"attribute":   Attribute,
	"constant":    Constant,
	"boolean":     Boolean,
	"constructor": Constructor,
	"property":    Property,
	"tag":         Tag,
	"label":       Label,
	"macro":       Macro,
	"namespace":   Namespace,
	"module":      Namespace,
	"embedded":    Embedded,
	"error":       Error,

	"none":    "",
	"spell":   "",
	"nospell": "",
}

// ForCapture returns the output tag for a capture name.
// The full name is looked up first, then every dotted prefix from longest to shortest.
// ok is false for captures that must not be rendered at all.
func ForCapture(capture string) (tag string, ok bool) {
	if capture == "" || strings.HasPrefix(capture, "_") {
		return "", false
	}

	name := capture
	for {
		if t, found := table[name]; found {
			return t, t != ""
		}

		lastDot := strings.LastIndex(name, ".")
		if lastDot == -1 {
			break
		}
		name = name[:lastDot]
	}

	return Fallback, true
}

// All returns every tag a capture can map to, including [Fallback].
func All() []string {
	return []string{
		Keyword, Function, String, Comment, Type, Variable, Number, Operator, Punctuation,
		Attribute, Constant, Boolean, Constructor, Property, Tag, Label, Macro, Namespace,
		Embedded, Error, Fallback,
	}
}
