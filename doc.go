/*
Package highlight highlights source text and renders it as HTML or colored terminal output.

Grammars turn text into spans (byte ranges labeled with capture names like "keyword.function") and
injections (ranges that should be highlighted as another language, like SQL in a Go string).
Grammars are obtained by name from a [Provider], which may resolve them immediately or later.
The [Highlighter] follows injections up to a configurable depth and merges the spans of every
language into one set of absolute offsets, which [Render] then flattens into non-nested markup.

Three grammar implementations ship with the module:
  - grammar/treesitter: tree-sitter languages with highlights and injections queries
  - grammar/rules: regular expression rules loaded from YAML or TOML definitions
  - grammar/lexer: any lexer known to chroma

# Usage

	golang, err := golang.Grammar()
	if err != nil {
		log.Fatal(err)
	}

	p := provider.NewStatic(map[string]provider.Factory{
		"go": provider.Ready(golang),
	})

	h := highlight.New(p, highlight.DefaultConfig())
	out, err := h.Highlight(context.Background(), "go", []byte("package main\n\nfunc main() {}\n"))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(out)

Providers that load grammars asynchronously, like provider/remote, require the context based
[Highlighter.Highlight]. [Highlighter.HighlightSync] panics with a [*SuspendError] when a grammar
is not immediately available.

The output of the default format wraps each fragment in a custom element named after its tag:

	<a-k>package</a-k> main
*/
package highlight
