package types

var closed = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// Lookup is the single-assignment result of [Provider.Get].
//
// A lookup is either resolved when it is returned ([Found], [NotFound], [Failed])
// or resolved later by a goroutine ([Go]). Result must only be read after Done is closed.
type Lookup struct {
	done    chan struct{}
	grammar Grammar
	err     error
}

// Found returns a resolved lookup holding g.
func Found(g Grammar) *Lookup {
	return &Lookup{done: closed, grammar: g}
}

// NotFound returns a resolved lookup for a language that has no grammar.
func NotFound() *Lookup {
	return &Lookup{done: closed}
}

// Failed returns a resolved lookup for a grammar that could not be acquired.
func Failed(err error) *Lookup {
	return &Lookup{done: closed, err: err}
}

// Go runs load in a new goroutine and returns a lookup that completes when load returns.
// A nil grammar with a nil error means the language was not found.
func Go(load func() (Grammar, error)) *Lookup {
	l := &Lookup{done: make(chan struct{})}
	go func() {
		defer close(l.done)
		l.grammar, l.err = load()
	}()
	return l
}

// Done is closed once the lookup has a result.
func (l *Lookup) Done() <-chan struct{} {
	return l.done
}

// Ready reports whether the result is available without waiting.
func (l *Lookup) Ready() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// Result returns the grammar and error of a completed lookup.
// It returns (nil, nil) when the language was not found.
func (l *Lookup) Result() (Grammar, error) {
	return l.grammar, l.err
}
