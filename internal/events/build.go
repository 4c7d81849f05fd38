package events

import (
	"iter"
	"slices"
)

type sortKey struct {
	offset uint
	start  bool
	// rank orders boundaries at the same offset and kind: starts of longer spans
	// come first so that shorter spans end up on top of the stack.
	rank int
}

// compare compares the current sortKey (k) with another sortKey (other) lexicographically.
// Returns:
//
// -1 if other is greater
//
//	1 if k is greater
//
// 0 if both are equal
func (k sortKey) compare(other sortKey) int {
	if k.offset < other.offset {
		return -1
	}
	if k.offset > other.offset {
		return 1
	}

	if !k.start && other.start {
		return -1
	}
	if k.start && !other.start {
		return 1
	}

	if k.rank < other.rank {
		return -1
	}
	if k.rank > other.rank {
		return 1
	}

	return 0
}

type boundary struct {
	key   sortKey
	index int
}

func boundaries(spans []Span) []boundary {
	result := make([]boundary, 0, len(spans)*2)
	for i, span := range spans {
		length := int(span.End - span.Start)
		result = append(result,
			boundary{key: sortKey{offset: span.Start, start: true, rank: -length}, index: i},
			boundary{key: sortKey{offset: span.End, start: false, rank: length}, index: i},
		)
	}
	slices.SortStableFunc(result, func(a, b boundary) int {
		return a.key.compare(b.key)
	})
	return result
}

// Build returns the render events for spans over a source of sourceLen bytes.
//
// Every byte of the source is covered by exactly one [EventSource]. Where spans overlap,
// the fragment is attributed to the innermost open span only, so the output never nests.
// Spans that are empty or reach past sourceLen are ignored.
func Build(spans []Span, sourceLen uint) iter.Seq[Event] {
	valid := make([]Span, 0, len(spans))
	for _, span := range spans {
		if span.Start >= span.End || span.End > sourceLen {
			continue
		}
		valid = append(valid, span)
	}

	return func(yield func(Event) bool) {
		var (
			offset uint
			stack  []int
		)

		emit := func(end uint) bool {
			if end <= offset {
				return true
			}
			source := EventSource{StartByte: offset, EndByte: end}
			offset = end

			if len(stack) == 0 {
				return yield(source)
			}

			tag := valid[stack[len(stack)-1]].Tag
			return yield(EventCaptureStart{Tag: tag}) &&
				yield(source) &&
				yield(EventCaptureEnd{Tag: tag})
		}

		for _, b := range boundaries(valid) {
			if !emit(b.key.offset) {
				return
			}

			if b.key.start {
				stack = append(stack, b.index)
				continue
			}
			if i := slices.Index(stack, b.index); i != -1 {
				stack = slices.Delete(stack, i, i+1)
			}
		}

		emit(sourceLen)
	}
}
