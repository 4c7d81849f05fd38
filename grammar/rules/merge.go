package rules

import (
	"iter"
	"regexp"
)

type match struct {
	rule int
	loc  []int
}

// scanner yields the matches of one pattern at or after a position.
// Matches found by a single scan of the whole text are used while they start at or after
// the position, the pattern is searched again from the position otherwise.
type scanner struct {
	re   *regexp.Regexp
	text []byte
	locs [][]int
	next int
}

// overlapped reports that the previous candidate of the pattern started before pos.
func (s *scanner) from(pos int, overlapped bool) []int {
	skipped := overlapped
	for ; s.next < len(s.locs); s.next++ {
		loc := s.locs[s.next]
		if loc[0] == loc[1] {
			continue
		}
		if loc[0] < pos {
			skipped = true
			continue
		}
		if !skipped {
			s.next++
			return loc
		}
		break
	}
	if !skipped {
		return nil
	}
	return s.search(pos)
}

// search returns the first non-empty match starting at or after pos.
func (s *scanner) search(pos int) []int {
	for p := pos; p <= len(s.text); {
		loc := s.re.FindSubmatchIndex(s.text[p:])
		if loc == nil {
			return nil
		}
		for i := range loc {
			if loc[i] >= 0 {
				loc[i] += p
			}
		}
		if loc[0] < loc[1] {
			return loc
		}
		p = loc[1] + 1
	}
	return nil
}

// merge yields the non-overlapping matches of all patterns from left to right.
// At each position the earliest match wins and ties go to the lower pattern index.
// Empty matches are skipped.
func merge(text []byte, patterns []*regexp.Regexp) iter.Seq[match] {
	return func(yield func(match) bool) {
		scanners := make([]*scanner, len(patterns))
		candidates := make([][]int, len(patterns))
		for i, re := range patterns {
			scanners[i] = &scanner{re: re, text: text, locs: re.FindAllSubmatchIndex(text, -1)}
			candidates[i] = scanners[i].from(0, false)
		}

		pos := 0
		for {
			best := -1
			for i, s := range scanners {
				if candidates[i] != nil && candidates[i][0] < pos {
					candidates[i] = s.from(pos, true)
				}
				if candidates[i] == nil {
					continue
				}
				if best == -1 || candidates[i][0] < candidates[best][0] {
					best = i
				}
			}
			if best == -1 {
				return
			}

			loc := candidates[best]
			candidates[best] = scanners[best].from(loc[1], false)
			pos = loc[1]

			if !yield(match{rule: best, loc: loc}) {
				return
			}
		}
	}
}
