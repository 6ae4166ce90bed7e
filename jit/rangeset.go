package jit

import "sort"

// Range is a closed interval [First, Last] of guest addresses.
type Range struct {
	First uint32
	Last  uint32
}

// RangeSet is a coalesced set of closed guest-address intervals. Inserting
// a range that overlaps or is adjacent to stored ranges merges them, so the
// materialized set never contains two intervals that overlap or touch.
//
// RangeSet is not safe for concurrent use; the controller guards its
// pending set with the invalidation mutex.
type RangeSet struct {
	// ranges is kept sorted by First, disjoint and non-adjacent.
	ranges []Range
}

// Add merges the closed interval [first, last] into the set.
// Requires first <= last.
func (s *RangeSet) Add(first, last uint32) {
	// Find the first stored range that could merge with [first, last].
	// A range merges if it ends at or after first-1 (adjacency counts).
	lo := sort.Search(len(s.ranges), func(i int) bool {
		if first == 0 {
			return true
		}
		return s.ranges[i].Last >= first-1
	})

	// Find one past the last stored range that could merge: it must start
	// at or before last+1.
	hi := lo
	for hi < len(s.ranges) {
		r := s.ranges[hi]
		if last != 0xFFFFFFFF && r.First > last+1 {
			break
		}
		hi++
	}

	merged := Range{First: first, Last: last}
	if lo < hi {
		if s.ranges[lo].First < merged.First {
			merged.First = s.ranges[lo].First
		}
		if s.ranges[hi-1].Last > merged.Last {
			merged.Last = s.ranges[hi-1].Last
		}
	}

	s.ranges = append(s.ranges[:lo], append([]Range{merged}, s.ranges[hi:]...)...)
}

// Empty reports whether the set contains no ranges.
func (s *RangeSet) Empty() bool {
	return len(s.ranges) == 0
}

// Len returns the number of disjoint ranges stored.
func (s *RangeSet) Len() int {
	return len(s.ranges)
}

// Ranges returns a copy of the materialized set, sorted by First.
func (s *RangeSet) Ranges() []Range {
	out := make([]Range, len(s.ranges))
	copy(out, s.ranges)
	return out
}

// Contains reports whether addr falls inside any stored range.
func (s *RangeSet) Contains(addr uint32) bool {
	i := sort.Search(len(s.ranges), func(i int) bool {
		return s.ranges[i].Last >= addr
	})
	return i < len(s.ranges) && s.ranges[i].First <= addr
}

// Clear removes all ranges.
func (s *RangeSet) Clear() {
	s.ranges = s.ranges[:0]
}
