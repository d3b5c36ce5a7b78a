// Package interval implements closed integer interval sets in
// canonical (sorted, disjoint, non-adjacent) form, with the union,
// intersection, difference and containment operations the Coordinator
// needs to track per-(chain,event) coverage.
package interval

import "sort"

// Range is a closed integer interval [Lo, Hi]. Lo <= Hi always holds
// for a Range that appears inside a canonical Set.
type Range struct {
	Lo, Hi int64
}

// Set is a finite disjoint union of closed integer intervals, always
// kept in canonical form: sorted by Lo, no two ranges overlapping or
// touching (adjacent ranges are merged).
type Set struct {
	ranges []Range
}

// Empty returns the empty set.
func Empty() *Set { return &Set{} }

// Closed returns the single-interval set [lo, hi]. If hi < lo the
// result is empty.
func Closed(lo, hi int64) *Set {
	if hi < lo {
		return Empty()
	}
	return &Set{ranges: []Range{{Lo: lo, Hi: hi}}}
}

// Singleton returns the one-point set {h}.
func Singleton(h int64) *Set {
	return Closed(h, h)
}

// FromPairs builds a Set from a (not necessarily sorted or disjoint)
// list of [lo,hi] pairs, such as the `range` field persisted in a
// coordinator document.
func FromPairs(pairs [][2]int64) *Set {
	s := Empty()
	for _, p := range pairs {
		s = s.Union(Closed(p[0], p[1]))
	}
	return s
}

// ToPairs serializes the set to its canonical [lo,hi] pair form. An
// empty set serializes to an empty (non-nil) slice.
func (s *Set) ToPairs() [][2]int64 {
	out := make([][2]int64, len(s.ranges))
	for i, r := range s.ranges {
		out[i] = [2]int64{r.Lo, r.Hi}
	}
	return out
}

// Ranges returns the canonical ranges in ascending order. The caller
// must not mutate the returned slice.
func (s *Set) Ranges() []Range {
	return s.ranges
}

// IsEmpty reports whether the set has no members.
func (s *Set) IsEmpty() bool {
	return len(s.ranges) == 0
}

// Contains reports whether h falls inside any range of the set.
func (s *Set) Contains(h int64) bool {
	// Binary search for the first range whose Hi >= h.
	i := sort.Search(len(s.ranges), func(i int) bool { return s.ranges[i].Hi >= h })
	return i < len(s.ranges) && s.ranges[i].Lo <= h
}

// Equal reports whether two sets have identical canonical form.
func (s *Set) Equal(o *Set) bool {
	if len(s.ranges) != len(o.ranges) {
		return false
	}
	for i := range s.ranges {
		if s.ranges[i] != o.ranges[i] {
			return false
		}
	}
	return true
}

// Union returns the canonical union of s and o.
func (s *Set) Union(o *Set) *Set {
	merged := append(append([]Range{}, s.ranges...), o.ranges...)
	sort.Slice(merged, func(i, j int) bool { return merged[i].Lo < merged[j].Lo })

	var out []Range
	for _, r := range merged {
		if len(out) == 0 {
			out = append(out, r)
			continue
		}
		last := &out[len(out)-1]
		// Adjacent (last.Hi+1 == r.Lo) or overlapping ranges merge.
		if r.Lo <= last.Hi+1 {
			if r.Hi > last.Hi {
				last.Hi = r.Hi
			}
		} else {
			out = append(out, r)
		}
	}
	return &Set{ranges: out}
}

// Intersect returns the canonical intersection of s and o.
func (s *Set) Intersect(o *Set) *Set {
	var out []Range
	i, j := 0, 0
	for i < len(s.ranges) && j < len(o.ranges) {
		a, b := s.ranges[i], o.ranges[j]
		lo := maxI64(a.Lo, b.Lo)
		hi := minI64(a.Hi, b.Hi)
		if lo <= hi {
			out = append(out, Range{Lo: lo, Hi: hi})
		}
		if a.Hi < b.Hi {
			i++
		} else {
			j++
		}
	}
	return &Set{ranges: out}
}

// Difference returns s minus o (the members of s not present in o).
func (s *Set) Difference(o *Set) *Set {
	result := s
	for _, r := range o.ranges {
		result = result.subtractRange(r)
	}
	return result
}

func (s *Set) subtractRange(r Range) *Set {
	var out []Range
	for _, a := range s.ranges {
		if a.Hi < r.Lo || a.Lo > r.Hi {
			out = append(out, a)
			continue
		}
		if a.Lo < r.Lo {
			out = append(out, Range{Lo: a.Lo, Hi: r.Lo - 1})
		}
		if a.Hi > r.Hi {
			out = append(out, Range{Lo: r.Hi + 1, Hi: a.Hi})
		}
	}
	return &Set{ranges: out}
}

func maxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func minI64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
