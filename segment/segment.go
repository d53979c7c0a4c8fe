// Package segment implements interval algebra over a flat index space.
//
// A Set selects rows or columns of a configuration or velocity vector without
// materializing boolean masks. Sets are kept normalized: segments are sorted,
// disjoint and non-adjacent, so the cardinal of a set is the sum of its lengths
// and two normalized sets are equal iff they select the same indices.
package segment

import (
	"fmt"
	"sort"

	"github.com/bits-and-blooms/bitset"
)

// Segment is a contiguous index range [Start, Start+Length).
type Segment struct {
	Start  int
	Length int
}

// End returns the first index past the segment.
func (s Segment) End() int { return s.Start + s.Length }

// Set is an ordered collection of disjoint, non-adjacent segments.
type Set []Segment

// Single returns a set selecting the single range [start, start+length).
func Single(start, length int) Set {
	if length <= 0 {
		return nil
	}
	return Set{{Start: start, Length: length}}
}

// Cardinal returns the number of indices selected by the set.
func (s Set) Cardinal() int {
	n := 0
	for _, seg := range s {
		n += seg.Length
	}
	return n
}

// Contains reports whether index i is selected by the set.
func (s Set) Contains(i int) bool {
	for _, seg := range s {
		if i >= seg.Start && i < seg.End() {
			return true
		}
	}
	return false
}

// Indices expands the set into the sorted list of selected indices.
func (s Set) Indices() []int {
	idx := make([]int, 0, s.Cardinal())
	for _, seg := range s {
		for i := seg.Start; i < seg.End(); i++ {
			idx = append(idx, i)
		}
	}
	return idx
}

// Shrink normalizes a set: segments are sorted by start index and overlapping or
// adjacent segments are merged. The input is not modified.
func Shrink(s Set) Set {
	if len(s) == 0 {
		return nil
	}
	sorted := make(Set, 0, len(s))
	for _, seg := range s {
		if seg.Length > 0 {
			sorted = append(sorted, seg)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	var out Set
	for _, seg := range sorted {
		if n := len(out); n > 0 && seg.Start <= out[n-1].End() {
			if end := seg.End(); end > out[n-1].End() {
				out[n-1].Length = end - out[n-1].Start
			}
			continue
		}
		out = append(out, seg)
	}
	return out
}

// Union returns the normalized union of two sets.
func Union(a, b Set) Set {
	merged := make(Set, 0, len(a)+len(b))
	merged = append(merged, a...)
	merged = append(merged, b...)
	return Shrink(merged)
}

// Disjoint reports whether the two sets select no common index.
func Disjoint(a, b Set) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	max := 0
	for _, seg := range a {
		if seg.End() > max {
			max = seg.End()
		}
	}
	cover := bitset.New(uint(max))
	for _, seg := range a {
		for i := seg.Start; i < seg.End(); i++ {
			cover.Set(uint(i))
		}
	}
	for _, seg := range b {
		for i := seg.Start; i < seg.End() && i < max; i++ {
			if cover.Test(uint(i)) {
				return false
			}
		}
	}
	return true
}

// FromBools builds a normalized set selecting every index i with mask[i] true.
func FromBools(mask []bool) Set {
	var out Set
	start := -1
	for i, m := range mask {
		switch {
		case m && start < 0:
			start = i
		case !m && start >= 0:
			out = append(out, Segment{Start: start, Length: i - start})
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, Segment{Start: start, Length: len(mask) - start})
	}
	return out
}

// Complement returns the maximal normalized set of indices of [0, size) not
// selected by s. A coverage bit array of length size+1 is used; the sentinel bit
// at index size is always set so the scan below always closes its last segment.
func Complement(size int, s Set) (Set, error) {
	covered := bitset.New(uint(size + 1))
	for _, seg := range s {
		if seg.Length < 0 || seg.Start < 0 || seg.End() > size {
			return nil, fmt.Errorf("segment [%d, %d) out of range [0, %d)", seg.Start, seg.End(), size)
		}
		for i := seg.Start; i < seg.End(); i++ {
			covered.Set(uint(i))
		}
	}
	covered.Set(uint(size))

	var out Set
	start := -1
	for i := 0; i <= size; i++ {
		if !covered.Test(uint(i)) {
			if start < 0 {
				start = i
			}
		} else if start >= 0 {
			out = append(out, Segment{Start: start, Length: i - start})
			start = -1
		}
	}
	return out, nil
}

// Gather copies the coordinates of src selected by the set into dst.
// dst must have length s.Cardinal().
func (s Set) Gather(dst, src []float64) {
	if len(dst) != s.Cardinal() {
		panic(fmt.Sprintf("segment: gather into %d coordinates, set selects %d", len(dst), s.Cardinal()))
	}
	k := 0
	for _, seg := range s {
		k += copy(dst[k:k+seg.Length], src[seg.Start:seg.End()])
	}
}

// Scatter copies src into the coordinates of dst selected by the set.
// src must have length s.Cardinal().
func (s Set) Scatter(dst, src []float64) {
	if len(src) != s.Cardinal() {
		panic(fmt.Sprintf("segment: scatter from %d coordinates, set selects %d", len(src), s.Cardinal()))
	}
	k := 0
	for _, seg := range s {
		copy(dst[seg.Start:seg.End()], src[k:k+seg.Length])
		k += seg.Length
	}
}

func (s Set) String() string {
	out := "{"
	for i, seg := range s {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("[%d,%d)", seg.Start, seg.End())
	}
	return out + "}"
}
