package interval

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// Interval is a half-open genomic interval [Left, Right).
type Interval struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

// Length returns Right - Left, or 0 for empty or inverted intervals.
func (iv Interval) Length() float64 {
	if iv.Right <= iv.Left {
		return 0
	}
	return iv.Right - iv.Left
}

// Empty reports whether the interval covers nothing.
func (iv Interval) Empty() bool { return !(iv.Right > iv.Left) }

// Contains reports whether x lies in [Left, Right).
func (iv Interval) Contains(x float64) bool { return x >= iv.Left && x < iv.Right }

// Covers reports whether iv fully contains o.
func (iv Interval) Covers(o Interval) bool { return iv.Left <= o.Left && o.Right <= iv.Right }

func (iv Interval) String() string {
	return fmt.Sprintf("[%g, %g)", iv.Left, iv.Right)
}

// Set is a sorted, disjoint, non-touching list of intervals.
//
// The zero value is the empty set. A Set is immutable: every operation
// returns a new Set and the backing slice is never exposed.
type Set struct {
	ivs []Interval
}

// New builds a Set from arbitrary intervals, dropping empty ones and
// merging overlapping or adjacent ones.
func New(ivs ...Interval) Set {
	return Set{ivs: normalize(slices.Clone(ivs))}
}

// Full returns the set [0, length).
func Full(length float64) Set {
	return New(Interval{0, length})
}

// Merge unions any number of sets into a minimal Set.
func Merge(sets ...Set) Set {
	n := 0
	for _, s := range sets {
		n += len(s.ivs)
	}
	all := make([]Interval, 0, n)
	for _, s := range sets {
		all = append(all, s.ivs...)
	}
	return Set{ivs: normalize(all)}
}

// Intersect returns the regions covered by both a and b.
// The pairwise overlap is O(len(a)·len(b)); lists are short in practice.
func Intersect(a, b Set) Set {
	if a.IsEmpty() || b.IsEmpty() {
		return Set{}
	}
	var out []Interval
	for _, x := range a.ivs {
		for _, y := range b.ivs {
			lo := math.Max(x.Left, y.Left)
			hi := math.Min(x.Right, y.Right)
			if lo < hi {
				out = append(out, Interval{lo, hi})
			}
		}
	}
	return Set{ivs: normalize(out)}
}

// SplitAt partitions s at coordinate x into the parts left and right of x.
func (s Set) SplitAt(x float64) (left, right Set) {
	left = Intersect(s, New(Interval{math.Inf(-1), x}))
	right = Intersect(s, New(Interval{x, math.Inf(1)}))
	return left, right
}

// Intervals returns a copy of the member intervals in ascending order.
func (s Set) Intervals() []Interval { return slices.Clone(s.ivs) }

// Len returns the number of disjoint intervals.
func (s Set) Len() int { return len(s.ivs) }

// IsEmpty reports whether the set covers nothing.
func (s Set) IsEmpty() bool { return len(s.ivs) == 0 }

// Length returns the total covered length.
func (s Set) Length() float64 {
	var total float64
	for _, iv := range s.ivs {
		total += iv.Length()
	}
	return total
}

// Bounds returns the hull [first.Left, last.Right) of the set.
func (s Set) Bounds() (Interval, bool) {
	if s.IsEmpty() {
		return Interval{}, false
	}
	return Interval{s.ivs[0].Left, s.ivs[len(s.ivs)-1].Right}, true
}

// Contains reports whether x is covered by the set.
func (s Set) Contains(x float64) bool {
	i, _ := slices.BinarySearchFunc(s.ivs, x, func(iv Interval, x float64) int {
		switch {
		case iv.Right <= x:
			return -1
		case iv.Left > x:
			return 1
		}
		return 0
	})
	return i < len(s.ivs) && s.ivs[i].Contains(x)
}

// Locate maps a cumulative offset into the covered material back to a
// genome coordinate. Offsets past the end clamp to the last Right.
func (s Set) Locate(offset float64) float64 {
	if s.IsEmpty() {
		return 0
	}
	for _, iv := range s.ivs {
		l := iv.Length()
		if offset <= l {
			return iv.Left + math.Max(offset, 0)
		}
		offset -= l
	}
	return s.ivs[len(s.ivs)-1].Right
}

// Offset returns the covered length strictly left of coordinate x.
func (s Set) Offset(x float64) float64 {
	var total float64
	for _, iv := range s.ivs {
		switch {
		case x >= iv.Right:
			total += iv.Length()
		case x > iv.Left:
			total += x - iv.Left
		}
	}
	return total
}

// Equal reports whether two sets cover exactly the same intervals.
func (s Set) Equal(o Set) bool {
	return slices.Equal(s.ivs, o.ivs)
}

func (s Set) String() string {
	parts := make([]string, len(s.ivs))
	for i, iv := range s.ivs {
		parts[i] = iv.String()
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// normalize sorts ivs in place and folds overlapping or adjacent spans.
func normalize(ivs []Interval) []Interval {
	ivs = slices.DeleteFunc(ivs, Interval.Empty)
	if len(ivs) == 0 {
		return nil
	}
	slices.SortFunc(ivs, func(a, b Interval) int {
		switch {
		case a.Left < b.Left:
			return -1
		case a.Left > b.Left:
			return 1
		case a.Right < b.Right:
			return -1
		case a.Right > b.Right:
			return 1
		}
		return 0
	})
	out := ivs[:1]
	for _, iv := range ivs[1:] {
		last := &out[len(out)-1]
		if iv.Left <= last.Right {
			last.Right = math.Max(last.Right, iv.Right)
			continue
		}
		out = append(out, iv)
	}
	return out
}
