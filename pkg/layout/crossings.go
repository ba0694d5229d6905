package layout

// crosses reports whether two links drawn as straight segments between a
// parent row and a child row swap order. Links that share an endpoint never
// cross.
func crosses(a, b Pair, x []float64) bool {
	if a.Parent == b.Parent || a.Child == b.Child || a.Parent == b.Child || a.Child == b.Parent {
		return false
	}
	return (x[a.Parent] < x[b.Parent]) != (x[a.Child] < x[b.Child])
}

func placedPair(p Pair, placed []bool) bool {
	return placed[p.Parent] && placed[p.Child]
}

// CountCrossings counts crossing link pairs among links whose endpoints are
// both placed.
func CountCrossings(pairs []Pair, x []float64, placed []bool) int {
	var n int
	for i, a := range pairs {
		if !placedPair(a, placed) {
			continue
		}
		for _, b := range pairs[i+1:] {
			if placedPair(b, placed) && crosses(a, b, x) {
				n++
			}
		}
	}
	return n
}

// crossingsAt counts crossings that involve a link touching u. Moving u only
// changes these, so minimising this count over candidate positions for u
// minimises CountCrossings as well. Each pair is tested in index order, as
// CountCrossings does, so ties in x are judged the same way.
func (ix *Index) crossingsAt(u int, x []float64, placed []bool) int {
	var n int
	for _, i := range ix.touching[u] {
		a := ix.pairs[i]
		if !placedPair(a, placed) {
			continue
		}
		for j, b := range ix.pairs {
			// Links touching u share u with a, so no pair is counted twice.
			if j == i || !placedPair(b, placed) {
				continue
			}
			first, second := a, b
			if j < i {
				first, second = b, a
			}
			if crosses(first, second, x) {
				n++
			}
		}
	}
	return n
}
