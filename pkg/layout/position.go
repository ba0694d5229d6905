package layout

import (
	"cmp"
	"math"
	"slices"

	"github.com/chris-a-talbot/sparg-viz/pkg/arg"
)

// Solver assigns horizontal positions to every node of a graph.
type Solver struct {
	Width      float64
	Margin     float64
	MinSpacing float64
	Nudge      float64
}

// NewSolver returns a solver for the canvas described by opts. opts must
// already carry defaults.
func NewSolver(opts Options) Solver {
	return Solver{
		Width:      opts.Width,
		Margin:     opts.Margin,
		MinSpacing: opts.MinSpacing,
		Nudge:      opts.Nudge,
	}
}

// SamplePositions spreads n samples evenly over the usable width. A single
// sample sits on the left margin.
func (s Solver) SamplePositions(n int) []float64 {
	xs := make([]float64, n)
	if n == 0 {
		return xs
	}
	var step float64
	if n > 1 {
		step = (s.Width - 2*s.Margin) / float64(n-1)
	}
	for i := range xs {
		xs[i] = s.Margin + float64(i)*step
	}
	return xs
}

// Solve returns the x coordinate of every node, indexed by node id.
//
// Samples take the evenly spaced positions in order. Other nodes are placed
// youngest first: each tries its children's weighted centroid, plain
// centroid, and the centroid nudged either way, keeping the candidate with
// the fewest link crossings against the nodes placed so far. Nodes without
// placed children go to the centre. A final pass separates nodes that share
// a time.
func (s Solver) Solve(g *arg.Graph, ix *Index, order []int) []float64 {
	x := make([]float64, len(g.Nodes))
	placed := make([]bool, len(g.Nodes))
	for i, px := range s.SamplePositions(len(order)) {
		x[order[i]] = px
		placed[order[i]] = true
	}

	for _, u := range sortedByTime(g) {
		if placed[u] {
			continue
		}
		x[u] = s.place(u, ix, x, placed)
		placed[u] = true
	}

	s.separate(g, x)
	return x
}

// Candidates returns the positions tried for u, in preference order, given
// the placed nodes. The boolean is false when u has no placed children.
func (s Solver) Candidates(u int, ix *Index, x []float64, placed []bool) ([]float64, bool) {
	var sum, wsum, wtotal float64
	var k int
	for _, c := range ix.children[u] {
		if !placed[c] {
			continue
		}
		w := ix.Weight(u, c)
		sum += x[c]
		wsum += x[c] * w
		wtotal += w
		k++
	}
	if k == 0 {
		return nil, false
	}
	centroid := sum / float64(k)

	var raw []float64
	if wtotal > 0 {
		raw = append(raw, wsum/wtotal)
	}
	raw = append(raw, centroid, centroid-s.Nudge, centroid+s.Nudge)

	out := raw[:0:0]
	for _, c := range raw {
		if c >= s.Margin && c <= s.Width-s.Margin {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		out = append(out, centroid)
	}
	return out, true
}

func (s Solver) place(u int, ix *Index, x []float64, placed []bool) float64 {
	cands, ok := s.Candidates(u, ix, x, placed)
	if !ok {
		return s.Width / 2
	}
	placed[u] = true
	defer func() { placed[u] = false }()

	best, bestCount := cands[0], math.MaxInt
	for _, c := range cands {
		x[u] = c
		if n := ix.crossingsAt(u, x, placed); n < bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

// separate enforces MinSpacing between nodes of equal time, keeping them
// inside the margins.
func (s Solver) separate(g *arg.Graph, x []float64) {
	levels := make(map[float64][]int)
	for u, n := range g.Nodes {
		levels[n.Time] = append(levels[n.Time], u)
	}
	for _, nodes := range levels {
		if len(nodes) < 2 {
			continue
		}
		slices.SortFunc(nodes, func(a, b int) int {
			return cmp.Or(cmp.Compare(x[a], x[b]), cmp.Compare(a, b))
		})
		xs := make([]float64, len(nodes))
		for i, u := range nodes {
			xs[i] = x[u]
		}
		s.spread(xs)
		for i, u := range nodes {
			x[u] = xs[i]
		}
	}
}

// spread adjusts sorted positions in place so that neighbours are at least
// MinSpacing apart within [Margin, Width-Margin] where that fits. When it
// cannot fit, the row is laid out at MinSpacing from the left margin.
func (s Solver) spread(xs []float64) {
	n := len(xs)
	lo, hi := s.Margin, s.Width-s.Margin
	if float64(n-1)*s.MinSpacing > hi-lo {
		xs[0] = lo
		for i := 1; i < n; i++ {
			xs[i] = after(xs[i-1], s.MinSpacing)
		}
		return
	}

	for i := 1; i < n; i++ {
		xs[i] = math.Max(xs[i], after(xs[i-1], s.MinSpacing))
	}
	if xs[n-1] <= hi {
		return
	}

	first, span := xs[0], xs[n-1]-xs[0]
	for i := range xs {
		xs[i] = lo + (xs[i]-first)*(hi-lo)/span
	}
	// Rescaling can shrink a gap below MinSpacing; push right, then pull
	// back from the right bound.
	for i := 1; i < n; i++ {
		xs[i] = math.Max(xs[i], after(xs[i-1], s.MinSpacing))
	}
	xs[n-1] = math.Min(xs[n-1], hi)
	for i := n - 2; i >= 0; i-- {
		xs[i] = math.Min(xs[i], before(xs[i+1], s.MinSpacing))
	}
}

// after returns x+gap, raised by ulps until v-x >= gap holds exactly.
func after(x, gap float64) float64 {
	v := x + gap
	for v-x < gap {
		v = math.Nextafter(v, math.Inf(1))
	}
	return v
}

// before returns x-gap, lowered by ulps until x-v >= gap holds exactly.
func before(x, gap float64) float64 {
	v := x - gap
	for x-v < gap {
		v = math.Nextafter(v, math.Inf(-1))
	}
	return v
}
