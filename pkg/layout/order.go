package layout

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/chris-a-talbot/sparg-viz/pkg/arg"
)

const (
	// recentWindow is how many of the last placed samples add a bonus.
	recentWindow = 3
	// recentBonus weighs similarity to recently placed samples.
	recentBonus = 0.3
)

// Similarity returns the symmetric sample similarity matrix, indexed like
// samples. Each local tree adds
//
//	span/L / (1 + tMRCA + d1 + d2)
//
// for every pair with an MRCA in that tree, where d is the time from a
// sample up to the MRCA.
func Similarity(g *arg.Graph, trees []*arg.Tree, samples []int) *mat.SymDense {
	n := len(samples)
	s := mat.NewSymDense(max(n, 1), nil)
	for _, t := range trees {
		w := t.Span() / g.SequenceLength
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				a, b := samples[i], samples[j]
				m, ok := t.MRCA(a, b)
				if !ok {
					continue
				}
				tm := g.Nodes[m].Time
				d1 := math.Abs(tm - g.Nodes[a].Time)
				d2 := math.Abs(tm - g.Nodes[b].Time)
				s.SetSym(i, j, s.At(i, j)+w/(1+tm+d1+d2))
			}
		}
	}
	return s
}

// OrderSamples returns the graph's samples in an order that keeps samples
// with recent shared ancestry next to each other.
//
// The sample with the largest total similarity goes first. Each following
// sample maximises its similarity to the last placed sample plus 0.3 times
// its similarity to each of the last three placed samples; ties go to the
// lower sample id.
func OrderSamples(g *arg.Graph, trees []*arg.Tree) []int {
	samples := g.Samples()
	n := len(samples)
	if n <= 2 {
		return samples
	}
	sim := Similarity(g, trees, samples)

	totals := make([]float64, n)
	row := make([]float64, n)
	for i := range totals {
		mat.Row(row, i, sim)
		totals[i] = floats.Sum(row)
	}
	start := floats.MaxIdx(totals)

	placed := make([]bool, n)
	order := []int{start}
	placed[start] = true
	for len(order) < n {
		last := order[len(order)-1]
		recent := order[max(0, len(order)-recentWindow):]
		best, bestScore := -1, math.Inf(-1)
		for c := 0; c < n; c++ {
			if placed[c] {
				continue
			}
			score := sim.At(last, c)
			for _, r := range recent {
				score += sim.At(c, r) * recentBonus
			}
			if score > bestScore {
				best, bestScore = c, score
			}
		}
		if best < 0 {
			// Degenerate scores (NaN): take the first unplaced sample.
			for c := range placed {
				if !placed[c] {
					best = c
					break
				}
			}
		}
		order = append(order, best)
		placed[best] = true
	}

	out := make([]int, n)
	for i, idx := range order {
		out[i] = samples[idx]
	}
	return out
}
