package sim

import (
	"math"
	"slices"

	"github.com/chris-a-talbot/sparg-viz/pkg/arg"
	errs "github.com/chris-a-talbot/sparg-viz/pkg/errors"
	"github.com/chris-a-talbot/sparg-viz/pkg/interval"
	"github.com/chris-a-talbot/sparg-viz/pkg/rng"
)

const (
	unitsPerTree = 1000.0

	// minRecombinationLength is the shortest lineage span that can split.
	minRecombinationLength = 100.0
	// maxRecombinationMargin caps the excluded margin at each end of a span.
	maxRecombinationMargin = 100.0
	recombinationMarginFrac = 0.1

	breakpointJitter = 0.1

	baseTimeStep      = 0.05
	finalTimeStep     = 0.1
	singleTreeStart   = 0.1
	tripleMergeProb   = 0.2
	generationFactor  = 4
	treeBoost         = 0.05
	maxTreeBoost      = 0.3
	maxBaseEventProb  = 0.8
	maxDenseEventProb = 0.9
	minEventProb      = 0.1
	maxEventProb      = 0.9
)

// State is the builder's lifecycle stage.
type State int

const (
	StateInitializing State = iota
	StateEvolving
	StateFinalCoalescence
	StateBuilt
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateEvolving:
		return "evolving"
	case StateFinalCoalescence:
		return "final-coalescence"
	case StateBuilt:
		return "built"
	}
	return "unknown"
}

// Stats counts the events of one build.
type Stats struct {
	Generations    int     `json:"generations"`
	Coalescences   int     `json:"coalescences"`
	Recombinations int     `json:"recombinations"`
	NoOps          int     `json:"no_ops"`
	FinalMerges    int     `json:"final_merges"`
	RootTime       float64 `json:"root_time"`
}

// lineage is an active ancestral line and the material it still carries.
type lineage struct {
	node int
	span interval.Set
}

// Builder simulates a coalescent-with-recombination process and records the
// resulting ARG. A Builder is single-use and not safe for concurrent use.
type Builder struct {
	params Params
	src    rng.Source

	g        *arg.Graph
	planned  []float64 // interior breakpoints
	lineages []lineage
	now      float64
	state    State
	stats    Stats
}

// NewBuilder validates p and prepares a builder drawing from src.
func NewBuilder(p Params, src rng.Source) (*Builder, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, errs.New(errs.ErrCodeInvalidParameter, "random source is required")
	}
	return &Builder{params: p, src: src}, nil
}

// Build runs the simulation and returns the graph. It never fails for
// validated parameters; the error covers graph assembly invariants only.
func Build(p Params, src rng.Source) (*arg.Graph, error) {
	b, err := NewBuilder(p, src)
	if err != nil {
		return nil, err
	}
	return b.Build()
}

// State returns the builder's current stage.
func (b *Builder) State() State { return b.state }

// Stats returns the event counters of the last build.
func (b *Builder) Stats() Stats { return b.stats }

// Build runs the simulation. Calling Build again returns the same graph.
func (b *Builder) Build() (*arg.Graph, error) {
	if b.state == StateBuilt {
		return b.g, nil
	}
	b.initialize()

	var err error
	if b.params.Trees == 1 {
		err = b.buildSingleTree()
	} else {
		err = b.evolve()
		if err == nil {
			err = b.finalCoalescence()
		}
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "assemble graph")
	}

	b.stats.RootTime = b.rootTime()
	b.state = StateBuilt
	return b.g, nil
}

func (b *Builder) initialize() {
	b.state = StateInitializing
	seqLen := b.params.SequenceLength()
	b.g = arg.New(seqLen)
	b.g.Spatial = arg.Spatial{Dims: b.params.SpatialDims}
	if b.params.SpatialDims >= 1 {
		b.g.Spatial.XRange = b.params.XRange
	}
	if b.params.SpatialDims == 2 {
		b.g.Spatial.YRange = b.params.YRange
	}

	b.planned = b.plannedBreakpoints(seqLen)
	b.g.SetBreakpoints(b.planned)

	b.lineages = make([]lineage, 0, b.params.Samples)
	for i := 0; i < b.params.Samples; i++ {
		id := b.g.AddNode(0, arg.RoleSample)
		if b.params.SpatialDims > 0 {
			b.g.Attach(id, b.sampleLocation())
		}
		b.lineages = append(b.lineages, lineage{node: id, span: interval.Full(seqLen)})
	}
}

// plannedBreakpoints spaces Trees-1 interior breakpoints evenly and jitters
// each by up to 10% of the tree width.
func (b *Builder) plannedBreakpoints(seqLen float64) []float64 {
	t := b.params.Trees
	if t <= 1 {
		return nil
	}
	width := seqLen / float64(t)
	out := make([]float64, 0, t-1)
	for i := 1; i < t; i++ {
		jitter := rng.Uniform(b.src, -breakpointJitter, breakpointJitter) * width
		out = append(out, float64(i)*width+jitter)
	}
	slices.Sort(out)
	return out
}

func (b *Builder) sampleLocation() []float64 {
	x := b.params.XRange / 2
	loc := []float64{rng.Uniform(b.src, -x, x)}
	if b.params.SpatialDims == 2 {
		y := b.params.YRange / 2
		loc = append(loc, rng.Uniform(b.src, -y, y))
	}
	return loc
}

// addAncestor creates a non-sample node at the current time. Spatial graphs
// give it an unlocated individual for the propagator to fill in.
func (b *Builder) addAncestor(role arg.Role) int {
	id := b.g.AddNode(b.now, role)
	if b.params.SpatialDims > 0 {
		b.g.Attach(id, nil)
	}
	return id
}

// eventProbability is the chance that an evolving step attempts a
// recombination rather than a coalescence.
func (b *Builder) eventProbability() float64 {
	p := math.Min(maxBaseEventProb,
		b.params.RecombinationProb+math.Min(maxTreeBoost, float64(b.params.Trees-1)*treeBoost))
	switch d := b.params.EdgeDensity; {
	case d > 1:
		p = math.Min(maxDenseEventProb, p*d)
	case d < 1:
		p = math.Max(minEventProb, p*d)
	}
	return math.Min(maxEventProb, math.Max(minEventProb, p))
}

func (b *Builder) evolve() error {
	b.state = StateEvolving
	b.now = singleTreeStart
	p := b.eventProbability()
	limit := b.params.Generations * generationFactor

	for gen := 0; gen < limit && len(b.lineages) > 1; gen++ {
		var (
			ok  bool
			err error
		)
		if b.src.Float64() < p && len(b.lineages) >= 2 {
			if ok, err = b.recombine(); ok {
				b.stats.Recombinations++
			}
		} else {
			if ok, err = b.coalesce(); ok {
				b.stats.Coalescences++
			}
		}
		if err != nil {
			return err
		}
		if !ok {
			b.stats.NoOps++
		}
		b.advance(b.src.ExpFloat64() * baseTimeStep / b.params.CoalescenceRate)
		b.stats.Generations++
	}
	return nil
}

// advance moves the clock forward by dt, always by a positive amount.
func (b *Builder) advance(dt float64) {
	next := b.now + dt
	if !(next > b.now) {
		next = math.Nextafter(b.now, math.Inf(1))
	}
	b.now = next
}

// coalesce merges two random lineages over their shared material.
func (b *Builder) coalesce() (bool, error) {
	if len(b.lineages) < 2 {
		return false, nil
	}
	pick := rng.Sample(b.src, len(b.lineages), 2)
	l1, l2 := b.lineages[pick[0]], b.lineages[pick[1]]
	shared := interval.Intersect(l1.span, l2.span)
	if shared.IsEmpty() {
		return false, nil
	}

	parent := b.addAncestor(arg.RoleInternal)
	for _, iv := range shared.Intervals() {
		if err := b.g.AddEdge(parent, l1.node, iv.Left, iv.Right); err != nil {
			return false, err
		}
		if err := b.g.AddEdge(parent, l2.node, iv.Left, iv.Right); err != nil {
			return false, err
		}
	}
	b.retire(l1.node, l2.node)
	b.lineages = append(b.lineages, lineage{node: parent, span: interval.Merge(l1.span, l2.span)})
	return true, nil
}

// recombine splits one random lineage at a planned breakpoint near a
// uniformly drawn position in its material.
func (b *Builder) recombine() (bool, error) {
	if len(b.lineages) == 0 {
		return false, nil
	}
	l := b.lineages[b.src.IntN(len(b.lineages))]
	total := l.span.Length()
	if total <= minRecombinationLength {
		return false, nil
	}
	margin := math.Min(maxRecombinationMargin, total*recombinationMarginFrac)
	if total-2*margin <= 0 {
		return false, nil
	}
	target := rng.Uniform(b.src, margin, total-margin)
	split, ok := b.snap(l.span, target, margin, total-margin)
	if !ok {
		return false, nil
	}

	left, right := l.span.SplitAt(split)
	if left.IsEmpty() || right.IsEmpty() {
		return false, nil
	}

	leftNode := b.addAncestor(arg.RoleRecombination)
	rightNode := b.addAncestor(arg.RoleRecombination)
	for _, side := range []struct {
		node int
		span interval.Set
	}{{leftNode, left}, {rightNode, right}} {
		for _, iv := range side.span.Intervals() {
			if err := b.g.AddEdge(side.node, l.node, iv.Left, iv.Right); err != nil {
				return false, err
			}
		}
	}
	b.retire(l.node)
	b.lineages = append(b.lineages,
		lineage{node: leftNode, span: left},
		lineage{node: rightNode, span: right},
	)
	return true, nil
}

// snap returns the planned breakpoint whose offset into span is nearest to
// target, considering only offsets within [lo, hi].
func (b *Builder) snap(span interval.Set, target, lo, hi float64) (float64, bool) {
	best, bestDist := 0.0, math.Inf(1)
	for _, bp := range b.planned {
		off := span.Offset(bp)
		if off < lo || off > hi {
			continue
		}
		if d := math.Abs(off - target); d < bestDist {
			best, bestDist = bp, d
		}
	}
	return best, !math.IsInf(bestDist, 1)
}

// retire removes the lineages for the given nodes, preserving the order of
// the rest.
func (b *Builder) retire(nodes ...int) {
	b.lineages = slices.DeleteFunc(b.lineages, func(l lineage) bool {
		return slices.Contains(nodes, l.node)
	})
}

// finalCoalescence pairs the remaining lineages from the end of the list
// until a single root remains.
func (b *Builder) finalCoalescence() error {
	b.state = StateFinalCoalescence
	for len(b.lineages) > 1 {
		n := len(b.lineages)
		c1, c2 := b.lineages[n-1], b.lineages[n-2]
		b.lineages = b.lineages[:n-2]

		parent := b.addAncestor(arg.RoleInternal)
		for _, c := range []lineage{c1, c2} {
			for _, iv := range c.span.Intervals() {
				if err := b.g.AddEdge(parent, c.node, iv.Left, iv.Right); err != nil {
					return err
				}
			}
		}
		b.lineages = append(b.lineages, lineage{node: parent, span: interval.Merge(c1.span, c2.span)})
		b.stats.FinalMerges++
		b.advance(finalTimeStep)
	}
	return nil
}

// buildSingleTree coalesces lineages over the whole sequence, occasionally
// three at a time, until one remains.
func (b *Builder) buildSingleTree() error {
	b.state = StateEvolving
	b.now = singleTreeStart
	seqLen := b.g.SequenceLength

	for len(b.lineages) > 1 {
		k := 2
		if len(b.lineages) >= 3 && b.src.Float64() < tripleMergeProb {
			k = 3
		}
		children := make([]int, 0, k)
		for range k {
			i := b.src.IntN(len(b.lineages))
			children = append(children, b.lineages[i].node)
			b.lineages = slices.Delete(b.lineages, i, i+1)
		}

		parent := b.addAncestor(arg.RoleInternal)
		for _, c := range children {
			if err := b.g.AddEdge(parent, c, 0, seqLen); err != nil {
				return err
			}
		}
		b.lineages = append(b.lineages, lineage{node: parent, span: interval.Full(seqLen)})
		b.stats.Coalescences++
		b.advance(b.src.ExpFloat64() / float64(max(len(b.lineages), 1)))
		b.stats.Generations++
	}
	return nil
}

func (b *Builder) rootTime() float64 {
	var t float64
	for _, n := range b.g.Nodes {
		t = math.Max(t, n.Time)
	}
	return t
}
