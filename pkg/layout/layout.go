package layout

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/chris-a-talbot/sparg-viz/pkg/arg"
	errs "github.com/chris-a-talbot/sparg-viz/pkg/errors"
	"github.com/chris-a-talbot/sparg-viz/pkg/interval"
)

const (
	// DefaultMaxSamples is the sample budget used when none is given.
	DefaultMaxSamples = 25

	// DefaultWidth is the canvas width in pixels.
	DefaultWidth = 800.0

	// DefaultHeight is the minimum canvas height in pixels. Tall graphs
	// grow past it by LevelHeight per distinct node time.
	DefaultHeight = 600.0

	// DefaultMargin is the padding on every side of the canvas.
	DefaultMargin = 50.0

	// DefaultMinSpacing is the smallest horizontal gap between nodes of the
	// same time.
	DefaultMinSpacing = 15.0

	// DefaultNudge is how far the solver shifts a node off its centroid
	// when looking for fewer crossings.
	DefaultNudge = 20.0

	// LevelHeight is the vertical room per distinct node time.
	LevelHeight = 60.0

	// levelPadding is added to the per-level height.
	levelPadding = 150.0
)

// Options configures [Compute]. Zero fields take the package defaults.
type Options struct {
	MaxSamples int     `json:"max_samples,omitempty" toml:"max_samples" yaml:"max_samples"`
	Width      float64 `json:"width,omitempty" toml:"width" yaml:"width"`
	Height     float64 `json:"height,omitempty" toml:"height" yaml:"height"`
	Margin     float64 `json:"margin,omitempty" toml:"margin" yaml:"margin"`
	MinSpacing float64 `json:"min_spacing,omitempty" toml:"min_spacing" yaml:"min_spacing"`
	Nudge      float64 `json:"nudge,omitempty" toml:"nudge" yaml:"nudge"`
	Title      string  `json:"title,omitempty" toml:"title" yaml:"title"`
}

// SetDefaults fills zero fields. MaxSamples is left alone: zero and
// negative budgets are errors, not requests for the default.
func (o *Options) SetDefaults() {
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.Margin == 0 {
		o.Margin = DefaultMargin
	}
	if o.MinSpacing == 0 {
		o.MinSpacing = DefaultMinSpacing
	}
	if o.Nudge == 0 {
		o.Nudge = DefaultNudge
	}
}

// Validate checks the canvas geometry and the sample budget.
func (o *Options) Validate() error {
	if o.MaxSamples < 2 {
		return errs.New(errs.ErrCodeTooFewSamples, "max samples must be at least 2, got %d", o.MaxSamples)
	}
	if o.Margin < 0 || o.MinSpacing < 0 || o.Nudge < 0 {
		return errs.New(errs.ErrCodeInvalidParameter, "margin, min spacing and nudge must be non-negative")
	}
	if o.Width <= 2*o.Margin {
		return errs.New(errs.ErrCodeInvalidParameter, "width %g leaves no room inside margin %g", o.Width, o.Margin)
	}
	if o.Height <= 2*o.Margin {
		return errs.New(errs.ErrCodeInvalidParameter, "height %g leaves no room inside margin %g", o.Height, o.Margin)
	}
	return nil
}

// Node is one positioned node of the payload.
type Node struct {
	ID       int       `json:"id"`
	Label    string    `json:"label"`
	Time     float64   `json:"time"`
	Rank     int       `json:"rank"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Role     arg.Role  `json:"role"`
	Flags    uint32    `json:"ts_flags"`
	ChildOf  []int     `json:"child_of"`
	ParentOf []int     `json:"parent_of"`
	Location []float64 `json:"location,omitempty"`
}

// Link is one parent-child pair with all the material it carries.
type Link struct {
	ID             int                 `json:"id"`
	Source         int                 `json:"source"`
	Target         int                 `json:"target"`
	Intervals      []interval.Interval `json:"intervals"`
	Bounds         string              `json:"bounds"`
	RegionFraction float64             `json:"region_fraction"`
	EdgeWeight     float64             `json:"edge_weight"`
}

// Breakpoint describes the genome segment of one local tree, scaled to the
// canvas width.
type Breakpoint struct {
	Start    float64 `json:"start"`
	Stop     float64 `json:"stop"`
	XPos01   float64 `json:"x_pos_01"`
	XPos     float64 `json:"x_pos"`
	Width01  float64 `json:"width_01"`
	Width    float64 `json:"width"`
	Included bool    `json:"included"`
}

// YAxis labels the rank-based time axis.
type YAxis struct {
	Ticks       []int     `json:"ticks"`
	Text        []string  `json:"text"`
	MaxMin      [2]int    `json:"max_min"`
	Scale       string    `json:"scale"`
	UniqueTimes []float64 `json:"unique_times"`
}

// Result is the complete visualization payload.
type Result struct {
	Nodes                      []Node       `json:"nodes"`
	Links                      []Link       `json:"links"`
	Breakpoints                []Breakpoint `json:"breakpoints"`
	YAxis                      YAxis        `json:"y_axis"`
	SampleOrder                []int        `json:"sample_order"`
	EvenlyDistributedPositions []float64    `json:"evenly_distributed_positions"`
	Width                      float64      `json:"width"`
	Height                     float64      `json:"height"`
	Title                      string       `json:"title"`
	SourceSamples              int          `json:"source_samples"`
	Downsampled                bool         `json:"downsampled"`
}

// Compute lays g out for display. Graphs with more than opts.MaxSamples
// samples are first reduced to an evenly spaced subset of them.
//
// It returns a TOO_FEW_SAMPLES error when the budget is below 2 and a
// SAMPLE_BUDGET_EXCEEDED error when it is above the graph's sample count.
func Compute(g *arg.Graph, opts Options) (*Result, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	total := g.NumSamples()
	if opts.MaxSamples > total {
		return nil, errs.New(errs.ErrCodeSampleBudgetExceeded,
			"max samples %d exceeds the %d samples in the graph", opts.MaxSamples, total)
	}

	work := g
	if total > opts.MaxSamples {
		var err error
		if work, err = g.Downsample(opts.MaxSamples); err != nil {
			return nil, err
		}
	}

	ix := NewIndex(work)
	trees := work.Trees()
	order := OrderSamples(work, trees)
	x := NewSolver(opts).Solve(work, ix, order)

	res := &Result{
		SampleOrder:   order,
		Width:         opts.Width,
		SourceSamples: total,
		Downsampled:   work != g,
	}
	times, rank := timeRanks(work)
	res.Height = math.Max(opts.Height, float64(len(times))*LevelHeight+levelPadding)
	res.YAxis = yAxis(times)
	res.Nodes = nodes(work, ix, x, rank, res.Height, opts.Margin, len(times))
	res.Links = links(work, ix)
	res.Breakpoints = breakpoints(work, trees, opts.Width)
	for _, n := range res.Nodes {
		if n.Role == arg.RoleSample {
			res.EvenlyDistributedPositions = append(res.EvenlyDistributedPositions, n.X)
		}
	}
	res.Title = opts.Title
	if res.Title == "" {
		res.Title = fmt.Sprintf("ARG - %d samples, %d edges", len(order), len(res.Links))
	}
	return res, nil
}

// timeRanks returns the distinct node times in ascending order and the rank
// of each node's time.
func timeRanks(g *arg.Graph) ([]float64, []int) {
	times := make([]float64, len(g.Nodes))
	for i, n := range g.Nodes {
		times[i] = n.Time
	}
	slices.Sort(times)
	times = slices.Compact(times)

	rank := make([]int, len(g.Nodes))
	for i, n := range g.Nodes {
		rank[i], _ = slices.BinarySearch(times, n.Time)
	}
	return times, rank
}

// yFor maps a time rank to a canvas y. Rank 0 sits on the bottom margin,
// the oldest rank on the top margin.
func yFor(rank, levels int, height, margin float64) float64 {
	bottom := height - margin
	if levels < 2 {
		return bottom
	}
	return bottom - float64(rank)*(height-2*margin)/float64(levels-1)
}

func nodes(g *arg.Graph, ix *Index, x []float64, rank []int, height, margin float64, levels int) []Node {
	out := make([]Node, len(g.Nodes))
	for i, n := range g.Nodes {
		out[i] = Node{
			ID:       n.ID,
			Label:    fmt.Sprint(n.ID),
			Time:     n.Time,
			Rank:     rank[i],
			X:        x[i],
			Y:        yFor(rank[i], levels, height, margin),
			Role:     n.Role,
			Flags:    n.Flags(),
			ChildOf:  ix.Parents(i),
			ParentOf: ix.Children(i),
			Location: g.Location(i),
		}
	}
	return out
}

func links(g *arg.Graph, ix *Index) []Link {
	pairs := ix.Pairs()
	out := make([]Link, len(pairs))
	for i, p := range pairs {
		span := ix.Span(p.Parent, p.Child)
		ivs := span.Intervals()
		bounds := make([]string, len(ivs))
		for j, iv := range ivs {
			bounds[j] = formatBounds(iv)
		}
		out[i] = Link{
			ID:             i,
			Source:         p.Parent,
			Target:         p.Child,
			Intervals:      ivs,
			Bounds:         strings.Join(bounds, " "),
			RegionFraction: span.Length() / g.SequenceLength,
			EdgeWeight:     ix.Weight(p.Parent, p.Child),
		}
	}
	return out
}

func breakpoints(g *arg.Graph, trees []*arg.Tree, width float64) []Breakpoint {
	out := make([]Breakpoint, len(trees))
	for i, t := range trees {
		x01 := t.Left / g.SequenceLength
		w01 := t.Span() / g.SequenceLength
		out[i] = Breakpoint{
			Start:    t.Left,
			Stop:     t.Right,
			XPos01:   x01,
			XPos:     x01 * width,
			Width01:  w01,
			Width:    w01 * width,
			Included: true,
		}
	}
	return out
}

func yAxis(times []float64) YAxis {
	ax := YAxis{
		Ticks:       make([]int, len(times)),
		Text:        make([]string, len(times)),
		MaxMin:      [2]int{max(len(times)-1, 0), 0},
		Scale:       "rank",
		UniqueTimes: times,
	}
	for i, t := range times {
		ax.Ticks[i] = i
		ax.Text[i] = formatTime(t)
	}
	return ax
}

func isWhole(v float64) bool {
	return math.Abs(v-math.Trunc(v)) < 1e-10
}

func formatTime(t float64) string {
	if isWhole(t) {
		return fmt.Sprintf("%d", int64(t))
	}
	return fmt.Sprintf("%.3f", t)
}

func formatBounds(iv interval.Interval) string {
	if isWhole(iv.Left) && isWhole(iv.Right) {
		return fmt.Sprintf("%d-%d", int64(iv.Left), int64(iv.Right))
	}
	return fmt.Sprintf("%.1f-%.1f", iv.Left, iv.Right)
}

// sortedByTime returns node ids ordered by time, ties by id.
func sortedByTime(g *arg.Graph) []int {
	ids := make([]int, len(g.Nodes))
	for i := range ids {
		ids[i] = i
	}
	slices.SortFunc(ids, func(a, b int) int {
		return cmp.Or(cmp.Compare(g.Nodes[a].Time, g.Nodes[b].Time), cmp.Compare(a, b))
	})
	return ids
}
