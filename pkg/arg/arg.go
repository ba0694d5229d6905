package arg

import (
	"errors"
	"math"
	"slices"

	errs "github.com/chris-a-talbot/sparg-viz/pkg/errors"
	"github.com/chris-a-talbot/sparg-viz/pkg/interval"
)

var (
	// ErrUnknownNode is returned when an edge or query references a node id
	// outside the node table.
	ErrUnknownNode = errors.New("unknown node")

	// ErrInvalidInterval is returned for edges whose interval is empty or
	// falls outside [0, SequenceLength].
	ErrInvalidInterval = errors.New("invalid edge interval")

	// ErrTimeOrder is returned when an edge's parent is not strictly older
	// than its child.
	ErrTimeOrder = errors.New("parent must be strictly older than child")

	// ErrNonDenseID is returned by [Graph.Validate] when node ids are not
	// equal to their table index.
	ErrNonDenseID = errors.New("node ids must be dense and ordered")

	// ErrUnknownIndividual is returned when a node references an individual
	// outside the individual table.
	ErrUnknownIndividual = errors.New("unknown individual")

	// ErrSequenceLength is returned when the sequence length is not a
	// positive finite number.
	ErrSequenceLength = errors.New("sequence length must be positive")
)

// NoIndividual marks a node without an associated individual.
const NoIndividual = -1

// Node flag bits, compatible with tree-sequence tooling.
const (
	FlagSample        uint32 = 1
	FlagRecombination uint32 = 1 << 17
)

// Role classifies a node.
type Role int

const (
	// RoleInternal is an ordinary ancestral (coalescence) node.
	RoleInternal Role = iota
	// RoleSample is a leaf observed at the present or at a sampling time.
	RoleSample
	// RoleRecombination is a node created by a recombination event.
	RoleRecombination
)

var roleNames = map[Role]string{
	RoleInternal:      "internal",
	RoleSample:        "sample",
	RoleRecombination: "recombination",
}

func (r Role) String() string {
	if s, ok := roleNames[r]; ok {
		return s
	}
	return "unknown"
}

// MarshalText encodes the role by name.
func (r Role) MarshalText() ([]byte, error) {
	if _, ok := roleNames[r]; !ok {
		return nil, errs.New(errs.ErrCodeInvalidFormat, "unknown node role %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText decodes a role name.
func (r *Role) UnmarshalText(b []byte) error {
	for role, name := range roleNames {
		if name == string(b) {
			*r = role
			return nil
		}
	}
	return errs.New(errs.ErrCodeInvalidFormat, "unknown node role %q", string(b))
}

// Node is a vertex of the ARG. ID equals the node's index in [Graph.Nodes].
type Node struct {
	ID         int     `json:"id"`
	Time       float64 `json:"time"`
	Role       Role    `json:"role"`
	Individual int     `json:"individual"`
}

// IsSample reports whether the node is a sample.
func (n Node) IsSample() bool { return n.Role == RoleSample }

// Flags returns the node's flag bits.
func (n Node) Flags() uint32 {
	switch n.Role {
	case RoleSample:
		return FlagSample
	case RoleRecombination:
		return FlagRecombination
	}
	return 0
}

// Edge records that Child inherits [Left, Right) from Parent.
type Edge struct {
	Parent int     `json:"parent"`
	Child  int     `json:"child"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

// Span returns the edge's genomic interval.
func (e Edge) Span() interval.Interval { return interval.Interval{Left: e.Left, Right: e.Right} }

// Individual holds an optional spatial location. An empty location means
// the individual has not been placed yet.
type Individual struct {
	Location []float64 `json:"location"`
}

// Located reports whether the individual has coordinates.
func (ind Individual) Located() bool { return len(ind.Location) > 0 }

// Spatial records the landscape a graph was generated on.
// Dims is 0 for non-spatial graphs.
type Spatial struct {
	Dims   int     `json:"dims"`
	XRange float64 `json:"x_range,omitempty"`
	YRange float64 `json:"y_range,omitempty"`
}

// Range returns the extent of the given axis (0 = x, 1 = y).
func (s Spatial) Range(axis int) float64 {
	if axis == 0 {
		return s.XRange
	}
	return s.YRange
}

// Graph is an ancestral recombination graph over a sequence of length
// SequenceLength.
//
// Graphs are built with [New] and the Add methods, then treated as
// immutable: every transformation returns a new Graph.
type Graph struct {
	SequenceLength float64      `json:"sequence_length"`
	Nodes          []Node       `json:"nodes"`
	Edges          []Edge       `json:"edges"`
	Individuals    []Individual `json:"individuals"`
	// Breakpoints are declared local-tree boundaries, ascending, including
	// 0 and SequenceLength.
	Breakpoints []float64 `json:"breakpoints"`
	Spatial     Spatial   `json:"spatial"`
}

// New creates an empty graph over [0, seqLen).
func New(seqLen float64) *Graph {
	return &Graph{
		SequenceLength: seqLen,
		Breakpoints:    []float64{0, seqLen},
	}
}

// AddNode appends a node and returns its id.
func (g *Graph) AddNode(t float64, role Role) int {
	id := len(g.Nodes)
	g.Nodes = append(g.Nodes, Node{ID: id, Time: t, Role: role, Individual: NoIndividual})
	return id
}

// AddIndividual appends an individual and returns its index.
func (g *Graph) AddIndividual(loc []float64) int {
	g.Individuals = append(g.Individuals, Individual{Location: slices.Clone(loc)})
	return len(g.Individuals) - 1
}

// Attach gives node its own individual at loc (nil for unlocated) and
// returns the individual's index.
func (g *Graph) Attach(node int, loc []float64) int {
	ind := g.AddIndividual(loc)
	g.Nodes[node].Individual = ind
	return ind
}

// AddEdge appends an edge after checking its endpoints, interval and
// time ordering.
func (g *Graph) AddEdge(parent, child int, left, right float64) error {
	e := Edge{Parent: parent, Child: child, Left: left, Right: right}
	if err := g.checkEdge(e); err != nil {
		return err
	}
	g.Edges = append(g.Edges, e)
	return nil
}

// SetBreakpoints replaces the declared local-tree boundaries. The list is
// sorted, deduplicated, clipped to the sequence and closed with 0 and L.
func (g *Graph) SetBreakpoints(bps []float64) {
	out := []float64{0, g.SequenceLength}
	for _, b := range bps {
		if b > 0 && b < g.SequenceLength {
			out = append(out, b)
		}
	}
	slices.Sort(out)
	g.Breakpoints = slices.Compact(out)
}

func (g *Graph) checkEdge(e Edge) error {
	n := len(g.Nodes)
	if e.Parent < 0 || e.Parent >= n {
		return errs.Wrap(errs.ErrCodeInvalidGraph, ErrUnknownNode, "edge parent %d", e.Parent)
	}
	if e.Child < 0 || e.Child >= n {
		return errs.Wrap(errs.ErrCodeInvalidGraph, ErrUnknownNode, "edge child %d", e.Child)
	}
	if !(e.Left >= 0 && e.Left < e.Right && e.Right <= g.SequenceLength) {
		return errs.Wrap(errs.ErrCodeInvalidGraph, ErrInvalidInterval,
			"edge %d->%d [%g, %g) outside [0, %g)", e.Parent, e.Child, e.Left, e.Right, g.SequenceLength)
	}
	if pt, ct := g.Nodes[e.Parent].Time, g.Nodes[e.Child].Time; !(pt > ct) {
		return errs.Wrap(errs.ErrCodeInvalidGraph, ErrTimeOrder,
			"edge %d->%d: parent time %g, child time %g", e.Parent, e.Child, pt, ct)
	}
	return nil
}

// Validate verifies structural integrity: a positive sequence length, dense
// node ids with finite non-negative times, known individuals and well-formed
// edges.
func (g *Graph) Validate() error {
	if !(g.SequenceLength > 0) || math.IsInf(g.SequenceLength, 0) {
		return errs.Wrap(errs.ErrCodeInvalidGraph, ErrSequenceLength, "got %g", g.SequenceLength)
	}
	for i, n := range g.Nodes {
		if n.ID != i {
			return errs.Wrap(errs.ErrCodeInvalidGraph, ErrNonDenseID, "node at index %d has id %d", i, n.ID)
		}
		if math.IsNaN(n.Time) || math.IsInf(n.Time, 0) {
			return errs.New(errs.ErrCodeInvalidGraph, "node %d has non-finite time", i)
		}
		if n.Time < 0 {
			return errs.New(errs.ErrCodeInvalidGraph, "node %d has negative time %g", i, n.Time)
		}
		if n.Individual != NoIndividual && (n.Individual < 0 || n.Individual >= len(g.Individuals)) {
			return errs.Wrap(errs.ErrCodeInvalidGraph, ErrUnknownIndividual, "node %d references individual %d", i, n.Individual)
		}
	}
	for _, e := range g.Edges {
		if err := g.checkEdge(e); err != nil {
			return err
		}
	}
	return nil
}

// Samples returns the ids of sample nodes in ascending order.
func (g *Graph) Samples() []int {
	var out []int
	for _, n := range g.Nodes {
		if n.IsSample() {
			out = append(out, n.ID)
		}
	}
	return out
}

// NumSamples returns the number of sample nodes.
func (g *Graph) NumSamples() int {
	c := 0
	for _, n := range g.Nodes {
		if n.IsSample() {
			c++
		}
	}
	return c
}

// Location returns the location of node's individual, or nil when the node
// has no located individual. The returned slice must not be modified.
func (g *Graph) Location(node int) []float64 {
	if node < 0 || node >= len(g.Nodes) {
		return nil
	}
	ind := g.Nodes[node].Individual
	if ind < 0 || ind >= len(g.Individuals) {
		return nil
	}
	return g.Individuals[ind].Location
}

// Clone returns a deep copy of g.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		SequenceLength: g.SequenceLength,
		Nodes:          slices.Clone(g.Nodes),
		Edges:          slices.Clone(g.Edges),
		Individuals:    make([]Individual, len(g.Individuals)),
		Breakpoints:    slices.Clone(g.Breakpoints),
		Spatial:        g.Spatial,
	}
	for i, ind := range g.Individuals {
		c.Individuals[i] = Individual{Location: slices.Clone(ind.Location)}
	}
	return c
}

// Roots returns the nodes that appear as a parent but never as a child.
func (g *Graph) Roots() []int {
	isChild := make([]bool, len(g.Nodes))
	isParent := make([]bool, len(g.Nodes))
	for _, e := range g.Edges {
		isChild[e.Child] = true
		isParent[e.Parent] = true
	}
	var out []int
	for i := range g.Nodes {
		if isParent[i] && !isChild[i] {
			out = append(out, i)
		}
	}
	return out
}

// NodeSpan returns the material each node inherits from its parents, or for
// parentless nodes the material passed to their children.
func (g *Graph) NodeSpan(node int) interval.Set {
	var up, down []interval.Interval
	for _, e := range g.Edges {
		if e.Child == node {
			up = append(up, e.Span())
		} else if e.Parent == node {
			down = append(down, e.Span())
		}
	}
	if len(up) > 0 {
		return interval.New(up...)
	}
	return interval.New(down...)
}
