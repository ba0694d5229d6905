// Package arg provides the ancestral recombination graph (ARG) data model
// shared by the builder, the spatial propagator and the layout engine.
//
// # Overview
//
// An ARG records the genealogy of a set of sampled genomes along a sequence
// of length L. Nodes are genomes at a point in time (samples at the bottom,
// ancestors above them); each [Edge] says that a child inherits the half-open
// interval [Left, Right) from a parent. A child can have several parents
// over disjoint intervals, which is how recombination shows up in the graph.
//
// # Basic Usage
//
//	g := arg.New(1000)
//	a := g.AddNode(0, arg.RoleSample)
//	b := g.AddNode(0, arg.RoleSample)
//	p := g.AddNode(1.5, arg.RoleInternal)
//	_ = g.AddEdge(p, a, 0, 1000)
//	_ = g.AddEdge(p, b, 0, 1000)
//
// Node ids are dense and equal to the node's index in [Graph.Nodes]. Use
// [Graph.Validate] to check graphs that come from outside the process.
//
// # Local Trees
//
// Every position of the sequence has a single genealogy, its local tree.
// [Graph.Trees] cuts the sequence at the declared breakpoints and at every
// edge endpoint, and precomputes a parent array per tree so MRCA queries do
// not rescan the edge table.
//
// # Transformations
//
// Graphs are immutable once built. [Graph.Simplify] and [Graph.Downsample]
// restrict a graph to a subset of samples, [Graph.Focus] keeps the relatives
// of one node, [Graph.Window] keeps a genomic range, and
// [Graph.WithLocations] splices externally inferred coordinates in. Each
// returns a new Graph.
package arg
