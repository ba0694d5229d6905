// Package sim builds synthetic ancestral recombination graphs.
//
// The [Builder] runs a coalescent-with-recombination process backwards in
// time over tracked genomic material. Each sample starts as a lineage
// covering the whole sequence. At every step the builder either coalesces
// two lineages over the material they share or splits one lineage in two at
// a recombination breakpoint. When the generation budget runs out the
// remaining lineages are merged pairwise so the graph always has one root.
//
// The sequence is 1000 units long per requested local tree. Breakpoints are
// planned up front (evenly spaced with a small jitter) and recombination
// always splits at one of them, so a graph built for T trees has exactly T
// local trees.
//
// All randomness comes from the [rng.Source] passed to [Build]; the same
// seed always yields the same graph.
//
//	g, err := sim.Build(sim.DefaultParams(), rng.New(42))
package sim
