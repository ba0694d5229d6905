// Package interval provides the genomic interval set used throughout sparg-viz.
//
// An ARG edge is inherited over one or more half-open intervals of the
// sequence. Lineages carry the union of the material they still trace, and
// coalescence keeps only the material two lineages share. [Set] models that
// material as an opaque, always-normalised value: intervals are sorted,
// disjoint and never touch, so two sets covering the same positions are
// [Set.Equal].
//
// # Operations
//
//   - [Merge] unions sets (sorting by start and folding overlaps).
//   - [Intersect] keeps the shared material.
//   - [Set.SplitAt] cuts a set at a coordinate.
//   - [Set.Locate] and [Set.Offset] convert between genome coordinates and
//     offsets into the covered material, which the recombination model uses
//     to pick split points proportional to material length.
//
// Empty intervals (Left >= Right) are dropped on construction, and merging an
// already merged set is a no-op.
package interval
