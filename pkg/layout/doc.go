// Package layout computes 2D positions for drawing an ARG as a node-link
// diagram.
//
// # Axes
//
// The vertical axis is time rank: every distinct node time gets its own
// row, samples (time 0) at the bottom and the oldest node at the top. The
// horizontal axis is solved.
//
// # Algorithm
//
// [Compute] runs these steps:
//
//  1. Downsample: graphs with more samples than the budget are reduced to
//     an evenly spaced subset and simplified.
//  2. Order samples: [OrderSamples] builds a similarity matrix from pairwise
//     TMRCAs across local trees and greedily chains similar samples.
//  3. Place samples evenly across the canvas in that order.
//  4. Place ancestors youngest first ([Solver.Solve]), picking among a few
//     candidate positions near the children the one with the fewest link
//     crossings.
//  5. Separate nodes on the same row by at least the minimum spacing.
//
// The [Result] also carries the link list with merged genomic intervals,
// one breakpoint band per local tree, and y-axis labels, ready to be
// serialised as JSON or handed to a renderer.
package layout
