// Package render draws a computed ARG layout as an image.
//
// The layout already fixes every node position, so rendering pins nodes
// in place and lets Graphviz (neato, no overlap removal) draw them:
//
//	dot := render.ToDOT(res, render.Options{Labels: true})
//	svg, err := render.Render(ctx, dot, render.FormatSVG)
//
// Samples, recombination nodes and other ancestors get distinct fills.
// Link width grows with the fraction of the genome the link carries.
//
// Rendering runs in-process through [github.com/goccy/go-graphviz]; no
// Graphviz installation is required.
package render
