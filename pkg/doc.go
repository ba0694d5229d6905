// Package pkg provides the core libraries for spargviz, a builder and
// layout engine for ancestral recombination graphs (ARGs).
//
// # Overview
//
// An ARG records how a set of sampled genomes descend from their
// ancestors when recombination lets different stretches of the sequence
// follow different genealogies. Every stretch between two breakpoints has
// its own local tree; the ARG is the union of those trees. spargviz builds
// such graphs, places their ancestors on a landscape and lays them out
// for display.
//
// # Architecture
//
// The typical data flow:
//
//	sim.Params
//	     ↓
//	[sim] package (backwards-in-time simulation)
//	     ↓
//	[spatial] package (sample scatter + ancestor placement)
//	     ↓
//	[arg] package (graph, local trees, downsample / focus / window)
//	     ↓
//	[layout] package (sample ordering + crossing-minimising placement)
//	     ↓
//	[render] package (Graphviz SVG / PNG / DOT)
//
// # Quick Start
//
//	import (
//	    "github.com/chris-a-talbot/sparg-viz/pkg/layout"
//	    "github.com/chris-a-talbot/sparg-viz/pkg/rng"
//	    "github.com/chris-a-talbot/sparg-viz/pkg/sim"
//	)
//
//	// 1. Simulate
//	p := sim.DefaultParams()
//	p.Samples, p.Trees = 12, 4
//	g, _ := sim.Build(p, rng.New(42))
//
//	// 2. Lay out
//	res, _ := layout.Compute(g, layout.Options{MaxSamples: 12})
//
// [pipeline.Runner] runs the same stages with caching and is what the CLI
// and the HTTP API use.
//
// # Main Packages
//
// ## Domain
//
// [arg] - The graph model: nodes, edges over genomic intervals,
// individuals with locations, local trees and the graph transformations.
//
// [interval] - Half-open genomic intervals and interval sets.
//
// [sim] - The simulation state machine.
//
// [spatial] - Landscape bounds, sample scatter and ancestor propagation.
//
// [layout] - Sample similarity ordering, the placement solver and the
// visualization payload.
//
// [infer] - Location inference, built in (midpoint) or through an
// external program.
//
// ## Output
//
// [render] - DOT generation and Graphviz rendering.
//
// [io] - The graph document format and location tables.
//
// ## Infrastructure
//
// [pipeline] - The simulate → layout → render flow shared by every entry
// point.
//
// [cache] - File, Redis and null caches with content-hash keys.
//
// [store] - The graph registry behind the HTTP API.
//
// [config] - TOML and YAML configuration.
//
// [observability] - Hooks for pipeline, cache and HTTP events, with a
// Prometheus implementation in observability/metrics.
//
// [errors] - Coded errors shared by the API and the CLI.
//
// # Testing
//
//	go test ./pkg/...          # All tests
//	go test ./pkg/layout/...   # Specific package
//	go test -run Example       # Examples only
package pkg
