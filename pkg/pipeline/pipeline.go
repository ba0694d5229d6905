// Package pipeline runs the simulate → layout → render flow shared by the
// CLI and the HTTP API.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Simulate: build a synthetic ARG (and place ancestors on the landscape
//     for spatial runs) through a [Simulator]
//  2. Layout: downsample, optionally focus, and compute node positions
//  3. Render: draw the layout as SVG, PNG or DOT
//  4. Infer (on demand): estimate ancestral locations with an
//     [infer.Inferrer] and splice them into the graph
//
// Every stage is cached through a [cache.Cache] keyed by content hashes,
// and concurrent identical layout requests are computed once.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Params: sim.DefaultParams(),
//	    Seed:   42,
//	    Format: render.FormatSVG,
//	})
//	svg := result.Artifact
//
// Run individual stages:
//
//	g, err := runner.Simulate(ctx, params, seed)
//	res, err := runner.ComputeLayout(ctx, g, pipeline.LayoutRequest{...})
//	svg, err := runner.Render(ctx, res, render.FormatSVG, render.Options{})
package pipeline

import (
	"time"

	"github.com/chris-a-talbot/sparg-viz/pkg/arg"
	"github.com/chris-a-talbot/sparg-viz/pkg/cache"
	errs "github.com/chris-a-talbot/sparg-viz/pkg/errors"
	"github.com/chris-a-talbot/sparg-viz/pkg/layout"
	"github.com/chris-a-talbot/sparg-viz/pkg/render"
	"github.com/chris-a-talbot/sparg-viz/pkg/sim"
)

// DefaultFormat is the default output format.
const DefaultFormat = render.FormatSVG

// Options configures a full [Runner.Execute] run.
type Options struct {
	Params sim.Params `json:"params"`
	// Seed fixes the random source. Zero draws a fresh seed, which is
	// reported in the result; unseeded runs are never cached.
	Seed uint64 `json:"seed,omitempty"`

	Layout    layout.Options `json:"layout"`
	Focus     *int           `json:"focus,omitempty"`
	FocusMode arg.FocusMode  `json:"focus_mode,omitempty"`

	Format render.Format `json:"format,omitempty"`
	Labels bool          `json:"labels,omitempty"`

	// Refresh bypasses cache reads; results are still written.
	Refresh bool `json:"refresh,omitempty"`
}

// SetDefaults fills unset fields.
func (o *Options) SetDefaults() {
	o.Params.SetDefaults()
	if o.Layout.MaxSamples == 0 {
		o.Layout.MaxSamples = min(layout.DefaultMaxSamples, max(o.Params.Samples, 2))
	}
	o.Layout.SetDefaults()
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	if o.Focus != nil && o.FocusMode == "" {
		o.FocusMode = arg.FocusSubgraph
	}
}

// Validate checks every stage's options.
func (o *Options) Validate() error {
	if err := o.Params.Validate(); err != nil {
		return err
	}
	if err := o.Layout.Validate(); err != nil {
		return err
	}
	if _, err := render.ParseFormat(string(o.Format)); err != nil {
		return err
	}
	if o.Focus != nil {
		if _, err := arg.ParseFocusMode(string(o.FocusMode)); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAndSetDefaults applies defaults, then validates.
func (o *Options) ValidateAndSetDefaults() error {
	o.SetDefaults()
	if err := o.Validate(); err != nil {
		return errs.Wrap(errs.GetCode(err), err, "invalid options")
	}
	return nil
}

// LayoutRequest configures [Runner.ComputeLayout].
type LayoutRequest struct {
	Layout    layout.Options
	Focus     *int
	FocusMode arg.FocusMode
	// Clamp lowers a sample budget above the graph's sample count instead
	// of failing.
	Clamp   bool
	Refresh bool
}

func (r LayoutRequest) keyOpts() cache.LayoutKeyOpts {
	k := cache.LayoutKeyOpts{
		MaxSamples: r.Layout.MaxSamples,
		Width:      r.Layout.Width,
		Height:     r.Layout.Height,
		Margin:     r.Layout.Margin,
		MinSpacing: r.Layout.MinSpacing,
		Nudge:      r.Layout.Nudge,
		Title:      r.Layout.Title,
		Focus:      -1,
	}
	if r.Focus != nil {
		k.Focus = *r.Focus
		k.FocusMode = string(r.FocusMode)
	}
	return k
}

// Result holds the outputs of [Runner.Execute].
type Result struct {
	Graph     *arg.Graph     `json:"-"`
	GraphHash string         `json:"graph_hash"`
	Seed      uint64         `json:"seed"`
	Layout    *layout.Result `json:"layout"`
	Artifact  []byte         `json:"-"`
	Format    render.Format  `json:"format"`
	Stats     Stats          `json:"stats"`
	CacheInfo CacheInfo      `json:"cache_info"`
}

// Stats holds per-stage timings and sizes.
type Stats struct {
	SimulateTime time.Duration `json:"simulate_time"`
	LayoutTime   time.Duration `json:"layout_time"`
	RenderTime   time.Duration `json:"render_time"`
	NodeCount    int           `json:"node_count"`
	EdgeCount    int           `json:"edge_count"`
	SampleCount  int           `json:"sample_count"`
}

// CacheInfo reports which stages were served from cache.
type CacheInfo struct {
	SimulateHit bool `json:"simulate_hit"`
	LayoutHit   bool `json:"layout_hit"`
	RenderHit   bool `json:"render_hit"`
}
