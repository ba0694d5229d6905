package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/chris-a-talbot/sparg-viz/pkg/arg"
	"github.com/chris-a-talbot/sparg-viz/pkg/cache"
	errs "github.com/chris-a-talbot/sparg-viz/pkg/errors"
	"github.com/chris-a-talbot/sparg-viz/pkg/infer"
	argio "github.com/chris-a-talbot/sparg-viz/pkg/io"
	"github.com/chris-a-talbot/sparg-viz/pkg/layout"
	"github.com/chris-a-talbot/sparg-viz/pkg/observability"
	"github.com/chris-a-talbot/sparg-viz/pkg/render"
	"github.com/chris-a-talbot/sparg-viz/pkg/rng"
	"github.com/chris-a-talbot/sparg-viz/pkg/sim"
)

// Cache key types reported to the cache hooks.
const (
	keyTypeSimulation = "simulation"
	keyTypeLayout     = "layout"
	keyTypeRender     = "render"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it to avoid duplicating caching logic.
//
// The Runner holds no pipeline results itself. Multiple goroutines can
// safely use the same Runner with different options.
type Runner struct {
	Cache     cache.Cache
	Keyer     cache.Keyer
	Logger    *log.Logger
	Simulator Simulator
	Inferrer  infer.Inferrer

	layouts singleflight.Group
}

// NewRunner creates a runner with the given cache and keyer.
// A nil keyer means [cache.DefaultKeyer], a nil cache disables caching and
// a nil logger uses the default logger. The runner starts with the built-in
// simulator and the midpoint inferrer.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:     c,
		Keyer:     keyer,
		Logger:    logger,
		Simulator: BuiltinSimulator{},
		Inferrer:  infer.Midpoint{},
	}
}

// Execute runs simulate → layout → render with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	result := &Result{Format: opts.Format}

	start := time.Now()
	g, seed, hit, err := r.SimulateWithCacheInfo(ctx, opts.Params, opts.Seed, opts.Refresh)
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	result.Graph = g
	result.Seed = seed
	result.GraphHash = GraphHash(g)
	result.Stats.SimulateTime = time.Since(start)
	result.Stats.NodeCount = len(g.Nodes)
	result.Stats.EdgeCount = len(g.Edges)
	result.Stats.SampleCount = g.NumSamples()
	result.CacheInfo.SimulateHit = hit

	r.Logger.Info("simulated ARG",
		"nodes", len(g.Nodes),
		"edges", len(g.Edges),
		"seed", seed,
		"duration", result.Stats.SimulateTime)

	start = time.Now()
	res, hit, err := r.ComputeLayoutWithCacheInfo(ctx, g, LayoutRequest{
		Layout:    opts.Layout,
		Focus:     opts.Focus,
		FocusMode: opts.FocusMode,
		Refresh:   opts.Refresh,
	})
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Layout = res
	result.Stats.LayoutTime = time.Since(start)
	result.CacheInfo.LayoutHit = hit

	r.Logger.Info("computed layout",
		"nodes", len(res.Nodes),
		"links", len(res.Links),
		"duration", result.Stats.LayoutTime)

	start = time.Now()
	art, hit, err := r.RenderWithCacheInfo(ctx, res, opts.Format, render.Options{Labels: opts.Labels}, opts.Refresh)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifact = art
	result.Stats.RenderTime = time.Since(start)
	result.CacheInfo.RenderHit = hit

	r.Logger.Info("rendered output",
		"format", opts.Format,
		"bytes", len(art),
		"duration", result.Stats.RenderTime)

	return result, nil
}

// SimulateWithCacheInfo builds a graph and reports the seed used and
// whether the graph came from cache. A zero seed draws a fresh one; such
// runs are not cached.
func (r *Runner) SimulateWithCacheInfo(ctx context.Context, p sim.Params, seed uint64, refresh bool) (*arg.Graph, uint64, bool, error) {
	p.SetDefaults()
	if err := p.Validate(); err != nil {
		return nil, 0, false, err
	}

	seeded := seed != 0
	var src rng.Source
	if seeded {
		src = rng.New(seed)
	} else {
		src, seed = rng.NewRandom()
	}

	key := r.Keyer.SimulationKey(cache.HashJSON(struct {
		Simulator string
		Params    sim.Params
	}{r.Simulator.Name(), p}), seed)
	if seeded && !refresh {
		if g, ok := r.cachedGraph(ctx, key); ok {
			return g, seed, true, nil
		}
	}

	hooks := observability.Pipeline()
	hooks.OnSimulateStart(ctx, p.Samples, p.Trees)
	start := time.Now()
	g, err := r.Simulator.Simulate(ctx, p, src)
	hooks.OnSimulateComplete(ctx, p.Samples, p.Trees, time.Since(start), err)
	if err != nil {
		return nil, 0, false, err
	}

	if seeded {
		var buf bytes.Buffer
		if err := argio.WriteGraph(&buf, g); err == nil {
			r.store(ctx, keyTypeSimulation, key, buf.Bytes(), cache.SimulationTTL)
		}
	}
	return g, seed, false, nil
}

// Simulate is a convenience wrapper around [Runner.SimulateWithCacheInfo].
func (r *Runner) Simulate(ctx context.Context, p sim.Params, seed uint64) (*arg.Graph, error) {
	g, _, _, err := r.SimulateWithCacheInfo(ctx, p, seed, false)
	return g, err
}

// ComputeLayoutWithCacheInfo lays g out and reports whether the layout came
// from cache. Concurrent calls for the same graph and options share one
// computation.
//
// With a focus node the graph is downsampled first and the focus filter is
// applied to the downsampled graph, so focus ids refer to the nodes of the
// layout a client already shows.
func (r *Runner) ComputeLayoutWithCacheInfo(ctx context.Context, g *arg.Graph, req LayoutRequest) (*layout.Result, bool, error) {
	if req.Layout.MaxSamples == 0 {
		req.Layout.MaxSamples = layout.DefaultMaxSamples
	}
	if n := g.NumSamples(); req.Clamp && req.Layout.MaxSamples > n {
		req.Layout.MaxSamples = n
	}
	req.Layout.SetDefaults()
	if err := req.Layout.Validate(); err != nil {
		return nil, false, err
	}
	if req.Focus != nil {
		if req.FocusMode == "" {
			req.FocusMode = arg.FocusSubgraph
		}
		if _, err := arg.ParseFocusMode(string(req.FocusMode)); err != nil {
			return nil, false, err
		}
	}

	key := r.Keyer.LayoutKey(GraphHash(g), req.keyOpts())
	if !req.Refresh {
		if data, ok := r.load(ctx, keyTypeLayout, key); ok {
			var res layout.Result
			if err := json.Unmarshal(data, &res); err == nil {
				return &res, true, nil
			}
		}
	}

	v, err, shared := r.layouts.Do(key, func() (any, error) {
		res, err := r.computeLayout(ctx, g, req)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(res); err == nil {
			r.store(ctx, keyTypeLayout, key, data, cache.LayoutTTL)
		}
		return res, nil
	})
	if err != nil {
		return nil, false, err
	}
	if shared {
		r.Logger.Debug("shared layout computation", "key", key)
	}
	return v.(*layout.Result), false, nil
}

// ComputeLayout is a convenience wrapper around
// [Runner.ComputeLayoutWithCacheInfo].
func (r *Runner) ComputeLayout(ctx context.Context, g *arg.Graph, req LayoutRequest) (*layout.Result, error) {
	res, _, err := r.ComputeLayoutWithCacheInfo(ctx, g, req)
	return res, err
}

func (r *Runner) computeLayout(ctx context.Context, g *arg.Graph, req LayoutRequest) (*layout.Result, error) {
	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, g.NumSamples())
	start := time.Now()
	res, err := focusedLayout(g, req)
	hooks.OnLayoutComplete(ctx, g.NumSamples(), time.Since(start), err)
	return res, err
}

func focusedLayout(g *arg.Graph, req LayoutRequest) (*layout.Result, error) {
	if req.Focus == nil {
		return layout.Compute(g, req.Layout)
	}
	work, err := g.Downsample(req.Layout.MaxSamples)
	if err != nil {
		return nil, err
	}
	work, err = work.Focus(*req.Focus, req.FocusMode)
	if err != nil {
		return nil, err
	}
	n := work.NumSamples()
	if n < 2 {
		return nil, errs.New(errs.ErrCodeTooFewSamples,
			"focus on node %d (%s) keeps %d samples; at least 2 are needed", *req.Focus, req.FocusMode, n)
	}
	opts := req.Layout
	opts.MaxSamples = min(opts.MaxSamples, n)
	res, err := layout.Compute(work, opts)
	if err != nil {
		return nil, err
	}
	res.SourceSamples = g.NumSamples()
	res.Downsampled = res.Downsampled || g.NumSamples() > req.Layout.MaxSamples
	return res, nil
}

// RenderWithCacheInfo draws a layout and reports whether the artifact came
// from cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, res *layout.Result, format render.Format, opts render.Options, refresh bool) ([]byte, bool, error) {
	if _, err := render.ParseFormat(string(format)); err != nil {
		return nil, false, err
	}
	key := r.Keyer.RenderKey(cache.HashJSON(res), cache.RenderKeyOpts{
		Format: string(format),
		Labels: opts.Labels,
		Title:  opts.Title,
	})
	if !refresh {
		if data, ok := r.load(ctx, keyTypeRender, key); ok {
			return data, true, nil
		}
	}

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, string(format))
	start := time.Now()
	out, err := render.Render(ctx, render.ToDOT(res, opts), format)
	hooks.OnRenderComplete(ctx, string(format), time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	r.store(ctx, keyTypeRender, key, out, cache.RenderTTL)
	return out, false, nil
}

// Render is a convenience wrapper around [Runner.RenderWithCacheInfo].
func (r *Runner) Render(ctx context.Context, res *layout.Result, format render.Format, opts render.Options) ([]byte, error) {
	out, _, err := r.RenderWithCacheInfo(ctx, res, format, opts, false)
	return out, err
}

// InferLocations estimates ancestral locations with the runner's inferrer
// and returns a copy of g carrying them.
func (r *Runner) InferLocations(ctx context.Context, g *arg.Graph) (*arg.Graph, error) {
	hooks := observability.Pipeline()
	hooks.OnInferStart(ctx, len(g.Nodes))
	start := time.Now()
	out, err := r.inferLocations(ctx, g)
	hooks.OnInferComplete(ctx, len(g.Nodes), time.Since(start), err)
	if err != nil {
		return nil, err
	}
	r.Logger.Info("inferred locations",
		"nodes", len(g.Nodes),
		"spatial", out.SpatialStatus(),
		"duration", time.Since(start))
	return out, nil
}

func (r *Runner) inferLocations(ctx context.Context, g *arg.Graph) (*arg.Graph, error) {
	locs, err := r.Inferrer.Infer(ctx, g)
	if err != nil {
		if errs.GetCode(err) == "" {
			return nil, errs.Wrap(errs.ErrCodeInferenceFailed, err, "infer locations")
		}
		return nil, err
	}
	// Nodes the inferrer left out keep whatever location they had.
	merged := make(map[int][]float64, len(g.Nodes))
	for _, n := range g.Nodes {
		if loc := g.Location(n.ID); len(loc) > 0 {
			merged[n.ID] = loc
		}
	}
	for id, loc := range locs {
		merged[id] = loc
	}
	return g.WithLocations(merged)
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// GraphHash returns the content hash of g's graph document.
func GraphHash(g *arg.Graph) string {
	var buf bytes.Buffer
	if err := argio.WriteGraph(&buf, g); err != nil {
		return ""
	}
	return cache.Hash(buf.Bytes())
}

func (r *Runner) cachedGraph(ctx context.Context, key string) (*arg.Graph, bool) {
	data, ok := r.load(ctx, keyTypeSimulation, key)
	if !ok {
		return nil, false
	}
	g, err := argio.ReadGraph(bytes.NewReader(data))
	if err != nil {
		r.Logger.Warn("discarding unreadable cached graph", "key", key, "err", err)
		return nil, false
	}
	return g, true
}

// load reads a cache entry. Backend errors are logged and treated as
// misses.
func (r *Runner) load(ctx context.Context, keyType, key string) ([]byte, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "type", keyType, "err", err)
		return nil, false
	}
	if hit {
		observability.Cache().OnCacheHit(ctx, keyType)
		return data, true
	}
	observability.Cache().OnCacheMiss(ctx, keyType)
	return nil, false
}

func (r *Runner) store(ctx context.Context, keyType, key string, data []byte, ttl time.Duration) {
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "type", keyType, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}
