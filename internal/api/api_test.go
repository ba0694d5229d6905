package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris-a-talbot/sparg-viz/pkg/arg"
	"github.com/chris-a-talbot/sparg-viz/pkg/config"
	errs "github.com/chris-a-talbot/sparg-viz/pkg/errors"
	argio "github.com/chris-a-talbot/sparg-viz/pkg/io"
	"github.com/chris-a-talbot/sparg-viz/pkg/observability"
	"github.com/chris-a-talbot/sparg-viz/pkg/observability/metrics"
	"github.com/chris-a-talbot/sparg-viz/pkg/pipeline"
	"github.com/chris-a-talbot/sparg-viz/pkg/rng"
	"github.com/chris-a-talbot/sparg-viz/pkg/sim"
	"github.com/chris-a-talbot/sparg-viz/pkg/store"
)

type testServer struct {
	srv     *Server
	handler http.Handler
	store   *store.Memory
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()
	cfg := config.Default()
	cfg.Server.RateLimit = 0
	if mutate != nil {
		mutate(&cfg)
	}
	logger := log.New(io.Discard)
	st := store.NewMemory()
	srv := New(Options{
		Store:  st,
		Runner: pipeline.NewRunner(nil, nil, logger),
		Logger: logger,
		Config: &cfg,
	})
	return &testServer{srv: srv, handler: srv.Handler(), store: st}
}

func (ts *testServer) do(t *testing.T, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func requireCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code errs.Code) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	assert.Equal(t, code, decode[errorResponse](t, rec).Code)
}

// simulate stores a seeded simulation and returns its name.
func (ts *testServer) simulate(t *testing.T, body string) SimulateResponse {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/simulate", strings.NewReader(body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[SimulateResponse](t, rec)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	rec = ts.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "running")
}

func TestSimulate(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := ts.simulate(t, `{"num_samples": 6, "num_trees": 3, "seed": 9}`)
	assert.True(t, strings.HasPrefix(resp.Filename, "spargviz_sim_s6_t3_d0_"), resp.Filename)
	assert.Equal(t, "tree_sequence_generated", resp.Status)
	assert.Equal(t, "builtin/v1", resp.Simulator)
	assert.Equal(t, uint64(9), resp.Seed)
	assert.Equal(t, 6, resp.Samples)
	assert.Equal(t, 3000.0, resp.SequenceLength)
	assert.Equal(t, arg.SpatialNone, resp.SpatialStatus)
	assert.Equal(t, sim.DefaultRecombinationProb, resp.Parameters.RecombinationProb)

	_, err := ts.store.Get(context.Background(), resp.Filename)
	assert.NoError(t, err)
}

func TestSimulateLegacyFields(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := ts.simulate(t, `{"sample_number": 5, "local_trees": 2, "spatial_dimensions": 2,
		"spatial_boundary_size": [20, 8], "seed": 4, "name": "legacy"}`)
	assert.Equal(t, "legacy", resp.Filename)
	assert.Equal(t, 5, resp.Parameters.Samples)
	assert.Equal(t, 2, resp.Parameters.Trees)
	assert.Equal(t, 20.0, resp.Parameters.XRange)
	assert.Equal(t, 8.0, resp.Parameters.YRange)
	assert.Equal(t, arg.SpatialAll, resp.SpatialStatus)
}

func TestSimulateRejects(t *testing.T) {
	ts := newTestServer(t, nil)
	tests := []struct {
		name string
		body string
		code errs.Code
	}{
		{"one sample", `{"num_samples": 1, "num_trees": 1}`, errs.ErrCodeInvalidParameter},
		{"missing trees", `{"num_samples": 4}`, errs.ErrCodeInvalidParameter},
		{"three dims", `{"num_samples": 4, "num_trees": 1, "spatial_dims": 3}`, errs.ErrCodeInvalidParameter},
		{"probability above one", `{"num_samples": 4, "num_trees": 2, "recombination_probability": 1.5}`, errs.ErrCodeInvalidParameter},
		{"not json", `{"num_samples":`, errs.ErrCodeInvalidFormat},
		{"bad name", `{"num_samples": 4, "num_trees": 1, "name": "../etc"}`, errs.ErrCodeInvalidName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/simulate", strings.NewReader(tt.body))
			requireCode(t, rec, http.StatusBadRequest, tt.code)
		})
	}
}

func TestGraphLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)
	name := ts.simulate(t, `{"num_samples": 4, "num_trees": 2, "seed": 1, "name": "a"}`).Filename
	ts.simulate(t, `{"num_samples": 4, "num_trees": 2, "seed": 2, "name": "b"}`)

	rec := ts.do(t, http.MethodGet, "/graphs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[ListResponse](t, rec)
	require.Len(t, list.Graphs, 2)
	assert.Equal(t, "a", list.Graphs[0].Name)
	assert.Equal(t, store.SourceSimulated, list.Graphs[0].Source)

	rec = ts.do(t, http.MethodGet, "/graphs/"+name+"/metadata", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	meta := decode[MetadataResponse](t, rec)
	assert.Equal(t, 4, meta.Samples)
	assert.True(t, meta.HasTemporal)

	rec = ts.do(t, http.MethodGet, "/graphs/"+name+"/download", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="a.json"`)
	g, err := argio.ReadGraph(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 4, g.NumSamples())

	rec = ts.do(t, http.MethodDelete, "/graphs/"+name, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"b"}, decode[DeleteResponse](t, rec).RemainingFiles)

	requireCode(t, ts.do(t, http.MethodGet, "/graphs/"+name+"/metadata", nil), http.StatusNotFound, errs.ErrCodeNotFound)
	requireCode(t, ts.do(t, http.MethodDelete, "/graphs/"+name, nil), http.StatusNotFound, errs.ErrCodeNotFound)
}

func graphDocument(t *testing.T) []byte {
	t.Helper()
	g, err := sim.Build(sim.Params{Samples: 5, Trees: 2, Generations: 6, RecombinationProb: 0.15,
		CoalescenceRate: 1, EdgeDensity: 0.8}, rng.New(3))
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, argio.WriteGraph(&buf, g))
	return buf.Bytes()
}

func TestUploadRawBody(t *testing.T) {
	ts := newTestServer(t, nil)
	doc := graphDocument(t)

	rec := ts.do(t, http.MethodPost, "/graphs?name=mine.json", bytes.NewReader(doc))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[UploadResponse](t, rec)
	assert.Equal(t, "mine.json", resp.Filename)
	assert.Equal(t, int64(len(doc)), resp.Size)
	assert.Equal(t, 5, resp.Samples)

	rec = ts.do(t, http.MethodPost, "/graphs", strings.NewReader(`{"nodes": [`))
	requireCode(t, rec, http.StatusBadRequest, errs.ErrCodeInvalidFormat)
}

func TestUploadMultipart(t *testing.T) {
	ts := newTestServer(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "upload.json")
	require.NoError(t, err)
	_, err = part.Write(graphDocument(t))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/graphs", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "upload.json", decode[UploadResponse](t, rec).Filename)
}

func TestUploadTooLarge(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.Server.MaxUploadBytes = 16 })
	rec := ts.do(t, http.MethodPost, "/graphs?name=big.json", bytes.NewReader(graphDocument(t)))
	requireCode(t, rec, http.StatusBadRequest, errs.ErrCodeInvalidParameter)
}

func TestGraphData(t *testing.T) {
	ts := newTestServer(t, nil)
	name := ts.simulate(t, `{"num_samples": 6, "num_trees": 3, "seed": 5}`).Filename

	rec := ts.do(t, http.MethodGet, "/graphs/"+name+"/data", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	full := decode[DataResponse](t, rec)
	assert.False(t, full.Metadata.IsSubset)
	assert.Equal(t, 6, full.Metadata.NumSamples)
	assert.Equal(t, full.Metadata.OriginalNodes, full.Metadata.NumNodes)

	rec = ts.do(t, http.MethodGet, "/graphs/"+name+"/data?max_samples=4&genomic_start=0&genomic_end=1000", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	part := decode[DataResponse](t, rec)
	assert.True(t, part.Metadata.IsSubset)
	assert.Equal(t, 4, part.Metadata.NumSamples)
	assert.GreaterOrEqual(t, part.Metadata.NumLocalTrees, 1)
	for _, e := range part.Edges {
		assert.Less(t, e.Left, 1000.0)
	}

	tests := []struct {
		query string
		code  errs.Code
	}{
		{"max_samples=1", errs.ErrCodeTooFewSamples},
		{"max_samples=7", errs.ErrCodeSampleBudgetExceeded},
		{"max_samples=two", errs.ErrCodeInvalidParameter},
		{"genomic_start=2000&genomic_end=1000", errs.ErrCodeInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			requireCode(t, ts.do(t, http.MethodGet, "/graphs/"+name+"/data?"+tt.query, nil), http.StatusBadRequest, tt.code)
		})
	}
}

func TestLayout(t *testing.T) {
	ts := newTestServer(t, nil)
	name := ts.simulate(t, `{"num_samples": 6, "num_trees": 2, "seed": 8}`).Filename

	rec := ts.do(t, http.MethodGet, "/graphs/"+name+"/layout?max_samples=100", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[LayoutResponse](t, rec)
	require.NotNil(t, resp.Result)
	assert.Len(t, resp.SampleOrder, 6)
	assert.Nil(t, resp.Focus)
	assert.Contains(t, resp.Title, "6 samples")

	requireCode(t, ts.do(t, http.MethodGet, "/graphs/"+name+"/layout?max_samples=1", nil),
		http.StatusBadRequest, errs.ErrCodeTooFewSamples)
	requireCode(t, ts.do(t, http.MethodGet, "/graphs/"+name+"/layout?focus=9999", nil),
		http.StatusNotFound, errs.ErrCodeNotFound)
	requireCode(t, ts.do(t, http.MethodGet, "/graphs/"+name+"/layout?focus=0&mode=sideways", nil),
		http.StatusBadRequest, errs.ErrCodeInvalidParameter)
	requireCode(t, ts.do(t, http.MethodGet, "/graphs/missing/layout", nil),
		http.StatusNotFound, errs.ErrCodeNotFound)
}

func TestLayoutFocus(t *testing.T) {
	ts := newTestServer(t, nil)
	name := ts.simulate(t, `{"num_samples": 6, "num_trees": 2, "seed": 8}`).Filename
	e, err := ts.store.Get(context.Background(), name)
	require.NoError(t, err)
	root := e.Graph.Roots()[0]

	rec := ts.do(t, http.MethodGet, "/graphs/"+name+"/layout?mode=subgraph&focus="+strconv.Itoa(root), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[LayoutResponse](t, rec)
	require.NotNil(t, resp.Focus)
	assert.Equal(t, root, resp.Focus.NodeID)
	assert.Equal(t, arg.FocusSubgraph, resp.Focus.Mode)
	assert.Equal(t, len(e.Graph.Nodes), resp.Focus.OriginalNodes)
	assert.LessOrEqual(t, resp.Focus.FilteredNodes, resp.Focus.OriginalNodes)
}

func TestRender(t *testing.T) {
	ts := newTestServer(t, nil)
	name := ts.simulate(t, `{"num_samples": 4, "num_trees": 2, "seed": 2}`).Filename

	rec := ts.do(t, http.MethodGet, "/graphs/"+name+"/render.dot?labels=true", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/vnd.graphviz", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "graph ARG"))

	requireCode(t, ts.do(t, http.MethodGet, "/graphs/"+name+"/render.gif", nil),
		http.StatusBadRequest, errs.ErrCodeInvalidParameter)
	requireCode(t, ts.do(t, http.MethodGet, "/graphs/"+name+"/render.dot?labels=maybe", nil),
		http.StatusBadRequest, errs.ErrCodeInvalidParameter)
}

func TestInferLocations(t *testing.T) {
	ts := newTestServer(t, nil)
	g := arg.New(100)
	a := g.AddNode(0, arg.RoleSample)
	b := g.AddNode(0, arg.RoleSample)
	p := g.AddNode(1, arg.RoleInternal)
	g.Attach(a, []float64{0, 0})
	g.Attach(b, []float64{4, 2})
	require.NoError(t, g.AddEdge(p, a, 0, 100))
	require.NoError(t, g.AddEdge(p, b, 0, 100))
	_, err := ts.store.Put(context.Background(), "pair.json", g, store.SourceUploaded)
	require.NoError(t, err)

	rec := ts.do(t, http.MethodPost, "/graphs/pair.json/infer-locations", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[InferResponse](t, rec)
	assert.Equal(t, "pair_inferred", resp.NewFilename)
	assert.Equal(t, 1, resp.NumInferredLocations)
	assert.Equal(t, arg.SpatialAll, resp.SpatialStatus)

	e, err := ts.store.Get(context.Background(), "pair_inferred")
	require.NoError(t, err)
	assert.Equal(t, store.SourceInferred, e.Source)
	assert.Equal(t, []float64{2, 1, 0}, e.Graph.Location(p))

	bare := arg.New(10)
	bare.AddNode(0, arg.RoleSample)
	bare.AddNode(0, arg.RoleSample)
	_, err = ts.store.Put(context.Background(), "bare", bare, store.SourceUploaded)
	require.NoError(t, err)
	requireCode(t, ts.do(t, http.MethodPost, "/graphs/bare/infer-locations", nil),
		http.StatusInternalServerError, errs.ErrCodeInferenceFailed)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.Server.RateLimit = 1
		c.Server.Burst = 1
	})

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/graphs", nil).Code)
	rec := ts.do(t, http.MethodGet, "/graphs", nil)
	requireCode(t, rec, http.StatusTooManyRequests, errs.ErrCodeRateLimited)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// Health checks bypass the limiter.
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health", nil).Code)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/graphs", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/graphs", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	t.Cleanup(observability.Reset)
	m := metrics.New()
	m.Install()

	cfg := config.Default()
	cfg.Server.RateLimit = 0
	srv := New(Options{Config: &cfg, Metrics: m.Handler(), Logger: log.New(io.Discard)})
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graphs/nope/metadata", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `spargviz_http_requests_total{method="GET",route="/graphs/{name}/metadata",status="404"} 1`)
}
