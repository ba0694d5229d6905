package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/chris-a-talbot/sparg-viz/pkg/arg"
	"github.com/chris-a-talbot/sparg-viz/pkg/buildinfo"
	"github.com/chris-a-talbot/sparg-viz/pkg/config"
	errs "github.com/chris-a-talbot/sparg-viz/pkg/errors"
	argio "github.com/chris-a-talbot/sparg-viz/pkg/io"
	"github.com/chris-a-talbot/sparg-viz/pkg/layout"
	"github.com/chris-a-talbot/sparg-viz/pkg/pipeline"
	"github.com/chris-a-talbot/sparg-viz/pkg/render"
	"github.com/chris-a-talbot/sparg-viz/pkg/store"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "SPARG Visualization API",
		"status":  "running",
		"build":   buildinfo.Get(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode simulation request"))
		return
	}
	req.normalize()
	if err := s.validate.Struct(&req); err != nil {
		s.writeError(w, r, validationError(err))
		return
	}

	p := req.params(s.cfg.Simulation.Params)
	seed := req.Seed
	if seed == 0 {
		seed = s.cfg.Simulation.Seed
	}
	g, seed, _, err := s.runner.SimulateWithCacheInfo(r.Context(), p, seed, false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	name := req.name(p)
	entry, err := s.store.Put(r.Context(), name, g, store.SourceSimulated)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("stored simulation", "name", name, "nodes", len(g.Nodes), "seed", seed)
	writeJSON(w, http.StatusCreated, SimulateResponse{
		Filename:   entry.Name,
		Status:     "tree_sequence_generated",
		Simulator:  s.runner.Simulator.Name(),
		Seed:       seed,
		Summary:    entry.Summary,
		Parameters: p,
	})
}

// handleUpload accepts a graph document either as the "file" part of a
// multipart form or as the raw request body, named by the "name" query
// parameter.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.Server.MaxUploadBytes
	if limit <= 0 {
		limit = config.Default().Server.MaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var (
		name string
		body io.Reader
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, hdr, err := r.FormFile("file")
		if err != nil {
			s.writeError(w, r, errs.Wrap(errs.ErrCodeInvalidFormat, err, "read upload"))
			return
		}
		defer file.Close()
		if err := errs.ValidateFilename(hdr.Filename); err != nil {
			s.writeError(w, r, err)
			return
		}
		name, body = hdr.Filename, file
	} else {
		name = r.URL.Query().Get("name")
		if name == "" {
			name = store.NewName("upload") + ".json"
		}
		body = r.Body
	}

	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, errs.New(errs.ErrCodeInvalidParameter, "upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.writeError(w, r, errs.Wrap(errs.ErrCodeInvalidFormat, err, "read upload"))
		return
	}
	g, err := argio.ReadGraph(bytes.NewReader(data))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entry, err := s.store.Put(r.Context(), name, g, store.SourceUploaded)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("stored upload", "name", name, "bytes", len(data), "nodes", len(g.Nodes))
	writeJSON(w, http.StatusCreated, UploadResponse{
		Filename: entry.Name,
		Size:     int64(len(data)),
		Status:   "tree_sequence_loaded",
		Summary:  entry.Summary,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Graphs: entries})
}

func (s *Server) entry(w http.ResponseWriter, r *http.Request) (store.Entry, bool) {
	e, err := s.store.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return store.Entry{}, false
	}
	return e, true
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, MetadataResponse{
		Filename: e.Name,
		Source:   e.Source,
		Created:  e.Created,
		Summary:  e.Summary,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.store.Delete(r.Context(), name); err != nil {
		s.writeError(w, r, err)
		return
	}
	entries, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	remaining := make([]string, len(entries))
	for i, e := range entries {
		remaining[i] = e.Name
	}
	writeJSON(w, http.StatusOK, DeleteResponse{
		Message:        fmt.Sprintf("graph %q deleted", name),
		RemainingFiles: remaining,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := argio.WriteGraph(&buf, e.Graph); err != nil {
		s.writeError(w, r, err)
		return
	}
	filename := e.Name
	if !strings.HasSuffix(strings.ToLower(filename), ".json") {
		filename += ".json"
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(buf.Bytes())
}

// handleData returns the raw graph downsampled to max_samples and limited
// to the edges overlapping [genomic_start, genomic_end). An explicit budget
// above the sample count is an error.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	g := e.Graph

	maxSamples, err := intParam(r, "max_samples", min(s.cfg.Layout.MaxSamples, g.NumSamples()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if maxSamples < 2 {
		s.writeError(w, r, errs.New(errs.ErrCodeTooFewSamples, "max_samples must be at least 2"))
		return
	}
	if n := g.NumSamples(); maxSamples > n {
		s.writeError(w, r, errs.New(errs.ErrCodeSampleBudgetExceeded, "max_samples cannot exceed the number of samples (%d)", n))
		return
	}
	start, err := floatParam(r, "genomic_start", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	end, err := floatParam(r, "genomic_end", g.SequenceLength)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	down, err := g.Downsample(maxSamples)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	win, err := down.Window(start, end)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := DataResponse{
		Nodes: make([]DataNode, len(win.Nodes)),
		Edges: make([]DataEdge, len(win.Edges)),
		Metadata: DataMetadata{
			NumNodes:       len(win.Nodes),
			NumEdges:       len(win.Edges),
			NumSamples:     win.NumSamples(),
			SequenceLength: win.SequenceLength,
			GenomicStart:   start,
			GenomicEnd:     end,
			IsSubset:       start > 0 || end < win.SequenceLength,
			NumLocalTrees:  down.TreesIn(start, end),
			OriginalNodes:  len(down.Nodes),
		},
	}
	for i, n := range win.Nodes {
		resp.Nodes[i] = DataNode{
			ID:         n.ID,
			Time:       n.Time,
			IsSample:   n.IsSample(),
			Individual: n.Individual,
			Location:   dataLocation(win.Location(n.ID)),
		}
	}
	for i, e := range win.Edges {
		resp.Edges[i] = DataEdge{Source: e.Parent, Target: e.Child, Left: e.Left, Right: e.Right}
	}
	writeJSON(w, http.StatusOK, resp)
}

func dataLocation(loc []float64) *DataLocation {
	if len(loc) < 2 {
		return nil
	}
	l := &DataLocation{X: loc[0], Y: loc[1]}
	if len(loc) >= 3 {
		l.Z = loc[2]
	}
	return l
}

// layoutRequest reads max_samples, focus and mode. The sample budget is
// clamped to the graph's sample count.
func (s *Server) layoutRequest(r *http.Request) (pipeline.LayoutRequest, error) {
	req := pipeline.LayoutRequest{Layout: s.cfg.Layout, Clamp: true}
	var err error
	if req.Layout.MaxSamples, err = intParam(r, "max_samples", s.cfg.Layout.MaxSamples); err != nil {
		return req, err
	}
	if req.Layout.MaxSamples < 2 {
		return req, errs.New(errs.ErrCodeTooFewSamples, "max_samples must be at least 2")
	}
	if req.Focus, err = optionalIntParam(r, "focus"); err != nil {
		return req, err
	}
	if mode := r.URL.Query().Get("mode"); mode != "" {
		if req.FocusMode, err = arg.ParseFocusMode(mode); err != nil {
			return req, err
		}
	}
	if req.Focus != nil && req.FocusMode == "" {
		req.FocusMode = arg.FocusSubgraph
	}
	return req, nil
}

func (s *Server) computeLayout(w http.ResponseWriter, r *http.Request) (store.Entry, pipeline.LayoutRequest, *layout.Result, bool) {
	e, ok := s.entry(w, r)
	if !ok {
		return e, pipeline.LayoutRequest{}, nil, false
	}
	req, err := s.layoutRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return e, req, nil, false
	}
	res, err := s.runner.ComputeLayout(r.Context(), e.Graph, req)
	if err != nil {
		s.writeError(w, r, err)
		return e, req, nil, false
	}
	return e, req, res, true
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	e, req, res, ok := s.computeLayout(w, r)
	if !ok {
		return
	}
	resp := LayoutResponse{Result: res}
	if req.Focus != nil {
		resp.Focus = &FocusInfo{
			NodeID:        *req.Focus,
			Mode:          req.FocusMode,
			OriginalNodes: len(e.Graph.Nodes),
			FilteredNodes: len(res.Nodes),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	format, err := render.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	labels, err := boolParam(r, "labels")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	_, _, res, ok := s.computeLayout(w, r)
	if !ok {
		return
	}
	out, err := s.runner.Render(r.Context(), res, format, render.Options{
		Labels: labels,
		Title:  r.URL.Query().Get("title"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	_, _ = w.Write(out)
}

// handleInfer estimates ancestral locations and stores the result under
// the graph's inferred name, replacing any earlier inference.
func (s *Server) handleInfer(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	out, err := s.runner.InferLocations(r.Context(), e.Graph)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	name := store.InferredName(e.Name)
	stored, err := s.store.Put(r.Context(), name, out, store.SourceInferred)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var inferred int
	for _, n := range out.Nodes {
		if len(e.Graph.Location(n.ID)) == 0 && len(out.Location(n.ID)) > 0 {
			inferred++
		}
	}
	writeJSON(w, http.StatusCreated, InferResponse{
		Status:               "success",
		OriginalFilename:     e.Name,
		NewFilename:          stored.Name,
		NumInferredLocations: inferred,
		Summary:              stored.Summary,
	})
}
