package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/chris-a-talbot/sparg-viz/pkg/arg"
	errs "github.com/chris-a-talbot/sparg-viz/pkg/errors"
)

// Format identifies graph documents.
const (
	Format  = "spargviz-arg"
	Version = 1
)

type document struct {
	Format         string       `json:"format,omitempty"`
	Version        int          `json:"version,omitempty"`
	SequenceLength float64      `json:"sequence_length"`
	Breakpoints    []float64    `json:"breakpoints,omitempty"`
	Spatial        arg.Spatial  `json:"spatial"`
	Nodes          []node       `json:"nodes"`
	Edges          []arg.Edge   `json:"edges"`
	Individuals    []individual `json:"individuals,omitempty"`
}

type node struct {
	ID         int      `json:"id"`
	Time       float64  `json:"time"`
	Role       arg.Role `json:"role"`
	Individual *int     `json:"individual,omitempty"`
}

type individual struct {
	Location []float64 `json:"location"`
}

// ReadGraph decodes a graph document from r and validates it.
//
// Malformed JSON, a foreign format tag or an unsupported version fail with
// INVALID_FORMAT; structural problems fail with INVALID_GRAPH. ReadGraph
// does not close r.
func ReadGraph(r io.Reader) (*arg.Graph, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode graph")
	}
	if doc.Format != "" && doc.Format != Format {
		return nil, errs.New(errs.ErrCodeInvalidFormat, "unknown graph format %q", doc.Format)
	}
	if doc.Version > Version {
		return nil, errs.New(errs.ErrCodeInvalidFormat, "graph version %d is newer than supported version %d", doc.Version, Version)
	}

	g := &arg.Graph{
		SequenceLength: doc.SequenceLength,
		Nodes:          make([]arg.Node, len(doc.Nodes)),
		Edges:          doc.Edges,
		Individuals:    make([]arg.Individual, len(doc.Individuals)),
		Spatial:        doc.Spatial,
	}
	for i, n := range doc.Nodes {
		ind := arg.NoIndividual
		if n.Individual != nil {
			ind = *n.Individual
		}
		g.Nodes[i] = arg.Node{ID: n.ID, Time: n.Time, Role: n.Role, Individual: ind}
	}
	for i, ind := range doc.Individuals {
		g.Individuals[i] = arg.Individual{Location: ind.Location}
	}
	g.SetBreakpoints(doc.Breakpoints)

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// ImportGraph reads a graph document from the file at path.
func ImportGraph(path string) (*arg.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadGraph(f)
}

// WriteGraph encodes g as an indented graph document.
// The output can be re-read with [ReadGraph].
func WriteGraph(w io.Writer, g *arg.Graph) error {
	doc := document{
		Format:         Format,
		Version:        Version,
		SequenceLength: g.SequenceLength,
		Breakpoints:    g.Breakpoints,
		Spatial:        g.Spatial,
		Nodes:          make([]node, len(g.Nodes)),
		Edges:          g.Edges,
		Individuals:    make([]individual, len(g.Individuals)),
	}
	if doc.Edges == nil {
		doc.Edges = []arg.Edge{}
	}
	for i, n := range g.Nodes {
		nd := node{ID: n.ID, Time: n.Time, Role: n.Role}
		if n.Individual != arg.NoIndividual {
			ind := n.Individual
			nd.Individual = &ind
		}
		doc.Nodes[i] = nd
	}
	for i, ind := range g.Individuals {
		doc.Individuals[i] = individual{Location: ind.Location}
	}
	return WriteJSON(w, doc)
}

// ExportGraph writes g to a file at path.
func ExportGraph(g *arg.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteGraph(f, g); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteJSON encodes v with two-space indentation.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
