package io

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/chris-a-talbot/sparg-viz/pkg/arg"
	errs "github.com/chris-a-talbot/sparg-viz/pkg/errors"
)

// ReadLocations parses a location table into a node id to coordinates map.
// Rows must have two to four fields. A node listed twice is an error.
func ReadLocations(r io.Reader) (map[int][]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	out := make(map[int][]float64)
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "location table")
		}
		if len(rec) < 2 || len(rec) > 4 {
			return nil, errs.New(errs.ErrCodeInvalidFormat, "line %d: want node id and 1-3 coordinates, got %d fields", line, len(rec))
		}
		id, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, errs.New(errs.ErrCodeInvalidFormat, "line %d: bad node id %q", line, rec[0])
		}
		if _, dup := out[id]; dup {
			return nil, errs.New(errs.ErrCodeInvalidFormat, "line %d: node %d listed twice", line, id)
		}
		loc := make([]float64, len(rec)-1)
		for i, f := range rec[1:] {
			if loc[i], err = strconv.ParseFloat(strings.TrimSpace(f), 64); err != nil {
				return nil, errs.New(errs.ErrCodeInvalidFormat, "line %d: bad coordinate %q", line, f)
			}
		}
		out[id] = loc
	}
	return out, nil
}

// WriteLocations writes a location table with a header for the given
// nodes of g. Unlocated nodes are skipped.
func WriteLocations(w io.Writer, g *arg.Graph, nodes []int) error {
	dims := 1
	for _, id := range nodes {
		dims = max(dims, min(len(g.Location(id)), 3))
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"node_id", "x", "y", "z"}[:1+dims]); err != nil {
		return err
	}
	for _, id := range nodes {
		loc := g.Location(id)
		if len(loc) == 0 {
			continue
		}
		rec := []string{strconv.Itoa(id)}
		for _, v := range loc[:min(len(loc), 3)] {
			rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
