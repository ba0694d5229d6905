package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/chris-a-talbot/sparg-viz/pkg/arg"
	errs "github.com/chris-a-talbot/sparg-viz/pkg/errors"
	"github.com/chris-a-talbot/sparg-viz/pkg/layout"
	"github.com/chris-a-talbot/sparg-viz/pkg/sim"
	"github.com/chris-a-talbot/sparg-viz/pkg/store"
)

// newValidator reports errors under JSON field names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError turns validator output into an INVALID_PARAMETER error
// naming every failing field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs.Wrap(errs.ErrCodeInvalidParameter, err, "invalid request")
	}
	parts := make([]string, len(verrs))
	for i, fe := range verrs {
		if fe.Param() != "" {
			parts[i] = fmt.Sprintf("%s must satisfy %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
		} else {
			parts[i] = fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
		}
	}
	return errs.New(errs.ErrCodeInvalidParameter, "invalid request: %s", strings.Join(parts, "; "))
}

// SimulateRequest is the body of POST /simulate. Zero optional fields take
// the server's simulation defaults. The legacy names sample_number,
// local_trees, spatial_dimensions and spatial_boundary_size are accepted
// and win over the current names.
type SimulateRequest struct {
	NumSamples     int     `json:"num_samples" validate:"min=2,max=1000"`
	NumTrees       int     `json:"num_trees" validate:"min=1,max=200"`
	SpatialDims    int     `json:"spatial_dims" validate:"min=0,max=2"`
	NumGenerations int     `json:"num_generations" validate:"omitempty,min=1,max=1000"`
	XRange         float64 `json:"x_range" validate:"omitempty,gt=0"`
	YRange         float64 `json:"y_range" validate:"omitempty,gt=0"`

	RecombinationProbability *float64 `json:"recombination_probability" validate:"omitempty,min=0,max=1"`
	CoalescenceRate          float64  `json:"coalescence_rate" validate:"omitempty,gt=0"`
	EdgeDensity              float64  `json:"edge_density" validate:"omitempty,gt=0"`

	Seed uint64 `json:"seed"`
	Name string `json:"name" validate:"omitempty,max=128"`

	SampleNumber        *int      `json:"sample_number,omitempty"`
	LocalTrees          *int      `json:"local_trees,omitempty"`
	SpatialDimensions   *int      `json:"spatial_dimensions,omitempty"`
	SpatialBoundarySize []float64 `json:"spatial_boundary_size,omitempty" validate:"max=2,dive,gt=0"`
}

// normalize folds the legacy field names into the current ones.
func (r *SimulateRequest) normalize() {
	if r.SampleNumber != nil {
		r.NumSamples = *r.SampleNumber
	}
	if r.LocalTrees != nil {
		r.NumTrees = *r.LocalTrees
	}
	if r.SpatialDimensions != nil {
		r.SpatialDims = *r.SpatialDimensions
	}
	if len(r.SpatialBoundarySize) >= 1 {
		r.XRange = r.SpatialBoundarySize[0]
	}
	if len(r.SpatialBoundarySize) >= 2 {
		r.YRange = r.SpatialBoundarySize[1]
	}
}

// params overlays the request on the defaults.
func (r *SimulateRequest) params(def sim.Params) sim.Params {
	p := def
	p.Samples = r.NumSamples
	p.Trees = r.NumTrees
	p.SpatialDims = r.SpatialDims
	if r.NumGenerations != 0 {
		p.Generations = r.NumGenerations
	}
	if r.XRange != 0 {
		p.XRange = r.XRange
	}
	if r.YRange != 0 {
		p.YRange = r.YRange
	}
	if p.SpatialDims == 2 && p.YRange == 0 {
		p.YRange = p.XRange
	}
	if r.RecombinationProbability != nil {
		p.RecombinationProb = *r.RecombinationProbability
	}
	if r.CoalescenceRate != 0 {
		p.CoalescenceRate = r.CoalescenceRate
	}
	if r.EdgeDensity != 0 {
		p.EdgeDensity = r.EdgeDensity
	}
	return p
}

// name is the registry name of the simulated graph.
func (r *SimulateRequest) name(p sim.Params) string {
	if r.Name != "" {
		return r.Name
	}
	return store.NewName(fmt.Sprintf("spargviz_sim_s%d_t%d_d%d", p.Samples, p.Trees, p.SpatialDims))
}

// SimulateResponse describes a stored simulation.
type SimulateResponse struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Simulator string `json:"simulator"`
	Seed      uint64 `json:"seed"`
	arg.Summary
	Parameters sim.Params `json:"parameters"`
}

// UploadResponse describes an uploaded graph.
type UploadResponse struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Status   string `json:"status"`
	arg.Summary
}

// ListResponse lists the stored graphs.
type ListResponse struct {
	Graphs []store.Entry `json:"graphs"`
}

// MetadataResponse describes one stored graph.
type MetadataResponse struct {
	Filename string       `json:"filename"`
	Source   store.Source `json:"source"`
	Created  time.Time    `json:"created"`
	arg.Summary
}

// DeleteResponse confirms a deletion.
type DeleteResponse struct {
	Message        string   `json:"message"`
	RemainingFiles []string `json:"remaining_files"`
}

// DataNode is one node of the raw graph view.
type DataNode struct {
	ID         int           `json:"id"`
	Time       float64       `json:"time"`
	IsSample   bool          `json:"is_sample"`
	Individual int           `json:"individual"`
	Location   *DataLocation `json:"location,omitempty"`
}

// DataLocation is a node location. Z is omitted when zero.
type DataLocation struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z,omitempty"`
}

// DataEdge is one edge of the raw graph view.
type DataEdge struct {
	Source int     `json:"source"`
	Target int     `json:"target"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

// DataMetadata summarises a raw graph view.
type DataMetadata struct {
	NumNodes       int     `json:"num_nodes"`
	NumEdges       int     `json:"num_edges"`
	NumSamples     int     `json:"num_samples"`
	SequenceLength float64 `json:"sequence_length"`
	GenomicStart   float64 `json:"genomic_start"`
	GenomicEnd     float64 `json:"genomic_end"`
	IsSubset       bool    `json:"is_subset"`
	NumLocalTrees  int     `json:"num_local_trees"`
	OriginalNodes  int     `json:"original_nodes"`
}

// DataResponse is the downsampled, windowed raw graph.
type DataResponse struct {
	Nodes    []DataNode   `json:"nodes"`
	Edges    []DataEdge   `json:"edges"`
	Metadata DataMetadata `json:"metadata"`
}

// FocusInfo reports the focus filter applied to a layout.
type FocusInfo struct {
	NodeID        int           `json:"node_id"`
	Mode          arg.FocusMode `json:"mode"`
	OriginalNodes int           `json:"original_nodes"`
	FilteredNodes int           `json:"filtered_nodes"`
}

// LayoutResponse is a layout payload with optional focus information.
type LayoutResponse struct {
	*layout.Result
	Focus *FocusInfo `json:"focus,omitempty"`
}

// InferResponse describes a graph stored with inferred locations.
type InferResponse struct {
	Status               string `json:"status"`
	OriginalFilename     string `json:"original_filename"`
	NewFilename          string `json:"new_filename"`
	NumInferredLocations int    `json:"num_inferred_locations"`
	arg.Summary
}
