package arg

// SpatialStatus describes how much of a graph carries spatial locations.
type SpatialStatus string

const (
	// SpatialAll means every node has a location with at least 2 coordinates.
	SpatialAll SpatialStatus = "all"
	// SpatialSampleOnly means only the samples are fully located.
	SpatialSampleOnly SpatialStatus = "sample_only"
	// SpatialNone means at least one sample is unlocated.
	SpatialNone SpatialStatus = "none"
)

// minSpatialCoords is the number of coordinates a location needs to count
// as spatial information.
const minSpatialCoords = 2

// Summary is a compact description of a graph, used for listings and
// metadata responses.
type Summary struct {
	Nodes          int           `json:"num_nodes"`
	Edges          int           `json:"num_edges"`
	Samples        int           `json:"num_samples"`
	Trees          int           `json:"num_trees"`
	Individuals    int           `json:"num_individuals"`
	SequenceLength float64       `json:"sequence_length"`
	HasTemporal    bool          `json:"has_temporal"`
	SpatialStatus  SpatialStatus `json:"spatial_status"`
	SampleSpatial  bool          `json:"has_sample_spatial"`
	AllSpatial     bool          `json:"has_all_spatial"`
}

// Summarize computes the graph summary.
func (g *Graph) Summarize() Summary {
	sampleSpatial, allSpatial := g.spatialCoverage()
	s := Summary{
		Nodes:          len(g.Nodes),
		Edges:          len(g.Edges),
		Samples:        g.NumSamples(),
		Trees:          len(g.TreeBoundaries()) - 1,
		Individuals:    len(g.Individuals),
		SequenceLength: g.SequenceLength,
		HasTemporal:    g.HasTemporal(),
		SampleSpatial:  sampleSpatial,
		AllSpatial:     allSpatial,
	}
	switch {
	case allSpatial:
		s.SpatialStatus = SpatialAll
	case sampleSpatial:
		s.SpatialStatus = SpatialSampleOnly
	default:
		s.SpatialStatus = SpatialNone
	}
	return s
}

// HasTemporal reports whether any non-sample node has a non-zero time.
func (g *Graph) HasTemporal() bool {
	for _, n := range g.Nodes {
		if !n.IsSample() && n.Time != 0 {
			return true
		}
	}
	return false
}

// SpatialStatus classifies the graph's spatial coverage.
func (g *Graph) SpatialStatus() SpatialStatus {
	return g.Summarize().SpatialStatus
}

func (g *Graph) spatialCoverage() (samples, all bool) {
	samples, all = true, true
	for _, n := range g.Nodes {
		if len(g.Location(n.ID)) >= minSpatialCoords {
			continue
		}
		all = false
		if n.IsSample() {
			samples = false
		}
	}
	return samples, all
}
