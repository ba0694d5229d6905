package render

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/chris-a-talbot/sparg-viz/pkg/arg"
	"github.com/chris-a-talbot/sparg-viz/pkg/layout"
)

// Options configures DOT generation.
type Options struct {
	// Labels writes node ids inside the nodes.
	Labels bool
	// Title overrides the layout's title; "-" hides it.
	Title string
}

var fills = map[arg.Role]string{
	arg.RoleSample:        "#4f8fd6",
	arg.RoleInternal:      "#9a9a9a",
	arg.RoleRecombination: "#e0884a",
}

const (
	nodeSize    = 0.18 // inches
	minPenWidth = 0.6
	maxPenWidth = 3.0
)

// ToDOT converts a layout to Graphviz DOT with every node pinned at its
// layout position. Graphviz's y axis points up, so y is flipped against
// the layout height.
func ToDOT(res *layout.Result, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("graph ARG {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  inputscale=72;\n")
	buf.WriteString("  notranslate=true;\n")
	buf.WriteString("  splines=false;\n")
	buf.WriteString("  outputorder=edgesfirst;\n")
	buf.WriteString("  bgcolor=\"white\";\n")
	fmt.Fprintf(&buf, "  bb=\"0,0,%s,%s\";\n", num(res.Width), num(res.Height))

	title := res.Title
	if opts.Title != "" {
		title = opts.Title
	}
	if title != "-" {
		fmt.Fprintf(&buf, "  label=%q;\n  labelloc=t;\n  fontsize=16;\n", title)
	}
	fmt.Fprintf(&buf, "  node [shape=circle, style=filled, fixedsize=true, width=%s, fontsize=7, penwidth=0.5, color=\"#333333\"];\n", num(nodeSize))
	buf.WriteString("  edge [color=\"#55555588\"];\n\n")

	for _, n := range res.Nodes {
		label := ""
		if opts.Labels {
			label = n.Label
		}
		fmt.Fprintf(&buf, "  n%d [pos=\"%s,%s!\", fillcolor=%q, label=%q, tooltip=%q];\n",
			n.ID, num(n.X), num(res.Height-n.Y), fills[n.Role], label, tooltip(n))
	}
	buf.WriteString("\n")
	for _, l := range res.Links {
		pw := minPenWidth + (maxPenWidth-minPenWidth)*l.RegionFraction
		fmt.Fprintf(&buf, "  n%d -- n%d [penwidth=%s, tooltip=%q];\n", l.Source, l.Target, num(pw), l.Bounds)
	}
	buf.WriteString("}\n")
	return buf.String()
}

func tooltip(n layout.Node) string {
	return fmt.Sprintf("node %d (%s) t=%s", n.ID, n.Role, strconv.FormatFloat(n.Time, 'g', 6, 64))
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
