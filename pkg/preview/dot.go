package preview

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/singlecellvr/scvrprep/pkg/dataset"
	errs "github.com/singlecellvr/scvrprep/pkg/errors"
	"github.com/singlecellvr/scvrprep/pkg/export"
	"github.com/singlecellvr/scvrprep/pkg/layout3d"
)

// DefaultScale converts normalized layout units to Graphviz inches.
const DefaultScale = 4.0

// Options configures diagram generation.
type Options struct {
	// Scale multiplies layout coordinates. Zero means DefaultScale.
	Scale float64
	// Detailed adds cell counts and ordering to node labels.
	Detailed bool
}

// ToDOT converts a laid-out graph to Graphviz DOT. points must be the layout
// of ds.Nodes; nodes without a point are drawn at the origin.
func ToDOT(ds *dataset.Dataset, points []layout3d.Point, opts Options) string {
	scale := opts.Scale
	if scale == 0 {
		scale = DefaultScale
	}
	byID := make(map[string]layout3d.Point, len(points))
	for _, p := range points {
		byID[p.ID] = p
	}

	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  outputorder=edgesfirst;\n")
	buf.WriteString("  node [shape=circle, style=filled, fontsize=14, fontcolor=white, fixedsize=false];\n")
	buf.WriteString("  edge [color=\"#888888\"];\n")
	buf.WriteString("\n")

	for _, n := range ds.Nodes {
		p := byID[n.ID]
		attrs := []string{
			fmt.Sprintf("label=%q", fmtLabel(n, p, opts.Detailed)),
			fmt.Sprintf("pos=\"%.3f,%.3f!\"", p.X*scale, p.Y*scale),
			fmt.Sprintf("fillcolor=%q", export.GeneColor(p.Z, -1, 1)),
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range ds.Edges {
		fmt.Fprintf(&buf, "  %q -- %q [penwidth=%.2f];\n", e.A, e.B, penWidth(e.Weight))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n dataset.GraphNode, p layout3d.Point, detailed bool) string {
	if !detailed {
		return n.Label
	}
	return fmt.Sprintf("%s\ncells: %d\nz: %.2f", n.Label, n.Size, p.Z)
}

// penWidth maps a connectivity weight onto 1..6 points.
func penWidth(w float64) float64 {
	switch {
	case w <= 0:
		return 1
	case w >= 1:
		return 6
	default:
		return 1 + 5*w
	}
}

// RenderSVG lays out and renders dot with the neato engine.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "render")
	}
	return buf.Bytes(), nil
}
