package export

import (
	"github.com/singlecellvr/scvrprep/pkg/dataset"
	errs "github.com/singlecellvr/scvrprep/pkg/errors"
	"github.com/singlecellvr/scvrprep/pkg/layout3d"
)

// GraphSummary describes a written graph export.
type GraphSummary struct {
	Files []File `json:"files"`
	Nodes int    `json:"nodes"`
	Edges int    `json:"edges"`
}

// XYZ is a 3-D coordinate as the viewer reads it.
type XYZ struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// NodeRecord is one entry of <kind>_nodes.json.
type NodeRecord struct {
	Name  string `json:"node_name"`
	Label string `json:"label,omitempty"`
	Size  int    `json:"size"`
	XYZ   XYZ    `json:"xyz"`
}

// EdgeRecord is one entry of <kind>_edges.json.
type EdgeRecord struct {
	Nodes  [2]string `json:"nodes"`
	Weight float64   `json:"weight"`
}

// GraphFileNames returns the node and edge file names for kind.
func GraphFileNames(kind dataset.Kind) (nodes, edges string) {
	return string(kind) + "_nodes.json", string(kind) + "_edges.json"
}

// WriteGraph writes the node and edge files for a laid-out graph into dir,
// plus stream.json for STREAM. points[i] must be the position of nodes[i].
//
// Every edge endpoint is checked against the node set before anything is
// written; a missing one fails with DANGLING_EDGE_REFERENCE.
func WriteGraph(dir string, kind dataset.Kind, nodes []dataset.GraphNode, points []layout3d.Point, edges []dataset.GraphEdge) (GraphSummary, error) {
	if len(points) != len(nodes) {
		return GraphSummary{}, errs.New(errs.ErrCodeInternal, "%d points for %d nodes", len(points), len(nodes))
	}

	records := make(map[string]NodeRecord, len(nodes))
	for i, n := range nodes {
		p := points[i]
		if p.ID != n.ID {
			return GraphSummary{}, errs.New(errs.ErrCodeInternal, "point %d is for %q, want %q", i, p.ID, n.ID)
		}
		if _, dup := records[n.ID]; dup {
			return GraphSummary{}, errs.New(errs.ErrCodeInvalidDataset, "duplicate node %q", n.ID)
		}
		records[n.ID] = NodeRecord{
			Name:  n.ID,
			Label: n.Label,
			Size:  n.Size,
			XYZ:   xyzOf(p),
		}
	}

	edgeRecords := make([]EdgeRecord, len(edges))
	for i, e := range edges {
		for _, end := range [2]string{e.A, e.B} {
			if _, ok := records[end]; !ok {
				return GraphSummary{}, errs.New(errs.ErrCodeDanglingEdgeReference, "edge %s references unknown node %q", e, end)
			}
		}
		edgeRecords[i] = EdgeRecord{Nodes: [2]string{e.A, e.B}, Weight: e.Weight}
	}

	nodesName, edgesName := GraphFileNames(kind)
	nf, err := writeJSON(dir, nodesName, records, true)
	if err != nil {
		return GraphSummary{}, err
	}
	ef, err := writeJSON(dir, edgesName, edgeRecords, true)
	if err != nil {
		return GraphSummary{}, err
	}

	files := []File{nf, ef}
	if kind == dataset.KindSTREAM {
		sf, err := writeJSON(dir, StreamFile, streamCurves(nodes, points), true)
		if err != nil {
			return GraphSummary{}, err
		}
		files = append(files, sf)
	}

	return GraphSummary{
		Files: files,
		Nodes: len(records),
		Edges: len(edgeRecords),
	}, nil
}
