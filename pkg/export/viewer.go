package export

import (
	"github.com/emirpasic/gods/sets/treeset"

	"github.com/singlecellvr/scvrprep/pkg/dataset"
	"github.com/singlecellvr/scvrprep/pkg/layout3d"
)

const (
	// MetadataFile holds each cell's annotation and its color.
	MetadataFile = "metadata.json"
	// StreamFile holds one 3-D curve per STREAM branch.
	StreamFile = "stream.json"
	// GroupAnnotation names the metadata annotation written when no label is requested.
	GroupAnnotation = "group"
)

// GeneFileName returns the name of the per-gene color file. The viewer lists
// genes by the gene_ prefix.
func GeneFileName(gene string) string { return "gene_" + gene + ".json" }

// GeneColorRecord is one entry of gene_<name>.json.
type GeneColorRecord struct {
	ID    string `json:"cell_id"`
	Color string `json:"color"`
}

// StreamCurve is one entry of stream.json.
type StreamCurve struct {
	BranchID string `json:"branch_id"`
	XYZ      []XYZ  `json:"xyz"`
}

// writeMetadata writes one object per cell: cell_id, the annotation value
// under the annotation's name and its color under <name>_color. Without a
// label the cell's graph node is the annotation.
func writeMetadata(dir, label string, records []CellRecord) (File, error) {
	annotation := label
	value := func(r CellRecord) (string, string) { return r.Label, r.LabelColor }
	if label == "" {
		annotation = GroupAnnotation
		groups := treeset.NewWithStringComparator()
		for _, r := range records {
			groups.Add(r.Group)
		}
		distinct := make([]string, 0, groups.Size())
		for _, g := range groups.Values() {
			distinct = append(distinct, g.(string))
		}
		colorOf := make(map[string]string, len(distinct))
		for _, e := range LabelLegend(distinct, nil) {
			colorOf[e.Value] = e.Color
		}
		value = func(r CellRecord) (string, string) { return r.Group, colorOf[r.Group] }
	}

	rows := make([]map[string]string, len(records))
	for i, r := range records {
		v, c := value(r)
		rows[i] = map[string]string{
			annotation:            v,
			annotation + "_color": c,
			"cell_id":             r.ID,
		}
	}
	return writeJSON(dir, MetadataFile, rows, false)
}

// writeGeneFiles writes gene_<name>.json for every exported gene channel.
func writeGeneFiles(dir string, records []CellRecord, genes []GeneRange) ([]File, error) {
	files := make([]File, 0, len(genes))
	for _, g := range genes {
		rows := make([]GeneColorRecord, len(records))
		for i, r := range records {
			rows[i] = GeneColorRecord{ID: r.ID, Color: r.Genes[g.Gene].Color}
		}
		f, err := writeJSON(dir, GeneFileName(g.Gene), rows, false)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// streamCurves draws each branch from one tree vertex through its laid-out
// position to the other. A vertex shared by several branches sits at the mean
// of their positions; a leaf vertex mirrors the opposite end through the branch.
func streamCurves(nodes []dataset.GraphNode, points []layout3d.Point) []StreamCurve {
	at := make(map[string][]XYZ, len(nodes)+1)
	for i, n := range nodes {
		p := xyzOf(points[i])
		for _, v := range n.Ends {
			if v != "" {
				at[v] = append(at[v], p)
			}
		}
	}
	joint := func(v string) (XYZ, bool) {
		ps := at[v]
		if len(ps) < 2 {
			return XYZ{}, false
		}
		var sum XYZ
		for _, p := range ps {
			sum.X, sum.Y, sum.Z = sum.X+p.X, sum.Y+p.Y, sum.Z+p.Z
		}
		k := float64(len(ps))
		return XYZ{X: sum.X / k, Y: sum.Y / k, Z: sum.Z / k}, true
	}
	mirror := func(p, mid XYZ) XYZ {
		return XYZ{X: 2*mid.X - p.X, Y: 2*mid.Y - p.Y, Z: 2*mid.Z - p.Z}
	}

	curves := make([]StreamCurve, len(nodes))
	for i, n := range nodes {
		mid := xyzOf(points[i])
		a, okA := joint(n.Ends[0])
		b, okB := joint(n.Ends[1])
		switch {
		case okA && !okB:
			b = mirror(a, mid)
		case !okA && okB:
			a = mirror(b, mid)
		case !okA && !okB:
			a, b = mid, mid
		}
		curves[i] = StreamCurve{BranchID: n.ID, XYZ: []XYZ{a, mid, b}}
	}
	return curves
}

func xyzOf(p layout3d.Point) XYZ { return XYZ{X: p.X, Y: p.Y, Z: p.Z} }
