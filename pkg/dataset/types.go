package dataset

import (
	"fmt"
	"slices"
	"strings"
)

// Kind names the upstream tool that produced a result.
type Kind string

const (
	// KindPAGA is a graph-abstraction result (scanpy PAGA).
	KindPAGA Kind = "paga"
	// KindSTREAM is a trajectory result (STREAM flat tree).
	KindSTREAM Kind = "stream"
)

// ParseKind converts a user-supplied tool name to a Kind. Matching is case-insensitive
// and ignores surrounding space. Unknown names are returned as-is so that [Adapt]
// reports them with UNSUPPORTED_DATASET_KIND.
func ParseKind(s string) Kind {
	return Kind(strings.ToLower(strings.TrimSpace(s)))
}

// String returns the kind name.
func (k Kind) String() string { return string(k) }

// Cell is one observation of the point cloud.
type Cell struct {
	Index      int                // position in the upstream handle (stable identity)
	ID         string             // upstream cell name
	Position   []float64          // embedding coordinates, 2 or 3 values
	Group      string             // ID of the GraphNode the cell belongs to
	Labels     map[string]string  // categorical columns
	Expression map[string]float64 // requested genes only
}

// Label returns the cell's value for a label column.
func (c Cell) Label(column string) (string, bool) {
	v, ok := c.Labels[column]
	return v, ok
}

// GraphNode is a cell group (PAGA) or a branch (STREAM).
type GraphNode struct {
	ID       string
	Position [2]float64
	Ordering float64 // pseudotime; drives the third layout axis
	Label    string
	Size     int       // member cell count
	Ends     [2]string // STREAM: the tree vertices the branch joins
}

// GraphEdge is an unordered connection. A is always lexically smaller than B.
type GraphEdge struct {
	A, B   string
	Weight float64
}

// String returns "A-B".
func (e GraphEdge) String() string { return fmt.Sprintf("%s-%s", e.A, e.B) }

// Dataset is the normalized form every downstream component reads.
type Dataset struct {
	Kind  Kind
	Dim   int // embedding dimensionality shared by all cells
	Cells []Cell
	Nodes []GraphNode // sorted by ID
	Edges []GraphEdge // sorted by (A, B)

	// LabelColumns lists the categorical columns available on every cell, sorted.
	LabelColumns []string
	// LabelColors holds upstream color assignments per column and value, if any.
	LabelColors map[string]map[string]string
	// GeneNames lists every gene the handle carries expression for, sorted.
	GeneNames []string
}

// HasLabel reports whether column is a categorical column of the dataset.
func (d *Dataset) HasLabel(column string) bool {
	_, ok := slices.BinarySearch(d.LabelColumns, column)
	return ok
}

// HasGene reports whether the handle carried expression values for gene.
func (d *Dataset) HasGene(gene string) bool {
	_, ok := slices.BinarySearch(d.GeneNames, gene)
	return ok
}

// Node returns the node with the given ID.
func (d *Dataset) Node(id string) (GraphNode, bool) {
	i, ok := slices.BinarySearchFunc(d.Nodes, id, func(n GraphNode, id string) int {
		return strings.Compare(n.ID, id)
	})
	if !ok {
		return GraphNode{}, false
	}
	return d.Nodes[i], true
}
