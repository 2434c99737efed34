package dataset

import (
	"math"
	"slices"
	"sort"

	errs "github.com/singlecellvr/scvrprep/pkg/errors"
)

// DefaultEmbeddingKeys is the basis preference order when Options.EmbeddingKey is empty.
var DefaultEmbeddingKeys = []string{"X_umap", "X_draw_graph_fa", "X_tsne", "X_dr", "X_pca"}

// Options tunes how a handle is adapted.
type Options struct {
	// Genes lists the genes whose expression must be resolved. Other genes are not copied.
	Genes []string
	// EmbeddingKey selects the obsm basis for cell positions.
	EmbeddingKey string
	// EdgeThreshold drops connectivity entries whose weight is not above it.
	EdgeThreshold float64
}

// Adapter converts one upstream result shape into a [Dataset].
type Adapter interface {
	Kind() Kind
	Adapt(h *Handle, opts Options) (*Dataset, error)
}

var adapters = map[Kind]Adapter{
	KindPAGA:   pagaAdapter{},
	KindSTREAM: streamAdapter{},
}

// Kinds returns the supported kinds, sorted.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(adapters))
	for k := range adapters {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Lookup returns the adapter for kind.
func Lookup(kind Kind) (Adapter, error) {
	a, ok := adapters[kind]
	if !ok {
		return nil, errs.New(errs.ErrCodeUnsupportedDatasetKind, "unsupported dataset kind %q (must be one of: paga, stream)", kind)
	}
	return a, nil
}

// Adapt converts h using the adapter registered for kind.
func Adapt(kind Kind, h *Handle, opts Options) (*Dataset, error) {
	a, err := Lookup(kind)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, errs.New(errs.ErrCodeMissingRequiredField, "dataset handle is nil")
	}
	return a.Adapt(h, opts)
}

// embedding picks the cell positions and checks that every row has the same 2 or 3 values.
func embedding(h *Handle, key string) ([][]float64, int, error) {
	if len(h.ObsNames) == 0 {
		return nil, 0, errs.New(errs.ErrCodeMissingRequiredField, "obs_names is empty")
	}

	keys := DefaultEmbeddingKeys
	if key != "" {
		keys = []string{key}
	}
	var rows [][]float64
	var found string
	for _, k := range keys {
		if v, ok := h.Obsm[k]; ok {
			rows, found = v, k
			break
		}
	}
	if found == "" {
		return nil, 0, errs.New(errs.ErrCodeMissingRequiredField, "no cell embedding found (looked for obsm %v)", keys)
	}
	if len(rows) != len(h.ObsNames) {
		return nil, 0, errs.New(errs.ErrCodeInvalidDataset, "obsm[%q] has %d rows, want %d", found, len(rows), len(h.ObsNames))
	}

	dim := len(rows[0])
	if dim > 3 {
		dim = 3
	}
	if dim < 2 {
		return nil, 0, errs.New(errs.ErrCodeInvalidDataset, "obsm[%q] must have at least 2 components", found)
	}
	out := make([][]float64, len(rows))
	for i, r := range rows {
		if len(r) != len(rows[0]) {
			return nil, 0, errs.New(errs.ErrCodeInvalidDataset, "obsm[%q] row %d has %d components, want %d", found, i, len(r), len(rows[0]))
		}
		pos := slices.Clone(r[:dim])
		for _, v := range pos {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, 0, errs.New(errs.ErrCodeInvalidDataset, "obsm[%q] row %d is not finite", found, i)
			}
		}
		out[i] = pos
	}
	return out, dim, nil
}

// buildCells assembles the cell list shared by all adapters.
// groups[i] is the node ID of cell i.
func buildCells(h *Handle, positions [][]float64, groups []string, opts Options) ([]Cell, error) {
	columns := h.LabelColumns()
	genes := resolvableGenes(h, opts.Genes)
	for _, g := range genes {
		vec := h.Expression[g]
		if len(vec) != len(h.ObsNames) {
			return nil, errs.New(errs.ErrCodeInvalidDataset, "expression for %q has %d values, want %d", g, len(vec), len(h.ObsNames))
		}
		for i, v := range vec {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return nil, errs.New(errs.ErrCodeInvalidDataset, "expression for %q at cell %d must be a finite non-negative number", g, i)
			}
		}
	}

	cells := make([]Cell, len(h.ObsNames))
	for i, id := range h.ObsNames {
		c := Cell{
			Index:    i,
			ID:       id,
			Position: positions[i],
			Group:    groups[i],
			Labels:   make(map[string]string, len(columns)),
		}
		for _, col := range columns {
			c.Labels[col] = h.Obs[col][i]
		}
		if len(genes) > 0 {
			c.Expression = make(map[string]float64, len(genes))
			for _, g := range genes {
				c.Expression[g] = h.Expression[g][i]
			}
		}
		cells[i] = c
	}
	return cells, nil
}

// resolvableGenes returns the requested genes the handle carries, sorted.
func resolvableGenes(h *Handle, requested []string) []string {
	var out []string
	for _, g := range NormalizeGenes(requested) {
		if _, ok := h.Expression[g]; ok {
			out = append(out, g)
		}
	}
	return out
}

// finish fills the fields every adapter shares and sorts nodes.
func finish(kind Kind, h *Handle, dim int, cells []Cell, nodes []GraphNode, edges *EdgeSet) (*Dataset, error) {
	sizes := make(map[string]int, len(nodes))
	for _, c := range cells {
		sizes[c.Group]++
	}
	for i := range nodes {
		nodes[i].Size = sizes[nodes[i].ID]
		if math.IsNaN(nodes[i].Ordering) || math.IsInf(nodes[i].Ordering, 0) {
			return nil, errs.New(errs.ErrCodeInvalidDataset, "node %q has a non-finite ordering value", nodes[i].ID)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	geneNames := make([]string, 0, len(h.Expression))
	for g := range h.Expression {
		geneNames = append(geneNames, g)
	}

	colors := make(map[string]map[string]string, len(h.Uns.LabelColors))
	for col, m := range h.Uns.LabelColors {
		colors[col] = m
	}

	return &Dataset{
		Kind:         kind,
		Dim:          dim,
		Cells:        cells,
		Nodes:        nodes,
		Edges:        edges.Edges(),
		LabelColumns: h.LabelColumns(),
		LabelColors:  colors,
		GeneNames:    sortedStrings(geneNames),
	}, nil
}
