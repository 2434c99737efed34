package dataset

import (
	"math"

	errs "github.com/singlecellvr/scvrprep/pkg/errors"
)

// dptColumn is the per-cell pseudotime column scanpy writes after sc.tl.dpt.
const dptColumn = "dpt_pseudotime"

// pagaAdapter reads a scanpy PAGA result: nodes are abstracted clusters.
type pagaAdapter struct{}

func (pagaAdapter) Kind() Kind { return KindPAGA }

func (pagaAdapter) Adapt(h *Handle, opts Options) (*Dataset, error) {
	p := h.Uns.PAGA
	if p == nil {
		return nil, errs.New(errs.ErrCodeMissingRequiredField, "uns.paga is missing")
	}
	if p.Groups == "" {
		return nil, errs.New(errs.ErrCodeMissingRequiredField, "uns.paga.groups is missing")
	}
	groups, ok := h.Obs[p.Groups]
	if !ok {
		return nil, errs.New(errs.ErrCodeMissingRequiredField, "group assignment obs[%q] is missing", p.Groups)
	}
	if len(groups) != len(h.ObsNames) {
		return nil, errs.New(errs.ErrCodeInvalidDataset, "obs[%q] has %d values, want %d", p.Groups, len(groups), len(h.ObsNames))
	}
	if len(p.Pos) == 0 {
		return nil, errs.New(errs.ErrCodeMissingRequiredField, "uns.paga.pos is missing")
	}
	if len(p.Connectivities) == 0 {
		return nil, errs.New(errs.ErrCodeMissingRequiredField, "uns.paga.connectivities is missing")
	}

	categories := p.Categories
	if len(categories) == 0 {
		categories = sortedStrings(groups)
	}
	n := len(categories)
	if len(p.Pos) != n {
		return nil, errs.New(errs.ErrCodeInvalidDataset, "uns.paga.pos has %d rows, want %d", len(p.Pos), n)
	}

	ordering, err := pagaOrdering(h, p, categories, groups)
	if err != nil {
		return nil, err
	}

	index := make(map[string]bool, n)
	nodes := make([]GraphNode, n)
	for i, id := range categories {
		if len(p.Pos[i]) < 2 {
			return nil, errs.New(errs.ErrCodeInvalidDataset, "uns.paga.pos row %d must have 2 components", i)
		}
		if index[id] {
			return nil, errs.New(errs.ErrCodeInvalidDataset, "duplicate group %q", id)
		}
		index[id] = true
		nodes[i] = GraphNode{
			ID:       id,
			Position: [2]float64{p.Pos[i][0], p.Pos[i][1]},
			Ordering: ordering[i],
			Label:    id,
		}
	}

	edges, err := connectivityEdges(p.Connectivities, categories, opts.EdgeThreshold)
	if err != nil {
		return nil, err
	}

	for i, g := range groups {
		if !index[g] {
			return nil, errs.New(errs.ErrCodeInvalidDataset, "cell %q belongs to unknown group %q", h.ObsNames[i], g)
		}
	}

	positions, dim, err := embedding(h, opts.EmbeddingKey)
	if err != nil {
		return nil, err
	}
	cells, err := buildCells(h, positions, groups, opts)
	if err != nil {
		return nil, err
	}
	return finish(KindPAGA, h, dim, cells, nodes, edges)
}

// pagaOrdering returns one ordering value per category. It prefers the per-node
// pseudotime stored with the PAGA result and falls back to the mean DPT of each group.
func pagaOrdering(h *Handle, p *PAGA, categories, groups []string) ([]float64, error) {
	if len(p.Pseudotime) > 0 {
		if len(p.Pseudotime) != len(categories) {
			return nil, errs.New(errs.ErrCodeInvalidDataset, "uns.paga.pseudotime has %d values, want %d", len(p.Pseudotime), len(categories))
		}
		return p.Pseudotime, nil
	}

	dpt, ok := h.ObsNumeric[dptColumn]
	if !ok {
		return nil, errs.New(errs.ErrCodeMissingRequiredField, "no node ordering: uns.paga.pseudotime and obs %q are both missing", dptColumn)
	}
	if len(dpt) != len(groups) {
		return nil, errs.New(errs.ErrCodeInvalidDataset, "obs %q has %d values, want %d", dptColumn, len(dpt), len(groups))
	}

	sum := make(map[string]float64, len(categories))
	count := make(map[string]int, len(categories))
	for i, g := range groups {
		if math.IsInf(dpt[i], 0) || math.IsNaN(dpt[i]) {
			continue // unreachable cells carry inf pseudotime in scanpy
		}
		sum[g] += dpt[i]
		count[g]++
	}
	out := make([]float64, len(categories))
	for i, c := range categories {
		if count[c] == 0 {
			return nil, errs.New(errs.ErrCodeInvalidDataset, "group %q has no finite %s value to order by", c, dptColumn)
		}
		out[i] = sum[c] / float64(count[c])
	}
	return out, nil
}

// connectivityEdges turns a square matrix into edges: one per entry above threshold,
// self-edges skipped. Symmetric entries collapse onto one pair, last entry wins.
func connectivityEdges(m [][]float64, ids []string, threshold float64) (*EdgeSet, error) {
	n := len(ids)
	if len(m) != n {
		return nil, errs.New(errs.ErrCodeInvalidDataset, "connectivity matrix has %d rows, want %d", len(m), n)
	}
	set := NewEdgeSet()
	for i, row := range m {
		if len(row) != n {
			return nil, errs.New(errs.ErrCodeInvalidDataset, "connectivity row %d has %d columns, want %d", i, len(row), n)
		}
		for j, w := range row {
			if math.IsNaN(w) {
				return nil, errs.New(errs.ErrCodeInvalidDataset, "connectivity[%d][%d] is NaN", i, j)
			}
			if i == j || w <= threshold {
				continue
			}
			set.Put(ids[i], ids[j], w)
		}
	}
	return set, nil
}
