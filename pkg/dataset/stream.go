package dataset

import (
	"strings"

	errs "github.com/singlecellvr/scvrprep/pkg/errors"
)

const (
	defaultBranchKey = "branch_id"
	branchSep        = "_"
)

// streamAdapter reads a STREAM flat tree. Nodes are branches, identified by
// "<from>_<to>" of the tree edge they stand for.
type streamAdapter struct{}

func (streamAdapter) Kind() Kind { return KindSTREAM }

func (streamAdapter) Adapt(h *Handle, opts Options) (*Dataset, error) {
	ft := h.Uns.FlatTree
	if ft == nil {
		return nil, errs.New(errs.ErrCodeMissingRequiredField, "uns.flat_tree is missing")
	}
	if len(ft.Nodes) == 0 {
		return nil, errs.New(errs.ErrCodeMissingRequiredField, "uns.flat_tree.nodes (positions) is missing")
	}
	if len(ft.Edges) == 0 {
		return nil, errs.New(errs.ErrCodeMissingRequiredField, "uns.flat_tree.edges (connectivity) is missing")
	}
	key := ft.BranchKey
	if key == "" {
		key = defaultBranchKey
	}
	assigned, ok := h.Obs[key]
	if !ok {
		return nil, errs.New(errs.ErrCodeMissingRequiredField, "branch assignment obs[%q] is missing", key)
	}
	if len(assigned) != len(h.ObsNames) {
		return nil, errs.New(errs.ErrCodeInvalidDataset, "obs[%q] has %d values, want %d", key, len(assigned), len(h.ObsNames))
	}

	vertices := make(map[string]TreeNode, len(ft.Nodes))
	for _, v := range ft.Nodes {
		if len(v.Pos) < 2 {
			return nil, errs.New(errs.ErrCodeInvalidDataset, "flat tree node %q must have 2 position components", v.ID)
		}
		if strings.Contains(v.ID, branchSep) {
			return nil, errs.New(errs.ErrCodeInvalidDataset, "flat tree node %q must not contain %q, it separates branch ids", v.ID, branchSep)
		}
		if _, dup := vertices[v.ID]; dup {
			return nil, errs.New(errs.ErrCodeInvalidDataset, "duplicate flat tree node %q", v.ID)
		}
		vertices[v.ID] = v
	}

	// Branch nodes; alias maps both orientations of a branch id to the canonical one.
	nodes := make([]GraphNode, 0, len(ft.Edges))
	alias := make(map[string]string, 2*len(ft.Edges))
	incident := make(map[string][]string, len(ft.Nodes))
	for _, e := range ft.Edges {
		from, okFrom := vertices[e.From]
		to, okTo := vertices[e.To]
		if !okFrom || !okTo {
			return nil, errs.New(errs.ErrCodeInvalidDataset, "flat tree edge %s_%s references an unknown node", e.From, e.To)
		}
		id := branchID(e.From, e.To)
		if _, dup := alias[id]; dup {
			return nil, errs.New(errs.ErrCodeInvalidDataset, "duplicate branch %q", id)
		}
		alias[id] = id
		alias[branchID(e.To, e.From)] = id
		incident[e.From] = append(incident[e.From], id)
		incident[e.To] = append(incident[e.To], id)
		nodes = append(nodes, GraphNode{
			ID: id,
			Position: [2]float64{
				(from.Pos[0] + to.Pos[0]) / 2,
				(from.Pos[1] + to.Pos[1]) / 2,
			},
			Ordering: (from.Pseudotime + to.Pseudotime) / 2,
			Label:    e.From + "-" + e.To,
			Ends:     [2]string{e.From, e.To},
		})
	}

	// Branches meeting at a tree vertex are connected.
	edges := NewEdgeSet()
	for _, v := range ft.Nodes {
		branches := incident[v.ID]
		for i := 0; i < len(branches); i++ {
			for j := i + 1; j < len(branches); j++ {
				edges.Put(branches[i], branches[j], 1)
			}
		}
	}

	groups := make([]string, len(assigned))
	for i, b := range assigned {
		id, ok := alias[b]
		if !ok {
			return nil, errs.New(errs.ErrCodeInvalidDataset, "cell %q belongs to unknown branch %q", h.ObsNames[i], b)
		}
		groups[i] = id
	}

	positions, dim, err := embedding(h, opts.EmbeddingKey)
	if err != nil {
		return nil, err
	}
	cells, err := buildCells(h, positions, groups, opts)
	if err != nil {
		return nil, err
	}
	return finish(KindSTREAM, h, dim, cells, nodes, edges)
}

func branchID(from, to string) string { return from + branchSep + to }
