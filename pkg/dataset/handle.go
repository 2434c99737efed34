package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	errs "github.com/singlecellvr/scvrprep/pkg/errors"
)

// Handle is the in-memory upstream result, laid out like an AnnData object.
//
// It is produced by glue code (usually by decoding a JSON export of an .h5ad or a
// STREAM pickle) and handed to an [Adapter]. Fields an adapter needs but does not find
// are reported with MISSING_REQUIRED_FIELD.
type Handle struct {
	// ObsNames are the cell names, one per observation.
	ObsNames []string `json:"obs_names"`
	// Obs holds categorical per-cell columns (cluster labels, branch ids, cell types).
	Obs map[string][]string `json:"obs,omitempty"`
	// ObsNumeric holds numeric per-cell columns (e.g. dpt_pseudotime).
	ObsNumeric map[string][]float64 `json:"obs_numeric,omitempty"`
	// Obsm holds per-cell embeddings keyed by basis (X_umap, X_dr, ...).
	Obsm map[string][][]float64 `json:"obsm,omitempty"`
	// Expression maps a gene name to its per-cell expression vector.
	Expression map[string][]float64 `json:"expression,omitempty"`
	// Uns holds unstructured results.
	Uns Uns `json:"uns"`
}

// Uns is the unstructured part of a handle.
type Uns struct {
	PAGA     *PAGA     `json:"paga,omitempty"`
	FlatTree *FlatTree `json:"flat_tree,omitempty"`
	// LabelColors maps a categorical column to value → hex color.
	LabelColors map[string]map[string]string `json:"label_colors,omitempty"`
}

// PAGA is an abstracted graph. Categories, Pos, Connectivities and Pseudotime are
// aligned by index.
type PAGA struct {
	// Groups names the obs column holding each cell's cluster.
	Groups         string      `json:"groups"`
	Categories     []string    `json:"categories,omitempty"`
	Pos            [][]float64 `json:"pos"`
	Connectivities [][]float64 `json:"connectivities"`
	Pseudotime     []float64   `json:"pseudotime,omitempty"`
}

// FlatTree is a STREAM trajectory: tree vertices joined by branches.
type FlatTree struct {
	Nodes []TreeNode `json:"nodes"`
	Edges []TreeEdge `json:"edges"`
	// BranchKey names the obs column assigning cells to branches. Defaults to "branch_id".
	BranchKey string `json:"branch_key,omitempty"`
}

// TreeNode is a vertex of the flat tree (S0, S1, ...).
type TreeNode struct {
	ID         string    `json:"id"`
	Pos        []float64 `json:"pos"`
	Pseudotime float64   `json:"pseudotime"`
}

// TreeEdge is a branch between two tree vertices.
type TreeEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ReadHandleFile reads a JSON-encoded handle from path.
func ReadHandleFile(path string) (*Handle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeIO, err, "open %s", path)
	}
	defer f.Close()
	return ReadHandle(f)
}

// ReadHandle decodes a JSON-encoded handle from r.
func ReadHandle(r io.Reader) (*Handle, error) {
	var h Handle
	if err := json.NewDecoder(r).Decode(&h); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidDataset, err, "decode handle")
	}
	return &h, nil
}

// LabelColumns returns the categorical obs columns that can color cells.
func (h *Handle) LabelColumns() []string {
	cols := make([]string, 0, len(h.Obs))
	for k, v := range h.Obs {
		if len(v) == len(h.ObsNames) {
			cols = append(cols, k)
		}
	}
	return sortedStrings(cols)
}

func (h *Handle) String() string {
	return fmt.Sprintf("handle(%d cells, %d obs columns, %d genes)", len(h.ObsNames), len(h.Obs), len(h.Expression))
}
