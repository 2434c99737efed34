package dataset_test

import (
	"fmt"
	"strings"

	"github.com/singlecellvr/scvrprep/pkg/dataset"
)

func ExampleNormalizeGenes() {
	fmt.Println(dataset.NormalizeGenes([]string{"Klf1", "Gata1", "Klf1", " "}))
	// Output: [Gata1 Klf1]
}

func ExampleEdgeSet() {
	s := dataset.NewEdgeSet()
	s.Put("B", "A", 0.5)
	s.Put("A", "B", 0.7) // same pair, overwrites
	s.Put("C", "B", 0.2)
	for _, e := range s.Edges() {
		fmt.Println(e, e.Weight)
	}
	// Output:
	// A-B 0.7
	// B-C 0.2
}

func ExampleAdapt() {
	h, _ := dataset.ReadHandle(strings.NewReader(`{
		"obs_names": ["c0", "c1", "c2"],
		"obs": {"clusters": ["0", "1", "1"]},
		"obsm": {"X_umap": [[0, 0], [1, 0], [1, 1]]},
		"uns": {"paga": {
			"groups": "clusters",
			"pos": [[0, 0], [1, 1]],
			"connectivities": [[0, 0.4], [0.4, 0]],
			"pseudotime": [0, 1]
		}}
	}`))
	ds, err := dataset.Adapt(dataset.ParseKind("PAGA"), h, dataset.Options{})
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, n := range ds.Nodes {
		fmt.Printf("%s size=%d ordering=%g\n", n.ID, n.Size, n.Ordering)
	}
	fmt.Println(ds.Edges)
	// Output:
	// 0 size=1 ordering=0
	// 1 size=2 ordering=1
	// [0-1]
}
