package export_test

import (
	"fmt"

	"github.com/singlecellvr/scvrprep/pkg/export"
)

func ExampleLabelLegend() {
	legend := export.LabelLegend([]string{"erythroid", "myeloid"}, map[string]string{"myeloid": "#AA0000"})
	for _, e := range legend {
		fmt.Println(e.Value, e.Color)
	}
	// Output:
	// erythroid #1f77b4
	// myeloid #aa0000
}

func ExampleChunkName() {
	fmt.Println(export.ChunkName(0), export.ChunkName(12))
	// Output: scatter_00000.json scatter_00012.json
}
