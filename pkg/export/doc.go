// Package export writes the viewer files for one report.
//
// A report directory holds:
//
//   - <kind>_nodes.json: graph nodes keyed by ID, with 3-D positions ([WriteGraph])
//   - <kind>_edges.json: graph edges as endpoint pairs with weights ([WriteGraph])
//   - scatter.json or scatter_00000.json, scatter_00001.json, ...: the cell point
//     cloud with its coloring channels ([WriteCells])
//   - stream.json: STREAM only, one 3-D curve per branch ([WriteGraph])
//   - metadata.json: each cell's annotation and its color, keyed by the label
//     column name, or "group" without a label ([WriteCells])
//   - gene_<name>.json: cell colors for one gene channel ([WriteCells])
//   - index.json: the manifest tying the files together ([WriteManifest])
//
// Every file is written to a temporary name and renamed into place, so a reader
// never sees a half-written file under its final name. Output is deterministic:
// identical inputs produce byte-identical files.
//
// # Coloring
//
// Cells carry at most one categorical label channel and any number of gene
// channels. Label values get colors from [DefaultPalette] in ascending value
// order unless the dataset supplies its own. Gene values are mapped onto a
// linear colormap between the gene's minimum and maximum ([GeneColor]).
package export
