// Package dataset normalizes trajectory-inference results into one internal shape.
//
// # Overview
//
// Upstream tools describe the same thing in different vocabularies: PAGA talks about
// abstracted clusters and a connectivity matrix, STREAM about branches of a flat tree.
// This package converts either into the collections the rest of scvrprep reads:
//
//   - [Cell]: one point of the cloud (embedding position, group, labels, expression)
//   - [GraphNode]: one cell group or branch, with a 2-D position and an ordering scalar
//   - [GraphEdge]: an unordered, weighted connection between two nodes
//
// # Adapters
//
// Each supported [Kind] has its own [Adapter] implementation. [Adapt] looks the adapter
// up by kind and fails with UNSUPPORTED_DATASET_KIND for anything else:
//
//	h, err := dataset.ReadHandleFile("pbmc.json")
//	ds, err := dataset.Adapt(dataset.KindPAGA, h, dataset.Options{Genes: genes})
//
// Adapters never mutate the [Handle]. The returned [Dataset] is immutable by convention:
// downstream components only read it.
//
// # Determinism
//
// Nodes are sorted by ID and edges by their canonical endpoint pair. Duplicate entries for
// one pair in a connectivity matrix resolve last-wins in row-major order, so the same
// handle always yields the same dataset.
package dataset
