// Package pkg holds the libraries behind scvrprep, which turns single-cell
// trajectory results into reports for the single-cell VR viewer.
//
// # Overview
//
// A report is a zip archive with three parts: the trajectory graph laid out
// in 3-D, the cell point cloud with its label and gene color channels, and an
// index.json manifest. The packages are organized as:
//
//  1. [dataset] - reading AnnData-like handles and adapting PAGA or STREAM results
//  2. [layout3d] - lifting the 2-D graph into 3-D along pseudotime
//  3. [export] - writing graph, cell and manifest files
//  4. [archive] - zipping a report directory and owning its lifecycle
//  5. [pipeline] - running the stages above as one state machine
//  6. [store], [server] - keeping reports and serving them to the viewer
//  7. [preview] - drawing the laid-out graph as SVG
//
// # Architecture
//
//	AnnData handle (JSON)
//	         ↓
//	    [dataset] Adapt (paga | stream)
//	         ↓
//	    [layout3d] Elevate
//	         ↓
//	    [export] WriteGraph ∥ WriteCells → WriteManifest
//	         ↓
//	    [archive] Pack → <output>.zip
//
// # Quick Start
//
//	h, _ := dataset.ReadHandleFile("paga.json")
//	runner := pipeline.NewRunner(pipeline.Config{Version: buildinfo.Version})
//	result, err := runner.Execute(ctx, dataset.KindPAGA, h, export.Options{
//	    Label: "louvain",
//	    Genes: []string{"Gata1", "Klf1"},
//	})
//	// result.Archive == "vr_report.zip"
//
// Shared infrastructure lives in [errors] (coded errors and input validation),
// [observability] (stage, store and HTTP hooks), [config] (scvrprep.toml) and
// [buildinfo] (version stamped at build time).
package pkg
