package export

import (
	"fmt"
	"math"
	"sort"

	"github.com/emirpasic/gods/sets/treeset"

	"github.com/singlecellvr/scvrprep/pkg/dataset"
	errs "github.com/singlecellvr/scvrprep/pkg/errors"
)

// DefaultOutput is the report directory name used when none is given.
const DefaultOutput = "vr_report"

// ScatterFile is the cell file name when chunking is off.
const ScatterFile = "scatter.json"

// Options selects what a report contains.
type Options struct {
	// Genes to export as expression channels. Order and duplicates do not matter.
	Genes []string
	// Label is the categorical column used to color cells. Empty means no label channel.
	Label string
	// Output is the report directory. The archive is written next to it as <Output>.zip.
	Output string
	// ChunkSize splits the cell export into files of at most this many cells. 0 disables chunking.
	ChunkSize int
	// LabelColors are upstream colors for the label's values, keyed by value.
	LabelColors map[string]string
}

// OutputDir returns Output, or DefaultOutput when it is empty.
func (o Options) OutputDir() string {
	if o.Output == "" {
		return DefaultOutput
	}
	return o.Output
}

// GeneValue is one gene channel entry of a cell.
type GeneValue struct {
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// CellRecord is one cell as the viewer reads it.
type CellRecord struct {
	ID         string               `json:"cell_id"`
	Index      int                  `json:"index"`
	Group      string               `json:"group"`
	X          float64              `json:"x"`
	Y          float64              `json:"y"`
	Z          float64              `json:"z"`
	Label      string               `json:"label,omitempty"`
	LabelColor string               `json:"label_color,omitempty"`
	Genes      map[string]GeneValue `json:"genes,omitempty"`
}

// GeneRange is the value range of one exported gene channel.
type GeneRange struct {
	Gene string  `json:"gene"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// CellSummary describes a written cell export.
type CellSummary struct {
	Files     []File        `json:"files"`
	Cells     int           `json:"cells"`
	ChunkSize int           `json:"chunk_size,omitempty"`
	Label     string        `json:"label,omitempty"`
	Legend    []LegendEntry `json:"legend,omitempty"`
	Genes     []GeneRange   `json:"genes,omitempty"`

	// Metadata and GeneFiles are the per-cell annotation and gene color files.
	Metadata  File   `json:"metadata"`
	GeneFiles []File `json:"gene_files,omitempty"`

	// Warnings lists requested genes that were not exported.
	Warnings []errs.Warning `json:"-"`
}

// ChunkName returns the file name of chunk i.
func ChunkName(i int) string { return fmt.Sprintf("scatter_%05d.json", i) }

// WriteCells writes the cell point cloud into dir, along with metadata.json
// and one gene_<name>.json per exported gene.
//
// A requested label that some cell lacks fails with UNRESOLVED_LABEL.
// Requested genes missing from the cells are skipped and reported as
// UNRESOLVED_GENE warnings in the summary. Cells are written in index order;
// with chunking, chunk i holds cells [i*ChunkSize, (i+1)*ChunkSize).
func WriteCells(dir string, cells []dataset.Cell, opts Options) (CellSummary, error) {
	if opts.ChunkSize < 0 {
		return CellSummary{}, errs.New(errs.ErrCodeInvalidInput, "chunk size must not be negative, got %d", opts.ChunkSize)
	}

	ordered, err := byIndex(cells)
	if err != nil {
		return CellSummary{}, err
	}

	summary := CellSummary{Cells: len(ordered), ChunkSize: opts.ChunkSize, Label: opts.Label}

	colorOf := map[string]string{}
	if opts.Label != "" {
		values := treeset.NewWithStringComparator()
		for _, c := range ordered {
			v, ok := c.Label(opts.Label)
			if !ok {
				return CellSummary{}, errs.New(errs.ErrCodeUnresolvedLabel, "label %q not found on cell %q", opts.Label, c.ID)
			}
			values.Add(v)
		}
		distinct := make([]string, 0, values.Size())
		for _, v := range values.Values() {
			distinct = append(distinct, v.(string))
		}
		summary.Legend = LabelLegend(distinct, opts.LabelColors)
		for _, e := range summary.Legend {
			colorOf[e.Value] = e.Color
		}
	}

	genes, warnings, err := resolveGenes(ordered, dataset.NormalizeGenes(opts.Genes))
	if err != nil {
		return CellSummary{}, err
	}
	summary.Genes = genes
	summary.Warnings = warnings

	records := make([]CellRecord, len(ordered))
	for i, c := range ordered {
		records[i] = cellRecord(c, opts.Label, colorOf, genes)
	}

	if summary.Metadata, err = writeMetadata(dir, opts.Label, records); err != nil {
		return CellSummary{}, err
	}
	if summary.GeneFiles, err = writeGeneFiles(dir, records, genes); err != nil {
		return CellSummary{}, err
	}

	if opts.ChunkSize == 0 {
		f, err := writeJSON(dir, ScatterFile, records, false)
		if err != nil {
			return CellSummary{}, err
		}
		summary.Files = []File{f}
		return summary, nil
	}

	chunks := (len(records) + opts.ChunkSize - 1) / opts.ChunkSize
	if chunks == 0 {
		chunks = 1
	}
	for i := 0; i < chunks; i++ {
		lo := i * opts.ChunkSize
		hi := min(lo+opts.ChunkSize, len(records))
		f, err := writeJSON(dir, ChunkName(i), records[lo:hi], false)
		if err != nil {
			return CellSummary{}, err
		}
		summary.Files = append(summary.Files, f)
	}
	return summary, nil
}

// byIndex returns the cells sorted by Index and rejects repeated indices.
func byIndex(cells []dataset.Cell) ([]dataset.Cell, error) {
	out := make([]dataset.Cell, len(cells))
	copy(out, cells)
	for _, c := range out {
		if len(c.Position) < 2 || len(c.Position) > 3 {
			return nil, errs.New(errs.ErrCodeInvalidDataset, "cell %q has %d coordinates, want 2 or 3", c.ID, len(c.Position))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	for i := 1; i < len(out); i++ {
		if out[i].Index == out[i-1].Index {
			return nil, errs.New(errs.ErrCodeInvalidDataset, "cells %q and %q share index %d", out[i-1].ID, out[i].ID, out[i].Index)
		}
	}
	return out, nil
}

// resolveGenes splits the request into exported channels and warnings.
// A gene resolves when every cell carries a value for it.
func resolveGenes(cells []dataset.Cell, requested []string) ([]GeneRange, []errs.Warning, error) {
	var ranges []GeneRange
	var warnings []errs.Warning
	for _, g := range requested {
		have := 0
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, c := range cells {
			v, ok := c.Expression[g]
			if !ok {
				continue
			}
			have++
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
		switch {
		case have == 0:
			warnings = append(warnings, errs.Warning{
				Code:    errs.ErrCodeUnresolvedGene,
				Subject: g,
				Message: fmt.Sprintf("gene %q not found in dataset, skipped", g),
			})
		case have != len(cells):
			return nil, nil, errs.New(errs.ErrCodeInvalidDataset, "gene %q has values for %d of %d cells", g, have, len(cells))
		default:
			ranges = append(ranges, GeneRange{Gene: g, Min: lo, Max: hi})
		}
	}
	return ranges, warnings, nil
}

func cellRecord(c dataset.Cell, label string, colorOf map[string]string, genes []GeneRange) CellRecord {
	r := CellRecord{
		ID:    c.ID,
		Index: c.Index,
		Group: c.Group,
		X:     c.Position[0],
		Y:     c.Position[1],
	}
	if len(c.Position) > 2 {
		r.Z = c.Position[2]
	}
	if label != "" {
		r.Label = c.Labels[label]
		r.LabelColor = colorOf[r.Label]
	}
	if len(genes) > 0 {
		r.Genes = make(map[string]GeneValue, len(genes))
		for _, g := range genes {
			v := c.Expression[g.Gene]
			r.Genes[g.Gene] = GeneValue{Value: v, Color: GeneColor(v, g.Min, g.Max)}
		}
	}
	return r
}
