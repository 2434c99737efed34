package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/singlecellvr/scvrprep/pkg/archive"
	"github.com/singlecellvr/scvrprep/pkg/dataset"
	errs "github.com/singlecellvr/scvrprep/pkg/errors"
	"github.com/singlecellvr/scvrprep/pkg/export"
	"github.com/singlecellvr/scvrprep/pkg/layout3d"
	"github.com/singlecellvr/scvrprep/pkg/observability"
)

// Runner executes export pipelines.
//
// The Runner holds configuration only; it does not keep results between
// runs. Multiple goroutines can use one Runner as long as their runs target
// different output directories.
type Runner struct {
	cfg    Config
	Logger *log.Logger
}

// NewRunner creates a runner. Invalid configuration is reported by the first
// Execute or Layout call.
func NewRunner(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Runner{cfg: cfg, Logger: logger}
}

// Config returns the runner's configuration with defaults applied.
func (r *Runner) Config() (Config, error) {
	cfg := r.cfg
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Layout adapts h and computes 3-D node positions without writing anything.
// The returned points are aligned with ds.Nodes.
func (r *Runner) Layout(ctx context.Context, kind dataset.Kind, h *dataset.Handle, genes []string) (*dataset.Dataset, []layout3d.Point, error) {
	cfg, err := r.Config()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	ds, err := r.adapt(ctx, cfg, kind, h, genes)
	if err != nil {
		return nil, nil, fmt.Errorf("adapt: %w", err)
	}
	points, err := r.layout(ctx, ds)
	if err != nil {
		return nil, nil, fmt.Errorf("layout: %w", err)
	}
	return ds, points, nil
}

// Execute runs the complete adapt → layout → export → package pipeline.
//
// On success the archive at Result.Archive is the only durable output. On
// failure the error is returned together with a Result whose State is
// StateFailed; no archive exists, and a partially written report directory
// may remain for inspection.
func (r *Runner) Execute(ctx context.Context, kind dataset.Kind, h *dataset.Handle, opts export.Options) (*Result, error) {
	m := newMachine()
	result := &Result{}
	finish := func(stage string, err error) (*Result, error) {
		m.fail(err)
		result.State, result.Reason = m.current()
		r.Logger.Debug("pipeline failed", "stage", stage, "error", err)
		return result, fmt.Errorf("%s: %w", stage, err)
	}

	cfg, err := r.Config()
	if err != nil {
		return finish("invalid config", err)
	}
	if err := normalizeOptions(&opts, cfg); err != nil {
		return finish("invalid options", err)
	}

	// Stage 1: Adapt
	start := time.Now()
	ds, err := r.adapt(ctx, cfg, kind, h, opts.Genes)
	if err != nil {
		return finish(observability.StageAdapt, err)
	}
	result.Stats.AdaptTime = time.Since(start)
	result.Stats.CellCount = len(ds.Cells)
	result.Stats.NodeCount = len(ds.Nodes)
	result.Stats.EdgeCount = len(ds.Edges)

	// The label is checked before any directory exists.
	if opts.Label != "" {
		if !ds.HasLabel(opts.Label) {
			return finish("label", errs.New(errs.ErrCodeUnresolvedLabel,
				"label %q not found (available: %s)", opts.Label, strings.Join(ds.LabelColumns, ", ")))
		}
		opts.LabelColors = ds.LabelColors[opts.Label]
	}

	// Stage 2: Layout
	start = time.Now()
	points, err := r.layout(ctx, ds)
	if err != nil {
		return finish(observability.StageLayout, err)
	}
	if err := m.layoutDone(); err != nil {
		return finish(observability.StageLayout, err)
	}
	result.Stats.LayoutTime = time.Since(start)

	// Stage 3: Export
	dir, err := archive.Claim(opts.OutputDir())
	if err != nil {
		return finish("output", err)
	}
	start = time.Now()
	graphSum, cellSum, err := r.export(ctx, cfg, m, dir.Path(), ds, points, opts)
	if err != nil {
		return finish("export", err)
	}
	result.Stats.ExportTime = time.Since(start)
	result.Stats.ChunkCount = len(cellSum.Files)
	result.Stats.GeneCount = len(cellSum.Genes)
	for _, w := range cellSum.Warnings {
		r.warn(ctx, result, w)
	}

	manifest := export.NewManifest(cfg.Version, ds.Kind, ds.Dim, graphSum, cellSum, layout3d.BoundsOf(points))
	if _, err := export.WriteManifest(dir.Path(), manifest); err != nil {
		return finish("manifest", err)
	}
	result.ReportID = manifest.ID

	// Stage 4: Package
	if err := ctx.Err(); err != nil {
		return finish(observability.StagePackage, err)
	}
	if err := m.canPackage(); err != nil {
		return finish(observability.StagePackage, err)
	}
	start = time.Now()
	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, observability.StagePackage)
	err = dir.Pack()
	hooks.OnStageComplete(ctx, observability.StagePackage, time.Since(start), err)
	if err != nil {
		return finish(observability.StagePackage, err)
	}
	if err := m.packaged(); err != nil {
		return finish(observability.StagePackage, err)
	}
	result.Stats.PackageTime = time.Since(start)
	result.Archive = dir.ArchivePath()
	if info, err := os.Stat(result.Archive); err == nil {
		result.Stats.ArchiveBytes = info.Size()
	}
	if w := dir.Release(); w != nil {
		r.warn(ctx, result, *w)
	}

	r.Logger.Info("packaged report",
		"archive", result.Archive,
		"bytes", result.Stats.ArchiveBytes,
		"duration", result.Stats.PackageTime)

	result.State, _ = m.current()
	return result, nil
}

// normalizeOptions validates per-run options and fills defaults from cfg.
func normalizeOptions(opts *export.Options, cfg Config) error {
	if opts.Output == "" {
		opts.Output = export.DefaultOutput
	}
	if err := errs.ValidateOutputPath(opts.Output); err != nil {
		return err
	}
	if opts.Label != "" {
		if err := errs.ValidateLabelName(opts.Label); err != nil {
			return err
		}
	}
	for _, g := range opts.Genes {
		if err := errs.ValidateGeneName(g); err != nil {
			return err
		}
	}
	opts.Genes = dataset.NormalizeGenes(opts.Genes)
	if opts.ChunkSize < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "chunk size must not be negative, got %d", opts.ChunkSize)
	}
	if opts.ChunkSize == 0 {
		opts.ChunkSize = cfg.ChunkSize
	}
	return nil
}

func (r *Runner) adapt(ctx context.Context, cfg Config, kind dataset.Kind, h *dataset.Handle, genes []string) (*dataset.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, observability.StageAdapt)
	start := time.Now()

	ds, err := dataset.Adapt(kind, h, dataset.Options{
		Genes:         genes,
		EmbeddingKey:  cfg.EmbeddingKey,
		EdgeThreshold: cfg.EdgeThreshold,
	})
	hooks.OnStageComplete(ctx, observability.StageAdapt, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	r.Logger.Info("adapted dataset",
		"kind", ds.Kind,
		"cells", len(ds.Cells),
		"nodes", len(ds.Nodes),
		"edges", len(ds.Edges),
		"duration", time.Since(start))
	return ds, nil
}

func (r *Runner) layout(ctx context.Context, ds *dataset.Dataset) ([]layout3d.Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, observability.StageLayout)
	start := time.Now()

	points, err := layout3d.Elevate(ds.Nodes)
	hooks.OnStageComplete(ctx, observability.StageLayout, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	r.Logger.Info("computed layout",
		"nodes", len(points),
		"duration", time.Since(start))
	return points, nil
}

// export runs both exporters, concurrently when cfg.Parallel is set. They
// write disjoint files, so the result does not depend on scheduling.
func (r *Runner) export(ctx context.Context, cfg Config, m *machine, dir string, ds *dataset.Dataset, points []layout3d.Point, opts export.Options) (export.GraphSummary, export.CellSummary, error) {
	var (
		graphSum export.GraphSummary
		cellSum  export.CellSummary
	)
	hooks := observability.Pipeline()

	writeGraph := func() error {
		hooks.OnStageStart(ctx, observability.StageExportGraph)
		start := time.Now()
		sum, err := export.WriteGraph(dir, ds.Kind, ds.Nodes, points, ds.Edges)
		hooks.OnStageComplete(ctx, observability.StageExportGraph, time.Since(start), err)
		if err != nil {
			return fmt.Errorf("graph: %w", err)
		}
		graphSum = sum
		r.Logger.Info("exported graph", "nodes", sum.Nodes, "edges", sum.Edges, "duration", time.Since(start))
		return m.graphDone()
	}
	writeCells := func() error {
		hooks.OnStageStart(ctx, observability.StageExportCells)
		start := time.Now()
		sum, err := export.WriteCells(dir, ds.Cells, opts)
		hooks.OnStageComplete(ctx, observability.StageExportCells, time.Since(start), err)
		if err != nil {
			return fmt.Errorf("cells: %w", err)
		}
		cellSum = sum
		r.Logger.Info("exported cells", "cells", sum.Cells, "files", len(sum.Files), "duration", time.Since(start))
		return m.cellsDone()
	}

	if !cfg.Parallel {
		if err := writeGraph(); err != nil {
			return graphSum, cellSum, err
		}
		if err := writeCells(); err != nil {
			return graphSum, cellSum, err
		}
		return graphSum, cellSum, nil
	}

	var g errgroup.Group
	g.Go(writeGraph)
	g.Go(writeCells)
	err := g.Wait()
	return graphSum, cellSum, err
}

func (r *Runner) warn(ctx context.Context, result *Result, w errs.Warning) {
	result.Warnings = append(result.Warnings, w)
	observability.Pipeline().OnWarning(ctx, string(w.Code), w.Subject)
	r.Logger.Warn(w.Message, "code", w.Code)
}
