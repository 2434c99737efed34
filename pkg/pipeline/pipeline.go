// Package pipeline provides the export pipeline for scvrprep.
//
// This package runs the complete adapt → layout → export → package sequence
// that the CLI and the report server share, so both produce identical reports.
//
// # Architecture
//
// A run moves through these states:
//
//  1. Loaded: the upstream handle was adapted into a [dataset.Dataset]
//  2. LaidOut: graph nodes have 3-D positions
//  3. GraphExported and CellsExported: the two exporters finished, in either
//     order (they run concurrently when [Config.Parallel] is set)
//  4. Packaged: the report directory was archived and removed
//
// Any error moves the run to Failed. There is no partial retry; a new run
// starts again from the handle.
//
// # Usage
//
//	runner := pipeline.NewRunner(pipeline.Config{
//	    Version: buildinfo.Version,
//	    Logger:  logger,
//	})
//	result, err := runner.Execute(ctx, dataset.KindPAGA, handle, export.Options{
//	    Label:  "louvain",
//	    Genes:  []string{"Gata1", "Klf1"},
//	    Output: "vr_report",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Archive) // vr_report.zip
package pipeline

import (
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"

	errs "github.com/singlecellvr/scvrprep/pkg/errors"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultVersion is recorded in manifests when Config.Version is empty.
	DefaultVersion = "dev"

	// DefaultEdgeThreshold keeps every positive connectivity entry.
	DefaultEdgeThreshold = 0.0
)

// =============================================================================
// Config - Runner Configuration
// =============================================================================

// Config configures a Runner. It replaces process-wide settings: everything a
// run depends on is passed in here or in the per-run export options.
type Config struct {
	// Version is written into every manifest.
	Version string
	// Logger receives progress messages. Nil discards them.
	Logger *log.Logger
	// ChunkSize is the default cell chunk size, used when a run's options leave it 0.
	ChunkSize int
	// Parallel runs the graph and cell exporters concurrently.
	Parallel bool
	// EdgeThreshold drops connectivity entries whose weight is not above it.
	EdgeThreshold float64
	// EmbeddingKey selects the cell embedding. Empty tries the usual bases in order.
	EmbeddingKey string

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults checks the configuration and applies defaults.
// This method is idempotent.
func (c *Config) ValidateAndSetDefaults() error {
	if c.validated {
		return nil
	}
	if c.ChunkSize < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "chunk size must not be negative, got %d", c.ChunkSize)
	}
	if math.IsNaN(c.EdgeThreshold) || c.EdgeThreshold < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "edge threshold must be a non-negative number, got %v", c.EdgeThreshold)
	}
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.Logger == nil {
		c.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	c.validated = true
	return nil
}

// =============================================================================
// Result
// =============================================================================

// Result contains the outcome of a pipeline run.
type Result struct {
	// Archive is the path of the written zip. Empty unless State is StatePackaged.
	Archive string

	// ReportID is the manifest's content-derived report ID.
	ReportID string

	// Warnings are the non-fatal conditions collected during the run.
	Warnings []errs.Warning

	// Stats contains timing and size information.
	Stats Stats

	// State is the state the run ended in.
	State State

	// Reason describes the failure when State is StateFailed.
	Reason string
}

// Stats contains pipeline execution statistics.
type Stats struct {
	CellCount    int
	NodeCount    int
	EdgeCount    int
	ChunkCount   int
	GeneCount    int
	ArchiveBytes int64
	AdaptTime    time.Duration
	LayoutTime   time.Duration
	ExportTime   time.Duration
	PackageTime  time.Duration
}
