// Package cli implements the scvrprep command-line interface.
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/singlecellvr/scvrprep/pkg/buildinfo"
	"github.com/singlecellvr/scvrprep/pkg/config"
	"github.com/singlecellvr/scvrprep/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display and completions.
const appName = "scvrprep"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "scvrprep prepares single-cell trajectory results for VR viewing",
		Long: `scvrprep converts a PAGA or STREAM trajectory analysis into a VR report:
a zip holding the 3-D trajectory graph, the cell point cloud and a manifest,
ready to be loaded by the single-cell VR viewer.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.exportCommand())
	root.AddCommand(c.previewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner from file settings.
func (c *CLI) newRunner(cfg config.Config) *pipeline.Runner {
	return pipeline.NewRunner(pipeline.Config{
		Version:       buildinfo.Version,
		Logger:        c.Logger,
		ChunkSize:     cfg.ChunkSize,
		Parallel:      cfg.Parallel,
		EdgeThreshold: cfg.EdgeThreshold,
		EmbeddingKey:  cfg.EmbeddingKey,
	})
}

// loadConfig reads the settings file named by --config, or the default one.
func (c *CLI) loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if cfg.Path != "" {
		c.Logger.Debug("loaded config", "path", cfg.Path)
	}
	return cfg, nil
}
