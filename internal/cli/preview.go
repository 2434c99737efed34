package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/singlecellvr/scvrprep/pkg/dataset"
	errs "github.com/singlecellvr/scvrprep/pkg/errors"
	"github.com/singlecellvr/scvrprep/pkg/preview"
)

// previewOpts holds preview command flags.
type previewOpts struct {
	file       string
	tool       string
	output     string
	detailed   bool
	configPath string
}

// previewCommand creates the preview command.
func (c *CLI) previewCommand() *cobra.Command {
	opts := previewOpts{}

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Draw the trajectory graph as a flat SVG",
		Long: `Draw the laid-out trajectory graph projected onto its x/y plane.

Nodes sit where the VR viewer places them; their color follows pseudotime.
An output ending in .dot writes Graphviz source instead of SVG.`,
		Example: `  scvrprep preview -f paga.json -t paga
  scvrprep preview -f stream.json -t stream -o tree.dot`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPreview(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "filename", "f", "", "analysis result file (AnnData JSON)")
	cmd.Flags().StringVarP(&opts.tool, "toolname", "t", "", "tool that produced the result: paga or stream")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "graph.svg", "output file (.svg or .dot)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show cell counts and pseudotime in node labels")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "settings file")
	_ = cmd.MarkFlagRequired("filename")
	_ = cmd.MarkFlagRequired("toolname")

	return cmd
}

func (c *CLI) runPreview(ctx context.Context, opts previewOpts) error {
	cfg, err := c.loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	h, err := dataset.ReadHandleFile(opts.file)
	if err != nil {
		return err
	}

	ds, points, err := c.newRunner(cfg).Layout(ctx, dataset.ParseKind(opts.tool), h, nil)
	if err != nil {
		return err
	}
	dot := preview.ToDOT(ds, points, preview.Options{Detailed: opts.detailed})

	data := []byte(dot)
	if !strings.EqualFold(filepath.Ext(opts.output), ".dot") {
		if data, err = preview.RenderSVG(ctx, dot); err != nil {
			return err
		}
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return errs.Wrap(errs.ErrCodeIO, err, "write %s", opts.output)
	}

	c.Logger.Debug("preview written", "nodes", len(ds.Nodes), "edges", len(ds.Edges), "bytes", len(data))
	printSuccess("Preview of %d nodes", len(ds.Nodes))
	printFile(opts.output)
	return nil
}
