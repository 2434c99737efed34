package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/singlecellvr/scvrprep/pkg/config"
	"github.com/singlecellvr/scvrprep/pkg/dataset"
	"github.com/singlecellvr/scvrprep/pkg/export"
	"github.com/singlecellvr/scvrprep/pkg/observability"
	"github.com/singlecellvr/scvrprep/pkg/pipeline"
)

// exportOpts holds export command flags.
type exportOpts struct {
	file          string
	tool          string
	genesFile     string
	label         string
	output        string
	chunkSize     int
	parallel      bool
	edgeThreshold float64
	embedding     string
	configPath    string
	pickLabel     bool
}

// exportCommand creates the export command.
func (c *CLI) exportCommand() *cobra.Command {
	opts := exportOpts{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Build a VR report from a PAGA or STREAM result",
		Long: `Build a VR report from a trajectory analysis result.

The result file is the JSON export of an AnnData object holding either a
scanpy PAGA graph (-t paga) or a STREAM flat tree (-t stream). The report is
written to <output>.zip; the working directory is removed once the archive
is complete.

Settings from scvrprep.toml (or --config) apply first; flags override them.`,
		Example: `  # PAGA result, cells colored by cluster, two genes
  scvrprep export -f paga.json -t paga -l louvain -g genes.txt

  # STREAM result into a custom report name
  scvrprep export -f stream.json -t stream -o nestorowa_report

  # Choose the label column interactively
  scvrprep export -f paga.json -t paga --pick-label`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			applyConfig(cmd, &opts, cfg)
			return c.runExport(cmd.Context(), opts, cfg)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "filename", "f", "", "analysis result file (AnnData JSON)")
	cmd.Flags().StringVarP(&opts.tool, "toolname", "t", "", "tool that produced the result: paga or stream")
	cmd.Flags().StringVarP(&opts.genesFile, "genes", "g", "", "gene list file, one gene per line")
	cmd.Flags().StringVarP(&opts.label, "label", "l", "", "categorical column used to color cells")
	cmd.Flags().StringVarP(&opts.output, "output", "o", export.DefaultOutput, "report name; the archive is <output>.zip")
	cmd.Flags().IntVar(&opts.chunkSize, "chunk-size", 0, "split cells into files of this many cells (0: one file)")
	cmd.Flags().BoolVar(&opts.parallel, "parallel", false, "write graph and cell files concurrently")
	cmd.Flags().Float64Var(&opts.edgeThreshold, "edge-threshold", pipeline.DefaultEdgeThreshold, "drop PAGA edges with weight at or below this")
	cmd.Flags().StringVar(&opts.embedding, "embedding", "", "obsm key for cell positions (default: first of "+fmt.Sprint(dataset.DefaultEmbeddingKeys)+")")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "settings file (default: ./"+config.DefaultFile+" if present)")
	cmd.Flags().BoolVar(&opts.pickLabel, "pick-label", false, "choose the label column interactively")
	_ = cmd.MarkFlagRequired("filename")
	_ = cmd.MarkFlagRequired("toolname")
	_ = cmd.RegisterFlagCompletionFunc("toolname", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		kinds := dataset.Kinds()
		names := make([]string, len(kinds))
		for i, k := range kinds {
			names[i] = k.String()
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// applyConfig fills flags the user did not set from file settings.
func applyConfig(cmd *cobra.Command, opts *exportOpts, cfg config.Config) {
	flags := cmd.Flags()
	if !flags.Changed("output") && cfg.Output != "" {
		opts.output = cfg.Output
	}
	if !flags.Changed("label") && cfg.Label != "" {
		opts.label = cfg.Label
	}
	if !flags.Changed("genes") && cfg.GenesFile != "" {
		opts.genesFile = cfg.GenesFile
	}
	if !flags.Changed("chunk-size") {
		opts.chunkSize = cfg.ChunkSize
	}
	if !flags.Changed("parallel") {
		opts.parallel = cfg.Parallel
	}
	if !flags.Changed("edge-threshold") {
		opts.edgeThreshold = cfg.EdgeThreshold
	}
	if !flags.Changed("embedding") && cfg.EmbeddingKey != "" {
		opts.embedding = cfg.EmbeddingKey
	}
}

func (c *CLI) runExport(ctx context.Context, opts exportOpts, cfg config.Config) error {
	prog := newProgress(c.Logger)

	h, err := dataset.ReadHandleFile(opts.file)
	if err != nil {
		return err
	}
	var genes []string
	if opts.genesFile != "" {
		if genes, err = dataset.ReadGeneListFile(opts.genesFile); err != nil {
			return err
		}
	}
	if opts.pickLabel && opts.label == "" {
		if opts.label, err = pickLabel(ctx, h); err != nil {
			return err
		}
	}

	cfg.ChunkSize = opts.chunkSize
	cfg.Parallel = opts.parallel
	cfg.EdgeThreshold = opts.edgeThreshold
	cfg.EmbeddingKey = opts.embedding
	runner := c.newRunner(cfg)

	spinner := newSpinnerWithContext(ctx, "Reading dataset...")
	prev := observability.Pipeline()
	observability.SetPipelineHooks(spinnerHooks{spinner: spinner})
	defer observability.SetPipelineHooks(prev)
	spinner.Start()

	result, err := runner.Execute(ctx, dataset.ParseKind(opts.tool), h, export.Options{
		Genes:     genes,
		Label:     opts.label,
		Output:    opts.output,
		ChunkSize: opts.chunkSize,
	})
	if err != nil {
		spinner.StopWithError("Export failed")
		return err
	}
	spinner.StopWithSuccess("Report ready")

	printFile(result.Archive)
	printKeyValue("report id", result.ReportID)
	printStats(result.Stats)
	for _, w := range result.Warnings {
		printWarning("%s", w.String())
	}
	prog.done(fmt.Sprintf("Exported %d cells", result.Stats.CellCount))
	printNextStep("Serve it to the viewer", appName+" serve")
	return nil
}
