package cli

import (
	"context"

	"github.com/c2h5oh/datasize"
	"github.com/spf13/cobra"

	"github.com/singlecellvr/scvrprep/pkg/buildinfo"
	"github.com/singlecellvr/scvrprep/pkg/config"
	errs "github.com/singlecellvr/scvrprep/pkg/errors"
	"github.com/singlecellvr/scvrprep/pkg/server"
	"github.com/singlecellvr/scvrprep/pkg/store"
)

// serveOpts holds serve command flags.
type serveOpts struct {
	addr       string
	dir        string
	redisURL   string
	maxUpload  string
	configPath string
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve reports to the VR viewer over HTTP",
		Long: `Serve reports to the VR viewer over HTTP.

Uploaded reports are stored on disk under --dir, or in Redis when --redis is
set. Each upload gets an ID the viewer uses to fetch the report.`,
		Example: `  scvrprep serve
  scvrprep serve --addr :9000 --max-upload 1GB
  scvrprep serve --redis redis://localhost:6379/0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			serve, err := applyServeConfig(cmd, opts, cfg.Serve)
			if err != nil {
				return err
			}
			return c.runServe(cmd.Context(), serve)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", config.DefaultAddr, "listen address")
	cmd.Flags().StringVar(&opts.dir, "dir", config.DefaultDir, "report directory for the file store")
	cmd.Flags().StringVar(&opts.redisURL, "redis", "", "store reports in Redis at this URL instead of --dir")
	cmd.Flags().StringVar(&opts.maxUpload, "max-upload", config.DefaultMaxUpload.HumanReadable(), "largest accepted report (e.g. 512MB, 2GB)")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "settings file")

	return cmd
}

// applyServeConfig overlays flags the user set on the file's [serve] section.
func applyServeConfig(cmd *cobra.Command, opts serveOpts, serve config.Serve) (config.Serve, error) {
	flags := cmd.Flags()
	if flags.Changed("addr") {
		serve.Addr = opts.addr
	}
	if flags.Changed("dir") {
		serve.Dir = opts.dir
	}
	if flags.Changed("redis") {
		serve.RedisURL = opts.redisURL
	}
	if flags.Changed("max-upload") {
		var size datasize.ByteSize
		if err := size.UnmarshalText([]byte(opts.maxUpload)); err != nil {
			return config.Serve{}, errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid --max-upload %q", opts.maxUpload)
		}
		if size == 0 {
			return config.Serve{}, errs.New(errs.ErrCodeInvalidInput, "--max-upload must be positive")
		}
		serve.MaxUpload = size
	}
	return serve, nil
}

// openStore picks Redis when a URL is configured and the file store otherwise.
func openStore(ctx context.Context, serve config.Serve) (store.Store, error) {
	if serve.RedisURL != "" {
		return store.NewRedisStore(ctx, serve.RedisURL, store.DefaultTTL)
	}
	return store.NewFileStore(serve.Dir)
}

func (c *CLI) runServe(ctx context.Context, serve config.Serve) error {
	st, err := openStore(ctx, serve)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := server.New(server.Options{
		Store:     st,
		Logger:    c.Logger,
		MaxUpload: serve.MaxUpload,
		Version:   buildinfo.Version,
	})
	printInfo("Listening on %s (%s store)", serve.Addr, st.Name())
	return srv.ListenAndServe(ctx, serve.Addr)
}
