// Package config loads scvrprep.toml, the optional settings file.
//
// Every key is optional and every value can be overridden by a command-line
// flag. Example:
//
//	output = "bone_marrow"
//	label = "louvain"
//	genes_file = "genes.tsv"
//	chunk_size = 50000
//	parallel = true
//	edge_threshold = 0.05
//	embedding_key = "X_umap"
//
//	[serve]
//	addr = ":8050"
//	dir = "reports"
//	redis_url = "redis://localhost:6379/0"
//	max_upload = "512MB"
package config

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/c2h5oh/datasize"

	errs "github.com/singlecellvr/scvrprep/pkg/errors"
)

// DefaultFile is read from the working directory when no path is given.
const DefaultFile = "scvrprep.toml"

// Defaults for the serve section.
const (
	DefaultAddr      = ":8050"
	DefaultDir       = "reports"
	DefaultMaxUpload = 512 * datasize.MB
)

// Config is the content of a settings file.
type Config struct {
	Output        string  `toml:"output"`
	Label         string  `toml:"label"`
	GenesFile     string  `toml:"genes_file"`
	ChunkSize     int     `toml:"chunk_size"`
	Parallel      bool    `toml:"parallel"`
	EdgeThreshold float64 `toml:"edge_threshold"`
	EmbeddingKey  string  `toml:"embedding_key"`
	Serve         Serve   `toml:"serve"`

	// Path is the file the values came from. Empty when defaults were used.
	Path string `toml:"-"`
}

// Serve configures the report server.
type Serve struct {
	Addr      string            `toml:"addr"`
	Dir       string            `toml:"dir"`
	RedisURL  string            `toml:"redis_url"`
	MaxUpload datasize.ByteSize `toml:"max_upload"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Serve: Serve{
			Addr:      DefaultAddr,
			Dir:       DefaultDir,
			MaxUpload: DefaultMaxUpload,
		},
	}
}

// Load reads the settings file at path. With an empty path it reads
// DefaultFile if present and falls back to Default otherwise.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, errs.Wrap(errs.ErrCodeIO, err, "read config %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, errs.Wrap(errs.ErrCodeInvalidInput, err, "config %s", path)
	}
	cfg.Path = path
	return cfg, nil
}

// Parse decodes TOML settings on top of Default. Unknown keys are an error.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errs.New(errs.ErrCodeInvalidInput, "unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.ChunkSize < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "chunk_size must not be negative")
	}
	if math.IsNaN(c.EdgeThreshold) || c.EdgeThreshold < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "edge_threshold must be a non-negative number")
	}
	if c.Output != "" {
		if err := errs.ValidateOutputPath(c.Output); err != nil {
			return err
		}
	}
	if c.Serve.MaxUpload == 0 {
		return errs.New(errs.ErrCodeInvalidInput, "serve.max_upload must be positive")
	}
	return nil
}
