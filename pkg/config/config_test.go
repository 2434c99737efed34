package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/c2h5oh/datasize"

	errs "github.com/singlecellvr/scvrprep/pkg/errors"
)

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
output = "bm_report"
label = "louvain"
genes_file = "genes.tsv"
chunk_size = 1000
parallel = true
edge_threshold = 0.05

[serve]
addr = "127.0.0.1:9000"
max_upload = "1GB"
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Output != "bm_report" || cfg.Label != "louvain" || cfg.GenesFile != "genes.tsv" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ChunkSize != 1000 || !cfg.Parallel || cfg.EdgeThreshold != 0.05 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Serve.Addr != "127.0.0.1:9000" || cfg.Serve.MaxUpload != datasize.GB {
		t.Errorf("serve = %+v", cfg.Serve)
	}
	// Unset keys keep their defaults.
	if cfg.Serve.Dir != DefaultDir {
		t.Errorf("serve.dir = %q, want default", cfg.Serve.Dir)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"syntax", `output = `},
		{"unknown key", `colour = "red"`},
		{"negative chunk", `chunk_size = -1`},
		{"negative threshold", `edge_threshold = -0.5`},
		{"bad size", "[serve]\nmax_upload = \"lots\""},
		{"zero upload", "[serve]\nmax_upload = \"0B\""},
		{"bad output", `output = "."`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.input)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	if err := os.WriteFile(path, []byte(`label = "type"`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Label != "type" || cfg.Path != path {
		t.Errorf("cfg = %+v", cfg)
	}

	if _, err := Load(filepath.Join(dir, "missing.toml")); !errs.Is(err, errs.ErrCodeIO) {
		t.Errorf("missing explicit file: err = %v, want IO_FAILURE", err)
	}
}

func TestLoadDefaultFileAbsent(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Path != "" || cfg.Serve.MaxUpload != DefaultMaxUpload {
		t.Errorf("cfg = %+v", cfg)
	}
}
