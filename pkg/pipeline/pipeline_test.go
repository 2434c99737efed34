package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/singlecellvr/scvrprep/pkg/archive"
	"github.com/singlecellvr/scvrprep/pkg/dataset"
	errs "github.com/singlecellvr/scvrprep/pkg/errors"
	"github.com/singlecellvr/scvrprep/pkg/export"
	"github.com/singlecellvr/scvrprep/pkg/observability"
)

// abcHandle is three nodes A, B, C at (0,0), (1,0), (0,1) with ordering 0, 1, 2,
// edges A-B 0.5 and B-C 0.2, and four cells labelled by "type".
func abcHandle() *dataset.Handle {
	return &dataset.Handle{
		ObsNames: []string{"c0", "c1", "c2", "c3"},
		Obs: map[string][]string{
			"clusters": {"A", "B", "B", "C"},
			"type":     {"x", "y", "x", "y"},
		},
		Obsm: map[string][][]float64{
			"X_umap": {{0, 0}, {1, 0.1}, {0.9, 0}, {0, 1}},
		},
		Expression: map[string][]float64{
			"Gata1": {0, 2, 1, 4},
		},
		Uns: dataset.Uns{
			PAGA: &dataset.PAGA{
				Groups:     "clusters",
				Categories: []string{"A", "B", "C"},
				Pos:        [][]float64{{0, 0}, {1, 0}, {0, 1}},
				Connectivities: [][]float64{
					{0, 0.5, 0},
					{0.5, 0, 0.2},
					{0, 0.2, 0},
				},
				Pseudotime: []float64{0, 1, 2},
			},
		},
	}
}

func readArchive(t *testing.T, path string) map[string][]byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	r := bytes.NewReader(data)
	names, err := archive.Entries(r, int64(len(data)))
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	out := make(map[string][]byte, len(names))
	for _, name := range names {
		content, err := archive.ReadEntry(r, int64(len(data)), name)
		if err != nil {
			t.Fatalf("ReadEntry(%s): %v", name, err)
		}
		out[name] = content
	}
	return out
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func TestExecuteEndToEnd(t *testing.T) {
	output := filepath.Join(t.TempDir(), "vr_report")
	runner := NewRunner(Config{Version: "0.1.0"})

	result, err := runner.Execute(context.Background(), dataset.KindPAGA, abcHandle(), export.Options{
		Label:  "type",
		Genes:  []string{"Gata1"},
		Output: output,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.State != StatePackaged {
		t.Errorf("State = %s, want packaged", result.State)
	}
	if result.Archive != output+".zip" {
		t.Errorf("Archive = %s", result.Archive)
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Errorf("intermediate directory still present: %v", err)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("warnings = %v", result.Warnings)
	}
	if result.Stats.NodeCount != 3 || result.Stats.EdgeCount != 2 || result.Stats.CellCount != 4 {
		t.Errorf("stats = %+v", result.Stats)
	}

	files := readArchive(t, result.Archive)
	want := []string{"gene_Gata1.json", "index.json", "metadata.json", "paga_edges.json", "paga_nodes.json", "scatter.json"}
	if got := keys(files); !slices.Equal(got, want) {
		t.Fatalf("archive entries = %v, want %v", got, want)
	}

	var nodes map[string]export.NodeRecord
	if err := json.Unmarshal(files["paga_nodes.json"], &nodes); err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 3 {
		t.Fatalf("nodes = %d, want 3", len(nodes))
	}
	if !(nodes["A"].XYZ.Z < nodes["B"].XYZ.Z && nodes["B"].XYZ.Z < nodes["C"].XYZ.Z) {
		t.Errorf("z not monotonically increasing: A=%v B=%v C=%v", nodes["A"].XYZ.Z, nodes["B"].XYZ.Z, nodes["C"].XYZ.Z)
	}

	var edges []export.EdgeRecord
	if err := json.Unmarshal(files["paga_edges.json"], &edges); err != nil {
		t.Fatal(err)
	}
	if len(edges) != 2 {
		t.Errorf("edges = %+v", edges)
	}

	var cells []export.CellRecord
	if err := json.Unmarshal(files["scatter.json"], &cells); err != nil {
		t.Fatal(err)
	}
	if len(cells) != 4 {
		t.Fatalf("cells = %d, want 4", len(cells))
	}
	wantTypes := []string{"x", "y", "x", "y"}
	for i, c := range cells {
		if c.Label != wantTypes[i] {
			t.Errorf("cell %d label = %q, want %q", i, c.Label, wantTypes[i])
		}
	}

	var meta []map[string]string
	if err := json.Unmarshal(files["metadata.json"], &meta); err != nil {
		t.Fatal(err)
	}
	if len(meta) != 4 {
		t.Fatalf("metadata rows = %d, want 4", len(meta))
	}
	for i, row := range meta {
		if row["cell_id"] != cells[i].ID || row["type"] != wantTypes[i] || row["type_color"] != cells[i].LabelColor {
			t.Errorf("metadata row %d = %v", i, row)
		}
	}

	var gene []export.GeneColorRecord
	if err := json.Unmarshal(files["gene_Gata1.json"], &gene); err != nil {
		t.Fatal(err)
	}
	if len(gene) != 4 || gene[3].ID != "c3" || gene[3].Color != cells[3].Genes["Gata1"].Color {
		t.Errorf("gene_Gata1.json = %+v", gene)
	}

	m, err := export.ReadManifest(bytes.NewReader(files["index.json"]))
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if m.ID != result.ReportID || m.Version != "0.1.0" || m.Kind != dataset.KindPAGA {
		t.Errorf("manifest = %+v", m)
	}
}

func TestExecuteSTREAM(t *testing.T) {
	h := &dataset.Handle{
		ObsNames: []string{"c0", "c1", "c2"},
		Obs: map[string][]string{
			"branch_id": {"S0_S1", "S2_S1", "S1_S3"},
		},
		Obsm: map[string][][]float64{
			"X_dr": {{0, 0, 0}, {1, 0, 1}, {0, 1, 2}},
		},
		Uns: dataset.Uns{
			FlatTree: &dataset.FlatTree{
				Nodes: []dataset.TreeNode{
					{ID: "S0", Pos: []float64{0, 0}, Pseudotime: 0},
					{ID: "S1", Pos: []float64{2, 0}, Pseudotime: 2},
					{ID: "S2", Pos: []float64{4, 2}, Pseudotime: 4},
					{ID: "S3", Pos: []float64{4, -2}, Pseudotime: 5},
				},
				Edges: []dataset.TreeEdge{
					{From: "S0", To: "S1"},
					{From: "S1", To: "S2"},
					{From: "S1", To: "S3"},
				},
			},
		},
	}
	output := filepath.Join(t.TempDir(), "stream_report")
	result, err := NewRunner(Config{Parallel: true}).Execute(context.Background(), dataset.KindSTREAM, h, export.Options{Output: output})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	files := readArchive(t, result.Archive)
	want := []string{"index.json", "metadata.json", "scatter.json", "stream.json", "stream_edges.json", "stream_nodes.json"}
	if got := keys(files); !slices.Equal(got, want) {
		t.Fatalf("archive entries = %v, want %v", got, want)
	}
	var curves []export.StreamCurve
	if err := json.Unmarshal(files["stream.json"], &curves); err != nil {
		t.Fatal(err)
	}
	if len(curves) != 3 || curves[1].BranchID != "S1_S2" {
		t.Errorf("curves = %+v", curves)
	}
	var meta []map[string]string
	if err := json.Unmarshal(files["metadata.json"], &meta); err != nil {
		t.Fatal(err)
	}
	if len(meta) != 3 || meta[1][export.GroupAnnotation] != "S1_S2" {
		t.Errorf("metadata = %v", meta)
	}
}

func TestExecuteInfiniteExpressionFails(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		h := abcHandle()
		h.Expression["Gata1"][2] = math.Inf(1)
		output := filepath.Join(t.TempDir(), "out")
		result, err := NewRunner(Config{Parallel: parallel}).Execute(context.Background(), dataset.KindPAGA, h,
			export.Options{Genes: []string{"Gata1"}, Output: output})
		if !errs.Is(err, errs.ErrCodeInvalidDataset) {
			t.Fatalf("parallel=%v: err = %v, want INVALID_DATASET", parallel, err)
		}
		if result.State != StateFailed || result.Archive != "" {
			t.Errorf("parallel=%v: result = %+v", parallel, result)
		}
	}
}

func TestExecuteUnresolvedLabel(t *testing.T) {
	output := filepath.Join(t.TempDir(), "vr_report")
	result, err := NewRunner(Config{}).Execute(context.Background(), dataset.KindPAGA, abcHandle(), export.Options{
		Label:  "celltype",
		Output: output,
	})
	if !errs.Is(err, errs.ErrCodeUnresolvedLabel) {
		t.Fatalf("err = %v, want UNRESOLVED_LABEL", err)
	}
	if result.State != StateFailed || result.Reason == "" {
		t.Errorf("result = %+v", result)
	}
	for _, p := range []string{output, output + ".zip"} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s exists after failed run", p)
		}
	}
}

func TestExecuteAbsentGeneIsWarning(t *testing.T) {
	output := filepath.Join(t.TempDir(), "vr_report")
	result, err := NewRunner(Config{}).Execute(context.Background(), dataset.KindPAGA, abcHandle(), export.Options{
		Genes:  []string{"Gata1", "Hbb-b1"},
		Output: output,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Code != errs.ErrCodeUnresolvedGene || result.Warnings[0].Subject != "Hbb-b1" {
		t.Fatalf("warnings = %v", result.Warnings)
	}

	var cells []export.CellRecord
	if err := json.Unmarshal(readArchive(t, result.Archive)["scatter.json"], &cells); err != nil {
		t.Fatal(err)
	}
	for _, c := range cells {
		if _, ok := c.Genes["Hbb-b1"]; ok {
			t.Error("absent gene has a channel")
		}
		if _, ok := c.Genes["Gata1"]; !ok {
			t.Error("present gene missing its channel")
		}
	}
}

func TestExecuteParallelMatchesSequential(t *testing.T) {
	root := t.TempDir()
	opts := export.Options{Label: "type", Genes: []string{"Gata1"}}

	run := func(name string, parallel bool) map[string][]byte {
		o := opts
		o.Output = filepath.Join(root, name)
		result, err := NewRunner(Config{Parallel: parallel, ChunkSize: 3}).
			Execute(context.Background(), dataset.KindPAGA, abcHandle(), o)
		if err != nil {
			t.Fatalf("Execute(parallel=%v): %v", parallel, err)
		}
		return readArchive(t, result.Archive)
	}

	seq := run("seq", false)
	par := run("par", true)
	again := run("again", false)

	if !slices.Equal(keys(seq), keys(par)) {
		t.Fatalf("entries differ: %v vs %v", keys(seq), keys(par))
	}
	for name, content := range seq {
		if !bytes.Equal(content, par[name]) {
			t.Errorf("%s differs between sequential and parallel runs", name)
		}
		if !bytes.Equal(content, again[name]) {
			t.Errorf("%s differs between identical runs", name)
		}
	}
	if _, ok := seq["scatter_00001.json"]; !ok {
		t.Errorf("expected two cell chunks, got %v", keys(seq))
	}
}

func TestExecuteErrors(t *testing.T) {
	tests := []struct {
		name  string
		kind  dataset.Kind
		cfg   Config
		opts  export.Options
		setup func(t *testing.T, output string)
		code  errs.Code
	}{
		{
			name: "unsupported kind",
			kind: dataset.Kind("velocyto"),
			code: errs.ErrCodeUnsupportedDatasetKind,
		},
		{
			name:  "output exists",
			kind:  dataset.KindPAGA,
			setup: func(t *testing.T, output string) { _ = os.Mkdir(output, 0o755) },
			code:  errs.ErrCodeOutputExists,
		},
		{
			name:  "archive exists",
			kind:  dataset.KindPAGA,
			setup: func(t *testing.T, output string) { _ = os.WriteFile(output+".zip", nil, 0o644) },
			code:  errs.ErrCodeOutputExists,
		},
		{
			name: "negative chunk size",
			kind: dataset.KindPAGA,
			cfg:  Config{ChunkSize: -2},
			code: errs.ErrCodeInvalidInput,
		},
		{
			name: "bad gene name",
			kind: dataset.KindPAGA,
			opts: export.Options{Genes: []string{"a/b"}},
			code: errs.ErrCodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := filepath.Join(t.TempDir(), "out")
			if tt.setup != nil {
				tt.setup(t, output)
			}
			opts := tt.opts
			opts.Output = output
			result, err := NewRunner(tt.cfg).Execute(context.Background(), tt.kind, abcHandle(), opts)
			if !errs.Is(err, tt.code) {
				t.Fatalf("err = %v, want %s", err, tt.code)
			}
			if result.State != StateFailed || result.Archive != "" {
				t.Errorf("result = %+v", result)
			}
		})
	}
}

func TestExecuteCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	output := filepath.Join(t.TempDir(), "out")
	_, err := NewRunner(Config{}).Execute(ctx, dataset.KindPAGA, abcHandle(), export.Options{Output: output})
	if err == nil || !strings.Contains(err.Error(), context.Canceled.Error()) {
		t.Fatalf("err = %v, want context canceled", err)
	}
}

func TestLayout(t *testing.T) {
	ds, points, err := NewRunner(Config{}).Layout(context.Background(), dataset.KindPAGA, abcHandle(), nil)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if len(points) != len(ds.Nodes) {
		t.Fatalf("%d points for %d nodes", len(points), len(ds.Nodes))
	}
	for i, p := range points {
		if p.ID != ds.Nodes[i].ID {
			t.Errorf("point %d is %s, node is %s", i, p.ID, ds.Nodes[i].ID)
		}
	}
}

type recordingHooks struct {
	observability.NoopPipelineHooks
	mu       sync.Mutex
	started  []string
	warnings []string
}

func (h *recordingHooks) OnStageStart(_ context.Context, stage string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.started = append(h.started, stage)
}

func (h *recordingHooks) OnWarning(_ context.Context, code, subject string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.warnings = append(h.warnings, code+":"+subject)
}

func TestExecuteFiresHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetPipelineHooks(hooks)
	defer observability.Reset()

	output := filepath.Join(t.TempDir(), "out")
	_, err := NewRunner(Config{Parallel: true}).Execute(context.Background(), dataset.KindPAGA, abcHandle(),
		export.Options{Output: output, Genes: []string{"Nope"}})
	if err != nil {
		t.Fatal(err)
	}

	started := slices.Clone(hooks.started)
	slices.Sort(started)
	want := []string{
		observability.StageAdapt,
		observability.StageExportCells,
		observability.StageExportGraph,
		observability.StageLayout,
		observability.StagePackage,
	}
	if !slices.Equal(started, want) {
		t.Errorf("stages = %v, want %v", started, want)
	}
	if !slices.Equal(hooks.warnings, []string{"UNRESOLVED_GENE:Nope"}) {
		t.Errorf("warnings = %v", hooks.warnings)
	}
}

func TestStateMachine(t *testing.T) {
	m := newMachine()
	if err := m.graphDone(); err == nil {
		t.Error("graph export accepted before layout")
	}
	if err := m.layoutDone(); err != nil {
		t.Fatal(err)
	}
	if err := m.canPackage(); err == nil {
		t.Error("packaging allowed before exports")
	}
	if err := m.cellsDone(); err != nil {
		t.Fatal(err)
	}
	if s, _ := m.current(); s != StateCellsExported {
		t.Errorf("state = %s, want cells_exported", s)
	}
	if err := m.cellsDone(); err == nil {
		t.Error("cells exported twice")
	}
	if err := m.canPackage(); err == nil {
		t.Error("packaging allowed with only cells exported")
	}
	if err := m.graphDone(); err != nil {
		t.Fatal(err)
	}
	if err := m.canPackage(); err != nil {
		t.Errorf("canPackage: %v", err)
	}
	if err := m.packaged(); err != nil {
		t.Fatal(err)
	}

	m.fail(errs.New(errs.ErrCodeIO, "late"))
	if s, _ := m.current(); s != StatePackaged {
		t.Errorf("terminal state overwritten: %s", s)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if cfg.Version != DefaultVersion || cfg.Logger == nil {
		t.Errorf("cfg = %+v", cfg)
	}

	bad := Config{EdgeThreshold: -1}
	if err := bad.ValidateAndSetDefaults(); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
}
