package export

import (
	"encoding/json"
	"io"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/singlecellvr/scvrprep/pkg/dataset"
	errs "github.com/singlecellvr/scvrprep/pkg/errors"
	"github.com/singlecellvr/scvrprep/pkg/layout3d"
)

// ManifestFile is the manifest's name inside a report.
const ManifestFile = "index.json"

// ToolName identifies the producer in every manifest.
const ToolName = "scvrprep"

// reportNamespace scopes report IDs (UUIDv5) to this tool.
var reportNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/singlecellvr/scvrprep/report"))

// Manifest is the content of index.json. It carries no timestamps, so equal
// exports produce equal manifests.
type Manifest struct {
	ID       string          `json:"id"`
	Tool     string          `json:"tool"`
	Version  string          `json:"version"`
	Kind     dataset.Kind    `json:"kind"`
	Dim      int             `json:"dim"`
	Graph    GraphSummary    `json:"graph"`
	Cells    CellSummary     `json:"cells"`
	Bounds   layout3d.Bounds `json:"bounds"`
	Warnings []string        `json:"warnings,omitempty"`
}

// NewManifest assembles the manifest for a finished export. The ID is derived
// from the digests of the graph, cell, metadata and gene files.
func NewManifest(version string, kind dataset.Kind, dim int, graph GraphSummary, cells CellSummary, bounds layout3d.Bounds) Manifest {
	files := append(slices.Clone(graph.Files), cells.Files...)
	if cells.Metadata.Name != "" {
		files = append(files, cells.Metadata)
	}
	files = append(files, cells.GeneFiles...)
	m := Manifest{
		ID:      ReportID(files).String(),
		Tool:    ToolName,
		Version: version,
		Kind:    kind,
		Dim:     dim,
		Graph:   graph,
		Cells:   cells,
		Bounds:  bounds,
	}
	for _, w := range cells.Warnings {
		m.Warnings = append(m.Warnings, w.String())
	}
	return m
}

// ReportID returns a UUIDv5 over the names and SHA-256 digests of files.
// The order of files does not matter.
func ReportID(files []File) uuid.UUID {
	lines := make([]string, len(files))
	for i, f := range files {
		lines[i] = f.Name + " " + f.SHA256 + "\n"
	}
	slices.Sort(lines)
	return uuid.NewSHA1(reportNamespace, []byte(strings.Join(lines, "")))
}

// WriteManifest writes m to dir/index.json.
func WriteManifest(dir string, m Manifest) (File, error) {
	return writeJSON(dir, ManifestFile, m, true)
}

// ReadManifest decodes a manifest.
func ReadManifest(r io.Reader) (Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return Manifest{}, errs.Wrap(errs.ErrCodeInvalidInput, err, "decode %s", ManifestFile)
	}
	if m.Tool != ToolName {
		return Manifest{}, errs.New(errs.ErrCodeInvalidInput, "%s was not written by %s (tool %q)", ManifestFile, ToolName, m.Tool)
	}
	return m, nil
}
