package export

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	errs "github.com/singlecellvr/scvrprep/pkg/errors"
)

// File describes one written file.
type File struct {
	Name   string `json:"name"`
	Bytes  int64  `json:"bytes"`
	SHA256 string `json:"sha256"`
}

// countingWriter counts bytes passing through.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// writeJSON encodes v into dir/name through a temporary file and a rename.
// The temporary file is removed on every failure path.
func writeJSON(dir, name string, v any, indent bool) (_ File, err error) {
	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return File{}, errs.Wrap(errs.ErrCodeIO, err, "create %s", name)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	h := sha256.New()
	bw := bufio.NewWriter(tmp)
	cw := &countingWriter{w: io.MultiWriter(bw, h)}
	enc := json.NewEncoder(cw)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return File{}, errs.Wrap(errs.ErrCodeIO, err, "encode %s", name)
	}
	if err := bw.Flush(); err != nil {
		return File{}, errs.Wrap(errs.ErrCodeIO, err, "write %s", name)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return File{}, errs.Wrap(errs.ErrCodeIO, err, "chmod %s", name)
	}
	if err := tmp.Close(); err != nil {
		return File{}, errs.Wrap(errs.ErrCodeIO, err, "close %s", name)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return File{}, errs.Wrap(errs.ErrCodeIO, err, "rename %s", name)
	}

	return File{Name: name, Bytes: cw.n, SHA256: hex.EncodeToString(h.Sum(nil))}, nil
}
