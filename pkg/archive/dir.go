package archive

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	errs "github.com/singlecellvr/scvrprep/pkg/errors"
)

// Dir is an output directory owned by one pipeline run.
type Dir struct {
	path     string
	archive  string
	packaged bool
}

// Claim creates path as a fresh directory. It fails with OUTPUT_EXISTS if the
// directory or its archive already exists, so two runs never share one.
func Claim(path string) (*Dir, error) {
	if err := errs.ValidateOutputPath(path); err != nil {
		return nil, err
	}
	archive := ArchivePath(path)
	for _, p := range []string{path, archive} {
		if _, err := os.Lstat(p); err == nil {
			return nil, errs.New(errs.ErrCodeOutputExists, "%s already exists", p)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, errs.Wrap(errs.ErrCodeIO, err, "stat %s", p)
		}
	}

	if parent := filepath.Dir(path); parent != "." {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return nil, errs.Wrap(errs.ErrCodeIO, err, "create %s", parent)
		}
	}
	// Mkdir, not MkdirAll: a concurrent claim must lose.
	if err := os.Mkdir(path, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, errs.New(errs.ErrCodeOutputExists, "%s already exists", path)
		}
		return nil, errs.Wrap(errs.ErrCodeIO, err, "create %s", path)
	}
	return &Dir{path: path, archive: archive}, nil
}

// Path returns the directory path.
func (d *Dir) Path() string { return d.path }

// ArchivePath returns where Pack writes the archive.
func (d *Dir) ArchivePath() string { return d.archive }

// Pack archives the directory. On success the archive is durable and the
// directory becomes eligible for removal by Release.
func (d *Dir) Pack() error {
	if d.packaged {
		return errs.New(errs.ErrCodeInternal, "%s already packaged", d.path)
	}
	if err := Pack(d.path, d.archive); err != nil {
		return err
	}
	d.packaged = true
	return nil
}

// Packaged reports whether Pack succeeded.
func (d *Dir) Packaged() bool { return d.packaged }

// Release removes the directory if it was packaged and does nothing
// otherwise. A removal failure is returned as a warning: the archive is
// already complete.
func (d *Dir) Release() *errs.Warning {
	if !d.packaged {
		return nil
	}
	if err := os.RemoveAll(d.path); err != nil {
		return &errs.Warning{
			Code:    errs.ErrCodeIO,
			Subject: d.path,
			Message: "archive written but intermediate directory not removed: " + err.Error(),
		}
	}
	return nil
}
