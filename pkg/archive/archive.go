// Package archive packages a report directory into a zip and owns the
// directory's lifetime.
//
// [Claim] reserves a fresh output directory. After the exporters have filled
// it, [Dir.Pack] writes <dir>.zip atomically and [Dir.Release] removes the
// directory, but only once the archive is confirmed on disk. A run that
// fails before packaging leaves the directory in place for inspection.
package archive

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"

	errs "github.com/singlecellvr/scvrprep/pkg/errors"
)

// Ext is appended to the directory path to name its archive.
const Ext = ".zip"

// Pack zips the regular files below dir into dest. Entries are stored with
// slash-separated paths relative to dir, in lexical order. The archive is
// written to dest+".tmp", synced, and renamed, so dest is either absent or
// complete.
func Pack(dir, dest string) (err error) {
	files, err := listFiles(dir)
	if err != nil {
		return err
	}

	tmp := dest + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return errs.Wrap(errs.ErrCodeIO, err, "create %s", tmp)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	zw := zip.NewWriter(f)
	for _, rel := range files {
		if err := addFile(zw, dir, rel); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return errs.Wrap(errs.ErrCodeIO, err, "finish %s", tmp)
	}
	if err := f.Sync(); err != nil {
		return errs.Wrap(errs.ErrCodeIO, err, "sync %s", tmp)
	}
	if err := f.Close(); err != nil {
		return errs.Wrap(errs.ErrCodeIO, err, "close %s", tmp)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return errs.Wrap(errs.ErrCodeIO, err, "rename %s", tmp)
	}
	return nil
}

// listFiles returns the regular files below dir, relative and sorted.
func listFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeIO, err, "list %s", dir)
	}
	return files, nil
}

func addFile(zw *zip.Writer, dir, rel string) error {
	path := filepath.Join(dir, rel)
	src, err := os.Open(path)
	if err != nil {
		return errs.Wrap(errs.ErrCodeIO, err, "open %s", path)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return errs.Wrap(errs.ErrCodeIO, err, "stat %s", path)
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return errs.Wrap(errs.ErrCodeIO, err, "header %s", path)
	}
	hdr.Name = filepath.ToSlash(rel)
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return errs.Wrap(errs.ErrCodeIO, err, "add %s", hdr.Name)
	}
	if _, err := io.Copy(w, src); err != nil {
		return errs.Wrap(errs.ErrCodeIO, err, "compress %s", hdr.Name)
	}
	return nil
}

// Entries lists the file names in a zip archive, in archive order.
func Entries(r io.ReaderAt, size int64) ([]string, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "read zip")
	}
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names, nil
}

// ReadEntry returns the contents of one archive entry.
// A missing entry fails with NOT_FOUND.
func ReadEntry(r io.ReaderAt, size int64, name string) ([]byte, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "read zip")
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "open %s", name)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "inflate %s", name)
		}
		return data, nil
	}
	return nil, errs.New(errs.ErrCodeNotFound, "%s not in archive", name)
}

// ArchivePath returns the archive path for a report directory.
func ArchivePath(dir string) string {
	return filepath.Clean(dir) + Ext
}
