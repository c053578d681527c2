// Package zip bundles saved files into a compressed archive written straight
// to an output stream, so an HTTP response never buffers the whole archive.
package zip

import (
	"archive/zip"
	"errors"
	"io"
	"os"
)

// ErrNoFiles indicates there was nothing to archive.
var ErrNoFiles = errors.New("zip: no files to archive")

// File pairs an archive entry name with its source path on disk.
type File struct {
	Name string
	Path string
}

// Stream writes a compressed archive of the given files to w, copying one
// file at a time. A source file that cannot be opened is skipped; a write
// failure on w aborts the archive.
func Stream(w io.Writer, files []File) error {
	if len(files) == 0 {
		return ErrNoFiles
	}
	zw := zip.NewWriter(w)
	for _, f := range files {
		src, err := os.Open(f.Path)
		if err != nil {
			continue
		}
		entry, err := zw.Create(f.Name)
		if err != nil {
			_ = src.Close()
			_ = zw.Close()
			return err
		}
		_, copyErr := io.Copy(entry, src)
		_ = src.Close()
		if copyErr != nil {
			_ = zw.Close()
			return copyErr
		}
	}
	return zw.Close()
}
