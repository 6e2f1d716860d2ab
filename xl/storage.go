package xl

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Storage is the output sink for package parts. Implementations write to a
// zip container or to a directory tree.
type Storage interface {
	WriteBlob(path string, blob []byte) error
}

// DirStorage writes package parts to a directory structure on disk. Useful
// for debugging since the generated XML can be inspected directly.
type DirStorage struct {
	Dir string
}

// NewDirStorage creates a directory-based storage rooted at dir. Parent
// directories are created as needed.
func NewDirStorage(dir string) *DirStorage {
	return &DirStorage{Dir: dir}
}

func (ds *DirStorage) WriteBlob(path string, blob []byte) error {
	path = strings.TrimPrefix(path, "/")
	fn := filepath.Join(ds.Dir, path)
	err := os.MkdirAll(filepath.Dir(fn), 0777)
	if err != nil {
		return err
	}
	return os.WriteFile(fn, blob, 0666)
}

// ZipStorage writes package parts to a zip archive, producing a standard
// .xlsx container.
type ZipStorage struct {
	z *zip.Writer
}

// NewZipStorage creates a zip-based storage writing to out, typically a file
// or an in-memory buffer.
func NewZipStorage(out io.Writer) *ZipStorage {
	return &ZipStorage{z: zip.NewWriter(out)}
}

func (zs *ZipStorage) WriteBlob(path string, blob []byte) error {
	path = strings.TrimPrefix(path, "/")
	f, err := zs.z.Create(path)
	if err != nil {
		return err
	}
	_, err = f.Write(blob)
	return err
}

// Close finalizes the zip central directory. The archive is invalid until
// Close returns, so it runs on every save exit path, error or not.
func (zs *ZipStorage) Close() error {
	return zs.z.Close()
}
