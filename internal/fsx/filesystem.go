// Package fsx abstracts byte-addressable file I/O behind an interface so
// the Disk Manager (internal/disk) never touches the os package directly.
// This is spec.md §2 item 1: "abstract byte-addressable file I/O
// (directory existence, file existence, length query, length set,
// positional read, positional write, delete, path join)".
package fsx

import (
	"os"
	"path/filepath"

	"github.com/lawnboyy/armdb/internal/dberr"
)

// FileSystem is the Disk Manager's only collaborator for durable storage.
type FileSystem interface {
	// DirExists reports whether dir exists and is a directory.
	DirExists(dir string) bool
	// MkdirAll ensures dir (and any parents) exist.
	MkdirAll(dir string) error
	// FileExists reports whether path exists and is a regular file.
	FileExists(path string) bool
	// Create ensures path exists, creating an empty file if necessary.
	// It is idempotent: calling it on an existing file is a no-op.
	Create(path string) error
	// Length returns the current length of path in bytes.
	Length(path string) (int64, error)
	// SetLength truncates or extends path to exactly n bytes.
	SetLength(path string, n int64) error
	// ReadAt reads len(buf) bytes from path starting at offset off. It
	// returns a dberr.ErrDataIntegrity-wrapped error on a short read.
	ReadAt(path string, off int64, buf []byte) error
	// WriteAt writes buf to path at offset off, creating or extending
	// the file as needed.
	WriteAt(path string, off int64, buf []byte) error
	// Delete removes path. Deleting a non-existent path is not an error.
	Delete(path string) error
	// Join joins path elements using the host's path separator.
	Join(elem ...string) string
}

// OSFileSystem is the concrete, os-backed FileSystem implementation.
// Grounded on the teacher's commented-out os.OpenFile/f.Sync() sketch in
// io/diskmanager.go, which this supersedes with a real implementation.
type OSFileSystem struct{}

var _ FileSystem = OSFileSystem{}

func (OSFileSystem) DirExists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

func (OSFileSystem) MkdirAll(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return dberr.IO("mkdir "+dir, err)
	}
	return nil
}

func (OSFileSystem) FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (OSFileSystem) Create(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return dberr.IO("create "+path, err)
	}
	return f.Close()
}

func (OSFileSystem) Length(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, dberr.IO("stat "+path, err)
	}
	return info.Size(), nil
}

func (OSFileSystem) SetLength(path string, n int64) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return dberr.IO("open "+path, err)
	}
	defer f.Close()
	if err := f.Truncate(n); err != nil {
		return dberr.IO("truncate "+path, err)
	}
	return nil
}

func (OSFileSystem) ReadAt(path string, off int64, buf []byte) error {
	f, err := os.Open(path)
	if err != nil {
		return dberr.IO("open "+path, err)
	}
	defer f.Close()
	n, err := f.ReadAt(buf, off)
	if n < len(buf) {
		return dberr.DataIntegrity("short read at offset %d in %s: got %d of %d bytes", off, path, n, len(buf))
	}
	if err != nil {
		return dberr.IO("read "+path, err)
	}
	return nil
}

func (OSFileSystem) WriteAt(path string, off int64, buf []byte) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return dberr.IO("open "+path, err)
	}
	defer f.Close()
	if _, err := f.WriteAt(buf, off); err != nil {
		return dberr.IO("write "+path, err)
	}
	// Explicitly flush file buffer content to disk, matching the
	// teacher's commented-out toFile sketch.
	return f.Sync()
}

func (OSFileSystem) Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return dberr.IO("delete "+path, err)
	}
	return nil
}

func (OSFileSystem) Join(elem ...string) string {
	return filepath.Join(elem...)
}
