package store

import (
	"io/fs"
	"os"
)

// FileSystem defines the durable blob storage the archive is written to.
// Paths are hierarchical: directories hold files and other directories.
// This abstraction allows for easy mocking in tests and for alternative
// backends (bolt, sqlite) that keep the same layout inside a single file.
//
// Implementations must report missing paths with errors matching
// fs.ErrNotExist.
type FileSystem interface {
	// Stat returns file info for the given path
	Stat(name string) (fs.FileInfo, error)

	// ReadFile reads the entire file and returns its contents
	ReadFile(name string) ([]byte, error)

	// WriteFile writes data to a file with the specified permissions.
	// The parent directory must exist.
	WriteFile(name string, data []byte, perm fs.FileMode) error

	// Rename renames (moves) a file from oldpath to newpath, replacing
	// newpath if it exists
	Rename(oldpath, newpath string) error

	// Remove removes the named file or empty directory
	Remove(name string) error

	// RemoveAll removes path and any children it contains. A missing path
	// is not an error.
	RemoveAll(path string) error

	// MkdirAll creates a directory and all necessary parents
	MkdirAll(path string, perm fs.FileMode) error

	// ReadDir reads the directory and returns entries sorted by name
	ReadDir(name string) ([]fs.DirEntry, error)
}

// OSFileSystem is the default implementation using the os package
type OSFileSystem struct{}

// Stat implements FileSystem.Stat
func (fs *OSFileSystem) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

// ReadFile implements FileSystem.ReadFile
func (fs *OSFileSystem) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// WriteFile implements FileSystem.WriteFile
func (fs *OSFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

// Rename implements FileSystem.Rename
func (fs *OSFileSystem) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

// Remove implements FileSystem.Remove
func (fs *OSFileSystem) Remove(name string) error {
	return os.Remove(name)
}

// RemoveAll implements FileSystem.RemoveAll
func (fs *OSFileSystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// MkdirAll implements FileSystem.MkdirAll
func (fs *OSFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// ReadDir implements FileSystem.ReadDir
func (fs *OSFileSystem) ReadDir(name string) ([]os.DirEntry, error) {
	return os.ReadDir(name)
}
