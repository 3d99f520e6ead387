package store

import (
	"io/fs"
	"time"
)

// entryInfo implements fs.FileInfo for the non-OS backends
type entryInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
}

func (fi entryInfo) Name() string       { return fi.name }
func (fi entryInfo) Size() int64        { return fi.size }
func (fi entryInfo) Mode() fs.FileMode  { return fi.mode }
func (fi entryInfo) ModTime() time.Time { return fi.modTime }
func (fi entryInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi entryInfo) Sys() interface{}   { return nil }

func dirInfo(name string) entryInfo {
	return entryInfo{name: name, mode: fs.ModeDir | 0755}
}

func fileInfo(name string, size int64, modTime time.Time) entryInfo {
	return entryInfo{name: name, size: size, mode: 0644, modTime: modTime}
}

func pathError(op, path string, err error) error {
	return &fs.PathError{Op: op, Path: path, Err: err}
}
