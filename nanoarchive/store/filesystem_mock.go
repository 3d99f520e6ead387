package store

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// MockFileSystem provides an in-memory implementation of FileSystem for testing.
// Like the OS it requires parent directories to exist before files are written.
type MockFileSystem struct {
	mu    sync.RWMutex
	files map[string]*mockFile
	dirs  map[string]bool

	// Optional errors for simulating failures
	StatError      error
	ReadFileError  error
	WriteFileError error
	RenameError    error
	RemoveError    error
	RemoveAllError error
	MkdirAllError  error
	ReadDirError   error
}

type mockFile struct {
	content []byte
	mode    fs.FileMode
	modTime time.Time
}

// NewMockFileSystem creates a new mock file system
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		files: make(map[string]*mockFile),
		dirs:  make(map[string]bool),
	}
}

func isRoot(p string) bool {
	return p == "." || p == string(filepath.Separator)
}

// dirExists must be called with mu held
func (m *MockFileSystem) dirExists(p string) bool {
	return isRoot(p) || m.dirs[p]
}

// Stat implements FileSystem.Stat
func (m *MockFileSystem) Stat(name string) (os.FileInfo, error) {
	if m.StatError != nil {
		return nil, m.StatError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	p := filepath.Clean(name)
	if m.dirExists(p) {
		return dirInfo(filepath.Base(p)), nil
	}
	file, exists := m.files[p]
	if !exists {
		return nil, pathError("stat", name, os.ErrNotExist)
	}
	return entryInfo{
		name:    filepath.Base(p),
		size:    int64(len(file.content)),
		mode:    file.mode,
		modTime: file.modTime,
	}, nil
}

// ReadFile implements FileSystem.ReadFile
func (m *MockFileSystem) ReadFile(name string) ([]byte, error) {
	if m.ReadFileError != nil {
		return nil, m.ReadFileError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	file, exists := m.files[filepath.Clean(name)]
	if !exists {
		return nil, pathError("open", name, os.ErrNotExist)
	}

	// Return a copy to prevent external modifications
	content := make([]byte, len(file.content))
	copy(content, file.content)
	return content, nil
}

// WriteFile implements FileSystem.WriteFile
func (m *MockFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	if m.WriteFileError != nil {
		return m.WriteFileError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p := filepath.Clean(name)
	if !m.dirExists(filepath.Dir(p)) {
		return pathError("open", name, os.ErrNotExist)
	}
	if m.dirExists(p) {
		return pathError("open", name, errors.New("is a directory"))
	}

	// Make a copy of the data to prevent external modifications
	content := make([]byte, len(data))
	copy(content, data)

	m.files[p] = &mockFile{
		content: content,
		mode:    perm,
		modTime: time.Now(),
	}
	return nil
}

// Rename implements FileSystem.Rename
func (m *MockFileSystem) Rename(oldpath, newpath string) error {
	if m.RenameError != nil {
		return m.RenameError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	from, to := filepath.Clean(oldpath), filepath.Clean(newpath)
	file, exists := m.files[from]
	if !exists {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: os.ErrNotExist}
	}
	if !m.dirExists(filepath.Dir(to)) {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: os.ErrNotExist}
	}

	// Move file to new location (overwrites if exists, like os.Rename)
	m.files[to] = file
	delete(m.files, from)
	return nil
}

// Remove implements FileSystem.Remove
func (m *MockFileSystem) Remove(name string) error {
	if m.RemoveError != nil {
		return m.RemoveError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p := filepath.Clean(name)
	if m.dirs[p] {
		if m.hasChildren(p) {
			return pathError("remove", name, errors.New("directory not empty"))
		}
		delete(m.dirs, p)
		return nil
	}
	if _, exists := m.files[p]; !exists {
		return pathError("remove", name, os.ErrNotExist)
	}
	delete(m.files, p)
	return nil
}

// RemoveAll implements FileSystem.RemoveAll
func (m *MockFileSystem) RemoveAll(path string) error {
	if m.RemoveAllError != nil {
		return m.RemoveAllError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p := filepath.Clean(path)
	prefix := p + string(filepath.Separator)
	if isRoot(p) {
		prefix = ""
	}
	for f := range m.files {
		if f == p || strings.HasPrefix(f, prefix) {
			delete(m.files, f)
		}
	}
	for d := range m.dirs {
		if d == p || strings.HasPrefix(d, prefix) {
			delete(m.dirs, d)
		}
	}
	return nil
}

// MkdirAll implements FileSystem.MkdirAll
func (m *MockFileSystem) MkdirAll(path string, perm fs.FileMode) error {
	if m.MkdirAllError != nil {
		return m.MkdirAllError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for p := filepath.Clean(path); !isRoot(p); p = filepath.Dir(p) {
		if _, isFile := m.files[p]; isFile {
			return pathError("mkdir", p, errors.New("not a directory"))
		}
		m.dirs[p] = true
	}
	return nil
}

// ReadDir implements FileSystem.ReadDir
func (m *MockFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	if m.ReadDirError != nil {
		return nil, m.ReadDirError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	dir := filepath.Clean(name)
	if !m.dirExists(dir) {
		return nil, pathError("open", name, os.ErrNotExist)
	}

	var entries []fs.DirEntry
	for f, file := range m.files {
		if filepath.Dir(f) == dir {
			entries = append(entries, fs.FileInfoToDirEntry(entryInfo{
				name:    filepath.Base(f),
				size:    int64(len(file.content)),
				mode:    file.mode,
				modTime: file.modTime,
			}))
		}
	}
	for d := range m.dirs {
		if filepath.Dir(d) == dir && d != dir {
			entries = append(entries, fs.FileInfoToDirEntry(dirInfo(filepath.Base(d))))
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

// hasChildren must be called with mu held
func (m *MockFileSystem) hasChildren(dir string) bool {
	for f := range m.files {
		if filepath.Dir(f) == dir {
			return true
		}
	}
	for d := range m.dirs {
		if filepath.Dir(d) == dir && d != dir {
			return true
		}
	}
	return false
}

// FileExists is a helper method for testing
func (m *MockFileSystem) FileExists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.files[filepath.Clean(name)]
	return exists
}

// DirExists is a helper method for testing
func (m *MockFileSystem) DirExists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dirExists(filepath.Clean(name))
}

// GetFileContent is a helper method for testing
func (m *MockFileSystem) GetFileContent(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, exists := m.files[filepath.Clean(name)]
	if !exists {
		return nil, false
	}

	// Return a copy
	content := make([]byte, len(file.content))
	copy(content, file.content)
	return content, true
}

// Paths returns every file path currently stored, sorted (for testing)
func (m *MockFileSystem) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
