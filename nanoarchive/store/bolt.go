package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/boltdb/bolt"
)

// BoltFileSystem keeps the archive layout inside a single bolt database:
// every directory is a (nested) bucket and every file is a key in the bucket
// of its parent directory. Files cannot live at the root because bolt only
// allows buckets there.
type BoltFileSystem struct {
	db *bolt.DB
}

var errBoltRootFile = errors.New("bolt: files require a parent directory")

// OpenBoltFileSystem opens (or creates) the bolt database at dbPath
func OpenBoltFileSystem(dbPath string) (*BoltFileSystem, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}
	return &BoltFileSystem{db: db}, nil
}

// Close releases the database
func (b *BoltFileSystem) Close() error {
	return b.db.Close()
}

// splitPath turns a path into bucket components
func splitPath(name string) []string {
	p := path.Clean("/" + filepath.ToSlash(name))
	if p == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(p, "/"), "/")
}

// bucketAt walks to the bucket for comps; nil when any component is missing
func bucketAt(tx *bolt.Tx, comps []string) *bolt.Bucket {
	if len(comps) == 0 {
		return nil
	}
	b := tx.Bucket([]byte(comps[0]))
	for _, c := range comps[1:] {
		if b == nil {
			return nil
		}
		b = b.Bucket([]byte(c))
	}
	return b
}

// Stat implements FileSystem.Stat
func (b *BoltFileSystem) Stat(name string) (fs.FileInfo, error) {
	comps := splitPath(name)
	if len(comps) == 0 {
		return dirInfo("/"), nil
	}

	var info fs.FileInfo
	err := b.db.View(func(tx *bolt.Tx) error {
		last := []byte(comps[len(comps)-1])
		if len(comps) == 1 {
			if tx.Bucket(last) != nil {
				info = dirInfo(string(last))
				return nil
			}
			return pathError("stat", name, fs.ErrNotExist)
		}

		parent := bucketAt(tx, comps[:len(comps)-1])
		if parent == nil {
			return pathError("stat", name, fs.ErrNotExist)
		}
		if parent.Bucket(last) != nil {
			info = dirInfo(string(last))
			return nil
		}
		v := parent.Get(last)
		if v == nil {
			return pathError("stat", name, fs.ErrNotExist)
		}
		info = fileInfo(string(last), int64(len(v)), time.Time{})
		return nil
	})
	return info, err
}

// ReadFile implements FileSystem.ReadFile
func (b *BoltFileSystem) ReadFile(name string) ([]byte, error) {
	comps := splitPath(name)
	if len(comps) < 2 {
		return nil, pathError("open", name, fs.ErrNotExist)
	}

	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		parent := bucketAt(tx, comps[:len(comps)-1])
		if parent == nil {
			return pathError("open", name, fs.ErrNotExist)
		}
		v := parent.Get([]byte(comps[len(comps)-1]))
		if v == nil {
			return pathError("open", name, fs.ErrNotExist)
		}
		// Values are only valid for the life of the transaction
		data = make([]byte, len(v))
		copy(data, v)
		return nil
	})
	return data, err
}

// WriteFile implements FileSystem.WriteFile
func (b *BoltFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	comps := splitPath(name)
	if len(comps) < 2 {
		return pathError("open", name, errBoltRootFile)
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		parent := bucketAt(tx, comps[:len(comps)-1])
		if parent == nil {
			return pathError("open", name, fs.ErrNotExist)
		}
		key := []byte(comps[len(comps)-1])
		if parent.Bucket(key) != nil {
			return pathError("open", name, errors.New("is a directory"))
		}
		return parent.Put(key, data)
	})
}

// Rename implements FileSystem.Rename. Only files can be renamed.
func (b *BoltFileSystem) Rename(oldpath, newpath string) error {
	from, to := splitPath(oldpath), splitPath(newpath)
	if len(from) < 2 || len(to) < 2 {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: errBoltRootFile}
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		src := bucketAt(tx, from[:len(from)-1])
		dst := bucketAt(tx, to[:len(to)-1])
		if src == nil || dst == nil {
			return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: fs.ErrNotExist}
		}
		srcKey, dstKey := []byte(from[len(from)-1]), []byte(to[len(to)-1])
		v := src.Get(srcKey)
		if v == nil {
			return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: fs.ErrNotExist}
		}
		if dst.Bucket(dstKey) != nil {
			return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: errors.New("is a directory")}
		}
		data := make([]byte, len(v))
		copy(data, v)
		if err := dst.Put(dstKey, data); err != nil {
			return err
		}
		return src.Delete(srcKey)
	})
}

// Remove implements FileSystem.Remove
func (b *BoltFileSystem) Remove(name string) error {
	comps := splitPath(name)
	if len(comps) == 0 {
		return pathError("remove", name, errors.New("cannot remove root"))
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		key := []byte(comps[len(comps)-1])
		if len(comps) == 1 {
			bucket := tx.Bucket(key)
			if bucket == nil {
				return pathError("remove", name, fs.ErrNotExist)
			}
			if k, _ := bucket.Cursor().First(); k != nil {
				return pathError("remove", name, errors.New("directory not empty"))
			}
			return tx.DeleteBucket(key)
		}

		parent := bucketAt(tx, comps[:len(comps)-1])
		if parent == nil {
			return pathError("remove", name, fs.ErrNotExist)
		}
		if bucket := parent.Bucket(key); bucket != nil {
			if k, _ := bucket.Cursor().First(); k != nil {
				return pathError("remove", name, errors.New("directory not empty"))
			}
			return parent.DeleteBucket(key)
		}
		if parent.Get(key) == nil {
			return pathError("remove", name, fs.ErrNotExist)
		}
		return parent.Delete(key)
	})
}

// RemoveAll implements FileSystem.RemoveAll
func (b *BoltFileSystem) RemoveAll(name string) error {
	comps := splitPath(name)

	return b.db.Update(func(tx *bolt.Tx) error {
		if len(comps) == 0 {
			var names [][]byte
			if err := tx.ForEach(func(n []byte, _ *bolt.Bucket) error {
				names = append(names, append([]byte(nil), n...))
				return nil
			}); err != nil {
				return err
			}
			for _, n := range names {
				if err := tx.DeleteBucket(n); err != nil {
					return err
				}
			}
			return nil
		}

		key := []byte(comps[len(comps)-1])
		if len(comps) == 1 {
			if tx.Bucket(key) == nil {
				return nil
			}
			return tx.DeleteBucket(key)
		}

		parent := bucketAt(tx, comps[:len(comps)-1])
		if parent == nil {
			return nil
		}
		if parent.Bucket(key) != nil {
			return parent.DeleteBucket(key)
		}
		return parent.Delete(key)
	})
}

// MkdirAll implements FileSystem.MkdirAll
func (b *BoltFileSystem) MkdirAll(name string, perm fs.FileMode) error {
	comps := splitPath(name)
	if len(comps) == 0 {
		return nil
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(comps[0]))
		if err != nil {
			return pathError("mkdir", name, err)
		}
		for _, c := range comps[1:] {
			bucket, err = bucket.CreateBucketIfNotExists([]byte(c))
			if err != nil {
				// bolt.ErrIncompatibleValue: a file already uses this name
				return pathError("mkdir", name, err)
			}
		}
		return nil
	})
}

// ReadDir implements FileSystem.ReadDir
func (b *BoltFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	comps := splitPath(name)

	var entries []fs.DirEntry
	err := b.db.View(func(tx *bolt.Tx) error {
		if len(comps) == 0 {
			return tx.ForEach(func(n []byte, _ *bolt.Bucket) error {
				entries = append(entries, fs.FileInfoToDirEntry(dirInfo(string(n))))
				return nil
			})
		}

		bucket := bucketAt(tx, comps)
		if bucket == nil {
			return pathError("open", name, fs.ErrNotExist)
		}
		// Keys are visited in byte order; nested buckets have nil values
		return bucket.ForEach(func(k, v []byte) error {
			if v == nil {
				entries = append(entries, fs.FileInfoToDirEntry(dirInfo(string(k))))
			} else {
				entries = append(entries, fs.FileInfoToDirEntry(fileInfo(string(k), int64(len(v)), time.Time{})))
			}
			return nil
		})
	})
	return entries, err
}
