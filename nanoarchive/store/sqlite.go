package store

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entries (
	path     TEXT PRIMARY KEY,
	parent   TEXT NOT NULL,
	is_dir   INTEGER NOT NULL,
	data     BLOB,
	mod_time INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS entries_parent ON entries(parent);
`

// sqlBuilder generates the statements run against the entries table
var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

// SQLiteFileSystem keeps the archive layout in one SQLite table. Each row
// is a file or a directory keyed by its slash-separated absolute path.
type SQLiteFileSystem struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLiteFileSystem opens (or creates) the SQLite database at dbPath
func OpenSQLiteFileSystem(dbPath string) (*SQLiteFileSystem, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteFileSystem{db: db, now: time.Now}, nil
}

// Close closes the database connection
func (s *SQLiteFileSystem) Close() error {
	return s.db.Close()
}

// cleanPath normalizes name to a slash-separated absolute path
func cleanPath(name string) string {
	return path.Clean("/" + filepath.ToSlash(name))
}

type sqliteRow struct {
	isDir   bool
	size    int64
	modTime int64
}

// sqlRunner is satisfied by both *sql.DB and *sql.Tx
type sqlRunner interface {
	QueryRow(query string, args ...any) *sql.Row
	Exec(query string, args ...any) (sql.Result, error)
}

func queryRow(q sqlRunner, b squirrel.Sqlizer, dest ...any) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	return q.QueryRow(query, args...).Scan(dest...)
}

func execSQL(q sqlRunner, b squirrel.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build statement: %w", err)
	}
	_, err = q.Exec(query, args...)
	return err
}

func selectEntry(columns ...string) squirrel.SelectBuilder {
	return sqlBuilder.Select(columns...).From("entries")
}

// lookup returns the row for p, or fs.ErrNotExist
func lookup(q sqlRunner, p string) (sqliteRow, error) {
	if p == "/" {
		return sqliteRow{isDir: true}, nil
	}
	var r sqliteRow
	err := queryRow(q,
		selectEntry("is_dir", "COALESCE(length(data), 0)", "mod_time").Where(squirrel.Eq{"path": p}),
		&r.isDir, &r.size, &r.modTime)
	if errors.Is(err, sql.ErrNoRows) {
		return r, fs.ErrNotExist
	}
	return r, err
}

func (r sqliteRow) info(name string) fs.FileInfo {
	if r.isDir {
		return dirInfo(name)
	}
	return fileInfo(name, r.size, time.Unix(0, r.modTime))
}

// Stat implements FileSystem.Stat
func (s *SQLiteFileSystem) Stat(name string) (fs.FileInfo, error) {
	p := cleanPath(name)
	r, err := lookup(s.db, p)
	if err != nil {
		return nil, pathError("stat", name, err)
	}
	return r.info(path.Base(p)), nil
}

// ReadFile implements FileSystem.ReadFile
func (s *SQLiteFileSystem) ReadFile(name string) ([]byte, error) {
	var isDir bool
	var data []byte
	err := queryRow(s.db, selectEntry("is_dir", "data").Where(squirrel.Eq{"path": cleanPath(name)}), &isDir, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pathError("open", name, fs.ErrNotExist)
	}
	if err != nil {
		return nil, pathError("open", name, err)
	}
	if isDir {
		return nil, pathError("read", name, errors.New("is a directory"))
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// WriteFile implements FileSystem.WriteFile
func (s *SQLiteFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	p := cleanPath(name)
	if p == "/" {
		return pathError("open", name, errors.New("is a directory"))
	}

	return s.inTx(func(tx *sql.Tx) error {
		parent, err := lookup(tx, path.Dir(p))
		if err != nil || !parent.isDir {
			return pathError("open", name, fs.ErrNotExist)
		}
		if r, err := lookup(tx, p); err == nil && r.isDir {
			return pathError("open", name, errors.New("is a directory"))
		}
		return execSQL(tx, sqlBuilder.Insert("entries").
			Columns("path", "parent", "is_dir", "data", "mod_time").
			Values(p, path.Dir(p), false, data, s.now().UnixNano()).
			Suffix("ON CONFLICT(path) DO UPDATE SET data = excluded.data, mod_time = excluded.mod_time"))
	})
}

// Rename implements FileSystem.Rename. Only files can be renamed.
func (s *SQLiteFileSystem) Rename(oldpath, newpath string) error {
	from, to := cleanPath(oldpath), cleanPath(newpath)
	linkErr := func(err error) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: err}
	}

	return s.inTx(func(tx *sql.Tx) error {
		src, err := lookup(tx, from)
		if err != nil {
			return linkErr(err)
		}
		if src.isDir {
			return linkErr(errors.New("renaming directories is not supported"))
		}
		parent, err := lookup(tx, path.Dir(to))
		if err != nil || !parent.isDir {
			return linkErr(fs.ErrNotExist)
		}
		if dst, err := lookup(tx, to); err == nil && dst.isDir {
			return linkErr(errors.New("is a directory"))
		}

		if err := execSQL(tx, sqlBuilder.Delete("entries").Where(squirrel.Eq{"path": to})); err != nil {
			return err
		}
		return execSQL(tx, sqlBuilder.Update("entries").
			Set("path", to).
			Set("parent", path.Dir(to)).
			Set("mod_time", s.now().UnixNano()).
			Where(squirrel.Eq{"path": from}))
	})
}

// Remove implements FileSystem.Remove
func (s *SQLiteFileSystem) Remove(name string) error {
	p := cleanPath(name)
	if p == "/" {
		return pathError("remove", name, errors.New("cannot remove root"))
	}

	return s.inTx(func(tx *sql.Tx) error {
		r, err := lookup(tx, p)
		if err != nil {
			return pathError("remove", name, err)
		}
		if r.isDir {
			var children int
			if err := queryRow(tx, selectEntry("COUNT(*)").Where(squirrel.Eq{"parent": p}), &children); err != nil {
				return err
			}
			if children > 0 {
				return pathError("remove", name, errors.New("directory not empty"))
			}
		}
		return execSQL(tx, sqlBuilder.Delete("entries").Where(squirrel.Eq{"path": p}))
	})
}

// RemoveAll implements FileSystem.RemoveAll
func (s *SQLiteFileSystem) RemoveAll(name string) error {
	p := cleanPath(name)
	if p == "/" {
		return execSQL(s.db, sqlBuilder.Delete("entries"))
	}

	// substr avoids LIKE, whose wildcards may appear in identifiers
	prefix := p + "/"
	return execSQL(s.db, sqlBuilder.Delete("entries").Where(squirrel.Or{
		squirrel.Eq{"path": p},
		squirrel.Expr("substr(path, 1, ?) = ?", utf8.RuneCountInString(prefix), prefix),
	}))
}

// MkdirAll implements FileSystem.MkdirAll
func (s *SQLiteFileSystem) MkdirAll(name string, perm fs.FileMode) error {
	p := cleanPath(name)
	if p == "/" {
		return nil
	}

	// Collect ancestors from the top down
	var chain []string
	for d := p; d != "/"; d = path.Dir(d) {
		chain = append([]string{d}, chain...)
	}

	return s.inTx(func(tx *sql.Tx) error {
		for _, d := range chain {
			r, err := lookup(tx, d)
			if err == nil {
				if !r.isDir {
					return pathError("mkdir", d, errors.New("not a directory"))
				}
				continue
			}
			if !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			if err := execSQL(tx, sqlBuilder.Insert("entries").
				Columns("path", "parent", "is_dir", "data", "mod_time").
				Values(d, path.Dir(d), true, nil, s.now().UnixNano())); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadDir implements FileSystem.ReadDir
func (s *SQLiteFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	p := cleanPath(name)
	r, err := lookup(s.db, p)
	if err != nil {
		return nil, pathError("open", name, err)
	}
	if !r.isDir {
		return nil, pathError("readdir", name, errors.New("not a directory"))
	}

	query, args, err := selectEntry("path", "is_dir", "COALESCE(length(data), 0)", "mod_time").
		Where(squirrel.Eq{"parent": p}).
		Where(squirrel.NotEq{"path": "/"}).
		OrderBy("path").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []fs.DirEntry
	for rows.Next() {
		var child string
		var row sqliteRow
		if err := rows.Scan(&child, &row.isDir, &row.size, &row.modTime); err != nil {
			return nil, err
		}
		entries = append(entries, fs.FileInfoToDirEntry(row.info(path.Base(child))))
	}
	return entries, rows.Err()
}

func (s *SQLiteFileSystem) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
