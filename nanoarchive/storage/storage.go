// Package storage provides the concurrency primitives shared by archive
// backends: a keyed read/write lock manager that serializes access to a
// single archive path while letting unrelated paths proceed in parallel.
package storage
