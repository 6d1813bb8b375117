// Package storage provides the SQLite-backed structured index.
//
// The index holds one row per element, keyed by the deterministic
// element id and indexed by file path, type, name and language. The
// project manifest lives in a companion projects table.
//
// # Atomic per-file replacement
//
// Callers supply all elements for one file at a time. ReplaceFile
// deletes the file's old rows and inserts the fresh set inside a single
// transaction, so readers either see the pre-replacement set or the
// post-replacement set, never a mix:
//
//	store, err := storage.NewSQLiteStore(dbPath)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	if err := store.ReplaceFile(ctx, "lib/a.py", elements); err != nil {
//	    return err
//	}
//
// # Search
//
// SearchStructural matches element names with GLOB semantics when the
// pattern contains meta-characters (so "get_*" matches get_user but not
// getUser) and as a substring otherwise. Results are ordered by
// (file_path, start_line). Missing rows yield empty results, never an
// error.
//
// # Drivers
//
// Two interchangeable SQLite drivers are selected by build tag:
// modernc.org/sqlite (pure Go, default) and mattn/go-sqlite3
// (cgo_sqlite tag).
package storage
