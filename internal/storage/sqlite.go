package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RealFaceCode/ContextBrain/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore creates a new SQLite-backed structured index.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const elementColumns = `id, type, name, file_path, start_line, end_line, content,
       language, parent_id, signature, docstring, dependencies, metadata`

// ReplaceFile atomically replaces all elements of a file: existing rows
// with the path are removed first within the same transaction.
func (s *SQLiteStore) ReplaceFile(ctx context.Context, filePath string, elements []*types.Element) error {
	filePath = types.NormalizePath(filePath)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin replace: %v", types.ErrStore, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM elements WHERE file_path = ?`, filePath); err != nil {
		return fmt.Errorf("%w: delete old rows: %v", types.ErrStore, err)
	}

	for _, elem := range elements {
		if err := insertElement(ctx, tx, elem); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit replace: %v", types.ErrStore, err)
	}
	return nil
}

func insertElement(ctx context.Context, q querier, elem *types.Element) error {
	deps, err := json.Marshal(elem.Dependencies)
	if err != nil {
		return fmt.Errorf("%w: marshal dependencies: %v", types.ErrStore, err)
	}
	meta, err := json.Marshal(elem.Metadata)
	if err != nil {
		return fmt.Errorf("%w: marshal metadata: %v", types.ErrStore, err)
	}

	query := `
		INSERT INTO elements (` + elementColumns + `, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = q.ExecContext(ctx, query,
		elem.ID, string(elem.Type), elem.Name, elem.FilePath,
		elem.StartLine, elem.EndLine, elem.Content, elem.Language,
		elem.ParentID, elem.Signature, elem.Docstring,
		string(deps), string(meta), time.Now())
	if err != nil {
		return fmt.Errorf("%w: insert element %s: %v", types.ErrStore, elem.ID, err)
	}
	return nil
}

// DeleteByFile removes all elements of the file atomically.
func (s *SQLiteStore) DeleteByFile(ctx context.Context, filePath string) error {
	filePath = types.NormalizePath(filePath)
	_, err := s.db.ExecContext(ctx, `DELETE FROM elements WHERE file_path = ?`, filePath)
	if err != nil {
		return fmt.Errorf("%w: delete by file: %v", types.ErrStore, err)
	}
	return nil
}

// GetByID fetches a single element by id.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*types.Element, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+elementColumns+` FROM elements WHERE id = ?`, id)
	elem, err := scanElement(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return elem, nil
}

// GetByFile returns the file's elements ordered by start line.
func (s *SQLiteStore) GetByFile(ctx context.Context, filePath string) ([]*types.Element, error) {
	filePath = types.NormalizePath(filePath)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+elementColumns+` FROM elements WHERE file_path = ? ORDER BY start_line, id`, filePath)
	if err != nil {
		return nil, err
	}
	return collectElements(rows)
}

// GetChildren returns the direct children of an element in source order.
func (s *SQLiteStore) GetChildren(ctx context.Context, id string) ([]*types.Element, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+elementColumns+` FROM elements WHERE parent_id = ? ORDER BY start_line, id`, id)
	if err != nil {
		return nil, err
	}
	return collectElements(rows)
}

// SearchStructural matches pattern against names. A pattern carrying
// glob meta-characters uses GLOB semantics (so get_* does not match
// getUser); a plain pattern matches as a substring.
func (s *SQLiteStore) SearchStructural(ctx context.Context, pattern string, filters Filters, limit int) ([]*types.Element, error) {
	if limit <= 0 {
		limit = 50
	}

	var conds []string
	var args []interface{}

	if pattern != "" {
		if strings.ContainsAny(pattern, "*?[") {
			conds = append(conds, "name GLOB ?")
			args = append(args, pattern)
		} else {
			conds = append(conds, "name LIKE ? ESCAPE '\\'")
			args = append(args, "%"+escapeLike(pattern)+"%")
		}
	}
	if filters.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, filters.Type)
	}
	if filters.Language != "" {
		conds = append(conds, "language = ?")
		args = append(args, filters.Language)
	}
	if filters.File != "" {
		conds = append(conds, "(file_path = ? OR file_path LIKE ? ESCAPE '\\')")
		args = append(args, types.NormalizePath(filters.File), escapeLike(types.NormalizePath(filters.File))+"%")
	}

	query := `SELECT ` + elementColumns + ` FROM elements`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY file_path, start_line LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectElements(rows)
}

// ListByType returns all elements of one type.
func (s *SQLiteStore) ListByType(ctx context.Context, elemType types.ElementType) ([]*types.Element, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+elementColumns+` FROM elements WHERE type = ? ORDER BY file_path, start_line`, string(elemType))
	if err != nil {
		return nil, err
	}
	return collectElements(rows)
}

// ListFiles returns the distinct indexed file paths.
func (s *SQLiteStore) ListFiles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT file_path FROM elements ORDER BY file_path`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	files := make([]string, 0)
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// ElementCountsByFile returns per-file element counts keyed by type.
func (s *SQLiteStore) ElementCountsByFile(ctx context.Context) (map[string]map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT file_path, type, COUNT(*) FROM elements GROUP BY file_path, type`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]map[string]int)
	for rows.Next() {
		var file, typ string
		var n int
		if err := rows.Scan(&file, &typ, &n); err != nil {
			return nil, err
		}
		if counts[file] == nil {
			counts[file] = make(map[string]int)
		}
		counts[file][typ] = n
	}
	return counts, rows.Err()
}

// Statistics reports element count and type/language histograms.
func (s *SQLiteStore) Statistics(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{
		ByType:     make(map[string]int),
		ByLanguage: make(map[string]int),
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM elements`).Scan(&stats.TotalElements); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT file_path) FROM elements`).Scan(&stats.TotalFiles); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM elements GROUP BY type`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		stats.ByType[typ] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	langRows, err := s.db.QueryContext(ctx, `SELECT language, COUNT(*) FROM elements GROUP BY language`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = langRows.Close() }()
	for langRows.Next() {
		var lang sql.NullString
		var n int
		if err := langRows.Scan(&lang, &n); err != nil {
			return nil, err
		}
		if lang.Valid && lang.String != "" {
			stats.ByLanguage[lang.String] = n
		}
	}
	return stats, langRows.Err()
}

// GetManifest fetches the project manifest for a root path.
func (s *SQLiteStore) GetManifest(ctx context.Context, rootPath string) (*types.ProjectManifest, error) {
	var m types.ProjectManifest
	var languages sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT root_path, total_elements, total_files, languages, created_at, updated_at
		FROM projects WHERE root_path = ?`, rootPath).Scan(
		&m.RootPath, &m.TotalElements, &m.TotalFiles, &languages, &m.CreatedAt, &m.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	m.Languages = make(map[string]int)
	if languages.Valid && languages.String != "" {
		if err := json.Unmarshal([]byte(languages.String), &m.Languages); err != nil {
			return nil, fmt.Errorf("invalid languages histogram: %w", err)
		}
	}
	return &m, nil
}

// UpsertManifest stores the project manifest.
func (s *SQLiteStore) UpsertManifest(ctx context.Context, manifest *types.ProjectManifest) error {
	languages, err := json.Marshal(manifest.Languages)
	if err != nil {
		return err
	}
	now := time.Now()
	if manifest.CreatedAt.IsZero() {
		manifest.CreatedAt = now
	}
	manifest.LastUpdated = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (root_path, total_elements, total_files, languages, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(root_path) DO UPDATE SET
			total_elements = excluded.total_elements,
			total_files = excluded.total_files,
			languages = excluded.languages,
			updated_at = excluded.updated_at
	`, manifest.RootPath, manifest.TotalElements, manifest.TotalFiles,
		string(languages), manifest.CreatedAt, manifest.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to upsert manifest: %w", err)
	}
	return nil
}

// Clear removes all elements and manifests.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM elements`); err != nil {
		return fmt.Errorf("%w: clear elements: %v", types.ErrStore, err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM projects`); err != nil {
		return fmt.Errorf("%w: clear projects: %v", types.ErrStore, err)
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanElement(row rowScanner) (*types.Element, error) {
	var e types.Element
	var typ string
	var content, language, parentID, signature, docstring, deps, meta sql.NullString

	err := row.Scan(&e.ID, &typ, &e.Name, &e.FilePath, &e.StartLine, &e.EndLine,
		&content, &language, &parentID, &signature, &docstring, &deps, &meta)
	if err != nil {
		return nil, err
	}

	e.Type = types.ElementType(typ)
	e.Content = content.String
	e.Language = language.String
	e.ParentID = parentID.String
	e.Signature = signature.String
	e.Docstring = docstring.String

	if deps.Valid && deps.String != "" && deps.String != "null" {
		if err := json.Unmarshal([]byte(deps.String), &e.Dependencies); err != nil {
			return nil, fmt.Errorf("invalid dependencies for %s: %w", e.ID, err)
		}
	}
	e.Metadata = make(map[string]string)
	if meta.Valid && meta.String != "" && meta.String != "null" {
		if err := json.Unmarshal([]byte(meta.String), &e.Metadata); err != nil {
			return nil, fmt.Errorf("invalid metadata for %s: %w", e.ID, err)
		}
	}
	return &e, nil
}

func collectElements(rows *sql.Rows) ([]*types.Element, error) {
	defer func() { _ = rows.Close() }()

	elements := make([]*types.Element, 0)
	for rows.Next() {
		elem, err := scanElement(rows)
		if err != nil {
			return nil, err
		}
		elements = append(elements, elem)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Children links are derived from parent_id on the way out.
	byID := make(map[string]*types.Element, len(elements))
	for _, e := range elements {
		byID[e.ID] = e
	}
	for _, e := range elements {
		if e.ParentID == "" {
			continue
		}
		if parent, ok := byID[e.ParentID]; ok {
			parent.ChildrenIDs = append(parent.ChildrenIDs, e.ID)
		}
	}
	return elements, nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
