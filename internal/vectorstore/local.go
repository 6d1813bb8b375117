package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RealFaceCode/ContextBrain/internal/storage"
	"github.com/RealFaceCode/ContextBrain/pkg/types"
)

// LocalIndex is a disk-backed vector store: records live in a dedicated
// SQLite file under the vectors directory, similarity is computed in
// Go. It is the default backend and needs no external service.
type LocalIndex struct {
	db *sql.DB
}

const localSchema = `
CREATE TABLE IF NOT EXISTS vectors (
    id TEXT PRIMARY KEY,
    element_id TEXT NOT NULL,
    file_path TEXT NOT NULL,
    type TEXT,
    language TEXT,
    name TEXT,
    start_line INTEGER,
    chunk_index INTEGER,
    chunk_text TEXT,
    vector BLOB NOT NULL,
    dimension INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_vectors_file ON vectors(file_path);
CREATE INDEX IF NOT EXISTS idx_vectors_element ON vectors(element_id);
`

// NewLocalIndex opens (or creates) the vector store under dir.
func NewLocalIndex(dir string) (*LocalIndex, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create vector directory: %w", err)
	}

	db, err := sql.Open(storage.DriverName, filepath.Join(dir, "vectors.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(localSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create vector schema: %w", err)
	}

	return &LocalIndex{db: db}, nil
}

// Close closes the store.
func (l *LocalIndex) Close() error {
	return l.db.Close()
}

// ReplaceFile atomically replaces the file's records.
func (l *LocalIndex) ReplaceFile(ctx context.Context, filePath string, records []Record) error {
	filePath = types.NormalizePath(filePath)

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin vector replace: %v", types.ErrStore, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM vectors WHERE file_path = ?`, filePath); err != nil {
		return fmt.Errorf("%w: delete old vectors: %v", types.ErrStore, err)
	}

	for _, r := range records {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO vectors
				(id, element_id, file_path, type, language, name, start_line, chunk_index, chunk_text, vector, dimension)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, r.ID, r.ElementID, r.FilePath, r.Type, r.Language, r.Name,
			r.StartLine, r.ChunkIndex, r.ChunkText, serializeVector(r.Vector), len(r.Vector))
		if err != nil {
			return fmt.Errorf("%w: insert vector %s: %v", types.ErrStore, r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit vector replace: %v", types.ErrStore, err)
	}
	return nil
}

// DeleteByFile removes all records of the file.
func (l *LocalIndex) DeleteByFile(ctx context.Context, filePath string) error {
	filePath = types.NormalizePath(filePath)
	_, err := l.db.ExecContext(ctx, `DELETE FROM vectors WHERE file_path = ?`, filePath)
	if err != nil {
		return fmt.Errorf("%w: delete vectors by file: %v", types.ErrStore, err)
	}
	return nil
}

// Search scans candidates and ranks them by cosine similarity in Go.
// Metadata filters are pushed into SQL to bound the scan.
func (l *LocalIndex) Search(ctx context.Context, vector []float32, topK int, filters QueryFilters) ([]Hit, error) {
	if topK <= 0 {
		return []Hit{}, nil
	}

	query := `SELECT id, element_id, file_path, type, language, name, start_line, chunk_index, chunk_text, vector FROM vectors`
	var conds []string
	var args []interface{}
	if filters.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, filters.Type)
	}
	if filters.Language != "" {
		conds = append(conds, "language = ?")
		args = append(args, filters.Language)
	}
	if filters.FilePrefix != "" {
		conds = append(conds, "file_path LIKE ?")
		args = append(args, filters.FilePrefix+"%")
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	hits := make([]Hit, 0, 256)
	for rows.Next() {
		var r Record
		var typ, language, name, chunkText sql.NullString
		var blob []byte
		if err := rows.Scan(&r.ID, &r.ElementID, &r.FilePath, &typ, &language,
			&name, &r.StartLine, &r.ChunkIndex, &chunkText, &blob); err != nil {
			return nil, err
		}
		r.Type = typ.String
		r.Language = language.String
		r.Name = name.String
		r.ChunkText = chunkText.String

		candidate := deserializeVector(blob)
		if len(candidate) != len(vector) {
			continue // dimension mismatch, skip
		}
		sim := clampSimilarity(cosineSimilarity(vector, candidate))
		hits = append(hits, Hit{Record: r, Similarity: sim})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortHits(hits)
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Clear removes every record, keeping the table in place.
func (l *LocalIndex) Clear(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, `DELETE FROM vectors`)
	if err != nil {
		return fmt.Errorf("%w: clear vectors: %v", types.ErrStore, err)
	}
	return nil
}

// Count returns the number of stored records.
func (l *LocalIndex) Count(ctx context.Context) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vectors`).Scan(&n)
	return n, err
}
