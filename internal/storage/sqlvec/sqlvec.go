package sqlvec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/0x5457/loca/internal/models"
	"github.com/0x5457/loca/internal/storage"
)

// Store keeps snippet metadata in a plain table and embeddings in a
// sqlite-vec vec0 table, joined through vec_map.
type Store struct {
	db        *sql.DB
	dimension int
}

func New(path string) (*Store, error) {
	// enable sqlite-vec for all future connections
	sqlite_vec.Auto()
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &Store{db: db}
	if err := s.loadDimension(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS snippets (
		id TEXT PRIMARY KEY,
		file_path TEXT NOT NULL,
		line_start INTEGER NOT NULL,
		line_end INTEGER NOT NULL,
		code TEXT NOT NULL,
		kind TEXT NOT NULL,
		name TEXT,
		docstring TEXT
	);`); err != nil {
		return err
	}
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_snippets_file ON snippets(file_path);`)
	return err
}

func (s *Store) loadDimension() error {
	var dim sql.NullInt64
	err := s.db.QueryRow(`SELECT value FROM vec_meta WHERE key = 'dimension'`).Scan(&dim)
	if err != nil && !errors.Is(err, sql.ErrNoRows) && !isNoTable(err) {
		return err
	}
	if dim.Valid {
		s.dimension = int(dim.Int64)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// Dimension is the embedding size fixed by the first Upsert, or 0.
func (s *Store) Dimension() int { return s.dimension }

func (s *Store) Upsert(ctx context.Context, snippets []models.Snippet, embeddings [][]float32) error {
	if len(snippets) != len(embeddings) {
		return fmt.Errorf("snippets and embeddings length mismatch")
	}
	if len(snippets) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Ensure vec table exists with correct dimension
	dim, err := s.ensureVecTable(ctx, tx, embeddings)
	if err != nil {
		return err
	}

	snippetStmt, err := tx.PrepareContext(ctx, `INSERT INTO snippets(
		id,file_path,line_start,line_end,code,kind,name,docstring
	) VALUES(?,?,?,?,?,?,?,?)
	ON CONFLICT(id) DO UPDATE SET
		file_path=excluded.file_path,
		line_start=excluded.line_start,
		line_end=excluded.line_end,
		code=excluded.code,
		kind=excluded.kind,
		name=excluded.name,
		docstring=excluded.docstring`)
	if err != nil {
		return err
	}
	defer func() { _ = snippetStmt.Close() }()

	insertVecStmt, err := tx.PrepareContext(ctx, `INSERT INTO vec_embeddings(embedding) VALUES(?)`)
	if err != nil {
		return err
	}
	defer func() { _ = insertVecStmt.Close() }()
	// vec0 has no conflict resolution, so a replacement is delete plus insert
	deleteVecStmt, err := tx.PrepareContext(ctx, `DELETE FROM vec_embeddings WHERE rowid = ?`)
	if err != nil {
		return err
	}
	defer func() { _ = deleteVecStmt.Close() }()
	replaceVecStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO vec_embeddings(rowid, embedding) VALUES(?, ?)`,
	)
	if err != nil {
		return err
	}
	defer func() { _ = replaceVecStmt.Close() }()
	upsertMapStmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO vec_map(rid, id) VALUES(?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = upsertMapStmt.Close() }()
	selectRidStmt, err := tx.PrepareContext(ctx, `SELECT rid FROM vec_map WHERE id = ?`)
	if err != nil {
		return err
	}
	defer func() { _ = selectRidStmt.Close() }()

	for i, sn := range snippets {
		if len(embeddings[i]) != dim {
			return fmt.Errorf("embedding for %s has dimension %d, store expects %d", sn.ID(), len(embeddings[i]), dim)
		}
		if _, err := snippetStmt.ExecContext(ctx,
			sn.ID(), sn.FilePath, sn.LineStart, sn.LineEnd, sn.Code, string(sn.Kind), sn.Name, sn.Docstring,
		); err != nil {
			return err
		}
		v, err := sqlite_vec.SerializeFloat32(embeddings[i])
		if err != nil {
			return err
		}
		// check existing rid
		var rid sql.NullInt64
		if err := selectRidStmt.QueryRowContext(ctx, sn.ID()).Scan(&rid); err != nil &&
			!errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if rid.Valid {
			if _, err := deleteVecStmt.ExecContext(ctx, rid.Int64); err != nil {
				return err
			}
			if _, err := replaceVecStmt.ExecContext(ctx, rid.Int64, v); err != nil {
				return err
			}
			continue
		}
		res, err := insertVecStmt.ExecContext(ctx, v)
		if err != nil {
			return err
		}
		newRid, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if _, err := upsertMapStmt.ExecContext(ctx, newRid, sn.ID()); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.dimension = dim
	return nil
}

func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	hasVec, err := vecTableExists(ctx, tx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM snippets WHERE id = ?`, id); err != nil {
			return err
		}
		if !hasVec {
			continue
		}
		var rid sql.NullInt64
		if err := tx.QueryRowContext(ctx, `SELECT rid FROM vec_map WHERE id = ?`, id).Scan(&rid); err != nil &&
			!errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if rid.Valid {
			if _, err := tx.ExecContext(ctx, `DELETE FROM vec_embeddings WHERE rowid = ?`, rid.Int64); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM vec_map WHERE rid = ?`, rid.Int64); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// Clear drops every table; the vector table is recreated by the next Upsert.
func (s *Store) Clear(ctx context.Context) error {
	for _, stmt := range []string{
		`DROP TABLE IF EXISTS vec_embeddings`,
		`DROP TABLE IF EXISTS vec_map`,
		`DROP TABLE IF EXISTS vec_meta`,
		`DROP TABLE IF EXISTS snippets`,
	} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	s.dimension = 0
	return migrate(s.db)
}

func (s *Store) Query(ctx context.Context, embedding []float32, topK int) ([]models.SemanticHit, error) {
	if topK <= 0 {
		topK = 5
	}
	if s.dimension == 0 {
		return nil, nil
	}
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("query embedding has dimension %d, store expects %d", len(embedding), s.dimension)
	}
	v, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, err
	}
	// KNN via MATCH ... ORDER BY distance using sqlite-vec
	rows, err := s.db.QueryContext(ctx, `
        WITH knn AS (
            SELECT rowid, distance
            FROM vec_embeddings
            WHERE embedding MATCH ? AND k = ?
            ORDER BY distance
        )
        SELECT c.file_path, c.line_start, c.line_end, c.code, c.kind, c.name, c.docstring,
               k.distance
        FROM knn k
        JOIN vec_map m ON m.rid = k.rowid
        JOIN snippets c ON c.id = m.id
        ORDER BY k.distance ASC
    `, v, topK)
	if err != nil {
		if isNoTable(err) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var hits []models.SemanticHit
	for rows.Next() {
		var sn models.Snippet
		var kind string
		var name, doc sql.NullString
		var distance float64
		if err := rows.Scan(
			&sn.FilePath, &sn.LineStart, &sn.LineEnd, &sn.Code, &kind, &name, &doc, &distance,
		); err != nil {
			return nil, err
		}
		sn.Kind = models.StringToSnippetKind(kind)
		sn.Name = name.String
		sn.Docstring = doc.String
		hits = append(hits, models.SemanticHit{Snippet: sn, Score: float32(1 - distance)})
	}
	return hits, rows.Err()
}

func vecTableExists(ctx context.Context, tx *sql.Tx) (bool, error) {
	var name string
	err := tx.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name='vec_embeddings'`).
		Scan(&name)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}
	return name == "vec_embeddings", nil
}

func (s *Store) ensureVecTable(ctx context.Context, tx *sql.Tx, embeddings [][]float32) (int, error) {
	exists, err := vecTableExists(ctx, tx)
	if err != nil {
		return 0, err
	}
	if exists && s.dimension > 0 {
		return s.dimension, nil
	}
	// Create with inferred dim
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return 0, fmt.Errorf("cannot create vec_embeddings: unknown embedding dimension")
	}
	dim := len(embeddings[0])
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(
        embedding float32[%d] distance_metric=cosine
    );`, dim)); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS vec_map (
        rid INTEGER UNIQUE NOT NULL,
        id TEXT UNIQUE NOT NULL
    );`); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS vec_meta (
        key TEXT PRIMARY KEY,
        value INTEGER NOT NULL
    );`); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO vec_meta(key, value) VALUES('dimension', ?)`, dim); err != nil {
		return 0, err
	}
	return dim, nil
}

func isNoTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}

var _ storage.VectorStore = (*Store)(nil)
