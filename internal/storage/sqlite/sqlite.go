package sqlite

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"

	"github.com/0x5457/loca/internal/models"
	"github.com/0x5457/loca/internal/storage"
)

// SymbolStore indexes named snippets by exact name.
type SymbolStore struct {
	db *sql.DB
}

func New(path string) (*SymbolStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SymbolStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS symbols (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		file_path TEXT NOT NULL,
		line_start INTEGER NOT NULL,
		line_end INTEGER NOT NULL,
		code TEXT NOT NULL,
		docstring TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
	CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_path);`)
	return err
}

func (s *SymbolStore) Close() error { return s.db.Close() }

// UpsertSymbols stores every snippet that carries a name; imports are skipped.
func (s *SymbolStore) UpsertSymbols(ctx context.Context, snippets []models.Snippet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO symbols(id,name,kind,file_path,line_start,line_end,code,docstring)
		VALUES(?,?,?,?,?,?,?,?)
        ON CONFLICT(id) DO UPDATE SET
        name=excluded.name,
        kind=excluded.kind,
        file_path=excluded.file_path,
        line_start=excluded.line_start,
        line_end=excluded.line_end,
        code=excluded.code,
        docstring=excluded.docstring`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, sn := range snippets {
		if sn.Name == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx,
			sn.ID(),
			sn.Name,
			string(sn.Kind),
			sn.FilePath,
			sn.LineStart,
			sn.LineEnd,
			sn.Code,
			sn.Docstring,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SymbolStore) DeleteSymbols(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.PrepareContext(ctx, `DELETE FROM symbols WHERE id = ?`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SymbolStore) FindByName(ctx context.Context, name string) ([]models.Snippet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name,kind,file_path,line_start,line_end,code,docstring FROM symbols
		WHERE name = ? ORDER BY file_path, line_start`,
		name,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []models.Snippet
	for rows.Next() {
		var sn models.Snippet
		var kind string
		var doc sql.NullString
		if err := rows.Scan(&sn.Name, &kind, &sn.FilePath, &sn.LineStart, &sn.LineEnd, &sn.Code, &doc); err != nil {
			return nil, err
		}
		sn.Kind = models.StringToSnippetKind(kind)
		sn.Docstring = doc.String
		out = append(out, sn)
	}
	return out, rows.Err()
}

func (s *SymbolStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM symbols`)
	return err
}

var _ storage.SymbolStore = (*SymbolStore)(nil)
