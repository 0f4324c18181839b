package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteFTS is the full-text backend: an FTS5 virtual table kept in sync
// with a plain documents table by triggers, ranked with bm25. It is the
// right choice when entries outgrow what keyword scanning handles and a
// vector index is overkill.
type SQLiteFTS struct {
	db *sql.DB
}

// NewSQLiteFTS creates/opens the index database at path.
func NewSQLiteFTS(path string) (*SQLiteFTS, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create index db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index db: %w", err)
	}
	// Single-process index. One shared connection avoids writer lock
	// contention with SQLite under concurrent goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	idx := &SQLiteFTS{db: db}
	if err := idx.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func (s *SQLiteFTS) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteFTS) init() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA temp_store=MEMORY;`,
		`PRAGMA busy_timeout=5000;`,
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			metadata_json TEXT NOT NULL DEFAULT '{}'
		);`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(doc_id UNINDEXED, content, tokenize='unicode61 remove_diacritics 2');`,
		`CREATE TRIGGER IF NOT EXISTS documents_ai AFTER INSERT ON documents BEGIN
			INSERT INTO documents_fts(doc_id, content) VALUES (new.id, new.content);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS documents_au AFTER UPDATE OF content ON documents BEGIN
			DELETE FROM documents_fts WHERE doc_id = old.id;
			INSERT INTO documents_fts(doc_id, content) VALUES(new.id, new.content);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS documents_ad AFTER DELETE ON documents BEGIN
			DELETE FROM documents_fts WHERE doc_id = old.id;
		END;`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init index schema failed on %q: %w", trimSQL(stmt), err)
		}
	}
	return nil
}

func trimSQL(stmt string) string {
	line := strings.TrimSpace(stmt)
	if len(line) > 96 {
		return line[:96] + "..."
	}
	return line
}

func (s *SQLiteFTS) Add(ctx context.Context, id, text string, metadata map[string]string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO documents(id, content, metadata_json)
VALUES(?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	content = excluded.content,
	metadata_json = excluded.metadata_json`, id, text, encodeMetadata(metadata))
	if err != nil {
		return fmt.Errorf("index document %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteFTS) Update(ctx context.Context, id, text string, metadata map[string]string) error {
	return s.Add(ctx, id, text, metadata)
}

func (s *SQLiteFTS) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("unindex document %s: %w", id, err)
	}
	return nil
}

// Query ranks matching documents with bm25, ties broken by id for
// deterministic output.
func (s *SQLiteFTS) Query(ctx context.Context, text string, k int) ([]string, error) {
	if k <= 0 {
		k = 10
	}
	match := buildFTSQuery(text)
	if match == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT doc_id
FROM documents_fts
WHERE documents_fts MATCH ?
ORDER BY bm25(documents_fts), doc_id
LIMIT ?`, match, k)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan index hit: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate index hits: %w", err)
	}
	return ids, nil
}

// buildFTSQuery turns free text into an OR of quoted terms so punctuation in
// queries cannot break FTS5 syntax.
func buildFTSQuery(text string) string {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return ""
	}
	quoted := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.ReplaceAll(t, `"`, "")
		if t == "" {
			continue
		}
		quoted = append(quoted, `"`+t+`"`)
	}
	return strings.Join(quoted, " OR ")
}

func encodeMetadata(m map[string]string) string {
	if len(m) == 0 {
		return "{}"
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}
