// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rag persists collected evidence in a SQLite full-text index so
// later iterations can retrieve it without refetching the source APIs.
package rag

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/biomed-agent/internal/search"
	"github.com/pdiddy/biomed-agent/pkg/types"
)

const dbFile = "evidence.db"

// Store manages the evidence index SQLite database.
type Store struct {
	db         *sql.DB
	indexDir   string
	maxResults int
}

// NewStore opens or creates the evidence database at indexDir/evidence.db,
// creating the schema if it does not exist.
func NewStore(cfg types.IndexConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.IndexDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(cfg.IndexDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:         db,
		indexDir:   cfg.IndexDir,
		maxResults: maxResults,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS evidence (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			key TEXT NOT NULL UNIQUE,
			source TEXT NOT NULL,
			title TEXT,
			url TEXT,
			date TEXT,
			authors TEXT,
			content TEXT NOT NULL,
			relevance REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_evidence_source ON evidence(source)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='evidence_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE evidence_fts USING fts5(title, content, content=evidence, content_rowid=rowid)`,
			`CREATE TRIGGER evidence_ai AFTER INSERT ON evidence BEGIN
				INSERT INTO evidence_fts(rowid, title, content) VALUES (new.rowid, new.title, new.content);
			END`,
			`CREATE TRIGGER evidence_ad AFTER DELETE ON evidence BEGIN
				INSERT INTO evidence_fts(evidence_fts, rowid, title, content) VALUES('delete', old.rowid, old.title, old.content);
			END`,
			`CREATE TRIGGER evidence_au AFTER UPDATE ON evidence BEGIN
				INSERT INTO evidence_fts(evidence_fts, rowid, title, content) VALUES('delete', old.rowid, old.title, old.content);
				INSERT INTO evidence_fts(rowid, title, content) VALUES (new.rowid, new.title, new.content);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// evidenceKey returns the storage key for an item: the canonical paper
// identifier when one exists, otherwise the URL, otherwise a content hash.
// The key makes ingestion idempotent across iterations.
func evidenceKey(ev types.Evidence) string {
	if id := search.ExtractPaperID(ev); id != "" {
		return id
	}
	if ev.Citation.URL != "" {
		return "URL:" + ev.Citation.URL
	}
	sum := sha256.Sum256([]byte(ev.Content))
	return fmt.Sprintf("SHA:%x", sum[:8])
}

// Ingest stores evidence items, skipping keys already present. Re-ingesting
// the same items is a no-op.
func (s *Store) Ingest(ctx context.Context, items []types.Evidence) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO evidence (key, source, title, url, date, authors, content, relevance)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range items {
		authorsJSON, _ := json.Marshal(ev.Citation.Authors)
		_, err := stmt.ExecContext(ctx,
			evidenceKey(ev), string(ev.Citation.Source), ev.Citation.Title,
			ev.Citation.URL, ev.Citation.Date, string(authorsJSON),
			ev.Content, ev.Relevance,
		)
		if err != nil {
			return fmt.Errorf("inserting evidence %q: %w", ev.Citation.Title, err)
		}
	}

	return tx.Commit()
}

// Count returns the number of stored evidence items.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM evidence`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting evidence: %w", err)
	}
	return n, nil
}

// Query retrieves stored evidence matching the full-text query, ranked by
// FTS relevance. Retrieved items carry the index source so they are not
// re-ingested.
func (s *Store) Query(ctx context.Context, query string, maxResults int) ([]types.Evidence, error) {
	if maxResults <= 0 {
		maxResults = s.maxResults
	}
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT e.title, e.url, e.date, e.authors, e.content, e.relevance
		FROM evidence_fts
		JOIN evidence e ON e.rowid = evidence_fts.rowid
		WHERE evidence_fts MATCH ?
		ORDER BY evidence_fts.rank
		LIMIT ?`,
		match, maxResults)
	if err != nil {
		return nil, fmt.Errorf("querying evidence index: %w", err)
	}
	defer rows.Close()

	var results []types.Evidence
	for rows.Next() {
		var (
			ev          types.Evidence
			authorsJSON sql.NullString
		)
		if err := rows.Scan(
			&ev.Citation.Title, &ev.Citation.URL, &ev.Citation.Date,
			&authorsJSON, &ev.Content, &ev.Relevance,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if authorsJSON.Valid {
			json.Unmarshal([]byte(authorsJSON.String), &ev.Citation.Authors)
		}
		ev.Citation.Source = types.SourceRAG
		results = append(results, ev)
	}

	return results, rows.Err()
}

var ftsTokenRe = regexp.MustCompile(`\w+`)

// ftsQuery converts free text into a safe FTS5 MATCH expression: each
// token quoted, joined with OR. Raw user input would let FTS operator
// characters break the query.
func ftsQuery(query string) string {
	tokens := ftsTokenRe.FindAllString(query, -1)
	if len(tokens) == 0 {
		return ""
	}
	quoted := make([]string, len(tokens))
	for i, tok := range tokens {
		quoted[i] = `"` + tok + `"`
	}
	return strings.Join(quoted, " OR ")
}
