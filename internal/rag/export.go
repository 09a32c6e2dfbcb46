// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rag

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// ExportEntry is one evidence record in the export file.
type ExportEntry struct {
	Key       string   `json:"key" yaml:"key"`
	Source    string   `json:"source" yaml:"source"`
	Title     string   `json:"title" yaml:"title"`
	URL       string   `json:"url" yaml:"url"`
	Date      string   `json:"date" yaml:"date"`
	Authors   []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	Content   string   `json:"content" yaml:"content"`
	Relevance float64  `json:"relevance" yaml:"relevance"`
}

// ExportYAML writes the full evidence index to indexDir/export.yaml.
func (s *Store) ExportYAML(ctx context.Context) error {
	entries, err := s.exportEntries(ctx)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(filepath.Join(s.indexDir, "export.yaml"), data, 0o644)
}

// ExportJSON writes the full evidence index to indexDir/export.json.
func (s *Store) ExportJSON(ctx context.Context) error {
	entries, err := s.exportEntries(ctx)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(filepath.Join(s.indexDir, "export.json"), data, 0o644)
}

func (s *Store) exportEntries(ctx context.Context) ([]ExportEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, source, title, url, date, authors, content, relevance
		FROM evidence ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	defer rows.Close()

	var entries []ExportEntry
	for rows.Next() {
		var (
			e           ExportEntry
			authorsJSON sql.NullString
		)
		if err := rows.Scan(&e.Key, &e.Source, &e.Title, &e.URL, &e.Date,
			&authorsJSON, &e.Content, &e.Relevance); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if authorsJSON.Valid {
			json.Unmarshal([]byte(authorsJSON.String), &e.Authors)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
