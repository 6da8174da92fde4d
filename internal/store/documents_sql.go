package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/jurisdoc/internal/model"
)

// GetDocument implements DocumentStore
func (s *SQLStore) GetDocument(ctx context.Context, key model.JurisdictionKey) (*model.GeneratedDocument, error) {
	query := s.rebind(`SELECT id, state_code, locality_name, title, content, sections, word_count, metadata, created_at
		FROM generated_documents WHERE state_code = ? AND locality_name = ?`)

	var (
		d                  model.GeneratedDocument
		sections, metadata sql.NullString
		createdAt          string
	)
	err := s.db.QueryRowContext(ctx, query, key.State, key.Locality).Scan(
		&d.ID, &d.Jurisdiction.State, &d.Jurisdiction.Locality, &d.Title, &d.Content,
		&sections, &d.WordCount, &metadata, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", key, err)
	}

	if err := decodeJSON(sections, &d.Sections); err != nil {
		return nil, fmt.Errorf("decode sections: %w", err)
	}
	if err := decodeJSON(metadata, &d.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	return &d, nil
}

// InsertDocument implements DocumentStore
func (s *SQLStore) InsertDocument(ctx context.Context, d *model.GeneratedDocument) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	sections, err := json.Marshal(d.Sections)
	if err != nil {
		return fmt.Errorf("encode sections: %w", err)
	}
	metadata, err := json.Marshal(d.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	query := s.rebind(`INSERT INTO generated_documents
		(id, state_code, locality_name, title, content, sections, word_count, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err = s.db.ExecContext(ctx, query,
		d.ID, d.Jurisdiction.State, d.Jurisdiction.Locality, d.Title, d.Content,
		string(sections), d.WordCount, string(metadata), formatTime(d.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return duplicateError(d.Jurisdiction)
		}
		return fmt.Errorf("insert document %s: %w", d.Jurisdiction, err)
	}
	return nil
}

// ExistingKeys implements DocumentStore
func (s *SQLStore) ExistingKeys(ctx context.Context) (map[model.JurisdictionKey]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state_code, locality_name FROM generated_documents`)
	if err != nil {
		return nil, fmt.Errorf("query document keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	keys := make(map[model.JurisdictionKey]bool)
	for rows.Next() {
		var k model.JurisdictionKey
		if err := rows.Scan(&k.State, &k.Locality); err != nil {
			return nil, fmt.Errorf("scan document key: %w", err)
		}
		keys[k] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query document keys: %w", err)
	}
	return keys, nil
}
