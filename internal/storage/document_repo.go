package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"docuchat-ai/internal/service"
)

// Document is one catalog record per ingested document.
type Document struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ChunkCount  int       `json:"chunk_count"`
	ContentHash string    `json:"content_hash"`
	IngestedAt  time.Time `json:"ingested_at"`
}

// DocumentStore is the catalog of ingested documents.
type DocumentStore interface {
	Upsert(ctx context.Context, doc Document) error
	GetByName(ctx context.Context, name string) (Document, error)
	ListAll(ctx context.Context) ([]Document, error)
	DeleteByName(ctx context.Context, name string) error
}

// DocumentRepo implements DocumentStore over sqlite.
type DocumentRepo struct {
	db *sql.DB
}

var _ DocumentStore = (*DocumentRepo)(nil)

// NewDocumentRepo creates a document repository.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Upsert inserts the document or, when the name already exists, replaces its
// chunk count, hash and ingest time.
func (r *DocumentRepo) Upsert(ctx context.Context, doc Document) error {
	const query = `
	INSERT INTO documents (id, name, chunk_count, content_hash, ingested_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET
		chunk_count = excluded.chunk_count,
		content_hash = excluded.content_hash,
		ingested_at = excluded.ingested_at`

	_, err := r.db.ExecContext(ctx, query,
		doc.ID, doc.Name, doc.ChunkCount, doc.ContentHash, doc.IngestedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

// GetByName looks a document up by its display name.
func (r *DocumentRepo) GetByName(ctx context.Context, name string) (Document, error) {
	const query = `
	SELECT id, name, chunk_count, content_hash, ingested_at
	FROM documents WHERE name = ?`

	var doc Document
	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&doc.ID, &doc.Name, &doc.ChunkCount, &doc.ContentHash, &doc.IngestedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, service.WrapError(service.ErrNotFound, fmt.Sprintf("document %q", name))
	}
	if err != nil {
		return Document{}, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// ListAll returns every cataloged document, most recently ingested first.
func (r *DocumentRepo) ListAll(ctx context.Context) ([]Document, error) {
	const query = `
	SELECT id, name, chunk_count, content_hash, ingested_at
	FROM documents ORDER BY ingested_at DESC, name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.ChunkCount, &doc.ContentHash, &doc.IngestedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}

// DeleteByName removes the catalog record. Missing records are not an error.
func (r *DocumentRepo) DeleteByName(ctx context.Context, name string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
