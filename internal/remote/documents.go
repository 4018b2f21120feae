package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vmunix/cinesync/internal/library"
)

// Documents stores per-user JSON documents in SQLite.
type Documents struct {
	db *sql.DB
}

// NewDocuments creates a document repository. The documents table must exist.
func NewDocuments(db *sql.DB) *Documents {
	return &Documents{db: db}
}

// Document is a stored document body with its version.
type Document struct {
	Body      []byte
	Version   int64
	UpdatedAt time.Time
}

// Get returns the document of kind for userID.
func (d *Documents) Get(ctx context.Context, userID, kind string) (*Document, error) {
	var (
		doc  Document
		body string
	)
	err := d.db.QueryRowContext(ctx,
		"SELECT body, version, updated_at FROM documents WHERE user_id = ? AND kind = ?",
		userID, kind,
	).Scan(&body, &doc.Version, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	doc.Body = []byte(body)
	return &doc, nil
}

// Put replaces the document and returns its new version.
func (d *Documents) Put(ctx context.Context, userID, kind string, body []byte) (int64, error) {
	var version int64
	err := d.db.QueryRowContext(ctx,
		`INSERT INTO documents (user_id, kind, body, version, updated_at)
		 VALUES (?, ?, ?, 1, ?)
		 ON CONFLICT(user_id, kind) DO UPDATE SET
		   body = excluded.body,
		   version = documents.version + 1,
		   updated_at = excluded.updated_at
		 RETURNING version`,
		userID, kind, string(body), time.Now(),
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("put document: %w", err)
	}
	return version, nil
}

// LoadLibrary reads the stored library of userID, making Documents usable
// as an in-process Store.
func (d *Documents) LoadLibrary(ctx context.Context, userID string) ([]library.Item, error) {
	doc, err := d.Get(ctx, userID, kindLibrary)
	if err != nil {
		return nil, err
	}
	var items []library.Item
	if err := json.Unmarshal(doc.Body, &items); err != nil {
		return nil, fmt.Errorf("decode library of %s: %w", userID, err)
	}
	return items, nil
}

// SaveLibrary replaces the stored library of userID.
func (d *Documents) SaveLibrary(ctx context.Context, userID string, items []library.Item) error {
	if items == nil {
		items = []library.Item{}
	}
	body, err := json.Marshal(library.Dedupe(items))
	if err != nil {
		return fmt.Errorf("encode library of %s: %w", userID, err)
	}
	_, err = d.Put(ctx, userID, kindLibrary, body)
	return err
}
