package documents

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `id, owner_id, file_name, storage_key, mime_type, size_bytes, status, extracted_text, extracted_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var status string
	var text sql.NullString
	var extractedAt sql.NullTime
	if err := row.Scan(
		&doc.ID,
		&doc.OwnerID,
		&doc.FileName,
		&doc.StorageKey,
		&doc.MimeType,
		&doc.SizeBytes,
		&status,
		&text,
		&extractedAt,
		&doc.CreatedAt,
	); err != nil {
		return Document{}, err
	}
	doc.Status = Status(status)
	if text.Valid {
		doc.ExtractedText = &text.String
	}
	if extractedAt.Valid {
		doc.ExtractedAt = &extractedAt.Time
	}
	return doc, nil
}

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    owner_id,
    file_name,
    storage_key,
    mime_type,
    size_bytes,
    status,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.OwnerID,
		doc.FileName,
		doc.StorageKey,
		doc.MimeType,
		doc.SizeBytes,
		string(doc.Status),
		doc.CreatedAt,
	)
	return err
}

// GetByID fetches a document regardless of owner.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// ListByOwner lists documents ordered newest-first.
func (r *PGRepo) ListByOwner(ctx context.Context, ownerID string) ([]Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// MarkCompleted sets COMPLETED with the extracted text if the document is still PROCESSING.
func (r *PGRepo) MarkCompleted(ctx context.Context, id, text string, at time.Time) error {
	const query = `
UPDATE documents
SET status = 'COMPLETED', extracted_text = $1, extracted_at = $2
WHERE id = $3 AND status = 'PROCESSING'`
	res, err := r.DB.ExecContext(ctx, query, text, at, id)
	if err != nil {
		return err
	}
	return r.checkFinalized(ctx, res, id)
}

// MarkFailed sets FAILED if the document is still PROCESSING.
func (r *PGRepo) MarkFailed(ctx context.Context, id string, at time.Time) error {
	const query = `
UPDATE documents
SET status = 'FAILED', extracted_text = NULL, extracted_at = $1
WHERE id = $2 AND status = 'PROCESSING'`
	res, err := r.DB.ExecContext(ctx, query, at, id)
	if err != nil {
		return err
	}
	return r.checkFinalized(ctx, res, id)
}

func (r *PGRepo) checkFinalized(ctx context.Context, res sql.Result, id string) error {
	updated, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if updated > 0 {
		return nil
	}
	var exists bool
	if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrAlreadyFinalized
}

// AddInteraction appends an interaction.
func (r *PGRepo) AddInteraction(ctx context.Context, in Interaction) error {
	const query = `
INSERT INTO interactions (id, document_id, prompt, response, created_at)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.DB.ExecContext(ctx, query, in.ID, in.DocumentID, in.Prompt, in.Response, in.CreatedAt)
	return err
}

// ListInteractions returns interactions for a document, oldest first.
func (r *PGRepo) ListInteractions(ctx context.Context, documentID string) ([]Interaction, error) {
	const query = `
SELECT id, document_id, prompt, response, created_at
FROM interactions
WHERE document_id = $1
ORDER BY created_at ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Interaction, 0)
	for rows.Next() {
		var in Interaction
		if err := rows.Scan(&in.ID, &in.DocumentID, &in.Prompt, &in.Response, &in.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

var _ Repo = (*PGRepo)(nil)
