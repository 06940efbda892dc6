package documents

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

var documentColumnNames = []string{
	"id", "owner_id", "file_name", "storage_key", "mime_type",
	"size_bytes", "status", "extracted_text", "extracted_at", "created_at",
}

func TestPGRepoCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	doc := Document{
		ID:         "doc-1",
		OwnerID:    "user-1",
		FileName:   "invoice.png",
		StorageKey: "abc/123_invoice.png",
		MimeType:   "image/png",
		SizeBytes:  2048,
		Status:     StatusProcessing,
		CreatedAt:  time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO documents").
		WithArgs(doc.ID, doc.OwnerID, doc.FileName, doc.StorageKey, doc.MimeType, doc.SizeBytes, "PROCESSING", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2026, time.February, 3, 4, 5, 6, 0, time.UTC)
	extracted := created.Add(2 * time.Second)

	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id = \\$1").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows(documentColumnNames).
			AddRow("doc-1", "user-1", "invoice.png", "k", "image/png", int64(10), "COMPLETED", "Total: $42", extracted, created))

	doc, err := repo.GetByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if doc.Status != StatusCompleted || doc.ExtractedText == nil || *doc.ExtractedText != "Total: $42" {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if doc.ExtractedAt == nil || !doc.ExtractedAt.Equal(extracted) {
		t.Fatalf("unexpected extracted_at: %v", doc.ExtractedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDProcessingHasNoText(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT (.+) FROM documents").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows(documentColumnNames).
			AddRow("doc-1", "user-1", "a.png", "k", "image/png", int64(10), "PROCESSING", nil, nil, time.Now()))

	doc, err := repo.GetByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if doc.ExtractedText != nil || doc.ExtractedAt != nil {
		t.Fatalf("expected no text for processing document: %+v", doc)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT (.+) FROM documents").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoMarkCompletedOnlyFromProcessing(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Now().UTC()

	mock.ExpectExec("UPDATE documents\\s+SET status = 'COMPLETED'.+WHERE id = \\$3 AND status = 'PROCESSING'").
		WithArgs("hello", at, "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkCompleted(context.Background(), "doc-1", "hello", at); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoMarkFailedAlreadyFinalized(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Now().UTC()

	mock.ExpectExec("UPDATE documents\\s+SET status = 'FAILED'").
		WithArgs(at, "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	if err := repo.MarkFailed(context.Background(), "doc-1", at); !errors.Is(err, ErrAlreadyFinalized) {
		t.Fatalf("expected ErrAlreadyFinalized, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoMarkFailedMissing(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Now().UTC()

	mock.ExpectExec("UPDATE documents").
		WithArgs(at, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	if err := repo.MarkFailed(context.Background(), "missing", at); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoInteractions(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Date(2026, time.February, 3, 4, 5, 6, 0, time.UTC)

	mock.ExpectExec("INSERT INTO interactions").
		WithArgs("i1", "doc-1", "What is the total?", "42", at).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT id, document_id, prompt, response, created_at\\s+FROM interactions\\s+WHERE document_id = \\$1\\s+ORDER BY created_at ASC, id ASC").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "prompt", "response", "created_at"}).
			AddRow("i1", "doc-1", "What is the total?", "42", at).
			AddRow("i2", "doc-1", "Vendor?", "ACME", at.Add(time.Second)))

	ctx := context.Background()
	if err := repo.AddInteraction(ctx, Interaction{ID: "i1", DocumentID: "doc-1", Prompt: "What is the total?", Response: "42", CreatedAt: at}); err != nil {
		t.Fatalf("AddInteraction: %v", err)
	}
	got, err := repo.ListInteractions(ctx, "doc-1")
	if err != nil {
		t.Fatalf("ListInteractions: %v", err)
	}
	if len(got) != 2 || got[0].ID != "i1" || got[1].Response != "ACME" {
		t.Fatalf("unexpected interactions: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
