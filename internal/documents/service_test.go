package documents

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"docqa-backend/internal/extract"
)

func TestCreateIsProcessingUntilExtractionFinishes(t *testing.T) {
	extractor := &scriptedExtractor{text: "Total: $42", gate: make(chan struct{})}
	svc := newTestService(t, extractor, &echoLLM{})

	id := createInvoice(t, svc, "u1")

	doc, err := svc.FindOne(context.Background(), "u1", id)
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if doc.Status != StatusProcessing {
		t.Fatalf("expected PROCESSING, got %s", doc.Status)
	}
	if doc.ExtractedText != nil {
		t.Fatalf("expected nil extracted text while processing")
	}
	if doc.FileName != "invoice.png" || doc.MimeType != "image/png" || doc.OwnerID != "u1" {
		t.Fatalf("unexpected document fields: %+v", doc.Document)
	}

	close(extractor.gate)
	svc.Wait()

	doc, err = svc.FindOne(context.Background(), "u1", id)
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if doc.Status != StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", doc.Status)
	}
	if doc.ExtractedText == nil || *doc.ExtractedText != "Total: $42" {
		t.Fatalf("unexpected extracted text: %v", doc.ExtractedText)
	}
	if doc.ExtractedAt == nil {
		t.Fatalf("expected ExtractedAt to be set")
	}
}

func TestExtractionFailuresMarkFailed(t *testing.T) {
	tests := []struct {
		name      string
		extractor *scriptedExtractor
	}{
		{name: "extractor error", extractor: &scriptedExtractor{err: errors.New("tesseract: exit status 1")}},
		{name: "no text", extractor: &scriptedExtractor{err: extract.ErrNoText}},
		{name: "whitespace only", extractor: &scriptedExtractor{text: "  \n\t"}},
		{name: "panic", extractor: &scriptedExtractor{panic: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, tt.extractor, &echoLLM{})
			id := createInvoice(t, svc, "u1")
			svc.Wait()

			doc, err := svc.FindOne(context.Background(), "u1", id)
			if err != nil {
				t.Fatalf("FindOne: %v", err)
			}
			if doc.Status != StatusFailed {
				t.Fatalf("expected FAILED, got %s", doc.Status)
			}
			if doc.ExtractedText != nil {
				t.Fatalf("expected nil extracted text on failure")
			}
		})
	}
}

func TestNilExtractorMarksFailed(t *testing.T) {
	svc := newTestService(t, nil, &echoLLM{})
	id := createInvoice(t, svc, "u1")
	svc.Wait()

	doc, err := svc.FindOne(context.Background(), "u1", id)
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if doc.Status != StatusFailed {
		t.Fatalf("expected FAILED, got %s", doc.Status)
	}
}

func TestExtractionRunsOncePerDocument(t *testing.T) {
	extractor := &scriptedExtractor{text: "hello"}
	svc := newTestService(t, extractor, &echoLLM{})
	createInvoice(t, svc, "u1")
	createInvoice(t, svc, "u1")
	svc.Wait()

	if extractor.calls != 2 {
		t.Fatalf("expected 2 extractor calls, got %d", extractor.calls)
	}
}

func TestCreateValidatesInput(t *testing.T) {
	svc := newTestService(t, &scriptedExtractor{text: "x"}, &echoLLM{})

	cases := []struct {
		owner string
		up    Upload
	}{
		{owner: "", up: Upload{FileName: "a.png", Content: strings.NewReader("x")}},
		{owner: "u1", up: Upload{FileName: "  ", Content: strings.NewReader("x")}},
		{owner: "u1", up: Upload{FileName: "a.png"}},
		{owner: "u1", up: Upload{FileName: "../../etc/passwd", Content: strings.NewReader("x")}},
	}
	for _, tc := range cases {
		if _, err := svc.Create(context.Background(), tc.owner, tc.up); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %+v, got %v", tc, err)
		}
	}
	svc.Wait()
}

func TestCreateFallsBackToSniffedMimeType(t *testing.T) {
	svc := newTestService(t, &scriptedExtractor{text: "x"}, &echoLLM{})
	res, err := svc.Create(context.Background(), "u1", Upload{
		FileName: "scan",
		Content:  strings.NewReader("\x89PNG\r\n\x1a\nbody"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	svc.Wait()

	doc, err := svc.Repo.GetByID(context.Background(), res.DocumentID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if doc.MimeType != "image/png" {
		t.Fatalf("expected sniffed image/png, got %q", doc.MimeType)
	}
}

func TestCreatePersistenceFailureIsReturned(t *testing.T) {
	extractor := &scriptedExtractor{text: "x"}
	svc := newTestService(t, extractor, &echoLLM{})
	svc.Repo = failingCreateRepo{MemoryRepo: NewMemoryRepo()}

	_, err := svc.Create(context.Background(), "u1", Upload{FileName: "a.png", MimeType: "image/png", Content: strings.NewReader("x")})
	if err == nil || errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	svc.Wait()
	if extractor.calls != 0 {
		t.Fatalf("expected no extraction for unpersisted document")
	}
}

func TestFindAllNewestFirstAndScopedToOwner(t *testing.T) {
	svc := newTestService(t, &scriptedExtractor{text: "x"}, &echoLLM{})
	svc.Now = stepClock(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), time.Minute)

	first := createInvoice(t, svc, "u1")
	second := createInvoice(t, svc, "u1")
	createInvoice(t, svc, "u2")
	svc.Wait()

	docs, err := svc.FindAll(context.Background(), "u1")
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].ID != second || docs[1].ID != first {
		t.Fatalf("expected newest first, got %s then %s", docs[0].ID, docs[1].ID)
	}
}

func TestFindOneHidesOtherOwnersDocuments(t *testing.T) {
	svc := newTestService(t, &scriptedExtractor{text: "x"}, &echoLLM{})
	id := createInvoice(t, svc, "u1")
	svc.Wait()

	if _, err := svc.FindOne(context.Background(), "u2", id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other owner, got %v", err)
	}
	if _, err := svc.FindOne(context.Background(), "u1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing id, got %v", err)
	}
}

func TestWaitContextTimesOut(t *testing.T) {
	extractor := &scriptedExtractor{text: "x", gate: make(chan struct{})}
	svc := newTestService(t, extractor, &echoLLM{})
	createInvoice(t, svc, "u1")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := svc.WaitContext(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	close(extractor.gate)
	if err := svc.WaitContext(context.Background()); err != nil {
		t.Fatalf("expected wait to finish, got %v", err)
	}
}
