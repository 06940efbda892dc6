package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"docqa-backend/internal/extract"
	"docqa-backend/internal/llm"
	"docqa-backend/internal/shared/metrics"
	"docqa-backend/internal/shared/storage/object"
	"docqa-backend/internal/shared/telemetry"
	"docqa-backend/internal/shared/util"
)

// Service owns the document lifecycle: upload, background extraction, queries and export.
type Service struct {
	Repo      Repo
	Store     object.ObjectStore
	Extractor extract.Extractor
	LLM       llm.Client
	Now       func() time.Time

	wg sync.WaitGroup
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Create stores the upload, records a PROCESSING document and starts extraction
// in the background. It returns before extraction runs.
func (s *Service) Create(ctx context.Context, ownerID string, up Upload) (CreateResult, error) {
	if strings.TrimSpace(ownerID) == "" || strings.TrimSpace(up.FileName) == "" || up.Content == nil {
		return CreateResult{}, ErrInvalidInput
	}

	stored, err := s.Store.Save(ctx, ownerID, up.FileName, up.Content)
	if err != nil {
		if errors.Is(err, util.ErrInvalidFileName) {
			return CreateResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return CreateResult{}, fmt.Errorf("save upload: %w", err)
	}

	mimeType := strings.TrimSpace(up.MimeType)
	if mimeType == "" {
		mimeType = stored.MimeType
	}

	doc := Document{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		FileName:   up.FileName,
		StorageKey: stored.Key,
		MimeType:   mimeType,
		SizeBytes:  stored.SizeBytes,
		Status:     StatusProcessing,
		CreatedAt:  s.now(),
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		if delErr := s.Store.Delete(context.Background(), stored.Key); delErr != nil {
			telemetry.Error("document.blob_cleanup_failed", map[string]any{
				"storage_key": stored.Key,
				"error":       delErr,
			})
		}
		return CreateResult{}, fmt.Errorf("create document: %w", err)
	}

	telemetry.Info("document.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           ownerID,
		"document_id":       doc.ID,
		"status":            StatusProcessing,
		"status_transition": "none->PROCESSING",
		"mime_type":         mimeType,
		"size_bytes":        doc.SizeBytes,
	})

	s.wg.Add(1)
	go s.extractAsync(detach(ctx), doc)

	return CreateResult{DocumentID: doc.ID, Status: StatusProcessing}, nil
}

// Wait blocks until every background extraction started so far has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// WaitContext is Wait bounded by ctx. When ctx expires first, the helper
// goroutine stays blocked until the remaining extractions finish.
func (s *Service) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FindAll returns the owner's documents, newest first.
func (s *Service) FindAll(ctx context.Context, ownerID string) ([]Document, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByOwner(ctx, ownerID)
}

// FindOne returns the document with its interactions. Documents owned by someone
// else are reported as ErrNotFound.
func (s *Service) FindOne(ctx context.Context, ownerID, documentID string) (DocumentWithInteractions, error) {
	if strings.TrimSpace(documentID) == "" {
		return DocumentWithInteractions{}, ErrNotFound
	}
	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return DocumentWithInteractions{}, err
	}
	if doc.OwnerID != ownerID {
		return DocumentWithInteractions{}, ErrNotFound
	}
	interactions, err := s.Repo.ListInteractions(ctx, doc.ID)
	if err != nil {
		return DocumentWithInteractions{}, fmt.Errorf("list interactions: %w", err)
	}
	return DocumentWithInteractions{Document: doc, Interactions: interactions}, nil
}

func (s *Service) extractAsync(ctx context.Context, doc Document) {
	defer s.wg.Done()
	startedAt := s.now()
	defer func() {
		if r := recover(); r != nil {
			s.failExtraction(ctx, doc, fmt.Errorf("panic: %v", r), startedAt)
		}
	}()

	metrics.IncExtractionStarted()

	if s.Extractor == nil {
		s.failExtraction(ctx, doc, errors.New("no extractor configured"), startedAt)
		return
	}
	text, err := s.Extractor.Extract(ctx, extract.Source{
		StorageKey: doc.StorageKey,
		MimeType:   doc.MimeType,
		FileName:   doc.FileName,
	})
	if err == nil && strings.TrimSpace(text) == "" {
		err = extract.ErrNoText
	}
	if err != nil {
		s.failExtraction(ctx, doc, err, startedAt)
		return
	}

	completedAt := s.now()
	if err := s.Repo.MarkCompleted(ctx, doc.ID, text, completedAt); err != nil {
		if errors.Is(err, ErrAlreadyFinalized) {
			telemetry.Error("document.finalize_skipped", map[string]any{
				"request_id":  requestIDFromContext(ctx),
				"document_id": doc.ID,
				"error":       err,
			})
			return
		}
		s.failExtraction(ctx, doc, fmt.Errorf("mark completed: %w", err), startedAt)
		return
	}

	metrics.IncExtractionCompleted()
	metrics.ObserveExtractionDurationMs(durationMs(startedAt, completedAt))
	telemetry.Info("document.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           doc.OwnerID,
		"document_id":       doc.ID,
		"status":            StatusCompleted,
		"status_transition": "PROCESSING->COMPLETED",
		"text_length":       len(text),
		"duration_ms":       durationMs(startedAt, completedAt),
	})
}

func (s *Service) failExtraction(ctx context.Context, doc Document, cause error, startedAt time.Time) {
	failedAt := s.now()
	if err := s.Repo.MarkFailed(context.Background(), doc.ID, failedAt); err != nil {
		telemetry.Error("document.mark_failed_error", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"document_id": doc.ID,
			"error":       err,
			"cause":       cause,
		})
		return
	}
	metrics.IncExtractionFailed()
	metrics.ObserveExtractionDurationMs(durationMs(startedAt, failedAt))
	telemetry.Info("document.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           doc.OwnerID,
		"document_id":       doc.ID,
		"status":            StatusFailed,
		"status_transition": "PROCESSING->FAILED",
		"error":             cause.Error(),
		"duration_ms":       durationMs(startedAt, failedAt),
	})
}

func durationMs(startedAt, completedAt time.Time) float64 {
	return float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0
}
