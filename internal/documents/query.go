package documents

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"docqa-backend/internal/extract"
	"docqa-backend/internal/llm"
	"docqa-backend/internal/shared/metrics"
	"docqa-backend/internal/shared/telemetry"
)

// Query answers a prompt about a completed document and records the interaction.
// Ownership is checked before readiness, and both before the model is called.
func (s *Service) Query(ctx context.Context, userID, documentID, prompt string) (QueryResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return QueryResult{}, fmt.Errorf("%w: prompt is required", ErrInvalidInput)
	}

	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return QueryResult{}, err
	}
	if doc.OwnerID != userID {
		return QueryResult{}, ErrForbidden
	}
	if doc.Status != StatusCompleted || doc.ExtractedText == nil {
		return QueryResult{}, ErrNotReady
	}

	req := llm.Request{Context: *doc.ExtractedText, Prompt: prompt}
	if strings.HasPrefix(strings.ToLower(doc.MimeType), "image/") {
		img, err := s.loadImage(ctx, doc)
		if err != nil {
			return QueryResult{}, err
		}
		req.Image = img
	}

	metrics.IncQuery()
	startedAt := s.now()
	response, err := s.LLM.Complete(ctx, req)
	finishedAt := s.now()
	metrics.ObserveQueryDurationMs(durationMs(startedAt, finishedAt))
	if err != nil {
		metrics.IncQueryFailed()
		telemetry.Error("document.query_failed", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"user_id":     userID,
			"document_id": doc.ID,
			"error":       err,
		})
		return QueryResult{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	interaction := Interaction{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		Prompt:     prompt,
		Response:   response,
		CreatedAt:  finishedAt,
	}
	if err := s.Repo.AddInteraction(ctx, interaction); err != nil {
		return QueryResult{}, fmt.Errorf("save interaction: %w", err)
	}

	telemetry.Info("document.query", map[string]any{
		"request_id":     requestIDFromContext(ctx),
		"user_id":        userID,
		"document_id":    doc.ID,
		"interaction_id": interaction.ID,
		"has_image":      req.Image != nil,
		"duration_ms":    durationMs(startedAt, finishedAt),
	})
	return QueryResult{Response: response}, nil
}

func (s *Service) loadImage(ctx context.Context, doc Document) (*llm.Image, error) {
	body, err := s.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("open document image: %w", err)
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read document image: %w", err)
	}
	// Vision input takes PNG and JPEG; other stored formats are re-encoded.
	prepared, mimeType, err := extract.PrepareImage(data, doc.MimeType)
	if err != nil {
		return nil, fmt.Errorf("prepare document image: %w", err)
	}
	return &llm.Image{MimeType: mimeType, Data: prepared}, nil
}

