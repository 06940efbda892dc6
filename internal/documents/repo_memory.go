package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo used in dev and tests.
type MemoryRepo struct {
	mu           sync.RWMutex
	docs         map[string]Document
	interactions map[string][]Interaction // documentID -> interactions
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		docs:         make(map[string]Document),
		interactions: make(map[string][]Interaction),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = doc
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// ListByOwner returns the owner's documents, newest first with ID as tiebreaker.
func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Document, 0)
	for _, doc := range r.docs {
		if doc.OwnerID == ownerID {
			out = append(out, doc)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *MemoryRepo) MarkCompleted(ctx context.Context, id, text string, at time.Time) error {
	return r.finalize(ctx, id, func(doc *Document) {
		doc.Status = StatusCompleted
		doc.ExtractedText = &text
		doc.ExtractedAt = &at
	})
}

func (r *MemoryRepo) MarkFailed(ctx context.Context, id string, at time.Time) error {
	return r.finalize(ctx, id, func(doc *Document) {
		doc.Status = StatusFailed
		doc.ExtractedText = nil
		doc.ExtractedAt = &at
	})
}

func (r *MemoryRepo) finalize(ctx context.Context, id string, apply func(*Document)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return ErrNotFound
	}
	if doc.Status != StatusProcessing {
		return ErrAlreadyFinalized
	}
	apply(&doc)
	r.docs[id] = doc
	return nil
}

func (r *MemoryRepo) AddInteraction(ctx context.Context, in Interaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[in.DocumentID]; !ok {
		return ErrNotFound
	}
	r.interactions[in.DocumentID] = append(r.interactions[in.DocumentID], in)
	return nil
}

// ListInteractions returns interactions oldest first with ID as tiebreaker.
func (r *MemoryRepo) ListInteractions(ctx context.Context, documentID string) ([]Interaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := append([]Interaction{}, r.interactions[documentID]...)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
