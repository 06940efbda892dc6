package documents

import (
	"context"
	"time"
)

// Repo defines persistence operations for documents and their interactions.
//
// MarkCompleted and MarkFailed only apply to documents still in PROCESSING;
// otherwise they return ErrAlreadyFinalized.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, id string) (Document, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Document, error)
	MarkCompleted(ctx context.Context, id, text string, at time.Time) error
	MarkFailed(ctx context.Context, id string, at time.Time) error
	AddInteraction(ctx context.Context, in Interaction) error
	ListInteractions(ctx context.Context, documentID string) ([]Interaction, error)
}
