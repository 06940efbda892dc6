package documents

import (
	"io"
	"time"
)

// Status is the extraction lifecycle state of a document.
type Status string

const (
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Document represents an uploaded document owned by a user.
// ExtractedText is non-nil exactly when Status is COMPLETED.
type Document struct {
	ID            string
	OwnerID       string
	FileName      string
	StorageKey    string
	MimeType      string
	SizeBytes     int64
	Status        Status
	ExtractedText *string
	ExtractedAt   *time.Time
	CreatedAt     time.Time
}

// Interaction is one prompt/response pair recorded against a document.
type Interaction struct {
	ID         string
	DocumentID string
	Prompt     string
	Response   string
	CreatedAt  time.Time
}

// DocumentWithInteractions is a document plus its interactions, oldest first.
type DocumentWithInteractions struct {
	Document
	Interactions []Interaction
}

// Upload is a file handed to Create after boundary validation.
type Upload struct {
	FileName string
	MimeType string
	Content  io.Reader
}

type CreateResult struct {
	DocumentID string
	Status     Status
}

type QueryResult struct {
	Response string
}

// Export is a rendered report ready for download.
type Export struct {
	FileName    string
	Content     []byte
	ContentType string
}
