package llm

import (
	"context"
	"errors"
)

// Image is an optional visual attachment sent alongside the prompt.
type Image struct {
	MimeType string
	Data     []byte
}

// Request carries everything a provider needs to answer a question about a document.
type Request struct {
	Context string
	Prompt  string
	Image   *Image
}

// Client abstracts LLM providers for document question answering.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ErrNotImplemented is returned by the placeholder client.
var ErrNotImplemented = errors.New("LLM not implemented")

// PlaceholderClient is used when no provider is configured.
type PlaceholderClient struct{}

// Complete returns ErrNotImplemented.
func (PlaceholderClient) Complete(ctx context.Context, req Request) (string, error) {
	_ = ctx
	_ = req
	return "", ErrNotImplemented
}
