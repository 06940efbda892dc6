package documents

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"docqa-backend/internal/extract"
	"docqa-backend/internal/llm"
	"docqa-backend/internal/shared/storage/object/local"
)

// scriptedExtractor returns a fixed result, optionally after gate is closed.
type scriptedExtractor struct {
	text  string
	err   error
	panic bool
	gate  chan struct{}
	calls int32
}

func (e *scriptedExtractor) Extract(ctx context.Context, src extract.Source) (string, error) {
	atomic.AddInt32(&e.calls, 1)
	if e.gate != nil {
		<-e.gate
	}
	if e.panic {
		panic("ocr engine crashed")
	}
	return e.text, e.err
}

// echoLLM answers with its context and prompt and counts calls.
type echoLLM struct {
	mu    sync.Mutex
	calls int
	last  llm.Request
	err   error
}

func (e *echoLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.last = req
	if e.err != nil {
		return "", e.err
	}
	return "Context: " + req.Context + " | Question: " + req.Prompt, nil
}

func (e *echoLLM) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type failingCreateRepo struct {
	*MemoryRepo
}

func (r failingCreateRepo) Create(ctx context.Context, doc Document) error {
	return errors.New("database unavailable")
}

func newTestService(t *testing.T, extractor extract.Extractor, client llm.Client) *Service {
	t.Helper()
	return &Service{
		Repo:      NewMemoryRepo(),
		Store:     local.New(t.TempDir()),
		Extractor: extractor,
		LLM:       client,
	}
}

func stepClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := current
		current = current.Add(step)
		return now
	}
}

func createInvoice(t *testing.T, svc *Service, owner string) string {
	t.Helper()
	res, err := svc.Create(context.Background(), owner, Upload{
		FileName: "invoice.png",
		MimeType: "image/png",
		Content:  strings.NewReader("\x89PNG\r\n\x1a\nfake-image"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.DocumentID == "" || res.Status != StatusProcessing {
		t.Fatalf("unexpected create result: %+v", res)
	}
	return res.DocumentID
}
