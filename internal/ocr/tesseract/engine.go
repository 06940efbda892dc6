// Package tesseract recognizes text through libtesseract via gosseract.
package tesseract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"docqa-backend/internal/ocr"
)

// Engine runs OCR in-process. A fresh client is created per call since
// gosseract clients are not safe for concurrent use.
type Engine struct {
	clientFactory func() *gosseract.Client
	languages     []string
	tessdataDir   string
}

// New constructs an engine using the given default languages.
func New(languages []string, tessdataDir string) *Engine {
	return &Engine{
		clientFactory: gosseract.NewClient,
		languages:     languages,
		tessdataDir:   tessdataDir,
	}
}

func (e *Engine) Name() string { return "tesseract" }

// Recognize returns the plain text found in the image.
func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(in.Image) == 0 {
		return "", fmt.Errorf("empty image")
	}

	c := e.clientFactory()
	defer c.Close()

	if e.tessdataDir != "" {
		c.TessdataPrefix = e.tessdataDir
	}
	langs := in.Languages
	if len(langs) == 0 {
		langs = e.languages
	}
	if len(langs) > 0 {
		if err := c.SetLanguage(langs...); err != nil {
			return "", fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetImageFromBytes(in.Image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return ocr.Normalize(text), nil
}

var _ ocr.Engine = (*Engine)(nil)
