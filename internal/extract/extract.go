// Package extract turns stored uploads into plain text.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoders for image.Decode
	_ "image/jpeg"
	"image/png"
	"io"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"docqa-backend/internal/ocr"
	"docqa-backend/internal/shared/storage/object"
)

var (
	// ErrNoText means recognition succeeded but produced no usable text.
	ErrNoText = errors.New("no text found in document")
	// ErrUnsupportedImage means the stored bytes could not be decoded as an image.
	ErrUnsupportedImage = errors.New("unsupported image")
)

// Source identifies a stored upload.
type Source struct {
	StorageKey string
	MimeType   string
	FileName   string
}

// Extractor produces trimmed, non-empty text for a stored upload or an error.
type Extractor interface {
	Extract(ctx context.Context, src Source) (string, error)
}

// OCRExtractor reads blobs from an object store and runs them through an OCR engine.
type OCRExtractor struct {
	store     object.ObjectStore
	engine    ocr.Engine
	languages []string
}

func NewOCRExtractor(store object.ObjectStore, engine ocr.Engine, languages []string) *OCRExtractor {
	return &OCRExtractor{store: store, engine: engine, languages: languages}
}

// Extract loads the blob and recognizes its text.
func (e *OCRExtractor) Extract(ctx context.Context, src Source) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	body, err := e.store.Open(ctx, src.StorageKey)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s mime=%s: %w", src.StorageKey, src.MimeType, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s mime=%s: read: %w", src.StorageKey, src.MimeType, err)
	}

	text, err := e.ExtractBytes(ctx, raw, src.MimeType)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s mime=%s: %w", src.StorageKey, src.MimeType, err)
	}
	return text, nil
}

// ExtractBytes recognizes text in an in-memory image.
func (e *OCRExtractor) ExtractBytes(ctx context.Context, data []byte, mimeType string) (string, error) {
	prepared, preparedType, err := PrepareImage(data, mimeType)
	if err != nil {
		return "", err
	}
	text, err := e.engine.Recognize(ctx, ocr.Input{
		Image:     prepared,
		MimeType:  preparedType,
		Languages: e.languages,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", e.engine.Name(), err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// PrepareImage passes PNG and JPEG through untouched and re-encodes any other
// decodable format (BMP, TIFF, WebP, GIF) as PNG.
func PrepareImage(data []byte, mimeType string) ([]byte, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty payload", ErrUnsupportedImage)
	}
	switch normalizeMimeType(mimeType) {
	case "image/png", "image/jpeg":
		return data, normalizeMimeType(mimeType), nil
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if format == "png" || format == "jpeg" {
		return data, "image/" + format, nil
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), "image/png", nil
}

func normalizeMimeType(mimeType string) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	if clean == "image/jpg" {
		return "image/jpeg"
	}
	return clean
}
