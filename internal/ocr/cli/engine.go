// Package cli recognizes text by shelling out to the tesseract binary.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"docqa-backend/internal/ocr"
)

// Config locates the tesseract binary and its language data.
type Config struct {
	Tesseract   string
	TessdataDir string
	Languages   []string
	TempDir     string
}

// Engine writes the image to a temp file and runs `tesseract <file> stdout`.
type Engine struct {
	cfg    Config
	runner Runner
}

func New(cfg Config) *Engine {
	return NewWithRunner(cfg, execRunner{})
}

func NewWithRunner(cfg Config, runner Runner) *Engine {
	if strings.TrimSpace(cfg.Tesseract) == "" {
		cfg.Tesseract = "tesseract"
	}
	return &Engine{cfg: cfg, runner: runner}
}

func (e *Engine) Name() string { return "tesseract-cli" }

func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (string, error) {
	if len(in.Image) == 0 {
		return "", fmt.Errorf("empty image")
	}

	f, err := os.CreateTemp(e.cfg.TempDir, "ocr-*"+extensionFor(in.MimeType))
	if err != nil {
		return "", fmt.Errorf("create temp image: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(in.Image); err != nil {
		f.Close()
		return "", fmt.Errorf("write temp image: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temp image: %w", err)
	}

	langs := in.Languages
	if len(langs) == 0 {
		langs = e.cfg.Languages
	}
	args := []string{path, "stdout", "-l", ocr.LanguageArg(langs)}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		msg := strings.TrimSpace(string(errb))
		if msg != "" {
			return "", fmt.Errorf("tesseract: %w: %s", err, truncate(msg, 512))
		}
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return ocr.Normalize(string(out)), nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/tiff":
		return ".tiff"
	case "image/bmp":
		return ".bmp"
	default:
		return ".img"
	}
}

var _ ocr.Engine = (*Engine)(nil)
