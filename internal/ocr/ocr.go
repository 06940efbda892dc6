// Package ocr defines the text recognition contract used by document extraction.
package ocr

import (
	"context"
	"regexp"
	"strings"
)

// Input is a single image to recognize. Image holds encoded bytes in a format
// tesseract reads natively (PNG, JPEG, TIFF, BMP).
type Input struct {
	Image     []byte
	MimeType  string
	Languages []string
}

// Engine recognizes text in an image.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, in Input) (string, error)
}

var (
	reTrailingSpace = regexp.MustCompile(`[ \t]+\n`)
	reBlankRuns     = regexp.MustCompile(`\n{3,}`)
)

// Normalize unifies line endings, strips trailing whitespace on each line and
// collapses runs of blank lines.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\f", "\n")
	text = reTrailingSpace.ReplaceAllString(text, "\n")
	text = reBlankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// LanguageArg joins languages in tesseract's "eng+deu" form, defaulting to eng.
func LanguageArg(langs []string) string {
	cleaned := make([]string, 0, len(langs))
	for _, l := range langs {
		if l = strings.TrimSpace(l); l != "" {
			cleaned = append(cleaned, l)
		}
	}
	if len(cleaned) == 0 {
		return "eng"
	}
	return strings.Join(cleaned, "+")
}
