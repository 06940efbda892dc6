// Package uploads validates incoming files before they reach the document service.
package uploads

import (
	"fmt"
	"image"
	_ "image/gif" // register decoders for image.DecodeConfig
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// File is the boundary view of an uploaded file.
type File struct {
	Name     string
	MimeType string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// Validator checks one property of an upload and explains a failure.
type Validator interface {
	Validate(f *File) bool
	Message(f *File) string
}

// Check runs validators in order and returns the first failure message.
func Check(f *File, validators ...Validator) (string, bool) {
	for _, v := range validators {
		if !v.Validate(f) {
			return v.Message(f), false
		}
	}
	return "", true
}

// MimeTypeValidator accepts only declared MIME types from an allow-list.
type MimeTypeValidator struct {
	Allowed []string
}

func (v MimeTypeValidator) Validate(f *File) bool {
	if f == nil {
		return false
	}
	declared := normalizeMimeType(f.MimeType)
	for _, allowed := range v.Allowed {
		if declared == normalizeMimeType(allowed) {
			return true
		}
	}
	return false
}

func (v MimeTypeValidator) Message(f *File) string {
	mimeType := "unknown"
	if f != nil && strings.TrimSpace(f.MimeType) != "" {
		mimeType = f.MimeType
	}
	return fmt.Sprintf("Validation failed. Invalid file type: %s. Allowed types are: %s", mimeType, strings.Join(v.Allowed, ", "))
}

// MaxSizeValidator rejects empty files and files larger than MaxBytes.
type MaxSizeValidator struct {
	MaxBytes int64
}

func (v MaxSizeValidator) Validate(f *File) bool {
	if f == nil || f.Size <= 0 {
		return false
	}
	return v.MaxBytes <= 0 || f.Size <= v.MaxBytes
}

func (v MaxSizeValidator) Message(f *File) string {
	if f == nil || f.Size <= 0 {
		return "Validation failed. File is empty."
	}
	return fmt.Sprintf("Validation failed. File size %d exceeds the limit of %d bytes", f.Size, v.MaxBytes)
}

// ImageDecodeValidator checks that the content really is a decodable image.
type ImageDecodeValidator struct{}

func (ImageDecodeValidator) Validate(f *File) bool {
	if f == nil || f.Open == nil {
		return false
	}
	rc, err := f.Open()
	if err != nil {
		return false
	}
	defer rc.Close()
	cfg, _, err := image.DecodeConfig(rc)
	if err != nil {
		return false
	}
	return cfg.Width > 0 && cfg.Height > 0
}

func (ImageDecodeValidator) Message(f *File) string {
	return "Validation failed. File content is not a readable image."
}

func normalizeMimeType(mimeType string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
}
