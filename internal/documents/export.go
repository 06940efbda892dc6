package documents

import (
	"context"
	"path"
	"strconv"
	"strings"
)

const (
	exportSuffix          = "_analise.txt"
	exportContentType     = "text/plain; charset=utf-8"
	noTextPlaceholder     = "No text was extracted from this document."
	noInteractionsMessage = "No interactions have been recorded for this document."
)

// GenerateDownloadableFile renders the extracted text and interaction history as a
// plain-text report. Output depends only on stored data, so repeated calls match byte for byte.
func (s *Service) GenerateDownloadableFile(ctx context.Context, userID, documentID string) (Export, error) {
	doc, err := s.FindOne(ctx, userID, documentID)
	if err != nil {
		return Export{}, err
	}
	return Export{
		FileName:    ExportFileName(doc.FileName),
		Content:     []byte(renderReport(doc)),
		ContentType: exportContentType,
	}, nil
}

func renderReport(doc DocumentWithInteractions) string {
	var b strings.Builder

	writeHeading(&b, "EXTRACTED TEXT")
	if doc.ExtractedText != nil {
		b.WriteString(*doc.ExtractedText)
	} else {
		b.WriteString(noTextPlaceholder)
	}
	b.WriteString("\n\n")

	writeHeading(&b, "INTERACTIONS")
	if len(doc.Interactions) == 0 {
		b.WriteString(noInteractionsMessage)
		b.WriteString("\n")
		return b.String()
	}
	for i, in := range doc.Interactions {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". Prompt: ")
		b.WriteString(in.Prompt)
		b.WriteString("\n   Response: ")
		b.WriteString(in.Response)
		b.WriteString("\n")
	}
	return b.String()
}

func writeHeading(b *strings.Builder, title string) {
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", len(title)))
	b.WriteString("\n")
}

// ExportFileName strips directories and the final extension from name and appends the export suffix.
func ExportFileName(name string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if base == "." || base == "/" {
		base = "document"
	}
	if ext := path.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return base + exportSuffix
}
