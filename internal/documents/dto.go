package documents

import "time"

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	ID            string                `json:"id"`
	FileName      string                `json:"fileName"`
	MimeType      string                `json:"mimeType"`
	SizeBytes     int64                 `json:"sizeBytes"`
	Status        Status                `json:"status"`
	ExtractedText *string               `json:"extractedText"`
	ExtractedAt   *time.Time            `json:"extractedAt,omitempty"`
	CreatedAt     time.Time             `json:"createdAt"`
	Interactions  []InteractionResponse `json:"interactions,omitempty"`
}

type InteractionResponse struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"createdAt"`
}

type createResponse struct {
	DocumentID string `json:"documentId"`
	Status     Status `json:"status"`
	Message    string `json:"message"`
}

type queryRequest struct {
	Prompt string `json:"prompt"`
}

type queryResponse struct {
	Response string `json:"response"`
}

type exportResponse struct {
	Content  string `json:"content"`
	FileName string `json:"fileName"`
}

func toResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		ID:            doc.ID,
		FileName:      doc.FileName,
		MimeType:      doc.MimeType,
		SizeBytes:     doc.SizeBytes,
		Status:        doc.Status,
		ExtractedText: doc.ExtractedText,
		ExtractedAt:   doc.ExtractedAt,
		CreatedAt:     doc.CreatedAt,
	}
}

func toDetailResponse(doc DocumentWithInteractions) DocumentResponse {
	resp := toResponse(doc.Document)
	resp.Interactions = make([]InteractionResponse, 0, len(doc.Interactions))
	for _, in := range doc.Interactions {
		resp.Interactions = append(resp.Interactions, InteractionResponse{
			ID:        in.ID,
			Prompt:    in.Prompt,
			Response:  in.Response,
			CreatedAt: in.CreatedAt,
		})
	}
	return resp
}
