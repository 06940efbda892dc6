package llm

import "strings"

// SystemPrompt instructs the model to stay grounded in the document.
const SystemPrompt = "You are an assistant that answers questions about a single uploaded document. " +
	"Answer using the document's extracted text and, when provided, the original image. " +
	"If the document does not contain the answer, say so plainly."

// UserMessage renders the extracted text and the user's question as one message.
func UserMessage(req Request) string {
	var b strings.Builder
	b.WriteString("Document text (extracted by OCR):\n")
	b.WriteString("\"\"\"\n")
	b.WriteString(req.Context)
	if !strings.HasSuffix(req.Context, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("\"\"\"\n\n")
	b.WriteString("Question: ")
	b.WriteString(req.Prompt)
	return b.String()
}
