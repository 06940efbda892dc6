package documents

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"docqa-backend/internal/shared/server/middleware"
)

var testAllowedMimeTypes = []string{"image/png", "image/jpeg", "image/tiff"}

func setupDocumentsRouter(t *testing.T, svc *Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID())
	api := r.Group("/api/v1")
	api.Use(middleware.Auth("dev", nil))
	NewHandler(svc, 1<<20, testAllowedMimeTypes).RegisterRoutes(api)
	return r
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(2, 2, color.Black)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func multipartUpload(t *testing.T, fileName, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &body, w.FormDataContentType()
}

func doRequest(router http.Handler, method, path, guest string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if guest != "" {
		req.Header.Set("X-Guest-Id", guest)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func uploadPNG(t *testing.T, router http.Handler, guest string) string {
	t.Helper()
	body, ct := multipartUpload(t, "invoice.png", "image/png", pngBytes(t))
	resp := doRequest(router, http.MethodPost, "/api/v1/documents/upload", guest, body, ct)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created struct {
		DocumentID string `json:"documentId"`
		Status     string `json:"status"`
		Message    string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.DocumentID == "" || created.Status != "PROCESSING" || created.Message != uploadMessage {
		t.Fatalf("unexpected create response: %+v", created)
	}
	return created.DocumentID
}

func decodeErrorCode(t *testing.T, resp *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code, body.Error.Message
}

func TestUploadQueryAndExportFlow(t *testing.T) {
	svc := newTestService(t, &scriptedExtractor{text: "Total: $42"}, &echoLLM{})
	router := setupDocumentsRouter(t, svc)

	id := uploadPNG(t, router, "alice")
	svc.Wait()

	resp := doRequest(router, http.MethodGet, "/api/v1/documents/"+id, "alice", nil, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var detail DocumentResponse
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if detail.Status != StatusCompleted || detail.ExtractedText == nil || *detail.ExtractedText != "Total: $42" {
		t.Fatalf("unexpected detail: %+v", detail)
	}

	resp = doRequest(router, http.MethodPost, "/api/v1/documents/"+id+"/query", "alice",
		bytes.NewBufferString(`{"prompt":"What is the total?"}`), "application/json")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var answer queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		t.Fatalf("decode query: %v", err)
	}
	if !strings.Contains(answer.Response, "Total: $42") {
		t.Fatalf("unexpected response %q", answer.Response)
	}

	resp = doRequest(router, http.MethodGet, "/api/v1/documents/"+id+"/export", "alice", nil, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if got := resp.Header().Get("Content-Disposition"); got != `attachment; filename=invoice_analise.txt` {
		t.Fatalf("unexpected Content-Disposition %q", got)
	}
	if !strings.HasPrefix(resp.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("unexpected Content-Type %q", resp.Header().Get("Content-Type"))
	}
	if !strings.Contains(resp.Body.String(), "1. Prompt: What is the total?") {
		t.Fatalf("expected interaction in export:\n%s", resp.Body.String())
	}

	resp = doRequest(router, http.MethodGet, "/api/v1/documents/"+id+"/export?format=json", "alice", nil, "")
	var exported exportResponse
	if err := json.NewDecoder(resp.Body).Decode(&exported); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if exported.FileName != "invoice_analise.txt" || !strings.HasPrefix(exported.Content, "EXTRACTED TEXT") {
		t.Fatalf("unexpected json export: %+v", exported)
	}
}

func TestUploadRejectsDisallowedType(t *testing.T) {
	svc := newTestService(t, &scriptedExtractor{text: "x"}, &echoLLM{})
	router := setupDocumentsRouter(t, svc)

	body, ct := multipartUpload(t, "notes.txt", "text/plain", []byte("hello"))
	resp := doRequest(router, http.MethodPost, "/api/v1/documents/upload", "alice", body, ct)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	code, msg := decodeErrorCode(t, resp)
	if code != "validation_error" {
		t.Fatalf("unexpected code %q", code)
	}
	want := "Validation failed. Invalid file type: text/plain. Allowed types are: image/png, image/jpeg, image/tiff"
	if msg != want {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestUploadRejectsUndecodableImage(t *testing.T) {
	svc := newTestService(t, &scriptedExtractor{text: "x"}, &echoLLM{})
	router := setupDocumentsRouter(t, svc)

	body, ct := multipartUpload(t, "fake.png", "image/png", []byte("not really a png"))
	resp := doRequest(router, http.MethodPost, "/api/v1/documents/upload", "alice", body, ct)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestUploadRequiresFile(t *testing.T) {
	svc := newTestService(t, &scriptedExtractor{text: "x"}, &echoLLM{})
	router := setupDocumentsRouter(t, svc)

	resp := doRequest(router, http.MethodPost, "/api/v1/documents", "alice", bytes.NewBufferString("{}"), "application/json")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestQueryStatusCodes(t *testing.T) {
	extractor := &scriptedExtractor{text: "Total: $42", gate: make(chan struct{})}
	client := &echoLLM{}
	svc := newTestService(t, extractor, client)
	router := setupDocumentsRouter(t, svc)
	id := uploadPNG(t, router, "alice")

	query := func(guest, docID, prompt string) *httptest.ResponseRecorder {
		payload, _ := json.Marshal(map[string]string{"prompt": prompt})
		return doRequest(router, http.MethodPost, "/api/v1/documents/"+docID+"/query", guest, bytes.NewBuffer(payload), "application/json")
	}

	if resp := query("alice", id, "What is the total?"); resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 while processing, got %d", resp.Code)
	}
	close(extractor.gate)
	svc.Wait()

	if resp := query("bob", id, "What is the total?"); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for other owner, got %d", resp.Code)
	}
	if resp := query("alice", "missing", "What is the total?"); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing document, got %d", resp.Code)
	}
	resp := query("alice", id, "  ")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank prompt, got %d", resp.Code)
	}
	if _, msg := decodeErrorCode(t, resp); msg != "prompt should not be empty" {
		t.Fatalf("unexpected message %q", msg)
	}
	if client.Calls() != 0 {
		t.Fatalf("expected no completion calls, got %d", client.Calls())
	}

	client.mu.Lock()
	client.err = errors.New("openai status 503")
	client.mu.Unlock()
	if resp := query("alice", id, "What is the total?"); resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 on upstream failure, got %d", resp.Code)
	}
}

func TestListAndGetAreOwnerScoped(t *testing.T) {
	svc := newTestService(t, &scriptedExtractor{text: "x"}, &echoLLM{})
	router := setupDocumentsRouter(t, svc)
	id := uploadPNG(t, router, "alice")
	svc.Wait()

	resp := doRequest(router, http.MethodGet, "/api/v1/documents", "bob", nil, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var docs []DocumentResponse
	if err := json.NewDecoder(resp.Body).Decode(&docs); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected empty list for other owner, got %d", len(docs))
	}

	if resp := doRequest(router, http.MethodGet, "/api/v1/documents/"+id, "bob", nil, ""); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for other owner, got %d", resp.Code)
	}
	if resp := doRequest(router, http.MethodGet, "/api/v1/documents/"+id+"/export", "bob", nil, ""); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 export for other owner, got %d", resp.Code)
	}
}

func TestRoutesRequireIdentity(t *testing.T) {
	svc := newTestService(t, &scriptedExtractor{text: "x"}, &echoLLM{})
	router := setupDocumentsRouter(t, svc)

	if resp := doRequest(router, http.MethodGet, "/api/v1/documents", "", nil, ""); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", resp.Code)
	}
}
