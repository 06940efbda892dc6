package documents

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docqa-backend/internal/shared/server/middleware"
	"docqa-backend/internal/shared/server/respond"
	"docqa-backend/internal/uploads"
)

const (
	uploadMessage       = "Document uploaded successfully, processing started"
	multipartOverhead   = 1 << 20
	defaultMaxUploadLen = 10 << 20
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc            *Service
	Validators     []uploads.Validator
	MaxUploadBytes int64
}

// NewHandler constructs a Handler with the standard upload validators.
func NewHandler(svc *Service, maxUploadBytes int64, allowedMimeTypes []string) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadLen
	}
	return &Handler{
		Svc:            svc,
		MaxUploadBytes: maxUploadBytes,
		Validators: []uploads.Validator{
			uploads.MaxSizeValidator{MaxBytes: maxUploadBytes},
			uploads.MimeTypeValidator{Allowed: allowedMimeTypes},
			uploads.ImageDecodeValidator{},
		},
	}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.upload)
	rg.POST("/documents/upload", h.upload)
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
	rg.POST("/documents/:id/query", h.query)
	rg.GET("/documents/:id/export", h.export)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "file exceeds upload size limit", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "file is required", nil)
		return
	}

	candidate := &uploads.File{
		Name:     fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Size:     fileHeader.Size,
		Open: func() (io.ReadCloser, error) {
			return fileHeader.Open()
		},
	}
	if msg, ok := uploads.Check(candidate, h.Validators...); !ok {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, msg, nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "unable to read file", nil)
		return
	}
	defer file.Close()

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	res, err := h.Svc.Create(ctx, userID, Upload{
		FileName: fileHeader.Filename,
		MimeType: candidate.MimeType,
		Content:  file,
	})
	if err != nil {
		writeError(c, err, "failed to upload document")
		return
	}

	c.Set("documentId", res.DocumentID)
	c.Set("statusTransition", "none->PROCESSING")
	respond.Created(c, createResponse{
		DocumentID: res.DocumentID,
		Status:     res.Status,
		Message:    uploadMessage,
	})
}

func (h *Handler) list(c *gin.Context) {
	docs, err := h.Svc.FindAll(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to list documents")
		return
	}
	resp := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, toResponse(doc))
	}
	respond.OK(c, resp)
}

func (h *Handler) get(c *gin.Context) {
	doc, err := h.Svc.FindOne(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to fetch document")
		return
	}
	respond.OK(c, toDetailResponse(doc))
}

func (h *Handler) query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "prompt should not be empty", nil)
		return
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	res, err := h.Svc.Query(ctx, middleware.UserIDFromContext(c), c.Param("id"), req.Prompt)
	if err != nil {
		writeError(c, err, "failed to query document")
		return
	}
	respond.OK(c, queryResponse{Response: res.Response})
}

func (h *Handler) export(c *gin.Context) {
	out, err := h.Svc.GenerateDownloadableFile(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to export document")
		return
	}

	if strings.EqualFold(c.Query("format"), "json") {
		respond.OK(c, exportResponse{Content: string(out.Content), FileName: out.FileName})
		return
	}

	respond.Attachment(c, out.FileName, out.ContentType, out.Content)
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "document not found", nil)
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, respond.CodeForbidden, "you do not have access to this document", nil)
	case errors.Is(err, ErrNotReady):
		respond.Error(c, http.StatusConflict, respond.CodeNotReady, "document is still processing or failed extraction", nil)
	case errors.Is(err, ErrUpstream):
		respond.Error(c, http.StatusBadGateway, respond.CodeUpstream, "language model request failed", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, fallback, nil)
	}
}
