package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"docqa/internal/rag/schema"
	"docqa/internal/service"
	"docqa/pkg/logger"
)

// API provides the HTTP handlers of the document QA service.
type API struct {
	service       *service.DocQAService
	maxUploadSize int64
	logger        *logger.Logger
}

// NewAPI creates a new API handler.
func NewAPI(svc *service.DocQAService, maxUploadSize int64, log *logger.Logger) *API {
	return &API{
		service:       svc,
		maxUploadSize: maxUploadSize,
		logger:        log,
	}
}

// UploadHandler ingests one or more files sent as multipart form data
// under the "file" field. Files are processed concurrently and fail
// independently.
func (a *API) UploadHandler(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected multipart form data"})
		return
	}
	fileHeaders := form.File["file"]
	if len(fileHeaders) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files in \"file\" field"})
		return
	}

	var uploads []service.Upload
	for _, header := range fileHeaders {
		if header.Size > a.maxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "file " + header.Filename + " exceeds the upload size limit",
			})
			return
		}
		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file " + header.Filename})
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file " + header.Filename})
			return
		}
		uploads = append(uploads, service.Upload{Filename: header.Filename, Data: data})
	}

	results := a.service.IngestBatch(c.Request.Context(), uploads)

	type fileResult struct {
		Filename string           `json:"filename"`
		Document *schema.Document `json:"document,omitempty"`
		Error    string           `json:"error,omitempty"`
	}
	out := make([]fileResult, len(results))
	failed := 0
	for i, res := range results {
		out[i] = fileResult{Filename: res.Filename, Document: res.Document}
		if res.Err != nil {
			out[i].Error = res.Err.Error()
			failed++
			a.logger.WithError(res.Err).WithField("filename", res.Filename).Warn("ingestion failed")
		}
	}

	status := http.StatusOK
	if failed == len(results) {
		status = statusFor(results[0].Err)
	} else if failed > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, gin.H{"results": out})
}

type askRequest struct {
	Question   string `json:"question" binding:"required"`
	TopK       int    `json:"top_k"`
	DocumentID string `json:"document_id"`
}

// AskHandler answers a question from the indexed corpus.
func (a *API) AskHandler(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	answer, err := a.service.Ask(c.Request.Context(), req.Question, req.TopK, req.DocumentID)
	if err != nil {
		a.logger.WithError(err).Warn("failed to answer question")
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, answer)
}

// ListDocumentsHandler returns all ingested documents.
func (a *API) ListDocumentsHandler(c *gin.Context) {
	docs, err := a.service.ListDocuments(c.Request.Context())
	if err != nil {
		a.logger.WithError(err).Error("failed to list documents")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list documents"})
		return
	}
	if docs == nil {
		docs = []*schema.Document{}
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

// GetDocumentHandler returns one document by ID.
func (a *API) GetDocumentHandler(c *gin.Context) {
	doc, err := a.service.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// DeleteDocumentHandler removes a document and its chunks.
func (a *API) DeleteDocumentHandler(c *gin.Context) {
	if err := a.service.DeleteDocument(c.Request.Context(), c.Param("id")); err != nil {
		a.logger.WithError(err).Warn("failed to delete document")
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// HealthHandler reports service liveness and store reachability.
func (a *API) HealthHandler(c *gin.Context) {
	if err := a.service.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, schema.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, schema.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, schema.ErrExtraction), errors.Is(err, schema.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, schema.ErrEmbedding), errors.Is(err, schema.ErrGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
