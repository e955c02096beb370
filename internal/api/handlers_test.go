package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"docqa/internal/config"
	"docqa/internal/rag/pipeline"
	"docqa/internal/rag/schema"
	"docqa/internal/rag/splitters"
	"docqa/internal/rag/storages/vectorstore"
	"docqa/internal/service"
	"docqa/pkg/logger"
)

type staticEmbedder struct{}

func (staticEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

type memDocStore struct {
	docs map[string]*schema.Document
}

func (m *memDocStore) CreateDocument(ctx context.Context, doc *schema.Document) error {
	m.docs[doc.ID] = doc
	return nil
}

func (m *memDocStore) GetDocument(ctx context.Context, id string) (*schema.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", schema.ErrDocumentNotFound, id)
	}
	return doc, nil
}

func (m *memDocStore) ListDocuments(ctx context.Context) ([]*schema.Document, error) {
	var docs []*schema.Document
	for _, doc := range m.docs {
		docs = append(docs, doc)
	}
	return docs, nil
}

func (m *memDocStore) DeleteDocument(ctx context.Context, id string) error {
	if _, ok := m.docs[id]; !ok {
		return fmt.Errorf("%w: %s", schema.ErrDocumentNotFound, id)
	}
	delete(m.docs, id)
	return nil
}

type staticLLM struct{}

func (staticLLM) Generate(ctx context.Context, prompt string) (string, error) {
	return "generated", nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.New("api-test")

	splitter, err := splitters.NewSentenceSplitter(200, 20)
	if err != nil {
		t.Fatalf("NewSentenceSplitter() error = %v", err)
	}
	docs := &memDocStore{docs: make(map[string]*schema.Document)}
	index := vectorstore.NewMemoryIndex(0)
	embedder := staticEmbedder{}

	svc, err := service.NewDocQAService(
		pipeline.NewIndexingPipeline(splitter, embedder, index, docs, log),
		pipeline.NewRetrievalPipeline(embedder, index, 5, 0.3, log),
		pipeline.NewQAPipeline(staticLLM{}, 6000, log),
		docs,
		index,
		log,
	)
	if err != nil {
		t.Fatalf("NewDocQAService() error = %v", err)
	}
	t.Cleanup(svc.Close)

	router, err := NewRouter(NewAPI(svc, 1<<20, log), config.ServerConfig{MaxUploadSize: 1 << 20})
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	return router
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	writer.Close()
	return body, writer.FormDataContentType()
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", rec.Code)
	}
}

func TestUploadAndAsk(t *testing.T) {
	router := newTestRouter(t)

	body, contentType := multipartBody(t, "facts.txt", "The capital of France is Paris.")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /upload = %d, body %s", rec.Code, rec.Body.String())
	}

	askBody := strings.NewReader(`{"question": "what is the capital of France?"}`)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/ask", askBody)
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /ask = %d, body %s", rec.Code, rec.Body.String())
	}

	var answer schema.Answer
	if err := json.Unmarshal(rec.Body.Bytes(), &answer); err != nil {
		t.Fatalf("unmarshal answer: %v", err)
	}
	if answer.Text != "generated" {
		t.Errorf("answer = %q", answer.Text)
	}
	if len(answer.Sources) == 0 {
		t.Error("answer has no sources")
	}
}

func TestUpload_UnsupportedFormat(t *testing.T) {
	router := newTestRouter(t)

	body, contentType := multipartBody(t, "macro.xlsm", "not really a spreadsheet")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("POST /upload = %d, want 415", rec.Code)
	}
}

func TestUpload_NoFiles(t *testing.T) {
	router := newTestRouter(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	writer.WriteField("note", "no file here")
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("POST /upload = %d, want 400", rec.Code)
	}
}

func TestAsk_InvalidPayload(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(`{"top_k": 3}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("POST /ask without question = %d, want 400", rec.Code)
	}
}

func TestAsk_EmptyCorpusReturnsFallback(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(`{"question": "anything?"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /ask = %d", rec.Code)
	}

	var answer schema.Answer
	if err := json.Unmarshal(rec.Body.Bytes(), &answer); err != nil {
		t.Fatalf("unmarshal answer: %v", err)
	}
	if answer.Text != pipeline.FallbackAnswer {
		t.Errorf("answer = %q, want the fallback", answer.Text)
	}
}

func TestDocumentLifecycle(t *testing.T) {
	router := newTestRouter(t)

	body, contentType := multipartBody(t, "doc.txt", "Lifecycle test content.")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /upload = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /documents = %d", rec.Code)
	}
	var listing struct {
		Documents []schema.Document `json:"documents"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("unmarshal listing: %v", err)
	}
	if len(listing.Documents) != 1 {
		t.Fatalf("got %d documents, want 1", len(listing.Documents))
	}
	id := listing.Documents[0].ID

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+id, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /documents/%s = %d", id, rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+id, nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("DELETE /documents/%s = %d", id, rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+id, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET deleted document = %d, want 404", rec.Code)
	}
}

func TestRateLimit_RejectsExcessRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logger.New("api-test")

	splitter, err := splitters.NewSentenceSplitter(200, 20)
	if err != nil {
		t.Fatalf("NewSentenceSplitter() error = %v", err)
	}
	docs := &memDocStore{docs: make(map[string]*schema.Document)}
	index := vectorstore.NewMemoryIndex(0)
	svc, err := service.NewDocQAService(
		pipeline.NewIndexingPipeline(splitter, staticEmbedder{}, index, docs, log),
		pipeline.NewRetrievalPipeline(staticEmbedder{}, index, 5, 0.3, log),
		pipeline.NewQAPipeline(staticLLM{}, 6000, log),
		docs, index, log,
	)
	if err != nil {
		t.Fatalf("NewDocQAService() error = %v", err)
	}
	t.Cleanup(svc.Close)

	router, err := NewRouter(NewAPI(svc, 1<<20, log), config.ServerConfig{
		RateLimit: config.RateLimitConfig{Enabled: true, Rate: 0.001, Burst: 1},
	})
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("first request = %d, want 200", rec.Code)
	}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request = %d, want 429", rec.Code)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents/does-not-exist", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET missing document = %d, want 404", rec.Code)
	}
}
