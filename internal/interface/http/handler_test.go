package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jinford/pdf-rag/internal/core/ingestion"
	"github.com/jinford/pdf-rag/internal/core/knowledge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRAGService struct {
	uploadResults []ingestion.FileResult
	uploadErr     error
	deleteErr     error
	generateResp  *knowledge.GenerateResponse
	generateErr   error

	lastTenant string
	lastFiles  []ingestion.UploadFile
	lastDocID  uuid.UUID
	lastQuery  string
}

func (s *stubRAGService) Upload(ctx context.Context, tenant string, files []ingestion.UploadFile) ([]ingestion.FileResult, error) {
	s.lastTenant = tenant
	s.lastFiles = files
	return s.uploadResults, s.uploadErr
}

func (s *stubRAGService) Delete(ctx context.Context, tenant string, documentID uuid.UUID) error {
	s.lastTenant = tenant
	s.lastDocID = documentID
	return s.deleteErr
}

func (s *stubRAGService) Generate(ctx context.Context, tenant, query string) (*knowledge.GenerateResponse, error) {
	s.lastTenant = tenant
	s.lastQuery = query
	return s.generateResp, s.generateErr
}

func setupRouter(service RAGService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(NewHandler(service))
}

func multipartUpload(t *testing.T, tenant string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("db_name", tenant))
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func TestHandler_UploadReturnsPerFileResults(t *testing.T) {
	docID := uuid.New()
	service := &stubRAGService{
		uploadResults: []ingestion.FileResult{
			{
				Name:   "ok.pdf",
				Result: &ingestion.IndexResult{DocumentID: docID, ChunkCount: 5, Duration: time.Second},
			},
			{
				Name: "broken.pdf",
				Err:  errors.New("corrupt pdf"),
			},
		},
	}
	router := setupRouter(service)

	body, contentType := multipartUpload(t, "acme_corp", map[string]string{
		"ok.pdf":     "content a",
		"broken.pdf": "content b",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "acme_corp", service.lastTenant)
	assert.Len(t, service.lastFiles, 2)

	var resp struct {
		Results []fileResultResponse `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, docID.String(), resp.Results[0].DocumentID)
	assert.Equal(t, 5, resp.Results[0].ChunkCount)
	assert.Empty(t, resp.Results[0].Error)
	assert.Equal(t, "corrupt pdf", resp.Results[1].Error)
}

func TestHandler_UploadAllFilesFailed(t *testing.T) {
	service := &stubRAGService{
		uploadResults: []ingestion.FileResult{
			{Name: "broken.pdf", Err: errors.New("corrupt pdf")},
		},
	}
	router := setupRouter(service)

	body, contentType := multipartUpload(t, "acme_corp", map[string]string{"broken.pdf": "x"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandler_UploadRequiresTenantAndFiles(t *testing.T) {
	router := setupRouter(&stubRAGService{})

	// db_name なし
	body, contentType := multipartUpload(t, "", map[string]string{"a.pdf": "x"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// ファイルなし
	body, contentType = multipartUpload(t, "acme_corp", nil)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_DeleteSuccess(t *testing.T) {
	service := &stubRAGService{}
	router := setupRouter(service)

	docID := uuid.New()
	payload := `{"document_id": "` + docID.String() + `", "db_name": "acme_corp"}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/delete", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, docID, service.lastDocID)
	assert.Equal(t, "acme_corp", service.lastTenant)
}

func TestHandler_DeleteMissingDocumentReturns404(t *testing.T) {
	service := &stubRAGService{deleteErr: knowledge.ErrNotFound}
	router := setupRouter(service)

	payload := `{"document_id": "` + uuid.NewString() + `", "db_name": "acme_corp"}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/delete", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_DeleteRejectsInvalidDocumentID(t *testing.T) {
	router := setupRouter(&stubRAGService{})

	payload := `{"document_id": "not-a-uuid", "db_name": "acme_corp"}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/delete", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_GenerateReturnsResponseWithAuditTrail(t *testing.T) {
	retrievedID := uuid.New()
	service := &stubRAGService{
		generateResp: &knowledge.GenerateResponse{
			Response: "the answer",
			Queries: []knowledge.Query{
				{Query: "rewritten", RetrievedIDs: []uuid.UUID{retrievedID}},
			},
		},
	}
	router := setupRouter(service)

	payload := `{"query": "what is the answer?", "db_name": "acme_corp"}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "what is the answer?", service.lastQuery)

	var resp knowledge.GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "the answer", resp.Response)
	require.Len(t, resp.Queries, 1)
	assert.Equal(t, []uuid.UUID{retrievedID}, resp.Queries[0].RetrievedIDs)
}

func TestHandler_GenerateRequiresQueryAndTenant(t *testing.T) {
	router := setupRouter(&stubRAGService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate", strings.NewReader(`{"query": ""}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Health(t *testing.T) {
	router := setupRouter(&stubRAGService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
