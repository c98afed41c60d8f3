package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jinford/pdf-rag/internal/core/ingestion"
	"github.com/jinford/pdf-rag/internal/core/knowledge"
	"github.com/jinford/pdf-rag/internal/infra/postgres"
)

// RAGService はハンドラが依存するアプリケーションサービスのインターフェース
type RAGService interface {
	Upload(ctx context.Context, tenant string, files []ingestion.UploadFile) ([]ingestion.FileResult, error)
	Delete(ctx context.Context, tenant string, documentID uuid.UUID) error
	Generate(ctx context.Context, tenant, query string) (*knowledge.GenerateResponse, error)
}

// Handler は RAG API の HTTP リクエストを処理する
type Handler struct {
	service RAGService
}

// NewHandler は新しい Handler を作成する
func NewHandler(service RAGService) *Handler {
	return &Handler{service: service}
}

// fileResultResponse はアップロード1ファイル分の処理結果
type fileResultResponse struct {
	Name       string `json:"name"`
	DocumentID string `json:"document_id,omitempty"`
	ChunkCount int    `json:"chunk_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Upload は POST /api/v1/upload のハンドラ。
// multipart/form-data で db_name と files を受け取り、ファイルごとの結果を返す。
func (h *Handler) Upload(ctx *gin.Context) {
	tenant := ctx.PostForm("db_name")
	if tenant == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "db_name is required"})
		return
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form: " + err.Error()})
		return
	}

	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "at least one file is required"})
		return
	}

	files := make([]ingestion.UploadFile, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "failed to open file " + fh.Filename})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file " + fh.Filename})
			return
		}
		files = append(files, ingestion.UploadFile{Name: fh.Filename, Data: data})
	}

	results, err := h.service.Upload(ctx.Request.Context(), tenant, files)
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidTenantName) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process upload"})
		return
	}

	responses := make([]fileResultResponse, 0, len(results))
	allFailed := true
	for _, r := range results {
		resp := fileResultResponse{Name: r.Name}
		if r.Err != nil {
			resp.Error = r.Err.Error()
		} else {
			allFailed = false
			resp.DocumentID = r.Result.DocumentID.String()
			resp.ChunkCount = r.Result.ChunkCount
		}
		responses = append(responses, resp)
	}

	status := http.StatusCreated
	if allFailed {
		status = http.StatusUnprocessableEntity
	}
	ctx.JSON(status, gin.H{"results": responses})
}

// deleteRequest は POST /api/v1/delete のリクエストボディ
type deleteRequest struct {
	DocumentID string `json:"document_id" binding:"required"`
	DBName     string `json:"db_name" binding:"required"`
}

// Delete は POST /api/v1/delete のハンドラ
func (h *Handler) Delete(ctx *gin.Context) {
	var req deleteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	documentID, err := uuid.Parse(req.DocumentID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid document_id"})
		return
	}

	if err := h.service.Delete(ctx.Request.Context(), req.DBName, documentID); err != nil {
		switch {
		case errors.Is(err, knowledge.ErrNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		case errors.Is(err, postgres.ErrInvalidTenantName):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete document"})
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "document deleted"})
}

// generateRequest は POST /api/v1/generate のリクエストボディ
type generateRequest struct {
	Query  string `json:"query" binding:"required"`
	DBName string `json:"db_name" binding:"required"`
}

// Generate は POST /api/v1/generate のハンドラ
func (h *Handler) Generate(ctx *gin.Context) {
	var req generateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	response, err := h.service.Generate(ctx.Request.Context(), req.DBName, req.Query)
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidTenantName) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate response"})
		return
	}

	ctx.JSON(http.StatusOK, response)
}

// Health は GET /health のハンドラ
func (h *Handler) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}
