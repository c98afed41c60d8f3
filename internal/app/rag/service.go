package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jinford/pdf-rag/internal/core/ingestion"
	"github.com/jinford/pdf-rag/internal/core/knowledge"
	"github.com/jinford/pdf-rag/internal/platform/container"
)

// Service はテナント解決とユースケースの組み立てをまとめたアプリケーションサービス。
// HTTP ハンドラと CLI コマンドの双方がこの層を経由する。
type Service struct {
	container *container.ServiceContainer
	logger    *slog.Logger
}

// NewService は新しい Service を作成する
func NewService(c *container.ServiceContainer) *Service {
	return &Service{
		container: c,
		logger:    c.Logger(),
	}
}

// Upload はテナントのナレッジベースへ複数ファイルを取り込む。
// 結果は入力と同じ順序で返り、1ファイルの失敗は他のファイルへ波及しない。
func (s *Service) Upload(ctx context.Context, tenant string, files []ingestion.UploadFile) ([]ingestion.FileResult, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no files provided")
	}

	store, err := s.container.TenantStore(ctx, tenant)
	if err != nil {
		return nil, err
	}

	indexService := s.container.IndexServiceFor(store)
	results := indexService.IndexFiles(ctx, files)

	succeeded := 0
	for _, r := range results {
		if r.Err == nil {
			succeeded++
		}
	}
	s.logger.Info("アップロード処理が完了",
		"tenant", tenant,
		"files", len(files),
		"succeeded", succeeded,
	)

	return results, nil
}

// Delete はテナントのドキュメントを削除する。
// ベクトルへはカスケードしない。対象が存在しない場合は knowledge.ErrNotFound を返す。
func (s *Service) Delete(ctx context.Context, tenant string, documentID uuid.UUID) error {
	store, err := s.container.TenantStore(ctx, tenant)
	if err != nil {
		return err
	}

	if err := store.DeleteDocument(ctx, documentID); err != nil {
		return err
	}

	s.logger.Info("ドキュメントを削除", "tenant", tenant, "documentID", documentID)
	return nil
}

// Generate はテナントのナレッジベースを参照して回答を生成する
func (s *Service) Generate(ctx context.Context, tenant, query string) (*knowledge.GenerateResponse, error) {
	store, err := s.container.TenantStore(ctx, tenant)
	if err != nil {
		return nil, err
	}

	pipeline := s.container.PipelineFor(store)
	ragAgent := s.container.RAGAgentFor(pipeline)

	return ragAgent.Chat(ctx, query)
}

// GenerateWithoutKnowledgeBase はナレッジベースを使わずモデルの知識のみで回答する
func (s *Service) GenerateWithoutKnowledgeBase(ctx context.Context, query string) (string, error) {
	return s.container.SimpleAgent().Chat(ctx, query)
}

// CountDocuments はテナントのドキュメント件数を返す
func (s *Service) CountDocuments(ctx context.Context, tenant string) (int, error) {
	store, err := s.container.TenantStore(ctx, tenant)
	if err != nil {
		return 0, err
	}
	return store.CountDocuments(ctx)
}
