package ingestion

import (
	"context"

	"github.com/google/uuid"
	"github.com/jinford/pdf-rag/internal/core/knowledge"
)

// Repository はインデックス化が必要とする永続化操作のインターフェース。
// テスト時のモック用に消費者側で定義する。
type Repository interface {
	// PutDocument はドキュメントを保存し、採番した ID を返す
	PutDocument(ctx context.Context, doc *knowledge.Document) (uuid.UUID, error)

	// PutVector はベクトルを保存し、採番した ID を返す
	PutVector(ctx context.Context, vec *knowledge.Vector) (uuid.UUID, error)
}
