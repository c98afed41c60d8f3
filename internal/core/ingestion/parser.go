package ingestion

import (
	"context"

	"github.com/jinford/pdf-rag/internal/core/knowledge"
)

// Parser はアップロードされたファイルのバイト列から全文とメタデータを抽出する。
// ファイル形式ごとの具体的な実装（PDF 等）は infra 層が提供する。
type Parser interface {
	// ExtractText は全文テキストを抽出する
	ExtractText(ctx context.Context, data []byte) (string, error)

	// ExtractMetadata はタイトル・著者等のメタデータを抽出する。
	// 欠落フィールドは空文字のままでエラーとしない。
	ExtractMetadata(ctx context.Context, data []byte) (knowledge.Metadata, error)
}
