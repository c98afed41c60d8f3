package retrieval

import (
	"context"

	"github.com/jinford/pdf-rag/internal/core/knowledge"
)

// Retriever はクエリベクトルに対する類似ベクトル検索のインターフェース。
// 結果はコサイン類似度の降順で返す。テナント内の全ベクトルを対象とした
// 全件スキャン（近似最近傍インデックスは使わない前提の契約）であり、
// 同値のタイブレークはストア固有の走査順に従う。
type Retriever interface {
	// Retrieve は上位 k 件のベクトルを類似度降順で返す。
	// 保存件数が k 未満の場合は全件を返す。
	Retrieve(ctx context.Context, queryEmbedding []float32, k int) ([]*knowledge.Vector, error)
}

// Embedder はクエリテキストの Embedding 生成インターフェース
type Embedder interface {
	// Embed は単一テキストの Embedding を生成する
	Embed(ctx context.Context, text string) ([]float32, error)
}
