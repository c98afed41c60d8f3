package retrieval

import (
	"context"

	"github.com/jinford/pdf-rag/internal/core/knowledge"
)

// Reranker は候補集合を元のクエリテキストとの関連度で並べ替える。
// クロスエンコーダ型の外部プロバイダがスコアリングを行う。
type Reranker interface {
	// Rerank は candidates の部分列（長さ min(topN, len(candidates))）を
	// プロバイダの関連度降順で返す。入力にないベクトルを加えたり、
	// 入力のベクトルを別のものに差し替えたりしてはならない。
	Rerank(ctx context.Context, query string, candidates []*knowledge.Vector, topN int) ([]*knowledge.Vector, error)
}
