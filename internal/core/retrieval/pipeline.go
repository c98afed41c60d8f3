package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/pdf-rag/internal/core/knowledge"
)

const (
	// DefaultRetrieveK はベクトル検索のデフォルト取得件数
	DefaultRetrieveK = 10
	// DefaultRerankTopN はリランク後に残すデフォルト件数
	DefaultRerankTopN = 3
)

// Pipeline は Embedding → ベクトル検索 → リランク を1回の呼び出しに合成する。
// エージェントのナレッジベースツールが呼び出す単位。
type Pipeline struct {
	embedder  Embedder
	retriever Retriever
	reranker  Reranker

	retrieveK  int
	rerankTopN int
	logger     *slog.Logger
}

type pipelineOptions struct {
	retrieveK  int
	rerankTopN int
	logger     *slog.Logger
}

// PipelineOption は Pipeline のオプション設定
type PipelineOption func(*pipelineOptions)

// WithRetrieveK はベクトル検索の取得件数を上書きする
func WithRetrieveK(k int) PipelineOption {
	return func(o *pipelineOptions) {
		o.retrieveK = k
	}
}

// WithRerankTopN はリランク後に残す件数を上書きする
func WithRerankTopN(n int) PipelineOption {
	return func(o *pipelineOptions) {
		o.rerankTopN = n
	}
}

// WithPipelineLogger は Pipeline にロガーを設定する
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(o *pipelineOptions) {
		o.logger = logger
	}
}

// NewPipeline は新しい Pipeline を作成する
func NewPipeline(embedder Embedder, retriever Retriever, reranker Reranker, opts ...PipelineOption) *Pipeline {
	options := pipelineOptions{
		retrieveK:  DefaultRetrieveK,
		rerankTopN: DefaultRerankTopN,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.retrieveK <= 0 {
		options.retrieveK = DefaultRetrieveK
	}
	if options.rerankTopN <= 0 {
		options.rerankTopN = DefaultRerankTopN
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &Pipeline{
		embedder:   embedder,
		retriever:  retriever,
		reranker:   reranker,
		retrieveK:  options.retrieveK,
		rerankTopN: options.rerankTopN,
		logger:     options.logger,
	}
}

// Retrieve はクエリテキストからリランク済み候補ベクトル列を返す
func (p *Pipeline) Retrieve(ctx context.Context, query string) ([]*knowledge.Vector, error) {
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}

	queryEmbedding, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	candidates, err := p.retriever.Retrieve(ctx, queryEmbedding, p.retrieveK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	p.logger.Info("vector search completed", "query", query, "candidates", len(candidates))

	if len(candidates) == 0 {
		return nil, nil
	}

	reranked, err := p.reranker.Rerank(ctx, query, candidates, p.rerankTopN)
	if err != nil {
		return nil, fmt.Errorf("rerank failed: %w", err)
	}

	p.logger.Info("rerank completed", "query", query, "results", len(reranked))

	return reranked, nil
}

// RetrieveTexts は Retrieve の軽量版で、チャンクテキストのみを返す
func (p *Pipeline) RetrieveTexts(ctx context.Context, query string) ([]string, error) {
	vectors, err := p.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(vectors))
	for _, v := range vectors {
		texts = append(texts, v.Text)
	}
	return texts, nil
}
