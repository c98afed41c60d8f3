package memory

import (
	"context"
	"hash/fnv"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jinford/pdf-rag/internal/core/ingestion"
	"github.com/jinford/pdf-rag/internal/core/knowledge"
	"github.com/jinford/pdf-rag/internal/core/retrieval"
)

// bagOfWordsEmbedder は単語を固定次元のバケットにハッシュする決定的な Embedder。
// 同じ語彙を共有するテキスト同士のコサイン類似度が高くなる。
type bagOfWordsEmbedder struct {
	dimension int
}

func (e *bagOfWordsEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, e.dimension)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		v[h.Sum32()%uint32(e.dimension)]++
	}
	return v, nil
}

func (e *bagOfWordsEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ingestion.ErrEmptyEmbedBatch
	}
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, v)
	}
	return vectors, nil
}

func (e *bagOfWordsEmbedder) ModelName() string { return "bag-of-words" }
func (e *bagOfWordsEmbedder) Dimension() int    { return e.dimension }
func (e *bagOfWordsEmbedder) MaxBatchSize() int { return 100 }

type plainTextParser struct{}

func (p *plainTextParser) ExtractText(_ context.Context, data []byte) (string, error) {
	return string(data), nil
}

func (p *plainTextParser) ExtractMetadata(_ context.Context, _ []byte) (knowledge.Metadata, error) {
	return knowledge.Metadata{}, nil
}

type passthroughReranker struct{}

func (r *passthroughReranker) Rerank(_ context.Context, _ string, candidates []*knowledge.Vector, topN int) ([]*knowledge.Vector, error) {
	if topN > len(candidates) {
		topN = len(candidates)
	}
	return candidates[:topN], nil
}

// インデックス化から検索パイプラインまでを実コンポーネントで通し、
// 本文そのままのクエリが元ドキュメントのチャンクを最上位に返すことを確認する。
func TestIndexThenRetrieveEndToEnd(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := NewStore()
	embedder := &bagOfWordsEmbedder{dimension: 64}

	chunker, err := ingestion.NewApproxChunker(512, 128)
	require.NoError(t, err)

	indexService := ingestion.NewIndexService(
		&plainTextParser{},
		chunker,
		embedder,
		store,
		ingestion.WithIndexLogger(logger),
	)

	cookingText := "simmer the onions gently then fold in saffron rice with toasted almonds and raisins"
	sailingText := "trim the mainsail before tacking upwind and watch the telltales along the luff"

	cookingResult, err := indexService.IndexDocument(ctx, ingestion.UploadFile{
		Name: "cooking.txt",
		Data: []byte(cookingText),
	})
	require.NoError(t, err)

	sailingResult, err := indexService.IndexDocument(ctx, ingestion.UploadFile{
		Name: "sailing.txt",
		Data: []byte(sailingText),
	})
	require.NoError(t, err)
	require.NotEqual(t, cookingResult.DocumentID, sailingResult.DocumentID)

	pipeline := retrieval.NewPipeline(
		embedder,
		store,
		&passthroughReranker{},
		retrieval.WithRetrieveK(5),
		retrieval.WithRerankTopN(1),
		retrieval.WithPipelineLogger(logger),
	)

	results, err := pipeline.Retrieve(ctx, sailingText)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, sailingResult.DocumentID, results[0].ParentID)

	results, err = pipeline.Retrieve(ctx, cookingText)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, cookingResult.DocumentID, results[0].ParentID)
}
