package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jinford/pdf-rag/internal/core/knowledge"
)

// IndexService はアップロードされたファイルのインデックス化ユースケースを提供する。
// 1ファイルにつき 解析 → チャンク化 → Embedding → ドキュメント保存 → ベクトル保存
// を厳密に逐次実行する。各段階は自動リトライしない。
type IndexService struct {
	parser   Parser
	chunker  Chunker
	embedder Embedder
	repo     Repository
	logger   *slog.Logger
}

type indexServiceOptions struct {
	logger *slog.Logger
}

// IndexServiceOption は IndexService のオプション設定
type IndexServiceOption func(*indexServiceOptions)

// WithIndexLogger は IndexService にロガーを設定する
func WithIndexLogger(logger *slog.Logger) IndexServiceOption {
	return func(o *indexServiceOptions) {
		o.logger = logger
	}
}

// NewIndexService は新しい IndexService を作成する
func NewIndexService(
	parser Parser,
	chunker Chunker,
	embedder Embedder,
	repo Repository,
	opts ...IndexServiceOption,
) *IndexService {
	options := indexServiceOptions{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &IndexService{
		parser:   parser,
		chunker:  chunker,
		embedder: embedder,
		repo:     repo,
		logger:   options.logger,
	}
}

// IndexDocument は1ファイルをインデックス化し、ドキュメント ID を返す。
// いずれかの段階が失敗した場合、以降の段階は実行せず段階名付きでエラーを返す。
// ベクトル保存の途中失敗は部分的なベクトル集合を残す（補償削除は行わない）。
func (s *IndexService) IndexDocument(ctx context.Context, file UploadFile) (*IndexResult, error) {
	startTime := time.Now()

	s.logger.Info("インデックス化を開始", "file", file.Name, "size", len(file.Data))

	// 1. テキストとメタデータの抽出
	text, err := s.parser.ExtractText(ctx, file.Data)
	if err != nil {
		return nil, fmt.Errorf("テキスト抽出に失敗: %w", err)
	}
	metadata, err := s.parser.ExtractMetadata(ctx, file.Data)
	if err != nil {
		return nil, fmt.Errorf("メタデータ抽出に失敗: %w", err)
	}

	// 2. チャンク化
	chunks, err := s.chunker.Chunk(text, metadata)
	if err != nil {
		return nil, fmt.Errorf("チャンク化に失敗: %w", err)
	}

	s.logger.Info("チャンク化が完了", "file", file.Name, "chunks", len(chunks))

	// 3. Embedding 生成（プロバイダの上限件数ごとに分割、順序は維持）
	embeddings, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embedding生成に失敗: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("embeddingベクトル数が不一致: expected=%d actual=%d", len(chunks), len(embeddings))
	}

	// 4. ドキュメントの保存
	document := &knowledge.Document{
		Text:     text,
		Metadata: metadata,
	}
	documentID, err := s.repo.PutDocument(ctx, document)
	if err != nil {
		return nil, fmt.Errorf("ドキュメント保存に失敗: %w", err)
	}

	// 5. ベクトルの保存（1チャンク1レコード、親 ID で紐付け）
	for i, embedding := range embeddings {
		vector := &knowledge.Vector{
			Embedding: embedding,
			Text:      chunks[i],
			Metadata:  metadata,
			ParentID:  documentID,
		}
		if _, err := s.repo.PutVector(ctx, vector); err != nil {
			// 保存済みベクトルはロールバックしない。
			// ドキュメントは部分的なベクトル集合を持つ状態で残る。
			s.logger.Warn("ベクトル保存に失敗（部分的なベクトル集合が残ります）",
				"file", file.Name,
				"documentID", documentID,
				"persisted", i,
				"total", len(embeddings),
			)
			return nil, fmt.Errorf("ベクトル保存に失敗 (%d/%d件目): %w", i+1, len(embeddings), err)
		}
	}

	duration := time.Since(startTime)

	s.logger.Info("インデックス化が完了",
		"file", file.Name,
		"documentID", documentID,
		"chunks", len(chunks),
		"duration", duration,
	)

	return &IndexResult{
		DocumentID: documentID,
		ChunkCount: len(chunks),
		Duration:   duration,
	}, nil
}

// IndexFiles は複数ファイルを並行にインデックス化する。
// 結果は入力と同じ順序で返し、1ファイルの失敗が他のファイルを中断しない。
func (s *IndexService) IndexFiles(ctx context.Context, files []UploadFile) []FileResult {
	results := make([]FileResult, len(files))

	var wg sync.WaitGroup
	wg.Add(len(files))
	for i, file := range files {
		go func(i int, file UploadFile) {
			defer wg.Done()
			result, err := s.IndexDocument(ctx, file)
			results[i] = FileResult{
				Name:   file.Name,
				Result: result,
				Err:    err,
			}
		}(i, file)
	}
	wg.Wait()

	return results
}

// embedChunks はチャンク列を Embedder の最大バッチサイズごとに分割して埋め込む
func (s *IndexService) embedChunks(ctx context.Context, chunks []string) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	batchSize := s.embedder.MaxBatchSize()
	if batchSize <= 0 {
		batchSize = 1
	}

	embeddings := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		vectors, err := s.embedder.BatchEmbed(ctx, chunks[start:end])
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, vectors...)
	}

	return embeddings, nil
}
