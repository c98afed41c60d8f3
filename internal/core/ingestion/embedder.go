package ingestion

import "context"

// Embedder はテキストの Embedding 生成インターフェース
type Embedder interface {
	// Embed は単一テキストの Embedding を生成する
	Embed(ctx context.Context, text string) ([]float32, error)

	// BatchEmbed はバッチで Embedding を生成する。
	// 入力と同順・同数のベクトルを返す。0件の入力はエラー。
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)

	// ModelName はモデル名を返す
	ModelName() string

	// Dimension はベクトル次元数を返す
	Dimension() int

	// MaxBatchSize は1回のバッチ呼び出しで受け付ける最大件数を返す
	MaxBatchSize() int
}
