package ingestion

import "errors"

var (
	// ErrInvalidChunkConfig はオーバーラップがチャンクサイズ以上の場合のエラー
	// （ストライドが 0 以下になり窓が前進しない）
	ErrInvalidChunkConfig = errors.New("chunk overlap must be smaller than chunk size")

	// ErrEmptyEmbedBatch はバッチ Embedding に0件のテキストが渡された場合のエラー
	ErrEmptyEmbedBatch = errors.New("no texts provided for batch embedding")
)
