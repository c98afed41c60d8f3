package ingestion

import (
	"time"

	"github.com/google/uuid"
)

// UploadFile はアップロードされた1ファイルを表す
type UploadFile struct {
	Name string // 元ファイル名
	Data []byte // ファイル内容
}

// IndexResult は1ファイルのインデックス化結果を表す
type IndexResult struct {
	DocumentID uuid.UUID     // 採番されたドキュメント ID
	ChunkCount int           // 永続化されたベクトル件数
	Duration   time.Duration // 処理時間
}

// FileResult はバッチアップロード時の1ファイル分の結果。
// 入力と同じ位置に対応し、失敗したファイルは Err のみが設定される。
type FileResult struct {
	Name   string
	Result *IndexResult
	Err    error
}
