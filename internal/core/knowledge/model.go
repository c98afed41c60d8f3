package knowledge

import (
	"github.com/google/uuid"
)

// Metadata はドキュメントから抽出されたメタデータを表す。
// 抽出後は不変であり、派生するすべてのチャンクへコピーされる。
type Metadata struct {
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	CreatedAt   string   `json:"created_at"`
}

// Document は抽出済み全文とメタデータを保持する。
// ID はストアへの挿入時に採番される。
type Document struct {
	ID       uuid.UUID `json:"id"`
	Text     string    `json:"text"`
	Metadata Metadata  `json:"metadata"`
}

// Vector は1チャンク分の埋め込みを表す。
// ParentID は親 Document への弱参照（ID のみ、逆参照なし）。
// 同一テナント内でのみ解決可能であり、外部キー制約は張らない。
type Vector struct {
	VectorID  uuid.UUID `json:"vector_id"`
	Embedding []float32 `json:"embedding"`
	Text      string    `json:"text"`
	Metadata  Metadata  `json:"metadata"`
	ParentID  uuid.UUID `json:"parent_id"`
}

// Query はエージェントが発行したサブクエリ1件の監査レコード。
// RetrievedIDs は取得時点でストアに存在していた Vector の ID 列。
type Query struct {
	Query        string      `json:"query"`
	RetrievedIDs []uuid.UUID `json:"retrieved_ids"`
}

// GenerateResponse は回答生成の最終結果を表す。
type GenerateResponse struct {
	Response string  `json:"response"`
	Queries  []Query `json:"queries"`
}
