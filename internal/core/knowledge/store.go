package knowledge

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/samber/mo"
)

// ErrNotFound は削除・取得対象が存在しない場合のエラー
var ErrNotFound = errors.New("not found")

// DocumentStore は1テナント分のドキュメント/ベクトル永続化インターフェース。
// すべての操作は構築時に束縛されたテナントにスコープされる。
// Vector.ParentID と documents 間の整合性はストアでは強制しない（呼び出し側の責務）。
// Document 削除はその Vector 群へカスケードしない。
type DocumentStore interface {
	// PutDocument はドキュメントを保存し、採番した ID を返す
	PutDocument(ctx context.Context, doc *Document) (uuid.UUID, error)

	// GetDocument は ID でドキュメントを取得する
	GetDocument(ctx context.Context, id uuid.UUID) (mo.Option[*Document], error)

	// DeleteDocument はドキュメントを削除する。
	// 対象が存在しない場合は ErrNotFound を返す（成功とは区別される）。
	DeleteDocument(ctx context.Context, id uuid.UUID) error

	// PutVector はベクトルを保存し、採番した ID を返す
	PutVector(ctx context.Context, vec *Vector) (uuid.UUID, error)

	// DeleteVector はベクトルを削除する。対象が存在しない場合は ErrNotFound を返す。
	DeleteVector(ctx context.Context, id uuid.UUID) error

	// CountDocuments はテナント内のドキュメント件数を返す
	CountDocuments(ctx context.Context) (int, error)
}
