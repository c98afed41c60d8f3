package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jinford/pdf-rag/internal/core/ingestion"
	"github.com/jinford/pdf-rag/internal/core/knowledge"
	"github.com/jinford/pdf-rag/internal/core/retrieval"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/samber/mo"
)

// ErrInvalidTenantName はテナント名がスキーマ名として使えない場合のエラー
var ErrInvalidTenantName = errors.New("invalid tenant name")

// tenantNamePattern はスキーマ名として許容するテナント名。
// PostgreSQL の識別子長上限（63バイト）に収める。
var tenantNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// Store は1テナント分のドキュメント/ベクトルを PostgreSQL + pgvector に永続化する。
// テナントごとに専用スキーマを持ち、すべてのクエリはそのスキーマにスコープされる。
type Store struct {
	pool      *pgxpool.Pool
	tenant    string
	dimension int
}

// NewStore はテナントに束縛された Store を作成する。
// dimension は vectors テーブルの embedding 列の次元数。
func NewStore(pool *pgxpool.Pool, tenant string, dimension int) (*Store, error) {
	if !tenantNamePattern.MatchString(tenant) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTenantName, tenant)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension: %d", dimension)
	}

	return &Store{
		pool:      pool,
		tenant:    tenant,
		dimension: dimension,
	}, nil
}

// Tenant は束縛されているテナント名を返す
func (s *Store) Tenant() string {
	return s.tenant
}

// EnsureSchema はテナントのスキーマとテーブルを作成する（冪等）。
// vectors.parent_id に外部キー制約は張らず、ドキュメント削除はカスケードしない。
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, s.schemaIdent()),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id uuid PRIMARY KEY,
			text text NOT NULL,
			metadata jsonb NOT NULL DEFAULT '{}',
			created_at timestamptz NOT NULL DEFAULT now()
		)`, s.tableIdent("documents")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			vector_id uuid PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			text text NOT NULL,
			metadata jsonb NOT NULL DEFAULT '{}',
			parent_id uuid NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, s.tableIdent("vectors"), s.dimension),
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema for tenant %s: %w", s.tenant, err)
		}
	}

	return nil
}

// PutDocument はドキュメントを保存し、採番した ID を返す
func (s *Store) PutDocument(ctx context.Context, doc *knowledge.Document) (uuid.UUID, error) {
	id := uuid.New()

	metadata, err := marshalMetadata(doc.Metadata)
	if err != nil {
		return uuid.Nil, err
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (id, text, metadata) VALUES ($1, $2, $3)`,
		s.tableIdent("documents"),
	)
	if _, err := s.pool.Exec(ctx, query, id, doc.Text, metadata); err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert document: %w", err)
	}

	return id, nil
}

// GetDocument は ID でドキュメントを取得する
func (s *Store) GetDocument(ctx context.Context, id uuid.UUID) (mo.Option[*knowledge.Document], error) {
	query := fmt.Sprintf(
		`SELECT id, text, metadata FROM %s WHERE id = $1`,
		s.tableIdent("documents"),
	)

	var (
		doc      knowledge.Document
		metadata []byte
	)
	err := s.pool.QueryRow(ctx, query, id).Scan(&doc.ID, &doc.Text, &metadata)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[*knowledge.Document](), nil
		}
		return mo.None[*knowledge.Document](), fmt.Errorf("failed to get document: %w", err)
	}

	if doc.Metadata, err = unmarshalMetadata(metadata); err != nil {
		return mo.None[*knowledge.Document](), err
	}

	return mo.Some(&doc), nil
}

// DeleteDocument はドキュメントを削除する。
// その Vector 群へはカスケードしない。対象が存在しない場合は ErrNotFound を返す。
func (s *Store) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.tableIdent("documents"))

	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return knowledge.ErrNotFound
	}

	return nil
}

// PutVector はベクトルを保存し、採番した ID を返す
func (s *Store) PutVector(ctx context.Context, vec *knowledge.Vector) (uuid.UUID, error) {
	if len(vec.Embedding) != s.dimension {
		return uuid.Nil, fmt.Errorf("embedding dimension mismatch: expected=%d actual=%d", s.dimension, len(vec.Embedding))
	}

	id := uuid.New()

	metadata, err := marshalMetadata(vec.Metadata)
	if err != nil {
		return uuid.Nil, err
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (vector_id, embedding, text, metadata, parent_id) VALUES ($1, $2, $3, $4, $5)`,
		s.tableIdent("vectors"),
	)
	if _, err := s.pool.Exec(ctx, query, id, pgvector.NewVector(vec.Embedding), vec.Text, metadata, vec.ParentID); err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert vector: %w", err)
	}

	return id, nil
}

// DeleteVector はベクトルを削除する。対象が存在しない場合は ErrNotFound を返す。
func (s *Store) DeleteVector(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE vector_id = $1`, s.tableIdent("vectors"))

	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete vector: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return knowledge.ErrNotFound
	}

	return nil
}

// CountDocuments はテナント内のドキュメント件数を返す
func (s *Store) CountDocuments(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`SELECT count(*) FROM %s`, s.tableIdent("documents"))

	var count int
	if err := s.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}

	return count, nil
}

// Retrieve はコサイン距離による全件走査で上位 k 件を類似度降順に返す。
// ベクトルインデックスは張らず、厳密な近傍を返す。
func (s *Store) Retrieve(ctx context.Context, queryEmbedding []float32, k int) ([]*knowledge.Vector, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(queryEmbedding) != s.dimension {
		return nil, fmt.Errorf("embedding dimension mismatch: expected=%d actual=%d", s.dimension, len(queryEmbedding))
	}

	query := fmt.Sprintf(
		`SELECT vector_id, embedding, text, metadata, parent_id
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`,
		s.tableIdent("vectors"),
	)

	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(queryEmbedding), k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer rows.Close()

	var results []*knowledge.Vector
	for rows.Next() {
		var (
			vec       knowledge.Vector
			embedding pgvector.Vector
			metadata  []byte
		)
		if err := rows.Scan(&vec.VectorID, &embedding, &vec.Text, &metadata, &vec.ParentID); err != nil {
			return nil, fmt.Errorf("failed to scan vector row: %w", err)
		}
		vec.Embedding = embedding.Slice()
		if vec.Metadata, err = unmarshalMetadata(metadata); err != nil {
			return nil, err
		}
		results = append(results, &vec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	return results, nil
}

func (s *Store) schemaIdent() string {
	return pgx.Identifier{s.tenant}.Sanitize()
}

func (s *Store) tableIdent(table string) string {
	return pgx.Identifier{s.tenant, table}.Sanitize()
}

// インターフェース実装の確認
var (
	_ knowledge.DocumentStore = (*Store)(nil)
	_ ingestion.Repository    = (*Store)(nil)
	_ retrieval.Retriever     = (*Store)(nil)
)
