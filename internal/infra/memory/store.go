package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jinford/pdf-rag/internal/core/knowledge"
	"github.com/jinford/pdf-rag/internal/core/retrieval"
	"github.com/samber/mo"
)

// Store はインメモリのドキュメント/ベクトルストア実装。
// 全件走査のコサイン類似度でベクトル検索を行う。
// テストと小規模なローカル利用を想定しており、プロセス終了でデータは失われる。
type Store struct {
	mu        sync.RWMutex
	documents map[uuid.UUID]*knowledge.Document
	vectors   map[uuid.UUID]*knowledge.Vector
}

// NewStore は新しい Store を作成する
func NewStore() *Store {
	return &Store{
		documents: make(map[uuid.UUID]*knowledge.Document),
		vectors:   make(map[uuid.UUID]*knowledge.Vector),
	}
}

// PutDocument はドキュメントを保存し、採番した ID を返す
func (s *Store) PutDocument(ctx context.Context, doc *knowledge.Document) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New()
	stored := *doc
	stored.ID = id
	s.documents[id] = &stored

	return id, nil
}

// GetDocument は ID でドキュメントを取得する
func (s *Store) GetDocument(ctx context.Context, id uuid.UUID) (mo.Option[*knowledge.Document], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok {
		return mo.None[*knowledge.Document](), nil
	}

	copied := *doc
	return mo.Some(&copied), nil
}

// DeleteDocument はドキュメントを削除する。
// ベクトルへはカスケードせず、ParentID が宙に浮いたベクトルは残る。
func (s *Store) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[id]; !ok {
		return knowledge.ErrNotFound
	}
	delete(s.documents, id)

	return nil
}

// PutVector はベクトルを保存し、採番した ID を返す
func (s *Store) PutVector(ctx context.Context, vec *knowledge.Vector) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New()
	stored := *vec
	stored.VectorID = id
	s.vectors[id] = &stored

	return id, nil
}

// DeleteVector はベクトルを削除する
func (s *Store) DeleteVector(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vectors[id]; !ok {
		return knowledge.ErrNotFound
	}
	delete(s.vectors, id)

	return nil
}

// CountDocuments はドキュメント件数を返す
func (s *Store) CountDocuments(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.documents), nil
}

// Retrieve は全ベクトルをコサイン類似度で走査し、上位 k 件を類似度降順で返す。
// ノルムが 0 のベクトルは類似度が定義できないため除外する。
func (s *Store) Retrieve(ctx context.Context, queryEmbedding []float32, k int) ([]*knowledge.Vector, error) {
	if k <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		vector *knowledge.Vector
		score  float64
	}

	queryNorm := norm(queryEmbedding)
	if queryNorm == 0 {
		return nil, nil
	}

	candidates := make([]scored, 0, len(s.vectors))
	for _, v := range s.vectors {
		vNorm := norm(v.Embedding)
		if vNorm == 0 || len(v.Embedding) != len(queryEmbedding) {
			continue
		}
		candidates = append(candidates, scored{
			vector: v,
			score:  dot(queryEmbedding, v.Embedding) / (queryNorm * vNorm),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if k > len(candidates) {
		k = len(candidates)
	}

	results := make([]*knowledge.Vector, 0, k)
	for _, c := range candidates[:k] {
		copied := *c.vector
		results = append(results, &copied)
	}

	return results, nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}

// インターフェース実装の確認
var (
	_ knowledge.DocumentStore = (*Store)(nil)
	_ retrieval.Retriever     = (*Store)(nil)
)
