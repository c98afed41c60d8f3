package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jinford/pdf-rag/internal/core/knowledge"
	"github.com/jinford/pdf-rag/internal/core/retrieval"
)

const (
	// DefaultBaseURL は Cohere API のベース URL
	DefaultBaseURL = "https://api.cohere.com"

	// DefaultRerankModel はデフォルトで使用するリランクモデル
	DefaultRerankModel = "rerank-english-v3.0"

	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 30 * time.Second
)

// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
var ErrAPIKeyNotSet = errors.New("Cohere API key not set: please set COHERE_API_KEY environment variable")

// Reranker は Cohere Rerank API を使用して候補チャンクを関連度で並べ替える。
// Cohere は Go SDK を提供していないため /v2/rerank を直接呼び出す。
type Reranker struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

type rerankerOptions struct {
	baseURL string
	model   string
	timeout time.Duration
}

// RerankerOption は Reranker のオプション設定
type RerankerOption func(*rerankerOptions)

// WithRerankModel はモデル名を上書きする
func WithRerankModel(model string) RerankerOption {
	return func(o *rerankerOptions) {
		o.model = model
	}
}

// WithBaseURL はAPIのベース URL を上書きする
func WithBaseURL(baseURL string) RerankerOption {
	return func(o *rerankerOptions) {
		o.baseURL = baseURL
	}
}

// WithTimeout はAPIコールのタイムアウトを上書きする
func WithTimeout(timeout time.Duration) RerankerOption {
	return func(o *rerankerOptions) {
		o.timeout = timeout
	}
}

// NewReranker は新しい Reranker を作成する
func NewReranker(apiKey string, opts ...RerankerOption) (*Reranker, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	options := rerankerOptions{
		baseURL: DefaultBaseURL,
		model:   DefaultRerankModel,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Reranker{
		baseURL:    options.baseURL,
		apiKey:     apiKey,
		model:      options.model,
		httpClient: &http.Client{Timeout: options.timeout},
	}, nil
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank は candidates をクエリとの関連度降順に並べ替え、上位 topN 件を返す。
// 返り値は必ず candidates の部分列になる。
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []*knowledge.Vector, topN int) ([]*knowledge.Vector, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if topN > len(candidates) {
		topN = len(candidates)
	}

	documents := make([]string, len(candidates))
	for i, c := range candidates {
		documents[i] = c.Text
	}

	body, err := json.Marshal(rerankRequest{
		Model:     r.model,
		Query:     query,
		Documents: documents,
		TopN:      topN,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v2/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank API call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("rerank API returned %s: %s", resp.Status, payload)
	}

	var result rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode rerank response: %w", err)
	}

	reranked := make([]*knowledge.Vector, 0, len(result.Results))
	for _, item := range result.Results {
		if item.Index < 0 || item.Index >= len(candidates) {
			return nil, fmt.Errorf("rerank response references unknown document index %d", item.Index)
		}
		reranked = append(reranked, candidates[item.Index])
	}
	if len(reranked) > topN {
		reranked = reranked[:topN]
	}

	return reranked, nil
}

// インターフェース実装の確認
var _ retrieval.Reranker = (*Reranker)(nil)
