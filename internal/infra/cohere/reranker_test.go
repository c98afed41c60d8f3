package cohere

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/jinford/pdf-rag/internal/core/knowledge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCandidates(n int) []*knowledge.Vector {
	candidates := make([]*knowledge.Vector, n)
	for i := range candidates {
		candidates[i] = &knowledge.Vector{
			VectorID: uuid.New(),
			Text:     "chunk",
		}
	}
	return candidates
}

func TestReranker_ReturnsSubsetInProviderOrder(t *testing.T) {
	var gotReq rerankRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/rerank", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		// プロバイダは 2, 0, 4 の順で関連度が高いと判断した
		resp := map[string]any{
			"results": []map[string]any{
				{"index": 2, "relevance_score": 0.98},
				{"index": 0, "relevance_score": 0.75},
				{"index": 4, "relevance_score": 0.41},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	reranker, err := NewReranker("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	candidates := testCandidates(5)
	results, err := reranker.Rerank(context.Background(), "query", candidates, 3)
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Same(t, candidates[2], results[0])
	assert.Same(t, candidates[0], results[1])
	assert.Same(t, candidates[4], results[2])

	assert.Equal(t, "query", gotReq.Query)
	assert.Equal(t, 3, gotReq.TopN)
	assert.Len(t, gotReq.Documents, 5)
}

func TestReranker_ClampsTopNToCandidateCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 2, req.TopN)

		resp := map[string]any{
			"results": []map[string]any{
				{"index": 1, "relevance_score": 0.9},
				{"index": 0, "relevance_score": 0.5},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	reranker, err := NewReranker("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	results, err := reranker.Rerank(context.Background(), "query", testCandidates(2), 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestReranker_EmptyCandidatesSkipsAPICall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("API should not be called with no candidates")
	}))
	defer server.Close()

	reranker, err := NewReranker("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	results, err := reranker.Rerank(context.Background(), "query", nil, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestReranker_APIFailureReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "invalid api token"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	reranker, err := NewReranker("bad-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = reranker.Rerank(context.Background(), "query", testCandidates(3), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestReranker_RejectsUnknownDocumentIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"results": []map[string]any{
				{"index": 99, "relevance_score": 0.9},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	reranker, err := NewReranker("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = reranker.Rerank(context.Background(), "query", testCandidates(3), 3)
	require.Error(t, err)
}

func TestNewReranker_RequiresAPIKey(t *testing.T) {
	_, err := NewReranker("")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAPIKeyNotSet)
}
