package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/jinford/pdf-rag/internal/core/knowledge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedLLM はターンごとに事前定義した応答を順に返す
type scriptedLLM struct {
	turns    []*ChatResult
	index    int
	messages [][]Message // 各ターンに渡された会話履歴
}

func (l *scriptedLLM) ChatWithTools(ctx context.Context, messages []Message, tools []ToolDefinition) (*ChatResult, error) {
	copied := make([]Message, len(messages))
	copy(copied, messages)
	l.messages = append(l.messages, copied)

	if l.index >= len(l.turns) {
		return nil, errors.New("no scripted turns left")
	}
	result := l.turns[l.index]
	l.index++
	return result, nil
}

// loopingLLM は常にツール呼び出しを要求し続ける
type loopingLLM struct{ calls int }

func (l *loopingLLM) ChatWithTools(ctx context.Context, messages []Message, tools []ToolDefinition) (*ChatResult, error) {
	l.calls++
	return &ChatResult{
		ToolCalls: []ToolCall{{
			ID:        "call-loop",
			Name:      KnowledgeBaseToolName,
			Arguments: `{"rewritten_query": "again"}`,
		}},
	}, nil
}

type stubKnowledgeBase struct {
	vectors     []*knowledge.Vector
	err         error
	lastQueries []string
}

func (kb *stubKnowledgeBase) Retrieve(ctx context.Context, query string) ([]*knowledge.Vector, error) {
	kb.lastQueries = append(kb.lastQueries, query)
	if kb.err != nil {
		return nil, kb.err
	}
	return kb.vectors, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{AddSource: false}))
}

func TestRAGAgent_ToolCallThenAnswerRecordsAuditTrail(t *testing.T) {
	vectors := []*knowledge.Vector{
		{VectorID: uuid.New(), Text: "chunk one", ParentID: uuid.New()},
		{VectorID: uuid.New(), Text: "chunk two", ParentID: uuid.New()},
	}
	kb := &stubKnowledgeBase{vectors: vectors}
	llm := &scriptedLLM{
		turns: []*ChatResult{
			{ToolCalls: []ToolCall{{
				ID:        "call-1",
				Name:      KnowledgeBaseToolName,
				Arguments: `{"rewritten_query": "pgvector indexing strategies"}`,
			}}},
			{Content: "Use HNSW or IVFFlat."},
		},
	}

	agent := NewRAGAgent(llm, kb, WithAgentLogger(testLogger()))

	resp, err := agent.Chat(context.Background(), "how should I index vectors?")
	require.NoError(t, err)
	assert.Equal(t, "Use HNSW or IVFFlat.", resp.Response)

	// 監査レコード: 書き換え後クエリと取得ベクトル ID
	require.Len(t, resp.Queries, 1)
	assert.Equal(t, "pgvector indexing strategies", resp.Queries[0].Query)
	assert.Equal(t, []uuid.UUID{vectors[0].VectorID, vectors[1].VectorID}, resp.Queries[0].RetrievedIDs)

	// ナレッジベースには書き換え後クエリが渡る
	assert.Equal(t, []string{"pgvector indexing strategies"}, kb.lastQueries)

	// 2ターン目の履歴: system, user, assistant(tool call), tool
	require.Len(t, llm.messages, 2)
	secondTurn := llm.messages[1]
	require.Len(t, secondTurn, 4)
	assert.Equal(t, RoleAssistant, secondTurn[2].Role)
	assert.Equal(t, RoleTool, secondTurn[3].Role)
	assert.Equal(t, "call-1", secondTurn[3].ToolCallID)
	assert.Contains(t, secondTurn[3].Content, "chunk one")
	assert.Contains(t, secondTurn[3].Content, "chunk two")
}

func TestRAGAgent_DirectAnswerHasNoQueries(t *testing.T) {
	kb := &stubKnowledgeBase{}
	llm := &scriptedLLM{
		turns: []*ChatResult{{Content: "The capital of France is Paris."}},
	}

	agent := NewRAGAgent(llm, kb, WithAgentLogger(testLogger()))

	resp, err := agent.Chat(context.Background(), "capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "The capital of France is Paris.", resp.Response)
	assert.Empty(t, resp.Queries)
	assert.Empty(t, kb.lastQueries)
}

func TestRAGAgent_ExceedsIterationLimit(t *testing.T) {
	kb := &stubKnowledgeBase{}
	llm := &loopingLLM{}

	agent := NewRAGAgent(llm, kb,
		WithMaxToolIterations(3),
		WithAgentLogger(testLogger()),
	)

	_, err := agent.Chat(context.Background(), "loop forever")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolLoopExceeded)
	assert.Equal(t, 4, llm.calls) // 上限3回 + 超過を検出した4回目
}

func TestRAGAgent_MultipleToolCallsAccumulateQueries(t *testing.T) {
	vectors := []*knowledge.Vector{{VectorID: uuid.New(), Text: "chunk"}}
	kb := &stubKnowledgeBase{vectors: vectors}
	llm := &scriptedLLM{
		turns: []*ChatResult{
			{ToolCalls: []ToolCall{{
				ID:        "call-1",
				Name:      KnowledgeBaseToolName,
				Arguments: `{"rewritten_query": "first"}`,
			}}},
			{ToolCalls: []ToolCall{{
				ID:        "call-2",
				Name:      KnowledgeBaseToolName,
				Arguments: `{"rewritten_query": "second"}`,
			}}},
			{Content: "done"},
		},
	}

	agent := NewRAGAgent(llm, kb, WithAgentLogger(testLogger()))

	resp, err := agent.Chat(context.Background(), "multi hop question")
	require.NoError(t, err)
	require.Len(t, resp.Queries, 2)
	assert.Equal(t, "first", resp.Queries[0].Query)
	assert.Equal(t, "second", resp.Queries[1].Query)
}

func TestRAGAgent_UnknownToolFails(t *testing.T) {
	kb := &stubKnowledgeBase{}
	llm := &scriptedLLM{
		turns: []*ChatResult{
			{ToolCalls: []ToolCall{{
				ID:        "call-1",
				Name:      "delete_everything",
				Arguments: `{}`,
			}}},
		},
	}

	agent := NewRAGAgent(llm, kb, WithAgentLogger(testLogger()))

	_, err := agent.Chat(context.Background(), "question")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tool")
}

func TestRAGAgent_EmptyRetrievalStillAnswers(t *testing.T) {
	kb := &stubKnowledgeBase{vectors: nil}
	llm := &scriptedLLM{
		turns: []*ChatResult{
			{ToolCalls: []ToolCall{{
				ID:        "call-1",
				Name:      KnowledgeBaseToolName,
				Arguments: `{"rewritten_query": "obscure topic"}`,
			}}},
			{Content: "I could not find anything relevant."},
		},
	}

	agent := NewRAGAgent(llm, kb, WithAgentLogger(testLogger()))

	resp, err := agent.Chat(context.Background(), "question")
	require.NoError(t, err)
	require.Len(t, resp.Queries, 1)
	assert.Empty(t, resp.Queries[0].RetrievedIDs)

	secondTurn := llm.messages[1]
	assert.Contains(t, secondTurn[3].Content, "No relevant documents found")
}

func TestSimpleAgent_AnswersWithoutTools(t *testing.T) {
	llm := &scriptedLLM{
		turns: []*ChatResult{{Content: "direct answer"}},
	}

	agent := NewSimpleAgent(llm, testLogger())

	answer, err := agent.Chat(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, "direct answer", answer)
}
