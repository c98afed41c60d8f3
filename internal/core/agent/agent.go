package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jinford/pdf-rag/internal/core/knowledge"
)

const (
	// DefaultMaxToolIterations はツール呼び出しループのデフォルト上限
	DefaultMaxToolIterations = 5

	// DefaultToolOutputMaxTokens はツール出力としてモデルへ返すテキストのトークン上限
	DefaultToolOutputMaxTokens = 4000

	// systemPrompt は RAG エージェントのシステムプロンプト
	systemPrompt = "You are a helpful assistant with access to a knowledge base. " +
		"Use the query_knowledge_base tool when the question may be answered by " +
		"the stored documents. Rewrite the user's query for retrieval effectiveness. " +
		"Answer based on retrieved context when available."
)

// ErrToolLoopExceeded はツール呼び出し回数が上限を超えた場合のエラー。
// 当該リクエストのみが失敗し、プロセスは継続する。
var ErrToolLoopExceeded = errors.New("tool call loop exceeded maximum iterations")

// KnowledgeBase はエージェントのツールが呼び出す検索インターフェース
type KnowledgeBase interface {
	// Retrieve はクエリに対するリランク済み候補ベクトル列を返す
	Retrieve(ctx context.Context, query string) ([]*knowledge.Vector, error)
}

// RAGAgent はツール使用型の回答生成ループを実行する。
// モデルの各ターンは「ツール呼び出し要求」か「最終回答」のいずれかであり、
// ツール呼び出しごとに発行クエリと取得 ID を監査レコードとして記録する。
type RAGAgent struct {
	llm           LLMClient
	knowledgeBase KnowledgeBase
	tokenCounter  TokenCounter

	maxIterations       int
	toolOutputMaxTokens int
	logger              *slog.Logger
}

type ragAgentOptions struct {
	maxIterations       int
	toolOutputMaxTokens int
	tokenCounter        TokenCounter
	logger              *slog.Logger
}

// RAGAgentOption は RAGAgent のオプション設定
type RAGAgentOption func(*ragAgentOptions)

// WithMaxToolIterations はツール呼び出しループの上限を上書きする
func WithMaxToolIterations(n int) RAGAgentOption {
	return func(o *ragAgentOptions) {
		o.maxIterations = n
	}
}

// WithToolOutputMaxTokens はツール出力のトークン上限を上書きする
func WithToolOutputMaxTokens(n int) RAGAgentOption {
	return func(o *ragAgentOptions) {
		o.toolOutputMaxTokens = n
	}
}

// WithTokenCounter はツール出力の切り詰めに使う TokenCounter を設定する
func WithTokenCounter(tc TokenCounter) RAGAgentOption {
	return func(o *ragAgentOptions) {
		o.tokenCounter = tc
	}
}

// WithAgentLogger は RAGAgent にロガーを設定する
func WithAgentLogger(logger *slog.Logger) RAGAgentOption {
	return func(o *ragAgentOptions) {
		o.logger = logger
	}
}

// NewRAGAgent は新しい RAGAgent を作成する
func NewRAGAgent(llm LLMClient, kb KnowledgeBase, opts ...RAGAgentOption) *RAGAgent {
	options := ragAgentOptions{
		maxIterations:       DefaultMaxToolIterations,
		toolOutputMaxTokens: DefaultToolOutputMaxTokens,
		logger:              slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.maxIterations <= 0 {
		options.maxIterations = DefaultMaxToolIterations
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &RAGAgent{
		llm:                 llm,
		knowledgeBase:       kb,
		tokenCounter:        options.tokenCounter,
		maxIterations:       options.maxIterations,
		toolOutputMaxTokens: options.toolOutputMaxTokens,
		logger:              options.logger,
	}
}

// Chat はユーザーの質問に対して回答を生成する。
// ツール呼び出しの上限を超えた場合は ErrToolLoopExceeded を返す。
func (a *RAGAgent) Chat(ctx context.Context, userQuery string) (*knowledge.GenerateResponse, error) {
	if userQuery == "" {
		return nil, fmt.Errorf("query is required")
	}

	messages := []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: userQuery},
	}
	tools := []ToolDefinition{knowledgeBaseTool()}
	queries := make([]knowledge.Query, 0)

	current := stateAwaitingModel
	iterations := 0

	for current != stateFinalAnswer {
		result, err := a.llm.ChatWithTools(ctx, messages, tools)
		if err != nil {
			return nil, fmt.Errorf("model turn failed: %w", err)
		}

		if len(result.ToolCalls) == 0 {
			current = stateFinalAnswer
			a.logger.Info("agent produced final answer",
				"queries", len(queries),
				"answerLength", len(result.Content),
			)
			return &knowledge.GenerateResponse{
				Response: result.Content,
				Queries:  queries,
			}, nil
		}

		current = stateModelRequestsTool
		iterations++
		if iterations > a.maxIterations {
			return nil, fmt.Errorf("%w: %d", ErrToolLoopExceeded, a.maxIterations)
		}

		// アシスタントのツール呼び出し要求を履歴へ反映
		messages = append(messages, Message{
			Role:      RoleAssistant,
			Content:   result.Content,
			ToolCalls: result.ToolCalls,
		})

		current = stateToolExecuting
		for _, call := range result.ToolCalls {
			output, query, err := a.executeToolCall(ctx, call)
			if err != nil {
				return nil, fmt.Errorf("tool %s failed: %w", call.Name, err)
			}
			if query != nil {
				queries = append(queries, *query)
			}
			messages = append(messages, Message{
				Role:       RoleTool,
				Content:    output,
				ToolCallID: call.ID,
			})
		}
		current = stateAwaitingModel
	}

	// ループ条件上ここには到達しない
	return nil, fmt.Errorf("agent loop terminated unexpectedly")
}

// executeToolCall はツール呼び出し1件を実行し、ツール出力と監査レコードを返す
func (a *RAGAgent) executeToolCall(ctx context.Context, call ToolCall) (string, *knowledge.Query, error) {
	if call.Name != KnowledgeBaseToolName {
		return "", nil, fmt.Errorf("unknown tool: %s", call.Name)
	}

	var args struct {
		RewrittenQuery string `json:"rewritten_query"`
	}
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return "", nil, fmt.Errorf("failed to parse tool arguments: %w", err)
	}
	if args.RewrittenQuery == "" {
		return "", nil, fmt.Errorf("rewritten_query is required")
	}

	a.logger.Info("executing knowledge base tool", "query", args.RewrittenQuery)

	vectors, err := a.knowledgeBase.Retrieve(ctx, args.RewrittenQuery)
	if err != nil {
		return "", nil, err
	}

	retrievedIDs := make([]uuid.UUID, 0, len(vectors))
	for _, v := range vectors {
		retrievedIDs = append(retrievedIDs, v.VectorID)
	}

	query := &knowledge.Query{
		Query:        args.RewrittenQuery,
		RetrievedIDs: retrievedIDs,
	}

	output := renderToolOutput(vectors)
	if a.tokenCounter != nil {
		output = a.tokenCounter.TrimToTokenLimit(output, a.toolOutputMaxTokens)
	}

	a.logger.Info("knowledge base tool completed",
		"query", args.RewrittenQuery,
		"retrieved", len(retrievedIDs),
	)

	return output, query, nil
}

// renderToolOutput は取得チャンクをモデルへ返すテキストに整形する
func renderToolOutput(vectors []*knowledge.Vector) string {
	if len(vectors) == 0 {
		return "No relevant documents found in the knowledge base."
	}

	var sb strings.Builder
	for i, v := range vectors {
		sb.WriteString(fmt.Sprintf("[%d] ", i+1))
		sb.WriteString(v.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// SimpleAgent はツールを使わずモデルの知識のみで回答するエージェント
type SimpleAgent struct {
	llm    LLMClient
	logger *slog.Logger
}

// NewSimpleAgent は新しい SimpleAgent を作成する
func NewSimpleAgent(llm LLMClient, logger *slog.Logger) *SimpleAgent {
	if logger == nil {
		logger = slog.Default()
	}
	return &SimpleAgent{llm: llm, logger: logger}
}

// Chat はユーザーの質問に直接回答する
func (a *SimpleAgent) Chat(ctx context.Context, userQuery string) (string, error) {
	if userQuery == "" {
		return "", fmt.Errorf("query is required")
	}

	messages := []Message{
		{Role: RoleUser, Content: userQuery},
	}

	result, err := a.llm.ChatWithTools(ctx, messages, nil)
	if err != nil {
		return "", fmt.Errorf("model turn failed: %w", err)
	}

	return result.Content, nil
}
