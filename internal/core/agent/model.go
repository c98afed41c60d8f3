package agent

import "context"

// Role は会話メッセージの役割
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message はプロバイダ非依存の会話メッセージ表現
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall // アシスタントが要求したツール呼び出し（Role == RoleAssistant のみ）
	ToolCallID string     // ツール実行結果の対応付け（Role == RoleTool のみ）
}

// ToolCall はモデルが発行したツール呼び出し要求
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // JSON エンコード済み引数
}

// ToolDefinition はモデルに提示するツール定義
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON Schema
}

// ChatResult はモデル1ターン分の応答。
// ToolCalls が空でなければツール実行の要求、空であれば最終回答。
type ChatResult struct {
	Content   string
	ToolCalls []ToolCall
}

// LLMClient は LLM 通信インターフェース
type LLMClient interface {
	// ChatWithTools は会話履歴とツール定義を与えて1ターン分の応答を得る
	ChatWithTools(ctx context.Context, messages []Message, tools []ToolDefinition) (*ChatResult, error)
}

// TokenCounter はツール出力のトークン数制御に使うインターフェース
type TokenCounter interface {
	// CountTokens はテキストのトークン数を返す
	CountTokens(text string) int

	// TrimToTokenLimit はテキストを指定トークン数に収まるよう切り詰める
	TrimToTokenLimit(text string, maxTokens int) string
}

// state はツール呼び出しループの状態
type state int

const (
	stateAwaitingModel state = iota
	stateModelRequestsTool
	stateToolExecuting
	stateFinalAnswer
)
