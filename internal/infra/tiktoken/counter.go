package tiktoken

import (
	"fmt"

	"github.com/jinford/pdf-rag/internal/core/agent"
	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter は tiktoken によるトークン数のカウントと切り詰めを提供する
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter は新しいTokenCounterを作成する
// cl100k_baseエンコーディングを使用する
func NewTokenCounter() (*TokenCounter, error) {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}

	return &TokenCounter{
		encoding: encoding,
	}, nil
}

// CountTokens はテキストのトークン数をカウントする
func (tc *TokenCounter) CountTokens(text string) int {
	if tc.encoding == nil {
		return 0
	}
	tokens := tc.encoding.Encode(text, nil, nil)
	return len(tokens)
}

// TrimToTokenLimit はテキストを maxTokens に収まるよう末尾を切り詰める。
// トークン境界でデコードし直すため、マルチバイト文字が途中で切れることはない。
func (tc *TokenCounter) TrimToTokenLimit(text string, maxTokens int) string {
	if tc.encoding == nil || maxTokens <= 0 {
		return text
	}

	tokens := tc.encoding.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}

	return tc.encoding.Decode(tokens[:maxTokens])
}

// インターフェース実装の確認
var _ agent.TokenCounter = (*TokenCounter)(nil)
