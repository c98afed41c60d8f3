package ingestion

import (
	"fmt"
	"strings"

	"github.com/jinford/pdf-rag/internal/core/knowledge"
)

// Chunker はテキストをオーバーラップ付きのチャンク列に分割する
type Chunker interface {
	// Chunk はテキストをチャンク化する。各チャンクにはメタデータヘッダが付与される。
	Chunk(text string, metadata knowledge.Metadata) ([]string, error)
}

const (
	// DefaultChunkSizeTokens はデフォルトの目標チャンクサイズ（トークン数）
	DefaultChunkSizeTokens = 512
	// DefaultChunkOverlapTokens はデフォルトのオーバーラップ（トークン数）
	DefaultChunkOverlapTokens = 128

	// wordsPerToken はトークン数から概算単語数への固定換算比。
	// 毎チャンクのトークナイズを避けるための近似（英文で 1 トークン ≈ 0.75 単語）。
	wordsPerToken = 0.75
)

// ApproxChunker は単語ベースのスライディングウィンドウでテキストを分割する。
// トークン予算を固定比で単語予算へ換算し、wordsPerChunk 語の窓を
// wordsPerChunk - overlapWords 語ずつ前進させる。呼び出しごとに状態を持たない。
type ApproxChunker struct {
	chunkSizeTokens    int
	chunkOverlapTokens int

	wordsPerChunk int
	overlapWords  int
}

// NewApproxChunker は新しい ApproxChunker を作成する。
// オーバーラップがチャンクサイズ以上の場合は ErrInvalidChunkConfig を返す。
func NewApproxChunker(chunkSizeTokens, chunkOverlapTokens int) (*ApproxChunker, error) {
	if chunkSizeTokens <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d", ErrInvalidChunkConfig, chunkSizeTokens)
	}
	if chunkOverlapTokens < 0 || chunkOverlapTokens >= chunkSizeTokens {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidChunkConfig, chunkSizeTokens, chunkOverlapTokens)
	}

	wordsPerChunk := int(float64(chunkSizeTokens) * wordsPerToken)
	overlapWords := int(float64(chunkOverlapTokens) * wordsPerToken)
	if wordsPerChunk <= overlapWords {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidChunkConfig, chunkSizeTokens, chunkOverlapTokens)
	}

	return &ApproxChunker{
		chunkSizeTokens:    chunkSizeTokens,
		chunkOverlapTokens: chunkOverlapTokens,
		wordsPerChunk:      wordsPerChunk,
		overlapWords:       overlapWords,
	}, nil
}

// Chunk はテキストを分割する。
// 空テキストは0件、1窓に満たないテキストは全文そのままの1件を返す。
// 末尾の窓は短くなることがある。
func (c *ApproxChunker) Chunk(text string, metadata knowledge.Metadata) ([]string, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	header := renderHeader(metadata)
	stride := c.wordsPerChunk - c.overlapWords

	var chunks []string
	for start := 0; ; start += stride {
		end := start + c.wordsPerChunk
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, header+strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}

	return chunks, nil
}

// WordsPerChunk は1チャンクあたりの単語数を返す
func (c *ApproxChunker) WordsPerChunk() int {
	return c.wordsPerChunk
}

// OverlapWords はチャンク間でオーバーラップする単語数を返す
func (c *ApproxChunker) OverlapWords() int {
	return c.overlapWords
}

// renderHeader はチャンク先頭に付与するメタデータヘッダを整形する。
// 埋め込み表現が常にドキュメントの出自情報を持つようにするための前置き。
func renderHeader(m knowledge.Metadata) string {
	return fmt.Sprintf("Title: %s\nAuthor: %s\nDescription: %s\n\n", m.Title, m.Author, m.Description)
}

var _ Chunker = (*ApproxChunker)(nil)
