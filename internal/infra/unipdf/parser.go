package unipdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/jinford/pdf-rag/internal/core/ingestion"
	"github.com/jinford/pdf-rag/internal/core/knowledge"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

// pdfMagic は PDF ファイル先頭のマジックバイト
var pdfMagic = []byte("%PDF-")

// SetLicenseKey は UniPDF の Metered License キーを設定する。
// PDF を処理する前に一度だけ呼び出すこと。
func SetLicenseKey(key string) error {
	if key == "" {
		return fmt.Errorf("UniPDF license key is empty: please set UNIDOC_LICENSE_KEY environment variable")
	}
	if err := license.SetMeteredKey(key); err != nil {
		return fmt.Errorf("failed to set UniPDF license key: %w", err)
	}
	return nil
}

// Parser は UniPDF によるテキスト/メタデータ抽出実装。
// PDF 以外の入力は UTF-8 のプレーンテキストとして扱う。
// 判定はファイル名ではなく先頭バイトで行う。
type Parser struct{}

// NewParser は新しい Parser を作成する
func NewParser() *Parser {
	return &Parser{}
}

// ExtractText はファイル内容から全文テキストを抽出する。
// PDF の場合は全ページを順に連結する。
func (p *Parser) ExtractText(ctx context.Context, data []byte) (string, error) {
	if !bytes.HasPrefix(data, pdfMagic) {
		return string(data), nil
	}

	pdfReader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("failed to get page count: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		page, err := pdfReader.GetPage(i)
		if err != nil {
			return "", fmt.Errorf("failed to get page %d: %w", i, err)
		}

		ex, err := extractor.New(page)
		if err != nil {
			return "", fmt.Errorf("failed to create extractor for page %d: %w", i, err)
		}

		text, err := ex.ExtractText()
		if err != nil {
			return "", fmt.Errorf("failed to extract text from page %d: %w", i, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}

	return sb.String(), nil
}

// ExtractMetadata はドキュメント情報辞書からメタデータを抽出する。
// PDF 以外、または情報辞書を持たない PDF では空のメタデータを返す。
func (p *Parser) ExtractMetadata(ctx context.Context, data []byte) (knowledge.Metadata, error) {
	if !bytes.HasPrefix(data, pdfMagic) {
		return knowledge.Metadata{}, nil
	}

	pdfReader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return knowledge.Metadata{}, fmt.Errorf("failed to open PDF: %w", err)
	}

	info, err := pdfReader.GetPdfInfo()
	if err != nil || info == nil {
		// 情報辞書がない PDF は珍しくないため失敗扱いにしない
		return knowledge.Metadata{}, nil
	}

	var metadata knowledge.Metadata
	if info.Title != nil {
		metadata.Title = info.Title.Decoded()
	}
	if info.Author != nil {
		metadata.Author = info.Author.Decoded()
	}
	if info.Subject != nil {
		metadata.Description = info.Subject.Decoded()
	}
	if info.Keywords != nil {
		metadata.Keywords = splitKeywords(info.Keywords.Decoded())
	}
	if info.CreationDate != nil {
		metadata.CreatedAt = info.CreationDate.ToGoTime().Format("2006-01-02")
	}

	return metadata, nil
}

// splitKeywords はカンマ/セミコロン区切りのキーワード文字列を分割する
func splitKeywords(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';'
	})

	keywords := make([]string, 0, len(fields))
	for _, f := range fields {
		if trimmed := strings.TrimSpace(f); trimmed != "" {
			keywords = append(keywords, trimmed)
		}
	}
	if len(keywords) == 0 {
		return nil
	}
	return keywords
}

// インターフェース実装の確認
var _ ingestion.Parser = (*Parser)(nil)
