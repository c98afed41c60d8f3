package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/jinford/pdf-rag/internal/core/knowledge"
)

// marshalMetadata は Metadata を jsonb 格納用のバイト列へ変換する
func marshalMetadata(m knowledge.Metadata) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return data, nil
}

// unmarshalMetadata は jsonb のバイト列を Metadata へ復元する
func unmarshalMetadata(data []byte) (knowledge.Metadata, error) {
	if len(data) == 0 {
		return knowledge.Metadata{}, nil
	}

	var m knowledge.Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return knowledge.Metadata{}, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return m, nil
}
