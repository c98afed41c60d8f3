package tiktoken

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCounter_CountTokens(t *testing.T) {
	counter, err := NewTokenCounter()
	require.NoError(t, err)

	assert.Equal(t, 0, counter.CountTokens(""))
	assert.Greater(t, counter.CountTokens("hello world"), 0)
}

func TestTokenCounter_TrimToTokenLimit(t *testing.T) {
	counter, err := NewTokenCounter()
	require.NoError(t, err)

	long := strings.Repeat("word ", 1000)
	trimmed := counter.TrimToTokenLimit(long, 100)

	assert.Less(t, len(trimmed), len(long))
	assert.LessOrEqual(t, counter.CountTokens(trimmed), 100)
}

func TestTokenCounter_TrimKeepsShortTextIntact(t *testing.T) {
	counter, err := NewTokenCounter()
	require.NoError(t, err)

	short := "short text"
	assert.Equal(t, short, counter.TrimToTokenLimit(short, 100))
}
