package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定
	Database DatabaseConfig

	// OpenAI設定（Embeddings + LLM）
	OpenAI OpenAIConfig

	// Cohere設定（リランク用）
	Cohere CohereConfig

	// UniPDFライセンスキー
	UnidocLicenseKey string

	// HTTPサーバ設定
	HTTP HTTPConfig

	// チャンク化設定
	Chunking ChunkingConfig

	// 検索設定
	Retrieval RetrievalConfig

	// エージェント設定
	Agent AgentConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN は pgx 用の接続文字列を返します
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// OpenAIConfig はOpenAI API設定（Embeddings + LLM）
type OpenAIConfig struct {
	APIKey             string
	EmbeddingModel     string
	EmbeddingDimension int
	LLMModel           string
}

// CohereConfig はCohere Rerank API設定
type CohereConfig struct {
	APIKey      string
	RerankModel string
}

// HTTPConfig はHTTPサーバ設定
type HTTPConfig struct {
	Addr string
}

// ChunkingConfig はチャンク化設定
type ChunkingConfig struct {
	ChunkSizeTokens    int
	ChunkOverlapTokens int
}

// RetrievalConfig は検索パイプライン設定
type RetrievalConfig struct {
	RetrieveK  int
	RerankTopN int
}

// AgentConfig はエージェント設定
type AgentConfig struct {
	MaxToolIterations   int
	ToolOutputMaxTokens int
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "pdfrag"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "pdfrag"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			EmbeddingModel:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension: getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 1536),
			LLMModel:           getEnv("OPENAI_LLM_MODEL", "gpt-4o-mini"),
		},
		Cohere: CohereConfig{
			APIKey:      getEnv("COHERE_API_KEY", ""),
			RerankModel: getEnv("COHERE_RERANK_MODEL", "rerank-english-v3.0"),
		},
		UnidocLicenseKey: getEnv("UNIDOC_LICENSE_KEY", ""),
		HTTP: HTTPConfig{
			Addr: getEnv("HTTP_ADDR", ":8080"),
		},
		Chunking: ChunkingConfig{
			ChunkSizeTokens:    getEnvAsInt("CHUNK_SIZE_TOKENS", 512),
			ChunkOverlapTokens: getEnvAsInt("CHUNK_OVERLAP_TOKENS", 128),
		},
		Retrieval: RetrievalConfig{
			RetrieveK:  getEnvAsInt("RETRIEVE_K", 10),
			RerankTopN: getEnvAsInt("RERANK_TOP_N", 3),
		},
		Agent: AgentConfig{
			MaxToolIterations:   getEnvAsInt("AGENT_MAX_TOOL_ITERATIONS", 5),
			ToolOutputMaxTokens: getEnvAsInt("AGENT_TOOL_OUTPUT_MAX_TOKENS", 4000),
		},
	}

	return cfg, nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
