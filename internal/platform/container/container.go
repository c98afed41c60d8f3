package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jinford/pdf-rag/internal/core/agent"
	"github.com/jinford/pdf-rag/internal/core/ingestion"
	"github.com/jinford/pdf-rag/internal/core/knowledge"
	"github.com/jinford/pdf-rag/internal/core/retrieval"
	"github.com/jinford/pdf-rag/internal/infra/cohere"
	"github.com/jinford/pdf-rag/internal/infra/openai"
	"github.com/jinford/pdf-rag/internal/infra/postgres"
	"github.com/jinford/pdf-rag/internal/infra/tiktoken"
	"github.com/jinford/pdf-rag/internal/infra/unipdf"
	"github.com/jinford/pdf-rag/internal/platform/config"
	"github.com/jinford/pdf-rag/internal/platform/database"
)

// ServiceContainer はアプリケーション全体で共有する依存関係を保持する。
// ストアはテナントごとにスコープされるため、テナント非依存の部品のみを
// 構築時に組み立て、テナント束縛はリクエスト時に行う。
type ServiceContainer struct {
	cfg    *config.Config
	logger *slog.Logger

	pool         *pgxpool.Pool
	parser       ingestion.Parser
	chunker      ingestion.Chunker
	embedder     *openai.Embedder
	reranker     retrieval.Reranker
	llmClient    agent.LLMClient
	tokenCounter agent.TokenCounter
}

type containerOptions struct {
	logger    *slog.Logger
	parser    ingestion.Parser
	reranker  retrieval.Reranker
	llmClient agent.LLMClient
}

// ContainerOption は ServiceContainer 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerParser は Parser を差し替える
func WithContainerParser(parser ingestion.Parser) ContainerOption {
	return func(opts *containerOptions) {
		opts.parser = parser
	}
}

// WithContainerReranker は Reranker を差し替える
func WithContainerReranker(reranker retrieval.Reranker) ContainerOption {
	return func(opts *containerOptions) {
		opts.reranker = reranker
	}
}

// WithContainerLLMClient は LLM クライアントを差し替える
func WithContainerLLMClient(client agent.LLMClient) ContainerOption {
	return func(opts *containerOptions) {
		opts.llmClient = client
	}
}

// NewContainer は設定からコンテナを生成する
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*ServiceContainer, error) {
	options := containerOptions{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	pool, err := database.New(ctx, database.ConnectionParams{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return nil, fmt.Errorf("データベース初期化に失敗しました: %w", err)
	}

	chunker, err := ingestion.NewApproxChunker(cfg.Chunking.ChunkSizeTokens, cfg.Chunking.ChunkOverlapTokens)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("チャンカー初期化に失敗しました: %w", err)
	}

	embedder := openai.NewEmbedder(cfg.OpenAI.APIKey,
		openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
		openai.WithEmbeddingDimension(cfg.OpenAI.EmbeddingDimension),
	)

	parser := options.parser
	if parser == nil {
		if cfg.UnidocLicenseKey != "" {
			if err := unipdf.SetLicenseKey(cfg.UnidocLicenseKey); err != nil {
				pool.Close()
				return nil, err
			}
		}
		parser = unipdf.NewParser()
	}

	reranker := options.reranker
	if reranker == nil {
		reranker, err = cohere.NewReranker(cfg.Cohere.APIKey,
			cohere.WithRerankModel(cfg.Cohere.RerankModel),
		)
		if err != nil {
			pool.Close()
			return nil, err
		}
	}

	llmClient := options.llmClient
	if llmClient == nil {
		llmClient, err = openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.LLMModel)
		if err != nil {
			pool.Close()
			return nil, err
		}
	}

	tokenCounter, err := tiktoken.NewTokenCounter()
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("トークンカウンター初期化に失敗しました: %w", err)
	}

	return &ServiceContainer{
		cfg:          cfg,
		logger:       options.logger,
		pool:         pool,
		parser:       parser,
		chunker:      chunker,
		embedder:     embedder,
		reranker:     reranker,
		llmClient:    llmClient,
		tokenCounter: tokenCounter,
	}, nil
}

// TenantStore はテナントに束縛されたストアを返し、スキーマを保証する
func (c *ServiceContainer) TenantStore(ctx context.Context, tenant string) (*postgres.Store, error) {
	store, err := postgres.NewStore(c.pool, tenant, c.embedder.Dimension())
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// IndexServiceFor はテナントストアに束縛された IndexService を組み立てる
func (c *ServiceContainer) IndexServiceFor(store knowledge.DocumentStore) *ingestion.IndexService {
	return ingestion.NewIndexService(
		c.parser,
		c.chunker,
		c.embedder,
		store,
		ingestion.WithIndexLogger(c.logger),
	)
}

// PipelineFor はテナントストアに束縛された検索パイプラインを組み立てる
func (c *ServiceContainer) PipelineFor(retriever retrieval.Retriever) *retrieval.Pipeline {
	return retrieval.NewPipeline(
		c.embedder,
		retriever,
		c.reranker,
		retrieval.WithRetrieveK(c.cfg.Retrieval.RetrieveK),
		retrieval.WithRerankTopN(c.cfg.Retrieval.RerankTopN),
		retrieval.WithPipelineLogger(c.logger),
	)
}

// RAGAgentFor は検索パイプラインに束縛されたエージェントを組み立てる
func (c *ServiceContainer) RAGAgentFor(kb agent.KnowledgeBase) *agent.RAGAgent {
	return agent.NewRAGAgent(
		c.llmClient,
		kb,
		agent.WithMaxToolIterations(c.cfg.Agent.MaxToolIterations),
		agent.WithToolOutputMaxTokens(c.cfg.Agent.ToolOutputMaxTokens),
		agent.WithTokenCounter(c.tokenCounter),
		agent.WithAgentLogger(c.logger),
	)
}

// SimpleAgent はナレッジベースを使わないエージェントを組み立てる
func (c *ServiceContainer) SimpleAgent() *agent.SimpleAgent {
	return agent.NewSimpleAgent(c.llmClient, c.logger)
}

// Logger はコンテナのロガーを返す
func (c *ServiceContainer) Logger() *slog.Logger {
	return c.logger
}

// Config はコンテナの設定を返す
func (c *ServiceContainer) Config() *config.Config {
	return c.cfg
}

// Close はコンテナが保持するリソースを解放する
func (c *ServiceContainer) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}
