package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/barekit/givingfaq/pkg/config"
	"github.com/barekit/givingfaq/pkg/knowledge"
	"github.com/barekit/givingfaq/pkg/knowledge/flat"
	embopenai "github.com/barekit/givingfaq/pkg/knowledge/openai"
	pgvectorstore "github.com/barekit/givingfaq/pkg/knowledge/postgres"
	"github.com/barekit/givingfaq/pkg/knowledge/qdrant"
	llmopenai "github.com/barekit/givingfaq/pkg/llm/openai"
	"github.com/barekit/givingfaq/pkg/resolver"
	"github.com/barekit/givingfaq/pkg/sheet/gsheets"
	"github.com/barekit/givingfaq/pkg/sheet/xlsx"
	"github.com/barekit/givingfaq/pkg/store"
	"github.com/openai/openai-go/option"
)

func openaiOptions(cfg config.OpenAIConfig) []option.RequestOption {
	opts := []option.RequestOption{
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return opts
}

func newEmbedder(cfg *config.Config) *embopenai.Embedder {
	e := embopenai.NewEmbedder(openaiOptions(cfg.OpenAI)...)
	e.SetModel(cfg.OpenAI.EmbeddingModel)
	return e
}

func newGenerator(cfg *config.Config) *llmopenai.Provider {
	p := llmopenai.New(openaiOptions(cfg.OpenAI)...)
	p.SetModel(cfg.OpenAI.ChatModel)
	return p
}

func newRowSource(cfg config.SourceConfig) (knowledge.RowSource, error) {
	switch cfg.Type {
	case config.SourceXLSX:
		return xlsx.New(cfg.Path, cfg.Sheet), nil
	case config.SourceGSheets:
		creds := []byte(cfg.CredentialsJSON)
		if len(creds) == 0 {
			b, err := os.ReadFile(cfg.CredentialsFile)
			if err != nil {
				return nil, fmt.Errorf("read credentials: %w", err)
			}
			creds = b
		}
		return gsheets.New(cfg.SpreadsheetID, cfg.Range, creds), nil
	default:
		return nil, fmt.Errorf("unsupported source type: %s", cfg.Type)
	}
}

func newStore(ctx context.Context, cfg *config.Config) (knowledge.Store, error) {
	return store.New(ctx, cfg.Store.StoreConfig())
}

// newVectorStore returns the external vector store for the configured index,
// or nil for the in-process index.
func newVectorStore(cfg config.IndexConfig, dimension int) (knowledge.VectorStore, error) {
	switch cfg.Type {
	case config.IndexFlat:
		return nil, nil
	case config.IndexQdrant:
		return qdrant.New(cfg.QdrantHost, cfg.QdrantPort, cfg.Collection, uint64(dimension))
	case config.IndexPgvector:
		return pgvectorstore.New(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unsupported index type: %s", cfg.Type)
	}
}

// indexFactory returns the knowledge.IndexFactory for serving. External indexes
// are expected to have been populated by the build command.
func indexFactory(cfg config.IndexConfig) knowledge.IndexFactory {
	if cfg.Type == config.IndexFlat {
		return flat.NewIndex
	}
	return func(ctx context.Context, entries []knowledge.Entry) (knowledge.VectorStore, error) {
		dimension := 0
		if len(entries) > 0 {
			dimension = len(entries[0].Embedding)
		}
		return newVectorStore(cfg, dimension)
	}
}

// loadKnowledgeBase loads the snapshot once for the lifetime of the process.
func loadKnowledgeBase(ctx context.Context, cfg *config.Config) (*knowledge.KnowledgeBase, error) {
	st, err := newStore(ctx, cfg)
	if err != nil {
		return nil, &knowledge.LoadError{Reason: "open store", Err: err}
	}
	return knowledge.Load(ctx, st, indexFactory(cfg.Index))
}

// servingEmbeddingModel picks the query embedding model. Queries must be embedded
// with the model the knowledge base was built with.
func servingEmbeddingModel(configured string, kb *knowledge.KnowledgeBase) string {
	if configured == "" {
		return kb.Model()
	}
	if configured != kb.Model() {
		slog.Warn("Embedding model differs from the knowledge base, scores will not be comparable",
			"configured", configured, "knowledge_base", kb.Model())
	}
	return configured
}

func newResolver(cfg *config.Config, kb *knowledge.KnowledgeBase) *resolver.Resolver {
	embedder := newEmbedder(cfg)
	embedder.SetModel(servingEmbeddingModel(cfg.OpenAI.EmbeddingModel, kb))
	return resolver.New(kb, embedder,
		resolver.WithGenerator(newGenerator(cfg)),
		resolver.WithTemperature(cfg.OpenAI.Temperature),
		resolver.WithDebug(cfg.Debug),
	)
}
