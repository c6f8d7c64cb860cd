package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/akolanti/StudyHelper/internal/config"
	"github.com/akolanti/StudyHelper/internal/rag/embedding"
	"github.com/akolanti/StudyHelper/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/StudyHelper/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/StudyHelper/internal/rag/llm"
	"github.com/akolanti/StudyHelper/internal/rag/llm/gemini"
	"github.com/akolanti/StudyHelper/internal/rag/llm/openaiLLM"
)

const (
	defaultOpenAIGenerateModel  = "gpt-4o-mini"
	defaultOpenAIEmbeddingModel = "text-embedding-3-small"
)

// NewProviders picks the embedder and llm named by settings.Provider.
func NewProviders(ctx context.Context, settings config.LLMSettings) (embedding.Embedder, llm.Provider, error) {
	var em embedding.Embedder
	var gen llm.Provider

	switch settings.Provider {
	case config.ProviderGemini, "":
		em = googleEmbedding.GetGoogleEmbeddingClient(ctx, settings.EmbeddingModel, settings.GoogleAPIKey)
		gen = gemini.GetGeminiClient(ctx, settings.GenerateModel, settings.GoogleAPIKey)
	case config.ProviderOpenAI:
		em = openaiEmbedding.GetOpenAIEmbeddingClient(ctx, openAIModel(settings.EmbeddingModel, defaultOpenAIEmbeddingModel), settings.OpenAIAPIKey)
		gen = openaiLLM.GetOpenAIClient(ctx, openAIModel(settings.GenerateModel, defaultOpenAIGenerateModel), settings.OpenAIAPIKey)
	default:
		return nil, nil, fmt.Errorf("unknown llm provider %q", settings.Provider)
	}

	if em == nil || gen == nil {
		return nil, nil, fmt.Errorf("could not create %s clients", settings.Provider)
	}
	return em, gen, nil
}

// openAIModel falls back when the configured model is a gemini default.
func openAIModel(configured, fallback string) string {
	if configured == "" || strings.HasPrefix(configured, "gemini") {
		return fallback
	}
	return configured
}
