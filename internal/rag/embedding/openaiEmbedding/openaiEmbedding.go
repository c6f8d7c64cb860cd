package openaiEmbedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/akolanti/StudyHelper/internal/config"
	"github.com/akolanti/StudyHelper/internal/rag/embedding"
	"github.com/akolanti/StudyHelper/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var logger *logger_i.Logger
var once sync.Once
var embeddingClient *client

var retryBackoff = config.RateLimitBackoff

type client struct {
	api   openai.Client
	model string
}

// GetOpenAIEmbeddingClient returns nil without an api key.
func GetOpenAIEmbeddingClient(ctx context.Context, modelName string, apikey string, opts ...option.RequestOption) embedding.Embedder {
	once.Do(func() {
		logger = logger_i.NewLogger("openai_embedding")
		if apikey == "" {
			logger.Error("OpenAI api key is not set")
			return
		}
		opts = append([]option.RequestOption{option.WithAPIKey(apikey)}, opts...)
		embeddingClient = &client{api: openai.NewClient(opts...), model: modelName}
		logger.Info("OpenAI Embedding client created", "model", modelName)
	})

	if embeddingClient == nil {
		return nil
	}
	return &client{api: embeddingClient.api, model: embeddingClient.model}
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	vectors, err := c.embed(ctx, []string{query})
	if err != nil {
		logger.WithTrace(ctx, config.TRACE_ID_KEY).Error("Error getting query embedding from OpenAI", "error", err)
		return nil, err
	}
	return vectors[0], nil
}

// BatchEmbedding sends one request per call. OpenAI has no cheaper path for
// large sets that finishes inside a job timeout, so isLargeDataSet is ignored.
func (c *client) BatchEmbedding(ctx context.Context, chunks []string, isLargeDataSet bool) ([][]float32, error) {
	log := logger.WithTrace(ctx, config.TRACE_ID_KEY).With("chunks", len(chunks))

	vectors, err := c.embed(ctx, chunks)
	if err != nil && isRateLimited(err) {
		log.Warn("Rate limit hit, retrying", "backoff", retryBackoff)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryBackoff):
		}
		vectors, err = c.embed(ctx, chunks)
	}
	if err != nil {
		log.Error("Error getting Embeddings from OpenAI", "error", err)
		return nil, err
	}
	return vectors, nil
}

func (c *client) embed(ctx context.Context, input []string) ([][]float32, error) {
	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: input},
		Model:      openai.EmbeddingModel(c.model),
		Dimensions: openai.Int(int64(config.EmbeddingOutputDimensionality)),
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(input) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d inputs", len(resp.Data), len(input))
	}

	out := make([][]float32, len(input))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			return nil, fmt.Errorf("openai embedding index %d out of range", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		out[d.Index] = vec
	}
	return out, nil
}

func isRateLimited(err error) bool {
	var apiErr *openai.Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

func (c *client) ModelName() string {
	return c.model
}
