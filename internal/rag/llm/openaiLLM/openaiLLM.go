package openaiLLM

import (
	"context"
	"errors"
	"sync"

	"github.com/akolanti/StudyHelper/internal/config"
	"github.com/akolanti/StudyHelper/internal/rag/llm"
	"github.com/akolanti/StudyHelper/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type llmClient struct {
	api       openai.Client
	modelName string
	prompt    string
}

var logger *logger_i.Logger
var openaiClient *llmClient
var once sync.Once

// GetOpenAIClient returns nil without an api key.
func GetOpenAIClient(ctx context.Context, modelName string, apikey string, opts ...option.RequestOption) llm.Provider {
	once.Do(func() {
		logger = logger_i.NewLogger("llm_openai")
		if apikey == "" {
			logger.Error("OpenAI api key is not set")
			return
		}
		opts = append([]option.RequestOption{option.WithAPIKey(apikey)}, opts...)
		openaiClient = &llmClient{api: openai.NewClient(opts...), modelName: modelName, prompt: config.ModelContext}
		logger.Info("OpenAI client created", "model", modelName)
	})

	if openaiClient == nil {
		return nil
	}
	return &llmClient{api: openaiClient.api, modelName: openaiClient.modelName, prompt: openaiClient.prompt}
}

func (c *llmClient) Generate(ctx context.Context, userQuery string, matches []string) (string, error) {
	log := logger.WithTrace(ctx, config.TRACE_ID_KEY)

	completion, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.modelName),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(c.prompt),
			openai.UserMessage(llm.BuildPrompt(userQuery, matches)),
		},
		Temperature: openai.Float(float64(config.ModelTemperature)),
	})
	if err != nil {
		log.Error("OpenAI generation failed", "error", err)
		return "", err
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", errors.New("openai returned an empty answer")
	}
	return completion.Choices[0].Message.Content, nil
}
