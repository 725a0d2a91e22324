package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/lepestok-ai/server/internal/agent/model"
	logx "github.com/lepestok-ai/server/pkg/logger"
)

// ChatModel is the model-service seam of the orchestration loop. The stop
// reason is carried by the returned message: tool calls present means the
// model wants tools, otherwise the content is the final answer.
// Satisfied by the eino Gemini chat model; tests plug in a fake.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error)
}

// ChatModelConfig holds what is needed to construct the production model.
type ChatModelConfig struct {
	APIKey   string
	BaseURL  string
	Response model.ResponseModelConfig
}

// NewGeminiChatModel creates the production chat model.
func NewGeminiChatModel(ctx context.Context, config ChatModelConfig) (*gemini.ChatModel, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	chatModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Response.Model,
		Temperature: &config.Response.Temperature,
		MaxTokens:   &config.Response.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating response model")
		return nil, fmt.Errorf("error creating response model: %w", err)
	}

	return chatModel, nil
}
