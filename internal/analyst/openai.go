package analyst

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIAnalyst uses any OpenAI-compatible chat completion endpoint that
// accepts image_url content parts.
type OpenAIAnalyst struct {
	client *openai.Client
	model  string
}

// NewOpenAIAnalyst creates an analyst. An empty baseURL selects api.openai.com.
func NewOpenAIAnalyst(apiKey, baseURL, model string) *OpenAIAnalyst {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIAnalyst{client: openai.NewClientWithConfig(cfg), model: model}
}

func (a *OpenAIAnalyst) Name() string { return "openai:" + a.model }

func (a *OpenAIAnalyst) Analyze(ctx context.Context, png []byte) (string, error) {
	if len(png) == 0 {
		return "", errors.New("openai: empty chart image")
	}
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: Prompt},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
						Detail: openai.ImageURLDetailAuto,
					},
				},
			},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("openai chat: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
