package analyst

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultOllamaModel is the vision model used when none is configured.
const DefaultOllamaModel = "llama3.2-vision"

// OllamaAnalyst calls a local Ollama server's chat endpoint.
type OllamaAnalyst struct {
	client *resty.Client
	model  string
}

// NewOllamaAnalyst creates an analyst for the given server and model.
// Vision models are slow on CPU; timeout should be generous.
func NewOllamaAnalyst(baseURL, model string, timeout time.Duration) *OllamaAnalyst {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &OllamaAnalyst{
		client: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
		model: model,
	}
}

func (a *OllamaAnalyst) Name() string { return "ollama:" + a.model }

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Error   string        `json:"error"`
}

func (a *OllamaAnalyst) Analyze(ctx context.Context, png []byte) (string, error) {
	if len(png) == 0 {
		return "", errors.New("ollama: empty chart image")
	}
	var out, failure ollamaChatResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(ollamaChatRequest{
			Model: a.model,
			Messages: []ollamaMessage{{
				Role:    "user",
				Content: Prompt,
				Images:  []string{base64.StdEncoding.EncodeToString(png)},
			}},
		}).
		SetResult(&out).
		SetError(&failure).
		Post("/api/chat")
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	if !resp.IsSuccess() {
		if failure.Error != "" {
			return "", fmt.Errorf("ollama chat: status %d: %s", resp.StatusCode(), failure.Error)
		}
		return "", fmt.Errorf("ollama chat: status %d, body: %s", resp.StatusCode(), resp.String())
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama chat: %s", out.Error)
	}
	if strings.TrimSpace(out.Message.Content) == "" {
		return "", errors.New("ollama chat: empty response")
	}
	return out.Message.Content, nil
}
