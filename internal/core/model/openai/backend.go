package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/ClareAI/astra-translation-service/internal/config"
	"github.com/ClareAI/astra-translation-service/internal/core/model/provider"
	"github.com/ClareAI/astra-translation-service/pkg/logger"
	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Config holds the OpenAI backend settings
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Backend translates with a chat completion model instead of a dedicated seq2seq model.
// Every language shares the same chat model; the handle carries the target language.
type Backend struct {
	client *goopenai.Client
	model  string
}

// NewBackend creates a new OpenAI backend
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not found")
	}
	model := cfg.Model
	if model == "" {
		model = goopenai.GPT4oMini
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &Backend{
		client: goopenai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

// Type returns the backend type
func (b *Backend) Type() provider.BackendType {
	return provider.BackendTypeOpenAI
}

// Load verifies the chat model exists and binds it to lang.
func (b *Backend) Load(ctx context.Context, lang config.Language) (provider.Handle, error) {
	if _, err := b.client.GetModel(ctx, b.model); err != nil {
		return nil, fmt.Errorf("failed to load model %s: %w", b.model, err)
	}

	logger.Base().Info("model loaded",
		zap.String("backend", b.Type().String()),
		zap.String("language", lang.Code),
		zap.String("model", b.model),
	)

	return &handle{client: b.client, model: b.model, language: lang}, nil
}

type handle struct {
	client   *goopenai.Client
	model    string
	language config.Language
}

func (h *handle) ModelID() string {
	return h.model
}

func (h *handle) Translate(ctx context.Context, text string, params provider.DecodingParams) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model: h.model,
		Messages: []goopenai.ChatCompletionMessage{
			{
				Role:    goopenai.ChatMessageRoleSystem,
				Content: fmt.Sprintf("Translate the following English text to %s. Respond with only the translation, nothing else.", h.language.DisplayName),
			},
			{
				Role:    goopenai.ChatMessageRoleUser,
				Content: text,
			},
		},
		MaxTokens:   params.MaxLength,
		Temperature: 0.2,
	}

	resp, err := h.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no translation returned")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
